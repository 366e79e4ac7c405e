package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "regdesk/pkg/domain-errors"
)

// Typed identifiers prevent cross-entity assignment at compile time. Construct
// from external input via the Parse* functions at trust boundaries; direct
// casting bypasses validation.

// UserID identifies an admin or customer account.
type UserID uuid.UUID

// AttachmentID identifies one uploaded document attachment.
type AttachmentID uuid.UUID

// RegistrationID is the public identifier of a company-registration
// application. Unlike the UUID-backed IDs it is a human-visible reference of
// the form reg_<unix-millis>_<8 hex chars>, generated at creation and stable
// for the life of the application.
type RegistrationID string

var registrationIDPattern = regexp.MustCompile(`^reg_\d{10,16}_[0-9a-f]{8}$`)

// NewRegistrationID generates a fresh registration identifier.
func NewRegistrationID(now time.Time) RegistrationID {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// UUID-derived suffix rather than panicking in a request path.
		sum := uuid.New()
		copy(buf, sum[:4])
	}
	return RegistrationID(fmt.Sprintf("reg_%d_%s", now.UnixMilli(), hex.EncodeToString(buf)))
}

// ParseRegistrationID validates an externally supplied registration id.
func ParseRegistrationID(s string) (RegistrationID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "registration id cannot be empty")
	}
	if len(s) > 64 || !registrationIDPattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid registration id")
	}
	return RegistrationID(s), nil
}

func (r RegistrationID) String() string {
	return string(r)
}

// NewUserID generates a fresh user identifier.
func NewUserID() UserID {
	return UserID(uuid.New())
}

// NewAttachmentID generates a fresh attachment identifier.
func NewAttachmentID() AttachmentID {
	return AttachmentID(uuid.New())
}

// ParseUserID validates and parses a user id from external input.
func ParseUserID(s string) (UserID, error) {
	parsed, err := parseUUID(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(parsed), nil
}

// ParseAttachmentID validates and parses an attachment id from external input.
func ParseAttachmentID(s string) (AttachmentID, error) {
	parsed, err := parseUUID(s)
	if err != nil {
		return AttachmentID{}, err
	}
	return AttachmentID(parsed), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	if len(s) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is too long")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid id format")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return parsed, nil
}

func (u UserID) String() string       { return uuid.UUID(u).String() }
func (u UserID) IsNil() bool          { return uuid.UUID(u) == uuid.Nil }
func (a AttachmentID) String() string { return uuid.UUID(a).String() }
func (a AttachmentID) IsNil() bool    { return uuid.UUID(a) == uuid.Nil }

// Text marshaling keeps the UUID-backed ids as canonical strings in JSON
// bodies and JSONB columns.

func (u UserID) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *UserID) UnmarshalText(data []byte) error {
	parsed, err := uuid.Parse(string(data))
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid user id format")
	}
	*u = UserID(parsed)
	return nil
}

func (a AttachmentID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *AttachmentID) UnmarshalText(data []byte) error {
	parsed, err := uuid.Parse(string(data))
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid attachment id format")
	}
	*a = AttachmentID(parsed)
	return nil
}
