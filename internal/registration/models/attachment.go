package models

import (
	"time"

	id "regdesk/pkg/domain"
	dErrors "regdesk/pkg/domain-errors"
)

// DocumentAttachment is the metadata of one uploaded file. It is created when
// the blob store accepts an upload and is immutable afterwards: replacing a
// document means a new attachment plus deletion of the old storage path.
//
// Invariant: ID, URL, and StoragePath are populated together or not at all.
// A partially-populated attachment means the blob write and the metadata got
// out of sync and must be rejected before persistence.
type DocumentAttachment struct {
	ID          id.AttachmentID `json:"id"`
	Name        string          `json:"name"`
	MIMEType    string          `json:"mimeType"`
	SizeBytes   int64           `json:"sizeBytes"`
	URL         string          `json:"url"`
	StoragePath string          `json:"storagePath"`
	UploadedAt  time.Time       `json:"uploadedAt"`

	// Title is the human label admins give additional documents; it is the
	// join key between an admin template and the customer's signed copy.
	Title string `json:"title,omitempty"`

	SignedByCustomer bool       `json:"signedByCustomer,omitempty"`
	SubmittedAt      *time.Time `json:"submittedAt,omitempty"`
}

// Validate enforces the all-or-nothing population invariant.
func (a *DocumentAttachment) Validate() error {
	if a == nil {
		return nil
	}
	if a.ID.IsNil() || a.URL == "" || a.StoragePath == "" {
		return dErrors.New(dErrors.CodeInvariantViolation,
			"attachment id, url, and storage path must be populated together")
	}
	if a.SizeBytes < 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "attachment size cannot be negative")
	}
	return nil
}

// Clone returns a deep copy. Attachments are immutable by convention but the
// stores hand out copies so callers can never mutate shared state.
func (a *DocumentAttachment) Clone() *DocumentAttachment {
	if a == nil {
		return nil
	}
	dup := *a
	if a.SubmittedAt != nil {
		t := *a.SubmittedAt
		dup.SubmittedAt = &t
	}
	return &dup
}

func cloneAttachmentSlice(src []*DocumentAttachment) []*DocumentAttachment {
	if src == nil {
		return nil
	}
	out := make([]*DocumentAttachment, len(src))
	for i, a := range src {
		out[i] = a.Clone()
	}
	return out
}

func cloneAttachmentMap(src map[string]*DocumentAttachment) map[string]*DocumentAttachment {
	if src == nil {
		return nil
	}
	out := make(map[string]*DocumentAttachment, len(src))
	for k, a := range src {
		out[k] = a.Clone()
	}
	return out
}
