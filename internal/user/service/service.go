package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"regdesk/internal/user/metrics"
	"regdesk/internal/user/models"
	"regdesk/internal/user/store"
	id "regdesk/pkg/domain"
	dErrors "regdesk/pkg/domain-errors"
	"regdesk/pkg/platform/audit"
	"regdesk/pkg/platform/sentinel"
	"regdesk/pkg/requestcontext"
	"regdesk/pkg/secrets"
)

// TokenIssuer mints access tokens for authenticated users.
type TokenIssuer interface {
	GenerateAccessToken(userID uuid.UUID, role string, expiresIn time.Duration) (string, error)
}

// AuditPublisher records account events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

const accessTokenTTL = 12 * time.Hour

// Service manages dashboard accounts and login.
type Service struct {
	users     store.Store
	tokens    TokenIssuer
	logger    *slog.Logger
	publisher AuditPublisher
	metrics   *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a user Service.
func New(users store.Store, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{
		users:  users,
		tokens: tokens,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateUser registers an account. Duplicate emails conflict.
func (s *Service) CreateUser(ctx context.Context, email, name string, role id.Role, password string) (*models.User, error) {
	if len(password) < 8 {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	hash, err := secrets.Hash(password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	now := requestcontext.Now(ctx)
	user, err := models.NewUser(id.NewUserID(), email, name, role, hash, now)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	if err := s.emit(ctx, audit.Event{
		Timestamp: now,
		Action:    string(audit.EventUserCreated),
		ActorID:   requestcontext.UserID(ctx),
		ActorRole: string(requestcontext.Role(ctx)),
		RequestID: requestcontext.RequestID(ctx),
		Email:     user.Email,
	}); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.UsersCreated.Inc()
	}
	return user, nil
}

// Authenticate verifies a credential and issues an access token. Unknown
// email and wrong password return the same error so login probing learns
// nothing.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, string, error) {
	email = strings.TrimSpace(email)
	invalid := dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.emitAuthFailed(ctx, email)
			return nil, "", invalid
		}
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}

	if err := secrets.Verify(password, user.PasswordHash); err != nil {
		s.emitAuthFailed(ctx, email)
		return nil, "", invalid
	}

	token, err := s.tokens.GenerateAccessToken(uuid.UUID(user.ID), string(user.Role), accessTokenTTL)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	if err := s.emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Action:    string(audit.EventUserLogin),
		ActorID:   user.ID,
		ActorRole: string(user.Role),
		RequestID: requestcontext.RequestID(ctx),
		Email:     user.Email,
	}); err != nil {
		return nil, "", err
	}
	if s.metrics != nil {
		s.metrics.Logins.Inc()
	}
	return user, token, nil
}

// GetUser loads one account.
func (s *Service) GetUser(ctx context.Context, userID id.UserID) (*models.User, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "user id is required")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}
	return user, nil
}

// ListUsers returns all accounts ordered by email.
func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return users, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}

func (s *Service) emitAuthFailed(ctx context.Context, email string) {
	if s.metrics != nil {
		s.metrics.AuthFailures.Inc()
	}
	// Best-effort: a failed audit write must not mask the auth result.
	if s.publisher == nil {
		return
	}
	err := s.publisher.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Action:    string(audit.EventAuthFailed),
		RequestID: requestcontext.RequestID(ctx),
		Email:     strings.ToLower(email),
	})
	if err != nil {
		s.logger.Warn("failed to record auth failure", "error", err)
	}
}
