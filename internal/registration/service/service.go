package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	regmetrics "regdesk/internal/registration/metrics"
	"regdesk/internal/registration/models"
	id "regdesk/pkg/domain"
	dErrors "regdesk/pkg/domain-errors"
	"regdesk/pkg/platform/audit"
	"regdesk/pkg/platform/sentinel"
)

// Store is the persistence contract the service depends on. It matches
// internal/registration/store.Store; redeclared here so the service package
// owns what it needs.
type Store interface {
	Create(ctx context.Context, reg *models.Registration) error
	GetByID(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	List(ctx context.Context) ([]*models.Registration, error)
	Execute(ctx context.Context, regID id.RegistrationID,
		validate func(*models.Registration) error,
		mutate func(*models.Registration) error,
	) (*models.Registration, error)
	Delete(ctx context.Context, regID id.RegistrationID) error
}

// BlobStore stores attachment bytes.
type BlobStore interface {
	Put(ctx context.Context, path, contentType string, body io.Reader, size int64) (string, error)
	Delete(ctx context.Context, path string) error
}

// AuditPublisher records the compliance trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates the registration workflow: creation, company data,
// approval gates, step transitions, and document exchange.
type Service struct {
	registrations Store
	blobs         BlobStore
	logger        *slog.Logger
	publisher     AuditPublisher
	metrics       *regmetrics.Metrics
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

func WithMetrics(m *regmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithBlobStore(blobs BlobStore) Option {
	return func(s *Service) {
		s.blobs = blobs
	}
}

// New constructs a Service.
func New(registrations Store, opts ...Option) *Service {
	s := &Service{
		registrations: registrations,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// wrapRegErr translates store sentinels into coded domain errors. Coded
// errors pass through untouched so workflow rejections keep their codes.
func wrapRegErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "registration not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "registration already exists")
	default:
		var domainErr *dErrors.Error
		if errors.As(err, &domainErr) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "registration store failure")
	}
}

func requireRegistrationID(regID id.RegistrationID) error {
	if regID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "registration id is required")
	}
	return nil
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

func (s *Service) rejection(err error) {
	if s.metrics != nil && err != nil {
		s.metrics.TransitionRejected.WithLabelValues(string(dErrors.CodeOf(err))).Inc()
	}
}
