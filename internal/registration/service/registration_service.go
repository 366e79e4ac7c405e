package service

import (
	"context"
	"time"

	"regdesk/internal/registration/models"
	id "regdesk/pkg/domain"
	dErrors "regdesk/pkg/domain-errors"
	"regdesk/pkg/platform/audit"
	"regdesk/pkg/requestcontext"
)

// NewRegistrationInput is the step-1 customer submission.
type NewRegistrationInput struct {
	CompanyNameEN    string
	CompanyNameLocal string
	ContactName      string
	ContactEmail     string
	ContactPhone     string
	PackageID        string
	PaymentMethod    string
}

// CreateRegistration starts a new incorporation application at
// contact-details / payment-processing.
func (s *Service) CreateRegistration(ctx context.Context, in NewRegistrationInput) (*models.Registration, error) {
	now := requestcontext.Now(ctx)
	reg, err := models.NewRegistration(id.NewRegistrationID(now), in.CompanyNameEN, in.ContactName, in.ContactEmail, now)
	if err != nil {
		return nil, err
	}
	reg.CompanyNameLocal = in.CompanyNameLocal
	reg.ContactPhone = in.ContactPhone
	reg.PackageID = in.PackageID
	reg.PaymentMethod = in.PaymentMethod

	if err := s.registrations.Create(ctx, reg); err != nil {
		return nil, wrapRegErr(err)
	}
	if err := s.emit(ctx, s.event(ctx, reg.ID, audit.EventRegistrationCreated, func(e *audit.Event) {
		e.Email = reg.ContactEmail
		e.Detail = reg.CompanyNameEN
	})); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RegistrationsCreated.Inc()
	}
	return reg, nil
}

// GetRegistration loads one registration. The persisted row is
// authoritative for workflow position; clients re-render from this, never
// from their own cached step.
func (s *Service) GetRegistration(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	if err := requireRegistrationID(regID); err != nil {
		return nil, err
	}
	reg, err := s.registrations.GetByID(ctx, regID)
	if err != nil {
		return nil, wrapRegErr(err)
	}
	return reg, nil
}

// ListRegistrations returns all applications, newest first.
func (s *Service) ListRegistrations(ctx context.Context) ([]*models.Registration, error) {
	regs, err := s.registrations.List(ctx)
	if err != nil {
		return nil, wrapRegErr(err)
	}
	return regs, nil
}

// UpdateCompanyDetails stores the customer's step-2 company data. Fields
// are replaced as a block; the company form is always submitted whole.
func (s *Service) UpdateCompanyDetails(ctx context.Context, regID id.RegistrationID, details models.CompanyDetails) (*models.Registration, error) {
	if err := requireRegistrationID(regID); err != nil {
		return nil, err
	}
	if err := details.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	start := time.Now()
	reg, err := s.registrations.Execute(ctx, regID, nil,
		func(r *models.Registration) error {
			r.Company = details
			r.Touch(now)
			return nil
		},
	)
	if err != nil {
		return nil, wrapRegErr(err)
	}
	s.observeUpdate(start)

	if err := s.emit(ctx, s.event(ctx, regID, audit.EventCompanyDetailsUpdated, nil)); err != nil {
		return nil, err
	}
	return reg, nil
}

// UpdateContactDetails amends the step-1 contact fields.
func (s *Service) UpdateContactDetails(ctx context.Context, regID id.RegistrationID, in NewRegistrationInput) (*models.Registration, error) {
	if err := requireRegistrationID(regID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	reg, err := s.registrations.Execute(ctx, regID, nil,
		func(r *models.Registration) error {
			if in.CompanyNameEN != "" {
				r.CompanyNameEN = in.CompanyNameEN
			}
			if in.CompanyNameLocal != "" {
				r.CompanyNameLocal = in.CompanyNameLocal
			}
			if in.ContactName != "" {
				r.ContactName = in.ContactName
			}
			if in.ContactEmail != "" {
				r.ContactEmail = in.ContactEmail
			}
			if in.ContactPhone != "" {
				r.ContactPhone = in.ContactPhone
			}
			if in.PackageID != "" {
				r.PackageID = in.PackageID
			}
			if in.PaymentMethod != "" {
				r.PaymentMethod = in.PaymentMethod
			}
			r.Touch(now)
			return nil
		},
	)
	if err != nil {
		return nil, wrapRegErr(err)
	}
	return reg, nil
}

// ApproveGate raises one approval flag. Repeated approvals are no-ops.
func (s *Service) ApproveGate(ctx context.Context, regID id.RegistrationID, gate models.Gate) (*models.Registration, error) {
	if err := requireRegistrationID(regID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	reg, err := s.registrations.Execute(ctx, regID, nil,
		func(r *models.Registration) error {
			return r.ApproveGate(gate, now)
		},
	)
	if err != nil {
		s.rejection(err)
		return nil, wrapRegErr(err)
	}

	if err := s.emit(ctx, s.event(ctx, regID, audit.EventGateApproved, func(e *audit.Event) {
		e.Gate = string(gate)
	})); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.GateApproved.WithLabelValues(string(gate)).Inc()
	}
	return reg, nil
}

// Advance moves the registration along its forward edge. The validate and
// mutate callbacks run under the store's row lock so a concurrent gate
// change cannot slip between check and transition.
func (s *Service) Advance(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	if err := requireRegistrationID(regID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	reg, err := s.registrations.Execute(ctx, regID,
		func(r *models.Registration) error {
			return r.CanAdvance()
		},
		func(r *models.Registration) error {
			r.ApplyAdvance(now)
			return nil
		},
	)
	if err != nil {
		s.rejection(err)
		return nil, wrapRegErr(err)
	}

	action := audit.EventStepAdvanced
	if reg.Status == models.StatusCompleted {
		action = audit.EventRegistrationCompleted
		if s.metrics != nil {
			s.metrics.RegistrationsCompleted.Inc()
		}
	}
	if err := s.emit(ctx, s.event(ctx, regID, action, func(e *audit.Event) {
		e.Detail = string(reg.CurrentStep)
	})); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.StepAdvanced.WithLabelValues(string(reg.CurrentStep)).Inc()
	}
	return reg, nil
}

// PublishDocuments releases the prepared document set to the customer.
func (s *Service) PublishDocuments(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	if err := requireRegistrationID(regID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	reg, err := s.registrations.Execute(ctx, regID,
		func(r *models.Registration) error {
			return r.CanPublishDocuments()
		},
		func(r *models.Registration) error {
			r.ApplyPublishDocuments(now)
			return nil
		},
	)
	if err != nil {
		s.rejection(err)
		return nil, wrapRegErr(err)
	}

	if err := s.emit(ctx, s.event(ctx, regID, audit.EventDocumentsPublished, nil)); err != nil {
		return nil, err
	}
	return reg, nil
}

// AcknowledgeDocuments records the customer's confirmation of the
// published set.
func (s *Service) AcknowledgeDocuments(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	if err := requireRegistrationID(regID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	reg, err := s.registrations.Execute(ctx, regID,
		func(r *models.Registration) error {
			return r.CanAcknowledgeDocuments()
		},
		func(r *models.Registration) error {
			r.ApplyAcknowledgeDocuments(now)
			return nil
		},
	)
	if err != nil {
		s.rejection(err)
		return nil, wrapRegErr(err)
	}

	if err := s.emit(ctx, s.event(ctx, regID, audit.EventDocumentsAcknowledged, nil)); err != nil {
		return nil, err
	}
	return reg, nil
}

// MergeCustomerDocuments folds a partial signed bundle into the stored
// one. Absent fields never disturb siblings.
func (s *Service) MergeCustomerDocuments(ctx context.Context, regID id.RegistrationID, in models.CustomerDocuments) (*models.Registration, error) {
	if err := requireRegistrationID(regID); err != nil {
		return nil, err
	}
	if in.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "customer document bundle is empty")
	}

	now := requestcontext.Now(ctx)
	start := time.Now()
	reg, err := s.registrations.Execute(ctx, regID, nil,
		func(r *models.Registration) error {
			return r.MergeCustomerDocuments(in, now)
		},
	)
	if err != nil {
		s.rejection(err)
		return nil, wrapRegErr(err)
	}
	s.observeUpdate(start)

	if err := s.emit(ctx, s.event(ctx, regID, audit.EventCustomerDocumentsMerge, nil)); err != nil {
		return nil, err
	}
	return reg, nil
}

// DeleteRegistration removes an application and is meant for test cleanup;
// production flows terminate at completed instead.
func (s *Service) DeleteRegistration(ctx context.Context, regID id.RegistrationID) error {
	if err := requireRegistrationID(regID); err != nil {
		return err
	}
	if err := s.registrations.Delete(ctx, regID); err != nil {
		return wrapRegErr(err)
	}
	return s.emit(ctx, s.event(ctx, regID, audit.EventRegistrationDeleted, nil))
}

// Summary aggregates the dashboard counts.
type Summary struct {
	Total    int                   `json:"total"`
	ByStep   map[models.Step]int   `json:"byStep"`
	ByStatus map[models.Status]int `json:"byStatus"`
	Awaiting int                   `json:"awaitingCustomerAction"`
}

// Summarize returns per-step and per-status counts across all
// registrations. Awaiting counts applications whose published documents
// still lack the customer's acknowledgement.
func (s *Service) Summarize(ctx context.Context) (*Summary, error) {
	regs, err := s.registrations.List(ctx)
	if err != nil {
		return nil, wrapRegErr(err)
	}
	sum := &Summary{
		ByStep:   make(map[models.Step]int),
		ByStatus: make(map[models.Status]int),
	}
	for _, reg := range regs {
		sum.Total++
		sum.ByStep[reg.CurrentStep]++
		sum.ByStatus[reg.Status]++
		if reg.DocumentsPublished && !reg.DocumentsAcknowledged {
			sum.Awaiting++
		}
	}
	return sum, nil
}

func (s *Service) event(ctx context.Context, regID id.RegistrationID, action audit.AuditEvent, fill func(*audit.Event)) audit.Event {
	e := audit.Event{
		Timestamp:      requestcontext.Now(ctx),
		RegistrationID: regID,
		Action:         string(action),
		ActorID:        requestcontext.UserID(ctx),
		ActorRole:      string(requestcontext.Role(ctx)),
		RequestID:      requestcontext.RequestID(ctx),
	}
	if fill != nil {
		fill(&e)
	}
	return e
}

func (s *Service) observeUpdate(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveUpdate(start)
	}
}
