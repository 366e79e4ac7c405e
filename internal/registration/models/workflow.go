package models

import (
	"fmt"
	"time"

	dErrors "regdesk/pkg/domain-errors"
)

// Step is the customer-facing position in the incorporation workflow.
type Step string

const (
	StepContactDetails Step = "contact-details"
	StepCompanyDetails Step = "company-details"
	StepDocumentation  Step = "documentation"
	StepIncorporate    Step = "incorporate"
)

// ParseStep validates a wire-format step name.
func ParseStep(s string) (Step, error) {
	switch Step(s) {
	case StepContactDetails, StepCompanyDetails, StepDocumentation, StepIncorporate:
		return Step(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown step: %q", s))
	}
}

// IsValid reports whether the step is one of the canonical values.
func (s Step) IsValid() bool {
	_, err := ParseStep(string(s))
	return err == nil
}

func (s Step) String() string { return string(s) }

// Status is the processing state shown alongside the current step.
type Status string

const (
	StatusPaymentProcessing       Status = "payment-processing"
	StatusDocumentationProcessing Status = "documentation-processing"
	StatusDocumentsPublished      Status = "documents-published"
	StatusIncorporationProcessing Status = "incorporation-processing"
	StatusCompleted               Status = "completed"
)

// ParseStatus validates a wire-format status name.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPaymentProcessing, StatusDocumentationProcessing, StatusDocumentsPublished,
		StatusIncorporationProcessing, StatusCompleted:
		return Status(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown status: %q", s))
	}
}

// IsValid reports whether the status is one of the canonical values.
func (s Status) IsValid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

func (s Status) String() string { return string(s) }

// Gate names the approval flags an admin (or, for acknowledgement, the
// customer) can raise. Gates are sticky: once granted they stay granted.
type Gate string

const (
	GatePaymentApproved   Gate = "paymentApproved"
	GateDetailsApproved   Gate = "detailsApproved"
	GateDocumentsApproved Gate = "documentsApproved"
)

// ParseGate validates a wire-format gate name.
func ParseGate(s string) (Gate, error) {
	switch Gate(s) {
	case GatePaymentApproved, GateDetailsApproved, GateDocumentsApproved:
		return Gate(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown approval gate: %q", s))
	}
}

// transition describes one forward edge of the workflow. ok inspects only
// the aggregate and reports which precondition is missing, if any.
type transition struct {
	nextStep   Step
	nextStatus Status
	ok         func(r *Registration) error
}

// transitions is the canonical forward edge per step. The documentation
// step accepts either of its two statuses; every other step has exactly one
// status while it is current, enforced by the apply methods below.
var transitions = map[Step]transition{
	StepContactDetails: {
		nextStep:   StepCompanyDetails,
		nextStatus: StatusDocumentationProcessing,
		ok: func(r *Registration) error {
			if !r.PaymentApproved {
				return dErrors.New(dErrors.CodePreconditionNotMet, "payment has not been approved")
			}
			return nil
		},
	},
	StepCompanyDetails: {
		nextStep:   StepDocumentation,
		nextStatus: StatusDocumentationProcessing,
		ok: func(r *Registration) error {
			if !r.DetailsApproved {
				return dErrors.New(dErrors.CodePreconditionNotMet, "company details have not been approved")
			}
			return nil
		},
	},
	StepDocumentation: {
		nextStep:   StepIncorporate,
		nextStatus: StatusIncorporationProcessing,
		ok: func(r *Registration) error {
			if !r.DocumentsApproved {
				return dErrors.New(dErrors.CodePreconditionNotMet, "documents have not been approved")
			}
			if !r.DocumentsAcknowledged {
				return dErrors.New(dErrors.CodePreconditionNotMet, "customer has not acknowledged the published documents")
			}
			return nil
		},
	},
	StepIncorporate: {
		nextStep:   StepIncorporate,
		nextStatus: StatusCompleted,
		ok: func(r *Registration) error {
			if r.IncorporationCertificate == nil {
				return dErrors.New(dErrors.CodePreconditionNotMet, "incorporation certificate has not been attached")
			}
			return nil
		},
	},
}

// CanAdvance reports whether the registration may take its forward edge.
// A nil return means ApplyAdvance will succeed.
func (r *Registration) CanAdvance() error {
	if r.CurrentStep == StepIncorporate && r.Status == StatusCompleted {
		return dErrors.New(dErrors.CodeInvalidState, "registration is already completed")
	}
	t, found := transitions[r.CurrentStep]
	if !found {
		return dErrors.New(dErrors.CodeInvalidState, fmt.Sprintf("no transition from step %q", r.CurrentStep))
	}
	return t.ok(r)
}

// ApplyAdvance moves the registration along its forward edge without
// re-checking preconditions. Callers must call CanAdvance first.
func (r *Registration) ApplyAdvance(now time.Time) {
	t := transitions[r.CurrentStep]
	r.CurrentStep = t.nextStep
	r.Status = t.nextStatus
	r.Touch(now)
}

// Advance checks and applies the forward edge in one call.
func (r *Registration) Advance(now time.Time) error {
	if err := r.CanAdvance(); err != nil {
		return err
	}
	r.ApplyAdvance(now)
	return nil
}

// CanPublishDocuments reports whether the prepared document set may be
// released to the customer. Publication is only meaningful while the
// registration sits in the documentation step awaiting review.
func (r *Registration) CanPublishDocuments() error {
	if r.DocumentsPublished {
		return dErrors.New(dErrors.CodeInvalidState, "documents are already published")
	}
	if r.CurrentStep != StepDocumentation || r.Status != StatusDocumentationProcessing {
		return dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("documents cannot be published from step %q status %q", r.CurrentStep, r.Status))
	}
	return nil
}

// ApplyPublishDocuments flips the published flag and records when the
// customer gained visibility. Callers must call CanPublishDocuments first.
func (r *Registration) ApplyPublishDocuments(now time.Time) {
	r.DocumentsPublished = true
	r.Status = StatusDocumentsPublished
	t := now
	r.DocumentsPublishedAt = &t
	r.Touch(now)
}

// PublishDocuments checks and applies publication in one call.
func (r *Registration) PublishDocuments(now time.Time) error {
	if err := r.CanPublishDocuments(); err != nil {
		return err
	}
	r.ApplyPublishDocuments(now)
	return nil
}

// CanAcknowledgeDocuments reports whether the customer may confirm receipt
// of the published set. Acknowledging before publication is a precondition
// failure, not an invalid state: the registration itself is healthy.
func (r *Registration) CanAcknowledgeDocuments() error {
	if !r.DocumentsPublished {
		return dErrors.New(dErrors.CodePreconditionNotMet, "documents have not been published yet")
	}
	if r.DocumentsAcknowledged {
		return dErrors.New(dErrors.CodeInvalidState, "documents are already acknowledged")
	}
	return nil
}

// ApplyAcknowledgeDocuments records the customer's confirmation. Callers
// must call CanAcknowledgeDocuments first.
func (r *Registration) ApplyAcknowledgeDocuments(now time.Time) {
	r.DocumentsAcknowledged = true
	r.Touch(now)
}

// AcknowledgeDocuments checks and applies acknowledgement in one call.
func (r *Registration) AcknowledgeDocuments(now time.Time) error {
	if err := r.CanAcknowledgeDocuments(); err != nil {
		return err
	}
	r.ApplyAcknowledgeDocuments(now)
	return nil
}

// ApproveGate raises the named approval flag. Granting a gate that is
// already up is a no-op so repeated admin clicks stay safe.
func (r *Registration) ApproveGate(gate Gate, now time.Time) error {
	switch gate {
	case GatePaymentApproved:
		if r.PaymentApproved {
			return nil
		}
		r.PaymentApproved = true
	case GateDetailsApproved:
		if r.DetailsApproved {
			return nil
		}
		r.DetailsApproved = true
	case GateDocumentsApproved:
		if r.DocumentsApproved {
			return nil
		}
		r.DocumentsApproved = true
	default:
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown approval gate: %q", gate))
	}
	r.Touch(now)
	return nil
}
