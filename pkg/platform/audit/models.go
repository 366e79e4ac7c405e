package audit

import (
	"time"

	id "regdesk/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// Incorporation paperwork falls under long statutory retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and
	// operational visibility.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category       EventCategory
	Timestamp      time.Time
	RegistrationID id.RegistrationID
	Action         string
	// ActorID is the authenticated user who performed the action.
	ActorID id.UserID
	// ActorRole distinguishes admin actions from customer actions on the
	// same registration.
	ActorRole string
	// Slot names the document slot an attachment event touched.
	Slot string
	// Gate names the approval flag a gate event raised.
	Gate string
	// Detail carries a short human-readable qualifier (attachment name,
	// step reached, rejection reason).
	Detail string
	// RequestID is the correlation id from the HTTP request context.
	RequestID string
	// Email is set on user lifecycle events.
	Email string
}

type AuditEvent string

const (
	// Registration workflow events
	EventRegistrationCreated   AuditEvent = "registration_created"
	EventRegistrationDeleted   AuditEvent = "registration_deleted"
	EventCompanyDetailsUpdated AuditEvent = "company_details_updated"
	EventGateApproved          AuditEvent = "gate_approved"
	EventStepAdvanced          AuditEvent = "step_advanced"
	EventDocumentsPublished    AuditEvent = "documents_published"
	EventDocumentsAcknowledged AuditEvent = "documents_acknowledged"
	EventRegistrationCompleted AuditEvent = "registration_completed"

	// Document slot events
	EventDocumentAttached       AuditEvent = "document_attached"
	EventDocumentRemoved        AuditEvent = "document_removed"
	EventCustomerDocumentsMerge AuditEvent = "customer_documents_merged"

	// User events
	EventUserCreated AuditEvent = "user_created"
	EventAuthFailed  AuditEvent = "auth_failed"
	EventUserLogin   AuditEvent = "user_login"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	// Compliance events - the incorporation paper trail
	EventRegistrationCreated:    CategoryCompliance,
	EventRegistrationDeleted:    CategoryCompliance,
	EventGateApproved:           CategoryCompliance,
	EventStepAdvanced:           CategoryCompliance,
	EventDocumentsPublished:     CategoryCompliance,
	EventDocumentsAcknowledged:  CategoryCompliance,
	EventRegistrationCompleted:  CategoryCompliance,
	EventDocumentAttached:       CategoryCompliance,
	EventDocumentRemoved:        CategoryCompliance,
	EventCustomerDocumentsMerge: CategoryCompliance,
	EventUserCreated:            CategoryCompliance,

	// Security events
	EventAuthFailed: CategorySecurity,

	// Operations events - routine activity, can be sampled
	EventCompanyDetailsUpdated: CategoryOperations,
	EventUserLogin:             CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
