package models

import (
	"strings"
	"time"

	id "regdesk/pkg/domain"
	dErrors "regdesk/pkg/domain-errors"
)

// Registration is the aggregate root for one company-incorporation
// application. It carries the customer's contact and company data, the
// workflow position, the approval gates, and every document slot exchanged
// between admin and customer.
//
// Invariants:
//   - (CurrentStep, Status) is always one of the canonical pairs in the
//     transition table; the pair is written together, never one half alone
//   - document slots are independently optional; setting one slot never
//     clears a sibling slot (additive update semantics)
//   - Form18 is aligned to Directors by position; gaps stay as nil
//     placeholders and indices are never compacted
//   - Step3SignedAdditionalDocs keys are a subset of the titles present in
//     Step3AdditionalDocs at signing time
//   - CreatedAt is immutable; UpdatedAt bumps on every mutation
type Registration struct {
	ID id.RegistrationID `json:"id"`

	// Contact / selection fields from the step-1 submission.
	CompanyNameEN    string `json:"companyNameEn"`
	CompanyNameLocal string `json:"companyNameLocal,omitempty"`
	ContactName      string `json:"contactName"`
	ContactEmail     string `json:"contactEmail"`
	ContactPhone     string `json:"contactPhone,omitempty"`
	PackageID        string `json:"packageId,omitempty"`
	PaymentMethod    string `json:"paymentMethod,omitempty"`

	CurrentStep Step   `json:"currentStep"`
	Status      Status `json:"status"`

	PaymentApproved       bool `json:"paymentApproved"`
	DetailsApproved       bool `json:"detailsApproved"`
	DocumentsApproved     bool `json:"documentsApproved"`
	DocumentsPublished    bool `json:"documentsPublished"`
	DocumentsAcknowledged bool `json:"documentsAcknowledged"`

	Company CompanyDetails `json:"company"`

	// Single-attachment slots.
	PaymentReceipt           *DocumentAttachment `json:"paymentReceipt,omitempty"`
	BalancePaymentReceipt    *DocumentAttachment `json:"balancePaymentReceipt,omitempty"`
	Form1                    *DocumentAttachment `json:"form1,omitempty"`
	LetterOfEngagement       *DocumentAttachment `json:"letterOfEngagement,omitempty"`
	AOA                      *DocumentAttachment `json:"aoa,omitempty"`
	AddressProof             *DocumentAttachment `json:"addressProof,omitempty"`
	IncorporationCertificate *DocumentAttachment `json:"incorporationCertificate,omitempty"`

	// Form18 is positionally keyed: index i belongs to Directors[i].
	Form18 []*DocumentAttachment `json:"form18,omitempty"`

	// Admin-authored additional documents (append-only, title-carrying) and
	// the customer-signed counterparts keyed by the admin document's title.
	Step3AdditionalDocs       []*DocumentAttachment          `json:"step3AdditionalDoc,omitempty"`
	Step3SignedAdditionalDocs map[string]*DocumentAttachment `json:"step3SignedAdditionalDoc,omitempty"`

	// Step-4 additional documents are append-only like step 3; no customer
	// counterpart is required.
	Step4AdditionalDocs []*DocumentAttachment `json:"step4FinalAdditionalDoc,omitempty"`

	// CustomerDocuments is the customer's final signed bundle, merged
	// field-by-field so a partial upload never clobbers siblings.
	CustomerDocuments CustomerDocuments `json:"customerDocuments"`

	DocumentsPublishedAt *time.Time `json:"documentsPublishedAt,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// NewRegistration constructs a step-1 registration from a customer
// submission. The workflow starts at contact-details / payment-processing
// with every gate down.
func NewRegistration(regID id.RegistrationID, companyNameEN, contactName, contactEmail string, now time.Time) (*Registration, error) {
	companyNameEN = strings.TrimSpace(companyNameEN)
	contactName = strings.TrimSpace(contactName)
	contactEmail = strings.TrimSpace(contactEmail)

	if companyNameEN == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "company name cannot be empty")
	}
	if len(companyNameEN) > 256 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "company name must be 256 characters or less")
	}
	if contactName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "contact name cannot be empty")
	}
	if contactEmail == "" || !strings.Contains(contactEmail, "@") {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "a valid contact email is required")
	}

	return &Registration{
		ID:            regID,
		CompanyNameEN: companyNameEN,
		ContactName:   contactName,
		ContactEmail:  contactEmail,
		CurrentStep:   StepContactDetails,
		Status:        StatusPaymentProcessing,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Touch bumps UpdatedAt. Every mutation path calls it exactly once.
func (r *Registration) Touch(now time.Time) {
	r.UpdatedAt = now
}

// Clone returns a deep copy of the aggregate. The in-memory store and the
// slot operations rely on this so callers never share mutable state.
func (r *Registration) Clone() *Registration {
	if r == nil {
		return nil
	}
	dup := *r
	dup.Company = r.Company.clone()
	dup.PaymentReceipt = r.PaymentReceipt.Clone()
	dup.BalancePaymentReceipt = r.BalancePaymentReceipt.Clone()
	dup.Form1 = r.Form1.Clone()
	dup.LetterOfEngagement = r.LetterOfEngagement.Clone()
	dup.AOA = r.AOA.Clone()
	dup.AddressProof = r.AddressProof.Clone()
	dup.IncorporationCertificate = r.IncorporationCertificate.Clone()
	dup.Form18 = cloneAttachmentSlice(r.Form18)
	dup.Step3AdditionalDocs = cloneAttachmentSlice(r.Step3AdditionalDocs)
	dup.Step3SignedAdditionalDocs = cloneAttachmentMap(r.Step3SignedAdditionalDocs)
	dup.Step4AdditionalDocs = cloneAttachmentSlice(r.Step4AdditionalDocs)
	dup.CustomerDocuments = r.CustomerDocuments.clone()
	if r.DocumentsPublishedAt != nil {
		t := *r.DocumentsPublishedAt
		dup.DocumentsPublishedAt = &t
	}
	return &dup
}
