package handler

import (
	"strings"

	"regdesk/internal/registration/models"
	"regdesk/internal/registration/service"
	dErrors "regdesk/pkg/domain-errors"
)

// CreateRegistrationRequest is the step-1 submission body.
type CreateRegistrationRequest struct {
	CompanyNameEN    string `json:"companyNameEn"`
	CompanyNameLocal string `json:"companyNameLocal"`
	ContactName      string `json:"contactName"`
	ContactEmail     string `json:"contactEmail"`
	ContactPhone     string `json:"contactPhone"`
	PackageID        string `json:"packageId"`
	PaymentMethod    string `json:"paymentMethod"`
}

func (r *CreateRegistrationRequest) Validate() error {
	if strings.TrimSpace(r.CompanyNameEN) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "companyNameEn is required")
	}
	if strings.TrimSpace(r.ContactName) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "contactName is required")
	}
	if strings.TrimSpace(r.ContactEmail) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "contactEmail is required")
	}
	return nil
}

func (r *CreateRegistrationRequest) toInput() service.NewRegistrationInput {
	return service.NewRegistrationInput{
		CompanyNameEN:    r.CompanyNameEN,
		CompanyNameLocal: r.CompanyNameLocal,
		ContactName:      r.ContactName,
		ContactEmail:     r.ContactEmail,
		ContactPhone:     r.ContactPhone,
		PackageID:        r.PackageID,
		PaymentMethod:    r.PaymentMethod,
	}
}

// PatchRequest is the presence-aware partial update body.
type PatchRequest struct {
	service.Patch
}

func (r *PatchRequest) Validate() error {
	if r.IsEmpty() {
		return dErrors.New(dErrors.CodeBadRequest, "update body is empty")
	}
	return nil
}

// ApproveRequest names the gate an admin is raising.
type ApproveRequest struct {
	Gate string `json:"gate"`
}

func (r *ApproveRequest) Validate() error {
	if _, err := models.ParseGate(r.Gate); err != nil {
		return err
	}
	return nil
}

func (r *ApproveRequest) ParsedGate() models.Gate {
	gate, _ := models.ParseGate(r.Gate)
	return gate
}

// SlotDocumentRequest carries attachment metadata produced by the upload
// endpoint, bound for one document slot.
type SlotDocumentRequest struct {
	models.DocumentAttachment
}

func (r *SlotDocumentRequest) Validate() error {
	return r.DocumentAttachment.Validate()
}

// CustomerDocumentsRequest is the partial signed bundle for the deep-merge
// endpoint.
type CustomerDocumentsRequest struct {
	models.CustomerDocuments
}

func (r *CustomerDocumentsRequest) Validate() error {
	if r.IsEmpty() {
		return dErrors.New(dErrors.CodeBadRequest, "customer document bundle is empty")
	}
	return nil
}
