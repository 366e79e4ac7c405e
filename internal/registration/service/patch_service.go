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

// Patch is a presence-aware partial update. Nil fields are untouched; set
// fields apply with their slot semantics (single slots replace, positional
// lists merge non-nil entries, keyed maps merge key by key, the customer
// bundle deep-merges). A patch can therefore never null out a sibling slot.
type Patch struct {
	CompanyNameEN    *string `json:"companyNameEn,omitempty"`
	CompanyNameLocal *string `json:"companyNameLocal,omitempty"`
	ContactName      *string `json:"contactName,omitempty"`
	ContactEmail     *string `json:"contactEmail,omitempty"`
	ContactPhone     *string `json:"contactPhone,omitempty"`
	PackageID        *string `json:"packageId,omitempty"`
	PaymentMethod    *string `json:"paymentMethod,omitempty"`

	Company *models.CompanyDetails `json:"company,omitempty"`

	PaymentReceipt           *models.DocumentAttachment `json:"paymentReceipt,omitempty"`
	BalancePaymentReceipt    *models.DocumentAttachment `json:"balancePaymentReceipt,omitempty"`
	Form1                    *models.DocumentAttachment `json:"form1,omitempty"`
	LetterOfEngagement       *models.DocumentAttachment `json:"letterOfEngagement,omitempty"`
	AOA                      *models.DocumentAttachment `json:"aoa,omitempty"`
	AddressProof             *models.DocumentAttachment `json:"addressProof,omitempty"`
	IncorporationCertificate *models.DocumentAttachment `json:"incorporationCertificate,omitempty"`

	Form18                    []*models.DocumentAttachment          `json:"form18,omitempty"`
	Step3AdditionalDocs       []*models.DocumentAttachment          `json:"step3AdditionalDoc,omitempty"`
	Step3SignedAdditionalDocs map[string]*models.DocumentAttachment `json:"step3SignedAdditionalDoc,omitempty"`
	Step4AdditionalDocs       []*models.DocumentAttachment          `json:"step4FinalAdditionalDoc,omitempty"`

	CustomerDocuments *models.CustomerDocuments `json:"customerDocuments,omitempty"`
}

// IsEmpty reports whether the patch carries nothing to apply.
func (p Patch) IsEmpty() bool {
	return p.CompanyNameEN == nil && p.CompanyNameLocal == nil && p.ContactName == nil &&
		p.ContactEmail == nil && p.ContactPhone == nil && p.PackageID == nil && p.PaymentMethod == nil &&
		p.Company == nil &&
		p.PaymentReceipt == nil && p.BalancePaymentReceipt == nil && p.Form1 == nil &&
		p.LetterOfEngagement == nil && p.AOA == nil && p.AddressProof == nil &&
		p.IncorporationCertificate == nil &&
		len(p.Form18) == 0 && len(p.Step3AdditionalDocs) == 0 &&
		len(p.Step3SignedAdditionalDocs) == 0 && len(p.Step4AdditionalDocs) == 0 &&
		p.CustomerDocuments == nil
}

// PatchRegistration applies a partial update in one serialized
// read-modify-write. Blobs replaced by single-slot writes are deleted
// best-effort after commit.
func (s *Service) PatchRegistration(ctx context.Context, regID id.RegistrationID, patch Patch) (*models.Registration, error) {
	if err := requireRegistrationID(regID); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "update body is empty")
	}
	if patch.Company != nil {
		if err := patch.Company.Validate(); err != nil {
			return nil, err
		}
	}

	now := requestcontext.Now(ctx)
	var replaced []*models.DocumentAttachment
	start := time.Now()
	reg, err := s.registrations.Execute(ctx, regID, nil,
		func(r *models.Registration) error {
			var applyErr error
			replaced, applyErr = applyPatch(r, patch, now)
			return applyErr
		},
	)
	if err != nil {
		s.rejection(err)
		return nil, wrapRegErr(err)
	}
	s.observeUpdate(start)

	for _, doc := range replaced {
		s.deleteBlob(ctx, doc.StoragePath)
	}

	if err := s.emit(ctx, s.event(ctx, regID, audit.EventCompanyDetailsUpdated, func(e *audit.Event) {
		e.Detail = "partial update"
	})); err != nil {
		return nil, err
	}
	return reg, nil
}

func applyPatch(r *models.Registration, patch Patch, now time.Time) ([]*models.DocumentAttachment, error) {
	setStr := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setStr(&r.CompanyNameEN, patch.CompanyNameEN)
	setStr(&r.CompanyNameLocal, patch.CompanyNameLocal)
	setStr(&r.ContactName, patch.ContactName)
	setStr(&r.ContactEmail, patch.ContactEmail)
	setStr(&r.ContactPhone, patch.ContactPhone)
	setStr(&r.PackageID, patch.PackageID)
	setStr(&r.PaymentMethod, patch.PaymentMethod)

	if patch.Company != nil {
		r.Company = *patch.Company
	}

	var replaced []*models.DocumentAttachment
	singleSlots := []struct {
		name models.SlotName
		doc  *models.DocumentAttachment
	}{
		{models.SlotPaymentReceipt, patch.PaymentReceipt},
		{models.SlotBalancePaymentReceipt, patch.BalancePaymentReceipt},
		{models.SlotForm1, patch.Form1},
		{models.SlotLetterOfEngagement, patch.LetterOfEngagement},
		{models.SlotAOA, patch.AOA},
		{models.SlotAddressProof, patch.AddressProof},
		{models.SlotIncorporationCertificate, patch.IncorporationCertificate},
	}
	for _, slot := range singleSlots {
		if slot.doc == nil {
			continue
		}
		prev, err := r.SetSingleSlot(slot.name, slot.doc, now)
		if err != nil {
			return nil, err
		}
		if prev != nil && prev.StoragePath != slot.doc.StoragePath {
			replaced = append(replaced, prev)
		}
	}

	for i, doc := range patch.Form18 {
		if doc == nil {
			continue
		}
		idx := i
		prev, err := r.SetIndexedSlot(models.SlotForm18, idx, doc, now)
		if err != nil {
			return nil, err
		}
		if prev != nil && prev.StoragePath != doc.StoragePath {
			replaced = append(replaced, prev)
		}
	}

	for _, doc := range patch.Step3AdditionalDocs {
		if doc == nil {
			continue
		}
		if err := r.AppendToList(models.SlotStep3AdditionalDoc, doc, now); err != nil {
			return nil, err
		}
	}
	for _, doc := range patch.Step4AdditionalDocs {
		if doc == nil {
			continue
		}
		if err := r.AppendToList(models.SlotStep4FinalAdditionalDoc, doc, now); err != nil {
			return nil, err
		}
	}
	for title, doc := range patch.Step3SignedAdditionalDocs {
		if doc == nil {
			continue
		}
		if _, err := r.SetKeyedSlot(models.SlotStep3SignedAdditionalDoc, title, doc, now); err != nil {
			return nil, err
		}
	}

	if patch.CustomerDocuments != nil {
		if err := r.MergeCustomerDocuments(*patch.CustomerDocuments, now); err != nil {
			return nil, err
		}
	}

	r.Touch(now)
	return replaced, nil
}
