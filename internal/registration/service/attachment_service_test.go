package service_test

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"regdesk/internal/blob"
	"regdesk/internal/registration/models"
	"regdesk/internal/registration/service"
	"regdesk/internal/registration/store"
	id "regdesk/pkg/domain"
	dErrors "regdesk/pkg/domain-errors"
	"regdesk/pkg/requestcontext"
)

type AttachmentServiceSuite struct {
	suite.Suite
	svc   *service.Service
	blobs *blob.MemoryStore
	ctx   context.Context
	now   time.Time
	reg   *models.Registration
}

func (s *AttachmentServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	s.blobs = blob.NewMemory("")
	s.svc = service.New(store.NewMemory(),
		service.WithLogger(slog.Default()),
		service.WithBlobStore(s.blobs),
	)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	reg, err := s.svc.CreateRegistration(s.ctx, service.NewRegistrationInput{
		CompanyNameEN: "Acme Holdings Ltd",
		ContactName:   "Dana Berg",
		ContactEmail:  "dana@example.com",
	})
	s.Require().NoError(err)
	s.reg = reg
}

func TestAttachmentServiceSuite(t *testing.T) {
	suite.Run(t, new(AttachmentServiceSuite))
}

func (s *AttachmentServiceSuite) upload(filename, title string) *models.DocumentAttachment {
	body := strings.NewReader("%PDF-1.7 test document")
	doc, err := s.svc.Upload(s.ctx, service.UploadInput{
		Filename:    filename,
		ContentType: "application/pdf",
		Size:        int64(body.Len()),
		Body:        body,
		Title:       title,
	})
	s.Require().NoError(err)
	return doc
}

// TestUpload covers the first phase: bytes land in the blob store and the
// metadata comes back populated.
func (s *AttachmentServiceSuite) TestUpload() {
	s.Run("stores the blob and returns complete metadata", func() {
		doc := s.upload("payment receipt.pdf", "")
		s.False(doc.ID.IsNil())
		s.NotEmpty(doc.URL)
		s.Contains(doc.StoragePath, "uploads/")
		s.NotContains(doc.StoragePath, " ")
		s.Equal(1, s.blobs.Len())
	})

	s.Run("rejects a missing filename", func() {
		_, err := s.svc.Upload(s.ctx, service.UploadInput{
			ContentType: "application/pdf",
			Size:        10,
			Body:        strings.NewReader("0123456789"),
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("rejects an oversized file", func() {
		_, err := s.svc.Upload(s.ctx, service.UploadInput{
			Filename:    "huge.pdf",
			ContentType: "application/pdf",
			Size:        26 << 20,
			Body:        strings.NewReader("x"),
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// TestSetSlotDocument covers the second phase: binding uploaded metadata
// into a slot, including replacement blob cleanup.
func (s *AttachmentServiceSuite) TestSetSlotDocument() {
	s.Run("binds a single slot", func() {
		doc := s.upload("receipt.pdf", "")
		updated, err := s.svc.SetSlotDocument(s.ctx, s.reg.ID,
			service.SlotRef{Slot: models.SlotPaymentReceipt}, doc)
		s.Require().NoError(err)
		s.Require().NotNil(updated.PaymentReceipt)
		s.Equal(doc.ID, updated.PaymentReceipt.ID)
	})

	s.Run("replacing a single slot deletes the old blob", func() {
		first := s.upload("receipt-v1.pdf", "")
		_, err := s.svc.SetSlotDocument(s.ctx, s.reg.ID,
			service.SlotRef{Slot: models.SlotPaymentReceipt}, first)
		s.Require().NoError(err)
		s.Equal(1, s.blobs.Len())

		second := s.upload("receipt-v2.pdf", "")
		updated, err := s.svc.SetSlotDocument(s.ctx, s.reg.ID,
			service.SlotRef{Slot: models.SlotPaymentReceipt}, second)
		s.Require().NoError(err)
		s.Equal(second.ID, updated.PaymentReceipt.ID)
		// Only the replacement's bytes remain.
		s.Equal(1, s.blobs.Len())
	})

	s.Run("binds an indexed slot at the given position", func() {
		doc := s.upload("form18-director2.pdf", "")
		index := 1
		updated, err := s.svc.SetSlotDocument(s.ctx, s.reg.ID,
			service.SlotRef{Slot: models.SlotForm18, Index: &index}, doc)
		s.Require().NoError(err)
		s.Require().Len(updated.Form18, 2)
		s.Nil(updated.Form18[0])
		s.Equal(doc.ID, updated.Form18[1].ID)
	})

	s.Run("indexed slot without an index is rejected", func() {
		doc := s.upload("form18.pdf", "")
		_, err := s.svc.SetSlotDocument(s.ctx, s.reg.ID,
			service.SlotRef{Slot: models.SlotForm18}, doc)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("appends to a list slot", func() {
		doc := s.upload("extra.pdf", "Power of Attorney")
		updated, err := s.svc.SetSlotDocument(s.ctx, s.reg.ID,
			service.SlotRef{Slot: models.SlotStep3AdditionalDoc}, doc)
		s.Require().NoError(err)
		s.Require().Len(updated.Step3AdditionalDocs, 1)
		s.Equal("Power of Attorney", updated.Step3AdditionalDocs[0].Title)
	})

	s.Run("binds a keyed slot once the title is published", func() {
		template := s.upload("template.pdf", "Board Resolution")
		_, err := s.svc.SetSlotDocument(s.ctx, s.reg.ID,
			service.SlotRef{Slot: models.SlotStep3AdditionalDoc}, template)
		s.Require().NoError(err)

		signed := s.upload("signed.pdf", "Board Resolution")
		updated, err := s.svc.SetSlotDocument(s.ctx, s.reg.ID,
			service.SlotRef{Slot: models.SlotStep3SignedAdditionalDoc, Key: "Board Resolution"}, signed)
		s.Require().NoError(err)
		s.Require().NotNil(updated.Step3SignedAdditionalDocs["Board Resolution"])
	})

	s.Run("rejects a signature without a published template", func() {
		signed := s.upload("signed.pdf", "Ghost Title")
		_, err := s.svc.SetSlotDocument(s.ctx, s.reg.ID,
			service.SlotRef{Slot: models.SlotStep3SignedAdditionalDoc, Key: "Ghost Title"}, signed)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodePreconditionNotMet))
	})

	s.Run("rejects an unknown slot", func() {
		doc := s.upload("x.pdf", "")
		_, err := s.svc.SetSlotDocument(s.ctx, s.reg.ID,
			service.SlotRef{Slot: models.SlotName("passport")}, doc)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// TestRemoveDocument covers detaching and its blob cleanup.
func (s *AttachmentServiceSuite) TestRemoveDocument() {
	s.Run("clears a single slot and deletes the blob", func() {
		doc := s.upload("receipt.pdf", "")
		_, err := s.svc.SetSlotDocument(s.ctx, s.reg.ID,
			service.SlotRef{Slot: models.SlotPaymentReceipt}, doc)
		s.Require().NoError(err)

		updated, err := s.svc.RemoveDocument(s.ctx, s.reg.ID, models.SlotPaymentReceipt, doc.ID)
		s.Require().NoError(err)
		s.Nil(updated.PaymentReceipt)
		s.Equal(0, s.blobs.Len())
	})

	s.Run("stale single-slot delete is a no-op", func() {
		doc := s.upload("receipt.pdf", "")
		_, err := s.svc.SetSlotDocument(s.ctx, s.reg.ID,
			service.SlotRef{Slot: models.SlotPaymentReceipt}, doc)
		s.Require().NoError(err)

		updated, err := s.svc.RemoveDocument(s.ctx, s.reg.ID, models.SlotPaymentReceipt, id.NewAttachmentID())
		s.Require().NoError(err)
		s.Require().NotNil(updated.PaymentReceipt)
		s.Equal(doc.ID, updated.PaymentReceipt.ID)
	})

	s.Run("removes a list entry by attachment id", func() {
		doc := s.upload("extra.pdf", "Extra")
		_, err := s.svc.SetSlotDocument(s.ctx, s.reg.ID,
			service.SlotRef{Slot: models.SlotStep3AdditionalDoc}, doc)
		s.Require().NoError(err)

		updated, err := s.svc.RemoveDocument(s.ctx, s.reg.ID, models.SlotStep3AdditionalDoc, doc.ID)
		s.Require().NoError(err)
		s.Empty(updated.Step3AdditionalDocs)
	})
}

// TestPurgeBlobs verifies cleanup walks every slot.
// TestNoBlobStoreConfigured verifies slot writes on a service without a
// blob store skip blob cleanup instead of panicking.
func (s *AttachmentServiceSuite) TestNoBlobStoreConfigured() {
	svc := service.New(store.NewMemory(), service.WithLogger(slog.Default()))
	reg, err := svc.CreateRegistration(s.ctx, service.NewRegistrationInput{
		CompanyNameEN: "Acme Holdings Ltd",
		ContactName:   "Dana Berg",
		ContactEmail:  "dana@example.com",
	})
	s.Require().NoError(err)

	attachment := func(name string) *models.DocumentAttachment {
		return &models.DocumentAttachment{
			ID:          id.NewAttachmentID(),
			Name:        name,
			MIMEType:    "application/pdf",
			SizeBytes:   1024,
			URL:         "https://blobs.example.com/" + name,
			StoragePath: "uploads/" + name,
			UploadedAt:  s.now,
		}
	}

	_, err = svc.SetSlotDocument(s.ctx, reg.ID,
		service.SlotRef{Slot: models.SlotPaymentReceipt}, attachment("receipt-v1.pdf"))
	s.Require().NoError(err)

	replacement := attachment("receipt-v2.pdf")
	_, err = svc.SetSlotDocument(s.ctx, reg.ID,
		service.SlotRef{Slot: models.SlotPaymentReceipt}, replacement)
	s.Require().NoError(err)

	_, err = svc.RemoveDocument(s.ctx, reg.ID, models.SlotPaymentReceipt, replacement.ID)
	s.Require().NoError(err)
}

func (s *AttachmentServiceSuite) TestPurgeBlobs() {
	receipt := s.upload("receipt.pdf", "")
	_, err := s.svc.SetSlotDocument(s.ctx, s.reg.ID,
		service.SlotRef{Slot: models.SlotPaymentReceipt}, receipt)
	s.Require().NoError(err)

	extra := s.upload("extra.pdf", "Extra")
	_, err = s.svc.SetSlotDocument(s.ctx, s.reg.ID,
		service.SlotRef{Slot: models.SlotStep3AdditionalDoc}, extra)
	s.Require().NoError(err)

	reg, err := s.svc.GetRegistration(s.ctx, s.reg.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.svc.PurgeBlobs(s.ctx, reg))
	s.Equal(0, s.blobs.Len())
}
