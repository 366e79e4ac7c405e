package service_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"regdesk/internal/blob"
	"regdesk/internal/registration/models"
	"regdesk/internal/registration/service"
	"regdesk/internal/registration/store"
	id "regdesk/pkg/domain"
	dErrors "regdesk/pkg/domain-errors"
	"regdesk/pkg/requestcontext"
)

type PatchServiceSuite struct {
	suite.Suite
	svc   *service.Service
	blobs *blob.MemoryStore
	ctx   context.Context
	now   time.Time
	reg   *models.Registration
}

func (s *PatchServiceSuite) SetupTest() {
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

func TestPatchServiceSuite(t *testing.T) {
	suite.Run(t, new(PatchServiceSuite))
}

func (s *PatchServiceSuite) attachment(name string) *models.DocumentAttachment {
	return &models.DocumentAttachment{
		ID:          id.NewAttachmentID(),
		Name:        name,
		MIMEType:    "application/pdf",
		SizeBytes:   512,
		URL:         "memory://blobs/uploads/" + name,
		StoragePath: "uploads/" + name,
		UploadedAt:  s.now,
	}
}

func strptr(s string) *string { return &s }

// TestPatchContactFields verifies pointer presence drives what changes.
func (s *PatchServiceSuite) TestPatchContactFields() {
	updated, err := s.svc.PatchRegistration(s.ctx, s.reg.ID, service.Patch{
		ContactPhone: strptr("+64 21 555 0123"),
	})
	s.Require().NoError(err)
	s.Equal("+64 21 555 0123", updated.ContactPhone)
	s.Equal("Acme Holdings Ltd", updated.CompanyNameEN)
	s.Equal("Dana Berg", updated.ContactName)
}

func (s *PatchServiceSuite) TestPatchRejectsEmptyBody() {
	_, err := s.svc.PatchRegistration(s.ctx, s.reg.ID, service.Patch{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *PatchServiceSuite) TestPatchValidatesCompanyBlock() {
	_, err := s.svc.PatchRegistration(s.ctx, s.reg.ID, service.Patch{
		Company: &models.CompanyDetails{SharePrice: decimal.NewFromInt(-5)},
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

// TestPatchIsAdditive verifies one patch never disturbs slots it does not
// name, across single, positional, and list slots.
func (s *PatchServiceSuite) TestPatchIsAdditive() {
	receipt := s.attachment("receipt.pdf")
	_, err := s.svc.PatchRegistration(s.ctx, s.reg.ID, service.Patch{PaymentReceipt: receipt})
	s.Require().NoError(err)

	form18 := s.attachment("form18-0.pdf")
	_, err = s.svc.PatchRegistration(s.ctx, s.reg.ID, service.Patch{
		Form18: []*models.DocumentAttachment{form18},
	})
	s.Require().NoError(err)

	extra := s.attachment("extra.pdf")
	extra.Title = "Power of Attorney"
	updated, err := s.svc.PatchRegistration(s.ctx, s.reg.ID, service.Patch{
		Step3AdditionalDocs: []*models.DocumentAttachment{extra},
	})
	s.Require().NoError(err)

	s.Require().NotNil(updated.PaymentReceipt)
	s.Equal(receipt.ID, updated.PaymentReceipt.ID)
	s.Require().Len(updated.Form18, 1)
	s.Equal(form18.ID, updated.Form18[0].ID)
	s.Require().Len(updated.Step3AdditionalDocs, 1)
}

// TestPatchForm18SkipsNilEntries verifies nil positions in the payload leave
// the stored positions alone.
func (s *PatchServiceSuite) TestPatchForm18SkipsNilEntries() {
	first := s.attachment("f18-0.pdf")
	_, err := s.svc.PatchRegistration(s.ctx, s.reg.ID, service.Patch{
		Form18: []*models.DocumentAttachment{first},
	})
	s.Require().NoError(err)

	third := s.attachment("f18-2.pdf")
	updated, err := s.svc.PatchRegistration(s.ctx, s.reg.ID, service.Patch{
		Form18: []*models.DocumentAttachment{nil, nil, third},
	})
	s.Require().NoError(err)

	s.Require().Len(updated.Form18, 3)
	s.Require().NotNil(updated.Form18[0])
	s.Equal(first.ID, updated.Form18[0].ID)
	s.Nil(updated.Form18[1])
	s.Equal(third.ID, updated.Form18[2].ID)
}

// TestPatchAppliesAtomically verifies a patch with one bad slot write leaves
// every prior slot of the same patch unapplied.
func (s *PatchServiceSuite) TestPatchAppliesAtomically() {
	signed := s.attachment("signed.pdf")
	signed.Title = "Ghost Title"
	_, err := s.svc.PatchRegistration(s.ctx, s.reg.ID, service.Patch{
		PaymentReceipt: s.attachment("receipt.pdf"),
		Step3SignedAdditionalDocs: map[string]*models.DocumentAttachment{
			"Ghost Title": signed,
		},
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePreconditionNotMet))

	found, err := s.svc.GetRegistration(s.ctx, s.reg.ID)
	s.Require().NoError(err)
	s.Nil(found.PaymentReceipt)
}

// TestPatchCustomerDocumentsMerge verifies the bundle deep-merges through
// the patch path too.
func (s *PatchServiceSuite) TestPatchCustomerDocumentsMerge() {
	_, err := s.svc.PatchRegistration(s.ctx, s.reg.ID, service.Patch{
		CustomerDocuments: &models.CustomerDocuments{Form1: s.attachment("form1-signed.pdf")},
	})
	s.Require().NoError(err)

	updated, err := s.svc.PatchRegistration(s.ctx, s.reg.ID, service.Patch{
		CustomerDocuments: &models.CustomerDocuments{AOA: s.attachment("aoa-signed.pdf")},
	})
	s.Require().NoError(err)

	s.NotNil(updated.CustomerDocuments.Form1)
	s.NotNil(updated.CustomerDocuments.AOA)
}
