package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"regdesk/internal/registration/models"
	id "regdesk/pkg/domain"
	dErrors "regdesk/pkg/domain-errors"
)

type WorkflowSuite struct {
	suite.Suite
	now time.Time
}

func (s *WorkflowSuite) SetupTest() {
	s.now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
}

func TestWorkflowSuite(t *testing.T) {
	suite.Run(t, new(WorkflowSuite))
}

func (s *WorkflowSuite) newRegistration() *models.Registration {
	reg, err := models.NewRegistration(id.NewRegistrationID(s.now), "Acme Holdings Ltd", "Dana Berg", "dana@example.com", s.now)
	s.Require().NoError(err)
	return reg
}

func (s *WorkflowSuite) attachment(name string) *models.DocumentAttachment {
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

// TestHappyPath walks a registration from creation to completion through
// every gate and transition in order.
func (s *WorkflowSuite) TestHappyPath() {
	reg := s.newRegistration()
	s.Equal(models.StepContactDetails, reg.CurrentStep)
	s.Equal(models.StatusPaymentProcessing, reg.Status)

	s.Require().NoError(reg.ApproveGate(models.GatePaymentApproved, s.now))
	s.Require().NoError(reg.Advance(s.now))
	s.Equal(models.StepCompanyDetails, reg.CurrentStep)
	s.Equal(models.StatusDocumentationProcessing, reg.Status)

	s.Require().NoError(reg.ApproveGate(models.GateDetailsApproved, s.now))
	s.Require().NoError(reg.Advance(s.now))
	s.Equal(models.StepDocumentation, reg.CurrentStep)
	s.Equal(models.StatusDocumentationProcessing, reg.Status)

	s.Require().NoError(reg.PublishDocuments(s.now))
	s.Equal(models.StatusDocumentsPublished, reg.Status)
	s.Require().NotNil(reg.DocumentsPublishedAt)

	s.Require().NoError(reg.ApproveGate(models.GateDocumentsApproved, s.now))
	s.Require().NoError(reg.AcknowledgeDocuments(s.now))
	s.Require().NoError(reg.Advance(s.now))
	s.Equal(models.StepIncorporate, reg.CurrentStep)
	s.Equal(models.StatusIncorporationProcessing, reg.Status)

	_, err := reg.SetSingleSlot(models.SlotIncorporationCertificate, s.attachment("certificate.pdf"), s.now)
	s.Require().NoError(err)
	s.Require().NoError(reg.Advance(s.now))
	s.Equal(models.StepIncorporate, reg.CurrentStep)
	s.Equal(models.StatusCompleted, reg.Status)
}

// TestGatePreconditions verifies each step refuses to advance until its gate
// is granted, with a precondition code rather than an invalid-state code.
func (s *WorkflowSuite) TestGatePreconditions() {
	s.Run("contact details needs payment approval", func() {
		reg := s.newRegistration()
		err := reg.Advance(s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodePreconditionNotMet))
		s.Equal(models.StepContactDetails, reg.CurrentStep)
	})

	s.Run("company details needs details approval", func() {
		reg := s.newRegistration()
		s.Require().NoError(reg.ApproveGate(models.GatePaymentApproved, s.now))
		s.Require().NoError(reg.Advance(s.now))

		err := reg.Advance(s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodePreconditionNotMet))
	})

	s.Run("documentation needs both approval and acknowledgement", func() {
		reg := s.regAtDocumentation()
		s.Require().NoError(reg.ApproveGate(models.GateDocumentsApproved, s.now))

		err := reg.Advance(s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodePreconditionNotMet))
	})

	s.Run("incorporate needs the certificate attached", func() {
		reg := s.regAtIncorporate()
		err := reg.Advance(s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodePreconditionNotMet))
	})

	s.Run("completed registration cannot advance again", func() {
		reg := s.regAtIncorporate()
		_, err := reg.SetSingleSlot(models.SlotIncorporationCertificate, s.attachment("cert.pdf"), s.now)
		s.Require().NoError(err)
		s.Require().NoError(reg.Advance(s.now))

		err = reg.Advance(s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

// TestGateIdempotency verifies re-granting a gate is a silent no-op.
func (s *WorkflowSuite) TestGateIdempotency() {
	reg := s.newRegistration()
	s.Require().NoError(reg.ApproveGate(models.GatePaymentApproved, s.now))

	later := s.now.Add(time.Hour)
	s.Require().NoError(reg.ApproveGate(models.GatePaymentApproved, later))
	s.True(reg.PaymentApproved)
	// A no-op regrant must not bump UpdatedAt.
	s.Equal(s.now, reg.UpdatedAt)
}

func (s *WorkflowSuite) TestApproveGateRejectsUnknownGate() {
	reg := s.newRegistration()
	err := reg.ApproveGate(models.Gate("somethingElse"), s.now)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

// TestPublishDocuments covers the publication state machine.
func (s *WorkflowSuite) TestPublishDocuments() {
	s.Run("rejects publication before the documentation step", func() {
		reg := s.newRegistration()
		err := reg.PublishDocuments(s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("rejects double publication", func() {
		reg := s.regAtDocumentation()
		s.Require().NoError(reg.PublishDocuments(s.now))

		err := reg.PublishDocuments(s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("records the publication instant", func() {
		reg := s.regAtDocumentation()
		s.Require().NoError(reg.PublishDocuments(s.now))
		s.Require().NotNil(reg.DocumentsPublishedAt)
		s.Equal(s.now, *reg.DocumentsPublishedAt)
	})
}

// TestAcknowledgeDocuments covers the customer confirmation ordering.
func (s *WorkflowSuite) TestAcknowledgeDocuments() {
	s.Run("rejects acknowledgement before publication", func() {
		reg := s.regAtDocumentation()
		err := reg.AcknowledgeDocuments(s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodePreconditionNotMet))
	})

	s.Run("rejects double acknowledgement", func() {
		reg := s.regAtDocumentation()
		s.Require().NoError(reg.PublishDocuments(s.now))
		s.Require().NoError(reg.AcknowledgeDocuments(s.now))

		err := reg.AcknowledgeDocuments(s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

// TestParsers checks the wire-format validation of the enum types.
func (s *WorkflowSuite) TestParsers() {
	s.Run("accepts canonical step names", func() {
		for _, name := range []string{"contact-details", "company-details", "documentation", "incorporate"} {
			step, err := models.ParseStep(name)
			s.Require().NoError(err)
			s.Equal(name, step.String())
		}
	})

	s.Run("rejects unknown step", func() {
		_, err := models.ParseStep("step-five")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects unknown status", func() {
		_, err := models.ParseStatus("under-review")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects unknown gate", func() {
		_, err := models.ParseGate("managerApproved")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// regAtDocumentation fast-forwards a fresh registration to the documentation
// step with documentation-processing status.
func (s *WorkflowSuite) regAtDocumentation() *models.Registration {
	reg := s.newRegistration()
	s.Require().NoError(reg.ApproveGate(models.GatePaymentApproved, s.now))
	s.Require().NoError(reg.Advance(s.now))
	s.Require().NoError(reg.ApproveGate(models.GateDetailsApproved, s.now))
	s.Require().NoError(reg.Advance(s.now))
	return reg
}

// regAtIncorporate fast-forwards through publication and acknowledgement to
// the incorporate step.
func (s *WorkflowSuite) regAtIncorporate() *models.Registration {
	reg := s.regAtDocumentation()
	s.Require().NoError(reg.PublishDocuments(s.now))
	s.Require().NoError(reg.ApproveGate(models.GateDocumentsApproved, s.now))
	s.Require().NoError(reg.AcknowledgeDocuments(s.now))
	s.Require().NoError(reg.Advance(s.now))
	return reg
}
