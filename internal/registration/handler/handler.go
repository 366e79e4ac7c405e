package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"regdesk/internal/platform/middleware"
	"regdesk/internal/registration/models"
	"regdesk/internal/registration/service"
	id "regdesk/pkg/domain"
	dErrors "regdesk/pkg/domain-errors"
	"regdesk/pkg/platform/httputil"
	"regdesk/pkg/requestcontext"
)

// Service defines the registration operations the handler exposes.
type Service interface {
	CreateRegistration(ctx context.Context, in service.NewRegistrationInput) (*models.Registration, error)
	GetRegistration(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	ListRegistrations(ctx context.Context) ([]*models.Registration, error)
	Summarize(ctx context.Context) (*service.Summary, error)
	PatchRegistration(ctx context.Context, regID id.RegistrationID, patch service.Patch) (*models.Registration, error)
	ApproveGate(ctx context.Context, regID id.RegistrationID, gate models.Gate) (*models.Registration, error)
	Advance(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	PublishDocuments(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	AcknowledgeDocuments(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	MergeCustomerDocuments(ctx context.Context, regID id.RegistrationID, in models.CustomerDocuments) (*models.Registration, error)
	Upload(ctx context.Context, in service.UploadInput) (*models.DocumentAttachment, error)
	SetSlotDocument(ctx context.Context, regID id.RegistrationID, ref service.SlotRef, doc *models.DocumentAttachment) (*models.Registration, error)
	RemoveDocument(ctx context.Context, regID id.RegistrationID, slot models.SlotName, attachmentID id.AttachmentID) (*models.Registration, error)
	DeleteRegistration(ctx context.Context, regID id.RegistrationID) error
}

// Handler wires registration endpoints to the registration service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a registration handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts registration endpoints on the router. Authentication is
// applied by the caller; admin-only endpoints add a role check here.
func (h *Handler) Register(r chi.Router) {
	adminOnly := middleware.RequireRole(id.RoleAdmin, h.logger)

	r.Route("/registrations", func(r chi.Router) {
		r.With(adminOnly).Get("/", h.HandleList)
		r.With(adminOnly).Get("/summary", h.HandleSummary)
		r.Post("/", h.HandleCreate)

		r.Route("/{registrationID}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Put("/", h.HandlePatch)
			r.With(adminOnly).Delete("/", h.HandleDelete)

			r.Put("/customer-documents", h.HandleCustomerDocuments)

			r.Post("/advance", h.HandleAdvance)
			r.With(adminOnly).Post("/approve", h.HandleApprove)
			r.With(adminOnly).Post("/publish-documents", h.HandlePublish)
			r.Post("/acknowledge-documents", h.HandleAcknowledge)

			r.Put("/documents/form18/{index}", h.HandleSetForm18)
			r.Put("/documents/step3-signed/{title}", h.HandleSetStep3Signed)
			r.Put("/documents/{slot}", h.HandleSetDocument)
			r.Post("/documents/{slot}", h.HandleAppendDocument)
			r.Delete("/documents/{slot}/{attachmentID}", h.HandleRemoveDocument)
		})
	})
}

// RegisterUploads mounts the multipart upload endpoint. It is separate
// from Register so the JSON content-type guard can be skipped for it.
func (h *Handler) RegisterUploads(r chi.Router) {
	r.Post("/uploads", h.HandleUpload)
}

func (h *Handler) registrationID(w http.ResponseWriter, r *http.Request) (id.RegistrationID, bool) {
	regID, err := id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return regID, true
}

// HandleCreate handles POST /registrations.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateRegistrationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	reg, err := h.service.CreateRegistration(ctx, req.toInput())
	if err != nil {
		h.logger.ErrorContext(ctx, "registration creation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "registration created",
		"request_id", requestID,
		"registration_id", string(reg.ID),
	)
	httputil.WriteJSON(w, http.StatusCreated, reg)
}

// HandleGet handles GET /registrations/{registrationID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	regID, ok := h.registrationID(w, r)
	if !ok {
		return
	}

	reg, err := h.service.GetRegistration(ctx, regID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reg)
}

// HandleList handles GET /registrations.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	regs, err := h.service.ListRegistrations(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if regs == nil {
		regs = []*models.Registration{}
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Registrations: regs})
}

// HandleSummary handles GET /registrations/summary.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sum, err := h.service.Summarize(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sum)
}

// HandlePatch handles PUT /registrations/{registrationID}.
func (h *Handler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	regID, ok := h.registrationID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[PatchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	reg, err := h.service.PatchRegistration(ctx, regID, req.Patch)
	if err != nil {
		h.logger.ErrorContext(ctx, "registration update failed",
			"request_id", requestID,
			"registration_id", string(regID),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reg)
}

// HandleDelete handles DELETE /registrations/{registrationID}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	regID, ok := h.registrationID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteRegistration(ctx, regID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleApprove handles POST /registrations/{registrationID}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	regID, ok := h.registrationID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[ApproveRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	reg, err := h.service.ApproveGate(ctx, regID, req.ParsedGate())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "approval gate raised",
		"request_id", requestID,
		"registration_id", string(regID),
		"gate", req.Gate,
	)
	httputil.WriteJSON(w, http.StatusOK, reg)
}

// HandleAdvance handles POST /registrations/{registrationID}/advance.
func (h *Handler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	regID, ok := h.registrationID(w, r)
	if !ok {
		return
	}

	start := time.Now()
	reg, err := h.service.Advance(ctx, regID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "registration advanced",
		"request_id", requestID,
		"registration_id", string(regID),
		"step", string(reg.CurrentStep),
		"status", string(reg.Status),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, reg)
}

// HandlePublish handles POST /registrations/{registrationID}/publish-documents.
func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	regID, ok := h.registrationID(w, r)
	if !ok {
		return
	}

	reg, err := h.service.PublishDocuments(ctx, regID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reg)
}

// HandleAcknowledge handles POST /registrations/{registrationID}/acknowledge-documents.
func (h *Handler) HandleAcknowledge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	regID, ok := h.registrationID(w, r)
	if !ok {
		return
	}

	reg, err := h.service.AcknowledgeDocuments(ctx, regID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reg)
}

// HandleCustomerDocuments handles PUT /registrations/{registrationID}/customer-documents.
func (h *Handler) HandleCustomerDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	regID, ok := h.registrationID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[CustomerDocumentsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	reg, err := h.service.MergeCustomerDocuments(ctx, regID, req.CustomerDocuments)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reg)
}

// HandleSetDocument handles PUT /registrations/{registrationID}/documents/{slot}.
func (h *Handler) HandleSetDocument(w http.ResponseWriter, r *http.Request) {
	h.setSlot(w, r, service.SlotRef{Slot: models.SlotName(chi.URLParam(r, "slot"))})
}

// HandleSetForm18 handles PUT /registrations/{registrationID}/documents/form18/{index}.
func (h *Handler) HandleSetForm18(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "form18 index must be an integer"))
		return
	}
	h.setSlot(w, r, service.SlotRef{Slot: models.SlotForm18, Index: &index})
}

// HandleSetStep3Signed handles PUT /registrations/{registrationID}/documents/step3-signed/{title}.
func (h *Handler) HandleSetStep3Signed(w http.ResponseWriter, r *http.Request) {
	title := chi.URLParam(r, "title")
	if unescaped, err := url.PathUnescape(title); err == nil {
		title = unescaped
	}
	h.setSlot(w, r, service.SlotRef{Slot: models.SlotStep3SignedAdditionalDoc, Key: title})
}

// HandleAppendDocument handles POST /registrations/{registrationID}/documents/{slot}
// for the append-only additional-document lists.
func (h *Handler) HandleAppendDocument(w http.ResponseWriter, r *http.Request) {
	h.setSlot(w, r, service.SlotRef{Slot: models.SlotName(chi.URLParam(r, "slot"))})
}

func (h *Handler) setSlot(w http.ResponseWriter, r *http.Request, ref service.SlotRef) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	regID, ok := h.registrationID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[SlotDocumentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	reg, err := h.service.SetSlotDocument(ctx, regID, ref, &req.DocumentAttachment)
	if err != nil {
		h.logger.ErrorContext(ctx, "document slot update failed",
			"request_id", requestID,
			"registration_id", string(regID),
			"slot", string(ref.Slot),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "document attached",
		"request_id", requestID,
		"registration_id", string(regID),
		"slot", string(ref.Slot),
	)
	httputil.WriteJSON(w, http.StatusOK, reg)
}

// HandleRemoveDocument handles DELETE /registrations/{registrationID}/documents/{slot}/{attachmentID}.
func (h *Handler) HandleRemoveDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	regID, ok := h.registrationID(w, r)
	if !ok {
		return
	}
	attachmentID, err := id.ParseAttachmentID(chi.URLParam(r, "attachmentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	reg, err := h.service.RemoveDocument(ctx, regID, models.SlotName(chi.URLParam(r, "slot")), attachmentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reg)
}

// HandleUpload handles POST /uploads. The multipart form carries the file
// under "file" plus optional "title" and "signedByCustomer" fields; the
// response is the attachment metadata to bind with a slot endpoint.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request is not valid multipart form data"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	signed, _ := strconv.ParseBool(r.FormValue("signedByCustomer"))

	doc, err := h.service.Upload(ctx, service.UploadInput{
		Filename:         header.Filename,
		ContentType:      contentType,
		Size:             header.Size,
		Body:             file,
		Title:            r.FormValue("title"),
		SignedByCustomer: signed,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "attachment upload failed",
			"request_id", requestID,
			"filename", header.Filename,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "attachment uploaded",
		"request_id", requestID,
		"attachment_id", doc.ID.String(),
		"size_bytes", doc.SizeBytes,
	)
	httputil.WriteJSON(w, http.StatusCreated, doc)
}
