package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"regdesk/internal/registration/models"
	id "regdesk/pkg/domain"
	dErrors "regdesk/pkg/domain-errors"
	"regdesk/pkg/platform/audit"
	"regdesk/pkg/requestcontext"
)

const maxAttachmentBytes = 25 << 20

// UploadInput describes one incoming file destined for a document slot.
type UploadInput struct {
	Filename         string
	ContentType      string
	Size             int64
	Body             io.Reader
	Title            string
	SignedByCustomer bool
}

func (in UploadInput) validate() error {
	if strings.TrimSpace(in.Filename) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "attachment filename is required")
	}
	if in.ContentType == "" {
		return dErrors.New(dErrors.CodeBadRequest, "attachment content type is required")
	}
	if in.Size <= 0 {
		return dErrors.New(dErrors.CodeBadRequest, "attachment size must be positive")
	}
	if in.Size > maxAttachmentBytes {
		return dErrors.New(dErrors.CodeValidation, "attachment exceeds the maximum size")
	}
	if in.Body == nil {
		return dErrors.New(dErrors.CodeBadRequest, "attachment body is required")
	}
	return nil
}

// SlotRef addresses one position in a document slot. Index applies to
// positional slots, Key to title-keyed slots; both are ignored elsewhere.
type SlotRef struct {
	Slot  models.SlotName
	Index *int
	Key   string
}

// Upload stores the file bytes and returns the attachment metadata. The
// blob is not yet referenced by any registration row; callers bind it with
// SetSlotDocument. An upload that is never bound is an orphan the bucket
// lifecycle policy reaps.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*models.DocumentAttachment, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if s.blobs == nil {
		return nil, dErrors.New(dErrors.CodeInvalidState, "document uploads are not configured")
	}

	now := requestcontext.Now(ctx)
	attachmentID := id.NewAttachmentID()
	storagePath := fmt.Sprintf("uploads/%s/%s", attachmentID, sanitizeFilename(in.Filename))

	start := time.Now()
	url, err := s.blobs.Put(ctx, storagePath, in.ContentType, in.Body, in.Size)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store attachment")
	}
	if s.metrics != nil {
		s.metrics.ObserveUpload(start)
	}

	return &models.DocumentAttachment{
		ID:               attachmentID,
		Name:             path.Base(in.Filename),
		MIMEType:         in.ContentType,
		SizeBytes:        in.Size,
		URL:              url,
		StoragePath:      storagePath,
		UploadedAt:       now,
		Title:            in.Title,
		SignedByCustomer: in.SignedByCustomer,
	}, nil
}

// SetSlotDocument binds an uploaded attachment into its slot under the
// store's row lock. Single and indexed slots replace in place; the
// replaced attachment's bytes are deleted best-effort after the metadata
// swap commits.
func (s *Service) SetSlotDocument(ctx context.Context, regID id.RegistrationID, ref SlotRef, doc *models.DocumentAttachment) (*models.Registration, error) {
	if err := requireRegistrationID(regID); err != nil {
		return nil, err
	}
	if _, err := models.ParseSlotName(string(ref.Slot)); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "attachment is required")
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var replaced *models.DocumentAttachment
	start := time.Now()
	reg, err := s.registrations.Execute(ctx, regID, nil,
		func(r *models.Registration) error {
			var bindErr error
			replaced, bindErr = bindSlot(r, ref, doc, now)
			return bindErr
		},
	)
	if err != nil {
		s.rejection(err)
		return nil, wrapRegErr(err)
	}
	s.observeUpdate(start)

	if replaced != nil && replaced.StoragePath != doc.StoragePath {
		s.deleteBlob(ctx, replaced.StoragePath)
	}

	if err := s.emit(ctx, s.event(ctx, regID, audit.EventDocumentAttached, func(e *audit.Event) {
		e.Slot = string(ref.Slot)
		e.Detail = doc.Name
	})); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.DocumentsAttached.WithLabelValues(string(ref.Slot)).Inc()
	}
	return reg, nil
}

func bindSlot(r *models.Registration, ref SlotRef, doc *models.DocumentAttachment, now time.Time) (*models.DocumentAttachment, error) {
	kind, err := models.KindOf(ref.Slot)
	if err != nil {
		return nil, err
	}
	switch kind {
	case models.SlotKindSingle:
		return r.SetSingleSlot(ref.Slot, doc, now)
	case models.SlotKindIndexed:
		if ref.Index == nil {
			return nil, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("slot %q requires an index", ref.Slot))
		}
		return r.SetIndexedSlot(ref.Slot, *ref.Index, doc, now)
	case models.SlotKindList:
		if ref.Index != nil {
			return r.SetIndexedSlot(ref.Slot, *ref.Index, doc, now)
		}
		return nil, r.AppendToList(ref.Slot, doc, now)
	case models.SlotKindKeyed:
		return r.SetKeyedSlot(ref.Slot, ref.Key, doc, now)
	default:
		return nil, dErrors.New(dErrors.CodeInternal, fmt.Sprintf("unhandled slot kind for %q", ref.Slot))
	}
}

// RemoveDocument detaches an attachment from its slot, deleting the blob
// best-effort afterwards. Removing an id that is no longer present is a
// no-op.
func (s *Service) RemoveDocument(ctx context.Context, regID id.RegistrationID, slot models.SlotName, attachmentID id.AttachmentID) (*models.Registration, error) {
	if err := requireRegistrationID(regID); err != nil {
		return nil, err
	}
	kind, err := models.KindOf(slot)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var removed *models.DocumentAttachment
	reg, err := s.registrations.Execute(ctx, regID, nil,
		func(r *models.Registration) error {
			var opErr error
			switch kind {
			case models.SlotKindSingle:
				current := currentSingle(r, slot)
				if current != nil && current.ID != attachmentID {
					// Stale delete against a replaced attachment; treat
					// like a miss.
					return nil
				}
				removed, opErr = r.ClearSingleSlot(slot, now)
			case models.SlotKindIndexed, models.SlotKindList:
				removed, opErr = r.RemoveFromList(slot, attachmentID, now)
			case models.SlotKindKeyed:
				removed, opErr = removeKeyed(r, slot, attachmentID, now)
			}
			return opErr
		},
	)
	if err != nil {
		s.rejection(err)
		return nil, wrapRegErr(err)
	}

	if removed != nil {
		s.deleteBlob(ctx, removed.StoragePath)
		if err := s.emit(ctx, s.event(ctx, regID, audit.EventDocumentRemoved, func(e *audit.Event) {
			e.Slot = string(slot)
			e.Detail = removed.Name
		})); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func currentSingle(r *models.Registration, slot models.SlotName) *models.DocumentAttachment {
	switch slot {
	case models.SlotPaymentReceipt:
		return r.PaymentReceipt
	case models.SlotBalancePaymentReceipt:
		return r.BalancePaymentReceipt
	case models.SlotForm1:
		return r.Form1
	case models.SlotLetterOfEngagement:
		return r.LetterOfEngagement
	case models.SlotAOA:
		return r.AOA
	case models.SlotAddressProof:
		return r.AddressProof
	case models.SlotIncorporationCertificate:
		return r.IncorporationCertificate
	default:
		return nil
	}
}

func removeKeyed(r *models.Registration, slot models.SlotName, attachmentID id.AttachmentID, now time.Time) (*models.DocumentAttachment, error) {
	if slot != models.SlotStep3SignedAdditionalDoc {
		return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%q is not a keyed slot", slot))
	}
	for title, doc := range r.Step3SignedAdditionalDocs {
		if doc != nil && doc.ID == attachmentID {
			delete(r.Step3SignedAdditionalDocs, title)
			r.Touch(now)
			return doc, nil
		}
	}
	return nil, nil
}

// PurgeBlobs deletes every blob owned by a registration. Used by test
// cleanup alongside DeleteRegistration.
func (s *Service) PurgeBlobs(ctx context.Context, reg *models.Registration) error {
	if s.blobs == nil || reg == nil {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, doc := range collectAttachments(reg) {
		storagePath := doc.StoragePath
		g.Go(func() error {
			return s.blobs.Delete(ctx, storagePath)
		})
	}
	if err := g.Wait(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge attachment blobs")
	}
	return nil
}

func collectAttachments(reg *models.Registration) []*models.DocumentAttachment {
	var out []*models.DocumentAttachment
	add := func(docs ...*models.DocumentAttachment) {
		for _, doc := range docs {
			if doc != nil {
				out = append(out, doc)
			}
		}
	}
	add(reg.PaymentReceipt, reg.BalancePaymentReceipt, reg.Form1, reg.LetterOfEngagement,
		reg.AOA, reg.AddressProof, reg.IncorporationCertificate)
	add(reg.Form18...)
	add(reg.Step3AdditionalDocs...)
	add(reg.Step4AdditionalDocs...)
	for _, doc := range reg.Step3SignedAdditionalDocs {
		add(doc)
	}
	add(reg.CustomerDocuments.Form1, reg.CustomerDocuments.LetterOfEngagement,
		reg.CustomerDocuments.AOA, reg.CustomerDocuments.AddressProof)
	add(reg.CustomerDocuments.Form18...)
	for _, doc := range reg.CustomerDocuments.Step3SignedAdditionalDoc {
		add(doc)
	}
	return out
}

func (s *Service) deleteBlob(ctx context.Context, storagePath string) {
	if s.blobs == nil || storagePath == "" {
		return
	}
	if err := s.blobs.Delete(ctx, storagePath); err != nil {
		s.logger.Warn("orphaned attachment blob", "storage_path", storagePath, "error", err)
	}
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "upload"
	}
	return b.String()
}
