package models

import (
	"fmt"
	"time"

	id "regdesk/pkg/domain"
	dErrors "regdesk/pkg/domain-errors"
)

// SlotName identifies one document slot on the aggregate, in its wire form.
type SlotName string

const (
	SlotPaymentReceipt           SlotName = "paymentReceipt"
	SlotBalancePaymentReceipt    SlotName = "balancePaymentReceipt"
	SlotForm1                    SlotName = "form1"
	SlotLetterOfEngagement       SlotName = "letterOfEngagement"
	SlotAOA                      SlotName = "aoa"
	SlotAddressProof             SlotName = "addressProof"
	SlotIncorporationCertificate SlotName = "incorporationCertificate"
	SlotForm18                   SlotName = "form18"
	SlotStep3AdditionalDoc       SlotName = "step3AdditionalDoc"
	SlotStep3SignedAdditionalDoc SlotName = "step3SignedAdditionalDoc"
	SlotStep4FinalAdditionalDoc  SlotName = "step4FinalAdditionalDoc"
)

// SlotKind describes how a slot addresses its attachments.
type SlotKind int

const (
	// SlotKindSingle holds at most one attachment.
	SlotKindSingle SlotKind = iota
	// SlotKindIndexed is an ordered list addressed by position, with nil
	// placeholders preserved.
	SlotKindIndexed
	// SlotKindList is an append-only ordered list.
	SlotKindList
	// SlotKindKeyed is a map keyed by the admin template's title.
	SlotKindKeyed
)

// slotRegistry is the canonical slot table: kind plus an accessor to the
// backing field. Everything the slot manager does goes through this table
// rather than per-slot switch statements scattered across call sites.
var slotRegistry = map[SlotName]slotDef{
	SlotPaymentReceipt:           {kind: SlotKindSingle, single: func(r *Registration) **DocumentAttachment { return &r.PaymentReceipt }},
	SlotBalancePaymentReceipt:    {kind: SlotKindSingle, single: func(r *Registration) **DocumentAttachment { return &r.BalancePaymentReceipt }},
	SlotForm1:                    {kind: SlotKindSingle, single: func(r *Registration) **DocumentAttachment { return &r.Form1 }},
	SlotLetterOfEngagement:       {kind: SlotKindSingle, single: func(r *Registration) **DocumentAttachment { return &r.LetterOfEngagement }},
	SlotAOA:                      {kind: SlotKindSingle, single: func(r *Registration) **DocumentAttachment { return &r.AOA }},
	SlotAddressProof:             {kind: SlotKindSingle, single: func(r *Registration) **DocumentAttachment { return &r.AddressProof }},
	SlotIncorporationCertificate: {kind: SlotKindSingle, single: func(r *Registration) **DocumentAttachment { return &r.IncorporationCertificate }},
	SlotForm18:                   {kind: SlotKindIndexed, list: func(r *Registration) *[]*DocumentAttachment { return &r.Form18 }},
	SlotStep3AdditionalDoc:       {kind: SlotKindList, list: func(r *Registration) *[]*DocumentAttachment { return &r.Step3AdditionalDocs }},
	SlotStep4FinalAdditionalDoc:  {kind: SlotKindList, list: func(r *Registration) *[]*DocumentAttachment { return &r.Step4AdditionalDocs }},
	SlotStep3SignedAdditionalDoc: {kind: SlotKindKeyed, keyed: func(r *Registration) *map[string]*DocumentAttachment { return &r.Step3SignedAdditionalDocs }},
}

type slotDef struct {
	kind   SlotKind
	single func(r *Registration) **DocumentAttachment
	list   func(r *Registration) *[]*DocumentAttachment
	keyed  func(r *Registration) *map[string]*DocumentAttachment
}

// ParseSlotName validates a wire-format slot name.
func ParseSlotName(s string) (SlotName, error) {
	if _, found := slotRegistry[SlotName(s)]; !found {
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown document slot: %q", s))
	}
	return SlotName(s), nil
}

// KindOf returns the addressing kind of a known slot.
func KindOf(name SlotName) (SlotKind, error) {
	def, found := slotRegistry[name]
	if !found {
		return 0, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown document slot: %q", name))
	}
	return def.kind, nil
}

func validateAttachment(doc *DocumentAttachment) error {
	if doc == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "attachment is required")
	}
	return doc.Validate()
}

// SetSingleSlot replaces exactly one single-attachment slot. It returns the
// attachment previously occupying the slot, if any, so the caller can
// release its blob.
func (r *Registration) SetSingleSlot(name SlotName, doc *DocumentAttachment, now time.Time) (*DocumentAttachment, error) {
	def, found := slotRegistry[name]
	if !found || def.kind != SlotKindSingle {
		return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%q is not a single-document slot", name))
	}
	if err := validateAttachment(doc); err != nil {
		return nil, err
	}
	field := def.single(r)
	previous := *field
	*field = doc.Clone()
	r.Touch(now)
	return previous, nil
}

// ClearSingleSlot empties a single-attachment slot, returning the removed
// attachment. Clearing an already-empty slot is a no-op.
func (r *Registration) ClearSingleSlot(name SlotName, now time.Time) (*DocumentAttachment, error) {
	def, found := slotRegistry[name]
	if !found || def.kind != SlotKindSingle {
		return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%q is not a single-document slot", name))
	}
	field := def.single(r)
	previous := *field
	if previous == nil {
		return nil, nil
	}
	*field = nil
	r.Touch(now)
	return previous, nil
}

// SetIndexedSlot writes position index of an indexed slot, growing the list
// with nil placeholders when index is beyond the current length. Indices
// are stable identifiers, never compacted.
func (r *Registration) SetIndexedSlot(name SlotName, index int, doc *DocumentAttachment, now time.Time) (*DocumentAttachment, error) {
	def, found := slotRegistry[name]
	if !found || (def.kind != SlotKindIndexed && def.kind != SlotKindList) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%q is not an indexed slot", name))
	}
	if index < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidIndex, fmt.Sprintf("slot index must not be negative, got %d", index))
	}
	if err := validateAttachment(doc); err != nil {
		return nil, err
	}
	list := def.list(r)
	for len(*list) <= index {
		*list = append(*list, nil)
	}
	previous := (*list)[index]
	(*list)[index] = doc.Clone()
	r.Touch(now)
	return previous, nil
}

// AppendToList appends an attachment to an append-only slot, preserving all
// prior entries and their order.
func (r *Registration) AppendToList(name SlotName, doc *DocumentAttachment, now time.Time) error {
	def, found := slotRegistry[name]
	if !found || def.kind != SlotKindList {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%q is not an append-only slot", name))
	}
	if err := validateAttachment(doc); err != nil {
		return err
	}
	if name == SlotStep3AdditionalDoc && doc.Title == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "additional documents must carry a title")
	}
	list := def.list(r)
	*list = append(*list, doc.Clone())
	r.Touch(now)
	return nil
}

// RemoveFromList removes the list entry with the given attachment id.
// Removal is idempotent: an id that matches nothing is a no-op. The removed
// attachment is returned so the caller can release its blob.
func (r *Registration) RemoveFromList(name SlotName, matchID id.AttachmentID, now time.Time) (*DocumentAttachment, error) {
	def, found := slotRegistry[name]
	if !found || (def.kind != SlotKindList && def.kind != SlotKindIndexed) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%q is not a list slot", name))
	}
	list := def.list(r)
	for i, entry := range *list {
		if entry == nil || entry.ID != matchID {
			continue
		}
		removed := entry
		if def.kind == SlotKindIndexed {
			// Positional slots keep their index as a nil placeholder.
			(*list)[i] = nil
		} else {
			*list = append((*list)[:i], (*list)[i+1:]...)
		}
		r.Touch(now)
		return removed, nil
	}
	return nil, nil
}

// SetKeyedSlot inserts or overwrites the keyed entry without touching other
// keys. For the signed-additional slot the key must name a title the admin
// has actually published.
func (r *Registration) SetKeyedSlot(name SlotName, key string, doc *DocumentAttachment, now time.Time) (*DocumentAttachment, error) {
	def, found := slotRegistry[name]
	if !found || def.kind != SlotKindKeyed {
		return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%q is not a keyed slot", name))
	}
	if key == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "slot key cannot be empty")
	}
	if err := validateAttachment(doc); err != nil {
		return nil, err
	}
	if name == SlotStep3SignedAdditionalDoc && !r.hasAdditionalDocTitle(key) {
		return nil, dErrors.New(dErrors.CodePreconditionNotMet,
			fmt.Sprintf("no published additional document with title %q", key))
	}
	field := def.keyed(r)
	if *field == nil {
		*field = make(map[string]*DocumentAttachment, 1)
	}
	previous := (*field)[key]
	(*field)[key] = doc.Clone()
	r.Touch(now)
	return previous, nil
}

func (r *Registration) hasAdditionalDocTitle(title string) bool {
	for _, doc := range r.Step3AdditionalDocs {
		if doc != nil && doc.Title == title {
			return true
		}
	}
	return false
}

// MergeCustomerDocuments folds a partial customer bundle into the stored
// one field by field. Fields absent from the input are left untouched; a
// merge never replaces the whole bundle.
func (r *Registration) MergeCustomerDocuments(in CustomerDocuments, now time.Time) error {
	for title := range in.Step3SignedAdditionalDoc {
		if !r.hasAdditionalDocTitle(title) {
			return dErrors.New(dErrors.CodePreconditionNotMet,
				fmt.Sprintf("no published additional document with title %q", title))
		}
	}
	for _, doc := range []*DocumentAttachment{in.Form1, in.LetterOfEngagement, in.AOA, in.AddressProof} {
		if doc != nil {
			if err := doc.Validate(); err != nil {
				return err
			}
		}
	}
	for _, doc := range in.Form18 {
		if doc != nil {
			if err := doc.Validate(); err != nil {
				return err
			}
		}
	}
	for _, doc := range in.Step3SignedAdditionalDoc {
		if doc != nil {
			if err := doc.Validate(); err != nil {
				return err
			}
		}
	}
	r.CustomerDocuments.merge(in)
	r.Touch(now)
	return nil
}
