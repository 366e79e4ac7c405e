package models

// CustomerDocuments is the customer's signed counterpart bundle. Each field
// mirrors an admin-published template. The bundle is stored column-per-field
// and reassembled on read, so a partial upload touches exactly the columns
// it names.
type CustomerDocuments struct {
	Form1                    *DocumentAttachment            `json:"form1,omitempty"`
	LetterOfEngagement       *DocumentAttachment            `json:"letterOfEngagement,omitempty"`
	AOA                      *DocumentAttachment            `json:"aoa,omitempty"`
	Form18                   []*DocumentAttachment          `json:"form18,omitempty"`
	AddressProof             *DocumentAttachment            `json:"addressProof,omitempty"`
	Step3SignedAdditionalDoc map[string]*DocumentAttachment `json:"step3SignedAdditionalDoc,omitempty"`
}

func (c CustomerDocuments) clone() CustomerDocuments {
	return CustomerDocuments{
		Form1:                    c.Form1.Clone(),
		LetterOfEngagement:       c.LetterOfEngagement.Clone(),
		AOA:                      c.AOA.Clone(),
		Form18:                   cloneAttachmentSlice(c.Form18),
		AddressProof:             c.AddressProof.Clone(),
		Step3SignedAdditionalDoc: cloneAttachmentMap(c.Step3SignedAdditionalDoc),
	}
}

// IsEmpty reports whether no field of the bundle is set.
func (c CustomerDocuments) IsEmpty() bool {
	return c.Form1 == nil && c.LetterOfEngagement == nil && c.AOA == nil &&
		len(c.Form18) == 0 && c.AddressProof == nil && len(c.Step3SignedAdditionalDoc) == 0
}

// merge folds the set fields of in into c. Unset fields of in leave the
// existing value alone; form18 merges positionally so a signed document at
// index i never erases a sibling index; the signed-additional map merges
// key by key.
func (c *CustomerDocuments) merge(in CustomerDocuments) {
	if in.Form1 != nil {
		c.Form1 = in.Form1.Clone()
	}
	if in.LetterOfEngagement != nil {
		c.LetterOfEngagement = in.LetterOfEngagement.Clone()
	}
	if in.AOA != nil {
		c.AOA = in.AOA.Clone()
	}
	if in.AddressProof != nil {
		c.AddressProof = in.AddressProof.Clone()
	}
	for i, doc := range in.Form18 {
		if doc == nil {
			continue
		}
		for len(c.Form18) <= i {
			c.Form18 = append(c.Form18, nil)
		}
		c.Form18[i] = doc.Clone()
	}
	for title, doc := range in.Step3SignedAdditionalDoc {
		if doc == nil {
			continue
		}
		if c.Step3SignedAdditionalDoc == nil {
			c.Step3SignedAdditionalDoc = make(map[string]*DocumentAttachment, len(in.Step3SignedAdditionalDoc))
		}
		c.Step3SignedAdditionalDoc[title] = doc.Clone()
	}
}
