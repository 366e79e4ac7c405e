package models

import (
	"github.com/shopspring/decimal"

	dErrors "regdesk/pkg/domain-errors"
)

// Shareholder is one shareholder row in the company-details step.
type Shareholder struct {
	Name string `json:"name"`
}

// Director is one director row in the company-details step. The signed
// Form 18 for director i lives at Form18[i] on the registration; the index is
// the association, so director rows are never compacted once documents exist.
type Director struct {
	Name string `json:"name"`
}

// CompanyDetails holds the step-2 data block. All fields are optional until
// the customer submits the step; DetailsApproved gates the step transition,
// not field presence.
type CompanyDetails struct {
	AddressLine1 string `json:"addressLine1,omitempty"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city,omitempty"`
	Province     string `json:"province,omitempty"`
	PostalCode   string `json:"postalCode,omitempty"`
	Country      string `json:"country,omitempty"`

	// SharePrice uses exact decimal arithmetic; never float.
	SharePrice       decimal.Decimal `json:"sharePrice"`
	ShareholderCount int             `json:"shareholderCount,omitempty"`
	Shareholders     []Shareholder   `json:"shareholders,omitempty"`
	DirectorCount    int             `json:"directorCount,omitempty"`
	Directors        []Director      `json:"directors,omitempty"`

	ImportsGoods  bool   `json:"importsGoods,omitempty"`
	ImportDetails string `json:"importDetails,omitempty"`
	ExportsGoods  bool   `json:"exportsGoods,omitempty"`
	ExportDetails string `json:"exportDetails,omitempty"`
}

// Validate rejects internally inconsistent company data. Counts are
// advisory UI fields; when set they must agree with the lists.
func (c CompanyDetails) Validate() error {
	if c.SharePrice.IsNegative() {
		return dErrors.New(dErrors.CodeValidation, "share price cannot be negative")
	}
	if c.ShareholderCount < 0 || c.DirectorCount < 0 {
		return dErrors.New(dErrors.CodeValidation, "shareholder and director counts cannot be negative")
	}
	if c.ShareholderCount > 0 && len(c.Shareholders) > 0 && c.ShareholderCount != len(c.Shareholders) {
		return dErrors.New(dErrors.CodeValidation, "shareholder count does not match the shareholder list")
	}
	if c.DirectorCount > 0 && len(c.Directors) > 0 && c.DirectorCount != len(c.Directors) {
		return dErrors.New(dErrors.CodeValidation, "director count does not match the director list")
	}
	for _, sh := range c.Shareholders {
		if sh.Name == "" {
			return dErrors.New(dErrors.CodeValidation, "shareholder name cannot be empty")
		}
	}
	for _, d := range c.Directors {
		if d.Name == "" {
			return dErrors.New(dErrors.CodeValidation, "director name cannot be empty")
		}
	}
	return nil
}

func (c CompanyDetails) clone() CompanyDetails {
	dup := c
	if c.Shareholders != nil {
		dup.Shareholders = append([]Shareholder(nil), c.Shareholders...)
	}
	if c.Directors != nil {
		dup.Directors = append([]Director(nil), c.Directors...)
	}
	return dup
}
