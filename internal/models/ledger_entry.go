package models

import (
	"strings"
	"time"

	"github.com/PeterGeers/myAdmin-sub005/internal/ledgererror"

	"github.com/shopspring/decimal"
)

// LedgerEntry is one bookkeeping line as held by the ledger store. Entries
// are read-only to the pattern engine.
type LedgerEntry struct {
	ID                string          `csv:"ID" yaml:"id"`
	Tenant            string          `csv:"Administration" yaml:"administration"`
	Date              time.Time       `csv:"-" yaml:"-"`
	Description       string          `csv:"Description" yaml:"description"`
	Amount            decimal.Decimal `csv:"Amount" yaml:"amount"`
	Debet             string          `csv:"Debet" yaml:"debet"`
	Credit            string          `csv:"Credit" yaml:"credit"`
	ReferenceNumber   string          `csv:"ReferenceNumber" yaml:"reference_number"`
	Ref1              string          `csv:"Ref1" yaml:"ref1"`
	Ref2              string          `csv:"Ref2" yaml:"ref2"`
	Ref3              string          `csv:"Ref3" yaml:"ref3"`
	Ref4              string          `csv:"Ref4" yaml:"ref4"`
	Category          string          `csv:"Category" yaml:"category"`
	TaxClassification string          `csv:"TaxClassification" yaml:"tax_classification"`
}

// IsPosted reports whether the entry satisfies the posted-entry invariants:
// at least one account code and a nonzero amount.
func (e LedgerEntry) IsPosted() bool {
	hasAccount := strings.TrimSpace(e.Debet) != "" || strings.TrimSpace(e.Credit) != ""
	return hasAccount && !e.Amount.IsZero()
}

// Validate checks the posted-entry invariants and returns a
// *ledgererror.ValidationError naming the first violated one.
func (e LedgerEntry) Validate() error {
	if strings.TrimSpace(e.Tenant) == "" {
		return &ledgererror.ValidationError{Field: "administration", Reason: "must not be empty"}
	}
	if strings.TrimSpace(e.Debet) == "" && strings.TrimSpace(e.Credit) == "" {
		return &ledgererror.ValidationError{Field: "debet/credit", Reason: "both account codes are blank"}
	}
	if e.Amount.IsZero() {
		return &ledgererror.ValidationError{Field: "amount", Reason: "must be nonzero"}
	}
	return nil
}
