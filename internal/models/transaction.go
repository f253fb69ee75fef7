package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is an incoming bank transaction awaiting completion. Blank
// Debet, Credit or ReferenceNumber fields are the candidates for prediction;
// the side already filled in is normally the tenant's bank account.
type Transaction struct {
	ID              string          `csv:"ID"`
	Tenant          string          `csv:"Administration"`
	Date            time.Time       `csv:"-"`
	Description     string          `csv:"Description"`
	Secondary       string          `csv:"Secondary"`
	Amount          decimal.Decimal `csv:"Amount"`
	Debet           string          `csv:"Debet"`
	Credit          string          `csv:"Credit"`
	ReferenceNumber string          `csv:"ReferenceNumber"`

	// Predictions holds the results attached by the predictor, keyed by field.
	Predictions map[Field]PredictionResult `csv:"-"`
}

// Value returns the current value of a predictable field.
func (t Transaction) Value(f Field) string {
	switch f {
	case FieldDebet:
		return t.Debet
	case FieldCredit:
		return t.Credit
	case FieldReferenceNumber:
		return t.ReferenceNumber
	default:
		return ""
	}
}

// IsBlank reports whether a predictable field is empty.
func (t Transaction) IsBlank(f Field) bool {
	return strings.TrimSpace(t.Value(f)) == ""
}

// BlankFields returns the predictable fields that are empty, in reporting order.
func (t Transaction) BlankFields() []Field {
	var blanks []Field
	for _, f := range AllFields {
		if t.IsBlank(f) {
			blanks = append(blanks, f)
		}
	}
	return blanks
}

// Apply fills a blank field with a prediction and records it. Filled fields
// are never overwritten.
func (t *Transaction) Apply(result PredictionResult) bool {
	if !t.IsBlank(result.Field) {
		return false
	}
	switch result.Field {
	case FieldDebet:
		t.Debet = result.Value
	case FieldCredit:
		t.Credit = result.Value
	case FieldReferenceNumber:
		t.ReferenceNumber = result.Value
	default:
		return false
	}
	if t.Predictions == nil {
		t.Predictions = make(map[Field]PredictionResult, len(AllFields))
	}
	t.Predictions[result.Field] = result
	return true
}
