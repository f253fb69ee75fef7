package predict

import (
	"strconv"
	"strings"

	"github.com/PeterGeers/myAdmin-sub005/internal/dateutils"
	"github.com/PeterGeers/myAdmin-sub005/internal/models"

	"github.com/shopspring/decimal"
)

// TransactionRow is the CSV form of an incoming bank transaction. On output
// the confidence columns report the predictions that filled a field.
type TransactionRow struct {
	ID                  string `csv:"ID"`
	Tenant              string `csv:"Administration"`
	Date                string `csv:"TransactionDate"`
	Description         string `csv:"Description"`
	Secondary           string `csv:"Ref1"`
	Amount              string `csv:"Amount"`
	Debet               string `csv:"Debet"`
	Credit              string `csv:"Credit"`
	ReferenceNumber     string `csv:"ReferenceNumber"`
	DebetConfidence     string `csv:"DebetConfidence"`
	CreditConfidence    string `csv:"CreditConfidence"`
	ReferenceConfidence string `csv:"ReferenceConfidence"`
}

// ToTransaction converts the row. An empty date stays zero.
func (r TransactionRow) ToTransaction() (models.Transaction, error) {
	tx := models.Transaction{
		ID:              r.ID,
		Tenant:          strings.TrimSpace(r.Tenant),
		Description:     r.Description,
		Secondary:       r.Secondary,
		Debet:           strings.TrimSpace(r.Debet),
		Credit:          strings.TrimSpace(r.Credit),
		ReferenceNumber: strings.TrimSpace(r.ReferenceNumber),
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		amount = models.ParseAmount(r.Amount)
	}
	tx.Amount = amount
	if strings.TrimSpace(r.Date) != "" {
		date, err := dateutils.ParseDay(r.Date)
		if err != nil {
			return models.Transaction{}, err
		}
		tx.Date = date
	}
	return tx, nil
}

// FromTransaction builds the output row of a predicted transaction.
func FromTransaction(tx models.Transaction) TransactionRow {
	row := TransactionRow{
		ID:              tx.ID,
		Tenant:          tx.Tenant,
		Description:     tx.Description,
		Secondary:       tx.Secondary,
		Amount:          tx.Amount.String(),
		Debet:           tx.Debet,
		Credit:          tx.Credit,
		ReferenceNumber: tx.ReferenceNumber,
	}
	if !tx.Date.IsZero() {
		row.Date = dateutils.ToISODate(tx.Date)
	}
	row.DebetConfidence = confidence(tx, models.FieldDebet)
	row.CreditConfidence = confidence(tx, models.FieldCredit)
	row.ReferenceConfidence = confidence(tx, models.FieldReferenceNumber)
	return row
}

func confidence(tx models.Transaction, field models.Field) string {
	result, ok := tx.Predictions[field]
	if !ok {
		return ""
	}
	return strconv.FormatFloat(result.Confidence, 'f', 2, 64)
}
