package patterns

import (
	"strings"

	"github.com/PeterGeers/myAdmin-sub005/internal/accounts"
	"github.com/PeterGeers/myAdmin-sub005/internal/logging"
	"github.com/PeterGeers/myAdmin-sub005/internal/models"
	"github.com/PeterGeers/myAdmin-sub005/internal/textutils"
)

// PredictorOptions configures a Predictor.
type PredictorOptions struct {
	// SaturationCount is the occurrence count at which confidence reaches 1.
	SaturationCount int
	// MinOccurrences is the smallest pattern count that may produce a prediction.
	MinOccurrences int
}

// Predictor fills blank fields of incoming transactions from a Snapshot.
// It never guesses: a field without a matching pattern stays blank.
type Predictor struct {
	opts   PredictorOptions
	logger logging.Logger
}

// NewPredictor creates a Predictor.
func NewPredictor(opts PredictorOptions, logger logging.Logger) *Predictor {
	if opts.MinOccurrences < 1 {
		opts.MinOccurrences = 1
	}
	return &Predictor{opts: opts, logger: logging.OrNop(logger)}
}

// Confidence maps an occurrence count to [0, 1]: count/saturation, capped at
// 1. It is non-decreasing in count. A non-positive saturation means every
// observed pattern is fully trusted.
func Confidence(count, saturation int) float64 {
	if count <= 0 {
		return 0
	}
	if saturation <= 0 || count >= saturation {
		return 1
	}
	return float64(count) / float64(saturation)
}

// Predict returns a result for each blank field of tx that a pattern in snap
// can answer. tx is not modified.
//
// The filled-in side decides which map applies: a bank account on the credit
// side answers a blank debit from the debit map and vice versa. Reference
// numbers are looked up per bank account, so they need a bank account on one
// side as well.
func (p *Predictor) Predict(snap *Snapshot, tx models.Transaction) map[models.Field]models.PredictionResult {
	results := make(map[models.Field]models.PredictionResult)
	if snap == nil || snap.Tenant != tx.Tenant {
		return results
	}

	verb := textutils.ExtractVerb(tx.Description, tx.Secondary, snap.VerbOptions)
	if verb == "" {
		return results
	}

	var bankAccount string
	switch snap.Classifier.Side(tx.Debet, tx.Credit) {
	case models.BankSideCredit:
		bankAccount = accounts.NormalizeCode(tx.Credit)
		if tx.IsBlank(models.FieldDebet) {
			if pattern, ok := snap.Debit(verb); ok {
				p.emit(results, models.FieldDebet, pattern)
			}
		}
	case models.BankSideDebit:
		bankAccount = accounts.NormalizeCode(tx.Debet)
		if tx.IsBlank(models.FieldCredit) {
			if pattern, ok := snap.Credit(verb); ok {
				p.emit(results, models.FieldCredit, pattern)
			}
		}
	default:
		return results
	}

	if tx.IsBlank(models.FieldReferenceNumber) {
		if pattern, ok := snap.Reference(bankAccount, verb); ok {
			p.emit(results, models.FieldReferenceNumber, pattern)
		}
	}

	return results
}

func (p *Predictor) emit(results map[models.Field]models.PredictionResult, field models.Field, pattern models.Pattern) {
	if pattern.Count < p.opts.MinOccurrences || strings.TrimSpace(pattern.Value) == "" {
		return
	}
	confidence := Confidence(pattern.Count, p.opts.SaturationCount)
	if confidence <= 0 {
		return
	}
	results[field] = models.PredictionResult{
		Field:       field,
		Value:       pattern.Value,
		Confidence:  confidence,
		Occurrences: pattern.Count,
	}
}

// PredictBatch predicts every transaction and returns updated copies with the
// predictions applied, plus per-field counts and the mean confidence.
func (p *Predictor) PredictBatch(snap *Snapshot, txs []models.Transaction) ([]models.Transaction, *models.PredictionStats) {
	stats := models.NewPredictionStats()
	out := make([]models.Transaction, len(txs))

	for i, tx := range txs {
		stats.IncrementTotal()
		updated := tx
		updated.Predictions = nil
		if len(tx.Predictions) > 0 {
			updated.Predictions = make(map[models.Field]models.PredictionResult, len(tx.Predictions))
			for f, r := range tx.Predictions {
				updated.Predictions[f] = r
			}
		}

		results := p.Predict(snap, tx)
		for _, field := range models.AllFields {
			result, ok := results[field]
			if ok && updated.Apply(result) {
				stats.Record(result)
			}
		}
		out[i] = updated
	}

	tenant := ""
	if snap != nil {
		tenant = snap.Tenant
	}
	stats.LogSummary(p.logger, tenant)

	return out, stats
}
