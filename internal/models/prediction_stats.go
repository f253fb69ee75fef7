package models

import (
	"github.com/PeterGeers/myAdmin-sub005/internal/logging"
)

// PredictionStats tracks what a batch prediction run filled in.
type PredictionStats struct {
	Total               int           // Number of transactions processed
	PredictionsPerField map[Field]int // Predictions made, per field
	confidenceSum       float64
	predictions         int
}

// NewPredictionStats creates an empty PredictionStats.
func NewPredictionStats() *PredictionStats {
	return &PredictionStats{
		PredictionsPerField: make(map[Field]int, len(AllFields)),
	}
}

// Record counts one prediction.
func (ps *PredictionStats) Record(result PredictionResult) {
	if ps.PredictionsPerField == nil {
		ps.PredictionsPerField = make(map[Field]int, len(AllFields))
	}
	ps.PredictionsPerField[result.Field]++
	ps.confidenceSum += result.Confidence
	ps.predictions++
}

// IncrementTotal increments the processed transaction count.
func (ps *PredictionStats) IncrementTotal() {
	ps.Total++
}

// TotalPredictions returns the number of predictions across all fields.
func (ps PredictionStats) TotalPredictions() int {
	return ps.predictions
}

// AverageConfidence returns the mean confidence across all predictions made,
// or 0 when nothing was predicted.
func (ps PredictionStats) AverageConfidence() float64 {
	if ps.predictions == 0 {
		return 0.0
	}
	return ps.confidenceSum / float64(ps.predictions)
}

// LogSummary logs a summary of the batch.
func (ps PredictionStats) LogSummary(logger logging.Logger, tenant string) {
	if logger == nil {
		return
	}

	logger.Info("Prediction summary",
		logging.Field{Key: logging.FieldTenant, Value: tenant},
		logging.Field{Key: "total_transactions", Value: ps.Total},
		logging.Field{Key: "debet_predictions", Value: ps.PredictionsPerField[FieldDebet]},
		logging.Field{Key: "credit_predictions", Value: ps.PredictionsPerField[FieldCredit]},
		logging.Field{Key: "reference_predictions", Value: ps.PredictionsPerField[FieldReferenceNumber]},
		logging.Field{Key: "average_confidence", Value: ps.AverageConfidence()},
	)
}
