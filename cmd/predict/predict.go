// Package predict fills in blank transaction fields from learned patterns
package predict

import (
	"fmt"

	"github.com/PeterGeers/myAdmin-sub005/cmd/common"
	"github.com/PeterGeers/myAdmin-sub005/cmd/root"
	internalcommon "github.com/PeterGeers/myAdmin-sub005/internal/common"
	"github.com/PeterGeers/myAdmin-sub005/internal/logging"
	"github.com/PeterGeers/myAdmin-sub005/internal/models"

	"github.com/spf13/cobra"
)

var (
	inputFile  string
	outputFile string
)

// Cmd represents the predict command
var Cmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict blank debit, credit and reference fields of new transactions",
	Long: `Predict reads a CSV of incoming bank transactions for one administration,
fills in the blank Debet, Credit and ReferenceNumber fields that a learned
pattern can answer, and writes the result with a confidence per predicted
field. Fields without a matching pattern are left blank.

Example:
  myadmin-patterns predict --tenant Acme -i new.csv -o predicted.csv`,
	RunE: predictFunc,
}

func init() {
	Cmd.Flags().StringVarP(&inputFile, "input", "i", "", "Transactions CSV file")
	Cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output CSV file (default: stdout)")
	_ = Cmd.MarkFlagRequired("input")
}

func predictFunc(cmd *cobra.Command, args []string) error {
	tenantID, err := root.Tenant()
	if err != nil {
		return err
	}

	rows, err := internalcommon.ReadCSVFile[TransactionRow](inputFile, root.Log)
	if err != nil {
		return err
	}
	txs := make([]models.Transaction, 0, len(rows))
	for i, row := range rows {
		tx, err := row.ToTransaction()
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		txs = append(txs, tx)
	}

	c, err := common.OpenContainer()
	if err != nil {
		return err
	}
	defer common.CloseContainer(c)

	predicted, stats, err := c.GetService().PredictBatch(cmd.Context(), tenantID, txs)
	if err != nil {
		return err
	}

	out := make([]TransactionRow, len(predicted))
	for i, tx := range predicted {
		out[i] = FromTransaction(tx)
	}

	if outputFile == "" {
		return internalcommon.WriteCSV(cmd.OutOrStdout(), out, internalcommon.DefaultDelimiter)
	}
	if err := internalcommon.WriteCSVFile(out, outputFile, internalcommon.DefaultDelimiter, root.Log); err != nil {
		return err
	}
	root.Log.Info("Predictions written",
		logging.Field{Key: logging.FieldTenant, Value: tenantID},
		logging.Field{Key: logging.FieldCount, Value: stats.TotalPredictions()},
		logging.Field{Key: "file", Value: outputFile})
	return nil
}
