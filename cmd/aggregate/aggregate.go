// Package aggregate answers grouped ledger sums from the aggregate cache
package aggregate

import (
	"github.com/PeterGeers/myAdmin-sub005/cmd/common"
	"github.com/PeterGeers/myAdmin-sub005/cmd/root"
	"github.com/PeterGeers/myAdmin-sub005/internal/aggregate"
	internalcommon "github.com/PeterGeers/myAdmin-sub005/internal/common"
	"github.com/PeterGeers/myAdmin-sub005/internal/models"

	"github.com/spf13/cobra"
)

var (
	year           int
	mode           string
	classification string
	category       string
	categoryOnly   bool
)

// Row is the CSV form of an aggregate row.
type Row struct {
	Category          string `csv:"Category"`
	TaxClassification string `csv:"TaxClassification"`
	Amount            string `csv:"Amount"`
}

// Cmd represents the aggregate command
var Cmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Sum ledger amounts per category and tax classification",
	Long: `Aggregate groups the ledger entries of the --tenant administrations by
category and tax classification and prints the sums as CSV. With --mode exact
only the given year is summed; with --mode up-to every year up to and
including it is.

Example:
  myadmin-patterns aggregate --tenant Acme --tenant Globex --year 2025`,
	RunE: aggregateFunc,
}

func init() {
	Cmd.Flags().IntVarP(&year, "year", "y", 0, "Fiscal year")
	Cmd.Flags().StringVarP(&mode, "mode", "m", string(aggregate.ModeExact), "Year mode: exact or up-to")
	Cmd.Flags().StringVar(&classification, "classification", "", "Only this tax classification")
	Cmd.Flags().StringVar(&category, "category", "", "Only this category")
	Cmd.Flags().BoolVar(&categoryOnly, "category-only", false, "Group by category only")
	_ = Cmd.MarkFlagRequired("year")
}

func aggregateFunc(cmd *cobra.Command, args []string) error {
	c, err := common.OpenContainer()
	if err != nil {
		return err
	}
	defer common.CloseContainer(c)

	rows, err := c.GetService().QueryAggregate(common.TenantContext(cmd.Context()), aggregate.Query{
		Tenants:        root.SharedFlags.Tenants,
		Year:           year,
		Mode:           aggregate.Mode(mode),
		Classification: classification,
		Category:       category,
		CategoryOnly:   categoryOnly,
	})
	if err != nil {
		return err
	}

	return internalcommon.WriteCSV(cmd.OutOrStdout(), ToRows(rows), internalcommon.DefaultDelimiter)
}

// ToRows converts aggregate rows and appends a total line.
func ToRows(rows []models.AggregateRow) []Row {
	out := make([]Row, 0, len(rows)+1)
	for _, r := range rows {
		out = append(out, Row{Category: r.Category, TaxClassification: r.TaxClassification, Amount: r.Amount.StringFixed(2)})
	}
	return append(out, Row{Category: "Total", Amount: aggregate.Total(rows).StringFixed(2)})
}
