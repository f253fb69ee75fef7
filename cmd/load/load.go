// Package load imports ledger entries into the SQLite ledger store
package load

import (
	"fmt"

	"github.com/PeterGeers/myAdmin-sub005/cmd/root"
	"github.com/PeterGeers/myAdmin-sub005/internal/common"
	"github.com/PeterGeers/myAdmin-sub005/internal/config"
	"github.com/PeterGeers/myAdmin-sub005/internal/ledger"
	"github.com/PeterGeers/myAdmin-sub005/internal/logging"
	"github.com/PeterGeers/myAdmin-sub005/internal/models"

	"github.com/spf13/cobra"
)

var (
	inputFile    string
	bankAccounts []string
)

// Cmd represents the load command
var Cmd = &cobra.Command{
	Use:   "load",
	Short: "Import a ledger CSV export into the SQLite ledger store",
	Long: `Load validates every row of a ledger CSV export and writes the rows into
the SQLite database configured as store.path. Rows with an existing ID are
replaced. --bank-account registers bank-account codes for the single --tenant
administration.

Example:
  myadmin-patterns load --tenant Acme -i ledger.csv --bank-account 1002`,
	RunE: loadFunc,
}

func init() {
	Cmd.Flags().StringVarP(&inputFile, "input", "i", "", "Ledger CSV file")
	Cmd.Flags().StringSliceVarP(&bankAccounts, "bank-account", "b", nil, "Bank-account code of the --tenant administration (repeatable)")
}

func loadFunc(cmd *cobra.Command, args []string) error {
	cfg := root.AppConfig
	if cfg == nil {
		var err error
		if cfg, err = root.LoadConfig(); err != nil {
			return err
		}
	}
	if cfg.Store.Driver != config.DriverSQLite {
		return fmt.Errorf("load requires the %s store driver, configured: %s", config.DriverSQLite, cfg.Store.Driver)
	}
	if inputFile == "" && len(bankAccounts) == 0 {
		return fmt.Errorf("nothing to load: pass --input and/or --bank-account")
	}

	entries, err := readEntries(inputFile)
	if err != nil {
		return err
	}

	store, err := ledger.NewSQLiteStore(cfg.Store.Path, root.Log)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if len(entries) > 0 {
		if err := store.ImportEntries(cmd.Context(), entries); err != nil {
			return err
		}
	}

	if len(bankAccounts) > 0 {
		tenantID, err := root.Tenant()
		if err != nil {
			return err
		}
		if err := store.AddKnownAccounts(cmd.Context(), tenantID, bankAccounts...); err != nil {
			return err
		}
		root.Log.Info("Bank accounts registered",
			logging.Field{Key: logging.FieldTenant, Value: tenantID},
			logging.Field{Key: logging.FieldCount, Value: len(bankAccounts)})
	}
	return nil
}

// readEntries parses and validates a ledger CSV file. An empty path yields
// no entries.
func readEntries(path string) ([]models.LedgerEntry, error) {
	if path == "" {
		return nil, nil
	}
	rows, err := common.ReadCSVFile[ledger.EntryRow](path, root.Log)
	if err != nil {
		return nil, err
	}

	entries := make([]models.LedgerEntry, 0, len(rows))
	for i, row := range rows {
		entry, err := row.ToEntry()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if err := entry.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
