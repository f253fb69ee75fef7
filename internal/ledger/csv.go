package ledger

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/PeterGeers/myAdmin-sub005/internal/common"
	"github.com/PeterGeers/myAdmin-sub005/internal/dateutils"
	"github.com/PeterGeers/myAdmin-sub005/internal/ledgererror"
	"github.com/PeterGeers/myAdmin-sub005/internal/logging"
	"github.com/PeterGeers/myAdmin-sub005/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const csvDriver = "csv"

// EntryRow is the flat CSV form of a ledger entry. Dates accept any format
// understood by dateutils.ParseDate; amounts accept "1.234,56" style too.
type EntryRow struct {
	ID                string `csv:"ID"`
	Tenant            string `csv:"Administration"`
	Date              string `csv:"TransactionDate"`
	Description       string `csv:"Description"`
	Amount            string `csv:"Amount"`
	Debet             string `csv:"Debet"`
	Credit            string `csv:"Credit"`
	ReferenceNumber   string `csv:"ReferenceNumber"`
	Ref1              string `csv:"Ref1"`
	Ref2              string `csv:"Ref2"`
	Ref3              string `csv:"Ref3"`
	Ref4              string `csv:"Ref4"`
	Category          string `csv:"Category"`
	TaxClassification string `csv:"TaxClassification"`
}

// ToEntry converts the row into a LedgerEntry.
func (r EntryRow) ToEntry() (models.LedgerEntry, error) {
	date, err := dateutils.ParseDay(r.Date)
	if err != nil {
		return models.LedgerEntry{}, err
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		amount = models.ParseAmount(r.Amount)
	}
	return models.LedgerEntry{
		ID:                r.ID,
		Tenant:            strings.TrimSpace(r.Tenant),
		Date:              date,
		Description:       r.Description,
		Amount:            amount,
		Debet:             strings.TrimSpace(r.Debet),
		Credit:            strings.TrimSpace(r.Credit),
		ReferenceNumber:   strings.TrimSpace(r.ReferenceNumber),
		Ref1:              r.Ref1,
		Ref2:              r.Ref2,
		Ref3:              r.Ref3,
		Ref4:              r.Ref4,
		Category:          r.Category,
		TaxClassification: r.TaxClassification,
	}, nil
}

// CSVStore reads ledger entries from a CSV export and the known bank accounts
// from a YAML file mapping each administration to its account codes:
//
//	Acme:
//	  - "1002"
//	Globex: ["1100", "1101"]
//
// Files are re-read on every fetch; caching is the caller's concern.
type CSVStore struct {
	entriesPath  string
	accountsPath string
	logger       logging.Logger
}

// NewCSVStore creates a CSVStore. accountsPath may be empty, in which case no
// tenant has known accounts.
func NewCSVStore(entriesPath, accountsPath string, logger logging.Logger) *CSVStore {
	return &CSVStore{entriesPath: entriesPath, accountsPath: accountsPath, logger: logging.OrNop(logger)}
}

// FetchEntries returns the tenant's entries inside the range, ordered by date.
func (s *CSVStore) FetchEntries(ctx context.Context, tenant string, from, to time.Time) ([]models.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := FindDataFile(s.entriesPath)
	if err != nil {
		return nil, &ledgererror.StoreError{Driver: csvDriver, Operation: "locate " + s.entriesPath, Tenant: tenant, Err: err}
	}

	rows, err := common.ReadCSVFile[EntryRow](path, s.logger)
	if err != nil {
		return nil, &ledgererror.StoreError{Driver: csvDriver, Operation: "read entries", Tenant: tenant, Err: err}
	}

	all := make([]models.LedgerEntry, 0, len(rows))
	for i, row := range rows {
		if strings.TrimSpace(row.Tenant) != tenant {
			continue
		}
		entry, err := row.ToEntry()
		if err != nil {
			return nil, &ledgererror.StoreError{Driver: csvDriver, Operation: fmt.Sprintf("parse row %d", i+2), Tenant: tenant, Err: err}
		}
		all = append(all, entry)
	}

	return filterEntries(all, tenant, from, to), nil
}

// FetchKnownAccounts returns the tenant's bank-account codes.
func (s *CSVStore) FetchKnownAccounts(ctx context.Context, tenant string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	accounts, err := loadAccountsFile(s.accountsPath, s.logger)
	if err != nil {
		return nil, &ledgererror.StoreError{Driver: csvDriver, Operation: "read known accounts", Tenant: tenant, Err: err}
	}
	return normalizeAccounts(accounts[tenant]), nil
}

// Close is a no-op.
func (s *CSVStore) Close() error {
	return nil
}

// loadAccountsFile reads an administration -> account codes YAML map. A
// missing path or file yields an empty map.
func loadAccountsFile(path string, logger logging.Logger) (map[string][]string, error) {
	accounts := make(map[string][]string)
	if path == "" {
		return accounts, nil
	}

	resolved, err := FindDataFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("Known accounts file not found", logging.Field{Key: "file", Value: path})
			return accounts, nil
		}
		return nil, err
	}

	data, err := os.ReadFile(resolved) // #nosec G304 -- path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("error reading known accounts file: %w", err)
	}
	if err := yaml.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("error parsing known accounts file: %w", err)
	}
	return accounts, nil
}
