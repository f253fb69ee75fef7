package ledger

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/PeterGeers/myAdmin-sub005/internal/ledgererror"
	"github.com/PeterGeers/myAdmin-sub005/internal/logging"
	"github.com/PeterGeers/myAdmin-sub005/internal/models"

	"gopkg.in/yaml.v3"
)

const yamlDriver = "yaml"

// LedgerFile is the YAML layout read by YAMLStore:
//
//	administrations:
//	  Acme:
//	    bank_accounts: ["1002"]
//	    entries:
//	      - id: "1"
//	        date: "2025-01-15"
//	        description: NETFLIX INTERNATIONAL
//	        amount: "-12.99"
//	        debet: "4700"
//	        credit: "1002"
type LedgerFile struct {
	Administrations map[string]AdministrationLedger `yaml:"administrations"`
}

// AdministrationLedger holds one tenant's slice of a LedgerFile.
type AdministrationLedger struct {
	BankAccounts []string   `yaml:"bank_accounts"`
	Entries      []EntryDoc `yaml:"entries"`
}

// EntryDoc is the YAML form of a ledger entry.
type EntryDoc struct {
	ID                string `yaml:"id"`
	Date              string `yaml:"date"`
	Description       string `yaml:"description"`
	Amount            string `yaml:"amount"`
	Debet             string `yaml:"debet"`
	Credit            string `yaml:"credit"`
	ReferenceNumber   string `yaml:"reference_number"`
	Ref1              string `yaml:"ref1,omitempty"`
	Ref2              string `yaml:"ref2,omitempty"`
	Ref3              string `yaml:"ref3,omitempty"`
	Ref4              string `yaml:"ref4,omitempty"`
	Category          string `yaml:"category"`
	TaxClassification string `yaml:"tax_classification"`
}

// YAMLStore reads a LedgerFile. Known accounts come from the file's
// bank_accounts lists, merged with an optional separate accounts file in the
// CSVStore format.
type YAMLStore struct {
	path         string
	accountsPath string
	logger       logging.Logger
}

// NewYAMLStore creates a YAMLStore.
func NewYAMLStore(path, accountsPath string, logger logging.Logger) *YAMLStore {
	return &YAMLStore{path: path, accountsPath: accountsPath, logger: logging.OrNop(logger)}
}

// FetchEntries returns the tenant's entries inside the range, ordered by date.
func (s *YAMLStore) FetchEntries(ctx context.Context, tenant string, from, to time.Time) ([]models.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := s.load()
	if err != nil {
		return nil, &ledgererror.StoreError{Driver: yamlDriver, Operation: "read ledger", Tenant: tenant, Err: err}
	}

	docs := file.Administrations[tenant].Entries
	all := make([]models.LedgerEntry, 0, len(docs))
	for i, doc := range docs {
		row := EntryRow{
			ID:                doc.ID,
			Tenant:            tenant,
			Date:              doc.Date,
			Description:       doc.Description,
			Amount:            doc.Amount,
			Debet:             doc.Debet,
			Credit:            doc.Credit,
			ReferenceNumber:   doc.ReferenceNumber,
			Ref1:              doc.Ref1,
			Ref2:              doc.Ref2,
			Ref3:              doc.Ref3,
			Ref4:              doc.Ref4,
			Category:          doc.Category,
			TaxClassification: doc.TaxClassification,
		}
		entry, err := row.ToEntry()
		if err != nil {
			return nil, &ledgererror.StoreError{Driver: yamlDriver, Operation: fmt.Sprintf("parse entry %d", i+1), Tenant: tenant, Err: err}
		}
		all = append(all, entry)
	}

	return filterEntries(all, tenant, from, to), nil
}

// FetchKnownAccounts returns the tenant's bank-account codes.
func (s *YAMLStore) FetchKnownAccounts(ctx context.Context, tenant string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := s.load()
	if err != nil {
		return nil, &ledgererror.StoreError{Driver: yamlDriver, Operation: "read ledger", Tenant: tenant, Err: err}
	}
	extra, err := loadAccountsFile(s.accountsPath, s.logger)
	if err != nil {
		return nil, &ledgererror.StoreError{Driver: yamlDriver, Operation: "read known accounts", Tenant: tenant, Err: err}
	}

	codes := append([]string{}, file.Administrations[tenant].BankAccounts...)
	codes = append(codes, extra[tenant]...)
	return normalizeAccounts(codes), nil
}

// Close is a no-op.
func (s *YAMLStore) Close() error {
	return nil
}

func (s *YAMLStore) load() (*LedgerFile, error) {
	path, err := FindDataFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("ledger file %s: %w", s.path, err)
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("error reading ledger file: %w", err)
	}

	var file LedgerFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error parsing ledger file: %w", err)
	}
	return &file, nil
}
