package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PeterGeers/myAdmin-sub005/internal/dateutils"
	"github.com/PeterGeers/myAdmin-sub005/internal/ledgererror"
	"github.com/PeterGeers/myAdmin-sub005/internal/logging"
	"github.com/PeterGeers/myAdmin-sub005/internal/models"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/shopspring/decimal"
)

const sqliteDriver = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS ledger_entries (
	id                 TEXT PRIMARY KEY,
	administration     TEXT NOT NULL,
	transaction_date   TEXT NOT NULL,
	description        TEXT NOT NULL DEFAULT '',
	amount             TEXT NOT NULL,
	debet              TEXT NOT NULL DEFAULT '',
	credit             TEXT NOT NULL DEFAULT '',
	reference_number   TEXT NOT NULL DEFAULT '',
	ref1               TEXT NOT NULL DEFAULT '',
	ref2               TEXT NOT NULL DEFAULT '',
	ref3               TEXT NOT NULL DEFAULT '',
	ref4               TEXT NOT NULL DEFAULT '',
	category           TEXT NOT NULL DEFAULT '',
	tax_classification TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_ledger_entries_admin_date
	ON ledger_entries (administration, transaction_date);

CREATE TABLE IF NOT EXISTS bank_accounts (
	administration TEXT NOT NULL,
	account        TEXT NOT NULL,
	PRIMARY KEY (administration, account)
);
`

const selectEntries = `
SELECT id, administration, transaction_date, description, amount, debet, credit,
       reference_number, ref1, ref2, ref3, ref4, category, tax_classification
FROM ledger_entries
WHERE administration = ?`

// SQLiteStore reads the ledger from a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	logger logging.Logger
}

// NewSQLiteStore opens (and if needed creates) the database at dbPath and
// bootstraps the schema.
func NewSQLiteStore(dbPath string, logger logging.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, &ledgererror.ValidationError{Field: "store.path", Reason: "must not be empty"}
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), models.PermissionDirectory); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections, and ":memory:" needs
	// exactly one to keep its data.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath, logger: logging.OrNop(logger)}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// FetchEntries returns the tenant's entries inside the range, ordered by date.
func (s *SQLiteStore) FetchEntries(ctx context.Context, tenant string, from, to time.Time) ([]models.LedgerEntry, error) {
	query := selectEntries
	args := []interface{}{tenant}
	if !from.IsZero() {
		query += " AND transaction_date >= ?"
		args = append(args, dateutils.ToISODate(from))
	}
	if !to.IsZero() {
		query += " AND transaction_date <= ?"
		args = append(args, dateutils.ToISODate(to))
	}
	query += " ORDER BY transaction_date, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.storeError("fetch entries", tenant, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.WithError(err).Warn("Failed to close rows")
		}
	}()

	var entries []models.LedgerEntry
	for rows.Next() {
		var (
			e      models.LedgerEntry
			date   string
			amount string
		)
		if err := rows.Scan(&e.ID, &e.Tenant, &date, &e.Description, &amount, &e.Debet, &e.Credit,
			&e.ReferenceNumber, &e.Ref1, &e.Ref2, &e.Ref3, &e.Ref4, &e.Category, &e.TaxClassification); err != nil {
			return nil, s.storeError("scan entry", tenant, err)
		}
		if e.Date, err = dateutils.ParseDay(date); err != nil {
			return nil, s.storeError("parse date of entry "+e.ID, tenant, err)
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, s.storeError("parse amount of entry "+e.ID, tenant, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storeError("iterate entries", tenant, err)
	}

	return entries, nil
}

// FetchKnownAccounts returns the tenant's bank-account codes.
func (s *SQLiteStore) FetchKnownAccounts(ctx context.Context, tenant string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT account FROM bank_accounts WHERE administration = ? ORDER BY account`, tenant)
	if err != nil {
		return nil, s.storeError("fetch known accounts", tenant, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.WithError(err).Warn("Failed to close rows")
		}
	}()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, s.storeError("scan account", tenant, err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storeError("iterate accounts", tenant, err)
	}
	return normalizeAccounts(codes), nil
}

// ImportEntries upserts ledger entries in one transaction. It is used by the
// import command and by tests; the pattern engine itself never writes.
func (s *SQLiteStore) ImportEntries(ctx context.Context, entries []models.LedgerEntry) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT OR REPLACE INTO ledger_entries (
	id, administration, transaction_date, description, amount, debet, credit,
	reference_number, ref1, ref2, ref3, ref4, category, tax_classification
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			s.logger.WithError(closeErr).Warn("Failed to close statement")
		}
	}()

	for i, e := range entries {
		id := e.ID
		if id == "" {
			id = fmt.Sprintf("%s-%s-%d", e.Tenant, dateutils.ToISODate(e.Date), i)
		}
		if _, err = stmt.ExecContext(ctx, id, e.Tenant, dateutils.ToISODate(e.Date), e.Description,
			e.Amount.String(), e.Debet, e.Credit, e.ReferenceNumber, e.Ref1, e.Ref2, e.Ref3, e.Ref4,
			e.Category, e.TaxClassification); err != nil {
			return fmt.Errorf("failed to insert entry %s: %w", id, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}

	s.logger.Info("Imported ledger entries",
		logging.Field{Key: logging.FieldCount, Value: len(entries)},
		logging.Field{Key: logging.FieldStoreDriver, Value: sqliteDriver})
	return nil
}

// AddKnownAccounts registers bank-account codes for a tenant.
func (s *SQLiteStore) AddKnownAccounts(ctx context.Context, tenant string, codes ...string) error {
	for _, code := range normalizeAccounts(codes) {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO bank_accounts (administration, account) VALUES (?, ?)`, tenant, code); err != nil {
			return fmt.Errorf("failed to add bank account %s: %w", code, err)
		}
	}
	return nil
}

func (s *SQLiteStore) storeError(op, tenant string, err error) error {
	return &ledgererror.StoreError{Driver: sqliteDriver, Operation: op, Tenant: tenant, Err: err}
}
