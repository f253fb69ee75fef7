// Package ledger provides read-only adapters over the ledger store: the
// system of record holding posted ledger entries and each tenant's known bank
// accounts. The pattern engine only ever reads through the Store interface.
package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/PeterGeers/myAdmin-sub005/internal/accounts"
	"github.com/PeterGeers/myAdmin-sub005/internal/config"
	"github.com/PeterGeers/myAdmin-sub005/internal/dateutils"
	"github.com/PeterGeers/myAdmin-sub005/internal/logging"
	"github.com/PeterGeers/myAdmin-sub005/internal/models"
)

// Store is the ledger store collaborator.
//
// FetchEntries returns every entry of tenant dated on or between from and to,
// ordered by date. A zero from or to leaves that side of the range open.
// FetchKnownAccounts returns the tenant's bank-account codes; an unknown
// tenant yields an empty list, not an error.
type Store interface {
	FetchEntries(ctx context.Context, tenant string, from, to time.Time) ([]models.LedgerEntry, error)
	FetchKnownAccounts(ctx context.Context, tenant string) ([]string, error)
	Close() error
}

// Open builds the store selected by cfg.Driver.
func Open(cfg config.StoreConfig, logger logging.Logger) (Store, error) {
	logger = logging.OrNop(logger)

	switch cfg.Driver {
	case config.DriverSQLite:
		return NewSQLiteStore(cfg.Path, logger)
	case config.DriverCSV:
		return NewCSVStore(cfg.Path, cfg.AccountsPath, logger), nil
	case config.DriverYAML:
		return NewYAMLStore(cfg.Path, cfg.AccountsPath, logger), nil
	case config.DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

// FindDataFile looks for a data file in the standard locations: the path as
// given, ./data/, ./database/ and $HOME/.myadmin/.
func FindDataFile(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if _, err := os.Stat(filename); err == nil {
			return filename, nil
		}
		return "", os.ErrNotExist
	}

	locations := []string{
		filename,
		filepath.Join("data", filename),
		filepath.Join("database", filename),
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(homeDir, ".myadmin", filename))
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}

	return "", os.ErrNotExist
}

// filterEntries keeps the entries of tenant inside the date range and sorts
// them by date, then ID.
func filterEntries(all []models.LedgerEntry, tenant string, from, to time.Time) []models.LedgerEntry {
	var out []models.LedgerEntry
	for _, e := range all {
		if e.Tenant != tenant || !dateutils.InRange(e.Date, from, to) {
			continue
		}
		out = append(out, e)
	}
	sortEntries(out)
	return out
}

func sortEntries(entries []models.LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].ID < entries[j].ID
	})
}

// normalizeAccounts trims, de-duplicates and sorts account codes.
func normalizeAccounts(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		c := accounts.NormalizeCode(code)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
