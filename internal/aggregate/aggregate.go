// Package aggregate answers grouped financial-summary queries from in-memory
// snapshots of each tenant's raw ledger rows.
package aggregate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PeterGeers/myAdmin-sub005/internal/dateutils"
	"github.com/PeterGeers/myAdmin-sub005/internal/ledgererror"
	"github.com/PeterGeers/myAdmin-sub005/internal/logging"
	"github.com/PeterGeers/myAdmin-sub005/internal/models"

	"github.com/shopspring/decimal"
)

// Mode selects how Query.Year is applied.
type Mode string

// Query modes
const (
	// ModeExact sums entries dated in the given year (profit and loss).
	ModeExact Mode = "exact"
	// ModeUpTo sums entries dated in or before the given year (balance).
	ModeUpTo Mode = "up-to"
)

// EntrySource is the slice of the ledger store the loader reads from.
type EntrySource interface {
	FetchEntries(ctx context.Context, tenant string, from, to time.Time) ([]models.LedgerEntry, error)
}

// Snapshot is one tenant's raw ledger rows, held read-only in memory.
type Snapshot struct {
	Tenant   string
	Entries  []models.LedgerEntry
	From     time.Time
	LoadedAt time.Time
}

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	// LookbackYears limits the snapshot to the current and that many previous
	// calendar years; zero loads the full history.
	LookbackYears int
	// Now overrides the clock; nil uses time.Now.
	Now func() time.Time
}

// Loader builds snapshots from the ledger store.
type Loader struct {
	source EntrySource
	opts   LoaderOptions
	logger logging.Logger
}

// NewLoader creates a Loader.
func NewLoader(source EntrySource, opts LoaderOptions, logger logging.Logger) *Loader {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Loader{source: source, opts: opts, logger: logging.OrNop(logger)}
}

// Load fetches the tenant's rows in one store call.
func (l *Loader) Load(ctx context.Context, tenant string) (*Snapshot, error) {
	if strings.TrimSpace(tenant) == "" {
		return nil, ledgererror.ErrNoTenant
	}

	now := l.opts.Now()
	var from time.Time
	if l.opts.LookbackYears > 0 {
		from, _ = dateutils.YearBounds(now.Year() - l.opts.LookbackYears)
	}

	entries, err := l.source.FetchEntries(ctx, tenant, from, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ledger entries: %w", err)
	}

	own := make([]models.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if e.Tenant == tenant {
			own = append(own, e)
		}
	}
	if dropped := len(entries) - len(own); dropped > 0 {
		l.logger.Warn("Dropped ledger rows of another tenant",
			logging.Field{Key: logging.FieldTenant, Value: tenant},
			logging.Field{Key: logging.FieldCount, Value: dropped})
	}

	l.logger.Debug("Loaded aggregate snapshot",
		logging.Field{Key: logging.FieldTenant, Value: tenant},
		logging.Field{Key: logging.FieldCount, Value: len(own)})

	return &Snapshot{Tenant: tenant, Entries: own, From: from, LoadedAt: now}, nil
}

// Query describes one grouped-sum request.
type Query struct {
	Tenants []string
	Year    int
	Mode    Mode
	// Classification keeps only entries with this tax classification.
	Classification string
	// Category keeps only entries with this category.
	Category string
	// CategoryOnly groups by category alone; rows carry no classification.
	CategoryOnly bool
}

// Validate checks the query parameters.
func (q Query) Validate() error {
	if q.Year < 1 || q.Year > 9999 {
		return &ledgererror.ValidationError{Field: "year", Reason: fmt.Sprintf("out of range: %d", q.Year)}
	}
	switch q.Mode {
	case ModeExact, ModeUpTo, "":
	default:
		return &ledgererror.ValidationError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", q.Mode)}
	}
	return nil
}

func (q Query) matches(e models.LedgerEntry) bool {
	start, end := dateutils.YearBounds(q.Year)
	if q.Mode == ModeUpTo {
		start = time.Time{}
	}
	if !dateutils.InRange(e.Date, start, end) {
		return false
	}
	if q.Classification != "" && !strings.EqualFold(e.TaxClassification, q.Classification) {
		return false
	}
	if q.Category != "" && !strings.EqualFold(e.Category, q.Category) {
		return false
	}
	return true
}

type groupKey struct {
	category       string
	classification string
}

// Compute sums the entries of the snapshots matching q, grouped by category
// and tax classification, ordered by category then classification. Only
// snapshots of tenants listed in q.Tenants contribute, and within a snapshot
// only rows of that tenant.
func Compute(snapshots []*Snapshot, q Query) []models.AggregateRow {
	allowed := make(map[string]bool, len(q.Tenants))
	for _, t := range q.Tenants {
		allowed[t] = true
	}

	sums := make(map[groupKey]decimal.Decimal)
	for _, snap := range snapshots {
		if snap == nil || !allowed[snap.Tenant] {
			continue
		}
		for _, e := range snap.Entries {
			if e.Tenant != snap.Tenant || !q.matches(e) {
				continue
			}
			key := groupKey{category: e.Category, classification: e.TaxClassification}
			if q.CategoryOnly {
				key.classification = ""
			}
			sums[key] = sums[key].Add(e.Amount)
		}
	}

	rows := make([]models.AggregateRow, 0, len(sums))
	for key, amount := range sums {
		rows = append(rows, models.AggregateRow{
			Category:          key.category,
			TaxClassification: key.classification,
			Amount:            amount,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Category != rows[j].Category {
			return rows[i].Category < rows[j].Category
		}
		return rows[i].TaxClassification < rows[j].TaxClassification
	})
	return rows
}

// Total sums the amounts of rows.
func Total(rows []models.AggregateRow) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Amount)
	}
	return total
}
