package patterns

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PeterGeers/myAdmin-sub005/internal/accounts"
	"github.com/PeterGeers/myAdmin-sub005/internal/dateutils"
	"github.com/PeterGeers/myAdmin-sub005/internal/ledgererror"
	"github.com/PeterGeers/myAdmin-sub005/internal/logging"
	"github.com/PeterGeers/myAdmin-sub005/internal/models"
	"github.com/PeterGeers/myAdmin-sub005/internal/textutils"
)

// EntrySource is the slice of the ledger store the miner reads from.
type EntrySource interface {
	accounts.Source
	FetchEntries(ctx context.Context, tenant string, from, to time.Time) ([]models.LedgerEntry, error)
}

// MinerOptions configures a Miner.
type MinerOptions struct {
	// LookbackDays is the trailing window mined; zero or less mines all history.
	LookbackDays int
	Verb         textutils.VerbOptions
	// Now overrides the clock; nil uses time.Now.
	Now func() time.Time
}

// Miner turns a tenant's recent ledger history into a Snapshot.
type Miner struct {
	source EntrySource
	opts   MinerOptions
	logger logging.Logger
}

// NewMiner creates a Miner reading from source.
func NewMiner(source EntrySource, opts MinerOptions, logger logging.Logger) *Miner {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Miner{source: source, opts: opts, logger: logging.OrNop(logger)}
}

// Mine fetches the tenant's known accounts and the entries of the lookback
// window, one store call each, and builds the pattern maps in a single pass.
func (m *Miner) Mine(ctx context.Context, tenant string) (*Snapshot, error) {
	if strings.TrimSpace(tenant) == "" {
		return nil, ledgererror.ErrNoTenant
	}

	start := time.Now()
	now := m.opts.Now()
	to := dateutils.TruncateDay(now)
	var from time.Time
	if m.opts.LookbackDays > 0 {
		from = dateutils.WindowStart(now, m.opts.LookbackDays)
	}

	classifier, err := accounts.Load(ctx, m.source, tenant, m.logger)
	if err != nil {
		return nil, err
	}

	entries, err := m.source.FetchEntries(ctx, tenant, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ledger entries: %w", err)
	}

	snap := Build(tenant, entries, classifier, m.opts.Verb)
	snap.MinedAt = now
	snap.summary.MinedAt = now
	snap.From = from
	snap.To = to

	m.logger.Debug("Mined ledger patterns",
		logging.Field{Key: logging.FieldTenant, Value: tenant},
		logging.Field{Key: "total_transactions", Value: snap.summary.TotalTransactions},
		logging.Field{Key: "patterns_discovered", Value: snap.summary.TotalPatterns},
		logging.Field{Key: logging.FieldDuration, Value: time.Since(start).Milliseconds()})

	return snap, nil
}

// valueTally counts one candidate value of a key.
type valueTally struct {
	count    int
	lastSeen time.Time
}

// keyTally accumulates every occurrence of a pattern key.
type keyTally struct {
	count    int
	lastSeen time.Time
	values   map[string]*valueTally
}

func (k *keyTally) observe(value string, date time.Time) {
	k.count++
	if date.After(k.lastSeen) {
		k.lastSeen = date
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if k.values == nil {
		k.values = make(map[string]*valueTally, 1)
	}
	v, ok := k.values[value]
	if !ok {
		v = &valueTally{}
		k.values[value] = v
	}
	v.count++
	if date.After(v.lastSeen) {
		v.lastSeen = date
	}
}

// best picks the value seen most often; ties go to the most recently seen
// value, then to the lowest value so the outcome never depends on map order.
func (k *keyTally) best() (string, bool) {
	var (
		bestValue string
		bestTally *valueTally
	)
	for value, t := range k.values {
		switch {
		case bestTally == nil,
			t.count > bestTally.count,
			t.count == bestTally.count && t.lastSeen.After(bestTally.lastSeen),
			t.count == bestTally.count && t.lastSeen.Equal(bestTally.lastSeen) && value < bestValue:
			bestValue, bestTally = value, t
		}
	}
	return bestValue, bestTally != nil
}

// Build mines entries into a Snapshot. It is pure: the same entries,
// classifier and options always yield the same maps. Entries of other
// tenants are ignored.
//
// A key's count is the number of entries carrying that key, whether or not the
// target field was filled in on them; the predicted value is the most frequent
// non-blank value. Keys that never had a value produce no pattern.
func Build(tenant string, entries []models.LedgerEntry, classifier *accounts.Classifier, verbOpts textutils.VerbOptions) *Snapshot {
	debit := make(map[string]*keyTally)
	credit := make(map[string]*keyTally)
	reference := make(map[referenceKey]*keyTally)

	summary := models.PatternSummary{
		Tenant:         tenant,
		PatternsByType: make(map[models.PatternRole]int, len(models.AllRoles)),
	}

	for _, e := range entries {
		if e.Tenant != tenant {
			continue
		}
		summary.TotalTransactions++

		side := classifier.Side(e.Debet, e.Credit)
		var bankAccount string
		switch side {
		case models.BankSideDebit:
			summary.BankOnDebit++
			bankAccount = accounts.NormalizeCode(e.Debet)
		case models.BankSideCredit:
			summary.BankOnCredit++
			bankAccount = accounts.NormalizeCode(e.Credit)
		default:
			continue
		}

		verb := textutils.ExtractVerb(e.Description, e.Ref1, verbOpts)
		if verb == "" {
			continue
		}

		if side == models.BankSideCredit {
			tallyFor(debit, verb).observe(e.Debet, e.Date)
		} else {
			tallyFor(credit, verb).observe(e.Credit, e.Date)
		}
		tallyFor(reference, referenceKey{bankAccount: bankAccount, verb: verb}).observe(e.ReferenceNumber, e.Date)
	}

	snap := &Snapshot{
		Tenant:      tenant,
		Classifier:  classifier,
		VerbOptions: verbOpts,
		debit:       make(map[string]models.Pattern, len(debit)),
		credit:      make(map[string]models.Pattern, len(credit)),
		reference:   make(map[referenceKey]models.Pattern, len(reference)),
	}

	for verb, t := range debit {
		if p, ok := toPattern(tenant, models.RoleDebitUnknown, "", verb, t); ok {
			snap.debit[verb] = p
		}
	}
	for verb, t := range credit {
		if p, ok := toPattern(tenant, models.RoleCreditUnknown, "", verb, t); ok {
			snap.credit[verb] = p
		}
	}
	for key, t := range reference {
		if p, ok := toPattern(tenant, models.RoleReference, key.bankAccount, key.verb, t); ok {
			snap.reference[key] = p
		}
	}

	summary.PatternsByType[models.RoleDebitUnknown] = len(snap.debit)
	summary.PatternsByType[models.RoleCreditUnknown] = len(snap.credit)
	summary.PatternsByType[models.RoleReference] = len(snap.reference)
	summary.TotalPatterns = snap.Len()
	snap.summary = summary

	return snap
}

func tallyFor[K comparable](m map[K]*keyTally, key K) *keyTally {
	t, ok := m[key]
	if !ok {
		t = &keyTally{}
		m[key] = t
	}
	return t
}

func toPattern(tenant string, role models.PatternRole, bankAccount, verb string, t *keyTally) (models.Pattern, bool) {
	value, ok := t.best()
	if !ok {
		return models.Pattern{}, false
	}
	return models.Pattern{
		Tenant:      tenant,
		Role:        role,
		BankAccount: bankAccount,
		Verb:        verb,
		Value:       value,
		Count:       t.count,
		LastSeen:    t.lastSeen,
	}, true
}
