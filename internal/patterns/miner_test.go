package patterns

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PeterGeers/myAdmin-sub005/internal/accounts"
	"github.com/PeterGeers/myAdmin-sub005/internal/ledger"
	"github.com/PeterGeers/myAdmin-sub005/internal/ledgererror"
	"github.com/PeterGeers/myAdmin-sub005/internal/logging"
	"github.com/PeterGeers/myAdmin-sub005/internal/models"
	"github.com/PeterGeers/myAdmin-sub005/internal/textutils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, time.June, 30, 12, 0, 0, 0, time.UTC)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func entry(id, tenant string, date time.Time, description, debet, credit, reference string) models.LedgerEntry {
	return models.LedgerEntry{
		ID:              id,
		Tenant:          tenant,
		Date:            date,
		Description:     description,
		Amount:          decimal.NewFromFloat(-12.99),
		Debet:           debet,
		Credit:          credit,
		ReferenceNumber: reference,
	}
}

// acmeEntries holds the NETFLIX history: credit is the bank account, the
// debit is filled in once.
func acmeEntries() []models.LedgerEntry {
	return []models.LedgerEntry{
		entry("1", "Acme", day(2025, time.January, 15), "NETFLIX.COM 12345", "", "1002", ""),
		entry("2", "Acme", day(2025, time.February, 15), "NETFLIX INTERNATIONAL B.V.", "", "1002", ""),
		entry("3", "Acme", day(2025, time.March, 15), "Netflix Int. INV-2025-03", "4700", "1002", "NFX-2025"),
		entry("4", "Acme", day(2025, time.April, 2), "SALARY APRIL", "1002", "8000", ""),
		entry("5", "Acme", day(2025, time.April, 20), "KPN B.V.", "4500", "1002", ""),
		entry("6", "Acme", day(2025, time.May, 20), "12345678", "4999", "1002", ""),
		entry("7", "Acme", day(2025, time.May, 21), "TRANSFER TO SAVINGS", "1003", "1002", ""),
	}
}

func newAcmeStore() *ledger.MemoryStore {
	store := ledger.NewMemoryStore()
	store.SetKnownAccounts("Acme", "1002", "1003")
	store.AddEntries(acmeEntries()...)
	store.AddEntries(entry("g1", "Globex", day(2025, time.January, 3), "NETFLIX", "6000", "1100", ""))
	return store
}

func newTestMiner(store *ledger.MemoryStore, logger logging.Logger) *Miner {
	return NewMiner(store, MinerOptions{
		LookbackDays: 730,
		Verb:         textutils.DefaultVerbOptions(),
		Now:          func() time.Time { return fixedNow },
	}, logger)
}

func TestMine_NetflixDebitPattern(t *testing.T) {
	miner := newTestMiner(newAcmeStore(), logging.NewMockLogger())

	snap, err := miner.Mine(context.Background(), "Acme")
	require.NoError(t, err)

	pattern, ok := snap.Debit("NETFLIX")
	require.True(t, ok)
	assert.Equal(t, "4700", pattern.Value)
	assert.Equal(t, 3, pattern.Count)
	assert.Equal(t, models.RoleDebitUnknown, pattern.Role)
	assert.Equal(t, "Acme", pattern.Tenant)
	assert.Equal(t, day(2025, time.March, 15), pattern.LastSeen)

	credit, ok := snap.Credit("SALARY")
	require.True(t, ok)
	assert.Equal(t, "8000", credit.Value)

	ref, ok := snap.Reference("1002", "NETFLIX")
	require.True(t, ok)
	assert.Equal(t, "NFX-2025", ref.Value)
	assert.Equal(t, 3, ref.Count)
	_, ok = snap.Reference("1003", "NETFLIX")
	assert.False(t, ok, "reference patterns are per bank account")

	assert.Equal(t, fixedNow, snap.MinedAt)
	assert.Equal(t, day(2023, time.July, 1), snap.From)
	assert.Equal(t, day(2025, time.June, 30), snap.To)
}

func TestMine_Summary(t *testing.T) {
	snap, err := newTestMiner(newAcmeStore(), nil).Mine(context.Background(), "Acme")
	require.NoError(t, err)

	summary := snap.Summary()
	assert.Equal(t, "Acme", summary.Tenant)
	assert.Equal(t, 7, summary.TotalTransactions)
	assert.Equal(t, 1, summary.BankOnDebit, "salary has the bank on the debit side")
	assert.Equal(t, 5, summary.BankOnCredit, "own-account transfer has no single bank side")
	assert.Equal(t, 2, summary.PatternsByType[models.RoleDebitUnknown], "NETFLIX and KPN")
	assert.Equal(t, 1, summary.PatternsByType[models.RoleCreditUnknown])
	assert.Equal(t, 1, summary.PatternsByType[models.RoleReference])
	assert.Equal(t, 4, summary.TotalPatterns)
	assert.Equal(t, fixedNow, summary.MinedAt)

	summary.PatternsByType[models.RoleReference] = 99
	assert.Equal(t, 1, snap.Summary().PatternsByType[models.RoleReference], "summary is returned as a copy")
}

func TestMine_TenantIsolation(t *testing.T) {
	logger := logging.NewMockLogger()
	snap, err := newTestMiner(newAcmeStore(), logger).Mine(context.Background(), "Globex")
	require.NoError(t, err)

	assert.Equal(t, 1, snap.Summary().TotalTransactions, "only Globex entries are read")
	assert.Equal(t, 0, snap.Summary().BankOnCredit, "Globex has no known bank accounts")
	_, ok := snap.Debit("NETFLIX")
	assert.False(t, ok)
	assert.NotEmpty(t, logger.GetEntriesByLevel("WARN"), "missing known accounts are logged")
}

func TestMine_Idempotent(t *testing.T) {
	miner := newTestMiner(newAcmeStore(), nil)

	first, err := miner.Mine(context.Background(), "Acme")
	require.NoError(t, err)
	second, err := miner.Mine(context.Background(), "Acme")
	require.NoError(t, err)

	assert.Equal(t, first.Patterns(), second.Patterns())
	assert.Equal(t, first.Summary(), second.Summary())
}

func TestMine_LookbackWindow(t *testing.T) {
	store := newAcmeStore()
	store.AddEntries(entry("old", "Acme", day(2020, time.January, 1), "ZIGGO", "4510", "1002", ""))

	snap, err := newTestMiner(store, nil).Mine(context.Background(), "Acme")
	require.NoError(t, err)
	_, ok := snap.Debit("ZIGGO")
	assert.False(t, ok, "entries older than the window are not mined")

	full := NewMiner(store, MinerOptions{Verb: textutils.DefaultVerbOptions(), Now: func() time.Time { return fixedNow }}, nil)
	snap, err = full.Mine(context.Background(), "Acme")
	require.NoError(t, err)
	_, ok = snap.Debit("ZIGGO")
	assert.True(t, ok, "zero lookback mines all history")
}

func TestMine_Errors(t *testing.T) {
	store := newAcmeStore()
	miner := newTestMiner(store, nil)

	_, err := miner.Mine(context.Background(), " ")
	assert.ErrorIs(t, err, ledgererror.ErrNoTenant)

	store.FetchEntriesError = errors.New("connection refused")
	_, err = miner.Mine(context.Background(), "Acme")
	assert.ErrorContains(t, err, "connection refused")

	store.FetchEntriesError = nil
	store.FetchAccountsError = errors.New("no such table")
	_, err = miner.Mine(context.Background(), "Acme")
	assert.ErrorContains(t, err, "failed to fetch known accounts")
}

func TestMine_SingleStoreCallEach(t *testing.T) {
	store := newAcmeStore()
	_, err := newTestMiner(store, nil).Mine(context.Background(), "Acme")
	require.NoError(t, err)

	assert.Equal(t, 1, store.FetchEntriesCalls())
	assert.Equal(t, 1, store.FetchAccountsCalls())
}

func TestBuild_TieBreak(t *testing.T) {
	classifier := accounts.NewClassifier("Acme", []string{"1002"})
	opts := textutils.DefaultVerbOptions()

	tests := []struct {
		name    string
		entries []models.LedgerEntry
		want    string
		count   int
	}{
		{
			name: "highest count wins",
			entries: []models.LedgerEntry{
				entry("1", "Acme", day(2025, time.January, 1), "ALBERT HEIJN 1234", "4000", "1002", ""),
				entry("2", "Acme", day(2025, time.January, 2), "ALBERT HEIJN 5678", "4000", "1002", ""),
				entry("3", "Acme", day(2025, time.May, 3), "ALBERT HEIJN 9999", "4010", "1002", ""),
			},
			want:  "4000",
			count: 3,
		},
		{
			name: "equal counts go to the most recent",
			entries: []models.LedgerEntry{
				entry("1", "Acme", day(2025, time.January, 1), "ALBERT HEIJN", "4000", "1002", ""),
				entry("2", "Acme", day(2025, time.March, 1), "ALBERT HEIJN", "4010", "1002", ""),
			},
			want:  "4010",
			count: 2,
		},
		{
			name: "input order does not matter",
			entries: []models.LedgerEntry{
				entry("2", "Acme", day(2025, time.March, 1), "ALBERT HEIJN", "4010", "1002", ""),
				entry("1", "Acme", day(2025, time.January, 1), "ALBERT HEIJN", "4000", "1002", ""),
			},
			want:  "4010",
			count: 2,
		},
		{
			name: "same day ties resolve deterministically",
			entries: []models.LedgerEntry{
				entry("1", "Acme", day(2025, time.March, 1), "ALBERT HEIJN", "4020", "1002", ""),
				entry("2", "Acme", day(2025, time.March, 1), "ALBERT HEIJN", "4010", "1002", ""),
			},
			want:  "4010",
			count: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Build("Acme", tt.entries, classifier, opts)
			pattern, ok := snap.Debit("ALBERT")
			require.True(t, ok)
			assert.Equal(t, tt.want, pattern.Value)
			assert.Equal(t, tt.count, pattern.Count)
		})
	}
}

func TestBuild_SkipsBlankOnlyKeysAndForeignEntries(t *testing.T) {
	classifier := accounts.NewClassifier("Acme", []string{"1002"})
	entries := []models.LedgerEntry{
		entry("1", "Acme", day(2025, time.January, 1), "GAMMA", "", "1002", ""),
		entry("2", "Globex", day(2025, time.January, 1), "PRAXIS", "4300", "1002", ""),
	}

	snap := Build("Acme", entries, classifier, textutils.DefaultVerbOptions())
	assert.Equal(t, 0, snap.Len())
	assert.Equal(t, 1, snap.Summary().TotalTransactions)
}

func TestBuild_EmptyClassifier(t *testing.T) {
	snap := Build("Acme", acmeEntries(), accounts.NewClassifier("Acme", nil), textutils.DefaultVerbOptions())
	assert.Equal(t, 0, snap.Len())
	assert.Equal(t, 7, snap.Summary().TotalTransactions)
	assert.Equal(t, 0, snap.Summary().BankOnCredit)
}

func TestSnapshot_Patterns(t *testing.T) {
	snap, err := newTestMiner(newAcmeStore(), nil).Mine(context.Background(), "Acme")
	require.NoError(t, err)

	all := snap.Patterns()
	require.Len(t, all, 4)
	assert.Equal(t, models.RoleDebitUnknown, all[0].Role)
	assert.Equal(t, "NETFLIX", all[0].Verb, "higher count first")
	assert.Equal(t, "KPN", all[1].Verb)
	assert.Equal(t, models.RoleCreditUnknown, all[2].Role)
	assert.Equal(t, models.RoleReference, all[3].Role)

	refs := snap.Patterns(models.RoleReference)
	require.Len(t, refs, 1)
	assert.Equal(t, "1002", refs[0].BankAccount)
}
