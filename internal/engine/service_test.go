package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/PeterGeers/myAdmin-sub005/internal/aggregate"
	"github.com/PeterGeers/myAdmin-sub005/internal/config"
	"github.com/PeterGeers/myAdmin-sub005/internal/ledger"
	"github.com/PeterGeers/myAdmin-sub005/internal/ledgererror"
	"github.com/PeterGeers/myAdmin-sub005/internal/logging"
	"github.com/PeterGeers/myAdmin-sub005/internal/models"
	"github.com/PeterGeers/myAdmin-sub005/internal/tenant"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockResolver implements tenant.Resolver for testing
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) AuthorizedTenants(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	tenants, _ := args.Get(0).([]string)
	return tenants, args.Error(1)
}

var fixedNow = time.Date(2025, time.June, 30, 12, 0, 0, 0, time.UTC)

func entry(id, tenantID string, date time.Time, description, debet, credit, amount, category string) models.LedgerEntry {
	return models.LedgerEntry{
		ID:          id,
		Tenant:      tenantID,
		Date:        date,
		Description: description,
		Amount:      decimal.RequireFromString(amount),
		Debet:       debet,
		Credit:      credit,
		Category:    category,
	}
}

func day(month time.Month, d int) time.Time {
	return time.Date(2025, month, d, 0, 0, 0, 0, time.UTC)
}

func newStore() *ledger.MemoryStore {
	store := ledger.NewMemoryStore()
	store.SetKnownAccounts("Acme", "1002")
	store.SetKnownAccounts("Globex", "1100")
	store.AddEntries(
		entry("a1", "Acme", day(time.January, 15), "NETFLIX.COM 12345", "", "1002", "12.99", "Subscriptions"),
		entry("a2", "Acme", day(time.February, 15), "NETFLIX INTERNATIONAL B.V.", "", "1002", "12.99", "Subscriptions"),
		entry("a3", "Acme", day(time.March, 15), "Netflix Int.", "4700", "1002", "12.99", "Subscriptions"),
		entry("a4", "Acme", day(time.April, 2), "SALARY APRIL", "1002", "8000", "3000", "Revenue"),
		entry("g1", "Globex", day(time.January, 3), "NETFLIX", "6000", "1100", "50000", "Secret"),
	)
	return store
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Patterns.SaturationCount = 10
	cfg.Patterns.MinOccurrences = 1
	cfg.Cache.TTL = time.Hour
	cfg.Cache.PopulationTimeout = 5 * time.Second
	cfg.Cache.CleanupInterval = 0
	cfg.Cache.RetryAttempts = 2
	cfg.Cache.RetryInitialDelay = time.Millisecond
	cfg.Cache.RetryMaxDelay = time.Millisecond
	cfg.Aggregate.LookbackYears = 0
	return cfg
}

func newTestService(t *testing.T, store *ledger.MemoryStore, resolver tenant.Resolver) (*Service, *logging.MockLogger) {
	t.Helper()
	logger := logging.NewMockLogger()
	svc := NewService(store, resolver, Options{
		Config: testConfig(),
		Now:    func() time.Time { return fixedNow },
	}, logger)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, logger
}

func TestService_PredictNetflix(t *testing.T) {
	svc, _ := newTestService(t, newStore(), nil)

	results, err := svc.Predict(context.Background(), "Acme", models.Transaction{
		Description: "NETFLIX.COM",
		Credit:      "1002",
		Amount:      decimal.RequireFromString("12.99"),
	})
	require.NoError(t, err)

	debet, ok := results[models.FieldDebet]
	require.True(t, ok)
	assert.Equal(t, "4700", debet.Value)
	assert.Equal(t, 3, debet.Occurrences)
	assert.InDelta(t, 0.3, debet.Confidence, 1e-9)
	assert.NotContains(t, results, models.FieldCredit)
}

func TestService_PredictValidation(t *testing.T) {
	svc, _ := newTestService(t, newStore(), nil)

	tests := []struct {
		name    string
		tenant  string
		tx      models.Transaction
		wantErr error
	}{
		{name: "missing tenant", tenant: " ", tx: models.Transaction{Description: "NETFLIX"}, wantErr: ledgererror.ErrNoTenant},
		{name: "foreign transaction", tenant: "Acme", tx: models.Transaction{Tenant: "Globex", Description: "NETFLIX"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Predict(context.Background(), tt.tenant, tt.tx)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			var verr *ledgererror.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestService_PredictBatch(t *testing.T) {
	svc, _ := newTestService(t, newStore(), nil)

	txs := []models.Transaction{
		{ID: "1", Description: "NETFLIX", Credit: "1002"},
		{ID: "2", Description: "UNKNOWN SHOP", Credit: "1002"},
		{ID: "3", Description: "NETFLIX", Debet: "4700", Credit: "1002"},
	}
	out, stats, err := svc.PredictBatch(context.Background(), "Acme", txs)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, "4700", out[0].Debet)
	assert.Equal(t, "Acme", out[0].Tenant)
	assert.Empty(t, out[1].Debet)
	assert.Equal(t, "4700", out[2].Debet)
	assert.Empty(t, txs[0].Debet, "input is not modified")

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.TotalPredictions())

	_, _, err = svc.PredictBatch(context.Background(), "Acme", []models.Transaction{{Tenant: "Globex"}})
	assert.ErrorContains(t, err, "transaction 0")
}

func TestService_ConcurrentFirstReadsPopulateOnce(t *testing.T) {
	store := newStore()
	store.Delay = 20 * time.Millisecond
	svc, _ := newTestService(t, store, nil)

	const callers = 64
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := svc.Predict(context.Background(), "Acme", models.Transaction{Description: "NETFLIX", Credit: "1002"})
			if err == nil && results[models.FieldDebet].Value != "4700" {
				err = errors.New("unexpected prediction")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, store.FetchEntriesCalls())

	stats := svc.CacheStats()
	require.Len(t, stats.Kinds, 2)
	assert.Equal(t, uint64(1), stats.Kinds[0].Populations)
	assert.Equal(t, uint64(callers), stats.Kinds[0].Hits+stats.Kinds[0].Misses)
}

func TestService_QueryAggregateTenantIsolation(t *testing.T) {
	svc, _ := newTestService(t, newStore(), nil)
	ctx := tenant.WithTenants(context.Background(), "Acme")

	rows, err := svc.QueryAggregate(ctx, aggregate.Query{Tenants: []string{"Acme", "Globex"}, Year: 2025, Mode: aggregate.ModeExact})
	require.NoError(t, err)

	for _, r := range rows {
		assert.NotEqual(t, "Secret", r.Category)
	}
	assert.Equal(t, "3038.97", aggregate.Total(rows).String())
	assert.Equal(t, models.CacheStateEmpty, svc.CacheState("Globex", models.CacheKindAggregate), "unauthorized tenant is never loaded")

	none, err := svc.QueryAggregate(context.Background(), aggregate.Query{Tenants: []string{"Acme"}, Year: 2025})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = svc.QueryAggregate(ctx, aggregate.Query{Tenants: []string{"Acme"}, Year: 0})
	var verr *ledgererror.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestService_QueryAggregateStaticResolver(t *testing.T) {
	svc, _ := newTestService(t, newStore(), tenant.NewStaticResolver("Acme", "Globex"))

	rows, err := svc.QueryAggregate(context.Background(), aggregate.Query{Tenants: []string{"Globex"}, Year: 2025, Mode: aggregate.ModeUpTo})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Secret", rows[0].Category)
}

func TestService_QueryAggregateResolver(t *testing.T) {
	tests := []struct {
		name       string
		authorized []string
		resolveErr error
		requested  []string
		wantTotal  string
		wantErr    string
	}{
		{name: "subset authorized", authorized: []string{"Acme"}, requested: []string{"Globex", "Acme"}, wantTotal: "3038.97"},
		{name: "nothing authorized", requested: []string{"Acme"}, wantTotal: "0"},
		{name: "resolver failure", resolveErr: errors.New("session expired"), requested: []string{"Acme"}, wantErr: "failed to resolve authorized tenants"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := new(MockResolver)
			resolver.On("AuthorizedTenants", mock.Anything).Return(tt.authorized, tt.resolveErr).Once()
			svc, _ := newTestService(t, newStore(), resolver)

			rows, err := svc.QueryAggregate(context.Background(), aggregate.Query{Tenants: tt.requested, Year: 2025})
			resolver.AssertExpectations(t)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, aggregate.Total(rows).String())
		})
	}
}

func TestService_Invalidate(t *testing.T) {
	store := newStore()
	svc, _ := newTestService(t, store, nil)
	ctx := context.Background()

	_, err := svc.GetPatternSummary(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, models.CacheStatePopulated, svc.CacheState("Acme", models.CacheKindPatterns))

	require.NoError(t, svc.Invalidate("Acme", models.CacheKindPatterns))
	assert.Equal(t, models.CacheStateStale, svc.CacheState("Acme", models.CacheKindPatterns))

	store.AddEntries(entry("a5", "Acme", day(time.May, 15), "NETFLIX", "4710", "1002", "12.99", "Subscriptions"))
	summary, err := svc.GetPatternSummary(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, 5, summary.TotalTransactions)
	assert.Equal(t, 2, store.FetchEntriesCalls())

	err = svc.Invalidate("Acme", models.CacheKind("bogus"))
	var verr *ledgererror.ValidationError
	assert.ErrorAs(t, err, &verr)

	assert.ErrorIs(t, svc.Invalidate("", models.CacheKindPatterns), ledgererror.ErrNoTenant)

	require.NoError(t, svc.InvalidateTenant("Acme"))
	assert.Equal(t, models.CacheStateStale, svc.CacheState("Acme", models.CacheKindPatterns))
}

func TestService_TenantIsTrimmed(t *testing.T) {
	store := newStore()
	svc, _ := newTestService(t, store, nil)
	ctx := context.Background()

	results, err := svc.Predict(ctx, " Acme ", models.Transaction{
		Tenant:      "Acme\t",
		Description: "NETFLIX.COM",
		Credit:      "1002",
	})
	require.NoError(t, err)
	assert.Equal(t, "4700", results[models.FieldDebet].Value)

	_, err = svc.GetPatternSummary(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, 1, store.FetchEntriesCalls(), "padded and plain names share one entry")
	assert.Equal(t, models.CacheStatePopulated, svc.CacheState(" Acme", models.CacheKindPatterns))

	require.NoError(t, svc.Invalidate("Acme ", models.CacheKindPatterns))
	assert.Equal(t, models.CacheStateStale, svc.CacheState("Acme", models.CacheKindPatterns))

	for _, e := range svc.CacheEntries() {
		assert.Equal(t, "Acme", e.Tenant)
	}
}

func TestService_PopulationFailure(t *testing.T) {
	store := newStore()
	store.FailNext(0, errors.New("connection refused"))
	svc, logger := newTestService(t, store, nil)

	_, err := svc.GetPatternSummary(context.Background(), "Acme")
	require.Error(t, err)

	var perr *ledgererror.PopulationError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Acme", perr.Tenant)
	assert.True(t, ledgererror.IsRetryable(err))
	assert.Equal(t, models.CacheStateEmpty, svc.CacheState("Acme", models.CacheKindPatterns))
	assert.True(t, logger.HasEntry("ERROR", "Cache population failed"))

	store.FailNext(-1, nil)
	summary, err := svc.GetPatternSummary(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme", summary.Tenant)
}

func TestService_ListPatterns(t *testing.T) {
	svc, _ := newTestService(t, newStore(), nil)

	all, err := svc.ListPatterns(context.Background(), "Acme")
	require.NoError(t, err)
	require.NotEmpty(t, all)
	for _, p := range all {
		assert.Equal(t, "Acme", p.Tenant)
	}

	debit, err := svc.ListPatterns(context.Background(), "Acme", models.RoleDebitUnknown)
	require.NoError(t, err)
	require.Len(t, debit, 1)
	assert.Equal(t, "NETFLIX", debit[0].Verb)

	_, err = svc.ListPatterns(context.Background(), "Acme", models.PatternRole("bogus"))
	var verr *ledgererror.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestService_WarmAndStats(t *testing.T) {
	svc, _ := newTestService(t, newStore(), nil)

	require.NoError(t, svc.Warm(context.Background(), "Globex", "Acme", "Acme"))

	stats := svc.CacheStats()
	assert.Equal(t, []string{"Acme", "Globex"}, stats.PopulatedTenants)
	assert.Equal(t, 4, stats.MemoryEntries)
	assert.Equal(t, 0.0, stats.HitRatePercent)

	_, err := svc.Predict(context.Background(), "Acme", models.Transaction{Description: "NETFLIX", Credit: "1002"})
	require.NoError(t, err)
	assert.InDelta(t, 20.0, svc.CacheStats().HitRatePercent, 1e-9)
	assert.Len(t, svc.CacheEntries(), 4)

	err = svc.Warm(context.Background(), "")
	assert.NoError(t, err, "blank tenants are skipped")
}

func TestService_Close(t *testing.T) {
	svc, _ := newTestService(t, newStore(), nil)

	require.NoError(t, svc.Close())
	require.NoError(t, svc.Close())

	_, err := svc.Predict(context.Background(), "Acme", models.Transaction{Description: "NETFLIX"})
	assert.ErrorIs(t, err, ledgererror.ErrClosed)
	_, err = svc.QueryAggregate(context.Background(), aggregate.Query{Tenants: []string{"Acme"}, Year: 2025})
	assert.ErrorIs(t, err, ledgererror.ErrClosed)
	assert.ErrorIs(t, svc.Warm(context.Background(), "Acme"), ledgererror.ErrClosed)
}
