// Package engine exposes the pattern prediction and aggregate operations over
// the two per-tenant caches. A Service is constructed explicitly, owns its
// caches and must be closed at shutdown.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PeterGeers/myAdmin-sub005/internal/aggregate"
	"github.com/PeterGeers/myAdmin-sub005/internal/cache"
	"github.com/PeterGeers/myAdmin-sub005/internal/common"
	"github.com/PeterGeers/myAdmin-sub005/internal/config"
	"github.com/PeterGeers/myAdmin-sub005/internal/ledgererror"
	"github.com/PeterGeers/myAdmin-sub005/internal/logging"
	"github.com/PeterGeers/myAdmin-sub005/internal/models"
	"github.com/PeterGeers/myAdmin-sub005/internal/patterns"
	"github.com/PeterGeers/myAdmin-sub005/internal/tenant"
	"github.com/PeterGeers/myAdmin-sub005/internal/textutils"
)

// Source is the ledger store as seen by the engine.
type Source interface {
	patterns.EntrySource
}

// Service is the entry point for report routes and import pipelines.
type Service struct {
	patterns   *cache.Cache[*patterns.Snapshot]
	aggregates *cache.Cache[*aggregate.Snapshot]
	predictor  *patterns.Predictor
	resolver   tenant.Resolver
	logger     logging.Logger
	closed     atomic.Bool
}

// Options carries the settings a Service is built with.
type Options struct {
	Config *config.Config
	// Now overrides the clock of the miner, loader and caches; nil uses time.Now.
	Now func() time.Time
}

// NewService builds a Service reading from source and filtering aggregate
// queries through resolver.
func NewService(source Source, resolver tenant.Resolver, opts Options, logger logging.Logger) *Service {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger = logging.OrNop(logger)

	verbOpts := textutils.VerbOptions{
		StopWords: cfg.Verb.StopWords,
		MaxTokens: cfg.Verb.MaxTokens,
		MinLength: cfg.Verb.MinLength,
	}
	miner := patterns.NewMiner(source, patterns.MinerOptions{
		LookbackDays: cfg.Patterns.LookbackDays,
		Verb:         verbOpts,
		Now:          opts.Now,
	}, logger)
	loader := aggregate.NewLoader(source, aggregate.LoaderOptions{
		LookbackYears: cfg.Aggregate.LookbackYears,
		Now:           opts.Now,
	}, logger)

	cacheOpts := func(kind models.CacheKind) cache.Options {
		return cache.Options{
			Kind:              kind,
			TTL:               cfg.Cache.TTL,
			PopulationTimeout: cfg.Cache.PopulationTimeout,
			CleanupInterval:   cfg.Cache.CleanupInterval,
			Retry: common.RetryOptions{
				MaxAttempts:  cfg.Cache.RetryAttempts,
				InitialDelay: cfg.Cache.RetryInitialDelay,
				MaxDelay:     cfg.Cache.RetryMaxDelay,
			},
			Now: opts.Now,
		}
	}

	if resolver == nil {
		resolver = tenant.ContextResolver{}
	}

	return &Service{
		patterns:   cache.New(permanentOnInvalidTenant[*patterns.Snapshot](miner.Mine), cacheOpts(models.CacheKindPatterns), logger),
		aggregates: cache.New(permanentOnInvalidTenant[*aggregate.Snapshot](loader.Load), cacheOpts(models.CacheKindAggregate), logger),
		predictor: patterns.NewPredictor(patterns.PredictorOptions{
			SaturationCount: cfg.Patterns.SaturationCount,
			MinOccurrences:  cfg.Patterns.MinOccurrences,
		}, logger),
		resolver: resolver,
		logger:   logger,
	}
}

// permanentOnInvalidTenant stops the cache from retrying a load that can never
// succeed.
func permanentOnInvalidTenant[T any](load cache.Loader[T]) cache.Loader[T] {
	return func(ctx context.Context, tenantID string) (T, error) {
		v, err := load(ctx, tenantID)
		if errors.Is(err, ledgererror.ErrNoTenant) {
			return v, common.Permanent(err)
		}
		return v, err
	}
}

func (s *Service) check(tenantID string) error {
	if s.closed.Load() {
		return ledgererror.ErrClosed
	}
	if strings.TrimSpace(tenantID) == "" {
		return ledgererror.ErrNoTenant
	}
	return nil
}

func (s *Service) snapshot(ctx context.Context, tenantID string) (*patterns.Snapshot, error) {
	tenantID = strings.TrimSpace(tenantID)
	if err := s.check(tenantID); err != nil {
		return nil, err
	}
	return s.patterns.Get(ctx, tenantID)
}

// Predict returns a result per blank field of tx that a learned pattern can
// fill. Fields without a match are absent from the map. tx.Tenant, when set,
// must equal tenantID.
func (s *Service) Predict(ctx context.Context, tenantID string, tx models.Transaction) (map[models.Field]models.PredictionResult, error) {
	tenantID = strings.TrimSpace(tenantID)
	tx, err := bindTenant(tenantID, tx)
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.predictor.Predict(snap, tx), nil
}

// PredictBatch fills the blank fields of every transaction from one snapshot
// and reports what was predicted.
func (s *Service) PredictBatch(ctx context.Context, tenantID string, txs []models.Transaction) ([]models.Transaction, *models.PredictionStats, error) {
	tenantID = strings.TrimSpace(tenantID)
	bound := make([]models.Transaction, len(txs))
	for i, tx := range txs {
		b, err := bindTenant(tenantID, tx)
		if err != nil {
			return nil, nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		bound[i] = b
	}

	snap, err := s.snapshot(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	out, stats := s.predictor.PredictBatch(snap, bound)
	return out, stats, nil
}

func bindTenant(tenantID string, tx models.Transaction) (models.Transaction, error) {
	tx.Tenant = strings.TrimSpace(tx.Tenant)
	if tx.Tenant == "" {
		tx.Tenant = tenantID
		return tx, nil
	}
	if tx.Tenant != tenantID {
		return tx, &ledgererror.ValidationError{Field: "administration", Reason: "transaction belongs to another tenant"}
	}
	return tx, nil
}

// GetPatternSummary returns the pattern counts of a tenant.
func (s *Service) GetPatternSummary(ctx context.Context, tenantID string) (models.PatternSummary, error) {
	snap, err := s.snapshot(ctx, tenantID)
	if err != nil {
		return models.PatternSummary{}, err
	}
	return snap.Summary(), nil
}

// ListPatterns returns the tenant's patterns of the given roles (all roles
// when none are given), most frequent first within each role.
func (s *Service) ListPatterns(ctx context.Context, tenantID string, roles ...models.PatternRole) ([]models.Pattern, error) {
	for _, r := range roles {
		if !validRole(r) {
			return nil, &ledgererror.ValidationError{Field: "role", Reason: fmt.Sprintf("unknown pattern role %q", r)}
		}
	}
	snap, err := s.snapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return snap.Patterns(roles...), nil
}

func validRole(role models.PatternRole) bool {
	for _, r := range models.AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// QueryAggregate returns grouped sums over the cached snapshots of the
// requested tenants. Tenants the request is not authorized for are dropped
// without error.
func (s *Service) QueryAggregate(ctx context.Context, q aggregate.Query) ([]models.AggregateRow, error) {
	if s.closed.Load() {
		return nil, ledgererror.ErrClosed
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	authorized, err := s.resolver.AuthorizedTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve authorized tenants: %w", err)
	}
	allowed := tenant.Filter(q.Tenants, authorized)
	if dropped := len(tenant.Normalize(q.Tenants)) - len(allowed); dropped > 0 {
		s.logger.Debug("Dropped unauthorized tenants from aggregate query",
			logging.Field{Key: logging.FieldCount, Value: dropped})
	}

	snaps := make([]*aggregate.Snapshot, 0, len(allowed))
	for _, t := range allowed {
		snap, err := s.aggregates.Get(ctx, t)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}

	q.Tenants = allowed
	return aggregate.Compute(snaps, q), nil
}

// Invalidate marks one cache entry of a tenant stale, typically after a bulk
// import into the ledger.
func (s *Service) Invalidate(tenantID string, kind models.CacheKind) error {
	tenantID = strings.TrimSpace(tenantID)
	if err := s.check(tenantID); err != nil {
		return err
	}
	switch kind {
	case models.CacheKindPatterns:
		s.patterns.Invalidate(tenantID)
	case models.CacheKindAggregate:
		s.aggregates.Invalidate(tenantID)
	default:
		return &ledgererror.ValidationError{Field: "cache_kind", Reason: fmt.Sprintf("unknown cache kind %q", kind)}
	}
	return nil
}

// InvalidateTenant marks both cache entries of a tenant stale.
func (s *Service) InvalidateTenant(tenantID string) error {
	tenantID = strings.TrimSpace(tenantID)
	if err := s.check(tenantID); err != nil {
		return err
	}
	s.patterns.Invalidate(tenantID)
	s.aggregates.Invalidate(tenantID)
	return nil
}

// InvalidateAll marks every entry of both caches stale.
func (s *Service) InvalidateAll() {
	s.patterns.InvalidateAll()
	s.aggregates.InvalidateAll()
}

// Warm populates both caches for the given tenants. It attempts every tenant
// and returns the joined errors.
func (s *Service) Warm(ctx context.Context, tenants ...string) error {
	var errs []error
	for _, t := range tenant.Normalize(tenants) {
		if err := s.check(t); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := s.patterns.Get(ctx, t); err != nil {
			errs = append(errs, err)
		}
		if _, err := s.aggregates.Get(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CacheStats reports hit rate, entry counts and populated tenants across both
// caches, plus the per-kind counters.
func (s *Service) CacheStats() models.CacheStats {
	kinds := []models.CacheKindStats{s.patterns.Stats(), s.aggregates.Stats()}

	var hits, misses uint64
	stats := models.CacheStats{Kinds: kinds}
	populated := make(map[string]bool)
	for _, k := range kinds {
		hits += k.Hits
		misses += k.Misses
		stats.MemoryEntries += k.Entries
		for _, t := range k.PopulatedTenants {
			populated[t] = true
		}
	}

	stats.HitRatePercent = cache.HitRate(hits, misses)
	stats.PopulatedTenants = make([]string, 0, len(populated))
	for t := range populated {
		stats.PopulatedTenants = append(stats.PopulatedTenants, t)
	}
	sort.Strings(stats.PopulatedTenants)
	return stats
}

// CacheEntries describes every entry of both caches.
func (s *Service) CacheEntries() []cache.EntryInfo {
	return append(s.patterns.Entries(), s.aggregates.Entries()...)
}

// CacheState returns the state of one tenant's entry in one cache.
func (s *Service) CacheState(tenantID string, kind models.CacheKind) models.CacheState {
	tenantID = strings.TrimSpace(tenantID)
	if kind == models.CacheKindAggregate {
		return s.aggregates.State(tenantID)
	}
	return s.patterns.State(tenantID)
}

// Close stops both caches. The Service cannot be used afterwards.
func (s *Service) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return errors.Join(s.patterns.Close(), s.aggregates.Close())
}
