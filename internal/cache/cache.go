// Package cache implements the process-local, per-tenant cache shared by the
// pattern and aggregate caches.
//
// Each tenant has one entry moving through Empty -> Populating -> Populated ->
// Stale -> Populating. Reads of a fresh entry take only a read lock. A read of
// an empty or stale entry joins the single in-flight population for that
// tenant and blocks until it finishes; stale data is never returned. The
// population runs detached from the caller's context under its own timeout,
// so a caller giving up does not abort it for the other waiters. A failed
// population leaves the entry Empty and returns a retryable
// *ledgererror.PopulationError.
package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PeterGeers/myAdmin-sub005/internal/common"
	"github.com/PeterGeers/myAdmin-sub005/internal/ledgererror"
	"github.com/PeterGeers/myAdmin-sub005/internal/logging"
	"github.com/PeterGeers/myAdmin-sub005/internal/models"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Loader builds the payload for one tenant. It must honour ctx.
type Loader[T any] func(ctx context.Context, tenant string) (T, error)

// Options configures a Cache.
type Options struct {
	Kind models.CacheKind
	// TTL is how long a populated entry is served before it goes stale.
	TTL time.Duration
	// PopulationTimeout bounds one population including retries.
	PopulationTimeout time.Duration
	// CleanupInterval is the janitor period; zero disables the janitor.
	CleanupInterval time.Duration
	Retry           common.RetryOptions
	// Now overrides the clock; nil uses time.Now.
	Now func() time.Time
}

// record is one tenant's entry. Fields other than the counters are guarded by
// Cache.mu.
type record[T any] struct {
	state       models.CacheState
	payload     T
	populatedAt time.Time
	expiresAt   time.Time
	generation  uint64

	hits   atomic.Uint64
	misses atomic.Uint64
}

func (r *record[T]) fresh(now time.Time) bool {
	return r.state == models.CacheStatePopulated && now.Before(r.expiresAt)
}

// EntryInfo describes one tenant's entry.
type EntryInfo struct {
	Tenant      string            `yaml:"tenant"`
	Kind        models.CacheKind  `yaml:"kind"`
	State       models.CacheState `yaml:"state"`
	PopulatedAt time.Time         `yaml:"populated_at,omitempty"`
	ExpiresAt   time.Time         `yaml:"expires_at,omitempty"`
	Hits        uint64            `yaml:"hits"`
	Misses      uint64            `yaml:"misses"`
}

// Cache is a per-tenant cache of T values produced by a Loader.
type Cache[T any] struct {
	opts   Options
	loader Loader[T]
	logger logging.Logger

	mu      sync.RWMutex
	records map[string]*record[T]
	group   singleflight.Group

	hits        atomic.Uint64
	misses      atomic.Uint64
	populations atomic.Uint64
	failures    atomic.Uint64

	closed    atomic.Bool
	closeOnce sync.Once
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// New creates a cache and starts its janitor. Call Close to stop it.
func New[T any](loader Loader[T], opts Options, logger logging.Logger) *Cache[T] {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	if opts.PopulationTimeout <= 0 {
		opts.PopulationTimeout = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Cache[T]{
		opts:    opts,
		loader:  loader,
		logger:  logging.OrNop(logger).WithField(logging.FieldCacheKind, string(opts.Kind)),
		records: make(map[string]*record[T]),
		stopCh:  make(chan struct{}),
	}

	if opts.CleanupInterval > 0 {
		c.wg.Add(1)
		go c.janitor()
	}

	return c
}

// Kind returns the cache kind.
func (c *Cache[T]) Kind() models.CacheKind {
	return c.opts.Kind
}

// Get returns the tenant's payload, populating it first when the entry is
// empty or stale. ctx only bounds how long this caller waits.
func (c *Cache[T]) Get(ctx context.Context, tenant string) (T, error) {
	var zero T
	if c.closed.Load() {
		return zero, ledgererror.ErrClosed
	}
	if strings.TrimSpace(tenant) == "" {
		return zero, ledgererror.ErrNoTenant
	}

	c.mu.RLock()
	rec, ok := c.records[tenant]
	if ok && rec.fresh(c.opts.Now()) {
		payload := rec.payload
		rec.hits.Add(1)
		c.mu.RUnlock()
		c.hits.Add(1)
		return payload, nil
	}
	c.mu.RUnlock()

	c.misses.Add(1)
	c.mu.Lock()
	rec = c.recordLocked(tenant)
	rec.misses.Add(1)
	want := rec.generation
	c.mu.Unlock()

	for {
		ch := c.group.DoChan(tenant, func() (interface{}, error) {
			return c.populate(ctx, tenant)
		})

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				return zero, res.Err
			}
			f := res.Val.(flight[T])
			// A flight that started before an invalidation this caller
			// observed carries the old ledger; wait for a newer one.
			if f.generation < want {
				continue
			}
			return f.payload, nil
		}
	}
}

// flight is the result of one population and the generation it loaded.
type flight[T any] struct {
	payload    T
	generation uint64
}

// populate runs one population for tenant. It is only ever called through the
// singleflight group, so at most one runs per tenant at a time.
func (c *Cache[T]) populate(ctx context.Context, tenant string) (flight[T], error) {
	var zero T
	now := c.opts.Now()

	c.mu.Lock()
	rec := c.recordLocked(tenant)
	// A population that finished between our read and joining the group
	// has already refreshed the entry.
	if rec.fresh(now) {
		f := flight[T]{payload: rec.payload, generation: rec.generation}
		c.mu.Unlock()
		return f, nil
	}
	rec.state = models.CacheStatePopulating
	generation := rec.generation
	c.mu.Unlock()

	runID := uuid.NewString()
	logger := c.logger.WithFields(
		logging.Field{Key: logging.FieldTenant, Value: tenant},
		logging.Field{Key: logging.FieldRunID, Value: runID})
	logger.Debug("Populating cache entry")

	popCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.PopulationTimeout)
	defer cancel()

	start := time.Now()
	var payload T
	attempts, err := common.WithRetry(popCtx, logger, c.opts.Retry, func(ctx context.Context) error {
		var loadErr error
		payload, loadErr = c.loader(ctx, tenant)
		return loadErr
	})
	elapsed := time.Since(start)

	if err != nil {
		c.failures.Add(1)
		c.mu.Lock()
		if rec, ok := c.records[tenant]; ok {
			rec.state = models.CacheStateEmpty
			rec.payload = zero
			rec.populatedAt = time.Time{}
			rec.expiresAt = time.Time{}
		}
		c.mu.Unlock()

		logger.WithError(err).Error("Cache population failed",
			logging.Field{Key: logging.FieldAttempt, Value: attempts},
			logging.Field{Key: logging.FieldDuration, Value: elapsed.Milliseconds()})
		return flight[T]{}, &ledgererror.PopulationError{
			Tenant:   tenant,
			Kind:     string(c.opts.Kind),
			Attempts: attempts,
			Err:      err,
		}
	}

	c.populations.Add(1)
	populatedAt := c.opts.Now()
	result := flight[T]{payload: payload, generation: generation}

	if c.closed.Load() {
		return result, nil
	}

	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return result, nil
	}
	rec = c.recordLocked(tenant)
	rec.payload = payload
	rec.populatedAt = populatedAt
	rec.expiresAt = populatedAt.Add(c.opts.TTL)
	rec.state = models.CacheStatePopulated
	if rec.generation != generation {
		// Invalidated while loading: serve this result to the waiters but
		// repopulate on the next read.
		rec.state = models.CacheStateStale
	}
	c.mu.Unlock()

	logger.Info("Cache entry populated",
		logging.Field{Key: logging.FieldAttempt, Value: attempts},
		logging.Field{Key: logging.FieldDuration, Value: elapsed.Milliseconds()})
	return result, nil
}

func (c *Cache[T]) recordLocked(tenant string) *record[T] {
	rec, ok := c.records[tenant]
	if !ok {
		rec = &record[T]{state: models.CacheStateEmpty}
		c.records[tenant] = rec
	}
	return rec
}

// Invalidate marks the tenant's entry stale. The next read repopulates it; a
// population already running is published as stale.
func (c *Cache[T]) Invalidate(tenant string) {
	c.mu.Lock()
	rec, ok := c.records[tenant]
	if ok {
		rec.generation++
		if rec.state == models.CacheStatePopulated {
			rec.state = models.CacheStateStale
		}
	}
	c.mu.Unlock()

	if ok {
		c.logger.Info("Cache entry invalidated", logging.Field{Key: logging.FieldTenant, Value: tenant})
	}
}

// InvalidateAll marks every entry stale.
func (c *Cache[T]) InvalidateAll() {
	c.mu.Lock()
	for _, rec := range c.records {
		rec.generation++
		if rec.state == models.CacheStatePopulated {
			rec.state = models.CacheStateStale
		}
	}
	n := len(c.records)
	c.mu.Unlock()

	c.logger.Info("All cache entries invalidated", logging.Field{Key: logging.FieldCount, Value: n})
}

// State returns the tenant's entry state. An expired entry reports Stale.
func (c *Cache[T]) State(tenant string) models.CacheState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[tenant]
	if !ok {
		return models.CacheStateEmpty
	}
	return c.stateLocked(rec, c.opts.Now())
}

func (c *Cache[T]) stateLocked(rec *record[T], now time.Time) models.CacheState {
	if rec.state == models.CacheStatePopulated && !now.Before(rec.expiresAt) {
		return models.CacheStateStale
	}
	return rec.state
}

// Entries describes every entry, sorted by tenant.
func (c *Cache[T]) Entries() []EntryInfo {
	now := c.opts.Now()
	c.mu.RLock()
	out := make([]EntryInfo, 0, len(c.records))
	for tenant, rec := range c.records {
		out = append(out, EntryInfo{
			Tenant:      tenant,
			Kind:        c.opts.Kind,
			State:       c.stateLocked(rec, now),
			PopulatedAt: rec.populatedAt,
			ExpiresAt:   rec.expiresAt,
			Hits:        rec.hits.Load(),
			Misses:      rec.misses.Load(),
		})
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Tenant < out[j].Tenant })
	return out
}

// Stats returns the cache counters. Entries counts entries holding a payload;
// PopulatedTenants lists the tenants currently served from memory.
func (c *Cache[T]) Stats() models.CacheKindStats {
	stats := models.CacheKindStats{
		Kind:             c.opts.Kind,
		Hits:             c.hits.Load(),
		Misses:           c.misses.Load(),
		Populations:      c.populations.Load(),
		Failures:         c.failures.Load(),
		PopulatedTenants: []string{},
	}
	stats.HitRatePercent = HitRate(stats.Hits, stats.Misses)

	for _, info := range c.Entries() {
		switch info.State {
		case models.CacheStatePopulated:
			stats.Entries++
			stats.PopulatedTenants = append(stats.PopulatedTenants, info.Tenant)
		case models.CacheStateStale:
			stats.Entries++
		}
	}
	return stats
}

// HitRate returns hits as a percentage of all lookups, or 0 without lookups.
func HitRate(hits, misses uint64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// Sweep drops entries that are expired, invalidated or empty, releasing
// their payloads. Populating entries are kept. It returns the number dropped.
func (c *Cache[T]) Sweep() int {
	now := c.opts.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for tenant, rec := range c.records {
		switch c.stateLocked(rec, now) {
		case models.CacheStateStale, models.CacheStateEmpty:
			delete(c.records, tenant)
			removed++
		}
	}
	return removed
}

func (c *Cache[T]) janitor() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				c.logger.Debug("Evicted cache entries", logging.Field{Key: logging.FieldCount, Value: n})
			}
		}
	}
}

// Close stops the janitor and drops every entry. Further reads fail with
// ledgererror.ErrClosed. Close is idempotent.
func (c *Cache[T]) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.stopCh)
		c.wg.Wait()

		c.mu.Lock()
		c.records = make(map[string]*record[T])
		c.mu.Unlock()
	})
	return nil
}
