package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PeterGeers/myAdmin-sub005/internal/models"
)

// MemoryStore is an in-process Store. It backs the memory driver and doubles
// as a test fake: it counts calls and can inject latency and failures.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  []models.LedgerEntry
	accounts map[string][]string

	// Delay is applied to every fetch; the wait honours the caller's context.
	Delay time.Duration

	// FetchEntriesError, when set, is returned by FetchEntries.
	FetchEntriesError error
	// FetchAccountsError, when set, is returned by FetchKnownAccounts.
	FetchAccountsError error

	failNext     atomic.Int64
	entryCalls   atomic.Int64
	accountCalls atomic.Int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string][]string)}
}

// AddEntries appends ledger entries.
func (m *MemoryStore) AddEntries(entries ...models.LedgerEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entries...)
}

// SetKnownAccounts replaces the bank-account codes of a tenant.
func (m *MemoryStore) SetKnownAccounts(tenant string, codes ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[tenant] = normalizeAccounts(codes)
}

// FailNext makes the next n FetchEntries calls fail with err.
func (m *MemoryStore) FailNext(n int, err error) {
	m.mu.Lock()
	m.FetchEntriesError = err
	m.mu.Unlock()
	m.failNext.Store(int64(n))
}

// FetchEntriesCalls returns how many times FetchEntries was called.
func (m *MemoryStore) FetchEntriesCalls() int {
	return int(m.entryCalls.Load())
}

// FetchAccountsCalls returns how many times FetchKnownAccounts was called.
func (m *MemoryStore) FetchAccountsCalls() int {
	return int(m.accountCalls.Load())
}

// FetchEntries returns the tenant's entries inside the range, ordered by date.
func (m *MemoryStore) FetchEntries(ctx context.Context, tenant string, from, to time.Time) ([]models.LedgerEntry, error) {
	m.entryCalls.Add(1)
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FetchEntriesError != nil && m.consumeFailure() {
		return nil, m.FetchEntriesError
	}
	return filterEntries(m.entries, tenant, from, to), nil
}

// FetchKnownAccounts returns a copy of the tenant's bank-account codes.
func (m *MemoryStore) FetchKnownAccounts(ctx context.Context, tenant string) ([]string, error) {
	m.accountCalls.Add(1)
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FetchAccountsError != nil {
		return nil, m.FetchAccountsError
	}
	codes := m.accounts[tenant]
	result := make([]string, len(codes))
	copy(result, codes)
	return result, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

// consumeFailure reports whether an injected failure applies to this call.
// Without FailNext every call fails.
func (m *MemoryStore) consumeFailure() bool {
	for {
		n := m.failNext.Load()
		if n == 0 {
			return true
		}
		if n < 0 {
			return false
		}
		next := n - 1
		if next == 0 {
			next = -1
		}
		if m.failNext.CompareAndSwap(n, next) {
			return true
		}
	}
}

func (m *MemoryStore) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(m.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
