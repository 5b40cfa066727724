package ledger

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"golang.org/x/sync/semaphore"
)

type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

// LockManager hands out one mutual-exclusion domain per key. Entries exist
// only while someone holds or waits on them.
type LockManager struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
	timeout time.Duration
}

func NewLockManager(timeout time.Duration) *LockManager {
	return &LockManager{
		entries: make(map[string]*lockEntry),
		timeout: timeout,
	}
}

// Acquire takes every key in ascending order, each wait bounded by the
// manager's timeout. On failure nothing stays held. The returned release is
// safe to call more than once.
func (m *LockManager) Acquire(ctx context.Context, keys ...string) (func(), error) {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	held := make([]string, 0, len(sorted))
	releaseAll := func() {
		for i := len(held) - 1; i >= 0; i-- {
			m.release(held[i])
		}
	}

	for _, key := range sorted {
		if err := m.acquire(ctx, key); err != nil {
			releaseAll()
			return nil, err
		}
		held = append(held, key)
	}
	return sync.OnceFunc(releaseAll), nil
}

func (m *LockManager) acquire(ctx context.Context, key string) error {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &lockEntry{sem: semaphore.NewWeighted(1)}
		m.entries[key] = e
	}
	e.refs++
	m.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := e.sem.Acquire(waitCtx, 1); err != nil {
		m.unref(key, e)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("acquire %s: %w", key, domain.ErrLockTimeout)
	}
	return nil
}

func (m *LockManager) release(key string) {
	m.mu.Lock()
	e := m.entries[key]
	m.mu.Unlock()

	e.sem.Release(1)
	m.unref(key, e)
}

func (m *LockManager) unref(key string, e *lockEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.entries, key)
	}
}

// held reports how many keys currently have an entry.
func (m *LockManager) held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func accountKey(number string) string { return "account:" + number }

func cardKey(id string) string { return "card:" + id }
