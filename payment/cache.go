package payment

import (
	"context"
	"sync"
	"time"

	"github.com/warp/fee-engine/period"
)

// DefaultCacheTTL bounds how long an active-contract lookup is reused.
const DefaultCacheTTL = 30 * time.Second

// ContractCache caches active-contract lookups per client. Any contract write
// must Invalidate the owning client.
type ContractCache interface {
	Get(ctx context.Context, clientID ClientID) (Contract, bool)
	Set(ctx context.Context, c Contract)
	Invalidate(ctx context.Context, clientID ClientID)
}

// =============================================================================
// MEMORY CACHE - Process-local TTL cache
// =============================================================================

type cacheEntry struct {
	contract Contract
	expires  time.Time
}

// MemoryCache is a process-local ContractCache.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   period.Clock
	entries map[ClientID]cacheEntry
}

// NewMemoryCache builds a cache whose entries live for ttl.
func NewMemoryCache(ttl time.Duration, clock period.Clock) *MemoryCache {
	if clock == nil {
		clock = period.SystemClock{}
	}
	return &MemoryCache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[ClientID]cacheEntry),
	}
}

func (m *MemoryCache) Get(_ context.Context, clientID ClientID) (Contract, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[clientID]
	if !ok {
		return Contract{}, false
	}
	if !m.clock.Now().Before(e.expires) {
		delete(m.entries, clientID)
		return Contract{}, false
	}
	return e.contract, true
}

func (m *MemoryCache) Set(_ context.Context, c Contract) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[c.ClientID] = cacheEntry{contract: c, expires: m.clock.Now().Add(m.ttl)}
}

func (m *MemoryCache) Invalidate(_ context.Context, clientID ClientID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, clientID)
}

// NoCache disables caching.
type NoCache struct{}

func (NoCache) Get(context.Context, ClientID) (Contract, bool) { return Contract{}, false }
func (NoCache) Set(context.Context, Contract)                  {}
func (NoCache) Invalidate(context.Context, ClientID)           {}
