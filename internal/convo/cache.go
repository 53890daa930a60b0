package convo

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/foundryhq/foundry/internal/state"
)

// DefaultMaxEntries bounds the in-memory cache.
const DefaultMaxEntries = 1024

// DefaultMaxHistory bounds per-conversation history retained in memory.
const DefaultMaxHistory = 200

// Cache keeps hot conversation contexts in memory, rehydrating from the
// durable store on miss and writing through on save. Eviction drops the
// least recently active entry once the bound is reached; evicted state
// survives in the store.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*Context

	store      Store
	maxEntries int
	maxHistory int
	logger     *slog.Logger

	now func() time.Time
}

// CacheOptions tunes a Cache. Zero values take defaults.
type CacheOptions struct {
	MaxEntries int
	MaxHistory int
}

// NewCache creates a Cache over an optional durable store. A nil store
// makes the cache the only copy of conversation state.
func NewCache(store Store, opts CacheOptions, logger *slog.Logger) *Cache {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = DefaultMaxHistory
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		entries:    make(map[Key]*Context),
		store:      store,
		maxEntries: opts.MaxEntries,
		maxHistory: opts.MaxHistory,
		logger:     logger,
		now:        time.Now,
	}
}

// GetOrCreate returns the context for key, loading it from the durable
// store on a cache miss and creating a fresh one when the store has no
// record either. New conversations start in the initial state.
func (c *Cache) GetOrCreate(ctx context.Context, key Key) (*Context, error) {
	c.mu.Lock()
	if cc, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return cc, nil
	}
	c.mu.Unlock()

	var cc *Context
	if c.store != nil {
		loaded, err := c.store.Get(ctx, key)
		switch {
		case err == nil:
			cc = loaded
		case errors.Is(err, ErrNotFound):
		default:
			return nil, err
		}
	}
	if cc == nil {
		cc = &Context{Key: key, State: state.Initial, LastActive: c.now()}
	}
	if !state.Valid(cc.State) {
		c.logger.Warn("convo: stored state unknown, resetting", "key", key.String(), "state", string(cc.State))
		cc.State = state.Initial
	}
	cc.TrimHistory(c.maxHistory)

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[key]; ok {
		return existing, nil
	}
	c.evictLocked()
	c.entries[key] = cc
	return cc, nil
}

// Save trims history and writes the context through to the durable store.
func (c *Cache) Save(ctx context.Context, cc *Context) error {
	cc.TrimHistory(c.maxHistory)
	cc.LastActive = c.now()
	if c.store == nil {
		return nil
	}
	return c.store.Put(ctx, cc)
}

// Drop removes a conversation from cache and store.
func (c *Cache) Drop(ctx context.Context, key Key) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	if c.store == nil {
		return nil
	}
	return c.store.Delete(ctx, key)
}

// PruneIdle evicts cached conversations inactive longer than maxIdle.
// It returns the number evicted. Durable copies are untouched.
func (c *Cache) PruneIdle(maxIdle time.Duration) int {
	cutoff := c.now().Add(-maxIdle)
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, cc := range c.entries {
		if cc.LastActive.Before(cutoff) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of cached conversations.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns the cached conversation keys.
func (c *Cache) Keys() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Key, 0, len(c.entries))
	for k := range c.entries {
		out = append(out, k)
	}
	return out
}

func (c *Cache) evictLocked() {
	if len(c.entries) < c.maxEntries {
		return
	}
	var oldest Key
	var oldestAt time.Time
	first := true
	for k, cc := range c.entries {
		if first || cc.LastActive.Before(oldestAt) {
			oldest, oldestAt, first = k, cc.LastActive, false
		}
	}
	if !first {
		delete(c.entries, oldest)
	}
}
