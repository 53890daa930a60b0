package router

import (
	"sync"
	"time"

	"github.com/foundryhq/foundry/internal/convo"
)

const defaultPruneInterval = 5 * time.Minute

// lazyPruner performs rate-limited conversation pruning. It runs at
// most once per interval to avoid excessive map iteration on the hot
// path.
type lazyPruner struct {
	mu       sync.Mutex
	cache    *convo.Cache
	laneLock *LaneLock
	maxIdle  time.Duration
	interval time.Duration
	lastRun  time.Time
	now      func() time.Time
}

func newLazyPruner(cache *convo.Cache, laneLock *LaneLock, maxIdle time.Duration) *lazyPruner {
	return &lazyPruner{
		cache:    cache,
		laneLock: laneLock,
		maxIdle:  maxIdle,
		interval: defaultPruneInterval,
		now:      time.Now,
	}
}

// TryPrune runs pruning if enough time has elapsed since the last run.
// Returns the number of conversations evicted, or 0 if rate-limited.
func (p *lazyPruner) TryPrune() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if now.Sub(p.lastRun) < p.interval {
		return 0
	}
	p.lastRun = now

	pruned := p.cache.PruneIdle(p.maxIdle)

	if p.laneLock != nil {
		active := make(map[convo.Key]struct{})
		for _, k := range p.cache.Keys() {
			active[k] = struct{}{}
		}
		p.laneLock.Cleanup(active)
	}

	return pruned
}
