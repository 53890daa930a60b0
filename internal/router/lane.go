package router

import (
	"sync"

	"github.com/foundryhq/foundry/internal/convo"
)

// LaneLock serializes turns per conversation. Two messages for the same
// conversation key process one at a time; messages for different keys
// run concurrently.
//
// A global mutex protects the lane map; each lane has its own mutex for
// per-conversation serialization. The global mutex is held only briefly
// to look up or create the lane.
type LaneLock struct {
	mu    sync.Mutex
	lanes map[convo.Key]*lane
}

// lane stores per-conversation synchronization metadata. refs counts
// goroutines holding or waiting on the lane; stale marks lanes eligible
// for cleanup once refs drops to zero.
type lane struct {
	mu    sync.Mutex
	refs  int
	stale bool
}

// NewLaneLock creates a ready-to-use LaneLock.
func NewLaneLock() *LaneLock {
	return &LaneLock{
		lanes: make(map[convo.Key]*lane),
	}
}

// Acquire gets or creates the lane for key and locks it. The caller
// must Release with the same key when done.
func (l *LaneLock) Acquire(key convo.Key) {
	l.mu.Lock()
	ln, ok := l.lanes[key]
	if !ok {
		ln = &lane{}
		l.lanes[key] = ln
	}
	ln.refs++
	ln.stale = false
	l.mu.Unlock()

	// Lock outside the global mutex so other conversations are not
	// blocked while this one waits.
	ln.mu.Lock()
}

// Release unlocks the lane for key.
func (l *LaneLock) Release(key convo.Key) {
	l.mu.Lock()
	ln, ok := l.lanes[key]
	if !ok {
		l.mu.Unlock()
		return
	}
	ln.refs--
	if ln.refs == 0 && ln.stale {
		delete(l.lanes, key)
	}
	l.mu.Unlock()

	ln.mu.Unlock()
}

// Cleanup removes lanes whose conversations are no longer cached,
// keeping the lane map bounded.
func (l *LaneLock) Cleanup(activeKeys map[convo.Key]struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, ln := range l.lanes {
		if _, active := activeKeys[key]; !active {
			ln.stale = true
			if ln.refs == 0 {
				delete(l.lanes, key)
			}
			continue
		}
		ln.stale = false
	}
}
