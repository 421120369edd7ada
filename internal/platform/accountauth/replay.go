package accountauth

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/lru"
)

const defaultReplayCapacity = 1 << 16

// ReplayGuard remembers accepted signed requests until their signing window
// closes, so a captured request cannot be sent a second time. It holds at most
// capacity entries; under heavier load the oldest live entries are evicted.
type ReplayGuard struct {
	mu   sync.Mutex
	seen lru.BasicLRU[common.Hash, time.Time]
}

func NewReplayGuard(capacity int) *ReplayGuard {
	if capacity <= 0 {
		capacity = defaultReplayCapacity
	}
	return &ReplayGuard{seen: lru.NewBasicLRU[common.Hash, time.Time](capacity)}
}

// admit records key until expiresAt. It reports false when key was admitted
// before and its window has not closed.
func (g *ReplayGuard) admit(key common.Hash, expiresAt time.Time, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		_, until, ok := g.seen.GetOldest()
		if !ok || now.Before(until) {
			break
		}
		g.seen.RemoveOldest()
	}
	if until, ok := g.seen.Peek(key); ok && now.Before(until) {
		return false
	}
	g.seen.Add(key, expiresAt)
	return true
}

func (g *ReplayGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seen.Len()
}
