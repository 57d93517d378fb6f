package auth

import (
	"sync"
	"time"
)

// Cooldown admits a key at most once per window. State lives in process
// memory and is lost on restart.
type Cooldown struct {
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

func NewCooldown(window time.Duration) *Cooldown {
	return NewCooldownWithClock(window, time.Now)
}

// NewCooldownWithClock is test-only for deterministic timestamps.
func NewCooldownWithClock(window time.Duration, now func() time.Time) *Cooldown {
	return &Cooldown{window: window, now: now, last: make(map[string]time.Time)}
}

// Allow records key and reports whether its previous admission is older than the window.
func (c *Cooldown) Allow(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if prev, ok := c.last[key]; ok && now.Sub(prev) < c.window {
		return false
	}
	c.last[key] = now
	c.pruneLocked(now)
	return true
}

// pruneLocked drops keys whose window has passed so the map stays bounded.
func (c *Cooldown) pruneLocked(now time.Time) {
	for key, at := range c.last {
		if now.Sub(at) >= c.window {
			delete(c.last, key)
		}
	}
}
