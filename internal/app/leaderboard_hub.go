package app

import (
	"sync"
	"time"

	"adaptive-quiz-service/internal/domain"
)

// LeaderboardSnapshot is one published state of the public ranking.
type LeaderboardSnapshot struct {
	Entries   []domain.LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time                 `json:"updatedAt"`
}

// LeaderboardHub fans ranking snapshots out to live subscribers.
type LeaderboardHub struct {
	now         func() time.Time
	mu          sync.RWMutex
	last        LeaderboardSnapshot
	subscribers map[chan LeaderboardSnapshot]struct{}
}

func NewLeaderboardHub() *LeaderboardHub {
	return NewLeaderboardHubWithClock(time.Now)
}

// NewLeaderboardHubWithClock is test-only for deterministic timestamps.
func NewLeaderboardHubWithClock(now func() time.Time) *LeaderboardHub {
	return &LeaderboardHub{
		now:         now,
		subscribers: make(map[chan LeaderboardSnapshot]struct{}),
	}
}

// Subscribe returns a channel primed with the latest snapshot.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *LeaderboardHub) Subscribe() (<-chan LeaderboardSnapshot, func()) {
	ch := make(chan LeaderboardSnapshot, 8)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	initial := h.last
	h.mu.Unlock()

	ch <- initial

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish records entries as the latest snapshot and sends it to every subscriber.
func (h *LeaderboardHub) Publish(entries []domain.LeaderboardEntry) LeaderboardSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	snapshot := LeaderboardSnapshot{Entries: entries, UpdatedAt: h.now()}
	h.last = snapshot
	for ch := range h.subscribers {
		select {
		case ch <- snapshot:
		default:
			// Slow subscriber: drop its oldest pending snapshot.
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
	return snapshot
}

// HasSubscribers reports whether anyone is listening.
func (h *LeaderboardHub) HasSubscribers() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers) > 0
}
