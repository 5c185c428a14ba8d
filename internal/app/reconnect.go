package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Sketch/internal/domain"
)

// ReconnectStore keeps time-bounded snapshots of disconnected players,
// keyed by session token. It has its own lock, independent of the Room
// Store, so a room can be torn down while a rejoin is still possible
// within the window.
type ReconnectStore struct {
	mu       sync.Mutex
	byToken  map[string]domain.Snapshot
	capacity int
	window   time.Duration
}

func NewReconnectStore(capacity int, window time.Duration) *ReconnectStore {
	return &ReconnectStore{
		byToken:  make(map[string]domain.Snapshot),
		capacity: capacity,
		window:   window,
	}
}

// Save stores a snapshot. A full store evicts the oldest snapshot by
// disconnect time rather than rejecting the new one: the most recent
// disconnect is the most likely to come back.
func (rs *ReconnectStore) Save(snap domain.Snapshot) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if _, exists := rs.byToken[snap.SessionToken]; !exists && len(rs.byToken) >= rs.capacity {
		var oldestToken string
		var oldestAt time.Time
		for tok, s := range rs.byToken {
			if oldestToken == "" || s.DisconnectedAt.Before(oldestAt) {
				oldestToken, oldestAt = tok, s.DisconnectedAt
			}
		}
		delete(rs.byToken, oldestToken)
		log.Debug().Str("module", "app.reconnect").Msg("snapshot store full, evicted oldest")
	}
	rs.byToken[snap.SessionToken] = snap
}

// Take consumes the snapshot for token. Snapshots are single-use: a second
// Take with the same token fails with not-found even if the first restore
// later failed elsewhere.
func (rs *ReconnectStore) Take(token string, now time.Time) (domain.Snapshot, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	snap, ok := rs.byToken[token]
	if !ok {
		return domain.Snapshot{}, domain.ErrTokenNotFound
	}
	delete(rs.byToken, token)
	if now.Sub(snap.DisconnectedAt) > rs.window {
		return domain.Snapshot{}, fmt.Errorf("disconnected %s ago: %w", now.Sub(snap.DisconnectedAt), domain.ErrTokenExpired)
	}
	return snap, nil
}

// Sweep drops snapshots past the expiry window, bounding memory growth
// when tokens are never claimed. Returns the number removed.
func (rs *ReconnectStore) Sweep(now time.Time) int {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	removed := 0
	for tok, snap := range rs.byToken {
		if now.Sub(snap.DisconnectedAt) > rs.window {
			delete(rs.byToken, tok)
			removed++
		}
	}
	return removed
}

func (rs *ReconnectStore) Len() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.byToken)
}
