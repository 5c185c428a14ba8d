package app

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Sketch/internal/domain"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newRoomCode draws a 6-character join code. Collision odds over a
// 36^6 catalog are negligible for the configured room limit, but the
// caller still checks for an exact clash.
func newRoomCode() string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}

// findPublicRoom implements latency-aware matchmaking: among public
// waiting rooms with spare capacity, prefer the one whose mean player
// RTT is closest to the joiner's, and only within the configured
// tolerance. Caller holds the store lock.
func (s *Service) findPublicRoom(p *domain.Player) *domain.Room {
	var best *domain.Room
	var bestDiff time.Duration

	for _, id := range s.store.sortedRoomIDs() {
		r := s.store.rooms[id]
		if r.Private || r.State != domain.RoomWaiting {
			continue
		}
		if len(r.Players) == 0 || len(r.Players) >= s.cfg.RoomCapacity {
			continue
		}
		diff := meanRTT(r) - p.RTT
		if diff < 0 {
			diff = -diff
		}
		if diff > s.cfg.LatencyTolerance {
			continue
		}
		if best == nil || diff < bestDiff {
			best, bestDiff = r, diff
		}
	}
	return best
}

func meanRTT(r *domain.Room) time.Duration {
	if len(r.Players) == 0 {
		return 0
	}
	var sum time.Duration
	for _, p := range r.Players {
		sum += p.RTT
	}
	return sum / time.Duration(len(r.Players))
}

// newRoom allocates a room, private ones with a join code. Caller holds
// the store lock.
func (s *Service) newRoom(private bool, now time.Time) (*domain.Room, error) {
	if len(s.store.rooms) >= s.store.maxRooms {
		return nil, domain.ErrRoomsFull
	}
	r := &domain.Room{
		ID:        s.store.allocRoomID(),
		State:     domain.RoomWaiting,
		DrawerIdx: -1,
		Private:   private,
		CreatedAt: now,
	}
	if private {
		code := newRoomCode()
		for s.store.roomByCode(code) != nil {
			code = newRoomCode()
		}
		r.Code = code
	}
	s.store.rooms[r.ID] = r
	kind := "public"
	if private {
		kind = "private"
	}
	s.audit.Room(r.ID, "created", kind)
	log.Info().Str("module", "app").Uint32("room_id", r.ID).Bool("private", private).Msg("room created")
	return r, nil
}

// addToRoom appends the player in join order and updates the reverse
// index. Caller holds the store lock and has verified capacity.
func (s *Service) addToRoom(r *domain.Room, p *domain.Player) {
	r.Players = append(r.Players, p)
	s.store.playerRoom[p.ID] = r.ID
	p.State = domain.PlayerInRoom
	s.audit.Player(p.ID, "joined_room", p.Username)
}
