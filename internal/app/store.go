package app

import (
	"sort"
	"sync"

	"github.com/dkeye/Sketch/internal/domain"
)

// Store owns room and player lifetime. It is the single mutual-exclusion
// domain for all game state: the TCP dispatch path, the UDP relay and the
// timer loop all synchronize through mu. The lock is held for the duration
// of one state-machine transition and never across a network write:
// outbound frames are enqueued to per-connection writers instead.
type Store struct {
	mu sync.Mutex

	rooms      map[uint32]*domain.Room
	players    map[uint32]*domain.Player // registered and connected
	playerRoom map[uint32]uint32

	nextRoomID   uint32
	nextPlayerID uint32
	maxRooms     int
}

func NewStore(maxRooms int) *Store {
	return &Store{
		rooms:      make(map[uint32]*domain.Room),
		players:    make(map[uint32]*domain.Player),
		playerRoom: make(map[uint32]uint32),
		maxRooms:   maxRooms,
	}
}

// All helpers below assume mu is held by the caller.

func (st *Store) allocPlayerID() uint32 {
	st.nextPlayerID++
	return st.nextPlayerID
}

func (st *Store) allocRoomID() uint32 {
	st.nextRoomID++
	return st.nextRoomID
}

func (st *Store) roomOf(p *domain.Player) *domain.Room {
	id, ok := st.playerRoom[p.ID]
	if !ok {
		return nil
	}
	return st.rooms[id]
}

func (st *Store) roomByCode(code string) *domain.Room {
	for _, r := range st.rooms {
		if r.Private && r.Code == code {
			return r
		}
	}
	return nil
}

// sortedRoomIDs gives a stable walk order; map iteration would make
// matchmaking and timer behavior nondeterministic.
func (st *Store) sortedRoomIDs() []uint32 {
	ids := make([]uint32, 0, len(st.rooms))
	for id := range st.rooms {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// playerByIP resolves a UDP sender. When several connected players share
// an address (same host), the one in the claimed room wins.
func (st *Store) playerByIP(ip string, roomID uint32) *domain.Player {
	var fallback *domain.Player
	for _, p := range st.players {
		if p.IP != ip || !p.Online() {
			continue
		}
		if st.playerRoom[p.ID] == roomID {
			return p
		}
		if fallback == nil {
			fallback = p
		}
	}
	return fallback
}
