package domain

import "time"

// RoomState numeric values are part of the room-state payload contract.
type RoomState int

const (
	RoomWaiting RoomState = iota
	RoomPlaying
	RoomEnded
)

// Room is one isolated game session. All mutation happens under the Room
// Store lock; Room itself carries no synchronization.
type Room struct {
	ID   uint32
	Code string // 6-char join code, private rooms only

	// Members in join order. Compacted on leave, so len(Players) is the
	// player count and at most one member has IsDrawing set while the
	// room is playing.
	Players []*Player

	State       RoomState
	DrawerIdx   int // valid only while State == RoomPlaying
	Word        string
	Round       int
	TotalRounds int

	RoundStart    time.Time
	TimeRemaining int

	// Append-only per-round stroke log, capacity-bounded. Excess strokes
	// are dropped rather than overwritten.
	Strokes      []Stroke
	NextStrokeID uint32

	Private   bool
	CreatedAt time.Time

	CountdownStart  time.Time
	CountdownActive bool
}

// Drawer returns the current drawer, or nil outside an active round.
func (r *Room) Drawer() *Player {
	if r.State != RoomPlaying || r.DrawerIdx < 0 || r.DrawerIdx >= len(r.Players) {
		return nil
	}
	return r.Players[r.DrawerIdx]
}

// UndrawnCount is the number of members still waiting for a drawing turn.
func (r *Room) UndrawnCount() int {
	n := 0
	for _, p := range r.Players {
		if !p.HasDrawn {
			n++
		}
	}
	return n
}
