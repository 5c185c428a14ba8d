package domain

import "time"

// Snapshot is the game-relevant state of a player captured at disconnect
// time. It lives in the Reconnection Store, independent of the Room Store,
// and is consumed exactly once on a successful restore.
type Snapshot struct {
	SessionToken   string
	PlayerID       uint32
	Username       string
	RoomID         uint32
	State          PlayerState
	Score          int
	IsDrawing      bool
	HasGuessed     bool
	HasDrawn       bool
	DisconnectedAt time.Time
}
