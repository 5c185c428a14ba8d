package domain

import (
	"net"
	"time"
)

// PlayerState follows the wire contract: numeric values are sent inside
// room-state payloads and must stay stable.
type PlayerState int

const (
	PlayerLobby PlayerState = iota
	PlayerInRoom
	PlayerPlaying
	PlayerDrawing
	PlayerGuessing
	PlayerDisconnected
)

// Messenger is the reliable-transport handle owned by the connection
// registry. Game logic only ever enqueues pre-encoded frames through it;
// the actual write happens on the connection's writer goroutine, so the
// room lock is never held across a network write.
type Messenger interface {
	// Enqueue hands one encoded frame to the writer. It must not block;
	// false means the outbound queue is full and the connection should be
	// torn down by its owner.
	Enqueue(frame []byte) bool
	Close()
}

// Player is one live or recently-disconnected participant. The Room Store
// owns its lifetime; the connection handle is owned by the registry and
// only referenced here.
type Player struct {
	ID       uint32
	Username string
	Conn     Messenger // nil while disconnected
	IP       string    // source address, used to authenticate UDP strokes
	UDPAddr  *net.UDPAddr

	State        PlayerState
	Score        int
	RTT          time.Duration
	SessionToken string
	LastSeen     time.Time

	IsDrawing  bool
	HasGuessed bool
	HasDrawn   bool

	CorrectGuesses int
	RoundsDrawn    int
	GuessStart     time.Time
}

// Online reports whether the player currently holds a live connection.
func (p *Player) Online() bool {
	return p.Conn != nil && p.State != PlayerDisconnected
}
