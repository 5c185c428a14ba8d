package domain

import "errors"

// Error taxonomy for the server. Adapters decide whether an error is
// fatal for a connection (framing), silently dropped (protocol), or
// reported back to the originating client as an ERROR envelope.
var (
	// Reliable-stream framing. Both force a disconnect of that connection.
	ErrFraming        = errors.New("malformed or oversized frame")
	ErrBufferOverflow = errors.New("receive buffer overflow without a complete frame")

	// Unreliable datagrams and unknown references. Dropped silently.
	ErrProtocol = errors.New("malformed datagram")

	// Capacity rejections. Typed, never fatal to the process.
	ErrRoomFull   = errors.New("room is full")
	ErrServerFull = errors.New("connection limit reached")
	ErrRoomsFull  = errors.New("no room slots available")

	// Lookups that fail distinctly per call site.
	ErrRoomNotFound   = errors.New("room not found")
	ErrTokenNotFound  = errors.New("session token not found")
	ErrPlayerNotFound = errors.New("player not found")

	ErrTokenExpired = errors.New("reconnection window elapsed")

	// Action attempted in the wrong lifecycle state. Ignored, not reported.
	ErrBadState = errors.New("invalid state for this action")
)
