package protocol

// Typed payloads for the envelope data field. Field names mirror the wire
// contract consumed by the existing clients and the browser bridge.

type RegisterPayload struct {
	Username  string `json:"username"`
	RTTMillis uint64 `json:"rtt_ms,omitempty"`
}

type RegisterAck struct {
	PlayerID     uint32 `json:"player_id"`
	Username     string `json:"username"`
	SessionToken string `json:"session_token"`
}

type PingPayload struct {
	RTTMillis uint64 `json:"rtt_ms,omitempty"`
}

type PongPayload struct {
	Timestamp uint64 `json:"timestamp"`
}

// JoinRoomPayload with a room code joins a private room; without one it
// enters public matchmaking.
type JoinRoomPayload struct {
	RoomCode string `json:"room_code,omitempty"`
}

type RoomCreated struct {
	RoomID   uint32 `json:"room_id"`
	RoomCode string `json:"room_code"`
}

type ChatPayload struct {
	Message string `json:"message"`
}

type ChatBroadcast struct {
	PlayerID uint32 `json:"player_id"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type GuessCorrect struct {
	PlayerID uint32 `json:"player_id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

type ScoreUpdate struct {
	PlayerID uint32 `json:"player_id"`
	Score    int    `json:"score"`
}

type TimerUpdate struct {
	TimeRemaining int `json:"time_remaining"`
}

type CountdownUpdate struct {
	Countdown int `json:"countdown"`
}

type WordPayload struct {
	Word string `json:"word"`
}

type ReconnectRequest struct {
	SessionToken string `json:"session_token"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

type PlayerRef struct {
	PlayerID uint32 `json:"player_id"`
	Username string `json:"username"`
}

// PlayerInfo is the per-player summary inside a room-state snapshot.
type PlayerInfo struct {
	PlayerID  uint32 `json:"player_id"`
	Username  string `json:"username"`
	Score     int    `json:"score"`
	IsDrawing bool   `json:"is_drawing"`
	Online    bool   `json:"online"`
}

// RoomStatePayload is the full room snapshot broadcast on joins, round
// boundaries and scoring. The word is masked so guessers never see the
// answer.
type RoomStatePayload struct {
	RoomID        uint32       `json:"room_id"`
	RoomCode      string       `json:"room_code"`
	PlayerCount   int          `json:"player_count"`
	State         int          `json:"state"`
	CurrentDrawer int          `json:"current_drawer"`
	WordMask      string       `json:"word_mask"`
	Round         int          `json:"round"`
	TotalRounds   int          `json:"total_rounds"`
	TimeRemaining int          `json:"time_remaining"`
	Players       []PlayerInfo `json:"players"`
}

// StrokePayload carries a stroke over the reliable channel for clients
// without a UDP path.
type StrokePayload struct {
	StrokeID  uint32  `json:"stroke_id"`
	X1        float32 `json:"x1"`
	Y1        float32 `json:"y1"`
	X2        float32 `json:"x2"`
	Y2        float32 `json:"y2"`
	Color     uint32  `json:"color"`
	Thickness uint32  `json:"thickness"`
	Timestamp uint64  `json:"timestamp"`
	PlayerID  uint32  `json:"player_id,omitempty"`
}

// GameEndPayload extends the room snapshot with the final winner.
type GameEndPayload struct {
	RoomStatePayload
	WinnerID   uint32 `json:"winner_id"`
	WinnerName string `json:"winner_name"`
}
