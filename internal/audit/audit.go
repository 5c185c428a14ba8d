// Package audit writes the append-only audit trail: one JSON object per
// line, each tagged with an event category and a timestamp. It is a
// dedicated zerolog instance so game events never interleave with process
// logs.
package audit

import (
	"io"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dkeye/Sketch/internal/domain"
)

type Logger struct {
	zl zerolog.Logger
}

// New opens the audit trail at path with size-based rotation.
func New(path string) *Logger {
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
	}
	return &Logger{zl: zerolog.New(lj).With().Timestamp().Logger()}
}

// NewWriter is New with a caller-supplied sink; tests pass a buffer.
func NewWriter(w io.Writer) *Logger {
	return &Logger{zl: zerolog.New(w).With().Timestamp().Logger()}
}

// Nop discards all events.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func (l *Logger) Room(roomID uint32, event, details string) {
	l.zl.Log().Str("category", "room").Uint32("room_id", roomID).Str("event", event).Str("details", details).Send()
}

func (l *Logger) Player(playerID uint32, event, details string) {
	l.zl.Log().Str("category", "player").Uint32("player_id", playerID).Str("event", event).Str("details", details).Send()
}

func (l *Logger) Stroke(roomID uint32, s domain.Stroke) {
	l.zl.Log().Str("category", "stroke").
		Uint32("room_id", roomID).Uint32("stroke_id", s.ID).
		Float32("x1", s.X1).Float32("y1", s.Y1).Float32("x2", s.X2).Float32("y2", s.Y2).
		Uint32("color", s.Color).Uint32("thickness", s.Thickness).Send()
}

func (l *Logger) Guess(roomID, playerID uint32, guess string, correct bool) {
	l.zl.Log().Str("category", "guess").Uint32("room_id", roomID).Uint32("player_id", playerID).Str("guess", guess).Bool("correct", correct).Send()
}

func (l *Logger) Timer(roomID uint32, remaining int) {
	l.zl.Log().Str("category", "timer").Uint32("room_id", roomID).Int("time_remaining", remaining).Send()
}

func (l *Logger) Score(roomID, playerID uint32, score int) {
	l.zl.Log().Str("category", "score").Uint32("room_id", roomID).Uint32("player_id", playerID).Int("score", score).Send()
}

func (l *Logger) Disconnect(playerID uint32, reason string) {
	l.zl.Log().Str("category", "disconnect").Uint32("player_id", playerID).Str("reason", reason).Send()
}

func (l *Logger) Reconnect(playerID uint32, success bool) {
	l.zl.Log().Str("category", "reconnect").Uint32("player_id", playerID).Bool("success", success).Send()
}

// ReconnectDenied records a restore attempt whose token resolved to no
// player at all, so there is no id to report.
func (l *Logger) ReconnectDenied(token string) {
	l.zl.Log().Str("category", "reconnect").Str("token", token).Bool("success", false).Send()
}
