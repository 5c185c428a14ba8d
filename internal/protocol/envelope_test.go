package protocol

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Sketch/internal/domain"
)

const (
	testMaxFrame = 4096
	testMaxBuf   = 8192
)

func TestFrameRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		typ     MsgType
		payload any
	}{
		{"no payload", MsgPing, nil},
		{"small object", MsgChat, ChatPayload{Message: "hello"}},
		{"nested", MsgRoomJoined, RoomStatePayload{RoomID: 7, Players: []PlayerInfo{{PlayerID: 1, Username: "ada"}}}},
		{"near max", MsgChat, ChatPayload{Message: strings.Repeat("x", 3800)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := NewEnvelope(tt.typ, tt.payload)
			require.NoError(t, err)

			frame, err := EncodeFrame(env, testMaxFrame)
			require.NoError(t, err)

			d := NewDecoder(testMaxFrame, testMaxBuf)
			require.NoError(t, d.Write(frame))

			got, ok, err := d.Next()
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.typ, got.Type)
			assert.JSONEq(t, jsonOrNull(env.Data), jsonOrNull(got.Data))
			assert.Zero(t, d.Buffered())
		})
	}
}

func jsonOrNull(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	return string(raw)
}

func TestDecoderPartialFrames(t *testing.T) {
	env, err := NewEnvelope(MsgChat, ChatPayload{Message: "split me"})
	require.NoError(t, err)
	frame, err := EncodeFrame(env, testMaxFrame)
	require.NoError(t, err)

	d := NewDecoder(testMaxFrame, testMaxBuf)

	// One byte short of the length prefix is incomplete, never corrupt.
	require.NoError(t, d.Write(frame[:3]))
	_, ok, err := d.Next()
	require.NoError(t, err)
	assert.False(t, ok)

	// Prefix present, body short by one byte: still incomplete.
	require.NoError(t, d.Write(frame[3 : len(frame)-1]))
	_, ok, err = d.Next()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.Write(frame[len(frame)-1:]))
	got, ok, err := d.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, MsgChat, got.Type)
}

func TestDecoderMultipleFramesOneRead(t *testing.T) {
	d := NewDecoder(testMaxFrame, testMaxBuf)

	var stream []byte
	for _, msg := range []string{"one", "two", "three"} {
		env, err := NewEnvelope(MsgChat, ChatPayload{Message: msg})
		require.NoError(t, err)
		frame, err := EncodeFrame(env, testMaxFrame)
		require.NoError(t, err)
		stream = append(stream, frame...)
	}
	// Leave a dangling partial frame at the tail.
	stream = append(stream, 0x00, 0x00)

	require.NoError(t, d.Write(stream))

	for i := 0; i < 3; i++ {
		env, ok, err := d.Next()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, MsgChat, env.Type)
	}
	_, ok, err := d.Next()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, d.Buffered())
}

func TestDecoderOversizedFrame(t *testing.T) {
	d := NewDecoder(16, testMaxBuf)
	// Declared length far beyond the frame limit.
	require.NoError(t, d.Write([]byte{0x00, 0x10, 0x00, 0x00}))
	_, _, err := d.Next()
	assert.ErrorIs(t, err, domain.ErrFraming)
}

func TestDecoderMalformedBody(t *testing.T) {
	d := NewDecoder(testMaxFrame, testMaxBuf)
	body := []byte("this is not json")
	frame := make([]byte, 4+len(body))
	frame[3] = byte(len(body))
	copy(frame[4:], body)

	require.NoError(t, d.Write(frame))
	_, _, err := d.Next()
	assert.ErrorIs(t, err, domain.ErrFraming)
}

func TestDecoderBufferOverflow(t *testing.T) {
	d := NewDecoder(testMaxFrame, 8)
	require.NoError(t, d.Write(make([]byte, 8)))
	assert.ErrorIs(t, d.Write([]byte{0x01}), domain.ErrBufferOverflow)
}

func TestEncodeFrameTooLarge(t *testing.T) {
	env, err := NewEnvelope(MsgChat, ChatPayload{Message: strings.Repeat("y", 64)})
	require.NoError(t, err)
	_, err = EncodeFrame(env, 16)
	assert.ErrorIs(t, err, domain.ErrFraming)
}
