package protocol

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/dkeye/Sketch/internal/domain"
)

// Unreliable datagram layout, all multi-byte fields in network byte order.
// Floats travel as their IEEE-754 bit patterns.
//
//	type       uint32
//	room id    uint32
//	stroke id  uint32
//	x1 y1 x2 y2  4 x float32
//	color      uint32
//	thickness  uint32
//	timestamp  uint64
const StrokeFrameSize = 4 + 4 + 4 + 16 + 4 + 4 + 8

// EncodeStroke renders one stroke datagram for the given room.
func EncodeStroke(roomID uint32, s domain.Stroke) []byte {
	b := make([]byte, StrokeFrameSize)
	binary.BigEndian.PutUint32(b[0:4], uint32(MsgStroke))
	binary.BigEndian.PutUint32(b[4:8], roomID)
	binary.BigEndian.PutUint32(b[8:12], s.ID)
	binary.BigEndian.PutUint32(b[12:16], math.Float32bits(s.X1))
	binary.BigEndian.PutUint32(b[16:20], math.Float32bits(s.Y1))
	binary.BigEndian.PutUint32(b[20:24], math.Float32bits(s.X2))
	binary.BigEndian.PutUint32(b[24:28], math.Float32bits(s.Y2))
	binary.BigEndian.PutUint32(b[28:32], s.Color)
	binary.BigEndian.PutUint32(b[32:36], s.Thickness)
	binary.BigEndian.PutUint64(b[36:44], s.Timestamp)
	return b
}

// DecodeStroke parses one stroke datagram. Short datagrams and unknown
// type tags are protocol errors; the relay drops them silently.
func DecodeStroke(b []byte) (roomID uint32, s domain.Stroke, err error) {
	if len(b) < StrokeFrameSize {
		return 0, domain.Stroke{}, fmt.Errorf("datagram of %d bytes, want %d: %w", len(b), StrokeFrameSize, domain.ErrProtocol)
	}
	if t := MsgType(binary.BigEndian.Uint32(b[0:4])); t != MsgStroke {
		return 0, domain.Stroke{}, fmt.Errorf("unrecognized datagram tag %d: %w", t, domain.ErrProtocol)
	}
	roomID = binary.BigEndian.Uint32(b[4:8])
	s = domain.Stroke{
		ID:        binary.BigEndian.Uint32(b[8:12]),
		X1:        math.Float32frombits(binary.BigEndian.Uint32(b[12:16])),
		Y1:        math.Float32frombits(binary.BigEndian.Uint32(b[16:20])),
		X2:        math.Float32frombits(binary.BigEndian.Uint32(b[20:24])),
		Y2:        math.Float32frombits(binary.BigEndian.Uint32(b[24:28])),
		Color:     binary.BigEndian.Uint32(b[28:32]),
		Thickness: binary.BigEndian.Uint32(b[32:36]),
		Timestamp: binary.BigEndian.Uint64(b[36:44]),
	}
	return roomID, s, nil
}
