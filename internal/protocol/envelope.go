package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/dkeye/Sketch/internal/domain"
)

// Envelope is the tagged payload carried inside every reliable-stream
// frame: a 4-byte big-endian length prefix followed by exactly that many
// bytes of JSON. Encoding never depends on the message type.
type Envelope struct {
	Type MsgType         `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals payload into the envelope's data field. A nil
// payload produces an envelope with no data.
func NewEnvelope(t MsgType, payload any) (Envelope, error) {
	env := Envelope{Type: t}
	if payload == nil {
		return env, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", t, err)
	}
	env.Data = raw
	return env, nil
}

// Decode unmarshals the envelope's data field into out.
func (e Envelope) Decode(out any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s: empty payload: %w", e.Type, domain.ErrProtocol)
	}
	if err := json.Unmarshal(e.Data, out); err != nil {
		return fmt.Errorf("%s: %w", e.Type, domain.ErrProtocol)
	}
	return nil
}

// EncodeFrame renders the envelope as one wire frame. maxFrame bounds the
// JSON body; anything larger is a framing error on our own side.
func EncodeFrame(env Envelope, maxFrame int) ([]byte, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	if len(body) > maxFrame {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit %d: %w", len(body), maxFrame, domain.ErrFraming)
	}
	frame := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(frame[:4], uint32(len(body)))
	copy(frame[4:], body)
	return frame, nil
}

// Decoder accumulates reliable-stream bytes and yields complete envelopes,
// leaving any trailing partial frame buffered for the next read. One
// Decoder belongs to exactly one connection.
type Decoder struct {
	buf      []byte
	maxFrame int
	maxBuf   int
}

// NewDecoder bounds a single frame body at maxFrame bytes and the whole
// pending buffer at maxBuf bytes.
func NewDecoder(maxFrame, maxBuf int) *Decoder {
	return &Decoder{maxFrame: maxFrame, maxBuf: maxBuf}
}

// Write appends freshly read bytes after prior partial data. A buffer that
// would exceed its capacity without yielding a complete frame is fatal for
// the connection.
func (d *Decoder) Write(p []byte) error {
	if len(d.buf)+len(p) > d.maxBuf {
		return domain.ErrBufferOverflow
	}
	d.buf = append(d.buf, p...)
	return nil
}

// Next decodes one framed envelope from the buffer front. ok is false when
// fewer than a full frame remains; that is not an error. A declared length
// beyond the frame limit, or a body that is not a tagged object, is a
// framing error and the connection must be dropped.
func (d *Decoder) Next() (env Envelope, ok bool, err error) {
	if len(d.buf) < 4 {
		return Envelope{}, false, nil
	}
	n := binary.BigEndian.Uint32(d.buf[:4])
	if int(n) > d.maxFrame {
		return Envelope{}, false, fmt.Errorf("declared length %d exceeds limit %d: %w", n, d.maxFrame, domain.ErrFraming)
	}
	if len(d.buf) < 4+int(n) {
		return Envelope{}, false, nil
	}
	body := d.buf[4 : 4+n]
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, false, fmt.Errorf("frame body: %w", domain.ErrFraming)
	}
	// Compact: discard the consumed frame, keep the partial tail.
	d.buf = append(d.buf[:0], d.buf[4+n:]...)
	return env, true, nil
}

// Buffered reports how many undecoded bytes are pending.
func (d *Decoder) Buffered() int { return len(d.buf) }
