package app

import (
	"encoding/binary"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Sketch/internal/audit"
	"github.com/dkeye/Sketch/internal/config"
	"github.com/dkeye/Sketch/internal/domain"
	"github.com/dkeye/Sketch/internal/protocol"
	"github.com/dkeye/Sketch/internal/stats"
)

// fakeConn records enqueued frames so tests can assert on the outbound
// message stream without a socket.
type fakeConn struct {
	frames [][]byte
	closed bool
}

func (f *fakeConn) Enqueue(frame []byte) bool {
	f.frames = append(f.frames, frame)
	return true
}

func (f *fakeConn) Close() { f.closed = true }

func (f *fakeConn) reset() { f.frames = nil }

// envelopes decodes every recorded frame.
func (f *fakeConn) envelopes(t *testing.T) []protocol.Envelope {
	t.Helper()
	var out []protocol.Envelope
	for _, frame := range f.frames {
		require.GreaterOrEqual(t, len(frame), 4)
		n := binary.BigEndian.Uint32(frame[:4])
		require.Len(t, frame, 4+int(n))
		var env protocol.Envelope
		require.NoError(t, json.Unmarshal(frame[4:], &env))
		out = append(out, env)
	}
	return out
}

// last returns the most recent envelope of the given type, failing the
// test if none was sent.
func (f *fakeConn) last(t *testing.T, mt protocol.MsgType) protocol.Envelope {
	t.Helper()
	envs := f.envelopes(t)
	for i := len(envs) - 1; i >= 0; i-- {
		if envs[i].Type == mt {
			return envs[i]
		}
	}
	t.Fatalf("no %s envelope among %d frames", mt, len(envs))
	return protocol.Envelope{}
}

func (f *fakeConn) has(t *testing.T, mt protocol.MsgType) bool {
	t.Helper()
	for _, env := range f.envelopes(t) {
		if env.Type == mt {
			return true
		}
	}
	return false
}

// fakeClock is an injectable, manually advanced time source.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.UnixMilli(1700000000000)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T, mutate func(*config.Config)) (*Service, *fakeClock) {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	svc := NewService(cfg,
		NewWordList([]string{"apple"}),
		stats.NewStore(filepath.Join(t.TempDir(), "stats.txt")),
		audit.Nop(),
	)
	clock := newFakeClock()
	svc.now = clock.Now
	return svc, clock
}

// register creates one player over a fresh fake connection.
func register(t *testing.T, svc *Service, username string, rtt time.Duration) (*domain.Player, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	p := svc.Register(conn, "10.0.0.1", protocol.RegisterPayload{
		Username:  username,
		RTTMillis: uint64(rtt.Milliseconds()),
	})
	require.NotNil(t, p)
	require.True(t, conn.has(t, protocol.MsgRegisterAck))
	return p, conn
}

func roomOf(t *testing.T, svc *Service, p *domain.Player) *domain.Room {
	t.Helper()
	svc.store.mu.Lock()
	defer svc.store.mu.Unlock()
	r := svc.store.roomOf(p)
	require.NotNil(t, r, "player %d is not in a room", p.ID)
	return r
}

// checkRoomInvariants asserts the structural invariants every room must
// hold at all times: bounded membership and at most one drawer while
// playing.
func checkRoomInvariants(t *testing.T, svc *Service) {
	t.Helper()
	svc.store.mu.Lock()
	defer svc.store.mu.Unlock()
	for _, r := range svc.store.rooms {
		require.LessOrEqual(t, len(r.Players), svc.cfg.RoomCapacity)
		drawers := 0
		for _, p := range r.Players {
			if p.IsDrawing {
				drawers++
			}
		}
		if r.State == domain.RoomPlaying {
			require.LessOrEqual(t, drawers, 1)
		} else {
			require.Zero(t, drawers)
		}
	}
}
