package app

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Sketch/internal/config"
	"github.com/dkeye/Sketch/internal/domain"
	"github.com/dkeye/Sketch/internal/protocol"
)

func TestMaskWord(t *testing.T) {
	assert.Equal(t, "a___e", maskWord("apple"))
	assert.Equal(t, "i__ ____m", maskWord("ice cream"))
	assert.Equal(t, "ox", maskWord("ox"))
	assert.Equal(t, "a", maskWord("a"))
}

func TestRegisterDefaultsEmptyUsername(t *testing.T) {
	svc, _ := newTestService(t, nil)
	p, _ := register(t, svc, "   ", 0)
	assert.Equal(t, "player", p.Username)
	assert.Len(t, p.SessionToken, 64)
}

func TestPingRefreshesRTTAndAnswers(t *testing.T) {
	svc, clock := newTestService(t, nil)
	p, conn := register(t, svc, "ada", 0)

	svc.Ping(p, protocol.PingPayload{RTTMillis: 42})

	var pong protocol.PongPayload
	require.NoError(t, conn.last(t, protocol.MsgPong).Decode(&pong))
	assert.Equal(t, uint64(clock.Now().UnixMilli()), pong.Timestamp)
	assert.Equal(t, int64(42), p.RTT.Milliseconds())
}

func relayGame(t *testing.T, svc *Service) (drawer, guesser *domain.Player, guesserConn *fakeConn, r *domain.Room) {
	t.Helper()
	players, conns := startPrivateGame(t, svc, 2)
	r = roomOf(t, svc, players[0])
	drawer = drawerOf(t, svc, players)
	for i, p := range players {
		if p != drawer {
			guesser, guesserConn = p, conns[i]
		}
	}
	// Distinct addresses so source-address authentication is meaningful.
	drawer.IP = "10.0.0.1"
	guesser.IP = "10.0.0.2"
	return drawer, guesser, guesserConn, r
}

func TestRelayStrokeStampsAndFansOut(t *testing.T) {
	svc, _ := newTestService(t, func(cfg *config.Config) { cfg.RoomCapacity = 2 })
	_, _, _, r := relayGame(t, svc)

	src := &net.UDPAddr{IP: net.ParseIP("10.0.0.1"), Port: 40000}
	st, targets, err := svc.RelayStroke(src, r.ID, domain.Stroke{X1: 1, Y1: 2, X2: 3, Y2: 4, Color: 0xFF0000, Thickness: 3})
	require.NoError(t, err)

	assert.Equal(t, uint32(0), st.ID)
	require.Len(t, targets, 1)
	// No datagram seen from the guesser yet: fall back to their TCP
	// source address on the client draw port.
	assert.Equal(t, "10.0.0.2", targets[0].IP.String())
	assert.Equal(t, svc.cfg.ClientDrawPort, targets[0].Port)
	assert.Len(t, r.Strokes, 1)

	st2, _, err := svc.RelayStroke(src, r.ID, domain.Stroke{})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), st2.ID)
}

func TestRelayStrokeRejectsNonDrawer(t *testing.T) {
	svc, _ := newTestService(t, func(cfg *config.Config) { cfg.RoomCapacity = 2 })
	_, _, _, r := relayGame(t, svc)

	src := &net.UDPAddr{IP: net.ParseIP("10.0.0.2"), Port: 40000}
	_, _, err := svc.RelayStroke(src, r.ID, domain.Stroke{})
	assert.ErrorIs(t, err, domain.ErrBadState)
}

func TestRelayStrokeRejectsUnknownSender(t *testing.T) {
	svc, _ := newTestService(t, func(cfg *config.Config) { cfg.RoomCapacity = 2 })
	_, _, _, r := relayGame(t, svc)

	src := &net.UDPAddr{IP: net.ParseIP("192.168.1.50"), Port: 40000}
	_, _, err := svc.RelayStroke(src, r.ID, domain.Stroke{})
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)
}

func TestRelayStrokeLogIsCapacityBounded(t *testing.T) {
	svc, _ := newTestService(t, func(cfg *config.Config) {
		cfg.RoomCapacity = 2
		cfg.MaxStrokes = 2
	})
	_, _, _, r := relayGame(t, svc)

	src := &net.UDPAddr{IP: net.ParseIP("10.0.0.1"), Port: 40000}
	for i := 0; i < 5; i++ {
		_, _, err := svc.RelayStroke(src, r.ID, domain.Stroke{})
		require.NoError(t, err)
	}
	// Excess strokes are relayed but not logged.
	assert.Len(t, r.Strokes, 2)
	assert.Equal(t, uint32(5), r.NextStrokeID)
}

func TestStrokeOverTCPBroadcasts(t *testing.T) {
	svc, _ := newTestService(t, func(cfg *config.Config) { cfg.RoomCapacity = 2 })
	drawer, _, guesserConn, r := relayGame(t, svc)

	guesserConn.reset()
	svc.StrokeTCP(drawer, protocol.StrokePayload{X1: 1, Y1: 1, X2: 2, Y2: 2, Color: 7, Thickness: 1})

	var sp protocol.StrokePayload
	require.NoError(t, guesserConn.last(t, protocol.MsgStroke).Decode(&sp))
	assert.Equal(t, drawer.ID, sp.PlayerID)
	assert.Len(t, r.Strokes, 1)
}

func TestClearCanvasIsDrawerOnly(t *testing.T) {
	svc, _ := newTestService(t, func(cfg *config.Config) { cfg.RoomCapacity = 2 })
	drawer, guesser, guesserConn, r := relayGame(t, svc)

	svc.StrokeTCP(drawer, protocol.StrokePayload{})
	require.Len(t, r.Strokes, 1)

	svc.ClearCanvas(guesser)
	assert.Len(t, r.Strokes, 1)

	guesserConn.reset()
	svc.ClearCanvas(drawer)
	assert.Empty(t, r.Strokes)
	assert.True(t, guesserConn.has(t, protocol.MsgClearCanvas))
}

func TestLeaveForfeitsReconnectWindow(t *testing.T) {
	svc, _ := newTestService(t, func(cfg *config.Config) { cfg.RoomCapacity = 3 })
	players, _ := startPrivateGame(t, svc, 3)

	drawer := drawerOf(t, svc, players)
	for _, p := range players {
		if p != drawer {
			svc.Leave(p)
			break
		}
	}
	assert.Zero(t, svc.rec.Len())
}

func TestRoomSummariesHideJoinCodes(t *testing.T) {
	svc, _ := newTestService(t, nil)
	p, _ := register(t, svc, "host", 0)
	svc.CreateRoom(p)

	sums := svc.RoomSummaries()
	require.Len(t, sums, 1)
	assert.True(t, sums[0].Private)
	assert.Equal(t, 1, sums[0].PlayerCount)
}

func TestBackpressureClosesConnection(t *testing.T) {
	svc, _ := newTestService(t, nil)
	conn := &fullConn{}
	svc.sendConn(conn, protocol.MsgPong, protocol.PongPayload{})
	assert.True(t, conn.closed)
}

type fullConn struct {
	closed bool
}

func (f *fullConn) Enqueue([]byte) bool { return false }
func (f *fullConn) Close()              { f.closed = true }
