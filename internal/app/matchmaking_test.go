package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Sketch/internal/config"
	"github.com/dkeye/Sketch/internal/domain"
	"github.com/dkeye/Sketch/internal/protocol"
)

func TestPublicJoinMatchesByLatency(t *testing.T) {
	svc, _ := newTestService(t, nil)

	p1, _ := register(t, svc, "near1", 20*time.Millisecond)
	svc.JoinRoom(p1, protocol.JoinRoomPayload{})

	p2, _ := register(t, svc, "near2", 30*time.Millisecond)
	svc.JoinRoom(p2, protocol.JoinRoomPayload{})

	// 30ms vs a 20ms room mean is inside the 50ms tolerance.
	assert.Equal(t, roomOf(t, svc, p1).ID, roomOf(t, svc, p2).ID)
}

func TestPublicJoinRejectsDistantRoom(t *testing.T) {
	svc, _ := newTestService(t, nil)

	p1, _ := register(t, svc, "near", 20*time.Millisecond)
	svc.JoinRoom(p1, protocol.JoinRoomPayload{})

	p2, _ := register(t, svc, "far", 200*time.Millisecond)
	svc.JoinRoom(p2, protocol.JoinRoomPayload{})

	assert.NotEqual(t, roomOf(t, svc, p1).ID, roomOf(t, svc, p2).ID)
}

func TestPublicJoinPrefersClosestRoom(t *testing.T) {
	svc, _ := newTestService(t, nil)

	a, _ := register(t, svc, "a", 10*time.Millisecond)
	svc.JoinRoom(a, protocol.JoinRoomPayload{})
	b, _ := register(t, svc, "b", 120*time.Millisecond)
	svc.JoinRoom(b, protocol.JoinRoomPayload{})
	require.NotEqual(t, roomOf(t, svc, a).ID, roomOf(t, svc, b).ID)

	c, _ := register(t, svc, "c", 115*time.Millisecond)
	svc.JoinRoom(c, protocol.JoinRoomPayload{})
	assert.Equal(t, roomOf(t, svc, b).ID, roomOf(t, svc, c).ID)
}

func TestSecondPublicJoinerStartsCountdown(t *testing.T) {
	svc, _ := newTestService(t, nil)

	p1, c1 := register(t, svc, "one", 0)
	svc.JoinRoom(p1, protocol.JoinRoomPayload{})
	require.False(t, c1.has(t, protocol.MsgCountdownUpdate))

	p2, _ := register(t, svc, "two", 0)
	svc.JoinRoom(p2, protocol.JoinRoomPayload{})

	env := c1.last(t, protocol.MsgCountdownUpdate)
	var cd protocol.CountdownUpdate
	require.NoError(t, env.Decode(&cd))
	assert.Equal(t, svc.cfg.CountdownSeconds, cd.Countdown)
	assert.True(t, roomOf(t, svc, p1).CountdownActive)
}

func TestPrivateRoomLifecycle(t *testing.T) {
	svc, _ := newTestService(t, func(cfg *config.Config) { cfg.RoomCapacity = 2 })

	creator, cc := register(t, svc, "host", 0)
	svc.CreateRoom(creator)

	env := cc.last(t, protocol.MsgRoomCreated)
	var created protocol.RoomCreated
	require.NoError(t, env.Decode(&created))
	require.Len(t, created.RoomCode, 6)

	// Wrong code fails distinctly with not-found.
	stranger, sc := register(t, svc, "stranger", 0)
	svc.JoinRoom(stranger, protocol.JoinRoomPayload{RoomCode: "ZZZZZZ"})
	assert.True(t, sc.has(t, protocol.MsgRoomNotFound))

	// Correct code seats the joiner; a private room never counts down,
	// it starts the moment it is full.
	svc.JoinRoom(stranger, protocol.JoinRoomPayload{RoomCode: created.RoomCode})
	r := roomOf(t, svc, stranger)
	assert.Equal(t, created.RoomID, r.ID)
	assert.False(t, cc.has(t, protocol.MsgCountdownUpdate))
	assert.Equal(t, domain.RoomPlaying, r.State)
	checkRoomInvariants(t, svc)
}

func TestPrivateRoomFullRejectsDistinctly(t *testing.T) {
	svc, _ := newTestService(t, func(cfg *config.Config) { cfg.RoomCapacity = 2 })

	creator, cc := register(t, svc, "host", 0)
	svc.CreateRoom(creator)
	var created protocol.RoomCreated
	require.NoError(t, cc.last(t, protocol.MsgRoomCreated).Decode(&created))

	second, _ := register(t, svc, "second", 0)
	svc.JoinRoom(second, protocol.JoinRoomPayload{RoomCode: created.RoomCode})

	third, tc := register(t, svc, "third", 0)
	svc.JoinRoom(third, protocol.JoinRoomPayload{RoomCode: created.RoomCode})
	assert.True(t, tc.has(t, protocol.MsgRoomFull))
}

func TestRoomLimitSurfacesTypedError(t *testing.T) {
	svc, _ := newTestService(t, func(cfg *config.Config) { cfg.MaxRooms = 1 })

	p1, _ := register(t, svc, "one", 0)
	svc.CreateRoom(p1)

	p2, c2 := register(t, svc, "two", 200*time.Millisecond)
	svc.CreateRoom(p2)
	assert.True(t, c2.has(t, protocol.MsgError))
}
