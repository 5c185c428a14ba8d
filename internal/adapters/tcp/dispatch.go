package tcp

import (
	"github.com/dkeye/Sketch/internal/protocol"
)

// dispatch routes one envelope into the game service. Malformed or
// out-of-turn messages are logged and ignored, never answered with a
// retry. Returns true when the connection should wind down.
func (c *conn) dispatch(env protocol.Envelope) (quit bool) {
	if c.player == nil {
		return c.dispatchUnregistered(env)
	}

	switch env.Type {
	case protocol.MsgPing:
		var p protocol.PingPayload
		if len(env.Data) > 0 {
			if err := env.Decode(&p); err != nil {
				c.lg.Warn().Err(err).Msg("bad ping payload")
				return false
			}
		}
		c.svc.Ping(c.player, p)

	case protocol.MsgJoinRoom:
		var p protocol.JoinRoomPayload
		if len(env.Data) > 0 {
			if err := env.Decode(&p); err != nil {
				c.lg.Warn().Err(err).Msg("bad join payload")
				return false
			}
		}
		c.svc.JoinRoom(c.player, p)

	case protocol.MsgCreateRoom:
		c.svc.CreateRoom(c.player)

	case protocol.MsgChat:
		var p protocol.ChatPayload
		if err := env.Decode(&p); err != nil {
			c.lg.Warn().Err(err).Msg("bad chat payload")
			return false
		}
		c.svc.Chat(c.player, p)

	case protocol.MsgStroke:
		var p protocol.StrokePayload
		if err := env.Decode(&p); err != nil {
			c.lg.Warn().Err(err).Msg("bad stroke payload")
			return false
		}
		c.svc.StrokeTCP(c.player, p)

	case protocol.MsgClearCanvas:
		c.svc.ClearCanvas(c.player)

	case protocol.MsgUndo:
		c.svc.Undo(c.player)

	case protocol.MsgDisconnect:
		c.left = true
		c.svc.Leave(c.player)
		return true

	default:
		c.lg.Warn().Stringer("type", env.Type).Msg("unexpected message, ignoring")
	}
	return false
}

// dispatchUnregistered handles the only messages a fresh connection may
// send: registration or a reconnect claim.
func (c *conn) dispatchUnregistered(env protocol.Envelope) (quit bool) {
	switch env.Type {
	case protocol.MsgRegister:
		var p protocol.RegisterPayload
		if err := env.Decode(&p); err != nil {
			c.lg.Warn().Err(err).Msg("bad register payload")
			return false
		}
		c.player = c.svc.Register(c, c.remoteIP(), p)

	case protocol.MsgReconnectRequest:
		var p protocol.ReconnectRequest
		if err := env.Decode(&p); err != nil {
			c.lg.Warn().Err(err).Msg("bad reconnect payload")
			return false
		}
		player, err := c.svc.Reconnect(c, c.remoteIP(), p)
		if err != nil {
			c.lg.Info().Err(err).Msg("reconnect rejected")
			return false
		}
		c.player = player

	default:
		c.lg.Warn().Stringer("type", env.Type).Msg("message before registration, ignoring")
	}
	return false
}
