package tcp

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Sketch/internal/app"
	"github.com/dkeye/Sketch/internal/config"
	"github.com/dkeye/Sketch/internal/domain"
	"github.com/dkeye/Sketch/internal/protocol"
)

const writeTimeout = 5 * time.Second

// conn is one player connection. The read loop decodes frames and
// dispatches them; the write pump drains the send queue. Game logic
// only ever talks to the connection through Enqueue and Close, so it
// never blocks on the socket.
type conn struct {
	id  string // trace id for logs
	raw net.Conn
	cfg *config.Config
	svc *app.Service
	lg  zerolog.Logger

	send chan []byte
	done chan struct{}
	once sync.Once

	player *domain.Player
	left   bool // explicit quit, no reconnect snapshot
}

func newConn(raw net.Conn, cfg *config.Config, svc *app.Service) *conn {
	id := uuid.NewString()
	return &conn{
		id:   id,
		raw:  raw,
		cfg:  cfg,
		svc:  svc,
		lg:   log.With().Str("module", "adapters.tcp").Str("conn", id).Logger(),
		send: make(chan []byte, cfg.SendQueueLen),
		done: make(chan struct{}),
	}
}

// Enqueue implements domain.Messenger. It never blocks: a full queue
// reports failure and the service closes the connection.
func (c *conn) Enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close implements domain.Messenger. Safe to call from any goroutine,
// any number of times.
func (c *conn) Close() {
	c.once.Do(func() {
		close(c.done)
		c.raw.Close()
	})
}

func (c *conn) remoteIP() string {
	host, _, err := net.SplitHostPort(c.raw.RemoteAddr().String())
	if err != nil {
		return c.raw.RemoteAddr().String()
	}
	return host
}

func (c *conn) run(ctx context.Context) {
	c.lg.Info().Str("remote", c.raw.RemoteAddr().String()).Msg("connected")
	go c.writePump()
	c.readLoop(ctx)

	c.Close()
	if c.player != nil && !c.left {
		c.svc.Disconnect(c.player, "connection lost")
	}
	c.lg.Info().Msg("closed")
}

func (c *conn) writePump() {
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			if err := c.raw.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				c.lg.Error().Err(err).Msg("set write deadline")
				c.Close()
				return
			}
			if _, err := c.raw.Write(frame); err != nil {
				c.lg.Error().Err(err).Msg("write")
				c.Close()
				return
			}
		}
	}
}

// readLoop reads available bytes into the frame decoder and dispatches
// every complete envelope. A framing error or buffer overflow is fatal
// for the connection; a zero-byte read means the peer hung up.
func (c *conn) readLoop(ctx context.Context) {
	dec := protocol.NewDecoder(c.cfg.MaxFrameBytes, c.cfg.RecvBufferBytes)
	buf := make([]byte, c.cfg.RecvBufferBytes)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		n, err := c.raw.Read(buf)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.lg.Debug().Err(err).Msg("read")
			}
			return
		}
		if err := dec.Write(buf[:n]); err != nil {
			c.lg.Warn().Err(err).Msg("receive buffer overflow, dropping connection")
			return
		}
		for {
			env, ok, err := dec.Next()
			if err != nil {
				c.lg.Warn().Err(err).Msg("framing error, dropping connection")
				return
			}
			if !ok {
				break
			}
			if quit := c.dispatch(env); quit {
				return
			}
		}
	}
}
