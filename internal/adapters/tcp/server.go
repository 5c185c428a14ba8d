// Package tcp is the reliable-transport adapter: it owns the listening
// socket and the bounded set of player connections, decodes framed
// envelopes and dispatches them into the game service.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Sketch/internal/app"
	"github.com/dkeye/Sketch/internal/config"
	"github.com/dkeye/Sketch/internal/domain"
)

type Server struct {
	cfg *config.Config
	svc *app.Service

	ln    net.Listener
	conns atomic.Int32
}

func NewServer(cfg *config.Config, svc *app.Service) *Server {
	return &Server{cfg: cfg, svc: svc}
}

// Listen binds the reliable port. A bind failure is fatal for the
// process; the caller decides.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.TCPPort))
	if err != nil {
		return fmt.Errorf("bind tcp port %d: %w", s.cfg.TCPPort, err)
	}
	s.ln = ln
	log.Info().Str("module", "adapters.tcp").Int("port", s.cfg.TCPPort).Msg("listening")
	return nil
}

// Serve accepts connections until ctx is cancelled. Connections beyond
// the configured limit are closed immediately.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()

	for {
		raw, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Error().Err(err).Str("module", "adapters.tcp").Msg("accept")
			continue
		}
		if int(s.conns.Load()) >= s.cfg.MaxConns {
			log.Warn().Err(domain.ErrServerFull).Str("module", "adapters.tcp").Str("remote", raw.RemoteAddr().String()).Msg("rejecting connection")
			raw.Close()
			continue
		}
		s.conns.Add(1)
		c := newConn(raw, s.cfg, s.svc)
		go func() {
			defer s.conns.Add(-1)
			c.run(ctx)
		}()
	}
}

// ConnCount reports the number of live connections.
func (s *Server) ConnCount() int {
	return int(s.conns.Load())
}
