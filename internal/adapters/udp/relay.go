// Package udp is the unreliable-transport adapter: a single socket that
// receives fixed-format stroke datagrams and fans them out to room
// peers. There are no acknowledgments and no error responses; anything
// that fails to decode or resolve is dropped.
package udp

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Sketch/internal/app"
	"github.com/dkeye/Sketch/internal/config"
	"github.com/dkeye/Sketch/internal/protocol"
)

type Relay struct {
	cfg  *config.Config
	svc  *app.Service
	conn *net.UDPConn
}

func NewRelay(cfg *config.Config, svc *app.Service) *Relay {
	return &Relay{cfg: cfg, svc: svc}
}

// Listen binds the unreliable port. A bind failure is fatal for the
// process; the caller decides.
func (r *Relay) Listen() error {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: r.cfg.UDPPort})
	if err != nil {
		return fmt.Errorf("bind udp port %d: %w", r.cfg.UDPPort, err)
	}
	r.conn = conn
	log.Info().Str("module", "adapters.udp").Int("port", r.cfg.UDPPort).Msg("listening")
	return nil
}

// Serve receives and relays datagrams until ctx is cancelled. Stale
// datagrams from disconnected former members are expected and dropped
// without a sound.
func (r *Relay) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		r.conn.Close()
	}()

	buf := make([]byte, protocol.StrokeFrameSize*2)
	for {
		n, src, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Error().Err(err).Str("module", "adapters.udp").Msg("read")
			continue
		}

		roomID, stroke, err := protocol.DecodeStroke(buf[:n])
		if err != nil {
			log.Debug().Err(err).Str("module", "adapters.udp").Str("src", src.String()).Msg("dropping datagram")
			continue
		}

		stamped, targets, err := r.svc.RelayStroke(src, roomID, stroke)
		if err != nil {
			log.Debug().Err(err).Str("module", "adapters.udp").Str("src", src.String()).Msg("dropping stroke")
			continue
		}

		out := protocol.EncodeStroke(roomID, stamped)
		for _, addr := range targets {
			if _, err := r.conn.WriteToUDP(out, addr); err != nil {
				log.Debug().Err(err).Str("module", "adapters.udp").Str("dst", addr.String()).Msg("fan-out write")
			}
		}
	}
}
