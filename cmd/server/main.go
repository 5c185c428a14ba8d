package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/Sketch/internal/adapters/http"
	"github.com/dkeye/Sketch/internal/adapters/tcp"
	"github.com/dkeye/Sketch/internal/adapters/udp"
	"github.com/dkeye/Sketch/internal/app"
	"github.com/dkeye/Sketch/internal/audit"
	"github.com/dkeye/Sketch/internal/config"
	"github.com/dkeye/Sketch/internal/stats"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	words, err := app.LoadWords(cfg.WordList)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load word list")
	}

	statsStore := stats.NewStore(cfg.StatsFile)
	auditLog := audit.New(cfg.AuditLog)
	svc := app.NewService(cfg, words, statsStore, auditLog)

	tcpSrv := tcp.NewServer(cfg, svc)
	if err := tcpSrv.Listen(); err != nil {
		log.Fatal().Err(err).Msg("failed to bind reliable port")
	}
	relay := udp.NewRelay(cfg, svc)
	if err := relay.Listen(); err != nil {
		log.Fatal().Err(err).Msg("failed to bind unreliable port")
	}

	go func() {
		if err := tcpSrv.Serve(ctx); err != nil {
			log.Error().Err(err).Msg("tcp server error")
		}
	}()
	go func() {
		if err := relay.Serve(ctx); err != nil {
			log.Error().Err(err).Msg("udp relay error")
		}
	}()

	// Once-per-second timer context: countdowns, round timers, snapshot
	// sweep.
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				svc.Tick(now)
			}
		}
	}()

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router.SetupRouter(cfg, svc, statsStore, tcpSrv),
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("Sketch server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
