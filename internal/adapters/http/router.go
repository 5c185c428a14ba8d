// Package http is the read-only observability surface: room listings
// and the persistent leaderboard. Gameplay never travels over it.
package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Sketch/internal/app"
	"github.com/dkeye/Sketch/internal/config"
	"github.com/dkeye/Sketch/internal/stats"
)

// ConnCounter reports the number of live reliable-transport connections
// for the health endpoint.
type ConnCounter interface {
	ConnCount() int
}

func SetupRouter(cfg *config.Config, svc *app.Service, statsStore *stats.Store, conns ConnCounter) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	log.Info().Str("module", "adapters.http").Str("addr", cfg.HTTPAddr).Msg("router setup")

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": conns.ConnCount()})
	})

	api := r.Group("/api")

	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": svc.RoomSummaries()})
	})

	api.GET("/leaderboard", func(c *gin.Context) {
		limit := 10
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > 100 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
				return
			}
			limit = n
		}
		top, err := statsStore.Leaderboard(limit)
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("leaderboard read")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "leaderboard unavailable"})
			return
		}
		out := make([]gin.H, 0, len(top))
		for _, rec := range top {
			out = append(out, gin.H{
				"username":        rec.Username,
				"games_played":    rec.GamesPlayed,
				"games_won":       rec.GamesWon,
				"total_score":     rec.TotalScore,
				"correct_guesses": rec.TotalCorrectGuesses,
				"rounds_drawn":    rec.TotalRoundsDrawn,
				"fastest_ms":      rec.FastestGuessMillis,
				"last_played":     rec.LastPlayed,
			})
		}
		c.JSON(http.StatusOK, gin.H{"leaderboard": out})
	})

	return r
}
