package app

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Sketch/internal/domain"
	"github.com/dkeye/Sketch/internal/protocol"
)

// Round state machine. All functions here assume the store lock is held.

// startGame moves a waiting room into play. Total rounds is fixed to the
// player count at this moment, so everyone draws exactly once; per-game
// counters reset.
func (s *Service) startGame(r *domain.Room, now time.Time) {
	r.State = domain.RoomPlaying
	r.CountdownActive = false
	r.Round = 0
	r.TotalRounds = len(r.Players)
	r.DrawerIdx = -1
	for _, p := range r.Players {
		p.Score = 0
		p.HasDrawn = false
		p.HasGuessed = false
		p.IsDrawing = false
		p.CorrectGuesses = 0
		p.RoundsDrawn = 0
		p.State = domain.PlayerPlaying
	}

	s.audit.Room(r.ID, "game_started", "")
	log.Info().Str("module", "app").Uint32("room_id", r.ID).Int("players", len(r.Players)).Msg("game started")
	s.broadcast(r, protocol.MsgGameStart, s.roomState(r), 0)
	s.startRound(r, now)
}

// startRound advances to the next round: picks the next drawer by
// scanning forward circularly for a player who has not yet drawn,
// draws a fresh word and resets the timer and per-round flags.
func (s *Service) startRound(r *domain.Room, now time.Time) {
	r.Round++
	if r.Round > r.TotalRounds || r.UndrawnCount() == 0 {
		s.endGame(r, now)
		return
	}

	// Bounded by one full lap; a lap with no eligible player means the
	// has-drawn bookkeeping is broken and the game ends defensively.
	next := -1
	for i := 1; i <= len(r.Players); i++ {
		idx := (r.DrawerIdx + i) % len(r.Players)
		if !r.Players[idx].HasDrawn {
			next = idx
			break
		}
	}
	if next < 0 {
		log.Error().Str("module", "app").Uint32("room_id", r.ID).Msg("no eligible drawer, ending game")
		s.endGame(r, now)
		return
	}

	r.DrawerIdx = next
	r.Word = s.words.Pick()
	r.RoundStart = now
	r.TimeRemaining = s.cfg.RoundSeconds
	r.Strokes = r.Strokes[:0]

	drawer := r.Players[next]
	drawer.IsDrawing = true
	drawer.HasDrawn = true
	drawer.RoundsDrawn++
	drawer.State = domain.PlayerDrawing
	for _, p := range r.Players {
		if p == drawer {
			continue
		}
		p.IsDrawing = false
		p.HasGuessed = false
		p.State = domain.PlayerGuessing
		p.GuessStart = now
	}

	s.audit.Room(r.ID, "round_started", drawer.Username)
	s.broadcast(r, protocol.MsgRoundStart, s.roomState(r), 0)
	// The answer goes to the drawer only.
	s.send(drawer, protocol.MsgYourTurn, nil)
	s.send(drawer, protocol.MsgWordToDraw, protocol.WordPayload{Word: r.Word})
}

// endRound reveals the word, clears the drawer role and immediately
// begins the next round (which may end the game).
func (s *Service) endRound(r *domain.Room, now time.Time, reason string) {
	if d := r.Drawer(); d != nil {
		d.IsDrawing = false
		d.State = domain.PlayerPlaying
	}
	s.audit.Room(r.ID, "round_ended", reason)
	s.broadcast(r, protocol.MsgRoundEnd, protocol.WordPayload{Word: r.Word}, 0)
	s.startRound(r, now)
}

// endGame declares the winner, persists aggregates off the lock and
// reclaims the room. Ties resolve to the first-seated player.
func (s *Service) endGame(r *domain.Room, now time.Time) {
	r.State = domain.RoomEnded

	var winner *domain.Player
	for _, p := range r.Players {
		if winner == nil || p.Score > winner.Score {
			winner = p
		}
	}

	end := protocol.GameEndPayload{RoomStatePayload: s.roomState(r)}
	if winner != nil {
		end.WinnerID = winner.ID
		end.WinnerName = winner.Username
	}
	s.broadcast(r, protocol.MsgGameEnd, end, 0)
	s.audit.Room(r.ID, "game_ended", end.WinnerName)
	log.Info().Str("module", "app").Uint32("room_id", r.ID).Str("winner", end.WinnerName).Msg("game ended")

	// Stats persistence is a slow file path; it runs off the store lock.
	type result struct {
		username       string
		won            bool
		score          int
		correctGuesses int
		roundsDrawn    int
	}
	results := make([]result, 0, len(r.Players))
	for _, p := range r.Players {
		results = append(results, result{
			username:       p.Username,
			won:            winner != nil && p.ID == winner.ID,
			score:          p.Score,
			correctGuesses: p.CorrectGuesses,
			roundsDrawn:    p.RoundsDrawn,
		})
	}
	go func() {
		for _, res := range results {
			if err := s.stats.RecordGame(res.username, res.won, res.score, res.correctGuesses, res.roundsDrawn, now); err != nil {
				log.Error().Err(err).Str("module", "app").Str("username", res.username).Msg("persist game stats")
			}
		}
	}()

	// The room instance is terminal; seats are released immediately.
	for _, p := range r.Players {
		delete(s.store.playerRoom, p.ID)
		p.State = domain.PlayerLobby
		p.IsDrawing = false
		p.HasGuessed = false
	}
	r.Players = nil
	delete(s.store.rooms, r.ID)
}

// processGuess checks one chat message against the secret word and
// reports whether it was a correct guess. The drawer and players who
// already guessed never reach here.
func (s *Service) processGuess(r *domain.Room, p *domain.Player, guess string) bool {
	if !strings.EqualFold(strings.TrimSpace(guess), r.Word) {
		s.audit.Guess(r.ID, p.ID, guess, false)
		s.send(p, protocol.MsgGuessWrong, nil)
		return false
	}

	now := s.now()
	points := 10 + 90*r.TimeRemaining/s.cfg.RoundSeconds
	p.HasGuessed = true
	p.Score += points
	p.CorrectGuesses++

	s.audit.Guess(r.ID, p.ID, guess, true)
	s.audit.Score(r.ID, p.ID, p.Score)
	log.Debug().Str("module", "app").Uint32("player_id", p.ID).Int("points", points).Msg("correct guess")

	latency := now.Sub(p.GuessStart)
	if latency > 0 {
		username := p.Username
		go func() {
			if err := s.stats.RecordFastestGuess(username, latency); err != nil {
				log.Error().Err(err).Str("module", "app").Str("username", username).Msg("persist guess latency")
			}
		}()
	}

	s.broadcast(r, protocol.MsgGuessCorrect, protocol.GuessCorrect{
		PlayerID: p.ID,
		Username: p.Username,
		Score:    points,
	}, 0)
	s.broadcast(r, protocol.MsgScoreUpdate, protocol.ScoreUpdate{PlayerID: p.ID, Score: p.Score}, 0)

	if s.allGuessed(r) {
		s.endRound(r, now, "all guessed")
	}
	return true
}

func (s *Service) allGuessed(r *domain.Room) bool {
	for _, p := range r.Players {
		if p.IsDrawing || !p.Online() {
			continue
		}
		if !p.HasGuessed {
			return false
		}
	}
	return true
}
