// Package stats persists per-username aggregates in a line-oriented flat
// file: one record per username, comma-separated fields in fixed order.
// Updates are read-modify-write against a temp file swapped into place, so
// a crash mid-write never corrupts existing records. This is a slow path
// invoked at game end only and is guarded by its own mutex, fully
// decoupled from room state.
package stats

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// PlayerStats is one persisted record. FastestGuessMillis of zero means no
// correct guess recorded yet.
type PlayerStats struct {
	Username            string
	GamesPlayed         uint32
	GamesWon            uint32
	TotalScore          uint64
	TotalCorrectGuesses uint32
	TotalRoundsDrawn    uint32
	FastestGuessMillis  uint64
	LastPlayed          uint64 // milliseconds since epoch
}

type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the record for username, or a zero-valued record with
// found=false for a new player.
func (s *Store) Load(username string) (PlayerStats, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(username)
}

func (s *Store) loadLocked(username string) (PlayerStats, bool, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return PlayerStats{Username: username}, false, nil
		}
		return PlayerStats{}, false, fmt.Errorf("open stats file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		rec, err := parseRecord(sc.Text())
		if err != nil {
			continue // skip damaged lines, keep serving the rest
		}
		if rec.Username == username {
			return rec, true, nil
		}
	}
	if err := sc.Err(); err != nil {
		return PlayerStats{}, false, fmt.Errorf("read stats file: %w", err)
	}
	return PlayerStats{Username: username}, false, nil
}

// Save upserts one record via temp-file-and-rename.
func (s *Store) Save(rec PlayerStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(rec)
}

func (s *Store) saveLocked(rec PlayerStats) error {
	tmpPath := s.path + ".tmp"
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp stats file: %w", err)
	}

	updated := false
	if f, err := os.Open(s.path); err == nil {
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := sc.Text()
			name, _, _ := strings.Cut(line, ",")
			if name == rec.Username {
				fmt.Fprintln(tmp, formatRecord(rec))
				updated = true
			} else {
				fmt.Fprintln(tmp, line)
			}
		}
		f.Close()
	}
	if !updated {
		fmt.Fprintln(tmp, formatRecord(rec))
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("flush temp stats file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("swap stats file: %w", err)
	}
	return nil
}

// RecordGame folds one finished game into the player's aggregates.
func (s *Store) RecordGame(username string, won bool, score, correctGuesses, roundsDrawn int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, _, err := s.loadLocked(username)
	if err != nil {
		return err
	}
	rec.GamesPlayed++
	if won {
		rec.GamesWon++
	}
	if score > 0 {
		rec.TotalScore += uint64(score)
	}
	rec.TotalCorrectGuesses += uint32(correctGuesses)
	rec.TotalRoundsDrawn += uint32(roundsDrawn)
	rec.LastPlayed = uint64(now.UnixMilli())
	return s.saveLocked(rec)
}

// RecordFastestGuess keeps the personal best only.
func (s *Store) RecordFastestGuess(username string, latency time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, _, err := s.loadLocked(username)
	if err != nil {
		return err
	}
	ms := uint64(latency.Milliseconds())
	if rec.FastestGuessMillis != 0 && ms >= rec.FastestGuessMillis {
		return nil
	}
	rec.FastestGuessMillis = ms
	log.Debug().Str("module", "stats").Str("username", username).Uint64("fastest_ms", ms).Msg("new personal best guess")
	return s.saveLocked(rec)
}

// Leaderboard returns up to n records ordered by cumulative score.
func (s *Store) Leaderboard(n int) ([]PlayerStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open stats file: %w", err)
	}
	defer f.Close()

	var all []PlayerStats
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		rec, err := parseRecord(sc.Text())
		if err != nil {
			continue
		}
		all = append(all, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read stats file: %w", err)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].TotalScore > all[j].TotalScore })
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all, nil
}

func formatRecord(r PlayerStats) string {
	return fmt.Sprintf("%s,%d,%d,%d,%d,%d,%d,%d",
		r.Username, r.GamesPlayed, r.GamesWon, r.TotalScore,
		r.TotalCorrectGuesses, r.TotalRoundsDrawn, r.FastestGuessMillis, r.LastPlayed)
}

func parseRecord(line string) (PlayerStats, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 8 {
		return PlayerStats{}, fmt.Errorf("want 8 fields, got %d", len(fields))
	}
	nums := make([]uint64, 7)
	for i, f := range fields[1:] {
		n, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return PlayerStats{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		nums[i] = n
	}
	return PlayerStats{
		Username:            fields[0],
		GamesPlayed:         uint32(nums[0]),
		GamesWon:            uint32(nums[1]),
		TotalScore:          nums[2],
		TotalCorrectGuesses: uint32(nums[3]),
		TotalRoundsDrawn:    uint32(nums[4]),
		FastestGuessMillis:  nums[5],
		LastPlayed:          nums[6],
	}, nil
}
