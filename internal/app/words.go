package app

import (
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// WordList is the secret-word catalog, loaded once at startup. An empty or
// missing list is a fatal startup error.
type WordList struct {
	words []string
}

func LoadWords(path string) (*WordList, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read word list %s: %w", path, err)
	}
	var words []string
	for _, line := range strings.Split(string(raw), "\n") {
		w := strings.TrimSpace(line)
		if w != "" {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("word list %s is empty", path)
	}
	log.Info().Str("module", "app.words").Int("count", len(words)).Msg("loaded word list")
	return &WordList{words: words}, nil
}

// NewWordList wraps a fixed catalog; tests use it to pin the secret word.
func NewWordList(words []string) *WordList {
	return &WordList{words: words}
}

// Pick draws one word uniformly at random.
func (w *WordList) Pick() string {
	return w.words[rand.Intn(len(w.words))]
}

func (w *WordList) Len() int { return len(w.words) }
