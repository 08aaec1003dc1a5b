// internal/words/words.go
//
// Word corpus loading and normalization.
//
// Responsibilities:
//   - Load the seed corpus from a file (WORDS_FILE) or fall back to the list
//     embedded in the assets package.
//   - Normalize entries so equal words compare equal in storage:
//     NFC composition, single spaces, full Unicode upper-casing.
//   - Seed a WordStore with the corpus, skipping words it already holds.
//
// Constraints:
//   • An entry must contain at least one letter.
//   • Entries may contain spaces (phrases); spaces are always revealed in play.
//   • Control characters are rejected.

package words

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"

	"github.com/robalobadob/hangman/apps/go-server/assets"
	"github.com/robalobadob/hangman/apps/go-server/internal/game"
	"github.com/robalobadob/hangman/apps/go-server/internal/store"
)

// ErrInvalidWord is returned by Normalize for entries that cannot be played.
var ErrInvalidWord = errors.New("words: entry must contain a letter and no control characters")

// Normalize canonicalizes a corpus entry.
func Normalize(s string) (string, error) {
	s = norm.NFC.String(s)
	s = strings.Join(strings.Fields(s), " ")
	hasLetter := false
	for _, r := range s {
		if unicode.IsControl(r) {
			return "", ErrInvalidWord
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	if !hasLetter {
		return "", ErrInvalidWord
	}
	return game.UpperWord(s), nil
}

// Load reads the corpus from path, or the embedded default when path is empty.
// Invalid entries are skipped with a warning; duplicates are dropped.
func Load(path string) ([]string, error) {
	var raw []string
	var err error
	if path != "" {
		raw, err = readWordFile(path)
	} else {
		raw, err = assets.WordList()
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		w, err := Normalize(line)
		if err != nil {
			log.Warn().Str("entry", line).Msg("skipping invalid corpus entry")
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	if len(out) == 0 {
		return nil, errors.New("words: corpus is empty")
	}
	return out, nil
}

// Seed adds every corpus word the store does not know yet and returns how
// many were inserted. Words already present keep their used flag.
func Seed(ctx context.Context, ws store.WordStore, corpus []string) (int, error) {
	added := 0
	for _, w := range corpus {
		_, err := ws.Add(ctx, w)
		switch {
		case err == nil:
			added++
		case errors.Is(err, store.ErrConflict):
		default:
			return added, fmt.Errorf("seed %q: %w", w, err)
		}
	}
	return added, nil
}

// readWordFile loads one entry per line, skipping blanks and # comments.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return assets.ParseLines(f)
}
