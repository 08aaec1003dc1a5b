// internal/game/engine.go
//
// Core game engine for a single hangman session.
// Responsibilities:
//   - Create new sessions with a full set of lives.
//   - Apply letter guesses (normalize, dedupe, penalize misses).
//   - Render the hidden word and detect completion.
//   - Score the session at every view and convert terminal sessions into records.
//
// Notes:
//   - The engine is pure: no storage, no clock, no package-level mutable state.
//     Callers supply the time and persist whatever the engine returns.
//   - Word text is compared in its uppercased form; spaces are always revealed.
package game

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// MaxAttempts is the number of lives a session starts with.
	MaxAttempts = 7
	// WinScore is awarded for revealing the whole word.
	WinScore = 20
	// PointsPerLetter is awarded per correct letter when a session is lost.
	PointsPerLetter = 1
	// Placeholder renders a letter that has not been guessed yet.
	Placeholder = '_'
)

// NewSession starts a session for playerID against w at now.
func NewSession(playerID int64, w Word, now time.Time) *Session {
	return &Session{
		ID:        uuid.Must(uuid.NewV7()).String(),
		PlayerID:  playerID,
		Word:      w,
		Attempted: Letters{},
		Remaining: MaxAttempts,
		StartedAt: now,
	}
}

// Guess applies one letter to the session and reports whether the state changed.
//
// Rules:
//   - The letter is uppercased before anything else.
//   - A letter already attempted changes nothing.
//   - A new letter is recorded; if the word does not contain it a life is lost
//     (never below zero).
//   - A terminal session ignores further guesses.
func (s *Session) Guess(letter rune) bool {
	if s.State().Terminal() {
		return false
	}
	letter = NormalizeLetter(letter)
	if s.Attempted.Has(letter) {
		return false
	}
	s.Attempted = s.Attempted.With(letter)
	if !strings.ContainsRune(s.answer(), letter) && s.Remaining > 0 {
		s.Remaining--
	}
	return true
}

// View derives the player-facing projection from the current state.
func (s *Session) View() View {
	answer := s.answer()
	hidden := hiddenWord(answer, s.Attempted)
	complete := hidden == answer
	return View{
		HiddenWord:        hidden,
		AttemptedLetters:  s.Attempted.Strings(),
		RemainingAttempts: s.Remaining,
		IsComplete:        complete,
		Score:             score(answer, s.Attempted, complete, s.Remaining),
		State:             state(complete, s.Remaining),
	}
}

// State reports active/won/lost. Completion wins over running out of lives.
func (s *Session) State() State {
	answer := s.answer()
	return state(hiddenWord(answer, s.Attempted) == answer, s.Remaining)
}

// Finish converts a terminal session into its history record.
// Returns ErrSessionActive if the session can still receive guesses.
func (s *Session) Finish(playerName string, now time.Time) (Record, error) {
	v := s.View()
	if !v.State.Terminal() {
		return Record{}, ErrSessionActive
	}
	outcome := OutcomeLost
	if v.IsComplete {
		outcome = OutcomeWon
	}
	return Record{
		ID:         uuid.Must(uuid.NewV7()).String(),
		PlayerID:   s.PlayerID,
		PlayerName: playerName,
		WordID:     s.Word.ID,
		Word:       s.Word.Text,
		Outcome:    outcome,
		Score:      v.Score,
		PlayedAt:   now,
	}, nil
}

func (s *Session) answer() string { return UpperWord(s.Word.Text) }

// NormalizeLetter maps a guessed character to its uppercase form.
func NormalizeLetter(r rune) rune { return unicode.ToUpper(r) }

// UpperWord uppercases word text with full Unicode case mapping.
// A Caser is stateful, so one is built per call.
func UpperWord(text string) string {
	return cases.Upper(language.Und).String(text)
}

// hiddenWord reveals spaces and attempted letters and masks everything else.
func hiddenWord(answer string, attempted Letters) string {
	var b strings.Builder
	b.Grow(len(answer))
	for _, r := range answer {
		if r == ' ' || attempted.Has(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(Placeholder)
		}
	}
	return b.String()
}

// score is evaluated on every view:
//   - complete word          → WinScore
//   - out of lives           → PointsPerLetter per attempted letter found in the word
//   - still playing          → 0
func score(answer string, attempted Letters, complete bool, remaining int) int {
	switch {
	case complete:
		return WinScore
	case remaining == 0:
		n := 0
		for _, r := range attempted {
			if strings.ContainsRune(answer, r) {
				n++
			}
		}
		return n * PointsPerLetter
	default:
		return 0
	}
}

func state(complete bool, remaining int) State {
	switch {
	case complete:
		return StateWon
	case remaining == 0:
		return StateLost
	default:
		return StateActive
	}
}
