// internal/game/types.go
//
// Core type definitions for the hangman game engine.
// Defines:
//   - State / Outcome: lifecycle of a session and result of a finished game.
//   - Player, Word: the collaborators a session refers to.
//   - Letters: the set of characters attempted in a session.
//   - Session: state for a single in-progress game.
//   - Record: immutable history entry for a finished game.
//   - View: what a player sees after each operation.

package game

import (
	"slices"
	"time"
)

// State is the coarse lifecycle state of a session.
type State string

const (
	StateActive State = "active"
	StateWon    State = "won"
	StateLost   State = "lost"
)

// Terminal reports whether no further transition can leave s.
func (s State) Terminal() bool { return s == StateWon || s == StateLost }

// Outcome is the result stored on a finished game record.
type Outcome string

const (
	OutcomeWon  Outcome = "WON"
	OutcomeLost Outcome = "LOST"
)

// Player is a registered player.
type Player struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Word is an entry of the word corpus. Once Used it is never handed out again.
type Word struct {
	ID   int64  `json:"id" db:"id"`
	Text string `json:"text" db:"word"`
	Used bool   `json:"used" db:"used"`
}

// Letters is a set of attempted characters, kept sorted and free of duplicates.
type Letters []rune

// Has reports whether r is in the set.
func (l Letters) Has(r rune) bool {
	_, ok := slices.BinarySearch(l, r)
	return ok
}

// With returns the set extended by r. The receiver is not modified.
func (l Letters) With(r rune) Letters {
	i, ok := slices.BinarySearch(l, r)
	if ok {
		return l
	}
	return slices.Insert(slices.Clone(l), i, r)
}

// String concatenates the letters in order; this is the storage encoding.
func (l Letters) String() string { return string(l) }

// Strings returns every letter as its own string, in order.
func (l Letters) Strings() []string {
	out := make([]string, len(l))
	for i, r := range l {
		out[i] = string(r)
	}
	return out
}

// ParseLetters decodes the storage encoding produced by Letters.String.
func ParseLetters(s string) Letters {
	var l Letters
	for _, r := range s {
		l = l.With(r)
	}
	return l
}

// Session holds the state of one player's attempt at one word.
type Session struct {
	ID        string    // Time-ordered identifier (UUIDv7).
	PlayerID  int64     // Owning player.
	Word      Word      // Word being guessed; never mutated by the session.
	Attempted Letters   // Uppercase characters guessed so far.
	Remaining int       // Lives left, 0..MaxAttempts.
	StartedAt time.Time // Creation time.
}

// Record is the archived result of a finished session.
type Record struct {
	ID         string    `json:"id"`
	PlayerID   int64     `json:"playerId"`
	PlayerName string    `json:"playerName"`
	WordID     int64     `json:"-"`
	Word       string    `json:"word"`
	Outcome    Outcome   `json:"outcome"`
	Score      int       `json:"score"`
	PlayedAt   time.Time `json:"playedAt"`
}

// View is the player-facing projection of a session.
type View struct {
	HiddenWord        string   `json:"hiddenWord"`
	AttemptedLetters  []string `json:"attemptedLetters"`
	RemainingAttempts int      `json:"remainingAttempts"`
	IsComplete        bool     `json:"isComplete"`
	Score             int      `json:"score"`
	State             State    `json:"state"`
}

// Standing is one leaderboard row aggregated over a player's finished games.
type Standing struct {
	PlayerID   int64  `json:"playerId" db:"player_id"`
	PlayerName string `json:"playerName" db:"player_name"`
	Games      int    `json:"games" db:"games"`
	Wins       int    `json:"wins" db:"wins"`
	TotalScore int    `json:"totalScore" db:"total_score"`
}
