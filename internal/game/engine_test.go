package game

import (
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestSession(text string) *Session {
	return NewSession(1, Word{ID: 10, Text: text}, t0)
}

func guessAll(s *Session, letters string) {
	for _, r := range letters {
		s.Guess(r)
	}
}

func TestNewSession(t *testing.T) {
	s := newTestSession("dog")
	if s.Remaining != MaxAttempts {
		t.Fatalf("remaining = %d, want %d", s.Remaining, MaxAttempts)
	}
	if len(s.Attempted) != 0 {
		t.Fatalf("attempted = %v, want empty", s.Attempted)
	}
	if !s.StartedAt.Equal(t0) {
		t.Fatalf("startedAt = %v, want %v", s.StartedAt, t0)
	}
	if s.ID == "" {
		t.Fatal("expected an id")
	}
	v := s.View()
	if v.HiddenWord != "___" || v.IsComplete || v.Score != 0 || v.State != StateActive {
		t.Fatalf("unexpected initial view: %+v", v)
	}
}

func TestSessionIDsAreTimeOrdered(t *testing.T) {
	a := newTestSession("dog")
	b := newTestSession("cat")
	if a.ID >= b.ID {
		t.Fatalf("expected %s < %s", a.ID, b.ID)
	}
}

func TestPartialRevealWithSpaces(t *testing.T) {
	s := newTestSession("CAT MAT")
	guessAll(s, "CAT")

	v := s.View()
	if v.HiddenWord != "CAT _AT" {
		t.Fatalf("hidden = %q, want %q", v.HiddenWord, "CAT _AT")
	}
	if v.IsComplete {
		t.Fatal("should not be complete")
	}
	if v.Score != 0 {
		t.Fatalf("score = %d, want 0", v.Score)
	}
	if v.RemainingAttempts != MaxAttempts {
		t.Fatalf("remaining = %d, want %d", v.RemainingAttempts, MaxAttempts)
	}
}

func TestSpacesAlwaysRevealed(t *testing.T) {
	s := newTestSession("a b  c")
	if got := s.View().HiddenWord; got != "_ _  _" {
		t.Fatalf("hidden = %q", got)
	}
}

func TestSevenMissesLoseWithZeroScore(t *testing.T) {
	s := newTestSession("DOG")
	guessAll(s, "XYZWQRS")

	v := s.View()
	if v.RemainingAttempts != 0 {
		t.Fatalf("remaining = %d, want 0", v.RemainingAttempts)
	}
	if v.IsComplete || v.Score != 0 || v.State != StateLost {
		t.Fatalf("unexpected view: %+v", v)
	}

	rec, err := s.Finish("ana", t0)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if rec.Outcome != OutcomeLost || rec.Score != 0 || rec.Word != "DOG" || rec.PlayerName != "ana" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestLossScoresCorrectLetters(t *testing.T) {
	s := newTestSession("DOG")
	guessAll(s, "DOXYZWQRS")

	v := s.View()
	if v.State != StateLost {
		t.Fatalf("state = %s, want lost", v.State)
	}
	if v.Score != 2*PointsPerLetter {
		t.Fatalf("score = %d, want %d", v.Score, 2*PointsPerLetter)
	}
	if v.HiddenWord != "DO_" {
		t.Fatalf("hidden = %q", v.HiddenWord)
	}
}

func TestWinScoresBonus(t *testing.T) {
	s := newTestSession("DOG")
	guessAll(s, "DOG")

	v := s.View()
	if !v.IsComplete || v.Score != WinScore || v.State != StateWon {
		t.Fatalf("unexpected view: %+v", v)
	}
	rec, err := s.Finish("ana", t0)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if rec.Outcome != OutcomeWon || rec.Score != WinScore {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestCompletionBeatsZeroLives(t *testing.T) {
	s := newTestSession("DOG")
	s.Attempted = ParseLetters("DOG")
	s.Remaining = 0

	v := s.View()
	if v.State != StateWon || v.Score != WinScore {
		t.Fatalf("unexpected view: %+v", v)
	}
}

func TestRepeatedGuessIsNoop(t *testing.T) {
	tests := []struct {
		name   string
		word   string
		first  string
		repeat rune
	}{
		{"correct letter", "DOG", "D", 'D'},
		{"wrong letter", "DOG", "X", 'X'},
		{"lowercase repeat", "DOG", "X", 'x'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(tt.word)
			guessAll(s, tt.first)
			before := s.View()

			if s.Guess(tt.repeat) {
				t.Fatal("repeat should not change state")
			}
			after := s.View()
			if fmt.Sprint(before) != fmt.Sprint(after) {
				t.Fatalf("view changed: %+v -> %+v", before, after)
			}
		})
	}
}

func TestGuessIsUppercased(t *testing.T) {
	s := newTestSession("dog")
	s.Guess('d')
	if !slices.Equal(s.View().AttemptedLetters, []string{"D"}) {
		t.Fatalf("attempted = %v", s.View().AttemptedLetters)
	}
	if got := s.View().HiddenWord; got != "D__" {
		t.Fatalf("hidden = %q", got)
	}
}

func TestRemainingNeverIncreasesOrGoesNegative(t *testing.T) {
	s := newTestSession("HANGMAN")
	prev := s.Remaining
	for _, r := range "ZZQXJKWVBPLHAN" {
		s.Guess(r)
		if s.Remaining > prev {
			t.Fatalf("remaining increased from %d to %d", prev, s.Remaining)
		}
		if s.Remaining < 0 {
			t.Fatalf("remaining negative: %d", s.Remaining)
		}
		prev = s.Remaining
	}
}

func TestScoreZeroWhileInProgress(t *testing.T) {
	s := newTestSession("HANGMAN")
	for _, r := range "HXAY" {
		s.Guess(r)
		v := s.View()
		if !v.IsComplete && v.RemainingAttempts > 0 && v.Score != 0 {
			t.Fatalf("score = %d while in progress", v.Score)
		}
	}
}

func TestTerminalSessionIgnoresGuesses(t *testing.T) {
	s := newTestSession("DOG")
	guessAll(s, "DOG")
	if s.Guess('X') {
		t.Fatal("won session accepted a guess")
	}
	if s.Attempted.Has('X') {
		t.Fatal("letter recorded after terminal state")
	}
}

func TestNonLetterGuessIsAccepted(t *testing.T) {
	s := newTestSession("DOG")
	if !s.Guess('7') {
		t.Fatal("expected guess to be recorded")
	}
	if s.Remaining != MaxAttempts-1 {
		t.Fatalf("remaining = %d", s.Remaining)
	}
}

func TestFinishActiveSession(t *testing.T) {
	s := newTestSession("DOG")
	_, err := s.Finish("ana", t0)
	if !errors.Is(err, ErrSessionActive) {
		t.Fatalf("err = %v, want ErrSessionActive", err)
	}
}

func TestUnicodeUppercasing(t *testing.T) {
	s := newTestSession("café")
	guessAll(s, "cafÉ")
	v := s.View()
	if v.HiddenWord != "CAFÉ" || v.State != StateWon {
		t.Fatalf("unexpected view: %+v", v)
	}
}

func TestLettersEncoding(t *testing.T) {
	l := ParseLetters("TCAT")
	if l.String() != "ACT" {
		t.Fatalf("encoding = %q", l.String())
	}
	if !l.Has('C') || l.Has('Z') {
		t.Fatalf("membership wrong for %v", l)
	}
	m := l.With('B')
	if l.Has('B') {
		t.Fatal("With modified its receiver")
	}
	if m.String() != "ABCT" {
		t.Fatalf("with = %q", m.String())
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("start: %w", ErrWordPoolExhausted)
	if got := CodeOf(wrapped); got != CodeWordPoolExhausted {
		t.Fatalf("code = %s", got)
	}
	if got := CodeOf(errors.New("boom")); got != CodeUnknown {
		t.Fatalf("code = %s", got)
	}
}
