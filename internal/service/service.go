// internal/service/service.go
//
// Game orchestration on top of the store contracts.
// Responsibilities:
//   - Start sessions: resolve the player, hand out an unused word, persist the
//     new session (or return the one already in progress for that word).
//   - Apply guesses to the player's most recent session and archive it as a
//     history record once it is won or lost.
//   - Player, word, history and leaderboard operations for the HTTP layer.
//
// Notes:
//   - Guess and each Start attempt run inside one Store.Atomic call and only
//     use the repos handed to the callback.
//   - Store sentinels are translated into *game.Error values here; nothing
//     above this package needs to know about store.ErrNotFound.

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/robalobadob/hangman/apps/go-server/internal/game"
	"github.com/robalobadob/hangman/apps/go-server/internal/store"
	"github.com/robalobadob/hangman/apps/go-server/internal/words"
)

const (
	// maxStartAttempts bounds re-selection when a concurrent start consumed
	// the picked word first.
	maxStartAttempts = 5
	// DefaultLeaderboardLimit applies when callers pass a non-positive limit.
	DefaultLeaderboardLimit = 20
	// MaxLeaderboardLimit caps the number of leaderboard rows returned.
	MaxLeaderboardLimit = 100
	// MaxNameLength is the longest accepted player name, in characters.
	MaxNameLength = 64
)

// Service runs game operations against a Store.
type Service struct {
	st     store.Store
	now    func() time.Time
	tracer trace.Tracer
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTracer replaces the tracer obtained from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// New returns a Service backed by st.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		st:     st,
		now:    time.Now,
		tracer: otel.Tracer("github.com/robalobadob/hangman/apps/go-server/internal/service"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ------------------------------- sessions ----------------------------------

// errWordTaken reports that a concurrent start consumed the picked word.
var errWordTaken = errors.New("word taken concurrently")

// Start begins a game for playerID and returns its first view. If the player
// already has an active session for the selected word, that session's view is
// returned unchanged.
//
// Each attempt runs in its own transaction, so a retry after losing a word
// sees the flags the winner committed.
func (s *Service) Start(ctx context.Context, playerID int64) (view game.View, err error) {
	ctx, span := s.tracer.Start(ctx, "service.Start", trace.WithAttributes(attribute.Int64("player.id", playerID)))
	defer func() { endSpan(span, err) }()

	for attempt := 1; attempt <= maxStartAttempts; attempt++ {
		view, err = s.startOnce(ctx, playerID)
		if !errors.Is(err, errWordTaken) {
			return view, err
		}
		log.Debug().Int64("player", playerID).Int("attempt", attempt).Msg("word taken concurrently, reselecting")
	}
	return game.View{}, fmt.Errorf("start session: %w", game.ErrConflict)
}

func (s *Service) startOnce(ctx context.Context, playerID int64) (view game.View, err error) {
	err = s.st.Atomic(ctx, func(ctx context.Context, r store.Repos) error {
		if _, err := findPlayer(ctx, r, playerID); err != nil {
			return err
		}
		w, err := r.Words().FindUnusedRandom(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return game.ErrWordPoolExhausted
		}
		if err != nil {
			return fmt.Errorf("pick word: %w", err)
		}

		existing, err := r.Sessions().FindActiveByPlayerAndWord(ctx, playerID, w.ID)
		if err == nil {
			view = existing.View()
			log.Debug().Int64("player", playerID).Str("session", existing.ID).Msg("session already in progress")
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("find session: %w", err)
		}

		err = r.Words().MarkUsed(ctx, w.ID)
		if errors.Is(err, store.ErrConflict) {
			return errWordTaken
		}
		if err != nil {
			return fmt.Errorf("mark word used: %w", err)
		}

		sess := game.NewSession(playerID, *w, s.now().UTC())
		if err := r.Sessions().Save(ctx, sess); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		view = sess.View()
		log.Info().Int64("player", playerID).Str("session", sess.ID).Int64("word", w.ID).Msg("session started")
		return nil
	})
	return view, err
}

// Guess applies letter to the player's most recently started active session.
// When the guess ends the game, the session is archived and deleted; the
// returned view reflects the final state either way.
func (s *Service) Guess(ctx context.Context, playerID int64, letter rune) (view game.View, err error) {
	ctx, span := s.tracer.Start(ctx, "service.Guess", trace.WithAttributes(attribute.Int64("player.id", playerID)))
	defer func() { endSpan(span, err) }()

	err = s.st.Atomic(ctx, func(ctx context.Context, r store.Repos) error {
		p, err := findPlayer(ctx, r, playerID)
		if err != nil {
			return err
		}
		active, err := r.Sessions().FindAllActiveByPlayer(ctx, playerID)
		if err != nil {
			return fmt.Errorf("find sessions: %w", err)
		}
		if len(active) == 0 {
			return game.ErrNoActiveSession
		}
		sess := &active[0]

		changed := sess.Guess(letter)
		view = sess.View()
		log.Debug().
			Int64("player", playerID).
			Str("session", sess.ID).
			Str("letter", string(game.NormalizeLetter(letter))).
			Bool("changed", changed).
			Int("remaining", view.RemainingAttempts).
			Msg("guess")

		if !view.State.Terminal() {
			if !changed {
				return nil
			}
			if err := r.Sessions().Save(ctx, sess); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			return nil
		}

		rec, err := sess.Finish(p.Name, s.now().UTC())
		if err != nil {
			return err
		}
		if err := r.History().Save(ctx, &rec); err != nil {
			return fmt.Errorf("archive game: %w", err)
		}
		if err := r.Sessions().Delete(ctx, sess.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("delete session: %w", err)
		}
		log.Info().
			Int64("player", playerID).
			Str("session", sess.ID).
			Str("outcome", string(rec.Outcome)).
			Int("score", rec.Score).
			Msg("session finished")
		return nil
	})
	return view, err
}

// ------------------------------- history -----------------------------------

// GamesByPlayer lists the finished games of playerID, most recent first.
func (s *Service) GamesByPlayer(ctx context.Context, playerID int64) ([]game.Record, error) {
	if _, err := findPlayer(ctx, s.st, playerID); err != nil {
		return nil, err
	}
	return s.st.History().FindByPlayer(ctx, playerID)
}

// AllGames lists every finished game, most recent first.
func (s *Service) AllGames(ctx context.Context) ([]game.Record, error) {
	return s.st.History().FindAll(ctx)
}

// Leaderboard ranks players by total score. limit is clamped to
// [1, MaxLeaderboardLimit]; non-positive values mean DefaultLeaderboardLimit.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]game.Standing, error) {
	switch {
	case limit <= 0:
		limit = DefaultLeaderboardLimit
	case limit > MaxLeaderboardLimit:
		limit = MaxLeaderboardLimit
	}
	return s.st.History().Leaderboard(ctx, limit)
}

// ------------------------------- players -----------------------------------

// CreatePlayer registers a player under a trimmed, non-empty name.
func (s *Service) CreatePlayer(ctx context.Context, name string) (*game.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", game.ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return nil, fmt.Errorf("%w: name longer than %d characters", game.ErrInvalidInput, MaxNameLength)
	}
	p, err := s.st.Players().Create(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create player: %w", err)
	}
	log.Info().Int64("player", p.ID).Str("name", p.Name).Msg("player created")
	return p, nil
}

// GetPlayer returns game.ErrPlayerNotFound for unknown ids.
func (s *Service) GetPlayer(ctx context.Context, id int64) (*game.Player, error) {
	return findPlayer(ctx, s.st, id)
}

func (s *Service) ListPlayers(ctx context.Context) ([]game.Player, error) {
	return s.st.Players().List(ctx)
}

// -------------------------------- words ------------------------------------

// AddWord normalizes text and adds it to the corpus as unused.
func (s *Service) AddWord(ctx context.Context, text string) (*game.Word, error) {
	norm, err := words.Normalize(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", game.ErrInvalidInput, err)
	}
	w, err := s.st.Words().Add(ctx, norm)
	if errors.Is(err, store.ErrConflict) {
		return nil, fmt.Errorf("%w: word %q", game.ErrConflict, norm)
	}
	if err != nil {
		return nil, fmt.Errorf("add word: %w", err)
	}
	return w, nil
}

func (s *Service) ListWords(ctx context.Context) ([]game.Word, error) {
	return s.st.Words().List(ctx)
}

// ------------------------------- helpers -----------------------------------

func findPlayer(ctx context.Context, r store.Repos, id int64) (*game.Player, error) {
	p, err := r.Players().FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, game.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find player: %w", err)
	}
	return p, nil
}

// endSpan marks unexpected failures on span; domain errors are expected
// outcomes and leave the status unset.
func endSpan(span trace.Span, err error) {
	if err != nil && game.CodeOf(err) == game.CodeUnknown {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
