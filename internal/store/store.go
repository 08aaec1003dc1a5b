// internal/store/store.go
//
// Persistence contracts used by the game service.
// Implementations: the in-memory store in this package and the SQL store in
// internal/sqlstore. Both must behave identically; the storetest package holds
// the contract tests each implementation runs.

package store

import (
	"context"
	"errors"

	"github.com/robalobadob/hangman/apps/go-server/internal/game"
)

var (
	// ErrNotFound is returned when a lookup by key matches nothing.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a write would break a uniqueness rule,
	// including MarkUsed on a word that is already used.
	ErrConflict = errors.New("store: conflict")
)

// PlayerStore looks up and registers players.
type PlayerStore interface {
	// FindByID returns ErrNotFound for unknown ids. Inside Atomic the row is
	// locked for the rest of the transaction where the backend supports it.
	FindByID(ctx context.Context, id int64) (*game.Player, error)
	Create(ctx context.Context, name string) (*game.Player, error)
	List(ctx context.Context) ([]game.Player, error)
}

// WordStore owns the word corpus.
type WordStore interface {
	// FindUnusedRandom returns ErrNotFound when every word is used. Inside
	// Atomic, backends with row locks claim the word for the transaction.
	FindUnusedRandom(ctx context.Context) (*game.Word, error)
	// MarkUsed flips used from false to true, or returns ErrConflict if it was
	// already set. Concurrent starts rely on this to never share a word.
	MarkUsed(ctx context.Context, id int64) error
	// Add inserts a new word; duplicates return ErrConflict.
	Add(ctx context.Context, text string) (*game.Word, error)
	List(ctx context.Context) ([]game.Word, error)
}

// SessionStore keeps in-progress sessions.
type SessionStore interface {
	FindActiveByPlayerAndWord(ctx context.Context, playerID, wordID int64) (*game.Session, error)
	// FindAllActiveByPlayer returns the player's sessions, most recently started first.
	FindAllActiveByPlayer(ctx context.Context, playerID int64) ([]game.Session, error)
	// Save inserts or updates by session id.
	Save(ctx context.Context, s *game.Session) error
	Delete(ctx context.Context, id string) error
}

// HistoryStore keeps finished game records.
type HistoryStore interface {
	Save(ctx context.Context, r *game.Record) error
	// FindByPlayer and FindAll return records most recent first.
	FindByPlayer(ctx context.Context, playerID int64) ([]game.Record, error)
	FindAll(ctx context.Context) ([]game.Record, error)
	// Leaderboard aggregates records per player ordered by total score,
	// then wins, then player id.
	Leaderboard(ctx context.Context, limit int) ([]game.Standing, error)
}

// Repos groups the four collaborators.
type Repos interface {
	Players() PlayerStore
	Words() WordStore
	Sessions() SessionStore
	History() HistoryStore
}

// Store is a Repos that can run a unit of work atomically.
type Store interface {
	Repos

	// Atomic runs fn as one indivisible transaction. If fn returns an error,
	// the SQL store rolls back; the memory store applies writes as they happen
	// but still serializes fn against every other Atomic call.
	Atomic(ctx context.Context, fn func(ctx context.Context, r Repos) error) error

	Close() error
}
