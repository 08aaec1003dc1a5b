// internal/sqlstore/store.go
//
// SQL implementation of store.Store on top of sqlx.
// Every repo runs against a sqlx.ExtContext, so the same code serves plain
// connections and the transaction handed out by Atomic. Queries are written
// with ? placeholders and rebound for the driver.

package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/robalobadob/hangman/apps/go-server/internal/game"
	"github.com/robalobadob/hangman/apps/go-server/internal/store"
)

const defaultLeaderboardLimit = 20

// Store is a store.Store backed by a SQL database.
type Store struct {
	db *sqlx.DB
	d  *dialect
	repos
}

var _ store.Store = (*Store)(nil)

func newStore(db *sqlx.DB, d *dialect) *Store {
	return &Store{db: db, d: d, repos: repos{q: db, d: d}}
}

// DB exposes the underlying handle (useful for tests and health checks).
func (s *Store) DB() *sqlx.DB { return s.db }

// Atomic runs fn inside a transaction and rolls back if fn fails.
// SQLite transactions begin IMMEDIATE (see the DSN); PostgreSQL and MySQL
// lock the player row on FindByID.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, r store.Repos) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(ctx, repos{q: tx, d: s.d, inTx: true}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// repos implements store.Repos over a connection or a transaction.
type repos struct {
	q    sqlx.ExtContext
	d    *dialect
	inTx bool
}

func (r repos) Players() store.PlayerStore   { return players(r) }
func (r repos) Words() store.WordStore       { return words(r) }
func (r repos) Sessions() store.SessionStore { return sessions(r) }
func (r repos) History() store.HistoryStore  { return history(r) }

// insertID runs an INSERT and returns the generated id, using RETURNING where
// the dialect has it and LastInsertId otherwise.
func (r repos) insertID(ctx context.Context, query string, args ...any) (int64, error) {
	if r.d.returning {
		var id int64
		err := sqlx.GetContext(ctx, r.q, &id, r.q.Rebind(query+" RETURNING id"), args...)
		return id, err
	}
	res, err := r.q.ExecContext(ctx, r.q.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r repos) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.q.ExecContext(ctx, r.q.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ------------------------------- players -----------------------------------

type players repos

func (p players) FindByID(ctx context.Context, id int64) (*game.Player, error) {
	query := `SELECT id, name, created_at FROM players WHERE id = ?`
	if p.inTx {
		query += p.d.lockRow
	}
	var pl game.Player
	if err := sqlx.GetContext(ctx, p.q, &pl, p.q.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("find player %d: %w", id, err)
	}
	return &pl, nil
}

func (p players) Create(ctx context.Context, name string) (*game.Player, error) {
	pl := game.Player{Name: name, CreatedAt: time.Now().UTC()}
	id, err := repos(p).insertID(ctx, `INSERT INTO players (name, created_at) VALUES (?, ?)`, pl.Name, pl.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create player: %w", err)
	}
	pl.ID = id
	return &pl, nil
}

func (p players) List(ctx context.Context) ([]game.Player, error) {
	out := []game.Player{}
	if err := sqlx.SelectContext(ctx, p.q, &out, `SELECT id, name, created_at FROM players ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return out, nil
}

// -------------------------------- words ------------------------------------

type words repos

// FindUnusedRandom claims the picked row when called inside Atomic on a server
// backend. The locking read sees the latest committed flags rather than the
// transaction snapshot, and skips words a concurrent start is holding.
func (w words) FindUnusedRandom(ctx context.Context) (*game.Word, error) {
	var wd game.Word
	if err := sqlx.GetContext(ctx, w.q, &wd, w.q.Rebind(w.pickQuery()), false); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("pick word: %w", err)
	}
	return &wd, nil
}

func (w words) pickQuery() string {
	query := `SELECT id, word, used FROM words WHERE used = ? ORDER BY ` + w.d.random + ` LIMIT 1`
	if w.inTx {
		query += w.d.claimRow
	}
	return query
}

// MarkUsed only matches rows still unused, so two racing callers cannot both succeed.
func (w words) MarkUsed(ctx context.Context, id int64) error {
	n, err := repos(w).exec(ctx, `UPDATE words SET used = ? WHERE id = ? AND used = ?`, true, id, false)
	if err != nil {
		return fmt.Errorf("mark word %d: %w", id, err)
	}
	if n == 1 {
		return nil
	}
	var exists int
	err = sqlx.GetContext(ctx, w.q, &exists, w.q.Rebind(`SELECT COUNT(1) FROM words WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("mark word %d: %w", id, err)
	}
	if exists == 0 {
		return store.ErrNotFound
	}
	return store.ErrConflict
}

func (w words) Add(ctx context.Context, text string) (*game.Word, error) {
	id, err := repos(w).insertID(ctx, `INSERT INTO words (word, used) VALUES (?, ?)`, text, false)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, fmt.Errorf("add word: %w", err)
	}
	return &game.Word{ID: id, Text: text}, nil
}

func (w words) List(ctx context.Context) ([]game.Word, error) {
	out := []game.Word{}
	if err := sqlx.SelectContext(ctx, w.q, &out, `SELECT id, word, used FROM words ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list words: %w", err)
	}
	return out, nil
}

// ------------------------------- sessions ----------------------------------

type sessions repos

// sessionRow is the sessions table joined with the session's word.
type sessionRow struct {
	ID        string    `db:"id"`
	PlayerID  int64     `db:"player_id"`
	WordID    int64     `db:"word_id"`
	Word      string    `db:"word"`
	Used      bool      `db:"used"`
	Letters   string    `db:"letters"`
	Remaining int       `db:"remaining"`
	StartedAt time.Time `db:"started_at"`
}

func (r sessionRow) session() game.Session {
	return game.Session{
		ID:        r.ID,
		PlayerID:  r.PlayerID,
		Word:      game.Word{ID: r.WordID, Text: r.Word, Used: r.Used},
		Attempted: game.ParseLetters(r.Letters),
		Remaining: r.Remaining,
		StartedAt: r.StartedAt.UTC(),
	}
}

const sessionSelect = `
	SELECT s.id, s.player_id, s.word_id, w.word, w.used, s.letters, s.remaining, s.started_at
	FROM sessions s JOIN words w ON w.id = s.word_id`

func (s sessions) FindActiveByPlayerAndWord(ctx context.Context, playerID, wordID int64) (*game.Session, error) {
	var row sessionRow
	query := sessionSelect + ` WHERE s.player_id = ? AND s.word_id = ?`
	if err := sqlx.GetContext(ctx, s.q, &row, s.q.Rebind(query), playerID, wordID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	out := row.session()
	return &out, nil
}

// FindAllActiveByPlayer orders by start time; session ids are UUIDv7, so the
// id breaks ties in creation order.
func (s sessions) FindAllActiveByPlayer(ctx context.Context, playerID int64) ([]game.Session, error) {
	var rows []sessionRow
	query := sessionSelect + ` WHERE s.player_id = ? ORDER BY s.started_at DESC, s.id DESC`
	if err := sqlx.SelectContext(ctx, s.q, &rows, s.q.Rebind(query), playerID); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]game.Session, len(rows))
	for i, row := range rows {
		out[i] = row.session()
	}
	return out, nil
}

// Save updates the session's mutable columns, inserting it if it does not exist yet.
func (s sessions) Save(ctx context.Context, sess *game.Session) error {
	n, err := repos(s).exec(ctx, `UPDATE sessions SET letters = ?, remaining = ? WHERE id = ?`,
		sess.Attempted.String(), sess.Remaining, sess.ID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n > 0 {
		return nil
	}
	_, err = repos(s).exec(ctx, `
		INSERT INTO sessions (id, player_id, word_id, letters, remaining, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.PlayerID, sess.Word.ID, sess.Attempted.String(), sess.Remaining, sess.StartedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s sessions) Delete(ctx context.Context, id string) error {
	n, err := repos(s).exec(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ------------------------------- history -----------------------------------

type history repos

type recordRow struct {
	ID         string        `db:"id"`
	PlayerID   int64         `db:"player_id"`
	PlayerName string        `db:"player_name"`
	WordID     sql.NullInt64 `db:"word_id"`
	Word       string        `db:"word"`
	Outcome    string        `db:"outcome"`
	Score      int           `db:"score"`
	PlayedAt   time.Time     `db:"played_at"`
}

func (r recordRow) record() game.Record {
	return game.Record{
		ID:         r.ID,
		PlayerID:   r.PlayerID,
		PlayerName: r.PlayerName,
		WordID:     r.WordID.Int64,
		Word:       r.Word,
		Outcome:    game.Outcome(r.Outcome),
		Score:      r.Score,
		PlayedAt:   r.PlayedAt.UTC(),
	}
}

const recordSelect = `
	SELECT g.id, g.player_id, p.name AS player_name, g.word_id, g.word, g.outcome, g.score, g.played_at
	FROM games g JOIN players p ON p.id = g.player_id`

func (h history) Save(ctx context.Context, r *game.Record) error {
	wordID := sql.NullInt64{Int64: r.WordID, Valid: r.WordID != 0}
	_, err := repos(h).exec(ctx, `
		INSERT INTO games (id, player_id, word_id, word, outcome, score, played_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.PlayerID, wordID, r.Word, string(r.Outcome), r.Score, r.PlayedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("save game: %w", err)
	}
	return nil
}

func (h history) FindByPlayer(ctx context.Context, playerID int64) ([]game.Record, error) {
	return h.list(ctx, recordSelect+` WHERE g.player_id = ? ORDER BY g.played_at DESC, g.id DESC`, playerID)
}

func (h history) FindAll(ctx context.Context) ([]game.Record, error) {
	return h.list(ctx, recordSelect+` ORDER BY g.played_at DESC, g.id DESC`)
}

func (h history) list(ctx context.Context, query string, args ...any) ([]game.Record, error) {
	var rows []recordRow
	if err := sqlx.SelectContext(ctx, h.q, &rows, h.q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	out := make([]game.Record, len(rows))
	for i, row := range rows {
		out[i] = row.record()
	}
	return out, nil
}

func (h history) Leaderboard(ctx context.Context, limit int) ([]game.Standing, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	out := []game.Standing{}
	err := sqlx.SelectContext(ctx, h.q, &out, h.q.Rebind(`
		SELECT g.player_id, p.name AS player_name,
		       COUNT(*) AS games,
		       SUM(CASE WHEN g.outcome = 'WON' THEN 1 ELSE 0 END) AS wins,
		       SUM(g.score) AS total_score
		FROM games g JOIN players p ON p.id = g.player_id
		GROUP BY g.player_id, p.name
		ORDER BY total_score DESC, wins DESC, g.player_id ASC
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return out, nil
}
