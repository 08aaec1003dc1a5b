// internal/store/memory.go
//
// In-memory implementation of the Store interface.
// Used for development, tests, and DB_TYPE=memory, when durability is not required.
//
// Characteristics:
//   - Players, words, sessions, and records live in maps/slices.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Atomic serializes units of work with a second mutex; there is no rollback.
//   - Values are copied in and out, so callers never alias stored state.
//   - State is lost when the process restarts.

package store

import (
	"cmp"
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"slices"
	"sync"
	"time"

	"github.com/robalobadob/hangman/apps/go-server/internal/game"
)

// memory is an in-memory Store implementation.
type memory struct {
	tx sync.Mutex   // serializes Atomic units of work
	mu sync.RWMutex // guards everything below

	players    map[int64]game.Player
	nextPlayer int64

	words    map[int64]game.Word
	wordIDs  map[string]int64 // text → id, for uniqueness
	nextWord int64

	sessions map[string]game.Session
	seq      map[string]int64 // session id → insertion order, tie-breaker for equal start times
	nextSeq  int64

	records []game.Record

	now func() time.Time
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{
		players:  make(map[int64]game.Player),
		words:    make(map[int64]game.Word),
		wordIDs:  make(map[string]int64),
		sessions: make(map[string]game.Session),
		seq:      make(map[string]int64),
		now:      time.Now,
	}
}

func (m *memory) Players() PlayerStore   { return memPlayers{m} }
func (m *memory) Words() WordStore       { return memWords{m} }
func (m *memory) Sessions() SessionStore { return memSessions{m} }
func (m *memory) History() HistoryStore  { return memHistory{m} }

// Atomic holds the transaction lock for the duration of fn.
func (m *memory) Atomic(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	m.tx.Lock()
	defer m.tx.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, m)
}

func (m *memory) Close() error { return nil }

// ------------------------------- players -----------------------------------

type memPlayers struct{ m *memory }

func (p memPlayers) FindByID(ctx context.Context, id int64) (*game.Player, error) {
	p.m.mu.RLock()
	defer p.m.mu.RUnlock()
	pl, ok := p.m.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &pl, nil
}

func (p memPlayers) Create(ctx context.Context, name string) (*game.Player, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	p.m.nextPlayer++
	pl := game.Player{ID: p.m.nextPlayer, Name: name, CreatedAt: p.m.now().UTC()}
	p.m.players[pl.ID] = pl
	return &pl, nil
}

func (p memPlayers) List(ctx context.Context) ([]game.Player, error) {
	p.m.mu.RLock()
	defer p.m.mu.RUnlock()
	out := make([]game.Player, 0, len(p.m.players))
	for _, pl := range p.m.players {
		out = append(out, pl)
	}
	slices.SortFunc(out, func(a, b game.Player) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// -------------------------------- words ------------------------------------

type memWords struct{ m *memory }

// FindUnusedRandom picks uniformly among unused words using crypto/rand.
func (w memWords) FindUnusedRandom(ctx context.Context) (*game.Word, error) {
	w.m.mu.RLock()
	defer w.m.mu.RUnlock()
	var unused []game.Word
	for _, wd := range w.m.words {
		if !wd.Used {
			unused = append(unused, wd)
		}
	}
	if len(unused) == 0 {
		return nil, ErrNotFound
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(unused))))
	if err != nil {
		return nil, fmt.Errorf("pick word: %w", err)
	}
	wd := unused[n.Int64()]
	return &wd, nil
}

func (w memWords) MarkUsed(ctx context.Context, id int64) error {
	w.m.mu.Lock()
	defer w.m.mu.Unlock()
	wd, ok := w.m.words[id]
	if !ok {
		return ErrNotFound
	}
	if wd.Used {
		return ErrConflict
	}
	wd.Used = true
	w.m.words[id] = wd
	return nil
}

func (w memWords) Add(ctx context.Context, text string) (*game.Word, error) {
	w.m.mu.Lock()
	defer w.m.mu.Unlock()
	if _, dup := w.m.wordIDs[text]; dup {
		return nil, ErrConflict
	}
	w.m.nextWord++
	wd := game.Word{ID: w.m.nextWord, Text: text}
	w.m.words[wd.ID] = wd
	w.m.wordIDs[text] = wd.ID
	return &wd, nil
}

func (w memWords) List(ctx context.Context) ([]game.Word, error) {
	w.m.mu.RLock()
	defer w.m.mu.RUnlock()
	out := make([]game.Word, 0, len(w.m.words))
	for _, wd := range w.m.words {
		out = append(out, wd)
	}
	slices.SortFunc(out, func(a, b game.Word) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// ------------------------------- sessions ----------------------------------

type memSessions struct{ m *memory }

func (s memSessions) FindActiveByPlayerAndWord(ctx context.Context, playerID, wordID int64) (*game.Session, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	for _, sess := range s.m.sessions {
		if sess.PlayerID == playerID && sess.Word.ID == wordID {
			out := cloneSession(sess)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s memSessions) FindAllActiveByPlayer(ctx context.Context, playerID int64) ([]game.Session, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	var out []game.Session
	for _, sess := range s.m.sessions {
		if sess.PlayerID == playerID {
			out = append(out, cloneSession(sess))
		}
	}
	slices.SortFunc(out, func(a, b game.Session) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return cmp.Compare(s.m.seq[b.ID], s.m.seq[a.ID])
	})
	return out, nil
}

// Save upserts by id. A new session for an already active (player, word)
// pair is rejected with ErrConflict.
func (s memSessions) Save(ctx context.Context, sess *game.Session) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, exists := s.m.sessions[sess.ID]; !exists {
		for _, other := range s.m.sessions {
			if other.PlayerID == sess.PlayerID && other.Word.ID == sess.Word.ID {
				return ErrConflict
			}
		}
		s.m.nextSeq++
		s.m.seq[sess.ID] = s.m.nextSeq
	}
	s.m.sessions[sess.ID] = cloneSession(*sess)
	return nil
}

func (s memSessions) Delete(ctx context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.m.sessions, id)
	delete(s.m.seq, id)
	return nil
}

func cloneSession(s game.Session) game.Session {
	s.Attempted = slices.Clone(s.Attempted)
	return s
}

// ------------------------------- history -----------------------------------

type memHistory struct{ m *memory }

func (h memHistory) Save(ctx context.Context, r *game.Record) error {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	for _, existing := range h.m.records {
		if existing.ID == r.ID {
			return ErrConflict
		}
	}
	h.m.records = append(h.m.records, *r)
	return nil
}

func (h memHistory) FindByPlayer(ctx context.Context, playerID int64) ([]game.Record, error) {
	h.m.mu.RLock()
	defer h.m.mu.RUnlock()
	var out []game.Record
	for _, r := range h.m.records {
		if r.PlayerID == playerID {
			out = append(out, r)
		}
	}
	return newestFirst(out), nil
}

func (h memHistory) FindAll(ctx context.Context) ([]game.Record, error) {
	h.m.mu.RLock()
	defer h.m.mu.RUnlock()
	return newestFirst(slices.Clone(h.m.records)), nil
}

func (h memHistory) Leaderboard(ctx context.Context, limit int) ([]game.Standing, error) {
	h.m.mu.RLock()
	defer h.m.mu.RUnlock()
	byPlayer := make(map[int64]*game.Standing)
	for _, r := range h.m.records {
		st, ok := byPlayer[r.PlayerID]
		if !ok {
			st = &game.Standing{PlayerID: r.PlayerID, PlayerName: h.m.players[r.PlayerID].Name}
			byPlayer[r.PlayerID] = st
		}
		st.Games++
		st.TotalScore += r.Score
		if r.Outcome == game.OutcomeWon {
			st.Wins++
		}
	}
	out := make([]game.Standing, 0, len(byPlayer))
	for _, st := range byPlayer {
		out = append(out, *st)
	}
	slices.SortFunc(out, func(a, b game.Standing) int {
		if c := cmp.Compare(b.TotalScore, a.TotalScore); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Wins, a.Wins); c != 0 {
			return c
		}
		return cmp.Compare(a.PlayerID, b.PlayerID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// newestFirst orders records by PlayedAt descending; records appended later
// win ties, matching insertion order.
func newestFirst(rs []game.Record) []game.Record {
	slices.Reverse(rs)
	slices.SortStableFunc(rs, func(a, b game.Record) int { return b.PlayedAt.Compare(a.PlayedAt) })
	return rs
}
