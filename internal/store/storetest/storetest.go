// Package storetest holds contract tests every store.Store implementation must pass.
package storetest

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/robalobadob/hangman/apps/go-server/internal/game"
	"github.com/robalobadob/hangman/apps/go-server/internal/store"
)

// Opener returns a fresh, empty store. Cleanup is the opener's job.
type Opener func(t *testing.T) store.Store

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// Run executes the contract suite against stores produced by open.
func Run(t *testing.T, open Opener) {
	t.Run("Players", func(t *testing.T) { testPlayers(t, open(t)) })
	t.Run("Words", func(t *testing.T) { testWords(t, open(t)) })
	t.Run("Sessions", func(t *testing.T) { testSessions(t, open(t)) })
	t.Run("SessionPairIsUnique", func(t *testing.T) { testSessionPairUnique(t, open(t)) })
	t.Run("History", func(t *testing.T) { testHistory(t, open(t)) })
	t.Run("AtomicPropagatesError", func(t *testing.T) { testAtomicError(t, open(t)) })
}

func testPlayers(t *testing.T, st store.Store) {
	ctx := context.Background()
	a, err := st.Players().Create(ctx, "ana")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := st.Players().Create(ctx, "bo")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID == b.ID {
		t.Fatalf("ids collide: %d", a.ID)
	}

	got, err := st.Players().FindByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Name != "ana" {
		t.Fatalf("name = %q", got.Name)
	}

	if _, err := st.Players().FindByID(ctx, 9999); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	all, err := st.Players().List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].ID != a.ID || all[1].ID != b.ID {
		t.Fatalf("list = %+v", all)
	}
}

func testWords(t *testing.T, st store.Store) {
	ctx := context.Background()
	if _, err := st.Words().FindUnusedRandom(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("empty corpus: err = %v, want ErrNotFound", err)
	}

	w1, err := st.Words().Add(ctx, "DOG")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := st.Words().Add(ctx, "CAT"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := st.Words().Add(ctx, "DOG"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("duplicate: err = %v, want ErrConflict", err)
	}

	if err := st.Words().MarkUsed(ctx, w1.ID); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := st.Words().MarkUsed(ctx, w1.ID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("re-mark: err = %v, want ErrConflict", err)
	}

	for i := 0; i < 10; i++ {
		w, err := st.Words().FindUnusedRandom(ctx)
		if err != nil {
			t.Fatalf("random: %v", err)
		}
		if w.Text != "CAT" || w.Used {
			t.Fatalf("random returned %+v", w)
		}
	}

	list, err := st.Words().List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Text != "DOG" || !list[0].Used || list[1].Used {
		t.Fatalf("list = %+v", list)
	}

	if err := st.Words().MarkUsed(ctx, list[1].ID); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if _, err := st.Words().FindUnusedRandom(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("exhausted: err = %v, want ErrNotFound", err)
	}
}

func seedPlayerAndWords(t *testing.T, st store.Store, words ...string) (*game.Player, []game.Word) {
	t.Helper()
	ctx := context.Background()
	p, err := st.Players().Create(ctx, "ana")
	if err != nil {
		t.Fatalf("create player: %v", err)
	}
	var out []game.Word
	for _, text := range words {
		w, err := st.Words().Add(ctx, text)
		if err != nil {
			t.Fatalf("add word: %v", err)
		}
		out = append(out, *w)
	}
	return p, out
}

func testSessions(t *testing.T, st store.Store) {
	ctx := context.Background()
	p, ws := seedPlayerAndWords(t, st, "DOG", "CAT", "COW")

	older := game.NewSession(p.ID, ws[0], base)
	newer := game.NewSession(p.ID, ws[1], base.Add(time.Minute))
	tied := game.NewSession(p.ID, ws[2], base.Add(time.Minute))
	for _, s := range []*game.Session{older, newer, tied} {
		if err := st.Sessions().Save(ctx, s); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	all, err := st.Sessions().FindAllActiveByPlayer(ctx, p.ID)
	if err != nil {
		t.Fatalf("find all: %v", err)
	}
	ids := make([]string, len(all))
	for i, s := range all {
		ids[i] = s.ID
	}
	if want := []string{tied.ID, newer.ID, older.ID}; !slices.Equal(ids, want) {
		t.Fatalf("order = %v, want %v", ids, want)
	}

	older.Guess('d')
	older.Guess('x')
	if err := st.Sessions().Save(ctx, older); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := st.Sessions().FindActiveByPlayerAndWord(ctx, p.ID, ws[0].ID)
	if err != nil {
		t.Fatalf("find pair: %v", err)
	}
	if got.ID != older.ID || got.Attempted.String() != "DX" || got.Remaining != game.MaxAttempts-1 {
		t.Fatalf("session = %+v", got)
	}
	if got.Word.Text != "DOG" || got.Word.ID != ws[0].ID {
		t.Fatalf("word = %+v", got.Word)
	}
	if !got.StartedAt.Equal(base) {
		t.Fatalf("startedAt = %v, want %v", got.StartedAt, base)
	}

	if err := st.Sessions().Delete(ctx, older.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.Sessions().FindActiveByPlayerAndWord(ctx, p.ID, ws[0].ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("after delete: err = %v, want ErrNotFound", err)
	}
	if err := st.Sessions().Delete(ctx, older.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("double delete: err = %v, want ErrNotFound", err)
	}

	none, err := st.Sessions().FindAllActiveByPlayer(ctx, 9999)
	if err != nil {
		t.Fatalf("find all unknown: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no sessions, got %d", len(none))
	}
}

func testSessionPairUnique(t *testing.T, st store.Store) {
	ctx := context.Background()
	p, ws := seedPlayerAndWords(t, st, "DOG")
	if err := st.Sessions().Save(ctx, game.NewSession(p.ID, ws[0], base)); err != nil {
		t.Fatalf("save: %v", err)
	}
	err := st.Sessions().Save(ctx, game.NewSession(p.ID, ws[0], base.Add(time.Second)))
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func testHistory(t *testing.T, st store.Store) {
	ctx := context.Background()
	ana, ws := seedPlayerAndWords(t, st, "DOG", "CAT", "COW")
	bo, err := st.Players().Create(ctx, "bo")
	if err != nil {
		t.Fatalf("create player: %v", err)
	}

	records := []game.Record{
		{ID: "r1", PlayerID: ana.ID, PlayerName: ana.Name, WordID: ws[0].ID, Word: "DOG", Outcome: game.OutcomeWon, Score: 20, PlayedAt: base},
		{ID: "r2", PlayerID: ana.ID, PlayerName: ana.Name, WordID: ws[1].ID, Word: "CAT", Outcome: game.OutcomeLost, Score: 2, PlayedAt: base.Add(time.Hour)},
		{ID: "r3", PlayerID: bo.ID, PlayerName: bo.Name, WordID: ws[2].ID, Word: "COW", Outcome: game.OutcomeWon, Score: 20, PlayedAt: base.Add(2 * time.Hour)},
	}
	for i := range records {
		if err := st.History().Save(ctx, &records[i]); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	mine, err := st.History().FindByPlayer(ctx, ana.ID)
	if err != nil {
		t.Fatalf("by player: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != "r2" || mine[1].ID != "r1" {
		t.Fatalf("by player = %+v", mine)
	}
	if mine[1].Word != "DOG" || mine[1].Outcome != game.OutcomeWon || mine[1].Score != 20 ||
		mine[1].PlayerName != "ana" || !mine[1].PlayedAt.Equal(base) {
		t.Fatalf("record = %+v", mine[1])
	}

	all, err := st.History().FindAll(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 3 || all[0].ID != "r3" {
		t.Fatalf("all = %+v", all)
	}

	board, err := st.History().Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	want := []game.Standing{
		{PlayerID: ana.ID, PlayerName: "ana", Games: 2, Wins: 1, TotalScore: 22},
		{PlayerID: bo.ID, PlayerName: "bo", Games: 1, Wins: 1, TotalScore: 20},
	}
	if !slices.Equal(board, want) {
		t.Fatalf("leaderboard = %+v, want %+v", board, want)
	}

	top, err := st.History().Leaderboard(ctx, 1)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(top) != 1 || top[0].PlayerID != ana.ID {
		t.Fatalf("top = %+v", top)
	}
}

func testAtomicError(t *testing.T, st store.Store) {
	boom := errors.New("boom")
	err := st.Atomic(context.Background(), func(ctx context.Context, r store.Repos) error {
		if _, err := r.Players().List(ctx); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}
