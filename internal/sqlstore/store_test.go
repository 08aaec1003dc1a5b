package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/robalobadob/hangman/apps/go-server/internal/game"
	"github.com/robalobadob/hangman/apps/go-server/internal/store"
	"github.com/robalobadob/hangman/apps/go-server/internal/store/storetest"
)

// openTestStore opens a fresh pure-Go SQLite database in a temp dir.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(context.Background(), Options{
		Type: "sqlite-pure",
		Path: filepath.Join(t.TempDir(), "hangman.db"),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSQLStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return openTestStore(t) })
}

func TestAtomicRollsBack(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := st.Atomic(ctx, func(ctx context.Context, r store.Repos) error {
		if _, err := r.Players().Create(ctx, "ghost"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	all, err := st.Players().List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("rolled back insert is visible: %+v", all)
	}
}

func TestAtomicCommits(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	var id int64
	err := st.Atomic(ctx, func(ctx context.Context, r store.Repos) error {
		p, err := r.Players().Create(ctx, "ana")
		if err != nil {
			return err
		}
		id = p.ID
		_, err = r.Players().FindByID(ctx, p.ID)
		return err
	})
	if err != nil {
		t.Fatalf("atomic: %v", err)
	}
	if _, err := st.Players().FindByID(ctx, id); err != nil {
		t.Fatalf("committed player missing: %v", err)
	}
}

func TestConcurrentAtomicMarkUsed(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	w, err := st.Words().Add(ctx, "DOG")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := st.Atomic(ctx, func(ctx context.Context, r store.Repos) error {
				return r.Words().MarkUsed(ctx, w.ID)
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, store.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if wins != 1 || conflicts != 7 {
		t.Fatalf("wins = %d conflicts = %d", wins, conflicts)
	}
}

func TestMarkUsedUnknownWord(t *testing.T) {
	st := openTestStore(t)
	if err := st.Words().MarkUsed(context.Background(), 42); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSessionLettersRoundTripNonASCII(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	p, _ := st.Players().Create(ctx, "ana")
	w, _ := st.Words().Add(ctx, "CAFÉ")

	s := game.NewSession(p.ID, *w, time.Now().UTC())
	for _, r := range "éa7," {
		s.Guess(r)
	}
	if err := st.Sessions().Save(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := st.Sessions().FindActiveByPlayerAndWord(ctx, p.ID, w.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Attempted.String() != s.Attempted.String() {
		t.Fatalf("letters = %q, want %q", got.Attempted.String(), s.Attempted.String())
	}
	if got.View().HiddenWord != "_A_É" {
		t.Fatalf("hidden = %q", got.View().HiddenWord)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hangman.db")
	for i := 0; i < 2; i++ {
		st, err := Open(context.Background(), Options{Type: "sqlite-pure", Path: path})
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		var n int
		if err := st.DB().Get(&n, `SELECT COUNT(*) FROM _migrations`); err != nil {
			t.Fatalf("count migrations: %v", err)
		}
		if n != 1 {
			t.Fatalf("open #%d: %d migrations recorded, want 1", i+1, n)
		}
		_ = st.Close()
	}
}

func TestMigrateFromFS(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	fsys := fstest.MapFS{
		"002_extra.sql": &fstest.MapFile{Data: []byte("CREATE TABLE extra (id INTEGER PRIMARY KEY);")},
		"003_more.sql":  &fstest.MapFile{Data: []byte("CREATE TABLE more (id INTEGER PRIMARY KEY);")},
	}
	for i := 0; i < 2; i++ {
		if err := migrate(ctx, st.DB(), fsys); err != nil {
			t.Fatalf("migrate #%d: %v", i+1, err)
		}
	}
	var n int
	if err := st.DB().Get(&n, `SELECT COUNT(*) FROM _migrations`); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("%d migrations recorded, want 3", n)
	}
}

func TestMigrateFailureIsNotRecorded(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	fsys := fstest.MapFS{
		"002_half.sql": &fstest.MapFile{Data: []byte("CREATE TABLE half (id INTEGER PRIMARY KEY); INSERT INTO nowhere VALUES (1);")},
	}
	if err := migrate(ctx, st.DB(), fsys); err == nil || !strings.Contains(err.Error(), "002_half.sql") {
		t.Fatalf("err = %v, want failure naming the script", err)
	}
	var n int
	if err := st.DB().Get(&n, `SELECT COUNT(*) FROM _migrations WHERE name = '002_half.sql'`); err != nil || n != 0 {
		t.Fatalf("recorded = %d, %v", n, err)
	}
	if err := st.DB().Get(&n, `SELECT COUNT(*) FROM sqlite_master WHERE name = 'half'`); err != nil || n != 0 {
		t.Fatalf("partial table left behind: %d, %v", n, err)
	}

	fsys["002_half.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE half (id INTEGER PRIMARY KEY);")}
	if err := migrate(ctx, st.DB(), fsys); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if err := st.DB().Get(&n, `SELECT COUNT(*) FROM half`); err != nil {
		t.Fatalf("table missing after retry: %v", err)
	}
}

func TestPickQueryClaimsRowInTx(t *testing.T) {
	for name, d := range dialects {
		plain := words{d: d}.pickQuery()
		inTx := words{d: d, inTx: true}.pickQuery()
		if strings.Contains(plain, "FOR UPDATE") {
			t.Errorf("%s: lock outside a transaction: %s", name, plain)
		}
		wantClaim := name == "postgres" || name == "mysql"
		if got := strings.HasSuffix(inTx, " FOR UPDATE SKIP LOCKED"); got != wantClaim {
			t.Errorf("%s: in-tx pick %q, claim = %v, want %v", name, inTx, got, wantClaim)
		}
	}
}

func TestFindUnusedRandomInsideAtomic(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	for _, w := range []string{"DOG", "CAT"} {
		if _, err := st.Words().Add(ctx, w); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	picked := make(map[int64]bool)
	for i := 0; i < 2; i++ {
		err := st.Atomic(ctx, func(ctx context.Context, r store.Repos) error {
			w, err := r.Words().FindUnusedRandom(ctx)
			if err != nil {
				return err
			}
			picked[w.ID] = true
			return r.Words().MarkUsed(ctx, w.ID)
		})
		if err != nil {
			t.Fatalf("pick #%d: %v", i+1, err)
		}
	}
	if len(picked) != 2 {
		t.Fatalf("picked %v, want two distinct words", picked)
	}
	err := st.Atomic(ctx, func(ctx context.Context, r store.Repos) error {
		_, err := r.Words().FindUnusedRandom(ctx)
		return err
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestOpenRejectsUnknownType(t *testing.T) {
	_, err := Open(context.Background(), Options{Type: "oracle"})
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("err = %v", err)
	}
}

func TestServerDSNs(t *testing.T) {
	if _, err := dialects["postgres"].dsn(Options{}); err == nil {
		t.Fatal("postgres without URL should fail")
	}
	dsn, err := dialects["mysql"].dsn(Options{URL: "hangman:secret@tcp(localhost:3306)/hangman"})
	if err != nil {
		t.Fatalf("mysql dsn: %v", err)
	}
	for _, want := range []string{"parseTime=true", "multiStatements=true", "clientFoundRows=true"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dsn %q missing %s", dsn, want)
		}
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"postgres unique", &pq.Error{Code: "23505"}, true},
		{"postgres other", &pq.Error{Code: "23503"}, false},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062}, true},
		{"mysql other", &mysql.MySQLError{Number: 1452}, false},
		{"wrapped", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), true},
		{"plain", errors.New("nope"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}
