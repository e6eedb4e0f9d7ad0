package ledger

import (
	"errors"
	"sync"
	"testing"

	"github.com/desertthunder/plsync/internal/shared"
	helpers "github.com/desertthunder/plsync/internal/testing"
)

func TestLedgerLoadEmpty(t *testing.T) {
	l := NewLedger(helpers.MustOpenDB(t))

	keys, err := l.Load("nonexistent")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected empty set, got %d keys", len(keys))
	}
}

func TestLedgerCommitAndContains(t *testing.T) {
	l := NewLedger(helpers.MustOpenDB(t))

	if err := l.Commit("pl-1", "song a|artist x|90", "/tmp/a.mp3"); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	found, err := l.Contains("pl-1", "song a|artist x|90")
	if err != nil {
		t.Fatalf("Contains() error = %v", err)
	}
	if !found {
		t.Error("expected committed key to be present")
	}

	found, err = l.Contains("pl-2", "song a|artist x|90")
	if err != nil {
		t.Fatalf("Contains() error = %v", err)
	}
	if found {
		t.Error("keys must be scoped per playlist")
	}
}

func TestLedgerCommitIdempotent(t *testing.T) {
	l := NewLedger(helpers.MustOpenDB(t))

	for range 3 {
		if err := l.Commit("pl-1", "key", "/tmp/a.mp3"); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}
	}

	count, err := l.Count("pl-1")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}
}

func TestLedgerConcurrentCommits(t *testing.T) {
	l := NewLedger(helpers.MustOpenDB(t))

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := range 20 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs <- l.Commit("pl-1", string(rune('a'+n%10)), "/tmp/f.mp3")
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Commit() error = %v", err)
		}
	}

	count, err := l.Count("pl-1")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 10 {
		t.Errorf("Count() = %d, want 10", count)
	}
}

func TestLedgerRemove(t *testing.T) {
	l := NewLedger(helpers.MustOpenDB(t))

	if err := l.Commit("pl-1", "k1", "/tmp/1.mp3"); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if err := l.Commit("pl-2", "k1", "/tmp/1.mp3"); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if err := l.Remove("pl-1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	keys, err := l.Load("pl-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected pl-1 cleared, got %d keys", len(keys))
	}

	found, err := l.Contains("pl-2", "k1")
	if err != nil {
		t.Fatalf("Contains() error = %v", err)
	}
	if !found {
		t.Error("Remove must not affect other playlists")
	}
}

func TestLedgerCommitClosedDB(t *testing.T) {
	db := helpers.MustOpenDB(t)
	l := NewLedger(db)
	db.Close()

	err := l.Commit("pl-1", "k1", "/tmp/1.mp3")
	if err == nil {
		t.Fatal("expected error committing to closed database")
	}
	if !errors.Is(err, shared.ErrLedgerIO) {
		t.Errorf("expected ErrLedgerIO, got %v", err)
	}
}
