package journal

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T, path string) *FileStore {
	t.Helper()

	store, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("expected journal to open, got %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendedEntrySurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.journal")

	store := openTestStore(t, path)
	if err := store.Append(Record{ID: "e-1", SessionID: "s-1", RoutingKey: "thread.agent.prompt", Payload: []byte(`{"text":"hello"}`)}); err != nil {
		t.Fatalf("expected append to succeed, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("expected close to succeed, got %v", err)
	}

	reopened := openTestStore(t, path)
	pending, err := reopened.LoadPending()
	if err != nil {
		t.Fatalf("expected pending load to succeed, got %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one recoverable entry after reopen, got %d", len(pending))
	}
	if pending[0].ID != "e-1" || pending[0].Status != StatusPending {
		t.Fatalf("expected pending entry e-1, got %+v", pending[0])
	}
}

func TestLoadPendingPreservesAppendOrder(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "relay.journal"))

	for _, id := range []string{"e-1", "e-2", "e-3"} {
		if err := store.Append(Record{ID: id, SessionID: "s-1", RoutingKey: "thread.agent.prompt"}); err != nil {
			t.Fatalf("expected append of %s to succeed, got %v", id, err)
		}
	}
	if err := store.MarkDelivered("e-2"); err != nil {
		t.Fatalf("expected mark delivered to succeed, got %v", err)
	}

	pending, err := store.LoadPending()
	if err != nil {
		t.Fatalf("expected pending load to succeed, got %v", err)
	}
	if len(pending) != 2 || pending[0].ID != "e-1" || pending[1].ID != "e-3" {
		t.Fatalf("expected pending entries [e-1 e-3] in append order, got %+v", pending)
	}
}

func TestMarksAreIdempotent(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "relay.journal"))

	if err := store.Append(Record{ID: "e-1", SessionID: "s-1", RoutingKey: "thread.agent.prompt"}); err != nil {
		t.Fatalf("expected append to succeed, got %v", err)
	}

	if err := store.MarkDelivered("e-1"); err != nil {
		t.Fatalf("expected first delivered mark to succeed, got %v", err)
	}
	if err := store.MarkDelivered("e-1"); err != nil {
		t.Fatalf("expected repeated delivered mark to be a no-op, got %v", err)
	}
	if err := store.MarkFailed("e-1", 1, time.Now()); err != nil {
		t.Fatalf("expected stale failed mark to be a no-op, got %v", err)
	}

	pending, _ := store.LoadPending()
	if len(pending) != 0 {
		t.Fatalf("expected delivered entry to leave the pending set, got %+v", pending)
	}
}

func TestExhaustedEntriesAreRetainedNotDeleted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.journal")

	store := openTestStore(t, path)
	if err := store.Append(Record{ID: "e-1", SessionID: "s-1", RoutingKey: "thread.agent.prompt"}); err != nil {
		t.Fatalf("expected append to succeed, got %v", err)
	}
	if err := store.MarkFailed("e-1", 3, time.Now()); err != nil {
		t.Fatalf("expected failed mark to succeed, got %v", err)
	}
	if err := store.MarkExhausted("e-1", 4); err != nil {
		t.Fatalf("expected exhausted mark to succeed, got %v", err)
	}
	_ = store.Close()

	reopened := openTestStore(t, path)
	exhausted, err := reopened.LoadExhausted()
	if err != nil {
		t.Fatalf("expected exhausted load to succeed, got %v", err)
	}
	if len(exhausted) != 1 || exhausted[0].Status != StatusExhausted {
		t.Fatalf("expected one retained exhausted entry, got %+v", exhausted)
	}

	pending, _ := reopened.LoadPending()
	if len(pending) != 0 {
		t.Fatalf("expected exhausted entry to stay out of the pending set, got %+v", pending)
	}
}

func TestRequeueResetsOnlyExhaustedEntries(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "relay.journal"))

	if err := store.Append(Record{ID: "e-1", SessionID: "s-1", RoutingKey: "thread.agent.prompt"}); err != nil {
		t.Fatalf("expected append to succeed, got %v", err)
	}

	if err := store.Requeue("e-1"); err != nil {
		t.Fatalf("expected requeue of a pending entry to be a no-op, got %v", err)
	}

	if err := store.MarkFailed("e-1", 3, time.Now()); err != nil {
		t.Fatalf("expected failed mark to succeed, got %v", err)
	}
	if err := store.MarkExhausted("e-1", 4); err != nil {
		t.Fatalf("expected exhausted mark to succeed, got %v", err)
	}
	if err := store.Requeue("e-1"); err != nil {
		t.Fatalf("expected requeue to succeed, got %v", err)
	}

	pending, _ := store.LoadPending()
	if len(pending) != 1 || pending[0].Status != StatusPending || pending[0].AttemptCount != 0 {
		t.Fatalf("expected requeued entry pending with reset attempts, got %+v", pending)
	}
}

func TestMarkUnknownEntryFails(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "relay.journal"))

	if err := store.MarkDelivered("missing"); !errors.Is(err, ErrUnknownEntry) {
		t.Fatalf("expected ErrUnknownEntry, got %v", err)
	}
}
