package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T, max int) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "history.json"), max)
}

func TestAppendSortsNewestFirst(t *testing.T) {
	store := newTestStore(t, 0)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i, offset := range []time.Duration{time.Minute, 0, 2 * time.Minute} {
		err := store.Append(Entry{
			ID:          string(rune('a' + i)),
			ConnectedAt: base.Add(offset),
			URL:         "wss://example.com",
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries := store.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].ID != "c" || entries[2].ID != "b" {
		t.Fatalf("unexpected order: %v %v %v", entries[0].ID, entries[1].ID, entries[2].ID)
	}
}

func TestAppendTrimsToMaxEntries(t *testing.T) {
	store := newTestStore(t, 2)
	base := time.Now()
	for i := 0; i < 4; i++ {
		err := store.Append(Entry{
			ID:          string(rune('a' + i)),
			ConnectedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	entries := store.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected trim to 2, got %d", len(entries))
	}
	if entries[0].ID != "d" {
		t.Fatalf("newest entry lost: %v", entries[0].ID)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	store := NewStore(path, 0)
	err := store.Append(Entry{
		ID:          "1",
		ConnectedAt: time.Now(),
		RequestName: "chat",
		URL:         "wss://example.com/chat",
		ClosedBy:    "peer",
		CloseCode:   1000,
		SentCount:   3,
	})
	if err != nil {
		t.Fatal(err)
	}

	reloaded := NewStore(path, 0)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	entries := reloaded.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after reload, got %d", len(entries))
	}
	if entries[0].ClosedBy != "peer" || entries[0].CloseCode != 1000 || entries[0].SentCount != 3 {
		t.Fatalf("entry fields lost: %+v", entries[0])
	}
}

func TestByRequestAndByWorkspace(t *testing.T) {
	store := newTestStore(t, 0)
	now := time.Now()
	_ = store.Append(Entry{ID: "1", ConnectedAt: now, RequestName: "chat", WorkspacePath: "/tmp/a.ws.yaml"})
	_ = store.Append(Entry{ID: "2", ConnectedAt: now.Add(time.Second), RequestName: "feed", WorkspacePath: "/tmp/b.ws.yaml"})
	_ = store.Append(Entry{ID: "3", ConnectedAt: now.Add(2 * time.Second), RequestName: "chat", WorkspacePath: "/tmp/a.ws.yaml"})

	byReq := store.ByRequest("chat")
	if len(byReq) != 2 || byReq[0].ID != "3" {
		t.Fatalf("unexpected ByRequest result: %+v", byReq)
	}
	if got := store.ByRequest(""); got != nil {
		t.Fatalf("empty identifier should match nothing, got %+v", got)
	}

	byWs := store.ByWorkspace("/tmp/a.ws.yaml")
	if len(byWs) != 2 {
		t.Fatalf("unexpected ByWorkspace result: %+v", byWs)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t, 0)
	_ = store.Append(Entry{ID: "1", ConnectedAt: time.Now()})

	removed, err := store.Delete("1")
	if err != nil || !removed {
		t.Fatalf("delete failed: %v %v", removed, err)
	}
	removed, err = store.Delete("1")
	if err != nil || removed {
		t.Fatalf("second delete should be a no-op: %v %v", removed, err)
	}
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := NewStore(path, 0)
	if err := store.Load(); err == nil {
		t.Fatal("expected parse error")
	}
}
