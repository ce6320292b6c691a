package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/stash/internal/models"
)

func tempLibrary(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir, nil)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func testItem(id, title string) *models.Item {
	now := time.Now().UTC()
	return &models.Item{
		ID:        id,
		Title:     title,
		Body:      "body of " + title,
		Type:      models.TypeSnippet,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestWriteAndRead(t *testing.T) {
	s := tempLibrary(t)
	if err := s.Write(testItem("a1", "First")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a1")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Title != "First" {
		t.Errorf("title = %q, want First", got.Title)
	}
}

func TestDelete(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write(testItem("gone", "Bye"))
	if err := s.Delete("gone"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("gone"); err == nil {
		t.Error("expected error reading deleted item")
	}
}

func TestList(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write(testItem("one", "One"))
	_ = s.Write(testItem("two", "Two"))
	_ = os.WriteFile(filepath.Join(s.root, "readme.txt"), []byte("not an item"), 0o644)
	_ = os.MkdirAll(filepath.Join(s.root, "attachments"), 0o755)

	metas, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 2 {
		t.Errorf("len = %d, want 2", len(metas))
	}
}

func TestStat(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write(testItem("st", "Stat Me"))
	meta, err := s.Stat("st")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if meta.ID != "st" || meta.Checksum == "" {
		t.Errorf("meta = %+v", meta)
	}
}

func TestInvalidIDBlocked(t *testing.T) {
	s := tempLibrary(t)

	cases := []string{
		"../../etc/passwd",
		"../outside",
		"a/b",
		"",
	}
	for _, id := range cases {
		if _, err := s.Read(id); err == nil {
			t.Errorf("expected error for id %q", id)
		}
		if err := s.Write(&models.Item{ID: id}); err == nil {
			t.Errorf("expected error for write with id %q", id)
		}
	}
}

func TestWritePublishesEvents(t *testing.T) {
	dir := t.TempDir()
	feed := NewFeed()
	defer feed.Close()
	s, err := NewFS(dir, feed)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	sub := feed.Subscribe()
	defer feed.Unsubscribe(sub)

	_ = s.Write(testItem("ev", "Evented"))
	expectEvent(t, sub, EventCreated, "ev")

	_ = s.Write(testItem("ev", "Evented v2"))
	expectEvent(t, sub, EventUpdated, "ev")

	_ = s.Delete("ev")
	expectEvent(t, sub, EventDeleted, "ev")
}

func expectEvent(t *testing.T, sub chan []Event, kind EventKind, id string) {
	t.Helper()
	select {
	case batch := <-sub:
		if len(batch) != 1 || batch[0].Kind != kind || batch[0].ID != id {
			t.Errorf("batch = %+v, want [%s %s]", batch, kind, id)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for %s:%s", kind, id)
	}
}

func TestAtomicWriteNoLeftoverTemp(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write(testItem("at", "v1"))
	if err := s.Write(testItem("at", "v2")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("at")
	if got.Title != "v2" {
		t.Errorf("title = %q, want v2", got.Title)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, ".stash-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/stash-does-not-exist-"+t.Name(), nil)
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "stash-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name(), nil)
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
