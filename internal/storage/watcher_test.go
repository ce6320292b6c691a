package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func watcherTestEnv(t *testing.T) (*FS, *Feed) {
	t.Helper()
	dir := t.TempDir()
	feed := NewFeed()
	t.Cleanup(feed.Close)
	fs, err := NewFS(dir, feed)
	if err != nil {
		t.Fatal(err)
	}
	return fs, feed
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

// collectEvents subscribes to feed and accumulates flattened events.
func collectEvents(t *testing.T, feed *Feed) func() []Event {
	t.Helper()
	sub := feed.Subscribe()
	var mu sync.Mutex
	var events []Event
	go func() {
		for batch := range sub {
			mu.Lock()
			events = append(events, batch...)
			mu.Unlock()
		}
	}()
	return func() []Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]Event(nil), events...)
	}
}

func hasEvent(events []Event, kind EventKind, id string) bool {
	for _, e := range events {
		if e.Kind == kind && e.ID == id {
			return true
		}
	}
	return false
}

func TestWatcher_ExternalCreatePublished(t *testing.T) {
	fs, feed := watcherTestEnv(t)
	got := collectEvents(t, feed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, fs, quietLogger())
	time.Sleep(100 * time.Millisecond)

	// Simulate an external tool dropping an item file into the library.
	_ = os.WriteFile(filepath.Join(fs.root, "ext1.json"), []byte(`{"id":"ext1","title":"External"}`), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return hasEvent(got(), EventCreated, "ext1")
	}, "expected created:ext1 from watcher")
}

func TestWatcher_ExternalRemovePublished(t *testing.T) {
	fs, feed := watcherTestEnv(t)

	path := filepath.Join(fs.root, "doomed.json")
	_ = os.WriteFile(path, []byte(`{"id":"doomed"}`), 0o644)

	got := collectEvents(t, feed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, fs, quietLogger())
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(path)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return hasEvent(got(), EventDeleted, "doomed")
	}, "expected deleted:doomed from watcher")
}

func TestWatcher_UnchangedContentSuppressed(t *testing.T) {
	fs, feed := watcherTestEnv(t)

	path := filepath.Join(fs.root, "same.json")
	content := []byte(`{"id":"same","title":"Same"}`)
	_ = os.WriteFile(path, content, 0o644)

	got := collectEvents(t, feed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, fs, quietLogger())
	time.Sleep(100 * time.Millisecond)

	// Rewrite identical bytes; the checksum cache should swallow it.
	_ = os.WriteFile(path, content, 0o644)
	time.Sleep(500 * time.Millisecond)

	if hasEvent(got(), EventUpdated, "same") || hasEvent(got(), EventCreated, "same") {
		t.Errorf("unchanged rewrite should not publish, got %+v", got())
	}
}

func TestWatcher_NonItemFilesIgnored(t *testing.T) {
	fs, feed := watcherTestEnv(t)
	got := collectEvents(t, feed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, fs, quietLogger())
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(fs.root, "notes.txt"), []byte("txt"), 0o644)
	_ = os.WriteFile(filepath.Join(fs.root, ".hidden.json"), []byte("{}"), 0o644)
	time.Sleep(500 * time.Millisecond)

	if len(got()) != 0 {
		t.Errorf("expected no events for non-item files, got %+v", got())
	}
}
