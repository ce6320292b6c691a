// Package testutil provides shared test helpers for setting up libraries and indexes.
package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/stash/internal/index"
	"github.com/starford/stash/internal/storage"
)

// TestIndex creates a temporary search index that is automatically cleaned up.
func TestIndex(t *testing.T) *index.Store {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	s := index.Open(filepath.Join(t.TempDir(), "index.db"), logger)
	t.Cleanup(func() { s.Close() })
	return s
}

// TestLibrary creates a temporary library directory with its change feed and
// file-system provider.
func TestLibrary(t *testing.T) (string, *storage.FS, *storage.Feed) {
	t.Helper()
	libraryDir := t.TempDir()
	feed := storage.NewFeed()
	t.Cleanup(feed.Close)
	fs, err := storage.NewFS(libraryDir, feed)
	if err != nil {
		t.Fatal(err)
	}
	return libraryDir, fs, feed
}
