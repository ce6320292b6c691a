package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/stash/internal/checksum"
)

// watchDebounce is how long the watcher waits after the last file event
// before publishing the accumulated batch.
const watchDebounce = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the library root and translates file
// changes into change-feed batches until ctx is cancelled. Events caused by
// in-process writes are also observed here and may be republished; that is
// harmless because indexing is idempotent. Edits that leave a file's content
// byte-identical are suppressed via checksum comparison.
func Watch(ctx context.Context, fs *FS, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(fs.root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", fs.root))

	// Seed the checksum cache so pre-existing items do not fire on the
	// first external touch that leaves them unchanged.
	seen := make(map[string]string)
	if metas, listErr := fs.List(); listErr == nil {
		for _, m := range metas {
			seen[m.ID] = m.Checksum
		}
	}

	pending := make(map[string]EventKind)
	var flushTimer *time.Timer
	var flushCh <-chan time.Time

	scheduleFlush := func() {
		if flushTimer == nil {
			flushTimer = time.NewTimer(watchDebounce)
			flushCh = flushTimer.C
		} else {
			flushTimer.Reset(watchDebounce)
		}
	}

	flush := func() {
		if len(pending) == 0 {
			return
		}
		batch := make([]Event, 0, len(pending))
		for id, kind := range pending {
			batch = append(batch, Event{Kind: kind, ID: id})
		}
		pending = make(map[string]EventKind)
		logger.Debug("watcher: publishing batch", slog.Int("events", len(batch)))
		if fs.feed != nil {
			fs.feed.Publish(batch)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if flushTimer != nil {
				flushTimer.Stop()
			}
			flush()
			logger.Info("watcher: stopped")
			return nil

		case <-flushCh:
			flush()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			name := filepath.Base(ev.Name)
			if !strings.HasSuffix(name, itemExt) || strings.HasPrefix(name, ".") {
				continue
			}
			id := strings.TrimSuffix(name, itemExt)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := os.ReadFile(ev.Name)
				if readErr != nil {
					// Partial write or already gone; a later event settles it.
					continue
				}
				sum := checksum.Sum(data)
				if seen[id] == sum {
					continue
				}
				kind := EventUpdated
				if _, known := seen[id]; !known {
					kind = EventCreated
				}
				seen[id] = sum
				pending[id] = kind
				scheduleFlush()

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// fsnotify fires Rename on the old path only; a renamed item
				// reappears as a Create event if it stays in the library.
				delete(seen, id)
				pending[id] = EventDeleted
				scheduleFlush()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
