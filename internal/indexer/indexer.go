// Package indexer keeps the search index in step with library storage. It
// projects items into index documents and applies change batches from the
// storage feed.
package indexer

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/starford/stash/internal/index"
	"github.com/starford/stash/internal/models"
	"github.com/starford/stash/internal/storage"
)

// Project flattens an item into its index document. Link metadata and the
// attachment file name join the body so they are searchable as content. Tags
// are lowercased so tag filters are case-insensitive.
func Project(item *models.Item) index.Document {
	parts := []string{item.Body}
	if item.LinkTitle != "" && item.LinkTitle != item.Title {
		parts = append(parts, item.LinkTitle)
	}
	if item.LinkURL != "" {
		parts = append(parts, item.LinkURL)
	}
	if item.FileName != "" {
		parts = append(parts, item.FileName)
	}

	tags := make([]string, 0, len(item.Tags))
	for _, tag := range item.Tags {
		tags = append(tags, strings.ToLower(tag))
	}

	return index.Document{
		ID:         item.ID,
		Title:      item.Title,
		Content:    strings.TrimSpace(strings.Join(parts, "\n")),
		Tags:       tags,
		Collection: strings.ToLower(item.Collection),
		AISummary:  item.AISummary,
		Protected:  item.Protected,
		Type:       item.Type,
		Source:     item.Source,
	}
}

// Indexer consumes storage change events and mirrors them into the index.
type Indexer struct {
	idx    index.ItemIndex
	store  storage.Provider
	feed   *storage.Feed
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(idx index.ItemIndex, store storage.Provider, feed *storage.Feed, logger *slog.Logger) *Indexer {
	return &Indexer{idx: idx, store: store, feed: feed, logger: logger}
}

// IndexItem projects and upserts a single item.
func (ix *Indexer) IndexItem(item *models.Item) {
	ix.idx.Upsert(Project(item))
}

// Remove drops an item from the index.
func (ix *Indexer) Remove(id string) {
	ix.idx.Delete(id)
}

// ReindexAll rebuilds index rows for every item in storage. Items that fail
// to load are removed from the index rather than left stale.
func (ix *Indexer) ReindexAll() error {
	metas, err := ix.store.List()
	if err != nil {
		return err
	}
	for _, meta := range metas {
		item, err := ix.store.Read(meta.ID)
		if err != nil {
			ix.logger.Warn("reindex read failed, dropping from index", "id", meta.ID, "error", err)
			ix.idx.Delete(meta.ID)
			continue
		}
		ix.IndexItem(item)
	}
	ix.idx.Flush()
	return nil
}

// Start subscribes to the storage feed and applies batches until the context
// ends or Stop is called. Calling Start twice is a no-op.
func (ix *Indexer) Start(ctx context.Context) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	ix.cancel = cancel
	ix.done = make(chan struct{})
	sub := ix.feed.Subscribe()
	go ix.loop(ctx, sub, ix.done)
}

// Stop cancels the event loop and waits for it to finish.
func (ix *Indexer) Stop() {
	ix.mu.Lock()
	cancel, done := ix.cancel, ix.done
	ix.cancel = nil
	ix.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (ix *Indexer) loop(ctx context.Context, sub chan []storage.Event, done chan struct{}) {
	defer close(done)
	defer ix.feed.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-sub:
			if !ok {
				return
			}
			ix.apply(batch)
		}
	}
}

// apply mirrors one change batch. Deletions always reach the index; a failed
// read on create or update also deletes, so the index never serves an item
// storage cannot.
func (ix *Indexer) apply(batch []storage.Event) {
	for _, ev := range batch {
		if ev.Kind == storage.EventDeleted {
			ix.idx.Delete(ev.ID)
			continue
		}
		item, err := ix.store.Read(ev.ID)
		if err != nil {
			ix.logger.Warn("event read failed, dropping from index", "id", ev.ID, "error", err)
			ix.idx.Delete(ev.ID)
			continue
		}
		ix.IndexItem(item)
	}
}
