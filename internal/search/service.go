// Package search is the query entry point: it parses raw user queries, runs
// them against the index, and applies result ordering.
package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/starford/stash/internal/index"
	"github.com/starford/stash/internal/query"
	"github.com/starford/stash/internal/storage"
)

// Service ties the query language to the index and storage metadata.
type Service struct {
	idx    index.ItemIndex
	store  storage.Provider
	logger *slog.Logger
}

func NewService(idx index.ItemIndex, store storage.Provider, logger *slog.Logger) *Service {
	return &Service{idx: idx, store: store, logger: logger}
}

// Search parses raw and returns matching items. Blank input returns nothing.
// Relevance order comes straight from the index; recency order re-sorts hits
// by storage modification time, newest first.
func (s *Service) Search(ctx context.Context, raw string, order query.Sort) []index.Result {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return nil
	}

	q := query.Parse(raw, order)
	results := s.idx.Search(q)
	if q.Sort == query.SortRecency && len(results) > 1 {
		s.sortByRecency(results)
	}
	return results
}

// sortByRecency reorders results by item update time from storage metadata.
// Items missing from storage sort last; the sort is stable, so ties keep
// their relevance order.
func (s *Service) sortByRecency(results []index.Result) {
	metas, err := s.store.List()
	if err != nil {
		s.logger.Warn("recency sort unavailable, keeping relevance order", "error", err)
		return
	}
	updated := make(map[string]time.Time, len(metas))
	for _, m := range metas {
		updated[m.ID] = m.UpdatedAt
	}
	sort.SliceStable(results, func(i, j int) bool {
		return updated[results[i].ItemID].After(updated[results[j].ItemID])
	})
}
