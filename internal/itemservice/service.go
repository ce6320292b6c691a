// Package itemservice implements item CRUD on top of library storage:
// validation, id assignment, timestamps, and optimistic concurrency.
package itemservice

import (
	"context"
	"errors"
	"io/fs"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/stash/internal/apperr"
	"github.com/starford/stash/internal/models"
	"github.com/starford/stash/internal/storage"
)

// Service coordinates item operations against library storage. Index updates
// ride on the storage change feed, so the service never touches the index.
type Service struct {
	store storage.Provider
}

func NewService(store storage.Provider) *Service {
	return &Service{store: store}
}

// ItemDetail is a stored item plus its current checksum, which doubles as
// the concurrency token for updates.
type ItemDetail struct {
	models.Item
	Checksum string `json:"checksum"`
}

// ListEntry is the lightweight list representation of an item.
type ListEntry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	Tags      []string  `json:"tags"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

func validateItem(item *models.Item) error {
	return validation.ValidateStruct(item,
		validation.Field(&item.Title, validation.Required, validation.Length(1, 512)),
		validation.Field(&item.Type, validation.In(models.TypeLink, models.TypeSnippet, models.TypeDocument)),
		validation.Field(&item.Source, validation.In(models.SourceWeb, models.SourceClipper, models.SourceManual, models.SourceImport)),
	)
}

// normalizeTags trims, lowercases and dedupes tags, preserving first-seen
// order.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// CreateItem validates and persists a new item. A missing id gets a UUID; an
// existing id returns ErrAlreadyExists.
func (s *Service) CreateItem(ctx context.Context, item *models.Item) (*ItemDetail, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Type == "" {
		item.Type = models.TypeSnippet
	}
	if item.Source == "" {
		item.Source = models.SourceManual
	}
	if err := validateItem(item); err != nil {
		return nil, err
	}
	if _, err := s.store.Stat(item.ID); err == nil {
		return nil, apperr.ErrAlreadyExists
	}

	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	item.Tags = normalizeTags(item.Tags)

	if err := s.store.Write(item); err != nil {
		return nil, err
	}
	return s.GetItem(ctx, item.ID)
}

// UpdateItem replaces an item's content. A non-empty ifMatch must equal the
// stored checksum or the update fails with ErrConflict. CreatedAt survives
// from the stored item.
func (s *Service) UpdateItem(ctx context.Context, id string, item *models.Item, ifMatch string) (*ItemDetail, error) {
	existing, err := s.store.Read(id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if ifMatch != "" {
		meta, err := s.store.Stat(id)
		if err != nil {
			return nil, mapNotFound(err)
		}
		if meta.Checksum != ifMatch {
			return nil, apperr.ErrConflict
		}
	}

	item.ID = id
	if item.Type == "" {
		item.Type = existing.Type
	}
	if item.Source == "" {
		item.Source = existing.Source
	}
	if err := validateItem(item); err != nil {
		return nil, err
	}
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = time.Now().UTC()
	item.Tags = normalizeTags(item.Tags)

	if err := s.store.Write(item); err != nil {
		return nil, err
	}
	return s.GetItem(ctx, id)
}

// GetItem loads one item with its checksum.
func (s *Service) GetItem(ctx context.Context, id string) (*ItemDetail, error) {
	item, err := s.store.Read(id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	meta, err := s.store.Stat(id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if item.Tags == nil {
		item.Tags = []string{}
	}
	return &ItemDetail{Item: *item, Checksum: meta.Checksum}, nil
}

// DeleteItem removes an item from storage.
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	if err := s.store.Delete(id); err != nil {
		return mapNotFound(err)
	}
	return nil
}

// ListItems returns a page of items, optionally filtered by tag, sorted by
// "updated" (newest first, the default) or "title". The second return value
// is the total after filtering, before paging.
func (s *Service) ListItems(ctx context.Context, limit, offset int, tag, sortBy string) ([]ListEntry, int, error) {
	metas, err := s.store.List()
	if err != nil {
		return nil, 0, err
	}

	tag = strings.ToLower(strings.TrimSpace(tag))
	entries := make([]ListEntry, 0, len(metas))
	for _, meta := range metas {
		item, err := s.store.Read(meta.ID)
		if err != nil {
			// Skip items that vanish or fail to decode mid-listing.
			continue
		}
		tags := normalizeTags(item.Tags)
		if tag != "" && !contains(tags, tag) {
			continue
		}
		entries = append(entries, ListEntry{
			ID:        item.ID,
			Title:     item.Title,
			Type:      item.Type,
			Tags:      tags,
			Checksum:  meta.Checksum,
			UpdatedAt: meta.UpdatedAt,
		})
	}

	switch sortBy {
	case "title":
		sort.Slice(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].Title) < strings.ToLower(entries[j].Title)
		})
	default:
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
		})
	}

	total := len(entries)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return entries[offset:end], total, nil
}

func contains(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func mapNotFound(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return apperr.ErrNotFound
	}
	return err
}
