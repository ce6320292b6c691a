// Package storage implements the primary item store: one JSON document per
// item on the local file system, plus a change feed for observers.
package storage

import "github.com/starford/stash/internal/models"

// Provider is the interface for primary-store item operations.
type Provider interface {
	// List returns metadata for every item in the library.
	List() ([]models.ItemMetadata, error)
	// Read returns the item with the given id.
	Read(id string) (*models.Item, error)
	// Stat returns metadata (checksum, update time) for a single item.
	Stat(id string) (models.ItemMetadata, error)
	// Write atomically persists the item and publishes a change event.
	Write(item *models.Item) error
	// Delete removes the item and publishes a change event.
	Delete(id string) error
}

// EventKind classifies a change-feed event.
type EventKind string

// Change-feed event kinds.
const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// Event references one changed item.
type Event struct {
	Kind EventKind
	ID   string
}
