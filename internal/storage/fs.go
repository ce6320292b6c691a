package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/stash/internal/checksum"
	"github.com/starford/stash/internal/models"
)

const itemExt = ".json"

// FS implements Provider backed by the local file system: every item is one
// JSON document named <id>.json under the library root. Attached files live
// in a separate attachments/ subdirectory and are not items.
type FS struct {
	root string // absolute path to library directory
	feed *Feed  // optional; nil disables change publication
}

// NewFS creates an FS provider rooted at the given directory, which must
// already exist. Writes and deletes publish single-event batches to feed.
func NewFS(root string, feed *Feed) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs, feed: feed}, nil
}

// Root returns the absolute library directory.
func (f *FS) Root() string {
	return f.root
}

// itemPath validates the id (a plain file name, no separators or traversal)
// and returns the absolute path of its JSON document.
func (f *FS) itemPath(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("storage: item id is empty")
	}
	cleaned := filepath.Clean(id)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("storage: invalid item id: %s", id)
	}
	abs := filepath.Join(f.root, cleaned+itemExt)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: item id escapes library root: %s", id)
	}
	return abs, nil
}

// List returns metadata for every item document in the library root.
func (f *FS) List() ([]models.ItemMetadata, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	var out []models.ItemMetadata
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), itemExt) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("storage: stat %s: %w", e.Name(), err)
		}
		data, err := os.ReadFile(filepath.Join(f.root, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("storage: read %s: %w", e.Name(), err)
		}
		out = append(out, models.ItemMetadata{
			ID:        strings.TrimSuffix(e.Name(), itemExt),
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
	}
	return out, nil
}

// Read loads and decodes the item with the given id.
func (f *FS) Read(id string) (*models.Item, error) {
	abs, err := f.itemPath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", id, err)
	}
	var item models.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w", id, err)
	}
	return &item, nil
}

// Stat returns checksum and update time for a single item.
func (f *FS) Stat(id string) (models.ItemMetadata, error) {
	abs, err := f.itemPath(id)
	if err != nil {
		return models.ItemMetadata{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return models.ItemMetadata{}, fmt.Errorf("storage: stat %s: %w", id, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return models.ItemMetadata{}, fmt.Errorf("storage: read %s: %w", id, err)
	}
	return models.ItemMetadata{
		ID:        id,
		Checksum:  checksum.Sum(data),
		UpdatedAt: info.ModTime(),
	}, nil
}

// Write atomically persists the item (tmp file, fsync, rename) and publishes
// a created or updated event depending on prior existence.
func (f *FS) Write(item *models.Item) error {
	abs, err := f.itemPath(item.ID)
	if err != nil {
		return err
	}
	_, statErr := os.Stat(abs)
	existed := statErr == nil

	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", item.ID, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(f.root, ".stash-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true

	if f.feed != nil {
		kind := EventCreated
		if existed {
			kind = EventUpdated
		}
		f.feed.Publish([]Event{{Kind: kind, ID: item.ID}})
	}
	return nil
}

// Delete removes an item document and publishes a deleted event.
func (f *FS) Delete(id string) error {
	abs, err := f.itemPath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", id, err)
	}
	if f.feed != nil {
		f.feed.Publish([]Event{{Kind: EventDeleted, ID: id}})
	}
	return nil
}
