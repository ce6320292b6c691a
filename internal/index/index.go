// Package index maintains the SQLite FTS5 search index over library items.
// All database access is serialized through a single goroutine that owns the
// connection, so writes never race and reads observe every prior write.
package index

import "github.com/starford/stash/internal/query"

// ItemIndex is the search index contract. Upsert and Delete are asynchronous;
// Flush blocks until all previously submitted writes have been applied.
type ItemIndex interface {
	Upsert(doc Document)
	Delete(id string)
	Search(q query.SearchQuery) []Result
	Flush()
	Close() error
}

var _ ItemIndex = (*Store)(nil)

// Document is the denormalized, index-ready projection of an item.
type Document struct {
	ID          string
	Title       string
	Content     string
	Tags        []string
	Collection  string
	AISummary   string
	Annotations string
	Protected   bool
	Type        string
	Source      string
}

// Result is one search hit. Results arrive best match first.
type Result struct {
	ItemID  string
	Title   string
	Snippet string
}
