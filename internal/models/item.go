// Package models defines the domain types for Stash.
package models

import "time"

// Item type values.
const (
	TypeLink     = "link"
	TypeSnippet  = "snippet"
	TypeDocument = "document"
)

// Item source values.
const (
	SourceWeb     = "web"
	SourceClipper = "clipper"
	SourceManual  = "manual"
	SourceImport  = "import"
)

// Item represents one saved entry in the library: a link, a text snippet,
// or a document with an attached file.
type Item struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body,omitempty"`
	LinkURL    string    `json:"link_url,omitempty"`
	LinkTitle  string    `json:"link_title,omitempty"`
	FileName   string    `json:"file_name,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Collection string    `json:"collection,omitempty"`
	AISummary  string    `json:"ai_summary,omitempty"`
	Protected  bool      `json:"protected,omitempty"`
	Type       string    `json:"type,omitempty"`
	Source     string    `json:"source,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ItemMetadata is a lightweight representation returned by list operations.
type ItemMetadata struct {
	ID        string    `json:"id"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
