package api

import "github.com/starford/stash/internal/itemservice"

// ItemDetail is the full item response type (aliased from the domain layer).
type ItemDetail = itemservice.ItemDetail

// ItemListEntry is a lightweight entry in a list response (aliased from the domain layer).
type ItemListEntry = itemservice.ListEntry

// ItemListResponse wraps paginated item listings.
type ItemListResponse struct {
	Items []ItemListEntry `json:"items" validate:"required"`
	Total int             `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	ItemID  string `json:"item_id" example:"9b2d..." validate:"required"`
	Title   string `json:"title" example:"Hello" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// AttachmentUploadResponse is returned after a successful attachment upload.
type AttachmentUploadResponse struct {
	Filename string `json:"filename" example:"image.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/attachments/image.png" validate:"required"`
}
