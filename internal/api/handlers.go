package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/stash/internal/apperr"
	"github.com/starford/stash/internal/itemservice"
	"github.com/starford/stash/internal/models"
	"github.com/starford/stash/internal/query"
	"github.com/starford/stash/internal/search"
)

// Reindexer triggers a full rebuild of the search index.
type Reindexer interface {
	ReindexAll() error
}

// Handler holds API route handlers.
type Handler struct {
	items    *itemservice.Service
	searcher *search.Service
	reindex  Reindexer
}

// NewHandler creates a new Handler.
func NewHandler(items *itemservice.Service, searcher *search.Service, reindex Reindexer) *Handler {
	return &Handler{items: items, searcher: searcher, reindex: reindex}
}

// ListItems handles GET /items.
//
//	@Summary		List items with optional pagination and filtering
//	@Tags			items
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated, title)
//	@Success		200		{object}	ItemListResponse
//	@Security		BearerAuth
//	@Router			/items [get]
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	entries, total, err := h.items.ListItems(r.Context(), limit, offset, q.Get("tag"), q.Get("sort"))
	if err != nil {
		slog.Error("list items failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": entries,
		"total": total,
	})
}

// GetItem handles GET /items/{id}.
//
//	@Summary		Get a single item by id
//	@Tags			items
//	@Produce		json
//	@Param			id	path		string	true	"Item id"
//	@Success		200	{object}	ItemDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items/{id} [get]
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, err := h.items.GetItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get item failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// CreateItem handles POST /items.
//
//	@Summary		Create a new item
//	@Tags			items
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.Item	true	"Item to create"
//	@Success		201		{object}	ItemDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items [post]
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var item models.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	detail, err := h.items.CreateItem(r.Context(), &item)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrAlreadyExists):
			writeJSON(w, http.StatusConflict, errorBody("item already exists"))
		case isValidationError(err):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		default:
			slog.Error("create item failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, detail)
}

// UpdateItem handles PUT /items/{id}.
//
//	@Summary		Update an item with optimistic concurrency
//	@Tags			items
//	@Accept			json
//	@Produce		json
//	@Param			id			path	string		true	"Item id"
//	@Param			If-Match	header	string		false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	models.Item	true	"Updated item"
//	@Success		200		{object}	ItemDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items/{id} [put]
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	id := chi.URLParam(r, "id")

	var item models.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	ifMatch := r.Header.Get("If-Match")
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch = strings.Trim(ifMatch, `"`)

	detail, err := h.items.UpdateItem(r.Context(), id, &item, ifMatch)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrConflict):
			writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
		case isValidationError(err):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		default:
			slog.Error("update item failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// DeleteItem handles DELETE /items/{id}.
//
//	@Summary		Delete an item
//	@Tags			items
//	@Param			id	path	string	true	"Item id"
//	@Success		204	"Item deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items/{id} [delete]
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.items.DeleteItem(r.Context(), id); err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			slog.Error("delete item failed", slog.String("id", id), slog.String("error", err.Error()))
		}
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /search.
//
//	@Summary		Full-text search across items
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			sort	query		string	false	"Result order"	Enums(relevance, recency)
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	order := query.ParseSort(r.URL.Query().Get("sort"))

	hits := h.searcher.Search(r.Context(), q, order)
	results := make([]SearchResult, len(hits))
	for i, hit := range hits {
		results[i] = SearchResult{ItemID: hit.ItemID, Title: hit.Title, Snippet: hit.Snippet}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// Reindex handles POST /reindex.
//
//	@Summary		Rebuild the search index from storage
//	@Tags			search
//	@Success		202	"Reindex completed"
//	@Security		BearerAuth
//	@Router			/reindex [post]
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	if err := h.reindex.ReindexAll(); err != nil {
		slog.Error("reindex failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func isValidationError(err error) bool {
	var verr validation.Errors
	if errors.As(err, &verr) {
		return true
	}
	var oerr validation.ErrorObject
	return errors.As(err, &oerr)
}
