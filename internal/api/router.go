package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/stash/internal/itemservice"
	"github.com/starford/stash/internal/search"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// libraryRoot is used to resolve the attachments directory.
func NewRouter(items *itemservice.Service, searcher *search.Service, reindex Reindexer, authEnabled bool, token string, sseHandler http.Handler, libraryRoot string) chi.Router {
	h := NewHandler(items, searcher, reindex)
	ah := NewAttachmentHandler(libraryRoot)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Items CRUD.
	r.Get("/items", h.ListItems)
	r.Post("/items", h.CreateItem)
	r.Get("/items/{id}", h.GetItem)
	r.Put("/items/{id}", h.UpdateItem)
	r.Delete("/items/{id}", h.DeleteItem)

	// Search and index maintenance.
	r.Get("/search", h.Search)
	r.Post("/reindex", h.Reindex)

	// Attachments upload (auth-protected).
	r.Post("/attachments", ah.Upload)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
