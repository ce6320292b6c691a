// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Stash tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/stash/internal/apperr"
	"github.com/starford/stash/internal/itemservice"
	"github.com/starford/stash/internal/models"
	"github.com/starford/stash/internal/query"
	"github.com/starford/stash/internal/search"
)

// Server wraps the MCP server with Stash tools.
type Server struct {
	mcp         *server.MCPServer
	items       *itemservice.Service
	searcher    *search.Service
	libraryRoot string
}

// New creates a new MCP server with all Stash tools registered.
func New(items *itemservice.Service, searcher *search.Service, libraryRoot string) *Server {
	s := &Server{items: items, searcher: searcher, libraryRoot: libraryRoot}

	s.mcp = server.NewMCPServer(
		"Stash",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_items",
		mcp.WithDescription("Full-text search through saved items. Supports the query "+
			"mini-language: free text, \"quoted phrases\", and key:value filters "+
			"(type, tag, collection, source). See the get_item_contract tool."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("sort", mcp.Description("Result order: relevance (default) or recency")),
	), s.searchItems)

	s.mcp.AddTool(mcp.NewTool("read_item",
		mcp.WithDescription("Read a saved item as JSON, including body and metadata."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
	), s.readItem)

	s.mcp.AddTool(mcp.NewTool("save_item",
		mcp.WithDescription("Save a new item (link, snippet, or document). The item "+
			"argument MUST follow the canonical item format. Read the contract first via "+
			"the get_item_contract tool or the stash://item-format resource."),
		mcp.WithString("item", mcp.Required(), mcp.Description("Item as a JSON object following the Stash item format contract")),
	), s.saveItem)

	s.mcp.AddTool(mcp.NewTool("get_item_contract",
		mcp.WithDescription("Returns the canonical Stash item format contract and query "+
			"language reference. Call this before saving items or building search queries."),
	), s.getItemContract)

	s.mcp.AddTool(mcp.NewTool("list_items",
		mcp.WithDescription("List saved items, optionally filtered by tag."),
		mcp.WithString("tag", mcp.Description("Optional tag to filter by (empty for all)")),
	), s.listItems)

	s.mcp.AddTool(mcp.NewTool("remove_item",
		mcp.WithDescription("Delete a saved item by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item id to delete")),
	), s.removeItem)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Download an asset (image or PDF) from a URL or data URI and "+
			"store it in the attachments directory. Returns the saved path and a ready "+
			"Markdown image reference."),
		mcp.WithString("url", mcp.Required(), mcp.Description("HTTP(S) URL or base64 data URI of the asset")),
		mcp.WithString("filename", mcp.Description("Optional file name override")),
	), s.uploadAsset)

	// Resource: item format contract.
	s.mcp.AddResource(
		mcp.NewResource("stash://item-format", "Item Format Contract",
			mcp.WithResourceDescription("Canonical item JSON format and search query language."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readItemFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sort := query.SortRelevance
	if v, sErr := req.RequireString("sort"); sErr == nil {
		sort = query.ParseSort(v)
	}

	results := s.searcher.Search(ctx, raw, sort)
	if len(results) == 0 {
		return mcp.NewToolResultText("no results"), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.items.GetItem(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(detail, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) saveItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("item")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var item models.Item
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid item JSON: %v", err)), nil
	}

	detail, err := s.items.CreateItem(ctx, &item)
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return mcp.NewToolResultError(fmt.Sprintf("item already exists: %s", item.ID)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s", detail.ID)), nil
}

func (s *Server) listItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag := ""
	if v, err := req.RequireString("tag"); err == nil {
		tag = v
	}

	entries, _, err := s.items.ListItems(ctx, 0, 0, tag, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("no items"), nil
	}

	var lines []string
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s\t%s", e.ID, e.Title))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) removeItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.items.DeleteItem(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) getItemContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ItemFormatContract), nil
}

func (s *Server) readItemFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "stash://item-format",
			MIMEType: "text/markdown",
			Text:     ItemFormatContract,
		},
	}, nil
}
