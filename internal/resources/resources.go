// Package resources implements MCP resource handlers for taskloom.
//
// Resources provide read-only data that the host can consume for
// context. They use URI-based addressing (taskloom://...) following
// MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/taskloom/taskloom/internal/tracker"
)

// Handler manages taskloom resource endpoints.
type Handler struct {
	tracker *tracker.Tracker
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(tr *tracker.Tracker) *Handler {
	return &Handler{tracker: tr}
}

// StatsResource returns the MCP resource definition for graph stats.
func (h *Handler) StatsResource() mcp.Resource {
	return mcp.NewResource(
		"taskloom://graph/stats",
		"Work Graph Statistics",
		mcp.WithResourceDescription("Item counts by status and edge counts for the tracked work graph"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStats returns the current graph statistics as JSON.
func (h *Handler) HandleStats(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	stats, err := h.tracker.Stats(ctx)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling stats: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
