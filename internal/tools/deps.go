package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/taskloom/taskloom/internal/item"
	"github.com/taskloom/taskloom/internal/tracker"
)

func edgeFromRequest(req mcp.CallToolRequest) (item.Edge, *mcp.CallToolResult) {
	from := req.GetString("from", "")
	to := req.GetString("to", "")
	if from == "" || to == "" {
		return item.Edge{}, mcp.NewToolResultError("'from' and 'to' are required")
	}
	kind := item.EdgeKind(req.GetString("kind", string(item.KindBlocks)))
	return item.Edge{From: from, To: to, Kind: kind}, nil
}

// AddDepTool handles the dep_add MCP tool.
type AddDepTool struct {
	tracker *tracker.Tracker
}

// NewAddDepTool creates an AddDepTool.
func NewAddDepTool(tr *tracker.Tracker) *AddDepTool {
	return &AddDepTool{tracker: tr}
}

// Definition returns the MCP tool definition for dep_add.
func (t *AddDepTool) Definition() mcp.Tool {
	return mcp.NewTool("dep_add",
		mcp.WithDescription(
			"Add a dependency edge between two existing work items. "+
				"Adding an edge that already exists is a no-op.",
		),
		mcp.WithString("from",
			mcp.Required(),
			mcp.Description("Source item id (the blocker or parent)"),
		),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Target item id (the blocked item or child)"),
		),
		mcp.WithString("kind",
			mcp.Description("Edge kind: blocks or parent_of (default: blocks)"),
		),
	)
}

// Handle processes the dep_add tool call.
func (t *AddDepTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, errRes := edgeFromRequest(req)
	if errRes != nil {
		return errRes, nil
	}
	if err := t.tracker.AddEdge(ctx, e); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Added %s edge %s -> %s", e.Kind, e.From, e.To)), nil
}

// RemoveDepTool handles the dep_remove MCP tool.
type RemoveDepTool struct {
	tracker *tracker.Tracker
}

// NewRemoveDepTool creates a RemoveDepTool.
func NewRemoveDepTool(tr *tracker.Tracker) *RemoveDepTool {
	return &RemoveDepTool{tracker: tr}
}

// Definition returns the MCP tool definition for dep_remove.
func (t *RemoveDepTool) Definition() mcp.Tool {
	return mcp.NewTool("dep_remove",
		mcp.WithDescription("Remove a dependency edge between two work items."),
		mcp.WithString("from",
			mcp.Required(),
			mcp.Description("Source item id"),
		),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Target item id"),
		),
		mcp.WithString("kind",
			mcp.Description("Edge kind: blocks or parent_of (default: blocks)"),
		),
	)
}

// Handle processes the dep_remove tool call.
func (t *RemoveDepTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, errRes := edgeFromRequest(req)
	if errRes != nil {
		return errRes, nil
	}
	if err := t.tracker.RemoveEdge(ctx, e); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Removed %s edge %s -> %s", e.Kind, e.From, e.To)), nil
}
