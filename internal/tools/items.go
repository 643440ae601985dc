package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/taskloom/taskloom/internal/item"
	"github.com/taskloom/taskloom/internal/store"
	"github.com/taskloom/taskloom/internal/tracker"
)

// CreateItemTool handles the item_create MCP tool.
type CreateItemTool struct {
	tracker *tracker.Tracker
}

// NewCreateItemTool creates a CreateItemTool.
func NewCreateItemTool(tr *tracker.Tracker) *CreateItemTool {
	return &CreateItemTool{tracker: tr}
}

// Definition returns the MCP tool definition for item_create.
func (t *CreateItemTool) Definition() mcp.Tool {
	return mcp.NewTool("item_create",
		mcp.WithDescription(
			"Create a work item. Returns the stored item including its generated id.",
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Work item title (non-empty)"),
		),
		mcp.WithString("priority",
			mcp.Description("Priority: low, medium, high, critical (default: medium)"),
		),
		mcp.WithString("type",
			mcp.Description("Item type: feature, bug, track, epic (default: feature)"),
		),
		mcp.WithNumber("estimated_effort_hours",
			mcp.Description("Optional effort estimate in hours"),
		),
	)
}

// Handle processes the item_create tool call.
func (t *CreateItemTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := req.GetString("title", "")
	if title == "" {
		return mcp.NewToolResultError("'title' is required"), nil
	}

	w, err := t.tracker.CreateItem(ctx, store.CreateParams{
		Title:          title,
		Priority:       item.Priority(req.GetString("priority", "")),
		Type:           item.Type(req.GetString("type", "")),
		EstimatedHours: floatArg(req, "estimated_effort_hours"),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create item: %v", err)), nil
	}
	return jsonResult(w)
}

// GetItemTool handles the item_get MCP tool.
type GetItemTool struct {
	tracker *tracker.Tracker
}

// NewGetItemTool creates a GetItemTool.
func NewGetItemTool(tr *tracker.Tracker) *GetItemTool {
	return &GetItemTool{tracker: tr}
}

// Definition returns the MCP tool definition for item_get.
func (t *GetItemTool) Definition() mcp.Tool {
	return mcp.NewTool("item_get",
		mcp.WithDescription("Fetch one work item by id."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Work item id"),
		),
	)
}

// Handle processes the item_get tool call.
func (t *GetItemTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	w, err := t.tracker.GetItem(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(w)
}

// UpdateItemTool handles the item_update MCP tool.
type UpdateItemTool struct {
	tracker *tracker.Tracker
}

// NewUpdateItemTool creates an UpdateItemTool.
func NewUpdateItemTool(tr *tracker.Tracker) *UpdateItemTool {
	return &UpdateItemTool{tracker: tr}
}

// Definition returns the MCP tool definition for item_update.
func (t *UpdateItemTool) Definition() mcp.Tool {
	return mcp.NewTool("item_update",
		mcp.WithDescription(
			"Update fields of a work item. Only the provided fields change; "+
				"a rejected update leaves the item untouched.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Work item id"),
		),
		mcp.WithString("title",
			mcp.Description("New title"),
		),
		mcp.WithString("status",
			mcp.Description("New status: todo, in-progress, blocked, done"),
		),
		mcp.WithString("priority",
			mcp.Description("New priority: low, medium, high, critical"),
		),
		mcp.WithString("type",
			mcp.Description("New type: feature, bug, track, epic"),
		),
		mcp.WithNumber("estimated_effort_hours",
			mcp.Description("New effort estimate in hours"),
		),
	)
}

// Handle processes the item_update tool call.
func (t *UpdateItemTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	var p store.UpdateParams
	if v := req.GetString("title", ""); v != "" {
		p.Title = &v
	}
	if v := req.GetString("status", ""); v != "" {
		s := item.Status(v)
		p.Status = &s
	}
	if v := req.GetString("priority", ""); v != "" {
		pr := item.Priority(v)
		p.Priority = &pr
	}
	if v := req.GetString("type", ""); v != "" {
		ty := item.Type(v)
		p.Type = &ty
	}
	p.EstimatedHours = floatArg(req, "estimated_effort_hours")

	w, err := t.tracker.UpdateItem(ctx, id, p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(w)
}

// DeleteItemTool handles the item_delete MCP tool.
type DeleteItemTool struct {
	tracker *tracker.Tracker
}

// NewDeleteItemTool creates a DeleteItemTool.
func NewDeleteItemTool(tr *tracker.Tracker) *DeleteItemTool {
	return &DeleteItemTool{tracker: tr}
}

// Definition returns the MCP tool definition for item_delete.
func (t *DeleteItemTool) Definition() mcp.Tool {
	return mcp.NewTool("item_delete",
		mcp.WithDescription(
			"Delete a work item. Fails while other items still depend on it; "+
				"remove its dependencies first.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Work item id"),
		),
	)
}

// Handle processes the item_delete tool call.
func (t *DeleteItemTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	if err := t.tracker.DeleteItem(ctx, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted %s", id)), nil
}

// ListItemsTool handles the item_list MCP tool.
type ListItemsTool struct {
	tracker *tracker.Tracker
}

// NewListItemsTool creates a ListItemsTool.
func NewListItemsTool(tr *tracker.Tracker) *ListItemsTool {
	return &ListItemsTool{tracker: tr}
}

// Definition returns the MCP tool definition for item_list.
func (t *ListItemsTool) Definition() mcp.Tool {
	return mcp.NewTool("item_list",
		mcp.WithDescription("List all work items, sorted by id."),
		mcp.WithString("status",
			mcp.Description("Optional status filter: todo, in-progress, blocked, done"),
		),
	)
}

// Handle processes the item_list tool call.
func (t *ListItemsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := t.tracker.ListItems(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list items: %v", err)), nil
	}

	if f := req.GetString("status", ""); f != "" {
		status := item.Status(f)
		if err := item.ValidateStatus(status); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		filtered := items[:0]
		for _, w := range items {
			if w.Status == status {
				filtered = append(filtered, w)
			}
		}
		items = filtered
	}
	return jsonResult(items)
}
