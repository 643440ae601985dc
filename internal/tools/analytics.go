package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/taskloom/taskloom/internal/analytics"
	"github.com/taskloom/taskloom/internal/graph"
	"github.com/taskloom/taskloom/internal/item"
	"github.com/taskloom/taskloom/internal/tracker"
)

// snapshot fetches the current graph view, mapping failure to a tool
// error result.
func snapshot(ctx context.Context, tr *tracker.Tracker) (*graph.Snapshot, *mcp.CallToolResult) {
	s, err := tr.Snapshot(ctx)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("failed to read graph: %v", err))
	}
	return s, nil
}

// BottlenecksTool handles the find_bottlenecks MCP tool.
type BottlenecksTool struct {
	tracker *tracker.Tracker
	engine  *analytics.Engine
}

// NewBottlenecksTool creates a BottlenecksTool.
func NewBottlenecksTool(tr *tracker.Tracker, e *analytics.Engine) *BottlenecksTool {
	return &BottlenecksTool{tracker: tr, engine: e}
}

// Definition returns the MCP tool definition for find_bottlenecks.
func (t *BottlenecksTool) Definition() mcp.Tool {
	return mcp.NewTool("find_bottlenecks",
		mcp.WithDescription(
			"Rank unfinished work items by how much downstream work they block, "+
				"weighted by priority. The top results are where slipping hurts most.",
		),
		mcp.WithNumber("top_n",
			mcp.Description("How many bottlenecks to return (default: 5)"),
		),
		mcp.WithNumber("min_impact",
			mcp.Description("Minimum number of directly blocked items to qualify (default: 0)"),
		),
	)
}

// Handle processes the find_bottlenecks tool call.
func (t *BottlenecksTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, errRes := snapshot(ctx, t.tracker)
	if errRes != nil {
		return errRes, nil
	}
	return jsonResult(t.engine.FindBottlenecks(s, intArg(req, "top_n", 0), intArg(req, "min_impact", 0)))
}

// ParallelWorkTool handles the get_parallel_work MCP tool.
type ParallelWorkTool struct {
	tracker *tracker.Tracker
	engine  *analytics.Engine
}

// NewParallelWorkTool creates a ParallelWorkTool.
func NewParallelWorkTool(tr *tracker.Tracker, e *analytics.Engine) *ParallelWorkTool {
	return &ParallelWorkTool{tracker: tr, engine: e}
}

// Definition returns the MCP tool definition for get_parallel_work.
func (t *ParallelWorkTool) Definition() mcp.Tool {
	return mcp.NewTool("get_parallel_work",
		mcp.WithDescription(
			"Layer the dependency graph to show what can run in parallel: "+
				"what is ready right now, what becomes ready next, and how wide "+
				"the graph gets. Items stuck in dependency cycles are listed separately.",
		),
		mcp.WithNumber("max_agents",
			mcp.Description("Cap on reported parallelism (default: unlimited)"),
		),
		mcp.WithString("status_filter",
			mcp.Description("Status of items to schedule (default: todo)"),
		),
	)
}

// Handle processes the get_parallel_work tool call.
func (t *ParallelWorkTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := item.Status(req.GetString("status_filter", string(item.StatusTodo)))
	if err := item.ValidateStatus(filter); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s, errRes := snapshot(ctx, t.tracker)
	if errRes != nil {
		return errRes, nil
	}
	return jsonResult(t.engine.GetParallelWork(s, intArg(req, "max_agents", 0), filter))
}

// RecommendTool handles the recommend_next_work MCP tool.
type RecommendTool struct {
	tracker *tracker.Tracker
	engine  *analytics.Engine
}

// NewRecommendTool creates a RecommendTool.
func NewRecommendTool(tr *tracker.Tracker, e *analytics.Engine) *RecommendTool {
	return &RecommendTool{tracker: tr, engine: e}
}

// Definition returns the MCP tool definition for recommend_next_work.
func (t *RecommendTool) Definition() mcp.Tool {
	return mcp.NewTool("recommend_next_work",
		mcp.WithDescription(
			"Score the truly unblocked todo items and recommend what to pick up "+
				"next, favoring priority and unlock count over estimated effort.",
		),
		mcp.WithNumber("agent_count",
			mcp.Description("How many agents need work (default: 1)"),
		),
		mcp.WithNumber("lookahead",
			mcp.Description("Minimum number of recommendations (default: 5)"),
		),
	)
}

// Handle processes the recommend_next_work tool call.
func (t *RecommendTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, errRes := snapshot(ctx, t.tracker)
	if errRes != nil {
		return errRes, nil
	}
	return jsonResult(t.engine.RecommendNextWork(s, intArg(req, "agent_count", 1), intArg(req, "lookahead", 0)))
}

// RisksTool handles the assess_risks MCP tool.
type RisksTool struct {
	tracker *tracker.Tracker
	engine  *analytics.Engine
}

// NewRisksTool creates a RisksTool.
func NewRisksTool(tr *tracker.Tracker, e *analytics.Engine) *RisksTool {
	return &RisksTool{tracker: tr, engine: e}
}

// Definition returns the MCP tool definition for assess_risks.
func (t *RisksTool) Definition() mcp.Tool {
	return mcp.NewTool("assess_risks",
		mcp.WithDescription(
			"Scan the graph for structural risks: single points of failure, "+
				"dependency cycles, and orphaned items with no relations.",
		),
		mcp.WithNumber("spof_threshold",
			mcp.Description("Blocked-item count that makes a node high risk (default: 2)"),
		),
	)
}

// Handle processes the assess_risks tool call.
func (t *RisksTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, errRes := snapshot(ctx, t.tracker)
	if errRes != nil {
		return errRes, nil
	}
	return jsonResult(t.engine.AssessRisks(s, intArg(req, "spof_threshold", 0)))
}

// ImpactTool handles the analyze_impact MCP tool.
type ImpactTool struct {
	tracker *tracker.Tracker
	engine  *analytics.Engine
}

// NewImpactTool creates an ImpactTool.
func NewImpactTool(tr *tracker.Tracker, e *analytics.Engine) *ImpactTool {
	return &ImpactTool{tracker: tr, engine: e}
}

// Definition returns the MCP tool definition for analyze_impact.
func (t *ImpactTool) Definition() mcp.Tool {
	return mcp.NewTool("analyze_impact",
		mcp.WithDescription(
			"Show what completing one work item would unblock, directly and "+
				"transitively, as a share of all remaining work.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Work item id"),
		),
	)
}

// Handle processes the analyze_impact tool call.
func (t *ImpactTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	s, errRes := snapshot(ctx, t.tracker)
	if errRes != nil {
		return errRes, nil
	}
	impact, err := t.engine.AnalyzeImpact(s, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(impact)
}

// RebuildTool handles the index_rebuild MCP tool.
type RebuildTool struct {
	tracker *tracker.Tracker
}

// NewRebuildTool creates a RebuildTool.
func NewRebuildTool(tr *tracker.Tracker) *RebuildTool {
	return &RebuildTool{tracker: tr}
}

// Definition returns the MCP tool definition for index_rebuild.
func (t *RebuildTool) Definition() mcp.Tool {
	return mcp.NewTool("index_rebuild",
		mcp.WithDescription(
			"Rebuild the graph index from the stored documents. Use when the "+
				"index is suspected to have diverged from the store.",
		),
	)
}

// Handle processes the index_rebuild tool call.
func (t *RebuildTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := t.tracker.Rebuild(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("rebuild failed: %v", err)), nil
	}
	stats, err := t.tracker.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("rebuild succeeded but stats failed: %v", err)), nil
	}
	return jsonResult(stats)
}
