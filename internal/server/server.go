// Package server wires all MCP components and creates the server instance.
//
// This is the composition root (DIP): it creates concrete implementations
// and injects them into the tools/prompts that depend on abstractions.
// No business logic lives here, only wiring.
package server

import (
	"context"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/taskloom/taskloom/internal/analytics"
	"github.com/taskloom/taskloom/internal/config"
	"github.com/taskloom/taskloom/internal/index"
	"github.com/taskloom/taskloom/internal/prompts"
	"github.com/taskloom/taskloom/internal/resources"
	"github.com/taskloom/taskloom/internal/store"
	"github.com/taskloom/taskloom/internal/tools"
	"github.com/taskloom/taskloom/internal/tracker"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools and
// prompts registered. This is the single place where all dependencies
// are resolved.
//
// The returned cleanup function closes the index database connection
// and must be called on shutdown (typically via defer). It is always
// non-nil and safe to call.
func New(cfg config.Config) (*server.MCPServer, func(), error) {
	// --- Create shared dependencies ---

	fs, err := store.New(cfg.ItemsPath())
	if err != nil {
		return nil, noop, fmt.Errorf("opening work-item store: %w", err)
	}

	ix, err := index.Open(cfg.IndexPath())
	if err != nil {
		return nil, noop, fmt.Errorf("opening graph index: %w", err)
	}
	cleanup := func() {
		if err := ix.Close(); err != nil {
			log.Printf("WARNING: index close: %v", err)
		}
	}

	tr, err := tracker.New(context.Background(), fs, ix)
	if err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("initializing tracker: %w", err)
	}

	engine := analytics.New(cfg.Analytics)

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"taskloom",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register item tools ---

	createTool := tools.NewCreateItemTool(tr)
	s.AddTool(createTool.Definition(), createTool.Handle)

	getTool := tools.NewGetItemTool(tr)
	s.AddTool(getTool.Definition(), getTool.Handle)

	updateTool := tools.NewUpdateItemTool(tr)
	s.AddTool(updateTool.Definition(), updateTool.Handle)

	deleteTool := tools.NewDeleteItemTool(tr)
	s.AddTool(deleteTool.Definition(), deleteTool.Handle)

	listTool := tools.NewListItemsTool(tr)
	s.AddTool(listTool.Definition(), listTool.Handle)

	// --- Register dependency tools ---

	addDepTool := tools.NewAddDepTool(tr)
	s.AddTool(addDepTool.Definition(), addDepTool.Handle)

	removeDepTool := tools.NewRemoveDepTool(tr)
	s.AddTool(removeDepTool.Definition(), removeDepTool.Handle)

	// --- Register analytics tools ---

	bottlenecksTool := tools.NewBottlenecksTool(tr, engine)
	s.AddTool(bottlenecksTool.Definition(), bottlenecksTool.Handle)

	parallelTool := tools.NewParallelWorkTool(tr, engine)
	s.AddTool(parallelTool.Definition(), parallelTool.Handle)

	recommendTool := tools.NewRecommendTool(tr, engine)
	s.AddTool(recommendTool.Definition(), recommendTool.Handle)

	risksTool := tools.NewRisksTool(tr, engine)
	s.AddTool(risksTool.Definition(), risksTool.Handle)

	impactTool := tools.NewImpactTool(tr, engine)
	s.AddTool(impactTool.Definition(), impactTool.Handle)

	// --- Register maintenance tools ---

	rebuildTool := tools.NewRebuildTool(tr)
	s.AddTool(rebuildTool.Definition(), rebuildTool.Handle)

	// --- Register prompts ---

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(tr)
	s.AddResource(resourceHandler.StatsResource(), resourceHandler.HandleStats)

	return s, cleanup, nil
}

// noop is a no-op cleanup function used as the default before the
// index has been opened.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to use taskloom effectively.
func serverInstructions() string {
	return `You have access to taskloom, a work-tracking MCP server with
dependency analytics.

## What taskloom tracks
Work items (features, bugs, tracks, epics) with a status, a priority
and an optional effort estimate, connected by directed edges:
- "blocks": the source must finish before the target can start
- "parent_of": grouping only, never affects scheduling

## Keeping the graph current
Record work as it is discussed:
1. item_create when a new piece of work is identified
2. dep_add when the user mentions one task depending on another
3. item_update to move status forward (todo -> in-progress -> done)
4. item_delete only after removing its dependencies

Edges require both endpoints to exist, and an item cannot be deleted
while anything still links to it. Create items first, link second.

## Answering planning questions
Use the analytics tools instead of reasoning over the raw list:
- "What's holding us up?" -> find_bottlenecks
- "What can the team do in parallel?" -> get_parallel_work
- "What should I pick up next?" -> recommend_next_work
- "Where are we fragile?" -> assess_risks (also reports dependency
  cycles and orphaned items)
- "What opens up if X lands?" -> analyze_impact

Results are deterministic: the same graph always yields the same
ordering, so you can quote them directly.

## Maintenance
index_rebuild reconstructs the derived graph index from the stored
documents. Reach for it only if analytics results look inconsistent
with the items you just wrote.`
}
