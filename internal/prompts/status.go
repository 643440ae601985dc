// Package prompts implements MCP prompt handlers for taskloom.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the workload-status MCP prompt.
// It instructs the AI to collect and present the current state of the
// work graph.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("workload-status",
		mcp.WithPromptDescription(
			"Get an overview of the tracked work: what is ready, "+
				"what is blocking the most, and any structural problems "+
				"in the dependency graph.",
		),
	)
}

// Handle processes the workload-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Workload Status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please run `get_parallel_work`, `find_bottlenecks` and `assess_risks` to check my workload.\n\n" +
						"Then:\n" +
						"1. Show me what is ready to start right now\n" +
						"2. Highlight the top bottleneck and what completing it would unblock\n" +
						"3. Flag any dependency cycles or orphaned items\n" +
						"4. Recommend what I (or my agents) should pick up next, with `recommend_next_work`",
				),
			},
		},
	}, nil
}
