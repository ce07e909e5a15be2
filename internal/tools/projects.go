package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/omar16100/parsnip/internal/knowledge"
	"github.com/omar16100/parsnip/internal/session"
)

// ProjectTools holds references needed by project management tool handlers.
type ProjectTools struct {
	Knowledge *knowledge.Service
	Session   *session.Session
}

// --- Input types ---

type CreateProjectInput struct {
	Name        string `json:"name" jsonschema:"Unique project name (letters, digits, _ and -)"`
	Description string `json:"description,omitempty" jsonschema:"Optional project description"`
}

type SwitchProjectInput struct {
	Name string `json:"name" jsonschema:"Name of the project to switch to"`
}

type DeleteProjectInput struct {
	Name string `json:"name" jsonschema:"Name of the project to permanently delete"`
}

// --- Handlers ---

func (t *ProjectTools) ListProjects(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	summaries, err := t.Knowledge.SummarizeProjects(ctx)
	if err != nil {
		return toolError("Failed to list projects: %v", err), nil, nil
	}
	return toolJSON(summaries)
}

func (t *ProjectTools) CreateProject(ctx context.Context, _ *mcp.CallToolRequest, input CreateProjectInput) (*mcp.CallToolResult, any, error) {
	if input.Name == "" {
		return toolError("Project name is required"), nil, nil
	}

	proj, err := t.Knowledge.CreateProject(ctx, input.Name, input.Description)
	if err != nil {
		return toolError("Failed to create project: %v", err), nil, nil
	}

	// New projects become current.
	t.Session.Use(proj)
	return toolJSON(proj)
}

func (t *ProjectTools) SwitchProject(ctx context.Context, _ *mcp.CallToolRequest, input SwitchProjectInput) (*mcp.CallToolResult, any, error) {
	if input.Name == "" {
		return toolError("Project name is required"), nil, nil
	}

	proj, err := t.Session.SwitchProject(ctx, t.Knowledge, input.Name)
	if err != nil {
		return toolError("Failed to switch project: %v", err), nil, nil
	}
	return toolJSON(proj)
}

func (t *ProjectTools) GetCurrentProject(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	proj, ok := t.Session.GetCurrent()
	if !ok {
		return toolText("No project is currently active. Use switch_project to select one."), nil, nil
	}
	return toolJSON(proj)
}

func (t *ProjectTools) DeleteProject(ctx context.Context, _ *mcp.CallToolRequest, input DeleteProjectInput) (*mcp.CallToolResult, any, error) {
	if input.Name == "" {
		return toolError("Project name is required"), nil, nil
	}

	if err := t.Knowledge.DeleteProject(ctx, input.Name); err != nil {
		return toolError("Failed to delete project: %v", err), nil, nil
	}
	t.Session.Forget(input.Name)

	return toolText(fmt.Sprintf("Project %q permanently deleted.", input.Name)), nil, nil
}

// --- Helpers ---

func toolText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("Failed to marshal result: %v", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
