package server

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/omar16100/parsnip/internal/knowledge"
	"github.com/omar16100/parsnip/internal/session"
	"github.com/omar16100/parsnip/internal/tools"
)

// Version is reported to MCP clients during initialization.
const Version = "0.2.0"

// New creates a fully configured MCP server with all tools registered. Calls
// that name no project and run before switch_project use defaultProject.
func New(svc *knowledge.Service, defaultProject string) *mcp.Server {
	sess := session.New()

	pt := &tools.ProjectTools{Knowledge: svc, Session: sess}
	kt := &tools.KnowledgeTools{Knowledge: svc, Session: sess, DefaultProject: defaultProject}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "parsnip",
		Version: Version,
	}, nil)

	// Project management tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_projects",
		Description: "List all projects with entity and relation counts",
	}, pt.ListProjects)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_project",
		Description: "Create a new project namespace and make it current",
	}, pt.CreateProject)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "switch_project",
		Description: "Switch the active project context for the current session",
	}, pt.SwitchProject)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_current_project",
		Description: "Get information about the currently active project",
	}, pt.GetCurrentProject)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_project",
		Description: "Permanently delete a project with all its entities and relations (irreversible)",
	}, pt.DeleteProject)

	// Knowledge graph tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_entities",
		Description: "Create one or more entities in the knowledge graph",
	}, kt.CreateEntities)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "add_observations",
		Description: "Add observations to existing entities",
	}, kt.AddObservations)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_observations",
		Description: "Delete observations from entities by observation ID",
	}, kt.DeleteObservations)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "add_tags",
		Description: "Add tags to an entity",
	}, kt.AddTags)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "remove_tags",
		Description: "Remove tags from an entity",
	}, kt.RemoveTags)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_relations",
		Description: "Create directed, optionally weighted relations between entities, across projects if needed",
	}, kt.CreateRelations)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search_nodes",
		Description: "Search entities by case-insensitive text with optional type and tag filters",
	}, kt.SearchNodes)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "open_nodes",
		Description: "Retrieve specific entities by exact name match, with their relations",
	}, kt.OpenNodes)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "read_graph",
		Description: "Read the entire knowledge graph of a project",
	}, kt.ReadGraph)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_entities",
		Description: "Delete entities together with every relation touching them",
	}, kt.DeleteEntities)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_relations",
		Description: "Delete specific relations",
	}, kt.DeleteRelations)

	// Traversal tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "traverse_graph",
		Description: "Explore the neighbourhood of an entity breadth-first, with depth, direction and type filters",
	}, kt.TraverseGraph)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "find_path",
		Description: "Find the shortest path between two entities by hop count, or by total weight when weighted",
	}, kt.FindPath)

	return srv
}
