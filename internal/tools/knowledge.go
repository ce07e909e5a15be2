package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/omar16100/parsnip/internal/knowledge"
	"github.com/omar16100/parsnip/internal/models"
	"github.com/omar16100/parsnip/internal/session"
	"github.com/omar16100/parsnip/internal/traversal"
)

// KnowledgeTools holds references needed by knowledge graph tool handlers.
type KnowledgeTools struct {
	Knowledge *knowledge.Service
	Session   *session.Session

	// DefaultProject is used when a call names no project and none is current.
	DefaultProject string
}

// --- Input types ---

type CreateEntitiesInput struct {
	Project  string        `json:"project,omitempty" jsonschema:"Project name (default: current project)"`
	Entities []EntityInput `json:"entities" jsonschema:"Array of entities to create"`
}

type EntityInput struct {
	Name         string         `json:"name" jsonschema:"Entity name, unique within the project"`
	EntityType   string         `json:"entity_type" jsonschema:"Entity type (e.g., person, technology, concept)"`
	Observations []string       `json:"observations,omitempty" jsonschema:"Initial observations about the entity"`
	Tags         []string       `json:"tags,omitempty" jsonschema:"Initial tags"`
	Metadata     map[string]any `json:"metadata,omitempty" jsonschema:"Free-form metadata"`
}

type AddObservationsInput struct {
	Project      string             `json:"project,omitempty" jsonschema:"Project name (default: current project)"`
	Observations []ObservationInput `json:"observations" jsonschema:"Array of observations to add"`
}

type ObservationInput struct {
	EntityName string   `json:"entity_name" jsonschema:"Name of the entity"`
	Contents   []string `json:"contents" jsonschema:"Observation texts to add"`
}

type DeleteObservationsInput struct {
	Project   string                  `json:"project,omitempty" jsonschema:"Project name (default: current project)"`
	Deletions []DeleteObservationItem `json:"deletions" jsonschema:"Array of observations to delete"`
}

type DeleteObservationItem struct {
	EntityName     string   `json:"entity_name" jsonschema:"Name of the entity"`
	ObservationIDs []string `json:"observation_ids" jsonschema:"IDs of the observations to delete"`
}

type TagsInput struct {
	Project    string   `json:"project,omitempty" jsonschema:"Project name (default: current project)"`
	EntityName string   `json:"entity_name" jsonschema:"Name of the entity"`
	Tags       []string `json:"tags" jsonschema:"Tags to add or remove"`
}

type CreateRelationsInput struct {
	Project   string          `json:"project,omitempty" jsonschema:"Project name (default: current project)"`
	Relations []RelationInput `json:"relations" jsonschema:"Array of relations to create"`
}

type RelationInput struct {
	From         string         `json:"from" jsonschema:"Source entity name"`
	To           string         `json:"to" jsonschema:"Target entity name"`
	RelationType string         `json:"relation_type" jsonschema:"Relation type in active voice (e.g., uses, depends_on, manages)"`
	Weight       *float64       `json:"weight,omitempty" jsonschema:"Edge weight for weighted path finding (default 1.0)"`
	Metadata     map[string]any `json:"metadata,omitempty" jsonschema:"Free-form metadata"`
	FromProject  string         `json:"from_project,omitempty" jsonschema:"Project of the source entity when it lives elsewhere"`
	ToProject    string         `json:"to_project,omitempty" jsonschema:"Project of the target entity when it lives elsewhere"`
}

type SearchNodesInput struct {
	Project     string   `json:"project,omitempty" jsonschema:"Project name (default: current project)"`
	Query       string   `json:"query" jsonschema:"Case-insensitive text matched against names, types, observations and tags"`
	EntityTypes []string `json:"entity_types,omitempty" jsonschema:"Only return entities of these types"`
	Tags        []string `json:"tags,omitempty" jsonschema:"Only return entities carrying all of these tags"`
	Limit       int      `json:"limit,omitempty" jsonschema:"Maximum number of results"`
}

type OpenNodesInput struct {
	Project string   `json:"project,omitempty" jsonschema:"Project name (default: current project)"`
	Names   []string `json:"names" jsonschema:"Exact entity names to retrieve"`
}

type ReadGraphInput struct {
	Project string `json:"project,omitempty" jsonschema:"Project name (default: current project)"`
}

type DeleteEntitiesInput struct {
	Project string   `json:"project,omitempty" jsonschema:"Project name (default: current project)"`
	Names   []string `json:"names" jsonschema:"Entity names to delete"`
}

type DeleteRelationsInput struct {
	Project   string                  `json:"project,omitempty" jsonschema:"Project name (default: current project)"`
	Relations []knowledge.RelationRef `json:"relations" jsonschema:"Relations to delete, by from, to and relation_type"`
}

type TraverseGraphInput struct {
	Project       string   `json:"project,omitempty" jsonschema:"Project name (default: current project)"`
	Start         string   `json:"start" jsonschema:"Starting entity name"`
	MaxDepth      int      `json:"max_depth,omitempty" jsonschema:"Maximum traversal depth (default 10, max 50)"`
	Direction     string   `json:"direction,omitempty" jsonschema:"outgoing, incoming or both (default both)"`
	EntityTypes   []string `json:"entity_types,omitempty" jsonschema:"Only step onto entities of these types"`
	RelationTypes []string `json:"relation_types,omitempty" jsonschema:"Only follow relations of these types"`
}

type FindPathInput struct {
	Project       string   `json:"project,omitempty" jsonschema:"Project name (default: current project)"`
	From          string   `json:"from" jsonschema:"Starting entity name"`
	To            string   `json:"to" jsonschema:"Target entity name"`
	MaxDepth      int      `json:"max_depth,omitempty" jsonschema:"Maximum path length in hops (default 10, max 50)"`
	Direction     string   `json:"direction,omitempty" jsonschema:"outgoing, incoming or both (default both)"`
	Weighted      bool     `json:"weighted,omitempty" jsonschema:"Minimise total relation weight (Dijkstra) instead of hop count"`
	EntityTypes   []string `json:"entity_types,omitempty" jsonschema:"Only step onto entities of these types"`
	RelationTypes []string `json:"relation_types,omitempty" jsonschema:"Only follow relations of these types"`
}

// --- Handlers ---

func (t *KnowledgeTools) project(ctx context.Context, name string) (*models.Project, *mcp.CallToolResult) {
	proj, err := t.Session.Resolve(ctx, t.Knowledge, name, t.DefaultProject)
	if err != nil {
		return nil, toolError("No usable project: %v", err)
	}
	return proj, nil
}

func (t *KnowledgeTools) CreateEntities(ctx context.Context, _ *mcp.CallToolRequest, input CreateEntitiesInput) (*mcp.CallToolResult, any, error) {
	proj, errResult := t.project(ctx, input.Project)
	if errResult != nil {
		return errResult, nil, nil
	}

	entities := make([]models.NewEntityInput, len(input.Entities))
	for i, e := range input.Entities {
		entities[i] = models.NewEntityInput{
			Name:         e.Name,
			EntityType:   e.EntityType,
			Observations: e.Observations,
			Tags:         e.Tags,
			Metadata:     e.Metadata,
		}
	}

	created, err := t.Knowledge.CreateEntities(ctx, proj, entities)
	if err != nil {
		return toolError("Failed to create entities: %v", err), nil, nil
	}
	return toolJSON(created)
}

func (t *KnowledgeTools) AddObservations(ctx context.Context, _ *mcp.CallToolRequest, input AddObservationsInput) (*mcp.CallToolResult, any, error) {
	proj, errResult := t.project(ctx, input.Project)
	if errResult != nil {
		return errResult, nil, nil
	}

	added := make(map[string][]models.Observation, len(input.Observations))
	for _, obs := range input.Observations {
		created, err := t.Knowledge.AddObservations(ctx, proj, obs.EntityName, obs.Contents)
		if err != nil {
			return toolError("Failed to add observations for %q: %v", obs.EntityName, err), nil, nil
		}
		added[obs.EntityName] = append(added[obs.EntityName], created...)
	}
	return toolJSON(added)
}

func (t *KnowledgeTools) DeleteObservations(ctx context.Context, _ *mcp.CallToolRequest, input DeleteObservationsInput) (*mcp.CallToolResult, any, error) {
	proj, errResult := t.project(ctx, input.Project)
	if errResult != nil {
		return errResult, nil, nil
	}

	total := 0
	for _, d := range input.Deletions {
		ids := make([]models.ObservationID, len(d.ObservationIDs))
		for i, id := range d.ObservationIDs {
			ids[i] = models.ObservationID(id)
		}
		count, err := t.Knowledge.RemoveObservations(ctx, proj, d.EntityName, ids)
		if err != nil {
			return toolError("Failed to delete observations for %q: %v", d.EntityName, err), nil, nil
		}
		total += count
	}
	return toolText(fmt.Sprintf("Deleted %d observations.", total)), nil, nil
}

func (t *KnowledgeTools) AddTags(ctx context.Context, _ *mcp.CallToolRequest, input TagsInput) (*mcp.CallToolResult, any, error) {
	proj, errResult := t.project(ctx, input.Project)
	if errResult != nil {
		return errResult, nil, nil
	}

	added, err := t.Knowledge.AddTags(ctx, proj, input.EntityName, input.Tags)
	if err != nil {
		return toolError("Failed to add tags to %q: %v", input.EntityName, err), nil, nil
	}
	return toolJSON(map[string]any{"entity": input.EntityName, "added": added})
}

func (t *KnowledgeTools) RemoveTags(ctx context.Context, _ *mcp.CallToolRequest, input TagsInput) (*mcp.CallToolResult, any, error) {
	proj, errResult := t.project(ctx, input.Project)
	if errResult != nil {
		return errResult, nil, nil
	}

	missing, err := t.Knowledge.RemoveTags(ctx, proj, input.EntityName, input.Tags)
	if err != nil {
		return toolError("Failed to remove tags from %q: %v", input.EntityName, err), nil, nil
	}
	return toolJSON(map[string]any{"entity": input.EntityName, "not_found": missing})
}

func (t *KnowledgeTools) CreateRelations(ctx context.Context, _ *mcp.CallToolRequest, input CreateRelationsInput) (*mcp.CallToolResult, any, error) {
	proj, errResult := t.project(ctx, input.Project)
	if errResult != nil {
		return errResult, nil, nil
	}

	relations := make([]models.NewRelationInput, len(input.Relations))
	for i, r := range input.Relations {
		relations[i] = models.NewRelationInput{
			From:         r.From,
			To:           r.To,
			RelationType: r.RelationType,
			Weight:       r.Weight,
			Metadata:     r.Metadata,
			FromProject:  r.FromProject,
			ToProject:    r.ToProject,
		}
	}

	created, err := t.Knowledge.CreateRelations(ctx, proj, relations)
	if err != nil {
		return toolError("Failed to create relations: %v", err), nil, nil
	}
	return toolJSON(created)
}

func (t *KnowledgeTools) SearchNodes(ctx context.Context, _ *mcp.CallToolRequest, input SearchNodesInput) (*mcp.CallToolResult, any, error) {
	proj, errResult := t.project(ctx, input.Project)
	if errResult != nil {
		return errResult, nil, nil
	}

	entities, err := t.Knowledge.Search(ctx, proj, knowledge.SearchQuery{
		Text:        input.Query,
		EntityTypes: input.EntityTypes,
		Tags:        input.Tags,
		Limit:       input.Limit,
	})
	if err != nil {
		return toolError("Search failed: %v", err), nil, nil
	}
	return toolJSON(entities)
}

func (t *KnowledgeTools) OpenNodes(ctx context.Context, _ *mcp.CallToolRequest, input OpenNodesInput) (*mcp.CallToolResult, any, error) {
	proj, errResult := t.project(ctx, input.Project)
	if errResult != nil {
		return errResult, nil, nil
	}

	nodes, err := t.Knowledge.OpenNodes(ctx, proj, input.Names)
	if err != nil {
		return toolError("Failed to open nodes: %v", err), nil, nil
	}
	return toolJSON(nodes)
}

func (t *KnowledgeTools) ReadGraph(ctx context.Context, _ *mcp.CallToolRequest, input ReadGraphInput) (*mcp.CallToolResult, any, error) {
	proj, errResult := t.project(ctx, input.Project)
	if errResult != nil {
		return errResult, nil, nil
	}

	graph, err := t.Knowledge.ReadGraph(ctx, proj)
	if err != nil {
		return toolError("Failed to read graph: %v", err), nil, nil
	}
	return toolJSON(graph)
}

func (t *KnowledgeTools) DeleteEntities(ctx context.Context, _ *mcp.CallToolRequest, input DeleteEntitiesInput) (*mcp.CallToolResult, any, error) {
	proj, errResult := t.project(ctx, input.Project)
	if errResult != nil {
		return errResult, nil, nil
	}

	deleted, err := t.Knowledge.DeleteEntities(ctx, proj, input.Names)
	if err != nil {
		return toolError("Failed to delete entities: %v", err), nil, nil
	}
	return toolText(fmt.Sprintf("Deleted %d entities.", len(deleted))), nil, nil
}

func (t *KnowledgeTools) DeleteRelations(ctx context.Context, _ *mcp.CallToolRequest, input DeleteRelationsInput) (*mcp.CallToolResult, any, error) {
	proj, errResult := t.project(ctx, input.Project)
	if errResult != nil {
		return errResult, nil, nil
	}

	count, err := t.Knowledge.DeleteRelations(ctx, proj, input.Relations)
	if err != nil {
		return toolError("Failed to delete relations: %v", err), nil, nil
	}
	return toolText(fmt.Sprintf("Deleted %d relations.", count)), nil, nil
}

func (t *KnowledgeTools) TraverseGraph(ctx context.Context, _ *mcp.CallToolRequest, input TraverseGraphInput) (*mcp.CallToolResult, any, error) {
	proj, errResult := t.project(ctx, input.Project)
	if errResult != nil {
		return errResult, nil, nil
	}

	q, err := buildQuery(input.Start, input.MaxDepth, input.Direction, input.EntityTypes, input.RelationTypes)
	if err != nil {
		return toolError("Invalid traversal: %v", err), nil, nil
	}

	res, err := t.Knowledge.Traverse(ctx, proj, q)
	if err != nil {
		return toolError("Traversal failed: %v", err), nil, nil
	}
	return toolJSON(res)
}

func (t *KnowledgeTools) FindPath(ctx context.Context, _ *mcp.CallToolRequest, input FindPathInput) (*mcp.CallToolResult, any, error) {
	proj, errResult := t.project(ctx, input.Project)
	if errResult != nil {
		return errResult, nil, nil
	}
	if input.To == "" {
		return toolError("Target entity is required"), nil, nil
	}

	q, err := buildQuery(input.From, input.MaxDepth, input.Direction, input.EntityTypes, input.RelationTypes)
	if err != nil {
		return toolError("Invalid path query: %v", err), nil, nil
	}
	q.FindPathTo(input.To)
	if input.Weighted {
		q.Weighted()
	}

	res, err := t.Knowledge.Traverse(ctx, proj, q)
	if err != nil {
		return toolError("Path finding failed: %v", err), nil, nil
	}
	return toolJSON(res)
}

// buildQuery maps tool arguments onto a traversal query. A zero depth means
// the default.
func buildQuery(start string, depth int, direction string, entityTypes, relationTypes []string) (*traversal.Query, error) {
	if start == "" {
		return nil, errors.New("start entity is required")
	}
	dir, err := models.ParseDirection(direction)
	if err != nil {
		return nil, err
	}
	q := traversal.NewQuery(start).
		WithDirection(dir).
		FilterEntityTypes(entityTypes...).
		FilterRelationTypes(relationTypes...)
	if depth > 0 {
		q.WithDepth(depth)
	}
	return q, nil
}
