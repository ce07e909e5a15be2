package traversal

import "github.com/omar16100/parsnip/internal/models"

// PathEdge is one hop of a path, as stored: From and To keep the relation's
// own orientation even when the hop walked it backwards.
type PathEdge struct {
	From         string   `json:"from"`
	To           string   `json:"to"`
	RelationType string   `json:"relation_type"`
	Weight       *float64 `json:"weight,omitempty"`
}

// Path is a route from the query start to its target.
type Path struct {
	Nodes       []string   `json:"nodes"`
	Edges       []PathEdge `json:"edges"`
	TotalWeight float64    `json:"total_weight"`
	Length      int        `json:"length"`
}

// Stats describes the work a traversal did.
type Stats struct {
	NodesVisited    int  `json:"nodes_visited"`
	EdgesTraversed  int  `json:"edges_traversed"`
	MaxDepthReached int  `json:"max_depth_reached"`
	PathFound       bool `json:"path_found"`

	// Truncated is set when the visited set hit models.MaxTraversalNodes.
	Truncated bool `json:"truncated,omitempty"`
}

// Result is everything a traversal found. Visited lists are in discovery order.
type Result struct {
	Start           string            `json:"start"`
	Target          string            `json:"target,omitempty"`
	Paths           []Path            `json:"paths"`
	VisitedEntities []string          `json:"visited_entities"`
	Entities        []models.Entity   `json:"entities"`
	Relations       []models.Relation `json:"relations"`
	Stats           Stats             `json:"stats"`
}
