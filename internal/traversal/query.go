package traversal

import "github.com/omar16100/parsnip/internal/models"

const (
	DefaultMaxDepth = 10
	DefaultMaxPaths = 5
)

// Query describes one traversal. An empty Target explores the neighbourhood
// of Start; a non-empty Target asks for the shortest path to it.
type Query struct {
	Start         string           `json:"start"`
	Target        string           `json:"target,omitempty"`
	MaxDepth      int              `json:"max_depth"`
	Direction     models.Direction `json:"direction"`
	EntityTypes   []string         `json:"entity_types,omitempty"`
	RelationTypes []string         `json:"relation_types,omitempty"`
	UseWeights    bool             `json:"weighted"`

	// MaxPaths is accepted for path queries, but the engine reconstructs a
	// single best path, so at most one is ever returned.
	MaxPaths int `json:"max_paths"`
}

// NewQuery starts a query from start with the default depth, direction and path limit.
func NewQuery(start string) *Query {
	return &Query{
		Start:     start,
		MaxDepth:  DefaultMaxDepth,
		Direction: models.Both,
		MaxPaths:  DefaultMaxPaths,
	}
}

func (q *Query) FindPathTo(target string) *Query {
	q.Target = target
	return q
}

func (q *Query) WithDepth(depth int) *Query {
	q.MaxDepth = depth
	return q
}

func (q *Query) WithDirection(d models.Direction) *Query {
	q.Direction = d
	return q
}

// FilterEntityTypes restricts traversal to neighbours of the given types.
// Neighbours with no entity record are never filtered out.
func (q *Query) FilterEntityTypes(types ...string) *Query {
	q.EntityTypes = types
	return q
}

// FilterRelationTypes restricts traversal to edges of the given types.
func (q *Query) FilterRelationTypes(types ...string) *Query {
	q.RelationTypes = types
	return q
}

// Weighted switches path queries to Dijkstra over relation weights.
func (q *Query) Weighted() *Query {
	q.UseWeights = true
	return q
}

// Validate checks the depth limit.
func (q *Query) Validate() error {
	return models.ValidateTraversalDepth(q.MaxDepth)
}
