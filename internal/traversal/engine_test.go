package traversal

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omar16100/parsnip/internal/models"
)

// testGraph is
//
//	A -> B (1.0) -> C (2.0) -> D (1.0)
//	     B -> E (1.0)      C -> F (1.0)
//	     E -> F (3.0)
func testGraph() (map[string]models.Entity, []models.Relation) {
	pid := models.NewProjectID()
	entities := map[string]models.Entity{}
	for _, n := range []string{"A", "B", "C", "D", "E", "F"} {
		entities[n] = *models.NewEntity(pid, n, "node")
	}
	rel := func(from, to string, w float64) models.Relation {
		return *models.NewRelationByName(pid, from, to, "connects").WithWeight(w)
	}
	relations := []models.Relation{
		rel("A", "B", 1),
		rel("B", "C", 2),
		rel("C", "D", 1),
		rel("B", "E", 1),
		rel("C", "F", 1),
		rel("E", "F", 3),
	}
	return entities, relations
}

func TestBFSShortestPath(t *testing.T) {
	entities, relations := testGraph()

	res := Execute(NewQuery("A").FindPathTo("D"), entities, relations)

	require.True(t, res.Stats.PathFound)
	require.Len(t, res.Paths, 1)
	path := res.Paths[0]
	assert.Equal(t, []string{"A", "B", "C", "D"}, path.Nodes)
	assert.Equal(t, 3, path.Length)
	assert.Len(t, path.Edges, 3)
	assert.Equal(t, 4.0, path.TotalWeight)
	assert.Equal(t, "D", res.Target)
}

func TestDijkstraPrefersCheaperRoute(t *testing.T) {
	entities, relations := testGraph()

	res := Execute(NewQuery("A").FindPathTo("F").Weighted(), entities, relations)

	require.True(t, res.Stats.PathFound)
	require.Len(t, res.Paths, 1)
	assert.Equal(t, []string{"A", "B", "C", "F"}, res.Paths[0].Nodes)
	assert.Equal(t, 4.0, res.Paths[0].TotalWeight)
	assert.Equal(t, 3, res.Paths[0].Length)
}

func TestUnweightedIgnoresWeightsForOrdering(t *testing.T) {
	entities, relations := testGraph()

	// Both A-B-C-F and A-B-E-F are three hops; BFS takes whichever edge comes first.
	res := Execute(NewQuery("A").FindPathTo("F"), entities, relations)
	require.True(t, res.Stats.PathFound)
	assert.Equal(t, 3, res.Paths[0].Length)
	assert.Equal(t, []string{"A", "B", "C", "F"}, res.Paths[0].Nodes)
	assert.Equal(t, 4.0, res.Paths[0].TotalWeight)
}

func TestFilteredTraversalDepth(t *testing.T) {
	entities, relations := testGraph()

	res := Execute(NewQuery("A").WithDepth(2), entities, relations)

	assert.ElementsMatch(t, []string{"A", "B", "C", "E"}, res.VisitedEntities)
	assert.NotContains(t, res.VisitedEntities, "D")
	assert.NotContains(t, res.VisitedEntities, "F")
	assert.Equal(t, "A", res.VisitedEntities[0])
	assert.Equal(t, 2, res.Stats.MaxDepthReached)
	assert.Equal(t, 4, res.Stats.NodesVisited)
	assert.False(t, res.Stats.PathFound)
	assert.Empty(t, res.Paths)

	// Only relations with both ends visited are returned.
	assert.Len(t, res.Relations, 3)
	assert.Len(t, res.Entities, 4)
}

func TestDirectionFiltering(t *testing.T) {
	entities, relations := testGraph()

	out := Execute(NewQuery("B").WithDepth(1).WithDirection(models.Outgoing), entities, relations)
	assert.ElementsMatch(t, []string{"B", "C", "E"}, out.VisitedEntities)
	assert.NotContains(t, out.VisitedEntities, "A")

	in := Execute(NewQuery("B").WithDepth(1).WithDirection(models.Incoming), entities, relations)
	assert.ElementsMatch(t, []string{"B", "A"}, in.VisitedEntities)
	assert.NotContains(t, in.VisitedEntities, "C")

	both := Execute(NewQuery("B").WithDepth(1), entities, relations)
	assert.ElementsMatch(t, []string{"A", "B", "C", "E"}, both.VisitedEntities)
}

func TestNoPath(t *testing.T) {
	pid := models.NewProjectID()
	entities := map[string]models.Entity{
		"X": *models.NewEntity(pid, "X", "node"),
		"Y": *models.NewEntity(pid, "Y", "node"),
	}

	for _, q := range []*Query{NewQuery("X").FindPathTo("Y"), NewQuery("X").FindPathTo("Y").Weighted()} {
		res := Execute(q, entities, nil)
		assert.False(t, res.Stats.PathFound)
		assert.Empty(t, res.Paths)
		assert.GreaterOrEqual(t, res.Stats.NodesVisited, 1)
	}
}

func TestDisconnectedPathStillCountsWork(t *testing.T) {
	entities, relations := testGraph()
	entities["Z"] = *models.NewEntity(models.NewProjectID(), "Z", "node")

	res := Execute(NewQuery("A").FindPathTo("Z"), entities, relations)
	assert.False(t, res.Stats.PathFound)
	assert.Empty(t, res.Paths)
	assert.Equal(t, 6, res.Stats.NodesVisited)
	assert.Positive(t, res.Stats.EdgesTraversed)
}

func TestRelationTypeFilter(t *testing.T) {
	pid := models.NewProjectID()
	relations := []models.Relation{
		*models.NewRelationByName(pid, "A", "B", "knows"),
		*models.NewRelationByName(pid, "A", "C", "works_with"),
		*models.NewRelationByName(pid, "B", "D", "knows"),
	}

	res := Execute(NewQuery("A").FilterRelationTypes("knows"), nil, relations)
	assert.ElementsMatch(t, []string{"A", "B", "D"}, res.VisitedEntities)

	// Filtered edges still count as traversed.
	assert.Equal(t, 5, res.Stats.EdgesTraversed)
}

func TestEntityTypeFilter(t *testing.T) {
	pid := models.NewProjectID()
	entities := map[string]models.Entity{
		"alice": *models.NewEntity(pid, "alice", "person"),
		"bob":   *models.NewEntity(pid, "bob", "person"),
		"acme":  *models.NewEntity(pid, "acme", "company"),
	}
	relations := []models.Relation{
		*models.NewRelationByName(pid, "alice", "bob", "knows"),
		*models.NewRelationByName(pid, "alice", "acme", "works_at"),
		// ghost has no entity record, so the type filter does not apply to it.
		*models.NewRelationByName(pid, "alice", "ghost", "mentions"),
	}

	res := Execute(NewQuery("alice").FilterEntityTypes("person"), entities, relations)
	assert.ElementsMatch(t, []string{"alice", "bob", "ghost"}, res.VisitedEntities)
	assert.Len(t, res.Entities, 2)
}

func TestTargetEqualsStart(t *testing.T) {
	entities, relations := testGraph()

	for _, q := range []*Query{NewQuery("C").FindPathTo("C"), NewQuery("C").FindPathTo("C").Weighted()} {
		res := Execute(q, entities, relations)
		require.True(t, res.Stats.PathFound)
		require.Len(t, res.Paths, 1)
		assert.Equal(t, []string{"C"}, res.Paths[0].Nodes)
		assert.Empty(t, res.Paths[0].Edges)
		assert.Zero(t, res.Paths[0].Length)
		assert.Zero(t, res.Paths[0].TotalWeight)
	}
}

func TestSelfLoop(t *testing.T) {
	pid := models.NewProjectID()
	relations := []models.Relation{
		*models.NewRelationByName(pid, "A", "A", "self"),
		*models.NewRelationByName(pid, "A", "B", "next"),
	}

	res := Execute(NewQuery("A"), nil, relations)
	assert.Equal(t, []string{"A", "B"}, res.VisitedEntities)
	assert.Len(t, res.Relations, 2)

	path := Execute(NewQuery("A").FindPathTo("B").Weighted(), nil, relations)
	require.True(t, path.Stats.PathFound)
	assert.Equal(t, []string{"A", "B"}, path.Paths[0].Nodes)
}

func TestPathEdgesKeepStoredOrientation(t *testing.T) {
	entities, relations := testGraph()

	res := Execute(NewQuery("D").FindPathTo("A"), entities, relations)
	require.True(t, res.Stats.PathFound)
	assert.Equal(t, []string{"D", "C", "B", "A"}, res.Paths[0].Nodes)
	assert.Equal(t, PathEdge{From: "C", To: "D", RelationType: "connects", Weight: relations[2].Weight}, res.Paths[0].Edges[0])

	// Walking against edge direction is impossible when only outgoing edges count.
	res = Execute(NewQuery("D").FindPathTo("A").WithDirection(models.Outgoing), entities, relations)
	assert.False(t, res.Stats.PathFound)
}

func TestDepthBoundsPathSearch(t *testing.T) {
	entities, relations := testGraph()

	res := Execute(NewQuery("A").FindPathTo("D").WithDepth(2), entities, relations)
	assert.False(t, res.Stats.PathFound)

	res = Execute(NewQuery("A").FindPathTo("D").WithDepth(2).Weighted(), entities, relations)
	assert.False(t, res.Stats.PathFound)
	assert.LessOrEqual(t, res.Stats.MaxDepthReached, 2)

	res = Execute(NewQuery("A").FindPathTo("D").WithDepth(3).Weighted(), entities, relations)
	assert.True(t, res.Stats.PathFound)
}

func TestDijkstraKeepsShallowRouteWithinDepth(t *testing.T) {
	pid := models.NewProjectID()
	rel := func(from, to string, w float64) models.Relation {
		return *models.NewRelationByName(pid, from, to, "r").WithWeight(w)
	}
	// S-A-X is cheaper than S-X but uses up the hop budget before T.
	relations := []models.Relation{
		rel("S", "X", 10),
		rel("X", "T", 10),
		rel("S", "A", 1),
		rel("A", "X", 1),
	}

	q := NewQuery("S").FindPathTo("T").WithDepth(2).WithDirection(models.Outgoing).Weighted()
	res := Execute(q, nil, relations)
	require.True(t, res.Stats.PathFound)
	assert.Equal(t, []string{"S", "X", "T"}, res.Paths[0].Nodes)
	assert.Equal(t, 20.0, res.Paths[0].TotalWeight)
	assert.LessOrEqual(t, res.Stats.MaxDepthReached, 2)

	q = NewQuery("S").FindPathTo("T").WithDepth(3).WithDirection(models.Outgoing).Weighted()
	res = Execute(q, nil, relations)
	require.True(t, res.Stats.PathFound)
	assert.Equal(t, []string{"S", "A", "X", "T"}, res.Paths[0].Nodes)
	assert.Equal(t, 12.0, res.Paths[0].TotalWeight)
	assert.Equal(t, 3, res.Paths[0].Length)
}

func TestWeightedPathToStart(t *testing.T) {
	entities, relations := testGraph()

	res := Execute(NewQuery("A").FindPathTo("A").Weighted(), entities, relations)
	require.True(t, res.Stats.PathFound)
	assert.Equal(t, []string{"A"}, res.Paths[0].Nodes)
	assert.Empty(t, res.Paths[0].Edges)
	assert.Equal(t, 0, res.Paths[0].Length)
}

func TestDijkstraDefaultsMissingWeights(t *testing.T) {
	pid := models.NewProjectID()
	relations := []models.Relation{
		*models.NewRelationByName(pid, "A", "B", "r"),
		*models.NewRelationByName(pid, "B", "D", "r"),
		*models.NewRelationByName(pid, "A", "D", "r").WithWeight(5),
	}

	res := Execute(NewQuery("A").FindPathTo("D").Weighted(), nil, relations)
	require.True(t, res.Stats.PathFound)
	assert.Equal(t, []string{"A", "B", "D"}, res.Paths[0].Nodes)
	assert.Equal(t, 2.0, res.Paths[0].TotalWeight)
}

func TestSinglePathReturned(t *testing.T) {
	entities, relations := testGraph()

	q := NewQuery("A").FindPathTo("F")
	q.MaxPaths = 3
	res := Execute(q, entities, relations)
	assert.Len(t, res.Paths, 1)
}

func TestVisitCap(t *testing.T) {
	pid := models.NewProjectID()
	relations := make([]models.Relation, 0, models.MaxTraversalNodes+10)
	for i := range models.MaxTraversalNodes + 10 {
		relations = append(relations, *models.NewRelationByName(pid, "hub", fmt.Sprintf("n%d", i), "spoke"))
	}

	res := Execute(NewQuery("hub").WithDepth(1), nil, relations)
	assert.Len(t, res.VisitedEntities, models.MaxTraversalNodes)
	assert.True(t, res.Stats.Truncated)
}

func TestEngineReuse(t *testing.T) {
	entities, relations := testGraph()
	eng := New(entities, relations)

	first := eng.Execute(NewQuery("A").FindPathTo("D"))
	second := eng.Execute(NewQuery("A").FindPathTo("F").Weighted())
	assert.True(t, first.Stats.PathFound)
	assert.True(t, second.Stats.PathFound)
}

func TestQueryDefaultsAndValidation(t *testing.T) {
	q := NewQuery("A")
	assert.Equal(t, DefaultMaxDepth, q.MaxDepth)
	assert.Equal(t, models.Both, q.Direction)
	assert.Equal(t, DefaultMaxPaths, q.MaxPaths)
	assert.NoError(t, q.Validate())

	assert.Error(t, q.WithDepth(51).Validate())
}
