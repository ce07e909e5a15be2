// Package traversal answers reachability and shortest-path queries over an
// already loaded graph. It does no I/O.
package traversal

import (
	"slices"

	"github.com/emirpasic/gods/queues/priorityqueue"

	"github.com/omar16100/parsnip/internal/models"
)

// Engine holds a graph and its adjacency index. It is safe for concurrent
// queries once built.
type Engine struct {
	entities  map[string]models.Entity
	relations []models.Relation

	// Relation indexes per node name, in input order.
	out  map[string][]int
	in   map[string][]int
	both map[string][]int
}

// New indexes relations for traversal. entities maps names to records and is
// only consulted for entity-type filtering and result assembly.
func New(entities map[string]models.Entity, relations []models.Relation) *Engine {
	e := &Engine{
		entities:  entities,
		relations: relations,
		out:       make(map[string][]int),
		in:        make(map[string][]int),
		both:      make(map[string][]int),
	}
	for i, r := range relations {
		e.out[r.FromName] = append(e.out[r.FromName], i)
		e.in[r.ToName] = append(e.in[r.ToName], i)
		e.both[r.FromName] = append(e.both[r.FromName], i)
		if r.ToName != r.FromName {
			e.both[r.ToName] = append(e.both[r.ToName], i)
		}
	}
	return e
}

// Execute runs q against a one-off engine.
func Execute(q *Query, entities map[string]models.Entity, relations []models.Relation) *Result {
	return New(entities, relations).Execute(q)
}

// Execute dispatches on the query shape: exploration without a target,
// BFS shortest path, or Dijkstra when weighted. A missing start entity is the
// caller's concern; the engine only follows relations.
func (e *Engine) Execute(q *Query) *Result {
	switch {
	case q.Target == "":
		return e.explore(q)
	case q.UseWeights:
		return e.dijkstra(q)
	default:
		return e.bfsPath(q)
	}
}

func (e *Engine) incident(node string, d models.Direction) []int {
	switch d {
	case models.Outgoing:
		return e.out[node]
	case models.Incoming:
		return e.in[node]
	default:
		return e.both[node]
	}
}

// step returns the node reached from current over rel, or false when a
// filter rejects the edge or the neighbour.
func (e *Engine) step(q *Query, current string, rel *models.Relation) (string, bool) {
	if len(q.RelationTypes) > 0 && !slices.Contains(q.RelationTypes, rel.RelationType) {
		return "", false
	}
	next := rel.FromName
	if rel.FromName == current {
		next = rel.ToName
	}
	if len(q.EntityTypes) > 0 {
		if ent, ok := e.entities[next]; ok && !slices.Contains(q.EntityTypes, ent.EntityType) {
			return "", false
		}
	}
	return next, true
}

// visitSet tracks visited names in discovery order.
type visitSet struct {
	seen      map[string]struct{}
	order     []string
	truncated bool
}

func newVisitSet(start string) *visitSet {
	return &visitSet{seen: map[string]struct{}{start: {}}, order: []string{start}}
}

func (v *visitSet) has(name string) bool {
	_, ok := v.seen[name]
	return ok
}

// add marks name visited. It refuses once the node cap is reached.
func (v *visitSet) add(name string) bool {
	if len(v.order) >= models.MaxTraversalNodes {
		v.truncated = true
		return false
	}
	v.seen[name] = struct{}{}
	v.order = append(v.order, name)
	return true
}

type queued struct {
	node  string
	depth int
}

type hop struct {
	prev string
	rel  int
}

func (e *Engine) explore(q *Query) *Result {
	visited := newVisitSet(q.Start)
	queue := []queued{{node: q.Start}}
	var stats Stats

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		stats.NodesVisited++
		stats.MaxDepthReached = max(stats.MaxDepthReached, cur.depth)

		if cur.depth >= q.MaxDepth {
			continue
		}
		for _, i := range e.incident(cur.node, q.Direction) {
			stats.EdgesTraversed++
			next, ok := e.step(q, cur.node, &e.relations[i])
			if !ok || visited.has(next) {
				continue
			}
			if visited.add(next) {
				queue = append(queue, queued{node: next, depth: cur.depth + 1})
			}
		}
	}

	stats.Truncated = visited.truncated
	return e.assemble(q, nil, visited.order, stats)
}

func (e *Engine) bfsPath(q *Query) *Result {
	visited := newVisitSet(q.Start)
	parent := make(map[string]hop)
	queue := []queued{{node: q.Start}}
	var stats Stats

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		stats.NodesVisited++
		stats.MaxDepthReached = max(stats.MaxDepthReached, cur.depth)

		if cur.node == q.Target {
			stats.PathFound = true
			break
		}
		if cur.depth >= q.MaxDepth {
			continue
		}
		for _, i := range e.incident(cur.node, q.Direction) {
			stats.EdgesTraversed++
			next, ok := e.step(q, cur.node, &e.relations[i])
			if !ok || visited.has(next) {
				continue
			}
			if visited.add(next) {
				parent[next] = hop{prev: cur.node, rel: i}
				queue = append(queue, queued{node: next, depth: cur.depth + 1})
			}
		}
	}

	stats.Truncated = visited.truncated
	var paths []Path
	if stats.PathFound {
		paths = []Path{e.reconstruct(q.Start, q.Target, parent)}
	}
	return e.assemble(q, paths, visited.order, stats)
}

// state is a node reached after a given number of hops. Dijkstra keys its
// costs by state so a pricier route with fewer hops survives a cheaper, longer one.
type state struct {
	node string
	hops int
}

type costed struct {
	state
	cost float64
}

func byCost(a, b any) int {
	ca, cb := a.(costed).cost, b.(costed).cost
	switch {
	case ca < cb:
		return -1
	case ca > cb:
		return 1
	}
	return 0
}

// dijkstra finds the cheapest path by summed weight (1.0 when unset) among
// paths of at most MaxDepth hops. Tie order between equal costs is whatever
// the heap yields.
func (e *Engine) dijkstra(q *Query) *Result {
	origin := state{node: q.Start}
	dist := map[state]float64{origin: 0}
	parent := make(map[state]stateHop)
	visited := newVisitSet(q.Start)
	var stats Stats

	pq := priorityqueue.NewWith(byCost)
	pq.Enqueue(costed{state: origin})

	var found state
	for !pq.Empty() {
		v, _ := pq.Dequeue()
		cur := v.(costed)
		// Stale entry: a cheaper route to this state was queued later.
		if cur.cost > dist[cur.state] {
			continue
		}
		stats.NodesVisited++
		stats.MaxDepthReached = max(stats.MaxDepthReached, cur.hops)

		if cur.node == q.Target {
			stats.PathFound = true
			found = cur.state
			break
		}
		if cur.hops >= q.MaxDepth {
			continue
		}

		for _, i := range e.incident(cur.node, q.Direction) {
			stats.EdgesTraversed++
			rel := &e.relations[i]
			name, ok := e.step(q, cur.node, rel)
			if !ok {
				continue
			}
			next := state{node: name, hops: cur.hops + 1}
			cost := cur.cost + rel.EffectiveWeight()
			if dominated(dist, next, cost) {
				continue
			}
			if !visited.has(name) && !visited.add(name) {
				continue
			}
			dist[next] = cost
			parent[next] = stateHop{prev: cur.state, rel: i}
			pq.Enqueue(costed{state: next, cost: cost})
		}
	}

	stats.Truncated = visited.truncated
	var paths []Path
	if stats.PathFound {
		var rels []int
		for s := found; s != origin; {
			h := parent[s]
			rels = append(rels, h.rel)
			s = h.prev
		}
		slices.Reverse(rels)
		paths = []Path{e.pathOf(q.Start, rels)}
	}
	return e.assemble(q, paths, visited.order, stats)
}

type stateHop struct {
	prev state
	rel  int
}

// dominated reports whether s's node is already reachable in no more hops
// for no more cost.
func dominated(dist map[state]float64, s state, cost float64) bool {
	for h := 0; h <= s.hops; h++ {
		if best, ok := dist[state{node: s.node, hops: h}]; ok && best <= cost {
			return true
		}
	}
	return false
}

// reconstruct walks parent links back from target to start.
func (e *Engine) reconstruct(start, target string, parent map[string]hop) Path {
	var rels []int
	for cur := target; cur != start; {
		h, ok := parent[cur]
		if !ok {
			break
		}
		rels = append(rels, h.rel)
		cur = h.prev
	}
	slices.Reverse(rels)
	return e.pathOf(start, rels)
}

// pathOf follows the relations rels in order from start.
func (e *Engine) pathOf(start string, rels []int) Path {
	nodes := []string{start}
	edges := make([]PathEdge, 0, len(rels))
	total := 0.0

	for _, i := range rels {
		rel := &e.relations[i]
		total += rel.EffectiveWeight()
		edges = append(edges, PathEdge{
			From:         rel.FromName,
			To:           rel.ToName,
			RelationType: rel.RelationType,
			Weight:       rel.Weight,
		})
		next := rel.FromName
		if next == nodes[len(nodes)-1] {
			next = rel.ToName
		}
		nodes = append(nodes, next)
	}
	return Path{Nodes: nodes, Edges: edges, TotalWeight: total, Length: len(edges)}
}

func (e *Engine) assemble(q *Query, paths []Path, visited []string, stats Stats) *Result {
	if paths == nil {
		paths = []Path{}
	}

	seen := make(map[string]struct{}, len(visited))
	entities := make([]models.Entity, 0, len(visited))
	for _, name := range visited {
		seen[name] = struct{}{}
		if ent, ok := e.entities[name]; ok {
			entities = append(entities, ent)
		}
	}
	relations := make([]models.Relation, 0)
	for _, r := range e.relations {
		_, from := seen[r.FromName]
		_, to := seen[r.ToName]
		if from && to {
			relations = append(relations, r)
		}
	}

	return &Result{
		Start:           q.Start,
		Target:          q.Target,
		Paths:           paths,
		VisitedEntities: visited,
		Entities:        entities,
		Relations:       relations,
		Stats:           stats,
	}
}
