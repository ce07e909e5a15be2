package models

// Graph is a materialized set of entities and relations, usually one project's.
type Graph struct {
	Entities  []Entity   `json:"entities"`
	Relations []Relation `json:"relations"`
}

// EntitiesByName indexes the graph's entities by name, the shape the traversal
// engine consumes.
func (g *Graph) EntitiesByName() map[string]Entity {
	m := make(map[string]Entity, len(g.Entities))
	for _, e := range g.Entities {
		m[e.Name] = e
	}
	return m
}
