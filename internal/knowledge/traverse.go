package knowledge

import (
	"context"
	"fmt"

	"github.com/omar16100/parsnip/internal/models"
	"github.com/omar16100/parsnip/internal/storage"
	"github.com/omar16100/parsnip/internal/traversal"
)

// ReadGraph loads every entity and relation of a project.
func (s *Service) ReadGraph(ctx context.Context, p *models.Project) (*models.Graph, error) {
	return storage.LoadGraph(ctx, s.store, p.ID)
}

// Traverse validates q, checks that its start and target exist, then runs it
// over the project's graph.
func (s *Service) Traverse(ctx context.Context, p *models.Project, q *traversal.Query) (*traversal.Result, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.GetEntity(ctx, p, q.Start); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	if q.Target != "" {
		if _, err := s.GetEntity(ctx, p, q.Target); err != nil {
			return nil, fmt.Errorf("target: %w", err)
		}
	}

	g, err := s.ReadGraph(ctx, p)
	if err != nil {
		return nil, err
	}
	res := traversal.Execute(q, g.EntitiesByName(), g.Relations)
	s.logger.Debug("traversal finished",
		"project", p.Name,
		"start", q.Start,
		"target", q.Target,
		"nodes_visited", res.Stats.NodesVisited,
		"edges_traversed", res.Stats.EdgesTraversed,
		"path_found", res.Stats.PathFound)
	return res, nil
}
