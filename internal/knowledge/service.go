// Package knowledge implements the knowledge-graph operations exposed to MCP
// tools and the CLI. Every write is validated here before it reaches storage.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/omar16100/parsnip/internal/models"
	"github.com/omar16100/parsnip/internal/storage"
)

// Service wraps a storage backend with validation and higher-level operations.
type Service struct {
	store  storage.Backend
	logger *slog.Logger

	// projectMu serializes project creation and deletion so concurrent
	// first references to a name agree on one project ID.
	projectMu sync.Mutex
}

// New creates a Service. A nil logger discards output.
func New(store storage.Backend, logger *slog.Logger) *Service {
	return &Service{store: store, logger: storage.Logger(logger)}
}

// --- projects ---

// GetOrCreateProject returns the named project, creating it on first reference.
func (s *Service) GetOrCreateProject(ctx context.Context, name string) (*models.Project, error) {
	if err := models.ValidateProjectName(name); err != nil {
		return nil, err
	}
	s.projectMu.Lock()
	defer s.projectMu.Unlock()

	p, err := s.store.GetProject(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get project %q: %w", name, err)
	}
	if p != nil {
		return p, nil
	}

	p = models.NewProject(name)
	if err := s.store.SaveProject(ctx, p); err != nil {
		return nil, fmt.Errorf("save project %q: %w", name, err)
	}
	s.logger.Info("created project", "project", name, "id", p.ID)
	return p, nil
}

// CreateProject creates a new project. It fails with models.ErrDuplicate when
// the name is taken.
func (s *Service) CreateProject(ctx context.Context, name, description string) (*models.Project, error) {
	if err := models.ValidateProjectName(name); err != nil {
		return nil, err
	}
	s.projectMu.Lock()
	defer s.projectMu.Unlock()

	existing, err := s.store.GetProject(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get project %q: %w", name, err)
	}
	if existing != nil {
		return nil, fmt.Errorf("project %q: %w", name, models.ErrDuplicate)
	}

	p := models.NewProject(name)
	if description != "" {
		p.WithDescription(description)
	}
	if err := s.store.SaveProject(ctx, p); err != nil {
		return nil, fmt.Errorf("save project %q: %w", name, err)
	}
	s.logger.Info("created project", "project", name, "id", p.ID)
	return p, nil
}

// GetProject returns the named project or models.ErrNotFound.
func (s *Service) GetProject(ctx context.Context, name string) (*models.Project, error) {
	p, err := s.store.GetProject(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get project %q: %w", name, err)
	}
	if p == nil {
		return nil, fmt.Errorf("project %q: %w", name, models.ErrNotFound)
	}
	return p, nil
}

func (s *Service) ListProjects(ctx context.Context) ([]models.Project, error) {
	projects, err := s.store.GetAllProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// DeleteProject removes a project with all its entities and relations.
func (s *Service) DeleteProject(ctx context.Context, name string) error {
	s.projectMu.Lock()
	defer s.projectMu.Unlock()

	if _, err := s.GetProject(ctx, name); err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, name); err != nil {
		return fmt.Errorf("delete project %q: %w", name, err)
	}
	return nil
}

// IsNotFound reports whether err marks a missing record.
func IsNotFound(err error) bool { return errors.Is(err, models.ErrNotFound) }

// ProjectSummary is a project with the size of its graph.
type ProjectSummary struct {
	models.Project
	EntityCount   int `json:"entity_count"`
	RelationCount int `json:"relation_count"`
}

// SummarizeProjects lists every project with its entity and relation counts.
func (s *Service) SummarizeProjects(ctx context.Context) ([]ProjectSummary, error) {
	projects, err := s.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProjectSummary, 0, len(projects))
	for _, p := range projects {
		entities, err := s.store.GetAllEntities(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("count entities of %q: %w", p.Name, err)
		}
		relations, err := s.store.GetAllRelations(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("count relations of %q: %w", p.Name, err)
		}
		out = append(out, ProjectSummary{Project: p, EntityCount: len(entities), RelationCount: len(relations)})
	}
	return out, nil
}
