package session

import (
	"context"
	"sync"

	"github.com/omar16100/parsnip/internal/knowledge"
	"github.com/omar16100/parsnip/internal/models"
)

// Session holds the current project context for an MCP session.
type Session struct {
	mu      sync.Mutex
	current *models.Project
}

// New creates a new empty session with no active project.
func New() *Session {
	return &Session{}
}

// SwitchProject makes the named project current. The project must exist.
func (s *Session) SwitchProject(ctx context.Context, svc *knowledge.Service, name string) (*models.Project, error) {
	proj, err := svc.GetProject(ctx, name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = proj
	return proj, nil
}

// Use makes proj current without a lookup.
func (s *Session) Use(proj *models.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = proj
}

// GetCurrent returns the current project, or false if none is active.
func (s *Session) GetCurrent() (*models.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, false
	}
	return s.current, true
}

// Resolve picks the project a request runs against: the explicit name when
// given, else the current project, else fallback. Explicit and fallback
// projects are created on first reference.
func (s *Session) Resolve(ctx context.Context, svc *knowledge.Service, explicit, fallback string) (*models.Project, error) {
	if explicit != "" {
		return svc.GetOrCreateProject(ctx, explicit)
	}
	if proj, ok := s.GetCurrent(); ok {
		return proj, nil
	}
	return svc.GetOrCreateProject(ctx, fallback)
}

// Forget clears the current project if it is the named one.
func (s *Session) Forget(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.Name == name {
		s.current = nil
	}
}
