// Package memory is the in-memory reference backend. Records are kept in their
// encoded form, so values behave exactly as they would after a trip through a
// persistent backend.
package memory

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/omar16100/parsnip/internal/models"
	"github.com/omar16100/parsnip/internal/storage"
)

// Store implements storage.Backend with plain maps under a read/write lock.
type Store struct {
	mu        sync.RWMutex
	entities  map[string][]byte
	relations map[string][]byte
	projects  map[string][]byte
	closed    bool
	logger    *slog.Logger
}

var _ storage.Backend = (*Store)(nil)

// New returns an empty store. A nil logger discards output.
func New(logger *slog.Logger) *Store {
	return &Store{
		entities:  make(map[string][]byte),
		relations: make(map[string][]byte),
		projects:  make(map[string][]byte),
		logger:    storage.Logger(logger),
	}
}

func (s *Store) Initialize(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) HealthCheck(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrClosed
	}
	return nil
}

// --- entities ---

func (s *Store) SaveEntity(_ context.Context, e *models.Entity) error {
	data, err := storage.Encode(e)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	s.entities[storage.EntityKey(e.ProjectID, e.Name)] = data
	return nil
}

func (s *Store) GetEntity(_ context.Context, projectID models.ProjectID, name string) (*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	data, ok := s.entities[storage.EntityKey(projectID, name)]
	if !ok {
		return nil, nil
	}
	return storage.Decode[models.Entity](data)
}

func (s *Store) GetAllEntities(_ context.Context, projectID models.ProjectID) ([]models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	return decodeAll[models.Entity](s.entities, storage.ProjectPrefix(projectID))
}

func (s *Store) GetAllEntitiesAllProjects(_ context.Context) ([]models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	return decodeAll[models.Entity](s.entities, "")
}

func (s *Store) DeleteEntity(_ context.Context, projectID models.ProjectID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	delete(s.entities, storage.EntityKey(projectID, name))
	return nil
}

// --- relations ---

func (s *Store) SaveRelation(_ context.Context, r *models.Relation) error {
	data, err := storage.Encode(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	s.relations[storage.RelationKey(r.Key())] = data
	return nil
}

func (s *Store) GetRelationsForEntity(_ context.Context, projectID models.ProjectID, name string) ([]models.Relation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	return s.relationsTouching(storage.ProjectPrefix(projectID), name)
}

func (s *Store) GetAllRelations(_ context.Context, projectID models.ProjectID) ([]models.Relation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	return decodeAll[models.Relation](s.relations, storage.ProjectPrefix(projectID))
}

func (s *Store) GetAllRelationsAllProjects(_ context.Context) ([]models.Relation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	return decodeAll[models.Relation](s.relations, "")
}

func (s *Store) GetRelationsForEntityGlobal(_ context.Context, name string) ([]models.Relation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	return s.relationsTouching("", name)
}

func (s *Store) DeleteRelation(_ context.Context, projectID models.ProjectID, from, to, relationType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	delete(s.relations, storage.RelationKey(projectID, from, to, relationType))
	return nil
}

func (s *Store) DeleteRelationsForEntity(_ context.Context, projectID models.ProjectID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	rels, err := s.relationsTouching(storage.ProjectPrefix(projectID), name)
	if err != nil {
		return err
	}
	for _, r := range rels {
		delete(s.relations, storage.RelationKey(r.Key()))
	}
	return nil
}

// relationsTouching must be called with s.mu held.
func (s *Store) relationsTouching(prefix, name string) ([]models.Relation, error) {
	all, err := decodeAll[models.Relation](s.relations, prefix)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(all, func(r models.Relation) bool {
		return r.FromName != name && r.ToName != name
	}), nil
}

// --- projects ---

func (s *Store) SaveProject(_ context.Context, p *models.Project) error {
	data, err := storage.Encode(p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	s.projects[storage.ProjectKey(p.Name)] = data
	return nil
}

func (s *Store) GetProject(_ context.Context, name string) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	data, ok := s.projects[storage.ProjectKey(name)]
	if !ok {
		return nil, nil
	}
	return storage.Decode[models.Project](data)
}

func (s *Store) GetProjectByID(_ context.Context, id models.ProjectID) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	all, err := decodeAll[models.Project](s.projects, "")
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, nil
}

func (s *Store) GetAllProjects(_ context.Context) ([]models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	return decodeAll[models.Project](s.projects, "")
}

func (s *Store) DeleteProject(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	data, ok := s.projects[storage.ProjectKey(name)]
	if !ok {
		return nil
	}
	p, err := storage.Decode[models.Project](data)
	if err != nil {
		return err
	}

	prefix := storage.ProjectPrefix(p.ID)
	entities := deletePrefix(s.entities, prefix)
	relations := deletePrefix(s.relations, prefix)
	delete(s.projects, storage.ProjectKey(name))

	s.logger.Info("deleted project", "project", name, "entities", entities, "relations", relations)
	return nil
}

// --- batches ---

func (s *Store) SaveEntitiesBatch(_ context.Context, entities []models.Entity) error {
	// Encode everything before touching the maps so a bad record stores nothing.
	// Later records with the same key win, matching sequential upserts.
	encoded := make(map[string][]byte, len(entities))
	for i := range entities {
		data, err := storage.Encode(&entities[i])
		if err != nil {
			return err
		}
		encoded[storage.EntityKey(entities[i].ProjectID, entities[i].Name)] = data
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	maps.Copy(s.entities, encoded)
	s.logger.Debug("saved entity batch", "count", len(entities))
	return nil
}

func (s *Store) SaveRelationsBatch(_ context.Context, relations []models.Relation) error {
	encoded := make(map[string][]byte, len(relations))
	for i := range relations {
		data, err := storage.Encode(&relations[i])
		if err != nil {
			return err
		}
		encoded[storage.RelationKey(relations[i].Key())] = data
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	maps.Copy(s.relations, encoded)
	s.logger.Debug("saved relation batch", "count", len(relations))
	return nil
}

// decodeAll decodes the values whose keys start with prefix, in key order.
func decodeAll[T storage.Record](m map[string][]byte, prefix string) ([]T, error) {
	keys := slices.Sorted(maps.Keys(m))
	out := make([]T, 0)
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		v, err := storage.Decode[T](m[k])
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

func deletePrefix(m map[string][]byte, prefix string) int {
	n := 0
	for k := range m {
		if strings.HasPrefix(k, prefix) {
			delete(m, k)
			n++
		}
	}
	return n
}
