package knowledge

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/omar16100/parsnip/internal/models"
)

// CreateEntities validates and stores new entities in one batch. Names already
// present in the project, or repeated within the batch, fail with
// models.ErrDuplicate and nothing is written.
func (s *Service) CreateEntities(ctx context.Context, p *models.Project, inputs []models.NewEntityInput) ([]models.Entity, error) {
	if err := models.ValidateBatchEntities(len(inputs)); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(inputs))
	created := make([]models.Entity, 0, len(inputs))
	for _, in := range inputs {
		if err := validateEntityInput(in); err != nil {
			return nil, fmt.Errorf("entity %q: %w", in.Name, err)
		}
		if seen[in.Name] {
			return nil, fmt.Errorf("entity %q repeated in batch: %w", in.Name, models.ErrDuplicate)
		}
		seen[in.Name] = true

		existing, err := s.store.GetEntity(ctx, p.ID, in.Name)
		if err != nil {
			return nil, fmt.Errorf("get entity %q: %w", in.Name, err)
		}
		if existing != nil {
			return nil, fmt.Errorf("entity %q in project %q: %w", in.Name, p.Name, models.ErrDuplicate)
		}

		e := models.NewEntity(p.ID, in.Name, in.EntityType)
		for _, obs := range in.Observations {
			e.AddObservation(obs)
		}
		for _, tag := range in.Tags {
			e.AddTag(tag)
		}
		for k, v := range in.Metadata {
			e.Metadata[k] = v
		}
		created = append(created, *e)
	}

	if err := s.store.SaveEntitiesBatch(ctx, created); err != nil {
		return nil, fmt.Errorf("save entities: %w", err)
	}
	s.logger.Debug("created entities", "project", p.Name, "count", len(created))
	return created, nil
}

func validateEntityInput(in models.NewEntityInput) error {
	if err := models.ValidateEntityName(in.Name); err != nil {
		return err
	}
	if in.EntityType == "" {
		return errors.New("entity type is required")
	}
	if err := models.ValidateObservationCount(len(in.Observations)); err != nil {
		return err
	}
	for _, obs := range in.Observations {
		if err := models.ValidateObservation(obs); err != nil {
			return err
		}
	}
	if err := models.ValidateTagCount(len(in.Tags)); err != nil {
		return err
	}
	for _, tag := range in.Tags {
		if err := models.ValidateTag(tag); err != nil {
			return err
		}
	}
	return nil
}

// GetEntity returns the named entity or models.ErrNotFound.
func (s *Service) GetEntity(ctx context.Context, p *models.Project, name string) (*models.Entity, error) {
	e, err := s.store.GetEntity(ctx, p.ID, name)
	if err != nil {
		return nil, fmt.Errorf("get entity %q: %w", name, err)
	}
	if e == nil {
		return nil, fmt.Errorf("entity %q in project %q: %w", name, p.Name, models.ErrNotFound)
	}
	return e, nil
}

func (s *Service) ListEntities(ctx context.Context, p *models.Project) ([]models.Entity, error) {
	entities, err := s.store.GetAllEntities(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	return entities, nil
}

// update loads an entity, applies fn and saves it back when fn reports a change.
func (s *Service) update(ctx context.Context, p *models.Project, name string, fn func(e *models.Entity) (bool, error)) (*models.Entity, error) {
	e, err := s.GetEntity(ctx, p, name)
	if err != nil {
		return nil, err
	}
	changed, err := fn(e)
	if err != nil {
		return nil, err
	}
	if !changed {
		return e, nil
	}
	if err := models.ValidateEntity(e); err != nil {
		return nil, fmt.Errorf("entity %q: %w", name, err)
	}
	if err := s.store.SaveEntity(ctx, e); err != nil {
		return nil, fmt.Errorf("save entity %q: %w", name, err)
	}
	return e, nil
}

// AddObservations appends observations to an existing entity and returns them.
func (s *Service) AddObservations(ctx context.Context, p *models.Project, name string, contents []string) ([]models.Observation, error) {
	for _, c := range contents {
		if err := models.ValidateObservation(c); err != nil {
			return nil, fmt.Errorf("entity %q: %w", name, err)
		}
	}
	var added []models.Observation
	_, err := s.update(ctx, p, name, func(e *models.Entity) (bool, error) {
		if err := models.ValidateObservationCount(len(e.Observations) + len(contents)); err != nil {
			return false, fmt.Errorf("entity %q: %w", name, err)
		}
		for _, c := range contents {
			added = append(added, e.AddObservation(c))
		}
		return len(contents) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// RemoveObservations deletes observations by ID and returns how many existed.
func (s *Service) RemoveObservations(ctx context.Context, p *models.Project, name string, ids []models.ObservationID) (int, error) {
	removed := 0
	_, err := s.update(ctx, p, name, func(e *models.Entity) (bool, error) {
		removed = e.RemoveObservations(ids)
		return removed > 0, nil
	})
	return removed, err
}

// AddTags adds tags and returns those that were new.
func (s *Service) AddTags(ctx context.Context, p *models.Project, name string, tags []string) ([]string, error) {
	for _, t := range tags {
		if err := models.ValidateTag(t); err != nil {
			return nil, fmt.Errorf("entity %q: %w", name, err)
		}
	}
	added := []string{}
	_, err := s.update(ctx, p, name, func(e *models.Entity) (bool, error) {
		for _, t := range tags {
			if e.AddTag(t) {
				added = append(added, t)
			}
		}
		return len(added) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// RemoveTags removes tags and returns those the entity did not carry.
func (s *Service) RemoveTags(ctx context.Context, p *models.Project, name string, tags []string) ([]string, error) {
	missing := []string{}
	_, err := s.update(ctx, p, name, func(e *models.Entity) (bool, error) {
		for _, t := range tags {
			if !e.RemoveTag(t) {
				missing = append(missing, t)
			}
		}
		return len(missing) < len(tags), nil
	})
	if err != nil {
		return nil, err
	}
	return missing, nil
}

// DeleteEntities removes each named entity after its relations and returns the
// names that existed.
func (s *Service) DeleteEntities(ctx context.Context, p *models.Project, names []string) ([]string, error) {
	deleted := []string{}
	for _, name := range names {
		e, err := s.store.GetEntity(ctx, p.ID, name)
		if err != nil {
			return deleted, fmt.Errorf("get entity %q: %w", name, err)
		}
		if e == nil {
			continue
		}
		if err := s.store.DeleteRelationsForEntity(ctx, p.ID, name); err != nil {
			return deleted, fmt.Errorf("delete relations of %q: %w", name, err)
		}
		if err := s.store.DeleteEntity(ctx, p.ID, name); err != nil {
			return deleted, fmt.Errorf("delete entity %q: %w", name, err)
		}
		deleted = append(deleted, name)
	}
	return deleted, nil
}

// Node is an entity together with the relations touching it.
type Node struct {
	models.Entity
	Relations []models.Relation `json:"relations"`
}

// OpenNodes returns the named entities with their relations. Unknown names are skipped.
func (s *Service) OpenNodes(ctx context.Context, p *models.Project, names []string) ([]Node, error) {
	nodes := make([]Node, 0, len(names))
	for _, name := range names {
		e, err := s.store.GetEntity(ctx, p.ID, name)
		if err != nil {
			return nil, fmt.Errorf("get entity %q: %w", name, err)
		}
		if e == nil {
			continue
		}
		rels, err := s.store.GetRelationsForEntity(ctx, p.ID, name)
		if err != nil {
			return nil, fmt.Errorf("get relations of %q: %w", name, err)
		}
		nodes = append(nodes, Node{Entity: *e, Relations: rels})
	}
	return nodes, nil
}

// EntityTypes returns the distinct entity types in a project, sorted.
func (s *Service) EntityTypes(ctx context.Context, p *models.Project) ([]string, error) {
	entities, err := s.ListEntities(ctx, p)
	if err != nil {
		return nil, err
	}
	types := make([]string, 0)
	for _, e := range entities {
		if !slices.Contains(types, e.EntityType) {
			types = append(types, e.EntityType)
		}
	}
	slices.Sort(types)
	return types, nil
}
