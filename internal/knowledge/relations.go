package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/omar16100/parsnip/internal/models"
)

// CreateRelations resolves both endpoints of every input and stores the
// relations in one batch. Saving an existing (from, to, type) overwrites it.
//
// An endpoint is looked up in its explicit project when one is named, else in
// p, else across all projects, where it must match exactly one entity.
func (s *Service) CreateRelations(ctx context.Context, p *models.Project, inputs []models.NewRelationInput) ([]models.Relation, error) {
	if err := models.ValidateBatchRelations(len(inputs)); err != nil {
		return nil, err
	}

	created := make([]models.Relation, 0, len(inputs))
	for _, in := range inputs {
		if in.RelationType == "" {
			return nil, fmt.Errorf("relation %s->%s: relation type is required", in.From, in.To)
		}
		from, err := s.resolveEndpoint(ctx, p, in.From, in.FromProject)
		if err != nil {
			return nil, err
		}
		to, err := s.resolveEndpoint(ctx, p, in.To, in.ToProject)
		if err != nil {
			return nil, err
		}

		r := models.NewRelation(p.ID, from, to, in.RelationType)
		r.Weight = in.Weight
		for k, v := range in.Metadata {
			r.Metadata[k] = v
		}
		created = append(created, *r)
	}

	if err := s.store.SaveRelationsBatch(ctx, created); err != nil {
		return nil, fmt.Errorf("save relations: %w", err)
	}
	s.logger.Debug("created relations", "project", p.Name, "count", len(created))
	return created, nil
}

func (s *Service) resolveEndpoint(ctx context.Context, current *models.Project, name, projectName string) (*models.Entity, error) {
	if err := models.ValidateEntityName(name); err != nil {
		return nil, err
	}

	if projectName != "" {
		p, err := s.GetProject(ctx, projectName)
		if err != nil {
			return nil, err
		}
		return s.GetEntity(ctx, p, name)
	}

	e, err := s.store.GetEntity(ctx, current.ID, name)
	if err != nil {
		return nil, fmt.Errorf("get entity %q: %w", name, err)
	}
	if e != nil {
		return e, nil
	}

	all, err := s.store.GetAllEntitiesAllProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("search entity %q: %w", name, err)
	}
	var matches []models.Entity
	for _, candidate := range all {
		if candidate.Name == name {
			matches = append(matches, candidate)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("entity %q: %w", name, models.ErrNotFound)
	case 1:
		return &matches[0], nil
	}
	projects := make([]string, 0, len(matches))
	for _, m := range matches {
		projects = append(projects, s.projectName(ctx, m.ProjectID))
	}
	return nil, fmt.Errorf("entity %q found in projects %s, name one explicitly: %w",
		name, strings.Join(projects, ", "), models.ErrDuplicate)
}

// projectName returns the name of a project, falling back to its ID.
func (s *Service) projectName(ctx context.Context, id models.ProjectID) string {
	p, err := s.store.GetProjectByID(ctx, id)
	if err != nil || p == nil {
		return string(id)
	}
	return p.Name
}

// RelationRef addresses a relation by its key.
type RelationRef struct {
	From         string `json:"from"`
	To           string `json:"to"`
	RelationType string `json:"relation_type"`
}

// DeleteRelations removes the referenced relations and returns how many existed.
func (s *Service) DeleteRelations(ctx context.Context, p *models.Project, refs []RelationRef) (int, error) {
	existing, err := s.store.GetAllRelations(ctx, p.ID)
	if err != nil {
		return 0, fmt.Errorf("list relations: %w", err)
	}
	present := make(map[RelationRef]bool, len(existing))
	for _, r := range existing {
		present[RelationRef{From: r.FromName, To: r.ToName, RelationType: r.RelationType}] = true
	}

	deleted := 0
	for _, ref := range refs {
		if !present[ref] {
			continue
		}
		if err := s.store.DeleteRelation(ctx, p.ID, ref.From, ref.To, ref.RelationType); err != nil {
			return deleted, fmt.Errorf("delete relation %s->%s: %w", ref.From, ref.To, err)
		}
		present[ref] = false
		deleted++
	}
	return deleted, nil
}

// RelationsFor returns the relations touching name, in p or across every project.
func (s *Service) RelationsFor(ctx context.Context, p *models.Project, name string, global bool) ([]models.Relation, error) {
	var (
		rels []models.Relation
		err  error
	)
	if global {
		rels, err = s.store.GetRelationsForEntityGlobal(ctx, name)
	} else {
		if p == nil {
			return nil, errors.New("project is required unless global")
		}
		rels, err = s.store.GetRelationsForEntity(ctx, p.ID, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get relations of %q: %w", name, err)
	}
	return rels, nil
}
