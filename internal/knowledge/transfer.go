package knowledge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/omar16100/parsnip/internal/models"
	"github.com/omar16100/parsnip/internal/storage"
)

// ExportVersion tags the export document layout.
const ExportVersion = "1.0"

// Export is the portable JSON form of one or more projects. Observations
// travel as plain text, so IDs and timestamps are regenerated on import.
type Export struct {
	Version  string          `json:"version"`
	Projects []ProjectExport `json:"projects"`
}

type ProjectExport struct {
	Name        string           `json:"name"`
	Description *string          `json:"description,omitempty"`
	Entities    []EntityExport   `json:"entities"`
	Relations   []RelationExport `json:"relations"`
}

// EntityExport is one exported entity. Type keys are written camelCase;
// snake_case keys are accepted on read.
type EntityExport struct {
	Name         string         `json:"name"`
	EntityType   string         `json:"entityType"`
	Observations []string       `json:"observations"`
	Tags         []string       `json:"tags,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

func (e *EntityExport) UnmarshalJSON(data []byte) error {
	type plain EntityExport
	var v struct {
		plain
		SnakeType string `json:"entity_type"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*e = EntityExport(v.plain)
	if e.EntityType == "" {
		e.EntityType = v.SnakeType
	}
	return nil
}

func (e EntityExport) input() models.NewEntityInput {
	return models.NewEntityInput{
		Name:         e.Name,
		EntityType:   e.EntityType,
		Observations: e.Observations,
		Tags:         e.Tags,
		Metadata:     e.Metadata,
	}
}

// RelationExport is one exported relation, addressed by endpoint names.
type RelationExport struct {
	From         string         `json:"from"`
	To           string         `json:"to"`
	RelationType string         `json:"relationType"`
	Weight       *float64       `json:"weight,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

func (r *RelationExport) UnmarshalJSON(data []byte) error {
	type plain RelationExport
	var v struct {
		plain
		SnakeType string `json:"relation_type"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = RelationExport(v.plain)
	if r.RelationType == "" {
		r.RelationType = v.SnakeType
	}
	return nil
}

// supportedVersion accepts the current layout and its "1" shorthand.
func supportedVersion(v string) bool {
	return v == ExportVersion || v == "1"
}

// ImportStats counts what an import wrote.
type ImportStats struct {
	Projects  int `json:"projects"`
	Entities  int `json:"entities"`
	Relations int `json:"relations"`
}

// ExportProjects exports the named projects, or every project when names is empty.
func (s *Service) ExportProjects(ctx context.Context, names ...string) (*Export, error) {
	var projects []models.Project
	if len(names) == 0 {
		all, err := s.ListProjects(ctx)
		if err != nil {
			return nil, err
		}
		projects = all
	} else {
		for _, name := range names {
			p, err := s.GetProject(ctx, name)
			if err != nil {
				return nil, err
			}
			projects = append(projects, *p)
		}
	}

	out := &Export{Version: ExportVersion, Projects: make([]ProjectExport, 0, len(projects))}
	for i := range projects {
		g, err := s.ReadGraph(ctx, &projects[i])
		if err != nil {
			return nil, err
		}
		out.Projects = append(out.Projects, exportProject(&projects[i], g))
	}
	return out, nil
}

func exportProject(p *models.Project, g *models.Graph) ProjectExport {
	pe := ProjectExport{
		Name:        p.Name,
		Description: p.Description,
		Entities:    make([]EntityExport, 0, len(g.Entities)),
		Relations:   make([]RelationExport, 0, len(g.Relations)),
	}
	for _, e := range g.Entities {
		obs := make([]string, len(e.Observations))
		for i, o := range e.Observations {
			obs[i] = o.Content
		}
		pe.Entities = append(pe.Entities, EntityExport{
			Name:         e.Name,
			EntityType:   e.EntityType,
			Observations: obs,
			Tags:         e.Tags,
			Metadata:     e.Metadata,
		})
	}
	for _, r := range g.Relations {
		pe.Relations = append(pe.Relations, RelationExport{
			From:         r.FromName,
			To:           r.ToName,
			RelationType: r.RelationType,
			Weight:       r.Weight,
			Metadata:     r.Metadata,
		})
	}
	return pe
}

// ImportProjects writes an export back. A non-empty target imports every
// project into that one name. Importing into a project that already holds
// entities fails with models.ErrDuplicate unless merge is set, in which case
// imported entities replace same-named ones.
func (s *Service) ImportProjects(ctx context.Context, data *Export, target string, merge bool) (ImportStats, error) {
	var stats ImportStats
	if !supportedVersion(data.Version) {
		return stats, fmt.Errorf("unsupported export version %q", data.Version)
	}
	for _, pe := range data.Projects {
		name := pe.Name
		if target != "" {
			name = target
		}
		p, err := s.importTarget(ctx, name, pe.Description, merge)
		if err != nil {
			return stats, err
		}

		existing, err := s.store.GetAllEntities(ctx, p.ID)
		if err != nil {
			return stats, fmt.Errorf("import %q: %w", name, err)
		}
		g, err := buildGraph(p, pe, existing)
		if err != nil {
			return stats, fmt.Errorf("import %q: %w", name, err)
		}
		if err := storage.SaveGraph(ctx, s.store, g, p.ID); err != nil {
			return stats, fmt.Errorf("import %q: %w", name, err)
		}

		s.logger.Info("imported project", "project", name,
			"entities", len(g.Entities), "relations", len(g.Relations))
		stats.Projects++
		stats.Entities += len(g.Entities)
		stats.Relations += len(g.Relations)
	}
	return stats, nil
}

func (s *Service) importTarget(ctx context.Context, name string, description *string, merge bool) (*models.Project, error) {
	if err := models.ValidateProjectName(name); err != nil {
		return nil, err
	}
	p, err := s.store.GetProject(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get project %q: %w", name, err)
	}
	if p == nil {
		desc := ""
		if description != nil {
			desc = *description
		}
		return s.CreateProject(ctx, name, desc)
	}
	if merge {
		return p, nil
	}
	existing, err := s.store.GetAllEntities(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("count entities of %q: %w", name, err)
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("project %q holds %d entities, merge to add to it: %w",
			name, len(existing), models.ErrDuplicate)
	}
	return p, nil
}

// buildGraph validates an exported project and materializes its records
// under p. Entities replacing an existing one keep its ID. Relations whose
// endpoints are neither exported nor existing keep generated endpoint IDs.
func buildGraph(p *models.Project, pe ProjectExport, existing []models.Entity) (*models.Graph, error) {
	g := &models.Graph{
		Entities:  make([]models.Entity, 0, len(pe.Entities)),
		Relations: make([]models.Relation, 0, len(pe.Relations)),
	}
	byName := make(map[string]*models.Entity, len(existing)+len(pe.Entities))
	for i := range existing {
		byName[existing[i].Name] = &existing[i]
	}
	for _, ex := range pe.Entities {
		in := ex.input()
		if err := validateEntityInput(in); err != nil {
			return nil, fmt.Errorf("entity %q: %w", in.Name, err)
		}
		e := models.NewEntity(p.ID, in.Name, in.EntityType)
		if prev, ok := byName[in.Name]; ok {
			e.ID, e.CreatedAt = prev.ID, prev.CreatedAt
		}
		for _, obs := range in.Observations {
			e.AddObservation(obs)
		}
		for _, tag := range in.Tags {
			e.AddTag(tag)
		}
		for k, v := range in.Metadata {
			e.Metadata[k] = v
		}
		g.Entities = append(g.Entities, *e)
		byName[e.Name] = e
	}

	for _, in := range pe.Relations {
		if in.RelationType == "" {
			return nil, fmt.Errorf("relation %s->%s: relation type is required", in.From, in.To)
		}
		var r *models.Relation
		from, to := byName[in.From], byName[in.To]
		if from != nil && to != nil {
			r = models.NewRelation(p.ID, from, to, in.RelationType)
		} else {
			r = models.NewRelationByName(p.ID, in.From, in.To, in.RelationType)
		}
		r.Weight = in.Weight
		for k, v := range in.Metadata {
			r.Metadata[k] = v
		}
		g.Relations = append(g.Relations, *r)
	}
	return g, nil
}
