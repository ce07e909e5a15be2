package storage

import (
	"context"
	"fmt"

	"github.com/omar16100/parsnip/internal/models"
)

// LoadGraph materializes every entity and relation of a project.
func LoadGraph(ctx context.Context, b Backend, projectID models.ProjectID) (*models.Graph, error) {
	entities, err := b.GetAllEntities(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}
	relations, err := b.GetAllRelations(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load relations: %w", err)
	}
	return &models.Graph{Entities: entities, Relations: relations}, nil
}

// SaveGraph writes the graph's entities, then its relations, each in one
// batch. Records keep the project ID they carry; projectID only fills in
// records that have none.
func SaveGraph(ctx context.Context, b Backend, g *models.Graph, projectID models.ProjectID) error {
	entities := make([]models.Entity, len(g.Entities))
	copy(entities, g.Entities)
	for i := range entities {
		if entities[i].ProjectID == "" {
			entities[i].ProjectID = projectID
		}
	}
	relations := make([]models.Relation, len(g.Relations))
	copy(relations, g.Relations)
	for i := range relations {
		if relations[i].ProjectID == "" {
			relations[i].ProjectID = projectID
		}
	}

	if err := b.SaveEntitiesBatch(ctx, entities); err != nil {
		return fmt.Errorf("save entities: %w", err)
	}
	if err := b.SaveRelationsBatch(ctx, relations); err != nil {
		return fmt.Errorf("save relations: %w", err)
	}
	return nil
}
