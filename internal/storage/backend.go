// Package storage defines the contract every knowledge-graph backend satisfies
// and the pieces shared between backends.
package storage

import (
	"context"

	"github.com/omar16100/parsnip/internal/models"
)

// Backend is the storage contract. Reads of absent records return nil or an
// empty slice, never an error. Every backend serializes access to its
// underlying handle, so at most one transaction is in flight per instance;
// use the batch methods to amortize that cost over many records.
type Backend interface {
	Initialize(ctx context.Context) error
	Close() error
	HealthCheck(ctx context.Context) error

	// SaveEntity upserts by (ProjectID, Name).
	SaveEntity(ctx context.Context, e *models.Entity) error
	GetEntity(ctx context.Context, projectID models.ProjectID, name string) (*models.Entity, error)
	GetAllEntities(ctx context.Context, projectID models.ProjectID) ([]models.Entity, error)
	GetAllEntitiesAllProjects(ctx context.Context) ([]models.Entity, error)
	DeleteEntity(ctx context.Context, projectID models.ProjectID, name string) error

	// SaveRelation upserts by (ProjectID, FromName, ToName, RelationType).
	SaveRelation(ctx context.Context, r *models.Relation) error
	// GetRelationsForEntity returns the project's relations with name at either end.
	GetRelationsForEntity(ctx context.Context, projectID models.ProjectID, name string) ([]models.Relation, error)
	GetAllRelations(ctx context.Context, projectID models.ProjectID) ([]models.Relation, error)
	GetAllRelationsAllProjects(ctx context.Context) ([]models.Relation, error)
	// GetRelationsForEntityGlobal is GetRelationsForEntity across every project.
	GetRelationsForEntityGlobal(ctx context.Context, name string) ([]models.Relation, error)
	DeleteRelation(ctx context.Context, projectID models.ProjectID, from, to, relationType string) error
	DeleteRelationsForEntity(ctx context.Context, projectID models.ProjectID, name string) error

	// SaveProject upserts by Name.
	SaveProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, name string) (*models.Project, error)
	GetProjectByID(ctx context.Context, id models.ProjectID) (*models.Project, error)
	GetAllProjects(ctx context.Context) ([]models.Project, error)
	// DeleteProject removes the project's entities, then its relations, then
	// the project record. Deleting an unknown project is a no-op.
	DeleteProject(ctx context.Context, name string) error

	// Batch writes are atomic: either every record is stored or none is.
	SaveEntitiesBatch(ctx context.Context, entities []models.Entity) error
	SaveRelationsBatch(ctx context.Context, relations []models.Relation) error
}
