package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/omar16100/parsnip/internal/models"
	"github.com/omar16100/parsnip/internal/storage"
)

const (
	upsertEntity = `INSERT OR REPLACE INTO entities (project_id, name, data) VALUES (?, ?, ?)`

	upsertRelation = `INSERT OR REPLACE INTO relations (project_id, from_name, to_name, relation_type, data)
		VALUES (?, ?, ?, ?, ?)`

	upsertProject = `INSERT INTO projects (name, id, data) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET id = excluded.id, data = excluded.data`
)

// --- entities ---

func (s *Store) SaveEntity(ctx context.Context, e *models.Entity) error {
	data, err := storage.Encode(e)
	if err != nil {
		return err
	}
	return s.exec(ctx, "save_entity", upsertEntity, string(e.ProjectID), e.Name, data)
}

func (s *Store) GetEntity(ctx context.Context, projectID models.ProjectID, name string) (*models.Entity, error) {
	return one[models.Entity](ctx, s, "get_entity",
		`SELECT data FROM entities WHERE project_id = ? AND name = ?`, string(projectID), name)
}

func (s *Store) GetAllEntities(ctx context.Context, projectID models.ProjectID) ([]models.Entity, error) {
	return list[models.Entity](ctx, s, "get_all_entities",
		`SELECT data FROM entities WHERE project_id = ? ORDER BY name`, string(projectID))
}

func (s *Store) GetAllEntitiesAllProjects(ctx context.Context) ([]models.Entity, error) {
	return list[models.Entity](ctx, s, "get_all_entities_all_projects",
		`SELECT data FROM entities ORDER BY project_id, name`)
}

func (s *Store) DeleteEntity(ctx context.Context, projectID models.ProjectID, name string) error {
	return s.exec(ctx, "delete_entity",
		`DELETE FROM entities WHERE project_id = ? AND name = ?`, string(projectID), name)
}

// --- relations ---

func (s *Store) SaveRelation(ctx context.Context, r *models.Relation) error {
	data, err := storage.Encode(r)
	if err != nil {
		return err
	}
	return s.exec(ctx, "save_relation", upsertRelation,
		string(r.ProjectID), r.FromName, r.ToName, r.RelationType, data)
}

func (s *Store) GetRelationsForEntity(ctx context.Context, projectID models.ProjectID, name string) ([]models.Relation, error) {
	return list[models.Relation](ctx, s, "get_relations_for_entity",
		`SELECT data FROM relations WHERE project_id = ? AND (from_name = ? OR to_name = ?)
		 ORDER BY from_name, to_name, relation_type`, string(projectID), name, name)
}

func (s *Store) GetAllRelations(ctx context.Context, projectID models.ProjectID) ([]models.Relation, error) {
	return list[models.Relation](ctx, s, "get_all_relations",
		`SELECT data FROM relations WHERE project_id = ? ORDER BY from_name, to_name, relation_type`,
		string(projectID))
}

func (s *Store) GetAllRelationsAllProjects(ctx context.Context) ([]models.Relation, error) {
	return list[models.Relation](ctx, s, "get_all_relations_all_projects",
		`SELECT data FROM relations ORDER BY project_id, from_name, to_name, relation_type`)
}

func (s *Store) GetRelationsForEntityGlobal(ctx context.Context, name string) ([]models.Relation, error) {
	return list[models.Relation](ctx, s, "get_relations_for_entity_global",
		`SELECT data FROM relations WHERE from_name = ? OR to_name = ?
		 ORDER BY project_id, from_name, to_name, relation_type`, name, name)
}

func (s *Store) DeleteRelation(ctx context.Context, projectID models.ProjectID, from, to, relationType string) error {
	return s.exec(ctx, "delete_relation",
		`DELETE FROM relations WHERE project_id = ? AND from_name = ? AND to_name = ? AND relation_type = ?`,
		string(projectID), from, to, relationType)
}

func (s *Store) DeleteRelationsForEntity(ctx context.Context, projectID models.ProjectID, name string) error {
	return s.exec(ctx, "delete_relations_for_entity",
		`DELETE FROM relations WHERE project_id = ? AND (from_name = ? OR to_name = ?)`,
		string(projectID), name, name)
}

// --- projects ---

func (s *Store) SaveProject(ctx context.Context, p *models.Project) error {
	data, err := storage.Encode(p)
	if err != nil {
		return err
	}
	return s.exec(ctx, "save_project", upsertProject, p.Name, string(p.ID), data)
}

func (s *Store) GetProject(ctx context.Context, name string) (*models.Project, error) {
	return one[models.Project](ctx, s, "get_project", `SELECT data FROM projects WHERE name = ?`, name)
}

func (s *Store) GetProjectByID(ctx context.Context, id models.ProjectID) (*models.Project, error) {
	return one[models.Project](ctx, s, "get_project_by_id", `SELECT data FROM projects WHERE id = ?`, string(id))
}

func (s *Store) GetAllProjects(ctx context.Context) ([]models.Project, error) {
	return list[models.Project](ctx, s, "get_all_projects", `SELECT data FROM projects ORDER BY name`)
}

func (s *Store) DeleteProject(ctx context.Context, name string) error {
	var entities, relations int64
	var found bool
	err := s.withTx(ctx, "delete_project", func(tx *sql.Tx) error {
		var id string
		err := tx.QueryRowContext(ctx, `SELECT id FROM projects WHERE name = ?`, name).Scan(&id)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return fmt.Errorf("lookup project %q: %w", name, err)
		}
		found = true

		res, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE project_id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete entities: %w", err)
		}
		entities, _ = res.RowsAffected()

		res, err = tx.ExecContext(ctx, `DELETE FROM relations WHERE project_id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete relations: %w", err)
		}
		relations, _ = res.RowsAffected()

		if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE name = ?`, name); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		return nil
	})
	if err == nil && found {
		s.logger.Info("deleted project", "project", name, "entities", entities, "relations", relations)
	}
	return err
}

// --- batches ---

func (s *Store) SaveEntitiesBatch(ctx context.Context, entities []models.Entity) error {
	err := s.withTx(ctx, "save_entities_batch", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertEntity)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		defer stmt.Close()

		for i := range entities {
			e := &entities[i]
			data, err := storage.Encode(e)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, string(e.ProjectID), e.Name, data); err != nil {
				return fmt.Errorf("insert entity %q: %w", e.Name, err)
			}
		}
		return nil
	})
	if err == nil {
		s.logger.Debug("saved entity batch", "count", len(entities))
	}
	return err
}

func (s *Store) SaveRelationsBatch(ctx context.Context, relations []models.Relation) error {
	err := s.withTx(ctx, "save_relations_batch", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertRelation)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		defer stmt.Close()

		for i := range relations {
			r := &relations[i]
			data, err := storage.Encode(r)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, string(r.ProjectID), r.FromName, r.ToName, r.RelationType, data); err != nil {
				return fmt.Errorf("insert relation %s->%s: %w", r.FromName, r.ToName, err)
			}
		}
		return nil
	})
	if err == nil {
		s.logger.Debug("saved relation batch", "count", len(relations))
	}
	return err
}
