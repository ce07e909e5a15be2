// Package badgerstore is the ordered byte-store backend. Entities, relations
// and projects live in one BadgerDB keyspace, split into regions by key prefix.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/omar16100/parsnip/internal/models"
	"github.com/omar16100/parsnip/internal/storage"
)

// Region prefixes. The logical key follows the prefix.
const (
	entityRegion   = "e/"
	relationRegion = "r/"
	projectRegion  = "p/"
	metaRegion     = "m/"
)

var schemaVersionKey = []byte(metaRegion + "schema_version")

func entityKey(pid models.ProjectID, name string) []byte {
	return []byte(entityRegion + storage.EntityKey(pid, name))
}

func relationKey(pid models.ProjectID, from, to, relationType string) []byte {
	return []byte(relationRegion + storage.RelationKey(pid, from, to, relationType))
}

func projectKey(name string) []byte {
	return []byte(projectRegion + storage.ProjectKey(name))
}

// Store implements storage.Backend on BadgerDB. A mutex serializes every
// transaction, so at most one is in flight per Store.
type Store struct {
	mu     sync.Mutex
	db     *badger.DB
	gc     *gcRunner
	logger *slog.Logger
}

var (
	_ storage.Backend  = (*Store)(nil)
	_ storage.Migrator = (*Store)(nil)
)

// Open opens the database described by cfg. Call Initialize before use.
func Open(cfg Config) (*Store, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, storage.Connection("open", err)
	}
	s := &Store{db: db, logger: storage.Logger(cfg.Logger)}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.gc = startGC(db, cfg.GCInterval, cfg.GCDiscardRatio, s.logger)
	}
	return s, nil
}

// update runs fn in a read-write transaction under the store lock.
func (s *Store) update(op string, fn func(txn *badger.Txn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return storage.ErrClosed
	}
	return classify(op, s.db.Update(fn))
}

// view runs fn in a read-only transaction under the store lock.
func (s *Store) view(op string, fn func(txn *badger.Txn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return storage.ErrClosed
	}
	return classify(op, s.db.View(fn))
}

func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrConflict), errors.Is(err, badger.ErrTxnTooBig):
		return storage.Transaction(op, err)
	default:
		return storage.Database(op, err)
	}
}

func (s *Store) Initialize(ctx context.Context) error {
	return storage.Migrate(ctx, s, s.logger)
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	if s.gc != nil {
		s.gc.stop()
		s.gc = nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return storage.Database("close", err)
	}
	return nil
}

func (s *Store) HealthCheck(_ context.Context) error {
	return s.view("health_check", func(txn *badger.Txn) error {
		_, err := txn.Get(schemaVersionKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// --- schema version ---

func (s *Store) SchemaVersion(_ context.Context) (int, error) {
	version := 0
	err := s.view("schema_version", func(txn *badger.Txn) error {
		item, err := txn.Get(schemaVersionKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			v, err := strconv.Atoi(string(val))
			if err != nil {
				return storage.Serialization("schema_version", err)
			}
			version = v
			return nil
		})
	})
	return version, err
}

func (s *Store) SetSchemaVersion(_ context.Context, version int) error {
	return s.update("set_schema_version", func(txn *badger.Txn) error {
		return txn.Set(schemaVersionKey, []byte(strconv.Itoa(version)))
	})
}

func (s *Store) RunMigration(_ context.Context, version int) error {
	switch version {
	case 1:
		// Initial key layout; nothing to rewrite.
		return nil
	}
	return fmt.Errorf("no migration to schema version %d", version)
}

// --- entities ---

func (s *Store) SaveEntity(_ context.Context, e *models.Entity) error {
	data, err := storage.Encode(e)
	if err != nil {
		return err
	}
	return s.update("save_entity", func(txn *badger.Txn) error {
		return txn.Set(entityKey(e.ProjectID, e.Name), data)
	})
}

func (s *Store) GetEntity(_ context.Context, projectID models.ProjectID, name string) (*models.Entity, error) {
	var e *models.Entity
	err := s.view("get_entity", func(txn *badger.Txn) error {
		var err error
		e, err = get[models.Entity](txn, entityKey(projectID, name))
		return err
	})
	return e, err
}

func (s *Store) GetAllEntities(_ context.Context, projectID models.ProjectID) ([]models.Entity, error) {
	var out []models.Entity
	err := s.view("get_all_entities", func(txn *badger.Txn) error {
		var err error
		out, err = scan[models.Entity](txn, entityRegion+storage.ProjectPrefix(projectID), nil)
		return err
	})
	return out, err
}

func (s *Store) GetAllEntitiesAllProjects(_ context.Context) ([]models.Entity, error) {
	var out []models.Entity
	err := s.view("get_all_entities_all_projects", func(txn *badger.Txn) error {
		var err error
		out, err = scan[models.Entity](txn, entityRegion, nil)
		return err
	})
	return out, err
}

func (s *Store) DeleteEntity(_ context.Context, projectID models.ProjectID, name string) error {
	return s.update("delete_entity", func(txn *badger.Txn) error {
		return txn.Delete(entityKey(projectID, name))
	})
}

// --- relations ---

func (s *Store) SaveRelation(_ context.Context, r *models.Relation) error {
	data, err := storage.Encode(r)
	if err != nil {
		return err
	}
	return s.update("save_relation", func(txn *badger.Txn) error {
		return txn.Set(relationKey(r.Key()), data)
	})
}

func touches(name string) func(*models.Relation) bool {
	return func(r *models.Relation) bool {
		return r.FromName == name || r.ToName == name
	}
}

func (s *Store) GetRelationsForEntity(_ context.Context, projectID models.ProjectID, name string) ([]models.Relation, error) {
	var out []models.Relation
	err := s.view("get_relations_for_entity", func(txn *badger.Txn) error {
		var err error
		out, err = scan(txn, relationRegion+storage.ProjectPrefix(projectID), touches(name))
		return err
	})
	return out, err
}

func (s *Store) GetAllRelations(_ context.Context, projectID models.ProjectID) ([]models.Relation, error) {
	var out []models.Relation
	err := s.view("get_all_relations", func(txn *badger.Txn) error {
		var err error
		out, err = scan[models.Relation](txn, relationRegion+storage.ProjectPrefix(projectID), nil)
		return err
	})
	return out, err
}

func (s *Store) GetAllRelationsAllProjects(_ context.Context) ([]models.Relation, error) {
	var out []models.Relation
	err := s.view("get_all_relations_all_projects", func(txn *badger.Txn) error {
		var err error
		out, err = scan[models.Relation](txn, relationRegion, nil)
		return err
	})
	return out, err
}

func (s *Store) GetRelationsForEntityGlobal(_ context.Context, name string) ([]models.Relation, error) {
	var out []models.Relation
	err := s.view("get_relations_for_entity_global", func(txn *badger.Txn) error {
		var err error
		out, err = scan(txn, relationRegion, touches(name))
		return err
	})
	return out, err
}

func (s *Store) DeleteRelation(_ context.Context, projectID models.ProjectID, from, to, relationType string) error {
	return s.update("delete_relation", func(txn *badger.Txn) error {
		return txn.Delete(relationKey(projectID, from, to, relationType))
	})
}

func (s *Store) DeleteRelationsForEntity(_ context.Context, projectID models.ProjectID, name string) error {
	return s.update("delete_relations_for_entity", func(txn *badger.Txn) error {
		rels, err := scan(txn, relationRegion+storage.ProjectPrefix(projectID), touches(name))
		if err != nil {
			return err
		}
		for i := range rels {
			if err := txn.Delete(relationKey(rels[i].Key())); err != nil {
				return err
			}
		}
		return nil
	})
}

// --- projects ---

func (s *Store) SaveProject(_ context.Context, p *models.Project) error {
	data, err := storage.Encode(p)
	if err != nil {
		return err
	}
	return s.update("save_project", func(txn *badger.Txn) error {
		return txn.Set(projectKey(p.Name), data)
	})
}

func (s *Store) GetProject(_ context.Context, name string) (*models.Project, error) {
	var p *models.Project
	err := s.view("get_project", func(txn *badger.Txn) error {
		var err error
		p, err = get[models.Project](txn, projectKey(name))
		return err
	})
	return p, err
}

func (s *Store) GetProjectByID(_ context.Context, id models.ProjectID) (*models.Project, error) {
	var p *models.Project
	err := s.view("get_project_by_id", func(txn *badger.Txn) error {
		found, err := scan(txn, projectRegion, func(p *models.Project) bool { return p.ID == id })
		if err != nil || len(found) == 0 {
			return err
		}
		p = &found[0]
		return nil
	})
	return p, err
}

func (s *Store) GetAllProjects(_ context.Context) ([]models.Project, error) {
	var out []models.Project
	err := s.view("get_all_projects", func(txn *badger.Txn) error {
		var err error
		out, err = scan[models.Project](txn, projectRegion, nil)
		return err
	})
	return out, err
}

func (s *Store) DeleteProject(_ context.Context, name string) error {
	var entities, relations int
	var found bool
	err := s.update("delete_project", func(txn *badger.Txn) error {
		p, err := get[models.Project](txn, projectKey(name))
		if err != nil || p == nil {
			return err
		}
		found = true

		prefix := storage.ProjectPrefix(p.ID)
		if entities, err = deletePrefix(txn, entityRegion+prefix); err != nil {
			return fmt.Errorf("delete entities: %w", err)
		}
		if relations, err = deletePrefix(txn, relationRegion+prefix); err != nil {
			return fmt.Errorf("delete relations: %w", err)
		}
		return txn.Delete(projectKey(name))
	})
	if err == nil && found {
		s.logger.Info("deleted project", "project", name, "entities", entities, "relations", relations)
	}
	return err
}

// --- batches ---

func (s *Store) SaveEntitiesBatch(_ context.Context, entities []models.Entity) error {
	err := s.update("save_entities_batch", func(txn *badger.Txn) error {
		for i := range entities {
			data, err := storage.Encode(&entities[i])
			if err != nil {
				return err
			}
			if err := txn.Set(entityKey(entities[i].ProjectID, entities[i].Name), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		s.logger.Debug("saved entity batch", "count", len(entities))
	}
	return err
}

func (s *Store) SaveRelationsBatch(_ context.Context, relations []models.Relation) error {
	err := s.update("save_relations_batch", func(txn *badger.Txn) error {
		for i := range relations {
			data, err := storage.Encode(&relations[i])
			if err != nil {
				return err
			}
			if err := txn.Set(relationKey(relations[i].Key()), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		s.logger.Debug("saved relation batch", "count", len(relations))
	}
	return err
}

// --- txn helpers ---

func get[T storage.Record](txn *badger.Txn, key []byte) (*T, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var v *T
	err = item.Value(func(val []byte) error {
		var derr error
		v, derr = storage.Decode[T](val)
		return derr
	})
	return v, err
}

// scan decodes every value under prefix in key order, keeping those for which
// keep returns true. A nil keep keeps everything.
func scan[T storage.Record](txn *badger.Txn, prefix string, keep func(*T) bool) ([]T, error) {
	p := []byte(prefix)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = p
	it := txn.NewIterator(opts)
	defer it.Close()

	out := make([]T, 0)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		var v *T
		err := it.Item().Value(func(val []byte) error {
			var derr error
			v, derr = storage.Decode[T](val)
			return derr
		})
		if err != nil {
			return nil, err
		}
		if keep == nil || keep(v) {
			out = append(out, *v)
		}
	}
	return out, nil
}

// deletePrefix removes every key under prefix and returns how many it removed.
func deletePrefix(txn *badger.Txn, prefix string) (int, error) {
	p := []byte(prefix)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = p
	opts.PrefetchValues = false

	var keys [][]byte
	it := txn.NewIterator(opts)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}
