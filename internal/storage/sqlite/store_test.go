package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omar16100/parsnip/internal/models"
	"github.com/omar16100/parsnip/internal/storage"
	"github.com/omar16100/parsnip/internal/storage/storagetest"
)

// setupStore opens a fresh database file in a temp directory.
func setupStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Initialize(context.Background()))
	return s
}

func TestConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		return setupStore(t, filepath.Join(t.TempDir(), "parsnip.db"))
	})
}

func TestConformanceInMemory(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		return setupStore(t, ":memory:")
	})
}

func TestUserVersion(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "v.db"), nil)
	require.NoError(t, err)
	defer s.Close()

	version, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Zero(t, version)

	require.NoError(t, s.Initialize(ctx))
	version, err = s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.CurrentSchemaVersion, version)

	// Running again is a no-op.
	require.NoError(t, s.Initialize(ctx))
	assert.Error(t, s.RunMigration(ctx, 99))
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "parsnip.db")

	s := setupStore(t, path)
	p := models.NewProject("durable").WithDescription("kept on disk")
	require.NoError(t, s.SaveProject(ctx, p))
	require.NoError(t, s.SaveRelation(ctx, models.NewRelationByName(p.ID, "A", "B", "links").WithWeight(0.5)))
	require.NoError(t, s.Close())

	s = setupStore(t, path)
	defer s.Close()

	got, err := s.GetProjectByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *p, *got)

	rels, err := s.GetRelationsForEntity(ctx, p.ID, "B")
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, 0.5, rels[0].EffectiveWeight())
}

func TestProjectIDUnique(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t, ":memory:")
	defer s.Close()

	p := models.NewProject("first")
	require.NoError(t, s.SaveProject(ctx, p))

	// The id column is unique, so a second record under a new name with the
	// same id is refused rather than silently duplicated.
	clone := *p
	clone.Name = "second"
	err := s.SaveProject(ctx, &clone)
	require.Error(t, err)
	assert.True(t, storage.IsKind(err, storage.KindDatabase))
}
