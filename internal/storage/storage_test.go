package storage_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omar16100/parsnip/internal/models"
	"github.com/omar16100/parsnip/internal/storage"
	"github.com/omar16100/parsnip/internal/storage/memory"
	"github.com/omar16100/parsnip/internal/storage/storagetest"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("disk on fire")
	err := storage.Database("save_entity", cause)

	assert.True(t, storage.IsKind(err, storage.KindDatabase))
	assert.False(t, storage.IsKind(err, storage.KindTransaction))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "database error: save_entity: disk on fire", err.Error())

	// Re-wrapping keeps the original classification.
	wrapped := storage.Database("batch", fmt.Errorf("insert: %w", storage.Serialization("encode", cause)))
	assert.True(t, storage.IsKind(wrapped, storage.KindSerialization))

	assert.Nil(t, storage.Transaction("noop", nil))
	assert.True(t, storage.IsKind(storage.ErrClosed, storage.KindConnection))
}

func TestCodecRoundTrip(t *testing.T) {
	r := models.NewRelationByName(models.NewProjectID(), "A", "B", "knows")
	data, err := storage.Encode(r)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "weight")

	back, err := storage.Decode[models.Relation](data)
	require.NoError(t, err)
	assert.Equal(t, *r, *back)

	_, err = storage.Decode[models.Relation]([]byte("{not json"))
	assert.True(t, storage.IsKind(err, storage.KindSerialization))

	e := models.NewEntity(models.NewProjectID(), "A", "node")
	e.Metadata["bad"] = math.NaN()
	_, err = storage.Encode(e)
	assert.True(t, storage.IsKind(err, storage.KindSerialization))
}

func TestKeysEscapeSeparator(t *testing.T) {
	pid := models.ProjectID("p1")

	assert.Equal(t, "p1:Alice", storage.EntityKey(pid, "Alice"))
	assert.Equal(t, "p1:A:B:knows", storage.RelationKey(pid, "A", "B", "knows"))
	assert.Equal(t, `p1:a\:b:c:r`, storage.RelationKey(pid, "a:b", "c", "r"))

	assert.NotEqual(t,
		storage.RelationKey(pid, "a:b", "c", "r"),
		storage.RelationKey(pid, "a", "b:c", "r"))
	assert.NotEqual(t,
		storage.RelationKey(pid, `a\`, "b", "r"),
		storage.RelationKey(pid, "a", `\:b`, "r"))
	assert.True(t, strings.HasPrefix(storage.EntityKey(pid, "x:y"), storage.ProjectPrefix(pid)))
}

type fakeMigrator struct {
	version int
	ran     []int
	failAt  int
}

func (f *fakeMigrator) SchemaVersion(context.Context) (int, error) { return f.version, nil }

func (f *fakeMigrator) SetSchemaVersion(_ context.Context, v int) error {
	f.version = v
	return nil
}

func (f *fakeMigrator) RunMigration(_ context.Context, v int) error {
	if v == f.failAt {
		return errors.New("boom")
	}
	f.ran = append(f.ran, v)
	return nil
}

func TestMigrateTo(t *testing.T) {
	ctx := context.Background()

	m := &fakeMigrator{}
	require.NoError(t, storage.MigrateTo(ctx, m, 3, nil))
	assert.Equal(t, []int{1, 2, 3}, m.ran)
	assert.Equal(t, 3, m.version)

	require.NoError(t, storage.MigrateTo(ctx, m, 3, nil))
	assert.Equal(t, []int{1, 2, 3}, m.ran)

	newer := &fakeMigrator{version: 5}
	require.NoError(t, storage.MigrateTo(ctx, newer, 3, nil))
	assert.Empty(t, newer.ran)
	assert.Equal(t, 5, newer.version)

	failing := &fakeMigrator{failAt: 2}
	require.Error(t, storage.MigrateTo(ctx, failing, 3, nil))
	assert.Equal(t, 1, failing.version, "stops after the last good step")
}

func TestInstrumentedConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		b := storage.Instrument(memory.New(nil), "memory", prometheus.NewRegistry())
		require.NoError(t, b.Initialize(context.Background()))
		return b
	})
}

func TestInstrumentCountsOperations(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	b := storage.Instrument(memory.New(nil), "memory", reg)

	p := models.NewProject("metrics")
	require.NoError(t, b.SaveProject(ctx, p))
	_, err := b.GetProject(ctx, "metrics")
	require.NoError(t, err)

	batch := []models.Entity{*models.NewEntity(p.ID, "A", "node"), *models.NewEntity(p.ID, "B", "node")}
	require.NoError(t, b.SaveEntitiesBatch(ctx, batch))

	bad := *models.NewEntity(p.ID, "C", "node")
	bad.Metadata["x"] = math.NaN()
	require.Error(t, b.SaveEntitiesBatch(ctx, []models.Entity{bad}))

	assert.Equal(t, 1.0, testutil.ToFloat64(b.Metrics().Ops.WithLabelValues("save_project", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.Metrics().Ops.WithLabelValues("save_entities_batch", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.Metrics().Ops.WithLabelValues("save_entities_batch", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(b.Metrics().Records.WithLabelValues("entity")))

	count, err := testutil.GatherAndCount(reg, "parsnip_storage_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
