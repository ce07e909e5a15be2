// Package storagetest holds the behaviour every storage.Backend must share.
// Backend packages call Run from their own tests.
package storagetest

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omar16100/parsnip/internal/models"
	"github.com/omar16100/parsnip/internal/storage"
)

// Factory returns a fresh, initialized backend. The suite closes it.
type Factory func(t *testing.T) storage.Backend

// Run executes the conformance suite against backends produced by newBackend.
func Run(t *testing.T, newBackend Factory) {
	tests := []struct {
		name string
		fn   func(*testing.T, storage.Backend)
	}{
		{"EntityRoundTrip", testEntityRoundTrip},
		{"EntityUpsert", testEntityUpsert},
		{"MissingRecords", testMissingRecords},
		{"EntityScoping", testEntityScoping},
		{"DeleteEntity", testDeleteEntity},
		{"RelationRoundTrip", testRelationRoundTrip},
		{"DuplicateRelationOverwrites", testDuplicateRelationOverwrites},
		{"SeparatorInNames", testSeparatorInNames},
		{"RelationsForEntity", testRelationsForEntity},
		{"DeleteRelations", testDeleteRelations},
		{"Projects", testProjects},
		{"DeleteProjectCascades", testDeleteProjectCascades},
		{"EntityBatchAtomic", testEntityBatchAtomic},
		{"RelationBatchAtomic", testRelationBatchAtomic},
		{"GraphComposition", testGraphComposition},
		{"ConcurrentWrites", testConcurrentWrites},
		{"Closed", testClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBackend(t)
			t.Cleanup(func() { b.Close() })
			tt.fn(t, b)
		})
	}
}

func saveProject(t *testing.T, b storage.Backend, name string) *models.Project {
	t.Helper()
	p := models.NewProject(name)
	require.NoError(t, b.SaveProject(context.Background(), p))
	return p
}

func saveEntity(t *testing.T, b storage.Backend, pid models.ProjectID, name, typ string) *models.Entity {
	t.Helper()
	e := models.NewEntity(pid, name, typ)
	require.NoError(t, b.SaveEntity(context.Background(), e))
	return e
}

func saveRelation(t *testing.T, b storage.Backend, pid models.ProjectID, from, to, typ string) *models.Relation {
	t.Helper()
	r := models.NewRelationByName(pid, from, to, typ)
	require.NoError(t, b.SaveRelation(context.Background(), r))
	return r
}

func names(entities []models.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Name
	}
	return out
}

func relationKeys(relations []models.Relation) []string {
	out := make([]string, len(relations))
	for i, r := range relations {
		out[i] = r.FromName + "->" + r.ToName + ":" + r.RelationType
	}
	return out
}

func testEntityRoundTrip(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	p := saveProject(t, b, "roundtrip")

	e := models.NewEntity(p.ID, "Alice", "person")
	e.AddObservation("likes tea")
	e.AppendObservation(models.NewObservation("works remotely").WithSource("chat").WithConfidence(0.75))
	e.AddTag("friend")
	e.AddTag("colleague")
	e.Metadata["team"] = "platform"
	e.Metadata["level"] = 3.0
	e.Embedding = []float32{0.1, -0.5, 1}

	before := e.UpdatedAt
	require.NoError(t, b.SaveEntity(ctx, e))

	got, err := b.GetEntity(ctx, p.ID, "Alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.UpdatedAt.Before(before))

	want := *e
	want.UpdatedAt = got.UpdatedAt
	assert.Equal(t, want, *got)

	bare := saveEntity(t, b, p.ID, "Bob", "person")
	got, err = b.GetEntity(ctx, p.ID, "Bob")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.Embedding)
	assert.Equal(t, *bare, *got)
}

func testEntityUpsert(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	p := saveProject(t, b, "upsert")

	e := saveEntity(t, b, p.ID, "Alice", "person")
	e.EntityType = "engineer"
	e.AddObservation("joined in 2024")
	require.NoError(t, b.SaveEntity(ctx, e))

	all, err := b.GetAllEntities(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "engineer", all[0].EntityType)
	require.Len(t, all[0].Observations, 1)
	assert.Equal(t, "joined in 2024", all[0].Observations[0].Content)
}

func testMissingRecords(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	pid := models.NewProjectID()

	e, err := b.GetEntity(ctx, pid, "nobody")
	require.NoError(t, err)
	assert.Nil(t, e)

	p, err := b.GetProject(ctx, "nowhere")
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = b.GetProjectByID(ctx, pid)
	require.NoError(t, err)
	assert.Nil(t, p)

	entities, err := b.GetAllEntities(ctx, pid)
	require.NoError(t, err)
	assert.Empty(t, entities)

	relations, err := b.GetRelationsForEntity(ctx, pid, "nobody")
	require.NoError(t, err)
	assert.Empty(t, relations)

	require.NoError(t, b.DeleteEntity(ctx, pid, "nobody"))
	require.NoError(t, b.DeleteRelation(ctx, pid, "a", "b", "c"))
	require.NoError(t, b.DeleteProject(ctx, "nowhere"))
}

func testEntityScoping(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	work := saveProject(t, b, "work")
	home := saveProject(t, b, "home")

	saveEntity(t, b, work.ID, "Alice", "person")
	saveEntity(t, b, work.ID, "Go", "language")
	saveEntity(t, b, home.ID, "Alice", "person")

	got, err := b.GetAllEntities(ctx, work.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Alice", "Go"}, names(got))
	for _, e := range got {
		assert.Equal(t, work.ID, e.ProjectID)
	}

	got, err = b.GetAllEntities(ctx, home.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice"}, names(got))

	all, err := b.GetAllEntitiesAllProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func testDeleteEntity(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	p := saveProject(t, b, "del")
	saveEntity(t, b, p.ID, "Alice", "person")
	saveEntity(t, b, p.ID, "Bob", "person")

	require.NoError(t, b.DeleteEntity(ctx, p.ID, "Alice"))

	e, err := b.GetEntity(ctx, p.ID, "Alice")
	require.NoError(t, err)
	assert.Nil(t, e)

	all, err := b.GetAllEntities(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob"}, names(all))
}

func testRelationRoundTrip(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	p := saveProject(t, b, "rels")

	weighted := models.NewRelationByName(p.ID, "A", "B", "knows").WithWeight(2.5)
	weighted.Metadata["since"] = "2020"
	require.NoError(t, b.SaveRelation(ctx, weighted))
	plain := saveRelation(t, b, p.ID, "B", "C", "knows")

	all, err := b.GetAllRelations(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)

	byFrom := map[string]models.Relation{}
	for _, r := range all {
		byFrom[r.FromName] = r
	}
	assert.Equal(t, *weighted, byFrom["A"])
	assert.Equal(t, *plain, byFrom["B"])
	assert.Nil(t, byFrom["B"].Weight)
}

func testDuplicateRelationOverwrites(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	p := saveProject(t, b, "dups")

	first := models.NewRelationByName(p.ID, "A", "B", "knows").WithWeight(1)
	require.NoError(t, b.SaveRelation(ctx, first))
	second := models.NewRelationByName(p.ID, "A", "B", "knows").WithWeight(7)
	require.NoError(t, b.SaveRelation(ctx, second))
	require.NoError(t, b.SaveRelationsBatch(ctx, []models.Relation{*second}))

	all, err := b.GetAllRelations(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, 7.0, all[0].EffectiveWeight())

	// A different type between the same endpoints is a different relation.
	saveRelation(t, b, p.ID, "A", "B", "mentors")
	all, err = b.GetAllRelations(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func testSeparatorInNames(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	p := saveProject(t, b, "colons")

	saveRelation(t, b, p.ID, "a:b", "c", "r")
	saveRelation(t, b, p.ID, "a", "b:c", "r")
	saveRelation(t, b, p.ID, `a\`, "b", "r")
	saveRelation(t, b, p.ID, "a", `\b`, "r")

	all, err := b.GetAllRelations(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	saveEntity(t, b, p.ID, "x:y", "node")
	saveEntity(t, b, p.ID, "x", "node")
	got, err := b.GetEntity(ctx, p.ID, "x:y")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "x:y", got.Name)

	require.NoError(t, b.DeleteRelation(ctx, p.ID, "a", "b:c", "r"))
	all, err = b.GetAllRelations(ctx, p.ID)
	require.NoError(t, err)
	assert.NotContains(t, relationKeys(all), "a->b:c:r")
	assert.Contains(t, relationKeys(all), "a:b->c:r")
}

func testRelationsForEntity(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	work := saveProject(t, b, "work")
	home := saveProject(t, b, "home")

	saveRelation(t, b, work.ID, "Alice", "Bob", "knows")
	saveRelation(t, b, work.ID, "Carol", "Alice", "manages")
	saveRelation(t, b, work.ID, "Bob", "Carol", "knows")
	saveRelation(t, b, home.ID, "Alice", "Dave", "sibling")

	got, err := b.GetRelationsForEntity(ctx, work.ID, "Alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Alice->Bob:knows", "Carol->Alice:manages"}, relationKeys(got))

	got, err = b.GetRelationsForEntityGlobal(ctx, "Alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Alice->Bob:knows", "Carol->Alice:manages", "Alice->Dave:sibling"}, relationKeys(got))

	all, err := b.GetAllRelationsAllProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func testDeleteRelations(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	p := saveProject(t, b, "delrels")
	other := saveProject(t, b, "other")

	saveRelation(t, b, p.ID, "A", "B", "knows")
	saveRelation(t, b, p.ID, "B", "A", "knows")
	saveRelation(t, b, p.ID, "B", "C", "knows")
	saveRelation(t, b, p.ID, "C", "D", "knows")
	saveRelation(t, b, other.ID, "A", "B", "knows")

	require.NoError(t, b.DeleteRelation(ctx, p.ID, "C", "D", "knows"))
	all, err := b.GetAllRelations(ctx, p.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A->B:knows", "B->A:knows", "B->C:knows"}, relationKeys(all))

	require.NoError(t, b.DeleteRelationsForEntity(ctx, p.ID, "A"))
	all, err = b.GetAllRelations(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"B->C:knows"}, relationKeys(all))

	untouched, err := b.GetAllRelations(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, untouched, 1)
}

func testProjects(t *testing.T, b storage.Backend) {
	ctx := context.Background()

	p := models.NewProject("research").WithDescription("papers and notes")
	require.NoError(t, b.SaveProject(ctx, p))
	plain := saveProject(t, b, "scratch")

	got, err := b.GetProject(ctx, "research")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *p, *got)

	got, err = b.GetProjectByID(ctx, plain.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *plain, *got)
	assert.Nil(t, got.Description)

	p.Settings.FuzzyThreshold = 0.5
	require.NoError(t, b.SaveProject(ctx, p))

	all, err := b.GetAllProjects(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, proj := range all {
		if proj.Name == "research" {
			assert.Equal(t, float32(0.5), proj.Settings.FuzzyThreshold)
		}
	}
}

func testDeleteProjectCascades(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	doomed := saveProject(t, b, "doomed")
	kept := saveProject(t, b, "kept")

	for _, n := range []string{"A", "B", "C"} {
		saveEntity(t, b, doomed.ID, n, "node")
	}
	saveRelation(t, b, doomed.ID, "A", "B", "links")
	saveRelation(t, b, doomed.ID, "B", "C", "links")
	saveEntity(t, b, kept.ID, "A", "node")
	saveRelation(t, b, kept.ID, "A", "A", "self")

	require.NoError(t, b.DeleteProject(ctx, "doomed"))

	entities, err := b.GetAllEntities(ctx, doomed.ID)
	require.NoError(t, err)
	assert.Empty(t, entities)
	relations, err := b.GetAllRelations(ctx, doomed.ID)
	require.NoError(t, err)
	assert.Empty(t, relations)
	p, err := b.GetProject(ctx, "doomed")
	require.NoError(t, err)
	assert.Nil(t, p)

	entities, err = b.GetAllEntities(ctx, kept.ID)
	require.NoError(t, err)
	assert.Len(t, entities, 1)
	relations, err = b.GetAllRelations(ctx, kept.ID)
	require.NoError(t, err)
	assert.Len(t, relations, 1)
}

func testEntityBatchAtomic(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	p := saveProject(t, b, "batch")

	batch := make([]models.Entity, 0, models.MaxBatchEntities)
	for i := range models.MaxBatchEntities {
		batch = append(batch, *models.NewEntity(p.ID, fmt.Sprintf("e%03d", i), "node"))
	}
	require.NoError(t, b.SaveEntitiesBatch(ctx, batch))
	all, err := b.GetAllEntities(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, all, models.MaxBatchEntities)

	q := saveProject(t, b, "broken")
	bad := make([]models.Entity, 0, 10)
	for i := range 10 {
		bad = append(bad, *models.NewEntity(q.ID, fmt.Sprintf("b%d", i), "node"))
	}
	// NaN cannot be encoded, so the batch fails part-way through.
	bad[5].Metadata["score"] = math.NaN()

	err = b.SaveEntitiesBatch(ctx, bad)
	require.Error(t, err)
	assert.True(t, storage.IsKind(err, storage.KindSerialization), "got %v", err)

	all, err = b.GetAllEntities(ctx, q.ID)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testRelationBatchAtomic(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	p := saveProject(t, b, "relbatch")

	good := []models.Relation{
		*models.NewRelationByName(p.ID, "A", "B", "links"),
		*models.NewRelationByName(p.ID, "B", "C", "links"),
	}
	bad := *models.NewRelationByName(p.ID, "C", "D", "links")
	bad.Metadata["score"] = math.Inf(1)

	err := b.SaveRelationsBatch(ctx, append(good, bad))
	require.Error(t, err)
	assert.True(t, storage.IsKind(err, storage.KindSerialization), "got %v", err)

	all, err := b.GetAllRelations(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, b.SaveRelationsBatch(ctx, good))
	all, err = b.GetAllRelations(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func testGraphComposition(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	p := saveProject(t, b, "graph")

	g := &models.Graph{
		Entities: []models.Entity{
			*models.NewEntity("", "A", "node"),
			*models.NewEntity("", "B", "node"),
		},
		Relations: []models.Relation{
			*models.NewRelationByName("", "A", "B", "links").WithWeight(3),
		},
	}
	require.NoError(t, storage.SaveGraph(ctx, b, g, p.ID))
	assert.Empty(t, g.Entities[0].ProjectID, "caller's graph is not mutated")

	loaded, err := storage.LoadGraph(ctx, b, p.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B"}, names(loaded.Entities))
	require.Len(t, loaded.Relations, 1)
	assert.Equal(t, p.ID, loaded.Relations[0].ProjectID)
	assert.Equal(t, 3.0, loaded.Relations[0].EffectiveWeight())
}

func testConcurrentWrites(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	p := saveProject(t, b, "concurrent")

	const workers, perWorker = 8, 10
	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWorker {
				e := models.NewEntity(p.ID, fmt.Sprintf("w%d-%d", w, i), "node")
				if err := b.SaveEntity(ctx, e); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	all, err := b.GetAllEntities(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, all, workers*perWorker)
}

func testClosed(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	require.NoError(t, b.HealthCheck(ctx))
	require.NoError(t, b.Close())

	err := b.HealthCheck(ctx)
	require.Error(t, err)
	assert.True(t, storage.IsKind(err, storage.KindConnection), "got %v", err)

	_, err = b.GetAllProjects(ctx)
	assert.ErrorIs(t, err, storage.ErrClosed)
}
