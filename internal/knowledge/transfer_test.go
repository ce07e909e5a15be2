package knowledge

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omar16100/parsnip/internal/models"
	"github.com/omar16100/parsnip/internal/traversal"
)

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)

	src, err := svc.CreateProject(ctx, "src", "origin")
	require.NoError(t, err)
	_, err = svc.CreateEntities(ctx, src, []models.NewEntityInput{
		{Name: "Go", EntityType: "technology", Observations: []string{"compiled"}, Tags: []string{"lang"}},
		{Name: "Alice", EntityType: "person", Metadata: map[string]any{"team": "core"}},
	})
	require.NoError(t, err)
	w := 2.5
	_, err = svc.CreateRelations(ctx, src, []models.NewRelationInput{{From: "Alice", To: "Go", RelationType: "uses", Weight: &w}})
	require.NoError(t, err)

	exported, err := svc.ExportProjects(ctx, "src")
	require.NoError(t, err)
	require.Len(t, exported.Projects, 1)

	data, err := json.Marshal(exported)
	require.NoError(t, err)
	var doc Export
	require.NoError(t, json.Unmarshal(data, &doc))

	stats, err := svc.ImportProjects(ctx, &doc, "dst", false)
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Projects: 1, Entities: 2, Relations: 1}, stats)

	dst, err := svc.GetProject(ctx, "dst")
	require.NoError(t, err)
	require.NotNil(t, dst.Description)
	assert.Equal(t, "origin", *dst.Description)

	g, err := svc.ReadGraph(ctx, dst)
	require.NoError(t, err)
	require.Len(t, g.Entities, 2)
	require.Len(t, g.Relations, 1)
	assert.Equal(t, 2.5, g.Relations[0].EffectiveWeight())

	byName := g.EntitiesByName()
	assert.Equal(t, "compiled", byName["Go"].Observations[0].Content)
	assert.Equal(t, []string{"lang"}, byName["Go"].Tags)
	assert.Equal(t, "core", byName["Alice"].Metadata["team"])
	assert.Equal(t, byName["Go"].ID, g.Relations[0].ToID)

	// The traversal engine sees the imported graph.
	res, err := svc.Traverse(ctx, dst, traversal.NewQuery("Alice"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Alice", "Go"}, res.VisitedEntities)
}

func TestImportRefusesNonEmptyProject(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)

	p := setupProject(t, svc, "dst")
	created, err := svc.CreateEntities(ctx, p, []models.NewEntityInput{{Name: "Existing", EntityType: "n"}})
	require.NoError(t, err)

	doc := &Export{Version: ExportVersion, Projects: []ProjectExport{{
		Name:      "dst",
		Entities:  []EntityExport{{Name: "New", EntityType: "n"}},
		Relations: []RelationExport{{From: "New", To: "Existing", RelationType: "knows"}},
	}}}

	_, err = svc.ImportProjects(ctx, doc, "", false)
	assert.ErrorIs(t, err, models.ErrDuplicate)

	stats, err := svc.ImportProjects(ctx, doc, "", true)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entities)

	all, err := svc.ListEntities(ctx, p)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	g, err := svc.ReadGraph(ctx, p)
	require.NoError(t, err)
	require.Len(t, g.Relations, 1)
	assert.Equal(t, created[0].ID, g.Relations[0].ToID)
}

func TestImportValidates(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)

	doc := &Export{Version: ExportVersion, Projects: []ProjectExport{{
		Name:     "bad",
		Entities: []EntityExport{{Name: "", EntityType: "n"}},
	}}}
	_, err := svc.ImportProjects(ctx, doc, "", false)
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.ImportProjects(ctx, doc, "not valid!", false)
	assert.ErrorAs(t, err, &verr)
}

func TestExportAll(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)
	setupProject(t, svc, "one")
	setupProject(t, svc, "two")

	exported, err := svc.ExportProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, exported.Projects, 2)

	_, err = svc.ExportProjects(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestImportAcceptsBothKeySpellings(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)

	camel := `{
		"version": "1.0",
		"projects": [{
			"name": "camel",
			"entities": [
				{"name": "Alice", "entityType": "person", "observations": ["likes Go"]},
				{"name": "Go", "entityType": "technology", "observations": [], "tags": ["lang"]}
			],
			"relations": [{"from": "Alice", "to": "Go", "relationType": "uses"}]
		}]
	}`
	snake := `{
		"version": "1",
		"projects": [{
			"name": "snake",
			"entities": [
				{"name": "Alice", "entity_type": "person"},
				{"name": "Go", "entity_type": "technology"}
			],
			"relations": [{"from": "Alice", "to": "Go", "relation_type": "uses", "weight": 2}]
		}]
	}`

	for _, doc := range []string{camel, snake} {
		var data Export
		require.NoError(t, json.Unmarshal([]byte(doc), &data))
		stats, err := svc.ImportProjects(ctx, &data, "", false)
		require.NoError(t, err)
		assert.Equal(t, ImportStats{Projects: 1, Entities: 2, Relations: 1}, stats)
	}

	p, err := svc.GetProject(ctx, "camel")
	require.NoError(t, err)
	g, err := svc.ReadGraph(ctx, p)
	require.NoError(t, err)
	byName := g.EntitiesByName()
	assert.Equal(t, "person", byName["Alice"].EntityType)
	assert.Equal(t, "likes Go", byName["Alice"].Observations[0].Content)
	require.Len(t, g.Relations, 1)
	assert.Equal(t, "uses", g.Relations[0].RelationType)

	p, err = svc.GetProject(ctx, "snake")
	require.NoError(t, err)
	g, err = svc.ReadGraph(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "technology", g.EntitiesByName()["Go"].EntityType)
	require.Len(t, g.Relations, 1)
	assert.Equal(t, 2.0, g.Relations[0].EffectiveWeight())
}

func TestExportWritesCamelCaseKeys(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)
	p := setupProject(t, svc, "keys")
	_, err := svc.CreateEntities(ctx, p, []models.NewEntityInput{
		{Name: "A", EntityType: "node"},
		{Name: "B", EntityType: "node"},
	})
	require.NoError(t, err)
	_, err = svc.CreateRelations(ctx, p, []models.NewRelationInput{{From: "A", To: "B", RelationType: "links"}})
	require.NoError(t, err)

	exported, err := svc.ExportProjects(ctx, "keys")
	require.NoError(t, err)
	data, err := json.Marshal(exported)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"version":"1.0"`)
	assert.Contains(t, string(data), `"entityType":"node"`)
	assert.Contains(t, string(data), `"relationType":"links"`)
	assert.NotContains(t, string(data), "entity_type")
}

func TestImportRejectsUnknownVersion(t *testing.T) {
	svc := setupService(t)
	_, err := svc.ImportProjects(context.Background(), &Export{Version: "2.0"}, "", false)
	assert.ErrorContains(t, err, "unsupported export version")
}
