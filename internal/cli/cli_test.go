package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omar16100/parsnip/internal/knowledge"
	"github.com/omar16100/parsnip/internal/models"
	"github.com/omar16100/parsnip/internal/server"
	"github.com/omar16100/parsnip/internal/storage"
	"github.com/omar16100/parsnip/internal/storage/memory"
	"github.com/omar16100/parsnip/internal/traversal"
)

// run executes one CLI invocation against the sqlite store in dataDir.
func run(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	root, a := newRootCommand()
	defer a.close()

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--data-dir="+dataDir, "--backend=sqlite", "--log-level=error"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, dataDir string, args ...string) string {
	t.Helper()
	out, err := run(t, dataDir, args...)
	require.NoError(t, err, "parsnip %v", args)
	return out
}

func TestProjectCommands(t *testing.T) {
	dir := t.TempDir()

	out := mustRun(t, dir, "project", "create", "work", "-d", "day job")
	var p models.Project
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "work", p.Name)
	require.NotNil(t, p.Description)
	assert.Equal(t, "day job", *p.Description)

	_, err := run(t, dir, "project", "create", "work")
	assert.ErrorIs(t, err, models.ErrDuplicate)

	mustRun(t, dir, "entity", "add", "Alice", "--type", "person", "-p", "work")

	out = mustRun(t, dir, "project", "list")
	var summaries []knowledge.ProjectSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].EntityCount)

	out = mustRun(t, dir, "project", "delete", "work")
	assert.Contains(t, out, "deleted")

	_, err = run(t, dir, "project", "delete", "work")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestEntityCommands(t *testing.T) {
	dir := t.TempDir()

	out := mustRun(t, dir, "entity", "add", "Go", "-t", "technology",
		"-o", "Fast compiled language", "-o", "Great for CLI tools, servers", "--tag", "lang,backend")
	var e models.Entity
	require.NoError(t, json.Unmarshal([]byte(out), &e))
	assert.Len(t, e.Observations, 2)
	assert.Equal(t, []string{"lang", "backend"}, e.Tags)

	mustRun(t, dir, "entity", "add", "Alice", "-t", "person")
	mustRun(t, dir, "relation", "add", "Alice", "Go", "uses")

	out = mustRun(t, dir, "entity", "get", "Go")
	var node knowledge.Node
	require.NoError(t, json.Unmarshal([]byte(out), &node))
	assert.Equal(t, "Go", node.Name)
	assert.Len(t, node.Relations, 1)

	_, err := run(t, dir, "entity", "get", "Rust")
	assert.ErrorIs(t, err, models.ErrNotFound)

	out = mustRun(t, dir, "entity", "list", "-t", "person")
	var entities []models.Entity
	require.NoError(t, json.Unmarshal([]byte(out), &entities))
	require.Len(t, entities, 1)
	assert.Equal(t, "Alice", entities[0].Name)

	out = mustRun(t, dir, "search", "compiled")
	require.NoError(t, json.Unmarshal([]byte(out), &entities))
	require.Len(t, entities, 1)
	assert.Equal(t, "Go", entities[0].Name)

	_, err = run(t, dir, "entity", "add", "NoType")
	assert.Error(t, err)

	out = mustRun(t, dir, "entity", "delete", "Go", "Missing")
	assert.Contains(t, out, "Deleted 1 entities")

	out = mustRun(t, dir, "relation", "list")
	var rels []models.Relation
	require.NoError(t, json.Unmarshal([]byte(out), &rels))
	assert.Empty(t, rels)
}

func buildSampleGraph(t *testing.T, dir string) {
	t.Helper()
	for _, name := range []string{"A", "B", "C", "D", "E", "F"} {
		mustRun(t, dir, "entity", "add", name, "-t", "node")
	}
	for _, r := range [][4]string{
		{"A", "B", "connects", "1"},
		{"B", "C", "connects", "2"},
		{"C", "D", "connects", "1"},
		{"B", "E", "connects", "1"},
		{"C", "F", "connects", "1"},
		{"E", "F", "connects", "3"},
	} {
		mustRun(t, dir, "relation", "add", r[0], r[1], r[2], "-w", r[3])
	}
}

func TestTraversalCommands(t *testing.T) {
	dir := t.TempDir()
	buildSampleGraph(t, dir)

	out := mustRun(t, dir, "path", "A", "D")
	var res traversal.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Paths, 1)
	assert.Equal(t, []string{"A", "B", "C", "D"}, res.Paths[0].Nodes)
	assert.Equal(t, 3, res.Paths[0].Length)

	out = mustRun(t, dir, "path", "A", "F", "--weighted")
	res = traversal.Result{}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Paths, 1)
	assert.Equal(t, []string{"A", "B", "C", "F"}, res.Paths[0].Nodes)
	assert.Equal(t, 4.0, res.Paths[0].TotalWeight)

	out = mustRun(t, dir, "traverse", "A", "--depth", "2")
	res = traversal.Result{}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.ElementsMatch(t, []string{"A", "B", "C", "E"}, res.VisitedEntities)

	out = mustRun(t, dir, "path", "D", "A", "--direction", "outgoing")
	res = traversal.Result{}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Stats.PathFound)
	assert.Empty(t, res.Paths)

	_, err := run(t, dir, "traverse", "A", "--direction", "sideways")
	assert.Error(t, err)

	_, err = run(t, dir, "traverse", "Nowhere")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = run(t, dir, "traverse", "A", "--depth", "51")
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestInvalidConfig(t *testing.T) {
	root, a := newRootCommand()
	defer a.close()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"project", "list", "--backend=postgres"})
	assert.Error(t, root.ExecuteContext(context.Background()))
}

func TestMetricsEndpoint(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	inner := memory.New(nil)
	require.NoError(t, inner.Initialize(ctx))
	store := storage.Instrument(inner, "memory", reg)
	defer store.Close()

	svc := knowledge.New(store, nil)
	_, err := svc.GetOrCreateProject(ctx, "default")
	require.NoError(t, err)

	ts := httptest.NewServer(newHTTPHandler(server.New(svc, "default"), reg))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `parsnip_storage_operations_total{backend="memory",op="save_project",result="ok"} 1`)
}

func TestExportImportCommands(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	buildSampleGraph(t, src)

	file := filepath.Join(t.TempDir(), "graph.json")
	mustRun(t, src, "export", "-o", file)

	out := mustRun(t, dst, "import", file, "--target", "copy")
	var stats knowledge.ImportStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, knowledge.ImportStats{Projects: 1, Entities: 6, Relations: 6}, stats)

	out = mustRun(t, dst, "path", "A", "F", "--weighted", "-p", "copy")
	var res traversal.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Paths, 1)
	assert.Equal(t, []string{"A", "B", "C", "F"}, res.Paths[0].Nodes)

	_, err := run(t, dst, "import", file, "--target", "copy")
	assert.ErrorIs(t, err, models.ErrDuplicate)
	mustRun(t, dst, "import", file, "--target", "copy", "--merge")

	out = mustRun(t, dst, "export", "--all")
	var doc knowledge.Export
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Projects, 1)
	assert.Equal(t, "copy", doc.Projects[0].Name)
	assert.Len(t, doc.Projects[0].Entities, 6)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"version":"9","projects":[]}`), 0o600))
	_, err = run(t, dst, "import", bad)
	assert.Error(t, err)
}
