package backends

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omar16100/parsnip/internal/config"
	"github.com/omar16100/parsnip/internal/models"
	"github.com/omar16100/parsnip/internal/storage/badgerstore"
	"github.com/omar16100/parsnip/internal/storage/memory"
	"github.com/omar16100/parsnip/internal/storage/sqlite"
)

func TestOpenEachBackend(t *testing.T) {
	tests := []struct {
		backend string
		check   func(t *testing.T, inner any)
	}{
		{config.BackendMemory, func(t *testing.T, inner any) { assert.IsType(t, &memory.Store{}, inner) }},
		{config.BackendSQLite, func(t *testing.T, inner any) { assert.IsType(t, &sqlite.Store{}, inner) }},
		{config.BackendBadger, func(t *testing.T, inner any) { assert.IsType(t, &badgerstore.Store{}, inner) }},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			ctx := context.Background()
			reg := prometheus.NewRegistry()
			b, err := Open(ctx, config.StorageConfig{Backend: tt.backend, DataDir: t.TempDir()}, nil, reg)
			require.NoError(t, err)
			defer b.Close()

			tt.check(t, b.Unwrap())
			require.NoError(t, b.HealthCheck(ctx))

			p := models.NewProject("default")
			require.NoError(t, b.SaveProject(ctx, p))
			got, err := b.GetProject(ctx, "default")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, p.ID, got.ID)

			assert.Equal(t, 1.0, testutil.ToFloat64(b.Metrics().Ops.WithLabelValues("save_project", "ok")))
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Backend: "postgres"}, nil, nil)
	assert.Error(t, err)
}
