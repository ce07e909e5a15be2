package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/omar16100/parsnip/internal/storage"
	"github.com/omar16100/parsnip/internal/storage/storagetest"
)

func TestConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		s := New(nil)
		require.NoError(t, s.Initialize(context.Background()))
		return s
	})
}
