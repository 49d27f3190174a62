package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/newstrove/newstrove/internal/profile"
	"github.com/newstrove/newstrove/plugin/ai"
	"github.com/newstrove/newstrove/store"
	"github.com/newstrove/newstrove/store/db"
)

// TestDimensions is the embedding dimensionality used by testing stores. Small
// on purpose, the distance math does not care.
const TestDimensions = 64

// NewTestingStore creates a migrated SQLite-backed store in a per-test temp
// directory, embedding through a deterministic mock. The returned mock can be
// reconfigured to inject embedding failures.
func NewTestingStore(ctx context.Context, t *testing.T) (*store.Store, *ai.MockEmbeddingService) {
	prof := &profile.Profile{
		Mode:                "dev",
		Driver:              "sqlite",
		Data:                t.TempDir(),
		EmbeddingDimensions: TestDimensions,
	}
	require.NoError(t, prof.Validate())

	driver, err := db.NewDBDriver(prof)
	require.NoError(t, err)

	mock := ai.NewMockEmbeddingService(TestDimensions)
	st := store.New(driver, mock, prof)
	require.NoError(t, st.Migrate(ctx))
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st, mock
}
