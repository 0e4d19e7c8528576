// Package testutil provides test utilities for database setup.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/datarocks/lwgs-searchindex-client/internal/infrastructure/sqlite"
)

// NewTestStore creates a fully migrated in-memory store. It is closed
// automatically when the test ends.
func NewTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	db, err := sqlite.NewDB(sqlite.MemoryPath)
	require.NoError(t, err)
	store := sqlite.NewStore(db)
	t.Cleanup(func() { _ = store.Close() })
	return store
}
