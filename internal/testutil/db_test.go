package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datarocks/lwgs-searchindex-client/internal/domain"
)

func TestNewTestStore(t *testing.T) {
	store := NewTestStore(t)

	// Migrations applied: all four tables answer queries.
	_, err := store.Settings.FindByKey("missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.Transactions.FindByTransactionID(uuid.New())
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.SyncJobs.FindByJobID(uuid.New())
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.SedexMessages.FindByMessageID(uuid.New())
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBuilderFullSyncPreset(t *testing.T) {
	store := NewTestStore(t)
	jobID := uuid.New()

	NewBuilder(t, store).
		WithFullSyncJobData(jobID).
		WithSetting("full.sync.state", "SENDING").
		Build()

	job, err := store.SyncJobs.FindByJobID(jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateSending, job.JobState)

	messages, err := store.SedexMessages.FindAllByJobID(jobID)
	require.NoError(t, err)
	assert.Len(t, messages, 2)

	setting, err := store.Settings.FindByKey("full.sync.state")
	require.NoError(t, err)
	assert.Equal(t, "SENDING", setting.Value)
}
