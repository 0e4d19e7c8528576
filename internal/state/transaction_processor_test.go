package state

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp091 "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/datarocks/lwgs-searchindex-client/internal/amqp"
	"github.com/datarocks/lwgs-searchindex-client/internal/domain"
	"github.com/datarocks/lwgs-searchindex-client/internal/fullsync"
	"github.com/datarocks/lwgs-searchindex-client/internal/infrastructure/sqlite"
	"github.com/datarocks/lwgs-searchindex-client/internal/testutil"
)

func transactionEvent(transactionID uuid.UUID, state domain.TransactionState, ts time.Time) amqp.CommonHeaders {
	return amqp.CommonHeaders{
		MessageCategory:  domain.MessageCategoryTransactionEvent,
		TransactionState: state,
		TransactionID:    &transactionID,
		Timestamp:        ts,
	}
}

func fullSyncEvent(transactionID, jobID uuid.UUID, state domain.TransactionState, ts time.Time) amqp.CommonHeaders {
	headers := transactionEvent(transactionID, state, ts)
	headers.JobType = domain.JobTypeFull
	headers.JobID = &jobID
	return headers
}

func newTransactionProcessor(t *testing.T) (*TransactionStateProcessor, *sqlite.Store) {
	t.Helper()
	store := testutil.NewTestStore(t)
	return NewTransactionStateProcessor(store, nil), store
}

func TestHandleIgnoresForeignCategories(t *testing.T) {
	p, store := newTransactionProcessor(t)
	transactionID := uuid.New()

	delivery := amqp091.Delivery{Headers: amqp.CommonHeaders{
		MessageCategory:  domain.MessageCategorySedexEvent,
		TransactionState: domain.TransactionStateNew,
		TransactionID:    &transactionID,
	}.Table()}
	require.NoError(t, p.Handle(context.Background(), delivery))

	_, err := store.Transactions.FindByTransactionID(transactionID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNewEventCreatesTransaction(t *testing.T) {
	p, store := newTransactionProcessor(t)
	transactionID := uuid.New()
	ts := time.Now().Truncate(time.Millisecond)

	require.NoError(t, p.HandleTransactionMessage(context.Background(),
		transactionEvent(transactionID, domain.TransactionStateNew, ts)))

	tx, err := store.Transactions.FindByTransactionID(transactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStateNew, tx.State)
	assert.Nil(t, tx.JobID)
	assert.True(t, ts.Equal(tx.CreatedAt))
}

func TestNewEventLazilyCreatesSyncJob(t *testing.T) {
	p, store := newTransactionProcessor(t)
	jobID := uuid.New()
	ts := time.Now().Truncate(time.Millisecond)

	require.NoError(t, p.HandleTransactionMessage(context.Background(),
		fullSyncEvent(uuid.New(), jobID, domain.TransactionStateNew, ts)))

	job, err := store.SyncJobs.FindByJobID(jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobTypeFull, job.JobType)
	assert.Equal(t, domain.JobStateNew, job.JobState)

	// A second transaction for the same job reuses the row.
	require.NoError(t, p.HandleTransactionMessage(context.Background(),
		fullSyncEvent(uuid.New(), jobID, domain.TransactionStateNew, ts.Add(time.Second))))

	again, err := store.SyncJobs.FindByJobID(jobID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, again.ID)
	assert.True(t, job.CreatedAt.Equal(again.CreatedAt))
}

func TestDuplicateNewEventIsDropped(t *testing.T) {
	p, store := newTransactionProcessor(t)
	transactionID := uuid.New()
	ts := time.Now().Truncate(time.Millisecond)

	require.NoError(t, p.HandleTransactionMessage(context.Background(),
		transactionEvent(transactionID, domain.TransactionStateNew, ts)))
	require.NoError(t, p.HandleTransactionMessage(context.Background(),
		transactionEvent(transactionID, domain.TransactionStateNew, ts.Add(time.Hour))))

	tx, err := store.Transactions.FindByTransactionID(transactionID)
	require.NoError(t, err)
	assert.True(t, ts.Equal(tx.CreatedAt))
	assert.Equal(t, int64(1), p.DuplicateNewEvents())
}

func TestStateUpdateAdvancesTransaction(t *testing.T) {
	p, store := newTransactionProcessor(t)
	transactionID := uuid.New()
	ts := time.Now().Truncate(time.Millisecond)

	require.NoError(t, p.HandleTransactionMessage(context.Background(),
		transactionEvent(transactionID, domain.TransactionStateNew, ts)))
	require.NoError(t, p.HandleTransactionMessage(context.Background(),
		transactionEvent(transactionID, domain.TransactionStateProcessed, ts.Add(time.Second))))
	require.NoError(t, p.HandleTransactionMessage(context.Background(),
		transactionEvent(transactionID, domain.TransactionStateSent, ts.Add(2*time.Second))))

	tx, err := store.Transactions.FindByTransactionID(transactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStateSent, tx.State)
	assert.True(t, ts.Add(2*time.Second).Equal(tx.UpdatedAt))
	assert.True(t, ts.Equal(tx.CreatedAt))
}

func TestUnknownTransactionEventIsDroppedAndCounted(t *testing.T) {
	p, store := newTransactionProcessor(t)
	transactionID := uuid.New()

	require.NoError(t, p.HandleTransactionMessage(context.Background(),
		transactionEvent(transactionID, domain.TransactionStateProcessed, time.Now())))

	_, err := store.Transactions.FindByTransactionID(transactionID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, int64(1), p.DroppedUnknownTransactions())
}

func TestFailedEventEscalatesFullSyncJob(t *testing.T) {
	p, store := newTransactionProcessor(t)
	jobID := uuid.New()
	transactionID := uuid.New()
	ts := time.Now().Truncate(time.Millisecond)

	require.NoError(t, p.HandleTransactionMessage(context.Background(),
		fullSyncEvent(transactionID, jobID, domain.TransactionStateNew, ts)))
	require.NoError(t, p.HandleTransactionMessage(context.Background(),
		fullSyncEvent(transactionID, jobID, domain.TransactionStateFailed, ts.Add(time.Second))))

	tx, err := store.Transactions.FindByTransactionID(transactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStateFailed, tx.State)

	job, err := store.SyncJobs.FindByJobID(jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateFailedProcessing, job.JobState)
}

func TestFailedEventLeavesPartialJobsAlone(t *testing.T) {
	p, store := newTransactionProcessor(t)
	jobID := uuid.New()
	transactionID := uuid.New()
	ts := time.Now().Truncate(time.Millisecond)

	testutil.NewBuilder(t, store).
		WithJob(jobID, testutil.JobType(domain.JobTypePartial)).
		Build()

	headers := fullSyncEvent(transactionID, jobID, domain.TransactionStateNew, ts)
	headers.JobType = domain.JobTypePartial
	require.NoError(t, p.HandleTransactionMessage(context.Background(), headers))

	failed := fullSyncEvent(transactionID, jobID, domain.TransactionStateFailed, ts.Add(time.Second))
	failed.JobType = domain.JobTypePartial
	require.NoError(t, p.HandleTransactionMessage(context.Background(), failed))

	job, err := store.SyncJobs.FindByJobID(jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateNew, job.JobState)
}

func TestFailedEventIgnoresTerminalJob(t *testing.T) {
	p, store := newTransactionProcessor(t)
	jobID := uuid.New()
	transactionID := uuid.New()
	ts := time.Now().Truncate(time.Millisecond)

	testutil.NewBuilder(t, store).
		WithJob(jobID, testutil.JobState(domain.JobStateCompleted)).
		WithTransaction(transactionID, testutil.TransactionJob(jobID),
			testutil.TransactionState(domain.TransactionStateSent)).
		Build()

	require.NoError(t, p.HandleTransactionMessage(context.Background(),
		fullSyncEvent(transactionID, jobID, domain.TransactionStateFailed, ts)))

	job, err := store.SyncJobs.FindByJobID(jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateCompleted, job.JobState)

	// The transaction itself still records the failure.
	tx, err := store.Transactions.FindByTransactionID(transactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStateFailed, tx.State)
}

func TestFailedEventFailsRunningFullSyncCycle(t *testing.T) {
	store := testutil.NewTestStore(t)
	manager := fullsync.NewStateManager(nil)
	jobID, err := manager.StartSeeding()
	require.NoError(t, err)
	p := NewTransactionStateProcessor(store, manager)

	transactionID := uuid.New()
	ts := time.Now().Truncate(time.Millisecond)
	require.NoError(t, p.HandleTransactionMessage(context.Background(),
		fullSyncEvent(transactionID, jobID, domain.TransactionStateNew, ts)))

	require.NoError(t, manager.SubmitSeeding())
	require.NoError(t, p.HandleTransactionMessage(context.Background(),
		fullSyncEvent(transactionID, jobID, domain.TransactionStateFailed, ts.Add(time.Second))))

	assert.Equal(t, fullsync.ModeFailed, manager.Mode())
}

func TestReplayIsIdempotent(t *testing.T) {
	p, store := newTransactionProcessor(t)
	jobID := uuid.New()
	transactionID := uuid.New()
	ts := time.Now().Truncate(time.Millisecond)

	events := []amqp.CommonHeaders{
		fullSyncEvent(transactionID, jobID, domain.TransactionStateNew, ts),
		fullSyncEvent(transactionID, jobID, domain.TransactionStateProcessed, ts.Add(time.Second)),
		fullSyncEvent(transactionID, jobID, domain.TransactionStateSent, ts.Add(2*time.Second)),
	}
	for _, e := range events {
		require.NoError(t, p.HandleTransactionMessage(context.Background(), e))
	}
	first, err := store.Transactions.FindByTransactionID(transactionID)
	require.NoError(t, err)

	// Redelivering the full stream converges to the same row.
	for _, e := range events {
		require.NoError(t, p.HandleTransactionMessage(context.Background(), e))
	}
	second, err := store.Transactions.FindByTransactionID(transactionID)
	require.NoError(t, err)
	assert.Equal(t, first.State, second.State)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
	assert.True(t, first.UpdatedAt.Equal(second.UpdatedAt))
}

// Reordered non-NEW events never resurrect a transaction: whatever order
// the states arrive in, a row exists only if NEW was processed first, and
// its final state is the last applied event.
func TestEventReorderingProperty(t *testing.T) {
	states := []domain.TransactionState{
		domain.TransactionStateNew,
		domain.TransactionStateProcessed,
		domain.TransactionStateSent,
		domain.TransactionStateFailed,
	}

	rapid.Check(t, func(t *rapid.T) {
		db, err := sqlite.NewDB(sqlite.MemoryPath)
		require.NoError(t, err)
		store := sqlite.NewStore(db)
		defer func() { _ = store.Close() }()
		p := NewTransactionStateProcessor(store, nil)

		transactionID := uuid.New()
		ts := time.Now().Truncate(time.Millisecond)

		n := rapid.IntRange(1, 8).Draw(t, "events")
		sawNew := false
		var lastApplied domain.TransactionState
		for i := 0; i < n; i++ {
			state := rapid.SampledFrom(states).Draw(t, "state")
			require.NoError(t, p.HandleTransactionMessage(context.Background(),
				transactionEvent(transactionID, state, ts.Add(time.Duration(i)*time.Second))))
			if state == domain.TransactionStateNew && !sawNew {
				sawNew = true
				lastApplied = domain.TransactionStateNew
			} else if sawNew && state != domain.TransactionStateNew {
				lastApplied = state
			}
		}

		tx, err := store.Transactions.FindByTransactionID(transactionID)
		if !sawNew {
			require.ErrorIs(t, err, domain.ErrNotFound)
			return
		}
		require.NoError(t, err)
		require.Equal(t, lastApplied, tx.State)
	})
}
