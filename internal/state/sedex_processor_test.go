package state

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp091 "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datarocks/lwgs-searchindex-client/internal/amqp"
	"github.com/datarocks/lwgs-searchindex-client/internal/domain"
	"github.com/datarocks/lwgs-searchindex-client/internal/fullsync"
	"github.com/datarocks/lwgs-searchindex-client/internal/infrastructure/sqlite"
	"github.com/datarocks/lwgs-searchindex-client/internal/testutil"
)

func sedexEvent(jobID uuid.UUID) amqp.CommonHeaders {
	return amqp.CommonHeaders{
		MessageCategory: domain.MessageCategorySedexEvent,
		JobType:         domain.JobTypeFull,
		JobID:           &jobID,
		Timestamp:       time.Now(),
	}
}

func newSedexProcessor(t *testing.T) (*SedexMessageStateProcessor, *sqlite.Store) {
	t.Helper()
	store := testutil.NewTestStore(t)
	return NewSedexMessageStateProcessor(store, nil), store
}

func TestSedexEventWithoutJobIsRejected(t *testing.T) {
	p, _ := newSedexProcessor(t)
	err := p.HandleSedexMessage(context.Background(), amqp.CommonHeaders{
		MessageCategory: domain.MessageCategorySedexEvent,
	})
	require.ErrorIs(t, err, amqp.ErrReject)
}

func TestSedexEventForUnknownJobIsRejected(t *testing.T) {
	p, _ := newSedexProcessor(t)
	jobID := uuid.New()

	err := p.HandleSedexMessage(context.Background(), sedexEvent(jobID))
	require.ErrorIs(t, err, amqp.ErrReject)
	var notFound *domain.SyncJobNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, jobID, notFound.JobID)
}

func TestSedexEventViaDelivery(t *testing.T) {
	p, _ := newSedexProcessor(t)
	err := p.Handle(context.Background(), amqp091.Delivery{Headers: sedexEvent(uuid.New()).Table()})
	require.ErrorIs(t, err, amqp.ErrReject)
}

func TestAllSuccessfulCompletesJob(t *testing.T) {
	p, store := newSedexProcessor(t)
	jobID := uuid.New()

	testutil.NewBuilder(t, store).
		WithJob(jobID, testutil.JobState(domain.JobStateSent)).
		WithMessage(uuid.New(), testutil.MessageJob(jobID),
			testutil.MessageState(domain.SedexMessageStateSuccessful)).
		WithMessage(uuid.New(), testutil.MessageJob(jobID),
			testutil.MessageState(domain.SedexMessageStateSuccessful)).
		Build()

	require.NoError(t, p.HandleSedexMessage(context.Background(), sedexEvent(jobID)))

	job, err := store.SyncJobs.FindByJobID(jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateCompleted, job.JobState)
}

func TestAnyFailedFailsJob(t *testing.T) {
	p, store := newSedexProcessor(t)
	jobID := uuid.New()

	testutil.NewBuilder(t, store).
		WithJob(jobID, testutil.JobState(domain.JobStateSent)).
		WithMessage(uuid.New(), testutil.MessageJob(jobID),
			testutil.MessageState(domain.SedexMessageStateSuccessful)).
		WithMessage(uuid.New(), testutil.MessageJob(jobID),
			testutil.MessageState(domain.SedexMessageStateFailed)).
		Build()

	require.NoError(t, p.HandleSedexMessage(context.Background(), sedexEvent(jobID)))

	job, err := store.SyncJobs.FindByJobID(jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateFailed, job.JobState)
}

func TestPendingMessagesLeaveJobUntouched(t *testing.T) {
	p, store := newSedexProcessor(t)
	jobID := uuid.New()

	testutil.NewBuilder(t, store).
		WithJob(jobID, testutil.JobState(domain.JobStateSent)).
		WithMessage(uuid.New(), testutil.MessageJob(jobID),
			testutil.MessageState(domain.SedexMessageStateSuccessful)).
		WithMessage(uuid.New(), testutil.MessageJob(jobID),
			testutil.MessageState(domain.SedexMessageStateSent)).
		Build()

	require.NoError(t, p.HandleSedexMessage(context.Background(), sedexEvent(jobID)))

	job, err := store.SyncJobs.FindByJobID(jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateSent, job.JobState)
}

func TestEmptyMessageSetLeavesJobUntouched(t *testing.T) {
	p, store := newSedexProcessor(t)
	jobID := uuid.New()

	testutil.NewBuilder(t, store).
		WithJob(jobID, testutil.JobState(domain.JobStateSending)).
		Build()

	require.NoError(t, p.HandleSedexMessage(context.Background(), sedexEvent(jobID)))

	job, err := store.SyncJobs.FindByJobID(jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateSending, job.JobState)
}

func TestTerminalJobIgnoresLateEvents(t *testing.T) {
	p, store := newSedexProcessor(t)
	jobID := uuid.New()

	// A COMPLETED job with a late FAILED message must stay COMPLETED.
	testutil.NewBuilder(t, store).
		WithJob(jobID, testutil.JobState(domain.JobStateCompleted)).
		WithMessage(uuid.New(), testutil.MessageJob(jobID),
			testutil.MessageState(domain.SedexMessageStateFailed)).
		Build()

	require.NoError(t, p.HandleSedexMessage(context.Background(), sedexEvent(jobID)))

	job, err := store.SyncJobs.FindByJobID(jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateCompleted, job.JobState)
}

func TestFailedJobFailsRunningFullSyncCycle(t *testing.T) {
	store := testutil.NewTestStore(t)
	manager := fullsync.NewStateManager(nil)
	jobID, err := manager.StartSeeding()
	require.NoError(t, err)
	require.NoError(t, manager.SubmitSeeding())
	require.NoError(t, manager.StartSending())
	p := NewSedexMessageStateProcessor(store, manager)

	testutil.NewBuilder(t, store).
		WithJob(jobID, testutil.JobState(domain.JobStateSent)).
		WithMessage(uuid.New(), testutil.MessageJob(jobID),
			testutil.MessageState(domain.SedexMessageStateFailed)).
		Build()

	require.NoError(t, p.HandleSedexMessage(context.Background(), sedexEvent(jobID)))

	job, err := store.SyncJobs.FindByJobID(jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateFailed, job.JobState)
	assert.Equal(t, fullsync.ModeFailed, manager.Mode())
}

func TestRedeliveredSedexEventConverges(t *testing.T) {
	p, store := newSedexProcessor(t)
	jobID := uuid.New()

	testutil.NewBuilder(t, store).
		WithJob(jobID, testutil.JobState(domain.JobStateSent)).
		WithMessage(uuid.New(), testutil.MessageJob(jobID),
			testutil.MessageState(domain.SedexMessageStateSuccessful)).
		Build()

	require.NoError(t, p.HandleSedexMessage(context.Background(), sedexEvent(jobID)))
	require.NoError(t, p.HandleSedexMessage(context.Background(), sedexEvent(jobID)))

	job, err := store.SyncJobs.FindByJobID(jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateCompleted, job.JobState)
}

func TestDecideJobState(t *testing.T) {
	msg := func(state domain.SedexMessageState) *domain.SedexMessage {
		return &domain.SedexMessage{State: state}
	}
	tests := []struct {
		name     string
		messages []*domain.SedexMessage
		want     domain.JobState
		changed  bool
	}{
		{"empty", nil, "", false},
		{"all successful", []*domain.SedexMessage{
			msg(domain.SedexMessageStateSuccessful), msg(domain.SedexMessageStateSuccessful)}, domain.JobStateCompleted, true},
		{"one failed", []*domain.SedexMessage{
			msg(domain.SedexMessageStateSuccessful), msg(domain.SedexMessageStateFailed)}, domain.JobStateFailed, true},
		{"still pending", []*domain.SedexMessage{
			msg(domain.SedexMessageStateSuccessful), msg(domain.SedexMessageStateSent)}, "", false},
		{"only created", []*domain.SedexMessage{
			msg(domain.SedexMessageStateCreated)}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := decideJobState(tt.messages)
			assert.Equal(t, tt.changed, changed)
			assert.Equal(t, tt.want, got)
		})
	}
}
