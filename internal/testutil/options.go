package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/datarocks/lwgs-searchindex-client/internal/domain"
)

// JobOption configures a sync job before insertion.
type JobOption func(*domain.SyncJob)

// JobType sets the job type.
func JobType(jobType domain.JobType) JobOption {
	return func(j *domain.SyncJob) { j.JobType = jobType }
}

// JobState sets the job state.
func JobState(state domain.JobState) JobOption {
	return func(j *domain.SyncJob) { j.JobState = state }
}

// JobTimestamps sets both timestamps.
func JobTimestamps(ts time.Time) JobOption {
	return func(j *domain.SyncJob) {
		j.CreatedAt = ts
		j.UpdatedAt = ts
	}
}

// TransactionOption configures a transaction before insertion.
type TransactionOption func(*domain.Transaction)

// TransactionState sets the transaction state.
func TransactionState(state domain.TransactionState) TransactionOption {
	return func(t *domain.Transaction) { t.State = state }
}

// TransactionJob attaches the transaction to a full-sync job.
func TransactionJob(jobID uuid.UUID) TransactionOption {
	return func(t *domain.Transaction) { t.JobID = &jobID }
}

// TransactionTimestamps sets both timestamps.
func TransactionTimestamps(ts time.Time) TransactionOption {
	return func(t *domain.Transaction) {
		t.CreatedAt = ts
		t.UpdatedAt = ts
	}
}

// MessageOption configures a sedex message before insertion.
type MessageOption func(*domain.SedexMessage)

// MessageState sets the message state.
func MessageState(state domain.SedexMessageState) MessageOption {
	return func(m *domain.SedexMessage) { m.State = state }
}

// MessageJob attaches the message to a full-sync job.
func MessageJob(jobID uuid.UUID) MessageOption {
	return func(m *domain.SedexMessage) { m.JobID = &jobID }
}

// MessageTimestamps sets both timestamps.
func MessageTimestamps(ts time.Time) MessageOption {
	return func(m *domain.SedexMessage) {
		m.CreatedAt = ts
		m.UpdatedAt = ts
	}
}
