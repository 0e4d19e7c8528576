package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SyncJob tracks one full-synchronization cycle. Rows are created lazily by
// the transaction state processor on the first event referencing the job id.
type SyncJob struct {
	// ID is the surrogate database key; zero means not yet persisted.
	ID        int64
	JobID     uuid.UUID
	JobType   JobType
	JobState  JobState
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSyncJob builds a NEW sync job stamped with the event time.
func NewSyncJob(jobID uuid.UUID, jobType JobType, ts time.Time) *SyncJob {
	return &SyncJob{
		JobID:     jobID,
		JobType:   jobType,
		JobState:  JobStateNew,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

// TerminalStateError is returned when a state change is attempted on a job
// that already reached COMPLETED or FAILED.
type TerminalStateError struct {
	JobID    uuid.UUID
	Current  JobState
	Rejected JobState
}

func (e *TerminalStateError) Error() string {
	return fmt.Sprintf("sync job %s is terminal in state %s, rejecting transition to %s",
		e.JobID, e.Current, e.Rejected)
}

// SetStateWithTimestamp advances the job state and updates the modification
// time. Jobs in a terminal state never leave it; a late redelivered event
// must not regress a COMPLETED job to FAILED.
func (j *SyncJob) SetStateWithTimestamp(state JobState, ts time.Time) error {
	if j.JobState.Terminal() {
		return &TerminalStateError{JobID: j.JobID, Current: j.JobState, Rejected: state}
	}
	j.JobState = state
	j.UpdatedAt = ts
	return nil
}
