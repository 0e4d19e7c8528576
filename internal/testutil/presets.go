package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/datarocks/lwgs-searchindex-client/internal/domain"
)

// WithFullSyncJobData adds a full-sync job with two attached transactions
// and two outbound messages, all still in flight.
func (b *Builder) WithFullSyncJobData(jobID uuid.UUID) *Builder {
	now := time.Now()
	earlier := now.Add(-time.Minute)

	return b.
		WithJob(jobID,
			JobState(domain.JobStateSending), JobTimestamps(earlier)).
		WithTransaction(uuid.New(),
			TransactionJob(jobID), TransactionState(domain.TransactionStateProcessed),
			TransactionTimestamps(earlier)).
		WithTransaction(uuid.New(),
			TransactionJob(jobID), TransactionState(domain.TransactionStateSent),
			TransactionTimestamps(now)).
		WithMessage(uuid.New(),
			MessageJob(jobID), MessageState(domain.SedexMessageStateSent),
			MessageTimestamps(earlier)).
		WithMessage(uuid.New(),
			MessageJob(jobID), MessageState(domain.SedexMessageStateSent),
			MessageTimestamps(now))
}
