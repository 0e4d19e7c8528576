package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp091 "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/datarocks/lwgs-searchindex-client/internal/amqp"
	"github.com/datarocks/lwgs-searchindex-client/internal/domain"
	"github.com/datarocks/lwgs-searchindex-client/internal/fullsync"
	"github.com/datarocks/lwgs-searchindex-client/internal/infrastructure/sqlite"
	"github.com/datarocks/lwgs-searchindex-client/internal/log"
)

// SedexMessageStateProcessor consumes sedex-state events and owns the
// terminal COMPLETED/FAILED decision for SyncJobs. The decision is a pure
// function of the persisted SedexMessage set, so reprocessing under
// redelivery is safe.
type SedexMessageStateProcessor struct {
	store *sqlite.Store

	// fullSync receives failure escalations for the running cycle;
	// optional, nil disables escalation.
	fullSync *fullsync.StateManager

	now    func() time.Time
	logger zerolog.Logger
}

// NewSedexMessageStateProcessor builds the processor over the store.
func NewSedexMessageStateProcessor(store *sqlite.Store, fullSync *fullsync.StateManager) *SedexMessageStateProcessor {
	return &SedexMessageStateProcessor{
		store:    store,
		fullSync: fullSync,
		now:      time.Now,
		logger:   log.WithComponent("sedex-state"),
	}
}

// Handle is the consumer entry point for the sedex-state queue. Events
// that cannot be reconciled to a SyncJob are rejected to the broker's
// dead-letter policy.
func (p *SedexMessageStateProcessor) Handle(ctx context.Context, delivery amqp091.Delivery) error {
	return p.HandleSedexMessage(ctx, amqp.ParseHeaders(delivery.Headers))
}

// HandleSedexMessage recomputes the owning job's state from the full
// persisted message set, inside one database transaction.
func (p *SedexMessageStateProcessor) HandleSedexMessage(_ context.Context, headers amqp.CommonHeaders) error {
	if headers.JobID == nil {
		return fmt.Errorf("%w: sedex-state event without job id", amqp.ErrReject)
	}
	jobID := *headers.JobID

	var failed bool
	err := p.store.InTransaction(func(repos *sqlite.Repos) error {
		job, err := repos.SyncJobs.FindByJobID(jobID)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: %w", amqp.ErrReject, &domain.SyncJobNotFoundError{JobID: jobID})
		}
		if err != nil {
			return err
		}
		if job.JobState.Terminal() {
			// A late redelivered event must not regress a finished job.
			p.logger.Warn().Str("job_id", jobID.String()).
				Str("state", string(job.JobState)).
				Msg("ignoring sedex-state event for terminal job")
			return nil
		}

		messages, err := repos.SedexMessages.FindAllByJobID(jobID)
		if err != nil {
			return err
		}

		next, changed := decideJobState(messages)
		if !changed {
			return nil
		}
		if err := job.SetStateWithTimestamp(next, p.now()); err != nil {
			return err
		}
		failed = next == domain.JobStateFailed
		return repos.SyncJobs.Save(job)
	})
	if err != nil {
		return err
	}
	if failed && p.fullSync != nil {
		p.fullSync.EscalateFailure(jobID)
	}
	return nil
}

// decideJobState derives the job's next state from its message set:
// COMPLETED requires a non-empty set that is unanimously SUCCESSFUL;
// FAILED requires a single FAILED message; anything else changes nothing.
func decideJobState(messages []*domain.SedexMessage) (domain.JobState, bool) {
	if len(messages) == 0 {
		return "", false
	}
	allSuccessful := true
	anyFailed := false
	for _, message := range messages {
		if message.State != domain.SedexMessageStateSuccessful {
			allSuccessful = false
		}
		if message.State == domain.SedexMessageStateFailed {
			anyFailed = true
		}
	}
	switch {
	case allSuccessful:
		return domain.JobStateCompleted, true
	case anyFailed:
		return domain.JobStateFailed, true
	}
	return "", false
}
