// Package state hosts the broker-driven processors that own the durable
// Transaction and SyncJob lifecycles.
package state

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	gocache "github.com/patrickmn/go-cache"
	amqp091 "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/datarocks/lwgs-searchindex-client/internal/amqp"
	"github.com/datarocks/lwgs-searchindex-client/internal/domain"
	"github.com/datarocks/lwgs-searchindex-client/internal/fullsync"
	"github.com/datarocks/lwgs-searchindex-client/internal/infrastructure/sqlite"
	"github.com/datarocks/lwgs-searchindex-client/internal/log"
)

// TransactionStateProcessor consumes transaction-state events. It is the
// only writer of Transaction rows and the lazy creator of SyncJob rows.
type TransactionStateProcessor struct {
	store *sqlite.Store

	// fullSync receives failure escalations for the running cycle;
	// optional, nil disables escalation.
	fullSync *fullsync.StateManager

	// jobCache accelerates the exists check for lazily created jobs. It
	// is populated only when a persisted row is observed, never on
	// creation, so a second process always finds the committed row.
	// Entries are never invalidated; the repository stays the source of
	// truth for every write path.
	jobCache *gocache.Cache

	// jobCreateMu serializes job creation per process so the existence
	// check and the insert form one step. Cross-process races surface as
	// domain.ErrDuplicateKey and are treated as already-created.
	jobCreateMu sync.Mutex

	// droppedUnknown counts non-NEW events discarded because no
	// Transaction row existed yet, i.e. the NEW event was reordered or
	// lost.
	droppedUnknown atomic.Int64
	// duplicateNew counts redelivered NEW events dropped on the unique
	// transaction id.
	duplicateNew atomic.Int64

	logger zerolog.Logger
}

// NewTransactionStateProcessor builds the processor over the store.
func NewTransactionStateProcessor(store *sqlite.Store, fullSync *fullsync.StateManager) *TransactionStateProcessor {
	return &TransactionStateProcessor{
		store:    store,
		fullSync: fullSync,
		jobCache: gocache.New(gocache.NoExpiration, 0),
		logger:   log.WithComponent("transaction-state"),
	}
}

// DroppedUnknownTransactions reports how many state events were discarded
// for transactions whose NEW event had not been observed.
func (p *TransactionStateProcessor) DroppedUnknownTransactions() int64 {
	return p.droppedUnknown.Load()
}

// DuplicateNewEvents reports how many redelivered NEW events were dropped.
func (p *TransactionStateProcessor) DuplicateNewEvents() int64 {
	return p.duplicateNew.Load()
}

// Handle is the consumer entry point for the transaction-state queue.
// Messages of any category other than TRANSACTION_EVENT are ignored.
func (p *TransactionStateProcessor) Handle(ctx context.Context, delivery amqp091.Delivery) error {
	headers := amqp.ParseHeaders(delivery.Headers)
	if headers.MessageCategory != domain.MessageCategoryTransactionEvent {
		return nil
	}
	return p.HandleTransactionMessage(ctx, headers)
}

// HandleTransactionMessage dispatches one transaction event inside a
// single database transaction; the broker acknowledgement follows the
// commit.
func (p *TransactionStateProcessor) HandleTransactionMessage(_ context.Context, headers amqp.CommonHeaders) error {
	err := p.store.InTransaction(func(repos *sqlite.Repos) error {
		switch headers.TransactionState {
		case domain.TransactionStateNew:
			return p.processNewTransaction(repos, headers)
		case domain.TransactionStateFailed:
			// A failing transaction inside a full sync marks the job so
			// operators see the degradation; the terminal decision stays
			// with the sedex message state processor.
			if err := p.escalateJobFailure(repos, headers); err != nil {
				return err
			}
			return p.updateTransactionState(repos, headers)
		default:
			return p.updateTransactionState(repos, headers)
		}
	})
	if err != nil {
		return err
	}
	// Escalate after commit so the cycle never fails on a rolled-back write.
	if headers.TransactionState == domain.TransactionStateFailed &&
		headers.JobID != nil && p.fullSync != nil {
		p.fullSync.EscalateFailure(*headers.JobID)
	}
	return nil
}

// processNewTransaction upserts the Transaction row for a NEW event and
// lazily creates the owning SyncJob when the event carries a job id.
func (p *TransactionStateProcessor) processNewTransaction(repos *sqlite.Repos, headers amqp.CommonHeaders) error {
	if headers.TransactionID == nil {
		p.logger.Warn().Msg("dropping NEW event without transaction id")
		return nil
	}
	transaction := domain.NewTransaction(*headers.TransactionID, headers.Timestamp)
	if headers.JobID != nil {
		if err := p.createJobIfNotExisting(repos, headers); err != nil {
			return err
		}
		transaction.JobID = headers.JobID
	}

	if err := repos.Transactions.Save(transaction); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			// Redelivery of NEW; the prior row is authoritative.
			p.duplicateNew.Add(1)
			p.logger.Debug().Str("transaction_id", headers.TransactionID.String()).
				Msg("transaction already existing")
			return nil
		}
		return err
	}
	return nil
}

// createJobIfNotExisting consults the cache, then the repository, and
// finally creates the SyncJob row. The cache is only fed from observed
// rows.
func (p *TransactionStateProcessor) createJobIfNotExisting(repos *sqlite.Repos, headers amqp.CommonHeaders) error {
	jobID := *headers.JobID
	if _, found := p.jobCache.Get(jobID.String()); found {
		return nil
	}

	job, err := repos.SyncJobs.FindByJobID(jobID)
	if err == nil {
		p.jobCache.Set(jobID.String(), job, gocache.NoExpiration)
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	p.jobCreateMu.Lock()
	defer p.jobCreateMu.Unlock()
	created := domain.NewSyncJob(jobID, headers.JobType, headers.Timestamp)
	if err := repos.SyncJobs.Save(created); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			// Another writer got there first; the persisted row wins.
			p.logger.Debug().Str("job_id", jobID.String()).Msg("sync job already existing")
			return nil
		}
		return err
	}
	return nil
}

// escalateJobFailure flags the owning full-sync job as FAILED_PROCESSING
// when one of its transactions fails.
func (p *TransactionStateProcessor) escalateJobFailure(repos *sqlite.Repos, headers amqp.CommonHeaders) error {
	if headers.JobID == nil {
		return nil
	}
	job, err := repos.SyncJobs.FindByJobID(*headers.JobID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if job.JobType != domain.JobTypeFull {
		return nil
	}
	if err := job.SetStateWithTimestamp(domain.JobStateFailedProcessing, headers.Timestamp); err != nil {
		var terminal *domain.TerminalStateError
		if errors.As(err, &terminal) {
			p.logger.Warn().Str("job_id", job.JobID.String()).
				Str("state", string(terminal.Current)).
				Msg("ignoring failure escalation on terminal job")
			return nil
		}
		return err
	}
	return repos.SyncJobs.Save(job)
}

// updateTransactionState applies a non-NEW state to an existing
// transaction. Events for unknown transactions are dropped: their NEW
// event was reordered past them or lost entirely, and the counter
// surfaces how often that happens.
func (p *TransactionStateProcessor) updateTransactionState(repos *sqlite.Repos, headers amqp.CommonHeaders) error {
	if headers.TransactionID == nil {
		return nil
	}
	transaction, err := repos.Transactions.FindByTransactionID(*headers.TransactionID)
	if errors.Is(err, domain.ErrNotFound) {
		p.droppedUnknown.Add(1)
		p.logger.Debug().Str("transaction_id", headers.TransactionID.String()).
			Str("state", string(headers.TransactionState)).
			Msg("dropping state event for unknown transaction")
		return nil
	}
	if err != nil {
		return err
	}
	transaction.SetStateWithTimestamp(headers.TransactionState, headers.Timestamp)
	return repos.Transactions.Save(transaction)
}
