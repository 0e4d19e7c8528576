package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/datarocks/lwgs-searchindex-client/internal/domain"
	"github.com/datarocks/lwgs-searchindex-client/internal/infrastructure/sqlite"
)

// Builder accumulates test data and inserts it in the correct order.
type Builder struct {
	t            *testing.T
	store        *sqlite.Store
	jobs         []*domain.SyncJob
	transactions []*domain.Transaction
	messages     []*domain.SedexMessage
	settings     []*domain.Setting
}

// NewBuilder creates a builder for the given test store.
func NewBuilder(t *testing.T, store *sqlite.Store) *Builder {
	t.Helper()
	return &Builder{t: t, store: store}
}

// WithJob adds a sync job with optional configuration.
func (b *Builder) WithJob(jobID uuid.UUID, opts ...JobOption) *Builder {
	job := domain.NewSyncJob(jobID, domain.JobTypeFull, time.Now())
	for _, opt := range opts {
		opt(job)
	}
	b.jobs = append(b.jobs, job)
	return b
}

// WithTransaction adds a transaction with optional configuration.
func (b *Builder) WithTransaction(transactionID uuid.UUID, opts ...TransactionOption) *Builder {
	tx := domain.NewTransaction(transactionID, time.Now())
	for _, opt := range opts {
		opt(tx)
	}
	b.transactions = append(b.transactions, tx)
	return b
}

// WithMessage adds a sedex message with optional configuration.
func (b *Builder) WithMessage(messageID uuid.UUID, opts ...MessageOption) *Builder {
	now := time.Now()
	msg := &domain.SedexMessage{
		MessageID: messageID,
		State:     domain.SedexMessageStateCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(msg)
	}
	b.messages = append(b.messages, msg)
	return b
}

// WithSetting adds a key/value setting.
func (b *Builder) WithSetting(key, value string) *Builder {
	b.settings = append(b.settings, &domain.Setting{Key: key, Value: value})
	return b
}

// Build inserts all accumulated data into the store.
func (b *Builder) Build() {
	b.t.Helper()
	// Insert in reference order: jobs first, then the rows pointing at them.
	for _, job := range b.jobs {
		require.NoError(b.t, b.store.SyncJobs.Save(job))
	}
	for _, tx := range b.transactions {
		require.NoError(b.t, b.store.Transactions.Save(tx))
	}
	for _, msg := range b.messages {
		require.NoError(b.t, b.store.SedexMessages.Save(msg))
	}
	for _, setting := range b.settings {
		require.NoError(b.t, b.store.Settings.Save(setting))
	}
}
