package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transaction tracks one admitted person-data record across the pipeline.
// The transaction id is generated on admission; the job id is set only for
// records admitted under a full sync and never changes afterwards.
type Transaction struct {
	// ID is the surrogate database key; zero means not yet persisted.
	ID            int64
	TransactionID uuid.UUID
	State         TransactionState
	JobID         *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewTransaction builds a NEW transaction stamped with the event time.
func NewTransaction(transactionID uuid.UUID, ts time.Time) *Transaction {
	return &Transaction{
		TransactionID: transactionID,
		State:         TransactionStateNew,
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
}

// SetStateWithTimestamp advances the transaction state and updates the
// modification time.
func (t *Transaction) SetStateWithTimestamp(state TransactionState, ts time.Time) {
	t.State = state
	t.UpdatedAt = ts
}
