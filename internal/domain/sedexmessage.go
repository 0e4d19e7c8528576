package domain

import (
	"time"

	"github.com/google/uuid"
)

// SedexMessage tracks one outbound transport message produced by the
// batcher. The job id is present only for messages belonging to a full sync.
type SedexMessage struct {
	// ID is the surrogate database key; zero means not yet persisted.
	ID        int64
	MessageID uuid.UUID
	JobID     *uuid.UUID
	State     SedexMessageState
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SetStateWithTimestamp advances the message state and updates the
// modification time. SUCCESSFUL and FAILED are sinks.
func (m *SedexMessage) SetStateWithTimestamp(state SedexMessageState, ts time.Time) {
	if m.State.Terminal() {
		return
	}
	m.State = state
	m.UpdatedAt = ts
}
