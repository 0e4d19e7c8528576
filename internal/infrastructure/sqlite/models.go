package sqlite

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/datarocks/lwgs-searchindex-client/internal/domain"
)

// Row models map directly to SQL columns. Timestamps are stored as Unix
// milliseconds to keep the at-least-millisecond precision of event times.

// transactionModel is the database row for the transactions table.
type transactionModel struct {
	ID            int64
	TransactionID string
	State         string
	JobID         *string // nullable
	CreatedAt     int64   // Unix milliseconds
	UpdatedAt     int64   // Unix milliseconds
}

func toTransactionModel(t *domain.Transaction) *transactionModel {
	m := &transactionModel{
		ID:            t.ID,
		TransactionID: t.TransactionID.String(),
		State:         string(t.State),
		CreatedAt:     t.CreatedAt.UnixMilli(),
		UpdatedAt:     t.UpdatedAt.UnixMilli(),
	}
	if t.JobID != nil {
		jobID := t.JobID.String()
		m.JobID = &jobID
	}
	return m
}

func (m *transactionModel) toDomain() (*domain.Transaction, error) {
	transactionID, err := uuid.Parse(m.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transaction id: %w", err)
	}
	state, ok := domain.ParseTransactionState(m.State)
	if !ok {
		return nil, fmt.Errorf("unknown transaction state %q", m.State)
	}
	t := &domain.Transaction{
		ID:            m.ID,
		TransactionID: transactionID,
		State:         state,
		CreatedAt:     time.UnixMilli(m.CreatedAt),
		UpdatedAt:     time.UnixMilli(m.UpdatedAt),
	}
	if m.JobID != nil {
		jobID, err := uuid.Parse(*m.JobID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse job id: %w", err)
		}
		t.JobID = &jobID
	}
	return t, nil
}

// syncJobModel is the database row for the sync_jobs table.
type syncJobModel struct {
	ID        int64
	JobID     string
	JobType   string
	JobState  string
	CreatedAt int64 // Unix milliseconds
	UpdatedAt int64 // Unix milliseconds
}

func toSyncJobModel(j *domain.SyncJob) *syncJobModel {
	return &syncJobModel{
		ID:        j.ID,
		JobID:     j.JobID.String(),
		JobType:   string(j.JobType),
		JobState:  string(j.JobState),
		CreatedAt: j.CreatedAt.UnixMilli(),
		UpdatedAt: j.UpdatedAt.UnixMilli(),
	}
}

func (m *syncJobModel) toDomain() (*domain.SyncJob, error) {
	jobID, err := uuid.Parse(m.JobID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse job id: %w", err)
	}
	jobType, ok := domain.ParseJobType(m.JobType)
	if !ok {
		return nil, fmt.Errorf("unknown job type %q", m.JobType)
	}
	jobState, ok := domain.ParseJobState(m.JobState)
	if !ok {
		return nil, fmt.Errorf("unknown job state %q", m.JobState)
	}
	return &domain.SyncJob{
		ID:        m.ID,
		JobID:     jobID,
		JobType:   jobType,
		JobState:  jobState,
		CreatedAt: time.UnixMilli(m.CreatedAt),
		UpdatedAt: time.UnixMilli(m.UpdatedAt),
	}, nil
}

// sedexMessageModel is the database row for the sedex_messages table.
type sedexMessageModel struct {
	ID        int64
	MessageID string
	JobID     *string // nullable
	State     string
	CreatedAt int64 // Unix milliseconds
	UpdatedAt int64 // Unix milliseconds
}

func toSedexMessageModel(s *domain.SedexMessage) *sedexMessageModel {
	m := &sedexMessageModel{
		ID:        s.ID,
		MessageID: s.MessageID.String(),
		State:     string(s.State),
		CreatedAt: s.CreatedAt.UnixMilli(),
		UpdatedAt: s.UpdatedAt.UnixMilli(),
	}
	if s.JobID != nil {
		jobID := s.JobID.String()
		m.JobID = &jobID
	}
	return m
}

func (m *sedexMessageModel) toDomain() (*domain.SedexMessage, error) {
	messageID, err := uuid.Parse(m.MessageID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message id: %w", err)
	}
	state, ok := domain.ParseSedexMessageState(m.State)
	if !ok {
		return nil, fmt.Errorf("unknown sedex message state %q", m.State)
	}
	s := &domain.SedexMessage{
		ID:        m.ID,
		MessageID: messageID,
		State:     state,
		CreatedAt: time.UnixMilli(m.CreatedAt),
		UpdatedAt: time.UnixMilli(m.UpdatedAt),
	}
	if m.JobID != nil {
		jobID, err := uuid.Parse(*m.JobID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse job id: %w", err)
		}
		s.JobID = &jobID
	}
	return s, nil
}
