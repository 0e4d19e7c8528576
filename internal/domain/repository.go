package domain

import "github.com/google/uuid"

// SettingRepository persists key/value settings.
type SettingRepository interface {
	// FindByKey returns the setting for key, or ErrNotFound.
	FindByKey(key string) (*Setting, error)
	// Save upserts the setting.
	Save(setting *Setting) error
}

// TransactionRepository persists admitted-record transactions.
type TransactionRepository interface {
	// FindByTransactionID returns the transaction, or ErrNotFound.
	FindByTransactionID(transactionID uuid.UUID) (*Transaction, error)
	// Save inserts or updates the transaction. Inserting a duplicate
	// transaction id returns ErrDuplicateKey.
	Save(transaction *Transaction) error
}

// SyncJobRepository persists full-sync jobs.
type SyncJobRepository interface {
	// FindByJobID returns the job, or ErrNotFound.
	FindByJobID(jobID uuid.UUID) (*SyncJob, error)
	// Save inserts or updates the job. Inserting a duplicate job id
	// returns ErrDuplicateKey.
	Save(job *SyncJob) error
}

// SedexMessageRepository persists outbound Sedex messages.
type SedexMessageRepository interface {
	// FindByMessageID returns the message, or ErrNotFound.
	FindByMessageID(messageID uuid.UUID) (*SedexMessage, error)
	// FindAllByJobID returns every message belonging to the job.
	FindAllByJobID(jobID uuid.UUID) ([]*SedexMessage, error)
	// Save inserts or updates the message. Inserting a duplicate message
	// id returns ErrDuplicateKey.
	Save(message *SedexMessage) error
}
