// Package domain holds the persisted entities, enums, and repository
// contracts shared by the seeding and state-processing services.
package domain

// JobType discriminates how a record was admitted into the pipeline.
type JobType string

const (
	// JobTypePartial is the streaming admission mode; records are routed
	// independently without an enclosing sync job.
	JobTypePartial JobType = "PARTIAL"
	// JobTypeFull is the batched admission mode; records belong to the
	// currently seeding sync job.
	JobTypeFull JobType = "FULL"
)

// ParseJobType maps a wire value onto a JobType. The boolean reports
// whether the value was recognised.
func ParseJobType(s string) (JobType, bool) {
	switch JobType(s) {
	case JobTypePartial, JobTypeFull:
		return JobType(s), true
	}
	return "", false
}

// JobState is the lifecycle state of a SyncJob.
type JobState string

const (
	JobStateNew              JobState = "NEW"
	JobStateSending          JobState = "SENDING"
	JobStateSent             JobState = "SENT"
	JobStateCompleted        JobState = "COMPLETED"
	JobStateFailed           JobState = "FAILED"
	JobStateFailedProcessing JobState = "FAILED_PROCESSING"
)

// Terminal reports whether the state ends the job lifecycle.
// FAILED_PROCESSING is not terminal: the sedex state processor still
// decides between COMPLETED and FAILED.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// ParseJobState maps a wire value onto a JobState.
func ParseJobState(s string) (JobState, bool) {
	switch JobState(s) {
	case JobStateNew, JobStateSending, JobStateSent,
		JobStateCompleted, JobStateFailed, JobStateFailedProcessing:
		return JobState(s), true
	}
	return "", false
}

// TransactionState is the lifecycle state of a single admitted record.
type TransactionState string

const (
	TransactionStateNew       TransactionState = "NEW"
	TransactionStateProcessed TransactionState = "PROCESSED"
	TransactionStateSent      TransactionState = "SENT"
	TransactionStateFailed    TransactionState = "FAILED"
)

// ParseTransactionState maps a wire value onto a TransactionState.
func ParseTransactionState(s string) (TransactionState, bool) {
	switch TransactionState(s) {
	case TransactionStateNew, TransactionStateProcessed,
		TransactionStateSent, TransactionStateFailed:
		return TransactionState(s), true
	}
	return "", false
}

// SedexMessageState is the lifecycle state of an outbound Sedex message.
type SedexMessageState string

const (
	SedexMessageStateCreated    SedexMessageState = "CREATED"
	SedexMessageStateSent       SedexMessageState = "SENT"
	SedexMessageStateSuccessful SedexMessageState = "SUCCESSFUL"
	SedexMessageStateFailed     SedexMessageState = "FAILED"
)

// Terminal reports whether the message state is final.
func (s SedexMessageState) Terminal() bool {
	return s == SedexMessageStateSuccessful || s == SedexMessageStateFailed
}

// ParseSedexMessageState maps a wire value onto a SedexMessageState.
func ParseSedexMessageState(s string) (SedexMessageState, bool) {
	switch SedexMessageState(s) {
	case SedexMessageStateCreated, SedexMessageStateSent,
		SedexMessageStateSuccessful, SedexMessageStateFailed:
		return SedexMessageState(s), true
	}
	return "", false
}

// MessageCategory is the consumer dispatch discriminator carried on every
// broker message.
type MessageCategory string

const (
	MessageCategoryTransactionEvent MessageCategory = "TRANSACTION_EVENT"
	MessageCategorySedexEvent       MessageCategory = "SEDEX_EVENT"
	MessageCategoryUnknown          MessageCategory = "UNKNOWN"
)

// ParseMessageCategory maps a wire value onto a MessageCategory.
// Unrecognised values deserialize to MessageCategoryUnknown.
func ParseMessageCategory(s string) MessageCategory {
	switch MessageCategory(s) {
	case MessageCategoryTransactionEvent, MessageCategorySedexEvent:
		return MessageCategory(s)
	}
	return MessageCategoryUnknown
}
