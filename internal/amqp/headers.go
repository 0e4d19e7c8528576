package amqp

import (
	"time"

	"github.com/google/uuid"
	amqp091 "github.com/rabbitmq/amqp091-go"

	"github.com/datarocks/lwgs-searchindex-client/internal/domain"
)

// Header keys are string-keyed and case-preserving on the wire.
const (
	HeaderSenderID         = "senderId"
	HeaderJobType          = "jobType"
	HeaderJobID            = "jobId"
	HeaderMessageCategory  = "messageCategory"
	HeaderTransactionState = "transactionState"
	HeaderTransactionID    = "transactionId"
	HeaderTimestamp        = "timestamp"
)

// CommonHeaders is the envelope attached to every broker message. Zero
// values mean the field is absent; jobId and transactionId are pointers
// because absence is legal for them even on otherwise complete envelopes.
type CommonHeaders struct {
	SenderID         string
	JobType          domain.JobType
	JobID            *uuid.UUID
	MessageCategory  domain.MessageCategory
	TransactionState domain.TransactionState
	TransactionID    *uuid.UUID
	Timestamp        time.Time
}

// BuildHeaders fills in the event time when the caller did not set one.
// Timestamps are truncated to millisecond precision, which is what the
// wire representation carries.
func BuildHeaders(h CommonHeaders) CommonHeaders {
	if h.Timestamp.IsZero() {
		h.Timestamp = time.Now()
	}
	h.Timestamp = h.Timestamp.Truncate(time.Millisecond)
	return h
}

// Table serializes the envelope into an AMQP header table. Absent fields
// are omitted; the timestamp travels as Unix milliseconds.
func (h CommonHeaders) Table() amqp091.Table {
	table := amqp091.Table{}
	if h.SenderID != "" {
		table[HeaderSenderID] = h.SenderID
	}
	if h.JobType != "" {
		table[HeaderJobType] = string(h.JobType)
	}
	if h.JobID != nil {
		table[HeaderJobID] = h.JobID.String()
	}
	if h.MessageCategory != "" {
		table[HeaderMessageCategory] = string(h.MessageCategory)
	}
	if h.TransactionState != "" {
		table[HeaderTransactionState] = string(h.TransactionState)
	}
	if h.TransactionID != nil {
		table[HeaderTransactionID] = h.TransactionID.String()
	}
	if !h.Timestamp.IsZero() {
		table[HeaderTimestamp] = h.Timestamp.UnixMilli()
	}
	return table
}

// Apply writes the envelope onto an outbound publishing and sets the
// correlation id to the transaction id when present, else the job id.
func (h CommonHeaders) Apply(p *amqp091.Publishing) {
	p.Headers = h.Table()
	switch {
	case h.TransactionID != nil:
		p.CorrelationId = h.TransactionID.String()
	case h.JobID != nil:
		p.CorrelationId = h.JobID.String()
	}
}

// ParseHeaders reads an envelope back out of an untyped header table.
// Unknown categories deserialize to UNKNOWN; malformed or missing fields
// stay absent rather than failing the whole message.
func ParseHeaders(table amqp091.Table) CommonHeaders {
	var h CommonHeaders
	if v, ok := table[HeaderSenderID].(string); ok {
		h.SenderID = v
	}
	if v, ok := table[HeaderJobType].(string); ok {
		if jobType, ok := domain.ParseJobType(v); ok {
			h.JobType = jobType
		}
	}
	if v, ok := table[HeaderJobID].(string); ok {
		if jobID, err := uuid.Parse(v); err == nil {
			h.JobID = &jobID
		}
	}
	if v, ok := table[HeaderMessageCategory].(string); ok {
		h.MessageCategory = domain.ParseMessageCategory(v)
	} else if _, present := table[HeaderMessageCategory]; present {
		h.MessageCategory = domain.MessageCategoryUnknown
	}
	if v, ok := table[HeaderTransactionState].(string); ok {
		if state, ok := domain.ParseTransactionState(v); ok {
			h.TransactionState = state
		}
	}
	if v, ok := table[HeaderTransactionID].(string); ok {
		if transactionID, err := uuid.Parse(v); err == nil {
			h.TransactionID = &transactionID
		}
	}
	switch v := table[HeaderTimestamp].(type) {
	case int64:
		h.Timestamp = time.UnixMilli(v)
	case int32:
		h.Timestamp = time.UnixMilli(int64(v))
	case time.Time:
		h.Timestamp = v.Truncate(time.Millisecond)
	}
	return h
}
