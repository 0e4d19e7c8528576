package amqp

import (
	"testing"
	"time"

	"github.com/google/uuid"
	amqp091 "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datarocks/lwgs-searchindex-client/internal/domain"
)

func TestHeadersRoundTrip(t *testing.T) {
	jobID := uuid.New()
	transactionID := uuid.New()
	ts := time.Now().Truncate(time.Millisecond)

	headers := BuildHeaders(CommonHeaders{
		SenderID:         "sender-1",
		JobType:          domain.JobTypeFull,
		JobID:            &jobID,
		MessageCategory:  domain.MessageCategoryTransactionEvent,
		TransactionState: domain.TransactionStateNew,
		TransactionID:    &transactionID,
		Timestamp:        ts,
	})

	parsed := ParseHeaders(headers.Table())
	assert.Equal(t, "sender-1", parsed.SenderID)
	assert.Equal(t, domain.JobTypeFull, parsed.JobType)
	require.NotNil(t, parsed.JobID)
	assert.Equal(t, jobID, *parsed.JobID)
	assert.Equal(t, domain.MessageCategoryTransactionEvent, parsed.MessageCategory)
	assert.Equal(t, domain.TransactionStateNew, parsed.TransactionState)
	require.NotNil(t, parsed.TransactionID)
	assert.Equal(t, transactionID, *parsed.TransactionID)
	assert.True(t, ts.Equal(parsed.Timestamp))
}

func TestBuildHeadersDefaultsTimestamp(t *testing.T) {
	before := time.Now()
	headers := BuildHeaders(CommonHeaders{})
	assert.False(t, headers.Timestamp.IsZero())
	assert.False(t, headers.Timestamp.After(time.Now()))
	assert.False(t, headers.Timestamp.Before(before.Truncate(time.Millisecond)))
}

func TestTableOmitsAbsentFields(t *testing.T) {
	table := CommonHeaders{SenderID: "s"}.Table()
	assert.Contains(t, table, HeaderSenderID)
	assert.NotContains(t, table, HeaderJobID)
	assert.NotContains(t, table, HeaderTransactionID)
	assert.NotContains(t, table, HeaderJobType)
	assert.NotContains(t, table, HeaderTimestamp)
}

func TestParseHeadersUnknownCategory(t *testing.T) {
	parsed := ParseHeaders(amqp091.Table{HeaderMessageCategory: "NOT_A_CATEGORY"})
	assert.Equal(t, domain.MessageCategoryUnknown, parsed.MessageCategory)

	// A present but non-string category also maps to UNKNOWN.
	parsed = ParseHeaders(amqp091.Table{HeaderMessageCategory: int32(7)})
	assert.Equal(t, domain.MessageCategoryUnknown, parsed.MessageCategory)

	// An absent category stays absent.
	parsed = ParseHeaders(amqp091.Table{})
	assert.Equal(t, domain.MessageCategory(""), parsed.MessageCategory)
}

func TestParseHeadersMalformedFields(t *testing.T) {
	parsed := ParseHeaders(amqp091.Table{
		HeaderJobID:         "not-a-uuid",
		HeaderTransactionID: "also-not-a-uuid",
		HeaderJobType:       "BOGUS",
	})
	assert.Nil(t, parsed.JobID)
	assert.Nil(t, parsed.TransactionID)
	assert.Equal(t, domain.JobType(""), parsed.JobType)
}

func TestApplyCorrelationIDPrefersTransaction(t *testing.T) {
	jobID := uuid.New()
	transactionID := uuid.New()

	var p amqp091.Publishing
	CommonHeaders{JobID: &jobID, TransactionID: &transactionID}.Apply(&p)
	assert.Equal(t, transactionID.String(), p.CorrelationId)

	var jobOnly amqp091.Publishing
	CommonHeaders{JobID: &jobID}.Apply(&jobOnly)
	assert.Equal(t, jobID.String(), jobOnly.CorrelationId)

	var neither amqp091.Publishing
	CommonHeaders{}.Apply(&neither)
	assert.Empty(t, neither.CorrelationId)
}
