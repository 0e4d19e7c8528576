package sedex

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/datarocks/lwgs-searchindex-client/internal/amqp"
	"github.com/datarocks/lwgs-searchindex-client/internal/domain"
	"github.com/datarocks/lwgs-searchindex-client/internal/infrastructure/sqlite"
	"github.com/datarocks/lwgs-searchindex-client/internal/log"
)

// ReceiptProcessor applies one transport receipt to the owning
// SedexMessage row and emits the sedex-state event that drives the job
// state decision.
type ReceiptProcessor struct {
	store     *sqlite.Store
	publisher amqp.Publisher
	now       func() time.Time
	logger    zerolog.Logger
}

// NewReceiptProcessor wires the processor.
func NewReceiptProcessor(store *sqlite.Store, publisher amqp.Publisher) *ReceiptProcessor {
	return &ReceiptProcessor{
		store:     store,
		publisher: publisher,
		now:       time.Now,
		logger:    log.WithComponent("sedex-receipt"),
	}
}

// ProcessReceipt updates the message state named by the receipt and
// publishes a sedex-state event carrying the owning job id. Receipts for
// unknown messages are logged and skipped; the adapter may deliver
// receipts for traffic this client never produced.
func (p *ReceiptProcessor) ProcessReceipt(ctx context.Context, receipt *Receipt) error {
	messageID, err := uuid.Parse(receipt.MessageID)
	if err != nil {
		p.logger.Warn().Str("message_id", receipt.MessageID).Msg("ignoring receipt with malformed message id")
		return nil
	}

	var jobID *uuid.UUID
	err = p.store.InTransaction(func(repos *sqlite.Repos) error {
		message, err := repos.SedexMessages.FindByMessageID(messageID)
		if errors.Is(err, domain.ErrNotFound) {
			p.logger.Warn().Str("message_id", messageID.String()).Msg("ignoring receipt for unknown sedex message")
			return nil
		}
		if err != nil {
			return err
		}
		message.SetStateWithTimestamp(receipt.MessageState(), p.now())
		if err := repos.SedexMessages.Save(message); err != nil {
			return err
		}
		jobID = message.JobID
		return nil
	})
	if err != nil {
		return err
	}
	if jobID == nil {
		// Partial-sync messages have no owning job; nothing to decide.
		return nil
	}

	headers := amqp.BuildHeaders(amqp.CommonHeaders{
		SenderID:        receipt.SenderID,
		JobType:         domain.JobTypeFull,
		JobID:           jobID,
		MessageCategory: domain.MessageCategorySedexEvent,
	})
	return p.publisher.Publish(ctx, amqp.ExchangeLWGSState, amqp.TopicSedexState, nil, headers)
}
