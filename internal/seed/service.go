// Package seed admits person-data records into the pipeline.
package seed

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/datarocks/lwgs-searchindex-client/internal/amqp"
	"github.com/datarocks/lwgs-searchindex-client/internal/domain"
	"github.com/datarocks/lwgs-searchindex-client/internal/fullsync"
)

// ErrFullSyncNotSeeding is returned by SeedToFull when no full-sync cycle
// is accepting records. Nothing is published in that case.
var ErrFullSyncNotSeeding = errors.New("full sync is not in seeding state")

// QueueCounter is the read side of the queue statistics probe.
type QueueCounter interface {
	GetQueueCount(queueName string) (int, error)
}

// JobSeedService validates the sender, assigns a transaction id, and
// publishes the record plus its state shadow to the broker.
type JobSeedService struct {
	publisher amqp.Publisher
	stats     QueueCounter
	fullSync  *fullsync.StateManager

	multiSender    bool
	singleSenderID string
	validSenderIDs map[string]struct{}
}

// NewJobSeedService wires the seeding service. In single-sender mode the
// valid set is exactly the configured sender id.
func NewJobSeedService(
	publisher amqp.Publisher,
	stats QueueCounter,
	fullSync *fullsync.StateManager,
	singleSenderID string,
	multiSender bool,
	senderIDs []string,
) *JobSeedService {
	valid := make(map[string]struct{})
	if multiSender {
		for _, id := range senderIDs {
			valid[id] = struct{}{}
		}
	} else {
		valid[singleSenderID] = struct{}{}
	}
	return &JobSeedService{
		publisher:      publisher,
		stats:          stats,
		fullSync:       fullSync,
		multiSender:    multiSender,
		singleSenderID: singleSenderID,
		validSenderIDs: valid,
	}
}

// SeedToPartial admits one record in streaming mode and returns the
// generated transaction id. An empty senderID defaults to the configured
// sender in single-sender mode.
func (s *JobSeedService) SeedToPartial(ctx context.Context, payload, senderID string) (uuid.UUID, error) {
	sender, err := s.validateOrDefaultSenderID(senderID)
	if err != nil {
		return uuid.Nil, err
	}
	return s.seedToQueue(ctx, payload, amqp.TopicPersonDataPartialIncoming, domain.JobTypePartial, nil, sender)
}

// SeedToFull admits one record into the running full-sync cycle. It
// returns ErrFullSyncNotSeeding without publishing when admission is
// closed; on success the cycle's seeded-message counter is incremented.
func (s *JobSeedService) SeedToFull(ctx context.Context, payload, senderID string) (uuid.UUID, error) {
	if !s.fullSync.IsInStateSeeding() {
		return uuid.Nil, ErrFullSyncNotSeeding
	}
	sender, err := s.validateOrDefaultSenderID(senderID)
	if err != nil {
		return uuid.Nil, err
	}
	jobID := s.fullSync.CurrentFullSyncJobID()
	transactionID, err := s.seedToQueue(ctx, payload, amqp.TopicPersonDataFullIncoming, domain.JobTypeFull, &jobID, sender)
	if err != nil {
		return uuid.Nil, err
	}
	s.fullSync.IncFullSeedMessageCounter()
	return transactionID, nil
}

// validateOrDefaultSenderID applies the admission rules: an absent sender
// defaults to the configured id in single-sender mode; otherwise the
// sender must belong to the valid set.
func (s *JobSeedService) validateOrDefaultSenderID(senderID string) (string, error) {
	if !s.multiSender && senderID == "" {
		return s.singleSenderID, nil
	}
	if _, ok := s.validSenderIDs[senderID]; ok {
		return senderID, nil
	}
	valid := make([]string, 0, len(s.validSenderIDs))
	for id := range s.validSenderIDs {
		valid = append(valid, id)
	}
	sort.Strings(valid)
	return "", &domain.SenderIDValidationError{SenderID: senderID, Valid: valid}
}

// seedToQueue publishes the record to the lwgs exchange and an empty state
// shadow to the lwgs-state exchange, both under the same correlation id.
// The two publishes are not atomic; the state consumer upserts on NEW, so
// a replayed shadow is harmless.
func (s *JobSeedService) seedToQueue(
	ctx context.Context,
	payload string,
	topic string,
	jobType domain.JobType,
	jobID *uuid.UUID,
	senderID string,
) (uuid.UUID, error) {
	transactionID := uuid.New()
	state := domain.TransactionStateNew
	headers := amqp.BuildHeaders(amqp.CommonHeaders{
		SenderID:         senderID,
		JobType:          jobType,
		JobID:            jobID,
		MessageCategory:  domain.MessageCategoryTransactionEvent,
		TransactionState: state,
		TransactionID:    &transactionID,
	})

	record := domain.PersonData{TransactionID: transactionID, Payload: payload}
	if err := amqp.PublishJSON(ctx, s.publisher, amqp.ExchangeLWGS, topic, record, headers); err != nil {
		return uuid.Nil, fmt.Errorf("failed to publish record: %w", err)
	}
	if err := s.publisher.Publish(ctx, amqp.ExchangeLWGSState, topic, nil, headers); err != nil {
		return uuid.Nil, fmt.Errorf("failed to publish state shadow: %w", err)
	}
	return transactionID, nil
}

// Queue depth accessors exposed for operator consumption.

func (s *JobSeedService) PartialQueued() (int, error) {
	return s.stats.GetQueueCount(amqp.QueuePersonDataPartialIncoming)
}

func (s *JobSeedService) PartialProcessed() (int, error) {
	return s.stats.GetQueueCount(amqp.QueuePersonDataPartialOutgoing)
}

func (s *JobSeedService) PartialFailed() (int, error) {
	return s.stats.GetQueueCount(amqp.QueuePersonDataPartialFailed)
}

func (s *JobSeedService) FullQueued() (int, error) {
	return s.stats.GetQueueCount(amqp.QueuePersonDataFullIncoming)
}

func (s *JobSeedService) FullProcessed() (int, error) {
	return s.stats.GetQueueCount(amqp.QueuePersonDataFullOutgoing)
}

func (s *JobSeedService) FullFailed() (int, error) {
	return s.stats.GetQueueCount(amqp.QueuePersonDataFullFailed)
}
