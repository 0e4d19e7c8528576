// Package amqp carries the broker topology, the common header envelope,
// and a thin client for publishing and consuming with bounded worker pools.
package amqp

import (
	"fmt"

	amqp091 "github.com/rabbitmq/amqp091-go"
)

// Exchanges. lwgs routes record payloads by topic; lwgs-state routes the
// empty-payload state shadows by the same topic.
const (
	ExchangeLWGS      = "lwgs"
	ExchangeLWGSState = "lwgs-state"
)

// Queue names are contractual with the external batcher and transport.
const (
	QueuePersonDataPartialIncoming = "persondata-partial-incoming"
	QueuePersonDataPartialOutgoing = "persondata-partial-outgoing"
	QueuePersonDataPartialFailed   = "persondata-partial-failed"
	QueuePersonDataFullIncoming    = "persondata-full-incoming"
	QueuePersonDataFullOutgoing    = "persondata-full-outgoing"
	QueuePersonDataFullFailed      = "persondata-full-failed"
	QueueTransactionState          = "transaction-state"
	QueueSedexState                = "sedex-state"
	QueueSedexOutgoing             = "sedex-outgoing"
)

// Topics equal the queue names; each queue binds its own name as routing key.
const (
	TopicPersonDataPartialIncoming = QueuePersonDataPartialIncoming
	TopicPersonDataFullIncoming    = QueuePersonDataFullIncoming
	TopicTransactionState          = QueueTransactionState
	TopicSedexState                = QueueSedexState
)

// stateQueues are bound to the lwgs-state exchange; all others to lwgs.
var stateQueues = map[string]bool{
	QueueTransactionState: true,
	QueueSedexState:       true,
}

// DeclareTopology declares the exchanges, queues, and bindings this client
// relies on. Declarations are idempotent on the broker side.
func DeclareTopology(ch *amqp091.Channel) error {
	for _, exchange := range []string{ExchangeLWGS, ExchangeLWGSState} {
		if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
		}
	}

	queues := []string{
		QueuePersonDataPartialIncoming,
		QueuePersonDataPartialOutgoing,
		QueuePersonDataPartialFailed,
		QueuePersonDataFullIncoming,
		QueuePersonDataFullOutgoing,
		QueuePersonDataFullFailed,
		QueueTransactionState,
		QueueSedexState,
		QueueSedexOutgoing,
	}
	for _, queue := range queues {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
		exchange := ExchangeLWGS
		if stateQueues[queue] {
			exchange = ExchangeLWGSState
		}
		if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", queue, err)
		}
	}

	// State shadows are published per record topic; the two state queues
	// also collect those topics from the state exchange.
	for _, topic := range []string{TopicPersonDataPartialIncoming, TopicPersonDataFullIncoming} {
		if err := ch.QueueBind(QueueTransactionState, topic, ExchangeLWGSState, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s to topic %s: %w", QueueTransactionState, topic, err)
		}
	}
	return nil
}
