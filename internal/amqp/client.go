package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp091 "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/datarocks/lwgs-searchindex-client/internal/log"
)

// ErrReject tells the consumer loop to reject the delivery without
// requeueing, handing it to the broker's dead-letter policy.
var ErrReject = errors.New("reject delivery")

// Publisher is the outbound surface needed by the seeding and receipt
// services; satisfied by *Client and by test fakes.
type Publisher interface {
	Publish(ctx context.Context, exchange, topic string, body []byte, headers CommonHeaders) error
}

// HandlerFunc processes one consumed delivery. A nil return acknowledges
// the delivery; ErrReject dead-letters it; any other error requeues it.
type HandlerFunc func(ctx context.Context, delivery amqp091.Delivery) error

// Client wraps one AMQP connection with a publishing channel. Consumers
// get their own channels so per-queue prefetch stays independent.
type Client struct {
	conn *amqp091.Connection

	mu sync.Mutex // guards ch; a channel is not safe for concurrent publish
	ch *amqp091.Channel
}

var _ Publisher = (*Client)(nil)

// Dial connects to the broker and opens the publishing channel.
func Dial(url string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return &Client{conn: conn, ch: ch}, nil
}

// Close shuts the connection down, closing all channels with it.
func (c *Client) Close() error {
	return c.conn.Close()
}

// DeclareTopology declares the full exchange/queue topology on the
// publishing channel.
func (c *Client) DeclareTopology() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return DeclareTopology(c.ch)
}

// Publish sends body to exchange with the given routing topic, applying
// the header envelope and its correlation id.
func (c *Client) Publish(ctx context.Context, exchange, topic string, body []byte, headers CommonHeaders) error {
	publishing := amqp091.Publishing{
		ContentType: "application/json",
		Body:        body,
	}
	headers.Apply(&publishing)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ch.PublishWithContext(ctx, exchange, topic, false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish to %s/%s: %w", exchange, topic, err)
	}
	return nil
}

// PublishJSON marshals v and publishes it.
func PublishJSON(ctx context.Context, p Publisher, exchange, topic string, v any, headers CommonHeaders) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	return p.Publish(ctx, exchange, topic, body, headers)
}

// Consume reads queue with a bounded pool of workers and blocks until ctx
// is cancelled and in-flight deliveries have drained. Acknowledgement
// follows the handler result: ack on nil, dead-letter on ErrReject,
// requeue on anything else.
func (c *Client) Consume(ctx context.Context, queue string, workers int, handler HandlerFunc) error {
	if workers < 1 {
		workers = 1
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open consumer channel: %w", err)
	}
	// Bound unacked deliveries to the pool size so the broker never hands
	// out more work than the workers can hold.
	if err := ch.Qos(workers, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	deliveries, err := ch.Consume(queue, queue+"-consumer", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("failed to consume from %s: %w", queue, err)
	}

	logger := log.WithComponent("amqp-consumer")
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for delivery := range deliveries {
				c.settle(ctx, queue, delivery, handler, logger)
			}
		}()
	}

	<-ctx.Done()
	// Closing the channel ends the deliveries range; workers finish what
	// they already hold.
	_ = ch.Close()
	wg.Wait()
	return nil
}

func (c *Client) settle(ctx context.Context, queue string, delivery amqp091.Delivery, handler HandlerFunc, logger zerolog.Logger) {
	err := handler(ctx, delivery)
	switch {
	case err == nil:
		if ackErr := delivery.Ack(false); ackErr != nil {
			logger.Error().Err(ackErr).Str("queue", queue).Msg("failed to ack delivery")
		}
	case errors.Is(err, ErrReject):
		logger.Warn().Err(err).Str("queue", queue).Msg("rejecting delivery to dead-letter")
		if rejectErr := delivery.Reject(false); rejectErr != nil {
			logger.Error().Err(rejectErr).Str("queue", queue).Msg("failed to reject delivery")
		}
	default:
		logger.Error().Err(err).Str("queue", queue).Msg("handler failed, requeueing delivery")
		if nackErr := delivery.Nack(false, true); nackErr != nil {
			logger.Error().Err(nackErr).Str("queue", queue).Msg("failed to nack delivery")
		}
	}
}
