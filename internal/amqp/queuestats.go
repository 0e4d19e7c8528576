package amqp

import (
	"fmt"

	amqp091 "github.com/rabbitmq/amqp091-go"
)

// QueueInspector is the broker surface needed to read queue depths;
// satisfied by *amqp091.Channel.
type QueueInspector interface {
	QueueInspect(name string) (amqp091.Queue, error)
}

// QueueStats is a read-only, best-effort view into broker queue depths.
// Counts are whatever the broker reports at the moment of the call; there
// is no caching.
type QueueStats struct {
	inspector QueueInspector
}

// NewQueueStats builds the probe on top of a channel-like inspector.
func NewQueueStats(inspector QueueInspector) *QueueStats {
	return &QueueStats{inspector: inspector}
}

// QueueStatsFromClient builds the probe on the client's publishing channel.
func QueueStatsFromClient(c *Client) *QueueStats {
	return &QueueStats{inspector: c.ch}
}

// GetQueueCount returns the number of messages currently ready on the
// queue.
func (s *QueueStats) GetQueueCount(queueName string) (int, error) {
	queue, err := s.inspector.QueueInspect(queueName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue %s: %w", queueName, err)
	}
	return queue.Messages, nil
}
