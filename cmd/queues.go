package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datarocks/lwgs-searchindex-client/internal/amqp"
)

var queuesCmd = &cobra.Command{
	Use:   "queues",
	Short: "Show broker queue depths",
	RunE:  runQueues,
}

func init() {
	rootCmd.AddCommand(queuesCmd)
}

func runQueues(cmd *cobra.Command, _ []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	client, err := amqp.Dial(cfg.AMQP.URL)
	if err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}
	defer func() { _ = client.Close() }()
	if err := client.DeclareTopology(); err != nil {
		return fmt.Errorf("declaring topology: %w", err)
	}

	stats := amqp.QueueStatsFromClient(client)
	queues := []string{
		amqp.QueuePersonDataPartialIncoming,
		amqp.QueuePersonDataPartialOutgoing,
		amqp.QueuePersonDataPartialFailed,
		amqp.QueuePersonDataFullIncoming,
		amqp.QueuePersonDataFullOutgoing,
		amqp.QueuePersonDataFullFailed,
		amqp.QueueTransactionState,
		amqp.QueueSedexState,
		amqp.QueueSedexOutgoing,
	}
	for _, queue := range queues {
		count, err := stats.GetQueueCount(queue)
		if err != nil {
			return err
		}
		cmd.Printf("%-32s %d\n", queue, count)
	}
	return nil
}
