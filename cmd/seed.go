package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datarocks/lwgs-searchindex-client/internal/amqp"
	"github.com/datarocks/lwgs-searchindex-client/internal/fullsync"
	"github.com/datarocks/lwgs-searchindex-client/internal/infrastructure/sqlite"
	"github.com/datarocks/lwgs-searchindex-client/internal/seed"
)

var (
	seedSenderID string
	seedFull     bool
)

var seedCmd = &cobra.Command{
	Use:   "seed [payload]",
	Short: "Admit one person-data record into the pipeline",
	Long: `Publish a single record to the partial (default) or full incoming
queue. Full seeding requires a running full-sync cycle in SEEDING.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVar(&seedSenderID, "sender-id", "", "sender id (defaults to the configured sender)")
	seedCmd.Flags().BoolVar(&seedFull, "full", false, "seed into the running full-sync cycle")
}

func runSeed(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	db, err := sqlite.NewDB(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	store := sqlite.NewStore(db)
	defer func() { _ = store.Close() }()

	client, err := amqp.Dial(cfg.AMQP.URL)
	if err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}
	defer func() { _ = client.Close() }()
	if err := client.DeclareTopology(); err != nil {
		return fmt.Errorf("declaring topology: %w", err)
	}

	fullSync := fullsync.NewStateManager(store.Settings)
	seeder := seed.NewJobSeedService(
		client,
		amqp.QueueStatsFromClient(client),
		fullSync,
		cfg.Sedex.SenderID,
		cfg.Sedex.MultiSender,
		cfg.Sedex.SenderIDs,
	)

	ctx := context.Background()
	if seedFull {
		transactionID, err := seeder.SeedToFull(ctx, args[0], seedSenderID)
		if errors.Is(err, seed.ErrFullSyncNotSeeding) {
			return fmt.Errorf("no full-sync cycle is accepting records; run 'fullsync start' first")
		}
		if err != nil {
			return err
		}
		cmd.Println(transactionID.String())
		return nil
	}

	transactionID, err := seeder.SeedToPartial(ctx, args[0], seedSenderID)
	if err != nil {
		return err
	}
	cmd.Println(transactionID.String())
	return nil
}
