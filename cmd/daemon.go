package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/datarocks/lwgs-searchindex-client/internal/amqp"
	"github.com/datarocks/lwgs-searchindex-client/internal/fullsync"
	"github.com/datarocks/lwgs-searchindex-client/internal/infrastructure/sqlite"
	"github.com/datarocks/lwgs-searchindex-client/internal/log"
	"github.com/datarocks/lwgs-searchindex-client/internal/sedex"
	"github.com/datarocks/lwgs-searchindex-client/internal/state"
	"github.com/datarocks/lwgs-searchindex-client/internal/tracing"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the state-processing daemon",
	Long: `Run the consumers that own transaction and sync-job state: the
transaction-state and sedex-state worker pools plus the Sedex receipt
watcher. Shutdown drains in-flight deliveries before exit.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(_ *cobra.Command, _ []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := log.WithComponent("daemon")

	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
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
	transactionProcessor := state.NewTransactionStateProcessor(store, fullSync)
	sedexProcessor := state.NewSedexMessageStateProcessor(store, fullSync)
	receiptProcessor := sedex.NewReceiptProcessor(store, client)
	watcher, err := sedex.NewWatcher(cfg.Sedex.ReceiptDir, receiptProcessor.ProcessReceipt)
	if err != nil {
		return fmt.Errorf("starting receipt watcher: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer := provider.Tracer()
	var wg sync.WaitGroup

	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				logger.Error().Err(err).Str("worker", name).Msg("worker stopped with error")
				stop()
			}
		}()
	}

	run("transaction-state", func(ctx context.Context) error {
		return client.Consume(ctx, amqp.QueueTransactionState, cfg.TransactionStateWorkers(),
			tracing.WrapHandler(tracer, amqp.QueueTransactionState, transactionProcessor.Handle))
	})
	run("sedex-state", func(ctx context.Context) error {
		return client.Consume(ctx, amqp.QueueSedexState, cfg.SedexStateWorkers(),
			tracing.WrapHandler(tracer, amqp.QueueSedexState, sedexProcessor.Handle))
	})
	run("receipt-watcher", watcher.Run)

	// Log full-sync transitions for the operator.
	run("fullsync-events", func(ctx context.Context) error {
		for event := range fullSync.Events().Subscribe(ctx) {
			logger.Info().
				Str("from", string(event.Payload.From)).
				Str("to", string(event.Payload.To)).
				Str("job_id", event.Payload.JobID.String()).
				Msg("full-sync transition")
		}
		return nil
	})

	logger.Info().Str("mode", string(fullSync.Mode())).Msg("daemon started")
	<-ctx.Done()
	logger.Info().Msg("shutting down, draining consumers")
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := provider.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("tracing shutdown failed")
	}
	logger.Info().
		Int64("dropped_unknown_transactions", transactionProcessor.DroppedUnknownTransactions()).
		Int64("duplicate_new_events", transactionProcessor.DuplicateNewEvents()).
		Msg("daemon stopped")
	return nil
}
