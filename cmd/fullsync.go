package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datarocks/lwgs-searchindex-client/internal/fullsync"
	"github.com/datarocks/lwgs-searchindex-client/internal/infrastructure/sqlite"
)

var fullsyncCmd = &cobra.Command{
	Use:   "fullsync",
	Short: "Drive the full-synchronization cycle",
	Long: `Operate on the persisted full-sync cycle: open admission, close it,
and reset a finished or failed cycle. The cycle state lives in the
database, so these commands work across process restarts.`,
}

func init() {
	rootCmd.AddCommand(fullsyncCmd)
	fullsyncCmd.AddCommand(
		fullsyncSubcommand("status", "Show the current cycle", func(cmd *cobra.Command, m *fullsync.StateManager) error {
			cmd.Printf("mode:    %s\n", m.Mode())
			cmd.Printf("job-id:  %s\n", m.CurrentFullSyncJobID())
			cmd.Printf("seeded:  %d\n", m.FullSeedMessageCounter())
			return nil
		}),
		fullsyncSubcommand("start", "Open a new cycle for seeding", func(cmd *cobra.Command, m *fullsync.StateManager) error {
			jobID, err := m.StartSeeding()
			if err != nil {
				return err
			}
			cmd.Println(jobID.String())
			return nil
		}),
		fullsyncSubcommand("submit", "Close admission on the running cycle", func(_ *cobra.Command, m *fullsync.StateManager) error {
			return m.SubmitSeeding()
		}),
		fullsyncSubcommand("fail", "Abort the running cycle", func(_ *cobra.Command, m *fullsync.StateManager) error {
			if m.Mode() == fullsync.ModeSeeding {
				return m.FailSeeding()
			}
			return m.Fail()
		}),
		fullsyncSubcommand("reset", "Clear a finished or failed cycle", func(_ *cobra.Command, m *fullsync.StateManager) error {
			return m.Reset()
		}),
	)
}

func fullsyncSubcommand(use, short string, fn func(*cobra.Command, *fullsync.StateManager) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := sqlite.NewDB(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			store := sqlite.NewStore(db)
			defer func() { _ = store.Close() }()
			return fn(cmd, fullsync.NewStateManager(store.Settings))
		},
	}
}
