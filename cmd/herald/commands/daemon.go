package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/heraldai/herald/config"
	"github.com/heraldai/herald/logger"
	"github.com/heraldai/herald/notify"
	"github.com/heraldai/herald/sym"
)

// DaemonCmd runs the chime dispatcher without the API server
var DaemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: sym.ChimeOpen + " Run the chime dispatcher headless (no API server)",
	Long: sym.ChimeOpen + ` Run the chime dispatcher in foreground without the API server.

The daemon polls for due scheduled jobs and executes them: reminders
are delivered through the configured notification senders, agent tasks
are handed to the runner. Claims are lease-based, so extra daemons can
run against the same database for throughput; each due job fires once.

The daemon will:
- Poll the scheduled job table at the configured interval
- Claim due jobs atomically and dispatch them concurrently
- Record a run row for every firing
- Run until interrupted (Ctrl+C), draining in-flight dispatches on exit

Examples:
  herald daemon              # Start with configured tunables
  herald daemon --poll 5     # Poll every 5 seconds`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pollSeconds, _ := cmd.Flags().GetInt("poll")

		// Load configuration
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if pollSeconds > 0 {
			cfg.Chime.PollIntervalSeconds = pollSeconds
		}

		// Open and migrate database
		database, err := openDatabase("")
		if err != nil {
			return err
		}
		defer database.Close()

		st := newStores(database)

		// Headless mode: no event sink, metrics on the default registry.
		// Expired claims need no recovery step; leases lapse on their own
		// and ClaimDue picks the jobs back up.
		inapp := notify.NewInAppSender(st.notifs)
		dispatcher := buildDispatcher(cfg, st, inapp, nil, nil)
		dispatcher.Start()

		// Watch the config files so edits and `herald config set`
		// retune a running daemon. A --poll override sticks across
		// reloads.
		watcher, werr := config.NewConfigWatcher(config.WatchTargets()...)
		if werr != nil {
			logger.Warnw("Config watcher unavailable, restart to apply config changes", "error", werr)
		} else {
			watcher.OnReload(func(newCfg *config.Config) error {
				if pollSeconds > 0 {
					newCfg.Chime.PollIntervalSeconds = pollSeconds
				}
				dispatcher.ApplyConfig(newCfg.GetChimeConfig())
				return nil
			})
			watcher.Start()
			defer watcher.Stop()
		}

		chimeCfg := cfg.GetChimeConfig()
		fmt.Printf("%s Chime daemon started\n", sym.ChimeOpen)
		fmt.Printf("  Poll interval: %v\n", chimeCfg.PollInterval())
		fmt.Printf("  Claim batch: %d\n", chimeCfg.ClaimBatchSize)
		fmt.Printf("  Claim lease: %v\n", chimeCfg.ClaimLease())
		fmt.Printf("  Max concurrent: %d\n", chimeCfg.MaxConcurrentDispatches)
		fmt.Printf("  Catch-up window: %v\n", chimeCfg.CatchupWindow())
		fmt.Printf("\n%s Press Ctrl+C for graceful shutdown\n\n", sym.Chime)

		// Wait for interrupt signal
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		fmt.Printf("\n%s Draining in-flight dispatches...\n", sym.ChimeClose)

		dispatcher.Stop()

		fmt.Printf("%s Chime daemon stopped\n", sym.ChimeClose)
		return nil
	},
}

func init() {
	DaemonCmd.Flags().Int("poll", 0, "Poll interval in seconds (overrides config)")
}
