package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/heraldai/herald/cmd/herald/commands"
	"github.com/heraldai/herald/logger"
)

var rootCmd = &cobra.Command{
	Use:   "herald",
	Short: "Herald - Scheduled jobs, notifications, and tasks for a personal assistant",
	Long: `Herald - Personal assistant infrastructure.

Herald schedules future and recurring work for a personal AI
assistant: reminders that notify, agent tasks that spawn background
executions, and follow-ups pinned to tasks. The chime dispatcher
fires them on time; the server streams what happened.

Available commands:
  serve   - Start the API server with the chime dispatcher
  daemon  - Run the chime dispatcher headless
  jobs    - List and manage scheduled jobs
  config  - Manage Herald configuration
  db      - Manage database operations
  mcp     - Serve chime tools over MCP stdio
  version - Show version information

Examples:
  herald serve              # Full stack on the configured port
  herald jobs ls            # List scheduled jobs
  herald config show        # Show current configuration
  herald db stats           # Show database statistics`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// MCP owns stdout for protocol frames, so logs move to stderr
		if cmd.Name() == "mcp" {
			return logger.InitializeStderr(zapcore.WarnLevel)
		}

		verbosity, _ := cmd.Flags().GetCount("verbose")
		if verbosity > 0 {
			if err := logger.InitializeWithLevel(false, logger.VerbosityToLevel(verbosity)); err != nil {
				return err
			}
			logger.Logger.Debugw("Verbosity set",
				"level", verbosity,
				"shows", logger.VerbosityDescription(verbosity))
			return nil
		}
		return logger.Initialize(false)
	},
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")

	// Add commands
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.DaemonCmd)
	rootCmd.AddCommand(commands.JobsCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.McpCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
