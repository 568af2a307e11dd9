package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heraldai/herald/chime"
	"github.com/heraldai/herald/config"
	"github.com/heraldai/herald/logger"
	"github.com/heraldai/herald/sym"
)

// McpCmd serves chime tools to an MCP client over stdio
var McpCmd = &cobra.Command{
	Use:   "mcp",
	Short: sym.Agent + " Serve chime tools over MCP stdio",
	Long: sym.Agent + ` Serve Herald's chime tools to an MCP client over stdio.

Exposes reminder, agent task, and follow-up creation plus job listing
and lifecycle management as MCP tools, so an assistant can schedule
its own future work. Protocol frames own stdout; logs go to stderr.

This command only authors jobs. Run 'herald serve' or 'herald daemon'
alongside it so due jobs actually fire.

Typical client registration:
  { "command": "herald", "args": ["mcp"] }`,
	RunE: runMcp,
}

var mcpOwner string

func init() {
	McpCmd.Flags().StringVar(&mcpOwner, "owner", "", "Owner ID for created jobs (defaults to configured owner)")
}

func runMcp(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	owner := mcpOwner
	if owner == "" {
		owner = cfg.GetOwnerID()
	}

	database, err := openDatabase("")
	if err != nil {
		return err
	}
	defer database.Close()

	st := newStores(database)
	svc := chime.NewService(st.jobs, st.runs, st.tasks, nil, logger.Logger)

	return chime.NewMCPServer(svc, owner).Serve()
}
