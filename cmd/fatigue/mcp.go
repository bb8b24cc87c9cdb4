// ABOUTME: CLI command for starting MCP server.
// ABOUTME: Runs stdio-based MCP server for AI assistant integration.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/fatigue/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server for AI assistant integration.

The server communicates via stdin/stdout. Logs go to stderr.

CONFIGURATION:

  {
    "mcpServers": {
      "fatigue": {
        "command": "fatigue",
        "args": ["mcp"]
      }
    }
  }

AVAILABLE TOOLS:

  register_subject    Register or update a subject
  record_heart_rates  Upload samples and get fatigue levels
  record_fatigue      Record a reported fatigue level
  peer_summary        Today's hourly range and average
  list_group          Group members with latest fatigue
  list_observations   Stored fatigue observations

AVAILABLE RESOURCES:

  fatigue://subjects  All subjects and their profiles
  fatigue://today     Hourly summary for every subject`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := mcp.NewServer(svc, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return server.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
