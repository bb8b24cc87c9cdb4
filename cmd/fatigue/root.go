// ABOUTME: Root Cobra command for fatigue CLI.
// ABOUTME: Loads config and opens storage and the service via PersistentPre/PostRunE.
package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/fatigue/internal/config"
	"github.com/harperreed/fatigue/internal/service"
	"github.com/harperreed/fatigue/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string

	cfg    *config.Config
	repo   storage.Repository
	svc    *service.Service
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fatigue",
	Short: "Peer fatigue tracker",
	Long: `Fatigue turns heart-rate samples into an accumulated fatigue score and
shares an hourly summary of it with the rest of your group.

HOW IT WORKS:

  Each heart-rate sample is converted to a heart-rate reserve percentage.
  Above the critical threshold (hrr_cp) work capacity is spent; below it,
  capacity recovers. The fatigue level is spent capacity / w_total.

QUICK START:

  $ fatigue register Ada Runner --group team-a --age 29
  $ fatigue hr ada1 95 120 140 --interval 1m   # Upload samples
  $ fatigue report ada1 0.3                    # Report a level directly
  $ fatigue peer ada1                          # Today's hourly summary
  $ fatigue group team-a                       # Everyone's latest level

SERVING:

  $ fatigue serve     # HTTP API on :8080 (or :$PORT)
  $ fatigue mcp       # MCP server over stdio

CONFIGURATION:

  ~/.config/fatigue/config.json selects the backend (sqlite or badger),
  data directory, timezone (default America/Detroit), summary window
  (12 or 24 hours), and profile defaults for new subjects.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if skipSetup(cmd) {
			return nil
		}
		return setup(cmd)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return teardown()
	},
}

func skipSetup(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "help", "completion", "version":
		return true
	}
	return cmd.Parent() != nil && cmd.Parent().Name() == "completion"
}

// setup loads config and wires storage, logging, and the service.
func setup(cmd *cobra.Command) error {
	path := configPath
	if path == "" {
		path = config.GetConfigPath()
	}
	c, err := config.LoadFile(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}
	loc, err := c.Location()
	if err != nil {
		return err
	}

	// Only long-running commands log; the rest print for humans.
	l := zap.NewNop()
	if cmd.Name() == "serve" || cmd.Name() == "mcp" {
		if l, err = c.NewLogger(); err != nil {
			return err
		}
	}

	r, err := c.OpenStorage()
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}

	cfg, repo, logger = c, r, l
	svc = service.New(repo,
		service.WithLocation(loc),
		service.WithWindow(c.GetWindow()),
		service.WithDefaults(c.GetDefaults()),
		service.WithLogger(logger),
	)
	return nil
}

func teardown() error {
	if logger != nil {
		_ = logger.Sync()
	}
	if repo == nil {
		return nil
	}
	err := repo.Close()
	repo, svc = nil, nil
	return err
}

// parseTime accepts the formats people type, in the display timezone.
func parseTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	formats := []string{
		"2006-01-02 15:04",
		"2006-01-02T15:04",
		"2006-01-02",
	}
	for _, f := range formats {
		if t, err := time.ParseInLocation(f, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/fatigue/config.json)")
}
