// ABOUTME: CLI command for running the HTTP API.
// ABOUTME: Hot-reloads timezone and window from the config file while serving.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/fatigue/internal/api"
	"github.com/harperreed/fatigue/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API used by the mobile app.

ROUTES:

  POST /api/v1/user/login/            Look up a subject by name
  POST /api/v1/user/new/              Register or update a subject
  POST /api/v1/upload/heart_rate/     Upload samples, get fatigue levels
  POST /api/v1/upload/fatigue_level/  Report a fatigue level
  POST /api/v1/upload/activity/       Log opening/closing a peer view
  GET  /api/v1/peer/group/{group_id}/ Group members and latest levels
  GET  /api/v1/peer/{user_id}/        Today's hourly summary
  GET  /healthz

Edits to timezone and window_hours in the config file apply without a
restart. Other settings need one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		path := configPath
		if path == "" {
			path = config.GetConfigPath()
		}
		if _, err := os.Stat(path); err == nil {
			go func() {
				err := config.Watch(ctx, path, logger, func(c *config.Config) {
					loc, err := c.Location()
					if err != nil {
						return
					}
					svc.SetLocation(loc)
					svc.SetWindow(c.GetWindow())
				})
				if err != nil {
					logger.Warn("config watch stopped", zap.Error(err))
				}
			}()
		}

		addr := serveListen
		if addr == "" {
			addr = cfg.GetListen()
		}
		srv := api.NewServer(addr, api.New(svc, logger), logger)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "listen address (default from config, :$PORT, or :8080)")
	rootCmd.AddCommand(serveCmd)
}
