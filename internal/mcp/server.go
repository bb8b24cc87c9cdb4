// ABOUTME: MCP server setup for the fatigue tracker.
// ABOUTME: Exposes the fatigue service as MCP tools and resources over stdio.
package mcp

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/harperreed/fatigue/internal/service"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// Server wraps the MCP server with service access.
type Server struct {
	mcpServer *mcp.Server
	svc       *service.Service
	logger    *zap.Logger
}

// NewServer creates a new MCP server backed by svc.
func NewServer(svc *service.Service, logger *zap.Logger) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("mcp server requires a service")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "fatigue",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcpServer: mcpServer,
		svc:       svc,
		logger:    logger.Named("mcp"),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server using stdio transport.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("serving MCP over stdio")
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// parseTimestamp accepts RFC3339, "2006-01-02 15:04" in the display
// timezone, or unix seconds. Empty means now.
func (s *Server) parseTimestamp(v string) (time.Time, error) {
	if v == "" {
		return s.svc.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04", v, s.svc.Location()); err == nil {
		return t, nil
	}
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q (use RFC3339, YYYY-MM-DD HH:MM, or unix seconds)", v)
}
