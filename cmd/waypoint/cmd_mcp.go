package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/waypoint/internal/config"
	"github.com/felixgeelhaar/waypoint/internal/daemon"
	mcpserver "github.com/felixgeelhaar/waypoint/internal/mcp"
)

// cmdMCP serves the MCP tools on stdio over in-process services
func cmdMCP() error {
	dir, err := config.EnsureWaypointDir()
	if err != nil {
		return fmt.Errorf("ensure waypoint dir: %w", err)
	}
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// stdout carries the protocol, so logs only go to stderr at warn and above
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	// Setup context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, err := daemon.OpenServices(ctx, cfg, dir, logger)
	if err != nil {
		return fmt.Errorf("open services: %w", err)
	}
	defer svc.Close(context.Background())

	userID := os.Getenv("WAYPOINT_USER")
	if userID == "" {
		userID = cfg.Daemon.UserID
	}

	srv := mcpserver.NewServer(mcpserver.Config{Services: svc, UserID: userID})
	return srv.ServeStdio(ctx)
}
