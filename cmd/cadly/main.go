// Cadly: Design-for-Manufacturing MCP Server
//
// An MCP server that connects AI coding tools to a running Fusion 360
// instance and reviews the active design for manufacturability: rule
// analysis, automatic fixes with validation and rollback, cost estimates,
// and process-switch simulation.
//
// Usage:
//
//	cadly serve    # Start MCP server (stdio transport)
//	cadly check    # Check the connection to the Fusion 360 add-in
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cadlyhq/cadly/internal/config"
	"github.com/cadlyhq/cadly/internal/fusion"
	cadlyserver "github.com/cadlyhq/cadly/internal/server"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "check":
		runCheck()
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("cadly v%s\n", cadlyserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()

	// Logs go to stderr — the MCP stdio transport owns stdout.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(log)

	s, cleanup, err := cadlyserver.New(cfg, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	log.Info("cadly starting",
		"version", cadlyserver.Version,
		"fusion", cfg.FusionBaseURL(),
		"data_dir", cfg.DataDir)

	// Graceful shutdown on interrupt: run cleanup before the process dies.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		cleanup()
		os.Exit(0)
	}()

	return server.ServeStdio(s)
}

// runCheck probes the Fusion 360 add-in once and reports the result.
func runCheck() {
	cfg := config.FromEnv()
	client := fusion.NewClient(fusion.Options{
		BaseURL:    cfg.FusionBaseURL(),
		Timeout:    cfg.FusionTimeout,
		RetryCount: 1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if client.Healthy(ctx) {
		fmt.Printf("✅ Fusion 360 add-in is reachable at %s\n", cfg.FusionBaseURL())
		return
	}
	fmt.Fprintf(os.Stderr,
		"❌ Cannot reach the Fusion 360 add-in at %s\n"+
			"   Make sure Fusion 360 is running and the DFM add-in is started.\n"+
			"   Override the address with CADLY_FUSION_HOST / CADLY_FUSION_PORT.\n",
		cfg.FusionBaseURL())
	os.Exit(1)
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Cadly v%s — Design-for-Manufacturing MCP Server

Usage:
  cadly serve    Start the MCP server (stdio transport)
  cadly check    Check the connection to the Fusion 360 add-in

Configuration (environment variables):
  CADLY_FUSION_HOST     Add-in host (default localhost)
  CADLY_FUSION_PORT     Add-in port (default 5000)
  CADLY_SETTLE_DELAY    Wait after mutations before validating (default 3s)
  CADLY_DATA_DIR        History database directory (default ~/.cadly)
  CADLY_LOG_LEVEL       debug | info | warn | error (default info)

Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "cadly": {
        "command": "cadly",
        "args": ["serve"]
      }
    }
  }
`, cadlyserver.Version)
}
