// Package cmd contains the quarry command-line entry points: command
// routing, logger initialization, and the MCP server launcher.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/quarrydocs/quarry/internal/config"
	"github.com/quarrydocs/quarry/internal/kb"
	"github.com/quarrydocs/quarry/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.1.0"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// Execute is the main entry point: it routes the first argument to a
// subcommand. The default with no arguments is help.
func Execute() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "mcp":
			return runMCP()
		case "setup":
			return runSetup()
		case "health":
			return runHealth()
		case "version", "--version", "-v":
			printVersion()
			return nil
		case "help", "--help", "-h":
			printHelp()
			return nil
		default:
			printHelp()
			return fmt.Errorf("unknown command %q", os.Args[1])
		}
	}
	printHelp()
	return nil
}

// initLogger builds the process logger. DEBUG in the environment enables
// debug level. Logging goes to stderr: stdout is reserved for MCP JSON-RPC.
func initLogger() log.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level})
}

// openKB loads configuration and builds the pipeline.
func openKB(ctx context.Context) (*kb.KB, log.Logger, error) {
	logger := initLogger()

	cfg, err := config.Load("")
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}

	knowledge, err := kb.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return knowledge, logger, nil
}

// runSetup runs the end-to-end verification and prints the report.
func runSetup() error {
	ctx := context.Background()

	knowledge, logger, err := openKB(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := knowledge.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	return printResult(knowledge.Setup(ctx))
}

// runHealth prints the component status report.
func runHealth() error {
	ctx := context.Background()

	knowledge, logger, err := openKB(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := knowledge.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	return printResult(knowledge.Health(ctx))
}

func printResult(result kb.Result) error {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(out))
	if result.Status == kb.StatusError || result.Status == kb.StatusUnhealthy {
		return fmt.Errorf("%s", result.Status)
	}
	return nil
}

func printVersion() {
	fmt.Printf("quarry v%s\n", AppVersion)
	fmt.Printf("Build: %s\n", BuildTime)
	fmt.Printf("Commit: %s\n", GitCommit)
}

func printHelp() {
	fmt.Print(`quarry - knowledge base MCP server

Usage:
  quarry <command>

Commands:
  mcp       Start the MCP server on stdio
  setup     Verify the pipeline end to end and print the report
  health    Print per-component status
  version   Print version information
  help      Print this help

Environment:
  QUARRY_HOME      Storage root (default: ~/.quarry)
  GEMINI_API_KEY   Required for the googlegenai embedding provider
  DEBUG            Enable debug logging when set
`)
}
