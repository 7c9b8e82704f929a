// Command timescribe-mcp serves the journaling client as MCP tools on stdio.
package main

import (
	"fmt"
	"os"

	"timescribe/internal/bootstrap"
	"timescribe/internal/config"
	"timescribe/internal/mcptools"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "timescribe-mcp:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, closeLog, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	services, err := bootstrap.BuildWithConfig(cfg, mcptools.NewLogView(logger), logger)
	if err != nil {
		return err
	}
	defer services.Close()

	var history mcptools.History
	if services.Journal != nil {
		history = services.Journal
	}

	tools := mcptools.New(services.Conversation, history)
	return mcptools.Serve(mcptools.NewServer("timescribe", version, tools))
}
