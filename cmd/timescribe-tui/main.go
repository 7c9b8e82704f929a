// Command timescribe-tui is the terminal front end for the journaling client.
package main

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"timescribe/internal/bootstrap"
	"timescribe/internal/config"
	"timescribe/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "timescribe:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// The terminal belongs to the UI; logs only go to a configured file.
	logger, closeLog, err := cfg.Log.NewLogger(io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	bridge := tui.NewBridge()
	defer bridge.Close()
	services, err := bootstrap.BuildWithConfig(cfg, bridge, logger)
	if err != nil {
		return err
	}
	defer services.Close()

	program := tea.NewProgram(tui.New(services.Conversation, services.Controller), tea.WithAltScreen())
	bridge.Attach(program)

	_, err = program.Run()
	bridge.Close()
	if abortErr := services.Controller.Abort(); abortErr == nil {
		logger.Info("discarded recording on exit")
	}
	return err
}
