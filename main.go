// chattai TUI - a terminal chat interface for your RAG knowledge base.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chattaio/chattai-tui/internal/cli"
	"github.com/chattaio/chattai-tui/internal/config"
	"github.com/chattaio/chattai-tui/internal/ingest"
	"github.com/chattaio/chattai-tui/internal/session"
	"github.com/chattaio/chattai-tui/internal/store"
	"github.com/chattaio/chattai-tui/internal/ui/chat"
	"github.com/chattaio/chattai-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Global program reference for events arriving from background goroutines
var (
	programRef *tea.Program
	programMu  sync.Mutex
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI(args)
	case cli.CmdAsk:
		cli.HandleAsk(args)
	case cli.CmdUpload:
		cli.HandleUpload(args)
	case cli.CmdStatus:
		cli.HandleStatus(args)
	case cli.CmdDocs:
		cli.HandleDocs(args)
	case cli.CmdConfig:
		cli.HandleConfig(args)
	case cli.CmdVersion:
		cli.PrintVersion()
	case cli.CmdHelp:
		cli.PrintUsage()
	}
}

// send injects a message into the running program, if any.
func send(msg tea.Msg) {
	programMu.Lock()
	p := programRef
	programMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func runTUI(args cli.Args) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if args.BaseURL != "" {
		cfg.Backend.BaseURL = args.BaseURL
	}

	setupLogging(cfg)

	statePath, err := cfg.StateFilePath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	st, err := store.Open(statePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot open state: %v\n", err)
		os.Exit(1)
	}

	// Seed stored settings from config on first run
	seedSettings(st, cfg)

	client := cli.NewBackendClient(cfg)

	controller := session.NewController(st, client, func(e session.Event) {
		send(chat.SessionEventMsg{Event: e})
	})
	tracker := ingest.NewTracker(st, client, func(e ingest.Event) {
		send(chat.IngestEventMsg{Event: e})
	}).WithPollInterval(cfg.PollInterval())
	defer tracker.Close()

	theme := styles.NewTheme(cfg.UI.Theme)
	m := chat.New(cfg, theme, st, controller, tracker, client)

	p := tea.NewProgram(m, tea.WithAltScreen())
	programMu.Lock()
	programRef = p
	programMu.Unlock()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	controller.Stop()
}

// setupLogging routes the standard logger to the configured log file so it
// never corrupts the TUI. Logs are discarded if the file cannot be opened.
func setupLogging(cfg *config.Config) {
	path, err := cfg.LogFilePath()
	if err != nil {
		log.SetOutput(io.Discard)
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		log.SetOutput(io.Discard)
		return
	}
	log.SetOutput(f)
}

// seedSettings copies chat defaults from the config file into a fresh
// state. Settings already stored by a previous run win.
func seedSettings(st *store.Store, cfg *config.Config) {
	state := st.State()
	if len(state.Conversations) > 0 {
		return
	}
	st.Dispatch(store.UpdateSettings{Patch: cfg.ChatSettingsPatch()})
}
