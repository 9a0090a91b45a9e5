// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for chattai.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdUpload
	CmdStatus
	CmdDocs
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	BaseURL string
	Mode    string
	TopK    int
	JSON    bool
	Quiet   bool

	// Command-specific
	Query      string
	File       string
	Subcommand string

	// Raw args remaining after flag parsing
	Raw []string
}

const usageText = `chattai - terminal chat for your RAG knowledge base

Usage:
  chattai              Launch the interactive TUI (default)
  chattai ask <query>  Ask a one-shot question and print the answer
  chattai upload <file>  Upload a document and wait for indexing
  chattai status       Show backend health and workspace statistics
  chattai docs         List indexed documents
  chattai docs rm <id> Delete an indexed document
  chattai config show  Print the active configuration
  chattai config init  Write a default config file
  chattai version      Print version information

Flags:
  --url URL       Backend base URL (default from config)
  --mode MODE     Query mode: hybrid, local, global, naive
  --top-k N       Number of retrieved chunks
  --json          Machine-readable output where supported
  --quiet         Suppress progress output

Environment:
  CHATTAI_BASE_URL, CHATTAI_MODE, CHATTAI_TOP_K and friends override
  config file values.`

// Parse parses os.Args into a command and its arguments.
func Parse() (Command, Args) {
	args := os.Args[1:]
	remaining, parsed := parseGlobalFlags(args)

	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsed.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsed

	case "ask":
		parsed.Query = strings.Join(remaining, " ")
		return CmdAsk, parsed

	case "upload", "ingest":
		if len(remaining) > 0 {
			parsed.File = remaining[0]
		}
		return CmdUpload, parsed

	case "status", "s":
		return CmdStatus, parsed

	case "docs", "documents":
		if len(remaining) > 0 {
			parsed.Subcommand = strings.ToLower(remaining[0])
			parsed.Raw = remaining[1:]
		}
		return CmdDocs, parsed

	case "config":
		if len(remaining) > 0 {
			parsed.Subcommand = strings.ToLower(remaining[0])
		}
		return CmdConfig, parsed

	case "version", "-v", "--version":
		return CmdVersion, parsed

	case "help", "-h", "--help":
		return CmdHelp, parsed

	default:
		// Bare words are treated as an ask query for convenience
		parsed.Query = strings.Join(append([]string{cmd}, remaining...), " ")
		return CmdAsk, parsed
	}
}

// parseGlobalFlags extracts global flags, returning the remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	parsed := Args{}
	var remaining []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--url":
			if i+1 < len(args) {
				i++
				parsed.BaseURL = args[i]
			}
		case "--mode":
			if i+1 < len(args) {
				i++
				parsed.Mode = args[i]
			}
		case "--top-k", "--topk":
			if i+1 < len(args) {
				i++
				fmt.Sscanf(args[i], "%d", &parsed.TopK)
			}
		case "--json":
			parsed.JSON = true
		case "--quiet", "-q":
			parsed.Quiet = true
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, parsed
}

// PrintUsage writes the usage text to stdout.
func PrintUsage() {
	fmt.Println(usageText)
}

// PrintVersion writes version information to stdout.
func PrintVersion() {
	fmt.Printf("chattai %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}
