// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/chattaio/chattai-tui/internal/config"
)

// HandleConfig shows or initializes the configuration file.
func HandleConfig(args Args) {
	switch args.Subcommand {
	case "", "show":
		cfg, err := loadConfig(args)
		if err != nil {
			fatal(err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(cfg)

	case "path":
		path, err := config.ConfigPathTOML()
		if err != nil {
			fatal(err)
		}
		fmt.Println(path)

	case "init":
		path, err := config.ConfigPathTOML()
		if err != nil {
			fatal(err)
		}
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(os.Stderr, "Config already exists at %s\n", path)
			os.Exit(1)
		}
		if err := config.Save(config.Default()); err != nil {
			fatal(err)
		}
		fmt.Printf("Wrote %s\n", path)

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand %q\n", args.Subcommand)
		os.Exit(1)
	}
}
