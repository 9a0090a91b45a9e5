// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"github.com/chattaio/chattai-tui/internal/backend"
	"github.com/chattaio/chattai-tui/internal/config"
	"github.com/chattaio/chattai-tui/internal/model"
)

// loadConfig loads the configuration and applies CLI flag overrides.
func loadConfig(args Args) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if args.BaseURL != "" {
		cfg.Backend.BaseURL = args.BaseURL
	}
	if args.Mode != "" {
		mode := model.QueryMode(args.Mode)
		if !mode.Valid() {
			return nil, fmt.Errorf("invalid mode %q", args.Mode)
		}
		cfg.Chat.Mode = args.Mode
	}
	if args.TopK > 0 {
		cfg.Chat.TopK = args.TopK
	}
	return cfg, nil
}

// NewBackendClient builds a backend client from the effective configuration.
func NewBackendClient(cfg *config.Config) *backend.Client {
	return backend.NewClient(cfg.Backend.BaseURL).
		WithTimeout(cfg.RequestTimeout()).
		WithHealthTimeout(cfg.HealthTimeout())
}

// fatal prints an error and exits non-zero.
func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
