// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// HandleStatus prints backend health and workspace statistics.
func HandleStatus(args Args) {
	cfg, err := loadConfig(args)
	if err != nil {
		fatal(err)
	}
	client := NewBackendClient(cfg)
	ctx := context.Background()

	healthy := client.CheckHealth(ctx)

	if args.JSON {
		out := map[string]interface{}{
			"base_url": cfg.Backend.BaseURL,
			"healthy":  healthy,
		}
		if healthy {
			if stats, err := client.Stats(ctx); err == nil {
				out["stats"] = stats
			}
		}
		json.NewEncoder(os.Stdout).Encode(out)
		if !healthy {
			os.Exit(1)
		}
		return
	}

	fmt.Printf("Backend:  %s\n", cfg.Backend.BaseURL)
	if !healthy {
		fmt.Println("Status:   unreachable")
		os.Exit(1)
	}
	fmt.Println("Status:   online")

	stats, err := client.Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Stats unavailable: %v\n", askError(err))
		return
	}
	fmt.Printf("Workspace: %s\n", stats.Workspace)
	fmt.Printf("Jobs:      %d active, %d completed, %d failed\n",
		stats.ActiveJobs, stats.CompletedJobs, stats.FailedJobs)
}
