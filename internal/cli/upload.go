// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"
)

// HandleUpload uploads a document and waits for the ingestion job to
// finish, printing progress along the way.
func HandleUpload(args Args) {
	if args.File == "" {
		fmt.Fprintln(os.Stderr, "Usage: chattai upload <file>")
		os.Exit(1)
	}

	cfg, err := loadConfig(args)
	if err != nil {
		fatal(err)
	}
	client := NewBackendClient(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	filename := filepath.Base(args.File)
	if !args.Quiet {
		fmt.Printf("Uploading %s...\n", filename)
	}

	resp, err := client.UploadFile(ctx, args.File)
	if err != nil {
		fatal(askError(err))
	}
	if resp.Skipped() {
		fmt.Printf("Already indexed: %s\n", filename)
		return
	}

	if !args.Quiet {
		fmt.Printf("Job %s queued, waiting for indexing...\n", resp.JobID)
	}

	ticker := time.NewTicker(cfg.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "Interrupted; the job keeps running on the backend.")
			os.Exit(1)
		case <-ticker.C:
		}

		status, err := client.JobStatus(ctx, resp.JobID)
		if err != nil {
			continue
		}
		switch status.Status {
		case "completed":
			fmt.Printf("Indexed: %s\n", filename)
			return
		case "failed":
			detail := status.Error
			if detail == "" {
				detail = "ingestion failed"
			}
			fmt.Fprintf(os.Stderr, "Failed: %s\n", detail)
			os.Exit(1)
		}
	}
}
