// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chattaio/chattai-tui/internal/backend"
	"github.com/chattaio/chattai-tui/internal/model"
)

// uploadStatusLabel returns the icon and label for an upload card state.
func uploadStatusLabel(status model.UploadStatus) (icon, label string) {
	switch status {
	case model.UploadQueued:
		return "…", "queued"
	case model.UploadProcessing:
		return "⟳", "indexing"
	case model.UploadDone:
		return "✓", "indexed"
	case model.UploadFailed:
		return "✗", "failed"
	default:
		return "?", string(status)
	}
}

// formatStats renders workspace statistics as transcript text.
func formatStats(stats *backend.StatsResponse) string {
	var b strings.Builder
	b.WriteString("Workspace statistics\n")
	fmt.Fprintf(&b, "  workspace:      %s\n", stats.Workspace)
	fmt.Fprintf(&b, "  working dir:    %s\n", stats.WorkingDir)
	fmt.Fprintf(&b, "  active jobs:    %d\n", stats.ActiveJobs)
	fmt.Fprintf(&b, "  completed jobs: %d\n", stats.CompletedJobs)
	fmt.Fprintf(&b, "  failed jobs:    %d", stats.FailedJobs)
	return b.String()
}

// formatDocs renders the indexed document listing as transcript text.
// Entries are sorted by ID for stable output.
func formatDocs(docs map[string]string) string {
	if len(docs) == 0 {
		return "No documents indexed."
	}

	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	fmt.Fprintf(&b, "Indexed documents (%d)\n", len(ids))
	for i, id := range ids {
		fmt.Fprintf(&b, "  %s  %s", id, docs[id])
		if i < len(ids)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
