// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"

	"github.com/chattaio/chattai-tui/internal/backend"
	"github.com/chattaio/chattai-tui/internal/model"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input    string
		wantName string
		wantArgs string
	}{
		{"/new", "new", ""},
		{"/mode hybrid", "mode", "hybrid"},
		{"/upload /tmp/report.pdf", "upload", "/tmp/report.pdf"},
		{"/prompt Answer briefly and cite sources.", "prompt", "Answer briefly and cite sources."},
		{"/TOPK 5", "topk", "5"},
		{"/search  spaced  ", "search", "spaced"},
	}

	for _, tt := range tests {
		name, args := parseCommand(tt.input)
		if name != tt.wantName || args != tt.wantArgs {
			t.Errorf("parseCommand(%q) = (%q, %q), want (%q, %q)",
				tt.input, name, args, tt.wantName, tt.wantArgs)
		}
	}
}

func TestUploadStatusLabel(t *testing.T) {
	tests := []struct {
		status    model.UploadStatus
		wantLabel string
	}{
		{model.UploadQueued, "queued"},
		{model.UploadProcessing, "indexing"},
		{model.UploadDone, "indexed"},
		{model.UploadFailed, "failed"},
	}

	for _, tt := range tests {
		_, label := uploadStatusLabel(tt.status)
		if label != tt.wantLabel {
			t.Errorf("uploadStatusLabel(%s) label = %q, want %q", tt.status, label, tt.wantLabel)
		}
	}
}

func TestFormatStats(t *testing.T) {
	out := formatStats(&backend.StatsResponse{
		Workspace:     "research",
		WorkingDir:    "/data/rag",
		ActiveJobs:    2,
		CompletedJobs: 14,
		FailedJobs:    1,
	})

	for _, want := range []string{"research", "/data/rag", "active jobs:    2", "completed jobs: 14", "failed jobs:    1"} {
		if !strings.Contains(out, want) {
			t.Errorf("formatStats output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatDocs(t *testing.T) {
	out := formatDocs(map[string]string{
		"b2": "notes.md",
		"a1": "report.pdf",
	})

	// Sorted by ID, count in header
	if !strings.Contains(out, "Indexed documents (2)") {
		t.Errorf("missing header: %s", out)
	}
	if strings.Index(out, "a1") > strings.Index(out, "b2") {
		t.Errorf("expected sorted order:\n%s", out)
	}
}

func TestFormatDocsEmpty(t *testing.T) {
	if out := formatDocs(nil); out != "No documents indexed." {
		t.Errorf("unexpected empty listing: %q", out)
	}
}
