// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"

	"github.com/chattaio/chattai-tui/internal/model"
)

// =============================================================================
// TEXT EXPORTER
// =============================================================================

// TextExporter renders conversations as plain text transcripts.
type TextExporter struct {
	options *Options
}

// NewTextExporter creates a new plain-text exporter.
func NewTextExporter(opts *Options) *TextExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &TextExporter{options: opts}
}

// Export converts a conversation to plain text.
func (e *TextExporter) Export(conv model.Conversation) ([]byte, error) {
	if len(conv.Messages) == 0 {
		return nil, fmt.Errorf("conversation has no messages")
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString(conv.Title + "\n")
		sb.WriteString(strings.Repeat("=", len(conv.Title)) + "\n")
		sb.WriteString(fmt.Sprintf("Created: %s\n", conv.CreatedAt.Format("2006-01-02 15:04")))
		sb.WriteString(fmt.Sprintf("Messages: %d\n\n", len(conv.Messages)))
	}

	for _, msg := range conv.Messages {
		label := msg.Role.DisplayName()
		if e.options.IncludeTimestamps {
			sb.WriteString(fmt.Sprintf("[%s] %s:\n", msg.CreatedAt.Format("15:04"), label))
		} else {
			sb.WriteString(label + ":\n")
		}

		if msg.UploadCard != nil {
			sb.WriteString(fmt.Sprintf("  (upload: %s, %s)\n", msg.UploadCard.Filename, msg.UploadCard.Status))
			if msg.UploadCard.Error != "" {
				sb.WriteString("  " + msg.UploadCard.Error + "\n")
			}
		} else {
			for _, line := range strings.Split(msg.Content, "\n") {
				sb.WriteString("  " + line + "\n")
			}
		}

		for _, c := range msg.Citations {
			sb.WriteString(fmt.Sprintf("  [%d] %s\n", c.Index, c.Source))
		}

		sb.WriteString("\n")
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for plain text.
func (e *TextExporter) FileExtension() string {
	return ".txt"
}
