// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/chattaio/chattai-tui/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter renders conversations as Markdown documents.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a conversation to Markdown format.
func (e *MarkdownExporter) Export(conv model.Conversation) ([]byte, error) {
	if len(conv.Messages) == 0 {
		return nil, fmt.Errorf("conversation has no messages")
	}

	var sb strings.Builder

	// YAML frontmatter with metadata
	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("title: %s\n", escapeYAML(conv.Title)))
		sb.WriteString(fmt.Sprintf("date: %s\n", conv.CreatedAt.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("updated: %s\n", conv.UpdatedAt.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("messages: %d\n", len(conv.Messages)))
		sb.WriteString(fmt.Sprintf("exported: %s\n", time.Now().Format(time.RFC3339)))
		sb.WriteString("generator: chattai-tui\n")
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(conv.Title)))

	for i, msg := range conv.Messages {
		label := msg.Role.DisplayName()
		if e.options.IncludeTimestamps {
			sb.WriteString(fmt.Sprintf("### %s <sub>%s</sub>\n\n",
				label, msg.CreatedAt.Format("2006-01-02 15:04")))
		} else {
			sb.WriteString(fmt.Sprintf("### %s\n\n", label))
		}

		if msg.UploadCard != nil {
			sb.WriteString(formatUploadCard(msg.UploadCard))
		} else {
			sb.WriteString(msg.Content)
		}
		sb.WriteString("\n\n")

		if len(msg.Citations) > 0 {
			sb.WriteString("**Sources:**\n\n")
			for _, c := range msg.Citations {
				if c.Snippet != "" {
					sb.WriteString(fmt.Sprintf("%d. %s — %s\n", c.Index, escapeMarkdown(c.Source), escapeMarkdown(c.Snippet)))
				} else {
					sb.WriteString(fmt.Sprintf("%d. %s\n", c.Index, escapeMarkdown(c.Source)))
				}
			}
			sb.WriteString("\n")
		}

		if i < len(conv.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func formatUploadCard(card *model.UploadCard) string {
	line := fmt.Sprintf("*Upload: %s (%s)*", card.Filename, card.Status)
	if card.Error != "" {
		line += fmt.Sprintf("\n\n> %s", card.Error)
	}
	return line
}

// escapeMarkdown escapes characters that would change heading or emphasis
// rendering when they appear in titles or source names.
func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"#", "\\#",
		"*", "\\*",
		"_", "\\_",
		"[", "\\[",
		"]", "\\]",
	)
	return replacer.Replace(s)
}

// escapeYAML quotes a string for use as a YAML scalar value.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#'\"\n") {
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", " ")
		return "\"" + s + "\""
	}
	return s
}
