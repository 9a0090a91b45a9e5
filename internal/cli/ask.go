// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/chattaio/chattai-tui/internal/backend"
)

// HandleAsk runs a one-shot query against the backend and prints the
// answer. Tokens stream to stdout as they arrive unless markdown rendering
// is enabled, in which case the answer is rendered once complete.
func HandleAsk(args Args) {
	query := strings.TrimSpace(args.Query)
	if query == "" {
		fmt.Fprintln(os.Stderr, "Usage: chattai ask <question>")
		os.Exit(1)
	}

	cfg, err := loadConfig(args)
	if err != nil {
		fatal(err)
	}
	client := NewBackendClient(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	req := backend.QueryRequest{
		Question: query,
		Mode:     cfg.Chat.Mode,
		TopK:     cfg.Chat.TopK,
	}

	// Rendered output needs the whole answer; plain output streams live.
	if cfg.UI.RenderMarkdown && !args.Quiet {
		answer, err := client.StreamQueryAccumulate(ctx, req)
		if err != nil {
			fatal(askError(err))
		}
		fmt.Println(renderAnswer(answer))
		return
	}

	fragments, err := client.StreamQuery(ctx, req)
	if err != nil {
		fatal(askError(err))
	}
	for fragment := range fragments {
		if fragment.Err != nil {
			fmt.Println()
			fatal(askError(fragment.Err))
		}
		fmt.Print(fragment.Token)
	}
	fmt.Println()
}

// askError maps backend failures to user-facing messages.
func askError(err error) error {
	if errors.Is(err, backend.ErrRateLimited) {
		return errors.New("rate limit hit, wait a moment and try again")
	}
	var backendErr *backend.BackendError
	if errors.As(err, &backendErr) {
		return errors.New(backendErr.UserDetail())
	}
	return err
}

// renderAnswer formats the answer as markdown for the terminal.
func renderAnswer(answer string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return answer
	}
	rendered, err := renderer.Render(answer)
	if err != nil {
		return answer
	}
	return strings.TrimRight(rendered, "\n")
}
