// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// HandleDocs lists or deletes indexed documents.
func HandleDocs(args Args) {
	cfg, err := loadConfig(args)
	if err != nil {
		fatal(err)
	}
	client := NewBackendClient(cfg)
	ctx := context.Background()

	switch args.Subcommand {
	case "", "list", "ls":
		docs, err := client.ListDocuments(ctx)
		if err != nil {
			fatal(askError(err))
		}
		if args.JSON {
			json.NewEncoder(os.Stdout).Encode(docs)
			return
		}
		if len(docs) == 0 {
			fmt.Println("No documents indexed.")
			return
		}
		ids := make([]string, 0, len(docs))
		for id := range docs {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Printf("%s  %s\n", id, docs[id])
		}

	case "rm", "delete":
		if len(args.Raw) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: chattai docs rm <id>")
			os.Exit(1)
		}
		docID := args.Raw[0]
		resp, err := client.DeleteDocument(ctx, docID)
		if err != nil {
			fatal(askError(err))
		}
		if resp.Message != "" {
			fmt.Println(resp.Message)
		} else {
			fmt.Printf("Deleted %s\n", docID)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown docs subcommand %q\n", args.Subcommand)
		os.Exit(1)
	}
}
