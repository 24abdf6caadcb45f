package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/Veraticus/tableside/internal/orchestrator"
	"github.com/spf13/cobra"
)

type turner interface {
	Turn(ctx context.Context, req orchestrator.Request) orchestrator.Response
}

func turnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "turn",
		Short: "Handle one turn read as JSON from stdin",
		Long: `Read a turn request from stdin and write the response to stdout.

The request has the same shape as the body of POST /v1/turns:

  {"sessionId": "s1", "guestId": "g1", "utterance": "two gyoza", "sessionAttributes": {}}

Feed the sessionAttributes of each response into the next request to carry
the conversation forward.`,
		RunE: runTurn,
	}
}

func runTurn(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer a.Close()

	return handleTurn(ctx, a.orchestrator, cmd.InOrStdin(), cmd.OutOrStdout())
}

// handleTurn decodes one request from r and writes the indented response to w.
func handleTurn(ctx context.Context, t turner, r io.Reader, w io.Writer) error {
	var req orchestrator.Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return fmt.Errorf("failed to decode turn request: %w", err)
	}

	resp := t.Turn(ctx, req)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(resp); err != nil {
		return fmt.Errorf("failed to write turn response: %w", err)
	}
	return nil
}
