package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Veraticus/tableside/internal/common"
	"github.com/Veraticus/tableside/internal/tui"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Order through an interactive console",
		Long: `Open a full-screen conversation with the ordering assistant.

Pass --guest to act as a returning guest and be offered your last order.
Logs are discarded unless --log-file is given, since they would draw over
the console.`,
		RunE: runChat,
	}

	cmd.Flags().String("guest", "", "guest id (default: a new anonymous guest)")
	cmd.Flags().String("log-file", "", "write logs to this file while chatting")

	return cmd
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	guestID, _ := cmd.Flags().GetString("guest")
	logFile, _ := cmd.Flags().GetString("log-file")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := common.Discard()
	if logFile != "" {
		f, openErr := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if openErr != nil {
			return fmt.Errorf("failed to open log file: %w", openErr)
		}
		defer func() { _ = f.Close() }()

		level, _ := common.ParseLevel(cfg.Logging.Level)
		if logger, err = common.NewLogger(f, level, cfg.Logging.Format); err != nil {
			return err
		}
	}

	previous := slog.Default()
	slog.SetDefault(logger)
	defer slog.SetDefault(previous)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return tui.Run(ctx, tui.Config{
		Turner:     a.orchestrator,
		NewSession: uuid.NewString,
		GuestID:    guestID,
		Restaurant: cfg.Restaurant.Name,
	})
}
