package main

import (
	"encoding/json"
	"fmt"

	"github.com/Veraticus/tableside/internal/cli"
	"github.com/spf13/cobra"
)

func ordersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect finalized orders",
	}

	cmd.AddCommand(ordersLastCmd())

	return cmd
}

func ordersLastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "last <guest-id>",
		Short: "Show a guest's most recent order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			guestID := args[0]
			asJSON, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := openStorage(ctx, cfg.Database.Path)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			order, err := store.LastOrderFor(ctx, guestID)
			if err != nil {
				return fmt.Errorf("failed to look up last order: %w", err)
			}

			out := cmd.OutOrStdout()
			if order == nil {
				fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("No orders for guest %s", guestID)))
				return nil
			}

			if asJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(order)
			}

			fmt.Fprintln(out, cli.OrderSummary(order))
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "print the order as JSON")

	return cmd
}
