package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Veraticus/tableside/internal/catalog"
	"github.com/Veraticus/tableside/internal/cli"
	"github.com/Veraticus/tableside/internal/llm"
	"github.com/Veraticus/tableside/internal/model"
	"github.com/Veraticus/tableside/internal/service"
	"github.com/spf13/cobra"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the menu",
		Long:  `Import menu items, precompute their embedding vectors, and list what is on the menu.`,
	}

	cmd.AddCommand(catalogImportCmd())
	cmd.AddCommand(catalogEmbedCmd())
	cmd.AddCommand(catalogListCmd())

	return cmd
}

func catalogImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <menu.yaml|menu.json>",
		Short: "Import menu items from a YAML or JSON file",
		Long: `Insert or update menu items from a file.

Items are keyed by id. Re-importing an item keeps its vector unless its
name or description changed; run "catalog embed" afterwards (or pass
--embed) to fill in missing vectors.`,
		Args: cobra.ExactArgs(1),
		RunE: runCatalogImport,
	}

	cmd.Flags().Bool("embed", false, "precompute vectors after importing")

	return cmd
}

func runCatalogImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	embed, _ := cmd.Flags().GetBool("embed")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStorage(ctx, cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	count, err := importMenu(ctx, store, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Imported %d menu items from %s", count, filepath.Base(args[0]))))

	if !embed {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(`Run "tableside catalog embed" to make them matchable`))
		return nil
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	return embedMenu(ctx, store, embedder, false, cmd.OutOrStdout())
}

// importMenu parses a menu file and saves its items.
func importMenu(ctx context.Context, store service.CatalogStore, path string) (int, error) {
	f, err := os.Open(path) //nolint:gosec // path is provided by the operator
	if err != nil {
		return 0, fmt.Errorf("failed to open menu: %w", err)
	}
	defer func() { _ = f.Close() }()

	items, err := catalog.ParseMenu(f, path)
	if err != nil {
		return 0, err
	}

	if err := store.SaveCatalogItems(ctx, items); err != nil {
		return 0, fmt.Errorf("failed to save menu: %w", err)
	}

	slog.Info("Menu imported", "file", path, "items", len(items))
	return len(items), nil
}

func catalogEmbedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Precompute embedding vectors for menu items",
		Long: `Compute a vector for every menu item that lacks one.

Items without a vector can still be found by exact name, but not by
similarity. Use --force to recompute every vector, for example after
switching embedding models.`,
		RunE: runCatalogEmbed,
	}

	cmd.Flags().Bool("force", false, "re-embed items that already have a vector")

	return cmd
}

func runCatalogEmbed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	force, _ := cmd.Flags().GetBool("force")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStorage(ctx, cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}

	return embedMenu(ctx, store, embedder, force, cmd.OutOrStdout())
}

// embedMenu precomputes vectors with a progress bar on w.
func embedMenu(ctx context.Context, store service.CatalogStore, embedder llm.Embedder, force bool, w io.Writer) error {
	items, err := store.ListCatalogItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to list menu: %w", err)
	}

	pending := catalog.PendingEmbeddings(items, force)
	if len(pending) == 0 {
		fmt.Fprintln(w, cli.FormatSuccess("Every menu item already has a vector"))
		return nil
	}

	bar := cli.NewProgress(w, len(pending), "Embedding menu")
	result, err := catalog.EmbedCatalog(ctx, store, embedder, catalog.EmbedOptions{
		Progress: func(model.CatalogItem) { bar.Step() },
		Force:    force,
	}, slog.Default())
	if err != nil {
		fmt.Fprintln(w, cli.FormatError(fmt.Sprintf("Embedded %d items before failing", result.Embedded)))
		return err
	}
	bar.Finish()

	fmt.Fprintln(w, cli.FormatSuccess(fmt.Sprintf("Embedded %d items (%d already had vectors)", result.Embedded, result.Skipped)))
	return nil
}

func catalogListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List menu items",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := openStorage(ctx, cfg.Database.Path)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			items, err := store.ListCatalogItems(ctx)
			if err != nil {
				return fmt.Errorf("failed to list menu: %w", err)
			}

			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning("The menu is empty. Import one with \"tableside catalog import\""))
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatTitle(cfg.Restaurant.Name))
			fmt.Fprintln(cmd.OutOrStdout(), cli.MenuTable(items))
			return nil
		},
	}
}
