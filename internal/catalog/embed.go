package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/tableside/internal/common"
	"github.com/Veraticus/tableside/internal/llm"
	"github.com/Veraticus/tableside/internal/model"
	"github.com/Veraticus/tableside/internal/service"
)

// EmbedOptions controls a vector precompute run.
type EmbedOptions struct {
	// Progress is called once per item finished, from any worker goroutine.
	Progress func(item model.CatalogItem)
	Workers  int
	// Force re-embeds items that already have a vector.
	Force bool
	// Retry governs backoff on rate limits and request timeouts. Other
	// failures are not retried.
	Retry service.RetryOptions
}

// EmbedResult summarizes a precompute run.
type EmbedResult struct {
	Embedded int
	Skipped  int
}

// PendingEmbeddings returns the items a run would embed.
func PendingEmbeddings(items []model.CatalogItem, force bool) []model.CatalogItem {
	var pending []model.CatalogItem
	for _, item := range items {
		if force || !item.HasEmbedding() {
			pending = append(pending, item)
		}
	}
	return pending
}

// EmbedCatalog computes "<name> - <description>" vectors for catalog items and writes
// them back to the store. The first failure cancels the remaining work; vectors
// already written are kept.
func EmbedCatalog(ctx context.Context, store service.CatalogStore, embedder llm.Embedder, opts EmbedOptions, logger *slog.Logger) (EmbedResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	retry := opts.Retry
	if retry.MaxAttempts <= 0 {
		retry = service.RetryOptions{MaxAttempts: 4, InitialDelay: time.Second, MaxDelay: 10 * time.Second}
	}

	items, err := store.ListCatalogItems(ctx)
	if err != nil {
		return EmbedResult{}, fmt.Errorf("failed to list catalog: %w", err)
	}

	pending := PendingEmbeddings(items, opts.Force)
	result := EmbedResult{Skipped: len(items) - len(pending)}
	if len(pending) == 0 {
		return result, nil
	}

	var embedded atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, item := range pending {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var vector []float32
			err := common.WithRetry(gctx, func(int) error {
				v, err := embedder.Embed(gctx, item.EmbeddingText())
				if err != nil {
					if common.IsRetryable(err) {
						return err
					}
					return common.Permanent(err)
				}
				vector = v
				return nil
			}, retry)
			if err != nil {
				return fmt.Errorf("failed to embed %s: %w", item.ID, err)
			}
			if err := store.UpdateItemEmbedding(gctx, item.ID, vector); err != nil {
				return fmt.Errorf("failed to store vector for %s: %w", item.ID, err)
			}
			embedded.Add(1)
			logger.Debug("embedded catalog item", "item", item.ID, "dimensions", len(vector))
			if opts.Progress != nil {
				opts.Progress(item)
			}
			return nil
		})
	}

	err = g.Wait()
	result.Embedded = int(embedded.Load())
	if err != nil {
		return result, err
	}

	logger.Info("catalog vectors computed", "embedded", result.Embedded, "skipped", result.Skipped)
	return result, nil
}
