// Package extraction reads structured order intent out of guest utterances with a
// language model: the items ordered, the intent of a turn, and the edits requested
// against an in-progress order. Model output is validated against a strict schema
// before anything leaves the package.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/tableside/internal/common"
	"github.com/Veraticus/tableside/internal/llm"
	"github.com/Veraticus/tableside/internal/model"
	"github.com/Veraticus/tableside/internal/service"
)

// DefaultTimeout bounds a single extraction, retries included.
const DefaultTimeout = 5 * time.Second

// Extractor turns utterances into order items, intents and change lists.
type Extractor struct {
	client  llm.Client
	logger  *slog.Logger
	timeout time.Duration
}

// NewExtractor creates an extractor. A non-positive timeout uses DefaultTimeout.
func NewExtractor(client llm.Client, timeout time.Duration, logger *slog.Logger) *Extractor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		client:  client,
		timeout: timeout,
		logger:  logger,
	}
}

// Extract returns the items named in utterance, in the order the model listed them.
// A malformed reply is retried once with a stricter instruction and then fails with
// common.ErrExtractionFailed. Running past the deadline fails immediately with
// common.ErrExtractionTimeout.
func (e *Extractor) Extract(ctx context.Context, utterance string) ([]model.ExtractedLineItem, error) {
	var items []model.ExtractedLineItem

	err := e.completeStrict(ctx, "extract", extractionSystemPrompt, buildExtractionPrompt(utterance), func(content string) error {
		parsed, err := decodeOrderItems(content)
		if err != nil {
			return err
		}
		items = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("extracted order items", "utterance", utterance, "count", len(items))
	return items, nil
}

// ParseChanges returns the edits a modification utterance asks for against current.
// It shares Extract's retry and timeout policy.
func (e *Extractor) ParseChanges(ctx context.Context, utterance string, current []model.ResolvedLineItem) ([]model.ExtractedChange, error) {
	var changes []model.ExtractedChange

	err := e.completeStrict(ctx, "changes", changesSystemPrompt, buildChangesPrompt(utterance, current), func(content string) error {
		parsed, err := decodeChanges(content)
		if err != nil {
			return err
		}
		changes = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("parsed order changes", "utterance", utterance, "count", len(changes))
	return changes, nil
}

// completeStrict runs one model call plus at most one stricter retry when decode
// rejects the reply.
func (e *Extractor) completeStrict(ctx context.Context, op, system, prompt string, decode func(string) error) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	err := common.WithRetry(ctx, func(attempt int) error {
		sys := system
		if attempt > 1 {
			sys += strictReformatInstruction
		}

		content, err := e.client.Complete(ctx, sys, prompt)
		if err != nil {
			return common.Permanent(classifyCallError(ctx, err))
		}

		if err := decode(content); err != nil {
			e.logger.Warn("model reply rejected",
				"op", op,
				"attempt", attempt,
				"error", err)
			return err
		}
		return nil
	}, service.RetryOptions{MaxAttempts: 2})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrMaxRetries):
		return fmt.Errorf("%w: %s: %w", common.ErrExtractionFailed, op, err)
	case errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, common.ErrExtractionTimeout):
		return fmt.Errorf("%w: %s: %w", common.ErrExtractionTimeout, op, err)
	default:
		return err
	}
}

// classifyCallError maps a failed model call onto the extraction error kinds.
func classifyCallError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", common.ErrExtractionTimeout, err)
	case errors.Is(err, context.Canceled), errors.Is(err, common.ErrProviderUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %w", common.ErrProviderUnavailable, err)
	}
}
