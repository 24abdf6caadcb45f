// Package knowledge answers guest questions about the menu and the restaurant from
// retrieved catalog context.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/tableside/internal/llm"
	"github.com/Veraticus/tableside/internal/model"
)

// DefaultTopK is how many catalog items are retrieved as context for a question.
const DefaultTopK = 3

// NoAnswer is spoken when the model returns nothing usable.
const NoAnswer = "I'm sorry, I don't have that information."

const answerSystemPrompt = `You answer guest questions for a restaurant.
Answer based only on the context provided. If the context does not contain the answer, say you don't have that information.
Keep the answer to one or two short sentences.`

// Retriever finds the catalog items closest to a piece of text.
type Retriever interface {
	Nearest(ctx context.Context, text string, k int) (model.MatchCandidates, error)
}

// Venue is the static restaurant information offered as context.
type Venue struct {
	Name string
	Info string
}

// Answerer runs retrieve-then-answer for QUESTION turns.
type Answerer struct {
	client    llm.Client
	retriever Retriever
	logger    *slog.Logger
	venue     Venue
	timeout   time.Duration
	topK      int
}

// NewAnswerer creates an answerer.
func NewAnswerer(client llm.Client, retriever Retriever, venue Venue, timeout time.Duration, logger *slog.Logger) *Answerer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Answerer{
		client:    client,
		retriever: retriever,
		venue:     venue,
		timeout:   timeout,
		topK:      DefaultTopK,
		logger:    logger,
	}
}

// Answer replies to question using only the nearest catalog items and the venue
// information.
func (a *Answerer) Answer(ctx context.Context, question string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	nearest, err := a.retriever.Nearest(ctx, question, a.topK)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve context: %w", err)
	}

	content, err := a.client.Complete(ctx, answerSystemPrompt, buildPrompt(a.venue, nearest, question))
	if err != nil {
		return "", err
	}

	answer := strings.TrimSpace(content)
	if answer == "" {
		return NoAnswer, nil
	}

	a.logger.Debug("answered question", "context_items", len(nearest))
	return answer, nil
}

func buildPrompt(venue Venue, items model.MatchCandidates, question string) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	if venue.Name != "" {
		fmt.Fprintf(&b, "Restaurant: %s\n", venue.Name)
	}
	if venue.Info != "" {
		fmt.Fprintf(&b, "%s\n", strings.TrimSpace(venue.Info))
	}
	for _, candidate := range items {
		b.WriteString(describe(candidate.Item))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nQuestion: %s", question)
	return b.String()
}

// describe renders one item as a context line.
func describe(item model.CatalogItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- %s", item.DisplayName)
	if item.Price > 0 {
		fmt.Fprintf(&b, " ($%.2f)", item.Price)
	}
	if item.Description != "" {
		fmt.Fprintf(&b, ": %s.", item.Description)
	}
	if len(item.Ingredients) > 0 {
		fmt.Fprintf(&b, " Ingredients: %s.", strings.Join(item.Ingredients, ", "))
	}
	if len(item.Allergens) > 0 {
		fmt.Fprintf(&b, " Allergens: %s.", strings.Join(item.Allergens, ", "))
	} else {
		b.WriteString(" Allergens: none listed.")
	}
	for _, group := range item.OptionGroups {
		fmt.Fprintf(&b, " %s choices: %s.", group.Name, strings.Join(group.Choices, ", "))
	}
	return b.String()
}
