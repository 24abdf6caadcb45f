// Package recommend picks a dish to suggest to a guest, either from the popularity
// ranking or by asking a language model and checking its answer against the catalog.
package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/tableside/internal/common"
	"github.com/Veraticus/tableside/internal/config"
	"github.com/Veraticus/tableside/internal/llm"
	"github.com/Veraticus/tableside/internal/model"
)

// DefaultTopN is how many of the most popular items the static policy samples from.
const DefaultTopN = 3

// Sources of a Suggestion.
const (
	SourceStatic     = "static"
	SourceGenerative = "generative"
)

// Suggestion is a recommended catalog item plus the sentence used to offer it.
type Suggestion struct {
	Item    model.CatalogItem
	Message string
	Source  string
}

// Recommender suggests one item for a guest's question.
type Recommender interface {
	Recommend(ctx context.Context, question string) (Suggestion, error)
}

// Catalog is the read side of the catalog matcher.
type Catalog interface {
	Items(ctx context.Context) ([]model.CatalogItem, error)
	Match(ctx context.Context, name string) (model.MatchResult, error)
	Item(ctx context.Context, id string) (model.CatalogItem, error)
}

// Static samples uniformly from the top-N ranked items.
type Static struct {
	catalog Catalog
	rng     *rand.Rand
	topN    int
	mu      sync.Mutex
}

// NewStatic creates a static recommender. A nil rng is seeded from the clock.
func NewStatic(catalog Catalog, topN int, rng *rand.Rand) *Static {
	if topN <= 0 {
		topN = DefaultTopN
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Static{
		catalog: catalog,
		topN:    topN,
		rng:     rng,
	}
}

// Recommend implements Recommender. Questions about drinks sample from drinks only.
func (s *Static) Recommend(ctx context.Context, question string) (Suggestion, error) {
	items, err := s.catalog.Items(ctx)
	if err != nil {
		return Suggestion{}, fmt.Errorf("failed to list catalog: %w", err)
	}

	pool := items
	if asksForDrink(question) {
		var drinks []model.CatalogItem
		for _, item := range items {
			if item.IsDrink() {
				drinks = append(drinks, item)
			}
		}
		if len(drinks) > 0 {
			pool = drinks
		}
	}

	top := TopRanked(pool, s.topN)
	if len(top) == 0 {
		return Suggestion{}, fmt.Errorf("%w: catalog is empty", common.ErrNotFound)
	}

	s.mu.Lock()
	pick := top[s.rng.Intn(len(top))]
	s.mu.Unlock()

	return Suggestion{
		Item:    pick,
		Message: fmt.Sprintf("The %s is one of our most popular choices.", pick.DisplayName),
		Source:  SourceStatic,
	}, nil
}

// TopRanked returns the n most popular items. Unranked items only fill the list
// when there are fewer than n ranked ones.
func TopRanked(items []model.CatalogItem, n int) []model.CatalogItem {
	ranked := make([]model.CatalogItem, len(items))
	copy(ranked, items)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.PopularityRank != b.PopularityRank {
			return model.BetterRank(a.PopularityRank, b.PopularityRank)
		}
		return a.DisplayName < b.DisplayName
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

func asksForDrink(question string) bool {
	q := strings.ToLower(question)
	for _, word := range []string{"drink", "beverage", "thirsty"} {
		if strings.Contains(q, word) {
			return true
		}
	}
	return false
}

const generativeSystemPrompt = `You are a friendly restaurant server recommending exactly one dish from the menu below.
Only recommend items that appear on the menu. Respond with a single JSON object:
{"item_name": "<exact menu name>", "reason": "<one short sentence>"}`

type generativeReply struct {
	ItemName string `json:"item_name"`
	Reason   string `json:"reason"`
}

// Generative asks the model for a suggestion and only offers it if the name it
// returns resolves to a catalog item. Anything else falls back.
type Generative struct {
	client        llm.Client
	catalog       Catalog
	fallback      Recommender
	logger        *slog.Logger
	timeout       time.Duration
	highThreshold float64
}

// NewGenerative creates a generative recommender. fallback answers whenever the
// model fails or names something that is not on the menu.
func NewGenerative(client llm.Client, catalog Catalog, fallback Recommender, highThreshold float64, timeout time.Duration, logger *slog.Logger) *Generative {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generative{
		client:        client,
		catalog:       catalog,
		fallback:      fallback,
		highThreshold: highThreshold,
		timeout:       timeout,
		logger:        logger,
	}
}

// Recommend implements Recommender.
func (g *Generative) Recommend(ctx context.Context, question string) (Suggestion, error) {
	suggestion, err := g.generate(ctx, question)
	if err == nil {
		return suggestion, nil
	}
	if ctx.Err() != nil {
		return Suggestion{}, err
	}

	g.logger.Warn("generated recommendation rejected, using popularity ranking", "error", err)
	return g.fallback.Recommend(ctx, question)
}

func (g *Generative) generate(ctx context.Context, question string) (Suggestion, error) {
	items, err := g.catalog.Items(ctx)
	if err != nil {
		return Suggestion{}, fmt.Errorf("failed to list catalog: %w", err)
	}
	if len(items) == 0 {
		return Suggestion{}, fmt.Errorf("%w: catalog is empty", common.ErrNotFound)
	}

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	content, err := g.client.Complete(callCtx, generativeSystemPrompt, buildPrompt(items, question))
	if err != nil {
		return Suggestion{}, err
	}

	var reply generativeReply
	if err := json.Unmarshal([]byte(llm.LocateJSON(content)), &reply); err != nil {
		return Suggestion{}, fmt.Errorf("%w: %w", common.ErrExtractionFormat, err)
	}
	if strings.TrimSpace(reply.ItemName) == "" {
		return Suggestion{}, fmt.Errorf("%w: missing item_name", common.ErrExtractionFormat)
	}

	match, err := g.catalog.Match(ctx, reply.ItemName)
	if err != nil {
		return Suggestion{}, err
	}
	if !match.Exact && match.Confidence < g.highThreshold {
		return Suggestion{}, &common.MatchError{
			Err:        common.ErrNoMatchFound,
			Query:      reply.ItemName,
			Candidate:  match.DisplayName,
			Similarity: match.Confidence,
		}
	}

	item, err := g.catalog.Item(ctx, match.CatalogItemID)
	if err != nil {
		return Suggestion{}, err
	}

	message := fmt.Sprintf("I'd recommend the %s.", item.DisplayName)
	if reason := strings.TrimSpace(reply.Reason); reason != "" {
		message = fmt.Sprintf("I'd recommend the %s. %s", item.DisplayName, reason)
	}

	g.logger.Debug("generated recommendation", "item", item.ID, "proposed", reply.ItemName)
	return Suggestion{Item: item, Message: message, Source: SourceGenerative}, nil
}

func buildPrompt(items []model.CatalogItem, question string) string {
	var b strings.Builder
	b.WriteString("Menu:\n")
	for _, item := range items {
		fmt.Fprintf(&b, "- %s", item.DisplayName)
		if item.Category != "" {
			fmt.Fprintf(&b, " (%s)", item.Category)
		}
		if item.Description != "" {
			fmt.Fprintf(&b, ": %s", item.Description)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nGuest asked: %q", question)
	return b.String()
}

// IsRecommendationRequest reports whether a question asks for a suggestion rather
// than for facts about the menu.
func IsRecommendationRequest(question string) bool {
	q := strings.ToLower(question)
	for _, phrase := range []string{
		"recommend", "suggest", "what's good", "what is good", "what's popular",
		"what is popular", "your favorite", "your favourite", "best dish", "should i get",
		"should i order", "should i try",
	} {
		if strings.Contains(q, phrase) {
			return true
		}
	}
	return false
}

// New builds the recommender for a configured policy.
func New(policy string, client llm.Client, catalog Catalog, topN int, highThreshold float64, timeout time.Duration, logger *slog.Logger) (Recommender, error) {
	static := NewStatic(catalog, topN, nil)
	switch policy {
	case config.PolicyStatic, "":
		return static, nil
	case config.PolicyGenerative:
		return NewGenerative(client, catalog, static, highThreshold, timeout, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown recommendation policy %q", common.ErrInvalidConfig, policy)
	}
}
