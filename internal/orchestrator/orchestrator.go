// Package orchestrator handles one dialog turn end to end: it decodes the session
// state the channel echoed back, classifies the utterance, calls extraction, the
// catalog, the mutation engine and the recommenders as the stage requires, feeds
// the results through the dialog state machine and returns the reply plus the new
// session attributes. It keeps no state between turns, so one Orchestrator serves
// any number of sessions concurrently.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/tableside/internal/common"
	"github.com/Veraticus/tableside/internal/dialog"
	"github.com/Veraticus/tableside/internal/metrics"
	"github.com/Veraticus/tableside/internal/model"
	"github.com/Veraticus/tableside/internal/mutation"
	"github.com/Veraticus/tableside/internal/recommend"
	"github.com/google/uuid"
)

// Defaults used when Config leaves a field zero.
const (
	DefaultTurnTimeout       = 10 * time.Second
	DefaultMatchItemTimeout  = 3 * time.Second
	DefaultHighThreshold     = 0.85
	DefaultMaxConfirmRetries = 2
	maxConcurrentMatches     = 8
)

// Request is one inbound turn.
type Request struct {
	SessionAttributes map[string]string `json:"sessionAttributes,omitempty"`
	SessionID         string            `json:"sessionId"`
	GuestID           string            `json:"guestId,omitempty"`
	Utterance         string            `json:"utterance"`
}

// Response is the reply to one turn. SessionAttributes must be sent back verbatim
// with the next turn of the same session.
type Response struct {
	SessionAttributes map[string]string `json:"sessionAttributes"`
	Directive         dialog.Directive  `json:"directive"`
	Message           string            `json:"message"`
}

// Extractor reads items and intents out of utterances.
type Extractor interface {
	Extract(ctx context.Context, utterance string) ([]model.ExtractedLineItem, error)
	ClassifyIntent(ctx context.Context, utterance string, stage model.Stage, hasItems bool) (model.Intent, error)
}

// Matcher resolves item names and lists the menu.
type Matcher interface {
	Match(ctx context.Context, name string) (model.MatchResult, error)
	Items(ctx context.Context) ([]model.CatalogItem, error)
}

// Mutator applies modification utterances to an order.
type Mutator interface {
	Apply(ctx context.Context, current []model.ResolvedLineItem, utterance string, menu dialog.Menu) (mutation.Result, error)
}

// Answerer answers menu and venue questions.
type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

// ReorderMemory finds a guest's previous order.
type ReorderMemory interface {
	LastOrderFor(ctx context.Context, guestID string) (*model.FinalizedOrder, error)
}

// OrderWriter persists finalized orders.
type OrderWriter interface {
	SaveOrder(ctx context.Context, order *model.FinalizedOrder) error
}

// Config tunes turn handling.
type Config struct {
	TurnTimeout       time.Duration
	MatchItemTimeout  time.Duration
	IdleTimeout       time.Duration
	HighThreshold     float64
	MaxConfirmRetries int
	ClarifyAmbiguous  bool
}

func (c Config) withDefaults() Config {
	if c.TurnTimeout <= 0 {
		c.TurnTimeout = DefaultTurnTimeout
	}
	if c.MatchItemTimeout <= 0 || c.MatchItemTimeout > c.TurnTimeout {
		c.MatchItemTimeout = min(DefaultMatchItemTimeout, c.TurnTimeout)
	}
	if c.HighThreshold <= 0 {
		c.HighThreshold = DefaultHighThreshold
	}
	if c.MaxConfirmRetries < 0 {
		c.MaxConfirmRetries = DefaultMaxConfirmRetries
	}
	return c
}

// Deps are the collaborators of an Orchestrator. Metrics, Logger, Now and NewID
// may be nil.
type Deps struct {
	Extractor   Extractor
	Matcher     Matcher
	Mutator     Mutator
	Recommender recommend.Recommender
	Answerer    Answerer
	Reorder     ReorderMemory
	Orders      OrderWriter
	Metrics     metrics.Recorder
	Logger      *slog.Logger
	Now         func() time.Time
	NewID       func() string
}

// Orchestrator is the turn entry point.
type Orchestrator struct {
	extractor   Extractor
	matcher     Matcher
	mutator     Mutator
	recommender recommend.Recommender
	answerer    Answerer
	reorder     ReorderMemory
	orders      OrderWriter
	metrics     metrics.Recorder
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
	cfg         Config
}

// New creates an orchestrator.
func New(deps Deps, cfg Config) *Orchestrator {
	o := &Orchestrator{
		extractor:   deps.Extractor,
		matcher:     deps.Matcher,
		mutator:     deps.Mutator,
		recommender: deps.Recommender,
		answerer:    deps.Answerer,
		reorder:     deps.Reorder,
		orders:      deps.Orders,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		now:         deps.Now,
		newID:       deps.NewID,
		cfg:         cfg.withDefaults(),
	}
	if o.metrics == nil {
		o.metrics = metrics.Nop{}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	return o
}

// Turn handles one utterance. It never fails: every error is turned into a reply
// the guest can act on, and on systemic failures the returned session attributes
// carry the state as it was before the turn so the guest can simply try again.
func (o *Orchestrator) Turn(ctx context.Context, req Request) Response {
	start := o.now()

	ctx, cancel := context.WithTimeout(ctx, o.cfg.TurnTimeout)
	defer cancel()

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = o.newID()
	}
	logger := o.logger.With("session_id", sessionID)

	state, restarted := o.loadState(req, sessionID, start, logger)
	before := state.Clone()

	var reply dialog.Reply
	if restarted {
		reply = dialog.Elicit(dialog.SlotOrder, dialog.MsgAskItems).Prefixed(dialog.MsgRestarted)
	} else {
		menu, err := o.menu(ctx)
		if err == nil {
			reply, err = o.handle(ctx, &state, menu, req.Utterance, logger)
		}
		if err != nil {
			o.metrics.TurnError(common.Kind(err))
			logger.Warn("turn degraded",
				"stage", before.Stage,
				"kind", common.Kind(err),
				"error", err)

			state = before
			reply = dialog.Reprompt(&state, menu).Prefixed(dialog.MsgTrouble)
		}
	}

	state.UpdatedAt = start
	attrs, err := dialog.EncodeSession(state)
	if err != nil {
		o.metrics.TurnError(common.Kind(err))
		logger.Error("failed to encode session state", "error", err)
		attrs = map[string]string{}
		reply = dialog.Close(dialog.FulfillmentFailed, dialog.MsgTrouble)
	}

	elapsed := o.now().Sub(start)
	o.metrics.ObserveTurn(string(state.Stage), string(state.LastUtteranceIntent), elapsed)
	logger.Info("turn handled",
		"from", before.Stage,
		"to", state.Stage,
		"intent", state.LastUtteranceIntent,
		"directive", reply.Directive.Type,
		"elapsed", elapsed)

	return Response{
		Directive:         reply.Directive,
		Message:           reply.Message,
		SessionAttributes: attrs,
	}
}

// loadState decodes the session attributes. A missing or idle-expired state starts
// a new conversation; an undecodable one also starts over and reports restarted.
func (o *Orchestrator) loadState(req Request, sessionID string, now time.Time, logger *slog.Logger) (model.DialogState, bool) {
	guestID := req.GuestID
	if guestID == "" {
		guestID = req.SessionAttributes[dialog.AttrGuestID]
	}

	state, found, err := dialog.DecodeSession(req.SessionAttributes, sessionID)
	switch {
	case err != nil:
		o.metrics.TurnError(common.Kind(err))
		logger.Warn("discarding corrupt session state", "error", err)
		return model.NewDialogState(sessionID, o.guestOrNew(guestID), now), true

	case !found:
		return model.NewDialogState(sessionID, o.guestOrNew(guestID), now), false

	case state.Expired(now, o.cfg.IdleTimeout):
		logger.Info("session idle too long, starting over", "idle", now.Sub(state.UpdatedAt))
		if guestID == "" {
			guestID = state.GuestID
		}
		return model.NewDialogState(sessionID, o.guestOrNew(guestID), now), false
	}

	if state.GuestID == "" {
		state.GuestID = o.guestOrNew(guestID)
	}
	return state, false
}

// guestOrNew mints an ephemeral guest id when the channel supplied none.
func (o *Orchestrator) guestOrNew(guestID string) string {
	if guestID != "" {
		return guestID
	}
	return o.newID()
}

// menu loads the catalog for this turn.
func (o *Orchestrator) menu(ctx context.Context) (dialog.Menu, error) {
	items, err := o.matcher.Items(ctx)
	if err != nil {
		if errors.Is(err, common.ErrProviderUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: catalog: %w", common.ErrProviderUnavailable, err)
	}
	return dialog.NewMenu(items), nil
}
