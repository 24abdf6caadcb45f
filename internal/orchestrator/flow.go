package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"

	"github.com/Veraticus/tableside/internal/common"
	"github.com/Veraticus/tableside/internal/dialog"
	"github.com/Veraticus/tableside/internal/metrics"
	"github.com/Veraticus/tableside/internal/model"
	"github.com/Veraticus/tableside/internal/mutation"
	"github.com/Veraticus/tableside/internal/recommend"
	"golang.org/x/sync/errgroup"
)

// handle routes one utterance. It mutates s freely; when it returns an error the
// caller throws s away.
func (o *Orchestrator) handle(ctx context.Context, s *model.DialogState, menu dialog.Menu, utterance string, logger *slog.Logger) (dialog.Reply, error) {
	utterance = strings.TrimSpace(utterance)
	logger.Debug("turn received", "stage", s.Stage, "utterance", utterance)

	if s.Stage == model.StageGreeting && s.ReorderOffer == nil {
		return o.greet(ctx, s, menu, utterance)
	}

	// Option answers like "spicy" skip intent classification and go straight to
	// the state machine.
	if _, ok := dialog.PendingChoice(s, menu, utterance); ok {
		s.LastUtteranceIntent = model.IntentOrder
		return dialog.AnswerOption(s, menu, utterance), nil
	}

	if utterance == "" {
		return dialog.Reprompt(s, menu), nil
	}

	intent, err := o.extractor.ClassifyIntent(ctx, utterance, s.Stage, s.HasItems())
	if err != nil {
		return dialog.Reply{}, err
	}
	s.LastUtteranceIntent = intent

	if intent == model.IntentQuestion {
		return o.answer(ctx, s, menu, utterance)
	}

	answer := model.ParseAnswer(utterance)
	if intent == model.IntentConfirm {
		switch {
		case s.Suggestion != nil:
			return dialog.ResolveSuggestion(s, menu, answer), nil
		case len(s.Clarifications) > 0:
			return dialog.ResolveClarification(s, menu, answer), nil
		}
	}
	s.Suggestion = nil

	switch s.Stage {
	case model.StageGreeting:
		return o.reorderAnswer(ctx, s, menu, intent, answer, utterance)

	case model.StageFulfilled:
		if intent == model.IntentOrder || intent == model.IntentModify {
			return dialog.Close(dialog.FulfillmentFulfilled, dialog.MsgNoChangeAfter), nil
		}
		// A repeated confirmation lands here and saves nothing.
		return dialog.Next(s, menu), nil

	case model.StageAwaitingConfirmation:
		switch intent {
		case model.IntentConfirm:
			return o.confirm(ctx, s, answer, logger)
		case model.IntentModify, model.IntentOrder:
			return o.modify(ctx, s, menu, utterance)
		default:
			_, reply := dialog.HandleConfirmation(s, model.AnswerNone, o.cfg.MaxConfirmRetries)
			return reply, nil
		}

	case model.StageModifying:
		if intent == model.IntentConfirm {
			if answer == model.AnswerNo {
				return dialog.Next(s, menu).Prefixed("Okay."), nil
			}
			return dialog.Reprompt(s, menu), nil
		}
		return o.modify(ctx, s, menu, utterance)

	case model.StageAwaitingDrink:
		switch intent {
		case model.IntentConfirm:
			if answer == model.AnswerNo {
				return dialog.DeclineDrink(s, menu), nil
			}
			return dialog.Elicit(dialog.SlotDrink, dialog.MsgAskDrinkName), nil
		case model.IntentOrder:
			return o.takeOrder(ctx, s, menu, utterance)
		case model.IntentModify:
			return o.modify(ctx, s, menu, utterance)
		}

	default:
		switch intent {
		case model.IntentOrder:
			return o.takeOrder(ctx, s, menu, utterance)
		case model.IntentModify:
			if s.HasItems() {
				return o.modify(ctx, s, menu, utterance)
			}
			return o.takeOrder(ctx, s, menu, utterance)
		case model.IntentConfirm:
			if s.Stage == model.StageResolvingOptions {
				return dialog.AnswerOption(s, menu, utterance), nil
			}
			return dialog.Reprompt(s, menu), nil
		}
	}

	return dialog.Reprompt(s, menu).Prefixed(dialog.MsgHelp), nil
}

// greet opens a conversation. A returning guest is offered their last order unless
// the first utterance already orders something.
func (o *Orchestrator) greet(ctx context.Context, s *model.DialogState, menu dialog.Menu, utterance string) (dialog.Reply, error) {
	intent := model.IntentUnknown
	if utterance != "" && model.ParseAnswer(utterance) == model.AnswerNone {
		var err error
		intent, err = o.extractor.ClassifyIntent(ctx, utterance, s.Stage, false)
		if err != nil {
			return dialog.Reply{}, err
		}
	}
	s.LastUtteranceIntent = intent

	if intent != model.IntentOrder && intent != model.IntentModify {
		last, err := o.reorder.LastOrderFor(ctx, s.GuestID)
		if err != nil {
			// Not worth failing the greeting over.
			o.logger.Warn("reorder lookup failed", "guest_id", s.GuestID, "error", err)
		}
		if last != nil {
			reply := dialog.OfferReorder(s, last)
			if intent == model.IntentQuestion {
				return o.answer(ctx, s, menu, utterance)
			}
			return reply, nil
		}
	}

	s.SetStage(model.StageAwaitingItems)
	switch intent {
	case model.IntentOrder, model.IntentModify:
		return o.takeOrder(ctx, s, menu, utterance)
	case model.IntentQuestion:
		return o.answer(ctx, s, menu, utterance)
	default:
		return dialog.Elicit(dialog.SlotOrder, dialog.Greeting(greetingVariant(s.SessionID))), nil
	}
}

func greetingVariant(sessionID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return int(h.Sum32() % uint32(dialog.Greetings()))
}

// reorderAnswer handles the reply to a reorder offer.
func (o *Orchestrator) reorderAnswer(ctx context.Context, s *model.DialogState, menu dialog.Menu, intent model.Intent, answer model.Answer, utterance string) (dialog.Reply, error) {
	switch {
	case intent == model.IntentConfirm && answer == model.AnswerNo:
		return dialog.DeclineReorder(s, menu), nil
	case intent == model.IntentConfirm:
		return dialog.AcceptReorder(s, menu), nil
	case intent == model.IntentOrder || intent == model.IntentModify:
		s.ReorderOffer = nil
		s.SetStage(model.StageAwaitingItems)
		return o.takeOrder(ctx, s, menu, utterance)
	default:
		return dialog.Reprompt(s, menu).Prefixed(dialog.MsgHelp), nil
	}
}

// takeOrder extracts and matches the items in utterance and adds them to the order.
func (o *Orchestrator) takeOrder(ctx context.Context, s *model.DialogState, menu dialog.Menu, utterance string) (dialog.Reply, error) {
	items, err := o.extractor.Extract(ctx, utterance)
	if err != nil {
		if errors.Is(err, common.ErrExtractionFailed) || errors.Is(err, common.ErrExtractionFormat) {
			o.metrics.TurnError(common.Kind(err))
			return dialog.Reprompt(s, menu).Prefixed(dialog.MsgRephrase), nil
		}
		return dialog.Reply{}, err
	}
	if len(items) == 0 {
		return dialog.Reprompt(s, menu).Prefixed(dialog.MsgNoItemsHeard), nil
	}

	outcomes := o.matchAll(ctx, items)

	var (
		accepted  []model.ResolvedLineItem
		clarify   []model.ResolvedLineItem
		unmatched []string
		troubled  []string
		failures  []error
	)
	for _, out := range outcomes {
		switch {
		case out.err == nil:
			line := menu.Resolve(out.match, out.item)
			switch {
			case out.match.Exact:
				o.metrics.MatchOutcome(metrics.OutcomeExact)
				accepted = append(accepted, line)
			case o.cfg.ClarifyAmbiguous && out.match.NeedsClarification(o.cfg.HighThreshold):
				o.metrics.MatchOutcome(metrics.OutcomeClarify)
				clarify = append(clarify, line)
			default:
				o.metrics.MatchOutcome(metrics.OutcomeAccepted)
				accepted = append(accepted, line)
			}
		case errors.Is(out.err, common.ErrNoMatchFound):
			o.metrics.MatchOutcome(metrics.OutcomeNoMatch)
			unmatched = append(unmatched, out.item.RawName)
		default:
			o.metrics.MatchOutcome(metrics.OutcomeError)
			failures = append(failures, out.err)
			troubled = append(troubled, out.item.RawName)
		}
	}

	if len(failures) == len(outcomes) {
		return dialog.Reply{}, errors.Join(failures...)
	}
	for _, err := range failures {
		o.metrics.TurnError(common.Kind(err))
	}

	matched := len(accepted) + len(clarify)
	if matched == 0 {
		if s.Stage == model.StageAwaitingDrink {
			return dialog.Elicit(dialog.SlotDrink, dialog.RetryMessage(unmatched, troubled)), nil
		}
		if !s.HasItems() {
			s.SetStage(model.StageAwaitingItems)
			return dialog.Elicit(dialog.SlotOrder, dialog.RetryMessage(unmatched, troubled)), nil
		}
		return dialog.Reprompt(s, menu).Prefixed(dialog.SkippedMessage(unmatched, troubled)), nil
	}

	if s.Stage == model.StageAwaitingDrink {
		s.DrinkOffered = true
	}
	dialog.AddLines(s, accepted...)
	s.Clarifications = append(s.Clarifications, clarify...)

	return dialog.Next(s, menu).Prefixed(dialog.SkippedMessage(unmatched, troubled)), nil
}

type matchOutcome struct {
	item  model.ExtractedLineItem
	match model.MatchResult
	err   error
}

// matchAll resolves every extracted item concurrently. Each lookup gets its own
// deadline; one slow or failing item never holds up or cancels the others, and the
// outcomes come back in extraction order.
func (o *Orchestrator) matchAll(ctx context.Context, items []model.ExtractedLineItem) []matchOutcome {
	outcomes := make([]matchOutcome, len(items))

	var g errgroup.Group
	g.SetLimit(maxConcurrentMatches)
	for i, item := range items {
		outcomes[i].item = item
		g.Go(func() error {
			outcomes[i].match, outcomes[i].err = o.matchOne(ctx, item.RawName)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (o *Orchestrator) matchOne(ctx context.Context, name string) (model.MatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.MatchItemTimeout)
	defer cancel()

	type result struct {
		match model.MatchResult
		err   error
	}
	done := make(chan result, 1)
	go func() {
		match, err := o.matcher.Match(ctx, name)
		done <- result{match, err}
	}()

	select {
	case r := <-done:
		return r.match, r.err
	case <-ctx.Done():
		return model.MatchResult{}, fmt.Errorf("%w: matching %q: %w", common.ErrProviderUnavailable, name, ctx.Err())
	}
}

// modify applies a modification utterance. Conversational failures leave the order
// as it was and ask the guest to clarify.
func (o *Orchestrator) modify(ctx context.Context, s *model.DialogState, menu dialog.Menu, utterance string) (dialog.Reply, error) {
	if !s.HasItems() {
		return o.takeOrder(ctx, s, menu, utterance)
	}

	result, err := o.mutator.Apply(ctx, s.Items(), utterance, menu)
	if err == nil {
		return dialog.ApplyModification(s, menu, result.Items, result.Explanation), nil
	}

	if common.IsConversational(err) {
		o.metrics.TurnError(common.Kind(err))
	}

	var (
		notInOrder *common.ItemNotInOrderError
		matchErr   *common.MatchError
	)
	switch {
	case errors.Is(err, mutation.ErrNoChanges):
		return dialog.BeginModification(s), nil
	case errors.As(err, &notInOrder):
		return dialog.Elicit(dialog.SlotModification, dialog.NotInOrderMessage(notInOrder.ItemName, s.Items())), nil
	case errors.Is(err, common.ErrAmbiguousMatch) && errors.As(err, &matchErr):
		return dialog.Elicit(dialog.SlotModification, dialog.WhichOneMessage(matchErr.Candidate, s.Items())), nil
	case errors.Is(err, common.ErrNoMatchFound) && errors.As(err, &matchErr):
		return dialog.Elicit(dialog.SlotModification, dialog.RestateMessage([]string{matchErr.Query})), nil
	case errors.Is(err, common.ErrExtractionFailed):
		return dialog.Reprompt(s, menu).Prefixed(dialog.MsgRephrase), nil
	default:
		return dialog.Reply{}, err
	}
}

// confirm handles the answer to the order read-back and places the order on yes.
func (o *Orchestrator) confirm(ctx context.Context, s *model.DialogState, answer model.Answer, logger *slog.Logger) (dialog.Reply, error) {
	// The model said CONFIRM for something that isn't a bare no, e.g. "yep, send it".
	if answer == model.AnswerNone {
		answer = model.AnswerYes
	}

	outcome, reply := dialog.HandleConfirmation(s, answer, o.cfg.MaxConfirmRetries)
	switch outcome {
	case dialog.ConfirmEscalate:
		logger.Warn("confirmation retries exhausted", "retries", o.cfg.MaxConfirmRetries)
		return reply, nil
	case dialog.ConfirmRetry:
		return reply, nil
	}

	s.UpdatedAt = o.now()
	order := dialog.BuildOrder(s, o.newID())
	if err := o.orders.SaveOrder(ctx, &order); err != nil {
		if !errors.Is(err, common.ErrDuplicateEntry) {
			return dialog.Reply{}, fmt.Errorf("%w: saving order: %w", common.ErrProviderUnavailable, err)
		}
		logger.Warn("order already stored", "order_id", order.ID)
	} else {
		o.metrics.OrderFinalized()
	}

	logger.Info("order finalized",
		"order_id", order.ID,
		"guest_id", order.GuestID,
		"lines", len(order.Items))
	return dialog.Fulfill(s, order), nil
}

// answer handles QUESTION turns. Requests for a suggestion go to the recommender and
// the suggestion is remembered so that a following yes adds it.
func (o *Orchestrator) answer(ctx context.Context, s *model.DialogState, menu dialog.Menu, question string) (dialog.Reply, error) {
	if recommend.IsRecommendationRequest(question) && s.Stage != model.StageFulfilled {
		suggestion, err := o.recommender.Recommend(ctx, question)
		if err != nil {
			return dialog.Reply{}, err
		}
		line := menu.Resolve(
			model.MatchResult{
				CatalogItemID: suggestion.Item.ID,
				DisplayName:   suggestion.Item.DisplayName,
				Confidence:    1,
				Exact:         true,
			},
			model.ExtractedLineItem{RawName: suggestion.Item.DisplayName, Quantity: 1},
		)
		return dialog.OfferSuggestion(s, line, suggestion.Message), nil
	}

	text, err := o.answerer.Answer(ctx, question)
	if err != nil {
		return dialog.Reply{}, err
	}
	return dialog.Answered(s, menu, text), nil
}
