package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Stage is the position of a conversation in the order-taking flow.
type Stage string

// Dialog stages.
const (
	StageGreeting             Stage = "GREETING"
	StageAwaitingItems        Stage = "AWAITING_ITEMS"
	StageResolvingOptions     Stage = "RESOLVING_OPTIONS"
	StageAwaitingDrink        Stage = "AWAITING_DRINK"
	StageAwaitingConfirmation Stage = "AWAITING_CONFIRMATION"
	StageModifying            Stage = "MODIFYING"
	StageFulfilled            Stage = "FULFILLED"
)

// Stages lists every stage in flow order.
func Stages() []Stage {
	return []Stage{
		StageGreeting,
		StageAwaitingItems,
		StageResolvingOptions,
		StageAwaitingDrink,
		StageAwaitingConfirmation,
		StageModifying,
		StageFulfilled,
	}
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	return slices.Contains(Stages(), s)
}

// Intent is the classified purpose of a single utterance.
type Intent string

// Utterance intents.
const (
	IntentOrder    Intent = "ORDER"
	IntentModify   Intent = "MODIFY"
	IntentQuestion Intent = "QUESTION"
	IntentConfirm  Intent = "CONFIRM"
	IntentUnknown  Intent = "UNKNOWN"
)

// Intents lists every intent.
func Intents() []Intent {
	return []Intent{IntentOrder, IntentModify, IntentQuestion, IntentConfirm, IntentUnknown}
}

// Valid reports whether i is a known intent.
func (i Intent) Valid() bool {
	return slices.Contains(Intents(), i)
}

// ParseIntent maps a model answer such as "order" or " MODIFICATION." onto an Intent.
// Anything unrecognised is IntentUnknown.
func ParseIntent(s string) Intent {
	word := strings.ToUpper(strings.Trim(strings.TrimSpace(s), ".!\"'`"))
	if fields := strings.Fields(word); len(fields) > 0 {
		word = fields[0]
	}

	switch word {
	case "ORDER":
		return IntentOrder
	case "MODIFY", "MODIFICATION":
		return IntentModify
	case "QUESTION":
		return IntentQuestion
	case "CONFIRM", "CONFIRMATION":
		return IntentConfirm
	default:
		return IntentUnknown
	}
}

// DialogState is everything the orchestrator knows about one conversation. It is
// serialized into the channel's session attributes between turns.
type DialogState struct {
	UpdatedAt            time.Time          `json:"updatedAt"`
	ReorderOffer         *FinalizedOrder    `json:"reorderOffer,omitempty"`
	Suggestion           *ResolvedLineItem  `json:"suggestion,omitempty"`
	SessionID            string             `json:"sessionId"`
	GuestID              string             `json:"guestId,omitempty"`
	Stage                Stage              `json:"stage"`
	LastUtteranceIntent  Intent             `json:"lastUtteranceIntent,omitempty"`
	OrderID              string             `json:"orderId,omitempty"`
	PendingItems         []ResolvedLineItem `json:"pendingItems,omitempty"`
	ConfirmedItems       []ResolvedLineItem `json:"confirmedItems,omitempty"`
	Clarifications       []ResolvedLineItem `json:"clarifications,omitempty"`
	ConfirmRetries       int                `json:"confirmRetries,omitempty"`
	AwaitingConfirmation bool               `json:"awaitingConfirmation,omitempty"`
	DrinkOffered         bool               `json:"drinkOffered,omitempty"`
}

// NewDialogState starts a conversation at GREETING.
func NewDialogState(sessionID, guestID string, now time.Time) DialogState {
	return DialogState{
		SessionID:           sessionID,
		GuestID:             guestID,
		Stage:               StageGreeting,
		LastUtteranceIntent: IntentUnknown,
		UpdatedAt:           now,
	}
}

// Validate checks that a decoded state is internally consistent.
func (s *DialogState) Validate() error {
	if strings.TrimSpace(s.SessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	if !s.Stage.Valid() {
		return fmt.Errorf("unknown stage %q", s.Stage)
	}
	if s.LastUtteranceIntent != "" && !s.LastUtteranceIntent.Valid() {
		return fmt.Errorf("unknown intent %q", s.LastUtteranceIntent)
	}
	if s.ConfirmRetries < 0 {
		return fmt.Errorf("confirm retries must not be negative")
	}
	if s.AwaitingConfirmation != (s.Stage == StageAwaitingConfirmation) {
		return fmt.Errorf("awaiting confirmation flag does not match stage %s", s.Stage)
	}
	if s.Stage == StageFulfilled && s.OrderID == "" {
		return fmt.Errorf("fulfilled state has no order id")
	}

	for _, group := range [][]ResolvedLineItem{s.PendingItems, s.ConfirmedItems, s.Clarifications} {
		for i := range group {
			if err := group[i].Validate(); err != nil {
				return err
			}
		}
	}
	for i := range s.ConfirmedItems {
		if s.ConfirmedItems[i].HasMissingOptions() {
			return fmt.Errorf("confirmed item %s has unanswered options", s.ConfirmedItems[i].CatalogItemID)
		}
	}

	return nil
}

// SetStage moves the state to stage and keeps AwaitingConfirmation in step with it.
func (s *DialogState) SetStage(stage Stage) {
	s.Stage = stage
	s.AwaitingConfirmation = stage == StageAwaitingConfirmation
}

// Items returns confirmed lines followed by lines still waiting for options.
func (s DialogState) Items() []ResolvedLineItem {
	items := make([]ResolvedLineItem, 0, len(s.ConfirmedItems)+len(s.PendingItems))
	items = append(items, s.ConfirmedItems...)
	items = append(items, s.PendingItems...)
	return items
}

// HasItems reports whether the order holds anything, resolved or not.
func (s DialogState) HasItems() bool {
	return len(s.ConfirmedItems) > 0 || len(s.PendingItems) > 0
}

// Expired reports whether the conversation has been idle longer than timeout.
// A zero timeout never expires.
func (s DialogState) Expired(now time.Time, timeout time.Duration) bool {
	if timeout <= 0 || s.UpdatedAt.IsZero() {
		return false
	}
	return now.Sub(s.UpdatedAt) > timeout
}

// Clone returns a deep copy so a turn can mutate freely and discard on failure.
func (s DialogState) Clone() DialogState {
	out := s
	out.PendingItems = CloneLines(s.PendingItems)
	out.ConfirmedItems = CloneLines(s.ConfirmedItems)
	out.Clarifications = CloneLines(s.Clarifications)
	if s.Suggestion != nil {
		suggestion := s.Suggestion.Clone()
		out.Suggestion = &suggestion
	}
	if s.ReorderOffer != nil {
		offer := *s.ReorderOffer
		offer.Items = CloneLines(s.ReorderOffer.Items)
		out.ReorderOffer = &offer
	}
	return out
}
