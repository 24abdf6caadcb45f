package dialog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Veraticus/tableside/internal/model"
)

// Menu indexes catalog items by id for prompt building.
type Menu map[string]model.CatalogItem

// NewMenu builds a Menu from a catalog listing.
func NewMenu(items []model.CatalogItem) Menu {
	menu := make(Menu, len(items))
	for _, item := range items {
		menu[item.ID] = item
	}
	return menu
}

func (m Menu) group(itemID, groupID string) (model.OptionGroup, bool) {
	item, ok := m[itemID]
	if !ok {
		return model.OptionGroup{}, false
	}
	for _, group := range item.OptionGroups {
		if group.ID == groupID {
			return group, true
		}
	}
	return model.OptionGroup{}, false
}

// isDrink treats items missing from the menu as food.
func (m Menu) isDrink(itemID string) bool {
	item, ok := m[itemID]
	return ok && item.IsDrink()
}

// Resolve binds a match to its catalog item. Options named by the extraction model
// or spoken inside the item name ("beef gyoza") are pre-filled; required groups
// still unanswered are listed as missing.
func (m Menu) Resolve(match model.MatchResult, extracted model.ExtractedLineItem) model.ResolvedLineItem {
	quantity := extracted.Quantity
	if quantity < 1 {
		quantity = 1
	}
	line := model.ResolvedLineItem{
		CatalogItemID:   match.CatalogItemID,
		DisplayName:     match.DisplayName,
		RawName:         extracted.RawName,
		Quantity:        quantity,
		MatchConfidence: clamp01(match.Confidence),
	}

	item, ok := m[match.CatalogItemID]
	if !ok {
		return line
	}
	if line.DisplayName == "" {
		line.DisplayName = item.DisplayName
	}

	selected := item.DetectOptions(extracted.RawName)
	for groupID, choice := range item.ResolveOptions(extracted.Options) {
		selected[groupID] = choice
	}
	if len(selected) > 0 {
		line.SelectedOptions = selected
	}
	for _, group := range item.RequiredOptionGroups() {
		if _, done := selected[group.ID]; !done {
			line.MissingOptions = append(line.MissingOptions, group.ID)
		}
	}
	return line
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// AddLines puts resolved lines on the order. Lines still missing options wait in
// PendingItems; the rest are confirmed. Lines with the same item and selection are
// merged by adding quantities.
func AddLines(s *model.DialogState, lines ...model.ResolvedLineItem) {
	for _, line := range lines {
		if line.HasMissingOptions() {
			s.PendingItems = mergeLine(s.PendingItems, line)
		} else {
			s.ConfirmedItems = mergeLine(s.ConfirmedItems, line)
		}
	}
}

// SetItems replaces the whole order, e.g. after a modification.
func SetItems(s *model.DialogState, lines []model.ResolvedLineItem) {
	s.PendingItems = nil
	s.ConfirmedItems = nil
	AddLines(s, lines...)
}

func mergeLine(lines []model.ResolvedLineItem, line model.ResolvedLineItem) []model.ResolvedLineItem {
	for i := range lines {
		if lines[i].SameSelection(line) && slices.Equal(lines[i].MissingOptions, line.MissingOptions) {
			lines[i].Quantity += line.Quantity
			return lines
		}
	}
	return append(lines, line.Clone())
}

// settlePending moves pending lines whose options are complete to ConfirmedItems.
func settlePending(s *model.DialogState) {
	var still []model.ResolvedLineItem
	for _, line := range s.PendingItems {
		if line.HasMissingOptions() {
			still = append(still, line)
		} else {
			s.ConfirmedItems = mergeLine(s.ConfirmedItems, line)
		}
	}
	s.PendingItems = still
}

func needsDrink(s *model.DialogState, menu Menu) bool {
	hasFood, hasDrink := false, false
	for _, line := range s.Items() {
		if menu.isDrink(line.CatalogItemID) {
			hasDrink = true
		} else {
			hasFood = true
		}
	}
	return hasFood && !hasDrink
}

// Next moves the state to whatever the order still needs and returns the prompt
// for it: a pending clarification, then missing options, then items at all, then a
// drink (asked once), then confirmation.
func Next(s *model.DialogState, menu Menu) Reply {
	switch {
	case s.Stage == model.StageFulfilled:
		return Close(FulfillmentFulfilled, alreadyPlacedMessage(s.ConfirmedItems))

	case len(s.Clarifications) > 0:
		if s.Stage == model.StageGreeting {
			s.SetStage(model.StageAwaitingItems)
		}
		return Elicit(SlotClarification, clarifyMessage(s.Clarifications[0]))

	case len(s.PendingItems) > 0:
		s.SetStage(model.StageResolvingOptions)
		return askOption(s.PendingItems[0], menu)

	case !s.HasItems():
		s.SetStage(model.StageAwaitingItems)
		return Elicit(SlotOrder, MsgAskItems)

	case !s.DrinkOffered && needsDrink(s, menu):
		s.SetStage(model.StageAwaitingDrink)
		s.DrinkOffered = true
		return Elicit(SlotDrink, MsgAskDrink)

	default:
		s.SetStage(model.StageAwaitingConfirmation)
		s.DrinkOffered = true
		return Confirm(summaryMessage(s.ConfirmedItems))
	}
}

// Reprompt repeats the current question without changing the state.
func Reprompt(s *model.DialogState, menu Menu) Reply {
	switch s.Stage {
	case model.StageGreeting:
		if s.ReorderOffer != nil {
			return Confirm(reorderOfferMessage(s.ReorderOffer))
		}
		return Elicit(SlotOrder, MsgAskItems)
	case model.StageResolvingOptions:
		if len(s.PendingItems) > 0 {
			return askOption(s.PendingItems[0], menu)
		}
	case model.StageAwaitingDrink:
		return Elicit(SlotDrink, MsgAskDrink)
	case model.StageAwaitingConfirmation:
		return Confirm(summaryMessage(s.ConfirmedItems))
	case model.StageModifying:
		return Elicit(SlotModification, MsgAskChange)
	case model.StageFulfilled:
		return Close(FulfillmentFulfilled, MsgAfterFulfill)
	}

	if len(s.Clarifications) > 0 {
		return Elicit(SlotClarification, clarifyMessage(s.Clarifications[0]))
	}
	return Elicit(SlotOrder, MsgAskItems)
}

// Answered speaks an answer to a question and then repeats the current prompt.
func Answered(s *model.DialogState, menu Menu, answer string) Reply {
	if s.Stage == model.StageFulfilled {
		return Close(FulfillmentFulfilled, answer)
	}
	return Reprompt(s, menu).Prefixed(answer)
}

func askOption(line model.ResolvedLineItem, menu Menu) Reply {
	if len(line.MissingOptions) == 0 {
		return Elicit(SlotOrder, MsgAskItems)
	}
	groupID := line.MissingOptions[0]
	group, ok := menu.group(line.CatalogItemID, groupID)
	if !ok {
		group = model.OptionGroup{ID: groupID, Name: groupID}
	}
	return Elicit(SlotOption, askOptionMessage(line, group))
}

// PendingChoice reports the choice utterance selects for the option currently being
// asked, if any.
func PendingChoice(s *model.DialogState, menu Menu, utterance string) (string, bool) {
	if s.Stage != model.StageResolvingOptions || len(s.PendingItems) == 0 {
		return "", false
	}
	line := s.PendingItems[0]
	if len(line.MissingOptions) == 0 {
		return "", false
	}
	group, ok := menu.group(line.CatalogItemID, line.MissingOptions[0])
	if !ok {
		answer := strings.TrimSpace(utterance)
		return answer, answer != ""
	}
	return group.MatchChoice(utterance)
}

// AnswerOption records the guest's answer for the option being asked. An answer that
// is not one of the choices repeats the question.
func AnswerOption(s *model.DialogState, menu Menu, utterance string) Reply {
	if len(s.PendingItems) == 0 {
		return Next(s, menu)
	}

	choice, ok := PendingChoice(s, menu, utterance)
	if !ok {
		return askOption(s.PendingItems[0], menu).Prefixed("Sorry, that isn't one of the choices.")
	}

	line := &s.PendingItems[0]
	line.SetOption(line.MissingOptions[0], choice)

	// One answer may settle other groups too ("spicy, firm noodles").
	if item, ok := menu[line.CatalogItemID]; ok {
		for groupID, detected := range item.DetectOptions(utterance) {
			if slices.Contains(line.MissingOptions, groupID) {
				line.SetOption(groupID, detected)
			}
		}
	}

	settlePending(s)
	return Next(s, menu)
}

// ResolveClarification applies a yes/no answer to the first pending "did you mean"
// question.
func ResolveClarification(s *model.DialogState, menu Menu, answer model.Answer) Reply {
	if len(s.Clarifications) == 0 {
		return Next(s, menu)
	}

	line := s.Clarifications[0]
	s.Clarifications = s.Clarifications[1:]
	if len(s.Clarifications) == 0 {
		s.Clarifications = nil
	}

	if answer == model.AnswerYes {
		AddLines(s, line)
		return Next(s, menu)
	}

	prefix := fmt.Sprintf("Okay, I've left out %q.", line.RawName)
	if line.RawName == "" {
		prefix = "Okay, I've left that out."
	}
	if !s.HasItems() && len(s.Clarifications) == 0 {
		return Next(s, menu).Prefixed(prefix + " Could you say that item again?")
	}
	return Next(s, menu).Prefixed(prefix)
}

// OfferReorder offers the guest's previous order. The state stays at GREETING until
// the guest answers.
func OfferReorder(s *model.DialogState, order *model.FinalizedOrder) Reply {
	offer := *order
	offer.Items = model.CloneLines(order.Items)
	s.ReorderOffer = &offer
	s.SetStage(model.StageGreeting)
	return Confirm(reorderOfferMessage(s.ReorderOffer))
}

// AcceptReorder copies the offered order onto the state and goes straight to
// confirmation. Lines for items no longer on the menu are dropped.
func AcceptReorder(s *model.DialogState, menu Menu) Reply {
	offer := s.ReorderOffer
	s.ReorderOffer = nil
	if offer == nil {
		return Next(s, menu)
	}

	var lines []model.ResolvedLineItem
	for _, line := range offer.Items {
		if len(menu) > 0 {
			if _, ok := menu[line.CatalogItemID]; !ok {
				continue
			}
		}
		lines = append(lines, line.Clone())
	}
	SetItems(s, lines)
	if !s.HasItems() {
		return Next(s, menu).Prefixed("Sorry, those items aren't on the menu anymore.")
	}

	s.DrinkOffered = true
	return Next(s, menu)
}

// DeclineReorder drops the offer and asks for a fresh order.
func DeclineReorder(s *model.DialogState, menu Menu) Reply {
	s.ReorderOffer = nil
	return Next(s, menu).Prefixed("No problem.")
}

// DeclineDrink moves on from the drink question.
func DeclineDrink(s *model.DialogState, menu Menu) Reply {
	s.DrinkOffered = true
	return Next(s, menu).Prefixed("No problem.")
}

// ConfirmOutcome is the result of a turn at AWAITING_CONFIRMATION.
type ConfirmOutcome int

// Confirmation outcomes.
const (
	// ConfirmPlace means the guest said yes; the caller persists the order and calls Fulfill.
	ConfirmPlace ConfirmOutcome = iota
	// ConfirmRetry means the question was asked again.
	ConfirmRetry
	// ConfirmEscalate means retries ran out and the guest was handed to staff.
	ConfirmEscalate
)

// HandleConfirmation interprets the answer to the order read-back. Anything but yes
// counts against maxRetries; past it the flow closes with a fallback message
// instead of asking forever.
func HandleConfirmation(s *model.DialogState, answer model.Answer, maxRetries int) (ConfirmOutcome, Reply) {
	if answer == model.AnswerYes {
		return ConfirmPlace, Reply{}
	}

	s.ConfirmRetries++
	if s.ConfirmRetries > maxRetries {
		s.ConfirmRetries = 0
		return ConfirmEscalate, Close(FulfillmentFailed, MsgEscalate)
	}

	if answer == model.AnswerNo {
		return ConfirmRetry, Confirm(fmt.Sprintf(
			"No problem, tell me what you'd like to change. Right now I have: %s. Shall I place it?",
			model.Summarize(s.ConfirmedItems)))
	}
	return ConfirmRetry, Confirm(summaryMessage(s.ConfirmedItems)).Prefixed("Sorry, I didn't catch that.")
}

// BuildOrder turns the confirmed lines into a FinalizedOrder.
func BuildOrder(s *model.DialogState, orderID string) model.FinalizedOrder {
	return model.FinalizedOrder{
		ID:        orderID,
		GuestID:   s.GuestID,
		SessionID: s.SessionID,
		CreatedAt: s.UpdatedAt,
		Items:     model.CloneLines(s.ConfirmedItems),
	}
}

// Fulfill marks the order placed.
func Fulfill(s *model.DialogState, order model.FinalizedOrder) Reply {
	s.OrderID = order.ID
	s.ConfirmRetries = 0
	s.Suggestion = nil
	s.Clarifications = nil
	s.SetStage(model.StageFulfilled)
	return Close(FulfillmentFulfilled, fulfilledMessage(order.Items))
}

// BeginModification asks what to change.
func BeginModification(s *model.DialogState) Reply {
	s.SetStage(model.StageModifying)
	return Elicit(SlotModification, MsgAskChange)
}

// ApplyModification installs the modified order and returns to wherever it now
// needs to be, normally AWAITING_CONFIRMATION, speaking explanation first.
func ApplyModification(s *model.DialogState, menu Menu, lines []model.ResolvedLineItem, explanation string) Reply {
	SetItems(s, lines)
	s.ConfirmRetries = 0
	if !s.HasItems() {
		return Next(s, menu).Prefixed(explanation + " " + MsgOrderEmpty)
	}
	return Next(s, menu).Prefixed(explanation)
}

// OfferSuggestion remembers a recommended line so a following "yes" adds it.
func OfferSuggestion(s *model.DialogState, line model.ResolvedLineItem, message string) Reply {
	s.Suggestion = &line
	return Elicit(SlotSuggestion, strings.TrimSpace(message)+" Would you like to add it to your order?")
}

// ResolveSuggestion applies a yes/no answer to the remembered suggestion.
func ResolveSuggestion(s *model.DialogState, menu Menu, answer model.Answer) Reply {
	suggestion := s.Suggestion
	s.Suggestion = nil
	if suggestion == nil {
		return Reprompt(s, menu)
	}
	if answer != model.AnswerYes {
		return Reprompt(s, menu).Prefixed("No problem.")
	}

	line := suggestion.Clone()
	if item, ok := menu[line.CatalogItemID]; ok && len(line.MissingOptions) == 0 && len(line.SelectedOptions) == 0 {
		for _, group := range item.RequiredOptionGroups() {
			line.MissingOptions = append(line.MissingOptions, group.ID)
		}
	}
	AddLines(s, line)
	return Next(s, menu).Prefixed(AddedMessage(line))
}
