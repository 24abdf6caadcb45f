package dialog

import (
	"fmt"
	"strings"

	"github.com/Veraticus/tableside/internal/model"
)

var greetings = []string{
	"Hello! I'm ready to take your order. What can I get for you?",
	"Hi there! What would you like to order today?",
	"Welcome! Tell me what you'd like to eat.",
}

// Greetings is the number of greeting variants.
func Greetings() int {
	return len(greetings)
}

// Greeting returns greeting variant n, wrapping around.
func Greeting(n int) string {
	if n < 0 {
		n = -n
	}
	return greetings[n%len(greetings)]
}

// Fixed guest-facing messages.
const (
	MsgAskItems      = "What would you like to order?"
	MsgAskDrink      = "I've got your food order. Would you like anything to drink?"
	MsgAskDrinkName  = "Sure, what would you like to drink?"
	MsgAskChange     = "What would you like to change?"
	MsgTrouble       = "I'm having trouble right now, please try again."
	MsgRephrase      = "I had trouble understanding that. Could you please try again?"
	MsgHelp          = "Sorry, I can only take orders or answer questions about the menu."
	MsgNoOrderYet    = "It looks like you haven't ordered anything yet."
	MsgOrderEmpty    = "Your order is now empty."
	MsgNoItemsHeard  = "I didn't catch any menu items in that."
	MsgRestarted     = "Sorry, I lost track of our conversation. Let's start again."
	MsgEscalate      = "I'm sorry, I'm having trouble confirming your order. Please ask a member of staff to help you finish it."
	MsgAfterFulfill  = "Your order has been placed. Is there anything else I can help you with?"
	MsgNoChangeAfter = "Your order has already been placed, so I can't change it now."
)

func askOptionMessage(line model.ResolvedLineItem, group model.OptionGroup) string {
	name := group.Name
	if name == "" {
		name = group.ID
	}
	if len(group.Choices) == 0 {
		return fmt.Sprintf("For your %s, which %s would you like?", line.DisplayName, name)
	}
	return fmt.Sprintf("For your %s, which %s would you like? Choices are: %s.",
		line.DisplayName, name, strings.Join(group.Choices, ", "))
}

func summaryMessage(items []model.ResolvedLineItem) string {
	return fmt.Sprintf("Okay, I have: %s. Is that correct?", model.Summarize(items))
}

func fulfilledMessage(items []model.ResolvedLineItem) string {
	return fmt.Sprintf("Thank you! Your order for %s has been placed.", model.Summarize(items))
}

func alreadyPlacedMessage(items []model.ResolvedLineItem) string {
	if len(items) == 0 {
		return "Your order has already been placed."
	}
	return fmt.Sprintf("Your order for %s has already been placed.", model.Summarize(items))
}

func reorderOfferMessage(order *model.FinalizedOrder) string {
	return fmt.Sprintf("Welcome back! Last time you ordered %s. Would you like the same again?", model.Summarize(order.Items))
}

func clarifyMessage(line model.ResolvedLineItem) string {
	if line.RawName != "" {
		return fmt.Sprintf("When you said %q, did you mean the %s?", line.RawName, line.DisplayName)
	}
	return fmt.Sprintf("Did you mean the %s?", line.DisplayName)
}

// RestateMessage asks the guest to repeat the items that matched nothing.
func RestateMessage(names []string) string {
	quoted := quoteAll(names)
	switch len(quoted) {
	case 0:
		return MsgNoItemsHeard + " " + MsgAskItems
	case 1:
		return fmt.Sprintf("I couldn't find %s on the menu. Could you say that item again?", quoted[0])
	default:
		return fmt.Sprintf("I couldn't find %s on the menu. Could you say those items again?", joinAnd(quoted))
	}
}

// NotInOrderMessage tells the guest a modification named something they haven't ordered.
func NotInOrderMessage(name string, items []model.ResolvedLineItem) string {
	return fmt.Sprintf("I don't see %s in your order. You have %s. What would you like to change?",
		name, model.Summarize(items))
}

// AddedMessage confirms a suggestion was put on the order.
func AddedMessage(line model.ResolvedLineItem) string {
	return fmt.Sprintf("Great, I've added %s.", line.Describe())
}

func joinAnd(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " and " + parts[1]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + ", and " + parts[len(parts)-1]
	}
}

// LeftOutMessage tells the guest which names were dropped from an otherwise
// understood order.
func LeftOutMessage(names []string) string {
	quoted := quoteAll(names)
	if len(quoted) == 1 {
		return fmt.Sprintf("I couldn't find %s on the menu, so I've left it out.", quoted[0])
	}
	return fmt.Sprintf("I couldn't find %s on the menu, so I've left them out.", joinAnd(quoted))
}

// LookupTroubleMessage asks the guest to repeat names whose menu lookup failed
// for a technical reason. The items may well be on the menu.
func LookupTroubleMessage(names []string) string {
	quoted := quoteAll(names)
	if len(quoted) == 1 {
		return fmt.Sprintf("I'm having trouble looking up %s right now. Could you say it again?", quoted[0])
	}
	return fmt.Sprintf("I'm having trouble looking up %s right now. Could you say them again?", joinAnd(quoted))
}

// SkippedMessage explains every name left out of an order that otherwise went
// through. It is empty when nothing was skipped.
func SkippedMessage(unmatched, troubled []string) string {
	var parts []string
	if len(unmatched) > 0 {
		parts = append(parts, LeftOutMessage(unmatched))
	}
	if len(troubled) > 0 {
		parts = append(parts, LookupTroubleMessage(troubled))
	}
	return strings.Join(parts, " ")
}

// RetryMessage asks again after none of the names in an order could be used.
func RetryMessage(unmatched, troubled []string) string {
	switch {
	case len(troubled) == 0:
		return RestateMessage(unmatched)
	case len(unmatched) == 0:
		return LookupTroubleMessage(troubled)
	default:
		return RestateMessage(unmatched) + " " + LookupTroubleMessage(troubled)
	}
}

func quoteAll(names []string) []string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = fmt.Sprintf("%q", name)
	}
	return quoted
}

// WhichOneMessage asks which of several lines of the same item a change is for.
func WhichOneMessage(name string, items []model.ResolvedLineItem) string {
	return fmt.Sprintf("You have more than one %s. You have %s. Which one did you mean?",
		name, model.Summarize(items))
}
