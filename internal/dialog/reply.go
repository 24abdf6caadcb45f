// Package dialog is the order-taking state machine. It is pure: every function takes
// a *model.DialogState, updates it in place and returns the Reply to speak next.
// Calls to models, the catalog and stores happen in the orchestrator, which feeds
// their results in here.
package dialog

import "strings"

// DirectiveType tells the channel what to do after speaking the message.
type DirectiveType string

// Channel directives.
const (
	DirectiveElicitSlot    DirectiveType = "ElicitSlot"
	DirectiveConfirmIntent DirectiveType = "ConfirmIntent"
	DirectiveClose         DirectiveType = "Close"
)

// Slot names the piece of information being asked for.
type Slot string

// Slots.
const (
	SlotOrder         Slot = "OrderQuery"
	SlotOption        Slot = "OptionChoice"
	SlotDrink         Slot = "DrinkQuery"
	SlotModification  Slot = "ModificationRequest"
	SlotClarification Slot = "ItemClarification"
	SlotSuggestion    Slot = "SuggestionResponse"
)

// FulfillmentState is reported with every directive.
type FulfillmentState string

// Fulfillment states.
const (
	FulfillmentInProgress FulfillmentState = "InProgress"
	FulfillmentFulfilled  FulfillmentState = "Fulfilled"
	FulfillmentFailed     FulfillmentState = "Failed"
)

// Directive is the structured half of a reply.
type Directive struct {
	Type             DirectiveType    `json:"type"`
	Slot             Slot             `json:"slot,omitempty"`
	FulfillmentState FulfillmentState `json:"fulfillmentState"`
}

// Reply is what the guest hears plus what the channel should do next.
type Reply struct {
	Directive Directive `json:"directive"`
	Message   string    `json:"message"`
}

// Elicit asks the guest for slot.
func Elicit(slot Slot, message string) Reply {
	return Reply{
		Directive: Directive{Type: DirectiveElicitSlot, Slot: slot, FulfillmentState: FulfillmentInProgress},
		Message:   message,
	}
}

// Confirm asks the guest to confirm the order as read back in message.
func Confirm(message string) Reply {
	return Reply{
		Directive: Directive{Type: DirectiveConfirmIntent, FulfillmentState: FulfillmentInProgress},
		Message:   message,
	}
}

// Close ends the order flow.
func Close(state FulfillmentState, message string) Reply {
	return Reply{
		Directive: Directive{Type: DirectiveClose, FulfillmentState: state},
		Message:   message,
	}
}

// Prefixed returns r with prefix spoken first.
func (r Reply) Prefixed(prefix string) Reply {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return r
	}
	if r.Message == "" {
		r.Message = prefix
		return r
	}
	r.Message = prefix + " " + r.Message
	return r
}
