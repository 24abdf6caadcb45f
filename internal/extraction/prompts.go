package extraction

import (
	"fmt"
	"strings"

	"github.com/Veraticus/tableside/internal/model"
)

const extractionSystemPrompt = `You are a strict JSON parser for a restaurant ordering assistant.
Extract the items from the customer's order and return a single JSON object with the key "order_items".
Each item must have "item_name" (a string) and "quantity" (a positive integer), and may have "options" (an object of option name to choice).
If a quantity is not specified, use 1. If an item has variants (like beef or vegetable gyoza) and the customer names one, keep it in the item_name.
If the customer did not order anything, return {"order_items": []}.

Examples:
Customer said: "I want two green dragon rolls and one nestea."
{"order_items": [{"item_name": "green dragon roll", "quantity": 2}, {"item_name": "nestea", "quantity": 1}]}

Customer said: "One Sashimi, Sushi & Maki Combo B and three seaweed salads."
{"order_items": [{"item_name": "Sashimi, Sushi & Maki Combo", "quantity": 1, "options": {"Combo Choice": "B"}}, {"item_name": "Seaweed Salad", "quantity": 3}]}

Customer said: "I'd like beef gyoza and a coke."
{"order_items": [{"item_name": "beef gyoza", "quantity": 1}, {"item_name": "coke", "quantity": 1}]}`

const strictReformatInstruction = `

Your previous reply could not be parsed. Reply with exactly one JSON object and nothing else:
no prose, no markdown fences, no comments. "quantity" must be a JSON integer, not a string.`

const intentSystemPrompt = `You are an intent classifier for a restaurant ordering assistant.
Classify the guest's input into exactly one category:
- ORDER: the guest is naming food or drink they want.
- MODIFY: the guest wants to change an existing, unconfirmed order (add, remove, or swap an item).
- QUESTION: the guest is asking for information (hours, ingredients, allergens, address, recommendations).
- CONFIRM: the guest is answering yes or no.
- UNKNOWN: none of the above.

Respond with only one word: ORDER, MODIFY, QUESTION, CONFIRM, or UNKNOWN.`

const changesSystemPrompt = `You are a restaurant order modification assistant.
Given the current order and the guest's request, list the changes to make as a JSON object {"changes": [...]}.
Each change has an "action" of "add", "remove", or "replace".
- add: include "item_name" and "quantity" (a positive integer, default 1).
- remove: include "item_name" naming the item in the current order.
- replace: include "from_item" (the item in the current order) and "to_item" (what the guest wants instead).
Respond with JSON only.`

func buildExtractionPrompt(utterance string) string {
	return fmt.Sprintf("Customer said: %q\nRespond with JSON only.", utterance)
}

func buildIntentPrompt(utterance string, stage model.Stage, hasItems bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Conversation stage: %s\n", stage)
	if hasItems {
		sb.WriteString("The guest already has items in an unconfirmed order.\n")
	} else {
		sb.WriteString("The guest has not ordered anything yet.\n")
	}
	fmt.Fprintf(&sb, "Guest input: %q", utterance)
	return sb.String()
}

func buildChangesPrompt(utterance string, current []model.ResolvedLineItem) string {
	var sb strings.Builder
	sb.WriteString("Current order:\n")
	if len(current) == 0 {
		sb.WriteString("(empty)\n")
	}
	for _, line := range current {
		fmt.Fprintf(&sb, "- %s\n", line.Describe())
	}
	fmt.Fprintf(&sb, "\nGuest request: %q\n\nJSON response:", utterance)
	return sb.String()
}
