package model

import (
	"fmt"
	"strings"
)

// ChangeAction is the kind of edit requested against an in-progress order.
type ChangeAction string

// Change actions.
const (
	ActionAdd     ChangeAction = "ADD"
	ActionRemove  ChangeAction = "REMOVE"
	ActionReplace ChangeAction = "REPLACE"
)

// ParseChangeAction accepts add, remove and replace in any case, plus "update" as an
// alias of replace.
func ParseChangeAction(s string) (ChangeAction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ADD":
		return ActionAdd, nil
	case "REMOVE", "DELETE":
		return ActionRemove, nil
	case "REPLACE", "UPDATE", "SWAP", "CHANGE":
		return ActionReplace, nil
	default:
		return "", fmt.Errorf("unknown change action %q", s)
	}
}

// ExtractedChange is one edit read out of a modification utterance.
// ItemName is used by ADD and REMOVE; FromItem and ToItem by REPLACE.
type ExtractedChange struct {
	Options  map[string]string
	Action   ChangeAction
	ItemName string
	FromItem string
	ToItem   string
	Quantity int
}

// Target names the order line the change refers to.
func (c ExtractedChange) Target() string {
	if c.Action == ActionReplace {
		return c.FromItem
	}
	return c.ItemName
}
