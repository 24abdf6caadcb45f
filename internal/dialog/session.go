package dialog

import (
	"encoding/json"
	"fmt"

	"github.com/Veraticus/tableside/internal/common"
	"github.com/Veraticus/tableside/internal/model"
)

// Session attribute keys. The channel echoes attributes back verbatim each turn.
const (
	AttrState   = "dialogState"
	AttrGuestID = "guestId"
)

// EncodeSession serializes s into session attributes.
func EncodeSession(s model.DialogState) (map[string]string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode dialog state: %w", err)
	}
	attrs := map[string]string{AttrState: string(data)}
	if s.GuestID != "" {
		attrs[AttrGuestID] = s.GuestID
	}
	return attrs, nil
}

// DecodeSession reads the dialog state out of session attributes. found is false
// when the attributes carry no state, i.e. a new conversation. Attributes that do
// not decode into a valid state for sessionID fail with common.ErrStateCorrupt.
func DecodeSession(attrs map[string]string, sessionID string) (state model.DialogState, found bool, err error) {
	raw, ok := attrs[AttrState]
	if !ok || raw == "" {
		return model.DialogState{}, false, nil
	}

	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return model.DialogState{}, true, fmt.Errorf("%w: %w", common.ErrStateCorrupt, err)
	}
	if err := state.Validate(); err != nil {
		return model.DialogState{}, true, fmt.Errorf("%w: %w", common.ErrStateCorrupt, err)
	}
	if sessionID != "" && state.SessionID != sessionID {
		return model.DialogState{}, true, fmt.Errorf("%w: state belongs to session %q", common.ErrStateCorrupt, state.SessionID)
	}
	if state.LastUtteranceIntent == "" {
		state.LastUtteranceIntent = model.IntentUnknown
	}

	return state, true, nil
}
