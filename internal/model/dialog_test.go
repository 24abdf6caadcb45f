package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntent(t *testing.T) {
	tests := []struct {
		input string
		want  Intent
	}{
		{"ORDER", IntentOrder},
		{" order.", IntentOrder},
		{"Modification", IntentModify},
		{"MODIFY", IntentModify},
		{"question", IntentQuestion},
		{"CONFIRM", IntentConfirm},
		{"QUESTION - the guest asks about allergens", IntentQuestion},
		{"banana", IntentUnknown},
		{"", IntentUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseIntent(tt.input))
		})
	}
}

func TestStageAndIntentValid(t *testing.T) {
	for _, s := range Stages() {
		assert.True(t, s.Valid(), s)
	}
	for _, i := range Intents() {
		assert.True(t, i.Valid(), i)
	}
	assert.False(t, Stage("COOKING").Valid())
	assert.False(t, Intent("PAY").Valid())
}

func TestDialogState_Validate(t *testing.T) {
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	line := ResolvedLineItem{CatalogItemID: "miso", DisplayName: "Miso Soup", Quantity: 1, MatchConfidence: 0.9}

	tests := []struct {
		name    string
		mutate  func(*DialogState)
		wantErr bool
	}{
		{name: "fresh state", mutate: func(*DialogState) {}},
		{
			name:    "missing session",
			mutate:  func(s *DialogState) { s.SessionID = "" },
			wantErr: true,
		},
		{
			name:    "unknown stage",
			mutate:  func(s *DialogState) { s.Stage = "COOKING" },
			wantErr: true,
		},
		{
			name:    "unknown intent",
			mutate:  func(s *DialogState) { s.LastUtteranceIntent = "PAY" },
			wantErr: true,
		},
		{
			name: "confirmation flag out of step",
			mutate: func(s *DialogState) {
				s.Stage = StageAwaitingConfirmation
				s.ConfirmedItems = []ResolvedLineItem{line}
			},
			wantErr: true,
		},
		{
			name: "confirmation stage with flag",
			mutate: func(s *DialogState) {
				s.SetStage(StageAwaitingConfirmation)
				s.ConfirmedItems = []ResolvedLineItem{line}
			},
		},
		{
			name:    "fulfilled without order",
			mutate:  func(s *DialogState) { s.SetStage(StageFulfilled) },
			wantErr: true,
		},
		{
			name: "bad quantity",
			mutate: func(s *DialogState) {
				bad := line
				bad.Quantity = 0
				s.PendingItems = []ResolvedLineItem{bad}
			},
			wantErr: true,
		},
		{
			name: "confirmed line with missing options",
			mutate: func(s *DialogState) {
				bad := line
				bad.MissingOptions = []string{"size"}
				s.ConfirmedItems = []ResolvedLineItem{bad}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := NewDialogState("session-1", "guest-1", now)
			tt.mutate(&state)
			err := state.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDialogState_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	state := NewDialogState("s", "g", now.Add(-45*time.Minute))

	assert.True(t, state.Expired(now, 30*time.Minute))
	assert.False(t, state.Expired(now, time.Hour))
	assert.False(t, state.Expired(now, 0))
}

func TestDialogState_CloneIsDeep(t *testing.T) {
	state := NewDialogState("s", "g", time.Now())
	state.PendingItems = []ResolvedLineItem{{
		CatalogItemID:   "ramen",
		Quantity:        1,
		SelectedOptions: map[string]string{"noodle": "firm"},
		MissingOptions:  []string{"broth"},
	}}
	state.Suggestion = &ResolvedLineItem{CatalogItemID: "gyoza", Quantity: 1}

	clone := state.Clone()
	clone.PendingItems[0].SetOption("broth", "mild")
	clone.Suggestion.Quantity = 3

	require.Len(t, state.PendingItems[0].MissingOptions, 1)
	assert.NotContains(t, state.PendingItems[0].SelectedOptions, "broth")
	assert.Equal(t, 1, state.Suggestion.Quantity)
	assert.Empty(t, clone.PendingItems[0].MissingOptions)
}

func TestSummarize(t *testing.T) {
	a := ResolvedLineItem{DisplayName: "Miso Soup", Quantity: 1}
	b := ResolvedLineItem{DisplayName: "Iced Tea", Quantity: 2}
	c := ResolvedLineItem{DisplayName: "Tonkotsu Ramen", Quantity: 1, SelectedOptions: map[string]string{"broth": "spicy"}}

	assert.Equal(t, "nothing yet", Summarize(nil))
	assert.Equal(t, "1 Miso Soup", Summarize([]ResolvedLineItem{a}))
	assert.Equal(t, "1 Miso Soup and 2 Iced Tea", Summarize([]ResolvedLineItem{a, b}))
	assert.Equal(t, "1 Miso Soup, 2 Iced Tea, and 1 Tonkotsu Ramen (broth: spicy)", Summarize([]ResolvedLineItem{a, b, c}))
}

func TestResolvedLineItem_SameSelection(t *testing.T) {
	a := ResolvedLineItem{CatalogItemID: "ramen", SelectedOptions: map[string]string{"broth": "mild"}}
	b := ResolvedLineItem{CatalogItemID: "ramen", SelectedOptions: map[string]string{"broth": "mild"}}
	c := ResolvedLineItem{CatalogItemID: "ramen", SelectedOptions: map[string]string{"broth": "spicy"}}

	assert.True(t, a.SameSelection(b))
	assert.False(t, a.SameSelection(c))
	assert.False(t, a.SameSelection(ResolvedLineItem{CatalogItemID: "ramen"}))
}

func TestFinalizedOrder_Validate(t *testing.T) {
	order := FinalizedOrder{
		ID:        "o-1",
		GuestID:   "guest",
		CreatedAt: time.Now(),
		Items:     []ResolvedLineItem{{CatalogItemID: "miso", Quantity: 1, MatchConfidence: 1}},
	}
	require.NoError(t, order.Validate())

	empty := order
	empty.Items = nil
	assert.Error(t, empty.Validate())

	anonymous := order
	anonymous.GuestID = ""
	assert.Error(t, anonymous.Validate())
}
