package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/tableside/internal/common"
	"github.com/Veraticus/tableside/internal/model"
	"github.com/Veraticus/tableside/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const classifierMarker = "intent classifier"

func TestExtractor_ClassifyIntent(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		reply     string
		want      model.Intent
		wantCalls int
	}{
		{name: "yes needs no model call", utterance: "yes please", want: model.IntentConfirm},
		{name: "no needs no model call", utterance: "nope", want: model.IntentConfirm},
		{name: "order", utterance: "two dragon rolls", reply: "ORDER", want: model.IntentOrder, wantCalls: 1},
		{name: "question", utterance: "is the gyoza spicy?", reply: "Question.", want: model.IntentQuestion, wantCalls: 1},
		{name: "legacy modification label", utterance: "swap the coke for tea", reply: "MODIFICATION", want: model.IntentModify, wantCalls: 1},
		{name: "unrecognised reply", utterance: "blue", reply: "I am not sure", want: model.IntentUnknown, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testutil.NewScriptedClient()
			if tt.reply != "" {
				client.On(classifierMarker, testutil.Reply{Text: tt.reply})
			}

			got, err := newTestExtractor(client).ClassifyIntent(context.Background(), tt.utterance, model.StageAwaitingItems, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Len(t, client.Calls(), tt.wantCalls)
		})
	}
}

func TestExtractor_ClassifyIntent_PromptDescribesContext(t *testing.T) {
	client := testutil.NewScriptedClient().On(classifierMarker, testutil.Reply{Text: "MODIFY"})

	_, err := newTestExtractor(client).ClassifyIntent(context.Background(), "actually add a coke", model.StageAwaitingConfirmation, true)
	require.NoError(t, err)

	calls := client.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, string(model.StageAwaitingConfirmation))
	assert.Contains(t, calls[0].Prompt, "already has items")
	assert.Contains(t, calls[0].Prompt, "actually add a coke")
}

func TestExtractor_ClassifyIntent_ProviderFailure(t *testing.T) {
	client := testutil.NewScriptedClient().On(classifierMarker, testutil.Reply{Err: errors.New("connection refused")})

	got, err := newTestExtractor(client).ClassifyIntent(context.Background(), "two dragon rolls", model.StageAwaitingItems, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrProviderUnavailable)
	assert.Equal(t, model.IntentUnknown, got)
}
