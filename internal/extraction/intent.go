package extraction

import (
	"context"

	"github.com/Veraticus/tableside/internal/model"
)

// ClassifyIntent labels a turn. Bare yes/no answers are CONFIRM without a model
// call; anything else is asked of the model, and a reply that names no known intent
// is UNKNOWN. Only a failed call returns an error.
func (e *Extractor) ClassifyIntent(ctx context.Context, utterance string, stage model.Stage, hasItems bool) (model.Intent, error) {
	if model.ParseAnswer(utterance) != model.AnswerNone {
		return model.IntentConfirm, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	content, err := e.client.Complete(ctx, intentSystemPrompt, buildIntentPrompt(utterance, stage, hasItems))
	if err != nil {
		return model.IntentUnknown, classifyCallError(ctx, err)
	}

	intent := model.ParseIntent(content)
	if intent == model.IntentUnknown {
		e.logger.Debug("unrecognised intent reply", "reply", content)
	}
	return intent, nil
}
