package dialog

import (
	"testing"
	"time"

	"github.com/Veraticus/tableside/internal/model"
	"github.com/Veraticus/tableside/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC)

func testMenu() Menu {
	return NewMenu(testutil.Menu())
}

func newState() model.DialogState {
	s := model.NewDialogState("session-1", "guest-1", now)
	s.SetStage(model.StageAwaitingItems)
	return s
}

func resolved(menu Menu, id, spoken string, qty int, conf float64) model.ResolvedLineItem {
	item := menu[id]
	return menu.Resolve(
		model.MatchResult{CatalogItemID: id, DisplayName: item.DisplayName, Confidence: conf},
		model.ExtractedLineItem{RawName: spoken, Quantity: qty},
	)
}

func TestMenu_Resolve(t *testing.T) {
	menu := testMenu()

	t.Run("option spoken in the name", func(t *testing.T) {
		line := resolved(menu, testutil.Gyoza, "beef gyoza", 2, 0.9)
		assert.Equal(t, map[string]string{"filling": "beef"}, line.SelectedOptions)
		assert.Empty(t, line.MissingOptions)
		assert.Equal(t, 2, line.Quantity)
		assert.Equal(t, "Gyoza", line.DisplayName)
	})

	t.Run("required option missing", func(t *testing.T) {
		line := resolved(menu, testutil.Gyoza, "gyoza", 1, 1)
		assert.Equal(t, []string{"filling"}, line.MissingOptions)
		assert.Nil(t, line.SelectedOptions)
	})

	t.Run("options from extraction", func(t *testing.T) {
		line := menu.Resolve(
			model.MatchResult{CatalogItemID: testutil.Ramen, DisplayName: "Tonkotsu Ramen", Confidence: 0.95},
			model.ExtractedLineItem{RawName: "ramen", Quantity: 1, Options: map[string]string{"Broth": "Spicy", "size": "huge"}},
		)
		assert.Equal(t, map[string]string{"broth": "spicy"}, line.SelectedOptions)
		assert.Empty(t, line.MissingOptions, "noodle firmness is optional")
	})

	t.Run("quantity defaults to one and confidence is clamped", func(t *testing.T) {
		line := resolved(menu, testutil.Coke, "coke", 0, 1.0000001)
		assert.Equal(t, 1, line.Quantity)
		assert.Equal(t, 1.0, line.MatchConfidence)
	})
}

func TestNext_OrderWithDrinkGoesStraightToConfirmation(t *testing.T) {
	menu := testMenu()
	s := newState()

	AddLines(&s,
		resolved(menu, testutil.GreenDragon, "dragon rolls", 2, 0.91),
		resolved(menu, testutil.IcedTea, "tea", 1, 0.88),
	)
	reply := Next(&s, menu)

	assert.Equal(t, model.StageAwaitingConfirmation, s.Stage)
	assert.True(t, s.AwaitingConfirmation)
	assert.Equal(t, DirectiveConfirmIntent, reply.Directive.Type)
	assert.Equal(t, "Okay, I have: 2 Green Dragon Roll and 1 Iced Tea. Is that correct?", reply.Message)
	require.NoError(t, s.Validate())
}

func TestNext_FoodOnlyAsksForDrinkOnce(t *testing.T) {
	menu := testMenu()
	s := newState()

	AddLines(&s, resolved(menu, testutil.FriedRice, "fried rice", 1, 1))
	reply := Next(&s, menu)
	assert.Equal(t, model.StageAwaitingDrink, s.Stage)
	assert.Equal(t, SlotDrink, reply.Directive.Slot)
	assert.True(t, s.DrinkOffered)

	reply = DeclineDrink(&s, menu)
	assert.Equal(t, model.StageAwaitingConfirmation, s.Stage)
	assert.Equal(t, "No problem. Okay, I have: 1 Fried Rice. Is that correct?", reply.Message)

	// More food later does not bring the drink question back.
	AddLines(&s, resolved(menu, testutil.Edamame, "edamame", 1, 1))
	Next(&s, menu)
	assert.Equal(t, model.StageAwaitingConfirmation, s.Stage)
}

func TestNext_DrinksOnlySkipsDrinkQuestion(t *testing.T) {
	menu := testMenu()
	s := newState()

	AddLines(&s, resolved(menu, testutil.Coke, "coke", 2, 1))
	Next(&s, menu)
	assert.Equal(t, model.StageAwaitingConfirmation, s.Stage)
}

func TestNext_EmptyOrderAsksForItems(t *testing.T) {
	s := model.NewDialogState("session-1", "guest-1", now)
	reply := Next(&s, testMenu())
	assert.Equal(t, model.StageAwaitingItems, s.Stage)
	assert.Equal(t, Elicit(SlotOrder, MsgAskItems), reply)
}

func TestAnswerOption(t *testing.T) {
	menu := testMenu()
	s := newState()

	AddLines(&s,
		resolved(menu, testutil.Gyoza, "gyoza", 2, 1),
		resolved(menu, testutil.Coke, "coke", 1, 1),
	)
	reply := Next(&s, menu)
	assert.Equal(t, model.StageResolvingOptions, s.Stage)
	assert.Equal(t, SlotOption, reply.Directive.Slot)
	assert.Equal(t, "For your Gyoza, which filling would you like? Choices are: beef, pork, vegetable.", reply.Message)

	reply = AnswerOption(&s, menu, "chicken")
	assert.Equal(t, model.StageResolvingOptions, s.Stage)
	assert.Contains(t, reply.Message, "Sorry, that isn't one of the choices.")
	assert.Len(t, s.PendingItems, 1)

	reply = AnswerOption(&s, menu, "pork please")
	assert.Empty(t, s.PendingItems)
	require.Len(t, s.ConfirmedItems, 2)
	assert.Equal(t, map[string]string{"filling": "pork"}, s.ConfirmedItems[1].SelectedOptions)
	assert.Equal(t, model.StageAwaitingConfirmation, s.Stage, "coke already covers the drink")
	assert.Contains(t, reply.Message, "2 Gyoza (filling: pork)")
	require.NoError(t, s.Validate())
}

func TestAnswerOption_OneAtATime(t *testing.T) {
	menu := testMenu()
	s := newState()

	AddLines(&s,
		resolved(menu, testutil.Gyoza, "gyoza", 1, 1),
		resolved(menu, testutil.Ramen, "ramen", 1, 1),
	)
	Next(&s, menu)

	reply := AnswerOption(&s, menu, "vegetable")
	assert.Equal(t, model.StageResolvingOptions, s.Stage)
	assert.Contains(t, reply.Message, "For your Tonkotsu Ramen, which broth would you like?")

	reply = AnswerOption(&s, menu, "spicy")
	assert.Equal(t, model.StageAwaitingDrink, s.Stage)
	assert.Equal(t, SlotDrink, reply.Directive.Slot)
}

func TestPendingChoice(t *testing.T) {
	menu := testMenu()
	s := newState()
	AddLines(&s, resolved(menu, testutil.Ramen, "ramen", 1, 1))
	Next(&s, menu)

	choice, ok := PendingChoice(&s, menu, "Mild, thanks")
	assert.True(t, ok)
	assert.Equal(t, "mild", choice)

	_, ok = PendingChoice(&s, menu, "what comes in it?")
	assert.False(t, ok)
}

func TestAddLines_Merges(t *testing.T) {
	menu := testMenu()
	s := newState()

	AddLines(&s, resolved(menu, testutil.Coke, "coke", 1, 1))
	AddLines(&s, resolved(menu, testutil.Coke, "coca cola", 2, 0.9))
	require.Len(t, s.ConfirmedItems, 1)
	assert.Equal(t, 3, s.ConfirmedItems[0].Quantity)

	AddLines(&s, resolved(menu, testutil.Gyoza, "gyoza", 1, 1), resolved(menu, testutil.Gyoza, "gyoza", 2, 1))
	require.Len(t, s.PendingItems, 1)
	assert.Equal(t, 3, s.PendingItems[0].Quantity)

	AddLines(&s, resolved(menu, testutil.Gyoza, "beef gyoza", 1, 1))
	assert.Len(t, s.ConfirmedItems, 2, "a chosen filling is a different line")
}

func TestResolveClarification(t *testing.T) {
	menu := testMenu()

	t.Run("yes adds the item", func(t *testing.T) {
		s := newState()
		s.Clarifications = []model.ResolvedLineItem{resolved(menu, testutil.Edamame, "soy beans", 1, 0.7)}

		reply := Next(&s, menu)
		assert.Equal(t, SlotClarification, reply.Directive.Slot)
		assert.Equal(t, `When you said "soy beans", did you mean the Edamame?`, reply.Message)

		ResolveClarification(&s, menu, model.AnswerYes)
		assert.Nil(t, s.Clarifications)
		require.Len(t, s.ConfirmedItems, 1)
		assert.Equal(t, testutil.Edamame, s.ConfirmedItems[0].CatalogItemID)
		assert.Equal(t, model.StageAwaitingDrink, s.Stage)
	})

	t.Run("no drops it and asks again", func(t *testing.T) {
		s := newState()
		s.Clarifications = []model.ResolvedLineItem{resolved(menu, testutil.Edamame, "soy beans", 1, 0.7)}

		reply := ResolveClarification(&s, menu, model.AnswerNo)
		assert.False(t, s.HasItems())
		assert.Equal(t, model.StageAwaitingItems, s.Stage)
		assert.Contains(t, reply.Message, `I've left out "soy beans"`)
		assert.Contains(t, reply.Message, "Could you say that item again?")
	})
}

func TestReorder(t *testing.T) {
	menu := testMenu()
	last := &model.FinalizedOrder{
		ID: "order-1", GuestID: "guest-1", CreatedAt: now.Add(-24 * time.Hour),
		Items: []model.ResolvedLineItem{
			{CatalogItemID: testutil.Ramen, DisplayName: "Tonkotsu Ramen", Quantity: 1, MatchConfidence: 1, SelectedOptions: map[string]string{"broth": "mild"}},
			{CatalogItemID: "discontinued", DisplayName: "Old Special", Quantity: 1, MatchConfidence: 1},
		},
	}

	t.Run("offer then accept", func(t *testing.T) {
		s := model.NewDialogState("session-1", "guest-1", now)
		reply := OfferReorder(&s, last)
		assert.Equal(t, model.StageGreeting, s.Stage)
		assert.Equal(t, DirectiveConfirmIntent, reply.Directive.Type)
		assert.Contains(t, reply.Message, "Welcome back!")
		assert.Equal(t, reply, Reprompt(&s, menu))

		reply = AcceptReorder(&s, menu)
		assert.Equal(t, model.StageAwaitingConfirmation, s.Stage)
		assert.Nil(t, s.ReorderOffer)
		require.Len(t, s.ConfirmedItems, 1)
		assert.Equal(t, testutil.Ramen, s.ConfirmedItems[0].CatalogItemID)
		assert.Equal(t, "Okay, I have: 1 Tonkotsu Ramen (broth: mild). Is that correct?", reply.Message)
		require.NoError(t, s.Validate())

		// The offer is a copy.
		s.ConfirmedItems[0].Quantity = 5
		assert.Equal(t, 1, last.Items[0].Quantity)
	})

	t.Run("decline", func(t *testing.T) {
		s := model.NewDialogState("session-1", "guest-1", now)
		OfferReorder(&s, last)

		reply := DeclineReorder(&s, menu)
		assert.Equal(t, model.StageAwaitingItems, s.Stage)
		assert.Nil(t, s.ReorderOffer)
		assert.Equal(t, "No problem. "+MsgAskItems, reply.Message)
	})
}

func TestHandleConfirmation(t *testing.T) {
	menu := testMenu()
	setup := func() model.DialogState {
		s := newState()
		AddLines(&s, resolved(menu, testutil.Coke, "coke", 1, 1))
		Next(&s, menu)
		return s
	}

	t.Run("yes places the order", func(t *testing.T) {
		s := setup()
		outcome, _ := HandleConfirmation(&s, model.AnswerYes, 2)
		assert.Equal(t, ConfirmPlace, outcome)

		order := BuildOrder(&s, "order-9")
		reply := Fulfill(&s, order)
		assert.Equal(t, model.StageFulfilled, s.Stage)
		assert.Equal(t, "order-9", s.OrderID)
		assert.Equal(t, Close(FulfillmentFulfilled, "Thank you! Your order for 1 Coca-Cola has been placed."), reply)
		require.NoError(t, order.Validate())
		require.NoError(t, s.Validate())

		// The order flow is closed from here on.
		reply = Next(&s, menu)
		assert.Equal(t, DirectiveClose, reply.Directive.Type)
		assert.Contains(t, reply.Message, "already been placed")
	})

	t.Run("no and unclear re-prompt then escalate", func(t *testing.T) {
		s := setup()

		outcome, reply := HandleConfirmation(&s, model.AnswerNo, 2)
		assert.Equal(t, ConfirmRetry, outcome)
		assert.Equal(t, model.StageAwaitingConfirmation, s.Stage)
		assert.Equal(t, DirectiveConfirmIntent, reply.Directive.Type)
		assert.Contains(t, reply.Message, "tell me what you'd like to change")

		outcome, reply = HandleConfirmation(&s, model.AnswerNone, 2)
		assert.Equal(t, ConfirmRetry, outcome)
		assert.Contains(t, reply.Message, "Sorry, I didn't catch that.")
		assert.Equal(t, 2, s.ConfirmRetries)

		outcome, reply = HandleConfirmation(&s, model.AnswerNo, 2)
		assert.Equal(t, ConfirmEscalate, outcome)
		assert.Equal(t, Close(FulfillmentFailed, MsgEscalate), reply)
		assert.Zero(t, s.ConfirmRetries)
		assert.Equal(t, model.StageAwaitingConfirmation, s.Stage)
	})
}

func TestApplyModification(t *testing.T) {
	menu := testMenu()
	s := newState()
	AddLines(&s, resolved(menu, testutil.Coke, "coke", 1, 1), resolved(menu, testutil.FriedRice, "rice", 1, 1))
	Next(&s, menu)
	BeginModification(&s)
	assert.Equal(t, model.StageModifying, s.Stage)
	assert.False(t, s.AwaitingConfirmation)

	reply := ApplyModification(&s, menu, []model.ResolvedLineItem{s.ConfirmedItems[1]}, "I removed the Coca-Cola.")
	assert.Equal(t, model.StageAwaitingConfirmation, s.Stage, "the drink question was already asked")
	assert.Equal(t, "I removed the Coca-Cola. Okay, I have: 1 Fried Rice. Is that correct?", reply.Message)

	reply = ApplyModification(&s, menu, nil, "I removed the Fried Rice.")
	assert.Equal(t, model.StageAwaitingItems, s.Stage)
	assert.Equal(t, "I removed the Fried Rice. "+MsgOrderEmpty+" "+MsgAskItems, reply.Message)
}

func TestSuggestion(t *testing.T) {
	menu := testMenu()
	line := resolved(menu, testutil.GreenDragon, "Green Dragon Roll", 1, 1)

	t.Run("accepted", func(t *testing.T) {
		s := newState()
		reply := OfferSuggestion(&s, line, "Our most popular dish is the Green Dragon Roll.")
		assert.Equal(t, SlotSuggestion, reply.Directive.Slot)
		assert.True(t, len(reply.Message) > 0)
		require.NotNil(t, s.Suggestion)

		reply = ResolveSuggestion(&s, menu, model.AnswerYes)
		assert.Nil(t, s.Suggestion)
		require.Len(t, s.ConfirmedItems, 1)
		assert.Contains(t, reply.Message, "Great, I've added 1 Green Dragon Roll.")
		assert.Equal(t, model.StageAwaitingDrink, s.Stage)
	})

	t.Run("declined", func(t *testing.T) {
		s := newState()
		OfferSuggestion(&s, line, "Try the Green Dragon Roll.")

		reply := ResolveSuggestion(&s, menu, model.AnswerNo)
		assert.Nil(t, s.Suggestion)
		assert.False(t, s.HasItems())
		assert.Equal(t, "No problem. "+MsgAskItems, reply.Message)
	})

	t.Run("item with options asks for them", func(t *testing.T) {
		s := newState()
		OfferSuggestion(&s, model.ResolvedLineItem{CatalogItemID: testutil.Ramen, DisplayName: "Tonkotsu Ramen", Quantity: 1, MatchConfidence: 1}, "Try the ramen.")

		ResolveSuggestion(&s, menu, model.AnswerYes)
		assert.Equal(t, model.StageResolvingOptions, s.Stage)
		require.Len(t, s.PendingItems, 1)
		assert.Equal(t, []string{"broth"}, s.PendingItems[0].MissingOptions)
	})
}

func TestReprompt_DoesNotChangeState(t *testing.T) {
	menu := testMenu()
	s := newState()
	AddLines(&s, resolved(menu, testutil.FriedRice, "rice", 1, 1))
	Next(&s, menu)
	require.Equal(t, model.StageAwaitingDrink, s.Stage)

	before := s.Clone()
	reply := Reprompt(&s, menu)
	assert.Equal(t, Elicit(SlotDrink, MsgAskDrink), reply)
	assert.Equal(t, before, s)

	reply = Answered(&s, menu, "The fried rice contains egg.")
	assert.Equal(t, "The fried rice contains egg. "+MsgAskDrink, reply.Message)
	assert.Equal(t, before, s)
}

func TestGreeting(t *testing.T) {
	assert.Equal(t, 3, Greetings())
	assert.Equal(t, Greeting(0), Greeting(3))
	assert.NotEqual(t, Greeting(0), Greeting(1))
	assert.NotEmpty(t, Greeting(-4))
}

func TestRestateMessage(t *testing.T) {
	assert.Equal(t, `I couldn't find "filet minon" on the menu. Could you say that item again?`, RestateMessage([]string{"filet minon"}))
	assert.Equal(t, `I couldn't find "a" and "b" on the menu. Could you say those items again?`, RestateMessage([]string{"a", "b"}))
	assert.Contains(t, RestateMessage(nil), MsgAskItems)
}

func TestSkippedMessage(t *testing.T) {
	assert.Empty(t, SkippedMessage(nil, nil))
	assert.Equal(t, `I couldn't find "unicorn" on the menu, so I've left it out.`, SkippedMessage([]string{"unicorn"}, nil))
	assert.Equal(t, `I'm having trouble looking up "gyoza" and "coke" right now. Could you say them again?`,
		SkippedMessage(nil, []string{"gyoza", "coke"}))
	assert.Equal(t, `I couldn't find "unicorn" on the menu, so I've left it out. I'm having trouble looking up "gyoza" right now. Could you say it again?`,
		SkippedMessage([]string{"unicorn"}, []string{"gyoza"}))
}

func TestRetryMessage(t *testing.T) {
	assert.Equal(t, RestateMessage([]string{"unicorn"}), RetryMessage([]string{"unicorn"}, nil))
	assert.Equal(t, `I'm having trouble looking up "gyoza" right now. Could you say it again?`, RetryMessage(nil, []string{"gyoza"}))
	assert.Equal(t, `I couldn't find "unicorn" on the menu. Could you say that item again? I'm having trouble looking up "gyoza" right now. Could you say it again?`,
		RetryMessage([]string{"unicorn"}, []string{"gyoza"}))
}

func TestReply_Prefixed(t *testing.T) {
	r := Elicit(SlotOrder, "What else?")
	assert.Equal(t, "Sure. What else?", r.Prefixed("Sure.").Message)
	assert.Equal(t, r, r.Prefixed("  "))
	assert.Equal(t, "Hi.", Reply{}.Prefixed("Hi.").Message)
}
