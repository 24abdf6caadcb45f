package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Veraticus/tableside/internal/model"
)

// Call records one request made to a ScriptedClient.
type Call struct {
	System string
	Prompt string
}

// Reply is one canned answer. When Err is set it is returned instead of Text.
type Reply struct {
	Err  error
	Text string
}

// ScriptedClient is a fake llm.Client. Replies are chosen by the first Route whose
// marker appears in the system prompt; otherwise the Queue is consumed in order.
type ScriptedClient struct {
	Routes map[string][]Reply
	Queue  []Reply
	calls  []Call
	mu     sync.Mutex
}

// NewScriptedClient returns an empty fake.
func NewScriptedClient() *ScriptedClient {
	return &ScriptedClient{Routes: make(map[string][]Reply)}
}

// On queues replies for requests whose system prompt contains marker.
func (c *ScriptedClient) On(marker string, replies ...Reply) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Routes[marker] = append(c.Routes[marker], replies...)
	return c
}

// Set replaces whatever is queued for marker.
func (c *ScriptedClient) Set(marker string, replies ...Reply) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Routes[marker] = replies
	return c
}

// Complete implements llm.Client.
func (c *ScriptedClient) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, Call{System: systemPrompt, Prompt: prompt})

	if err := ctx.Err(); err != nil {
		return "", err
	}

	for marker, replies := range c.Routes {
		if !strings.Contains(systemPrompt, marker) || len(replies) == 0 {
			continue
		}
		reply := replies[0]
		// The last reply for a marker repeats.
		if len(replies) > 1 {
			c.Routes[marker] = replies[1:]
		}
		return reply.Text, reply.Err
	}

	if len(c.Queue) == 0 {
		return "", fmt.Errorf("scripted client: no reply for prompt %q", prompt)
	}
	reply := c.Queue[0]
	c.Queue = c.Queue[1:]
	return reply.Text, reply.Err
}

// Calls returns every request made so far.
func (c *ScriptedClient) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// MemoryOrders is an in-memory order store for tests that don't need SQLite.
type MemoryOrders struct {
	Err    error
	orders []model.FinalizedOrder
	mu     sync.Mutex
}

// SaveOrder implements service.OrderStore.
func (m *MemoryOrders) SaveOrder(_ context.Context, order *model.FinalizedOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.orders = append(m.orders, *order)
	return nil
}

// LastOrderFor implements service.OrderStore.
func (m *MemoryOrders) LastOrderFor(_ context.Context, guestID string) (*model.FinalizedOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var last *model.FinalizedOrder
	for i := range m.orders {
		if m.orders[i].GuestID != guestID {
			continue
		}
		if last == nil || m.orders[i].CreatedAt.After(last.CreatedAt) {
			order := m.orders[i]
			last = &order
		}
	}
	return last, nil
}

// ListOrdersFor implements service.OrderStore.
func (m *MemoryOrders) ListOrdersFor(_ context.Context, guestID string, _ int) ([]model.FinalizedOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.FinalizedOrder
	for _, order := range m.orders {
		if order.GuestID == guestID {
			out = append(out, order)
		}
	}
	return out, nil
}

// Count returns how many orders have been saved.
func (m *MemoryOrders) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}
