package broker

import (
	"context"
	"sync"
)

// Memory is an in-process Broker for tests and local runs. Published
// messages accumulate per queue until Drain delivers them to the
// subscribed handler; queues without a handler (dead-letter queues) just
// retain their messages for inspection.
type Memory struct {
	mu       sync.Mutex
	handlers map[string]Handler
	queues   map[string][]*Message
}

func NewMemory() *Memory {
	return &Memory{
		handlers: make(map[string]Handler),
		queues:   make(map[string][]*Message),
	}
}

func (m *Memory) Publish(ctx context.Context, queue string, payload []byte, headers Headers) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf := make([]byte, len(payload))
	copy(buf, payload)
	m.queues[queue] = append(m.queues[queue], &Message{Queue: queue, Payload: buf, Headers: headers})
	return nil
}

func (m *Memory) Subscribe(queue string, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[queue] = h
}

// Drain delivers pending messages on queue, including messages published
// while draining (retries), until the queue is empty or a handler errors.
func (m *Memory) Drain(ctx context.Context, queue string) error {
	for {
		m.mu.Lock()
		pending := m.queues[queue]
		if len(pending) == 0 {
			m.mu.Unlock()
			return nil
		}
		msg := pending[0]
		m.queues[queue] = pending[1:]
		h := m.handlers[queue]
		m.mu.Unlock()

		if h == nil {
			// No consumer; put it back and stop.
			m.mu.Lock()
			m.queues[queue] = append([]*Message{msg}, m.queues[queue]...)
			m.mu.Unlock()
			return nil
		}

		if err := h(ctx, msg); err != nil {
			return err
		}
	}
}

// Messages returns the undelivered messages currently held on queue.
func (m *Memory) Messages(queue string) []*Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Message, len(m.queues[queue]))
	copy(out, m.queues[queue])
	return out
}
