package queue

// memory.go implements an in-process Queue for offline runs and tests.
//
// Publish hands the payload to subscribed handlers on separate goroutines,
// preserving the producer/worker decoupling: the publisher never waits for
// handling to complete.

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Queue.
type Memory struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	wg       sync.WaitGroup
	closed   bool
}

// NewMemory creates an in-process queue with no subscribers.
func NewMemory() *Memory {
	return &Memory{handlers: make(map[string][]Handler)}
}

// Publish delivers payload to every subscriber of topic asynchronously and
// returns a generated message id.
func (q *Memory) Publish(ctx context.Context, topic string, payload []byte) (string, error) {
	q.mu.RLock()
	handlers := q.handlers[topic]
	closed := q.closed
	q.mu.RUnlock()

	id := uuid.New().String()
	if closed {
		return id, nil
	}

	cp := make([]byte, len(payload))
	copy(cp, payload)

	for _, h := range handlers {
		h := h
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			if err := h(context.Background(), cp); err != nil {
				slog.Error("message handler failed", "topic", topic, "error", err)
			}
		}()
	}
	return id, nil
}

// Subscribe registers h as a consumer for topic.
func (q *Memory) Subscribe(topic string, h Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[topic] = append(q.handlers[topic], h)
	return nil
}

// Close stops accepting messages and waits for in-flight handlers.
func (q *Memory) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wg.Wait()
	return nil
}

var _ Queue = (*Memory)(nil)
