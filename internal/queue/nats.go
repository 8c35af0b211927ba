package queue

// nats.go implements Queue on a NATS connection.
//
// Workers join a queue group so a topic can be consumed by multiple worker
// processes with each message delivered to one of them.

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// workerGroup is the NATS queue group restore workers join.
const workerGroup = "restore-workers"

// NATS is a Queue backed by a NATS connection.
type NATS struct {
	conn *nats.Conn
	subs []*nats.Subscription
}

// ConnectNATS connects to the NATS server at url.
func ConnectNATS(url string) (*NATS, error) {
	conn, err := nats.Connect(url,
		nats.Name("ledgerlens"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATS{conn: conn}, nil
}

// Publish enqueues payload on topic and returns a generated message id.
func (q *NATS) Publish(ctx context.Context, topic string, payload []byte) (string, error) {
	if err := q.conn.Publish(topic, payload); err != nil {
		return "", fmt.Errorf("publish to %s: %w", topic, err)
	}
	return uuid.New().String(), nil
}

// Subscribe registers h as a queue-group consumer for topic.
// Handler errors are logged; the message is not redelivered by this
// transport, matching the pipeline's no-automatic-retry policy.
func (q *NATS) Subscribe(topic string, h Handler) error {
	sub, err := q.conn.QueueSubscribe(topic, workerGroup, func(msg *nats.Msg) {
		if err := h(context.Background(), msg.Data); err != nil {
			slog.Error("message handler failed", "topic", topic, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	q.subs = append(q.subs, sub)
	return nil
}

// Close drains outstanding messages and closes the connection.
func (q *NATS) Close() error {
	for _, sub := range q.subs {
		_ = sub.Unsubscribe()
	}
	return q.conn.Drain()
}

var _ Queue = (*NATS)(nil)
