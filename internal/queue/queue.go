// Package queue provides the message queue capability that decouples the
// upload request path from the slow SQL restore worker.
//
// The producer publishes an import message and returns immediately; delivery
// to the worker happens in a separate execution context. Delivery is
// at-least-once: handlers must tolerate being invoked zero, one, or more than
// once for the same logical message.
package queue

import "context"

// Handler processes one delivered message. Returning nil acks the message;
// returning an error signals delivery failure to the transport.
type Handler func(ctx context.Context, payload []byte) error

// Queue is the capability interface for message delivery between the upload
// producer and the restore worker.
type Queue interface {
	// Publish enqueues payload on topic and returns a message id for
	// logging. It does not block on message handling.
	Publish(ctx context.Context, topic string, payload []byte) (string, error)

	// Subscribe registers h as the consumer for topic. Messages are
	// delivered until Close.
	Subscribe(topic string, h Handler) error

	// Close stops delivery and releases transport resources.
	Close() error
}
