package queue

import (
	"context"

	"aws-sqs-message-relay/internal/message"
)

// Writer defines the send side of a queue backend (SQS, Redis).
type Writer interface {
	// Push enqueues the message and returns the id assigned by the backend.
	Push(ctx context.Context, msg *message.Message) (string, error)
}

// Reader defines the receive side of a queue backend (SQS, Redis).
type Reader interface {
	// Poll receives up to count messages.
	Poll(ctx context.Context, count int) ([]message.Handle, error)
	// Delete acknowledges the given messages by their receipt handles.
	Delete(ctx context.Context, handles []message.Handle) error
}

// Queue is a backend serving both sides.
type Queue interface {
	Writer
	Reader
}
