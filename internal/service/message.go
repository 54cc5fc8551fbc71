// Package service exposes the queue operations to the HTTP layer and the
// scheduler without tying them to a transport.
package service

import (
	"context"

	"aws-sqs-message-relay/internal/message"
	"aws-sqs-message-relay/internal/queue"
)

// MessageService delegates to the configured queue backend. Either side may
// be nil when a process only reads or only writes.
type MessageService struct {
	Writer queue.Writer
	Reader queue.Reader
}

// Send validates the message and pushes it, returning the queue message id.
func (s *MessageService) Send(ctx context.Context, msg *message.Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	return s.Writer.Push(ctx, msg)
}

// GetMessages polls up to count messages.
func (s *MessageService) GetMessages(ctx context.Context, count int) ([]message.Handle, error) {
	return s.Reader.Poll(ctx, count)
}

// DeleteMessages acknowledges the given messages.
func (s *MessageService) DeleteMessages(ctx context.Context, handles []message.Handle) error {
	return s.Reader.Delete(ctx, handles)
}
