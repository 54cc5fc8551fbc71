// Package message defines the value exchanged between the writer and the reader.
package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"aws-sqs-message-relay/internal/validation"
)

// ErrMalformed is returned by Decode for a wire body that is not a message.
// It carries no validation kind: the queue, not the caller, supplied it.
var ErrMalformed = errors.New("malformed message")

// Message is the domain payload. On the wire it is {"Body":"..."}.
type Message struct {
	Body string `json:"Body"`
}

// Handle pairs a received Message with the handle needed to delete it.
type Handle struct {
	Message       *Message
	MessageID     string // transport id, diagnostics only
	ReceiptHandle string // opaque, valid until deleted or the visibility timeout lapses
}

// New creates a Message with the given body.
func New(body string) *Message {
	return &Message{Body: body}
}

// Validate checks that m is present and its body is not blank.
func (m *Message) Validate() error {
	if err := validation.This(m != nil, validation.KindValidation, "message cannot be nil"); err != nil {
		return err
	}
	return validation.This(strings.TrimSpace(m.Body) != "", validation.KindValidation,
		"message body cannot be empty or whitespace")
}

// Encode serializes m into its wire form.
func Encode(m *Message) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Decode parses a wire body into a valid Message.
func Decode(data string) (*Message, error) {
	var m *Message
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if m == nil || strings.TrimSpace(m.Body) == "" {
		return nil, fmt.Errorf("%w: body is missing or blank", ErrMalformed)
	}
	return m, nil
}
