// Package validation provides the typed error kinds shared by the queue
// clients and the message service, plus a small precondition helper.
package validation

import (
	"errors"
	"fmt"
)

// Kind identifies the category of a failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation means the caller supplied an invalid argument.
	KindValidation
	// KindMessageRead means the queue failed a receive or returned an undecodable message.
	KindMessageRead
	// KindQueueWrite means the queue failed a send.
	KindQueueWrite
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindMessageRead:
		return "MessageReadError"
	case KindQueueWrite:
		return "QueueWriteError"
	default:
		return "Unknown"
	}
}

// Error is a failure tagged with its Kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Sentinels for errors.Is. Any *Error matches the sentinel of its kind.
var (
	ErrValidation  = &Error{Kind: KindValidation}
	ErrMessageRead = &Error{Kind: KindMessageRead}
	ErrQueueWrite  = &Error{Kind: KindQueueWrite}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// New returns an error of the given kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap returns an error of the given kind carrying err as its cause.
func Wrap(kind Kind, err error, msg string) error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// This returns nil when ok holds, otherwise an error of the given kind.
func This(ok bool, kind Kind, msg string) error {
	if ok {
		return nil
	}
	return New(kind, msg)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
