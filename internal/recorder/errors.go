// File: internal/recorder/errors.go
package recorder

import (
	"context"
	"errors"
	"fmt"
)

// Kind is the machine-readable error category exposed across the recorder
// boundary. Callers branch on kinds, never on message text.
type Kind string

const (
	KindInvalidRequest   Kind = "invalid_request"
	KindNotFound         Kind = "not_found"
	KindUnsupportedEvent Kind = "unsupported_event"
	KindEngine           Kind = "engine"
	KindTimeout          Kind = "timeout"
)

// Error is the discriminated error type for all recorder operations.
type Error struct {
	Kind    Kind
	Message string
	// Tag carries the offending event tag for unsupported_event errors.
	Tag string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the error kind, defaulting to KindEngine for errors that
// escaped without classification.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindEngine
}

func invalidRequestf(format string, args ...any) error {
	return &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

func notFoundErr(id string) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("unknown session %q", id)}
}

func unsupportedEventErr(tag string) error {
	return &Error{
		Kind:    KindUnsupportedEvent,
		Message: fmt.Sprintf("unsupported event type: %q", tag),
		Tag:     tag,
	}
}

// engineErr classifies a failed engine call, promoting deadline expiry to
// the timeout kind so callers can distinguish a hung browser from a broken
// one.
func engineErr(op string, err error) error {
	kind := KindEngine
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Message: op + " failed", Err: err}
}
