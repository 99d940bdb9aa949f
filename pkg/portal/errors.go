package portal

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies invocation failures.
type Kind string

const (
	// KindTransport covers send failures and undecodable responses.
	KindTransport Kind = "transport"
	// KindProtocol means the envelope decoded and reported success=false.
	KindProtocol Kind = "protocol"
	// KindInterceptor means an interceptor aborted the pipeline.
	KindInterceptor Kind = "interceptor"
)

// Error is returned by Invoke and everything built on it.
type Error struct {
	Kind   Kind
	Action string
	// Payload is the server-supplied error value, verbatim. Only set for KindProtocol.
	Payload json.RawMessage
	// Err is the underlying cause for transport and interceptor failures.
	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindProtocol:
		if msg := e.Message(); msg != "" {
			if t := e.Type(); t != "" {
				return fmt.Sprintf("%s: %s: %s", e.Action, t, msg)
			}
			return fmt.Sprintf("%s: %s", e.Action, msg)
		}
		return fmt.Sprintf("%s: server error: %s", e.Action, string(e.Payload))
	default:
		return fmt.Sprintf("%s: %s error: %v", e.Action, e.Kind, e.Err)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Decode decodes the server error payload into v.
func (e *Error) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("no server error payload")
	}
	return json.Unmarshal(e.Payload, v)
}

// Value returns the server error payload decoded into a generic value.
func (e *Error) Value() any {
	var v any
	if err := e.Decode(&v); err != nil {
		return nil
	}
	return v
}

// Type returns the "__type" field of an object-shaped server error, if any.
func (e *Error) Type() string {
	return e.field("__type")
}

// Message returns the "message" field of an object-shaped server error, or the
// error itself when the server sent a plain string.
func (e *Error) Message() string {
	if s, ok := e.Value().(string); ok {
		return s
	}
	return e.field("message")
}

func (e *Error) field(key string) string {
	m, ok := e.Value().(map[string]any)
	if !ok {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// IsProtocol reports whether err is a server-reported failure.
func IsProtocol(err error) bool {
	return isKind(err, KindProtocol)
}

// IsTransport reports whether err is a send or decode failure.
func IsTransport(err error) bool {
	return isKind(err, KindTransport)
}

// IsInterceptor reports whether err was raised by an interceptor.
func IsInterceptor(err error) bool {
	return isKind(err, KindInterceptor)
}

func isKind(err error, kind Kind) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Kind == kind
}
