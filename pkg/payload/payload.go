// Package payload wraps request bodies for action invocations: either a
// JSON-compatible value or a multipart form.
package payload

import (
	"encoding/json"
	"fmt"
)

const logPrefix = "payload:payload"

// Body is a serialized payload ready for a transport: either JSONBody or *Form.
type Body interface {
	isBody()
}

// JSONBody is a JSON-encoded request body.
type JSONBody string

func (JSONBody) isBody() {}

func (*Form) isBody() {}

// Payload holds exactly one of a JSON-compatible value or a multipart form.
type Payload struct {
	value any
	form  *Form
}

// JSON wraps a JSON-compatible value: nil, bool, numbers, string, slices and
// string-keyed maps of those, or any value encoding/json accepts.
func JSON(v any) *Payload {
	return &Payload{value: v}
}

// Multipart wraps a multipart form. A nil form is treated as an empty one.
func Multipart(f *Form) *Payload {
	if f == nil {
		f = NewForm()
	}
	return &Payload{form: f}
}

// From picks the payload variant from the runtime shape of v.
func From(v any) *Payload {
	switch x := v.(type) {
	case *Payload:
		return x
	case *Form:
		return Multipart(x)
	default:
		return JSON(v)
	}
}

// IsMultipart reports whether the payload carries a form.
func (p *Payload) IsMultipart() bool {
	return p.form != nil
}

// Value returns the wrapped JSON value, or nil for multipart payloads.
func (p *Payload) Value() any {
	return p.value
}

// AsBody serializes the payload. Forms are returned unchanged so the transport
// can choose the multipart boundary; everything else is JSON-encoded.
func (p *Payload) AsBody() (Body, error) {
	if p.form != nil {
		return p.form, nil
	}
	data, err := json.Marshal(p.value)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to encode payload: %w", logPrefix, err)
	}
	return JSONBody(data), nil
}
