// Package dispatcher carries action invocations over COMMS: the gateway wire
// envelope and the dispatch of gateway requests onto an upstream Portal.
package dispatcher

import (
	"encoding/json"

	"github.com/morezero/ckan-portal/pkg/payload"
)

// ActionRequest is the JSON envelope for an action invocation sent to the gateway.
type ActionRequest struct {
	ID      string            `json:"id"`
	Action  string            `json:"action"`
	Version int               `json:"version,omitempty"`
	Token   string            `json:"token,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	// Payload is the JSON body. Ignored when Multipart is set.
	Payload   json.RawMessage    `json:"payload,omitempty"`
	Multipart bool               `json:"multipart,omitempty"`
	Form      []payload.Part     `json:"form,omitempty"`
	Ctx       *InvocationContext `json:"ctx,omitempty"`
}

// ActionResponse is the gateway reply. Apart from ID it has the shape of the
// upstream envelope, so an edge Portal can unwrap it unchanged.
type ActionResponse struct {
	ID      string          `json:"id"`
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// InvocationContext holds context from the caller.
type InvocationContext struct {
	UserID        string `json:"userId,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
	TimeoutMs     int    `json:"timeoutMs,omitempty"`
}
