// Package events defines invocation events and the publishers that emit them.
package events

// InvocationEvent is emitted after an action invocation completes.
type InvocationEvent struct {
	Action     string `json:"action"`
	Version    int    `json:"version"`
	URL        string `json:"url"`
	Success    bool   `json:"success"`
	ErrorType  string `json:"errorType,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
	DurationMs int64  `json:"durationMs"`
	RequestID  string `json:"requestId,omitempty"`
	Timestamp  string `json:"timestamp"`
}
