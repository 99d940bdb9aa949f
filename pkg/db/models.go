package db

import "time"

// Invocation represents a row in the invocations table.
type Invocation struct {
	ID         string    `json:"id" yaml:"id"`
	Action     string    `json:"action" yaml:"action"`
	Version    int       `json:"version" yaml:"version"`
	URL        string    `json:"url" yaml:"url"`
	Success    bool      `json:"success" yaml:"success"`
	ErrorType  *string   `json:"error_type,omitempty" yaml:"error_type,omitempty"`
	StatusCode *int      `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	DurationMs int64     `json:"duration_ms" yaml:"duration_ms"`
	RequestID  *string   `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	Created    time.Time `json:"created" yaml:"created"`
}

// ListFilter narrows ListInvocations. Zero values mean "no constraint".
type ListFilter struct {
	Action string
	// OnlyFailures restricts results to success = false.
	OnlyFailures bool
	Since        time.Time
	Limit        int
}

// DefaultListLimit caps ListInvocations when no limit is given.
const DefaultListLimit = 50
