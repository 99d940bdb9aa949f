// Package payloads defines request shapes for commonly used CKAN actions.
// They are plain data: pass them to payload.JSON, or to payload.FormFromStruct
// for multipart requests. Nothing here validates values; the server does.
package payloads

// Request is implemented by every payload type and names its action.
type Request interface {
	Action() string
}

// Bool returns a pointer to b, for optional boolean fields.
func Bool(b bool) *bool {
	return &b
}

// Record is a free-form datastore row or field definition.
type Record = map[string]any
