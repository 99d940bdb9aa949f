package portal

import (
	"encoding/json"
)

// Envelope is the uniform response body returned by the action API.
type Envelope struct {
	Help    string          `json:"help,omitempty"`
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

var jsonNull = json.RawMessage("null")

// SuccessEnvelope builds a success envelope around an encoded result.
func SuccessEnvelope(result any) (*Envelope, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &Envelope{Success: true, Result: data}, nil
}

// ErrorEnvelope builds a failure envelope in the server's error shape
// ({"__type": ..., "message": ...}).
func ErrorEnvelope(errType, message string) *Envelope {
	data, _ := json.Marshal(map[string]string{"__type": errType, "message": message})
	return &Envelope{Success: false, Error: data}
}

// Inspect decodes the envelope of resp and returns a replayable replacement
// for it. After-phase interceptors that need to look at the body should
// return the replacement so later hooks and the portal can still decode it.
func Inspect(resp Response) (*Envelope, Response, error) {
	var raw json.RawMessage
	if err := resp.JSON(&raw); err != nil {
		return nil, nil, err
	}
	replay := JSONResponse(raw)

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, replay, err
	}
	return &env, replay, nil
}

// ErrorType returns the "__type" of an object-shaped error, or "" when the
// envelope succeeded or the error has no type.
func (e *Envelope) ErrorType() string {
	if e.Success || len(e.Error) == 0 {
		return ""
	}
	var typed struct {
		Type string `json:"__type"`
	}
	if err := json.Unmarshal(e.Error, &typed); err != nil {
		return ""
	}
	return typed.Type
}
