package commsutil

import (
	"encoding/json"
	"fmt"

	comms "github.com/nats-io/nats.go"
)

const codecLogPrefix = "commsutil:codec"

// Encode serializes a message body as JSON.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to encode %T: %w", codecLogPrefix, v, err)
	}
	return data, nil
}

// Decode deserializes a message body into a new T.
func Decode[T any](data []byte) (*T, error) {
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%s - failed to decode %T: %w", codecLogPrefix, out, err)
	}
	return &out, nil
}

// Respond encodes v and sends it as the reply to msg.
func Respond(msg *comms.Msg, v any) error {
	data, err := Encode(v)
	if err != nil {
		return err
	}
	if err := msg.Respond(data); err != nil {
		return fmt.Errorf("%s - failed to respond on %s: %w", codecLogPrefix, msg.Reply, err)
	}
	return nil
}
