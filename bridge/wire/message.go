// Package wire defines the messages exchanged between the render host and
// the logic context. These types are the channel contract: the logic
// context side imports this package to decode mutation batches and to
// build init, event and return messages.
package wire

import (
	"encoding/json"
	"fmt"
)

// Type is the message type tag carried on the wire.
type Type string

const (
	TypeMutationRecord Type = "MutationRecord" // render host -> logic context
	TypeInit           Type = "init"           // logic context -> render host
	TypeEvent          Type = "event"
	TypeReturn         Type = "return"
)

// Kind is the closed set of inbound message kinds the render host handles.
type Kind int

const (
	KindUnknown Kind = iota
	KindInit
	KindEvent
	KindReturn
)

func (k Kind) String() string {
	switch k {
	case KindInit:
		return "init"
	case KindEvent:
		return "event"
	case KindReturn:
		return "return"
	}
	return "unknown"
}

// Kind maps the wire tag onto the inbound enumeration. Outbound and
// unrecognised tags map to KindUnknown.
func (t Type) Kind() Kind {
	switch t {
	case TypeInit:
		return KindInit
	case TypeEvent:
		return KindEvent
	case TypeReturn:
		return KindReturn
	}
	return KindUnknown
}

// Message is the single envelope for both directions. Only the fields
// relevant to Type are populated.
type Message struct {
	Type Type `json:"type"`

	// MutationRecord
	Mutations []ChangeRecord `json:"mutations,omitempty"`

	// init
	URL   string `json:"url,omitempty"`
	Width int    `json:"width,omitempty"`

	// event
	Event *EventPayload `json:"event,omitempty"`

	// return: opaque to the render host, forwarded verbatim.
	Return json.RawMessage `json:"return,omitempty"`
}

// MutationBatch wraps sanitized records in an outbound envelope.
func MutationBatch(records []ChangeRecord) Message {
	return Message{Type: TypeMutationRecord, Mutations: records}
}

// Encode serialises a Message to JSON.
func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// Decode deserialises a single Message.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("wire: decode: %w", err)
	}
	return m, nil
}

// DecodeAll accepts either one JSON message object or an array of them.
func DecodeAll(data []byte) ([]Message, error) {
	for _, c := range data {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		case '[':
			var ms []Message
			if err := json.Unmarshal(data, &ms); err != nil {
				return nil, fmt.Errorf("wire: decode list: %w", err)
			}
			return ms, nil
		}
		break
	}
	m, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return []Message{m}, nil
}
