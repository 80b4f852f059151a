// Package message defines the wire envelope shared by every node kind:
// broadcast, echo, and unique-id. The envelope is immutable; a new one is
// always derived from an inbound envelope via Reply or Redirect.
package message

import (
	"encoding/json"
	"fmt"
)

// Payload is any message body variant. Kind returns the wire "type" tag.
type Payload interface {
	Kind() string
}

// Factory builds a zero-value Payload for a registered wire type tag.
type Factory func() Payload

var registry = map[string]Factory{}

// Register adds a payload kind to the envelope's unmarshaling dispatch
// table. Node packages call this from an init() so that message stays
// unaware of broadcast/echo/uniqueid specifics.
func Register(kind string, factory Factory) {
	registry[kind] = factory
}

// Unknown wraps a payload variant the local registry does not recognize.
// Per the protocol's forward-compatibility rule, receiving one of these is
// not an error; handlers are expected to ignore it silently.
type Unknown struct {
	Type string
	Raw  json.RawMessage
}

// Kind implements Payload.
func (u Unknown) Kind() string { return u.Type }

// Body is the inner envelope payload: an optional outgoing sequence
// number, an optional reply correlation number, and the discriminated
// payload itself.
type Body struct {
	MsgID     *int
	InReplyTo *int
	Payload   Payload
}

// Envelope is an immutable message in transit between two addresses.
type Envelope struct {
	Src  string
	Dest string
	Body Body
}

// Reply derives a new envelope addressed back to the sender of e, with
// in_reply_to set to e's msg_id (if any) and the given msg_id/payload.
// e itself is never mutated.
func (e Envelope) Reply(msgID int, payload Payload) Envelope {
	id := msgID
	var inReplyTo *int
	if e.Body.MsgID != nil {
		v := *e.Body.MsgID
		inReplyTo = &v
	}
	return Envelope{
		Src:  e.Dest,
		Dest: e.Src,
		Body: Body{MsgID: &id, InReplyTo: inReplyTo, Payload: payload},
	}
}

// Redirect returns a copy of a derived reply envelope addressed to dest
// instead of the original sender, preserving source and body. Used to
// fan out gossip to a peer in response to an inbound broadcast/gossip.
func (e Envelope) Redirect(dest string) Envelope {
	out := e
	out.Dest = dest
	return out
}

// wireEnvelope is the on-the-wire shape of Envelope. Body holds the
// flattened body object, in which "type" and the payload's own fields sit
// as siblings of "msg_id" and "in_reply_to".
type wireEnvelope struct {
	Src  string          `json:"src"`
	Dest string          `json:"dest"`
	Body json.RawMessage `json:"body"`
}

type bodyHead struct {
	Type      string `json:"type"`
	MsgID     *int   `json:"msg_id,omitempty"`
	InReplyTo *int   `json:"in_reply_to,omitempty"`
}

// MarshalJSON flattens Body.Payload's fields into the body object
// alongside type, msg_id, and in_reply_to.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Body.Payload == nil {
		return nil, fmt.Errorf("message: envelope has no payload")
	}

	payloadJSON, err := json.Marshal(e.Body.Payload)
	if err != nil {
		return nil, fmt.Errorf("message: marshal payload: %w", err)
	}

	merged := map[string]any{}
	if len(payloadJSON) > 0 {
		if err := json.Unmarshal(payloadJSON, &merged); err != nil {
			return nil, fmt.Errorf("message: payload is not a JSON object: %w", err)
		}
	}
	merged["type"] = e.Body.Payload.Kind()
	if e.Body.MsgID != nil {
		merged["msg_id"] = *e.Body.MsgID
	}
	if e.Body.InReplyTo != nil {
		merged["in_reply_to"] = *e.Body.InReplyTo
	}

	bodyJSON, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("message: marshal body: %w", err)
	}

	return json.Marshal(wireEnvelope{Src: e.Src, Dest: e.Dest, Body: bodyJSON})
}

// UnmarshalJSON reverses MarshalJSON: it peeks at body.type to select a
// registered Factory, then unmarshals the full body object into the
// resulting Payload (whose own struct tags pick out its named fields).
// An unrecognized type produces an Unknown payload rather than an error,
// per the protocol's silent forward-compatibility rule; structurally
// malformed JSON still fails.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var wire wireEnvelope
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("message: decode envelope: %w", err)
	}

	var head bodyHead
	if err := json.Unmarshal(wire.Body, &head); err != nil {
		return fmt.Errorf("message: decode body header: %w", err)
	}
	if head.Type == "" {
		return fmt.Errorf("message: body missing required \"type\" field")
	}

	var payload Payload
	if factory, ok := registry[head.Type]; ok {
		payload = factory()
		if err := json.Unmarshal(wire.Body, payload); err != nil {
			return fmt.Errorf("message: decode %q payload: %w", head.Type, err)
		}
	} else {
		payload = Unknown{Type: head.Type, Raw: append(json.RawMessage(nil), wire.Body...)}
	}

	e.Src = wire.Src
	e.Dest = wire.Dest
	e.Body = Body{MsgID: head.MsgID, InReplyTo: head.InReplyTo, Payload: payload}
	return nil
}
