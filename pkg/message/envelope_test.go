package message

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestMarshalFlattensPayload(t *testing.T) {
	msgID := 3
	inReply := 2
	env := Envelope{
		Src:  "n1",
		Dest: "c1",
		Body: Body{
			MsgID:     &msgID,
			InReplyTo: &inReply,
			Payload:   InitOk{},
		},
	}

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	body, ok := raw["body"].(map[string]any)
	if !ok {
		t.Fatalf("body is not an object: %v", raw["body"])
	}
	if body["type"] != "init_ok" {
		t.Fatalf("expected type init_ok, got %v", body["type"])
	}
	if body["msg_id"] != float64(3) {
		t.Fatalf("expected msg_id 3, got %v", body["msg_id"])
	}
	if body["in_reply_to"] != float64(2) {
		t.Fatalf("expected in_reply_to 2, got %v", body["in_reply_to"])
	}
}

func TestUnmarshalDecodesFlattenedInit(t *testing.T) {
	raw := `{"src":"c1","dest":"n1","body":{"msg_id":1,"type":"init","node_id":"n1","node_ids":["n1","n2"]}}`

	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatal(err)
	}

	if env.Src != "c1" || env.Dest != "n1" {
		t.Fatalf("unexpected src/dest: %+v", env)
	}
	if env.Body.MsgID == nil || *env.Body.MsgID != 1 {
		t.Fatalf("unexpected msg_id: %+v", env.Body.MsgID)
	}
	init, ok := env.Body.Payload.(*Init)
	if !ok {
		t.Fatalf("expected *Init payload, got %T", env.Body.Payload)
	}
	if init.NodeID != "n1" || len(init.NodeIDs) != 2 {
		t.Fatalf("unexpected init payload: %+v", init)
	}
}

func TestUnmarshalUnknownTypeIsNotAnError(t *testing.T) {
	raw := `{"src":"c1","dest":"n1","body":{"type":"error","code":11,"text":"boom"}}`

	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("unknown payload type should not fail decoding: %v", err)
	}
	unk, ok := env.Body.Payload.(Unknown)
	if !ok {
		t.Fatalf("expected Unknown payload, got %T", env.Body.Payload)
	}
	if unk.Kind() != "error" {
		t.Fatalf("expected kind error, got %s", unk.Kind())
	}
}

func TestUnmarshalMalformedJSONIsFatal(t *testing.T) {
	raw := `{"src":"c1","dest":"n1","body":`

	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err == nil {
		t.Fatal("expected an error decoding malformed JSON")
	}
}

func TestReplyDerivesAddressingAndDoesNotMutateSource(t *testing.T) {
	inbound := Envelope{
		Src:  "c1",
		Dest: "n1",
		Body: Body{MsgID: intPtr(7), Payload: Init{NodeID: "n1"}},
	}

	reply := inbound.Reply(1, InitOk{})

	if reply.Src != "n1" || reply.Dest != "c1" {
		t.Fatalf("unexpected reply addressing: %+v", reply)
	}
	if reply.Body.InReplyTo == nil || *reply.Body.InReplyTo != 7 {
		t.Fatalf("expected in_reply_to 7, got %+v", reply.Body.InReplyTo)
	}
	if *inbound.Body.MsgID != 7 {
		t.Fatal("inbound envelope was mutated")
	}
}

func TestRedirectPreservesSourceAndBody(t *testing.T) {
	inbound := Envelope{Src: "c1", Dest: "n1", Body: Body{MsgID: intPtr(1), Payload: Init{}}}
	reply := inbound.Reply(2, InitOk{})
	redirected := reply.Redirect("n2")

	if redirected.Src != reply.Src {
		t.Fatalf("redirect should preserve derived source, got %s", redirected.Src)
	}
	if redirected.Dest != "n2" {
		t.Fatalf("redirect should set dest to n2, got %s", redirected.Dest)
	}
	if redirected.Body.MsgID != reply.Body.MsgID || redirected.Body.InReplyTo != reply.Body.InReplyTo || redirected.Body.Payload != reply.Body.Payload {
		t.Fatalf("redirect should preserve the derived body, got %+v", redirected.Body)
	}
}

func TestWriteAppendsSingleNewline(t *testing.T) {
	var buf bytes.Buffer
	env := Envelope{Src: "n1", Dest: "c1", Body: Body{Payload: InitOk{}}}
	if err := Write(&buf, env); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if len(out) == 0 || out[len(out)-1] != '\n' {
		t.Fatalf("expected output to end with exactly one newline: %q", out)
	}
	if bytes.Count(buf.Bytes(), []byte("\n")) != 1 {
		t.Fatalf("expected exactly one newline, got %q", out)
	}
}

func intPtr(v int) *int { return &v }
