package echo

import (
	"testing"

	"github.com/mcastellin/maelstrom-broadcast/pkg/message"
)

func TestEchoRepliesWithSameText(t *testing.T) {
	handler, initOk, err := New(message.Envelope{
		Src: "c0", Dest: "n1",
		Body: message.Body{MsgID: intPtr(1), Payload: &message.Init{NodeID: "n1"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if initOk.Body.Payload.Kind() != "init_ok" {
		t.Fatalf("expected init_ok, got %s", initOk.Body.Payload.Kind())
	}

	out, err := handler.Reply(message.Envelope{
		Src: "c1", Dest: "n1",
		Body: message.Body{MsgID: intPtr(2), Payload: &Echo{Text: "hello"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("expected exactly one reply, got %d", len(out))
	}
	ok := out[0].Body.Payload.(EchoOk)
	if ok.Text != "hello" {
		t.Fatalf("expected echoed text %q, got %q", "hello", ok.Text)
	}
	if *out[0].Body.InReplyTo != 2 {
		t.Fatalf("expected in_reply_to 2, got %d", *out[0].Body.InReplyTo)
	}
}

func TestEchoIgnoresUnknownPayload(t *testing.T) {
	handler, _, err := New(message.Envelope{
		Body: message.Body{Payload: &message.Init{NodeID: "n1"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	out, err := handler.Reply(message.Envelope{Body: message.Body{Payload: message.Unknown{Type: "weird"}}})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no reply, got %+v", out)
	}
}

func intPtr(v int) *int { return &v }
