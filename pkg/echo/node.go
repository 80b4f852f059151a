// Package echo implements the trivial echo responder: it shares the
// envelope and dispatch scaffolding with broadcast and uniqueid but has
// no state beyond a message-id counter.
package echo

import (
	"fmt"

	"github.com/mcastellin/maelstrom-broadcast/pkg/message"
	"github.com/mcastellin/maelstrom-broadcast/pkg/node"
)

func init() {
	message.Register("echo", func() message.Payload { return &Echo{} })
	message.Register("echo_ok", func() message.Payload { return &EchoOk{} })
}

// Echo is a client request to echo its Text field back unchanged.
type Echo struct {
	Text string `json:"echo"`
}

// Kind implements message.Payload.
func (Echo) Kind() string { return "echo" }

// EchoOk carries the echoed text back.
type EchoOk struct {
	Text string `json:"echo"`
}

// Kind implements message.Payload.
func (EchoOk) Kind() string { return "echo_ok" }

// New constructs a Node from the inbound init envelope, satisfying
// node.Factory.
func New(init message.Envelope) (node.Handler, message.Envelope, error) {
	if _, ok := init.Body.Payload.(*message.Init); !ok {
		return nil, message.Envelope{}, fmt.Errorf("echo: expected init payload, got %T", init.Body.Payload)
	}
	return &Node{nextMsgID: 1}, init.Reply(0, message.InitOk{}), nil
}

// Node replies to every Echo with an EchoOk carrying the same text.
type Node struct {
	nextMsgID int
}

// Reply implements node.Handler.
func (n *Node) Reply(env message.Envelope) ([]message.Envelope, error) {
	e, ok := env.Body.Payload.(*Echo)
	if !ok {
		return nil, nil
	}
	id := n.nextMsgID
	n.nextMsgID++
	return []message.Envelope{env.Reply(id, EchoOk{Text: e.Text})}, nil
}
