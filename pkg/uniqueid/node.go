// Package uniqueid implements the unique-id generator node: it answers
// every Generate request with a string guaranteed unique across the
// whole cluster by concatenating the local node id with a monotonically
// increasing local counter.
package uniqueid

import (
	"fmt"

	"github.com/mcastellin/maelstrom-broadcast/pkg/message"
	"github.com/mcastellin/maelstrom-broadcast/pkg/node"
)

func init() {
	message.Register("generate", func() message.Payload { return &Generate{} })
	message.Register("generate_ok", func() message.Payload { return &GenerateOk{} })
}

// Generate requests a new cluster-unique id.
type Generate struct{}

// Kind implements message.Payload.
func (Generate) Kind() string { return "generate" }

// GenerateOk carries the newly generated id.
type GenerateOk struct {
	ID string `json:"id"`
}

// Kind implements message.Payload.
func (GenerateOk) Kind() string { return "generate_ok" }

// New constructs a Node from the inbound init envelope, satisfying
// node.Factory.
func New(init message.Envelope) (node.Handler, message.Envelope, error) {
	initPayload, ok := init.Body.Payload.(*message.Init)
	if !ok {
		return nil, message.Envelope{}, fmt.Errorf("uniqueid: expected init payload, got %T", init.Body.Payload)
	}
	return &Node{id: initPayload.NodeID, nextMsgID: 1}, init.Reply(0, message.InitOk{}), nil
}

// Node generates cluster-unique ids by pairing its node id with a
// counter that never decreases and never repeats within the node's
// lifetime.
type Node struct {
	id        string
	nextMsgID int
	counter   uint64
}

// Reply implements node.Handler.
func (n *Node) Reply(env message.Envelope) ([]message.Envelope, error) {
	if _, ok := env.Body.Payload.(*Generate); !ok {
		return nil, nil
	}
	id := n.nextMsgID
	n.nextMsgID++
	uid := fmt.Sprintf("%s-%d", n.id, n.counter)
	n.counter++
	return []message.Envelope{env.Reply(id, GenerateOk{ID: uid})}, nil
}
