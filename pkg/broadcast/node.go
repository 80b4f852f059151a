// Package broadcast implements the anti-entropy broadcast state machine:
// the hardest piece of this repository. A Node owns the received-value
// set, the peer list assigned by the last topology message, and a
// per-peer peer_view used to compute gossip deltas and suppress
// redundant retransmission. It is driven exclusively by node.Runtime,
// which guarantees Reply is never called concurrently with itself.
package broadcast

import (
	"fmt"
	"sort"

	"github.com/mcastellin/maelstrom-broadcast/pkg/message"
	"github.com/mcastellin/maelstrom-broadcast/pkg/node"
)

// New constructs a Node from the inbound init envelope, satisfying
// node.Factory. The returned envelope is the init_ok reply, msg_id 0.
func New(init message.Envelope) (node.Handler, message.Envelope, error) {
	initPayload, ok := init.Body.Payload.(*message.Init)
	if !ok {
		return nil, message.Envelope{}, fmt.Errorf("broadcast: expected init payload, got %T", init.Body.Payload)
	}

	n := &Node{
		id:        initPayload.NodeID,
		nextMsgID: 1,
		values:    map[uint64]struct{}{},
		peerView:  map[string]map[uint64]struct{}{},
	}
	return n, init.Reply(0, message.InitOk{}), nil
}

// Node is the broadcast protocol state machine described in spec §3/§4.5.
// It is not safe for concurrent use; node.Runtime's reply stage is
// single-threaded by design, so no internal locking is needed here.
type Node struct {
	id        string
	nextMsgID int

	values   map[uint64]struct{}
	peers    []string
	peerView map[string]map[uint64]struct{}
}

// Reply dispatches one inbound or synthetic event and returns every
// outbound envelope it produces, in emission order.
func (n *Node) Reply(env message.Envelope) ([]message.Envelope, error) {
	switch p := env.Body.Payload.(type) {
	case *Topology:
		return n.handleTopology(env, p)
	case *Broadcast:
		return n.handleBroadcast(env, p)
	case *Read:
		return n.handleRead(env)
	case *Gossip:
		return n.handleGossip(env, p)
	case *GossipOk:
		return n.handleGossipOk(env, p)
	case node.TriggerGossip:
		return n.handleTriggerGossip(env)
	default:
		// Unknown payload variant: ignored silently, forward-compatible.
		return nil, nil
	}
}

func (n *Node) handleTopology(env message.Envelope, p *Topology) ([]message.Envelope, error) {
	peers, ok := p.TopologyMap[n.id]
	if !ok {
		return nil, fmt.Errorf("broadcast: topology does not mention local node %q", n.id)
	}

	n.peers = peers
	n.peerView = make(map[string]map[uint64]struct{}, len(peers))
	for _, peer := range peers {
		n.peerView[peer] = map[uint64]struct{}{}
	}

	return []message.Envelope{env.Reply(n.allocMsgID(), TopologyOk{})}, nil
}

func (n *Node) handleBroadcast(env message.Envelope, p *Broadcast) ([]message.Envelope, error) {
	n.values[p.Message] = struct{}{}

	out := []message.Envelope{env.Reply(n.allocMsgID(), BroadcastOk{})}
	for _, peer := range n.peers {
		if _, known := n.peerView[peer][p.Message]; known {
			continue
		}
		out = append(out, n.gossipTo(env, peer, []uint64{p.Message}))
	}
	return out, nil
}

func (n *Node) handleRead(env message.Envelope) ([]message.Envelope, error) {
	vals := make([]uint64, 0, len(n.values))
	for v := range n.values {
		vals = append(vals, v)
	}
	return []message.Envelope{env.Reply(n.allocMsgID(), ReadOk{Messages: vals})}, nil
}

func (n *Node) handleGossip(env message.Envelope, p *Gossip) ([]message.Envelope, error) {
	sender := env.Src

	var fresh []uint64
	for _, v := range p.Messages {
		if _, known := n.values[v]; !known {
			n.values[v] = struct{}{}
			fresh = append(fresh, v)
		}
	}

	if n.peerView[sender] == nil {
		n.peerView[sender] = map[uint64]struct{}{}
	}
	for _, v := range p.Messages {
		n.peerView[sender][v] = struct{}{}
	}

	var out []message.Envelope
	for _, peer := range n.peers {
		if peer == sender || len(fresh) == 0 {
			continue
		}
		out = append(out, n.gossipTo(env, peer, fresh))
	}
	out = append(out, env.Reply(n.allocMsgID(), GossipOk{Messages: p.Messages}))
	return out, nil
}

func (n *Node) handleGossipOk(env message.Envelope, p *GossipOk) ([]message.Envelope, error) {
	sender := env.Src
	if n.peerView[sender] == nil {
		n.peerView[sender] = map[uint64]struct{}{}
	}
	for _, v := range p.Messages {
		n.peerView[sender][v] = struct{}{}
	}
	return nil, nil
}

func (n *Node) handleTriggerGossip(env message.Envelope) ([]message.Envelope, error) {
	var out []message.Envelope
	for _, peer := range n.peers {
		delta := n.deltaFor(peer)
		if len(delta) == 0 {
			continue
		}
		out = append(out, n.gossipTo(env, peer, delta))
	}
	return out, nil
}

// deltaFor returns the values believed missing from peer's peer_view, in
// ascending order for deterministic output.
func (n *Node) deltaFor(peer string) []uint64 {
	seen := n.peerView[peer]
	var delta []uint64
	for v := range n.values {
		if _, ok := seen[v]; !ok {
			delta = append(delta, v)
		}
	}
	sort.Slice(delta, func(i, j int) bool { return delta[i] < delta[j] })
	return delta
}

// gossipTo builds a gossip envelope to peer, derived from the triggering
// event's envelope: it inherits the local node as source and peer as
// destination via Reply+Redirect, as spec §4.1 describes.
func (n *Node) gossipTo(env message.Envelope, peer string, values []uint64) message.Envelope {
	return env.Reply(n.allocMsgID(), Gossip{Messages: values}).Redirect(peer)
}

func (n *Node) allocMsgID() int {
	id := n.nextMsgID
	n.nextMsgID++
	return id
}
