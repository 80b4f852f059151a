package broadcast

import "github.com/mcastellin/maelstrom-broadcast/pkg/message"

func init() {
	message.Register("topology", func() message.Payload { return &Topology{} })
	message.Register("topology_ok", func() message.Payload { return &TopologyOk{} })
	message.Register("broadcast", func() message.Payload { return &Broadcast{} })
	message.Register("broadcast_ok", func() message.Payload { return &BroadcastOk{} })
	message.Register("read", func() message.Payload { return &Read{} })
	message.Register("read_ok", func() message.Payload { return &ReadOk{} })
	message.Register("gossip", func() message.Payload { return &Gossip{} })
	message.Register("gossip_ok", func() message.Payload { return &GossipOk{} })
}

// Topology supplies the peer list for every node in the cluster. The
// local node's peers are whichever slice is keyed by its own id.
type Topology struct {
	TopologyMap map[string][]string `json:"topology"`
}

// Kind implements message.Payload.
func (Topology) Kind() string { return "topology" }

// TopologyOk acknowledges Topology.
type TopologyOk struct{}

// Kind implements message.Payload.
func (TopologyOk) Kind() string { return "topology_ok" }

// Broadcast is a client request to add a single value to the cluster's
// shared set.
type Broadcast struct {
	Message uint64 `json:"message"`
}

// Kind implements message.Payload.
func (Broadcast) Kind() string { return "broadcast" }

// BroadcastOk acknowledges Broadcast.
type BroadcastOk struct{}

// Kind implements message.Payload.
func (BroadcastOk) Kind() string { return "broadcast_ok" }

// Read requests a snapshot of the node's current value set.
type Read struct{}

// Kind implements message.Payload.
func (Read) Kind() string { return "read" }

// ReadOk carries the snapshot set, in unspecified order, no duplicates.
type ReadOk struct {
	Messages []uint64 `json:"messages"`
}

// Kind implements message.Payload.
func (ReadOk) Kind() string { return "read_ok" }

// Gossip carries a set of values being shared between peers, either
// forwarded immediately on receipt of a new value or as a tick-computed
// delta against the sender's peer_view.
type Gossip struct {
	Messages []uint64 `json:"messages"`
}

// Kind implements message.Payload.
func (Gossip) Kind() string { return "gossip" }

// GossipOk acknowledges the values carried by a Gossip message, closing
// the anti-entropy loop so the sender can stop retransmitting them.
type GossipOk struct {
	Messages []uint64 `json:"messages"`
}

// Kind implements message.Payload.
func (GossipOk) Kind() string { return "gossip_ok" }
