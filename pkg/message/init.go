package message

func init() {
	Register("init", func() Payload { return &Init{} })
	Register("init_ok", func() Payload { return &InitOk{} })
}

// Init is the handshake message every node must receive exactly once,
// before any other payload, as the very first line on stdin.
type Init struct {
	NodeID  string   `json:"node_id"`
	NodeIDs []string `json:"node_ids"`
}

// Kind implements Payload.
func (Init) Kind() string { return "init" }

// InitOk acknowledges Init. It carries no fields of its own.
type InitOk struct{}

// Kind implements Payload.
func (InitOk) Kind() string { return "init_ok" }
