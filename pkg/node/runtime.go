// Package node provides the generic runtime shared by every node kind in
// this repository: the init handshake, the stdin reader, the gossip
// ticker, and the single-threaded reply stage that is the sole writer of
// stdout. The concurrency contract here — cancellation via context rather
// than a send racing a channel close — follows the same reasoning the
// teacher's background-task-cancellation package lays out for preferring
// context over raw cancel channels.
package node

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/mcastellin/maelstrom-broadcast/pkg/message"
)

// defaultTickInterval is the reference gossip tick period: a tuning knob
// that trades convergence latency for retransmission volume, not part of
// the wire protocol.
const defaultTickInterval = 300 * time.Millisecond

const maxScannerLine = 1 << 20

// TriggerGossip is the synthetic, self-addressed payload the ticker
// enqueues on every tick. It never appears on the wire.
type TriggerGossip struct{}

// Kind implements message.Payload.
func (TriggerGossip) Kind() string { return "trigger_gossip" }

// Handler is the state machine a Runtime drives. Reply is invoked once
// per inbound or synthetic event, strictly serialized: it owns node state
// and returns every outbound envelope the event produces, in emission
// order.
type Handler interface {
	Reply(env message.Envelope) ([]message.Envelope, error)
}

// Factory constructs a Handler from the inbound init envelope and returns
// the init_ok reply to write before any other activity starts.
type Factory func(init message.Envelope) (handler Handler, initOk message.Envelope, err error)

// Option configures a Runtime.
type Option func(*Runtime)

// WithTickInterval overrides the gossip ticker period. Tests use this to
// avoid waiting on the production interval.
func WithTickInterval(d time.Duration) Option {
	return func(r *Runtime) { r.tickInterval = d }
}

// WithLogger overrides the runtime's diagnostic logger, which otherwise
// defaults to a no-op logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Runtime) { r.logger = l }
}

// New creates a Runtime around the given Handler Factory.
func New(factory Factory, opts ...Option) *Runtime {
	r := &Runtime{
		factory:      factory,
		tickInterval: defaultTickInterval,
		logger:       zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Runtime owns stdin, stdout, and the lifetime of a Handler.
type Runtime struct {
	factory      Factory
	tickInterval time.Duration
	logger       *zap.SugaredLogger
}

// Run performs the startup handshake and then blocks, pumping events
// until stdin closes or the handler/stdout reports a fatal error.
func (r *Runtime) Run(stdin io.Reader, stdout io.Writer) error {
	scanner := bufio.NewScanner(stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScannerLine)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("node: reading init message: %w", err)
		}
		return fmt.Errorf("node: stdin closed before an init message arrived")
	}

	var initEnv message.Envelope
	if err := json.Unmarshal(scanner.Bytes(), &initEnv); err != nil {
		return fmt.Errorf("node: decoding init message: %w", err)
	}
	if initEnv.Body.Payload.Kind() != "init" {
		return fmt.Errorf("node: first message must be init, got %q", initEnv.Body.Payload.Kind())
	}

	handler, initOk, err := r.factory(initEnv)
	if err != nil {
		return fmt.Errorf("node: constructing handler: %w", err)
	}

	// init_ok is written before reader and ticker are spawned, so it is
	// guaranteed to be the first line on stdout: no other activity can
	// race ahead of it.
	if err := message.Write(stdout, initOk); err != nil {
		return err
	}
	r.logger.Infow("node initialized", "node_id", initEnv.Body.Payload.(*message.Init).NodeID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan message.Envelope)
	readErr := make(chan error, 1)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		// The reader dropping its send handle (EOF, or a fatal decode
		// error) is what starts shutdown: cancelling here is what makes
		// the ticker's next tick fail to send, exactly as spec'd, without
		// needing the reply stage to finish first.
		defer cancel()
		r.readLoop(ctx, scanner, events, readErr)
	}()
	go func() {
		defer wg.Done()
		r.tickLoop(ctx, initEnv.Body.Payload.(*message.Init).NodeID, events)
	}()
	go func() {
		wg.Wait()
		close(events)
	}()

	runErr := r.replyStage(handler, stdout, events)
	cancel()

	if runErr != nil {
		// A handler or stdout failure is fatal; the reader goroutine may
		// still be blocked on a live stdin read with nothing more to
		// give it, so we don't wait on it before reporting the error.
		return runErr
	}
	// events only closes once both reader and ticker have returned, so
	// readErr is already populated.
	return <-readErr
}

// readLoop reads newline-delimited envelopes from stdin and forwards each
// to events. EOF is normal termination; a decode failure is fatal. Both
// cases report on readErr exactly once.
func (r *Runtime) readLoop(ctx context.Context, scanner *bufio.Scanner, events chan<- message.Envelope, readErr chan<- error) {
	for scanner.Scan() {
		var env message.Envelope
		if err := json.Unmarshal(scanner.Bytes(), &env); err != nil {
			readErr <- fmt.Errorf("node: decoding message: %w", err)
			return
		}
		select {
		case events <- env:
		case <-ctx.Done():
			readErr <- nil
			return
		}
	}
	if err := scanner.Err(); err != nil {
		readErr <- fmt.Errorf("node: reading stdin: %w", err)
		return
	}
	readErr <- nil
}

// tickLoop emits a self-addressed TriggerGossip event on a fixed
// interval until ctx is cancelled.
func (r *Runtime) tickLoop(ctx context.Context, selfID string, events chan<- message.Envelope) {
	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			env := message.Envelope{
				Src:  selfID,
				Dest: selfID,
				Body: message.Body{Payload: TriggerGossip{}},
			}
			select {
			case events <- env:
			case <-ctx.Done():
				return
			}
		}
	}
}

// replyStage is the single-threaded consumer of events and sole writer
// of stdout after startup.
func (r *Runtime) replyStage(handler Handler, stdout io.Writer, events <-chan message.Envelope) error {
	for env := range events {
		trace := xid.New().String()
		outs, err := handler.Reply(env)
		if err != nil {
			r.logger.Errorw("handler error", "trace", trace, "type", env.Body.Payload.Kind(), "err", err)
			return fmt.Errorf("node: handling %q: %w", env.Body.Payload.Kind(), err)
		}
		for _, out := range outs {
			if err := message.Write(stdout, out); err != nil {
				r.logger.Errorw("stdout write failed", "trace", trace, "err", err)
				return err
			}
		}
		r.logger.Debugw("handled event", "trace", trace, "type", env.Body.Payload.Kind(), "replies", len(outs))
	}
	return nil
}
