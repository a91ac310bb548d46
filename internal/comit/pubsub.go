package comit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/comit-swap/rfc003/pkg/logging"
)

// Topic is the dedicated gossip topic this channel publishes proposal,
// accept, and decline envelopes on.
const Topic = "/rfc003/comit/1.0.0"

// envelopeType discriminates the three message shapes the channel
// exchanges.
type envelopeType string

const (
	envelopeProposal envelopeType = "proposal"
	envelopeAccept   envelopeType = "accept"
	envelopeDecline  envelopeType = "decline"
)

// envelope is the typed JSON wire message carried on the topic.
type envelope struct {
	Type        envelopeType    `json:"type"`
	SwapID      string          `json:"swap_id"`
	FromPeer    string          `json:"from_peer"`
	Payload     json.RawMessage `json:"payload"`
	SequenceNum uint64          `json:"sequence_num"`
	RequiresAck bool            `json:"requires_ack,omitempty"`
}

type pendingResponse struct {
	accepted chan AcceptedResponse
	declined chan DeclinedResponse
	errs     chan error
}

// PubSubChannel backs Channel with github.com/libp2p/go-libp2p-pubsub
// GossipSub: join one topic, subscribe, dispatch by message type from a
// background drain goroutine.
type PubSubChannel struct {
	selfID string
	topic  *pubsub.Topic
	sub    *pubsub.Subscription
	log    *logging.Logger

	mu       sync.Mutex
	seq      uint64
	pending  map[string]*pendingResponse // swapID -> awaiting Alice
	proposal chan InboundProposal

	ctx    context.Context
	cancel context.CancelFunc
}

// NewPubSubChannel joins Topic on ps and starts the dispatch loop.
func NewPubSubChannel(ctx context.Context, ps *pubsub.PubSub, self peer.ID) (*PubSubChannel, error) {
	topic, err := ps.Join(Topic)
	if err != nil {
		return nil, fmt.Errorf("comit: join topic: %w", err)
	}
	sub, err := topic.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("comit: subscribe: %w", err)
	}

	cctx, cancel := context.WithCancel(ctx)
	c := &PubSubChannel{
		selfID:   self.String(),
		topic:    topic,
		sub:      sub,
		log:      logging.GetDefault().Component("comit"),
		pending:  make(map[string]*pendingResponse),
		proposal: make(chan InboundProposal, 16),
		ctx:      cctx,
		cancel:   cancel,
	}
	go c.run()
	return c, nil
}

// Close leaves the topic and stops the dispatch loop.
func (c *PubSubChannel) Close() {
	c.cancel()
	c.sub.Cancel()
	c.topic.Close()
}

func (c *PubSubChannel) nextSeq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

func (c *PubSubChannel) publish(ctx context.Context, env envelope) error {
	env.FromPeer = c.selfID
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("comit: marshal envelope: %w", err)
	}
	if err := c.topic.Publish(ctx, data); err != nil {
		return fmt.Errorf("comit: publish: %w", err)
	}
	return nil
}

// Send implements AliceToBob.
func (c *PubSubChannel) Send(ctx context.Context, swapID string, p Proposal) (<-chan AcceptedResponse, <-chan DeclinedResponse, <-chan error) {
	accepted := make(chan AcceptedResponse, 1)
	declined := make(chan DeclinedResponse, 1)
	errs := make(chan error, 1)

	payload, err := json.Marshal(p)
	if err != nil {
		errs <- fmt.Errorf("comit: marshal proposal: %w", err)
		close(accepted)
		close(declined)
		close(errs)
		return accepted, declined, errs
	}

	pr := &pendingResponse{accepted: accepted, declined: declined, errs: errs}
	c.mu.Lock()
	c.pending[swapID] = pr
	c.mu.Unlock()

	env := envelope{Type: envelopeProposal, SwapID: swapID, Payload: payload, SequenceNum: c.nextSeq()}
	if err := c.publish(ctx, env); err != nil {
		c.mu.Lock()
		delete(c.pending, swapID)
		c.mu.Unlock()
		errs <- err
		close(accepted)
		close(declined)
		close(errs)
		return accepted, declined, errs
	}

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		if c.pending[swapID] == pr {
			delete(c.pending, swapID)
			select {
			case errs <- ErrTimeout:
			default:
			}
		}
		c.mu.Unlock()
	}()

	return accepted, declined, errs
}

// Proposals implements BobToAlice.
func (c *PubSubChannel) Proposals() <-chan InboundProposal { return c.proposal }

// Accept implements BobToAlice.
func (c *PubSubChannel) Accept(ctx context.Context, swapID string, resp AcceptedResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("comit: marshal accept: %w", err)
	}
	return c.publish(ctx, envelope{Type: envelopeAccept, SwapID: swapID, Payload: payload, SequenceNum: c.nextSeq()})
}

// Decline implements BobToAlice.
func (c *PubSubChannel) Decline(ctx context.Context, swapID string, reason string) error {
	payload, err := json.Marshal(DeclinedResponse{Reason: reason})
	if err != nil {
		return fmt.Errorf("comit: marshal decline: %w", err)
	}
	return c.publish(ctx, envelope{Type: envelopeDecline, SwapID: swapID, Payload: payload, SequenceNum: c.nextSeq()})
}

// run drains the topic subscription and dispatches by envelope type.
func (c *PubSubChannel) run() {
	for {
		msg, err := c.sub.Next(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.log.Warn("receive error", "error", err)
			continue
		}

		var env envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			c.log.Warn("malformed envelope", "error", err)
			continue
		}
		if env.FromPeer == c.selfID {
			continue
		}

		switch env.Type {
		case envelopeProposal:
			var p Proposal
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				c.log.Warn("malformed proposal", "error", err)
				continue
			}
			select {
			case c.proposal <- InboundProposal{SwapID: env.SwapID, Proposal: p}:
			case <-c.ctx.Done():
				return
			default:
				c.log.Warn("proposal queue full, dropping", "swap_id", env.SwapID)
			}
		case envelopeAccept:
			var resp AcceptedResponse
			if err := json.Unmarshal(env.Payload, &resp); err != nil {
				c.log.Warn("malformed accept", "error", err)
				continue
			}
			c.resolveAccepted(env.SwapID, resp)
		case envelopeDecline:
			var resp DeclinedResponse
			if err := json.Unmarshal(env.Payload, &resp); err != nil {
				c.log.Warn("malformed decline", "error", err)
				continue
			}
			c.resolveDeclined(env.SwapID, resp)
		default:
			c.log.Debug("unknown envelope type, ignoring", "type", env.Type)
		}
	}
}

func (c *PubSubChannel) resolveAccepted(swapID string, resp AcceptedResponse) {
	c.mu.Lock()
	pr, ok := c.pending[swapID]
	if ok {
		delete(c.pending, swapID)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	pr.accepted <- resp
	close(pr.accepted)
	close(pr.declined)
	close(pr.errs)
}

func (c *PubSubChannel) resolveDeclined(swapID string, resp DeclinedResponse) {
	c.mu.Lock()
	pr, ok := c.pending[swapID]
	if ok {
		delete(c.pending, swapID)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	pr.declined <- resp
	close(pr.accepted)
	close(pr.declined)
	close(pr.errs)
}
