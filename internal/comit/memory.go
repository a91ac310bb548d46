package comit

import (
	"context"
	"sync"
)

// MemoryChannel is an in-memory Channel backed by a pair of Go channels
// instead of a gossip topic, for tests that need a deterministic transport
// without spinning up libp2p hosts.
type MemoryChannel struct {
	selfID string
	peer   *MemoryChannel

	mu       sync.Mutex
	pending  map[string]*pendingResponse
	proposal chan InboundProposal
}

// NewMemoryChannelPair returns two linked MemoryChannels: messages Alice
// sends arrive on Bob's end and vice versa, mirroring a real gossip topic
// with exactly two participants.
func NewMemoryChannelPair(aliceID, bobID string) (alice *MemoryChannel, bob *MemoryChannel) {
	alice = &MemoryChannel{
		selfID:   aliceID,
		pending:  make(map[string]*pendingResponse),
		proposal: make(chan InboundProposal, 16),
	}
	bob = &MemoryChannel{
		selfID:   bobID,
		pending:  make(map[string]*pendingResponse),
		proposal: make(chan InboundProposal, 16),
	}
	alice.peer = bob
	bob.peer = alice
	return alice, bob
}

// Send implements AliceToBob.
func (c *MemoryChannel) Send(ctx context.Context, swapID string, p Proposal) (<-chan AcceptedResponse, <-chan DeclinedResponse, <-chan error) {
	accepted := make(chan AcceptedResponse, 1)
	declined := make(chan DeclinedResponse, 1)
	errs := make(chan error, 1)

	pr := &pendingResponse{accepted: accepted, declined: declined, errs: errs}
	c.mu.Lock()
	c.pending[swapID] = pr
	c.mu.Unlock()

	select {
	case c.peer.proposal <- InboundProposal{SwapID: swapID, Proposal: p}:
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, swapID)
		c.mu.Unlock()
		errs <- ctx.Err()
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
func (c *MemoryChannel) Proposals() <-chan InboundProposal { return c.proposal }

// Accept implements BobToAlice.
func (c *MemoryChannel) Accept(ctx context.Context, swapID string, resp AcceptedResponse) error {
	c.peer.resolveAccepted(swapID, resp)
	return nil
}

// Decline implements BobToAlice.
func (c *MemoryChannel) Decline(ctx context.Context, swapID string, reason string) error {
	c.peer.resolveDeclined(swapID, DeclinedResponse{Reason: reason})
	return nil
}

func (c *MemoryChannel) resolveAccepted(swapID string, resp AcceptedResponse) {
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

func (c *MemoryChannel) resolveDeclined(swapID string, resp DeclinedResponse) {
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

var _ Channel = (*MemoryChannel)(nil)
var _ Channel = (*PubSubChannel)(nil)
