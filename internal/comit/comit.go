// Package comit implements the communication-event channel: the
// direction-typed asynchronous proposal/response exchange between Alice
// (initiator) and Bob (responder). The core only ever sees the futures
// this package exposes; the wire transport itself is an
// external collaborator, concretely backed by libp2p-pubsub in this
// codebase's pubsub.go, with an in-memory pair for tests in memory.go.
package comit

import (
	"context"
	"fmt"
)

// Proposal is the Alice→Bob swap request payload. Fields are opaque
// strings/bytes rather than internal/ledger or internal/rfc003 types, so
// this package never depends on the state machine it feeds — it only
// carries what the wire envelope needs to relay.
type Proposal struct {
	AlphaLedger string
	BetaLedger  string
	AlphaAsset  string
	BetaAsset   string

	AlphaRefundIdentity []byte
	AlphaRedeemIdentity []byte
	AlphaLockDuration   int64

	SecretHash []byte
}

// AcceptedResponse is Bob's positive reply: the identities and lock
// duration Alice must embed in the beta HTLC.
type AcceptedResponse struct {
	BetaRefundIdentity []byte
	BetaRedeemIdentity []byte
	BetaLockDuration   int64
}

// DeclinedResponse is Bob's negative reply.
type DeclinedResponse struct {
	Reason string
}

// ErrTimeout is returned on the channel pair's error future when no
// response arrives before the caller's context deadline.
var ErrTimeout = fmt.Errorf("comit: proposal timed out")

// AliceToBob is the initiator's view: send a proposal, await exactly one
// of Accepted or Declined.
type AliceToBob interface {
	// Send proposes swapID to the counterparty. The returned channels
	// each fire at most once; exactly one of them fires (or the error
	// channel does) before both close.
	Send(ctx context.Context, swapID string, p Proposal) (<-chan AcceptedResponse, <-chan DeclinedResponse, <-chan error)
}

// InboundProposal pairs a swap id with the Proposal Bob received, since
// Bob's accept/decline calls need to reference it.
type InboundProposal struct {
	SwapID   string
	Proposal Proposal
}

// BobToAlice is the responder's view: a stream of inbound proposals, and
// the accept/decline actions a responder executes against one of them.
type BobToAlice interface {
	// Proposals streams inbound swap requests as they arrive.
	Proposals() <-chan InboundProposal

	// Accept replies to swapID with resp.
	Accept(ctx context.Context, swapID string, resp AcceptedResponse) error

	// Decline replies to swapID with reason.
	Decline(ctx context.Context, swapID string, reason string) error
}

// Channel combines both directions: in this codebase a single node (peer)
// plays both roles across its lifetime (initiator on swaps it proposes,
// responder on swaps it's offered), so one Channel backs both interfaces.
type Channel interface {
	AliceToBob
	BobToAlice
}
