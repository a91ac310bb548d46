// Package events implements the per-ledger event streams: three
// lazily-produced, single-shot families — Deployed, Funded, and
// RedeemedOrRefunded — each built once per ledger by routing through the
// internal/lqs query/first-match cache. The cache owns the polling; this
// package only shapes the predicates and classifies the matches.
package events

import (
	"context"

	"github.com/comit-swap/rfc003/internal/ledger"
	"github.com/comit-swap/rfc003/internal/secret"
)

// HtlcParams is the commitment tuple: equal params always describe
// the same on-chain HTLC artifact and are the join key two independent
// watchers (alpha-side and beta-side) key off of.
type HtlcParams struct {
	RedeemIdentity ledger.Identity
	RefundIdentity ledger.Identity
	SecretHash     secret.Hash
	Expiry         ledger.LockDuration
}

// FundingTx is the resolved product of Funded: the transaction that
// credited the HTLC location with (at least) the expected quantity.
type FundingTx struct {
	TxId     ledger.TxId
	Quantity ledger.Quantity
}

// Stream is implemented once per ledger family. The state machine and
// swap handler only ever see this interface, never a concrete ledger's
// polling details.
type Stream interface {
	Symbol() ledger.Symbol

	// Deployed resolves with the location of the first transaction that
	// deploys the HTLC artifact matching params.
	Deployed(ctx context.Context, params HtlcParams) (<-chan ledger.HtlcLocation, <-chan error)

	// Funded resolves with the first transaction that credits location
	// with at least expected. On Ethereum this short-circuits against
	// Deployed since deployment and funding coincide.
	Funded(ctx context.Context, params HtlcParams, location ledger.HtlcLocation, expected ledger.Quantity) (<-chan FundingTx, <-chan error)

	// RedeemedOrRefunded resolves with the classified outcome of the
	// first spend of location.
	RedeemedOrRefunded(ctx context.Context, params HtlcParams, location ledger.HtlcLocation) (<-chan ledger.Outcome, <-chan error)
}
