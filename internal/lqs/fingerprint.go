// Package lqs implements the ledger-query first-match cache: de-duplicating
// identical subscription requests against a ledger query service and
// resolving every observer of a fingerprint from a single in-flight
// subscription.
package lqs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Query describes an on-chain predicate to watch for. Exactly one of the
// fields beyond Ledger is meaningful per Kind; the rest are zero.
type Query struct {
	Ledger string // "BTC" or "ETH"
	Kind   Kind

	// HtlcAddress is the predicate for KindHtlcDeployed/KindHtlcFunded on
	// Bitcoin: the P2WSH address to watch for an output crediting it.
	HtlcAddress string

	// ContractAddress is the predicate for KindHtlcFunded on Ethereum: the
	// deployed per-swap contract address (deployment and funding coincide).
	ContractAddress string

	// Recipient and SecretHash together predicate KindHtlcDeployed on
	// Ethereum before the contract address is known (e.g. watching for any
	// deploy embedding this redeem identity and secret hash).
	Recipient  string
	SecretHash string

	// Location is the predicate for KindRedeemedOrRefunded: the HTLC
	// location (address/contract) whose first spend is being awaited.
	Location string
}

// Kind discriminates the three event families the event streams
// subscribe to.
type Kind uint8

const (
	KindHtlcDeployed Kind = iota
	KindHtlcFunded
	KindRedeemedOrRefunded
)

func (k Kind) String() string {
	switch k {
	case KindHtlcDeployed:
		return "htlc_deployed"
	case KindHtlcFunded:
		return "htlc_funded"
	case KindRedeemedOrRefunded:
		return "redeemed_or_refunded"
	default:
		return "unknown"
	}
}

// Fingerprint is the semantic identity of a Query: two queries describing
// the same on-chain predicate always produce the same Fingerprint,
// regardless of which Query value (or how many times) produced it.
type Fingerprint string

// Fingerprint computes q's semantic identity. Field order is fixed so that
// equal predicates always hash identically.
func (q Query) Fingerprint() Fingerprint {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%s|%s|%s|%s|%s",
		q.Ledger, q.Kind, q.HtlcAddress, q.ContractAddress, q.Recipient, q.SecretHash, q.Location)
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}
