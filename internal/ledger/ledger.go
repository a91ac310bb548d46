// Package ledger is the capability abstraction the state machine and event
// layer are polymorphic over: a stable serialization for Identity, Quantity,
// LockDuration, TxId, and HtlcLocation, plus a symbol-keyed registry both
// ledger families share.
package ledger

import "fmt"

// Identity is an on-chain address or public-key identity, opaque outside of
// its own ledger but always serializable to stable bytes for hashing into a
// query fingerprint.
type Identity interface {
	String() string
	Bytes() []byte
}

// Quantity is an amount of the asset being swapped: satoshis, wei, or an
// ERC20 token amount carried alongside its contract address.
type Quantity interface {
	String() string
	IsZero() bool
}

// LockDuration is a ledger-native expression of "how long until refund is
// possible" — a relative block count on Bitcoin, an absolute unix timestamp
// on Ethereum.
type LockDuration interface {
	String() string
}

// TxId identifies a confirmed transaction on its ledger.
type TxId interface {
	String() string
}

// HtlcLocation identifies where a deployed HTLC artifact lives: the
// txid:vout outpoint of the funding output on Bitcoin, a contract address
// on Ethereum.
type HtlcLocation interface {
	String() string
}

// Outcome classifies how an HTLC settled, the terminal product of
// htlc_redeemed_or_refunded.
type Outcome struct {
	Redeemed bool
	Secret   []byte // set iff Redeemed
}

// Symbol names a ledger family ("BTC", "ETH"), used as the discriminant in
// query fingerprints and in the state machine's alpha/beta role assignment.
type Symbol string

const (
	SymbolBitcoin  Symbol = "BTC"
	SymbolEthereum Symbol = "ETH"
)

// Ledger is the capability trait every concrete chain binding implements.
// The state machine, event streams, and action derivation never import a
// concrete ledger package directly — only this interface.
type Ledger interface {
	Symbol() Symbol

	// DecodeIdentity parses a ledger-native identity encoding (a pubkey hash
	// on Bitcoin, a 20-byte address on Ethereum).
	DecodeIdentity(raw []byte) (Identity, error)

	// DecodeLocation parses a ledger-native HTLC location encoding.
	DecodeLocation(raw []byte) (HtlcLocation, error)

	// DecodeLockDuration parses the wire encoding of a lock duration: a
	// relative block count on Bitcoin, an absolute unix-seconds expiry on
	// Ethereum-family chains.
	DecodeLockDuration(v int64) (LockDuration, error)
}

// EncodeLockDuration renders a lock duration to its wire encoding, the
// inverse of Ledger.DecodeLockDuration.
func EncodeLockDuration(d LockDuration) (int64, error) {
	switch v := d.(type) {
	case BitcoinLockDuration:
		return int64(v), nil
	case EthereumLockDuration:
		return v.ExpiryUnix, nil
	default:
		return 0, fmt.Errorf("ledger: cannot encode lock duration %T", d)
	}
}

// ErrUnsupportedLedger is returned by lookups against an unregistered symbol.
var ErrUnsupportedLedger = fmt.Errorf("ledger: unsupported symbol")

var registry = make(map[Symbol]Ledger)

// Register adds a concrete ledger binding to the package-level registry,
// mirroring chain.Register's init()-time population pattern.
func Register(l Ledger) {
	registry[l.Symbol()] = l
}

// Get returns the registered ledger for symbol.
func Get(symbol Symbol) (Ledger, error) {
	l, ok := registry[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLedger, symbol)
	}
	return l, nil
}
