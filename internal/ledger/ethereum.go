package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EthereumIdentity is a 20-byte account address.
type EthereumIdentity common.Address

func (a EthereumIdentity) String() string { return common.Address(a).Hex() }
func (a EthereumIdentity) Bytes() []byte  { return common.Address(a).Bytes() }

// EthereumQuantity is an amount of wei, or of an ERC20 token when Token is
// set — the "ERC20 variant substitutes a token-transfer predicate" case C5
// calls out.
type EthereumQuantity struct {
	Amount *big.Int
	Token  *common.Address // nil for the native asset
}

func (q EthereumQuantity) String() string {
	if q.Token == nil {
		return q.Amount.String() + " wei"
	}
	return q.Amount.String() + " of " + q.Token.Hex()
}

func (q EthereumQuantity) IsZero() bool {
	return q.Amount == nil || q.Amount.Sign() == 0
}

// EthereumLockDuration is an absolute unix-seconds expiry, as embedded in
// the per-swap HTLC contract's constructor.
type EthereumLockDuration struct {
	ExpiryUnix int64
}

func (d EthereumLockDuration) String() string { return fmt.Sprintf("unix:%d", d.ExpiryUnix) }

// EthereumTxId is a transaction hash.
type EthereumTxId common.Hash

func (t EthereumTxId) String() string { return common.Hash(t).Hex() }

// EthereumHtlcLocation is a deployed per-swap HTLC contract's address.
type EthereumHtlcLocation common.Address

func (l EthereumHtlcLocation) String() string { return common.Address(l).Hex() }

// EthereumLedger binds the Ledger capability trait to internal/htlc/ethereum.
// The same binding serves both the native-asset and ERC20 variants: they
// differ only in which EventStream predicate (internal/events) is used, not
// in how identities or locations are encoded.
type EthereumLedger struct {
	chainID *big.Int
	symbol  Symbol
}

// NewEthereumLedger constructs an Ethereum-family ledger binding for chainID
// (1 for mainnet, or any EVM chain registered in internal/chain), registered
// under the canonical "ETH" symbol.
func NewEthereumLedger(chainID *big.Int) *EthereumLedger {
	return &EthereumLedger{chainID: chainID, symbol: SymbolEthereum}
}

// NewEVMLedger constructs an Ethereum-family ledger binding registered under
// symbol instead of the canonical "ETH", so distinct EVM chains (BSC,
// Polygon, Arbitrum, ...) can coexist in the registry as independently
// addressable alpha/beta ledgers.
func NewEVMLedger(chainID *big.Int, symbol Symbol) *EthereumLedger {
	return &EthereumLedger{chainID: chainID, symbol: symbol}
}

func (e *EthereumLedger) Symbol() Symbol { return e.symbol }

func (e *EthereumLedger) DecodeIdentity(raw []byte) (Identity, error) {
	if len(raw) != 20 {
		return nil, fmt.Errorf("ledger: ethereum identity must be 20 bytes, got %d", len(raw))
	}
	return EthereumIdentity(common.BytesToAddress(raw)), nil
}

func (e *EthereumLedger) DecodeLocation(raw []byte) (HtlcLocation, error) {
	if len(raw) != 20 {
		return nil, fmt.Errorf("ledger: ethereum htlc location must be 20 bytes, got %d", len(raw))
	}
	return EthereumHtlcLocation(common.BytesToAddress(raw)), nil
}

func (e *EthereumLedger) DecodeLockDuration(v int64) (LockDuration, error) {
	if v <= 0 {
		return nil, fmt.Errorf("ledger: ethereum expiry must be a positive unix timestamp, got %d", v)
	}
	return EthereumLockDuration{ExpiryUnix: v}, nil
}

// ChainID returns the EVM chain id this binding targets, needed by callers
// constructing a keyed transactor against internal/htlc/ethereum.
func (e *EthereumLedger) ChainID() *big.Int {
	return e.chainID
}
