package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
)

// BitcoinIdentity is a 20-byte pubkey hash, the unit both HTLC branches in
// internal/htlc/bitcoin embed.
type BitcoinIdentity [20]byte

func (b BitcoinIdentity) String() string { return fmt.Sprintf("%x", b[:]) }
func (b BitcoinIdentity) Bytes() []byte  { return append([]byte(nil), b[:]...) }

// BitcoinQuantity is an amount in satoshis.
type BitcoinQuantity int64

func (q BitcoinQuantity) String() string { return strconv.FormatInt(int64(q), 10) }
func (q BitcoinQuantity) IsZero() bool   { return q == 0 }

// BitcoinLockDuration is a BIP-68 relative lock measured in blocks.
type BitcoinLockDuration uint32

func (d BitcoinLockDuration) String() string { return strconv.FormatUint(uint64(d), 10) + " blocks" }

// BitcoinTxId is a transaction hash rendered the way btcd/chainhash does.
type BitcoinTxId string

func (t BitcoinTxId) String() string { return string(t) }

// BitcoinHtlcLocation is the UTXO outpoint holding the HTLC's funds: the
// funding transaction and the index of its output paying the P2WSH address.
type BitcoinHtlcLocation struct {
	TxId string
	Vout uint32
}

func (l BitcoinHtlcLocation) String() string {
	return l.TxId + ":" + strconv.FormatUint(uint64(l.Vout), 10)
}

// ParseBitcoinHtlcLocation parses the "txid:vout" rendering of an outpoint.
func ParseBitcoinHtlcLocation(s string) (BitcoinHtlcLocation, error) {
	i := strings.LastIndexByte(s, ':')
	if i <= 0 || i == len(s)-1 {
		return BitcoinHtlcLocation{}, fmt.Errorf("ledger: bitcoin htlc location must be txid:vout, got %q", s)
	}
	vout, err := strconv.ParseUint(s[i+1:], 10, 32)
	if err != nil {
		return BitcoinHtlcLocation{}, fmt.Errorf("ledger: bitcoin htlc location vout: %w", err)
	}
	return BitcoinHtlcLocation{TxId: s[:i], Vout: uint32(vout)}, nil
}

// bitcoinLedger binds the Ledger capability trait to internal/htlc/bitcoin.
type bitcoinLedger struct {
	net *chaincfg.Params
}

// NewBitcoinLedger constructs a Bitcoin ledger binding for the given network
// (regtest, testnet3, or mainnet params from btcsuite/btcd/chaincfg).
func NewBitcoinLedger(net *chaincfg.Params) Ledger {
	return &bitcoinLedger{net: net}
}

func (b *bitcoinLedger) Symbol() Symbol { return SymbolBitcoin }

func (b *bitcoinLedger) DecodeIdentity(raw []byte) (Identity, error) {
	if len(raw) != 20 {
		return nil, fmt.Errorf("ledger: bitcoin identity must be 20 bytes, got %d", len(raw))
	}
	var id BitcoinIdentity
	copy(id[:], raw)
	return id, nil
}

func (b *bitcoinLedger) DecodeLocation(raw []byte) (HtlcLocation, error) {
	loc, err := ParseBitcoinHtlcLocation(string(raw))
	if err != nil {
		return nil, err
	}
	return loc, nil
}

func (b *bitcoinLedger) DecodeLockDuration(v int64) (LockDuration, error) {
	if v <= 0 || v > int64(^uint32(0)) {
		return nil, fmt.Errorf("ledger: bitcoin lock duration out of range: %d", v)
	}
	return BitcoinLockDuration(v), nil
}
