package events

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/comit-swap/rfc003/internal/htlc/bitcoin"
	"github.com/comit-swap/rfc003/internal/ledger"
	"github.com/comit-swap/rfc003/internal/lqs"
	"github.com/comit-swap/rfc003/pkg/logging"
)

// BitcoinInspector is the external collaborator that turns a matched
// transaction id into chain-specific detail: the funding amount credited to
// an address, or the classified spend of a P2WSH output. A real
// implementation wraps a node RPC binding; tests use a fake.
type BitcoinInspector interface {
	// FindOutput locates the output of txID paying address and returns its
	// index and satoshi value, so the caller can pin the HTLC's outpoint.
	FindOutput(ctx context.Context, txID, address string) (vout uint32, value int64, err error)

	// ClassifySpend inspects the transaction spending the P2WSH output at
	// outpoint and reports whether it redeemed (with the recovered secret,
	// pulled off the witness stack's OP_IF-branch push) or refunded.
	ClassifySpend(ctx context.Context, txID, outpoint string) (ledger.Outcome, error)
}

// BitcoinStream implements Stream for Bitcoin-family chains (BTC, and any
// P2WSH-compatible fork sharing the same script shape), routing all three
// event families through the shared internal/lqs.Cache.
type BitcoinStream struct {
	cache     *lqs.Cache
	inspector BitcoinInspector
	net       *chaincfg.Params
	log       *logging.Logger
}

// NewBitcoinStream constructs a BitcoinStream.
func NewBitcoinStream(cache *lqs.Cache, inspector BitcoinInspector, net *chaincfg.Params) *BitcoinStream {
	return &BitcoinStream{
		cache:     cache,
		inspector: inspector,
		net:       net,
		log:       logging.GetDefault().Component("btc-events"),
	}
}

func (s *BitcoinStream) Symbol() ledger.Symbol { return ledger.SymbolBitcoin }

func (s *BitcoinStream) scriptParams(params HtlcParams, relativeLock uint32) (bitcoin.ScriptParams, error) {
	redeem, ok := params.RedeemIdentity.(ledger.BitcoinIdentity)
	if !ok {
		return bitcoin.ScriptParams{}, fmt.Errorf("events: bitcoin stream requires a BitcoinIdentity redeem identity")
	}
	refund, ok := params.RefundIdentity.(ledger.BitcoinIdentity)
	if !ok {
		return bitcoin.ScriptParams{}, fmt.Errorf("events: bitcoin stream requires a BitcoinIdentity refund identity")
	}
	return bitcoin.ScriptParams{
		SecretHash:      [32]byte(params.SecretHash),
		RedeemPKH:       [20]byte(redeem),
		RefundPKH:       [20]byte(refund),
		RelativeLockSeq: relativeLock,
	}, nil
}

func relativeLockFrom(d ledger.LockDuration) (uint32, error) {
	lock, ok := d.(ledger.BitcoinLockDuration)
	if !ok {
		return 0, fmt.Errorf("events: bitcoin stream requires a BitcoinLockDuration expiry")
	}
	return uint32(lock), nil
}

func (s *BitcoinStream) address(params HtlcParams) (string, error) {
	lock, err := relativeLockFrom(params.Expiry)
	if err != nil {
		return "", err
	}
	sp, err := s.scriptParams(params, lock)
	if err != nil {
		return "", err
	}
	script, err := bitcoin.Build(sp)
	if err != nil {
		return "", err
	}
	return bitcoin.ComputeAddress(script, s.net)
}

// Deployed on Bitcoin resolves the moment a funding output first appears at
// the HTLC's P2WSH address, since a Bitcoin HTLC has no separate deploy
// step distinct from being paid. The resolved location is the outpoint of
// that output, not merely the address, so later spends can be pinned to it.
func (s *BitcoinStream) Deployed(ctx context.Context, params HtlcParams) (<-chan ledger.HtlcLocation, <-chan error) {
	locCh := make(chan ledger.HtlcLocation, 1)
	errCh := make(chan error, 1)

	addr, err := s.address(params)
	if err != nil {
		errCh <- err
		close(locCh)
		close(errCh)
		return locCh, errCh
	}

	q := lqs.Query{Ledger: string(ledger.SymbolBitcoin), Kind: lqs.KindHtlcDeployed, HtlcAddress: addr}
	txCh, qErrCh := s.cache.FirstMatch(ctx, q)

	go func() {
		defer close(locCh)
		defer close(errCh)
		select {
		case txID, ok := <-txCh:
			if !ok {
				return
			}
			vout, _, err := s.inspector.FindOutput(ctx, txID, addr)
			if err != nil {
				errCh <- fmt.Errorf("events: bitcoin find output: %w", err)
				return
			}
			locCh <- ledger.BitcoinHtlcLocation{TxId: txID, Vout: vout}
		case err, ok := <-qErrCh:
			if ok {
				errCh <- err
			}
		case <-ctx.Done():
		}
	}()
	return locCh, errCh
}

// Funded polls the HTLC address until a transaction credits it with at
// least expected, re-arming the watch on every underfunded match instead
// of resolving early.
func (s *BitcoinStream) Funded(ctx context.Context, params HtlcParams, location ledger.HtlcLocation, expected ledger.Quantity) (<-chan FundingTx, <-chan error) {
	out := make(chan FundingTx, 1)
	errCh := make(chan error, 1)

	addr, err := s.address(params)
	if err != nil {
		errCh <- err
		close(out)
		close(errCh)
		return out, errCh
	}
	expectedSat, _ := expected.(ledger.BitcoinQuantity)

	go func() {
		defer close(out)
		defer close(errCh)
		for {
			q := lqs.Query{Ledger: string(ledger.SymbolBitcoin), Kind: lqs.KindHtlcFunded, HtlcAddress: addr}
			txCh, qErrCh := s.cache.FirstMatch(ctx, q)
			select {
			case txID, ok := <-txCh:
				if !ok {
					return
				}
				_, value, err := s.inspector.FindOutput(ctx, txID, addr)
				if err != nil {
					errCh <- fmt.Errorf("events: bitcoin find output: %w", err)
					return
				}
				if value < int64(expectedSat) {
					s.log.Debug("underfunded, continuing to watch", "address", addr, "got", value, "want", int64(expectedSat))
					continue
				}
				out <- FundingTx{TxId: ledger.BitcoinTxId(txID), Quantity: ledger.BitcoinQuantity(value)}
				return
			case err, ok := <-qErrCh:
				if ok {
					errCh <- err
				}
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, errCh
}

// RedeemedOrRefunded resolves with the classified first spend of location.
func (s *BitcoinStream) RedeemedOrRefunded(ctx context.Context, params HtlcParams, location ledger.HtlcLocation) (<-chan ledger.Outcome, <-chan error) {
	out := make(chan ledger.Outcome, 1)
	errCh := make(chan error, 1)

	outpoint := location.String()
	q := lqs.Query{Ledger: string(ledger.SymbolBitcoin), Kind: lqs.KindRedeemedOrRefunded, Location: outpoint}
	txCh, qErrCh := s.cache.FirstMatch(ctx, q)

	go func() {
		defer close(out)
		defer close(errCh)
		select {
		case txID, ok := <-txCh:
			if !ok {
				return
			}
			outcome, err := s.inspector.ClassifySpend(ctx, txID, outpoint)
			if err != nil {
				errCh <- fmt.Errorf("events: bitcoin classify spend: %w", err)
				return
			}
			out <- outcome
		case err, ok := <-qErrCh:
			if ok {
				errCh <- err
			}
		case <-ctx.Done():
		}
	}()
	return out, errCh
}
