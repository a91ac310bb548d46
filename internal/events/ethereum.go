package events

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/comit-swap/rfc003/internal/ledger"
	"github.com/comit-swap/rfc003/internal/lqs"
	"github.com/comit-swap/rfc003/pkg/logging"
)

// EthereumInspector is the external collaborator that classifies an
// Ethereum-family HTLC contract's spend and reads back its funded balance.
// A real implementation wraps an ethclient.Client as a node RPC binding;
// tests use a fake.
type EthereumInspector interface {
	// ContractBalance returns the balance currently held at contract.
	// EthereumStream passes only the contract address, whether or not its
	// token is set.
	ContractBalance(ctx context.Context, contract string) (*big.Int, error)

	// ClassifySpend inspects the transaction that emptied contract and
	// reports Redeemed(secret) or Refunded.
	ClassifySpend(ctx context.Context, txID, contract string) (ledger.Outcome, error)
}

// defaultBalancePollInterval is how often Funded re-reads a contract's
// balance while waiting for it to meet the expected quantity.
const defaultBalancePollInterval = 2 * time.Second

// EthereumStream implements Stream for Ethereum and any EVM chain
// registered in internal/ledger's registry. token, when non-nil, is set as
// the Token of the quantity Funded reports; the funding check itself is the
// same ContractBalance poll either way, and no ERC20 Transfer logs are
// watched.
type EthereumStream struct {
	cache        *lqs.Cache
	inspector    EthereumInspector
	ledgerSym    ledger.Symbol
	token        *string
	log          *logging.Logger
	pollInterval time.Duration
}

// NewEthereumStream constructs an EthereumStream for the given ledger
// symbol (e.g. "ETH", "BSC", "POLYGON" — any EVM chain registered under
// internal/ledger). A non-nil token contract address only tags the funded
// quantity with that token; it does not change what Funded polls.
func NewEthereumStream(cache *lqs.Cache, inspector EthereumInspector, ledgerSym ledger.Symbol, token *string) *EthereumStream {
	return &EthereumStream{
		cache:        cache,
		inspector:    inspector,
		ledgerSym:    ledgerSym,
		token:        token,
		log:          logging.GetDefault().Component("eth-events"),
		pollInterval: defaultBalancePollInterval,
	}
}

// WithPollInterval overrides the balance poll interval, for tests that
// cannot wait out the production default.
func (s *EthereumStream) WithPollInterval(d time.Duration) *EthereumStream {
	s.pollInterval = d
	return s
}

func (s *EthereumStream) Symbol() ledger.Symbol { return s.ledgerSym }

// Deployed resolves with the address of the first contract deployment
// embedding params — recipient and secret hash are the predicate since the
// contract address itself is not known ahead of the deploy.
func (s *EthereumStream) Deployed(ctx context.Context, params HtlcParams) (<-chan ledger.HtlcLocation, <-chan error) {
	out := make(chan ledger.HtlcLocation, 1)
	errCh := make(chan error, 1)

	q := lqs.Query{
		Ledger:     string(s.ledgerSym),
		Kind:       lqs.KindHtlcDeployed,
		Recipient:  params.RedeemIdentity.String(),
		SecretHash: params.SecretHash.String(),
	}
	txCh, qErrCh := s.cache.FirstMatch(ctx, q)

	go func() {
		defer close(out)
		defer close(errCh)
		select {
		case addr, ok := <-txCh:
			if !ok {
				return
			}
			loc, err := decodeEthAddress(addr)
			if err != nil {
				errCh <- err
				return
			}
			out <- loc
		case err, ok := <-qErrCh:
			if ok {
				errCh <- err
			}
		case <-ctx.Done():
		}
	}()
	return out, errCh
}

// Funded short-circuits against the already-known location: deployment and
// funding coincide on Ethereum, so no second subscription is issued.
// The contract balance, as ContractBalance reports it for the contract
// address, is polled until it meets expected, covering the degenerate case
// where a caller deployed but never sent value.
func (s *EthereumStream) Funded(ctx context.Context, params HtlcParams, location ledger.HtlcLocation, expected ledger.Quantity) (<-chan FundingTx, <-chan error) {
	out := make(chan FundingTx, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		expectedAmount := expectedAmountOf(expected)
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		for {
			balance, err := s.inspector.ContractBalance(ctx, location.String())
			if err != nil {
				errCh <- fmt.Errorf("events: ethereum contract balance: %w", err)
				return
			}
			if balance.Cmp(expectedAmount) >= 0 {
				out <- FundingTx{TxId: nil, Quantity: quantityFor(balance, s.token)}
				return
			}
			s.log.Debug("underfunded, continuing to watch", "contract", location.String(), "got", balance, "want", expectedAmount)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out, errCh
}

// RedeemedOrRefunded resolves with the classified first spend of location.
func (s *EthereumStream) RedeemedOrRefunded(ctx context.Context, params HtlcParams, location ledger.HtlcLocation) (<-chan ledger.Outcome, <-chan error) {
	out := make(chan ledger.Outcome, 1)
	errCh := make(chan error, 1)

	q := lqs.Query{Ledger: string(s.ledgerSym), Kind: lqs.KindRedeemedOrRefunded, Location: location.String()}
	txCh, qErrCh := s.cache.FirstMatch(ctx, q)

	go func() {
		defer close(out)
		defer close(errCh)
		select {
		case txID, ok := <-txCh:
			if !ok {
				return
			}
			outcome, err := s.inspector.ClassifySpend(ctx, txID, location.String())
			if err != nil {
				errCh <- fmt.Errorf("events: ethereum classify spend: %w", err)
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

func expectedAmountOf(q ledger.Quantity) *big.Int {
	if eq, ok := q.(ledger.EthereumQuantity); ok && eq.Amount != nil {
		return eq.Amount
	}
	return big.NewInt(0)
}

func quantityFor(amount *big.Int, token *string) ledger.Quantity {
	q := ledger.EthereumQuantity{Amount: amount}
	if token != nil {
		addr := common.HexToAddress(*token)
		q.Token = &addr
	}
	return q
}

func decodeEthAddress(raw string) (ledger.HtlcLocation, error) {
	if !common.IsHexAddress(raw) {
		return nil, fmt.Errorf("events: not a valid ethereum address: %q", raw)
	}
	return ledger.EthereumHtlcLocation(common.HexToAddress(raw)), nil
}
