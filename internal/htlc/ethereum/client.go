// Package ethereum wraps the per-swap RFC003 HTLC contract binding with a
// user-friendly client: deploy, redeem, refund, and event watching against
// exactly one deployed contract.
package ethereum

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/comit-swap/rfc003/internal/secret"
)

// Details is the parsed, read-only snapshot of a deployed HTLC contract's state.
type Details struct {
	SecretHash    [32]byte
	RedeemAddress common.Address
	RefundAddress common.Address
	Expiry        *big.Int
	Settled       bool
}

// Client binds an ethclient connection to exactly one deployed per-swap HTLC
// contract. A new Client is created per swap.
type Client struct {
	backend         *ethclient.Client
	contract        *RFC003HTLC
	contractAddress common.Address
	chainID         *big.Int
}

// Dial connects to rpcURL and binds to an already-deployed contract at address.
func Dial(ctx context.Context, rpcURL string, address common.Address) (*Client, error) {
	backend, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("ethereum: dial: %w", err)
	}
	contract, err := NewRFC003HTLC(address, backend)
	if err != nil {
		return nil, fmt.Errorf("ethereum: bind contract: %w", err)
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("ethereum: chain id: %w", err)
	}
	return &Client{backend: backend, contract: contract, contractAddress: address, chainID: chainID}, nil
}

// Close closes the underlying RPC connection.
func (c *Client) Close() {
	c.backend.Close()
}

// ChainID returns the chain this client is bound to.
func (c *Client) ChainID() *big.Int {
	return c.chainID
}

// ContractAddress returns the deployed HTLC contract's address.
func (c *Client) ContractAddress() common.Address {
	return c.contractAddress
}

func (c *Client) newTransactor(ctx context.Context, priv *ecdsa.PrivateKey) (*bind.TransactOpts, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(priv, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("ethereum: transactor: %w", err)
	}
	auth.Context = ctx
	return auth, nil
}

// Deploy funds and creates a new per-swap HTLC contract on chain, embedding
// secretHash, redeemAddr, refundAddr and expiry in its constructor. value is
// the native-asset amount funded at deploy time; pass nil for an ERC20 swap
// that funds the contract via a separate transfer.
func Deploy(
	ctx context.Context,
	backend bind.ContractBackend,
	priv *ecdsa.PrivateKey,
	chainID *big.Int,
	bytecode []byte,
	secretHash [32]byte,
	redeemAddr, refundAddr common.Address,
	expiry *big.Int,
	value *big.Int,
) (common.Address, *types.Transaction, *Client, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(priv, chainID)
	if err != nil {
		return common.Address{}, nil, nil, fmt.Errorf("ethereum: transactor: %w", err)
	}
	auth.Context = ctx
	if value != nil {
		auth.Value = value
	}

	address, tx, contract, err := DeployRFC003HTLC(auth, backend, bytecode, secretHash, redeemAddr, refundAddr, expiry)
	if err != nil {
		return common.Address{}, nil, nil, fmt.Errorf("ethereum: deploy: %w", err)
	}
	return address, tx, &Client{contract: contract, contractAddress: address, chainID: chainID}, nil
}

// GenerateSecret delegates to the secret package, kept here only so callers
// that already import this package don't need a second import for it.
func GenerateSecret() (secret.Secret, error) {
	return secret.Generate(rand.Reader)
}

// Redeem reveals preimage on chain, paying the contract balance to the
// redeem address if sha256(preimage) matches the embedded secret hash.
func (c *Client) Redeem(ctx context.Context, priv *ecdsa.PrivateKey, preimage []byte) (*types.Transaction, error) {
	auth, err := c.newTransactor(ctx, priv)
	if err != nil {
		return nil, err
	}
	return c.contract.Redeem(auth, preimage)
}

// Refund pays the contract balance to the refund address. Only succeeds once
// the chain's notion of "now" has reached the embedded expiry.
func (c *Client) Refund(ctx context.Context, priv *ecdsa.PrivateKey) (*types.Transaction, error) {
	auth, err := c.newTransactor(ctx, priv)
	if err != nil {
		return nil, err
	}
	return c.contract.Refund(auth)
}

// Details reads back the full state of the bound contract in one round trip
// worth of calls.
func (c *Client) Details(ctx context.Context) (*Details, error) {
	opts := &bind.CallOpts{Context: ctx}

	secretHash, err := c.contract.SecretHash(opts)
	if err != nil {
		return nil, fmt.Errorf("ethereum: secret hash: %w", err)
	}
	redeemAddr, err := c.contract.RedeemAddress(opts)
	if err != nil {
		return nil, fmt.Errorf("ethereum: redeem address: %w", err)
	}
	refundAddr, err := c.contract.RefundAddress(opts)
	if err != nil {
		return nil, fmt.Errorf("ethereum: refund address: %w", err)
	}
	expiry, err := c.contract.Expiry(opts)
	if err != nil {
		return nil, fmt.Errorf("ethereum: expiry: %w", err)
	}
	settled, err := c.contract.Settled(opts)
	if err != nil {
		return nil, fmt.Errorf("ethereum: settled: %w", err)
	}

	return &Details{
		SecretHash:    secretHash,
		RedeemAddress: redeemAddr,
		RefundAddress: refundAddr,
		Expiry:        expiry,
		Settled:       settled,
	}, nil
}

// RedeemedEvent is the parsed form of a Redeemed log, carrying the preimage
// extracted from the redeeming transaction's calldata since the event itself
// carries no indexed data.
type RedeemedEvent struct {
	Preimage []byte
	TxHash   common.Hash
	BlockNum uint64
}

// RefundedEvent is the parsed form of a Refunded log.
type RefundedEvent struct {
	TxHash   common.Hash
	BlockNum uint64
}

// WatchRedeemed streams Redeemed events, decoding the preimage argument out
// of each redeeming transaction's input data via the bound ABI.
func (c *Client) WatchRedeemed(ctx context.Context) (<-chan *RedeemedEvent, error) {
	ch := make(chan *RFC003HTLCRedeemed, 4)
	sub, err := c.contract.WatchRedeemed(&bind.WatchOpts{Context: ctx}, ch)
	if err != nil {
		close(ch)
		return nil, fmt.Errorf("ethereum: watch redeemed: %w", err)
	}

	out := make(chan *RedeemedEvent, 4)
	go func() {
		defer close(out)
		defer sub.Unsubscribe()
		for {
			select {
			case ev := <-ch:
				if ev == nil {
					return
				}
				preimage, err := c.decodeRedeemCalldata(ctx, ev.Raw.TxHash)
				if err != nil {
					continue
				}
				out <- &RedeemedEvent{Preimage: preimage, TxHash: ev.Raw.TxHash, BlockNum: ev.Raw.BlockNumber}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// WatchRefunded streams Refunded events.
func (c *Client) WatchRefunded(ctx context.Context) (<-chan *RefundedEvent, error) {
	ch := make(chan *RFC003HTLCRefunded, 4)
	sub, err := c.contract.WatchRefunded(&bind.WatchOpts{Context: ctx}, ch)
	if err != nil {
		close(ch)
		return nil, fmt.Errorf("ethereum: watch refunded: %w", err)
	}

	out := make(chan *RefundedEvent, 4)
	go func() {
		defer close(out)
		defer sub.Unsubscribe()
		for {
			select {
			case ev := <-ch:
				if ev == nil {
					return
				}
				out <- &RefundedEvent{TxHash: ev.Raw.TxHash, BlockNum: ev.Raw.BlockNumber}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// decodeRedeemCalldata re-fetches the redeeming transaction and unpacks its
// redeem(bytes) argument. The Redeemed event carries no payload, so the
// preimage that unblocks the paired chain's HTLC can only be recovered from
// the call that triggered it; the event itself is bare, so the call data
// is the only place the preimage appears on chain.
func (c *Client) decodeRedeemCalldata(ctx context.Context, txHash common.Hash) ([]byte, error) {
	tx, _, err := c.backend.TransactionByHash(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("ethereum: fetch redeem tx: %w", err)
	}
	parsed, err := RFC003HTLCMetaData.GetAbi()
	if err != nil {
		return nil, err
	}
	data := tx.Data()
	if len(data) < 4 {
		return nil, fmt.Errorf("ethereum: redeem calldata too short")
	}
	method, err := parsed.MethodById(data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("ethereum: unexpected redeem argument count %d", len(args))
	}
	preimage, ok := args[0].([]byte)
	if !ok {
		return nil, fmt.Errorf("ethereum: redeem argument is not bytes")
	}
	return preimage, nil
}

// VerifyPreimage is a local, gas-free mirror of the contract's own redeem
// check, used by callers deciding whether a candidate preimage is worth
// submitting before paying for the transaction.
func VerifyPreimage(preimage []byte, expected [32]byte) bool {
	h, err := secret.HashFromBytes(expected[:])
	if err != nil {
		return false
	}
	return secret.VerifyPreimage(preimage, h)
}

// This blank reference documents, rather than hardcodes, the two event
// signatures this contract emits. go-ethereum's abi package derives the
// actual log topic (keccak256 of the canonical signature string) from the
// ABI at parse time, so nothing here needs to carry the literal 32-byte
// values: topic0 for Redeemed() and Refunded() is whatever crypto.Keccak256Hash
// computes for those two signature strings.
var _ = crypto.Keccak256Hash
