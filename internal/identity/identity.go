// Package identity derives the Bitcoin and Ethereum identities a running
// swap needs from a single process seed: tyler-smith/go-bip39 turns a
// mnemonic into the seed, btcsuite/btcd/btcutil/hdkeychain walks
// m/purpose'/coin'/account'/change/index from it to per-ledger keys. It is
// deliberately narrower than a wallet — "give me my redeem identity and my
// refund identity for this ledger", nothing more.
//
// Every identity this package hands out is derived from the seed; there is
// no externally-supplied key store.
package identity

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"

	"github.com/comit-swap/rfc003/internal/ledger"
)

// coinType follows SLIP-44.
const (
	coinTypeBitcoin  uint32 = 0
	coinTypeEthereum uint32 = 60
	purposeBIP44     uint32 = 44
)

// Provider derives per-swap Bitcoin and Ethereum identities (and their
// backing private keys, for signing actions) from one BIP-32 master key.
// Neither internal/rfc003 nor the swap handler imports this package: both
// take ledger.Identity values already placed in the Swap record by their
// caller; only the action executor needs the private keys back out.
type Provider struct {
	master *hdkeychain.ExtendedKey
	net    *chaincfg.Params
}

// NewFromMnemonic builds a Provider from a BIP-39 mnemonic and passphrase,
// validating the mnemonic before deriving the master key for net.
func NewFromMnemonic(mnemonic, passphrase string, net *chaincfg.Params) (*Provider, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("identity: invalid mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	master, err := hdkeychain.NewMaster(seed, net)
	if err != nil {
		return nil, fmt.Errorf("identity: derive master key: %w", err)
	}
	return &Provider{master: master, net: net}, nil
}

// NewFromSeed builds a Provider directly from raw seed bytes, for tests and
// for recovery paths that already hold a decrypted seed rather than its
// mnemonic.
func NewFromSeed(seed []byte, net *chaincfg.Params) (*Provider, error) {
	master, err := hdkeychain.NewMaster(seed, net)
	if err != nil {
		return nil, fmt.Errorf("identity: derive master key: %w", err)
	}
	return &Provider{master: master, net: net}, nil
}

func (p *Provider) derive(coinType, account, change, index uint32) (*hdkeychain.ExtendedKey, error) {
	purpose, err := p.master.Derive(hdkeychain.HardenedKeyStart + purposeBIP44)
	if err != nil {
		return nil, err
	}
	coin, err := purpose.Derive(hdkeychain.HardenedKeyStart + coinType)
	if err != nil {
		return nil, err
	}
	acct, err := coin.Derive(hdkeychain.HardenedKeyStart + account)
	if err != nil {
		return nil, err
	}
	chg, err := acct.Derive(change)
	if err != nil {
		return nil, err
	}
	return chg.Derive(index)
}

// BitcoinIdentity derives the pubkey-hash identity at m/44'/0'/account'/change/index.
func (p *Provider) BitcoinIdentity(account, change, index uint32) (ledger.BitcoinIdentity, *btcec.PrivateKey, error) {
	key, err := p.derive(coinTypeBitcoin, account, change, index)
	if err != nil {
		return ledger.BitcoinIdentity{}, nil, fmt.Errorf("identity: derive bitcoin key: %w", err)
	}
	priv, err := key.ECPrivKey()
	if err != nil {
		return ledger.BitcoinIdentity{}, nil, fmt.Errorf("identity: bitcoin priv key: %w", err)
	}
	addr, err := btcutil.NewAddressPubKey(priv.PubKey().SerializeCompressed(), p.net)
	if err != nil {
		return ledger.BitcoinIdentity{}, nil, fmt.Errorf("identity: bitcoin address: %w", err)
	}
	var id ledger.BitcoinIdentity
	copy(id[:], btcutil.Hash160(addr.ScriptAddress()))
	return id, priv, nil
}

// EthereumIdentity derives the account-address identity at
// m/44'/60'/account'/change/index, using the same master key so a single
// seed backs both ledgers of a swap.
func (p *Provider) EthereumIdentity(account, change, index uint32) (ledger.EthereumIdentity, *ecdsa.PrivateKey, error) {
	key, err := p.derive(coinTypeEthereum, account, change, index)
	if err != nil {
		return ledger.EthereumIdentity{}, nil, fmt.Errorf("identity: derive ethereum key: %w", err)
	}
	priv, err := key.ECPrivKey()
	if err != nil {
		return ledger.EthereumIdentity{}, nil, fmt.Errorf("identity: ethereum priv key: %w", err)
	}
	ecdsaKey, err := ethcrypto.ToECDSA(priv.Serialize())
	if err != nil {
		return ledger.EthereumIdentity{}, nil, fmt.Errorf("identity: convert ethereum key: %w", err)
	}
	return ledger.EthereumIdentity(ethcrypto.PubkeyToAddress(ecdsaKey.PublicKey)), ecdsaKey, nil
}
