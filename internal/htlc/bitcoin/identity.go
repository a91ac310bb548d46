package bitcoin

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
)

// PubKeyHash returns HASH160(compressed pubkey), the identity this HTLC
// script embeds for the redeem and refund branches.
func PubKeyHash(pub *btcec.PublicKey) [20]byte {
	var out [20]byte
	copy(out[:], btcutil.Hash160(pub.SerializeCompressed()))
	return out
}

// Sign produces a DER-encoded ECDSA signature over hash using priv, the same
// primitive the redeem/refund witness (ClaimWitness/RefundWitness) embeds.
func Sign(priv *btcec.PrivateKey, hash []byte) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("bitcoin: sign: private key is nil")
	}
	sig := ecdsa.Sign(priv, hash)
	return sig.Serialize(), nil
}

// CanBeUnlockedWith verifies, without any network access, that priv's public
// key hashes to one of script's two embedded identities and, if a non-nil
// secret is supplied, that it also satisfies the redeem branch. This backs
// the can_be_unlocked_with contract.
func CanBeUnlockedWith(params ScriptParams, priv *btcec.PrivateKey, secret []byte) bool {
	pkh := PubKeyHash(priv.PubKey())
	switch {
	case secret != nil:
		return pkh == params.RedeemPKH && CanBeUnlockedWithSecret(params, secret)
	default:
		return pkh == params.RefundPKH
	}
}
