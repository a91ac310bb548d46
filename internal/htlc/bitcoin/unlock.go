package bitcoin

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
)

// WitnessProducer turns the spending transaction's signature hash into the
// complete witness stack for one branch of the HTLC script. The signature
// hash depends on the spending transaction, so it cannot be computed here;
// the executor builds the transaction, computes the BIP-143 sighash for the
// HTLC input, and calls the producer with it.
type WitnessProducer func(sigHash []byte) ([][]byte, error)

// PrimedInput is the fully materialised payload of a Bitcoin Redeem or
// Refund action: the outpoint holding the HTLC funds, its value, the raw
// script (needed for the BIP-143 sighash), and the witness producer that
// spends it. Broadcasting the resulting transaction is the caller's job.
type PrimedInput struct {
	TxId    string
	Vout    uint32
	Value   int64
	Script  []byte
	Witness WitnessProducer

	// SequenceNum is non-zero only for the refund branch: the spending
	// input's nSequence must carry the script's relative lock value or the
	// node rejects the transaction as non-BIP68-final.
	SequenceNum uint32
}

// UnlockWithSecret returns the witness producer for the redeem branch,
// verifying locally that the (key, secret) pair can actually unlock this
// script before any transaction is built.
func (d *Data) UnlockWithSecret(priv *btcec.PrivateKey, secret []byte) (WitnessProducer, error) {
	if priv == nil {
		return nil, fmt.Errorf("bitcoin: unlock with secret: private key is nil")
	}
	if !CanBeUnlockedWith(d.Params, priv, secret) {
		return nil, fmt.Errorf("bitcoin: key/secret pair cannot unlock this script")
	}
	pub := priv.PubKey().SerializeCompressed()
	script := d.Script
	return func(sigHash []byte) ([][]byte, error) {
		sig, err := Sign(priv, sigHash)
		if err != nil {
			return nil, err
		}
		return ClaimWitness(append(sig, byte(txscript.SigHashAll)), pub, secret, script), nil
	}, nil
}

// UnlockAfterTimeout returns the witness producer for the refund branch.
// The producer is only spendable once the input's nSequence satisfies the
// script's relative lock; pair it with PrimedInput.SequenceNum.
func (d *Data) UnlockAfterTimeout(priv *btcec.PrivateKey) (WitnessProducer, error) {
	if priv == nil {
		return nil, fmt.Errorf("bitcoin: unlock after timeout: private key is nil")
	}
	if !CanBeUnlockedWith(d.Params, priv, nil) {
		return nil, fmt.Errorf("bitcoin: key does not match the refund identity")
	}
	pub := priv.PubKey().SerializeCompressed()
	script := d.Script
	return func(sigHash []byte) ([][]byte, error) {
		sig, err := Sign(priv, sigHash)
		if err != nil {
			return nil, err
		}
		return RefundWitness(append(sig, byte(txscript.SigHashAll)), pub, script), nil
	}, nil
}

// PrimeRedeem materialises the redeem-branch PrimedInput for the HTLC
// output at (txID, vout) worth value satoshis.
func (d *Data) PrimeRedeem(txID string, vout uint32, value int64, priv *btcec.PrivateKey, secret []byte) (PrimedInput, error) {
	w, err := d.UnlockWithSecret(priv, secret)
	if err != nil {
		return PrimedInput{}, err
	}
	return PrimedInput{TxId: txID, Vout: vout, Value: value, Script: d.Script, Witness: w}, nil
}

// PrimeRefund materialises the refund-branch PrimedInput, carrying the
// script's relative lock as the required input sequence.
func (d *Data) PrimeRefund(txID string, vout uint32, value int64, priv *btcec.PrivateKey) (PrimedInput, error) {
	w, err := d.UnlockAfterTimeout(priv)
	if err != nil {
		return PrimedInput{}, err
	}
	return PrimedInput{
		TxId:        txID,
		Vout:        vout,
		Value:       value,
		Script:      d.Script,
		Witness:     w,
		SequenceNum: d.Params.RelativeLockSeq,
	}, nil
}
