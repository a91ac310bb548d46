// Package bitcoin builds the P2WSH HTLC script used on Bitcoin-family
// chains, and the witness stacks that spend it.
//
// Script structure:
//
//	OP_IF
//	    OP_SHA256 <secret_hash> OP_EQUALVERIFY
//	    OP_DUP OP_HASH160 <redeem_pubkey_hash>
//	OP_ELSE
//	    <sequence> OP_CHECKSEQUENCEVERIFY OP_DROP
//	    OP_DUP OP_HASH160 <refund_pubkey_hash>
//	OP_ENDIF
//	OP_EQUALVERIFY
//	OP_CHECKSIG
//
// Both branches converge on a shared OP_EQUALVERIFY/OP_CHECKSIG suffix.
package bitcoin

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// MaxSequence is the largest CSV relative-lock value representable as a
// script small-int/push before BIP-68 interpretation kicks in.
const MaxSequence = 0xFFFF

// ScriptParams is the commitment tuple embedded in an HTLC script. Equal
// ScriptParams values always yield byte-identical scripts and addresses.
type ScriptParams struct {
	SecretHash      [32]byte
	RedeemPKH       [20]byte // HASH160(redeem pubkey)
	RefundPKH       [20]byte // HASH160(refund pubkey)
	RelativeLockSeq uint32   // CSV sequence (BIP-68), blocks
}

// Build constructs the raw HTLC script for p.
func Build(p ScriptParams) ([]byte, error) {
	if p.RelativeLockSeq == 0 {
		return nil, fmt.Errorf("bitcoin: relative lock sequence must be > 0")
	}
	if p.RelativeLockSeq > MaxSequence {
		return nil, fmt.Errorf("bitcoin: relative lock sequence exceeds maximum CSV value (%d)", MaxSequence)
	}

	b := txscript.NewScriptBuilder()

	b.AddOp(txscript.OP_IF)
	b.AddOp(txscript.OP_SHA256)
	b.AddData(p.SecretHash[:])
	b.AddOp(txscript.OP_EQUALVERIFY)
	b.AddOp(txscript.OP_DUP)
	b.AddOp(txscript.OP_HASH160)
	b.AddData(p.RedeemPKH[:])
	b.AddOp(txscript.OP_ELSE)
	b.AddInt64(int64(p.RelativeLockSeq))
	b.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
	b.AddOp(txscript.OP_DROP)
	b.AddOp(txscript.OP_DUP)
	b.AddOp(txscript.OP_HASH160)
	b.AddData(p.RefundPKH[:])
	b.AddOp(txscript.OP_ENDIF)
	b.AddOp(txscript.OP_EQUALVERIFY)
	b.AddOp(txscript.OP_CHECKSIG)

	return b.Script()
}

// Data bundles a built script together with its derived address, for callers
// that need both without recomputing the SHA-256 script hash twice.
type Data struct {
	Params  ScriptParams
	Script  []byte
	Address string
}

// BuildData builds the script for p and derives its P2WSH address under net.
func BuildData(p ScriptParams, net *chaincfg.Params) (*Data, error) {
	script, err := Build(p)
	if err != nil {
		return nil, err
	}
	addr, err := ComputeAddress(script, net)
	if err != nil {
		return nil, err
	}
	return &Data{Params: p, Script: script, Address: addr}, nil
}

// ComputeAddress derives the P2WSH address for a built script. Deterministic
// and collision-free over distinct scripts.
func ComputeAddress(script []byte, net *chaincfg.Params) (string, error) {
	scriptHash := sha256.Sum256(script)
	addr, err := btcutil.NewAddressWitnessScriptHash(scriptHash[:], net)
	if err != nil {
		return "", fmt.Errorf("bitcoin: compute address: %w", err)
	}
	return addr.EncodeAddress(), nil
}

// ScriptPubKey returns the P2WSH scriptPubKey (OP_0 <32-byte-script-hash>)
// for a built script, for constructing the funding output.
func ScriptPubKey(script []byte) ([]byte, error) {
	scriptHash := sha256.Sum256(script)
	b := txscript.NewScriptBuilder()
	b.AddOp(txscript.OP_0)
	b.AddData(scriptHash[:])
	return b.Script()
}

// ClaimWitness builds the witness stack for the redeem (OP_IF) branch:
// <sig> <pubkey> <secret> <1> <script>, bottom to top.
func ClaimWitness(sig, redeemPubKey, secret, script []byte) [][]byte {
	return [][]byte{
		sig,
		redeemPubKey,
		secret,
		{0x01},
		script,
	}
}

// RefundWitness builds the witness stack for the refund (OP_ELSE) branch:
// <sig> <pubkey> <0> <script>, bottom to top. The empty element selects
// OP_ELSE; nSequence on the spending input must carry the same relative
// lock value baked into the script.
func RefundWitness(sig, refundPubKey, script []byte) [][]byte {
	return [][]byte{
		sig,
		refundPubKey,
		{},
		script,
	}
}

// CanBeUnlockedWithSecret reports whether script matches secretHash,
// without constructing a transaction — used by callers deciding whether a
// (secret, script) pair is worth spending.
func CanBeUnlockedWithSecret(params ScriptParams, secret []byte) bool {
	h := sha256.Sum256(secret)
	return h == params.SecretHash
}

// Parse extracts the commitment tuple from a previously built script. It
// round-trips Build for any ScriptParams.
func Parse(script []byte) (ScriptParams, error) {
	var p ScriptParams
	t := txscript.MakeScriptTokenizer(0, script)

	expectOp := func(op byte) error {
		if !t.Next() {
			return fmt.Errorf("bitcoin: parse: unexpected end of script, err=%v", t.Err())
		}
		if t.Opcode() != op {
			return fmt.Errorf("bitcoin: parse: expected opcode 0x%02x, got 0x%02x", op, t.Opcode())
		}
		return nil
	}

	if err := expectOp(txscript.OP_IF); err != nil {
		return p, err
	}
	if err := expectOp(txscript.OP_SHA256); err != nil {
		return p, err
	}
	if !t.Next() {
		return p, fmt.Errorf("bitcoin: parse: expected secret hash push")
	}
	if len(t.Data()) != 32 {
		return p, fmt.Errorf("bitcoin: parse: secret hash must be 32 bytes, got %d", len(t.Data()))
	}
	copy(p.SecretHash[:], t.Data())
	if err := expectOp(txscript.OP_EQUALVERIFY); err != nil {
		return p, err
	}
	if err := expectOp(txscript.OP_DUP); err != nil {
		return p, err
	}
	if err := expectOp(txscript.OP_HASH160); err != nil {
		return p, err
	}
	if !t.Next() {
		return p, fmt.Errorf("bitcoin: parse: expected redeem pubkey hash push")
	}
	if len(t.Data()) != 20 {
		return p, fmt.Errorf("bitcoin: parse: redeem pubkey hash must be 20 bytes, got %d", len(t.Data()))
	}
	copy(p.RedeemPKH[:], t.Data())

	if err := expectOp(txscript.OP_ELSE); err != nil {
		return p, err
	}
	if !t.Next() {
		return p, fmt.Errorf("bitcoin: parse: expected relative lock push")
	}
	op := t.Opcode()
	if txscript.IsSmallInt(op) {
		p.RelativeLockSeq = uint32(txscript.AsSmallInt(op))
	} else {
		data := t.Data()
		if len(data) == 0 {
			return p, fmt.Errorf("bitcoin: parse: expected relative lock data push")
		}
		var seq uint32
		for i := 0; i < len(data) && i < 4; i++ {
			seq |= uint32(data[i]) << (8 * i)
		}
		p.RelativeLockSeq = seq
	}
	if err := expectOp(txscript.OP_CHECKSEQUENCEVERIFY); err != nil {
		return p, err
	}
	if err := expectOp(txscript.OP_DROP); err != nil {
		return p, err
	}
	if err := expectOp(txscript.OP_DUP); err != nil {
		return p, err
	}
	if err := expectOp(txscript.OP_HASH160); err != nil {
		return p, err
	}
	if !t.Next() {
		return p, fmt.Errorf("bitcoin: parse: expected refund pubkey hash push")
	}
	if len(t.Data()) != 20 {
		return p, fmt.Errorf("bitcoin: parse: refund pubkey hash must be 20 bytes, got %d", len(t.Data()))
	}
	copy(p.RefundPKH[:], t.Data())

	if err := expectOp(txscript.OP_ENDIF); err != nil {
		return p, err
	}
	if err := expectOp(txscript.OP_EQUALVERIFY); err != nil {
		return p, err
	}
	if err := expectOp(txscript.OP_CHECKSIG); err != nil {
		return p, err
	}

	return p, nil
}
