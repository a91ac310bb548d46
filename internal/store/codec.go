package store

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/comit-swap/rfc003/internal/ledger"
	"github.com/comit-swap/rfc003/internal/rfc003"
	"github.com/comit-swap/rfc003/internal/secret"
	"github.com/comit-swap/rfc003/pkg/helpers"
)

// swapDTO is the JSON shape persisted in swap_metadata.data. Ledger
// symbols are stored in their own columns (used to resolve the Ledger
// needed to decode identities); this DTO carries everything else.
type swapDTO struct {
	AlphaAsset          quantityDTO     `json:"alpha_asset"`
	BetaAsset           quantityDTO     `json:"beta_asset"`
	AlphaRefundIdentity string          `json:"alpha_refund_identity"`
	AlphaRedeemIdentity string          `json:"alpha_redeem_identity"`
	BetaRefundIdentity  string          `json:"beta_refund_identity,omitempty"`
	BetaRedeemIdentity  string          `json:"beta_redeem_identity,omitempty"`
	AlphaLockDuration   lockDurationDTO `json:"alpha_lock_duration"`
	BetaLockDuration    lockDurationDTO `json:"beta_lock_duration,omitempty"`
	SecretHash          string          `json:"secret_hash"`
	Secret              string          `json:"secret,omitempty"`
}

func encodeSwap(swap *rfc003.Swap) (swapDTO, error) {
	dto := swapDTO{
		AlphaAsset:          encodeQuantity(swap.AlphaAsset),
		BetaAsset:           encodeQuantity(swap.BetaAsset),
		AlphaRefundIdentity: encodeIdentity(swap.AlphaRefundIdentity),
		AlphaRedeemIdentity: encodeIdentity(swap.AlphaRedeemIdentity),
		BetaRefundIdentity:  encodeIdentity(swap.BetaRefundIdentity),
		BetaRedeemIdentity:  encodeIdentity(swap.BetaRedeemIdentity),
		AlphaLockDuration:   encodeLockDuration(swap.AlphaLockDuration),
		BetaLockDuration:    encodeLockDuration(swap.BetaLockDuration),
		SecretHash:          helpers.BytesToHex(swap.SecretHash.Bytes()),
	}
	if swap.Secret != nil {
		dto.Secret = helpers.BytesToHex(swap.Secret.Raw())
	}
	return dto, nil
}

// assembleSwap rebuilds a Swap from its decoded row. id, role and the two
// ledgers come from swap_metadata's own columns; everything else comes from
// the JSON blob.
func assembleSwap(id rfc003.SwapId, role rfc003.Role, alphaLedger, betaLedger ledger.Ledger, dto swapDTO) (*rfc003.Swap, error) {
	swap := &rfc003.Swap{
		Id:          id,
		Role:        role,
		AlphaLedger: alphaLedger,
		BetaLedger:  betaLedger,
	}

	alphaAsset, err := decodeQuantity(dto.AlphaAsset)
	if err != nil {
		return nil, fmt.Errorf("store: decode alpha asset: %w", err)
	}
	swap.AlphaAsset = alphaAsset

	betaAsset, err := decodeQuantity(dto.BetaAsset)
	if err != nil {
		return nil, fmt.Errorf("store: decode beta asset: %w", err)
	}
	swap.BetaAsset = betaAsset

	if swap.AlphaRefundIdentity, err = decodeIdentity(alphaLedger, dto.AlphaRefundIdentity); err != nil {
		return nil, fmt.Errorf("store: decode alpha refund identity: %w", err)
	}
	if swap.AlphaRedeemIdentity, err = decodeIdentity(alphaLedger, dto.AlphaRedeemIdentity); err != nil {
		return nil, fmt.Errorf("store: decode alpha redeem identity: %w", err)
	}
	if swap.BetaRefundIdentity, err = decodeIdentity(betaLedger, dto.BetaRefundIdentity); err != nil {
		return nil, fmt.Errorf("store: decode beta refund identity: %w", err)
	}
	if swap.BetaRedeemIdentity, err = decodeIdentity(betaLedger, dto.BetaRedeemIdentity); err != nil {
		return nil, fmt.Errorf("store: decode beta redeem identity: %w", err)
	}

	swap.AlphaLockDuration = decodeLockDuration(dto.AlphaLockDuration)
	swap.BetaLockDuration = decodeLockDuration(dto.BetaLockDuration)

	hashRaw, err := helpers.HexToBytes(dto.SecretHash)
	if err != nil {
		return nil, fmt.Errorf("store: decode secret hash hex: %w", err)
	}
	hash, err := secret.HashFromBytes(hashRaw)
	if err != nil {
		return nil, fmt.Errorf("store: decode secret hash: %w", err)
	}
	swap.SecretHash = hash

	if dto.Secret != "" {
		raw, err := helpers.HexToBytes(dto.Secret)
		if err != nil {
			return nil, fmt.Errorf("store: decode secret hex: %w", err)
		}
		sec, err := secret.FromBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("store: decode secret: %w", err)
		}
		swap.Secret = &sec
	}

	return swap, nil
}

func encodeIdentity(id ledger.Identity) string {
	if id == nil {
		return ""
	}
	return helpers.BytesToHex(id.Bytes())
}

func decodeIdentity(l ledger.Ledger, s string) (ledger.Identity, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := helpers.HexToBytes(s)
	if err != nil {
		return nil, fmt.Errorf("store: decode identity hex: %w", err)
	}
	return l.DecodeIdentity(raw)
}

// quantityDTO is self-describing: exactly one of Sats/WeiHex is set,
// which family it came from without needing the owning ledger's symbol.
type quantityDTO struct {
	Sats   *int64 `json:"sats,omitempty"`
	WeiHex string `json:"wei_hex,omitempty"`
	Token  string `json:"token,omitempty"`
}

func encodeQuantity(q ledger.Quantity) quantityDTO {
	switch v := q.(type) {
	case ledger.BitcoinQuantity:
		sats := int64(v)
		return quantityDTO{Sats: &sats}
	case ledger.EthereumQuantity:
		dto := quantityDTO{}
		if v.Amount != nil {
			dto.WeiHex = v.Amount.Text(16)
		}
		if v.Token != nil {
			dto.Token = v.Token.Hex()
		}
		return dto
	default:
		return quantityDTO{}
	}
}

func decodeQuantity(dto quantityDTO) (ledger.Quantity, error) {
	switch {
	case dto.Sats != nil:
		return ledger.BitcoinQuantity(*dto.Sats), nil
	case dto.WeiHex != "":
		amount, ok := new(big.Int).SetString(dto.WeiHex, 16)
		if !ok {
			return nil, fmt.Errorf("store: invalid wei hex %q", dto.WeiHex)
		}
		q := ledger.EthereumQuantity{Amount: amount}
		if dto.Token != "" {
			addr := common.HexToAddress(dto.Token)
			q.Token = &addr
		}
		return q, nil
	default:
		return nil, nil
	}
}

// lockDurationDTO is self-describing the same way: Blocks for Bitcoin-family
// ledgers, ExpiryUnix for EVM-family ones.
type lockDurationDTO struct {
	Blocks     *uint32 `json:"blocks,omitempty"`
	ExpiryUnix *int64  `json:"expiry_unix,omitempty"`
}

func encodeLockDuration(d ledger.LockDuration) lockDurationDTO {
	switch v := d.(type) {
	case ledger.BitcoinLockDuration:
		blocks := uint32(v)
		return lockDurationDTO{Blocks: &blocks}
	case ledger.EthereumLockDuration:
		expiry := v.ExpiryUnix
		return lockDurationDTO{ExpiryUnix: &expiry}
	default:
		return lockDurationDTO{}
	}
}

func decodeLockDuration(dto lockDurationDTO) ledger.LockDuration {
	switch {
	case dto.Blocks != nil:
		return ledger.BitcoinLockDuration(*dto.Blocks)
	case dto.ExpiryUnix != nil:
		return ledger.EthereumLockDuration{ExpiryUnix: *dto.ExpiryUnix}
	default:
		return nil
	}
}

// encodeLocation renders loc via its own String(), the same representation
// used on the wire and in logs. decodeLocation disambiguates the ledger
// family from the string's shape: a 0x-prefixed 20-byte hex address is
// always EVM, anything else is parsed as a Bitcoin txid:vout outpoint.
func encodeLocation(loc ledger.HtlcLocation) string {
	if loc == nil {
		return ""
	}
	return loc.String()
}

func decodeLocation(s string) (ledger.HtlcLocation, error) {
	if s == "" {
		return nil, nil
	}
	if common.IsHexAddress(s) {
		return ledger.EthereumHtlcLocation(common.HexToAddress(s)), nil
	}
	return ledger.ParseBitcoinHtlcLocation(s)
}

// stateDTO is the JSON shape persisted in swap_state.data.
type stateDTO struct {
	BetaRedeemIdentity string          `json:"beta_redeem_identity,omitempty"`
	BetaRefundIdentity string          `json:"beta_refund_identity,omitempty"`
	BetaLockDuration   lockDurationDTO `json:"beta_lock_duration,omitempty"`
	AlphaLocation      string          `json:"alpha_location,omitempty"`
	BetaLocation       string          `json:"beta_location,omitempty"`
	Secret             string          `json:"secret,omitempty"`
	Outcome            *outcomeDTO     `json:"outcome,omitempty"`
	ErrorReason        string          `json:"error_reason,omitempty"`
}

type outcomeDTO struct {
	Kind        uint8  `json:"kind"`
	Imbalanced  bool   `json:"imbalanced,omitempty"`
	RejectedWhy string `json:"rejected_why,omitempty"`
}

func encodeState(s rfc003.State) stateDTO {
	dto := stateDTO{
		BetaRedeemIdentity: encodeIdentity(s.BetaRedeemIdentity),
		BetaRefundIdentity: encodeIdentity(s.BetaRefundIdentity),
		BetaLockDuration:   encodeLockDuration(s.BetaLockDuration),
		AlphaLocation:      encodeLocation(s.AlphaLocation),
		BetaLocation:       encodeLocation(s.BetaLocation),
		ErrorReason:        s.ErrorReason,
	}
	if s.Secret != nil {
		dto.Secret = helpers.BytesToHex(s.Secret.Raw())
	}
	if s.Outcome != nil {
		dto.Outcome = &outcomeDTO{
			Kind:        uint8(s.Outcome.Kind),
			Imbalanced:  s.Outcome.Imbalanced,
			RejectedWhy: s.Outcome.RejectedWhy,
		}
	}
	return dto
}

func decodeState(dto stateDTO, kind uint8, betaLedger ledger.Ledger) (rfc003.State, error) {
	s := rfc003.State{
		Kind:        rfc003.StateKind(kind),
		ErrorReason: dto.ErrorReason,
	}

	var err error
	if s.AlphaLocation, err = decodeLocation(dto.AlphaLocation); err != nil {
		return rfc003.State{}, fmt.Errorf("store: decode alpha location: %w", err)
	}
	if s.BetaLocation, err = decodeLocation(dto.BetaLocation); err != nil {
		return rfc003.State{}, fmt.Errorf("store: decode beta location: %w", err)
	}

	betaRedeem, err := decodeIdentity(betaLedger, dto.BetaRedeemIdentity)
	if err != nil {
		return rfc003.State{}, fmt.Errorf("store: decode beta redeem identity: %w", err)
	}
	s.BetaRedeemIdentity = betaRedeem

	betaRefund, err := decodeIdentity(betaLedger, dto.BetaRefundIdentity)
	if err != nil {
		return rfc003.State{}, fmt.Errorf("store: decode beta refund identity: %w", err)
	}
	s.BetaRefundIdentity = betaRefund

	s.BetaLockDuration = decodeLockDuration(dto.BetaLockDuration)

	if dto.Secret != "" {
		raw, err := helpers.HexToBytes(dto.Secret)
		if err != nil {
			return rfc003.State{}, fmt.Errorf("store: decode secret hex: %w", err)
		}
		sec, err := secret.FromBytes(raw)
		if err != nil {
			return rfc003.State{}, fmt.Errorf("store: decode secret: %w", err)
		}
		s.Secret = &sec
	}

	if dto.Outcome != nil {
		s.Outcome = &rfc003.Outcome{
			Kind:        rfc003.OutcomeKind(dto.Outcome.Kind),
			Imbalanced:  dto.Outcome.Imbalanced,
			RejectedWhy: dto.Outcome.RejectedWhy,
		}
	}

	return s, nil
}
