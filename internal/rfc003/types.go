// Package rfc003 implements the swap state machine and its action
// derivation: the typed states that drive a single swap from proposal
// through funding, redemption, and refund, and the pure (Role, State) →
// []Action mapping that tells a caller what it may legally execute next.
package rfc003

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/comit-swap/rfc003/internal/ledger"
	"github.com/comit-swap/rfc003/internal/secret"
)

// SwapId is the 128-bit opaque identifier, the primary key in every store.
type SwapId uuid.UUID

// NewSwapId draws a fresh random SwapId.
func NewSwapId() SwapId {
	return SwapId(uuid.Must(uuid.NewRandom()))
}

// ParseSwapId parses a previously rendered SwapId.
func ParseSwapId(s string) (SwapId, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return SwapId{}, fmt.Errorf("rfc003: parse swap id: %w", err)
	}
	return SwapId(id), nil
}

func (id SwapId) String() string { return uuid.UUID(id).String() }

// Role distinguishes the initiator (Alice, who owns the Secret and proposes
// the swap) from the responder (Bob, who only learns the secret by
// observing the beta-chain redemption).
type Role uint8

const (
	RoleInitiator Role = iota
	RoleResponder
)

func (r Role) String() string {
	if r == RoleInitiator {
		return "initiator"
	}
	return "responder"
}

// Swap is the per-instance record: everything about a single swap that
// does not change once Start is reached, except the beta-side identities
// and lock duration the responder supplies on Accepted (see
// Machine.applyAcceptance).
type Swap struct {
	Id SwapId

	AlphaLedger ledger.Ledger
	BetaLedger  ledger.Ledger

	AlphaAsset ledger.Quantity
	BetaAsset  ledger.Quantity

	AlphaRefundIdentity ledger.Identity
	AlphaRedeemIdentity ledger.Identity
	BetaRefundIdentity  ledger.Identity
	BetaRedeemIdentity  ledger.Identity

	AlphaLockDuration ledger.LockDuration
	BetaLockDuration  ledger.LockDuration

	SecretHash secret.Hash
	Role       Role

	// Secret is set only for the initiator, who generated it at proposal
	// time. The responder's copy is populated only once observed on the
	// beta chain (stored into the running State, not here).
	Secret *secret.Secret
}

// Validate checks that alpha and beta are distinct ledger families and,
// for the initiator, that the secret has already been generated. Callers
// should validate before inserting a Swap into a store.
func (s *Swap) Validate() error {
	if s.AlphaLedger == nil || s.BetaLedger == nil {
		return fmt.Errorf("%w: both ledgers must be set", ErrInvalidRequest)
	}
	if s.AlphaLedger.Symbol() == s.BetaLedger.Symbol() {
		return fmt.Errorf("%w: alpha and beta ledger must differ, both are %s", ErrInvalidRequest, s.AlphaLedger.Symbol())
	}
	if s.Role == RoleInitiator && s.Secret == nil {
		return fmt.Errorf("%w: initiator must own the secret", ErrInvalidRequest)
	}
	return nil
}
