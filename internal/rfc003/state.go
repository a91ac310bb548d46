package rfc003

import (
	"github.com/comit-swap/rfc003/internal/ledger"
	"github.com/comit-swap/rfc003/internal/secret"
)

// StateKind tags the variant of the RFC003 state machine. AlphaFunded/
// BetaFunded and the four one-side-settled states could be collapsed into
// two parameterized shapes; each is named concretely instead since the
// action table treats them distinctly.
type StateKind uint8

const (
	StateStart StateKind = iota
	StateAccepted
	StateAlphaFunded
	StateBetaFunded
	StateBothFunded
	StateAlphaRedeemedBetaFunded
	StateAlphaRefundedBetaFunded
	StateAlphaFundedBetaRedeemed
	StateAlphaFundedBetaRefunded
	StateFinal
	StateError
)

func (k StateKind) String() string {
	switch k {
	case StateStart:
		return "Start"
	case StateAccepted:
		return "Accepted"
	case StateAlphaFunded:
		return "AlphaFunded"
	case StateBetaFunded:
		return "BetaFunded"
	case StateBothFunded:
		return "BothFunded"
	case StateAlphaRedeemedBetaFunded:
		return "AlphaRedeemedBetaFunded"
	case StateAlphaRefundedBetaFunded:
		return "AlphaRefundedBetaFunded"
	case StateAlphaFundedBetaRedeemed:
		return "AlphaFundedBetaRedeemed"
	case StateAlphaFundedBetaRefunded:
		return "AlphaFundedBetaRefunded"
	case StateFinal:
		return "Final"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Terminal reports whether k is Final or Error: once reached, no further
// transitions occur and the derived action set is empty.
func (k StateKind) Terminal() bool {
	return k == StateFinal || k == StateError
}

// OutcomeKind classifies how a terminated swap settled.
type OutcomeKind uint8

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRejected
	OutcomeRefunded
	OutcomeBothRefunded
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "Success"
	case OutcomeRejected:
		return "Rejected"
	case OutcomeRefunded:
		return "Refunded"
	case OutcomeBothRefunded:
		return "BothRefunded"
	default:
		return "Unknown"
	}
}

// Outcome is the terminal product of a Final state. Imbalanced is set when
// one side redeemed after the other side had already refunded — a race
// that is only possible if the two lock durations were misconfigured.
type Outcome struct {
	Kind        OutcomeKind
	Imbalanced  bool
	RejectedWhy string
}

// State is the current snapshot of a single swap's progress through the
// RFC003 machine. Only the fields relevant to Kind are populated;
// the rest are zero.
type State struct {
	Kind StateKind

	// BetaRedeemIdentity, BetaRefundIdentity and BetaLockDuration are the
	// responder-supplied values stored into the swap when it transitions
	// to Accepted. Mirrored here (not only on Swap) so a StateStore
	// snapshot alone is enough to know what Accepted observed.
	BetaRedeemIdentity ledger.Identity
	BetaRefundIdentity ledger.Identity
	BetaLockDuration   ledger.LockDuration

	AlphaLocation ledger.HtlcLocation
	BetaLocation  ledger.HtlcLocation

	// Secret becomes populated once a redemption revealing it is observed
	// on either chain, for either role. The initiator's own secret is held
	// on Swap.Secret from the start.
	Secret *secret.Secret

	Outcome *Outcome

	// ErrorReason is set only in StateError.
	ErrorReason string
}

// Start returns the initial state every swap begins in.
func Start() State {
	return State{Kind: StateStart}
}
