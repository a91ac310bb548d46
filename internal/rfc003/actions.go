package rfc003

import (
	"github.com/comit-swap/rfc003/internal/events"
	"github.com/comit-swap/rfc003/internal/ledger"
	"github.com/comit-swap/rfc003/internal/secret"
)

// ActionKind tags the operation an Action asks the caller to execute.
type ActionKind uint8

const (
	ActionAccept ActionKind = iota
	ActionDecline
	ActionFund
	ActionRedeem
	ActionRefund
)

func (k ActionKind) String() string {
	switch k {
	case ActionAccept:
		return "Accept"
	case ActionDecline:
		return "Decline"
	case ActionFund:
		return "Fund"
	case ActionRedeem:
		return "Redeem"
	case ActionRefund:
		return "Refund"
	default:
		return "Unknown"
	}
}

// Side names which of the swap's two ledgers an action targets.
type Side uint8

const (
	SideAlpha Side = iota
	SideBeta
)

func (s Side) String() string {
	if s == SideAlpha {
		return "alpha"
	}
	return "beta"
}

// Action is a legal operation the local role may execute in the swap's
// current state. The payload carries everything internal/htlc
// needs to materialize a PrimedInput (Bitcoin) or a ContractDeploy /
// SendTransaction (Ethereum) — constructing and broadcasting that artifact
// is the caller's responsibility, never the state machine's.
type Action struct {
	Kind ActionKind
	Side Side

	// Params is set for ActionFund: the commitment tuple to deploy the
	// HTLC from.
	Params *events.HtlcParams

	// Location is set for ActionRedeem/ActionRefund: the already-observed
	// HTLC location to spend.
	Location ledger.HtlcLocation

	// Secret is set for ActionRedeem: the preimage to reveal. For the
	// initiator redeeming beta this is the Secret it generated; for the
	// responder redeeming alpha this is the Secret it observed in the
	// beta-chain redemption.
	Secret *secret.Secret
}

// Actions computes the legal action set for role in the swap's current
// state. The empty slice (never nil) is returned for terminal states and
// any (role, state) pair not in the table.
func Actions(role Role, s State, swap *Swap) []Action {
	if s.Kind.Terminal() {
		return []Action{}
	}

	switch role {
	case RoleInitiator:
		return initiatorActions(s, swap)
	case RoleResponder:
		return responderActions(s, swap)
	default:
		return []Action{}
	}
}

func alphaParams(swap *Swap) *events.HtlcParams {
	return &events.HtlcParams{
		RedeemIdentity: swap.AlphaRedeemIdentity,
		RefundIdentity: swap.AlphaRefundIdentity,
		SecretHash:     swap.SecretHash,
		Expiry:         swap.AlphaLockDuration,
	}
}

func betaParams(swap *Swap, s State) *events.HtlcParams {
	lock := swap.BetaLockDuration
	if s.BetaLockDuration != nil {
		lock = s.BetaLockDuration
	}
	return &events.HtlcParams{
		RedeemIdentity: swap.BetaRedeemIdentity,
		RefundIdentity: swap.BetaRefundIdentity,
		SecretHash:     swap.SecretHash,
		Expiry:         lock,
	}
}

func initiatorActions(s State, swap *Swap) []Action {
	switch s.Kind {
	case StateAccepted:
		return []Action{{Kind: ActionFund, Side: SideAlpha, Params: alphaParams(swap)}}
	case StateBothFunded:
		return []Action{
			{Kind: ActionRedeem, Side: SideBeta, Location: s.BetaLocation, Secret: swap.Secret},
			{Kind: ActionRefund, Side: SideAlpha, Location: s.AlphaLocation},
		}
	case StateAlphaFundedBetaRefunded, StateAlphaFundedBetaRedeemed:
		return []Action{{Kind: ActionRefund, Side: SideAlpha, Location: s.AlphaLocation}}
	case StateAlphaRefundedBetaFunded, StateAlphaRedeemedBetaFunded:
		return []Action{{Kind: ActionRedeem, Side: SideBeta, Location: s.BetaLocation, Secret: swap.Secret}}
	default:
		return []Action{}
	}
}

func responderActions(s State, swap *Swap) []Action {
	switch s.Kind {
	case StateStart:
		return []Action{{Kind: ActionAccept}, {Kind: ActionDecline}}
	case StateAlphaFunded:
		return []Action{{Kind: ActionFund, Side: SideBeta, Params: betaParams(swap, s)}}
	case StateBothFunded, StateAlphaRedeemedBetaFunded, StateAlphaRefundedBetaFunded:
		return []Action{{Kind: ActionRefund, Side: SideBeta, Location: s.BetaLocation}}
	case StateAlphaFundedBetaRedeemed:
		return []Action{{Kind: ActionRedeem, Side: SideAlpha, Location: s.AlphaLocation, Secret: s.Secret}}
	default:
		return []Action{}
	}
}
