package rfc003

import (
	"context"
	"fmt"

	"github.com/comit-swap/rfc003/internal/comit"
	"github.com/comit-swap/rfc003/internal/events"
	"github.com/comit-swap/rfc003/internal/ledger"
	"github.com/comit-swap/rfc003/internal/secret"
	"github.com/comit-swap/rfc003/pkg/logging"
)

// sideEventKind tags what stage of a side's lifecycle produced a sideEvent.
type sideEventKind uint8

const (
	sideDeployed sideEventKind = iota
	sideFunded
	sideSettled
)

type sideEvent struct {
	side     Side
	kind     sideEventKind
	location ledger.HtlcLocation
	outcome  ledger.Outcome
	err      error
}

// resumePoint tells watchSide which stages it can skip because a prior run
// already observed them (re-hydration from a StateStore snapshot).
type resumePoint struct {
	location ledger.HtlcLocation
	funded   bool
}

// watchSide drives one ledger's deployed -> funded -> redeemed_or_refunded
// sequence and reports each stage on out. The spend watch is armed as soon
// as the location is known, racing the funding watch rather than waiting
// behind it: a deposit that never reaches the expected quantity can still
// be reclaimed through the HTLC's refund branch after lock expiry, and
// that spend must be observable even though Funded never resolves. Call
// exactly once per side per Machine.Run; it exits once it reports a
// settled event or hits an error.
func watchSide(ctx context.Context, stream events.Stream, params events.HtlcParams, expected ledger.Quantity, side Side, resume resumePoint, out chan<- sideEvent) {
	loc := resume.location
	if loc == nil {
		locCh, errCh := stream.Deployed(ctx, params)
		select {
		case l, ok := <-locCh:
			if !ok {
				return
			}
			loc = l
		case err, ok := <-errCh:
			if ok {
				out <- sideEvent{side: side, err: err}
			}
			return
		case <-ctx.Done():
			return
		}
		select {
		case out <- sideEvent{side: side, kind: sideDeployed, location: loc}:
		case <-ctx.Done():
			return
		}
	}

	settleCh, settleErrCh := stream.RedeemedOrRefunded(ctx, params, loc)

	if !resume.funded {
		fundedCh, fundedErrCh := stream.Funded(ctx, params, loc, expected)
		select {
		case _, ok := <-fundedCh:
			if !ok {
				return
			}
			select {
			case out <- sideEvent{side: side, kind: sideFunded, location: loc}:
			case <-ctx.Done():
				return
			}
		case outcome, ok := <-settleCh:
			// Spent while still below the expected quantity; report the
			// settle without a funding event and let the machine classify.
			if !ok {
				return
			}
			select {
			case out <- sideEvent{side: side, kind: sideSettled, location: loc, outcome: outcome}:
			case <-ctx.Done():
			}
			return
		case err, ok := <-fundedErrCh:
			if ok {
				out <- sideEvent{side: side, location: loc, err: err}
			}
			return
		case err, ok := <-settleErrCh:
			if ok {
				out <- sideEvent{side: side, location: loc, err: err}
			}
			return
		case <-ctx.Done():
			return
		}
	}

	select {
	case outcome, ok := <-settleCh:
		if !ok {
			return
		}
		select {
		case out <- sideEvent{side: side, kind: sideSettled, location: loc, outcome: outcome}:
		case <-ctx.Done():
		}
	case err, ok := <-settleErrCh:
		if ok {
			out <- sideEvent{side: side, location: loc, err: err}
		}
	case <-ctx.Done():
	}
}

// AcceptedResponse is the responder's acceptance payload, aliased from the
// comit package so callers driving a Machine don't need a second import.
type AcceptedResponse = comit.AcceptedResponse

// controlMsg carries a responder's Accept/Decline decision into the running
// machine, since that decision is made by a caller external to the
// event-driven loop (the swap handler, acting on a derived Action).
type controlMsg struct {
	accept  *AcceptedResponse
	decline *string
}

// Machine runs a single swap's RFC003 state machine: the biased merge of
// communication, alpha, and beta events described by the transition rules
// in this package's state table, persisting every transition.
type Machine struct {
	swap  *Swap
	role  Role
	alpha events.Stream
	beta  events.Stream
	comm  comit.Channel
	store StateStore
	log   *logging.Logger

	state   State
	control chan controlMsg
}

// NewMachine constructs a Machine for swap, picking up at initial (Start for
// a fresh swap, or whatever a StateStore re-hydration produced).
func NewMachine(swap *Swap, role Role, alpha, beta events.Stream, comm comit.Channel, store StateStore, initial State) *Machine {
	return &Machine{
		swap:    swap,
		role:    role,
		alpha:   alpha,
		beta:    beta,
		comm:    comm,
		store:   store,
		log:     logging.GetDefault().Component("rfc003-machine").With("swap_id", swap.Id.String()),
		state:   initial,
		control: make(chan controlMsg, 1),
	}
}

// State returns the machine's current state snapshot.
func (m *Machine) State() State { return m.state }

// Accept delivers a responder's acceptance into the running machine and
// notifies the counterparty over comm. Valid only while the machine is in
// Start and the role is Responder.
func (m *Machine) Accept(ctx context.Context, resp AcceptedResponse) error {
	if err := m.comm.Accept(ctx, m.swap.Id.String(), resp); err != nil {
		return newError(KindCommunicationError, m.swap.Id, err)
	}
	select {
	case m.control <- controlMsg{accept: &resp}:
		return nil
	case <-ctx.Done():
		return newError(KindCommunicationError, m.swap.Id, ctx.Err())
	}
}

// Decline delivers a responder's rejection into the running machine and
// notifies the counterparty over comm.
func (m *Machine) Decline(ctx context.Context, reason string) error {
	if err := m.comm.Decline(ctx, m.swap.Id.String(), reason); err != nil {
		return newError(KindCommunicationError, m.swap.Id, err)
	}
	select {
	case m.control <- controlMsg{decline: &reason}:
		return nil
	case <-ctx.Done():
		return newError(KindCommunicationError, m.swap.Id, ctx.Err())
	}
}

func (m *Machine) persist(ctx context.Context) error {
	if err := m.store.SaveState(ctx, m.swap.Id, m.state); err != nil {
		m.log.Warn("persist state failed", "error", err, "state", m.state.Kind)
		return newError(KindPersistenceError, m.swap.Id, err)
	}
	return nil
}

// fail drives the machine into StateError and best-effort persists it. The
// caller is already unwinding Run with err; a failed persist here is logged,
// not escalated, since there is nothing further to roll back to.
func (m *Machine) fail(ctx context.Context, err error) {
	m.state = State{Kind: StateError, ErrorReason: err.Error()}
	if perr := m.persist(ctx); perr != nil {
		m.log.Warn("failed to persist error state", "error", perr)
	}
}

// sideFunded reports whether side's HTLC has been observed funded in the
// machine's current (pre-BothFunded) state.
func (m *Machine) sideFunded(side Side) bool {
	switch m.state.Kind {
	case StateAlphaFunded:
		return side == SideAlpha
	case StateBetaFunded:
		return side == SideBeta
	}
	return false
}

// isSideSettled reports whether side's HTLC has already reached one of the
// four single-settled states, meaning its watcher must not be (re)started.
func isSideSettled(k StateKind, side Side) bool {
	switch side {
	case SideAlpha:
		return k == StateAlphaRedeemedBetaFunded || k == StateAlphaRefundedBetaFunded
	case SideBeta:
		return k == StateAlphaFundedBetaRedeemed || k == StateAlphaFundedBetaRefunded
	}
	return false
}

// resumeForSide derives what stage of watchSide's sequence can be skipped
// for side when recovering from a stored State, from the location and
// funding status already implied by the state's Kind.
func resumeForSide(s State, side Side) resumePoint {
	var loc ledger.HtlcLocation
	switch side {
	case SideAlpha:
		loc = s.AlphaLocation
	case SideBeta:
		loc = s.BetaLocation
	}
	if loc == nil {
		return resumePoint{}
	}
	funded := false
	switch s.Kind {
	case StateBothFunded, StateAlphaRedeemedBetaFunded, StateAlphaRefundedBetaFunded,
		StateAlphaFundedBetaRedeemed, StateAlphaFundedBetaRefunded:
		funded = true
	case StateAlphaFunded:
		funded = side == SideAlpha
	case StateBetaFunded:
		funded = side == SideBeta
	}
	return resumePoint{location: loc, funded: funded}
}

// Run drives the machine to a terminal state or until ctx is cancelled.
// Each transition is persisted as soon as it is derived, so a crash mid-swap
// resumes from the last durable state rather than replaying history.
func (m *Machine) Run(ctx context.Context) error {
	if m.state.Kind == StateStart {
		if err := m.stepStart(ctx); err != nil {
			m.fail(ctx, err)
			return err
		}
	}
	if m.state.Kind.Terminal() {
		return nil
	}

	// Watchers are children of the machine, not of the caller: once the
	// machine reaches a terminal state, any still-polling funding or spend
	// watch is torn down with it.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	alphaEvents := make(chan sideEvent, 2)
	betaEvents := make(chan sideEvent, 2)
	if !isSideSettled(m.state.Kind, SideAlpha) {
		go watchSide(ctx, m.alpha, *alphaParams(m.swap), m.swap.AlphaAsset, SideAlpha, resumeForSide(m.state, SideAlpha), alphaEvents)
	}
	if !isSideSettled(m.state.Kind, SideBeta) {
		go watchSide(ctx, m.beta, *betaParams(m.swap, m.state), m.swap.BetaAsset, SideBeta, resumeForSide(m.state, SideBeta), betaEvents)
	}

	for !m.state.Kind.Terminal() {
		ev, ok := nextSideEvent(ctx, alphaEvents, betaEvents)
		if !ok {
			err := newError(KindSubscriptionError, m.swap.Id, ctx.Err())
			m.fail(ctx, err)
			return err
		}
		if ev.err != nil {
			err := newError(KindSubscriptionError, m.swap.Id, ev.err)
			m.fail(ctx, err)
			return err
		}
		if err := m.handleSideEvent(ctx, ev); err != nil {
			m.fail(ctx, err)
			return err
		}
	}
	return nil
}

// nextSideEvent drains alpha before beta whenever both are ready, enforcing
// the alpha-before-beta priority deterministically instead of relying on
// select's pseudo-random case choice when multiple events are ready at
// once. Communication events take priority over both, but by the time this
// loop runs the only communication exchange (accept/decline) has already
// resolved in stepStart.
func nextSideEvent(ctx context.Context, alphaEvents, betaEvents <-chan sideEvent) (sideEvent, bool) {
	select {
	case ev := <-alphaEvents:
		return ev, true
	default:
	}
	select {
	case ev := <-betaEvents:
		return ev, true
	default:
	}
	select {
	case ev := <-alphaEvents:
		return ev, true
	case ev := <-betaEvents:
		return ev, true
	case <-ctx.Done():
		return sideEvent{}, false
	}
}

func (m *Machine) handleSideEvent(ctx context.Context, ev sideEvent) error {
	switch ev.kind {
	case sideDeployed:
		m.log.Debug("htlc deployed", "side", ev.side, "location", ev.location)
		return nil
	case sideFunded:
		return m.advanceFunding(ctx, ev.side, ev.location)
	case sideSettled:
		return m.advanceSettle(ctx, ev.side, ev.outcome)
	default:
		return nil
	}
}

func (m *Machine) stepStart(ctx context.Context) error {
	if m.role == RoleInitiator {
		alphaLock, err := ledger.EncodeLockDuration(m.swap.AlphaLockDuration)
		if err != nil {
			return newError(KindInvalidRequest, m.swap.Id, err)
		}
		proposal := comit.Proposal{
			AlphaLedger:         string(m.swap.AlphaLedger.Symbol()),
			BetaLedger:          string(m.swap.BetaLedger.Symbol()),
			AlphaAsset:          m.swap.AlphaAsset.String(),
			BetaAsset:           m.swap.BetaAsset.String(),
			AlphaRefundIdentity: m.swap.AlphaRefundIdentity.Bytes(),
			AlphaRedeemIdentity: m.swap.AlphaRedeemIdentity.Bytes(),
			AlphaLockDuration:   alphaLock,
			SecretHash:          m.swap.SecretHash.Bytes(),
		}
		accepted, declined, errs := m.comm.Send(ctx, m.swap.Id.String(), proposal)
		// A channel closed without a value is skipped; another one carries the answer.
		for accepted != nil || declined != nil || errs != nil {
			select {
			case resp, ok := <-accepted:
				if !ok {
					accepted = nil
					continue
				}
				if err := m.applyAcceptance(resp); err != nil {
					return err
				}
				return m.persist(ctx)
			case resp, ok := <-declined:
				if !ok {
					declined = nil
					continue
				}
				m.state = State{Kind: StateFinal, Outcome: &Outcome{Kind: OutcomeRejected, RejectedWhy: resp.Reason}}
				return m.persist(ctx)
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				return newError(KindCommunicationError, m.swap.Id, err)
			case <-ctx.Done():
				return newError(KindCommunicationError, m.swap.Id, ctx.Err())
			}
		}
		return newError(KindCommunicationError, m.swap.Id, comit.ErrTimeout)
	}

	select {
	case msg := <-m.control:
		switch {
		case msg.accept != nil:
			if err := m.applyAcceptance(*msg.accept); err != nil {
				return err
			}
			return m.persist(ctx)
		case msg.decline != nil:
			m.state = State{Kind: StateFinal, Outcome: &Outcome{Kind: OutcomeRejected, RejectedWhy: *msg.decline}}
			return m.persist(ctx)
		}
		return nil
	case <-ctx.Done():
		return newError(KindCommunicationError, m.swap.Id, ctx.Err())
	}
}

// applyAcceptance stores the responder-supplied beta identities and lock
// duration — for the initiator they arrive over comm, for the responder
// from its own Accept call — and moves the machine to Accepted.
func (m *Machine) applyAcceptance(resp AcceptedResponse) error {
	betaRedeem, err := m.swap.BetaLedger.DecodeIdentity(resp.BetaRedeemIdentity)
	if err != nil {
		return newError(KindProtocolViolation, m.swap.Id, err)
	}
	betaRefund, err := m.swap.BetaLedger.DecodeIdentity(resp.BetaRefundIdentity)
	if err != nil {
		return newError(KindProtocolViolation, m.swap.Id, err)
	}
	betaLock, err := m.swap.BetaLedger.DecodeLockDuration(resp.BetaLockDuration)
	if err != nil {
		return newError(KindProtocolViolation, m.swap.Id, err)
	}
	m.swap.BetaRedeemIdentity = betaRedeem
	m.swap.BetaRefundIdentity = betaRefund
	m.swap.BetaLockDuration = betaLock
	m.state = State{
		Kind:               StateAccepted,
		BetaRedeemIdentity: betaRedeem,
		BetaRefundIdentity: betaRefund,
		BetaLockDuration:   betaLock,
	}
	return nil
}

// advanceFunding handles a sideFunded event, moving Accepted towards
// AlphaFunded/BetaFunded and either of those towards BothFunded.
func (m *Machine) advanceFunding(ctx context.Context, side Side, location ledger.HtlcLocation) error {
	switch m.state.Kind {
	case StateAccepted:
		if side == SideAlpha {
			m.state.Kind = StateAlphaFunded
			m.state.AlphaLocation = location
		} else {
			m.state.Kind = StateBetaFunded
			m.state.BetaLocation = location
		}
	case StateAlphaFunded:
		if side == SideBeta {
			m.state.Kind = StateBothFunded
			m.state.BetaLocation = location
		}
	case StateBetaFunded:
		if side == SideAlpha {
			m.state.Kind = StateBothFunded
			m.state.AlphaLocation = location
		}
	default:
		return nil
	}
	return m.persist(ctx)
}

// advanceSettle handles a sideSettled event, moving BothFunded towards one
// of the four single-settled states and each of those towards Final.
func (m *Machine) advanceSettle(ctx context.Context, side Side, outcome ledger.Outcome) error {
	if outcome.Redeemed && len(outcome.Secret) > 0 && !secret.VerifyPreimage(outcome.Secret, m.swap.SecretHash) {
		return newError(KindProtocolViolation, m.swap.Id,
			fmt.Errorf("%s redemption preimage does not hash to the committed secret hash", side))
	}
	if s := extractSecret(outcome); s != nil {
		m.state.Secret = s
	}

	switch m.state.Kind {
	case StateAccepted, StateAlphaFunded, StateBetaFunded:
		if !m.sideFunded(side) {
			// The spend watch raced ahead of the funding watch: this side's
			// deposit never reached the expected quantity before it was
			// spent. A refund-branch spend is the normal recovery path for
			// an underfunded HTLC once its lock expires; a redeem of an
			// under-target deposit means the counterparty settled for less
			// than the swap committed to, which the machine cannot follow
			// anywhere sane.
			if outcome.Redeemed {
				return newError(KindInsufficientFunding, m.swap.Id,
					fmt.Errorf("%s htlc redeemed before reaching the expected quantity", side))
			}
			m.log.Warn("underfunded htlc reclaimed through its refund branch",
				"side", side.String(),
				"error", newError(KindInsufficientFunding, m.swap.Id, nil))
		} else if outcome.Redeemed {
			// A funded side redeemed before the opposite side funded. The
			// extracted secret is already stored above; keep watching the
			// other side rather than terminating early.
			return nil
		}
		m.state.Kind = StateFinal
		m.state.Outcome = &Outcome{Kind: OutcomeRefunded}
		return m.persist(ctx)
	case StateBothFunded:
		switch {
		case side == SideAlpha && outcome.Redeemed:
			m.state.Kind = StateAlphaRedeemedBetaFunded
		case side == SideAlpha && !outcome.Redeemed:
			m.state.Kind = StateAlphaRefundedBetaFunded
		case side == SideBeta && outcome.Redeemed:
			m.state.Kind = StateAlphaFundedBetaRedeemed
		default:
			m.state.Kind = StateAlphaFundedBetaRefunded
		}
		return m.persist(ctx)
	case StateAlphaRedeemedBetaFunded, StateAlphaRefundedBetaFunded, StateAlphaFundedBetaRedeemed, StateAlphaFundedBetaRefunded:
		firstRedeemed := m.state.Kind == StateAlphaRedeemedBetaFunded || m.state.Kind == StateAlphaFundedBetaRedeemed
		final := Outcome{}
		switch {
		case firstRedeemed && outcome.Redeemed:
			final.Kind = OutcomeSuccess
		case !firstRedeemed && !outcome.Redeemed:
			final.Kind = OutcomeBothRefunded
		default:
			final.Kind = OutcomeRefunded
			final.Imbalanced = true
		}
		m.state.Kind = StateFinal
		m.state.Outcome = &final
		return m.persist(ctx)
	default:
		return nil
	}
}

func extractSecret(outcome ledger.Outcome) *secret.Secret {
	if !outcome.Redeemed || len(outcome.Secret) != secret.Length {
		return nil
	}
	s, err := secret.FromBytes(outcome.Secret)
	if err != nil {
		return nil
	}
	return &s
}
