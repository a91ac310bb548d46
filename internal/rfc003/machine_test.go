package rfc003

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"

	"github.com/comit-swap/rfc003/internal/comit"
	"github.com/comit-swap/rfc003/internal/events"
	"github.com/comit-swap/rfc003/internal/ledger"
	"github.com/comit-swap/rfc003/internal/secret"
)

// fakeStream is a directly-controlled events.Stream: the test pushes values
// onto its channels instead of routing through internal/lqs, so the machine
// tests exercise Machine.Run's own transition logic rather than the event
// layer's.
type fakeStream struct {
	symbol ledger.Symbol

	deployedLoc chan ledger.HtlcLocation
	deployedErr chan error
	fundedTx    chan events.FundingTx
	fundedErr   chan error
	settleOut   chan ledger.Outcome
	settleErr   chan error
}

func newFakeStream(symbol ledger.Symbol) *fakeStream {
	return &fakeStream{
		symbol:      symbol,
		deployedLoc: make(chan ledger.HtlcLocation, 1),
		deployedErr: make(chan error, 1),
		fundedTx:    make(chan events.FundingTx, 1),
		fundedErr:   make(chan error, 1),
		settleOut:   make(chan ledger.Outcome, 1),
		settleErr:   make(chan error, 1),
	}
}

func (f *fakeStream) Symbol() ledger.Symbol { return f.symbol }

func (f *fakeStream) Deployed(ctx context.Context, params events.HtlcParams) (<-chan ledger.HtlcLocation, <-chan error) {
	return f.deployedLoc, f.deployedErr
}

func (f *fakeStream) Funded(ctx context.Context, params events.HtlcParams, location ledger.HtlcLocation, expected ledger.Quantity) (<-chan events.FundingTx, <-chan error) {
	return f.fundedTx, f.fundedErr
}

func (f *fakeStream) RedeemedOrRefunded(ctx context.Context, params events.HtlcParams, location ledger.HtlcLocation) (<-chan ledger.Outcome, <-chan error) {
	return f.settleOut, f.settleErr
}

var _ events.Stream = (*fakeStream)(nil)

// memoryStateStore records every SaveState call in memory, enough to assert
// on a machine's transition history without a real database. Guarded by a
// mutex since the machine goroutine saves while the test goroutine polls.
type memoryStateStore struct {
	mu     sync.Mutex
	states []State
}

func (m *memoryStateStore) SaveState(ctx context.Context, id SwapId, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, s)
	return nil
}

func (m *memoryStateStore) LoadState(ctx context.Context, id SwapId) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.states) == 0 {
		return State{}, errNoState
	}
	return m.states[len(m.states)-1], nil
}

// lastKind returns the most recently persisted state's Kind, or StateStart
// if nothing has been saved yet.
func (m *memoryStateStore) lastKind() StateKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.states) == 0 {
		return StateStart
	}
	return m.states[len(m.states)-1].Kind
}

var errNoState = &Error{Kind: KindPersistenceError}

func testLedgersForMachine() (ledger.Ledger, ledger.Ledger) {
	return ledger.NewBitcoinLedger(&chaincfg.RegressionNetParams), ledger.NewEthereumLedger(nil)
}

func newHappyPathSwap(t *testing.T, id SwapId) (*Swap, secret.Secret) {
	t.Helper()
	s, err := secret.Generate(rand.Reader)
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}
	alpha, beta := testLedgersForMachine()

	var alphaRefundRaw, alphaRedeemRaw [20]byte
	alphaRefundRaw[0] = 1
	alphaRedeemRaw[0] = 2
	alphaRefund, _ := alpha.DecodeIdentity(alphaRefundRaw[:])
	alphaRedeem, _ := alpha.DecodeIdentity(alphaRedeemRaw[:])

	swap := &Swap{
		Id:                  id,
		AlphaLedger:         alpha,
		BetaLedger:          beta,
		AlphaAsset:          ledger.BitcoinQuantity(100_000),
		BetaAsset:           ledger.EthereumQuantity{},
		AlphaRefundIdentity: alphaRefund,
		AlphaRedeemIdentity: alphaRedeem,
		AlphaLockDuration:   ledger.BitcoinLockDuration(144),
		BetaLockDuration:    ledger.EthereumLockDuration{ExpiryUnix: 4102444800},
		SecretHash:          s.Hash(),
		Role:                RoleInitiator,
		Secret:              &s,
	}
	return swap, s
}

// TestMachineHappyPathInitiator drives Start -> Accepted -> AlphaFunded ->
// BothFunded -> AlphaFundedBetaRedeemed -> Final(Success), the initiator's
// view of a swap where it redeems beta first and then observes alpha
// redeemed (by the responder, using the secret it leaked).
func TestMachineHappyPathInitiator(t *testing.T) {
	id := NewSwapId()
	swap, _ := newHappyPathSwap(t, id)

	alice, bob := comit.NewMemoryChannelPair("alice", "bob")
	alphaStream := newFakeStream(ledger.SymbolBitcoin)
	betaStream := newFakeStream(ledger.SymbolEthereum)
	store := &memoryStateStore{}

	m := NewMachine(swap, RoleInitiator, alphaStream, betaStream, alice, store, Start())

	// Bob accepts as soon as he sees the inbound proposal.
	go func() {
		select {
		case p := <-bob.Proposals():
			var betaRefundRaw, betaRedeemRaw [20]byte
			betaRefundRaw[0] = 3
			betaRedeemRaw[0] = 4
			bob.Accept(context.Background(), p.SwapID, comit.AcceptedResponse{
				BetaRefundIdentity: betaRefundRaw[:],
				BetaRedeemIdentity: betaRedeemRaw[:],
				BetaLockDuration:   4102444800,
			})
		case <-time.After(time.Second):
			t.Error("bob never saw an inbound proposal")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	// alpha funds first.
	alphaLoc := ledger.BitcoinHtlcLocation{TxId: "txid-alpha-fund", Vout: 0}
	waitUntil(t, func() bool { return store.lastKind() == StateAccepted })
	alphaStream.deployedLoc <- alphaLoc
	alphaStream.fundedTx <- events.FundingTx{}

	// beta funds second.
	betaLoc := ledger.EthereumHtlcLocation(common.HexToAddress("0x00000000000000000000000000000000000099"))
	betaStream.deployedLoc <- betaLoc
	betaStream.fundedTx <- events.FundingTx{}

	waitUntil(t, func() bool { return store.lastKind() == StateBothFunded })

	// beta settles (redeemed, by the initiator revealing the secret) then
	// alpha settles (redeemed, by the responder observing that secret).
	betaStream.settleOut <- ledger.Outcome{Redeemed: true}
	waitUntil(t, func() bool { return store.lastKind() == StateAlphaFundedBetaRedeemed })
	alphaStream.settleOut <- ledger.Outcome{Redeemed: true}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for machine to finish")
	}

	final := m.State()
	if final.Kind != StateFinal {
		t.Fatalf("final state kind = %v, want Final", final.Kind)
	}
	if final.Outcome == nil || final.Outcome.Kind != OutcomeSuccess {
		t.Fatalf("outcome = %+v, want Success", final.Outcome)
	}

	actions := Actions(RoleInitiator, final, swap)
	if len(actions) != 0 {
		t.Fatalf("actions on a terminal state = %v, want none", actions)
	}
}

// TestMachineDeclined exercises Start -> Final(Rejected) when the responder
// declines, the simplest terminal path through stepStart.
func TestMachineDeclined(t *testing.T) {
	id := NewSwapId()
	swap, _ := newHappyPathSwap(t, id)

	alice, bob := comit.NewMemoryChannelPair("alice", "bob")
	store := &memoryStateStore{}
	m := NewMachine(swap, RoleInitiator, newFakeStream(ledger.SymbolBitcoin), newFakeStream(ledger.SymbolEthereum), alice, store, Start())

	go func() {
		select {
		case p := <-bob.Proposals():
			bob.Decline(context.Background(), p.SwapID, "no thanks")
		case <-time.After(time.Second):
			t.Error("bob never saw an inbound proposal")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := m.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	final := m.State()
	if final.Kind != StateFinal || final.Outcome == nil || final.Outcome.Kind != OutcomeRejected {
		t.Fatalf("final state = %+v, want Final(Rejected)", final)
	}
	if final.Outcome.RejectedWhy != "no thanks" {
		t.Errorf("RejectedWhy = %q, want %q", final.Outcome.RejectedWhy, "no thanks")
	}
}

// TestMachineRefundBeforeBothFunded exercises Start -> Accepted ->
// AlphaFunded -> Final(Refunded) when alpha is refunded before beta ever
// funds, per the "refund event on either side before the opposite side is
// funded" transition rule.
func TestMachineRefundBeforeBothFunded(t *testing.T) {
	id := NewSwapId()
	swap, _ := newHappyPathSwap(t, id)

	alice, bob := comit.NewMemoryChannelPair("alice", "bob")
	alphaStream := newFakeStream(ledger.SymbolBitcoin)
	betaStream := newFakeStream(ledger.SymbolEthereum)
	store := &memoryStateStore{}

	m := NewMachine(swap, RoleInitiator, alphaStream, betaStream, alice, store, Start())

	go func() {
		select {
		case p := <-bob.Proposals():
			var betaRefundRaw, betaRedeemRaw [20]byte
			betaRefundRaw[0] = 3
			betaRedeemRaw[0] = 4
			bob.Accept(context.Background(), p.SwapID, comit.AcceptedResponse{
				BetaRefundIdentity: betaRefundRaw[:],
				BetaRedeemIdentity: betaRedeemRaw[:],
				BetaLockDuration:   4102444800,
			})
		case <-time.After(time.Second):
			t.Error("bob never saw an inbound proposal")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	alphaLoc := ledger.BitcoinHtlcLocation{TxId: "txid-alpha-fund", Vout: 0}
	waitUntil(t, func() bool { return store.lastKind() == StateAccepted })
	alphaStream.deployedLoc <- alphaLoc
	alphaStream.fundedTx <- events.FundingTx{}

	waitUntil(t, func() bool { return store.lastKind() == StateAlphaFunded })

	// beta never funds; alpha's lock expires and the initiator refunds it.
	alphaStream.settleOut <- ledger.Outcome{Redeemed: false}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for machine to finish")
	}

	final := m.State()
	if final.Kind != StateFinal {
		t.Fatalf("final state kind = %v, want Final", final.Kind)
	}
	if final.Outcome == nil || final.Outcome.Kind != OutcomeRefunded {
		t.Fatalf("outcome = %+v, want Refunded", final.Outcome)
	}
}

// TestMachineRejectsMismatchedRedemptionSecret drives a swap to BothFunded
// and then settles beta with a preimage that does not hash to the committed
// secret hash. The machine must halt in Error rather than treat the spend
// as a valid redemption.
func TestMachineRejectsMismatchedRedemptionSecret(t *testing.T) {
	id := NewSwapId()
	swap, _ := newHappyPathSwap(t, id)

	alice, bob := comit.NewMemoryChannelPair("alice", "bob")
	alphaStream := newFakeStream(ledger.SymbolBitcoin)
	betaStream := newFakeStream(ledger.SymbolEthereum)
	store := &memoryStateStore{}

	m := NewMachine(swap, RoleInitiator, alphaStream, betaStream, alice, store, Start())

	go func() {
		select {
		case p := <-bob.Proposals():
			var betaRefundRaw, betaRedeemRaw [20]byte
			betaRefundRaw[0] = 3
			betaRedeemRaw[0] = 4
			bob.Accept(context.Background(), p.SwapID, comit.AcceptedResponse{
				BetaRefundIdentity: betaRefundRaw[:],
				BetaRedeemIdentity: betaRedeemRaw[:],
				BetaLockDuration:   4102444800,
			})
		case <-time.After(time.Second):
			t.Error("bob never saw an inbound proposal")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	waitUntil(t, func() bool { return store.lastKind() == StateAccepted })
	alphaStream.deployedLoc <- ledger.BitcoinHtlcLocation{TxId: "txid-alpha-fund", Vout: 0}
	alphaStream.fundedTx <- events.FundingTx{}
	betaStream.deployedLoc <- ledger.EthereumHtlcLocation(common.HexToAddress("0x00000000000000000000000000000000000099"))
	betaStream.fundedTx <- events.FundingTx{}

	waitUntil(t, func() bool { return store.lastKind() == StateBothFunded })

	wrong := make([]byte, secret.Length)
	wrong[0] = 0xFF
	betaStream.settleOut <- ledger.Outcome{Redeemed: true, Secret: wrong}

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Run() should fail on a mismatched redemption preimage")
		}
		var swapErr *Error
		if !errors.As(err, &swapErr) || swapErr.Kind != KindProtocolViolation {
			t.Fatalf("Run() error = %v, want protocol violation", err)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for machine to fail")
	}

	final := m.State()
	if final.Kind != StateError {
		t.Fatalf("final state kind = %v, want Error", final.Kind)
	}
	if got := Actions(RoleInitiator, final, swap); len(got) != 0 {
		t.Fatalf("actions in Error state = %v, want none", got)
	}
}

// TestMachineUnderfundedAlphaReclaimedByRefund deploys the alpha HTLC but
// never resolves its funding watch: the deposit stays below the expected
// quantity until the lock expires and the refund branch reclaims it. The
// spend watch must observe that refund even though Funded never fired, and
// the machine must settle in Final(Refunded) instead of hanging in Accepted.
func TestMachineUnderfundedAlphaReclaimedByRefund(t *testing.T) {
	id := NewSwapId()
	swap, _ := newHappyPathSwap(t, id)

	alice, bob := comit.NewMemoryChannelPair("alice", "bob")
	alphaStream := newFakeStream(ledger.SymbolBitcoin)
	betaStream := newFakeStream(ledger.SymbolEthereum)
	store := &memoryStateStore{}

	m := NewMachine(swap, RoleInitiator, alphaStream, betaStream, alice, store, Start())

	go func() {
		select {
		case p := <-bob.Proposals():
			var betaRefundRaw, betaRedeemRaw [20]byte
			betaRefundRaw[0] = 3
			betaRedeemRaw[0] = 4
			bob.Accept(context.Background(), p.SwapID, comit.AcceptedResponse{
				BetaRefundIdentity: betaRefundRaw[:],
				BetaRedeemIdentity: betaRedeemRaw[:],
				BetaLockDuration:   4102444800,
			})
		case <-time.After(time.Second):
			t.Error("bob never saw an inbound proposal")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	waitUntil(t, func() bool { return store.lastKind() == StateAccepted })
	alphaStream.deployedLoc <- ledger.BitcoinHtlcLocation{TxId: "txid-alpha-underfund", Vout: 0}
	// No fundedTx: the deposit never reaches the expected quantity. The
	// refund spend must still be observed.
	alphaStream.settleOut <- ledger.Outcome{Redeemed: false}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-ctx.Done():
		t.Fatal("timed out: machine hung on an underfunded, then refunded, htlc")
	}

	final := m.State()
	if final.Kind != StateFinal {
		t.Fatalf("final state kind = %v, want Final", final.Kind)
	}
	if final.Outcome == nil || final.Outcome.Kind != OutcomeRefunded {
		t.Fatalf("outcome = %+v, want Refunded", final.Outcome)
	}
}

// TestMachineUnderfundedRedeemIsInsufficientFunding settles an
// underfunded, never-funded alpha HTLC through its redeem branch: the
// counterparty took less than the swap committed to. The machine must fail
// with the insufficient-funding kind rather than advance or hang.
func TestMachineUnderfundedRedeemIsInsufficientFunding(t *testing.T) {
	id := NewSwapId()
	swap, sec := newHappyPathSwap(t, id)

	alice, bob := comit.NewMemoryChannelPair("alice", "bob")
	alphaStream := newFakeStream(ledger.SymbolBitcoin)
	betaStream := newFakeStream(ledger.SymbolEthereum)
	store := &memoryStateStore{}

	m := NewMachine(swap, RoleInitiator, alphaStream, betaStream, alice, store, Start())

	go func() {
		select {
		case p := <-bob.Proposals():
			var betaRefundRaw, betaRedeemRaw [20]byte
			betaRefundRaw[0] = 3
			betaRedeemRaw[0] = 4
			bob.Accept(context.Background(), p.SwapID, comit.AcceptedResponse{
				BetaRefundIdentity: betaRefundRaw[:],
				BetaRedeemIdentity: betaRedeemRaw[:],
				BetaLockDuration:   4102444800,
			})
		case <-time.After(time.Second):
			t.Error("bob never saw an inbound proposal")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	waitUntil(t, func() bool { return store.lastKind() == StateAccepted })
	alphaStream.deployedLoc <- ledger.BitcoinHtlcLocation{TxId: "txid-alpha-underfund", Vout: 0}
	// Redeemed with the committed secret, but without funding ever reaching
	// the expected quantity.
	alphaStream.settleOut <- ledger.Outcome{Redeemed: true, Secret: sec.Raw()}

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Run() should fail when an underfunded htlc is redeemed")
		}
		var swapErr *Error
		if !errors.As(err, &swapErr) || swapErr.Kind != KindInsufficientFunding {
			t.Fatalf("Run() error = %v, want insufficient funding", err)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for machine to fail")
	}

	if m.State().Kind != StateError {
		t.Fatalf("final state kind = %v, want Error", m.State().Kind)
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
