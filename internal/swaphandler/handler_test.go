package swaphandler

import (
	"context"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/comit-swap/rfc003/internal/comit"
	"github.com/comit-swap/rfc003/internal/events"
	"github.com/comit-swap/rfc003/internal/ledger"
	"github.com/comit-swap/rfc003/internal/rfc003"
	"github.com/comit-swap/rfc003/internal/secret"
)

// memoryMetadataStore and memoryStateStore are minimal in-memory
// rfc003.MetadataStore/StateStore fakes, enough to exercise dispatch
// without a real database.
type memoryMetadataStore struct {
	mu    sync.Mutex
	saved map[rfc003.SwapId]*rfc003.Swap
	// failNext, if set, makes the next SaveMetadata call fail once.
	failNext bool
}

func newMemoryMetadataStore() *memoryMetadataStore {
	return &memoryMetadataStore{saved: make(map[rfc003.SwapId]*rfc003.Swap)}
}

func (m *memoryMetadataStore) SaveMetadata(ctx context.Context, swap *rfc003.Swap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return errSaveFailed
	}
	m.saved[swap.Id] = swap
	return nil
}

func (m *memoryMetadataStore) LoadMetadata(ctx context.Context, id rfc003.SwapId) (*rfc003.Swap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	swap, ok := m.saved[id]
	if !ok {
		return nil, errNotFound
	}
	return swap, nil
}

// has reports whether metadata for id was saved, safe to poll from the
// test goroutine while a dispatch goroutine writes.
func (m *memoryMetadataStore) has(id rfc003.SwapId) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.saved[id]
	return ok
}

var errSaveFailed = rfc003Err("swaphandler test: save failed")
var errNotFound = rfc003Err("swaphandler test: not found")

type rfc003Err string

func (e rfc003Err) Error() string { return string(e) }

type memoryStateStore struct {
	mu     sync.Mutex
	states map[rfc003.SwapId]rfc003.State
}

func newMemoryStateStore() *memoryStateStore {
	return &memoryStateStore{states: make(map[rfc003.SwapId]rfc003.State)}
}

func (m *memoryStateStore) SaveState(ctx context.Context, id rfc003.SwapId, s rfc003.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[id] = s
	return nil
}

func (m *memoryStateStore) LoadState(ctx context.Context, id rfc003.SwapId) (rfc003.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[id]
	if !ok {
		return rfc003.State{}, errNotFound
	}
	return s, nil
}

// kindOf returns the last persisted state kind for id, StateStart if none.
func (m *memoryStateStore) kindOf(id rfc003.SwapId) rfc003.StateKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[id].Kind
}

// noopStream never resolves any of the three futures, so a dispatched
// machine just sits watching after Start/Accepted — enough to prove
// dispatch wired everything up without needing a full swap to finish.
type noopStream struct{ symbol ledger.Symbol }

func (s noopStream) Symbol() ledger.Symbol { return s.symbol }
func (s noopStream) Deployed(ctx context.Context, params events.HtlcParams) (<-chan ledger.HtlcLocation, <-chan error) {
	return make(chan ledger.HtlcLocation), make(chan error)
}
func (s noopStream) Funded(ctx context.Context, params events.HtlcParams, location ledger.HtlcLocation, expected ledger.Quantity) (<-chan events.FundingTx, <-chan error) {
	return make(chan events.FundingTx), make(chan error)
}
func (s noopStream) RedeemedOrRefunded(ctx context.Context, params events.HtlcParams, location ledger.HtlcLocation) (<-chan ledger.Outcome, <-chan error) {
	return make(chan ledger.Outcome), make(chan error)
}

func noopStreamFactory(l ledger.Ledger) (events.Stream, error) {
	return noopStream{symbol: l.Symbol()}, nil
}

func newTestSwap(t *testing.T) *rfc003.Swap {
	t.Helper()
	s, err := secret.Generate(rand.Reader)
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}
	alpha := ledger.NewBitcoinLedger(&chaincfg.RegressionNetParams)
	beta := ledger.NewEthereumLedger(nil)

	var raw [20]byte
	raw[0] = 1
	refund, _ := alpha.DecodeIdentity(raw[:])
	raw[0] = 2
	redeem, _ := alpha.DecodeIdentity(raw[:])

	return &rfc003.Swap{
		Id:                  rfc003.NewSwapId(),
		AlphaLedger:         alpha,
		BetaLedger:          beta,
		AlphaAsset:          ledger.BitcoinQuantity(1000),
		BetaAsset:           ledger.EthereumQuantity{},
		AlphaRefundIdentity: refund,
		AlphaRedeemIdentity: redeem,
		AlphaLockDuration:   ledger.BitcoinLockDuration(144),
		BetaLockDuration:    ledger.EthereumLockDuration{ExpiryUnix: 4102444800},
		SecretHash:          s.Hash(),
		Role:                rfc003.RoleInitiator,
		Secret:              &s,
	}
}

func TestHandlerSubmitDropsWhenFull(t *testing.T) {
	h := NewHandler(newMemoryMetadataStore(), newMemoryStateStore(), noopStreamFactory, comitChannelStub{}, 1)

	swap := newTestSwap(t)
	if !h.Submit(SwapRequest{Swap: swap, Kind: SwapRequestNew}) {
		t.Fatal("first Submit() should succeed, queue has room")
	}
	if h.Submit(SwapRequest{Swap: swap, Kind: SwapRequestNew}) {
		t.Fatal("second Submit() should be dropped, queue is full")
	}
}

func TestHandlerDispatchSavesMetadataAndStartsMachine(t *testing.T) {
	metadata := newMemoryMetadataStore()
	state := newMemoryStateStore()
	h := NewHandler(metadata, state, noopStreamFactory, comitChannelStub{}, 4)
	h.Start()
	defer h.Stop()

	swap := newTestSwap(t)
	if !h.Submit(SwapRequest{Swap: swap, Kind: SwapRequestNew}) {
		t.Fatal("Submit() should succeed")
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if metadata.has(swap.Id) {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if !metadata.has(swap.Id) {
		t.Fatal("dispatch did not save swap metadata in time")
	}

	deadline = time.Now().Add(time.Second)
	var ok bool
	for time.Now().Before(deadline) {
		if _, ok = h.Machine(swap.Id); ok {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if !ok {
		t.Fatal("dispatch never registered a running machine")
	}

	// comitChannelStub answers Send with an immediate Accept, so the
	// machine must persist Accepted shortly after being spawned.
	deadline = time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if state.kindOf(swap.Id) == rfc003.StateAccepted {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Error("machine never advanced past Start despite a responder on the other end of comitChannelStub")
}

func TestHandlerDispatchDropsOnInvalidSwap(t *testing.T) {
	metadata := newMemoryMetadataStore()
	state := newMemoryStateStore()
	h := NewHandler(metadata, state, noopStreamFactory, comitChannelStub{}, 4)

	swap := newTestSwap(t)
	swap.BetaLedger = swap.AlphaLedger // fails Validate: same symbol on both sides

	h.dispatch(SwapRequest{Swap: swap, Kind: SwapRequestNew})

	if metadata.has(swap.Id) {
		t.Fatal("dispatch should not save metadata for an invalid swap")
	}
	if _, ok := h.Machine(swap.Id); ok {
		t.Fatal("dispatch should not start a machine for an invalid swap")
	}
}

func TestHandlerDispatchDropsOnMetadataSaveFailure(t *testing.T) {
	metadata := newMemoryMetadataStore()
	metadata.failNext = true
	state := newMemoryStateStore()
	h := NewHandler(metadata, state, noopStreamFactory, comitChannelStub{}, 4)

	swap := newTestSwap(t)
	h.dispatch(SwapRequest{Swap: swap, Kind: SwapRequestNew})

	if _, ok := h.Machine(swap.Id); ok {
		t.Fatal("dispatch should not start a machine when metadata save failed")
	}
}

// comitChannelStub answers every Send with an immediate Accept, so a
// dispatched initiator swap always clears stepStart and reaches Accepted.
type comitChannelStub struct{}

func (comitChannelStub) Send(ctx context.Context, swapID string, p comit.Proposal) (<-chan comit.AcceptedResponse, <-chan comit.DeclinedResponse, <-chan error) {
	accepted := make(chan comit.AcceptedResponse, 1)
	declined := make(chan comit.DeclinedResponse, 1)
	errs := make(chan error, 1)
	var raw [20]byte
	raw[0] = 9
	accepted <- comit.AcceptedResponse{BetaRefundIdentity: raw[:], BetaRedeemIdentity: raw[:], BetaLockDuration: 4102444800}
	close(accepted)
	close(declined)
	close(errs)
	return accepted, declined, errs
}

func (comitChannelStub) Proposals() <-chan comit.InboundProposal {
	return make(chan comit.InboundProposal)
}

func (comitChannelStub) Accept(ctx context.Context, swapID string, resp comit.AcceptedResponse) error {
	return nil
}

func (comitChannelStub) Decline(ctx context.Context, swapID string, reason string) error {
	return nil
}

var _ comit.Channel = comitChannelStub{}
