// Package swaphandler implements the swap dispatcher: it receives swap
// requests over a bounded queue, writes each one's metadata, derives its
// initial state, wires up the three event sources a running swap needs,
// and spawns the state machine as its own task.
package swaphandler

import (
	"context"
	"fmt"
	"sync"

	"github.com/comit-swap/rfc003/internal/comit"
	"github.com/comit-swap/rfc003/internal/events"
	"github.com/comit-swap/rfc003/internal/ledger"
	"github.com/comit-swap/rfc003/internal/rfc003"
	"github.com/comit-swap/rfc003/internal/secret"
	"github.com/comit-swap/rfc003/pkg/logging"
)

// SwapRequestKind tags why a swap is entering the handler.
type SwapRequestKind uint8

const (
	// SwapRequestNew starts a swap from Start.
	SwapRequestNew SwapRequestKind = iota
	// SwapRequestResume re-hydrates a swap from its last persisted State.
	SwapRequestResume
)

// SwapRequest is one item on the dispatcher's queue: a fully-populated
// Swap record (the handler writes it to MetadataStore verbatim) and what
// to do with it.
type SwapRequest struct {
	Swap *rfc003.Swap
	Kind SwapRequestKind
}

// StreamFactory builds the event Stream for one side of a swap from its
// abstract ledger.Ledger, so the handler never imports a concrete ledger
// family directly — callers wire internal/events' BitcoinStream and
// EthereumStream constructors (or test fakes) behind this.
type StreamFactory func(l ledger.Ledger) (events.Stream, error)

// Handler is the dispatcher: one bounded queue, one goroutine pool of
// running machines, shared metadata/state stores and a single comit.Channel
// reused across every swap the local node participates in.
type Handler struct {
	log      *logging.Logger
	metadata rfc003.MetadataStore
	state    rfc003.StateStore
	streams  StreamFactory
	comm     comit.Channel

	queue chan SwapRequest

	mu       sync.Mutex
	machines map[rfc003.SwapId]*rfc003.Machine

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHandler constructs a Handler with a queue of the given capacity.
// queueSize bounds the dispatcher, not any individual swap's lifetime.
func NewHandler(metadata rfc003.MetadataStore, state rfc003.StateStore, streams StreamFactory, comm comit.Channel, queueSize int) *Handler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		log:      logging.GetDefault().Component("swaphandler"),
		metadata: metadata,
		state:    state,
		streams:  streams,
		comm:     comm,
		queue:    make(chan SwapRequest, queueSize),
		machines: make(map[rfc003.SwapId]*rfc003.Machine),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the dispatch loop and the inbound-proposal watcher.
func (h *Handler) Start() {
	go h.run()
	go h.watchProposals()
}

// Stop cancels every running machine and the dispatch loop.
func (h *Handler) Stop() {
	h.cancel()
}

// Submit enqueues req without blocking. It returns false if the queue is
// full, in which case the caller dropped the request — the queue must
// never stall its producer.
func (h *Handler) Submit(req SwapRequest) bool {
	select {
	case h.queue <- req:
		return true
	default:
		h.log.Warn("swap queue full, dropping request", "swap_id", req.Swap.Id.String())
		return false
	}
}

// Machine returns the running machine for id, if any.
func (h *Handler) Machine(id rfc003.SwapId) (*rfc003.Machine, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.machines[id]
	return m, ok
}

func (h *Handler) run() {
	for {
		select {
		case req := <-h.queue:
			go h.dispatch(req)
		case <-h.ctx.Done():
			return
		}
	}
}

// dispatch writes metadata, derives the initial state, builds the event
// sources, and spawns the machine. Any failure here drops the request; the
// dispatch loop itself never blocks on it.
func (h *Handler) dispatch(req SwapRequest) {
	swap := req.Swap
	if err := swap.Validate(); err != nil {
		h.log.Warn("invalid swap request, dropping", "swap_id", swap.Id.String(), "error", err)
		return
	}

	if err := h.metadata.SaveMetadata(h.ctx, swap); err != nil {
		h.log.Warn("save metadata failed, dropping request", "swap_id", swap.Id.String(), "error", err)
		return
	}

	initial := rfc003.Start()
	if req.Kind == SwapRequestResume {
		loaded, err := h.state.LoadState(h.ctx, swap.Id)
		if err != nil {
			h.log.Warn("load state failed, dropping resume request", "swap_id", swap.Id.String(), "error", err)
			return
		}
		initial = loaded
	}

	alpha, err := h.streams(swap.AlphaLedger)
	if err != nil {
		h.log.Warn("no event stream for alpha ledger, dropping request", "swap_id", swap.Id.String(), "error", err)
		return
	}
	beta, err := h.streams(swap.BetaLedger)
	if err != nil {
		h.log.Warn("no event stream for beta ledger, dropping request", "swap_id", swap.Id.String(), "error", err)
		return
	}

	m := rfc003.NewMachine(swap, swap.Role, alpha, beta, h.comm, h.state, initial)

	h.mu.Lock()
	h.machines[swap.Id] = m
	h.mu.Unlock()

	h.log.Info("swap dispatched", "swap_id", swap.Id.String(), "role", swap.Role.String(), "kind", req.Kind)

	if err := m.Run(h.ctx); err != nil {
		h.log.Warn("swap machine stopped", "swap_id", swap.Id.String(), "error", err)
	}

	h.mu.Lock()
	delete(h.machines, swap.Id)
	h.mu.Unlock()
}

// watchProposals turns every inbound proposal into a responder-role
// SwapRequest, resolving the alpha/beta ledgers from their symbols via the
// package-level ledger registry.
func (h *Handler) watchProposals() {
	for {
		select {
		case p, ok := <-h.comm.Proposals():
			if !ok {
				return
			}
			h.handleInboundProposal(p)
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Handler) handleInboundProposal(p comit.InboundProposal) {
	id, err := rfc003.ParseSwapId(p.SwapID)
	if err != nil {
		h.log.Warn("inbound proposal has invalid swap id, dropping", "swap_id", p.SwapID, "error", err)
		return
	}

	alphaLedger, err := ledger.Get(ledger.Symbol(p.Proposal.AlphaLedger))
	if err != nil {
		h.log.Warn("inbound proposal names unsupported alpha ledger, dropping", "swap_id", p.SwapID, "error", err)
		return
	}
	betaLedger, err := ledger.Get(ledger.Symbol(p.Proposal.BetaLedger))
	if err != nil {
		h.log.Warn("inbound proposal names unsupported beta ledger, dropping", "swap_id", p.SwapID, "error", err)
		return
	}

	alphaRefund, err := alphaLedger.DecodeIdentity(p.Proposal.AlphaRefundIdentity)
	if err != nil {
		h.log.Warn("inbound proposal has invalid alpha refund identity, dropping", "swap_id", p.SwapID, "error", err)
		return
	}
	alphaRedeem, err := alphaLedger.DecodeIdentity(p.Proposal.AlphaRedeemIdentity)
	if err != nil {
		h.log.Warn("inbound proposal has invalid alpha redeem identity, dropping", "swap_id", p.SwapID, "error", err)
		return
	}
	alphaLock, err := alphaLedger.DecodeLockDuration(p.Proposal.AlphaLockDuration)
	if err != nil {
		h.log.Warn("inbound proposal has invalid alpha lock duration, dropping", "swap_id", p.SwapID, "error", err)
		return
	}
	hash, err := secret.HashFromBytes(p.Proposal.SecretHash)
	if err != nil {
		h.log.Warn("inbound proposal has invalid secret hash, dropping", "swap_id", p.SwapID, "error", err)
		return
	}

	// AlphaAsset/BetaAsset are not yet decodable from the wire Proposal:
	// comit.Proposal carries them as opaque display strings, and ledger.Quantity
	// has no symbol-independent parse path. Left zero-valued here; a real
	// deployment needs a per-ledger asset codec alongside DecodeIdentity.
	swap := &rfc003.Swap{
		Id:                  id,
		AlphaLedger:         alphaLedger,
		BetaLedger:          betaLedger,
		AlphaRefundIdentity: alphaRefund,
		AlphaRedeemIdentity: alphaRedeem,
		AlphaLockDuration:   alphaLock,
		SecretHash:          hash,
		Role:                rfc003.RoleResponder,
	}

	if !h.Submit(SwapRequest{Swap: swap, Kind: SwapRequestNew}) {
		return
	}
	h.log.Debug(fmt.Sprintf("queued responder swap %s", swap.Id.String()))
}
