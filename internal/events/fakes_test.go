package events

import (
	"context"
	"math/big"
	"sync"

	"github.com/comit-swap/rfc003/internal/ledger"
)

// fakeBitcoinInspector lets tests script the output a txID/address pair
// reports, and the classified outcome of a later spend.
type fakeBitcoinInspector struct {
	mu      sync.Mutex
	outputs map[string]fakeOutput
	spends  map[string]ledger.Outcome
}

type fakeOutput struct {
	vout  uint32
	value int64
}

func newFakeBitcoinInspector() *fakeBitcoinInspector {
	return &fakeBitcoinInspector{outputs: make(map[string]fakeOutput), spends: make(map[string]ledger.Outcome)}
}

func (f *fakeBitcoinInspector) setOutput(txID, address string, vout uint32, value int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputs[txID+"|"+address] = fakeOutput{vout: vout, value: value}
}

func (f *fakeBitcoinInspector) setSpend(txID, outpoint string, outcome ledger.Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spends[txID+"|"+outpoint] = outcome
}

func (f *fakeBitcoinInspector) FindOutput(_ context.Context, txID, address string) (uint32, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.outputs[txID+"|"+address]
	return out.vout, out.value, nil
}

func (f *fakeBitcoinInspector) ClassifySpend(_ context.Context, txID, outpoint string) (ledger.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.spends[txID+"|"+outpoint], nil
}

// fakeEthereumInspector lets tests script a contract's current balance and
// the classified outcome of its spend.
type fakeEthereumInspector struct {
	mu      sync.Mutex
	balance map[string]int64
	spends  map[string]ledger.Outcome
}

func newFakeEthereumInspector() *fakeEthereumInspector {
	return &fakeEthereumInspector{balance: make(map[string]int64), spends: make(map[string]ledger.Outcome)}
}

func (f *fakeEthereumInspector) setBalance(contract string, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balance[contract] = amount
}

func (f *fakeEthereumInspector) setSpend(txID, contract string, outcome ledger.Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spends[txID+"|"+contract] = outcome
}

func (f *fakeEthereumInspector) ContractBalance(_ context.Context, contract string) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return big.NewInt(f.balance[contract]), nil
}

func (f *fakeEthereumInspector) ClassifySpend(_ context.Context, txID, contract string) (ledger.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.spends[txID+"|"+contract], nil
}
