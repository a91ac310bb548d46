package lqs

import (
	"context"
	"fmt"
	"sync"
)

// FakeLedgerQueryClient is an in-memory LedgerQueryClient for tests: it
// counts how many distinct queries were created so tests can assert the
// cache actually de-duplicated, and lets the test push match results onto a
// query at will.
type FakeLedgerQueryClient struct {
	mu      sync.Mutex
	nextID  int
	queries map[QueryID]Query
	matches map[QueryID][]string
	fails   map[QueryID]error

	CreateCalls int
}

// NewFakeLedgerQueryClient constructs an empty fake.
func NewFakeLedgerQueryClient() *FakeLedgerQueryClient {
	return &FakeLedgerQueryClient{
		queries: make(map[QueryID]Query),
		matches: make(map[QueryID][]string),
		fails:   make(map[QueryID]error),
	}
}

func (f *FakeLedgerQueryClient) CreateQuery(_ context.Context, q Query) (QueryID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateCalls++
	f.nextID++
	id := QueryID(fmt.Sprintf("q%d", f.nextID))
	f.queries[id] = q
	return id, nil
}

func (f *FakeLedgerQueryClient) Poll(_ context.Context, id QueryID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.fails[id]; ok {
		return nil, err
	}
	return f.matches[id], nil
}

func (f *FakeLedgerQueryClient) DeleteQuery(_ context.Context, id QueryID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.queries, id)
	delete(f.matches, id)
	delete(f.fails, id)
	return nil
}

// PushMatch makes the next Poll of id return txID as its sole match.
func (f *FakeLedgerQueryClient) PushMatch(id QueryID, txID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matches[id] = []string{txID}
}

// FailNext makes every subsequent Poll of id return err until cleared.
func (f *FakeLedgerQueryClient) FailNext(id QueryID, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails[id] = err
}

// IDFor returns the QueryID assigned to the single created query matching
// fp, for tests that need to drive PushMatch/FailNext without threading the
// id back out of Cache.
func (f *FakeLedgerQueryClient) IDFor(fp Fingerprint) (QueryID, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, q := range f.queries {
		if q.Fingerprint() == fp {
			return id, true
		}
	}
	return "", false
}
