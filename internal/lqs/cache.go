package lqs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/comit-swap/rfc003/pkg/logging"
)

// ErrQueryFailed resolves every observer of a fingerprint once the remote
// subscription is judged unrecoverable (as opposed to a single transient
// poll failure, which is simply retried on the next tick).
var ErrQueryFailed = fmt.Errorf("lqs: query failed")

// entry is the single in-flight subscription backing one fingerprint. At
// most one exists per fingerprint at a time; repeat Watch calls for the same
// fingerprint attach another observer to this entry instead of creating a
// second remote subscription.
type entry struct {
	id        QueryID
	observers int
	done      chan struct{} // closed exactly once, broadcasting result to every observer
	result    matchResult
	cancel    context.CancelFunc
}

type matchResult struct {
	txID string
	err  error
}

// Cache is the query/first-match de-duplication layer: it fingerprints
// Queries by semantic content, keeps at most one in-flight remote
// subscription per fingerprint, and polls each on its ledger's configured
// interval until the first match or an unrecoverable failure.
type Cache struct {
	client   LedgerQueryClient
	interval PollInterval
	log      *logging.Logger

	mu      sync.Mutex
	entries map[Fingerprint]*entry
}

// NewCache constructs a Cache backed by client, polling Bitcoin and
// Ethereum subscriptions at their independently configured intervals.
func NewCache(client LedgerQueryClient, interval PollInterval) *Cache {
	return &Cache{
		client:   client,
		interval: interval,
		log:      logging.GetDefault().Component("lqs-cache"),
		entries:  make(map[Fingerprint]*entry),
	}
}

// FirstMatch returns a channel that fires exactly once: with the first
// transaction id matching q, or with an error if the subscription could not
// be serviced. Calling FirstMatch twice with fingerprint-equal queries
// reuses the same remote subscription. If ctx ends first, both channels
// are closed without a value.
func (c *Cache) FirstMatch(ctx context.Context, q Query) (<-chan string, <-chan error) {
	fp := q.Fingerprint()
	out := make(chan string, 1)
	errOut := make(chan error, 1)

	c.mu.Lock()
	e, ok := c.entries[fp]
	if !ok {
		subCtx, cancel := context.WithCancel(context.Background())
		e = &entry{done: make(chan struct{}), cancel: cancel, observers: 1}
		c.entries[fp] = e
		c.mu.Unlock()

		id, err := c.client.CreateQuery(ctx, q)
		if err != nil {
			// Resolve through e.done so observers that attached while the
			// create was in flight fail too, not only this caller.
			cancel()
			e.result = matchResult{err: fmt.Errorf("lqs: create query: %w", err)}
			close(e.done)
			c.mu.Lock()
			if c.entries[fp] == e {
				delete(c.entries, fp)
			}
			c.mu.Unlock()
		} else {
			e.id = id
			go c.poll(subCtx, fp, e, q.Ledger)
		}
	} else {
		e.observers++
		c.mu.Unlock()
	}

	go func() {
		select {
		case <-e.done:
			// Only the channel that fires is touched, so a receiver selecting
			// on both never reads a zero value from the other one.
			if e.result.err != nil {
				errOut <- e.result.err
			} else {
				out <- e.result.txID
			}
			c.release(fp, e)
		case <-ctx.Done():
			close(out)
			close(errOut)
			c.release(fp, e)
		}
	}()

	return out, errOut
}

// release drops this observer's interest in e. If the last observer leaves
// before a match or failure arrives, the still-pending remote subscription
// is cancelled early instead of polling for an answer nobody is waiting on.
func (c *Cache) release(fp Fingerprint, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[fp] != e {
		return // already torn down and possibly replaced
	}
	if e.observers > 0 {
		e.observers--
	}
	if e.observers == 0 {
		e.cancel()
	}
}

func (c *Cache) intervalFor(ledger string) time.Duration {
	var d time.Duration
	switch ledger {
	case "BTC":
		d = time.Duration(c.interval.Bitcoin) * time.Second
	case "ETH":
		d = time.Duration(c.interval.Ethereum) * time.Second
	default:
		d = 10 * time.Second
	}
	if d <= 0 {
		return 10 * time.Millisecond
	}
	return d
}

// poll re-polls the remote subscription on ledger's configured interval
// until a match is found or the subscription is torn down. A transient RPC
// failure is logged and retried next tick; an error from the client is
// treated as unrecoverable once three consecutive ticks fail.
func (c *Cache) poll(ctx context.Context, fp Fingerprint, e *entry, ledgerSym string) {
	ticker := time.NewTicker(c.intervalFor(ledgerSym))
	defer ticker.Stop()
	defer c.teardown(fp, e)

	consecutiveFailures := 0
	const maxConsecutiveFailures = 3

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ids, err := c.client.Poll(ctx, e.id)
			if err != nil {
				consecutiveFailures++
				c.log.Debug("poll failed, will retry", "fingerprint", fp, "error", err, "attempt", consecutiveFailures)
				if consecutiveFailures >= maxConsecutiveFailures {
					e.result = matchResult{err: fmt.Errorf("%w: %v", ErrQueryFailed, err)}
					close(e.done)
					return
				}
				continue
			}
			consecutiveFailures = 0
			if len(ids) > 0 {
				e.result = matchResult{txID: ids[0]}
				close(e.done)
				return
			}
		}
	}
}

func (c *Cache) teardown(fp Fingerprint, e *entry) {
	e.cancel()
	c.mu.Lock()
	if c.entries[fp] == e {
		delete(c.entries, fp)
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.client.DeleteQuery(ctx, e.id); err != nil {
		c.log.Debug("teardown delete query failed", "id", e.id, "error", err)
	}
}

// InFlight reports the number of distinct fingerprints with a live remote
// subscription, used by tests and metrics.
func (c *Cache) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
