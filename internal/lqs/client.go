package lqs

import "context"

// QueryID identifies a subscription previously created on the ledger query
// service, the id carried by the Location header of a
// POST /queries/{ledger}/{type} response.
type QueryID string

// LedgerQueryClient is the remote collaborator the first-match cache drives:
// one subscription create, repeated polls, and a teardown delete.
type LedgerQueryClient interface {
	// CreateQuery issues a new remote subscription for q and returns its id.
	CreateQuery(ctx context.Context, q Query) (QueryID, error)

	// Poll returns the transaction ids currently matched by id, in the
	// order the service reports them.
	Poll(ctx context.Context, id QueryID) ([]string, error)

	// DeleteQuery tears down the remote subscription. Best-effort: callers
	// do not fail the swap if teardown errors.
	DeleteQuery(ctx context.Context, id QueryID) error
}

// PollInterval configures how often FirstMatch re-polls a subscription, set
// independently per ledger.
type PollInterval struct {
	Bitcoin  int64 // seconds
	Ethereum int64 // seconds
}
