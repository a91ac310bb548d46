package rfc003

import "fmt"

// Kind discriminates the six error kinds a swap's machine can fail with.
type Kind uint8

const (
	// KindInvalidRequest: ledger pair unsupported, asset mismatch. The
	// swap never starts.
	KindInvalidRequest Kind = iota
	// KindPersistenceError: StateStore/MetadataStore write failed.
	KindPersistenceError
	// KindCommunicationError: proposal transport failed or timed out.
	KindCommunicationError
	// KindSubscriptionError: LQS permanently unreachable for a required query.
	KindSubscriptionError
	// KindInsufficientFunding: observed on-chain quantity below expected.
	KindInsufficientFunding
	// KindProtocolViolation: a redemption secret does not hash to the
	// committed secret hash. Fatal.
	KindProtocolViolation
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindPersistenceError:
		return "persistence_error"
	case KindCommunicationError:
		return "communication_error"
	case KindSubscriptionError:
		return "subscription_error"
	case KindInsufficientFunding:
		return "insufficient_funding"
	case KindProtocolViolation:
		return "protocol_violation"
	default:
		return "unknown"
	}
}

// Error is the single type all six failure kinds are carried through: a
// Kind tag, the owning swap, and a wrapped cause, so call sites get the
// same errors.Is/As/Unwrap behavior from one type instead of six separate
// sentinel hierarchies.
type Error struct {
	Kind  Kind
	Swap  SwapId
	cause error
}

func newError(kind Kind, swap SwapId, cause error) *Error {
	return &Error{Kind: kind, Swap: swap, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("rfc003: %s: swap %s: %v", e.Kind, e.Swap, e.cause)
	}
	return fmt.Sprintf("rfc003: %s: swap %s", e.Kind, e.Swap)
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error of the same Kind, so callers can
// write errors.Is(err, rfc003.ErrInvalidRequest) against the sentinels below.
func (e *Error) Is(target error) bool {
	sentinel, ok := target.(*Error)
	if !ok {
		return false
	}
	return sentinel.Kind == e.Kind && sentinel.cause == nil
}

// Sentinels for errors.Is comparisons against a bare kind, independent of
// which swap or cause produced it.
var (
	ErrInvalidRequest      = &Error{Kind: KindInvalidRequest}
	ErrPersistenceError    = &Error{Kind: KindPersistenceError}
	ErrCommunicationError  = &Error{Kind: KindCommunicationError}
	ErrSubscriptionError   = &Error{Kind: KindSubscriptionError}
	ErrInsufficientFunding = &Error{Kind: KindInsufficientFunding}
	ErrProtocolViolation   = &Error{Kind: KindProtocolViolation}
)
