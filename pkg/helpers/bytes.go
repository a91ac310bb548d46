// Package helpers carries the small shared conversions the swap daemon's
// packages need: 0x-prefixed hex at-rest encodings, decimal asset-amount
// rendering, and constant-time byte comparison for secret hashes.
package helpers

import "crypto/subtle"

// ConstantTimeCompare reports whether a and b are equal without leaking
// where they first differ. Secret-hash and preimage comparisons go
// through this rather than bytes.Equal.
func ConstantTimeCompare(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
