// Package secret implements the 32-byte HTLC preimage and its SHA-256 commitment.
package secret

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/comit-swap/rfc003/pkg/helpers"
)

// Length is the fixed size of a Secret in bytes.
const Length = 32

// Secret is an opaque 32-byte preimage. It memoises its SHA-256 hash on
// first call and is otherwise immutable.
type Secret struct {
	raw [Length]byte

	hashOnce sync.Once
	hash     Hash
}

// Hash is the SHA-256 commitment of a Secret, displayed as lowercase hex.
type Hash [sha256.Size]byte

// Generate draws Length bytes from rng. Short reads are an error; the core
// never pads a short preimage.
func Generate(rng io.Reader) (Secret, error) {
	var raw [Length]byte
	n, err := io.ReadFull(rng, raw[:])
	if err != nil {
		return Secret{}, fmt.Errorf("secret: generate: %w", err)
	}
	if n != Length {
		return Secret{}, fmt.Errorf("secret: generate: short read, got %d of %d bytes", n, Length)
	}
	return FromBytes(raw[:])
}

// FromBytes wraps an existing 32-byte preimage, e.g. one recovered from a
// witness or calldata. It does not validate provenance, only length.
func FromBytes(b []byte) (Secret, error) {
	if len(b) != Length {
		return Secret{}, fmt.Errorf("secret: want %d bytes, got %d", Length, len(b))
	}
	var s Secret
	copy(s.raw[:], b)
	return s, nil
}

// Raw returns the underlying preimage bytes. The returned slice is a copy;
// mutating it does not affect the Secret.
func (s *Secret) Raw() []byte {
	out := make([]byte, Length)
	copy(out, s.raw[:])
	return out
}

// Hash returns the SHA-256 commitment, computing and caching it on first call.
func (s *Secret) Hash() Hash {
	s.hashOnce.Do(func() {
		s.hash = Hash(sha256.Sum256(s.raw[:]))
	})
	return s.hash
}

// Matches reports whether this secret is the preimage of h, independent of
// whether Hash() has been called before.
func (s *Secret) Matches(h Hash) bool {
	sh := s.Hash()
	return helpers.ConstantTimeCompare(sh[:], h[:])
}

// String returns lowercase hex of the raw preimage.
func (s *Secret) String() string {
	return hex.EncodeToString(s.raw[:])
}

// String returns lowercase hex, no prefix.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a copy of the hash bytes.
func (h Hash) Bytes() []byte {
	out := make([]byte, len(h))
	copy(out, h[:])
	return out
}

// HashFromBytes parses a 32-byte secret hash.
func HashFromBytes(b []byte) (Hash, error) {
	if len(b) != sha256.Size {
		return Hash{}, fmt.Errorf("secret: hash must be %d bytes, got %d", sha256.Size, len(b))
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

// VerifyPreimage reports whether sha256(preimage) == expected, without
// requiring preimage to be exactly Length bytes — the Ethereum HTLC accepts
// any-length preimages whose hash matches.
func VerifyPreimage(preimage []byte, expected Hash) bool {
	actual := sha256.Sum256(preimage)
	return helpers.ConstantTimeCompare(actual[:], expected[:])
}
