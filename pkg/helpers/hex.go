package helpers

import (
	"encoding/hex"
	"strings"
)

// BytesToHex renders b as 0x-prefixed lowercase hex, the at-rest encoding
// the stores use for identities, secret hashes, and secrets.
func BytesToHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// HexToBytes decodes hex with or without the 0x prefix, so values written
// by BytesToHex and values pasted from a chain explorer both round-trip.
func HexToBytes(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}
