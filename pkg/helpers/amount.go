package helpers

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatAmount renders a smallest-unit amount as a decimal string using
// the asset's decimals: FormatAmount(150000000, 8) -> "1.5".
func FormatAmount(amount uint64, decimals uint8) string {
	s := strconv.FormatUint(amount, 10)
	if decimals == 0 {
		return s
	}
	if len(s) <= int(decimals) {
		s = strings.Repeat("0", int(decimals)-len(s)+1) + s
	}
	cut := len(s) - int(decimals)
	whole, frac := s[:cut], strings.TrimRight(s[cut:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// ParseAmount parses a decimal amount string into smallest units:
// ParseAmount("1.5", 8) -> 150000000. Digits beyond the asset's decimals
// are rejected rather than silently truncated; an amount string names an
// exact on-chain quantity or it is an error.
func ParseAmount(s string, decimals uint8) (uint64, error) {
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("helpers: empty amount")
	}
	if hasFrac && frac == "" {
		return 0, fmt.Errorf("helpers: amount %q ends at the decimal point", s)
	}
	if len(frac) > int(decimals) {
		return 0, fmt.Errorf("helpers: amount %q has more than %d fractional digits", s, decimals)
	}

	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("helpers: invalid character %q in amount %q", c, s)
		}
	}

	v, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("helpers: amount %q overflows the smallest-unit range", s)
	}
	return v, nil
}
