package ledger

import (
	"fmt"
	"math/big"
	"strings"
)

const nanoPerToken = 1_000_000_000

// ParseTokenAmount converts a decimal token string (e.g. "5.5") to
// nanotokens. 1 token = 1e9 nanotokens; extra fractional digits are truncated.
func ParseTokenAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty token amount")
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, fmt.Errorf("invalid token amount: %s", s)
	}

	whole := parts[0]
	frac := ""
	if len(parts) == 2 {
		frac = parts[1]
	}

	if len(frac) > 9 {
		frac = frac[:9]
	}
	for len(frac) < 9 {
		frac += "0"
	}

	nano, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return 0, fmt.Errorf("invalid token amount: %s", s)
	}
	if !nano.IsInt64() {
		return 0, fmt.Errorf("token amount out of range: %s", s)
	}
	return nano.Int64(), nil
}

// FormatTokenAmount renders nanotokens as a decimal string with trailing
// zeros trimmed.
func FormatTokenAmount(nano int64) string {
	whole := nano / nanoPerToken
	frac := nano % nanoPerToken
	if frac < 0 {
		frac = -frac
	}
	if frac == 0 {
		return fmt.Sprintf("%d", whole)
	}
	s := strings.TrimRight(fmt.Sprintf("%09d", frac), "0")
	return fmt.Sprintf("%d.%s", whole, s)
}
