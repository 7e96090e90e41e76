package common

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// CreditsDecimals is the number of decimals of one credit (microcredits)
const CreditsDecimals = 6

// MicrocreditsToCredits converts microcredits to a credits string without float precision loss
func MicrocreditsToCredits(micro uint64) string {
	return formatWithDecimals(micro, CreditsDecimals)
}

// CreditsToMicrocredits converts a credits string to microcredits without float precision loss
func CreditsToMicrocredits(credits string) (uint64, error) {
	return parseWithDecimals(credits, CreditsDecimals)
}

// ParseMicrocredits accepts either a plain microcredits integer ("1000000"),
// an integer with the u64 literal suffix ("1000000u64"), or a credits decimal ("1.5").
func ParseMicrocredits(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ".") {
		return CreditsToMicrocredits(s)
	}
	n, err := strconv.ParseUint(strings.TrimSuffix(s, "u64"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid microcredits %q: %w", s, err)
	}
	return n, nil
}

// formatWithDecimals converts integer to decimal string by inserting decimal point
// Example: formatWithDecimals(24981836, 6) = "24.981836"
func formatWithDecimals(value uint64, decimals int) string {
	s := strconv.FormatUint(value, 10)

	// Pad with leading zeros if needed
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}

	pos := len(s) - decimals
	return s[:pos] + "." + s[pos:]
}

// parseWithDecimals converts decimal string to integer by removing decimal point
// Example: parseWithDecimals("24.981836", 6) = 24981836
func parseWithDecimals(s string, decimals int) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty string")
	}

	parts := strings.Split(s, ".")

	if len(parts) == 1 {
		// No decimal point - multiply by 10^decimals
		n, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			return 0, err
		}
		for i := 0; i < decimals; i++ {
			hi, lo := bits.Mul64(n, 10)
			if hi != 0 {
				return 0, fmt.Errorf("amount %s overflows", s)
			}
			n = lo
		}
		return n, nil
	}

	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid decimal format")
	}

	whole := parts[0]
	frac := parts[1]
	if whole == "" {
		whole = "0"
	}

	// Fractions finer than one microcredit are rejected rather than truncated
	if len(frac) > decimals {
		if strings.Trim(frac[decimals:], "0") != "" {
			return 0, fmt.Errorf("amount %s has more than %d decimals", s, decimals)
		}
		frac = frac[:decimals]
	}
	frac += strings.Repeat("0", decimals-len(frac))

	return strconv.ParseUint(whole+frac, 10, 64)
}

// CompareCredits compares two credits decimal string amounts without float precision loss.
// Returns: -1 if a < b, 0 if a == b, 1 if a > b, and error if parsing fails
func CompareCredits(a, b string) (int, error) {
	aVal, err := parseWithDecimals(a, CreditsDecimals)
	if err != nil {
		return 0, fmt.Errorf("failed to parse amount '%s': %w", a, err)
	}

	bVal, err := parseWithDecimals(b, CreditsDecimals)
	if err != nil {
		return 0, fmt.Errorf("failed to parse amount '%s': %w", b, err)
	}

	if aVal < bVal {
		return -1, nil
	}
	if aVal > bVal {
		return 1, nil
	}
	return 0, nil
}
