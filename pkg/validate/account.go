package validate

import (
	"strings"

	"github.com/ShiraazMoollatjie/goluhn"
)

const (
	minAccountDigits = 12
	maxAccountDigits = 19
)

// NormalizeAccount strips the spaces and dashes people type into card and
// account numbers.
func NormalizeAccount(s string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(s))
}

// IsLuhn reports whether s passes the Luhn checksum.
func IsLuhn(s string) bool {
	return goluhn.Validate(s) == nil
}

// IsPayoutAccount accepts 12 to 19 digit numbers with a valid Luhn check digit.
func IsPayoutAccount(s string) bool {
	s = NormalizeAccount(s)
	if len(s) < minAccountDigits || len(s) > maxAccountDigits {
		return false
	}
	return IsLuhn(s)
}
