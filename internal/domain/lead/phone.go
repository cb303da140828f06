package lead

import "strings"

// CountryCode is prefixed to phones that do not already carry it.
const CountryCode = "55"

// NormalizePhone strips every non-digit from raw and prefixes CountryCode
// when missing. An input without digits yields "".
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if !strings.HasPrefix(digits, CountryCode) {
		digits = CountryCode + digits
	}
	return digits
}
