package types

import "strings"

// NormalizeMobile strips spaces, dashes, dots and brackets from a phone
// number, keeping a leading plus sign.
func NormalizeMobile(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
