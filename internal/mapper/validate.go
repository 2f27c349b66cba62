package mapper

import "strings"

// NormalizeIMEI strips everything but digits from a candidate IMEI.
// Source files routinely carry dashes, spaces, or a trailing ".0" from
// spreadsheet number formatting.
func NormalizeIMEI(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidIMEI reports whether the normalized value has a plausible IMEI
// length. 15 digits is standard; 14 (no check digit) and 16 (IMEISV)
// appear in real carrier exports and are accepted.
func ValidIMEI(raw string) bool {
	n := len(NormalizeIMEI(raw))
	return n >= 14 && n <= 16
}

// CheckIdentifierSamples inspects sample values from the column mapped
// to the identifier and reports how many look like valid IMEIs. Used to
// warn before an import when the chosen column is probably wrong.
func CheckIdentifierSamples(samples []string) (valid, invalid int) {
	for _, s := range samples {
		if strings.TrimSpace(s) == "" {
			continue
		}
		if ValidIMEI(s) {
			valid++
		} else {
			invalid++
		}
	}
	return valid, invalid
}
