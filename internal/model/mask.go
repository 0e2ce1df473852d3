package model

import "strings"

// MaskEmail renders an email as u***@domain for logging: PII fields are
// never written to logs verbatim. Malformed input (no @) is masked
// wholesale rather than passed through.
func MaskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	local, domain := email[:at], email[at+1:]
	return local[:1] + "***@" + domain
}

// MaskIDLast4 renders an id-last-4 value as **34 for logging.
func MaskIDLast4(last4 string) string {
	if len(last4) != 4 {
		return "****"
	}
	return "**" + last4[2:]
}

// MaskName renders a name as its initial followed by asterisks, e.g. "Tony
// Stark" -> "T*** S****".
func MaskName(name string) string {
	fields := strings.Fields(name)
	for i, f := range fields {
		if len(f) == 0 {
			continue
		}
		fields[i] = f[:1] + strings.Repeat("*", max(len(f)-1, 1))
	}
	return strings.Join(fields, " ")
}
