// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "US"

// unknownSentinel is the placeholder the voice provider sends when the
// customer number could not be determined.
const unknownSentinel = "unknown"

// NormalizeE164 formats a phone number to E.164. Possible-but-unassigned
// numbers are still canonicalized so CRM lookups and conversion hashes always
// see the same form; only unparseable or impossible input passes through
// trimmed.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) && !phonenumbers.IsPossibleNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// IsKnown reports whether the input looks like an actual phone number rather
// than an empty value or the provider's "Unknown" placeholder.
func IsKnown(input string) bool {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return false
	}
	return !strings.EqualFold(trimmed, unknownSentinel)
}
