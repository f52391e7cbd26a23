package utils

import (
	"regexp"
	"strings"
)

const CountryCallingCode = "256"

var (
	localPhonePattern         = regexp.MustCompile(`^07\d{8}$`)
	internationalPhonePattern = regexp.MustCompile(`^\+` + CountryCallingCode + `7\d{8}$`)
	bareCountryCodePattern    = regexp.MustCompile(`^` + CountryCallingCode + `7\d{8}$`)
)

// NormalizePhones maps a free-form, possibly comma-separated phone string to a
// deduplicated, canonically formatted list.
//
// Local numbers prefixed 07 are rewritten to international form. Tokens
// already canonical pass through. Bare country-code tokens gain a plus.
// Unrecognized tokens pass through as-is: the gateway is the actual
// validator, so malformed numbers are forwarded rather than dropped.
//
// Pure and idempotent; normalizing an already-normalized string is a no-op.
func NormalizePhones(raw string) string {
	tokens := strings.Split(raw, ",")
	seen := make(map[string]struct{}, len(tokens))
	normalized := make([]string, 0, len(tokens))

	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		candidate := normalizeToken(token)
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		normalized = append(normalized, candidate)
	}

	return strings.Join(normalized, ",")
}

func normalizeToken(token string) string {
	switch {
	case localPhonePattern.MatchString(token):
		return "+" + CountryCallingCode + token[1:]
	case internationalPhonePattern.MatchString(token):
		return token
	case bareCountryCodePattern.MatchString(token):
		return "+" + token
	}
	return token
}

var loosePhonePattern = regexp.MustCompile(`^(\+?\d{9,15}|07\d{8})$`)

// IsPlausiblePhone applies the loose international-or-local check used by
// release-form validation. Deliberately weaker than full normalization.
func IsPlausiblePhone(token string) bool {
	return loosePhonePattern.MatchString(strings.TrimSpace(token))
}
