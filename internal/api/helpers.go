package api

import "strings"

// splitUserOrg splits a "user@org" path segment into its two parts.
// It rejects anything that isn't exactly one '@' with non-empty
// halves, covering both malformed input and the "ambiguous" case of a
// username or org that itself contains '@'.
func splitUserOrg(s string) (user, org string, ok bool) {
	parts := strings.Split(s, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// registrationOpen interprets the "registrationOpen" org setting: a
// missing setting, "", or "0" means closed; any other value means
// open. This is the string-comparison semantics spec.md mandates,
// not the original implementation's apparent integer comparison
// against a column that's actually stored as text.
func registrationOpen(value string, hasValue bool) bool {
	if !hasValue {
		return false
	}
	return value != "" && value != "0"
}

// sessionKeyFromHeaderOrQuery isn't gin-specific logic on its own, so it
// lives here for handlers that need the same lookup (header first,
// query parameter as a fallback).
func sessionKeyFromHeaderOrQuery(header, query string) string {
	if header != "" {
		return header
	}
	return query
}
