// Package normalize canonicalises user input before it is validated,
// stored or compared.
package normalize

import "strings"

// Username returns the stored form of a username. Usernames are compared
// case-sensitively, so normalisation only trims surrounding whitespace.
func Username(u string) string {
	return strings.TrimSpace(u)
}

// Text trims surrounding whitespace from free-form listing text
// (names, descriptions, thank-you messages).
func Text(s string) string {
	return strings.TrimSpace(s)
}
