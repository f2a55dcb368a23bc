// Package textutil holds the string normalisation shared by catalog search, slugs and account lookups.
package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s, strips diacritics and joins alphanumeric runs with dashes.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, s)
	if err != nil {
		plain = s
	}
	plain = strings.ToLower(plain)
	// đ has no decomposition
	plain = strings.ReplaceAll(plain, "đ", "d")
	plain = nonSlug.ReplaceAllString(plain, "-")
	return strings.Trim(plain, "-")
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Tokens splits q on whitespace and keeps at most max tokens.
func Tokens(q string, max int) []string {
	fields := strings.Fields(q)
	if max > 0 && len(fields) > max {
		fields = fields[:max]
	}
	return fields
}

// ContainsFold reports whether sub is in s, ignoring case.
func ContainsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// EscapeRegex quotes regex metacharacters for use in a Mongo $regex.
func EscapeRegex(s string) string {
	return regexp.QuoteMeta(s)
}
