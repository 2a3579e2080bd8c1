package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	unsafeKeyRegex   = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
	punctuationRegex = regexp.MustCompile(`[[:punct:]]+`)
	multiSpaceRegex  = regexp.MustCompile(`\s+`)
)

// Fold transliterates accented characters to their ASCII form
// (Bière -> Biere). Untranslatable input is returned unchanged.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// SafeKey sanitizes a string for use as a document id. Accents are folded
// and everything outside [a-zA-Z0-9_-] is stripped.
//
// Document ids built from catalog and sku ("<catalog>_<sku>") are
// reconstructed independently by every consumer of the index, so the
// sanitation applied here is a cross-cutting contract: chars like ':' or
// '.' would break both the preference-store keys and the frontend id
// scheme.
func SafeKey(s string) string {
	return unsafeKeyRegex.ReplaceAllString(Fold(strings.TrimSpace(s)), "")
}

// SafeText lowercases, folds and strips punctuation, collapsing runs of
// whitespace to a single space. Used for fields that feed facets.
func SafeText(s string) string {
	out := strings.ToLower(Fold(strings.TrimSpace(s)))
	out = punctuationRegex.ReplaceAllString(out, " ")
	return strings.TrimSpace(multiSpaceRegex.ReplaceAllString(out, " "))
}
