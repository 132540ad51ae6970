// Package cleaning canonicalizes raw comment text before scoring. The
// transformation is pure: the same input always yields the same output, which
// is what makes fingerprint-based caching of scoring results sound.
package cleaning

import (
	"html"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	urlRE      = regexp.MustCompile(`(?i)https?://\S+|www\.\S+`)
	htmlTagRE  = regexp.MustCompile(`<[^>]+>`)
	multiWSRE  = regexp.MustCompile(`\s+`)
	punctFixRE = regexp.MustCompile(`\s+([!?.,;:])`)
)

// StripHTML unescapes HTML entities and replaces tags with spaces.
func StripHTML(text string) string {
	return htmlTagRE.ReplaceAllString(html.UnescapeString(text), " ")
}

// RemoveURLs replaces http(s) and www URLs with spaces.
func RemoveURLs(text string) string {
	return urlRE.ReplaceAllString(text, " ")
}

// NormalizeWhitespace collapses runs of whitespace to single spaces and trims
// the ends.
func NormalizeWhitespace(text string) string {
	return strings.TrimSpace(multiWSRE.ReplaceAllString(text, " "))
}

// BasicClean canonicalizes text for scoring:
//   - remove HTML tags and entities
//   - remove URLs
//   - NFKC-fold unicode compatibility forms
//   - lowercase
//   - collapse whitespace
//   - drop spaces before punctuation
func BasicClean(text string) string {
	t := StripHTML(text)
	t = RemoveURLs(t)
	t = norm.NFKC.String(t)
	t = strings.ToLower(t)
	t = NormalizeWhitespace(t)
	t = punctFixRE.ReplaceAllString(t, "$1")
	return t
}
