package ingest

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extractor tags listings from their free-text description using fixed
// keyword heuristics. Descriptions arrive as scraped HTML fragments, so
// markup is stripped before matching.
type Extractor struct {
	bedrooms *regexp.Regexp
	garden   *regexp.Regexp
	garage   *regexp.Regexp
}

func NewExtractor() *Extractor {
	return &Extractor{
		bedrooms: regexp.MustCompile(`(?i)\b(\d+)\s+chambres?\b`),
		garden:   regexp.MustCompile(`(?i)\bjardin\b`),
		garage:   regexp.MustCompile(`(?i)\bgarage\b`),
	}
}

// Extract returns the feature tags found in the description. Tags are
// normalized to lower case; the bedroom tag keeps its count ("3 chambres").
// The result is never nil: a featureless listing must serialize as [] on
// the wire, since the index schema wants an array, not null.
func (e *Extractor) Extract(description string) []string {
	text := stripMarkup(description)

	features := []string{}
	if m := e.bedrooms.FindStringSubmatch(text); m != nil {
		features = append(features, m[1]+" chambres")
	}
	if e.garden.MatchString(text) {
		features = append(features, "jardin")
	}
	if e.garage.MatchString(text) {
		features = append(features, "garage")
	}
	return features
}

func stripMarkup(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return doc.Text()
}
