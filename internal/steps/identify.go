package steps

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"grabbit/internal/canonical"
	"grabbit/internal/consensus"
	"grabbit/internal/document"
	"grabbit/internal/pipeline"
)

var urlPattern = regexp.MustCompile(`^https?://`)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
	".bmp":  true,
}

// Identify classifies the raw input as a URL, an image path, or free text,
// and seeds the request fields the rest of the pipeline keys off.
func Identify(_ context.Context, doc *document.Document, _ map[string]any, _ *pipeline.Runtime) (*document.Document, error) {
	input := strings.TrimSpace(doc.Request.Input)
	switch {
	case doc.Request.InputType != "":
		// Already classified by the caller.
	case urlPattern.MatchString(input):
		doc.Request.InputType = document.InputURL
		doc.Request.URL = input
	case imageExtensions[strings.ToLower(filepath.Ext(input))]:
		doc.Request.InputType = document.InputImage
		doc.Request.ImagePath = input
	default:
		doc.Request.InputType = document.InputText
	}

	if doc.Request.InputType == document.InputText && doc.Request.Query == "" {
		doc.Request.Query = input
	}
	if doc.Request.QueryOriginal == "" && doc.Request.Query != "" {
		doc.Request.QueryOriginal = doc.Request.Query
	}
	if doc.Request.MediaType != "" && doc.Work.MediaType == "" {
		doc.Work.MediaType = doc.Request.MediaType
	}
	if doc.Request.InputType == document.InputText && doc.Request.Query != "" {
		if year := consensus.ExtractYear(doc.Request.Query); year > 0 {
			canonical.SetField(doc, "year", year, canonical.SourceInput, 0.9)
		}
	}
	return doc, nil
}

var catalogPattern = regexp.MustCompile(`\b[A-Z0-9]{2,}-[A-Z0-9]{2,}\b`)

// ExtractReleasePreferences pulls explicit version hints out of the query:
// edition, media, and format keywords, catalog numbers, and a year. A
// non-empty extraction marks the request as asking for a specific version.
func ExtractReleasePreferences(_ context.Context, doc *document.Document, cfg map[string]any, _ *pipeline.Runtime) (*document.Document, error) {
	query := doc.Request.QueryOriginal
	if query == "" {
		query = doc.Request.Query
	}
	if query == "" {
		return doc, nil
	}
	lowered := strings.ToLower(query)

	prefs := &document.ReleasePreferences{
		Editions: matchKeywordGroups(lowered, cfg["edition_keywords"]),
		Media:    matchKeywordGroups(lowered, cfg["media_keywords"]),
		Formats:  matchKeywordGroups(lowered, cfg["format_keywords"]),
	}
	for _, m := range catalogPattern.FindAllString(query, -1) {
		prefs.CatalogNumbers = append(prefs.CatalogNumbers, m)
	}
	if year := consensus.ExtractYear(query); year > 0 {
		prefs.Years = append(prefs.Years, year)
	}

	if prefs.Empty() {
		return doc, nil
	}
	doc.Request.ReleasePrefs = prefs
	// A year alone is not a version request; anything more specific is.
	doc.Request.ExplicitVersion = len(prefs.Editions) > 0 || len(prefs.Media) > 0 ||
		len(prefs.Formats) > 0 || len(prefs.CatalogNumbers) > 0
	return doc, nil
}

// matchKeywordGroups returns the canonical names whose keyword variants
// appear in the lowercased text.
func matchKeywordGroups(lowered string, raw any) []string {
	groups, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	var matched []string
	for name, variants := range groups {
		for _, variant := range anyStringSlice(variants) {
			if containsWord(lowered, strings.ToLower(variant)) {
				matched = append(matched, name)
				break
			}
		}
	}
	return matched
}

// containsWord checks for a whole-word occurrence so "cd" does not match
// inside "abcd".
func containsWord(text, word string) bool {
	idx := 0
	for {
		pos := strings.Index(text[idx:], word)
		if pos < 0 {
			return false
		}
		pos += idx
		before := pos == 0 || !isWordByte(text[pos-1])
		afterIdx := pos + len(word)
		after := afterIdx >= len(text) || !isWordByte(text[afterIdx])
		if before && after {
			return true
		}
		idx = pos + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
