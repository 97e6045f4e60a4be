package steps

import (
	"context"
	"regexp"
	"strings"

	"grabbit/internal/docpath"
	"grabbit/internal/document"
	"grabbit/internal/pipeline"
)

var episodePattern = regexp.MustCompile(`(?i)\bs\d{1,2}\s*e\d{1,2}\b`)

// DetermineMediaType scores keyword evidence from the query, the fetched
// page, and web-search results against the per-type keyword lists. A type
// wins only when its score clears min_score; otherwise a structural
// fallback inference runs when enabled.
func DetermineMediaType(_ context.Context, doc *document.Document, cfg map[string]any, rt *pipeline.Runtime) (*document.Document, error) {
	if mediaTypeOf(doc) != "" {
		return doc, nil
	}

	keywords, _ := cfg["keywords"].(map[string]any)
	if keywords == nil {
		if detection, ok := docpath.Lookup(rt.RawConfig(), "media_type_detection.keywords"); ok {
			keywords, _ = detection.(map[string]any)
		}
	}

	blob := strings.ToLower(evidenceText(doc, intOption(cfg, "result_limit", 10)))
	scores := make(map[string]int)
	for mediaType, list := range keywords {
		for _, keyword := range anyStringSlice(list) {
			if containsWord(blob, strings.ToLower(keyword)) {
				scores[mediaType]++
			}
		}
	}
	if episodePattern.MatchString(blob) {
		scores[document.MediaTV] += 2
	}

	best, bestScore := "", 0
	for _, mediaType := range []string{document.MediaMusic, document.MediaMovie, document.MediaTV, document.MediaBook} {
		if scores[mediaType] > bestScore {
			best, bestScore = mediaType, scores[mediaType]
		}
	}

	minScore := intOption(cfg, "min_score", 2)
	if bestScore < minScore {
		best = ""
		if boolOption(cfg, "fallback", true) {
			best = inferMediaType(doc.Request.Query)
		}
	}
	if best == "" {
		return doc, nil
	}

	doc.Work.MediaType = best
	if doc.Request.MediaType == "" {
		doc.Request.MediaType = best
	}
	if doc.Decision == nil {
		doc.Decision = &document.Decision{}
	}
	doc.Decision.MediaTypeConfidence = bestScore
	return doc, nil
}

// evidenceText assembles the keyword-scoring corpus.
func evidenceText(doc *document.Document, resultLimit int) string {
	var parts []string
	if doc.Request.Query != "" {
		parts = append(parts, doc.Request.Query)
	}
	if doc.URLMeta != nil {
		parts = append(parts, doc.URLMeta.Title, doc.URLMeta.Description, doc.URLMeta.URL)
	}
	if bundle, ok := doc.Search["web"]; ok {
		results := bundle.Results
		if resultLimit > 0 && resultLimit < len(results) {
			results = results[:resultLimit]
		}
		for _, result := range results {
			if result != nil {
				parts = append(parts, result.Title, result.Snippet)
			}
		}
	}
	return strings.Join(parts, " ")
}

// inferMediaType guesses from query structure when keyword evidence is
// too weak: an episode marker means tv, "X by Y" reads as a book, and
// "Artist - Title" reads as music.
func inferMediaType(query string) string {
	if query == "" {
		return ""
	}
	lowered := strings.ToLower(query)
	switch {
	case episodePattern.MatchString(lowered):
		return document.MediaTV
	case containsWord(lowered, "movie") || containsWord(lowered, "film"):
		return document.MediaMovie
	case containsWord(lowered, "book") || containsWord(lowered, "novel") || containsWord(lowered, "audiobook"):
		return document.MediaBook
	case strings.Contains(lowered, " by "):
		return document.MediaBook
	case strings.Contains(query, " - "):
		return document.MediaMusic
	}
	return ""
}
