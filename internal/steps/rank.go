package steps

import (
	"context"

	"grabbit/internal/docpath"
	"grabbit/internal/document"
	"grabbit/internal/pipeline"
	"grabbit/internal/ranking"
)

// RankReleases scores and orders the candidate list under the media type's
// quality rules. Rejected candidates move to the rejected list with their
// reasons attached; they never come back.
func RankReleases(_ context.Context, doc *document.Document, cfg map[string]any, rt *pipeline.Runtime) (*document.Document, error) {
	if len(doc.Work.Candidates) == 0 {
		return doc, nil
	}
	mediaType := mediaTypeOf(doc)
	raw := rt.RawConfig()

	rulesRaw, _ := cfg["rules"].(map[string]any)
	if rulesRaw == nil {
		rulesRaw, _ = lookupMap(raw, "quality_rules."+mediaType)
	}
	rules := ranking.ParseRuleSet(rulesRaw)
	rules = rules.ApplyFormatPreference(formatPreferences(doc))

	result := ranking.Rank(doc.Work.Candidates, rules, releaseTypeMap(raw))
	doc.Work.Candidates = result.Ranked
	if len(result.Rejected) > 0 {
		doc.Work.RejectedCandidates = append(doc.Work.RejectedCandidates, result.Rejected...)
	}
	return doc, nil
}

// formatPreferences collects explicit format asks: extracted release
// preferences plus the resolved book format.
func formatPreferences(doc *document.Document) []string {
	var formats []string
	if prefs := doc.Request.ReleasePrefs; prefs != nil {
		formats = append(formats, prefs.Formats...)
	}
	if doc.Request.Preferences != nil {
		if v := docpath.String(doc.Request.Preferences, "book_format"); v != "" {
			formats = append(formats, v)
		}
	}
	return formats
}
