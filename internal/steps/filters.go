package steps

import (
	"context"
	"strconv"
	"strings"

	"grabbit/internal/document"
	"grabbit/internal/match"
	"grabbit/internal/pipeline"
)

// FilterCategories drops candidates whose indexer categories fall outside
// the configured allow list. Prefixes match whole hundred-blocks, so a
// prefix of 30 admits every 30xx music category.
func FilterCategories(_ context.Context, doc *document.Document, cfg map[string]any, _ *pipeline.Runtime) (*document.Document, error) {
	mediaType := mediaTypeOf(doc)
	allowed := anyInt64Slice(selectMediaMapping(cfg["categories"], mediaType))
	prefixes := anyInt64Slice(selectMediaMapping(cfg["category_prefixes"], mediaType))
	if len(allowed) == 0 && len(prefixes) == 0 {
		return doc, nil
	}
	allowMissing := boolOption(cfg, "allow_missing_categories", false)

	before := len(doc.Work.Candidates)
	var kept []*document.Candidate
	for _, candidate := range doc.Work.Candidates {
		catIDs := categoryIDsOf(candidate)
		if len(catIDs) == 0 {
			if allowMissing {
				kept = append(kept, candidate)
			}
			continue
		}
		if categoryAllowed(catIDs, allowed, prefixes) {
			kept = append(kept, candidate)
		}
	}
	doc.Work.Candidates = kept
	doc.EnsureFilters()["categories"] = &document.FilterReport{
		Removed: before - len(kept),
		Kept:    len(kept),
	}
	return doc, nil
}

func categoryAllowed(catIDs, allowed, prefixes []int64) bool {
	for _, cat := range catIDs {
		for _, a := range allowed {
			if cat == a {
				return true
			}
		}
		for _, prefix := range prefixes {
			if matchCategoryPrefix(cat, prefix, "hundreds") {
				return true
			}
		}
	}
	return false
}

// FilterMatch keeps candidates whose title text actually matches the
// query, under the dual ratio/overlap threshold. An empty survivor set
// either stands (the decision step will report no candidates) or restores
// the original list when keep_original_on_empty is set.
func FilterMatch(_ context.Context, doc *document.Document, cfg map[string]any, _ *pipeline.Runtime) (*document.Document, error) {
	if len(doc.Work.Candidates) == 0 {
		return doc, nil
	}
	query := doc.Request.Query
	if query == "" {
		query = doc.Request.QueryOriginal
	}
	queryTokens := match.Tokenize(query)
	if len(queryTokens) == 0 {
		return doc, nil
	}

	fields := anyStringSlice(selectMediaMapping(cfg["match_fields"], mediaTypeOf(doc)))
	if len(fields) == 0 {
		fields = defaultTitleFields
	}
	threshold := match.Threshold{
		MinRatio:        floatOption(cfg, "min_match_ratio", match.DefaultMinRatio),
		MinTokenMatches: intOption(cfg, "min_token_matches", match.DefaultMinTokenMatches),
	}

	before := len(doc.Work.Candidates)
	var kept []*document.Candidate
	for _, candidate := range doc.Work.Candidates {
		tokens := match.Tokenize(candidateText(candidate, fields))
		if threshold.Passes(tokens, queryTokens) {
			kept = append(kept, candidate)
		}
	}

	if len(kept) == 0 && boolOption(cfg, "keep_original_on_empty", false) {
		doc.AddWarning("filter_match", "no candidates matched the query; keeping unfiltered list")
		doc.EnsureFilters()["match"] = &document.FilterReport{
			Removed: 0,
			Kept:    before,
			Detail:  map[string]any{"restored": true},
		}
		return doc, nil
	}

	doc.Work.Candidates = kept
	doc.EnsureFilters()["match"] = &document.FilterReport{
		Removed: before - len(kept),
		Kept:    len(kept),
	}
	return doc, nil
}

// FilterByVersion narrows candidates to the explicitly requested version:
// edition, media, format, catalog number, label, and year hints must each
// find a match in the candidate's text or tracker remaster fields. When
// nothing satisfies the request the original list stands, with a report,
// so a bad hint cannot empty the run silently.
func FilterByVersion(_ context.Context, doc *document.Document, cfg map[string]any, _ *pipeline.Runtime) (*document.Document, error) {
	prefs := doc.Request.ReleasePrefs
	if prefs.Empty() || len(doc.Work.Candidates) == 0 {
		return doc, nil
	}

	before := len(doc.Work.Candidates)
	var kept []*document.Candidate
	for _, candidate := range doc.Work.Candidates {
		if matchesVersion(candidate, prefs) {
			kept = append(kept, candidate)
		}
	}

	report := &document.FilterReport{Removed: before - len(kept), Kept: len(kept)}
	if len(kept) == 0 {
		doc.AddWarning("filter_by_version", "no candidate matched the requested version; keeping all candidates")
		report.Removed = 0
		report.Kept = before
		report.Detail = map[string]any{"matched": 0, "restored": true}
		doc.EnsureFilters()["version"] = report
		return doc, nil
	}
	doc.Work.Candidates = kept
	doc.EnsureFilters()["version"] = report
	return doc, nil
}

// matchesVersion requires every populated preference group to match.
func matchesVersion(candidate *document.Candidate, prefs *document.ReleasePreferences) bool {
	text := strings.ToLower(versionText(candidate))
	groups := [][]string{prefs.Editions, prefs.Media, prefs.Formats, prefs.Labels, prefs.CatalogNumbers}
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		found := false
		for _, value := range group {
			if strings.Contains(text, strings.ToLower(value)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(prefs.Years) > 0 {
		found := false
		for _, year := range prefs.Years {
			if strings.Contains(text, strconv.Itoa(year)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// versionText gathers the candidate text version hints can appear in,
// including tracker remaster metadata when enrichment ran.
func versionText(candidate *document.Candidate) string {
	parts := []string{candidate.Title, candidate.SortTitle}
	for _, pair := range [][2]string{
		{"remasterTitle", ""},
		{"media", "media"},
		{"format", "format"},
		{"encoding", "encoding"},
		{"remasterCatalogueNumber", "catalogueNumber"},
		{"remasterRecordLabel", "recordLabel"},
		{"remasterYear", "year"},
	} {
		if value := candidate.GroupValue(pair[0], pair[1]); value != "" {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, " ")
}

// BookFormat resolves the requested book format (audiobook or ebook) from
// the query hints and the configured default, and records it as a format
// preference for ranking. "both" leaves ranking format-neutral.
func BookFormat(_ context.Context, doc *document.Document, cfg map[string]any, rt *pipeline.Runtime) (*document.Document, error) {
	if mediaTypeOf(doc) != document.MediaBook {
		return doc, nil
	}

	format := ""
	if prefs := doc.Request.ReleasePrefs; prefs != nil {
		for _, f := range prefs.Formats {
			if f == "audiobook" || f == "ebook" {
				format = f
				break
			}
		}
	}
	if format == "" {
		format = stringOption(cfg, "default_format", "")
	}
	if format == "" {
		if raw := rt.RawConfig(); raw != nil {
			if v, ok := lookupMap(raw, "book"); ok {
				format = stringOption(v, "default_format", "")
			}
		}
	}
	if format == "" || format == "both" {
		return doc, nil
	}

	if doc.Request.Preferences == nil {
		doc.Request.Preferences = map[string]any{}
	}
	doc.Request.Preferences["book_format"] = format
	return doc, nil
}
