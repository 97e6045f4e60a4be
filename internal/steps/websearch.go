package steps

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"grabbit/internal/canonical"
	"grabbit/internal/consensus"
	"grabbit/internal/docpath"
	"grabbit/internal/document"
	"grabbit/internal/match"
	"grabbit/internal/pipeline"
	"grabbit/internal/steperr"
)

var (
	tmdbMoviePattern = regexp.MustCompile(`themoviedb\.org/movie/(\d+)`)
	tmdbTVPattern    = regexp.MustCompile(`themoviedb\.org/tv/(\d+)`)
	tvdbPattern      = regexp.MustCompile(`thetvdb\.com/[^\s"']*?(\d{4,})`)
)

// IdentifyWebSearch runs the configured web-search provider and reconciles
// the noisy results into trusted work fields via consensus. Provider
// failures degrade to a warning; identification continues on whatever was
// already known.
func IdentifyWebSearch(ctx context.Context, doc *document.Document, cfg map[string]any, rt *pipeline.Runtime) (*document.Document, error) {
	mediaType := mediaTypeOf(doc)
	query := selectQuery(doc, cfg, mediaType)
	if query == "" {
		return doc, nil
	}
	doc.Request.Query = query

	raw := rt.RawConfig()
	providerName := stringOption(cfg, "provider", docpath.String(raw, "web_search.provider"))
	if providerName == "" {
		return doc, steperr.New(steperr.KindConfig, "identify_web_search", "no web_search provider configured")
	}
	providerCfg, _ := lookupMap(raw, "web_search.providers."+providerName)
	if providerCfg == nil {
		return doc, steperr.New(steperr.KindConfig, "identify_web_search",
			fmt.Sprintf("web_search provider not configured: %s", providerName))
	}
	if key := docpath.String(providerCfg, "api_key"); key == "" || strings.EqualFold(key, "CHANGE_ME") {
		doc.AddWarning("identify_web_search", fmt.Sprintf("provider %s has no api key; skipping web search", providerName))
		return doc, nil
	}

	reqTmpl, _ := providerCfg["request"].(map[string]any)
	req, err := buildRequest(doc, rt, reqTmpl)
	if err != nil {
		return doc, steperr.New(steperr.KindConfig, "identify_web_search", err.Error())
	}

	bundle := &document.SearchBundle{Query: query}
	doc.EnsureSearch()["web"] = bundle

	payload, err := cachedJSON(ctx, rt, "identify_web_search", "web_search."+providerName, cfg, req, cacheSettingsFrom(cfg, "web_search"))
	if err != nil {
		doc.AddWarning("identify_web_search", fmt.Sprintf("web search failed: %v", err))
		return doc, nil
	}

	responseCfg, _ := providerCfg["response"].(map[string]any)
	results := mapSearchResults(payload, responseCfg, intOption(cfg, "result_limit", 10))
	bundle.Results = results
	bundle.Count = len(results)

	extractExternalIDs(doc, results)

	originalQuery := doc.Request.QueryOriginal
	if originalQuery == "" {
		originalQuery = query
	}
	opts := consensus.Options{
		ResultLimit: intOption(cfg, "result_limit", 5),
		Threshold: match.Threshold{
			MinRatio:        floatOption(cfg, "min_match_ratio", 0.4),
			MinTokenMatches: intOption(cfg, "min_token_matches", 2),
		},
		MinConfirmations: intOption(cfg, "min_confirmations", 2),
		SingleMatchRatio: floatOption(cfg, "single_match_ratio", 0.75),
	}
	fields, meta := consensus.Extract(results, mediaType, originalQuery, opts)
	bundle.Analysis = &meta

	if !meta.Accepted || !boolOption(cfg, "consensus_override", true) {
		return doc, nil
	}

	if fields.Artist != "" {
		doc.Work.Artist = fields.Artist
	}
	if fields.Title != "" {
		doc.Work.Title = fields.Title
	}
	if fields.Author != "" {
		doc.Work.Author = fields.Author
	}
	if fields.Year > 0 {
		doc.Work.Year = fields.Year
	}
	canonical.MergeFromWork(doc, canonical.SourceWebSearch)

	if boolOption(cfg, "update_query", true) {
		if rebuilt := rebuildQuery(doc, mediaType); rebuilt != "" {
			if doc.Request.QueryOriginal == "" {
				doc.Request.QueryOriginal = doc.Request.Query
			}
			doc.Request.Query = rebuilt
		}
	}
	return doc, nil
}

// mapSearchResults shapes a provider payload into search results using the
// provider's declarative response mapping.
func mapSearchResults(payload any, responseCfg map[string]any, limit int) []*document.SearchResult {
	resultsPath := docpath.String(responseCfg, "results_path")
	fallbackKeys := anyStringSlice(responseCfg["fallback_keys"])
	if len(fallbackKeys) == 0 {
		fallbackKeys = []string{"results", "items", "data"}
	}
	items := listAt(payload, resultsPath, fallbackKeys)

	filterField := docpath.String(responseCfg, "filter.field")
	filterEquals, hasFilter := docpath.Lookup(responseCfg, "filter.equals")

	fields, _ := responseCfg["fields"].(map[string]any)
	titleKey := docpath.String(fields, "title")
	urlKey := docpath.String(fields, "url")
	snippetKey := docpath.String(fields, "snippet")
	if titleKey == "" {
		titleKey = "title"
	}
	if urlKey == "" {
		urlKey = "url"
	}
	if snippetKey == "" {
		snippetKey = "snippet"
	}

	var results []*document.SearchResult
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if filterField != "" && hasFilter && !looseEqual(entry[filterField], filterEquals) {
			continue
		}
		result := &document.SearchResult{
			Title:   docpath.String(entry, titleKey),
			URL:     docpath.String(entry, urlKey),
			Snippet: docpath.String(entry, snippetKey),
		}
		if result.Title == "" && result.URL == "" {
			continue
		}
		results = append(results, result)
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results
}

func looseEqual(a, b any) bool {
	if af, ok := docpath.Coerce(a); ok {
		if bf, ok := docpath.Coerce(b); ok {
			return af == bf
		}
	}
	return docpath.Stringify(a) == docpath.Stringify(b)
}

// extractExternalIDs mines metadata-site ids out of result URLs for the
// manager dispatch payloads.
func extractExternalIDs(doc *document.Document, results []*document.SearchResult) {
	for _, result := range results {
		if result == nil || result.URL == "" {
			continue
		}
		if doc.Work.TMDBID == 0 {
			if m := tmdbMoviePattern.FindStringSubmatch(result.URL); m != nil {
				doc.Work.TMDBID = parseID(m[1])
			} else if m := tmdbTVPattern.FindStringSubmatch(result.URL); m != nil {
				doc.Work.TMDBID = parseID(m[1])
			}
		}
		if doc.Work.TVDBID == 0 {
			if m := tvdbPattern.FindStringSubmatch(result.URL); m != nil {
				doc.Work.TVDBID = parseID(m[1])
			}
		}
	}
}

func parseID(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

// rebuildQuery regenerates the search query from the reconciled fields so
// downstream indexer search runs on the trusted form.
func rebuildQuery(doc *document.Document, mediaType string) string {
	work := &doc.Work
	var base string
	switch mediaType {
	case document.MediaMusic:
		if work.Artist != "" && work.Title != "" {
			base = work.Artist + " - " + work.Title
		}
	case document.MediaBook:
		if work.Author != "" && work.Title != "" {
			base = work.Title + " " + work.Author
		}
	default:
		base = work.Title
	}
	if base == "" {
		return ""
	}
	if work.Year > 0 {
		base += fmt.Sprintf(" (%d)", work.Year)
	}
	return base
}

func lookupMap(root any, path string) (map[string]any, bool) {
	value, ok := docpath.Lookup(root, path)
	if !ok {
		return nil, false
	}
	m, ok := value.(map[string]any)
	return m, ok
}
