package steps

import (
	"context"
	"fmt"
	"strings"

	"grabbit/internal/docpath"
	"grabbit/internal/document"
	"grabbit/internal/pipeline"
	"grabbit/internal/steperr"
	"grabbit/internal/transport"
)

// IndexerSearch queries the indexer aggregator for release candidates.
// The request shape is declarative configuration; per-media-type indexer
// ids and categories are injected into it. Indexer unavailability degrades
// to an empty candidate list with a warning.
func IndexerSearch(ctx context.Context, doc *document.Document, cfg map[string]any, rt *pipeline.Runtime) (*document.Document, error) {
	mediaType := mediaTypeOf(doc)
	query := selectQuery(doc, cfg, mediaType)
	if query == "" {
		return doc, steperr.New(steperr.KindGeneric, "indexer_search", "no search query available")
	}
	if boolOption(cfg, "normalize_query", true) {
		query = normalizeSearchQuery(query)
	}
	doc.Request.Query = query

	raw := rt.RawConfig()
	apiKey := docpath.String(raw, "indexer.api_key")
	if apiKey == "" || strings.EqualFold(apiKey, "CHANGE_ME") {
		return doc, steperr.New(steperr.KindAuthMissing, "indexer_search", "indexer api key not configured")
	}

	reqTmpl, _ := lookupMap(raw, "indexer.search.request")
	req, err := buildRequest(doc, rt, reqTmpl)
	if err != nil {
		return doc, steperr.New(steperr.KindConfig, "indexer_search", err.Error())
	}
	injectSearchScope(&req, raw, mediaType)

	bundle := &document.SearchBundle{Query: query}
	doc.EnsureSearch()["indexer"] = bundle

	payload, err := cachedJSON(ctx, rt, "indexer_search", "indexer", cfg, req, cacheSettingsFrom(cfg, "indexer_search"))
	if err != nil {
		doc.AddWarning("indexer_search", fmt.Sprintf("indexer search failed: %v", err))
		doc.Work.Candidates = nil
		return doc, nil
	}

	responseCfg, _ := lookupMap(raw, "indexer.search.response")
	candidates := mapCandidates(payload, responseCfg, intOption(cfg, "result_limit", 50))
	doc.Work.Candidates = candidates
	bundle.Count = len(candidates)
	return doc, nil
}

// injectSearchScope adds per-media-type indexer ids and categories to the
// rendered request, wherever its parameters live.
func injectSearchScope(req *transport.Request, raw map[string]any, mediaType string) {
	idsRaw, _ := docpath.Lookup(raw, "indexer.search.indexer_ids")
	catsRaw, _ := docpath.Lookup(raw, "indexer.search.categories")
	ids := anyInt64Slice(selectMediaMapping(idsRaw, mediaType))
	cats := anyInt64Slice(selectMediaMapping(catsRaw, mediaType))

	set := func(key string, values []int64) {
		if len(values) == 0 {
			return
		}
		list := make([]any, len(values))
		for i, v := range values {
			list[i] = v
		}
		if body, ok := req.JSONBody.(map[string]any); ok {
			body[key] = list
			return
		}
		if req.Params == nil {
			req.Params = map[string]any{}
		}
		req.Params[key] = list
	}
	set("indexerIds", ids)
	set("categories", cats)
}

// mapCandidates shapes indexer payload entries into candidates using the
// declarative field mapping, scrubbing credential-bearing URLs.
func mapCandidates(payload any, responseCfg map[string]any, limit int) []*document.Candidate {
	fallbackKeys := anyStringSlice(responseCfg["fallback_keys"])
	if len(fallbackKeys) == 0 {
		fallbackKeys = []string{"results", "items", "data", "releases"}
	}
	items := listAt(payload, docpath.String(responseCfg, "results_path"), fallbackKeys)
	fields, _ := responseCfg["fields"].(map[string]any)
	includeRaw := boolOption(responseCfg, "include_raw", true)

	key := func(name, fallback string) string {
		if v := docpath.String(fields, name); v != "" {
			return v
		}
		return fallback
	}

	var candidates []*document.Candidate
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		candidate := &document.Candidate{
			Title:       docpath.String(entry, key("title", "title")),
			SortTitle:   docpath.String(entry, key("sort_title", "sortTitle")),
			Indexer:     docpath.String(entry, key("indexer", "indexer")),
			GUID:        docpath.String(entry, key("guid", "guid")),
			DownloadURL: transport.Redact(docpath.String(entry, key("download_url", "downloadUrl"))),
			InfoURL:     transport.Redact(docpath.String(entry, key("info_url", "infoUrl"))),
			CategoryIDs: extractCategoryIDs(entry[key("categories", "categories")]),
		}
		if v, ok := docpath.Number(entry, key("size", "size")); ok {
			candidate.Size = int64(v)
		}
		if v, ok := docpath.Number(entry, key("seeders", "seeders")); ok {
			candidate.Seeders = int(v)
		}
		if v, ok := docpath.Number(entry, key("leechers", "leechers")); ok {
			candidate.Leechers = int(v)
		}
		if v, ok := docpath.Number(entry, key("indexer_id", "indexerId")); ok {
			candidate.IndexerID = int64(v)
		}
		if candidate.Title == "" && candidate.GUID == "" {
			continue
		}
		if includeRaw {
			candidate.Raw = scrubRawURLs(entry)
		}
		candidates = append(candidates, candidate)
		if limit > 0 && len(candidates) >= limit {
			break
		}
	}
	return candidates
}

// scrubRawURLs redacts URL-bearing fields of the raw payload before it is
// persisted on the document.
func scrubRawURLs(entry map[string]any) map[string]any {
	out := make(map[string]any, len(entry))
	for key, value := range entry {
		switch key {
		case "downloadUrl", "infoUrl", "guid", "magnetUrl", "commentUrl", "posterUrl":
			if s, ok := value.(string); ok {
				out[key] = transport.Redact(s)
				continue
			}
		}
		out[key] = value
	}
	return out
}

// IndexerGrab sends the selected release to the indexer's grab endpoint.
// The runner gates this step: it only executes on a live, confirmed run.
func IndexerGrab(ctx context.Context, doc *document.Document, cfg map[string]any, rt *pipeline.Runtime) (*document.Document, error) {
	selected := selectedCandidate(doc)
	if selected == nil {
		return doc, steperr.New(steperr.KindGeneric, "indexer_grab", "no selected candidate to grab")
	}
	backfillFromRaw(selected)
	doc.Work.Selected = selected

	raw := rt.RawConfig()
	if id := resolveDownloadClient(cfg, raw, selected); id > 0 {
		doc.Work.DownloadClientID = id
	}

	reqTmpl, _ := lookupMap(raw, "indexer.grab.request")
	req, err := buildRequest(doc, rt, reqTmpl)
	if err != nil {
		return doc, steperr.New(steperr.KindConfig, "indexer_grab", err.Error())
	}
	if leftovers := unresolvedValues(req.JSONBody); len(leftovers) > 0 {
		return doc, steperr.New(steperr.KindConfig, "indexer_grab",
			fmt.Sprintf("grab payload has unresolved fields: %s", strings.Join(leftovers, ", ")))
	}

	payload, err := fetchJSON(ctx, rt, "indexer_grab", "indexer", cfg, req)
	if err != nil {
		return doc, err
	}

	record := &document.DispatchRecord{
		Status:   document.DispatchOK,
		URL:      transport.Redact(req.URL),
		Response: payload,
	}
	if body, ok := req.JSONBody.(map[string]any); ok {
		record.Request = body
	}
	doc.EnsureDispatch()["indexer"] = record
	return doc, nil
}

func selectedCandidate(doc *document.Document) *document.Candidate {
	if doc.Decision != nil && doc.Decision.Selected != nil {
		return doc.Decision.Selected
	}
	return doc.Work.Selected
}

// backfillFromRaw restores identifiers the field mapping may have missed.
func backfillFromRaw(candidate *document.Candidate) {
	if candidate.Raw == nil {
		return
	}
	if candidate.GUID == "" {
		candidate.GUID = docpath.String(candidate.Raw, "guid")
	}
	if candidate.IndexerID == 0 {
		if v, ok := docpath.Number(candidate.Raw, "indexerId"); ok {
			candidate.IndexerID = int64(v)
		}
	}
}

// resolveDownloadClient walks the configured routing rules in order and
// returns the first client whose category rule matches the candidate.
func resolveDownloadClient(cfg, raw map[string]any, candidate *document.Candidate) int {
	rules, ok := cfg["download_client_rules"].([]any)
	if !ok {
		if value, found := docpath.Lookup(raw, "indexer.download_client_rules"); found {
			rules, _ = value.([]any)
		}
	}
	catIDs := categoryIDsOf(candidate)
	if len(rules) == 0 || len(catIDs) == 0 {
		return 0
	}
	for _, item := range rules {
		rule, ok := item.(map[string]any)
		if !ok {
			continue
		}
		clientID := intOption(rule, "client_id", 0)
		if clientID == 0 {
			continue
		}
		exact := anyInt64Slice(rule["categories"])
		prefixes := anyInt64Slice(rule["category_prefixes"])
		mode := stringOption(rule, "prefix_mode", "thousands")
		for _, cat := range catIDs {
			for _, allowed := range exact {
				if cat == allowed {
					return clientID
				}
			}
			for _, prefix := range prefixes {
				if matchCategoryPrefix(cat, prefix, mode) {
					return clientID
				}
			}
		}
	}
	return 0
}
