package steps

import (
	"regexp"
	"strings"
	"time"

	"grabbit/internal/docpath"
	"grabbit/internal/document"
)

// collectFields joins the scalar values at the given document paths into
// one space-separated string.
func collectFields(root any, fields []string) string {
	parts := make([]string, 0, len(fields))
	for _, path := range fields {
		if value := docpath.String(root, path); value != "" {
			parts = append(parts, value)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// selectQuery picks the search query for a step: configured query fields
// first (per media type), then the request query, then the raw input for
// non-image requests.
func selectQuery(doc *document.Document, cfg map[string]any, mediaType string) string {
	var fields []string
	switch qf := cfg["query_fields"].(type) {
	case map[string]any:
		fields = anyStringSlice(qf[mediaType])
		if len(fields) == 0 {
			fields = anyStringSlice(qf["default"])
		}
	case []any:
		fields = anyStringSlice(qf)
	}
	if len(fields) > 0 {
		if query := collectFields(doc, fields); query != "" {
			return query
		}
	}
	if doc.Request.Query != "" {
		return doc.Request.Query
	}
	if doc.Request.InputType != document.InputImage {
		return doc.Request.Input
	}
	return ""
}

var bracketPattern = regexp.MustCompile(`[\[\]\(\)]`)
var spacePattern = regexp.MustCompile(`\s+`)

// normalizeSearchQuery strips bracket noise that confuses indexer text
// search.
func normalizeSearchQuery(query string) string {
	cleaned := bracketPattern.ReplaceAllString(query, " ")
	return strings.TrimSpace(spacePattern.ReplaceAllString(cleaned, " "))
}

// selectMediaMapping resolves a per-media-type mapping value: a map keyed
// by media type (with "default" fallback), or a plain value applied to all
// types. Empty lists read as absent.
func selectMediaMapping(mapping any, mediaType string) any {
	switch m := mapping.(type) {
	case nil:
		return nil
	case map[string]any:
		value, ok := m[mediaType]
		if !ok || mediaType == "" {
			value = m["default"]
		}
		if list, isList := value.([]any); isList && len(list) == 0 {
			return nil
		}
		return value
	case []any:
		if len(m) == 0 {
			return nil
		}
		return m
	default:
		return mapping
	}
}

func anyStringSlice(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func anyInt64Slice(raw any) []int64 {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]int64, 0, len(list))
	for _, item := range list {
		if v, ok := docpath.Coerce(item); ok {
			out = append(out, int64(v))
		}
	}
	return out
}

func boolOption(cfg map[string]any, key string, fallback bool) bool {
	if v, ok := cfg[key].(bool); ok {
		return v
	}
	return fallback
}

func intOption(cfg map[string]any, key string, fallback int) int {
	if v, ok := cfg[key]; ok {
		if f, ok := docpath.Coerce(v); ok {
			return int(f)
		}
	}
	return fallback
}

func floatOption(cfg map[string]any, key string, fallback float64) float64 {
	if v, ok := cfg[key]; ok {
		if f, ok := docpath.Coerce(v); ok {
			return f
		}
	}
	return fallback
}

func stringOption(cfg map[string]any, key, fallback string) string {
	if v, ok := cfg[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// cacheSettings reads a step's cache block. A bare boolean enables the
// default namespace and TTL.
type cacheSettings struct {
	Enabled   bool
	Namespace string
	TTL       time.Duration
}

func cacheSettingsFrom(cfg map[string]any, defaultNamespace string) cacheSettings {
	settings := cacheSettings{Namespace: defaultNamespace}
	switch v := cfg["cache"].(type) {
	case bool:
		settings.Enabled = v
	case map[string]any:
		settings.Enabled = boolOption(v, "enabled", false)
		settings.Namespace = stringOption(v, "namespace", defaultNamespace)
		if ttl, ok := docpath.Number(v, "ttl_seconds"); ok && ttl > 0 {
			settings.TTL = time.Duration(ttl * float64(time.Second))
		}
	}
	return settings
}

// mediaTypeOf prefers the work's media type over the request's.
func mediaTypeOf(doc *document.Document) string {
	if doc.Work.MediaType != "" {
		return doc.Work.MediaType
	}
	return doc.Request.MediaType
}

// extractCategoryIDs flattens a provider category value: ints, or objects
// with id and nested subCategories.
func extractCategoryIDs(raw any) []int64 {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	seen := make(map[int64]bool)
	var ids []int64
	add := func(value any) {
		if v, ok := docpath.Coerce(value); ok {
			id := int64(v)
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	for _, item := range list {
		if entry, ok := item.(map[string]any); ok {
			add(entry["id"])
			subs := entry["subCategories"]
			if subs == nil {
				subs = entry["subcategories"]
			}
			if subList, ok := subs.([]any); ok {
				for _, sub := range subList {
					if subEntry, ok := sub.(map[string]any); ok {
						add(subEntry["id"])
					}
				}
			}
			continue
		}
		add(item)
	}
	return ids
}

// categoryIDsOf returns a candidate's category ids, falling back to the
// raw payload when the mapped field was absent.
func categoryIDsOf(candidate *document.Candidate) []int64 {
	if len(candidate.CategoryIDs) > 0 {
		return candidate.CategoryIDs
	}
	if candidate.Raw != nil {
		return extractCategoryIDs(candidate.Raw["categories"])
	}
	return nil
}

// matchCategoryPrefix checks a category id against a numeric prefix. The
// default mode compares thousands blocks.
func matchCategoryPrefix(catID, prefix int64, mode string) bool {
	if strings.EqualFold(mode, "hundreds") {
		return catID/100 == prefix
	}
	return catID/1000 == prefix
}

// candidateText joins the configured title fields of a candidate.
func candidateText(candidate *document.Candidate, fields []string) string {
	return collectFields(candidate, fields)
}

// defaultTitleFields mirrors the ranking default for match filtering.
var defaultTitleFields = []string{
	"title",
	"name",
	"_raw.title",
	"_raw.name",
	"releaseTitle",
	"release_title",
}
