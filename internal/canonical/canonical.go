// Package canonical maintains the provenance-tracked authoritative field
// set on a document. Higher-trust sources overwrite lower-trust ones;
// every write records where the value came from and when.
package canonical

import (
	"sort"
	"time"

	"grabbit/internal/docpath"
	"grabbit/internal/document"
)

// Source names, ordered by trust. Direct user input outranks page and web
// evidence, which outrank provider lookups.
const (
	SourceInput     = "input"
	SourceURL       = "url"
	SourceWebSearch = "web_search"
	SourceProvider  = "provider"
	SourceFallback  = "fallback"
)

var sourcePriority = map[string]int{
	SourceInput:     3,
	SourceURL:       2,
	SourceWebSearch: 2,
	SourceProvider:  1,
	SourceFallback:  0,
}

var schema = map[string][]string{
	document.MediaMusic: {"artist", "title", "year", "label"},
	document.MediaMovie: {"title", "year"},
	document.MediaTV:    {"title", "year"},
	document.MediaBook:  {"title", "author", "year"},
}

// now is swapped in tests.
var now = func() time.Time { return time.Now().UTC() }

func priority(source string) int {
	return sourcePriority[source]
}

func ensure(doc *document.Document) *document.Canonical {
	if doc.Canonical == nil {
		doc.Canonical = &document.Canonical{}
	}
	if doc.Canonical.Fields == nil {
		doc.Canonical.Fields = map[string]any{}
	}
	if doc.Canonical.Provenance == nil {
		doc.Canonical.Provenance = map[string]document.Provenance{}
	}
	return doc.Canonical
}

// SetField writes a canonical field if the source is at least as trusted
// as the one that wrote the current value. Empty values are ignored. Every
// source that ever contributed to a field stays listed in its provenance.
func SetField(doc *document.Document, field string, value any, source string, confidence float64) {
	if value == nil || value == "" {
		return
	}
	canonical := ensure(doc)
	existing, exists := canonical.Fields[field]
	prov := canonical.Provenance[field]
	existingSource := prov.Source
	if existingSource == "" {
		existingSource = SourceFallback
	}
	if exists && existing != nil && priority(source) < priority(existingSource) {
		return
	}
	canonical.Fields[field] = value
	canonical.Provenance[field] = document.Provenance{
		Source:     source,
		Confidence: confidence,
		At:         now().Format(time.RFC3339),
		Sources:    mergeSources(prov.Sources, source),
	}
}

// MergeFromWork copies the identifying work fields into the canonical set
// under the given source.
func MergeFromWork(doc *document.Document, source string) {
	work := &doc.Work
	for _, field := range []string{"artist", "title", "year", "label", "author"} {
		value, ok := docpath.Lookup(work, field)
		if !ok {
			continue
		}
		SetField(doc, field, value, source, 0)
	}
}

// Schema lists the canonical fields expected for a media type.
func Schema(mediaType string) []string {
	return schema[mediaType]
}

// Missing reports which schema fields for the media type have no canonical
// value yet.
func Missing(doc *document.Document, mediaType string) []string {
	var missing []string
	for _, field := range Schema(mediaType) {
		if doc.Canonical == nil {
			missing = append(missing, field)
			continue
		}
		if value, ok := doc.Canonical.Fields[field]; !ok || value == nil || value == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

func mergeSources(existing []string, source string) []string {
	seen := make(map[string]bool, len(existing)+1)
	for _, s := range existing {
		seen[s] = true
	}
	seen[source] = true
	merged := make([]string, 0, len(seen))
	for s := range seen {
		merged = append(merged, s)
	}
	sort.Strings(merged)
	return merged
}
