// Package steps implements the builtin workflow steps. Each step is a
// pure function over the document plus its merged configuration; shared
// services (transport, cache, config) come in through the pipeline
// runtime.
package steps

import (
	"grabbit/internal/pipeline"
)

// Registry returns the builtin step table the runner executes from.
func Registry() map[string]pipeline.StepFunc {
	return map[string]pipeline.StepFunc{
		"identify":                    Identify,
		"fetch_url":                   FetchURL,
		"identify_web_search":         IdentifyWebSearch,
		"determine_media_type":        DetermineMediaType,
		"extract_release_preferences": ExtractReleasePreferences,
		"resolve_track_release":       ResolveTrackRelease,
		"indexer_search":              IndexerSearch,
		"filter_categories":           FilterCategories,
		"filter_match":                FilterMatch,
		"tracker_enrich":              TrackerEnrich,
		"tracker_comments":            TrackerComments,
		"apply_recommendations":       ApplyRecommendations,
		"filter_by_version":           FilterByVersion,
		"book_format":                 BookFormat,
		"rank_releases":               RankReleases,
		"decide":                      Decide,
		"indexer_grab":                IndexerGrab,
		"http_dispatch":               HTTPDispatch,
		"manager_dispatch":            ManagerDispatch,
		"store_tags":                  StoreTags,
	}
}

// BuiltinNames lists the registered builtin step names, for config
// validation.
func BuiltinNames() []string {
	registry := Registry()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
