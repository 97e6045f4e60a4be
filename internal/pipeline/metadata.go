package pipeline

// Metadata describes a builtin step's contract: whether it touches the
// outside world, which document paths it consumes and produces, and where
// its dispatch record lands.
type Metadata struct {
	SideEffect bool
	// DispatchKey is the fixed dispatch map key for side-effect steps.
	DispatchKey string
	// DispatchKeyFromConfig names the step-config key holding the dispatch
	// key; "_step" means the configured step name itself.
	DispatchKeyFromConfig string
	Requires              []string
	Emits                 []string
	Description           string
}

var stepMetadata = map[string]Metadata{
	"fetch_url": {
		Requires:    []string{"request.input_type", "request.url|request.input"},
		Emits:       []string{"url", "request.query"},
		Description: "Fetch URL metadata (title/description).",
	},
	"identify": {
		Requires:    []string{"request"},
		Emits:       []string{"work.title", "work.media_type"},
		Description: "Initialize work from request.",
	},
	"identify_web_search": {
		Requires:    []string{"request.query|request.input"},
		Emits:       []string{"search", "work.title", "work.artist", "work.year"},
		Description: "Refine query and infer artist/title/year via web search.",
	},
	"extract_release_preferences": {
		Requires:    []string{"request.query|request.input"},
		Emits:       []string{"request.release_preferences", "request.explicit_version"},
		Description: "Extract explicit format/edition preferences from query.",
	},
	"determine_media_type": {
		Requires:    []string{"request.query|search"},
		Emits:       []string{"request.media_type", "work.media_type"},
		Description: "Detect media type from query or search results.",
	},
	"resolve_track_release": {
		Requires:    []string{"request.query", "work.media_type"},
		Emits:       []string{"request.query", "work.album_title"},
		Description: "Resolve track query to likely album release.",
	},
	"indexer_search": {
		Requires:    []string{"request.query", "work.media_type"},
		Emits:       []string{"search.indexer", "work.candidates"},
		Description: "Search the indexer for candidates.",
	},
	"filter_categories": {
		Requires:    []string{"work.candidates"},
		Emits:       []string{"work.candidates"},
		Description: "Filter candidates by category.",
	},
	"filter_match": {
		Requires:    []string{"work.candidates", "request.query"},
		Emits:       []string{"work.candidates"},
		Description: "Filter candidates by query match.",
	},
	"tracker_enrich": {
		Requires:    []string{"work.candidates"},
		Emits:       []string{"work.candidates", "tracker.groups"},
		Description: "Enrich candidates with tracker metadata.",
	},
	"tracker_comments": {
		Requires:    []string{"tracker.groups"},
		Emits:       []string{"tracker.comments"},
		Description: "Fetch tracker comments.",
	},
	"apply_recommendations": {
		Requires:    []string{"work.candidates", "tracker.comments"},
		Emits:       []string{"work.candidates"},
		Description: "Boost candidate ranks based on comments.",
	},
	"filter_by_version": {
		Requires:    []string{"work.candidates", "request.release_preferences"},
		Emits:       []string{"work.candidates"},
		Description: "Filter candidates by explicit version preference.",
	},
	"book_format": {
		Requires:    []string{"work.candidates"},
		Emits:       []string{"work.candidates"},
		Description: "Filter book candidates by format preference.",
	},
	"rank_releases": {
		Requires:    []string{"work.candidates"},
		Emits:       []string{"work.candidates.rank"},
		Description: "Rank candidates by quality rules.",
	},
	"decide": {
		Requires:    []string{"work.candidates"},
		Emits:       []string{"decision", "work.selected"},
		Description: "Select best candidate or require user choice.",
	},
	"indexer_grab": {
		SideEffect:  true,
		DispatchKey: "indexer",
		Requires:    []string{"work.selected", "indexer"},
		Emits:       []string{"dispatch.indexer"},
		Description: "Send selected release to the indexer.",
	},
	"http_dispatch": {
		SideEffect:            true,
		DispatchKeyFromConfig: "_step",
		Requires:              []string{"request", "work.selected|work"},
		Emits:                 []string{"dispatch.*"},
		Description:           "Dispatch to arbitrary HTTP endpoint.",
	},
	"manager_dispatch": {
		SideEffect:            true,
		DispatchKeyFromConfig: "app",
		Requires:              []string{"work.selected|work"},
		Emits:                 []string{"dispatch.*"},
		Description:           "Dispatch to a media manager application.",
	},
	"store_tags": {
		DispatchKey: "tags",
		Requires:    []string{"request.tags"},
		Emits:       []string{"tags.stored"},
		Description: "Store tag artifacts locally.",
	},
}

// MetadataFor returns the metadata for a builtin step name. Unknown names
// return a zero Metadata.
func MetadataFor(builtin string) Metadata {
	return stepMetadata[builtin]
}

// BuiltinNames lists the builtin step names with registered metadata.
func BuiltinNames() []string {
	names := make([]string, 0, len(stepMetadata))
	for name := range stepMetadata {
		names = append(names, name)
	}
	return names
}

// DispatchKeyFor resolves the dispatch map key for a configured step.
func DispatchKeyFor(stepName string, md Metadata, cfg map[string]any) string {
	if md.DispatchKey != "" {
		return md.DispatchKey
	}
	if md.DispatchKeyFromConfig != "" {
		if md.DispatchKeyFromConfig == "_step" {
			return stepName
		}
		if value, ok := cfg[md.DispatchKeyFromConfig].(string); ok && value != "" {
			return value
		}
	}
	return stepName
}
