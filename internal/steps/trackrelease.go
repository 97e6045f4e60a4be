package steps

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"grabbit/internal/canonical"
	"grabbit/internal/docpath"
	"grabbit/internal/document"
	"grabbit/internal/pipeline"
	"grabbit/internal/transport"
)

// Terms that signal the query names a single track rather than a release.
var trackTerms = []string{
	"official video", "official audio", "official music video", "music video",
	"lyric video", "lyrics", "visualizer", "single", "live performance",
}

// Terms that signal the query already names a release.
var albumTerms = []string{
	"full album", "album", "discography", "box set", "compilation", "ep", "lp",
}

var albumMentionPattern = regexp.MustCompile(`(?i)from (?:the |their |his |her )?album[:\s]+"?([^".,;|]+)"?`)

// ResolveTrackRelease detects when a music query names a single track and
// resolves it to the release that contains it, so indexer search runs on
// the album rather than the song. Resolution prefers an album mention in
// the web-search snippets and falls back to a tracker artist browse.
func ResolveTrackRelease(ctx context.Context, doc *document.Document, cfg map[string]any, rt *pipeline.Runtime) (*document.Document, error) {
	if mediaTypeOf(doc) != document.MediaMusic || doc.Work.AlbumTitle != "" {
		return doc, nil
	}
	query := doc.Request.Query
	if query == "" {
		return doc, nil
	}

	if !looksLikeTrack(doc, query) {
		return doc, nil
	}

	artist, track := doc.Work.Artist, doc.Work.Title
	if artist == "" || track == "" {
		if left, right, ok := strings.Cut(query, " - "); ok {
			if artist == "" {
				artist = strings.TrimSpace(left)
			}
			if track == "" {
				track = strings.TrimSpace(stripTrackNoise(right))
			}
		}
	}
	if track == "" {
		return doc, nil
	}
	doc.Work.TrackArtist = artist
	doc.Work.TrackTitle = track

	album, releaseType, year := albumFromWebResults(doc)
	source := "web_search"
	if album == "" {
		album, releaseType, year = albumFromTracker(ctx, doc, cfg, rt, artist)
		source = "tracker"
	}
	if album == "" {
		return doc, nil
	}

	doc.Work.AlbumTitle = album
	doc.Work.Title = album
	doc.Work.TrackReleaseType = releaseType
	doc.Work.TrackReleaseSource = source
	if year > 0 && doc.Work.Year == 0 {
		doc.Work.Year = year
	}
	canonical.SetField(doc, "title", album, canonical.SourceWebSearch, 0.6)

	rebuilt := album
	if artist != "" {
		rebuilt = artist + " - " + album
	}
	if doc.Work.Year > 0 {
		rebuilt += fmt.Sprintf(" (%d)", doc.Work.Year)
	}
	if doc.Request.QueryOriginal == "" {
		doc.Request.QueryOriginal = doc.Request.Query
	}
	doc.Request.Query = rebuilt
	return doc, nil
}

// looksLikeTrack scores track terms against album terms; a video-site URL
// input leans the score toward track.
func looksLikeTrack(doc *document.Document, query string) bool {
	lowered := strings.ToLower(query)
	trackScore, albumScore := 0, 0
	for _, term := range trackTerms {
		if strings.Contains(lowered, term) {
			trackScore++
		}
	}
	for _, term := range albumTerms {
		if containsWord(lowered, term) {
			albumScore++
		}
	}
	if doc.Request.InputType == document.InputURL {
		url := strings.ToLower(doc.Request.URL)
		if strings.Contains(url, "youtube.com") || strings.Contains(url, "youtu.be") {
			trackScore += 2
		}
	}
	return trackScore > albumScore
}

// stripTrackNoise removes trailing video-site qualifiers from a title.
var trackNoisePattern = regexp.MustCompile(`(?i)[\(\[][^\)\]]*(official|video|audio|lyric|visualizer|hd|4k)[^\)\]]*[\)\]]`)

func stripTrackNoise(title string) string {
	return strings.TrimSpace(trackNoisePattern.ReplaceAllString(title, " "))
}

// albumFromWebResults scans web-search snippets for an explicit album
// mention.
func albumFromWebResults(doc *document.Document) (string, string, int) {
	bundle, ok := doc.Search["web"]
	if !ok {
		return "", "", 0
	}
	for _, result := range bundle.Results {
		if result == nil {
			continue
		}
		for _, text := range []string{result.Snippet, result.Title} {
			if m := albumMentionPattern.FindStringSubmatch(text); m != nil {
				return strings.TrimSpace(m[1]), "Album", 0
			}
		}
	}
	return "", "", 0
}

// albumFromTracker browses the tracker by artist and picks the release
// whose type ranks best. Tracker unavailability degrades to no resolution.
func albumFromTracker(ctx context.Context, doc *document.Document, cfg map[string]any, rt *pipeline.Runtime, artist string) (string, string, int) {
	if artist == "" {
		return "", "", 0
	}
	raw := rt.RawConfig()
	trackerURL := docpath.String(raw, "tracker.url")
	apiKey := docpath.String(raw, "tracker.api_key")
	if trackerURL == "" || apiKey == "" || strings.EqualFold(apiKey, "CHANGE_ME") {
		return "", "", 0
	}

	req := transport.Request{
		Method:  "GET",
		URL:     strings.TrimRight(trackerURL, "/") + "/ajax.php",
		Headers: map[string]string{"Authorization": apiKey},
		Params:  map[string]any{"action": "browse", "artistname": artist},
	}
	payload, err := cachedJSON(ctx, rt, "resolve_track_release", "tracker", cfg, req, cacheSettingsFrom(cfg, "tracker_browse"))
	if err != nil {
		doc.AddWarning("resolve_track_release", fmt.Sprintf("tracker browse failed: %v", err))
		return "", "", 0
	}

	releaseTypes := releaseTypeMap(raw)
	priority := anyStringSlice(cfg["release_priority"])
	if len(priority) == 0 {
		priority = []string{"Album", "EP", "Single"}
	}

	results := listAt(payload, "response.results", []string{"results"})
	bestRank := len(priority)
	var bestName, bestType string
	bestYear := 0
	for _, item := range results {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := docpath.String(entry, "groupName")
		if name == "" {
			continue
		}
		label := ""
		if v, ok := docpath.Number(entry, "releaseType"); ok {
			label = releaseTypes[int(v)]
		}
		rank := indexOfFold(priority, label)
		if rank < 0 {
			continue
		}
		year := 0
		if v, ok := docpath.Number(entry, "groupYear"); ok {
			year = int(v)
		}
		if rank < bestRank || (rank == bestRank && year > bestYear) {
			bestRank, bestName, bestType, bestYear = rank, name, label, year
		}
	}
	return bestName, bestType, bestYear
}

// releaseTypeMap reads the tracker's release-type id table, keyed by the
// string ids TOML requires.
func releaseTypeMap(raw map[string]any) map[int]string {
	table, _ := lookupMap(raw, "tracker.release_type_map")
	out := make(map[int]string, len(table))
	for key, value := range table {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		if label, ok := value.(string); ok {
			out[id] = label
		}
	}
	return out
}

func indexOfFold(values []string, target string) int {
	for i, value := range values {
		if strings.EqualFold(value, target) {
			return i
		}
	}
	return -1
}
