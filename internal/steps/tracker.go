package steps

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"grabbit/internal/docpath"
	"grabbit/internal/document"
	"grabbit/internal/pipeline"
	"grabbit/internal/transport"
)

// trackerConfig is the resolved tracker connection block.
type trackerConfig struct {
	URL     string
	APIKey  string
	Host    string
	Cookie  string
	Indexer string
}

func trackerConfigFrom(raw map[string]any) (trackerConfig, bool) {
	cfg := trackerConfig{
		URL:     docpath.String(raw, "tracker.url"),
		APIKey:  docpath.String(raw, "tracker.api_key"),
		Cookie:  docpath.String(raw, "tracker.session_cookie"),
		Indexer: docpath.String(raw, "tracker.indexer_name"),
	}
	if cfg.URL == "" || cfg.APIKey == "" || strings.EqualFold(cfg.APIKey, "CHANGE_ME") {
		return cfg, false
	}
	if parsed, err := url.Parse(cfg.URL); err == nil {
		cfg.Host = strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	}
	return cfg, true
}

func mediaEnabled(cfg map[string]any, mediaType string) bool {
	enabled := anyStringSlice(cfg["enabled_media"])
	if len(enabled) == 0 {
		return mediaType == document.MediaMusic
	}
	for _, m := range enabled {
		if m == mediaType {
			return true
		}
	}
	return false
}

// TrackerEnrich joins tracker group and torrent metadata onto candidates
// whose info URLs point at the tracker. Unlike search enrichment, tracker
// failures fail the step: a half-enriched candidate list would skew both
// version filtering and recommendations.
func TrackerEnrich(ctx context.Context, doc *document.Document, cfg map[string]any, rt *pipeline.Runtime) (*document.Document, error) {
	if !mediaEnabled(cfg, mediaTypeOf(doc)) || len(doc.Work.Candidates) == 0 {
		return doc, nil
	}
	tracker, ok := trackerConfigFrom(rt.RawConfig())
	if !ok {
		doc.AddWarning("tracker_enrich", "tracker not configured; skipping enrichment")
		return doc, nil
	}

	groups := make(map[int64]map[string]any)
	for _, candidate := range doc.Work.Candidates {
		groupID, torrentID := trackerIDs(candidate, tracker)
		if groupID == 0 {
			continue
		}
		group, found := groups[groupID]
		if !found {
			payload, err := fetchTrackerGroup(ctx, rt, cfg, tracker, groupID)
			if err != nil {
				return doc, err
			}
			group = payload
			groups[groupID] = payload
		}
		candidate.Tracker = &document.CandidateTracker{
			GroupID:   groupID,
			TorrentID: torrentID,
		}
		if g, ok := group["group"].(map[string]any); ok {
			candidate.Tracker.Group = g
		}
		if torrent := findTorrent(group, torrentID); torrent != nil {
			candidate.Tracker.Torrent = torrent
		}
	}

	if len(groups) > 0 {
		data := doc.EnsureTracker()
		if data.Groups == nil {
			data.Groups = make(map[string]map[string]any, len(groups))
		}
		for id, group := range groups {
			data.Groups[strconv.FormatInt(id, 10)] = group
		}
	}
	return doc, nil
}

// trackerIDs extracts group and torrent ids from a candidate's info URL
// when it points at the tracker host, or from the raw guid as a fallback.
func trackerIDs(candidate *document.Candidate, tracker trackerConfig) (int64, int64) {
	for _, raw := range []string{candidate.InfoURL, docpath.String(candidate.Raw, "infoUrl"), candidate.GUID} {
		if raw == "" {
			continue
		}
		parsed, err := url.Parse(raw)
		if err != nil {
			continue
		}
		host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
		fromTracker := tracker.Host != "" && host == tracker.Host
		if !fromTracker && tracker.Indexer != "" {
			fromTracker = strings.EqualFold(candidate.Indexer, tracker.Indexer)
		}
		if !fromTracker {
			continue
		}
		query := parsed.Query()
		groupID, _ := strconv.ParseInt(query.Get("id"), 10, 64)
		torrentID, _ := strconv.ParseInt(query.Get("torrentid"), 10, 64)
		if groupID > 0 || torrentID > 0 {
			return groupID, torrentID
		}
	}
	return 0, 0
}

// fetchTrackerGroup retrieves one torrent group payload, cached.
func fetchTrackerGroup(ctx context.Context, rt *pipeline.Runtime, cfg map[string]any, tracker trackerConfig, groupID int64) (map[string]any, error) {
	req := transport.Request{
		Method:  "GET",
		URL:     strings.TrimRight(tracker.URL, "/") + "/ajax.php",
		Headers: map[string]string{"Authorization": tracker.APIKey},
		Params:  map[string]any{"action": "torrentgroup", "id": groupID},
	}
	payload, err := cachedJSON(ctx, rt, "tracker_enrich", "tracker", cfg, req, cacheSettingsFrom(cfg, "tracker_group"))
	if err != nil {
		return nil, err
	}
	if response, ok := lookupMap(payload, "response"); ok {
		return response, nil
	}
	if m, ok := payload.(map[string]any); ok {
		return m, nil
	}
	return map[string]any{}, nil
}

func findTorrent(group map[string]any, torrentID int64) map[string]any {
	torrents, _ := group["torrents"].([]any)
	for _, item := range torrents {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if v, ok := docpath.Number(entry, "id"); ok && int64(v) == torrentID {
			return entry
		}
	}
	return nil
}

var commentBodyPattern = regexp.MustCompile(`(?is)<div[^>]+class="[^"]*comment[_-]?body[^"]*"[^>]*>(.*?)</div>`)

// TrackerComments collects community comments for every enriched group,
// for the recommendation signal. The API path is tried first; a configured
// session cookie enables an HTML scrape fallback. Comment failures degrade
// per group rather than failing the step.
func TrackerComments(ctx context.Context, doc *document.Document, cfg map[string]any, rt *pipeline.Runtime) (*document.Document, error) {
	if !mediaEnabled(cfg, mediaTypeOf(doc)) || doc.Tracker == nil || len(doc.Tracker.Groups) == 0 {
		return doc, nil
	}
	tracker, ok := trackerConfigFrom(rt.RawConfig())
	if !ok {
		return doc, nil
	}
	maxPages := intOption(cfg, "max_pages", 3)

	data := doc.EnsureTracker()
	if data.Comments == nil {
		data.Comments = make(map[string][]string)
	}
	if data.CommentCounts == nil {
		data.CommentCounts = make(map[string]int)
	}

	for groupKey := range data.Groups {
		if _, done := data.Comments[groupKey]; done {
			continue
		}
		groupID, err := strconv.ParseInt(groupKey, 10, 64)
		if err != nil {
			continue
		}
		comments, err := fetchGroupComments(ctx, rt, cfg, tracker, groupID, maxPages)
		if err != nil {
			doc.AddWarning("tracker_comments", fmt.Sprintf("comments for group %s unavailable: %v", groupKey, err))
			continue
		}
		data.Comments[groupKey] = comments
		data.CommentCounts[groupKey] = len(comments)
	}
	return doc, nil
}

func fetchGroupComments(ctx context.Context, rt *pipeline.Runtime, cfg map[string]any, tracker trackerConfig, groupID int64, maxPages int) ([]string, error) {
	var comments []string
	var lastErr error
	for page := 1; page <= maxPages; page++ {
		req := transport.Request{
			Method:  "GET",
			URL:     strings.TrimRight(tracker.URL, "/") + "/ajax.php",
			Headers: map[string]string{"Authorization": tracker.APIKey},
			Params: map[string]any{
				"action": "comments",
				"type":   "torrents",
				"id":     groupID,
				"page":   page,
			},
		}
		payload, err := cachedJSON(ctx, rt, "tracker_comments", "tracker", cfg, req, cacheSettingsFrom(cfg, "tracker_comments"))
		if err != nil {
			lastErr = err
			break
		}
		pageComments, totalPages := parseCommentPage(payload)
		comments = append(comments, pageComments...)
		if totalPages > 0 && page >= totalPages {
			return comments, nil
		}
		if len(pageComments) == 0 {
			return comments, nil
		}
	}
	if len(comments) > 0 {
		return comments, nil
	}
	if lastErr != nil && tracker.Cookie != "" {
		return scrapeGroupComments(ctx, rt, cfg, tracker, groupID)
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return comments, nil
}

func parseCommentPage(payload any) ([]string, int) {
	response, ok := lookupMap(payload, "response")
	if !ok {
		response, _ = payload.(map[string]any)
	}
	var comments []string
	for _, item := range listAt(response, "comments", []string{"comments"}) {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		body := docpath.String(entry, "body")
		if body == "" {
			body = docpath.String(entry, "bbBody")
		}
		if body != "" {
			comments = append(comments, cleanPageText(body))
		}
	}
	totalPages := 0
	if v, ok := docpath.Number(response, "pages"); ok {
		totalPages = int(v)
	}
	return comments, totalPages
}

// scrapeGroupComments pulls comment bodies off the group's HTML page using
// the configured session cookie.
func scrapeGroupComments(ctx context.Context, rt *pipeline.Runtime, cfg map[string]any, tracker trackerConfig, groupID int64) ([]string, error) {
	req := transport.Request{
		Method:  "GET",
		URL:     strings.TrimRight(tracker.URL, "/") + "/torrents.php",
		Cookies: map[string]string{"session": tracker.Cookie},
		Params:  map[string]any{"id": groupID},
	}
	if err := rt.ThrottleProvider(ctx, "tracker"); err != nil {
		return nil, err
	}
	resp, err := rt.HTTP.Do(ctx, req, rt.RetryPolicy(cfg))
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, statusError("tracker_comments", req, resp)
	}
	var comments []string
	for _, m := range commentBodyPattern.FindAllStringSubmatch(resp.Text(), -1) {
		if text := cleanPageText(m[1]); text != "" {
			comments = append(comments, text)
		}
	}
	return comments, nil
}
