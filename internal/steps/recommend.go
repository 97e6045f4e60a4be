package steps

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"grabbit/internal/docpath"
	"grabbit/internal/document"
	"grabbit/internal/match"
	"grabbit/internal/pipeline"
)

// ApplyRecommendations scores candidates by how often their identifying
// details show up in the tracker's community comments. A catalog number
// quoted in a comment is near-certain intent; a bare year barely counts.
func ApplyRecommendations(_ context.Context, doc *document.Document, cfg map[string]any, _ *pipeline.Runtime) (*document.Document, error) {
	if doc.Tracker == nil || len(doc.Tracker.Comments) == 0 {
		return doc, nil
	}
	weight := floatOption(cfg, "weight", 500)
	signals := []struct {
		name   string
		weight float64
	}{
		{"catalog", floatOption(cfg, "catalog_weight", 1.0)},
		{"label", floatOption(cfg, "label_weight", 0.7)},
		{"title", floatOption(cfg, "title_weight", 0.5)},
		{"media", floatOption(cfg, "media_weight", 0.4)},
		{"year", floatOption(cfg, "year_weight", 0.3)},
	}

	blobs := make(map[string]string, len(doc.Tracker.Comments))
	for groupKey, comments := range doc.Tracker.Comments {
		blobs[groupKey] = strings.ToLower(strings.Join(comments, " "))
	}

	for _, candidate := range doc.Work.Candidates {
		if candidate.Tracker == nil || candidate.Tracker.GroupID == 0 {
			continue
		}
		blob := blobs[strconv.FormatInt(candidate.Tracker.GroupID, 10)]
		if blob == "" {
			continue
		}
		score := 0.0
		var matches []string
		for _, signal := range signals {
			value := signalValue(candidate, signal.name)
			if value == "" {
				continue
			}
			if strings.Contains(blob, strings.ToLower(value)) || containsNormalized(blob, value) {
				score += weight * signal.weight
				matches = append(matches, fmt.Sprintf("%s:%s", signal.name, value))
			}
		}
		if score > 0 {
			candidate.Recommendation = &document.Recommendation{Score: score, Matches: matches}
		}
	}
	return doc, nil
}

// signalValue reads the tracker field each recommendation signal compares
// against the comment text.
func signalValue(candidate *document.Candidate, name string) string {
	switch name {
	case "catalog":
		return candidate.GroupValue("remasterCatalogueNumber", "catalogueNumber")
	case "label":
		return candidate.GroupValue("remasterRecordLabel", "recordLabel")
	case "title":
		return candidate.GroupValue("remasterTitle", "name")
	case "media":
		return candidate.GroupValue("media", "")
	case "year":
		if candidate.Tracker == nil {
			return ""
		}
		if v, ok := docpath.Number(candidate.Tracker.Torrent, "remasterYear"); ok && v > 0 {
			return strconv.Itoa(int(v))
		}
		if v, ok := docpath.Number(candidate.Tracker.Group, "year"); ok && v > 0 {
			return strconv.Itoa(int(v))
		}
		return ""
	}
	return ""
}

// containsNormalized falls back to normalized-token comparison so loose
// punctuation in comments still matches.
func containsNormalized(blob, value string) bool {
	normalized := match.Normalize(value)
	if normalized == "" || len(normalized) < 3 {
		return false
	}
	return strings.Contains(match.Normalize(blob), normalized)
}
