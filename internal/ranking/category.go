package ranking

import (
	"strings"

	"grabbit/internal/document"
)

// Release categories in the fixed classification set.
const (
	CategoryDeluxe      = "deluxe"
	CategoryAnniversary = "anniversary"
	CategoryLive        = "live"
	CategoryBootleg     = "bootleg"
	CategoryStudio      = "studio"
)

// ReleaseCategory classifies a candidate from its title text and tracker
// metadata. Classification falls through deluxe > anniversary > live >
// bootleg, defaulting to studio.
func ReleaseCategory(candidate *document.Candidate, releaseTypeMap map[int]string) string {
	title := strings.ToLower(candidate.Title)
	remaster := ""
	releaseLabel := ""
	if candidate.Tracker != nil {
		remaster = strings.ToLower(stringValue(candidate.Tracker.Torrent["remasterTitle"]))
		if raw, ok := candidate.Tracker.Group["releaseType"]; ok {
			if id, ok := toInt(raw); ok {
				releaseLabel = strings.ToLower(releaseTypeMap[id])
			}
		}
	}

	switch {
	case strings.Contains(remaster, CategoryDeluxe) || strings.Contains(title, CategoryDeluxe):
		return CategoryDeluxe
	case strings.Contains(remaster, CategoryAnniversary) || strings.Contains(title, CategoryAnniversary):
		return CategoryAnniversary
	case strings.Contains(remaster, CategoryLive) || strings.Contains(title, CategoryLive) || strings.Contains(releaseLabel, CategoryLive):
		return CategoryLive
	case strings.Contains(remaster, CategoryBootleg) || strings.Contains(title, CategoryBootleg) || strings.Contains(releaseLabel, CategoryBootleg):
		return CategoryBootleg
	default:
		return CategoryStudio
	}
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
