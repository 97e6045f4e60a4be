package decision

import (
	"regexp"
	"strings"

	"grabbit/internal/document"
)

// Audio format tiers, best first: lossless, high-efficiency lossy, standard
// lossy.
const (
	FormatFLAC = "flac"
	FormatV0   = "v0"
	Format320  = "320"
)

var formatPreference = map[string]int{
	FormatFLAC: 0,
	FormatV0:   1,
	Format320:  2,
}

var (
	flacPattern   = regexp.MustCompile(`\bflac\b`)
	v0Pattern     = regexp.MustCompile(`\bv0\b`)
	threeTwenty   = regexp.MustCompile(`\b320\b`)
	lossyEvidence = regexp.MustCompile(`\bkbps\b|\b320k\b|\bmp3\b`)
)

// DetectFormat classifies a candidate's audio format from its title text,
// or returns "" when no known format is recognizable.
func DetectFormat(candidate *document.Candidate) string {
	if candidate == nil {
		return ""
	}
	text := strings.ToLower(candidate.Title + " " + candidate.SortTitle)
	switch {
	case flacPattern.MatchString(text):
		return FormatFLAC
	case v0Pattern.MatchString(text):
		return FormatV0
	case threeTwenty.MatchString(text) && lossyEvidence.MatchString(text):
		return Format320
	default:
		return ""
	}
}

// selectByFormat restricts candidates to the best available format tier and
// picks the highest-scored candidate inside it.
func selectByFormat(candidates []*document.Candidate) (*document.Candidate, int, bool) {
	detected := make([]string, len(candidates))
	bestTier := -1
	for i, candidate := range candidates {
		format := DetectFormat(candidate)
		detected[i] = format
		if format == "" {
			continue
		}
		tier := formatPreference[format]
		if bestTier == -1 || tier < bestTier {
			bestTier = tier
		}
	}
	if bestTier == -1 {
		return nil, 0, false
	}

	selectedIdx := -1
	for i, candidate := range candidates {
		if detected[i] == "" || formatPreference[detected[i]] != bestTier {
			continue
		}
		if selectedIdx == -1 || candidate.Score() > candidates[selectedIdx].Score() {
			selectedIdx = i
		}
	}
	if selectedIdx == -1 {
		return nil, 0, false
	}
	return candidates[selectedIdx], selectedIdx, true
}
