package document

import "strconv"

// Candidate is one retrieved release option. Candidates are value-like:
// filtering and ranking replace the candidate list wholesale instead of
// mutating entries destructively, apart from annotation attachment.
type Candidate struct {
	Title       string   `json:"title,omitempty"`
	SortTitle   string   `json:"sort_title,omitempty"`
	Indexer     string   `json:"indexer,omitempty"`
	IndexerID   int64    `json:"indexer_id,omitempty"`
	GUID        string   `json:"guid,omitempty"`
	DownloadURL string   `json:"download_url,omitempty"`
	InfoURL     string   `json:"info_url,omitempty"`
	Size        int64    `json:"size,omitempty"`
	Seeders     int      `json:"seeders,omitempty"`
	Leechers    int      `json:"leechers,omitempty"`
	CategoryIDs []int64  `json:"category_ids,omitempty"`

	// Raw is the provider payload the candidate was mapped from.
	Raw map[string]any `json:"_raw,omitempty"`

	// Derived holds numeric audio details extracted from the title text.
	Derived map[string]float64 `json:"derived,omitempty"`

	Tracker        *CandidateTracker `json:"tracker,omitempty"`
	Rank           *Rank             `json:"rank,omitempty"`
	Recommendation *Recommendation   `json:"recommendation,omitempty"`
}

// CandidateTracker carries tracker enrichment joined onto a candidate.
type CandidateTracker struct {
	GroupID   int64          `json:"group_id,omitempty"`
	TorrentID int64          `json:"torrent_id,omitempty"`
	Group     map[string]any `json:"group,omitempty"`
	Torrent   map[string]any `json:"torrent,omitempty"`
}

// Rank is the ranking annotation attached by the ranking engine.
type Rank struct {
	Score    float64  `json:"score"`
	Rejected bool     `json:"rejected,omitempty"`
	Reasons  []string `json:"reasons,omitempty"`
}

// Recommendation is the community-signal score attached by enrichment.
type Recommendation struct {
	Score   float64  `json:"score"`
	Matches []string `json:"matches,omitempty"`
}

// Score returns the rank score, or zero when unranked.
func (c *Candidate) Score() float64 {
	if c == nil || c.Rank == nil {
		return 0
	}
	return c.Rank.Score
}

// GroupValue reads a tracker group field as a string, preferring the
// torrent-level remaster value when remasterKey is set.
func (c *Candidate) GroupValue(remasterKey, groupKey string) string {
	if c == nil || c.Tracker == nil {
		return ""
	}
	if remasterKey != "" {
		if v, ok := c.Tracker.Torrent[remasterKey]; ok {
			if s := anyToString(v); s != "" {
				return s
			}
		}
	}
	if groupKey != "" {
		if v, ok := c.Tracker.Group[groupKey]; ok {
			return anyToString(v)
		}
	}
	return ""
}

func anyToString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	}
	return ""
}
