package ranking

import (
	"sort"
	"strings"

	"grabbit/internal/docpath"
	"grabbit/internal/document"
)

// Result separates surviving candidates from rejected ones. Rejected
// candidates keep their diagnostic rank annotation but are never re-admitted,
// even when the ranked list ends up empty.
type Result struct {
	Ranked   []*document.Candidate
	Rejected []*document.Candidate
}

// Rank scores every candidate against the rule set, attaches rank
// annotations, and returns the surviving candidates in deterministic order.
// releaseTypeMap translates tracker release-type ids to labels for category
// classification.
func Rank(candidates []*document.Candidate, rs RuleSet, releaseTypeMap map[int]string) Result {
	titleFields := rs.TitleFields
	if len(titleFields) == 0 {
		titleFields = DefaultTitleFields
	}

	var out Result
	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}
		text := candidateText(candidate, titleFields)
		attachDerived(candidate, text)

		score := rs.BaseScore
		var reasons []string
		rejected := false

		// Reject rules mark the candidate but scoring continues so the
		// diagnostic score is still meaningful.
		for _, rule := range rs.Reject {
			if rule.Matches(text) {
				rejected = true
				reasons = append(reasons, rule.Reason(true))
			}
		}
		for _, rule := range rs.Score {
			if rule.Matches(text) {
				score += rule.Weight
				reasons = append(reasons, rule.Reason(false))
			}
		}
		for _, field := range rs.NumericFields {
			value, ok := docpath.Number(candidate, field.Path)
			if !ok {
				continue
			}
			if field.Scale != 0 {
				value /= field.Scale
			}
			if field.HasMax && value > field.Max {
				value = field.Max
			}
			score += value * field.Weight
			if field.Label != "" {
				reasons = append(reasons, field.Label)
			} else {
				reasons = append(reasons, field.Path)
			}
		}
		if len(rs.ReleasePriority) > 0 {
			category := ReleaseCategory(candidate, releaseTypeMap)
			if idx := indexOf(rs.ReleasePriority, category); idx >= 0 {
				score += rs.ReleasePriorityWeight * float64(len(rs.ReleasePriority)-idx)
				reasons = append(reasons, "release:"+category)
			}
		}
		if candidate.Recommendation != nil && candidate.Recommendation.Score != 0 {
			score += candidate.Recommendation.Score
			reasons = append(reasons, "recommendation")
		}

		candidate.Rank = &document.Rank{Score: score, Rejected: rejected, Reasons: reasons}
		if rejected {
			out.Rejected = append(out.Rejected, candidate)
		} else {
			out.Ranked = append(out.Ranked, candidate)
		}
	}

	sortCandidates(out.Ranked, rs.SortFields)
	return out
}

// sortCandidates orders by explicit sort specs when supplied, otherwise by
// score, seeders, size, all descending. Stable so a fixed rule set and input
// order always reproduce the same ordering.
func sortCandidates(candidates []*document.Candidate, sortFields []SortField) {
	if len(sortFields) > 0 {
		sort.SliceStable(candidates, func(i, j int) bool {
			return sortKey(candidates[i], sortFields).less(sortKey(candidates[j], sortFields))
		})
		return
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score() != b.Score() {
			return a.Score() > b.Score()
		}
		if a.Seeders != b.Seeders {
			return a.Seeders > b.Seeders
		}
		return a.Size > b.Size
	})
}

type sortTuple []float64

func sortKey(candidate *document.Candidate, fields []SortField) sortTuple {
	key := make(sortTuple, 0, len(fields))
	for _, field := range fields {
		value, ok := docpath.Number(candidate, field.Path)
		if !ok {
			value = 0
		}
		if field.Desc {
			value = -value
		}
		key = append(key, value)
	}
	return key
}

func (t sortTuple) less(other sortTuple) bool {
	for i := range t {
		if i >= len(other) {
			return false
		}
		if t[i] != other[i] {
			return t[i] < other[i]
		}
	}
	return false
}

func candidateText(candidate *document.Candidate, fields []string) string {
	parts := make([]string, 0, len(fields))
	for _, path := range fields {
		if value := docpath.String(candidate, path); value != "" {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, " ")
}

func indexOf(values []string, target string) int {
	for i, v := range values {
		if v == target {
			return i
		}
	}
	return -1
}
