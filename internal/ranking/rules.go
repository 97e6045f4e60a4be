// Package ranking scores, rejects, and orders candidate releases using
// configurable rule sets: regex reject/score rules, numeric field
// contributions, release-category bonuses, and community recommendation
// scores.
package ranking

import (
	"fmt"
	"regexp"
	"strings"

	"grabbit/internal/docpath"
)

// DefaultTitleFields are the candidate paths composed into the text every
// regex rule runs against.
var DefaultTitleFields = []string{
	"title",
	"name",
	"_raw.title",
	"_raw.name",
	"releaseTitle",
	"release_title",
}

// Rule is one regex rule. Reject rules ignore Weight.
type Rule struct {
	Pattern string
	Label   string
	Weight  float64

	re *regexp.Regexp
}

// Matches reports whether the rule's pattern matches text, case-insensitively.
// Rules with invalid patterns never match.
func (r *Rule) Matches(text string) bool {
	if r.re == nil {
		return false
	}
	return r.re.MatchString(text)
}

// Reason returns the label recorded when the rule fires.
func (r *Rule) Reason(reject bool) string {
	if r.Label != "" {
		return r.Label
	}
	if reject {
		return "reject:" + r.Pattern
	}
	return fmt.Sprintf("%s:%+g", r.Pattern, r.Weight)
}

// NumericField adds a value read from a dotted candidate path, optionally
// rescaled and capped, multiplied by a weight.
type NumericField struct {
	Path   string
	Label  string
	Scale  float64
	Max    float64
	HasMax bool
	Weight float64
}

// SortField is one explicit ordering component.
type SortField struct {
	Path string
	Desc bool
}

// RuleSet is the full ranking configuration for one media type.
type RuleSet struct {
	BaseScore             float64
	TitleFields           []string
	Reject                []*Rule
	Score                 []*Rule
	NumericFields         []NumericField
	SortFields            []SortField
	ReleasePriority       []string
	ReleasePriorityWeight float64
	FormatRules           map[string]RuleSet
}

// ParseRuleSet builds a RuleSet from a raw configuration mapping, compiling
// regex patterns eagerly. Entries with invalid patterns are kept but inert,
// matching the tolerant behavior expected of configuration-driven rules.
func ParseRuleSet(raw map[string]any) RuleSet {
	rs := RuleSet{
		ReleasePriorityWeight: 50,
	}
	if raw == nil {
		return rs
	}
	if v, ok := docpath.Number(raw, "base_score"); ok {
		rs.BaseScore = v
	}
	if fields := stringSlice(raw["title_fields"]); len(fields) > 0 {
		rs.TitleFields = fields
	}
	rs.Reject = parseRules(raw["reject"], false)
	rs.Score = parseRules(raw["score"], true)
	rs.NumericFields = parseNumericFields(raw["numeric_fields"])
	rs.SortFields = parseSortFields(raw["sort_fields"])
	rs.ReleasePriority = stringSlice(raw["release_priority"])
	if v, ok := docpath.Number(raw, "release_priority_weight"); ok {
		rs.ReleasePriorityWeight = v
	}
	if overlays, ok := raw["format_rules"].(map[string]any); ok {
		rs.FormatRules = make(map[string]RuleSet, len(overlays))
		for name, sub := range overlays {
			if m, ok := sub.(map[string]any); ok {
				rs.FormatRules[strings.ToLower(name)] = ParseRuleSet(m)
			}
		}
	}
	return rs
}

// ApplyFormatPreference appends the format overlay rules for the requested
// formats. A "both" preference leaves the rule set untouched.
func (rs RuleSet) ApplyFormatPreference(formats []string) RuleSet {
	if len(formats) == 0 || len(rs.FormatRules) == 0 {
		return rs
	}
	for _, f := range formats {
		if strings.EqualFold(f, "both") {
			return rs
		}
	}
	merged := rs
	for _, f := range formats {
		overlay, ok := rs.FormatRules[strings.ToLower(f)]
		if !ok {
			continue
		}
		merged.Reject = append(append([]*Rule{}, merged.Reject...), overlay.Reject...)
		merged.Score = append(append([]*Rule{}, merged.Score...), overlay.Score...)
		merged.NumericFields = append(append([]NumericField{}, merged.NumericFields...), overlay.NumericFields...)
		if len(overlay.SortFields) > 0 {
			merged.SortFields = append(append([]SortField{}, merged.SortFields...), overlay.SortFields...)
		}
	}
	return merged
}

func parseRules(raw any, scored bool) []*Rule {
	entries, ok := raw.([]any)
	if !ok {
		return nil
	}
	rules := make([]*Rule, 0, len(entries))
	for _, entry := range entries {
		rule := &Rule{}
		switch v := entry.(type) {
		case string:
			rule.Pattern = v
		case map[string]any:
			rule.Pattern = docpath.String(v, "match")
			if rule.Pattern == "" {
				rule.Pattern = docpath.String(v, "regex")
			}
			rule.Label = docpath.String(v, "label")
			if scored {
				if w, ok := docpath.Number(v, "score"); ok {
					rule.Weight = w
				}
			}
		default:
			continue
		}
		if rule.Pattern == "" {
			continue
		}
		if re, err := regexp.Compile("(?i)" + rule.Pattern); err == nil {
			rule.re = re
		}
		rules = append(rules, rule)
	}
	return rules
}

func parseNumericFields(raw any) []NumericField {
	entries, ok := raw.([]any)
	if !ok {
		return nil
	}
	fields := make([]NumericField, 0, len(entries))
	for _, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		field := NumericField{Weight: 1}
		field.Path = docpath.String(m, "path")
		if field.Path == "" {
			continue
		}
		field.Label = docpath.String(m, "label")
		if v, ok := docpath.Number(m, "scale"); ok {
			field.Scale = v
		}
		if v, ok := docpath.Number(m, "max"); ok {
			field.Max = v
			field.HasMax = true
		}
		if v, ok := docpath.Number(m, "weight"); ok {
			field.Weight = v
		}
		fields = append(fields, field)
	}
	return fields
}

func parseSortFields(raw any) []SortField {
	entries, ok := raw.([]any)
	if !ok {
		return nil
	}
	fields := make([]SortField, 0, len(entries))
	for _, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		path := docpath.String(m, "path")
		if path == "" {
			continue
		}
		desc := true
		if v, ok := m["desc"].(bool); ok {
			desc = v
		}
		fields = append(fields, SortField{Path: path, Desc: desc})
	}
	return fields
}

func stringSlice(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
