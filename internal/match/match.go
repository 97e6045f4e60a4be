// Package match provides the text normalization, tokenization, and overlap
// scoring shared by candidate filtering and consensus extraction.
package match

import (
	"regexp"
	"strings"
)

var (
	nonWordPattern    = regexp.MustCompile(`[^\w\s]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Defaults for the dual threshold applied throughout filtering and consensus.
const (
	DefaultMinRatio        = 0.4
	DefaultMinTokenMatches = 2
)

// Normalize lowercases text, replaces non-word characters with spaces, and
// collapses runs of whitespace.
func Normalize(text string) string {
	cleaned := nonWordPattern.ReplaceAllString(strings.ToLower(text), " ")
	cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// TokenSet is a set of normalized tokens.
type TokenSet map[string]struct{}

// Tokenize normalizes text, splits on spaces, and drops tokens of length <= 1.
func Tokenize(text string) TokenSet {
	cleaned := Normalize(text)
	if cleaned == "" {
		return TokenSet{}
	}
	tokens := TokenSet{}
	for _, token := range strings.Split(cleaned, " ") {
		if len(token) <= 1 {
			continue
		}
		tokens[token] = struct{}{}
	}
	return tokens
}

// Overlap counts tokens present in both sets.
func Overlap(a, b TokenSet) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	count := 0
	for token := range a {
		if _, ok := b[token]; ok {
			count++
		}
	}
	return count
}

// Score computes |intersection| / max(|candidate|, 1). The asymmetry is
// intentional: candidate titles run longer and noisier than queries, so a
// candidate whose tokens are a tight subset of the query scores high where
// Jaccard would punish it.
func Score(candidate, query TokenSet) float64 {
	if len(candidate) == 0 || len(query) == 0 {
		return 0
	}
	overlap := Overlap(candidate, query)
	denom := len(candidate)
	if denom < 1 {
		denom = 1
	}
	return float64(overlap) / float64(denom)
}

// Threshold is the dual acceptance filter: a minimum score ratio and a
// minimum absolute token overlap. Requiring both avoids accepting near-empty
// overlaps that happen to divide well.
type Threshold struct {
	MinRatio        float64
	MinTokenMatches int
}

// DefaultThreshold returns the threshold used when configuration is silent.
func DefaultThreshold() Threshold {
	return Threshold{MinRatio: DefaultMinRatio, MinTokenMatches: DefaultMinTokenMatches}
}

// Passes applies the dual threshold to a candidate/query token pair.
func (t Threshold) Passes(candidate, query TokenSet) bool {
	if Score(candidate, query) < t.MinRatio {
		return false
	}
	return Overlap(candidate, query) >= t.MinTokenMatches
}
