// Package consensus reconciles noisy web-search results into a single
// trusted field set (artist/title/author/year) with an acceptance threshold:
// either several independent results agree, or one result agrees very
// strongly with the query.
package consensus

import (
	"strconv"
	"strings"

	"grabbit/internal/document"
	"grabbit/internal/match"
)

// Options tunes consensus extraction.
type Options struct {
	ResultLimit      int
	Threshold        match.Threshold
	MinConfirmations int
	SingleMatchRatio float64
}

// DefaultOptions returns the thresholds used when configuration is silent.
func DefaultOptions() Options {
	return Options{
		ResultLimit:      5,
		Threshold:        match.DefaultThreshold(),
		MinConfirmations: 2,
		SingleMatchRatio: 0.75,
	}
}

type bucket struct {
	fields   Fields
	count    int
	scoreSum float64
}

// Extract runs the consensus algorithm over search results against the
// user's original query. The returned fields are zero when no bucket passed
// acceptance; the meta block always describes the winning bucket.
func Extract(results []*document.SearchResult, mediaType, originalQuery string, opts Options) (Fields, document.ConsensusMeta) {
	queryTokens := match.Tokenize(originalQuery)
	if len(queryTokens) == 0 {
		return Fields{}, document.ConsensusMeta{}
	}
	inputYear := ExtractYear(originalQuery)

	limit := opts.ResultLimit
	if limit < 1 {
		limit = 1
	}
	if limit > len(results) {
		limit = len(results)
	}

	buckets := make(map[string]*bucket)
	for _, item := range results[:limit] {
		if item == nil || item.Title == "" {
			continue
		}
		cleaned := StripSiteSuffix(item.Title)
		fields := FieldsFromTitle(mediaType, cleaned)
		if fields.Empty() {
			continue
		}
		// A year that contradicts the query's own year disqualifies the result.
		if inputYear != 0 && fields.Year != 0 && fields.Year != inputYear {
			continue
		}
		if mediaType == document.MediaMusic && (fields.Artist == "" || fields.Title == "") {
			continue
		}
		candidateTokens := match.Tokenize(fields.Artist + " " + fields.Title)
		score := match.Score(candidateTokens, queryTokens)
		if !opts.Threshold.Passes(candidateTokens, queryTokens) {
			continue
		}
		key := bucketKey(fields)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{fields: fields}
			buckets[key] = b
		}
		b.count++
		b.scoreSum += score
	}

	if len(buckets) == 0 {
		return Fields{}, document.ConsensusMeta{}
	}

	var best *bucket
	var bestKey string
	for key, b := range buckets {
		if best == nil || betterBucket(b, key, best, bestKey) {
			best = b
			bestKey = key
		}
	}

	avg := best.scoreSum / float64(maxInt(best.count, 1))
	accepted := best.count >= opts.MinConfirmations ||
		(best.count == 1 && avg >= opts.SingleMatchRatio)
	meta := document.ConsensusMeta{Count: best.count, AvgScore: avg, Accepted: accepted}
	if !accepted {
		return Fields{}, meta
	}
	return best.fields, meta
}

func bucketKey(f Fields) string {
	name := f.Artist
	if name == "" {
		name = f.Author
	}
	return strings.ToLower(name) + "\x00" + strings.ToLower(f.Title) + "\x00" + strconv.Itoa(f.Year)
}

// betterBucket orders by (count, scoreSum) with the key as a deterministic
// final tie-break so map iteration order cannot change the winner.
func betterBucket(a *bucket, aKey string, b *bucket, bKey string) bool {
	if a.count != b.count {
		return a.count > b.count
	}
	if a.scoreSum != b.scoreSum {
		return a.scoreSum > b.scoreSum
	}
	return aKey < bKey
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
