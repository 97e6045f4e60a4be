package ranking

import (
	"regexp"
	"strconv"

	"grabbit/internal/document"
)

var (
	depthRatePattern = regexp.MustCompile(`(?i)\b(\d{1,2})\s*/\s*(\d{2,3}(?:\.\d)?)\b`)
	bitDepthPattern  = regexp.MustCompile(`(?i)\b(\d{2})\s*[- ]?bit\b`)
	sampleHzPattern  = regexp.MustCompile(`(?i)\b(\d{2,3}(?:\.\d)?)\s*k?hz\b`)
	bitratePattern   = regexp.MustCompile(`(?i)\b(\d{2,4})\s*kbps\b`)
)

// Derived audio field keys.
const (
	DerivedBitDepth      = "bit_depth"
	DerivedSampleRateKHz = "sample_rate_khz"
	DerivedBitrateKbps   = "bitrate_kbps"
)

// deriveAudioFields extracts bit depth, sample rate, and bitrate hints from
// release title text ("24/96", "16-bit", "44.1kHz", "320 kbps").
func deriveAudioFields(text string) map[string]float64 {
	if text == "" {
		return nil
	}
	derived := make(map[string]float64)
	if m := depthRatePattern.FindStringSubmatch(text); m != nil {
		if depth, err := strconv.ParseFloat(m[1], 64); err == nil {
			derived[DerivedBitDepth] = depth
		}
		if rate, err := strconv.ParseFloat(m[2], 64); err == nil {
			derived[DerivedSampleRateKHz] = rate
		}
	}
	if m := bitDepthPattern.FindStringSubmatch(text); m != nil {
		if depth, err := strconv.ParseFloat(m[1], 64); err == nil {
			derived[DerivedBitDepth] = depth
		}
	}
	if m := sampleHzPattern.FindStringSubmatch(text); m != nil {
		if rate, err := strconv.ParseFloat(m[1], 64); err == nil {
			derived[DerivedSampleRateKHz] = rate
		}
	}
	if m := bitratePattern.FindStringSubmatch(text); m != nil {
		if rate, err := strconv.ParseFloat(m[1], 64); err == nil {
			derived[DerivedBitrateKbps] = rate
		}
	}
	if len(derived) == 0 {
		return nil
	}
	return derived
}

// attachDerived merges freshly derived audio fields onto the candidate
// without overwriting values attached earlier.
func attachDerived(candidate *document.Candidate, text string) {
	derived := deriveAudioFields(text)
	if derived == nil {
		return
	}
	if candidate.Derived == nil {
		candidate.Derived = derived
		return
	}
	for key, value := range derived {
		if _, exists := candidate.Derived[key]; !exists {
			candidate.Derived[key] = value
		}
	}
}
