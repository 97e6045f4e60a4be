// Package decision resolves a ranked candidate list into a terminal
// decision: a selected release, a set of options needing a human choice, or
// nothing to offer.
package decision

import (
	"grabbit/internal/document"
)

// Options controls the decision state machine.
type Options struct {
	// ChoiceIndex is an explicit zero-based selection supplied by the
	// caller; nil means no explicit choice.
	ChoiceIndex *int
	// AutoSelectExplicit selects the first candidate when the request
	// carries an explicit version preference.
	AutoSelectExplicit bool
	// AutoSelectFormats enables audio-format tier selection for music.
	AutoSelectFormats bool
}

// DefaultOptions enables both auto-selection behaviors.
func DefaultOptions() Options {
	return Options{AutoSelectExplicit: true, AutoSelectFormats: true}
}

// Decide evaluates the decision rules in strict priority order and writes
// the outcome onto the document. Earlier rules always win: an externally
// supplied selection beats an explicit index, which beats preference and
// format auto-selection, which beat candidate-count rules.
func Decide(doc *document.Document, opts Options) {
	work := &doc.Work
	candidates := work.Candidates

	if work.Selected != nil {
		doc.Decision = &document.Decision{
			Status:   document.StatusSelected,
			Selected: work.Selected,
			Index:    indexOfCandidate(candidates, work.Selected),
		}
		return
	}

	if opts.ChoiceIndex != nil && len(candidates) > 0 {
		idx := *opts.ChoiceIndex
		if idx >= 0 && idx < len(candidates) {
			selectCandidate(doc, candidates[idx], idx, document.ReasonExplicitChoice)
			return
		}
	}

	if doc.Request.ExplicitVersion && opts.AutoSelectExplicit && len(candidates) > 0 {
		// The list was already narrowed by the version filter; the head is
		// the best preference match.
		selectCandidate(doc, candidates[0], 0, document.ReasonExplicitVersion)
		return
	}

	mediaType := work.MediaType
	if mediaType == "" {
		mediaType = doc.Request.MediaType
	}
	if opts.AutoSelectFormats && mediaType == document.MediaMusic && len(candidates) > 1 {
		if selected, idx, ok := selectByFormat(candidates); ok {
			selectCandidate(doc, selected, idx, document.ReasonAutoFormat)
			return
		}
	}

	switch len(candidates) {
	case 1:
		selectCandidate(doc, candidates[0], 0, "")
	case 0:
		doc.Decision = &document.Decision{
			Status:  document.StatusNeedsChoice,
			Reason:  document.ReasonNoCandidates,
			Options: []*document.Candidate{},
		}
	default:
		doc.Decision = &document.Decision{
			Status:  document.StatusNeedsChoice,
			Reason:  document.ReasonMultipleCandidates,
			Options: candidates,
		}
	}
}

func selectCandidate(doc *document.Document, candidate *document.Candidate, idx int, reason string) {
	doc.Work.Selected = candidate
	index := idx
	doc.Decision = &document.Decision{
		Status:   document.StatusSelected,
		Selected: candidate,
		Index:    &index,
		Reason:   reason,
	}
}

func indexOfCandidate(candidates []*document.Candidate, target *document.Candidate) *int {
	for i, candidate := range candidates {
		if candidate == target {
			idx := i
			return &idx
		}
	}
	return nil
}
