package steps

import (
	"context"
	"strings"
	"testing"

	"grabbit/internal/document"
)

func recommendDoc(comments map[string][]string, candidates ...*document.Candidate) *document.Document {
	doc := document.New("pink floyd animals", document.InputText)
	doc.Work.MediaType = document.MediaMusic
	doc.Work.Candidates = candidates
	doc.Tracker = &document.TrackerData{Comments: comments}
	return doc
}

func TestApplyRecommendations(t *testing.T) {
	enriched := &document.Candidate{
		Title: "Animals Vinyl",
		Tracker: &document.CandidateTracker{
			GroupID: 10,
			Torrent: map[string]any{
				"remasterCatalogueNumber": "SHVL 815",
				"media":                   "Vinyl",
			},
		},
	}
	plain := &document.Candidate{Title: "Animals CD"}

	doc := recommendDoc(map[string][]string{
		"10": {"Get the SHVL 815 pressing", "the vinyl master is the best"},
	}, enriched, plain)

	out, err := ApplyRecommendations(context.Background(), doc, map[string]any{}, nil)
	if err != nil {
		t.Fatalf("ApplyRecommendations() error = %v", err)
	}

	rec := out.Work.Candidates[0].Recommendation
	if rec == nil {
		t.Fatal("enriched candidate got no recommendation")
	}
	if rec.Score != 500*1.0+500*0.4 {
		t.Errorf("Score = %v, want catalog and media signals", rec.Score)
	}
	found := false
	for _, m := range rec.Matches {
		if strings.HasPrefix(m, "catalog:") {
			found = true
		}
	}
	if !found {
		t.Errorf("Matches = %v, want a catalog match", rec.Matches)
	}
	if out.Work.Candidates[1].Recommendation != nil {
		t.Error("candidate without tracker data was scored")
	}
}

func TestApplyRecommendationsNormalizedFallback(t *testing.T) {
	candidate := &document.Candidate{
		Tracker: &document.CandidateTracker{
			GroupID: 7,
			Torrent: map[string]any{"remasterCatalogueNumber": "SHVL-815"},
		},
	}
	doc := recommendDoc(map[string][]string{"7": {"grab the shvl 815 press"}}, candidate)

	out, _ := ApplyRecommendations(context.Background(), doc, map[string]any{}, nil)

	if out.Work.Candidates[0].Recommendation == nil {
		t.Error("punctuation difference defeated the catalog match")
	}
}

func TestApplyRecommendationsWeightOverride(t *testing.T) {
	candidate := &document.Candidate{
		Tracker: &document.CandidateTracker{
			GroupID: 3,
			Torrent: map[string]any{"media": "Vinyl"},
		},
	}
	doc := recommendDoc(map[string][]string{"3": {"vinyl only"}}, candidate)
	cfg := map[string]any{"weight": 100.0, "media_weight": 1.0}

	out, _ := ApplyRecommendations(context.Background(), doc, cfg, nil)

	rec := out.Work.Candidates[0].Recommendation
	if rec == nil || rec.Score != 100 {
		t.Errorf("Recommendation = %+v, want score 100", rec)
	}
}

func TestApplyRecommendationsNoCommentsIsNoop(t *testing.T) {
	candidate := &document.Candidate{
		Tracker: &document.CandidateTracker{GroupID: 1, Torrent: map[string]any{"media": "CD"}},
	}
	doc := recommendDoc(nil, candidate)
	doc.Tracker = nil

	out, err := ApplyRecommendations(context.Background(), doc, map[string]any{}, nil)
	if err != nil {
		t.Fatalf("ApplyRecommendations() error = %v", err)
	}
	if out.Work.Candidates[0].Recommendation != nil {
		t.Error("scored without any comments")
	}
}

func TestSignalValueYear(t *testing.T) {
	fromTorrent := &document.Candidate{
		Tracker: &document.CandidateTracker{
			Torrent: map[string]any{"remasterYear": 1977.0},
			Group:   map[string]any{"year": 1975.0},
		},
	}
	if got := signalValue(fromTorrent, "year"); got != "1977" {
		t.Errorf("year = %q, want the remaster year", got)
	}

	fromGroup := &document.Candidate{
		Tracker: &document.CandidateTracker{Group: map[string]any{"year": 1975.0}},
	}
	if got := signalValue(fromGroup, "year"); got != "1975" {
		t.Errorf("year = %q, want the group year", got)
	}

	if got := signalValue(&document.Candidate{}, "year"); got != "" {
		t.Errorf("year = %q, want empty without tracker data", got)
	}
}
