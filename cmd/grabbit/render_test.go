package main

import (
	"strings"
	"testing"

	"grabbit/internal/batch"
	"grabbit/internal/document"
)

func TestRenderDocumentSelected(t *testing.T) {
	doc := document.New("pink floyd animals", document.InputText)
	doc.Work.Title = "Animals"
	doc.Work.Artist = "Pink Floyd"
	doc.Work.Year = 1977
	doc.Work.MediaType = document.MediaMusic
	doc.Decision = &document.Decision{
		Status:   document.StatusSelected,
		Reason:   document.ReasonAutoFormat,
		Selected: &document.Candidate{Title: "Animals FLAC", Size: 1 << 30, Seeders: 42},
	}

	var out strings.Builder
	renderDocument(&out, doc)
	got := out.String()

	if !strings.Contains(got, "Identified: Pink Floyd - Animals (1977) [music]") {
		t.Errorf("missing identity line:\n%s", got)
	}
	if !strings.Contains(got, "Decision: selected (auto_format)") {
		t.Errorf("missing decision line:\n%s", got)
	}
	if !strings.Contains(got, "Animals FLAC") || !strings.Contains(got, "1.0 GiB") {
		t.Errorf("missing candidate detail:\n%s", got)
	}
}

func TestRenderDocumentNeedsChoice(t *testing.T) {
	doc := document.New("x", document.InputText)
	doc.Decision = &document.Decision{
		Status: document.StatusNeedsChoice,
		Reason: document.ReasonMultipleCandidates,
		Options: []*document.Candidate{
			{Title: "Animals FLAC", Seeders: 42},
			{Title: "Animals MP3 320", Seeders: 7},
		},
	}

	var out strings.Builder
	renderDocument(&out, doc)
	got := out.String()

	if !strings.Contains(got, "needs choice") || !strings.Contains(got, "--choice") {
		t.Errorf("missing choice instruction:\n%s", got)
	}
	if !strings.Contains(got, "Animals FLAC") || !strings.Contains(got, "Animals MP3 320") {
		t.Errorf("options table incomplete:\n%s", got)
	}
}

func TestRenderDocumentError(t *testing.T) {
	doc := document.New("x", document.InputText)
	doc.SetError(document.ErrorInfo{
		Message: "no api key configured",
		Step:    "indexer_search",
		Code:    "auth_missing",
		Hint:    "add the provider api key to the configuration",
	})

	var out strings.Builder
	renderDocument(&out, doc)
	got := out.String()

	if !strings.Contains(got, "error at indexer_search [auth_missing]: no api key configured") {
		t.Errorf("missing error line:\n%s", got)
	}
	if !strings.Contains(got, "hint: add the provider api key") {
		t.Errorf("missing hint line:\n%s", got)
	}
}

func TestRenderDocumentWarningsAndDispatch(t *testing.T) {
	doc := document.New("x", document.InputText)
	doc.AddWarning("web_search", "provider slow")
	doc.EnsureDispatch()["indexer"] = &document.DispatchRecord{
		Status: document.DispatchDryRun,
		Reason: "dry run",
	}

	var out strings.Builder
	renderDocument(&out, doc)
	got := out.String()

	if !strings.Contains(got, "warning (web_search): provider slow") {
		t.Errorf("missing warning:\n%s", got)
	}
	if !strings.Contains(got, "Dispatch indexer: dry_run (dry run)") {
		t.Errorf("missing dispatch receipt:\n%s", got)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "-"},
		{512, "512 B"},
		{3 << 20, "3.0 MiB"},
		{(1 << 30) + (1 << 29), "1.5 GiB"},
	}
	for _, tt := range tests {
		if got := formatSize(tt.size); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestRenderBatchSummary(t *testing.T) {
	complete := document.New("a", document.InputText)
	complete.Decision = &document.Decision{
		Status:   document.StatusSelected,
		Selected: &document.Candidate{Title: "Animals FLAC"},
	}
	choice := document.New("b", document.InputText)
	choice.Decision = &document.Decision{
		Status:  document.StatusNeedsChoice,
		Options: []*document.Candidate{{Title: "x"}, {Title: "y"}},
	}
	failed := document.New("c", document.InputText)
	failed.SetError(document.ErrorInfo{Message: "boom"})

	var out strings.Builder
	renderBatchSummary(&out, []batch.Outcome{
		{Input: "a", Doc: complete},
		{Input: "b", Doc: choice},
		{Input: "c", Doc: failed},
	})
	got := out.String()

	if !strings.Contains(got, "1 complete, 1 need a choice, 1 failed") {
		t.Errorf("missing totals:\n%s", got)
	}
	if !strings.Contains(got, "2 options") {
		t.Errorf("missing choice detail:\n%s", got)
	}
	if !strings.Contains(got, "boom") {
		t.Errorf("missing failure detail:\n%s", got)
	}
}

func TestStepLabel(t *testing.T) {
	if got := stepLabel("indexer_search"); got != "Indexer Search" {
		t.Errorf("stepLabel() = %q", got)
	}
}
