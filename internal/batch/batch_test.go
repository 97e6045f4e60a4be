package batch

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"grabbit/internal/config"
	"grabbit/internal/document"
	"grabbit/internal/pipeline"
	"grabbit/internal/steperr"
)

func batchConfig() *config.Config {
	return &config.Config{
		Workflows: []config.Workflow{
			{Name: "music", Match: map[string]string{"media_type": "music"}, Steps: []string{"mark"}},
		},
		Steps: map[string]map[string]any{},
		Raw:   map[string]any{},
	}
}

func markStep(ctx context.Context, doc *document.Document, cfg map[string]any, rt *pipeline.Runtime) (*document.Document, error) {
	doc.Work.Title = doc.Request.Input
	return doc, nil
}

func TestRunPreservesInputOrder(t *testing.T) {
	builtins := map[string]pipeline.StepFunc{"mark": markStep}
	proc := NewProcessor(batchConfig(), nil, nil, builtins)

	inputs := []string{"animals", "wish you were here", "the wall", "meddle", "animals again"}
	outcomes, err := proc.Run(context.Background(), inputs, Options{MediaType: "music", Concurrency: 3})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(outcomes) != len(inputs) {
		t.Fatalf("outcomes = %d, want %d", len(outcomes), len(inputs))
	}
	for i, outcome := range outcomes {
		if outcome.Input != inputs[i] {
			t.Errorf("outcome[%d].Input = %q, want %q", i, outcome.Input, inputs[i])
		}
		if outcome.Doc == nil || outcome.Doc.Work.Title != inputs[i] {
			t.Errorf("outcome[%d] document not run: %+v", i, outcome.Doc)
		}
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	var mu sync.Mutex
	var active, peak int32
	gate := func(ctx context.Context, doc *document.Document, cfg map[string]any, rt *pipeline.Runtime) (*document.Document, error) {
		mu.Lock()
		active++
		if active > peak {
			peak = active
		}
		mu.Unlock()
		time.Sleep(2 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		return doc, nil
	}

	proc := NewProcessor(batchConfig(), nil, nil, map[string]pipeline.StepFunc{"mark": gate})
	inputs := make([]string, 16)
	for i := range inputs {
		inputs[i] = "album"
	}
	if _, err := proc.Run(context.Background(), inputs, Options{MediaType: "music", Concurrency: 2}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if peak > 2 {
		t.Errorf("peak concurrency = %d, want at most 2", peak)
	}
}

func TestRunCarriesFailuresOnDocuments(t *testing.T) {
	fail := func(ctx context.Context, doc *document.Document, cfg map[string]any, rt *pipeline.Runtime) (*document.Document, error) {
		if doc.Request.Input == "broken" {
			return doc, steperr.New(steperr.KindNetwork, "mark", "provider unreachable")
		}
		return doc, nil
	}

	proc := NewProcessor(batchConfig(), nil, nil, map[string]pipeline.StepFunc{"mark": fail})
	outcomes, err := proc.Run(context.Background(), []string{"fine", "broken"}, Options{MediaType: "music"})
	if err != nil {
		t.Fatalf("Run() error = %v, want failures carried on the documents", err)
	}
	if outcomes[0].Failed() {
		t.Errorf("outcome[0] failed: %+v", outcomes[0].Doc.Error)
	}
	if !outcomes[1].Failed() {
		t.Error("outcome[1] should have failed")
	}
	if code := outcomes[1].Doc.Error.Code; code != "network" {
		t.Errorf("error code = %q, want network", code)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	slow := func(ctx context.Context, doc *document.Document, cfg map[string]any, rt *pipeline.Runtime) (*document.Document, error) {
		calls.Add(1)
		cancel()
		return doc, nil
	}

	proc := NewProcessor(batchConfig(), nil, nil, map[string]pipeline.StepFunc{"mark": slow})
	inputs := make([]string, 32)
	for i := range inputs {
		inputs[i] = "album"
	}
	if _, err := proc.Run(ctx, inputs, Options{MediaType: "music", Concurrency: 1}); err == nil {
		t.Fatal("Run() did not surface cancellation")
	}
	if got := calls.Load(); got >= 32 {
		t.Errorf("calls = %d, cancellation did not stop the batch early", got)
	}
}

func TestOutcomeNeedsChoice(t *testing.T) {
	doc := document.New("x", document.InputText)
	doc.Decision = &document.Decision{Status: document.StatusNeedsChoice}

	if !(Outcome{Doc: doc}).NeedsChoice() {
		t.Error("NeedsChoice() = false for a needs_choice decision")
	}
	if (Outcome{}).NeedsChoice() {
		t.Error("NeedsChoice() = true for a missing document")
	}
	if (Outcome{Doc: document.New("x", document.InputText)}).Failed() {
		t.Error("Failed() = true for a clean document")
	}
}

func TestReadInputs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.txt")
	content := "pink floyd animals\n\n# a comment\n  the wall  \n#\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadInputs(path)
	if err != nil {
		t.Fatalf("ReadInputs() error = %v", err)
	}
	want := []string{"pink floyd animals", "the wall"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadInputs() = %v, want %v", got, want)
	}
}

func TestReadInputsMissingFile(t *testing.T) {
	if _, err := ReadInputs(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("ReadInputs() accepted a missing file")
	}
}
