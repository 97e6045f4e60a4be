package steps

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"grabbit/internal/document"
	"grabbit/internal/pipeline"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Pink Floyd: Animals!", "pink-floyd-animals"},
		{"  ---  ", "untitled"},
		{"", "untitled"},
		{strings.Repeat("a", 100), strings.Repeat("a", 80)},
	}
	for _, tt := range tests {
		if got := slugify(tt.in); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStoreTags(t *testing.T) {
	statePath := t.TempDir()
	doc := document.New("pink floyd animals", document.InputText)
	doc.Request.Tags = []string{"vinyl-rip", "wishlist"}
	doc.Work.MediaType = document.MediaMusic
	doc.Work.Artist = "Pink Floyd"
	doc.Work.Title = "Animals"

	out, err := StoreTags(context.Background(), doc, map[string]any{"state_path": statePath}, pipeline.NewRuntime(nil, nil))
	if err != nil {
		t.Fatalf("StoreTags() error = %v", err)
	}

	if out.Tags == nil || out.Tags.Stored == "" {
		t.Fatal("no tag artifact recorded")
	}
	want := filepath.Join(statePath, "tags", "music", "pink-floyd-animals.json")
	if out.Tags.Stored != want {
		t.Errorf("Stored = %q, want %q", out.Tags.Stored, want)
	}

	raw, err := os.ReadFile(out.Tags.Stored)
	if err != nil {
		t.Fatal(err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatal(err)
	}
	if payload["title"] != "Animals" || payload["artist"] != "Pink Floyd" {
		t.Errorf("payload = %v", payload)
	}
	tags, _ := payload["tags"].([]any)
	if len(tags) != 2 || tags[0] != "vinyl-rip" {
		t.Errorf("tags = %v", tags)
	}
}

func TestStoreTagsUsesRuntimeStatePath(t *testing.T) {
	statePath := t.TempDir()
	rt := pipeline.NewRuntime(nil, nil)
	rt.StatePath = statePath

	doc := document.New("dune", document.InputText)
	doc.Request.Tags = []string{"to-read"}
	doc.Work.MediaType = document.MediaBook
	doc.Work.Title = "Dune"

	out, err := StoreTags(context.Background(), doc, map[string]any{}, rt)
	if err != nil {
		t.Fatalf("StoreTags() error = %v", err)
	}
	if !strings.HasPrefix(out.Tags.Stored, statePath) {
		t.Errorf("Stored = %q, want under the runtime state path", out.Tags.Stored)
	}
}

func TestStoreTagsWithoutTagsIsNoop(t *testing.T) {
	doc := document.New("x", document.InputText)
	out, err := StoreTags(context.Background(), doc, map[string]any{"state_path": t.TempDir()}, pipeline.NewRuntime(nil, nil))
	if err != nil {
		t.Fatalf("StoreTags() error = %v", err)
	}
	if out.Tags != nil {
		t.Errorf("Tags = %+v, want none", out.Tags)
	}
}
