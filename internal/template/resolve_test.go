package template

import (
	"reflect"
	"testing"

	"grabbit/internal/document"
)

func testContext() Context {
	doc := document.New("pink floyd animals", document.InputText)
	doc.Request.Query = "pink floyd animals"
	doc.Work.Artist = "Pink Floyd"
	doc.Work.Title = "Animals"
	doc.Work.Year = 1977
	doc.OCRText = "scanned text"
	return NewContext(doc, map[string]any{
		"indexer": map[string]any{
			"api_key": "secret",
			"limit":   100,
			"suffix":  "",
		},
	})
}

func TestResolveWholeFieldKeepsType(t *testing.T) {
	ctx := testContext()

	tests := []struct {
		name string
		tmpl string
		want any
	}{
		{"int field", "{work.year}", 1977},
		{"string field", "{work.title}", "Animals"},
		{"config int", "{config.indexer.limit}", 100},
		{"document view", "{data.ocr_text}", "scanned text"},
		{"unresolvable stays literal", "{work.nonexistent}", "{work.nonexistent}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.tmpl, ctx)
			if got != tt.want {
				t.Errorf("Resolve(%q) = %v (%T), want %v (%T)", tt.tmpl, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestResolveInterpolation(t *testing.T) {
	ctx := testContext()

	tests := []struct {
		name string
		tmpl string
		want string
	}{
		{"mixed text", "search {request.query} now", "search pink floyd animals now"},
		{"number in text", "{work.artist} ({work.year})", "Pink Floyd (1977)"},
		{"unresolved placeholder kept", "q={work.missing}&x=1", "q={work.missing}&x=1"},
		{"empty value substitutes", "q=[{config.indexer.suffix}]", "q=[]"},
		{"no placeholders", "plain text", "plain text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.tmpl, ctx)
			if got != tt.want {
				t.Errorf("Resolve(%q) = %v, want %q", tt.tmpl, got, tt.want)
			}
		})
	}
}

func TestResolveNestedStructure(t *testing.T) {
	ctx := testContext()
	tmpl := map[string]any{
		"url": "https://indexer.example/api?q={request.query}",
		"headers": map[string]any{
			"X-Api-Key": "{config.indexer.api_key}",
		},
		"json": map[string]any{
			"limit": "{config.indexer.limit}",
			"tags":  []any{"{work.title}", "fixed"},
		},
		"timeout": 30,
	}

	got := ResolveMap(tmpl, ctx)

	want := map[string]any{
		"url": "https://indexer.example/api?q=pink floyd animals",
		"headers": map[string]any{
			"X-Api-Key": "secret",
		},
		"json": map[string]any{
			"limit": 100,
			"tags":  []any{"Animals", "fixed"},
		},
		"timeout": 30,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ResolveMap() = %#v, want %#v", got, want)
	}
}

func TestResolveMapNil(t *testing.T) {
	if got := ResolveMap(nil, testContext()); got != nil {
		t.Errorf("ResolveMap(nil) = %v, want nil", got)
	}
}

func TestResolveDecisionViewAbsentWhenNil(t *testing.T) {
	ctx := testContext()
	if got := Resolve("{decision.status}", ctx); got != "{decision.status}" {
		t.Errorf("Resolve() = %v, want literal placeholder with no decision", got)
	}
}
