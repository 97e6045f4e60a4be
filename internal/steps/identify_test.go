package steps

import (
	"context"
	"reflect"
	"testing"

	"grabbit/internal/document"
	"grabbit/internal/pipeline"
)

func TestIdentifyClassifiesInput(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantType  string
		wantQuery string
	}{
		{"url", "https://example.test/page", document.InputURL, ""},
		{"image", "/tmp/cover.JPG", document.InputImage, ""},
		{"text", "pink floyd animals", document.InputText, "pink floyd animals"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &document.Document{Request: document.Request{Input: tt.input}}
			out, err := Identify(context.Background(), doc, nil, nil)
			if err != nil {
				t.Fatalf("Identify() error = %v", err)
			}
			if out.Request.InputType != tt.wantType {
				t.Errorf("InputType = %q, want %q", out.Request.InputType, tt.wantType)
			}
			if out.Request.Query != tt.wantQuery {
				t.Errorf("Query = %q, want %q", out.Request.Query, tt.wantQuery)
			}
		})
	}
}

func TestIdentifySeedsCanonicalYear(t *testing.T) {
	doc := document.New("pink floyd animals 1977", document.InputText)
	out, err := Identify(context.Background(), doc, nil, nil)
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	if out.Canonical == nil || out.Canonical.Fields["year"] != 1977 {
		t.Errorf("canonical year not seeded: %+v", out.Canonical)
	}
	if out.Request.QueryOriginal != "pink floyd animals 1977" {
		t.Errorf("QueryOriginal = %q", out.Request.QueryOriginal)
	}
}

func TestIdentifyCarriesRequestedMediaType(t *testing.T) {
	doc := document.New("dune", document.InputText)
	doc.Request.MediaType = document.MediaBook
	out, _ := Identify(context.Background(), doc, nil, nil)
	if out.Work.MediaType != document.MediaBook {
		t.Errorf("Work.MediaType = %q, want book", out.Work.MediaType)
	}
}

func prefsConfig() map[string]any {
	return map[string]any{
		"edition_keywords": map[string]any{
			"deluxe":      []any{"deluxe", "deluxe edition"},
			"anniversary": []any{"anniversary"},
		},
		"media_keywords": map[string]any{
			"vinyl": []any{"vinyl", "lp"},
			"cd":    []any{"cd"},
		},
		"format_keywords": map[string]any{
			"flac":      []any{"flac", "lossless"},
			"audiobook": []any{"audiobook"},
		},
	}
}

func TestExtractReleasePreferences(t *testing.T) {
	doc := document.New("Animals deluxe vinyl flac 1977", document.InputText)
	doc.Request.Query = doc.Request.Input
	doc.Request.QueryOriginal = doc.Request.Input

	out, err := ExtractReleasePreferences(context.Background(), doc, prefsConfig(), nil)
	if err != nil {
		t.Fatalf("ExtractReleasePreferences() error = %v", err)
	}
	prefs := out.Request.ReleasePrefs
	if prefs == nil {
		t.Fatal("no preferences extracted")
	}
	if !reflect.DeepEqual(prefs.Editions, []string{"deluxe"}) {
		t.Errorf("Editions = %v", prefs.Editions)
	}
	if !reflect.DeepEqual(prefs.Media, []string{"vinyl"}) {
		t.Errorf("Media = %v", prefs.Media)
	}
	if !reflect.DeepEqual(prefs.Formats, []string{"flac"}) {
		t.Errorf("Formats = %v", prefs.Formats)
	}
	if !reflect.DeepEqual(prefs.Years, []int{1977}) {
		t.Errorf("Years = %v", prefs.Years)
	}
	if !out.Request.ExplicitVersion {
		t.Error("ExplicitVersion = false, want true")
	}
}

func TestExtractReleasePreferencesYearOnly(t *testing.T) {
	doc := document.New("Animals 1977", document.InputText)
	doc.Request.Query = doc.Request.Input

	out, _ := ExtractReleasePreferences(context.Background(), doc, prefsConfig(), nil)

	if out.Request.ReleasePrefs == nil || len(out.Request.ReleasePrefs.Years) != 1 {
		t.Fatalf("ReleasePrefs = %+v", out.Request.ReleasePrefs)
	}
	if out.Request.ExplicitVersion {
		t.Error("a year alone must not mark an explicit version request")
	}
}

func TestExtractReleasePreferencesCatalogNumber(t *testing.T) {
	doc := document.New("Animals SHVL-815", document.InputText)
	doc.Request.Query = doc.Request.Input

	out, _ := ExtractReleasePreferences(context.Background(), doc, prefsConfig(), nil)

	prefs := out.Request.ReleasePrefs
	if prefs == nil || !reflect.DeepEqual(prefs.CatalogNumbers, []string{"SHVL-815"}) {
		t.Fatalf("CatalogNumbers = %+v", prefs)
	}
	if !out.Request.ExplicitVersion {
		t.Error("catalog number must mark an explicit version request")
	}
}

func TestExtractReleasePreferencesNothingFound(t *testing.T) {
	doc := document.New("pink floyd animals", document.InputText)
	doc.Request.Query = doc.Request.Input

	out, _ := ExtractReleasePreferences(context.Background(), doc, prefsConfig(), nil)

	if out.Request.ReleasePrefs != nil {
		t.Errorf("ReleasePrefs = %+v, want nil", out.Request.ReleasePrefs)
	}
	if out.Request.ExplicitVersion {
		t.Error("ExplicitVersion set with no hints")
	}
}

func TestMatchKeywordGroupsWholeWords(t *testing.T) {
	got := matchKeywordGroups("abcd quality", map[string]any{
		"cd": []any{"cd"},
	})
	if got != nil {
		t.Errorf("matchKeywordGroups() = %v, 'cd' matched inside 'abcd'", got)
	}
}

func TestDetermineMediaTypeKeywordScoring(t *testing.T) {
	doc := document.New("animals album vinyl discography", document.InputText)
	doc.Request.Query = doc.Request.Input
	cfg := map[string]any{
		"keywords": map[string]any{
			document.MediaMusic: []any{"album", "vinyl", "discography"},
			document.MediaMovie: []any{"trailer", "cast"},
		},
	}

	out, err := DetermineMediaType(context.Background(), doc, cfg, pipeline.NewRuntime(nil, nil))
	if err != nil {
		t.Fatalf("DetermineMediaType() error = %v", err)
	}
	if out.Work.MediaType != document.MediaMusic {
		t.Errorf("MediaType = %q, want music", out.Work.MediaType)
	}
	if out.Decision == nil || out.Decision.MediaTypeConfidence < 2 {
		t.Errorf("MediaTypeConfidence = %+v", out.Decision)
	}
}

func TestDetermineMediaTypeEpisodeBoost(t *testing.T) {
	doc := document.New("severance s02e03", document.InputText)
	doc.Request.Query = doc.Request.Input
	cfg := map[string]any{"keywords": map[string]any{}}

	out, _ := DetermineMediaType(context.Background(), doc, cfg, pipeline.NewRuntime(nil, nil))

	if out.Work.MediaType != document.MediaTV {
		t.Errorf("MediaType = %q, want tv for episode pattern", out.Work.MediaType)
	}
}

func TestDetermineMediaTypeSkipsTypedDocument(t *testing.T) {
	doc := document.New("already typed", document.InputText)
	doc.Work.MediaType = document.MediaBook

	out, _ := DetermineMediaType(context.Background(), doc, map[string]any{}, pipeline.NewRuntime(nil, nil))

	if out.Work.MediaType != document.MediaBook {
		t.Errorf("MediaType = %q, step must not re-type", out.Work.MediaType)
	}
}

func TestInferMediaType(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"severance s01e01", document.MediaTV},
		{"dune movie", document.MediaMovie},
		{"dune by frank herbert", document.MediaBook},
		{"project hail mary audiobook", document.MediaBook},
		{"pink floyd - animals", document.MediaMusic},
		{"ambiguous", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := inferMediaType(tt.query); got != tt.want {
			t.Errorf("inferMediaType(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}
