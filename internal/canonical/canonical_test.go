package canonical

import (
	"reflect"
	"testing"

	"grabbit/internal/document"
)

func TestSetFieldTrustOrdering(t *testing.T) {
	doc := document.New("x", document.InputText)

	SetField(doc, "title", "From Provider", SourceProvider, 0.5)
	if got := doc.Canonical.Fields["title"]; got != "From Provider" {
		t.Fatalf("title = %v after first write", got)
	}

	SetField(doc, "title", "From Input", SourceInput, 0.9)
	if got := doc.Canonical.Fields["title"]; got != "From Input" {
		t.Errorf("higher-trust source did not overwrite: title = %v", got)
	}

	SetField(doc, "title", "From Provider Again", SourceProvider, 0.5)
	if got := doc.Canonical.Fields["title"]; got != "From Input" {
		t.Errorf("lower-trust source overwrote: title = %v", got)
	}
}

func TestSetFieldEqualTrustOverwrites(t *testing.T) {
	doc := document.New("x", document.InputText)
	SetField(doc, "title", "From Page", SourceURL, 0.6)
	SetField(doc, "title", "From Web", SourceWebSearch, 0.7)
	if got := doc.Canonical.Fields["title"]; got != "From Web" {
		t.Errorf("equal-trust source did not overwrite: title = %v", got)
	}
}

func TestSetFieldIgnoresEmpty(t *testing.T) {
	doc := document.New("x", document.InputText)
	SetField(doc, "title", "", SourceInput, 1)
	SetField(doc, "year", nil, SourceInput, 1)
	if doc.Canonical != nil && len(doc.Canonical.Fields) != 0 {
		t.Errorf("empty values were stored: %v", doc.Canonical.Fields)
	}
}

func TestSetFieldProvenanceAccumulates(t *testing.T) {
	doc := document.New("x", document.InputText)
	SetField(doc, "title", "A", SourceProvider, 0.5)
	SetField(doc, "title", "B", SourceWebSearch, 0.7)
	SetField(doc, "title", "C", SourceInput, 0.9)

	prov := doc.Canonical.Provenance["title"]
	if prov.Source != SourceInput {
		t.Errorf("Source = %q, want %q", prov.Source, SourceInput)
	}
	want := []string{SourceInput, SourceProvider, SourceWebSearch}
	if !reflect.DeepEqual(prov.Sources, want) {
		t.Errorf("Sources = %v, want %v", prov.Sources, want)
	}
	if prov.At == "" {
		t.Error("At not recorded")
	}
}

func TestMergeFromWork(t *testing.T) {
	doc := document.New("x", document.InputText)
	doc.Work.Artist = "Pink Floyd"
	doc.Work.Title = "Animals"
	doc.Work.Year = 1977

	MergeFromWork(doc, SourceWebSearch)

	if doc.Canonical.Fields["artist"] != "Pink Floyd" {
		t.Errorf("artist = %v", doc.Canonical.Fields["artist"])
	}
	if doc.Canonical.Fields["year"] != 1977 {
		t.Errorf("year = %v", doc.Canonical.Fields["year"])
	}
	if _, ok := doc.Canonical.Fields["author"]; ok {
		t.Error("unset author field was merged")
	}
}

func TestMissing(t *testing.T) {
	doc := document.New("x", document.InputText)
	if got := Missing(doc, document.MediaMusic); len(got) != 4 {
		t.Fatalf("Missing() = %v, want all four music fields", got)
	}

	SetField(doc, "artist", "Pink Floyd", SourceInput, 1)
	SetField(doc, "title", "Animals", SourceInput, 1)
	got := Missing(doc, document.MediaMusic)
	want := []string{"year", "label"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Missing() = %v, want %v", got, want)
	}
}

func TestSchemaUnknownMediaType(t *testing.T) {
	if got := Schema("podcast"); got != nil {
		t.Errorf("Schema(podcast) = %v, want nil", got)
	}
}
