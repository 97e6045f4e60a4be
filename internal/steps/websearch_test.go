package steps

import (
	"testing"

	"grabbit/internal/document"
)

func TestMapSearchResults(t *testing.T) {
	payload := map[string]any{
		"data": []any{
			map[string]any{"t": 0.0, "title": "skipped info card", "url": "https://kagi.test/card"},
			map[string]any{"t": 1.0, "title": "Pink Floyd - Animals", "url": "https://discogs.test/1", "snippet": "1977 album"},
			map[string]any{"t": 1.0, "title": "Animals review", "url": "https://rym.test/2"},
			map[string]any{"t": 1.0},
		},
	}
	responseCfg := map[string]any{
		"results_path": "data",
		"filter": map[string]any{
			"field":  "t",
			"equals": 1.0,
		},
	}

	results := mapSearchResults(payload, responseCfg, 10)

	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Title != "Pink Floyd - Animals" || results[0].Snippet != "1977 album" {
		t.Errorf("first result = %+v", results[0])
	}
}

func TestMapSearchResultsFallbackKeys(t *testing.T) {
	payload := map[string]any{
		"results": []any{
			map[string]any{"title": "hit", "url": "https://x.test"},
		},
	}

	results := mapSearchResults(payload, nil, 10)
	if len(results) != 1 || results[0].Title != "hit" {
		t.Errorf("results = %+v", results)
	}
}

func TestMapSearchResultsFieldMapping(t *testing.T) {
	payload := map[string]any{
		"web": map[string]any{
			"results": []any{
				map[string]any{"name": "mapped", "link": "https://x.test", "description": "snip"},
			},
		},
	}
	responseCfg := map[string]any{
		"results_path": "web.results",
		"fields": map[string]any{
			"title":   "name",
			"url":     "link",
			"snippet": "description",
		},
	}

	results := mapSearchResults(payload, responseCfg, 10)
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if results[0].Title != "mapped" || results[0].URL != "https://x.test" || results[0].Snippet != "snip" {
		t.Errorf("result = %+v", results[0])
	}
}

func TestMapSearchResultsHonorsLimit(t *testing.T) {
	items := make([]any, 0, 8)
	for i := 0; i < 8; i++ {
		items = append(items, map[string]any{"title": "t", "url": "https://x.test"})
	}
	results := mapSearchResults(map[string]any{"results": items}, nil, 3)
	if len(results) != 3 {
		t.Errorf("results = %d, want the limit of 3", len(results))
	}
}

func TestExtractExternalIDs(t *testing.T) {
	doc := document.New("blade runner", document.InputText)
	extractExternalIDs(doc, []*document.SearchResult{
		{URL: "https://www.themoviedb.org/movie/78-blade-runner"},
		{URL: "https://thetvdb.com/series/blade-runner-12345"},
	})

	if doc.Work.TMDBID != 78 {
		t.Errorf("TMDBID = %d, want 78", doc.Work.TMDBID)
	}
	if doc.Work.TVDBID != 12345 {
		t.Errorf("TVDBID = %d, want 12345", doc.Work.TVDBID)
	}
}

func TestExtractExternalIDsKeepsFirst(t *testing.T) {
	doc := document.New("x", document.InputText)
	doc.Work.TMDBID = 99
	extractExternalIDs(doc, []*document.SearchResult{
		{URL: "https://www.themoviedb.org/movie/100"},
	})
	if doc.Work.TMDBID != 99 {
		t.Errorf("TMDBID = %d, an already-known id was overwritten", doc.Work.TMDBID)
	}
}

func TestRebuildQuery(t *testing.T) {
	tests := []struct {
		name      string
		mediaType string
		work      document.Work
		want      string
	}{
		{
			"music",
			document.MediaMusic,
			document.Work{Artist: "Pink Floyd", Title: "Animals", Year: 1977},
			"Pink Floyd - Animals (1977)",
		},
		{
			"music without artist",
			document.MediaMusic,
			document.Work{Title: "Animals"},
			"",
		},
		{
			"book",
			document.MediaBook,
			document.Work{Title: "Dune", Author: "Frank Herbert"},
			"Dune Frank Herbert",
		},
		{
			"movie",
			document.MediaMovie,
			document.Work{Title: "Blade Runner", Year: 1982},
			"Blade Runner (1982)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := document.New("x", document.InputText)
			doc.Work = tt.work
			if got := rebuildQuery(doc, tt.mediaType); got != tt.want {
				t.Errorf("rebuildQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLooseEqual(t *testing.T) {
	tests := []struct {
		a, b any
		want bool
	}{
		{1.0, 1, true},
		{"1", 1.0, true},
		{"a", "a", true},
		{"a", "b", false},
		{2.0, 1.0, false},
	}
	for _, tt := range tests {
		if got := looseEqual(tt.a, tt.b); got != tt.want {
			t.Errorf("looseEqual(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
