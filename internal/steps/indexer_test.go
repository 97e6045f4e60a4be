package steps

import (
	"reflect"
	"strings"
	"testing"

	"grabbit/internal/document"
	"grabbit/internal/transport"
)

func TestMapCandidates(t *testing.T) {
	payload := []any{
		map[string]any{
			"title":       "Pink Floyd - Animals FLAC",
			"guid":        "https://indexer.test/details/1?apikey=hunter2",
			"downloadUrl": "https://indexer.test/dl/1?apikey=hunter2",
			"size":        1_200_000_000.0,
			"seeders":     42.0,
			"indexerId":   7.0,
			"categories": []any{
				map[string]any{"id": 3000.0},
			},
		},
		map[string]any{"seeders": 5.0},
	}

	candidates := mapCandidates(payload, map[string]any{}, 50)

	if len(candidates) != 1 {
		t.Fatalf("candidates = %d, want 1 (entry without title/guid dropped)", len(candidates))
	}
	c := candidates[0]
	if c.Title != "Pink Floyd - Animals FLAC" {
		t.Errorf("Title = %q", c.Title)
	}
	if c.Size != 1_200_000_000 || c.Seeders != 42 || c.IndexerID != 7 {
		t.Errorf("numeric fields = size %d, seeders %d, indexerId %d", c.Size, c.Seeders, c.IndexerID)
	}
	if !reflect.DeepEqual(c.CategoryIDs, []int64{3000}) {
		t.Errorf("CategoryIDs = %v", c.CategoryIDs)
	}
	if strings.Contains(c.DownloadURL, "hunter2") {
		t.Errorf("DownloadURL leaked credentials: %s", c.DownloadURL)
	}
	if raw, ok := c.Raw["downloadUrl"].(string); !ok || strings.Contains(raw, "hunter2") {
		t.Errorf("raw payload leaked credentials: %v", c.Raw["downloadUrl"])
	}
}

func TestMapCandidatesFieldMapping(t *testing.T) {
	payload := map[string]any{
		"releases": []any{
			map[string]any{"releaseTitle": "mapped", "link": "https://x.test/info"},
		},
	}
	responseCfg := map[string]any{
		"fields": map[string]any{
			"title":    "releaseTitle",
			"info_url": "link",
		},
		"include_raw": false,
	}

	candidates := mapCandidates(payload, responseCfg, 50)
	if len(candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(candidates))
	}
	if candidates[0].Title != "mapped" || candidates[0].InfoURL != "https://x.test/info" {
		t.Errorf("candidate = %+v", candidates[0])
	}
	if candidates[0].Raw != nil {
		t.Error("raw payload kept despite include_raw = false")
	}
}

func TestMapCandidatesLimit(t *testing.T) {
	items := make([]any, 0, 10)
	for i := 0; i < 10; i++ {
		items = append(items, map[string]any{"title": "t"})
	}
	if got := mapCandidates(items, nil, 4); len(got) != 4 {
		t.Errorf("candidates = %d, want the limit of 4", len(got))
	}
}

func TestInjectSearchScope(t *testing.T) {
	raw := map[string]any{
		"indexer": map[string]any{
			"search": map[string]any{
				"indexer_ids": map[string]any{"music": []any{1.0, 2.0}},
				"categories":  map[string]any{"music": []any{3000.0}},
			},
		},
	}

	jsonReq := transport.Request{JSONBody: map[string]any{"query": "animals"}}
	injectSearchScope(&jsonReq, raw, "music")
	body := jsonReq.JSONBody.(map[string]any)
	if !reflect.DeepEqual(body["indexerIds"], []any{int64(1), int64(2)}) {
		t.Errorf("indexerIds = %v", body["indexerIds"])
	}
	if !reflect.DeepEqual(body["categories"], []any{int64(3000)}) {
		t.Errorf("categories = %v", body["categories"])
	}

	getReq := transport.Request{}
	injectSearchScope(&getReq, raw, "music")
	if !reflect.DeepEqual(getReq.Params["categories"], []any{int64(3000)}) {
		t.Errorf("params categories = %v", getReq.Params["categories"])
	}
}

func TestInjectSearchScopeNoScopeConfigured(t *testing.T) {
	req := transport.Request{}
	injectSearchScope(&req, map[string]any{}, "music")
	if req.Params != nil {
		t.Errorf("Params = %v, want untouched", req.Params)
	}
}

func TestResolveDownloadClient(t *testing.T) {
	raw := map[string]any{
		"indexer": map[string]any{
			"download_client_rules": []any{
				map[string]any{"client_id": 2.0, "categories": []any{3030.0}},
				map[string]any{"client_id": 1.0, "category_prefixes": []any{3.0}},
			},
		},
	}

	tests := []struct {
		name      string
		candidate *document.Candidate
		want      int
	}{
		{"exact category wins first rule", &document.Candidate{CategoryIDs: []int64{3030}}, 2},
		{"prefix rule", &document.Candidate{CategoryIDs: []int64{3999}}, 1},
		{"no rule matches", &document.Candidate{CategoryIDs: []int64{8000}}, 0},
		{"no categories", &document.Candidate{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveDownloadClient(map[string]any{}, raw, tt.candidate); got != tt.want {
				t.Errorf("resolveDownloadClient() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestResolveDownloadClientHundredsMode(t *testing.T) {
	cfg := map[string]any{
		"download_client_rules": []any{
			map[string]any{"client_id": 3.0, "category_prefixes": []any{30.0}, "prefix_mode": "hundreds"},
		},
	}
	candidate := &document.Candidate{CategoryIDs: []int64{3040}}
	if got := resolveDownloadClient(cfg, map[string]any{}, candidate); got != 3 {
		t.Errorf("resolveDownloadClient() = %d, want 3", got)
	}
}

func TestBackfillFromRaw(t *testing.T) {
	candidate := &document.Candidate{
		Raw: map[string]any{"guid": "https://indexer.test/1", "indexerId": 9.0},
	}
	backfillFromRaw(candidate)
	if candidate.GUID != "https://indexer.test/1" || candidate.IndexerID != 9 {
		t.Errorf("candidate = %+v", candidate)
	}

	set := &document.Candidate{GUID: "keep", IndexerID: 4, Raw: map[string]any{"guid": "other", "indexerId": 9.0}}
	backfillFromRaw(set)
	if set.GUID != "keep" || set.IndexerID != 4 {
		t.Errorf("backfill overwrote mapped fields: %+v", set)
	}
}

func TestSelectedCandidatePrecedence(t *testing.T) {
	fromDecision := &document.Candidate{Title: "decision"}
	fromWork := &document.Candidate{Title: "work"}

	doc := document.New("x", document.InputText)
	doc.Work.Selected = fromWork
	if got := selectedCandidate(doc); got != fromWork {
		t.Errorf("selectedCandidate() = %v, want work selection", got)
	}

	doc.Decision = &document.Decision{Selected: fromDecision}
	if got := selectedCandidate(doc); got != fromDecision {
		t.Errorf("selectedCandidate() = %v, want decision selection", got)
	}
}
