package steps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"grabbit/internal/cache"
	"grabbit/internal/config"
	"grabbit/internal/document"
	"grabbit/internal/pipeline"
	"grabbit/internal/transport"
)

func runtimeWithRaw(raw map[string]any) *pipeline.Runtime {
	rt := pipeline.NewRuntime(&config.Config{Raw: raw}, nil)
	return rt
}

func TestBuildRequest(t *testing.T) {
	doc := document.New("pink floyd animals", document.InputText)
	doc.Request.Query = "pink floyd animals"
	rt := runtimeWithRaw(map[string]any{
		"indexer": map[string]any{"url": "https://indexer.test", "api_key": "secret"},
	})

	req, err := buildRequest(doc, rt, map[string]any{
		"url":    "{config.indexer.url}/api/v1/search",
		"method": "POST",
		"headers": map[string]any{
			"X-Api-Key": "{config.indexer.api_key}",
		},
		"json": map[string]any{
			"query": "{request.query}",
		},
		"timeout": 15.0,
	})
	if err != nil {
		t.Fatalf("buildRequest() error = %v", err)
	}
	if req.URL != "https://indexer.test/api/v1/search" {
		t.Errorf("URL = %q", req.URL)
	}
	if req.Headers["X-Api-Key"] != "secret" {
		t.Errorf("headers = %v", req.Headers)
	}
	body := req.JSONBody.(map[string]any)
	if body["query"] != "pink floyd animals" {
		t.Errorf("body = %v", body)
	}
	if req.Timeout != 15*time.Second {
		t.Errorf("Timeout = %v", req.Timeout)
	}
}

func TestBuildRequestRequiresURL(t *testing.T) {
	doc := document.New("x", document.InputText)
	if _, err := buildRequest(doc, pipeline.NewRuntime(nil, nil), map[string]any{"method": "GET"}); err == nil {
		t.Error("buildRequest() accepted a template without url")
	}
}

func TestUnresolvedValues(t *testing.T) {
	payload := map[string]any{
		"guid":    "{work.selected.guid}",
		"ok":      "resolved",
		"numbers": []any{1, "{work.selected.indexer_id}"},
		"nested":  map[string]any{"fine": "value"},
	}

	got := unresolvedValues(payload)
	if len(got) != 2 {
		t.Errorf("unresolvedValues() = %v, want 2 leftovers", got)
	}

	if got := unresolvedValues(map[string]any{"a": "clean"}); len(got) != 0 {
		t.Errorf("unresolvedValues(clean) = %v", got)
	}
}

func TestScrubParams(t *testing.T) {
	got := scrubParams(map[string]any{
		"apikey": "hunter2",
		"query":  "animals",
	})
	if got["apikey"] != "REDACTED" || got["query"] != "animals" {
		t.Errorf("scrubParams() = %v", got)
	}
	if scrubParams(nil) != nil {
		t.Error("scrubParams(nil) != nil")
	}
}

func TestListAt(t *testing.T) {
	list := []any{"a"}
	tests := []struct {
		name    string
		payload any
		path    string
		want    []any
	}{
		{"bare list", list, "", list},
		{"explicit path", map[string]any{"web": map[string]any{"hits": list}}, "web.hits", list},
		{"fallback key", map[string]any{"results": list}, "", list},
		{"nothing", map[string]any{"other": "x"}, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := listAt(tt.payload, tt.path, []string{"results"})
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("listAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusErrorClassification(t *testing.T) {
	req := transport.Request{URL: "https://indexer.test/api?apikey=hunter2"}

	authErr := statusError("indexer_search", req, &transport.Response{StatusCode: 401})
	if !strings.Contains(authErr.Error(), "AuthFailed") {
		t.Errorf("401 error = %v, want auth classification", authErr)
	}
	if strings.Contains(authErr.Error(), "hunter2") {
		t.Errorf("error leaked credentials: %v", authErr)
	}

	netErr := statusError("indexer_search", req, &transport.Response{StatusCode: 500})
	if !strings.Contains(netErr.Error(), "NetworkError") {
		t.Errorf("500 error = %v, want network classification", netErr)
	}
}

func TestCachedJSONServesFromCache(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"hit": true}`))
	}))
	defer server.Close()

	store, err := cache.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	rt := pipeline.NewRuntime(nil, nil)
	rt.Cache = store

	req := transport.Request{URL: server.URL}
	settings := cacheSettings{Enabled: true, Namespace: "test", TTL: time.Hour}

	for i := 0; i < 2; i++ {
		payload, err := cachedJSON(context.Background(), rt, "step", "", map[string]any{}, req, settings)
		if err != nil {
			t.Fatalf("cachedJSON() error = %v", err)
		}
		m := payload.(map[string]any)
		if m["hit"] != true {
			t.Errorf("payload = %v", payload)
		}
	}
	if calls != 1 {
		t.Errorf("upstream calls = %d, want 1 (second read from cache)", calls)
	}
}

func TestCachedJSONDisabledBypassesCache(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	rt := pipeline.NewRuntime(nil, nil)
	req := transport.Request{URL: server.URL}

	for i := 0; i < 2; i++ {
		if _, err := cachedJSON(context.Background(), rt, "step", "", map[string]any{}, req, cacheSettings{}); err != nil {
			t.Fatalf("cachedJSON() error = %v", err)
		}
	}
	if calls != 2 {
		t.Errorf("upstream calls = %d, want 2 with caching disabled", calls)
	}
}
