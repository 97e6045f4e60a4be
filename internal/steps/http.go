package steps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"grabbit/internal/cache"
	"grabbit/internal/docpath"
	"grabbit/internal/document"
	"grabbit/internal/pipeline"
	"grabbit/internal/steperr"
	"grabbit/internal/template"
	"grabbit/internal/transport"
)

// buildRequest resolves a declarative request template against the
// document and configuration into a concrete transport request.
func buildRequest(doc *document.Document, rt *pipeline.Runtime, tmpl map[string]any) (transport.Request, error) {
	ctx := template.NewContext(doc, rt.RawConfig())
	resolved := template.ResolveMap(tmpl, ctx)

	req := transport.Request{
		Method: docpath.String(resolved, "method"),
		URL:    docpath.String(resolved, "url"),
	}
	if req.URL == "" {
		return req, fmt.Errorf("request template has no url")
	}
	if headers, ok := resolved["headers"].(map[string]any); ok {
		req.Headers = make(map[string]string, len(headers))
		for key, value := range headers {
			req.Headers[key] = docpath.Stringify(value)
		}
	}
	if cookies, ok := resolved["cookies"].(map[string]any); ok {
		req.Cookies = make(map[string]string, len(cookies))
		for key, value := range cookies {
			req.Cookies[key] = docpath.Stringify(value)
		}
	}
	if params, ok := resolved["params"].(map[string]any); ok {
		req.Params = params
	}
	if body, ok := resolved["json"]; ok {
		req.JSONBody = body
	}
	if form, ok := resolved["form"].(map[string]any); ok {
		req.FormBody = make(map[string]string, len(form))
		for key, value := range form {
			req.FormBody[key] = docpath.Stringify(value)
		}
	}
	if timeout, ok := docpath.Number(resolved, "timeout"); ok && timeout > 0 {
		req.Timeout = time.Duration(timeout * float64(time.Second))
	}
	return req, nil
}

// unresolvedValues collects any leftover {path} placeholders in a resolved
// template value. A side-effect payload with unresolved references must
// not be sent.
func unresolvedValues(value any) []string {
	var found []string
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case map[string]any:
			for _, item := range t {
				walk(item)
			}
		case []any:
			for _, item := range t {
				walk(item)
			}
		case string:
			if strings.HasPrefix(t, "{") && strings.HasSuffix(t, "}") {
				found = append(found, t)
			}
		}
	}
	walk(value)
	return found
}

// statusError classifies a non-2xx response for a step.
func statusError(step string, req transport.Request, resp *transport.Response) error {
	kind := steperr.KindNetwork
	if resp.StatusCode == 401 || resp.StatusCode == 403 {
		kind = steperr.KindAuthFailed
	}
	return steperr.New(kind, step,
		fmt.Sprintf("%s returned status %d", transport.Redact(req.URL), resp.StatusCode))
}

// fetchJSON executes a request and decodes a JSON response, with the
// step's retry policy and the provider's rate budget applied. An empty
// provider key skips throttling.
func fetchJSON(ctx context.Context, rt *pipeline.Runtime, step, provider string, cfg map[string]any, req transport.Request) (any, error) {
	if err := rt.ThrottleProvider(ctx, provider); err != nil {
		return nil, err
	}
	resp, err := rt.HTTP.Do(ctx, req, rt.RetryPolicy(cfg))
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, statusError(step, req, resp)
	}
	var payload any
	if err := resp.JSON(&payload); err != nil {
		return nil, steperr.Wrap(steperr.KindParse, step, transport.Redact(req.URL), err)
	}
	return payload, nil
}

// cachedJSON wraps fetchJSON with the step's cache block. The cache key is
// derived from the redacted request shape so credentials never reach disk.
func cachedJSON(ctx context.Context, rt *pipeline.Runtime, step, provider string, cfg map[string]any, req transport.Request, settings cacheSettings) (any, error) {
	if !settings.Enabled || rt.Cache == nil {
		return fetchJSON(ctx, rt, step, provider, cfg, req)
	}
	key := cache.Key(map[string]any{
		"url":     transport.Redact(req.URL),
		"method":  req.Method,
		"params":  scrubParams(req.Params),
		"json":    req.JSONBody,
		"headers": transport.RedactHeaders(req.Headers),
	})
	if value, ok := rt.Cache.Read(settings.Namespace, key, settings.TTL); ok {
		return value, nil
	}
	payload, err := fetchJSON(ctx, rt, step, provider, cfg, req)
	if err != nil {
		return nil, err
	}
	if err := rt.Cache.Write(settings.Namespace, key, payload); err != nil {
		rt.Logger.Warn("cache write failed", "namespace", settings.Namespace, "error", err)
	}
	return payload, nil
}

// scrubParams masks credential-bearing query parameters.
func scrubParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for key, value := range params {
		switch strings.ToLower(key) {
		case "apikey", "api_key", "token", "key":
			out[key] = "REDACTED"
		default:
			out[key] = value
		}
	}
	return out
}

// listAt finds the result list in a provider payload: an explicit path
// first, then a set of fallback keys, then the payload itself when it is
// already a list.
func listAt(payload any, path string, fallbackKeys []string) []any {
	if list, ok := payload.([]any); ok {
		return list
	}
	if path != "" {
		if value, ok := docpath.Lookup(payload, path); ok {
			if list, ok := value.([]any); ok {
				return list
			}
		}
	}
	if m, ok := payload.(map[string]any); ok {
		for _, key := range fallbackKeys {
			if list, ok := m[key].([]any); ok {
				return list
			}
		}
	}
	return nil
}
