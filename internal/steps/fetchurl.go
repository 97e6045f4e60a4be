package steps

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"grabbit/internal/canonical"
	"grabbit/internal/docpath"
	"grabbit/internal/document"
	"grabbit/internal/pipeline"
	"grabbit/internal/transport"
)

var (
	titlePattern       = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	ogTitlePattern     = regexp.MustCompile(`(?is)<meta[^>]+property=["']og:title["'][^>]+content=["']([^"']*)["']`)
	descriptionPattern = regexp.MustCompile(`(?is)<meta[^>]+name=["']description["'][^>]+content=["']([^"']*)["']`)
	ogDescPattern      = regexp.MustCompile(`(?is)<meta[^>]+property=["']og:description["'][^>]+content=["']([^"']*)["']`)
	tagPattern         = regexp.MustCompile(`<[^>]+>`)
)

// FetchURL retrieves a URL input and scrapes page metadata into the
// document. Failures are recorded on the url block instead of failing the
// run; later identification steps work from whatever was recovered.
func FetchURL(ctx context.Context, doc *document.Document, cfg map[string]any, rt *pipeline.Runtime) (*document.Document, error) {
	target := doc.Request.URL
	if target == "" {
		return doc, nil
	}
	meta := &document.PageMeta{URL: target}
	doc.URLMeta = meta

	req := transport.Request{Method: "GET", URL: target}
	if headers, ok := cfg["headers"].(map[string]any); ok {
		req.Headers = make(map[string]string, len(headers))
		for key, value := range headers {
			req.Headers[key] = docpath.Stringify(value)
		}
	}

	resp, err := rt.HTTP.Do(ctx, req, rt.RetryPolicy(cfg))
	if err != nil {
		meta.Error = err.Error()
		doc.AddWarning("fetch_url", fmt.Sprintf("fetch failed: %s", transport.Redact(target)))
		return doc, nil
	}
	if !resp.Success() {
		meta.Error = fmt.Sprintf("status %d", resp.StatusCode)
		doc.AddWarning("fetch_url", fmt.Sprintf("fetch returned status %d: %s", resp.StatusCode, transport.Redact(target)))
		return doc, nil
	}

	meta.ContentType = resp.Header.Get("Content-Type")
	body := resp.Text()
	if strings.Contains(meta.ContentType, "html") || looksLikeHTML(body) {
		meta.Title = extractFirst(body, ogTitlePattern, titlePattern)
		meta.Description = extractFirst(body, ogDescPattern, descriptionPattern)
	}

	if needsOEmbedTitle(target, meta.Title) {
		if title := fetchOEmbedTitle(ctx, rt, cfg, target); title != "" {
			meta.Title = title
		}
	}

	if meta.Title != "" {
		if doc.Request.QueryOriginal == "" {
			if doc.Request.Query != "" {
				doc.Request.QueryOriginal = doc.Request.Query
			} else {
				doc.Request.QueryOriginal = meta.Title
			}
		}
		doc.Request.Query = meta.Title
		canonical.SetField(doc, "title", meta.Title, canonical.SourceURL, 0.6)
	}
	return doc, nil
}

func looksLikeHTML(body string) bool {
	head := strings.ToLower(body[:min(len(body), 512)])
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
}

func extractFirst(body string, patterns ...*regexp.Regexp) string {
	for _, pattern := range patterns {
		if m := pattern.FindStringSubmatch(body); m != nil {
			return cleanPageText(m[1])
		}
	}
	return ""
}

func cleanPageText(text string) string {
	text = tagPattern.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}

// needsOEmbedTitle reports whether a video page title needs the oEmbed
// endpoint: the scrape came back empty or as the bare site chrome.
func needsOEmbedTitle(target, title string) bool {
	parsed, err := url.Parse(target)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	if host != "youtube.com" && host != "youtu.be" && host != "music.youtube.com" {
		return false
	}
	return title == "" || title == "YouTube" || strings.HasSuffix(title, "- YouTube")
}

func fetchOEmbedTitle(ctx context.Context, rt *pipeline.Runtime, cfg map[string]any, target string) string {
	req := transport.Request{
		Method: "GET",
		URL:    "https://www.youtube.com/oembed",
		Params: map[string]any{"url": target, "format": "json"},
	}
	resp, err := rt.HTTP.Do(ctx, req, rt.RetryPolicy(cfg))
	if err != nil || !resp.Success() {
		return ""
	}
	var payload struct {
		Title string `json:"title"`
	}
	if err := resp.JSON(&payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Title)
}
