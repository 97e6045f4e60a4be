package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"grabbit/internal/document"
	"grabbit/internal/pipeline"
	"grabbit/internal/steperr"
)

var slugStripPattern = regexp.MustCompile(`[^a-z0-9]+`)

// slugify reduces a title to a stable filename stem.
func slugify(text string) string {
	slug := slugStripPattern.ReplaceAllString(strings.ToLower(text), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "untitled"
	}
	if len(slug) > 80 {
		slug = slug[:80]
	}
	return slug
}

// StoreTags persists the request's tags next to the identified work so a
// later import run can pick them up. Runs without tags are a no-op.
func StoreTags(_ context.Context, doc *document.Document, cfg map[string]any, rt *pipeline.Runtime) (*document.Document, error) {
	if len(doc.Request.Tags) == 0 {
		return doc, nil
	}
	statePath := stringOption(cfg, "state_path", rt.StatePath)
	if statePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return doc, steperr.Wrap(steperr.KindConfig, "store_tags", "no state path configured", err)
		}
		statePath = filepath.Join(home, ".local", "state", "grabbit")
	}

	mediaType := mediaTypeOf(doc)
	if mediaType == "" {
		mediaType = "unknown"
	}
	title := doc.Work.Title
	if title == "" {
		title = doc.Request.Query
	}
	slug := slugify(strings.TrimSpace(strings.Join([]string{doc.Work.Artist, title}, " ")))

	dir := filepath.Join(statePath, "tags", mediaType)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return doc, steperr.Wrap(steperr.KindGeneric, "store_tags", "create tag directory", err)
	}

	payload := map[string]any{
		"title":      title,
		"media_type": mediaType,
		"tags":       doc.Request.Tags,
		"stored_at":  time.Now().UTC().Format(time.RFC3339),
	}
	if doc.Work.Artist != "" {
		payload["artist"] = doc.Work.Artist
	}
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return doc, steperr.Wrap(steperr.KindGeneric, "store_tags", "encode tag payload", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s.json", slug))
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return doc, steperr.Wrap(steperr.KindGeneric, "store_tags", "write tag file", err)
	}
	doc.Tags = &document.TagArtifact{Stored: path}
	return doc, nil
}
