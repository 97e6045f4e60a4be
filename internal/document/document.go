// Package document defines the single mutable record threaded through every
// pipeline step: the normalized request, derived work facts, candidate
// releases, the decision, and per-provider search and dispatch outcomes.
package document

import (
	"encoding/json"
	"fmt"
)

// InputType classifies what the user handed us.
const (
	InputText  = "text"
	InputURL   = "url"
	InputImage = "image"
)

// Media types understood by workflow matching and field extraction.
const (
	MediaMusic = "music"
	MediaMovie = "movie"
	MediaTV    = "tv"
	MediaBook  = "book"
)

// Request carries the original and normalized user input.
type Request struct {
	Input           string              `json:"input,omitempty"`
	InputType       string              `json:"input_type,omitempty"`
	URL             string              `json:"url,omitempty"`
	ImagePath       string              `json:"image_path,omitempty"`
	Query           string              `json:"query,omitempty"`
	QueryOriginal   string              `json:"query_original,omitempty"`
	MediaType       string              `json:"media_type,omitempty"`
	Tags            []string            `json:"tags,omitempty"`
	Preferences     map[string]any      `json:"preferences,omitempty"`
	ReleasePrefs    *ReleasePreferences `json:"release_preferences,omitempty"`
	ExplicitVersion bool                `json:"explicit_version,omitempty"`
}

// ReleasePreferences holds explicit version hints extracted from the query.
type ReleasePreferences struct {
	Editions       []string `json:"editions,omitempty"`
	Media          []string `json:"media,omitempty"`
	Formats        []string `json:"formats,omitempty"`
	Labels         []string `json:"labels,omitempty"`
	CatalogNumbers []string `json:"catalog_numbers,omitempty"`
	Years          []int    `json:"year,omitempty"`
}

// Empty reports whether no preference of any kind was extracted.
func (p *ReleasePreferences) Empty() bool {
	if p == nil {
		return true
	}
	return len(p.Editions) == 0 && len(p.Media) == 0 && len(p.Formats) == 0 &&
		len(p.Labels) == 0 && len(p.CatalogNumbers) == 0 && len(p.Years) == 0
}

// Work holds facts derived during the run. Every field is optional; no step
// may assume an earlier step populated any of them.
type Work struct {
	Title              string       `json:"title,omitempty"`
	Artist             string       `json:"artist,omitempty"`
	Author             string       `json:"author,omitempty"`
	Label              string       `json:"label,omitempty"`
	Year               int          `json:"year,omitempty"`
	MediaType          string       `json:"media_type,omitempty"`
	TrackTitle         string       `json:"track_title,omitempty"`
	TrackArtist        string       `json:"track_artist,omitempty"`
	AlbumTitle         string       `json:"album_title,omitempty"`
	TrackReleaseType   string       `json:"track_release_type,omitempty"`
	TrackReleaseSource string       `json:"track_release_source,omitempty"`
	TMDBID             int64        `json:"tmdb_id,omitempty"`
	TVDBID             int64        `json:"tvdb_id,omitempty"`
	DownloadClientID   int          `json:"download_client_id,omitempty"`
	Candidates         []*Candidate `json:"candidates,omitempty"`
	RejectedCandidates []*Candidate `json:"rejected_candidates,omitempty"`
	Selected           *Candidate   `json:"selected,omitempty"`
}

// DecisionStatus is the closed set of terminal decision states.
type DecisionStatus string

const (
	StatusComplete    DecisionStatus = "complete"
	StatusNeedsChoice DecisionStatus = "needs_choice"
	StatusSelected    DecisionStatus = "selected"
	StatusError       DecisionStatus = "error"
)

// Decision reason values.
const (
	ReasonExplicitChoice     = "explicit_choice"
	ReasonExplicitVersion    = "explicit_version"
	ReasonAutoFormat         = "auto_format"
	ReasonMultipleCandidates = "multiple_candidates"
	ReasonNoCandidates       = "no_candidates"
)

// Decision records the resolved outcome of a run.
type Decision struct {
	Status              DecisionStatus `json:"status"`
	Reason              string         `json:"reason,omitempty"`
	Selected            *Candidate     `json:"selected,omitempty"`
	Index               *int           `json:"index,omitempty"`
	Options             []*Candidate   `json:"options,omitempty"`
	MediaTypeConfidence int            `json:"media_type_confidence,omitempty"`
}

// SearchBundle captures one provider's results for diagnostics and reuse.
type SearchBundle struct {
	Query    string          `json:"query,omitempty"`
	Count    int             `json:"count"`
	Results  []*SearchResult `json:"results,omitempty"`
	Analysis *ConsensusMeta  `json:"analysis,omitempty"`
}

// SearchResult is one noisy web-search hit.
type SearchResult struct {
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
	URL     string `json:"url,omitempty"`
}

// ConsensusMeta describes why consensus was or was not accepted.
type ConsensusMeta struct {
	Count    int     `json:"count"`
	AvgScore float64 `json:"avg_score"`
	Accepted bool    `json:"accepted"`
}

// DispatchStatus values recorded for side-effect targets.
const (
	DispatchOK      = "ok"
	DispatchDryRun  = "dry_run"
	DispatchSkipped = "skipped"
)

// DispatchRecord is the outcome of one side-effect target.
type DispatchRecord struct {
	Status   string         `json:"status"`
	Reason   string         `json:"reason,omitempty"`
	URL      string         `json:"url,omitempty"`
	Request  map[string]any `json:"request,omitempty"`
	Response any            `json:"response,omitempty"`
}

// PageMeta is metadata scraped from a URL input.
type PageMeta struct {
	URL         string `json:"url,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Error       string `json:"error,omitempty"`
}

// FilterReport records what a filtering step removed.
type FilterReport struct {
	Removed int            `json:"removed"`
	Kept    int            `json:"kept"`
	Detail  map[string]any `json:"detail,omitempty"`
}

// Warning is a non-fatal anomaly recorded during the run.
type Warning struct {
	Step    string `json:"step,omitempty"`
	Message string `json:"message"`
}

// ErrorInfo is the terminal failure recorded on the document.
type ErrorInfo struct {
	Message string `json:"message"`
	Step    string `json:"step,omitempty"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// TrackerData holds tracker group payloads and comment state for enrichment.
type TrackerData struct {
	Groups        map[string]map[string]any `json:"groups,omitempty"`
	Comments      map[string][]string       `json:"comments,omitempty"`
	CommentCounts map[string]int            `json:"comment_counts,omitempty"`
}

// Canonical is the provenance-tracked authoritative field set.
type Canonical struct {
	Fields     map[string]any        `json:"fields,omitempty"`
	Provenance map[string]Provenance `json:"provenance,omitempty"`
}

// Provenance records where a canonical field value came from.
type Provenance struct {
	Source     string   `json:"source"`
	Confidence float64  `json:"confidence,omitempty"`
	At         string   `json:"ts,omitempty"`
	Sources    []string `json:"sources,omitempty"`
}

// TagArtifact records where tag metadata was persisted.
type TagArtifact struct {
	Stored string `json:"stored,omitempty"`
}

// Document is the unit of work owned by the runner for the duration of a
// run. Steps receive it, may mutate it, and return it.
type Document struct {
	Request   Request                    `json:"request"`
	Work      Work                       `json:"work"`
	Decision  *Decision                  `json:"decision,omitempty"`
	Search    map[string]*SearchBundle   `json:"search,omitempty"`
	Dispatch  map[string]*DispatchRecord `json:"dispatch,omitempty"`
	Filters   map[string]*FilterReport   `json:"filter,omitempty"`
	URLMeta   *PageMeta                  `json:"url,omitempty"`
	OCRText   string                     `json:"ocr_text,omitempty"`
	Tracker   *TrackerData               `json:"tracker,omitempty"`
	Canonical *Canonical                 `json:"canonical,omitempty"`
	Tags      *TagArtifact               `json:"tags,omitempty"`
	Warnings  []Warning                  `json:"warnings,omitempty"`
	Logs      []string                   `json:"logs,omitempty"`
	Error     *ErrorInfo                 `json:"error,omitempty"`
}

// New builds a document from raw user input.
func New(input, inputType string) *Document {
	doc := &Document{Request: Request{Input: input, InputType: inputType}}
	if inputType == InputURL {
		doc.Request.URL = input
	}
	return doc
}

// EnsureSearch returns the search map, allocating on first use.
func (d *Document) EnsureSearch() map[string]*SearchBundle {
	if d.Search == nil {
		d.Search = make(map[string]*SearchBundle)
	}
	return d.Search
}

// EnsureDispatch returns the dispatch map, allocating on first use.
func (d *Document) EnsureDispatch() map[string]*DispatchRecord {
	if d.Dispatch == nil {
		d.Dispatch = make(map[string]*DispatchRecord)
	}
	return d.Dispatch
}

// EnsureFilters returns the filter report map, allocating on first use.
func (d *Document) EnsureFilters() map[string]*FilterReport {
	if d.Filters == nil {
		d.Filters = make(map[string]*FilterReport)
	}
	return d.Filters
}

// EnsureTracker returns tracker enrichment state, allocating on first use.
func (d *Document) EnsureTracker() *TrackerData {
	if d.Tracker == nil {
		d.Tracker = &TrackerData{}
	}
	return d.Tracker
}

// AddWarning appends a structured warning.
func (d *Document) AddWarning(step, message string) {
	d.Warnings = append(d.Warnings, Warning{Step: step, Message: message})
}

// SetError records a terminal failure and forces the decision to error.
// The decision status only moves forward; an existing error is kept.
func (d *Document) SetError(info ErrorInfo) {
	if d.Error != nil {
		return
	}
	d.Error = &info
	d.Decision = &Decision{Status: StatusError}
}

// Terminal reports whether the run must stop advancing steps.
func (d *Document) Terminal() bool {
	if d.Decision == nil {
		return false
	}
	return d.Decision.Status == StatusNeedsChoice || d.Decision.Status == StatusError
}

// Clone deep-copies the document through its JSON form.
func (d *Document) Clone() (*Document, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	out := &Document{}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return out, nil
}
