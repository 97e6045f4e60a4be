package steps

import (
	"context"
	"fmt"

	"grabbit/internal/docpath"
	"grabbit/internal/document"
	"grabbit/internal/pipeline"
	"grabbit/internal/steperr"
	"grabbit/internal/transport"
)

// HTTPDispatch sends a configured request template as a side effect and
// records the outcome under the step's own name. The runner gates it; by
// the time this runs the dispatch is live and confirmed.
func HTTPDispatch(ctx context.Context, doc *document.Document, cfg map[string]any, rt *pipeline.Runtime) (*document.Document, error) {
	stepName := stringOption(cfg, "_step", "http_dispatch")
	reqTmpl, ok := cfg["request"].(map[string]any)
	if !ok {
		return doc, steperr.New(steperr.KindConfig, stepName, "http_dispatch step has no request template")
	}
	req, err := buildRequest(doc, rt, reqTmpl)
	if err != nil {
		return doc, steperr.New(steperr.KindConfig, stepName, err.Error())
	}
	if leftovers := unresolvedValues(req.JSONBody); len(leftovers) > 0 {
		return doc, steperr.New(steperr.KindConfig, stepName,
			fmt.Sprintf("dispatch payload has unresolved fields: %v", leftovers))
	}

	resp, err := rt.HTTP.Do(ctx, req, rt.RetryPolicy(cfg))
	if err != nil {
		return doc, err
	}
	if !resp.Success() {
		return doc, statusError(stepName, req, resp)
	}

	record := &document.DispatchRecord{
		Status: document.DispatchOK,
		URL:    transport.Redact(req.URL),
	}
	if body, ok := req.JSONBody.(map[string]any); ok {
		record.Request = body
	}
	var payload any
	if resp.JSON(&payload) == nil {
		record.Response = payload
	} else if text := resp.Text(); text != "" {
		record.Response = text
	}
	doc.EnsureDispatch()[stepName] = record
	return doc, nil
}

// ManagerDispatch hands the identified work to the media manager for its
// type (the *arr application family). The manager owns search and
// download from there; the dispatch record is this pipeline's receipt.
func ManagerDispatch(ctx context.Context, doc *document.Document, cfg map[string]any, rt *pipeline.Runtime) (*document.Document, error) {
	app := stringOption(cfg, "app", mediaTypeOf(doc))
	if app == "" {
		return doc, steperr.New(steperr.KindConfig, "manager_dispatch", "manager app not determined")
	}
	managerCfg, ok := lookupMap(rt.RawConfig(), "manager."+app)
	if !ok {
		return doc, steperr.New(steperr.KindConfig, "manager_dispatch",
			fmt.Sprintf("manager.%s is not configured", app))
	}
	baseURL := docpath.String(managerCfg, "url")
	apiKey := docpath.String(managerCfg, "api_key")
	endpoint := docpath.String(managerCfg, "endpoint")
	if baseURL == "" || endpoint == "" {
		return doc, steperr.New(steperr.KindConfig, "manager_dispatch",
			fmt.Sprintf("manager.%s needs url and endpoint", app))
	}
	if apiKey == "" {
		return doc, steperr.New(steperr.KindAuthMissing, "manager_dispatch",
			fmt.Sprintf("manager.%s has no api key", app))
	}

	payload, err := managerPayload(app, doc, managerCfg)
	if err != nil {
		return doc, err
	}

	req := transport.Request{
		Method:   "POST",
		URL:      baseURL + endpoint,
		Headers:  map[string]string{"X-Api-Key": apiKey},
		JSONBody: payload,
	}
	resp, err := rt.HTTP.Do(ctx, req, rt.RetryPolicy(cfg))
	if err != nil {
		return doc, err
	}
	if !resp.Success() {
		return doc, statusError("manager_dispatch", req, resp)
	}

	record := &document.DispatchRecord{
		Status:  document.DispatchOK,
		URL:     transport.Redact(req.URL),
		Request: payload,
	}
	var response any
	if resp.JSON(&response) == nil {
		record.Response = response
	}
	doc.EnsureDispatch()[app] = record
	return doc, nil
}

// managerPayload builds the add-item body each manager application
// expects. Missing external ids fail here rather than as an opaque 400
// from the manager.
func managerPayload(app string, doc *document.Document, managerCfg map[string]any) (map[string]any, error) {
	work := &doc.Work
	title := work.Title
	if title == "" {
		title = doc.Request.Query
	}
	if title == "" {
		return nil, steperr.New(steperr.KindGeneric, "manager_dispatch", "no title to dispatch")
	}

	payload := map[string]any{
		"title":     title,
		"monitored": true,
	}
	if folder := docpath.String(managerCfg, "root_folder"); folder != "" {
		payload["rootFolderPath"] = folder
	}
	if profile, ok := docpath.Number(managerCfg, "quality_profile_id"); ok {
		payload["qualityProfileId"] = int(profile)
	}
	if work.Year > 0 {
		payload["year"] = work.Year
	}

	switch app {
	case "movie":
		if work.TMDBID == 0 {
			return nil, steperr.New(steperr.KindGeneric, "manager_dispatch",
				"movie dispatch needs a tmdb id; identification did not find one")
		}
		payload["tmdbId"] = work.TMDBID
		payload["minimumAvailability"] = stringOption(managerCfg, "minimum_availability", "released")
		payload["addOptions"] = map[string]any{"searchForMovie": true}
	case "tv":
		if work.TVDBID == 0 {
			return nil, steperr.New(steperr.KindGeneric, "manager_dispatch",
				"tv dispatch needs a tvdb id; identification did not find one")
		}
		payload["tvdbId"] = work.TVDBID
		payload["seasonFolder"] = true
		payload["seriesType"] = stringOption(managerCfg, "series_type", "standard")
		payload["addOptions"] = map[string]any{"searchForMissingEpisodes": true}
	case "book":
		if work.Author != "" {
			payload["author"] = map[string]any{"authorName": work.Author}
		}
		payload["addOptions"] = map[string]any{"searchForNewBook": true}
	default:
		return nil, steperr.New(steperr.KindConfig, "manager_dispatch",
			fmt.Sprintf("unknown manager app: %s", app))
	}
	return payload, nil
}
