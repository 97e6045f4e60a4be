package steps

import (
	"context"

	"grabbit/internal/decision"
	"grabbit/internal/document"
	"grabbit/internal/pipeline"
)

// Decide resolves the ranked candidates into a terminal decision. The
// explicit choice index comes from the runtime (a rerun answering a
// needs_choice outcome); auto-selection behavior is step configuration.
func Decide(_ context.Context, doc *document.Document, cfg map[string]any, rt *pipeline.Runtime) (*document.Document, error) {
	opts := decision.Options{
		ChoiceIndex:        rt.ChoiceIndex,
		AutoSelectExplicit: boolOption(cfg, "auto_select_explicit", true),
		AutoSelectFormats:  boolOption(cfg, "auto_select_formats", true),
	}
	decision.Decide(doc, opts)
	return doc, nil
}
