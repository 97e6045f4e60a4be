package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"grabbit/internal/config"
	"grabbit/internal/document"
	"grabbit/internal/logging"
	"grabbit/internal/steperr"
)

// ProgressFunc observes step boundaries; phase is "start" or "end".
type ProgressFunc func(step, phase string, doc *document.Document)

// Options narrows one run: an explicit workflow, or a step window.
type Options struct {
	Workflow  string
	StartStep string
	EndStep   string
}

// Runner drives a document through the pre-steps and the selected
// workflow. Failures never propagate as Go errors: they are recorded on
// the document and the partial document is returned, so callers always
// have the full run state to report.
type Runner struct {
	rt       *Runtime
	builtins map[string]StepFunc
	progress ProgressFunc
	logger   *slog.Logger
}

// NewRunner builds a runner over a runtime and a builtin registry.
func NewRunner(rt *Runtime, builtins map[string]StepFunc) *Runner {
	return &Runner{
		rt:       rt,
		builtins: builtins,
		logger:   logging.NewComponentLogger(rt.Logger, "runner"),
	}
}

// OnProgress registers a step-boundary observer.
func (r *Runner) OnProgress(fn ProgressFunc) {
	r.progress = fn
}

// Run executes pre-steps, selects a workflow, and walks its steps.
func (r *Runner) Run(ctx context.Context, doc *document.Document, opts Options) *document.Document {
	ctx = logging.WithRunID(ctx, r.rt.RunID)
	started := opts.StartStep == ""
	sawStart := false

	r.logger.Info("run started",
		logging.String(logging.FieldRunID, r.rt.RunID),
		logging.String("input", doc.Request.Input),
		logging.Bool("dry_run", r.rt.DryRun))

	for _, stepName := range r.rt.Config.PreSteps {
		if !started && stepName == opts.StartStep {
			started = true
			sawStart = true
		}
		if !started {
			continue
		}
		var err error
		doc, err = r.runStep(ctx, stepName, doc)
		if err != nil {
			r.recordError(doc, stepName, err)
			return doc
		}
		if opts.EndStep != "" && stepName == opts.EndStep {
			return doc
		}
	}

	workflow, err := r.selectWorkflow(doc, opts.Workflow)
	if err != nil {
		r.recordError(doc, "select_workflow", err)
		return doc
	}
	r.logger.Debug("workflow selected", logging.String(logging.FieldWorkflow, workflow.Name))
	ctx = logging.WithWorkflow(ctx, workflow.Name)

	for _, stepName := range workflow.Steps {
		if !started && stepName == opts.StartStep {
			started = true
			sawStart = true
		}
		if !started {
			continue
		}
		doc, err = r.runStep(ctx, stepName, doc)
		if err != nil {
			r.recordError(doc, stepName, err)
			return doc
		}
		if doc.Terminal() {
			break
		}
		if opts.EndStep != "" && stepName == opts.EndStep {
			break
		}
	}

	if opts.StartStep != "" && !sawStart {
		r.recordError(doc, opts.StartStep,
			steperr.New(steperr.KindNotFound, opts.StartStep, fmt.Sprintf("start step not found: %s", opts.StartStep)))
	}
	return doc
}

// selectWorkflow resolves by explicit name first, then by media type.
func (r *Runner) selectWorkflow(doc *document.Document, name string) (*config.Workflow, error) {
	if name != "" {
		workflow, ok := r.rt.Config.WorkflowByName(name)
		if !ok {
			return nil, steperr.New(steperr.KindNotFound, "select_workflow", fmt.Sprintf("workflow not found: %s", name))
		}
		return workflow, nil
	}
	if workflow, ok := r.rt.Config.WorkflowForMediaType(doc.Request.MediaType); ok {
		return workflow, nil
	}
	return nil, steperr.New(steperr.KindConfig, "select_workflow",
		"media type not determined; rerun with --media-type or --workflow")
}

// runStep resolves step configuration and executes the step, gating side
// effects first.
func (r *Runner) runStep(ctx context.Context, stepName string, doc *document.Document) (*document.Document, error) {
	stepCfg, ok := r.rt.Config.StepConfig(stepName)
	if !ok {
		stepCfg = map[string]any{"builtin": stepName}
	}
	merged := r.mergeStepConfig(stepName, stepCfg)

	builtinName, _ := merged["builtin"].(string)
	if builtinName == "" {
		builtinName = stepName
	}
	md := MetadataFor(builtinName)
	sideEffect := md.SideEffect
	if flag, ok := merged["side_effect"].(bool); ok {
		sideEffect = flag
	}

	stepCtx := logging.WithStep(ctx, stepName)
	logger := r.logger.With(logging.String(logging.FieldStep, stepName))

	if r.progress != nil {
		r.progress(stepName, "start", doc)
	}
	logger.Debug("step started")
	startedAt := time.Now()

	var (
		out *document.Document
		err error
	)
	_, hasCommand := merged["command"]
	switch {
	case sideEffect && r.gateSideEffect(stepName, md, merged, doc):
		// Gating applies before the command/builtin split so external
		// commands can never fire on a dry or unconfirmed run.
		out = doc
	case hasCommand:
		out, err = r.runExternal(stepCtx, stepName, merged, doc)
	default:
		out, err = r.runBuiltin(stepCtx, stepName, builtinName, merged, doc)
	}
	if err != nil {
		logger.Error("step failed", logging.Error(err), logging.Duration("elapsed", time.Since(startedAt)))
		return doc, err
	}

	logger.Debug("step finished", logging.Duration("elapsed", time.Since(startedAt)))
	if r.progress != nil {
		r.progress(stepName, "end", out)
	}
	return out, nil
}

func (r *Runner) runBuiltin(ctx context.Context, stepName, builtinName string, cfg map[string]any, doc *document.Document) (*document.Document, error) {
	builtin, ok := r.builtins[builtinName]
	if !ok {
		return doc, steperr.New(steperr.KindNotFound, stepName, fmt.Sprintf("unknown builtin step: %s", builtinName))
	}

	if timeout := StepTimeout(cfg); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return builtin(ctx, doc, cfg, r.rt)
}

// gateSideEffect records a skipped dispatch instead of executing when the
// run is not both live and confirmed. Reports true when the step must be
// skipped.
func (r *Runner) gateSideEffect(stepName string, md Metadata, cfg map[string]any, doc *document.Document) bool {
	if !r.rt.DryRun && r.rt.Confirm {
		return false
	}
	key := DispatchKeyFor(stepName, md, cfg)
	record := &document.DispatchRecord{}
	if r.rt.DryRun {
		record.Status = document.DispatchDryRun
		record.Reason = "dry_run"
	} else {
		record.Status = document.DispatchSkipped
		record.Reason = "confirmation required"
	}
	doc.EnsureDispatch()[key] = record
	doc.AddWarning(stepName, fmt.Sprintf("side effect %s skipped: %s", key, record.Reason))
	r.logger.Warn("side effect skipped",
		logging.String(logging.FieldStep, stepName),
		logging.String("dispatch", key),
		logging.String("reason", record.Reason))
	return true
}

// mergeStepConfig layers workflow-level timeout and retry defaults under
// the step's own settings.
func (r *Runner) mergeStepConfig(stepName string, stepCfg map[string]any) map[string]any {
	merged := make(map[string]any, len(stepCfg)+4)
	for key, value := range stepCfg {
		merged[key] = value
	}
	if _, ok := merged["timeout"]; !ok {
		if timeouts, ok := r.rt.RawConfig()["timeouts"].(map[string]any); ok {
			if timeout, ok := timeouts[stepName]; ok {
				merged["timeout"] = timeout
			}
		}
	}
	retries := r.rt.Config.Retries
	if _, ok := merged["retries"]; !ok {
		merged["retries"] = retries.Retries
	}
	if _, ok := merged["retry_backoff_seconds"]; !ok {
		merged["retry_backoff_seconds"] = retries.RetryBackoffSeconds
	}
	if _, ok := merged["max_backoff_seconds"]; !ok {
		merged["max_backoff_seconds"] = retries.MaxBackoffSeconds
	}
	merged["_step"] = stepName
	return merged
}

func (r *Runner) recordError(doc *document.Document, stepName string, err error) {
	doc.SetError(document.ErrorInfo{
		Message: err.Error(),
		Step:    stepName,
		Type:    string(steperr.KindOf(err)),
		Code:    steperr.CodeOf(err),
		Hint:    steperr.HintOf(err),
	})
	r.logger.Error("run failed",
		logging.String(logging.FieldStep, stepName),
		logging.String(logging.FieldErrorHint, steperr.HintOf(err)),
		logging.Error(err))
}
