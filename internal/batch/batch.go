// Package batch runs many requests through the pipeline concurrently.
// Each request gets its own runtime and document; only the cache store and
// configuration are shared, so runs cannot observe each other's state.
package batch

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"grabbit/internal/cache"
	"grabbit/internal/config"
	"grabbit/internal/document"
	"grabbit/internal/logging"
	"grabbit/internal/pipeline"
	"grabbit/internal/transport"
)

// DefaultConcurrency bounds parallel runs when the caller does not.
const DefaultConcurrency = 4

// Options applies to every request in the batch.
type Options struct {
	Concurrency int
	MediaType   string
	Workflow    string
	Tags        []string
	DryRun      bool
	Confirm     bool
	StatePath   string
	ConfigPath  string
}

// Outcome pairs one input with its finished document.
type Outcome struct {
	Input string
	Doc   *document.Document
}

// Failed reports whether the run ended in an error decision.
func (o Outcome) Failed() bool {
	return o.Doc != nil && o.Doc.Error != nil
}

// NeedsChoice reports whether the run stopped awaiting a selection.
func (o Outcome) NeedsChoice() bool {
	return o.Doc != nil && o.Doc.Decision != nil &&
		o.Doc.Decision.Status == document.StatusNeedsChoice
}

// Processor executes batches over shared services.
type Processor struct {
	cfg      *config.Config
	logger   *slog.Logger
	cache    cache.Store
	http     *transport.Client
	builtins map[string]pipeline.StepFunc
}

// NewProcessor wires a processor. A nil cache store disables caching; a
// nil logger silences the batch.
func NewProcessor(cfg *config.Config, logger *slog.Logger, store cache.Store, builtins map[string]pipeline.StepFunc) *Processor {
	if logger == nil {
		logger = logging.NewNop()
	}
	if store == nil {
		store = cache.Nop{}
	}
	return &Processor{
		cfg:      cfg,
		logger:   logger,
		cache:    store,
		http:     transport.New(transport.WithLogger(logger)),
		builtins: builtins,
	}
}

// Run processes every input and returns outcomes in input order. Failures
// are carried on the documents; Run itself only fails on context
// cancellation.
func (p *Processor) Run(ctx context.Context, inputs []string, opts Options) ([]Outcome, error) {
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	outcomes := make([]Outcome, len(inputs))
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)
	for i, input := range inputs {
		i, input := i, input
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			doc := p.runOne(groupCtx, input, opts)
			mu.Lock()
			outcomes[i] = Outcome{Input: input, Doc: doc}
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func (p *Processor) runOne(ctx context.Context, input string, opts Options) *document.Document {
	rt := pipeline.NewRuntime(p.cfg, p.logger)
	rt.Cache = p.cache
	rt.HTTP = p.http
	rt.DryRun = opts.DryRun
	rt.Confirm = opts.Confirm
	rt.StatePath = opts.StatePath
	rt.ConfigPath = opts.ConfigPath

	doc := document.New(input, "")
	doc.Request.MediaType = opts.MediaType
	doc.Request.Tags = opts.Tags

	runner := pipeline.NewRunner(rt, p.builtins)
	return runner.Run(ctx, doc, pipeline.Options{Workflow: opts.Workflow})
}

// ReadInputs loads a batch file: one request per line, blank lines and #
// comments skipped.
func ReadInputs(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch file: %w", err)
	}
	defer file.Close()

	var inputs []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		inputs = append(inputs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	return inputs, nil
}
