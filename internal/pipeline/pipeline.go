// Package pipeline owns workflow execution: step sequencing, per-step
// config merging, side-effect gating, error capture, and external command
// steps. Builtin step implementations live in internal/steps and are
// handed in as a registry.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"grabbit/internal/cache"
	"grabbit/internal/config"
	"grabbit/internal/document"
	"grabbit/internal/logging"
	"grabbit/internal/transport"
)

// StepFunc is the builtin step contract: it receives the document and its
// merged configuration and returns the (possibly replaced) document.
type StepFunc func(ctx context.Context, doc *document.Document, cfg map[string]any, rt *Runtime) (*document.Document, error)

// Runtime carries the shared services one run threads through its steps.
type Runtime struct {
	Config      *config.Config
	Logger      *slog.Logger
	Cache       cache.Store
	HTTP        *transport.Client
	ChoiceIndex *int
	DryRun      bool
	Confirm     bool
	RunID       string
	StatePath   string
	ConfigPath  string
}

// NewRuntime assembles a runtime with a fresh run id. Nil services fall
// back to inert implementations so tests can construct partial runtimes.
func NewRuntime(cfg *config.Config, logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runtime{
		Config: cfg,
		Logger: logger,
		Cache:  cache.Nop{},
		HTTP:   transport.New(),
		RunID:  uuid.NewString(),
	}
}

// RawConfig returns the merged configuration mapping for template lookups.
func (rt *Runtime) RawConfig() map[string]any {
	if rt.Config == nil {
		return nil
	}
	return rt.Config.Raw
}

// ThrottleProvider enforces the provider's requests-per-minute budget
// before an outbound call. Providers without a budget pass through.
func (rt *Runtime) ThrottleProvider(ctx context.Context, providerKey string) error {
	if providerKey == "" || rt.HTTP == nil {
		return nil
	}
	rpm, ok := ProviderRateLimit(rt.RawConfig(), providerKey)
	if !ok || rpm <= 0 {
		return nil
	}
	return rt.HTTP.Throttle(ctx, providerKey, rpm)
}

// RetryPolicy builds the transport policy for a step from its merged
// configuration, falling back to the workflow-level retry defaults.
func (rt *Runtime) RetryPolicy(cfg map[string]any) transport.RetryPolicy {
	defaults := config.RetryDefaults{}
	if rt.Config != nil {
		defaults = rt.Config.Retries
	}
	policy := transport.RetryPolicy{
		Retries:    defaults.Retries,
		Backoff:    secondsToDuration(defaults.RetryBackoffSeconds),
		MaxBackoff: secondsToDuration(defaults.MaxBackoffSeconds),
	}
	if v, ok := intFromConfig(cfg, "retries"); ok {
		policy.Retries = v
	}
	if v, ok := floatFromConfig(cfg, "retry_backoff_seconds"); ok {
		policy.Backoff = secondsToDuration(v)
	}
	if v, ok := floatFromConfig(cfg, "max_backoff_seconds"); ok {
		policy.MaxBackoff = secondsToDuration(v)
	}
	if statuses, ok := cfg["retry_statuses"].([]any); ok {
		policy.Statuses = make([]int, 0, len(statuses))
		for _, s := range statuses {
			if v, ok := coerceInt(s); ok {
				policy.Statuses = append(policy.Statuses, v)
			}
		}
	}
	return policy
}
