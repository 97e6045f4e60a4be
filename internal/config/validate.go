package config

import (
	"fmt"

	"grabbit/internal/docpath"
)

const placeholderKey = "CHANGE_ME"

// Validate cross-checks workflow wiring and provider credentials against
// the set of known builtin step names. Errors make the configuration
// unusable; warnings flag steps that will fail at runtime if reached.
func (c *Config) Validate(builtins []string) (errs []string, warnings []string) {
	known := make(map[string]bool, len(builtins))
	for _, name := range builtins {
		known[name] = true
	}

	for name, step := range c.Steps {
		builtin, _ := step["builtin"].(string)
		_, hasCommand := step["command"]
		if builtin == "" && !hasCommand {
			errs = append(errs, fmt.Sprintf("step %s declares neither builtin nor command", name))
			continue
		}
		if builtin != "" && !known[builtin] {
			errs = append(errs, fmt.Sprintf("unknown builtin step: %s -> %s", name, builtin))
		}
	}

	for _, workflow := range c.Workflows {
		for _, stepName := range workflow.Steps {
			if _, ok := c.Steps[stepName]; !ok {
				warnings = append(warnings, fmt.Sprintf("workflow %s references undefined step %s", workflow.Name, stepName))
			}
		}
	}
	for _, stepName := range c.PreSteps {
		if _, ok := c.Steps[stepName]; !ok {
			warnings = append(warnings, fmt.Sprintf("pre_steps references undefined step %s", stepName))
		}
	}
	if c.DefaultWorkflow != "" {
		if _, ok := c.WorkflowByName(c.DefaultWorkflow); !ok {
			errs = append(errs, fmt.Sprintf("default_workflow %s is not defined", c.DefaultWorkflow))
		}
	}

	errs = append(errs, c.validateProviders(&warnings)...)
	return errs, warnings
}

// validateProviders enforces credentials only for providers an active
// step actually uses.
func (c *Config) validateProviders(warnings *[]string) []string {
	var errs []string

	usesBuiltin := func(names ...string) bool {
		for _, step := range c.Steps {
			builtin, _ := step["builtin"].(string)
			for _, name := range names {
				if builtin == name {
					return true
				}
			}
		}
		return false
	}

	if usesBuiltin("indexer_search", "indexer_grab") {
		if docpath.String(c.Raw, "indexer.url") == "" {
			errs = append(errs, "indexer.url is required")
		}
		if key := docpath.String(c.Raw, "indexer.api_key"); key == "" {
			errs = append(errs, "indexer.api_key is required")
		} else if key == placeholderKey {
			*warnings = append(*warnings, "indexer.api_key is not set")
		}
	}

	if provider := docpath.String(c.Raw, "web_search.provider"); provider != "" {
		providerCfg, ok := docpath.Lookup(c.Raw, "web_search.providers."+provider)
		if !ok || providerCfg == nil {
			errs = append(errs, fmt.Sprintf("web_search provider not found: %s", provider))
		} else if key := docpath.String(providerCfg, "api_key"); key == "" || key == placeholderKey {
			*warnings = append(*warnings, fmt.Sprintf("web_search.providers.%s.api_key is not set", provider))
		}
	}

	if usesBuiltin("tracker_enrich", "tracker_comments") {
		if docpath.String(c.Raw, "tracker.url") == "" {
			errs = append(errs, "tracker.url is required")
		}
		if key := docpath.String(c.Raw, "tracker.api_key"); key == "" || key == placeholderKey {
			*warnings = append(*warnings, "tracker.api_key is not set")
		}
	}

	return errs
}
