package config

import (
	"os"
	"regexp"
)

// deepMerge overlays one mapping onto another recursively. Non-map values
// in the overlay win outright, including lists.
func deepMerge(base, overlay any) any {
	baseMap, baseOK := base.(map[string]any)
	overlayMap, overlayOK := overlay.(map[string]any)
	if !baseOK || !overlayOK {
		return overlay
	}
	merged := make(map[string]any, len(baseMap)+len(overlayMap))
	for key, value := range baseMap {
		merged[key] = value
	}
	for key, value := range overlayMap {
		if existing, ok := merged[key]; ok {
			merged[key] = deepMerge(existing, value)
		} else {
			merged[key] = value
		}
	}
	return merged
}

var envPattern = regexp.MustCompile(`\$\{ENV:([A-Z0-9_]+)\}`)

// resolveEnvValues substitutes ${ENV:NAME} references throughout the
// configuration tree. Unset variables resolve to the empty string so a
// missing secret surfaces as a validation warning instead of literal
// placeholder text reaching a provider.
func resolveEnvValues(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = resolveEnvValues(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = resolveEnvValues(item)
		}
		return out
	case string:
		return envPattern.ReplaceAllStringFunc(v, func(match string) string {
			name := envPattern.FindStringSubmatch(match)[1]
			return os.Getenv(name)
		})
	default:
		return value
	}
}
