package pipeline

import (
	"fmt"
	"strings"

	"grabbit/internal/docpath"
)

// Provider describes a configured external service: its auth surface, the
// config keys it cannot run without, and advisory limits.
type Provider struct {
	Type              string
	Name              string
	MediaTypes        []string
	AuthKeyPath       string
	RequiredKeys      []string
	OptionalKeys      []string
	RequestsPerMinute int
}

// builtinProviders is the registry of known provider shapes.
var builtinProviders = map[string]Provider{
	"web_search.kagi": {
		Type:              "web_search",
		Name:              "kagi",
		MediaTypes:        []string{"music", "movie", "tv", "book"},
		AuthKeyPath:       "web_search.providers.kagi.api_key",
		RequiredKeys:      []string{"web_search.providers.kagi.api_key"},
		OptionalKeys:      []string{"web_search.providers.kagi.request"},
		RequestsPerMinute: 60,
	},
	"web_search.brave": {
		Type:              "web_search",
		Name:              "brave",
		MediaTypes:        []string{"music", "movie", "tv", "book"},
		AuthKeyPath:       "web_search.providers.brave.api_key",
		RequiredKeys:      []string{"web_search.providers.brave.api_key"},
		OptionalKeys:      []string{"web_search.providers.brave.request"},
		RequestsPerMinute: 60,
	},
	"indexer": {
		Type:              "indexer",
		Name:              "indexer",
		MediaTypes:        []string{"music", "book"},
		AuthKeyPath:       "indexer.api_key",
		RequiredKeys:      []string{"indexer.url", "indexer.api_key"},
		OptionalKeys:      []string{"indexer.search", "indexer.grab"},
		RequestsPerMinute: 120,
	},
	"tracker": {
		Type:              "tracker",
		Name:              "tracker",
		MediaTypes:        []string{"music"},
		AuthKeyPath:       "tracker.api_key",
		RequiredKeys:      []string{"tracker.url", "tracker.api_key"},
		RequestsPerMinute: 60,
	},
	"manager.movie": {
		Type:         "manager",
		Name:         "movie",
		MediaTypes:   []string{"movie"},
		AuthKeyPath:  "manager.movie.api_key",
		RequiredKeys: []string{"manager.movie.url", "manager.movie.api_key", "manager.movie.endpoint"},
		OptionalKeys: []string{"manager.movie.root_folder", "manager.movie.quality_profile_id"},
	},
	"manager.tv": {
		Type:         "manager",
		Name:         "tv",
		MediaTypes:   []string{"tv"},
		AuthKeyPath:  "manager.tv.api_key",
		RequiredKeys: []string{"manager.tv.url", "manager.tv.api_key", "manager.tv.endpoint"},
		OptionalKeys: []string{"manager.tv.root_folder", "manager.tv.quality_profile_id"},
	},
	"manager.book": {
		Type:         "manager",
		Name:         "book",
		MediaTypes:   []string{"book"},
		AuthKeyPath:  "manager.book.api_key",
		RequiredKeys: []string{"manager.book.url", "manager.book.api_key", "manager.book.endpoint"},
		OptionalKeys: []string{"manager.book.root_folder", "manager.book.quality_profile_id"},
	},
}

// ActiveProviders lists the registry keys a configuration activates.
func ActiveProviders(raw map[string]any) []string {
	var active []string
	seen := map[string]bool{}
	add := func(key string) {
		if !seen[key] {
			seen[key] = true
			active = append(active, key)
		}
	}

	if provider := docpath.String(raw, "web_search.provider"); provider != "" {
		add("web_search." + provider)
	}
	if providers, ok := docpath.Lookup(raw, "web_search.providers"); ok {
		if m, ok := providers.(map[string]any); ok {
			for name := range m {
				add("web_search." + name)
			}
		}
	}
	if _, ok := raw["indexer"]; ok {
		add("indexer")
	}
	if _, ok := raw["tracker"]; ok {
		add("tracker")
	}
	if manager, ok := raw["manager"].(map[string]any); ok {
		for _, app := range []string{"movie", "tv", "book"} {
			if _, ok := manager[app]; ok {
				add("manager." + app)
			}
		}
	}
	return active
}

// unsetValue reports credentials present but empty or still at the
// shipped CHANGE_ME placeholder.
func unsetValue(value any) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	trimmed := strings.TrimSpace(s)
	return trimmed == "" || strings.EqualFold(trimmed, "CHANGE_ME")
}

// ValidateProviders checks every active provider's required keys against
// the configuration. Absent keys are errors; keys present but empty or at
// the CHANGE_ME placeholder are warnings, so a freshly written default
// configuration validates while still naming every key to fill in.
func ValidateProviders(raw map[string]any) (errs []string, warnings []string) {
	for _, key := range ActiveProviders(raw) {
		provider, ok := builtinProviders[key]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("provider registry missing definition: %s", key))
			continue
		}
		for _, keyPath := range provider.RequiredKeys {
			value, found := docpath.Lookup(raw, keyPath)
			switch {
			case !found || value == nil:
				errs = append(errs, fmt.Sprintf("%s: missing required config %s", key, keyPath))
			case unsetValue(value):
				warnings = append(warnings, fmt.Sprintf("%s: %s is not set", key, keyPath))
			}
		}
	}
	return errs, warnings
}

// ProviderRateLimit resolves the requests-per-minute budget for a
// provider, honoring rate_limits overrides in the configuration.
func ProviderRateLimit(raw map[string]any, providerKey string) (int, bool) {
	if override, ok := docpath.Lookup(raw, "rate_limits."+providerKey); ok {
		if nested, ok := docpath.Lookup(override, "requests_per_minute"); ok {
			override = nested
		}
		if v, ok := docpath.Coerce(override); ok {
			return int(v), true
		}
		return 0, false
	}
	provider, ok := builtinProviders[providerKey]
	if !ok || provider.RequestsPerMinute == 0 {
		return 0, false
	}
	return provider.RequestsPerMinute, true
}
