package pipeline

import (
	"time"

	"grabbit/internal/docpath"
)

func secondsToDuration(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

func coerceInt(value any) (int, bool) {
	f, ok := docpath.Coerce(value)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func intFromConfig(cfg map[string]any, key string) (int, bool) {
	value, ok := cfg[key]
	if !ok {
		return 0, false
	}
	return coerceInt(value)
}

func floatFromConfig(cfg map[string]any, key string) (float64, bool) {
	value, ok := cfg[key]
	if !ok {
		return 0, false
	}
	return docpath.Coerce(value)
}

// StepTimeout reads the per-step timeout in seconds from merged config.
func StepTimeout(cfg map[string]any) time.Duration {
	if v, ok := floatFromConfig(cfg, "timeout"); ok {
		return secondsToDuration(v)
	}
	return 0
}
