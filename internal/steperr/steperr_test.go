package steperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"full", New(KindNetwork, "indexer_search", "provider unreachable"), "NetworkError: indexer_search: provider unreachable"},
		{"no step", New(KindConfig, "", "bad value"), "ConfigError: bad value"},
		{"bare", &Error{Kind: KindGeneric}, "GenericStepError: step failure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapPreservesClassification(t *testing.T) {
	inner := New(KindTimeout, "indexer_search", "deadline exceeded")
	outer := Wrap(KindGeneric, "search", "provider call failed", inner)

	if outer.Kind != KindTimeout {
		t.Errorf("Kind = %q, want the inner classification kept", outer.Kind)
	}
	if !errors.Is(outer, Mark(KindTimeout)) {
		t.Error("errors.Is does not match the timeout marker")
	}

	explicit := Wrap(KindAuthFailed, "search", "rejected", inner)
	if explicit.Kind != KindAuthFailed {
		t.Errorf("Kind = %q, an explicit kind must win", explicit.Kind)
	}
}

func TestKindOfAndCodeOf(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(KindAuthMissing, "search", "no key"))

	if got := KindOf(err); got != KindAuthMissing {
		t.Errorf("KindOf() = %q", got)
	}
	if got := CodeOf(err); got != "auth_missing" {
		t.Errorf("CodeOf() = %q", got)
	}
	if got := CodeOf(errors.New("plain")); got != "generic" {
		t.Errorf("CodeOf(plain) = %q", got)
	}
}

func TestHintOf(t *testing.T) {
	err := New(KindAuthMissing, "search", "no key")
	if got := HintOf(err); got != defaultHints[KindAuthMissing] {
		t.Errorf("HintOf() = %q", got)
	}

	custom := New(KindNetwork, "search", "down").WithHint("check the vpn")
	if got := HintOf(custom); got != "check the vpn" {
		t.Errorf("HintOf() = %q, want the override", got)
	}

	if got := HintOf(errors.New("plain")); got != defaultHints[KindGeneric] {
		t.Errorf("HintOf(plain) = %q", got)
	}
}
