// Package steperr defines the step failure taxonomy shared by the pipeline
// runner, the builtin steps, and the CLI. Steps signal failure by returning
// a *Error; the runner records it on the document and stops the run.
package steperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a step failure for machine consumption.
type Kind string

const (
	KindAuthMissing  Kind = "AuthMissing"
	KindAuthFailed   Kind = "AuthFailed"
	KindNetwork      Kind = "NetworkError"
	KindTimeout      Kind = "Timeout"
	KindParse        Kind = "ParseError"
	KindConfig       Kind = "ConfigError"
	KindNotFound     Kind = "NotFound"
	KindExternalStep Kind = "ExternalStepFailed"
	KindGeneric      Kind = "GenericStepError"
)

// defaultHints supplies a remediation hint when the caller did not set one.
var defaultHints = map[Kind]string{
	KindAuthMissing:  "add the provider api key to the configuration",
	KindAuthFailed:   "verify the provider api key and account status",
	KindNetwork:      "check connectivity to the provider and retry",
	KindTimeout:      "increase the step timeout or retry count",
	KindParse:        "the provider returned an unexpected payload; inspect the raw response",
	KindConfig:       "review the configuration for missing or invalid settings",
	KindNotFound:     "verify the referenced name exists in the configuration",
	KindExternalStep: "run the external command manually against the document JSON",
	KindGeneric:      "re-run with --log-level debug for step details",
}

// Error is the failure type every step returns. It carries the machine
// readable kind plus a human remediation hint.
type Error struct {
	Kind    Kind
	Step    string
	Message string
	Hint    string
	Err     error
}

func (e *Error) Error() string {
	parts := make([]string, 0, 3)
	if e.Step != "" {
		parts = append(parts, e.Step)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	detail := strings.Join(parts, ": ")
	if detail == "" {
		detail = "step failure"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, detail)
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is against a bare kind marker created by Mark.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind && other.Step == "" && other.Message == ""
}

// Mark returns a comparison marker for errors.Is checks on a kind.
func Mark(kind Kind) error {
	return &Error{Kind: kind}
}

// New builds a step error with the default hint for the kind.
func New(kind Kind, step, message string) *Error {
	return &Error{Kind: kind, Step: step, Message: message, Hint: defaultHints[kind]}
}

// Wrap annotates an underlying error with step context and a kind.
func Wrap(kind Kind, step, message string, err error) *Error {
	if inner := AsError(err); inner != nil {
		// Preserve the original classification when re-wrapping.
		if kind == KindGeneric {
			kind = inner.Kind
		}
	}
	return &Error{Kind: kind, Step: step, Message: message, Hint: defaultHints[kind], Err: err}
}

// WithHint overrides the remediation hint.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// AsError extracts the *Error from a chain, or nil.
func AsError(err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return nil
}

// KindOf reports the kind of an error chain, defaulting to GenericStepError.
func KindOf(err error) Kind {
	if se := AsError(err); se != nil {
		return se.Kind
	}
	return KindGeneric
}

// codes are the stable machine identifiers written to the document.
var codes = map[Kind]string{
	KindAuthMissing:  "auth_missing",
	KindAuthFailed:   "auth_failed",
	KindNetwork:      "network",
	KindTimeout:      "timeout",
	KindParse:        "parse",
	KindConfig:       "config",
	KindNotFound:     "not_found",
	KindExternalStep: "external_step",
	KindGeneric:      "generic",
}

// CodeOf reports the machine code for an error chain's kind.
func CodeOf(err error) string {
	return codes[KindOf(err)]
}

// HintOf reports the remediation hint of an error chain.
func HintOf(err error) string {
	if se := AsError(err); se != nil && se.Hint != "" {
		return se.Hint
	}
	return defaultHints[KindGeneric]
}
