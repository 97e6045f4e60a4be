package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"grabbit/internal/document"
	"grabbit/internal/steperr"
)

// configPathEnv tells external step processes where the active
// configuration lives.
const configPathEnv = "GRABBIT_CONFIG"

// runExternal executes a command step: the document goes to the child as
// JSON on stdin, and the child's stdout replaces the document. Empty
// output means "no change". The output is schema-validated before it is
// accepted, so a misbehaving command cannot corrupt the run.
func (r *Runner) runExternal(ctx context.Context, stepName string, cfg map[string]any, doc *document.Document) (*document.Document, error) {
	argv, err := externalCommand(cfg["command"])
	if err != nil {
		return doc, steperr.New(steperr.KindConfig, stepName, err.Error())
	}

	if timeout := StepTimeout(cfg); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	input, err := json.Marshal(doc)
	if err != nil {
		return doc, steperr.Wrap(steperr.KindGeneric, stepName, "encode document", err)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = os.Environ()
	if r.rt.ConfigPath != "" {
		cmd.Env = append(cmd.Env, configPathEnv+"="+r.rt.ConfigPath)
	}

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return doc, steperr.New(steperr.KindTimeout, stepName, "external command timed out")
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return doc, steperr.New(steperr.KindExternalStep, stepName, detail)
	}

	output := bytes.TrimSpace(stdout.Bytes())
	if len(output) == 0 {
		return doc, nil
	}
	if err := document.ValidateJSON(output); err != nil {
		return doc, steperr.Wrap(steperr.KindExternalStep, stepName, "invalid document output", err)
	}
	out, err := document.Decode(output)
	if err != nil {
		return doc, steperr.Wrap(steperr.KindExternalStep, stepName, "decode document output", err)
	}
	return out, nil
}

func externalCommand(raw any) ([]string, error) {
	switch v := raw.(type) {
	case []any:
		argv := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("command entries must be strings")
			}
			argv = append(argv, s)
		}
		if len(argv) == 0 {
			return nil, fmt.Errorf("command is empty")
		}
		return argv, nil
	case []string:
		if len(v) == 0 {
			return nil, fmt.Errorf("command is empty")
		}
		return v, nil
	case string:
		argv := strings.Fields(v)
		if len(argv) == 0 {
			return nil, fmt.Errorf("command is empty")
		}
		return argv, nil
	default:
		return nil, fmt.Errorf("command must be a string or list of strings")
	}
}
