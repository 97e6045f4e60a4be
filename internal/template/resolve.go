// Package template resolves the declarative request descriptions found in
// step configuration (URLs, headers, query params, bodies) against the
// in-flight document. The grammar is deliberately narrow: dotted path
// references and literal interpolation only. The narrowness is a safety
// property of the configuration surface, not a limitation.
package template

import (
	"regexp"
	"strings"

	"grabbit/internal/docpath"
	"grabbit/internal/document"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_.]+)\}`)

// Context exposes the dotted-path-addressable views a template may reference.
type Context struct {
	doc    *document.Document
	config map[string]any
}

// NewContext builds a resolution context over a document and the raw
// configuration mapping.
func NewContext(doc *document.Document, config map[string]any) Context {
	return Context{doc: doc, config: config}
}

// lookup resolves a view-prefixed dotted path ("work.year", "config.x.y",
// "data.search.web.count").
func (c Context) lookup(path string) (any, bool) {
	view, rest, _ := strings.Cut(path, ".")
	var root any
	switch view {
	case "request":
		root = &c.doc.Request
	case "work":
		root = &c.doc.Work
	case "decision":
		if c.doc.Decision == nil {
			return nil, false
		}
		root = c.doc.Decision
	case "config":
		root = c.config
	case "data":
		root = c.doc
	default:
		return nil, false
	}
	if rest == "" {
		return root, true
	}
	return docpath.Lookup(root, rest)
}

// Resolve walks an arbitrarily nested template structure. Mappings and
// sequences are resolved recursively; strings are resolved per the
// whole-field / interpolation rules; every other scalar passes through
// unchanged.
func Resolve(tmpl any, ctx Context) any {
	switch v := tmpl.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			out[key] = Resolve(value, ctx)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, value := range v {
			out[i] = Resolve(value, ctx)
		}
		return out
	case string:
		return resolveString(v, ctx)
	default:
		return tmpl
	}
}

// ResolveMap resolves a mapping template, returning nil for nil input.
func ResolveMap(tmpl map[string]any, ctx Context) map[string]any {
	if tmpl == nil {
		return nil
	}
	resolved, _ := Resolve(tmpl, ctx).(map[string]any)
	return resolved
}

// resolveString applies the two string modes. A string that is exactly one
// placeholder resolves to the referenced value with its original type, so
// templates can produce numeric parameters and nested bodies. Any other
// string is interpolated: a path that resolves substitutes its string
// form, empty included, while an absent path is left as literal {path}
// text so partially-specified templates degrade instead of failing a step.
func resolveString(s string, ctx Context) any {
	if m := placeholderPattern.FindStringSubmatch(s); m != nil && m[0] == s {
		if value, ok := ctx.lookup(m[1]); ok {
			return value
		}
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(ph string) string {
		path := ph[1 : len(ph)-1]
		value, ok := ctx.lookup(path)
		if !ok || value == nil {
			return ph
		}
		return docpath.Stringify(value)
	})
}
