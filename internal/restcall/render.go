// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package restcall

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"
)

// noValue is what text/template prints for missing keys.
const noValue = "<no value>"

var (
	// a scalar holding exactly one action, e.g. "{{ .id }}" or "{{- .x | default 1 -}}"
	singleActionRe = regexp.MustCompile(`^\s*\{\{-?\s*(.*?)\s*-?\}\}\s*$`)
	// a scalar opening with a control structure or a trimmed action
	controlBlockRe = regexp.MustCompile(`^\s*\{\{(?:-|\s*(?:if|range|with)\b)`)
	keywordRe      = regexp.MustCompile(`^(?:if|else|end|range|with|define|block|template|break|continue)\b`)
)

// renderer evaluates template strings against a parameter mapping.
type renderer struct {
	params map[string]any
}

// renderText renders a whole template text to a string.
func (r *renderer) renderText(name, text string) (string, error) {
	tmpl, err := template.New(name).Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return "", newRenderError(name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, r.params); err != nil {
		return "", newRenderError(name, err)
	}
	return strings.ReplaceAll(buf.String(), noValue, ""), nil
}

// renderValue renders one scalar of the call tree.
//
// A scalar made of a single action yields the action's value with its type
// intact. A scalar opening with a control block is rendered and its output
// parsed as a YAML value. Anything else renders to a string.
func (r *renderer) renderValue(name, text string) (any, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	if m := singleActionRe.FindStringSubmatch(text); m != nil && isPlainPipeline(m[1]) {
		return r.capture(name, m[1])
	}
	out, err := r.renderText(name, text)
	if err != nil {
		return nil, err
	}
	if controlBlockRe.MatchString(text) {
		var v any
		if err := yaml.Unmarshal([]byte(out), &v); err == nil {
			return normalize(v), nil
		}
	}
	return out, nil
}

func isPlainPipeline(p string) bool {
	return p != "" &&
		!strings.Contains(p, "{{") &&
		!strings.Contains(p, "}}") &&
		!strings.Contains(p, ":=") &&
		!strings.HasPrefix(p, "/*") &&
		!keywordRe.MatchString(p)
}

func (r *renderer) capture(name, pipeline string) (any, error) {
	var captured any
	funcs := template.FuncMap{
		"capture": func(v any) string {
			captured = v
			return ""
		},
	}
	tmpl, err := template.New(name).Funcs(sprig.TxtFuncMap()).Funcs(funcs).Parse("{{ capture (" + pipeline + ") }}")
	if err != nil {
		return nil, newRenderError(name, err)
	}
	if err := tmpl.Execute(&bytes.Buffer{}, r.params); err != nil {
		return nil, newRenderError(name, err)
	}
	return normalize(captured), nil
}

func newRenderError(name string, err error) *Error {
	return &Error{Kind: KindMalformedSpec, Message: fmt.Sprintf("Template %s could not be rendered: %v", name, err), Err: err}
}

// decodeNode converts a YAML node into plain values. String scalars are
// passed through render when it is not nil.
func decodeNode(n *yaml.Node, render func(path, text string) (any, error), path string) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return decodeNode(n.Content[0], render, path)
	case yaml.AliasNode:
		return decodeNode(n.Alias, render, path)
	case yaml.MappingNode:
		out := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, err := decodeNode(n.Content[i], render, path)
			if err != nil {
				return nil, err
			}
			k := segmentKey(key)
			val, err := decodeNode(n.Content[i+1], render, path+"."+k)
			if err != nil {
				return nil, err
			}
			out[k] = val
		}
		return out, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for i, c := range n.Content {
			val, err := decodeNode(c, render, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil
	case yaml.ScalarNode:
		if render != nil && n.ShortTag() == "!!str" {
			return render(path, n.Value)
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, &Error{Kind: KindMalformedSpec, Message: fmt.Sprintf("Invalid value at %s: %v", path, err), Err: err}
		}
		return v, nil
	}
	return nil, nil
}

// normalize turns decoded or captured values into the map[string]any and
// []any shapes used across the package.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case Properties:
		return normalize(map[string]any(t))
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[segmentKey(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	}
	return v
}
