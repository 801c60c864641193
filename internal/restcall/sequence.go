// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package restcall

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/terraform-plugin-log/tflog"
	"gopkg.in/yaml.v3"

	"github.com/devops-wiz/terraform-provider-restcall/internal/redact"
)

// ResourceCallback loads the external resource named by raw_payload.
type ResourceCallback func(ctx context.Context, name string) (string, error)

// Option configures Process.
type Option func(*options)

type options struct {
	prerender bool
	callback  ResourceCallback
	requester Requester
}

// WithPrerender renders the whole template text against params before it is
// parsed. Calls then cannot reference properties extracted by earlier calls.
func WithPrerender(prerender bool) Option {
	return func(o *options) { o.prerender = prerender }
}

// WithResourceCallback sets the loader used for raw_payload.
func WithResourceCallback(cb ResourceCallback) Option {
	return func(o *options) { o.callback = cb }
}

// WithRequester replaces the default HTTPRequester.
func WithRequester(r Requester) Option {
	return func(o *options) { o.requester = r }
}

// Result is the outcome of a call sequence.
type Result struct {
	// Calls holds every rendered call in order.
	Calls            []map[string]any
	ResultProperties Properties
}

// Map returns the result as {"calls": ..., "result_properties": ...}, or an
// empty mapping when the template declared no calls.
func (r *Result) Map() map[string]any {
	if r == nil || r.Calls == nil {
		return map[string]any{}
	}
	return map[string]any{
		"calls":             r.Calls,
		"result_properties": r.ResultProperties,
	}
}

// Process runs the rest_calls declared in templateText in order.
//
// Before each call the properties extracted so far are merged into params
// and the call is rendered against them. The rendered call is recorded,
// merged over defaults and dispatched. Its response is then validated and
// translated into the result properties. params is not modified.
//
// A failure stops the sequence and is returned as a *SequenceError carrying
// the calls rendered and properties extracted up to that point.
func Process(ctx context.Context, params map[string]any, templateText string, defaults map[string]any, opts ...Option) (*Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.requester == nil {
		o.requester = DefaultRequester()
	}

	tflog.Info(ctx, "processing rest calls template", map[string]interface{}{
		"template":  redact.Truncate(redact.Secrets(templateText), maxLoggedContent),
		"prerender": o.prerender,
	})
	if strings.TrimSpace(templateText) == "" {
		return &Result{}, nil
	}

	work := make(map[string]any, len(params))
	for k, v := range params {
		work[k] = v
	}
	r := &renderer{params: work}

	text := templateText
	if o.prerender {
		var err error
		if text, err = r.renderText("template", templateText); err != nil {
			return nil, err
		}
	}
	entries, err := restCalls(text)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return &Result{}, nil
	}

	res := &Result{Calls: []map[string]any{}, ResultProperties: Properties{}}
	for i, entry := range entries {
		if err := runCall(ctx, &o, r, res, i, entry, defaults); err != nil {
			calls := make([]map[string]any, len(res.Calls))
			copy(calls, res.Calls)
			props := make(Properties, len(res.ResultProperties))
			for k, v := range res.ResultProperties {
				props[k] = v
			}
			return nil, &SequenceError{Index: i, Calls: calls, ResultProperties: props, Err: err}
		}
	}
	return res, nil
}

func runCall(ctx context.Context, o *options, r *renderer, res *Result, i int, entry *yaml.Node, defaults map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for k, v := range res.ResultProperties {
		r.params[k] = v
	}

	var render func(path, text string) (any, error)
	if !o.prerender {
		render = r.renderValue
	}
	decoded, err := decodeNode(entry, render, fmt.Sprintf("rest_calls[%d]", i))
	if err != nil {
		return err
	}
	rendered, ok := decoded.(map[string]any)
	if !ok {
		return newError(KindMalformedSpec, "Rest call had to be dict. Type %T not supported. ", decoded)
	}
	res.Calls = append(res.Calls, rendered)
	tflog.Debug(ctx, "rendered rest call", map[string]interface{}{
		"index": i,
		"call":  redact.Truncate(redact.Secrets(stringify(rendered)), maxLoggedContent),
	})

	merged := make(map[string]any, len(defaults)+len(rendered))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range rendered {
		merged[k] = v
	}
	call, err := DecodeCall(merged)
	if err != nil {
		return err
	}
	if call.RawPayload != "" && o.callback != nil {
		payload, err := o.callback(ctx, call.RawPayload)
		if err != nil {
			return fmt.Errorf("load raw_payload %q: %w", call.RawPayload, err)
		}
		call.Payload = payload
	}

	resp, err := send(ctx, o.requester, call, newRequest(call))
	if err != nil {
		return err
	}
	return ProcessResponse(ctx, resp, call, res.ResultProperties)
}

// restCalls returns the rest_calls entries of a template document.
func restCalls(text string) ([]*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &Error{Kind: KindMalformedSpec, Message: fmt.Sprintf("Template is not valid YAML: %v", err), Err: err}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, newError(KindMalformedSpec, "Template had to be dict with rest_calls key")
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "rest_calls" {
			continue
		}
		calls := root.Content[i+1]
		if calls.Kind == yaml.AliasNode {
			calls = calls.Alias
		}
		switch calls.Kind {
		case yaml.SequenceNode:
			return calls.Content, nil
		case yaml.ScalarNode:
			if calls.ShortTag() == "!!null" {
				return nil, nil
			}
		}
		return nil, newError(KindMalformedSpec, "rest_calls had to be list")
	}
	return nil, nil
}
