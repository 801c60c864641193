// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/devops-wiz/terraform-provider-restcall/internal/restcall"
)

// SequenceInput is one run of a template.
type SequenceInput struct {
	Template  string
	Params    map[string]any
	Prerender bool
}

// SequenceRunner runs call sequences for resources and data sources.
//
// Behavior
// - Every run goes through restcall.Process with the provider requester and call defaults.
// - A recoverable error re-runs the whole sequence, up to recoverable.maxAttempts runs.
// - Waits between runs use capped exponential backoff; a longer Retry-After wins.
// - Any other error, or the last recoverable one, becomes a redacted diagnostic.
type SequenceRunner struct {
	client ServiceClient
	// sleep and loadResource are replaceable in tests
	sleep        func(ctx context.Context, d time.Duration) error
	loadResource restcall.ResourceCallback
}

// NewSequenceRunner creates a runner bound to the configured provider client.
func NewSequenceRunner(client ServiceClient) SequenceRunner {
	return SequenceRunner{client: client, sleep: sleepCtx, loadResource: loadRawPayload}
}

// Run executes in and returns its result. On failure the result is nil and
// diagnostics hold the error.
func (r SequenceRunner) Run(ctx context.Context, op string, in SequenceInput) (*restcall.Result, diag.Diagnostics) {
	var diags diag.Diagnostics

	maxAttempts := r.client.recoverable.maxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	opts := []restcall.Option{
		restcall.WithPrerender(in.Prerender),
		restcall.WithResourceCallback(r.loadResource),
	}
	if r.client.requester != nil {
		opts = append(opts, restcall.WithRequester(r.client.requester))
	}

	for attempt := 1; ; attempt++ {
		tflog.Debug(ctx, "running rest call sequence", map[string]interface{}{
			"operation": op,
			"attempt":   attempt,
		})
		res, err := restcall.Process(ctx, in.Params, in.Template, r.client.defaults, opts...)
		if err == nil {
			return res, diags
		}
		if IsContextError(err) || !restcall.IsRecoverable(err) || attempt >= maxAttempts {
			addSequenceError(&diags, op, err, attempt)
			return nil, diags
		}

		delay := BackoffDuration(attempt, r.client.recoverable.initialBackoff, r.client.recoverable.maxBackoff, r.client.recoverable.jitter)
		if ra := retryAfterFromError(err); ra > delay {
			delay = ra
		}
		tflog.Warn(ctx, "recoverable rest call error, retrying sequence", map[string]interface{}{
			"operation": op,
			"attempt":   attempt,
			"kind":      restcall.KindOf(err).String(),
			"delay":     delay.String(),
		})
		if serr := r.sleep(ctx, delay); serr != nil {
			addSequenceError(&diags, op, fmt.Errorf("%w (while waiting to retry after: %v)", serr, err), attempt)
			return nil, diags
		}
	}
}

// DoCreate runs the resource template and stores its outcome.
func (r SequenceRunner) DoCreate(
	ctx context.Context,
	getPlan func(ctx context.Context, dst *sequenceResourceModel) diag.Diagnostics,
	setState func(ctx context.Context, src *sequenceResourceModel) diag.Diagnostics,
) diag.Diagnostics {
	var diags diag.Diagnostics
	var st sequenceResourceModel

	// 1) Read planned state
	if d := getPlan(ctx, &st); d.HasError() {
		return d
	}

	// 2) Build input
	params, d := decodeParamsJSON(st.ParamsJSON)
	diags.Append(d...)
	if diags.HasError() {
		return diags
	}

	// 3) Run
	res, d := r.Run(ctx, "create sequence", SequenceInput{
		Template:  st.Template.ValueString(),
		Params:    params,
		Prerender: st.Prerender.ValueBool(),
	})
	diags.Append(d...)
	if diags.HasError() {
		return diags
	}

	// 4) Map and set state
	st.ID = newSequenceID()
	diags.Append(st.setResult(ctx, res)...)
	if diags.HasError() {
		return diags
	}
	diags.Append(setState(ctx, &st)...)
	return diags
}

// DoUpdate runs update_template (or template when unset) with the stored
// result properties merged over params_json.
func (r SequenceRunner) DoUpdate(
	ctx context.Context,
	getPlan func(ctx context.Context, dst *sequenceResourceModel) diag.Diagnostics,
	getState func(ctx context.Context, dst *sequenceResourceModel) diag.Diagnostics,
	setState func(ctx context.Context, src *sequenceResourceModel) diag.Diagnostics,
) diag.Diagnostics {
	var diags diag.Diagnostics
	var plan, prior sequenceResourceModel

	// 1) Read plan and prior state
	if d := getPlan(ctx, &plan); d.HasError() {
		return d
	}
	if d := getState(ctx, &prior); d.HasError() {
		return d
	}

	// 2) Only delete_template changed: keep the recorded outcome
	if plan.sameRunInputs(prior) {
		plan.ID = prior.ID
		plan.CallsJSON, plan.ResultPropertiesJSON, plan.Result = prior.CallsJSON, prior.ResultPropertiesJSON, prior.Result
		diags.Append(setState(ctx, &plan)...)
		return diags
	}

	// 3) Build input
	params, d := priorParams(plan.ParamsJSON, prior.ResultPropertiesJSON)
	diags.Append(d...)
	if diags.HasError() {
		return diags
	}
	tmpl := plan.Template.ValueString()
	if v := plan.UpdateTemplate.ValueString(); v != "" {
		tmpl = v
	}

	// 4) Run
	res, d := r.Run(ctx, "update sequence", SequenceInput{Template: tmpl, Params: params, Prerender: plan.Prerender.ValueBool()})
	diags.Append(d...)
	if diags.HasError() {
		return diags
	}

	// 5) Map and set state
	plan.ID = prior.ID
	diags.Append(plan.setResult(ctx, res)...)
	if diags.HasError() {
		return diags
	}
	diags.Append(setState(ctx, &plan)...)
	return diags
}

// DoDelete runs delete_template, if any, with the stored result properties
// merged over params_json.
func (r SequenceRunner) DoDelete(
	ctx context.Context,
	getState func(ctx context.Context, dst *sequenceResourceModel) diag.Diagnostics,
) diag.Diagnostics {
	var diags diag.Diagnostics
	var st sequenceResourceModel

	if d := getState(ctx, &st); d.HasError() {
		return d
	}
	tmpl := st.DeleteTemplate.ValueString()
	if tmpl == "" {
		tflog.Debug(ctx, "no delete_template set, removing sequence from state only", map[string]interface{}{"id": st.ID.ValueString()})
		return diags
	}

	params, d := priorParams(st.ParamsJSON, st.ResultPropertiesJSON)
	diags.Append(d...)
	if diags.HasError() {
		return diags
	}
	_, d = r.Run(ctx, "delete sequence", SequenceInput{Template: tmpl, Params: params, Prerender: st.Prerender.ValueBool()})
	diags.Append(d...)
	return diags
}

// loadRawPayload reads the file named by a call's raw_payload.
func loadRawPayload(_ context.Context, name string) (string, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
