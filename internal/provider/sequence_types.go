// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/types"

	"github.com/devops-wiz/terraform-provider-restcall/internal/restcall"
)

// sequenceResourceModel models the Terraform schema/state for restcall_sequence.
type sequenceResourceModel struct {
	ID                   types.String `tfsdk:"id"`
	Template             types.String `tfsdk:"template"`
	ParamsJSON           types.String `tfsdk:"params_json"`
	Prerender            types.Bool   `tfsdk:"prerender"`
	UpdateTemplate       types.String `tfsdk:"update_template"`
	DeleteTemplate       types.String `tfsdk:"delete_template"`
	CallsJSON            types.String `tfsdk:"calls_json"`
	ResultPropertiesJSON types.String `tfsdk:"result_properties_json"`
	Result               types.Map    `tfsdk:"result"`
}

// sequenceDataSourceModel models the data source restcall_sequence.
type sequenceDataSourceModel struct {
	Template             types.String `tfsdk:"template"`
	ParamsJSON           types.String `tfsdk:"params_json"`
	Prerender            types.Bool   `tfsdk:"prerender"`
	CallsJSON            types.String `tfsdk:"calls_json"`
	ResultPropertiesJSON types.String `tfsdk:"result_properties_json"`
	Result               types.Map    `tfsdk:"result"`
}

// sameRunInputs reports whether m would run exactly what prior ran.
func (m *sequenceResourceModel) sameRunInputs(prior sequenceResourceModel) bool {
	return m.Template.Equal(prior.Template) &&
		m.ParamsJSON.Equal(prior.ParamsJSON) &&
		m.Prerender.Equal(prior.Prerender) &&
		m.UpdateTemplate.Equal(prior.UpdateTemplate)
}

func (m *sequenceResourceModel) setResult(ctx context.Context, res *restcall.Result) diag.Diagnostics {
	out, diags := encodeResult(ctx, res)
	if diags.HasError() {
		return diags
	}
	m.CallsJSON, m.ResultPropertiesJSON, m.Result = out.calls, out.properties, out.result
	return diags
}

func (m *sequenceDataSourceModel) setResult(ctx context.Context, res *restcall.Result) diag.Diagnostics {
	out, diags := encodeResult(ctx, res)
	if diags.HasError() {
		return diags
	}
	m.CallsJSON, m.ResultPropertiesJSON, m.Result = out.calls, out.properties, out.result
	return diags
}

type sequenceOutputs struct {
	calls      types.String
	properties types.String
	result     types.Map
}

func newSequenceID() types.String { return types.StringValue(uuid.NewString()) }

// encodeResult converts a sequence result into its computed attributes.
func encodeResult(ctx context.Context, res *restcall.Result) (sequenceOutputs, diag.Diagnostics) {
	var diags diag.Diagnostics
	calls := []map[string]any{}
	props := restcall.Properties{}
	if res != nil && res.Calls != nil {
		calls = res.Calls
		props = res.ResultProperties
	}

	callsJSON, err := json.Marshal(calls)
	if err != nil {
		diags.AddError("Failed to encode calls", err.Error())
		return sequenceOutputs{}, diags
	}
	propsJSON, err := json.Marshal(props)
	if err != nil {
		diags.AddError("Failed to encode result properties", err.Error())
		return sequenceOutputs{}, diags
	}

	flat := make(map[string]attr.Value, len(props))
	for k, v := range props {
		s, err := resultString(v)
		if err != nil {
			diags.AddError("Failed to encode result property", fmt.Sprintf("property %q: %v", k, err))
			return sequenceOutputs{}, diags
		}
		flat[k] = types.StringValue(s)
	}
	result, d := types.MapValue(types.StringType, flat)
	diags.Append(d...)

	return sequenceOutputs{
		calls:      types.StringValue(string(callsJSON)),
		properties: types.StringValue(string(propsJSON)),
		result:     result,
	}, diags
}

// resultString flattens a property for the result map. Strings are kept,
// everything else is JSON encoded.
func resultString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeParamsJSON parses params_json into template parameters. Numbers keep
// their literal form.
func decodeParamsJSON(s types.String) (map[string]any, diag.Diagnostics) {
	var diags diag.Diagnostics
	params := map[string]any{}
	if s.IsNull() || s.IsUnknown() || s.ValueString() == "" {
		return params, diags
	}
	if err := decodeJSONObject(s.ValueString(), &params); err != nil {
		diags.AddAttributeError(path.Root("params_json"), "Invalid params_json", fmt.Sprintf("params_json must be a JSON object: %v", err))
		return nil, diags
	}
	return params, diags
}

// priorParams merges the stored result properties over params_json so later
// templates can reference what earlier runs extracted.
func priorParams(paramsJSON, propsJSON types.String) (map[string]any, diag.Diagnostics) {
	params, diags := decodeParamsJSON(paramsJSON)
	if diags.HasError() {
		return nil, diags
	}
	if propsJSON.IsNull() || propsJSON.IsUnknown() || propsJSON.ValueString() == "" {
		return params, diags
	}
	props := map[string]any{}
	if err := decodeJSONObject(propsJSON.ValueString(), &props); err != nil {
		diags.AddAttributeError(path.Root("result_properties_json"), "Invalid stored result properties", err.Error())
		return nil, diags
	}
	for k, v := range props {
		params[k] = v
	}
	return params, diags
}

func decodeJSONObject(s string, dst *map[string]any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if *dst == nil {
		return fmt.Errorf("expected an object, got null")
	}
	return nil
}
