// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
)

var _ datasource.DataSource = (*sequenceDataSource)(nil)
var _ datasource.DataSourceWithConfigure = (*sequenceDataSource)(nil)

// NewSequenceDataSource returns the Terraform data source implementation for restcall_sequence.
func NewSequenceDataSource() datasource.DataSource { return &sequenceDataSource{} }

type sequenceDataSource struct {
	ServiceClient
}

func (d *sequenceDataSource) Metadata(_ context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_sequence"
}

func (d *sequenceDataSource) Schema(_ context.Context, _ datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Runs a templated sequence of REST calls on every read. Use it for lookups; use the resource for calls with side effects.",
		Attributes: map[string]schema.Attribute{
			// Inputs
			"template": schema.StringAttribute{
				Required:            true,
				Validators:          []validator.String{stringvalidator.LengthAtLeast(1)},
				MarkdownDescription: "YAML document with a `rest_calls` list.",
			},
			"params_json": schema.StringAttribute{
				Optional:            true,
				MarkdownDescription: "JSON object with the template parameters.",
			},
			"prerender": schema.BoolAttribute{
				Optional:            true,
				MarkdownDescription: "Render the whole template once before parsing it. Defaults to `false`.",
			},
			// Outputs
			"calls_json": schema.StringAttribute{
				Computed:            true,
				MarkdownDescription: "JSON list of the rendered calls, in order.",
			},
			"result_properties_json": schema.StringAttribute{
				Computed:            true,
				MarkdownDescription: "JSON object with every property extracted from the responses.",
			},
			"result": schema.MapAttribute{
				Computed:            true,
				ElementType:         types.StringType,
				MarkdownDescription: "Extracted properties as strings; non-string values are JSON encoded.",
			},
		},
	}
}

func (d *sequenceDataSource) Configure(_ context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	if req.ProviderData == nil {
		return
	}
	provider, ok := req.ProviderData.(*RestcallProvider)
	if !ok {
		resp.Diagnostics.AddError(
			"Unexpected Data Source Configure Type",
			fmt.Sprintf("Expected RestcallProvider, got: %T. Please report this issue to the provider developers.", req.ProviderData),
		)
		return
	}
	d.ServiceClient = provider.client
}

func (d *sequenceDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	ctx, cancel := withTimeout(ctx, d.providerTimeouts.Read)
	defer cancel()

	var data sequenceDataSourceModel
	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	params, diags := decodeParamsJSON(data.ParamsJSON)
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}

	res, diags := NewSequenceRunner(d.ServiceClient).Run(ctx, "read sequence", SequenceInput{
		Template:  data.Template.ValueString(),
		Params:    params,
		Prerender: data.Prerender.ValueBool(),
	})
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}

	resp.Diagnostics.Append(data.setResult(ctx, res)...)
	if resp.Diagnostics.HasError() {
		return
	}
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}
