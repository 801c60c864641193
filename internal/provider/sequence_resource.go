// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/booldefault"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/planmodifier"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/stringplanmodifier"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
)

var _ resource.Resource = (*sequenceResource)(nil)
var _ resource.ResourceWithConfigure = (*sequenceResource)(nil)
var _ resource.ResourceWithValidateConfig = (*sequenceResource)(nil)

// NewSequenceResource returns the Terraform resource implementation for restcall_sequence.
func NewSequenceResource() resource.Resource { return &sequenceResource{} }

type sequenceResource struct {
	ServiceClient
}

func (r *sequenceResource) Metadata(_ context.Context, req resource.MetadataRequest, resp *resource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_sequence"
}

func (r *sequenceResource) Configure(_ context.Context, req resource.ConfigureRequest, resp *resource.ConfigureResponse) {
	if req.ProviderData == nil {
		return
	}

	provider, ok := req.ProviderData.(*RestcallProvider)
	if !ok {
		resp.Diagnostics.AddError(
			"Unexpected Resource Configure Type",
			fmt.Sprintf("Expected RestcallProvider, got: %T. Please report this issue to the provider developers.", req.ProviderData),
		)
		return
	}

	r.ServiceClient = provider.client
}

func (r *sequenceResource) ValidateConfig(ctx context.Context, req resource.ValidateConfigRequest, resp *resource.ValidateConfigResponse) {
	var data sequenceResourceModel
	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}
	if !data.ParamsJSON.IsUnknown() {
		_, d := decodeParamsJSON(data.ParamsJSON)
		resp.Diagnostics.Append(d...)
	}
}

func (r *sequenceResource) Schema(_ context.Context, _ resource.SchemaRequest, resp *resource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Runs a templated sequence of REST calls on create and records the rendered calls " +
			"and the properties extracted from their responses. Optional templates run on update and destroy.",
		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				Computed: true,
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
				MarkdownDescription: "Random identifier of this sequence run.",
			},
			"template": schema.StringAttribute{
				Required:            true,
				Validators:          []validator.String{stringvalidator.LengthAtLeast(1)},
				MarkdownDescription: "YAML document with a `rest_calls` list. String values are Go templates rendered against the parameters and the properties extracted by earlier calls.",
			},
			"params_json": schema.StringAttribute{
				Optional:            true,
				MarkdownDescription: "JSON object with the template parameters.",
			},
			"prerender": schema.BoolAttribute{
				Optional:            true,
				Computed:            true,
				Default:             booldefault.StaticBool(false),
				MarkdownDescription: "Render the whole template once before parsing it. Calls then cannot use properties extracted by earlier calls. Defaults to `false`.",
			},
			"update_template": schema.StringAttribute{
				Optional:            true,
				MarkdownDescription: "Template run on update instead of `template`. The stored result properties are available as parameters.",
			},
			"delete_template": schema.StringAttribute{
				Optional:            true,
				MarkdownDescription: "Template run on destroy. The stored result properties are available as parameters.",
			},
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

func (r *sequenceResource) Create(ctx context.Context, req resource.CreateRequest, resp *resource.CreateResponse) {
	ctx, cancel := withTimeout(ctx, r.providerTimeouts.Create)
	defer cancel()

	diags := NewSequenceRunner(r.ServiceClient).DoCreate(
		ctx,
		func(ctx context.Context, dst *sequenceResourceModel) diag.Diagnostics {
			return req.Plan.Get(ctx, dst)
		},
		func(ctx context.Context, src *sequenceResourceModel) diag.Diagnostics {
			return resp.State.Set(ctx, src)
		},
	)
	resp.Diagnostics.Append(diags...)
}

// Read keeps the recorded outcome; a sequence is not re-run on refresh.
func (r *sequenceResource) Read(ctx context.Context, req resource.ReadRequest, resp *resource.ReadResponse) {
	var st sequenceResourceModel
	resp.Diagnostics.Append(req.State.Get(ctx, &st)...)
	if resp.Diagnostics.HasError() {
		return
	}
	resp.Diagnostics.Append(resp.State.Set(ctx, &st)...)
}

func (r *sequenceResource) Update(ctx context.Context, req resource.UpdateRequest, resp *resource.UpdateResponse) {
	ctx, cancel := withTimeout(ctx, r.providerTimeouts.Update)
	defer cancel()

	diags := NewSequenceRunner(r.ServiceClient).DoUpdate(
		ctx,
		func(ctx context.Context, dst *sequenceResourceModel) diag.Diagnostics {
			return req.Plan.Get(ctx, dst)
		},
		func(ctx context.Context, dst *sequenceResourceModel) diag.Diagnostics {
			return req.State.Get(ctx, dst)
		},
		func(ctx context.Context, src *sequenceResourceModel) diag.Diagnostics {
			return resp.State.Set(ctx, src)
		},
	)
	resp.Diagnostics.Append(diags...)
}

func (r *sequenceResource) Delete(ctx context.Context, req resource.DeleteRequest, resp *resource.DeleteResponse) {
	ctx, cancel := withTimeout(ctx, r.providerTimeouts.Delete)
	defer cancel()

	diags := NewSequenceRunner(r.ServiceClient).DoDelete(
		ctx,
		func(ctx context.Context, dst *sequenceResourceModel) diag.Diagnostics {
			return req.State.Get(ctx, dst)
		},
	)
	resp.Diagnostics.Append(diags...)
}
