// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"context"

	"github.com/hashicorp/terraform-plugin-framework-validators/int64validator"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/provider"
	"github.com/hashicorp/terraform-plugin-framework/provider/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// Ensure RestcallProvider satisfies various provider interfaces.
var _ provider.Provider = &RestcallProvider{}
var _ provider.ProviderWithValidateConfig = &RestcallProvider{}

// RestcallProvider defines the provider implementation.
type RestcallProvider struct {
	// version is set to the provider version on release, "dev" when the
	// provider is built and ran locally, and "test" when running acceptance
	// testing.
	version string
	// client is handed to resources and data sources on Configure.
	client ServiceClient
}

// RestcallProviderModel describes the provider data model.
type RestcallProviderModel struct {
	// Call defaults
	Host    types.String `tfsdk:"host"`
	Port    types.Int64  `tfsdk:"port"`
	SSL     types.Bool   `tfsdk:"ssl"`
	Verify  types.Bool   `tfsdk:"verify"`
	Headers types.Map    `tfsdk:"headers"`

	// Authentication
	AuthMethod types.String `tfsdk:"auth_method"`
	APIToken   types.String `tfsdk:"api_token"`
	Username   types.String `tfsdk:"username"`
	Password   types.String `tfsdk:"password"`

	// HTTP and retries
	HTTPTimeoutSeconds     types.Int64 `tfsdk:"http_timeout_seconds"`
	RetryOn4295xx          types.Bool  `tfsdk:"retry_on_429_5xx"`
	RetryMaxAttempts       types.Int64 `tfsdk:"retry_max_attempts"`
	RetryInitialBackoffMs  types.Int64 `tfsdk:"retry_initial_backoff_ms"`
	RetryMaxBackoffMs      types.Int64 `tfsdk:"retry_max_backoff_ms"`
	RecoverableMaxAttempts types.Int64 `tfsdk:"recoverable_max_attempts"`

	OperationTimeouts *OperationTimeoutsModel `tfsdk:"operation_timeouts"`
}

func (p *RestcallProvider) Metadata(_ context.Context, _ provider.MetadataRequest, resp *provider.MetadataResponse) {
	resp.TypeName = "restcall"
	resp.Version = p.version
}

func (p *RestcallProvider) Schema(_ context.Context, _ provider.SchemaRequest, resp *provider.SchemaResponse) {
	durationHint := "Go duration such as `30s` or `5m`."
	resp.Schema = schema.Schema{
		MarkdownDescription: "Runs templated sequences of REST calls, validates the responses and exposes the extracted properties.",
		Attributes: map[string]schema.Attribute{
			// Call defaults
			attrHost: schema.StringAttribute{
				MarkdownDescription: "Default host for calls that set neither `host` nor `hosts`. Can be set with `RESTCALL_HOST`.",
				Optional:            true,
			},
			attrPort: schema.Int64Attribute{
				MarkdownDescription: "Default port. `-1` selects 443 or 80 from `ssl`. Defaults to `-1`.",
				Optional:            true,
				Validators: []validator.Int64{
					int64validator.Any(int64validator.OneOf(-1), int64validator.Between(1, 65535)),
				},
			},
			attrSSL: schema.BoolAttribute{
				MarkdownDescription: "Default for `ssl`: use https. Defaults to `false`.",
				Optional:            true,
			},
			attrVerify: schema.BoolAttribute{
				MarkdownDescription: "Default for `verify`: check TLS certificates. Defaults to `true`.",
				Optional:            true,
			},
			attrHeaders: schema.MapAttribute{
				MarkdownDescription: "Headers sent with every call. Call headers with the same name win.",
				Optional:            true,
				ElementType:         types.StringType,
			},

			// Authentication
			attrAuthMethod: schema.StringAttribute{
				MarkdownDescription: "Authentication applied to every call: `none`, `basic` or `bearer`. Defaults to `none`. A call's own `auth` or `Authorization` header wins.",
				Optional:            true,
				Validators: []validator.String{
					stringvalidator.OneOfCaseInsensitive(authMethodNone, authMethodBasic, authMethodBearer),
				},
			},
			attrAPIToken: schema.StringAttribute{
				MarkdownDescription: "Bearer token for `auth_method = \"bearer\"`. Can be set with `RESTCALL_API_TOKEN`.",
				Optional:            true,
				Sensitive:           true,
			},
			attrUsername: schema.StringAttribute{
				MarkdownDescription: "Username for `auth_method = \"basic\"`. Can be set with `RESTCALL_USERNAME`.",
				Optional:            true,
			},
			attrPassword: schema.StringAttribute{
				MarkdownDescription: "Password for `auth_method = \"basic\"`. Can be set with `RESTCALL_PASSWORD`.",
				Optional:            true,
				Sensitive:           true,
			},

			// HTTP and retries
			attrHTTPTimeoutSeconds: schema.Int64Attribute{
				MarkdownDescription: "Timeout for a single HTTP request in seconds (1-600). Defaults to `30`.",
				Optional:            true,
				Validators:          []validator.Int64{int64validator.Between(1, 600)},
			},
			attrRetryOn4295xx: schema.BoolAttribute{
				MarkdownDescription: "Retry single requests on connection errors, 429 and 5xx before the response is evaluated. Defaults to `true`.",
				Optional:            true,
			},
			attrRetryMaxAttempts: schema.Int64Attribute{
				MarkdownDescription: "Transport retries per request (1-10). Defaults to `4`.",
				Optional:            true,
				Validators:          []validator.Int64{int64validator.Between(1, 10)},
			},
			attrRetryInitialBackoff: schema.Int64Attribute{
				MarkdownDescription: "Initial backoff in milliseconds (100-600000). Defaults to `500`.",
				Optional:            true,
				Validators:          []validator.Int64{int64validator.Between(100, 600000)},
			},
			attrRetryMaxBackoff: schema.Int64Attribute{
				MarkdownDescription: "Maximum backoff in milliseconds (100-600000). Defaults to `5000`.",
				Optional:            true,
				Validators:          []validator.Int64{int64validator.Between(100, 600000)},
			},
			attrRecoverableMaxAttempts: schema.Int64Attribute{
				MarkdownDescription: "Runs of a whole sequence when it fails with a recoverable error, such as an unmet `response_expectation` or a code in `recoverable_codes` (1-20). Defaults to `3`.",
				Optional:            true,
				Validators:          []validator.Int64{int64validator.Between(1, 20)},
			},
			attrOperationTimeouts: schema.SingleNestedAttribute{
				MarkdownDescription: "Deadlines for whole resource and data source operations.",
				Optional:            true,
				Attributes: map[string]schema.Attribute{
					"create": schema.StringAttribute{Optional: true, MarkdownDescription: "Create deadline. " + durationHint},
					"read":   schema.StringAttribute{Optional: true, MarkdownDescription: "Read deadline. " + durationHint},
					"update": schema.StringAttribute{Optional: true, MarkdownDescription: "Update deadline. " + durationHint},
					"delete": schema.StringAttribute{Optional: true, MarkdownDescription: "Delete deadline. " + durationHint},
				},
			},
		},
	}
}

// hasUnknown reports whether any value the resolved configuration depends on
// is not known yet; validation is deferred to Configure in that case.
func (m RestcallProviderModel) hasUnknown() bool {
	return m.Host.IsUnknown() || m.Port.IsUnknown() || m.SSL.IsUnknown() || m.Verify.IsUnknown() ||
		m.Headers.IsUnknown() || m.AuthMethod.IsUnknown() || m.APIToken.IsUnknown() ||
		m.Username.IsUnknown() || m.Password.IsUnknown() || m.HTTPTimeoutSeconds.IsUnknown() ||
		m.RetryOn4295xx.IsUnknown() || m.RetryMaxAttempts.IsUnknown() ||
		m.RetryInitialBackoffMs.IsUnknown() || m.RetryMaxBackoffMs.IsUnknown() ||
		m.RecoverableMaxAttempts.IsUnknown()
}

func (p *RestcallProvider) ValidateConfig(ctx context.Context, req provider.ValidateConfigRequest, resp *provider.ValidateConfigResponse) {
	var data RestcallProviderModel
	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() || data.hasUnknown() {
		return
	}
	_, diags := resolveProviderConfig(data)
	resp.Diagnostics.Append(diags...)
}

func (p *RestcallProvider) Configure(ctx context.Context, req provider.ConfigureRequest, resp *provider.ConfigureResponse) {
	var data RestcallProviderModel
	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	rc, diags := resolveProviderConfig(data)
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}
	timeouts, errs := parseOperationTimeouts(data.OperationTimeouts)
	for _, e := range errs {
		resp.Diagnostics.AddAttributeError(path.Root(attrOperationTimeouts).AtName(e.attr), e.summary, e.detail)
	}
	if resp.Diagnostics.HasError() {
		return
	}

	p.client = ServiceClient{
		requester:        buildRequester(rc, p.version),
		defaults:         callDefaults(rc),
		recoverable:      recoverablePolicy(rc),
		providerTimeouts: timeouts,
	}
	tflog.Info(ctx, "configured restcall provider", map[string]interface{}{
		"host":                     rc.host,
		"auth_method":              rc.authMethod,
		"retry_on_429_5xx":         rc.retryOn4295xx,
		"recoverable_max_attempts": rc.recoverableMaxAttempts,
	})

	resp.ResourceData = p
	resp.DataSourceData = p
}

// resolveProviderConfig resolves HCL and environment values and validates them.
func resolveProviderConfig(data RestcallProviderModel) (resolvedConfig, diag.Diagnostics) {
	var diags diag.Diagnostics
	rc := deriveResolvedConfig(data)
	for _, e := range validateResolvedConfig(rc) {
		if e.attr == "" {
			diags.AddError(e.summary, e.detail)
			continue
		}
		diags.AddAttributeError(path.Root(e.attr), e.summary, e.detail)
	}
	return rc, diags
}

func (p *RestcallProvider) Resources(_ context.Context) []func() resource.Resource {
	return []func() resource.Resource{
		NewSequenceResource,
	}
}

func (p *RestcallProvider) DataSources(_ context.Context) []func() datasource.DataSource {
	return []func() datasource.DataSource{
		NewSequenceDataSource,
	}
}

func New(version string) func() provider.Provider {
	return func() provider.Provider {
		return &RestcallProvider{
			version: version,
		}
	}
}
