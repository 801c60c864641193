// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devops-wiz/terraform-provider-restcall/internal/provider/testhelpers"
	"github.com/devops-wiz/terraform-provider-restcall/internal/restcall"
)

// fakeAPI answers requests by URL. Each URL serves its queued responses in
// order and repeats the last one.
type fakeAPI struct {
	mu        sync.Mutex
	responses map[string][]*restcall.Response
	requests  []*restcall.Request
}

func (f *fakeAPI) Request(_ context.Context, req *restcall.Request) (*restcall.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	queue := f.responses[req.URL]
	if len(queue) == 0 {
		return &restcall.Response{StatusCode: http.StatusNotFound, Body: []byte("not found")}, nil
	}
	resp := queue[0]
	if len(queue) > 1 {
		f.responses[req.URL] = queue[1:]
	}
	return resp, nil
}

func jsonResp(code int, body string) *restcall.Response {
	return &restcall.Response{
		StatusCode: code,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       []byte(body),
	}
}

type sleepRecorder struct {
	delays []time.Duration
	err    error
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return s.err
}

func newTestRunner(api restcall.Requester, maxAttempts int) (SequenceRunner, *sleepRecorder) {
	rec := &sleepRecorder{}
	r := NewSequenceRunner(ServiceClient{
		requester: api,
		defaults:  map[string]any{"host": "api.local", "port": -1, "ssl": false, "verify": true},
		recoverable: retryPolicy{
			maxAttempts:    maxAttempts,
			initialBackoff: 100 * time.Millisecond,
			maxBackoff:     time.Second,
		},
	})
	r.sleep = rec.sleep
	return r, rec
}

const pollTemplate = `
rest_calls:
  - path: /status
    response_expectation: [['state', 'ready']]
    response_translation:
      state: [state]
`

func TestSequenceRunner_Run_RetriesRecoverableUntilSuccess(t *testing.T) {
	api := &fakeAPI{responses: map[string][]*restcall.Response{
		"http://api.local:80/status": {
			jsonResp(http.StatusOK, `{"state":"pending"}`),
			jsonResp(http.StatusOK, `{"state":"pending"}`),
			jsonResp(http.StatusOK, `{"state":"ready"}`),
		},
	}}
	r, sleeps := newTestRunner(api, 3)

	res, diags := r.Run(context.Background(), "create sequence", SequenceInput{Template: pollTemplate})
	require.False(t, diags.HasError(), "unexpected diags: %v", diags)
	assert.Equal(t, restcall.Properties{"state": "ready"}, res.ResultProperties)
	assert.Len(t, api.requests, 3)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, sleeps.delays)
}

func TestSequenceRunner_Run_GivesUpAfterMaxAttempts(t *testing.T) {
	api := &fakeAPI{responses: map[string][]*restcall.Response{
		"http://api.local:80/status": {jsonResp(http.StatusOK, `{"state":"pending"}`)},
	}}
	r, sleeps := newTestRunner(api, 2)

	res, diags := r.Run(context.Background(), "create sequence", SequenceInput{Template: pollTemplate})
	require.True(t, diags.HasError())
	assert.Nil(t, res)
	assert.Len(t, api.requests, 2)
	assert.Len(t, sleeps.delays, 1)
	assert.Contains(t, diags[0].Detail(), "Attempts: 2")
	assert.Contains(t, diags[0].Detail(), "Error kind: recoverable_response")
}

func TestSequenceRunner_Run_HonorsRetryAfter(t *testing.T) {
	busy := jsonResp(http.StatusServiceUnavailable, `{}`)
	busy.Header.Set("Retry-After", "9")
	api := &fakeAPI{responses: map[string][]*restcall.Response{
		"http://api.local:80/jobs": {busy, jsonResp(http.StatusOK, `{"id":"j-1"}`)},
	}}
	r, sleeps := newTestRunner(api, 3)

	tmpl := `
rest_calls:
  - path: /jobs
    recoverable_codes: [503]
    response_translation:
      id: [job_id]
`
	res, diags := r.Run(context.Background(), "create sequence", SequenceInput{Template: tmpl})
	require.False(t, diags.HasError(), "unexpected diags: %v", diags)
	assert.Equal(t, restcall.Properties{"job_id": "j-1"}, res.ResultProperties)
	assert.Equal(t, []time.Duration{9 * time.Second}, sleeps.delays)
}

func TestSequenceRunner_Run_NoRetryOnStatusError(t *testing.T) {
	api := &fakeAPI{responses: map[string][]*restcall.Response{}}
	r, sleeps := newTestRunner(api, 5)

	_, diags := r.Run(context.Background(), "create sequence", SequenceInput{Template: "rest_calls:\n  - path: /missing\n"})
	require.True(t, diags.HasError())
	assert.Len(t, api.requests, 1)
	assert.Empty(t, sleeps.delays)
	assert.Contains(t, diags[0].Summary(), "404 Not Found")
	assert.Contains(t, diags[0].Detail(), "HTTP status: 404")
}

func TestSequenceRunner_Run_NoRetryOnNonRecoverable(t *testing.T) {
	api := &fakeAPI{responses: map[string][]*restcall.Response{
		"http://api.local:80/status": {jsonResp(http.StatusOK, `{"state":"failed"}`)},
	}}
	r, sleeps := newTestRunner(api, 5)

	tmpl := `
rest_calls:
  - path: /status
    nonrecoverable_response: [['state', 'failed']]
`
	_, diags := r.Run(context.Background(), "create sequence", SequenceInput{Template: tmpl})
	require.True(t, diags.HasError())
	assert.Len(t, api.requests, 1)
	assert.Empty(t, sleeps.delays)
	assert.Contains(t, diags[0].Detail(), "retrying will not help")
}

func TestSequenceRunner_Run_SleepInterrupted(t *testing.T) {
	api := &fakeAPI{responses: map[string][]*restcall.Response{
		"http://api.local:80/status": {jsonResp(http.StatusOK, `{"state":"pending"}`)},
	}}
	r, sleeps := newTestRunner(api, 3)
	sleeps.err = context.Canceled

	_, diags := r.Run(context.Background(), "create sequence", SequenceInput{Template: pollTemplate})
	require.True(t, diags.HasError())
	assert.Len(t, api.requests, 1)
	assert.Contains(t, diags[0].Detail(), "Hint: canceled")
}

func TestSequenceRunner_Run_LoadsRawPayload(t *testing.T) {
	payloadPath := testhelpers.MustCopy(t, "body.xml", strings.NewReader("<item>1</item>"))

	api := &fakeAPI{responses: map[string][]*restcall.Response{
		"http://api.local:80/upload": {jsonResp(http.StatusOK, `{}`)},
	}}
	r, _ := newTestRunner(api, 1)

	tmpl := "rest_calls:\n  - path: /upload\n    method: post\n    payload_format: raw\n    raw_payload: '{{ .file }}'\n"
	_, diags := r.Run(context.Background(), "create sequence", SequenceInput{
		Template: tmpl,
		Params:   map[string]any{"file": payloadPath},
	})
	require.False(t, diags.HasError(), "unexpected diags: %v", diags)
	require.Len(t, api.requests, 1)
	assert.Equal(t, "<item>1</item>", api.requests[0].Data)

	_, diags = r.Run(context.Background(), "create sequence", SequenceInput{
		Template: tmpl,
		Params:   map[string]any{"file": filepath.Join(filepath.Dir(payloadPath), "missing.xml")},
	})
	assert.True(t, diags.HasError())
}

const createTemplate = `
rest_calls:
  - path: /objects
    method: post
    payload:
      name: '{{ .name }}'
    response_translation:
      id: [object_id]
      size: [size]
      tags: [tags]
`

func createAPI() *fakeAPI {
	return &fakeAPI{responses: map[string][]*restcall.Response{
		"http://api.local:80/objects": {jsonResp(http.StatusCreated, `{"id":"obj-1","size":3,"tags":["a","b"]}`)},
		"http://api.local:80/objects/obj-1": {jsonResp(http.StatusOK, `{"id":"obj-1"}`)},
	}}
}

func planGetter(m sequenceResourceModel) func(context.Context, *sequenceResourceModel) diag.Diagnostics {
	return func(_ context.Context, dst *sequenceResourceModel) diag.Diagnostics {
		*dst = m
		return nil
	}
}

func TestSequenceRunner_DoCreate(t *testing.T) {
	api := createAPI()
	r, _ := newTestRunner(api, 1)

	var got sequenceResourceModel
	diags := r.DoCreate(context.Background(),
		planGetter(sequenceResourceModel{
			Template:   types.StringValue(createTemplate),
			ParamsJSON: types.StringValue(`{"name":"demo"}`),
			Prerender:  types.BoolValue(false),
		}),
		func(_ context.Context, src *sequenceResourceModel) diag.Diagnostics {
			got = *src
			return nil
		},
	)
	require.False(t, diags.HasError(), "unexpected diags: %v", diags)

	require.Len(t, api.requests, 1)
	assert.Equal(t, map[string]any{"name": "demo"}, api.requests[0].JSON)
	assert.NotEmpty(t, got.ID.ValueString())
	assert.JSONEq(t, `{"object_id":"obj-1","size":3,"tags":["a","b"]}`, got.ResultPropertiesJSON.ValueString())

	var calls []map[string]any
	require.NoError(t, json.Unmarshal([]byte(got.CallsJSON.ValueString()), &calls))
	require.Len(t, calls, 1)
	assert.Equal(t, "/objects", calls[0]["path"])

	elems := got.Result.Elements()
	assert.Equal(t, types.StringValue("obj-1"), elems["object_id"])
	assert.Equal(t, types.StringValue("3"), elems["size"])
	assert.Equal(t, types.StringValue(`["a","b"]`), elems["tags"])
}

func TestSequenceRunner_DoCreate_InvalidParams(t *testing.T) {
	api := createAPI()
	r, _ := newTestRunner(api, 1)

	diags := r.DoCreate(context.Background(),
		planGetter(sequenceResourceModel{
			Template:   types.StringValue(createTemplate),
			ParamsJSON: types.StringValue(`[1,2]`),
		}),
		func(context.Context, *sequenceResourceModel) diag.Diagnostics {
			t.Fatal("state must not be set")
			return nil
		},
	)
	require.True(t, diags.HasError())
	assert.Equal(t, "Invalid params_json", diags[0].Summary())
	assert.Empty(t, api.requests)
}

func storedModel() sequenceResourceModel {
	result := types.MapValueMust(types.StringType, nil)
	return sequenceResourceModel{
		ID:                   types.StringValue("seq-1"),
		Template:             types.StringValue(createTemplate),
		ParamsJSON:           types.StringValue(`{"name":"demo"}`),
		Prerender:            types.BoolValue(false),
		UpdateTemplate:       types.StringNull(),
		DeleteTemplate:       types.StringNull(),
		CallsJSON:            types.StringValue(`[{"path":"/objects"}]`),
		ResultPropertiesJSON: types.StringValue(`{"object_id":"obj-1"}`),
		Result:               result,
	}
}

func TestSequenceRunner_DoUpdate_OnlyDeleteTemplateChanged(t *testing.T) {
	api := createAPI()
	r, _ := newTestRunner(api, 1)

	prior := storedModel()
	plan := prior
	plan.ID = types.StringUnknown()
	plan.CallsJSON = types.StringUnknown()
	plan.ResultPropertiesJSON = types.StringUnknown()
	plan.Result = types.MapUnknown(types.StringType)
	plan.DeleteTemplate = types.StringValue("rest_calls:\n  - path: '/objects/{{ .object_id }}'\n    method: delete\n")

	var got sequenceResourceModel
	diags := r.DoUpdate(context.Background(), planGetter(plan), planGetter(prior),
		func(_ context.Context, src *sequenceResourceModel) diag.Diagnostics {
			got = *src
			return nil
		},
	)
	require.False(t, diags.HasError(), "unexpected diags: %v", diags)
	assert.Empty(t, api.requests)
	assert.Equal(t, prior.ID, got.ID)
	assert.Equal(t, prior.ResultPropertiesJSON, got.ResultPropertiesJSON)
	assert.Equal(t, prior.CallsJSON, got.CallsJSON)
	assert.Equal(t, plan.DeleteTemplate, got.DeleteTemplate)
}

func TestSequenceRunner_DoUpdate_UsesUpdateTemplateAndPriorProperties(t *testing.T) {
	api := createAPI()
	r, _ := newTestRunner(api, 1)

	prior := storedModel()
	plan := prior
	plan.ParamsJSON = types.StringValue(`{"name":"renamed"}`)
	plan.UpdateTemplate = types.StringValue(`
rest_calls:
  - path: '/objects/{{ .object_id }}'
    method: put
    payload:
      name: '{{ .name }}'
    response_translation:
      id: [object_id]
`)

	var got sequenceResourceModel
	diags := r.DoUpdate(context.Background(), planGetter(plan), planGetter(prior),
		func(_ context.Context, src *sequenceResourceModel) diag.Diagnostics {
			got = *src
			return nil
		},
	)
	require.False(t, diags.HasError(), "unexpected diags: %v", diags)
	require.Len(t, api.requests, 1)
	assert.Equal(t, "PUT", api.requests[0].Method)
	assert.Equal(t, "http://api.local:80/objects/obj-1", api.requests[0].URL)
	assert.Equal(t, map[string]any{"name": "renamed"}, api.requests[0].JSON)
	assert.Equal(t, "seq-1", got.ID.ValueString())
	assert.JSONEq(t, `{"object_id":"obj-1"}`, got.ResultPropertiesJSON.ValueString())
}

func TestSequenceRunner_DoDelete(t *testing.T) {
	t.Run("no delete template", func(t *testing.T) {
		api := createAPI()
		r, _ := newTestRunner(api, 1)
		diags := r.DoDelete(context.Background(), planGetter(storedModel()))
		assert.False(t, diags.HasError())
		assert.Empty(t, api.requests)
	})

	t.Run("delete template uses stored properties", func(t *testing.T) {
		api := createAPI()
		r, _ := newTestRunner(api, 1)
		st := storedModel()
		st.DeleteTemplate = types.StringValue("rest_calls:\n  - path: '/objects/{{ .object_id }}'\n    method: delete\n")

		diags := r.DoDelete(context.Background(), planGetter(st))
		require.False(t, diags.HasError(), "unexpected diags: %v", diags)
		require.Len(t, api.requests, 1)
		assert.Equal(t, "DELETE", api.requests[0].Method)
		assert.Equal(t, "http://api.local:80/objects/obj-1", api.requests[0].URL)
	})

	t.Run("delete failure is reported", func(t *testing.T) {
		api := &fakeAPI{responses: map[string][]*restcall.Response{}}
		r, _ := newTestRunner(api, 1)
		st := storedModel()
		st.DeleteTemplate = types.StringValue("rest_calls:\n  - path: /gone\n    method: delete\n")

		diags := r.DoDelete(context.Background(), planGetter(st))
		require.True(t, diags.HasError())
		assert.Contains(t, diags[0].Summary(), "delete sequence failed")
	})
}

func TestEncodeResult_Empty(t *testing.T) {
	for _, res := range []*restcall.Result{nil, {}} {
		out, diags := encodeResult(context.Background(), res)
		require.False(t, diags.HasError())
		assert.Equal(t, "[]", out.calls.ValueString())
		assert.Equal(t, "{}", out.properties.ValueString())
		assert.Empty(t, out.result.Elements())
	}
}

func TestResultString(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"plain", "plain"},
		{json.Number("1.50"), "1.50"},
		{true, "true"},
		{[]any{"a", json.Number("2")}, `["a",2]`},
		{map[string]any{"k": "v"}, `{"k":"v"}`},
	}
	for _, c := range cases {
		got, err := resultString(c.in)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "input %#v", c.in)
	}

	_, err := resultString(func() {})
	assert.Error(t, err)
}

func TestDecodeParamsJSON(t *testing.T) {
	params, diags := decodeParamsJSON(types.StringNull())
	require.False(t, diags.HasError())
	assert.Empty(t, params)

	params, diags = decodeParamsJSON(types.StringValue(`{"n": 10, "s": "x"}`))
	require.False(t, diags.HasError())
	assert.Equal(t, json.Number("10"), params["n"])
	assert.Equal(t, "x", params["s"])

	for _, bad := range []string{`[1]`, `null`, `{"a":`, `"str"`} {
		_, diags = decodeParamsJSON(types.StringValue(bad))
		assert.True(t, diags.HasError(), "input %q", bad)
	}
}

func TestPriorParams_StoredPropertiesWin(t *testing.T) {
	params, diags := priorParams(types.StringValue(`{"id":"from-params","name":"n"}`), types.StringValue(`{"id":"from-state"}`))
	require.False(t, diags.HasError())
	assert.Equal(t, map[string]any{"id": "from-state", "name": "n"}, params)

	_, diags = priorParams(types.StringNull(), types.StringValue(`oops`))
	assert.True(t, diags.HasError())
}
