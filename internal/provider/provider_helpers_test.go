// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devops-wiz/terraform-provider-restcall/internal/provider/testhelpers"
	"github.com/devops-wiz/terraform-provider-restcall/internal/restcall"
)

func TestParseOperationTimeouts(t *testing.T) {
	res, errs := parseOperationTimeouts(nil)
	assert.Empty(t, errs)
	assert.Equal(t, opTimeouts{}, res)

	res, errs = parseOperationTimeouts(&OperationTimeoutsModel{
		Create: types.StringValue("2m"),
		Read:   types.StringNull(),
		Update: types.StringValue("nope"),
		Delete: types.StringValue("-1s"),
	})
	assert.Equal(t, 2*time.Minute, res.Create)
	assert.Zero(t, res.Read)
	require.Len(t, errs, 2)
	assert.Equal(t, "update", errs[0].attr)
	assert.Equal(t, "Invalid update timeout value.", errs[0].summary)
	assert.Equal(t, "delete", errs[1].attr)
}

func TestParseRetryAfter_Seconds(t *testing.T) {
	d := ParseRetryAfter(http.Header{"Retry-After": []string{"30"}})
	if d < 30*time.Second || d > 31*time.Second {
		t.Fatalf("expected ~30s, got %s", d)
	}
}

func TestParseRetryAfter_HTTPDate(t *testing.T) {
	future := time.Now().Add(3 * time.Second).UTC().Format(http.TimeFormat)
	d := ParseRetryAfter(http.Header{"Retry-After": []string{future}})
	if d <= 0 {
		t.Fatalf("expected positive duration for HTTP-date, got %s", d)
	}
	if d > 10*time.Second { // generous upper bound to avoid flakes
		t.Fatalf("unexpectedly large duration: %s", d)
	}
}

func TestParseRetryAfter_InvalidOrMissing(t *testing.T) {
	if got := ParseRetryAfter(nil); got != 0 {
		t.Fatalf("expected 0 for nil header, got %s", got)
	}
	if got := ParseRetryAfter(http.Header{}); got != 0 {
		t.Fatalf("expected 0 for missing header, got %s", got)
	}
	if got := ParseRetryAfter(http.Header{"Retry-After": []string{"not-a-number"}}); got != 0 {
		t.Fatalf("expected 0 for invalid header, got %s", got)
	}
}

func TestBackoffDuration_NoJitter_Cap(t *testing.T) {
	base := 500 * time.Millisecond
	maxBackoff := 5 * time.Second
	cases := []struct {
		attempt int
		exp     time.Duration
	}{
		{0, 500 * time.Millisecond},
		{1, 500 * time.Millisecond},
		{2, 1 * time.Second},
		{3, 2 * time.Second},
		{4, 4 * time.Second},
		{5, 5 * time.Second},  // capped
		{10, 5 * time.Second}, // capped
	}
	for _, c := range cases {
		if got := BackoffDuration(c.attempt, base, maxBackoff, 0); got != c.exp {
			t.Fatalf("attempt %d: got %s, want %s", c.attempt, got, c.exp)
		}
	}
}

func TestBackoffDuration_WithJitter_Bounds(t *testing.T) {
	base := 500 * time.Millisecond
	maxBackoff := 5 * time.Second
	exp := 4 * time.Second // attempt 4
	j := 0.2
	lower := time.Duration(float64(exp) * (1 - j))
	upper := time.Duration(float64(exp) * (1 + j))
	if upper > maxBackoff {
		upper = maxBackoff
	}
	for i := 0; i < 20; i++ {
		got := BackoffDuration(4, base, maxBackoff, j)
		if got < lower || got > upper {
			t.Fatalf("jittered duration out of bounds: got=%s lower=%s upper=%s", got, lower, upper)
		}
	}
}

func TestIsContextError(t *testing.T) {
	assert.True(t, IsContextError(context.Canceled))
	assert.True(t, IsContextError(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.False(t, IsContextError(errors.New("boom")))
	assert.False(t, IsContextError(nil))
}

func TestRetryAfterFromError(t *testing.T) {
	statusErr := &restcall.Error{
		Kind:       restcall.KindRecoverableStatus,
		Message:    "Response code 503 defined as recoverable",
		StatusCode: http.StatusServiceUnavailable,
		Header:     http.Header{"Retry-After": []string{"7"}},
	}
	wrapped := &restcall.SequenceError{Index: 0, Err: statusErr}
	assert.Equal(t, 7*time.Second, retryAfterFromError(wrapped))

	other := &restcall.Error{Kind: restcall.KindRecoverableResponse, Message: "x"}
	assert.Zero(t, retryAfterFromError(other))
	assert.Zero(t, retryAfterFromError(errors.New("plain")))
}

func TestSequenceErrorDetail_StatusError(t *testing.T) {
	err := &restcall.SequenceError{
		Index:            1,
		Calls:            []map[string]any{{}, {}},
		ResultProperties: restcall.Properties{"b": 1, "a": 2},
		Err: &restcall.HTTPStatusError{
			StatusCode: http.StatusBadRequest,
			URL:        "https://api.local:443/items?token=abc123",
			Header:     http.Header{"X-Request-Id": []string{"req-1"}, "Retry-After": []string{"2"}},
			Body:       []byte(`{"error":"bad","password":"hunter2"}`),
		},
	}
	summary, detail := sequenceErrorDetail("create sequence", err, 1)

	assert.Equal(t, "create sequence failed: rest call #2: 400 Bad Request for url: https://api.local:443/items?token=<redacted>", summary)
	assert.Contains(t, detail, "Failed rest call: #2 (2 rendered)")
	assert.Contains(t, detail, "Properties extracted before failure: a, b")
	assert.Contains(t, detail, "HTTP status: 400")
	assert.Contains(t, detail, "Headers: Retry-After=2; X-Request-Id=req-1")
	assert.Contains(t, detail, `Response snippet: {"error":"bad","password":"<redacted>"}`)
	assert.NotContains(t, detail, "hunter2")
	assert.NotContains(t, detail, "Attempts:")
}

func TestSequenceErrorDetail_KindsAndHints(t *testing.T) {
	recoverable := &restcall.Error{Kind: restcall.KindRecoverableResponse, Message: "Trying one more time..."}
	_, detail := sequenceErrorDetail("op", recoverable, 3)
	assert.Contains(t, detail, "Error kind: recoverable_response")
	assert.Contains(t, detail, "Attempts: 3")
	assert.Contains(t, detail, "raise recoverable_max_attempts")

	nonrec := &restcall.Error{Kind: restcall.KindNonRecoverable, Message: "Giving up..."}
	_, detail = sequenceErrorDetail("op", nonrec, 1)
	assert.Contains(t, detail, "retrying will not help")

	_, detail = sequenceErrorDetail("op", fmt.Errorf("wait: %w", context.DeadlineExceeded), 1)
	assert.Contains(t, detail, "Hint: deadline exceeded")

	_, detail = sequenceErrorDetail("op", &restcall.ConnectionError{Host: "a.local", Err: testhelpers.NewFakeNetErr(true)}, 1)
	assert.Contains(t, detail, "Host: a.local")
}

func TestSequenceErrorDetail_RedactsSensitiveError(t *testing.T) {
	sum, det := sequenceErrorDetail("op", errors.New("authorization: Bearer abc123"), 1)
	if strings.Contains(sum, "Bearer abc123") || strings.Contains(det, "Bearer abc123") {
		t.Fatalf("expected redaction of token in summary/detail; got sum=%q det=%q", sum, det)
	}
	if !strings.Contains(sum, "<redacted>") {
		t.Fatalf("expected <redacted> marker in redacted output; got sum=%q", sum)
	}
}

func TestSequenceErrorDetail_LargeBodyTruncation(t *testing.T) {
	err := &restcall.HTTPStatusError{StatusCode: http.StatusInternalServerError, URL: "http://x:80/", Body: []byte(testhelpers.BuildLargeBody())}
	_, detail := sequenceErrorDetail("op", err, 1)
	idx := strings.Index(detail, "Response snippet: ")
	require.GreaterOrEqual(t, idx, 0)
	snippet := detail[idx+len("Response snippet: "):]
	assert.LessOrEqual(t, len(snippet), maxSnippetBytes+len("..."))
	assert.NotContains(t, snippet, "TOPSECRET")
}
