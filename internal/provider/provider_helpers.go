// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/types"

	"github.com/devops-wiz/terraform-provider-restcall/internal/redact"
	"github.com/devops-wiz/terraform-provider-restcall/internal/restcall"
)

// maxSnippetBytes bounds the response body quoted in diagnostics.
const maxSnippetBytes = 1024

// parseOperationTimeouts parses the optional OperationTimeoutsModel into opTimeouts.
// It returns a slice of validationErr where attr is one of: create, read, update, delete
// (to be used with path.Root("operation_timeouts").AtName(attr)).
func parseOperationTimeouts(ot *OperationTimeoutsModel) (opTimeouts, []validationErr) {
	var res opTimeouts
	var errs []validationErr
	if ot == nil {
		return res, nil
	}

	for _, f := range []struct {
		name string
		val  types.String
		dst  *time.Duration
	}{
		{"create", ot.Create, &res.Create},
		{"read", ot.Read, &res.Read},
		{"update", ot.Update, &res.Update},
		{"delete", ot.Delete, &res.Delete},
	} {
		if f.val.IsNull() || f.val.IsUnknown() {
			continue
		}
		d, err := time.ParseDuration(f.val.ValueString())
		if err != nil || d <= 0 {
			errs = append(errs, validationErr{
				attr:    f.name,
				summary: fmt.Sprintf("Invalid %s timeout value.", f.name),
				detail:  fmt.Sprintf("Failed to parse duration %q: %v. Use values like '30s', '2m', greater than 0.", f.val.ValueString(), err),
			})
			continue
		}
		*f.dst = d
	}
	return res, errs
}

// ParseRetryAfter returns a server-specified delay indicated by the Retry-After header.
// It supports both seconds and HTTP-date formats. Returns 0 when absent/invalid or when
// the computed delay would be negative.
func ParseRetryAfter(h http.Header) time.Duration {
	if h == nil {
		return 0
	}
	ra := strings.TrimSpace(h.Get("Retry-After"))
	if ra == "" {
		return 0
	}
	if n, err := strconv.Atoi(ra); err == nil && n >= 0 {
		return time.Duration(n) * time.Second
	}
	if t, err := http.ParseTime(ra); err == nil {
		now := time.Now()
		if t.After(now) {
			return t.Sub(now)
		}
	}
	return 0
}

// BackoffDuration computes capped exponential backoff for the given attempt (1-based),
// starting from base and capped at max. A jitter fraction in [0,1] expands/shrinks the
// delay uniformly within [1-jitter, 1+jitter]. Values outside bounds are clamped.
func BackoffDuration(attempt int, base, max time.Duration, jitter float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	if max <= 0 || max < base {
		max = base
	}
	if jitter < 0 {
		jitter = 0
	}
	if jitter > 1 {
		jitter = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		if d > max/2 {
			d = max
			break
		}
		d *= 2
	}
	if d > max {
		d = max
	}
	if jitter > 0 && d > 0 {
		f := 1 - jitter + (2*jitter)*rand.Float64() // in [1-jitter, 1+jitter]
		d = time.Duration(float64(d) * f)
		if d < 0 {
			d = 0
		}
	}
	if d > max {
		d = max
	}
	return d
}

// IsContextError reports if err indicates context cancellation or deadline exceeded.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// retryAfterFromError returns the Retry-After delay carried by a recoverable
// status error, or 0.
func retryAfterFromError(err error) time.Duration {
	var e *restcall.Error
	if errors.As(err, &e) && e.Kind == restcall.KindRecoverableStatus {
		return ParseRetryAfter(e.Header)
	}
	return 0
}

// sequenceErrorDetail builds a redacted summary and detail for a failed sequence.
func sequenceErrorDetail(op string, err error, attempts int) (string, string) {
	summary := fmt.Sprintf("%s failed: %v", op, err)

	var parts []string
	var seqErr *restcall.SequenceError
	if errors.As(err, &seqErr) {
		parts = append(parts, fmt.Sprintf("Failed rest call: #%d (%d rendered)", seqErr.Index+1, len(seqErr.Calls)))
		if len(seqErr.ResultProperties) > 0 {
			keys := make([]string, 0, len(seqErr.ResultProperties))
			for k := range seqErr.ResultProperties {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			parts = append(parts, "Properties extracted before failure: "+strings.Join(keys, ", "))
		}
	}
	if kind := restcall.KindOf(err); kind != 0 {
		parts = append(parts, "Error kind: "+kind.String())
	}

	var statusErr *restcall.HTTPStatusError
	if errors.As(err, &statusErr) {
		parts = append(parts, fmt.Sprintf("HTTP status: %d", statusErr.StatusCode))
		if hint := headerHints(statusErr.Header); hint != "" {
			parts = append(parts, "Headers: "+hint)
		}
		if body := strings.TrimSpace(string(statusErr.Body)); body != "" {
			// truncate after redaction to keep the snippet bounded
			parts = append(parts, "Response snippet: "+redact.Truncate(redact.Secrets(body), maxSnippetBytes))
		}
	}
	var connErr *restcall.ConnectionError
	if errors.As(err, &connErr) {
		parts = append(parts, "Host: "+connErr.Host)
	}

	if attempts > 1 {
		parts = append(parts, fmt.Sprintf("Attempts: %d", attempts))
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		parts = append(parts, "Hint: deadline exceeded; increase operation_timeouts or check upstream latency.")
	case errors.Is(err, context.Canceled):
		parts = append(parts, "Hint: canceled; request was canceled or context deadline reached.")
	case restcall.IsRecoverable(err):
		parts = append(parts, "Hint: the error is recoverable; raise recoverable_max_attempts to keep retrying.")
	case restcall.IsNonRecoverable(err):
		parts = append(parts, "Hint: the response matched nonrecoverable_response; retrying will not help.")
	}
	return redact.Secrets(summary), redact.Secrets(strings.Join(parts, "\n"))
}

// addSequenceError records err on diags.
func addSequenceError(diags *diag.Diagnostics, op string, err error, attempts int) {
	summary, detail := sequenceErrorDetail(op, err, attempts)
	diags.AddError(summary, detail)
}

// headerHints returns selected diagnostic headers as k=v pairs.
func headerHints(h http.Header) string {
	if h == nil {
		return ""
	}
	var hints []string
	for _, k := range []string{"Retry-After", "X-Request-Id", "X-RateLimit-Remaining", "X-RateLimit-Window"} {
		if v := strings.TrimSpace(h.Get(k)); v != "" {
			hints = append(hints, fmt.Sprintf("%s=%s", k, v))
		}
	}
	return strings.Join(hints, "; ")
}
