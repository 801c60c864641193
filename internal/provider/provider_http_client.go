// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"fmt"
	"time"

	"github.com/devops-wiz/terraform-provider-restcall/internal/restcall"
)

// buildRequester constructs the HTTP requester with optional retry/backoff policy.
func buildRequester(rc resolvedConfig, version string) *restcall.HTTPRequester {
	opts := restcall.HTTPOptions{
		Timeout:   time.Duration(rc.httpTimeoutSeconds) * time.Second,
		UserAgent: fmt.Sprintf("devops-wiz/terraform-provider-restcall/%s", version),
		Headers:   map[string]string{},
	}
	if rc.retryOn4295xx {
		// transport retries on connection errors, 429 and 5xx, honoring Retry-After
		opts.RetryMax = rc.retryMaxAttempts
		opts.RetryWaitMin = time.Duration(rc.retryInitialBackoffMs) * time.Millisecond
		opts.RetryWaitMax = time.Duration(rc.retryMaxBackoffMs) * time.Millisecond
	}
	for k, v := range rc.headers {
		opts.Headers[k] = v
	}
	if rc.authMethod == authMethodBearer {
		opts.Headers["Authorization"] = "Bearer " + rc.apiToken
	}
	return restcall.NewHTTPRequester(opts)
}

// callDefaults returns the values every rendered call is merged over. Calls
// override them key by key.
func callDefaults(rc resolvedConfig) map[string]any {
	defaults := map[string]any{
		"port":   rc.port,
		"ssl":    rc.ssl,
		"verify": rc.verify,
	}
	if rc.host != "" {
		defaults["host"] = rc.host
	}
	if rc.authMethod == authMethodBasic {
		defaults["auth"] = map[string]any{"user": rc.username, "password": rc.password}
	}
	return defaults
}

// recoverablePolicy returns the policy used to re-run sequences after recoverable errors.
func recoverablePolicy(rc resolvedConfig) retryPolicy {
	return retryPolicy{
		maxAttempts:    rc.recoverableMaxAttempts,
		initialBackoff: time.Duration(rc.retryInitialBackoffMs) * time.Millisecond,
		maxBackoff:     time.Duration(rc.retryMaxBackoffMs) * time.Millisecond,
		jitter:         defaultRecoverableJitter,
	}
}
