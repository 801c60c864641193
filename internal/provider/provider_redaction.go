// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"github.com/devops-wiz/terraform-provider-restcall/internal/redact"
)

// secretValues lists the configured credentials that must never be echoed.
func (rc resolvedConfig) secretValues() []string {
	vals := []string{rc.apiToken, rc.password, rc.username}
	for k, v := range rc.headers {
		if redact.HeaderMap(map[string]string{k: v})[k] != v {
			vals = append(vals, v)
		}
	}
	return vals
}

// sanitizeValidationError returns a copy of the given validation error with secrets redacted.
func sanitizeValidationError(e validationErr, rc resolvedConfig) validationErr {
	secrets := rc.secretValues()
	e.summary = redact.Values(e.summary, secrets...)
	e.detail = redact.Values(e.detail, secrets...)
	return e
}
