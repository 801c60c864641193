// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

// Package provider implements the restcall Terraform provider.
//
// Highlights:
//   - restcall_sequence resource and data source: run a YAML template of REST
//     calls, check each response and expose the extracted properties.
//   - Auth: none, basic or bearer, applied to every call unless the call
//     brings its own credentials.
//   - Retries: transport retries on 429/5xx, plus whole-sequence re-runs on
//     recoverable errors with capped exponential backoff; honors Retry-After.
//   - Diagnostics: failures name the call, the status and a redacted response
//     snippet.
//
// The call engine itself lives in internal/restcall.
package provider
