// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package provider

// Centralized attribute names used in provider configuration schema and validation
const (
	attrHost                   = "host"
	attrPort                   = "port"
	attrSSL                    = "ssl"
	attrVerify                 = "verify"
	attrHeaders                = "headers"
	attrAuthMethod             = "auth_method"
	attrAPIToken               = "api_token"
	attrUsername               = "username"
	attrPassword               = "password"
	attrHTTPTimeoutSeconds     = "http_timeout_seconds"
	attrRetryOn4295xx          = "retry_on_429_5xx"
	attrRetryMaxAttempts       = "retry_max_attempts"
	attrRetryInitialBackoff    = "retry_initial_backoff_ms"
	attrRetryMaxBackoff        = "retry_max_backoff_ms"
	attrRecoverableMaxAttempts = "recoverable_max_attempts"
	attrOperationTimeouts      = "operation_timeouts"
)

// Supported auth_method values
const (
	authMethodNone   = "none"
	authMethodBasic  = "basic"
	authMethodBearer = "bearer"
)

// Environment variables read when the matching attribute is not set
const (
	envHost     = "RESTCALL_HOST"
	envUsername = "RESTCALL_USERNAME"
	envPassword = "RESTCALL_PASSWORD"
	envAPIToken = "RESTCALL_API_TOKEN"
	// envToken is accepted as an alias of RESTCALL_API_TOKEN
	envToken = "RESTCALL_TOKEN"
)

// Centralized provider defaults
const (
	defaultAuthMethod             = authMethodNone
	defaultPort                   = -1
	defaultSSL                    = false
	defaultVerify                 = true
	defaultHTTPTimeoutSeconds     = 30
	defaultRetryOn4295xx          = true
	defaultRetryMaxAttempts       = 4
	defaultRetryInitialBackoffMs  = 500
	defaultRetryMaxBackoffMs      = 5000
	defaultRecoverableMaxAttempts = 3
	defaultRecoverableJitter      = 0.2
)
