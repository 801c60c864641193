// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"fmt"
	"strings"
)

// configuration derivation (unified) to avoid duplicated parsing across sections
func deriveResolvedConfig(data RestcallProviderModel) resolvedConfig {
	// Base
	authMethod := strings.ToLower(strings.TrimSpace(readString(data.AuthMethod, "")))
	if authMethod == "" {
		authMethod = defaultAuthMethod
	}

	// Auth
	apiToken := readStringWithAliases(data.APIToken, envAPIToken, envToken)
	username := readString(data.Username, envUsername)
	password := readString(data.Password, envPassword)

	return resolvedConfig{
		host:                   strings.TrimSpace(readString(data.Host, envHost)),
		port:                   readInt64Default(data.Port, defaultPort),
		ssl:                    readBoolDefault(data.SSL, defaultSSL),
		verify:                 readBoolDefault(data.Verify, defaultVerify),
		headers:                readStringMap(data.Headers),
		authMethod:             authMethod,
		apiToken:               apiToken,
		username:               username,
		password:               password,
		httpTimeoutSeconds:     readInt64Default(data.HTTPTimeoutSeconds, defaultHTTPTimeoutSeconds),
		retryOn4295xx:          readBoolDefault(data.RetryOn4295xx, defaultRetryOn4295xx),
		retryMaxAttempts:       readInt64Default(data.RetryMaxAttempts, defaultRetryMaxAttempts),
		retryInitialBackoffMs:  readInt64Default(data.RetryInitialBackoffMs, defaultRetryInitialBackoffMs),
		retryMaxBackoffMs:      readInt64Default(data.RetryMaxBackoffMs, defaultRetryMaxBackoffMs),
		recoverableMaxAttempts: readInt64Default(data.RecoverableMaxAttempts, defaultRecoverableMaxAttempts),
	}
}

// validation per-section
func validateBase(rc resolvedConfig) []validationErr {
	var errs []validationErr
	switch rc.authMethod {
	case authMethodNone, authMethodBasic, authMethodBearer:
	default:
		errs = append(errs, validationErr{attr: attrAuthMethod, summary: "Invalid Auth Method Configuration.", detail: "auth_method must be 'none', 'basic' or 'bearer'."})
	}
	if rc.port != -1 && (rc.port < 1 || rc.port > 65535) {
		errs = append(errs, validationErr{attr: attrPort, summary: "Invalid Port Configuration.", detail: fmt.Sprintf("port must be -1 (protocol default) or between 1 and 65535; got %d", rc.port)})
	}
	if strings.Contains(rc.host, "://") || strings.Contains(rc.host, "/") {
		errs = append(errs, validationErr{attr: attrHost, summary: "Invalid Host Configuration.", detail: "host must be a bare host name or address; use 'ssl' and 'port' for the scheme and port."})
	}
	return errs
}

func validateHTTP(rc resolvedConfig) []validationErr {
	if rc.httpTimeoutSeconds < 1 || rc.httpTimeoutSeconds > 600 {
		return []validationErr{{attr: attrHTTPTimeoutSeconds, summary: "Invalid HTTP Timeout Configuration.", detail: fmt.Sprintf("http_timeout_seconds must be between 1 and 600 seconds; got %d", rc.httpTimeoutSeconds)}}
	}
	return nil
}

func validateRetry(rc resolvedConfig) []validationErr {
	var errs []validationErr
	if rc.recoverableMaxAttempts < 1 || rc.recoverableMaxAttempts > 20 {
		errs = append(errs, validationErr{attr: attrRecoverableMaxAttempts, summary: "Invalid Recoverable Attempts Configuration.", detail: fmt.Sprintf("recoverable_max_attempts must be between 1 and 20; got %d", rc.recoverableMaxAttempts)})
	}
	if rc.retryInitialBackoffMs < 100 || rc.retryInitialBackoffMs > 600000 {
		errs = append(errs, validationErr{attr: attrRetryInitialBackoff, summary: "Invalid Retry Backoff Configuration.", detail: fmt.Sprintf("retry_initial_backoff_ms must be between 100 and 600000 milliseconds; got %d", rc.retryInitialBackoffMs)})
	}
	if rc.retryMaxBackoffMs < 100 || rc.retryMaxBackoffMs > 600000 {
		errs = append(errs, validationErr{attr: attrRetryMaxBackoff, summary: "Invalid Retry Backoff Configuration.", detail: fmt.Sprintf("retry_max_backoff_ms must be between 100 and 600000 milliseconds; got %d", rc.retryMaxBackoffMs)})
	}
	if rc.retryInitialBackoffMs > rc.retryMaxBackoffMs {
		errs = append(errs, validationErr{attr: attrRetryInitialBackoff, summary: "Invalid Retry Backoff Configuration.", detail: "retry_initial_backoff_ms must be less than or equal to retry_max_backoff_ms."})
	}
	if rc.retryOn4295xx && (rc.retryMaxAttempts < 1 || rc.retryMaxAttempts > 10) {
		errs = append(errs, validationErr{attr: attrRetryMaxAttempts, summary: "Invalid Retry Attempts Configuration.", detail: fmt.Sprintf("retry_max_attempts must be between 1 and 10; got %d", rc.retryMaxAttempts)})
	}
	return errs
}

func validateAuth(rc resolvedConfig) []validationErr {
	var errs []validationErr
	switch rc.authMethod {
	case authMethodNone:
		if rc.username != "" || rc.password != "" || rc.apiToken != "" {
			errs = append(errs, validationErr{attr: attrAuthMethod, summary: "Credentials set without auth_method.", detail: "Credentials are configured but auth_method is 'none'. Set auth_method = \"basic\" or \"bearer\", or remove the credentials."})
		}
	case authMethodBasic:
		if rc.username == "" {
			errs = append(errs, validationErr{attr: attrUsername, summary: "Missing Username Configuration.", detail: "Provide 'username' or set RESTCALL_USERNAME."})
		}
		if rc.password == "" {
			errs = append(errs, validationErr{attr: attrPassword, summary: "Missing Password Configuration.", detail: "Provide 'password' or set RESTCALL_PASSWORD."})
		}
		if rc.apiToken != "" {
			errs = append(errs, validationErr{attr: attrAPIToken, summary: "Attribute not allowed with basic auth_method.", detail: "Remove 'api_token' or set auth_method = \"bearer\"."})
		}
	case authMethodBearer:
		if rc.apiToken == "" {
			errs = append(errs, validationErr{attr: attrAPIToken, summary: "Missing API Token Configuration.", detail: "Provide 'api_token' or set RESTCALL_API_TOKEN."})
		}
		if rc.username != "" {
			errs = append(errs, validationErr{attr: attrUsername, summary: "Attribute not allowed with bearer auth_method.", detail: "Remove 'username' (and 'password') or set auth_method = \"basic\"."})
		}
		if rc.password != "" {
			errs = append(errs, validationErr{attr: attrPassword, summary: "Attribute not allowed with bearer auth_method.", detail: "Remove 'password' (and 'username') or set auth_method = \"basic\"."})
		}
	}
	return errs
}

func validateResolvedConfig(rc resolvedConfig) []validationErr {
	var all []validationErr
	all = append(all, validateBase(rc)...)
	if len(all) == 0 { // if base fails, skip noisy follow-ups
		all = append(all, validateHTTP(rc)...)
		all = append(all, validateRetry(rc)...)
		all = append(all, validateAuth(rc)...)
	}

	// Before returning, sanitize any secrets from messages to prevent leakage.
	for i := range all {
		all[i] = sanitizeValidationError(all[i], rc)
	}
	return all
}
