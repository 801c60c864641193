// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"github.com/devops-wiz/terraform-provider-restcall/internal/restcall"
)

// ServiceClient is the configured provider state shared with resources and data sources.
type ServiceClient struct {
	requester        restcall.Requester
	defaults         map[string]any
	recoverable      retryPolicy
	providerTimeouts opTimeouts
}
