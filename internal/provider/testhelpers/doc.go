// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

// Package testhelpers builds Terraform configurations and fixtures for the
// provider's unit and acceptance tests.
//
// Configurations are rendered from testdata/templates with [[ ]] delimiters,
// so rest call templates embedded in them keep their {{ }} actions. Provider
// blocks point at an in-process API; acceptance tests never need a real
// remote service.
//
// This package is for test code and is not part of the provider's public API.
package testhelpers
