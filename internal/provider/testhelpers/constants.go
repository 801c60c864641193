// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package testhelpers

const (
	// SequenceTmpl is the filename for the restcall_sequence Terraform template.
	SequenceTmpl = "sequence.tf.tmpl"
	// DataSequenceTmpl is the filename for the data.restcall_sequence Terraform template.
	DataSequenceTmpl = "data.sequence.tf.tmpl"
	// ProviderTmpl is the filename for the provider block template.
	ProviderTmpl = "provider.tf.tmpl"
)

// Terraform templates use [[ ]] so that rest call templates embedded in
// them keep their {{ }} actions.
const (
	leftDelim  = "[["
	rightDelim = "]]"
)
