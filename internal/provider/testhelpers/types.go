// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package testhelpers

// FakeNetErr is a net.Error double for transport failure paths.
type FakeNetErr struct{ timeout bool }

func (e FakeNetErr) Error() string   { return "fake timeout" }
func (e FakeNetErr) Timeout() bool   { return e.timeout }
func (e FakeNetErr) Temporary() bool { return true }

// NewFakeNetErr constructs a FakeNetErr with the provided timeout flag.
func NewFakeNetErr(timeout bool) FakeNetErr { return FakeNetErr{timeout: timeout} }

// ProviderTmplCfg holds the provider block settings for acceptance configs.
type ProviderTmplCfg struct {
	Host                   string
	Port                   int
	AuthMethod             string
	Username               string
	Password               string
	RecoverableMaxAttempts int
}

// SequenceTmplCfg holds the restcall_sequence resource inputs.
type SequenceTmplCfg struct {
	Name           string
	Template       string
	ParamsJSON     string
	UpdateTemplate string
	DeleteTemplate string
}

// DataSequenceTmplCfg holds the data.restcall_sequence inputs. Resources
// are rendered ahead of the data source.
type DataSequenceTmplCfg struct {
	Resources  []string
	Name       string
	Template   string
	ParamsJSON string
}
