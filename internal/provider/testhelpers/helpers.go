// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package testhelpers

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"text/template"
)

// TemplatePath returns an absolute path to a template file under testdata/templates.
func TemplatePath(name string) string {
	return filepath.Join("testdata", "templates", name)
}

// MustReadTemplate reads a template by name or fails the test.
func MustReadTemplate(t *testing.T, name string) string {
	t.Helper()
	p := TemplatePath(name)
	absPath, _ := filepath.Abs(p)
	b, err := os.ReadFile(p)
	if err != nil {
		wd, _ := os.Getwd()
		dir := filepath.Dir(p)
		var candidates []string
		if entries, dirErr := os.ReadDir(dir); dirErr == nil {
			for _, e := range entries {
				if !e.IsDir() {
					candidates = append(candidates, e.Name())
				}
			}
		}
		t.Fatalf(
			"failed to read template %q\n  path: %s\n  abs:  %s\n  cwd:  %s\n  dir:  %s\n  available templates: %v\n  error: %v",
			name, p, absPath, wd, dir, candidates, err,
		)
	}
	return string(b)
}

// MustCopy copies from r to a temp file and returns its path.
func MustCopy(t *testing.T, name string, r io.Reader) string {
	t.Helper()
	tmp := t.TempDir()
	dst := filepath.Join(tmp, name)
	f, err := os.Create(dst)
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	err = f.Close()
	if err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return dst
}

// BuildLargeBody creates a large JSON-like string embedding various secrets
// to validate both truncation and redaction. Size target ~2MB.
func BuildLargeBody() string {
	var b strings.Builder
	// approx 2MB total
	chunks := 2 << 20 / 64
	for i := 0; i < chunks; i++ {
		b.WriteString(`{"authorization":"Bearer TOPSECRET`)
		b.WriteString(strconv.Itoa(i))
		b.WriteString(`","access_token":"AAA`)
		b.WriteString(strconv.Itoa(i))
		b.WriteString(`","password":"PWD`)
		b.WriteString(strconv.Itoa(i))
		b.WriteString(`"}`)
	}
	return b.String()
}

// mustRender executes the named Terraform template with data.
func mustRender(t *testing.T, name string, data any) string {
	t.Helper()

	tmpl, err := template.New(name).Delims(leftDelim, rightDelim).Parse(MustReadTemplate(t, name))
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err = tmpl.Execute(&out, data); err != nil {
		t.Fatal(err)
	}
	return out.String()
}

// ProviderConfig renders a provider block.
func ProviderConfig(t *testing.T, cfg ProviderTmplCfg) string {
	t.Helper()
	return mustRender(t, ProviderTmpl, cfg)
}

// SequenceResourceConfig renders a provider block followed by a
// restcall_sequence resource.
func SequenceResourceConfig(t *testing.T, provider ProviderTmplCfg, cfg SequenceTmplCfg) string {
	t.Helper()
	if cfg.Name == "" {
		cfg.Name = "test"
	}
	return ProviderConfig(t, provider) + "\n" + mustRender(t, SequenceTmpl, cfg)
}

// SequenceWithDataSource renders a provider block, the given resources and a
// data.restcall_sequence reading through them.
func SequenceWithDataSource(t *testing.T, provider ProviderTmplCfg, cfg DataSequenceTmplCfg) string {
	t.Helper()
	if cfg.Name == "" {
		cfg.Name = "lookup"
	}
	return ProviderConfig(t, provider) + "\n" + mustRender(t, DataSequenceTmpl, cfg)
}

// SequenceResource renders only a restcall_sequence resource block, for use
// in DataSequenceTmplCfg.Resources.
func SequenceResource(t *testing.T, cfg SequenceTmplCfg) string {
	t.Helper()
	if cfg.Name == "" {
		cfg.Name = "test"
	}
	return mustRender(t, SequenceTmpl, cfg)
}
