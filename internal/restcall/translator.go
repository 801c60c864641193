// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package restcall

import (
	"context"
	"sort"
	"strings"

	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// Translation formats accepted in translation_format.
const (
	TranslationAuto = "auto"
	TranslationV1   = "v1"
	TranslationV2   = "v2"
)

// Translate copies values selected by spec from source into out.
//
// Version v1 specs are mappings mirroring the source layout whose leaves are
// destination paths: ["key"] stores out[key], ["group", "key"] stores
// out[group][key]. Nested mappings recurse into the matching source value and
// still write into out. Keys missing from source are skipped.
//
// Version v2 specs are lists of [source path, destination path] pairs.
// "auto" selects v1 for mappings and v2 for lists.
func Translate(ctx context.Context, source any, spec any, out Properties, version string) error {
	if isEmpty(spec) {
		return nil
	}
	version = strings.ToLower(strings.TrimSpace(version))
	if version == "" || version == TranslationAuto {
		if _, ok := asSlice(spec); ok {
			version = TranslationV2
		} else {
			version = TranslationV1
		}
	}
	tflog.Debug(ctx, "translate response", map[string]interface{}{
		"translation_format": version,
		"spec":               stringify(spec),
	})

	switch version {
	case TranslationV1:
		return translateV1(source, spec, out)
	case TranslationV2:
		pairs, ok := asSlice(spec)
		if !ok {
			return newError(KindMalformedSpec, "Translation (v2) had to be list. Type %T not supported. ", spec)
		}
		return translateV2(source, pairs, out)
	}
	return newError(KindMalformedSpec, "Translation format '%s' is not supported. Only v1/v2 or auto translation_format is supported", version)
}

func translateV1(source any, spec any, out Properties) error {
	if m, ok := asMap(spec); ok {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, key := range keys {
			value, found := descend(source, key)
			if !found {
				continue
			}
			if err := translateV1Target(value, m[key], out); err != nil {
				return err
			}
		}
		return nil
	}
	return newError(KindMalformedSpec, "Translation (v1) had to be dict. Type %T not supported. ", spec)
}

func translateV1Target(value any, target any, out Properties) error {
	if _, ok := asMap(target); ok {
		return translateV1(value, target, out)
	}
	dest, ok := asSlice(target)
	if !ok {
		return newError(KindMalformedSpec, "Translation target had to be list or dict. Type %T not supported. ", target)
	}
	if len(dest) == 0 {
		return nil
	}
	// a list of specs walks a list source element by element
	if _, nested := asSlice(dest[0]); nested || isMapValue(dest[0]) {
		for i, sub := range dest {
			item, found := descend(value, i)
			if !found {
				continue
			}
			if err := translateV1Target(item, sub, out); err != nil {
				return err
			}
		}
		return nil
	}
	save(out, dest, value)
	return nil
}

func translateV2(source any, pairs []any, out Properties) error {
	for _, p := range pairs {
		pair, ok := asSlice(p)
		if !ok || len(pair) != 2 {
			return newError(KindMalformedSpec, "Translation (v2) item had to be [source_path, destination_path]. Got %s", stringify(p))
		}
		srcPath, ok := asSlice(pair[0])
		if !ok {
			srcPath = []any{pair[0]}
		}
		dest, ok := asSlice(pair[1])
		if !ok {
			dest = []any{pair[1]}
		}
		if len(dest) == 0 {
			continue
		}
		value, found := source, true
		for _, seg := range srcPath {
			if value, found = descend(value, seg); !found {
				break
			}
		}
		if !found {
			continue
		}
		save(out, dest, value)
	}
	return nil
}

// save stores value at path inside out, creating intermediate mappings.
// An intermediate key holding a non-mapping value is replaced.
func save(out Properties, path []any, value any) {
	cur := map[string]any(out)
	for _, seg := range path[:len(path)-1] {
		key := segmentKey(seg)
		next, ok := cur[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[key] = next
		}
		cur = next
	}
	cur[segmentKey(path[len(path)-1])] = value
}

func isMapValue(v any) bool {
	_, ok := asMap(v)
	return ok
}
