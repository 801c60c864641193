// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package restcall

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"
	"strings"
)

// asSlice returns v as []any when it is any slice or array other than a string of bytes.
func asSlice(v any) ([]any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case []any:
		return t, true
	case []byte:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// asMap returns v as a string keyed mapping.
func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case Properties:
		return t, true
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[stringify(k)] = val
		}
		return out, true
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = val
		}
		return out, true
	}
	return nil, false
}

// isEmpty mirrors the falsy values a template author can use to disable a rule.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case bool:
		return !t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	}
	return false
}

// segmentKey returns the mapping key for a path segment.
func segmentKey(seg any) string {
	if s, ok := seg.(string); ok {
		return s
	}
	return stringify(seg)
}

// segmentIndex returns the sequence index for a path segment.
func segmentIndex(seg any) (int, bool) {
	switch t := seg.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case int32:
		return int(t), true
	case uint64:
		return int(t), true
	case float64:
		if t == float64(int(t)) {
			return int(t), true
		}
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), true
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return i, true
		}
	}
	return 0, false
}

// descend steps from cur into the child named by seg.
func descend(cur any, seg any) (any, bool) {
	if h, ok := cur.(http.Header); ok {
		vals := h.Values(segmentKey(seg))
		if len(vals) == 0 {
			return nil, false
		}
		return strings.Join(vals, ", "), true
	}
	if m, ok := asMap(cur); ok {
		v, found := m[segmentKey(seg)]
		return v, found
	}
	if items, ok := asSlice(cur); ok {
		idx, ok := segmentIndex(seg)
		if !ok {
			return nil, false
		}
		if idx < 0 {
			idx += len(items)
		}
		if idx < 0 || idx >= len(items) {
			return nil, false
		}
		return items[idx], true
	}
	return nil, false
}
