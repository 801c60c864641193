// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package restcall

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/clbanning/mxj/v2"
)

// Supported response formats.
const (
	FormatAuto = "auto"
	FormatJSON = "json"
	FormatXML  = "xml"
	FormatText = "text"
	FormatRaw  = "raw"
)

// Properties is the flat property store filled by translations.
type Properties map[string]any

// detectFormat maps a Content-Type header to a response format. It returns
// FormatAuto when the header is missing or not recognized.
func detectFormat(h http.Header) string {
	ct := strings.ToLower(h.Get("Content-Type"))
	switch {
	case ct == "":
		return FormatAuto
	case strings.HasPrefix(ct, "application/json"):
		return FormatJSON
	case strings.HasPrefix(ct, "text/xml"), strings.HasPrefix(ct, "application/xml"):
		return FormatXML
	}
	return FormatAuto
}

// decodeJSON decodes a body keeping numbers in their textual form so that
// stringification and re-encoding do not alter them.
func decodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode json response: %w", err)
	}
	return v, nil
}

// Keys of the sequenced XML mapping produced by mxj.
const (
	xmlAttrKey = "#attr"
	xmlTextKey = "#text"
)

// decodeXML converts an XML document into nested mappings. Elements and
// attributes keep their qualified prefix:local names, attributes are keyed
// "@name" and text sitting next to attributes or children is kept under
// "#text". Empty elements decode to nil. Comments and processing
// instructions are dropped.
func decodeXML(body []byte) (any, error) {
	r := bytes.NewReader(body)
	for {
		m, err := mxj.NewMapXmlSeqReader(r)
		if errors.Is(err, mxj.NoRoot) {
			// prolog token ahead of the root element
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("decode xml response: %w", err)
		}
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = xmlValue(v)
		}
		return out, nil
	}
}

func xmlValue(v any) any {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return t
	case []any:
		items := make([]any, len(t))
		for i, item := range t {
			items[i] = xmlValue(item)
		}
		return items
	case map[string]any:
		return xmlElement(t)
	}
	return v
}

func xmlElement(m map[string]any) any {
	out := map[string]any{}
	var text any
	for k, v := range m {
		switch {
		case k == xmlTextKey:
			text = xmlValue(v)
		case k == xmlAttrKey:
			attrs, _ := v.(map[string]any)
			for name, a := range attrs {
				if am, ok := a.(map[string]any); ok {
					out["@"+name] = am[xmlTextKey]
				}
			}
		case strings.HasPrefix(k, "#"):
			// #seq, #comment, #directive, #procinst
		default:
			out[k] = xmlValue(v)
		}
	}
	if len(out) == 0 {
		return text
	}
	if text != nil {
		out[xmlTextKey] = text
	}
	return out
}

// stringify renders a value the way rule patterns are written against it.
// Scalars follow the conventions of the template language the rules came
// from (True/False/None); containers use a quoted literal form.
func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	var b strings.Builder
	writeLiteral(&b, v)
	return b.String()
}

func writeLiteral(b *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		b.WriteString("None")
	case string:
		b.WriteByte('\'')
		b.WriteString(strings.ReplaceAll(strings.ReplaceAll(t, `\`, `\\`), "'", `\'`))
		b.WriteByte('\'')
	case bool:
		if t {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	case json.Number:
		b.WriteString(t.String())
	case float64:
		b.WriteString(formatFloat(t))
	case float32:
		b.WriteString(formatFloat(float64(t)))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		fmt.Fprintf(b, "%d", t)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			writeLiteral(b, k)
			b.WriteString(": ")
			writeLiteral(b, t[k])
		}
		b.WriteByte('}')
	case Properties:
		writeLiteral(b, map[string]any(t))
	case []any:
		b.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				b.WriteString(", ")
			}
			writeLiteral(b, item)
		}
		b.WriteByte(']')
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Slice {
			items := make([]any, rv.Len())
			for i := range items {
				items[i] = rv.Index(i).Interface()
			}
			writeLiteral(b, items)
			return
		}
		fmt.Fprintf(b, "%v", v)
	}
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") { // Inf/NaN carry an n
		s += ".0"
	}
	return s
}
