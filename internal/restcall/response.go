// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package restcall

import (
	"context"
	"net/http"
	"strings"

	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// Response is what a Requester hands back for one HTTP exchange.
type Response struct {
	StatusCode int
	Header     http.Header
	Cookies    map[string]string
	Body       []byte
}

// ProcessResponse validates resp against the rules of call and stores the
// translated header, cookie and body values into store.
//
// The body is decoded as JSON or XML unless response_format is text or raw.
// An auto format with an unrecognized Content-Type is decoded as JSON.
func ProcessResponse(ctx context.Context, resp *Response, call *Call, store Properties) error {
	if resp == nil {
		resp = &Response{}
	}
	version := call.TranslationFormat

	if len(resp.Header) > 0 {
		if err := Translate(ctx, resp.Header, call.HeaderTranslation, store, version); err != nil {
			return err
		}
	}
	if len(resp.Cookies) > 0 {
		if err := Translate(ctx, resp.Cookies, call.CookiesTranslation, store, version); err != nil {
			return err
		}
	}

	format := strings.ToLower(strings.TrimSpace(call.ResponseFormat))
	if format == "" {
		format = FormatAuto
	}
	if format == FormatAuto {
		format = detectFormat(resp.Header)
		tflog.Debug(ctx, "detected response format", map[string]interface{}{
			"content_type": resp.Header.Get("Content-Type"),
			"format":       format,
		})
	}

	switch format {
	case FormatJSON, FormatXML, FormatAuto:
		var (
			body any
			err  error
		)
		if format == FormatXML {
			body, err = decodeXML(resp.Body)
		} else {
			body, err = decodeJSON(resp.Body)
		}
		if err != nil {
			return err
		}
		if err := CheckResponse(ctx, body, call.NonrecoverableResponse, CheckNonRecoverable); err != nil {
			return err
		}
		if err := CheckResponse(ctx, body, call.ResponseExpectation, CheckExpectation); err != nil {
			return err
		}
		return Translate(ctx, body, call.ResponseTranslation, store, version)
	case FormatText:
		store["text"] = string(resp.Body)
		return nil
	case FormatRaw:
		tflog.Debug(ctx, "no action for raw response_format")
		return nil
	}
	return newError(KindUnsupportedFormat,
		"Response_format '%s' is not supported. Only json/xml or raw response_format is supported", format)
}
