// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package restcall

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"sort"
	"strings"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/devops-wiz/terraform-provider-restcall/internal/redact"
)

// maxLoggedContent bounds the template and response text written to logs.
const maxLoggedContent = 4096

// Request is one HTTP exchange to perform. At most one of JSON and Data is set.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	// Verify enables TLS certificate verification.
	Verify bool
	// JSON is encoded as the request body with an application/json content type.
	JSON any
	// Query is appended to the URL query string.
	Query url.Values
	// Data is sent as the body: strings and bytes as is, mappings form encoded.
	Data      any
	BasicAuth *BasicAuth
}

// Requester performs HTTP exchanges. Transport failures are returned as
// errors; any status code is a valid response.
type Requester interface {
	Request(ctx context.Context, req *Request) (*Response, error)
}

// RequesterFunc adapts a function to the Requester interface.
type RequesterFunc func(ctx context.Context, req *Request) (*Response, error)

// Request calls f(ctx, req).
func (f RequesterFunc) Request(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// newRequest builds the request for call without a URL. The payload is placed
// according to payload_format.
func newRequest(call *Call) *Request {
	req := &Request{
		Method:  strings.ToUpper(call.Method),
		Headers: call.Headers,
		Verify:  call.Verify,
		Query:   queryValues(call.Params),
	}
	if call.Auth != nil {
		req.BasicAuth = call.Auth
	}

	format := strings.ToLower(strings.TrimSpace(call.PayloadFormat))
	payload, isMap := asMap(call.Payload)
	switch {
	case format == PayloadJSON || format == "":
		req.JSON = call.Payload
	case format == PayloadURLEncoded && isMap:
		addQuery(req.Query, payload)
	default:
		req.Data = call.Payload
	}
	return req
}

func queryValues(params map[string]any) url.Values {
	q := url.Values{}
	addQuery(q, params)
	return q
}

func addQuery(q url.Values, params map[string]any) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := params[k]
		if v == nil {
			continue
		}
		q.Del(k)
		if items, ok := asSlice(v); ok {
			for _, item := range items {
				q.Add(k, stringify(item))
			}
			continue
		}
		q.Set(k, stringify(v))
	}
}

// send dispatches call through r, failing over across hosts on connection
// errors, and classifies the response status.
func send(ctx context.Context, r Requester, call *Call, req *Request) (*Response, error) {
	port := call.resolvePort()
	hosts := call.hostList()

	var resp *Response
	for i, host := range hosts {
		req.URL = fmt.Sprintf("%s://%s:%d%s", call.scheme(), host, port, call.Path)
		tflog.Debug(ctx, "sending rest call", map[string]interface{}{
			"method": req.Method,
			"url":    redact.Secrets(req.URL),
		})

		var err error
		resp, err = r.Request(ctx, req)
		if err == nil {
			break
		}
		if ctx.Err() != nil || KindOf(err) != 0 || !isConnectionError(err) {
			return nil, err
		}
		tflog.Debug(ctx, "connection error", map[string]interface{}{
			"host":  host,
			"error": redact.Secrets(err.Error()),
		})
		if call.RetryOnConnectionError {
			return nil, &Error{
				Kind: KindRecoverableConnection,
				Message: fmt.Sprintf("ConnectionError %v has occurred, but flag retry_on_connection_error is set. Retrying...",
					err),
				Err: err,
			}
		}
		if i == len(hosts)-1 {
			tflog.Error(ctx, "no host from list available", map[string]interface{}{
				"hosts": strings.Join(hosts, ","),
			})
			return nil, &ConnectionError{Host: host, Err: err}
		}
	}

	if resp == nil {
		resp = &Response{}
	}
	tflog.Info(ctx, "rest call response", map[string]interface{}{
		"status_code": resp.StatusCode,
		"content":     redact.Truncate(redact.Secrets(string(resp.Body)), maxLoggedContent),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if call.isRecoverableCode(resp.StatusCode) {
			return nil, &Error{
				Kind:       KindRecoverableStatus,
				Message:    fmt.Sprintf("Response code %d defined as recoverable", resp.StatusCode),
				StatusCode: resp.StatusCode,
				Header:     resp.Header,
			}
		}
		return nil, &HTTPStatusError{
			StatusCode: resp.StatusCode,
			URL:        req.URL,
			Header:     resp.Header,
			Body:       resp.Body,
		}
	}
	return resp, nil
}

// errReadBody marks failures while reading a response that was already
// received.
var errReadBody = errors.New("read response body")

// isConnectionError reports whether err means the host could not be reached
// or dropped the connection before answering. Read timeouts and body read
// failures are not connection errors.
func isConnectionError(err error) bool {
	if errors.Is(err, errReadBody) {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial" || !opErr.Timeout()
	}
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}
	var recErr tls.RecordHeaderError
	if errors.As(err, &recErr) {
		return true
	}
	// server closed the connection before sending a response
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
