// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package restcall

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/devops-wiz/terraform-provider-restcall/internal/redact"
)

// HTTPOptions configures an HTTPRequester.
type HTTPOptions struct {
	// Timeout bounds a single attempt. Zero means no timeout.
	Timeout time.Duration
	// RetryMax is the number of transport level retries on connection
	// errors, 429 and 5xx. Zero disables them.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// Headers are sent with every request unless the call sets the same header.
	Headers   map[string]string
	UserAgent string
}

// HTTPRequester is the default Requester. It keeps one pooled client for
// verified and one for unverified TLS and is safe for concurrent use.
type HTTPRequester struct {
	verified   *retryablehttp.Client
	unverified *retryablehttp.Client
	headers    map[string]string
	userAgent  string
}

var (
	defaultRequesterOnce sync.Once
	defaultRequester     *HTTPRequester
)

// DefaultRequester returns the shared HTTPRequester used when Process is
// given no requester.
func DefaultRequester() *HTTPRequester {
	defaultRequesterOnce.Do(func() {
		defaultRequester = NewHTTPRequester(HTTPOptions{})
	})
	return defaultRequester
}

// NewHTTPRequester builds an HTTPRequester from opts.
func NewHTTPRequester(opts HTTPOptions) *HTTPRequester {
	insecure := cleanhttp.DefaultPooledTransport()
	insecure.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // verify: false in the call

	return &HTTPRequester{
		verified:   newRetryClient(&http.Client{Transport: cleanhttp.DefaultPooledTransport(), Timeout: opts.Timeout}, opts),
		unverified: newRetryClient(&http.Client{Transport: insecure, Timeout: opts.Timeout}, opts),
		headers:    opts.Headers,
		userAgent:  opts.UserAgent,
	}
}

func newRetryClient(hc *http.Client, opts HTTPOptions) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.HTTPClient = hc
	c.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		c.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		c.RetryWaitMax = opts.RetryWaitMax
	}
	// status classification happens in the caller, so the last response is
	// handed back instead of being turned into an error
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.Logger = nil
	c.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt == 0 {
			return
		}
		tflog.Debug(req.Context(), "retrying rest call", map[string]interface{}{
			"attempt": attempt,
			"method":  req.Method,
			"url":     redact.Secrets(req.URL.String()),
		})
	}
	return c
}

// Request performs req and reads the full response body.
func (h *HTTPRequester) Request(ctx context.Context, req *Request) (*Response, error) {
	target, err := url.Parse(req.URL)
	if err != nil {
		return nil, &Error{Kind: KindMalformedSpec, Message: fmt.Sprintf("Invalid url %s: %v", req.URL, err), Err: err}
	}
	if len(req.Query) > 0 {
		q := target.Query()
		for k, vals := range req.Query {
			for _, v := range vals {
				q.Add(k, v)
			}
		}
		target.RawQuery = q.Encode()
	}

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	var raw interface{}
	if body != nil {
		raw = body
	}
	hreq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, target.String(), raw)
	if err != nil {
		return nil, &Error{Kind: KindMalformedSpec, Message: fmt.Sprintf("Invalid request: %v", err), Err: err}
	}
	for k, v := range h.headers {
		hreq.Header.Set(k, v)
	}
	if contentType != "" {
		hreq.Header.Set("Content-Type", contentType)
	}
	for k, v := range req.Headers {
		hreq.Header.Set(k, v)
	}
	if h.userAgent != "" && hreq.Header.Get("User-Agent") == "" {
		hreq.Header.Set("User-Agent", h.userAgent)
	}
	if req.BasicAuth != nil {
		hreq.SetBasicAuth(req.BasicAuth.User, req.BasicAuth.Password)
	}

	client := h.verified
	if !req.Verify {
		client = h.unverified
	}
	resp, err := client.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errReadBody, err)
	}
	cookies := map[string]string{}
	for _, c := range resp.Cookies() {
		cookies[c.Name] = c.Value
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Cookies:    cookies,
		Body:       data,
	}, nil
}

// encodeBody returns the request body and the content type it implies.
// Mappings in Data are form encoded; other non-text values are sent as JSON.
func encodeBody(req *Request) ([]byte, string, error) {
	if req.JSON != nil {
		b, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", &Error{Kind: KindMalformedSpec, Message: fmt.Sprintf("Payload is not JSON encodable: %v", err), Err: err}
		}
		return b, "application/json", nil
	}
	switch t := req.Data.(type) {
	case nil:
		return nil, "", nil
	case string:
		return []byte(t), "", nil
	case []byte:
		return t, "", nil
	}
	if m, ok := asMap(req.Data); ok {
		form := url.Values{}
		addQuery(form, m)
		return []byte(form.Encode()), "application/x-www-form-urlencoded", nil
	}
	b, err := json.Marshal(req.Data)
	if err != nil {
		return nil, "", &Error{Kind: KindMalformedSpec, Message: fmt.Sprintf("Payload is not encodable: %v", err), Err: err}
	}
	return b, "", nil
}
