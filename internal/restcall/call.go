// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package restcall

import (
	"fmt"
	"net/http"

	"github.com/mitchellh/mapstructure"
)

// Payload formats accepted in payload_format.
const (
	PayloadJSON       = "json"
	PayloadURLEncoded = "urlencoded"
	PayloadRaw        = "raw"
)

// BasicAuth holds HTTP basic credentials.
type BasicAuth struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// Call is the typed view of one rendered rest_calls entry merged over the
// call defaults. Rule and translation fields keep their raw shape and are
// validated when they are evaluated.
type Call struct {
	Host          string            `mapstructure:"host"`
	Hosts         []string          `mapstructure:"hosts"`
	Port          int               `mapstructure:"port"`
	SSL           bool              `mapstructure:"ssl"`
	Path          string            `mapstructure:"path"`
	Method        string            `mapstructure:"method"`
	Headers       map[string]string `mapstructure:"headers"`
	Payload       any               `mapstructure:"payload"`
	PayloadFormat string            `mapstructure:"payload_format"`
	RawPayload    string            `mapstructure:"raw_payload"`
	Params        map[string]any    `mapstructure:"params"`
	Verify        bool              `mapstructure:"verify"`
	Auth          *BasicAuth        `mapstructure:"auth"`

	ResponseFormat         string `mapstructure:"response_format"`
	ResponseExpectation    any    `mapstructure:"response_expectation"`
	NonrecoverableResponse any    `mapstructure:"nonrecoverable_response"`
	ResponseTranslation    any    `mapstructure:"response_translation"`
	HeaderTranslation      any    `mapstructure:"header_translation"`
	CookiesTranslation     any    `mapstructure:"cookies_translation"`
	TranslationFormat      string `mapstructure:"translation_format"`

	RecoverableCodes       []int `mapstructure:"recoverable_codes"`
	RetryOnConnectionError bool  `mapstructure:"retry_on_connection_error"`
}

// DecodeCall builds a Call from a rendered call mapping. Absent fields take
// their defaults: port -1, verify true, GET, json payload, auto formats.
func DecodeCall(m map[string]any) (*Call, error) {
	c := &Call{
		Port:              -1,
		Method:            http.MethodGet,
		PayloadFormat:     PayloadJSON,
		Verify:            true,
		ResponseFormat:    FormatAuto,
		TranslationFormat: TranslationAuto,
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           c,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(m); err != nil {
		return nil, &Error{Kind: KindMalformedSpec, Message: fmt.Sprintf("Call has invalid fields: %v", err), Err: err}
	}
	return c, nil
}

// resolvePort returns the port to dial, mapping -1 to the protocol default.
func (c *Call) resolvePort() int {
	if c.Port == -1 {
		if c.SSL {
			return 443
		}
		return 80
	}
	return c.Port
}

// hostList returns the hosts to try in order.
func (c *Call) hostList() []string {
	if len(c.Hosts) > 0 {
		return c.Hosts
	}
	return []string{c.Host}
}

func (c *Call) scheme() string {
	if c.SSL {
		return "https"
	}
	return "http"
}

func (c *Call) isRecoverableCode(code int) bool {
	for _, rc := range c.RecoverableCodes {
		if rc == code {
			return true
		}
	}
	return false
}
