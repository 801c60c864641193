// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package restcall

import (
	"context"
	"regexp"

	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// CheckMode selects how a rule match is interpreted.
type CheckMode int

const (
	// CheckExpectation fails with a recoverable error when a value does not match.
	CheckExpectation CheckMode = iota
	// CheckNonRecoverable fails with a non-recoverable error when a value matches.
	CheckNonRecoverable
)

func (m CheckMode) String() string {
	if m == CheckNonRecoverable {
		return "nonrecoverable"
	}
	return "recoverable"
}

// CheckResponse validates structure against rule.
//
// A rule is either [path..., pattern] or a list of such rules. The path is
// walked through mappings and sequences and the pattern is matched against the
// start of the stringified leaf. An empty rule always passes. The rule value is
// only read, so the same rule can be evaluated again on the next attempt.
func CheckResponse(ctx context.Context, structure any, rule any, mode CheckMode) error {
	tflog.Debug(ctx, "check response", map[string]interface{}{
		"mode": mode.String(),
		"rule": stringify(rule),
	})

	if isEmpty(rule) {
		return nil
	}
	items, ok := asSlice(rule)
	if !ok {
		return newError(KindMalformedSpec, "Response (%s) had to be list. Type %T not supported. ", mode, rule)
	}

	if _, nested := asSlice(items[0]); nested {
		for _, item := range items {
			if err := CheckResponse(ctx, structure, item, mode); err != nil {
				return err
			}
		}
		return nil
	}

	pattern := stringify(items[len(items)-1])
	cur := structure
	for _, seg := range items[:len(items)-1] {
		next, found := descend(cur, seg)
		if !found {
			return newError(KindPathNotFound, "No key or index \"%s\" in json %s", stringify(seg), stringify(cur))
		}
		cur = next
	}

	re, err := compilePrefix(pattern)
	if err != nil {
		return &Error{Kind: KindMalformedSpec, Message: "Invalid regexp " + pattern + ": " + err.Error(), Err: err}
	}
	value := stringify(cur)
	matched := re.MatchString(value)

	switch {
	case matched && mode == CheckNonRecoverable:
		return newError(KindNonRecoverable,
			"Giving up... \nResponse value: %s matches regexp:%s from nonrecoverable_response. ", value, pattern)
	case !matched && mode == CheckExpectation:
		return newError(KindRecoverableResponse,
			"Trying one more time...\nResponse value:%s does not match regexp: %s from response_expectation", value, pattern)
	}
	return nil
}

// compilePrefix compiles pattern so that it only matches at the start of the input.
func compilePrefix(pattern string) (*regexp.Regexp, error) {
	if _, err := regexp.Compile(pattern); err != nil {
		return nil, err
	}
	return regexp.Compile(`^(?:` + pattern + `)`)
}
