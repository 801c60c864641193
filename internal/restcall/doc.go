// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

// Package restcall executes declarative sequences of REST calls.
//
// A template is a YAML document with a rest_calls list. Each entry describes
// one HTTP call plus the rules applied to its response:
//
//	rest_calls:
//	  - host: api.example.com
//	    port: -1
//	    ssl: true
//	    path: /objects
//	    method: POST
//	    payload:
//	      name: '{{ .name }}'
//	    response_expectation: [['status', 'created']]
//	    nonrecoverable_response: [['status', 'failed']]
//	    response_translation:
//	      id: [object_id]
//	  - host: api.example.com
//	    path: '/objects/{{ .object_id }}'
//	    method: GET
//
// String values are Go templates evaluated with the sprig function set. The
// properties extracted by a call are visible to the templates of the calls
// after it.
//
// Failures are typed. Errors whose kind is Recoverable ask the caller to run
// the sequence again; everything else is final. The package itself never
// retries a call sequence.
package restcall
