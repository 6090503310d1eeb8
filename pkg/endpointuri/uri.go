/*
Copyright 2020 The Knative Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package endpointuri parses the routing engine's endpoint URI grammar:
// `knative:<kind>/<name>[?<key>=<value>(&<key>=<value>)*]`.
package endpointuri

import (
	"net/url"
	"strings"

	"knative.dev/camel-transport/pkg/transport"
)

const scheme = "knative"

// Recognised query keys.
const (
	QueryKind              = "kind"
	QueryAPIVersion        = "apiVersion"
	QueryReplyWithCloudEvt = "replyWithCloudEvent"
	overrideQueryPrefix    = "ce.override."
)

// Endpoint is a parsed endpoint URI.
type Endpoint struct {
	Kind                string
	Name                string
	Query               url.Values
	ReplyWithCloudEvent bool
}

// Overrides returns the ce.override.<http-header> query parameters, the
// endpoint URI override layer.
func (e Endpoint) Overrides() map[string]string {
	out := map[string]string{}
	for key := range e.Query {
		if strings.HasPrefix(key, overrideQueryPrefix) {
			out[strings.TrimPrefix(key, overrideQueryPrefix)] = e.Query.Get(key)
		}
	}
	return out
}

// MatchesKindAndVersion reports whether declaredKind/declaredAPIVersion
// satisfy this endpoint's kind/apiVersion query parameters: an unspecified
// parameter is a wildcard, a specified one must equal the given value
// exactly.
func (e Endpoint) MatchesKindAndVersion(declaredKind, declaredAPIVersion string) bool {
	if k := e.Query.Get(QueryKind); k != "" && k != declaredKind {
		return false
	}
	if v := e.Query.Get(QueryAPIVersion); v != "" && v != declaredAPIVersion {
		return false
	}
	return true
}

// Parse parses a `knative:<kind>/<name>[?...]` URI. The special form
// `knative:event/<type>` (no further path segments) is recognised by
// callers via Kind=="event" and Name==<type>; the event-kind equivalence
// itself is applied by pkg/consumer's AttachEndpoint.
func Parse(raw string) (Endpoint, error) {
	if !strings.HasPrefix(raw, scheme+":") {
		return Endpoint{}, transport.IllegalArgument("endpoint URI must start with %q, got %q", scheme+":", raw)
	}

	rest := strings.TrimPrefix(raw, scheme+":")

	var path, rawQuery string
	if idx := strings.IndexByte(rest, '?'); idx >= 0 {
		path, rawQuery = rest[:idx], rest[idx+1:]
	} else {
		path = rest
	}

	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Endpoint{}, transport.IllegalArgument("endpoint URI must be of the form knative:<kind>/<name>, got %q", raw)
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return Endpoint{}, transport.IllegalArgument("invalid endpoint URI query: %v", err)
	}

	return Endpoint{
		Kind:                parts[0],
		Name:                parts[1],
		Query:               values,
		ReplyWithCloudEvent: values.Get(QueryReplyWithCloudEvt) == "true",
	}, nil
}
