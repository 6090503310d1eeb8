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

package consumer

import (
	"net/http"
	"regexp"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	cesql "github.com/cloudevents/sdk-go/sql/v2"

	"knative.dev/camel-transport/pkg/transport"
)

// Filter matching runs on the raw inbound HTTP request headers, strictly
// before decode, so every rule below is evaluated against http.Header
// rather than a decoded Message. http.Header.Get already canonicalises
// header names, which is exactly the case-insensitive match wanted here.

// headerRule is a single compiled (header, literal-string | anchored-regex)
// rule: represented as a compiled list rather than interpreting strings on
// every request.
type headerRule struct {
	header  string
	literal string
	pattern *regexp.Regexp
}

func (r headerRule) matches(value string) bool {
	// Literal-first semantics: if the declared value equals the header
	// verbatim, no regex engine is invoked at all.
	if value == r.literal {
		return true
	}
	if r.pattern != nil {
		return r.pattern.MatchString(value)
	}
	return false
}

type sqlRule struct {
	name       string
	expression cesql.Expression
}

// filter is the compiled predicate a Consumer evaluates against every
// candidate request.
type filter struct {
	headerRules []headerRule
	sqlRules    []sqlRule
}

func compileFilter(headerFilters map[string]string, sqlExpressions map[string]string) (*filter, error) {
	f := &filter{}
	for header, value := range headerFilters {
		rule := headerRule{header: header, literal: value}
		// Anchored to the full string: matches the full header value, not
		// a substring.
		if pattern, err := regexp.Compile("^(?:" + value + ")$"); err == nil {
			rule.pattern = pattern
		}
		f.headerRules = append(f.headerRules, rule)
	}
	for name, expr := range sqlExpressions {
		parsed, err := cesql.Parse(expr)
		if err != nil {
			return nil, transport.ConfigError("invalid CloudEvents SQL filter %q: %v", name, err)
		}
		f.sqlRules = append(f.sqlRules, sqlRule{name: name, expression: parsed})
	}
	return f, nil
}

// size is the total number of declared filter predicates, used to break
// selection ties in favour of the more specific consumer.
func (f *filter) size() int {
	if f == nil {
		return 0
	}
	return len(f.headerRules) + len(f.sqlRules)
}

func (f *filter) matches(headers http.Header) bool {
	if f == nil {
		return true
	}
	for _, rule := range f.headerRules {
		values, ok := headers[http.CanonicalHeaderKey(rule.header)]
		if !ok || len(values) == 0 || !rule.matches(values[0]) {
			return false
		}
	}
	for _, rule := range f.sqlRules {
		if !evaluateSQL(rule, headers) {
			return false
		}
	}
	return true
}

// evaluateSQL projects the well-known ce-* wire headers onto a
// cloudevents.Event so a CloudEvents SQL expression can be evaluated
// against it, per the supplemental filter.sql.<name> capability. This
// covers spec versions 0.2/0.3, whose wire header names ("ce-type" etc.)
// are version-independent; 0.1's differently-named headers are not
// projected, a known limitation of this supplemental feature.
func evaluateSQL(rule sqlRule, headers http.Header) bool {
	event := cloudevents.NewEvent()
	if t := headers.Get("ce-type"); t != "" {
		event.SetType(t)
	}
	if s := headers.Get("ce-source"); s != "" {
		event.SetSource(s)
	}
	if id := headers.Get("ce-id"); id != "" {
		event.SetID(id)
	}
	if sub := headers.Get("ce-subject"); sub != "" {
		event.SetSubject(sub)
	}

	result, err := rule.expression.Evaluate(event)
	if err != nil {
		return false
	}
	matched, ok := result.(bool)
	return ok && matched
}
