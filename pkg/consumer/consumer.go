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

// Package consumer implements component R: the mutable registry of active
// inbound consumers, and the Consumer registrations themselves.
package consumer

import (
	"net/http"

	"knative.dev/camel-transport/pkg/environment"
	"knative.dev/camel-transport/pkg/transport"
)

// Consumer is a mutable registration binding a source ServiceDefinition to
// a receiver callback and a compiled filter predicate.
type Consumer struct {
	Service        environment.ServiceDefinition
	BasePath       string
	Receiver       transport.Receiver
	filter         *filter
	effectivePath  string
}

// New builds a Consumer for the given source ServiceDefinition. The filter
// predicate is compiled eagerly from the service's filter.<header> metadata
// and any supplemental CloudEvents SQL filter.sql.<name> entries.
func New(service environment.ServiceDefinition, basePath string, receiver transport.Receiver) (*Consumer, error) {
	f, err := compileFilter(plainFilters(service.Filters()), sqlFilters(service.Metadata))
	if err != nil {
		return nil, err
	}
	return &Consumer{
		Service:       service,
		BasePath:      basePath,
		Receiver:      receiver,
		filter:        f,
		effectivePath: basePath + service.Path(),
	}, nil
}

// EffectivePath is basePath + (service.path or "/").
func (c *Consumer) EffectivePath() string {
	return c.effectivePath
}

// FilterSize is the number of declared filter predicates this consumer
// carries, used for the deterministic-selection tie-break that prefers
// consumers with a strictly larger filter set.
func (c *Consumer) FilterSize() int {
	return c.filter.size()
}

// Matches reports whether the raw inbound request headers satisfy this
// consumer's filter predicate; evaluated before decode.
func (c *Consumer) Matches(headers http.Header) bool {
	return c.filter.matches(headers)
}

func sqlFilters(metadata map[string]string) map[string]string {
	const prefix = "filter.sql."
	out := map[string]string{}
	for k, v := range metadata {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			out[k[len(prefix):]] = v
		}
	}
	return out
}

// plainFilters strips the "sql.<name>" entries that service.Filters()
// otherwise surfaces alongside literal/regex header filters - those are
// compiled separately as CloudEvents SQL expressions (sqlFilters above).
func plainFilters(filters map[string]string) map[string]string {
	const sqlPrefix = "sql."
	out := make(map[string]string, len(filters))
	for k, v := range filters {
		if len(k) > len(sqlPrefix) && k[:len(sqlPrefix)] == sqlPrefix {
			continue
		}
		out[k] = v
	}
	return out
}
