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

package ceversion

import (
	"net/http"

	"knative.dev/camel-transport/pkg/transport"
)

// EncodeDefaults supplies the values Encode should synthesise for mandatory
// attributes that are missing from the internal headers.
type EncodeDefaults struct {
	Kind           string // endpoint kind, for the canonical source URI
	Name           string // endpoint name, for the canonical source URI
	EventType      string // knative.event.type metadata, used as default `type`
}

// Encode maps internal-form headers to wire-form HTTP headers plus a
// content type for the given CloudEvents spec version. It emits the
// binary-mode representation only.
func Encode(version string, headers transport.Headers, defaults EncodeDefaults) (http.Header, string, error) {
	table, ok := TableFor(version)
	if !ok {
		return nil, "", transport.ConfigError("unsupported CloudEvents spec version %q", version)
	}

	out := http.Header{}
	var contentType string

	for _, attr := range orderedAttributes {
		names := table.Names[attr]

		value, found := headers.GetString(names.Internal)
		if !found {
			value, found = headers.GetString(names.HTTP)
		}
		if !found {
			value, found = synthesize(attr, defaults)
		}
		if !found {
			continue
		}

		if attr == DataContentType {
			contentType = value
			continue
		}
		out.Set(names.HTTP, value)
	}

	return out, contentType, nil
}

func synthesize(attr Attribute, defaults EncodeDefaults) (string, bool) {
	switch attr {
	case ID:
		return NewID(), true
	case Time:
		return NewTime(), true
	case Source:
		return CanonicalSource(defaults.Kind, defaults.Name), true
	case Type:
		if defaults.EventType != "" {
			return defaults.EventType, true
		}
	}
	return "", false
}
