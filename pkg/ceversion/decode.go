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
	"encoding/json"
	"net/http"
	"strings"

	"knative.dev/camel-transport/pkg/transport"
)

// Decode maps wire-form HTTP headers and body back to an internal Message
// for the given CloudEvents spec version.
//
// Structured mode (contentType == StructuredContentType): the JSON body is
// parsed and each recognised attribute is lifted into its internal header
// name; `data` becomes the payload.
//
// Binary mode (anything else): each recognised HTTP header is copied to
// both its http-form and internal-form names in the resulting message
// headers, and the request body is the payload verbatim.
func Decode(version string, httpHeaders http.Header, body []byte, contentType string) (*transport.Message, error) {
	table, ok := TableFor(version)
	if !ok {
		return nil, transport.ConfigError("unsupported CloudEvents spec version %q", version)
	}

	if contentType == StructuredContentType {
		return decodeStructured(table, body)
	}
	return decodeBinary(table, httpHeaders, body, contentType), nil
}

func decodeBinary(table Table, httpHeaders http.Header, body []byte, contentType string) *transport.Message {
	msg := transport.NewMessage()
	for _, attr := range orderedAttributes {
		names := table.Names[attr]
		var value string
		if attr == DataContentType {
			value = contentType
		} else {
			value = httpHeaders.Get(names.HTTP)
		}
		if value == "" {
			continue
		}
		msg.Headers.Set(names.HTTP, value)
		msg.Headers.Set(names.Internal, value)
	}
	// Pass through any non-CloudEvent headers too, wire-form only, so a
	// receiver can still see e.g. custom correlation headers.
	known := make(map[string]bool, len(table.Names))
	for _, names := range table.Names {
		known[strings.ToLower(names.HTTP)] = true
	}
	for key, vals := range httpHeaders {
		if known[strings.ToLower(key)] || len(vals) == 0 {
			continue
		}
		msg.Headers.Set(key, vals[0])
	}
	msg.Body = body
	return msg
}

func decodeStructured(table Table, body []byte) (*transport.Message, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, transport.DecodeError(err, "malformed structured CloudEvents JSON body")
	}

	msg := transport.NewMessage()
	for _, attr := range orderedAttributes {
		key, ok := table.StructuredKeys[attr]
		if !ok {
			continue
		}
		rawVal, present := raw[key]
		if !present {
			continue
		}
		var value string
		if err := json.Unmarshal(rawVal, &value); err != nil {
			// Non-string attribute values are not expected for this
			// attribute set; skip rather than fail the whole decode.
			continue
		}
		names := table.Names[attr]
		msg.Headers.Set(names.HTTP, value)
		msg.Headers.Set(names.Internal, value)
	}

	if dataRaw, ok := raw["data"]; ok {
		var data interface{}
		if err := json.Unmarshal(dataRaw, &data); err != nil {
			return nil, transport.DecodeError(err, "malformed structured CloudEvents JSON data field")
		}
		switch v := data.(type) {
		case string:
			msg.Body = []byte(v)
		default:
			msg.Body = dataRaw
		}
	}

	return msg, nil
}
