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

package transport

import "strings"

// Headers is the routing-engine-facing header set of a Message. Keys are
// case-insensitive on lookup but preserve whatever case they were set with,
// mirroring the in-process routing engine's own message header bag (not an
// http.Header, since both wire-form and internal-form keys must coexist
// after a decode).
type Headers map[string]interface{}

// Get performs a case-insensitive lookup.
func (h Headers) Get(key string) (interface{}, bool) {
	if v, ok := h[key]; ok {
		return v, true
	}
	lower := strings.ToLower(key)
	for k, v := range h {
		if strings.ToLower(k) == lower {
			return v, true
		}
	}
	return nil, false
}

// GetString is a convenience wrapper around Get for the common case of a
// string-valued header.
func (h Headers) GetString(key string) (string, bool) {
	v, ok := h.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Set always sets the exact key given (no case normalisation on write, so
// re-encoding can still tell wire-form and internal-form keys apart).
func (h Headers) Set(key string, value interface{}) {
	h[key] = value
}

// Clone returns a shallow copy.
func (h Headers) Clone() Headers {
	out := make(Headers, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// Message is the internal, version-agnostic representation of a CloudEvent
// as it flows between the dispatcher/producer and the hosting routing
// engine. Headers carries both http-form and internal-form attribute keys
// (per ceversion.Decode); Body is the raw payload bytes.
type Message struct {
	Headers Headers
	Body    []byte
}

// NewMessage returns an empty Message ready to be populated by a decoder.
func NewMessage() *Message {
	return &Message{Headers: Headers{}}
}
