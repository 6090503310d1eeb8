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

// Package environment implements component E: the immutable catalogue of
// named service definitions a routing engine declares its Knative
// endpoints, channels and events against.
package environment

import "strings"

// Kind is the kind of logical service a ServiceDefinition describes.
type Kind string

const (
	KindEndpoint Kind = "endpoint"
	KindChannel  Kind = "channel"
	KindEvent    Kind = "event"
)

// Role is the role a ServiceDefinition plays.
type Role string

const (
	RoleSource Role = "source"
	RoleSink   Role = "sink"
)

// Recognised ServiceDefinition metadata keys.
const (
	MetaServicePath  = "service.path"
	MetaContentType  = "content.type"
	MetaEventType    = "knative.event.type"
	MetaKnativeKind  = "knative.kind"
	MetaAPIVersion   = "knative.apiVersion"
	filterPrefix     = "filter."
	overridePrefix   = "ce.override."
	replyWithCEEvent = "reply.withCloudEvent"
)

// ServiceDefinition is an immutable record describing one logical service
// under this transport. Port -1 denotes "unset".
type ServiceDefinition struct {
	Name     string
	Kind     Kind
	Role     Role
	Host     string
	Port     int
	Metadata map[string]string
}

// NoPort is the sentinel for "unset".
const NoPort = -1

// Path returns the metadata-declared service.path, defaulting to "/" so
// effective-path = base-path + (service.path or "/").
func (s ServiceDefinition) Path() string {
	if p, ok := s.Metadata[MetaServicePath]; ok && p != "" {
		return p
	}
	return "/"
}

// Filters returns the declared filter.<header> metadata entries as a plain
// map of header name to required value.
func (s ServiceDefinition) Filters() map[string]string {
	return prefixed(s.Metadata, filterPrefix)
}

// Overrides returns the declared ce.override.<header> metadata entries.
func (s ServiceDefinition) Overrides() map[string]string {
	return prefixed(s.Metadata, overridePrefix)
}

// ReplyWithCloudEvent reports whether the service definition requests full
// CloudEvent headers on its reply.
func (s ServiceDefinition) ReplyWithCloudEvent() bool {
	return s.Metadata[replyWithCEEvent] == "true"
}

func prefixed(metadata map[string]string, prefix string) map[string]string {
	out := map[string]string{}
	for k, v := range metadata {
		if strings.HasPrefix(k, prefix) {
			out[strings.TrimPrefix(k, prefix)] = v
		}
	}
	return out
}

// Environment is an ordered, immutable catalogue of ServiceDefinitions.
// Construct once via Load/LoadTOML/New; never mutate.
type Environment struct {
	services []ServiceDefinition
}

// New builds an Environment from an already-materialised slice, preserving
// declaration order.
func New(services []ServiceDefinition) *Environment {
	out := make([]ServiceDefinition, len(services))
	copy(out, services)
	return &Environment{services: out}
}

// Services returns the full catalogue in declaration order. Callers must
// not mutate the returned slice's contents.
func (e *Environment) Services() []ServiceDefinition {
	return e.services
}
