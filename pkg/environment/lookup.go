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

package environment

import "knative.dev/camel-transport/pkg/transport"

// FindSource returns the first source entry matching kind and name.
// Ambiguity is resolved by first match in declaration order.
func (e *Environment) FindSource(kind Kind, name string) (ServiceDefinition, bool) {
	for _, s := range e.services {
		if s.Role == RoleSource && s.Kind == kind && s.Name == name {
			return s, true
		}
	}
	return ServiceDefinition{}, false
}

// FindSink returns the first sink entry matching kind and name. A missing
// host is not an error at lookup time, only at outbound invocation time
// (see pkg/producer).
func (e *Environment) FindSink(kind Kind, name string) (ServiceDefinition, bool) {
	for _, s := range e.services {
		if s.Role == RoleSink && s.Kind == kind && s.Name == name {
			return s, true
		}
	}
	return ServiceDefinition{}, false
}

// ResolveSink is FindSink plus the host-required precondition, for callers
// that want "absence on a sink fails the outbound call at invocation time"
// folded into a single call.
func (e *Environment) ResolveSink(kind Kind, name string) (ServiceDefinition, error) {
	s, ok := e.FindSink(kind, name)
	if !ok {
		return ServiceDefinition{}, transport.ConfigError("no sink service definition for %s/%s", kind, name)
	}
	if s.Host == "" {
		return ServiceDefinition{}, transport.HostNotDefined()
	}
	return s, nil
}

// FindSourcesByKind returns all source entries for the given kind, in
// declaration order (used at consumer-attach time).
func (e *Environment) FindSourcesByKind(kind Kind) []ServiceDefinition {
	var out []ServiceDefinition
	for _, s := range e.services {
		if s.Role == RoleSource && s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// FindEventSourcesByType implements the `event` kind equivalence: every
// source with role=source, kind=event whose knative.event.type metadata
// matches eventType.
func (e *Environment) FindEventSourcesByType(eventType string) []ServiceDefinition {
	var out []ServiceDefinition
	for _, s := range e.FindSourcesByKind(KindEvent) {
		if s.Metadata[MetaEventType] == eventType {
			out = append(out, s)
		}
	}
	return out
}
