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
	"knative.dev/camel-transport/pkg/ceversion"
	"knative.dev/camel-transport/pkg/endpointuri"
	"knative.dev/camel-transport/pkg/environment"
	"knative.dev/camel-transport/pkg/transport"
)

// AttachEndpoint resolves ep against env and attaches the resulting
// Consumer(s) to registry, implementing the `kind=event` equivalence: for
// any other kind, ep addresses exactly one declared source by (kind,
// name); for kind=event, ep.Name is an event type that may fan out to
// every declared event-kind source advertising that type.
func AttachEndpoint(registry *Registry, env *environment.Environment, specVersion string, ep endpointuri.Endpoint, receiver transport.Receiver) ([]*Consumer, error) {
	if environment.Kind(ep.Kind) != environment.KindEvent {
		svc, ok := env.FindSource(environment.Kind(ep.Kind), ep.Name)
		if !ok {
			return nil, transport.ConfigError("no source service definition for %s/%s", ep.Kind, ep.Name)
		}
		return attachOne(registry, svc, receiver)
	}
	return attachEventType(registry, env, specVersion, ep.Name, receiver)
}

func attachOne(registry *Registry, svc environment.ServiceDefinition, receiver transport.Receiver) ([]*Consumer, error) {
	c, err := New(svc, "", receiver)
	if err != nil {
		return nil, err
	}
	registry.Attach(c)
	return []*Consumer{c}, nil
}

// attachEventType implements the fan-out half of the event-kind
// equivalence: every declared kind=event source whose knative.event.type
// metadata equals eventType is attached as-is. If none declare that type,
// falls back to a single generic event source (one with no
// knative.event.type of its own), attached with eventType folded in as an
// additional "<ce-type-header> equals <type>" filter on top of its
// declared filters.
func attachEventType(registry *Registry, env *environment.Environment, specVersion, eventType string, receiver transport.Receiver) ([]*Consumer, error) {
	matches := env.FindEventSourcesByType(eventType)
	if len(matches) > 0 {
		out := make([]*Consumer, 0, len(matches))
		for _, svc := range matches {
			attached, err := attachOne(registry, svc, receiver)
			if err != nil {
				return nil, err
			}
			out = append(out, attached...)
		}
		return out, nil
	}

	generic, ok := genericEventSource(env)
	if !ok {
		return nil, transport.ConfigError("no event source declares or matches type %q", eventType)
	}
	return attachOne(registry, withEventTypeFilter(generic, specVersion, eventType), receiver)
}

// genericEventSource returns the declared kind=event source that carries
// no knative.event.type of its own, the "single generic source" this falls
// back to for an otherwise-unmatched event type.
func genericEventSource(env *environment.Environment) (environment.ServiceDefinition, bool) {
	for _, s := range env.FindSourcesByKind(environment.KindEvent) {
		if s.Metadata[environment.MetaEventType] == "" {
			return s, true
		}
	}
	return environment.ServiceDefinition{}, false
}

// withEventTypeFilter returns a copy of svc with eventType layered on as
// both its synthesised CE type and an additional declared filter: the
// effective filter becomes "<ce-type-header> equals <type>", applied on
// top of any declared filters. The header name is looked up from the
// mapper so this holds for whichever of 0.1/0.2/0.3 the process is
// configured for.
func withEventTypeFilter(svc environment.ServiceDefinition, specVersion, eventType string) environment.ServiceDefinition {
	meta := make(map[string]string, len(svc.Metadata)+2)
	for k, v := range svc.Metadata {
		meta[k] = v
	}
	meta[environment.MetaEventType] = eventType
	if names, ok := ceversion.TableFor(specVersion); ok {
		meta["filter."+names.Names[ceversion.Type].HTTP] = eventType
	}
	svc.Metadata = meta
	return svc
}
