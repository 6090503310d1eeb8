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
	"testing"

	"github.com/stretchr/testify/require"

	"knative.dev/camel-transport/pkg/endpointuri"
	"knative.dev/camel-transport/pkg/environment"
)

func TestAttachEndpointDirectKind(t *testing.T) {
	env := environment.New([]environment.ServiceDefinition{
		{Name: "myEndpoint", Kind: environment.KindEndpoint, Role: environment.RoleSource,
			Metadata: map[string]string{"service.path": "/a/path"}},
	})

	reg := NewRegistry(nil)
	attached, err := AttachEndpoint(reg, env, "0.3", endpointuri.Endpoint{Kind: "endpoint", Name: "myEndpoint"}, noopReceiver())
	require.NoError(t, err)
	require.Len(t, attached, 1)
	require.Same(t, attached[0], reg.Lookup("/a/path", http.Header{}))
}

func TestAttachEndpointDirectKindMissingSource(t *testing.T) {
	env := environment.New(nil)
	reg := NewRegistry(nil)
	_, err := AttachEndpoint(reg, env, "0.3", endpointuri.Endpoint{Kind: "endpoint", Name: "missing"}, noopReceiver())
	require.Error(t, err)
}

func TestAttachEndpointEventTypeFanOut(t *testing.T) {
	env := environment.New([]environment.ServiceDefinition{
		{Name: "a", Kind: environment.KindEvent, Role: environment.RoleSource,
			Metadata: map[string]string{"service.path": "/a", "knative.event.type": "org.example.thing"}},
		{Name: "b", Kind: environment.KindEvent, Role: environment.RoleSource,
			Metadata: map[string]string{"service.path": "/b", "knative.event.type": "org.example.thing"}},
		{Name: "other", Kind: environment.KindEvent, Role: environment.RoleSource,
			Metadata: map[string]string{"service.path": "/c", "knative.event.type": "org.example.other"}},
	})

	reg := NewRegistry(nil)
	attached, err := AttachEndpoint(reg, env, "0.3", endpointuri.Endpoint{Kind: "event", Name: "org.example.thing"}, noopReceiver())
	require.NoError(t, err)
	require.Len(t, attached, 2)

	require.NotNil(t, reg.Lookup("/a", http.Header{}))
	require.NotNil(t, reg.Lookup("/b", http.Header{}))
	require.Nil(t, reg.Lookup("/c", http.Header{}))
}

func TestAttachEndpointEventTypeFallsBackToGenericSource(t *testing.T) {
	env := environment.New([]environment.ServiceDefinition{
		{Name: "generic", Kind: environment.KindEvent, Role: environment.RoleSource,
			Metadata: map[string]string{"service.path": "/generic"}},
	})

	reg := NewRegistry(nil)
	attached, err := AttachEndpoint(reg, env, "0.3", endpointuri.Endpoint{Kind: "event", Name: "org.example.custom"}, noopReceiver())
	require.NoError(t, err)
	require.Len(t, attached, 1)

	// The fallback consumer carries the event type as an additional
	// ce-type filter, applied on top of any declared filters.
	require.Nil(t, reg.Lookup("/generic", http.Header{"Ce-Type": {"something-else"}}))
	got := reg.Lookup("/generic", http.Header{"Ce-Type": {"org.example.custom"}})
	require.Same(t, attached[0], got)
}

func TestAttachEndpointEventTypeNoMatchNoGeneric(t *testing.T) {
	env := environment.New(nil)
	reg := NewRegistry(nil)
	_, err := AttachEndpoint(reg, env, "0.3", endpointuri.Endpoint{Kind: "event", Name: "org.example.custom"}, noopReceiver())
	require.Error(t, err)
}
