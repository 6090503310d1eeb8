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
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"knative.dev/camel-transport/pkg/environment"
	"knative.dev/camel-transport/pkg/transport"
)

func noopReceiver() transport.Receiver {
	return transport.ReceiverFunc(func(ctx context.Context, msg *transport.Message) (*transport.Reply, error) {
		return nil, nil
	})
}

func headersWithSource(value string) http.Header {
	return http.Header{"Ce-Source": {value}}
}

func TestRegistryFilterRegexSelection(t *testing.T) {
	svc1 := environment.ServiceDefinition{Name: "a", Kind: environment.KindEndpoint, Role: environment.RoleSource,
		Metadata: map[string]string{"service.path": "/p", "filter.ce-source": "CE[01234]"}}
	svc2 := environment.ServiceDefinition{Name: "b", Kind: environment.KindEndpoint, Role: environment.RoleSource,
		Metadata: map[string]string{"service.path": "/p", "filter.ce-source": "CE[56789]"}}

	c1, err := New(svc1, "", noopReceiver())
	require.NoError(t, err)
	c2, err := New(svc2, "", noopReceiver())
	require.NoError(t, err)

	reg := NewRegistry(nil)
	reg.Attach(c1)
	reg.Attach(c2)

	got := reg.Lookup("/p", headersWithSource("CE0"))
	require.Same(t, c1, got)

	got = reg.Lookup("/p", headersWithSource("CE5"))
	require.Same(t, c2, got)

	got = reg.Lookup("/p", headersWithSource("CE9"))
	require.Same(t, c2, got)

	got = reg.Lookup("/p", headersWithSource("XX"))
	require.Nil(t, got)
}

func TestRegistryDynamicDetach(t *testing.T) {
	svc1 := environment.ServiceDefinition{Name: "a", Kind: environment.KindEndpoint, Role: environment.RoleSource,
		Metadata: map[string]string{"service.path": "/p", "filter.x-id": "1"}}
	svc2 := environment.ServiceDefinition{Name: "b", Kind: environment.KindEndpoint, Role: environment.RoleSource,
		Metadata: map[string]string{"service.path": "/p", "filter.x-id": "2"}}

	c1, err := New(svc1, "", noopReceiver())
	require.NoError(t, err)
	c2, err := New(svc2, "", noopReceiver())
	require.NoError(t, err)

	reg := NewRegistry(nil)
	reg.Attach(c1)
	h2 := reg.Attach(c2)

	headersFor := func(id string) http.Header {
		return http.Header{"X-Id": {id}}
	}

	require.Same(t, c2, reg.Lookup("/p", headersFor("2")))

	reg.Detach(h2)

	require.Nil(t, reg.Lookup("/p", headersFor("2")))
	require.Same(t, c1, reg.Lookup("/p", headersFor("1")))
}

func TestRegistrySelectionPrefersLargerFilterSet(t *testing.T) {
	broad := environment.ServiceDefinition{Name: "broad", Kind: environment.KindEndpoint, Role: environment.RoleSource,
		Metadata: map[string]string{"service.path": "/p", "filter.a": "1"}}
	narrow := environment.ServiceDefinition{Name: "narrow", Kind: environment.KindEndpoint, Role: environment.RoleSource,
		Metadata: map[string]string{"service.path": "/p", "filter.a": "1", "filter.b": "2"}}

	cBroad, err := New(broad, "", noopReceiver())
	require.NoError(t, err)
	cNarrow, err := New(narrow, "", noopReceiver())
	require.NoError(t, err)

	reg := NewRegistry(nil)
	reg.Attach(cBroad)
	reg.Attach(cNarrow)

	headers := http.Header{"A": {"1"}, "B": {"2"}}

	require.Same(t, cNarrow, reg.Lookup("/p", headers))
}
