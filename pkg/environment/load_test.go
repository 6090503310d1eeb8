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

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const yamlDoc = `
services:
  - name: myEndpoint
    kind: endpoint
    role: source
    metadata:
      service.path: /a/path
      knative.event.type: org.apache.camel.event
  - name: mySink
    kind: endpoint
    role: sink
    host: example.com
    port: 8080
    metadata:
      content.type: application/json
      ce.override.ce-type: A
`

const tomlDoc = `
[[services]]
name = "myEndpoint"
kind = "endpoint"
role = "source"

[services.metadata]
"service.path" = "/a/path"
`

func TestLoadYAML(t *testing.T) {
	env, err := LoadYAML([]byte(yamlDoc))
	require.NoError(t, err)
	require.Len(t, env.Services(), 2)

	src, ok := env.FindSource(KindEndpoint, "myEndpoint")
	require.True(t, ok)
	require.Equal(t, "/a/path", src.Path())

	sink, err := env.ResolveSink(KindEndpoint, "mySink")
	require.NoError(t, err)
	require.Equal(t, "example.com", sink.Host)
	require.Equal(t, "A", sink.Overrides()["ce-type"])
}

func TestLoadTOML(t *testing.T) {
	env, err := LoadTOML([]byte(tomlDoc))
	require.NoError(t, err)
	require.Len(t, env.Services(), 1)

	src, ok := env.FindSource(KindEndpoint, "myEndpoint")
	require.True(t, ok)
	require.Equal(t, "/a/path", src.Path())
}

func TestLoadDispatchesByExtension(t *testing.T) {
	env, err := Load("env.toml", []byte(tomlDoc))
	require.NoError(t, err)
	require.Len(t, env.Services(), 1)

	env, err = Load("env.yaml", []byte(yamlDoc))
	require.NoError(t, err)
	require.Len(t, env.Services(), 2)
}

func TestResolveSinkMissingHost(t *testing.T) {
	env := New([]ServiceDefinition{
		{Name: "noHost", Kind: KindEndpoint, Role: RoleSink},
	})

	_, err := env.ResolveSink(KindEndpoint, "noHost")
	require.Error(t, err)
}
