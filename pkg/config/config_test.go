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

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCEOverridesParsing(t *testing.T) {
	s := Spec{CEOverridesRaw: "ce-type=A, ce-source=B"}
	got := s.CEOverrides()
	require.Equal(t, "A", got["ce-type"])
	require.Equal(t, "B", got["ce-source"])
}

func TestOverridesReplaceIsAtomicSnapshot(t *testing.T) {
	o := NewOverrides(map[string]string{"ce-type": "A"})
	snap := o.Get()
	o.Replace(map[string]string{"ce-type": "B"})

	require.Equal(t, "A", snap["ce-type"])
	require.Equal(t, "B", o.Get()["ce-type"])
}

func TestDefaultEnvironmentPathHonoursExplicitOverride(t *testing.T) {
	s := Spec{EnvironmentPath: "/etc/camel-knative/env.yaml"}
	path, err := s.DefaultEnvironmentPath()
	require.NoError(t, err)
	require.Equal(t, "/etc/camel-knative/env.yaml", path)
}
