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

package endpointuri

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	ep, err := Parse("knative:endpoint/myEndpoint?kind=Service&ce.override.ce-type=C&replyWithCloudEvent=true")
	require.NoError(t, err)
	require.Equal(t, "endpoint", ep.Kind)
	require.Equal(t, "myEndpoint", ep.Name)
	require.True(t, ep.ReplyWithCloudEvent)
	require.Equal(t, "C", ep.Overrides()["ce-type"])
}

func TestParseEventSugar(t *testing.T) {
	ep, err := Parse("knative:event/org.apache.camel.event")
	require.NoError(t, err)
	require.Equal(t, "event", ep.Kind)
	require.Equal(t, "org.apache.camel.event", ep.Name)
}

func TestParseRejectsWrongScheme(t *testing.T) {
	_, err := Parse("http:endpoint/x")
	require.Error(t, err)
}

func TestParseRejectsMissingName(t *testing.T) {
	_, err := Parse("knative:endpoint")
	require.Error(t, err)
}

func TestMatchesKindAndVersionWildcardWhenUnspecified(t *testing.T) {
	ep, err := Parse("knative:endpoint/x")
	require.NoError(t, err)
	require.True(t, ep.MatchesKindAndVersion("Service", "v1"))
	require.True(t, ep.MatchesKindAndVersion("AnythingElse", "v2"))
}

func TestMatchesKindAndVersionStrictWhenSpecified(t *testing.T) {
	ep, err := Parse("knative:endpoint/x?kind=Service&apiVersion=v1")
	require.NoError(t, err)
	require.True(t, ep.MatchesKindAndVersion("Service", "v1"))
	require.False(t, ep.MatchesKindAndVersion("Service", "v2"))
	require.False(t, ep.MatchesKindAndVersion("Other", "v1"))
}
