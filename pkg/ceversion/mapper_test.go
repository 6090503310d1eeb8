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
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"knative.dev/camel-transport/pkg/transport"
)

func TestDecodeBinary(t *testing.T) {
	testCases := map[string]struct {
		version string
		headers http.Header
		body    string
		ct      string
		wantErr bool
	}{
		"v0.3 basic": {
			version: "0.3",
			headers: http.Header{
				"Ce-Specversion": {"0.3"},
				"Ce-Type":        {"org.apache.camel.event"},
				"Ce-Id":          {"X"},
				"Ce-Source":      {"/somewhere"},
			},
			body: "test",
			ct:   "text/plain",
		},
		"v0.1 basic": {
			version: "0.1",
			headers: http.Header{
				"Ce-Cloudeventsversion": {"0.1"},
				"Ce-Eventtype":          {"org.apache.camel.event"},
				"Ce-Eventid":            {"X"},
				"Ce-Source":             {"/somewhere"},
			},
			body: "test",
			ct:   "text/plain",
		},
		"unknown version": {
			version: "9.9",
			headers: http.Header{},
			wantErr: true,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			msg, err := Decode(tc.version, tc.headers, []byte(tc.body), tc.ct)
			if tc.wantErr {
				require.Error(t, err)
				require.Equal(t, transport.KindConfig, transport.KindOf(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.body, string(msg.Body))
			typ, ok := msg.Headers.GetString("CamelCloudEventType")
			require.True(t, ok)
			require.Equal(t, "org.apache.camel.event", typ)
		})
	}
}

func TestDecodeStructuredV02(t *testing.T) {
	body := `{"specversion":"0.2","type":"org.apache.camel.event","id":"E","time":"2020-01-01T00:00:00Z","source":"/s","contenttype":"text/plain","data":"test"}`
	headers := http.Header{"Content-Type": {StructuredContentType}}

	msg, err := Decode("0.2", headers, []byte(body), StructuredContentType)
	require.NoError(t, err)
	require.Equal(t, "test", string(msg.Body))

	typ, ok := msg.Headers.GetString("CamelCloudEventType")
	require.True(t, ok)
	require.Equal(t, "org.apache.camel.event", typ)

	ct, ok := msg.Headers.GetString("Content-Type")
	require.True(t, ok)
	require.Equal(t, "text/plain", ct)
}

func TestDecodeStructuredMalformed(t *testing.T) {
	_, err := Decode("0.2", http.Header{}, []byte("{not json"), StructuredContentType)
	require.Error(t, err)
	require.Equal(t, transport.KindDecode, transport.KindOf(err))
}

func TestEncodeSynthesizesMissingAttributes(t *testing.T) {
	headers := transport.Headers{}
	out, ct, err := Encode("0.3", headers, EncodeDefaults{Kind: "endpoint", Name: "myEndpoint", EventType: "org.apache.camel.event"})
	require.NoError(t, err)
	require.Equal(t, "", ct)
	require.NotEmpty(t, out.Get("ce-id"))
	require.NotEmpty(t, out.Get("ce-time"))
	require.Equal(t, "knative://endpoint/myEndpoint", out.Get("ce-source"))
	require.Equal(t, "org.apache.camel.event", out.Get("ce-type"))
}

func TestEncodePrefersInternalFormOverWireForm(t *testing.T) {
	headers := transport.Headers{
		"ce-type":          "wire-value",
		"CamelCloudEventType": "internal-value",
	}
	out, _, err := Encode("0.3", headers, EncodeDefaults{Kind: "endpoint", Name: "x"})
	require.NoError(t, err)
	require.Equal(t, "internal-value", out.Get("ce-type"))
}

func TestRoundTripBinary(t *testing.T) {
	// Round-trip property: for any CloudEvent attributes set on an
	// outbound message, decoding the resulting request yields the same
	// attribute values in the internal header namespace.
	headers := transport.Headers{
		"CamelCloudEventType":   "com.example.test",
		"CamelCloudEventId":     "abc-123",
		"CamelCloudEventSource": "/src",
	}
	wire, ct, err := Encode("0.3", headers, EncodeDefaults{Kind: "endpoint", Name: "e"})
	require.NoError(t, err)
	if ct != "" {
		wire.Set("Content-Type", ct)
	}

	decoded, err := Decode("0.3", wire, []byte("payload"), wire.Get("Content-Type"))
	require.NoError(t, err)

	typ, _ := decoded.Headers.GetString("CamelCloudEventType")
	require.Equal(t, "com.example.test", typ)
	id, _ := decoded.Headers.GetString("CamelCloudEventId")
	require.Equal(t, "abc-123", id)
	src, _ := decoded.Headers.GetString("CamelCloudEventSource")
	require.Equal(t, "/src", src)
}
