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

// Package producer implements component P: resolving a (kind, name) target
// to a sink ServiceDefinition, synthesising CloudEvent headers under a
// layered override precedence, and performing the outbound HTTP POST.
package producer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"go.opencensus.io/plugin/ochttp"
	"go.opencensus.io/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"knative.dev/pkg/apis"
	duckv1 "knative.dev/pkg/apis/duck/v1"
	"knative.dev/pkg/tracing/propagation/tracecontextb3"

	"knative.dev/camel-transport/pkg/ceversion"
	"knative.dev/camel-transport/pkg/config"
	"knative.dev/camel-transport/pkg/endpointuri"
	"knative.dev/camel-transport/pkg/environment"
	"knative.dev/camel-transport/pkg/transport"
)

const defaultClientCacheSize = 64

// Producer implements transport.Producer.
type Producer struct {
	env         *environment.Environment
	specVersion string
	overrides   *config.Overrides

	clients    *lru.Cache
	inflight   singleflight.Group
	logger     *zap.SugaredLogger
}

// New builds a Producer resolving sinks from env, encoding/decoding
// CloudEvents at specVersion, and reading the process-wide ce-override map
// from overrides, which must be replaceable atomically.
func New(env *environment.Environment, specVersion string, overrides *config.Overrides, logger *zap.SugaredLogger) (*Producer, error) {
	cache, err := lru.New(defaultClientCacheSize)
	if err != nil {
		return nil, transport.ConfigError("could not allocate producer client cache: %v", err)
	}
	if overrides == nil {
		overrides = config.NewOverrides(nil)
	}
	return &Producer{
		env:         env,
		specVersion: specVersion,
		overrides:   overrides,
		clients:     cache,
		logger:      logger,
	}, nil
}

func (p *Producer) log() *zap.SugaredLogger {
	if p.logger == nil {
		return zap.NewNop().Sugar()
	}
	return p.logger
}

// Send implements transport.Producer, resolving (kind, name) to a sink
// ServiceDefinition and dispatching msg to it.
func (p *Producer) Send(ctx context.Context, kind, name string, msg *transport.Message) (*transport.DispatchInfo, error) {
	if msg == nil || msg.Body == nil {
		return nil, transport.IllegalArgument("body must not be null")
	}

	svc, err := p.env.ResolveSink(environment.Kind(kind), name)
	if err != nil {
		return nil, err
	}

	return p.sendTo(ctx, svc, nil, msg)
}

// SendToEndpoint dispatches msg to the sink addressed by a parsed
// "knative:<kind>/<name>?ce.override.<header>=..." endpoint URI, layering
// in the URI's own ce.override.* query parameters.
func (p *Producer) SendToEndpoint(ctx context.Context, ep endpointuri.Endpoint, msg *transport.Message) (*transport.DispatchInfo, error) {
	if msg == nil || msg.Body == nil {
		return nil, transport.IllegalArgument("body must not be null")
	}

	svc, err := p.env.ResolveSink(environment.Kind(ep.Kind), ep.Name)
	if err != nil {
		return nil, err
	}

	return p.sendTo(ctx, svc, ep.Overrides(), msg)
}

func (p *Producer) sendTo(ctx context.Context, svc environment.ServiceDefinition, uriOverrides map[string]string, msg *transport.Message) (*transport.DispatchInfo, error) {
	addressable := addressableFor(svc)
	url := addressable.URL.String()

	ctx, span := trace.StartSpan(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	headers, contentType := p.synthesizeHeaders(svc, uriOverrides, msg)

	client, err := p.clientFor(url)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(msg.Body))
	if err != nil {
		return nil, transport.HTTPOperationFailed(err, url, 0, "could not construct request")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, transport.HTTPOperationFailed(err, url, 0, err.Error())
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, transport.HTTPOperationFailed(readErr, url, resp.StatusCode, "could not read response body")
	}

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return &transport.DispatchInfo{StatusCode: resp.StatusCode, ResponseURL: url}, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return &transport.DispatchInfo{StatusCode: resp.StatusCode, ResponseBody: body, ResponseURL: url}, nil
	default:
		message := resp.Status
		if len(body) > 0 {
			message = string(body)
		}
		return nil, transport.HTTPOperationFailed(errors.Errorf("unexpected HTTP response"), url, resp.StatusCode, message)
	}
}

// addressableFor builds "scheme://host:port + (service.path or /)" as a
// duckv1.Addressable, the same sink representation the wider Knative
// ecosystem uses for a resolved HTTP target. TLS-configured transports are
// out of scope for this component; scheme is always http.
func addressableFor(svc environment.ServiceDefinition) duckv1.Addressable {
	host := svc.Host
	if svc.Port != environment.NoPort {
		host = host + ":" + strconv.Itoa(svc.Port)
	}
	return duckv1.Addressable{
		URL: &apis.URL{
			Scheme: "http",
			Host:   host,
			Path:   svc.Path(),
		},
	}
}

// synthesizeHeaders builds the outbound header set, layering overrides in
// ascending precedence order.
func (p *Producer) synthesizeHeaders(svc environment.ServiceDefinition, uriOverrides map[string]string, msg *transport.Message) (map[string]string, string) {
	httpHeaders, contentType, err := ceversion.Encode(p.specVersion, msg.Headers, ceversion.EncodeDefaults{
		Kind:      string(svc.Kind),
		Name:      svc.Name,
		EventType: svc.Metadata["knative.event.type"],
	})
	result := map[string]string{}
	if err == nil {
		for k, vals := range httpHeaders {
			if len(vals) > 0 {
				result[k] = vals[0]
			}
		}
	}

	// (a) Environment layer.
	applyOverrides(result, svc.Overrides())
	// (b) Component configuration layer.
	applyOverrides(result, p.overrides.Get())
	// (c) Endpoint URI layer.
	applyOverrides(result, uriOverrides)
	names := ceversion.NamesInOrder(p.specVersion)
	// (d) Route layer - abstract CamelCloudEvent* internal headers.
	applyOverrides(result, internalHeaderOverrides(names, msg.Headers))
	// (e) Route layer - explicit wire headers set on the message win over
	// everything above for that header.
	applyOverrides(result, explicitWireHeaders(names, msg.Headers))

	// (f) Content-Type precedence: message header wins, else
	// S.metadata["content.type"], else whatever M.encode synthesised.
	if ct, ok := msg.Headers.GetString("Content-Type"); ok {
		contentType = ct
	} else if dct := svc.Metadata["content.type"]; dct != "" {
		contentType = dct
	}
	delete(result, "Content-Type")

	return result, contentType
}

func applyOverrides(dst map[string]string, overrides map[string]string) {
	for k, v := range overrides {
		dst[http.CanonicalHeaderKey(k)] = v
	}
}

// internalHeaderOverrides projects CamelCloudEvent*-named internal headers
// on msg back onto their wire-form header names.
func internalHeaderOverrides(names []ceversion.Names, headers transport.Headers) map[string]string {
	out := map[string]string{}
	for _, n := range names {
		if v, ok := headers.GetString(n.Internal); ok {
			out[n.HTTP] = v
		}
	}
	return out
}

// explicitWireHeaders returns every header on msg whose key is already in
// HTTP wire form, i.e. not one of the known internal-form names.
func explicitWireHeaders(names []ceversion.Names, headers transport.Headers) map[string]string {
	internalNames := map[string]bool{}
	for _, n := range names {
		internalNames[strings.ToLower(n.Internal)] = true
	}

	out := map[string]string{}
	for k, v := range headers {
		if internalNames[strings.ToLower(k)] {
			continue
		}
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func (p *Producer) clientFor(url string) (*http.Client, error) {
	if c, ok := p.clients.Get(url); ok {
		return c.(*http.Client), nil
	}

	v, err, _ := p.inflight.Do(url, func() (interface{}, error) {
		if c, ok := p.clients.Get(url); ok {
			return c, nil
		}
		client := newClient()
		p.clients.Add(url, client)
		return client, nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not build client for %s: %w", url, err)
	}
	return v.(*http.Client), nil
}

// CloseIdleConnections releases pooled connections on every cached client,
// for callers shutting the process down cleanly.
func (p *Producer) CloseIdleConnections() {
	for _, url := range p.clients.Keys() {
		if c, ok := p.clients.Peek(url); ok {
			c.(*http.Client).CloseIdleConnections()
		}
	}
}

// spanName identifies outbound producer spans for go.opencensus.io/trace.
const spanName = "knative.dev/camel-transport/producer"

func newClient() *http.Client {
	return &http.Client{
		Transport: &ochttp.Transport{
			Base:        cleanhttp.DefaultPooledTransport(),
			Propagation: tracecontextb3.TraceContextEgress,
		},
	}
}
