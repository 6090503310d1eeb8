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

package dispatcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.opencensus.io/plugin/ochttp"

	"knative.dev/camel-transport/pkg/transport"
	"knative.dev/pkg/logging"
	"knative.dev/pkg/tracing/propagation/tracecontextb3"
)

// Server wraps a Dispatcher in an *http.Server, tracing every inbound
// request with an ochttp.Handler for inbound tracing.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
}

// Listen binds addr (":0" picks an ephemeral port; tests reserve a specific
// port in advance with phayes/freeport) and wraps d for tracing.
func Listen(addr string, d *Dispatcher) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, transport.ConfigError("could not bind %s: %v", addr, err)
	}

	traced := &ochttp.Handler{
		Handler:     d,
		Propagation: tracecontextb3.TraceContextEgress,
	}

	return &Server{
		listener: ln,
		httpServer: &http.Server{
			Handler:           traced,
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext: func(net.Listener) context.Context {
				return logging.WithLogger(context.Background(), d.log())
			},
		},
	}, nil
}

// Addr is the bound listener address, e.g. after Listen(":0", ...).
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve blocks, accepting connections until Shutdown is called.
func (s *Server) Serve() error {
	if err := s.httpServer.Serve(s.listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dispatcher server exited: %w", err)
	}
	return nil
}

// Shutdown closes the listener so no new connections are accepted, then
// waits for in-flight requests to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
