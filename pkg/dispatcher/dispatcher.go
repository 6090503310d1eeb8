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

// Package dispatcher implements component D: a single HTTP listener per
// port that routes each inbound request to zero or one registered
// consumer, decodes the CloudEvent, hands it to the receiver, and shapes
// the reply.
package dispatcher

import (
	"io"
	"net/http"

	"github.com/rogpeppe/fastuuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"knative.dev/camel-transport/pkg/ceversion"
	"knative.dev/camel-transport/pkg/consumer"
	"knative.dev/camel-transport/pkg/transport"
	"knative.dev/pkg/logging"
)

// state names the dispatch state machine: Received, Matched, Decoded,
// Delivered, Responded.
type state int

const (
	stateReceived state = iota
	stateMatched
	stateDecoded
	stateDelivered
	stateResponded
)

// Dispatcher is an http.Handler implementing the routing algorithm of spec
// §4.4.
type Dispatcher struct {
	Registry   *consumer.Registry
	SpecVersion string

	logger    *zap.SugaredLogger
	corrIDs   *fastuuid.Generator
	inFlight  atomic.Int64
}

// New builds a Dispatcher bound to registry, decoding/encoding CloudEvents
// at specVersion (one of "0.1", "0.2", "0.3").
func New(registry *consumer.Registry, specVersion string, logger *zap.SugaredLogger) (*Dispatcher, error) {
	gen, err := fastuuid.NewGenerator()
	if err != nil {
		return nil, transport.ConfigError("could not initialise correlation id generator: %v", err)
	}
	return &Dispatcher{
		Registry:    registry,
		SpecVersion: specVersion,
		logger:      logger,
		corrIDs:     gen,
	}, nil
}

func (d *Dispatcher) log() *zap.SugaredLogger {
	if d.logger == nil {
		return zap.NewNop().Sugar()
	}
	return d.logger
}

// ServeHTTP implements the full routing algorithm: method gate, path and
// filter match, decode, deliver, reply shaping.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.inFlight.Inc()
	defer d.inFlight.Dec()

	corrID := d.corrIDs.Next()
	st := stateReceived
	// logging.FromContext returns a usable default logger even when the
	// request context carries none (e.g. in tests driving ServeHTTP
	// directly rather than through Server.Listen's BaseContext).
	log := logging.FromContext(r.Context()).With("correlationId", corrID, "path", r.URL.Path)

	// Step 1: method gate.
	if r.Method != http.MethodPost {
		log.Debugw("rejecting non-POST request", "method", r.Method)
		w.WriteHeader(http.StatusNotFound)
		return
	}

	// Steps 2-3: path + filter match. Evaluated against the raw request
	// headers, strictly before decode.
	c := d.Registry.Lookup(r.URL.Path, r.Header)
	if c == nil {
		log.Debug("no consumer matched")
		w.WriteHeader(http.StatusNotFound)
		return
	}
	st = stateMatched

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Warnw("failed to read request body", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// Step 4: decode.
	msg, err := ceversion.Decode(d.SpecVersion, r.Header, body, r.Header.Get("Content-Type"))
	if err != nil {
		log.Warnw("decode failed", zap.Error(err), "state", st)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	st = stateDecoded

	// Step 5: deliver, synchronously. A Detach racing with this lookup
	// cannot affect us: we are holding our own *Consumer reference, not a
	// registry handle, so a concurrent detach cannot affect it.
	reply, err := c.Receiver.Receive(r.Context(), msg)
	if err != nil {
		log.Errorw("receiver failed", zap.Error(err), "state", st)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(err.Error()))
		return
	}
	st = stateDelivered

	d.writeReply(w, c, reply)
	st = stateResponded
	_ = st
}

// writeReply shapes the HTTP response from the receiver's reply.
func (d *Dispatcher) writeReply(w http.ResponseWriter, c *consumer.Consumer, reply *transport.Reply) {
	if reply == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if c.Service.ReplyWithCloudEvent() {
		httpHeaders, contentType, err := ceversion.Encode(d.SpecVersion, reply.Headers, ceversion.EncodeDefaults{
			Kind: string(c.Service.Kind),
			Name: c.Service.Name,
			EventType: c.Service.Metadata["knative.event.type"],
		})
		if err == nil {
			for k, vals := range httpHeaders {
				for _, v := range vals {
					w.Header().Add(k, v)
				}
			}
			if contentType != "" {
				w.Header().Set("Content-Type", contentType)
			}
		}
	} else if reply.Headers != nil {
		if ct, ok := reply.Headers.GetString("Content-Type"); ok {
			w.Header().Set("Content-Type", ct)
		} else if dct := c.Service.Metadata["content.type"]; dct != "" {
			w.Header().Set("Content-Type", dct)
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(reply.Body)
}

// InFlight reports the number of requests currently being dispatched.
func (d *Dispatcher) InFlight() int64 {
	return d.inFlight.Load()
}
