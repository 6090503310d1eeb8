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
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Handle identifies one attached Consumer for later Detach.
type Handle uint64

type entry struct {
	handle   Handle
	consumer *Consumer
}

// Registry holds active consumer registrations. It uses a copy-on-write
// snapshot: readers (the dispatcher's Lookup) take an atomic, lock-free
// pointer load; writers (Attach/Detach) build a new slice and publish it
// atomically, so a concurrent Lookup never observes a partially-attached
// consumer and a detach never races a matched-but-not-yet-delivered
// request into a crash.
type Registry struct {
	snapshot atomic.Pointer[[]entry]
	mu       sync.Mutex // serialises writers only; readers never take it
	nextID   uint64

	logger *zap.SugaredLogger
}

// NewRegistry constructs an empty Registry.
func NewRegistry(logger *zap.SugaredLogger) *Registry {
	r := &Registry{logger: logger}
	empty := []entry{}
	r.snapshot.Store(&empty)
	return r
}

// Attach indexes c under its effective path and returns a handle for later
// Detach.
func (r *Registry) Attach(c *Consumer) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	h := Handle(r.nextID)

	old := *r.snapshot.Load()
	next := make([]entry, len(old), len(old)+1)
	copy(next, old)
	next = append(next, entry{handle: h, consumer: c})
	r.snapshot.Store(&next)

	if r.logger != nil {
		r.logger.Debugw("consumer attached", "path", c.EffectivePath(), "handle", h)
	}
	return h
}

// Detach removes the consumer registered under h, if any. In-flight
// dispatches already delivered to that consumer's receiver are holding
// their own *Consumer reference from a prior Lookup and are unaffected;
// they are guaranteed to run to completion.
func (r *Registry) Detach(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := *r.snapshot.Load()
	next := make([]entry, 0, len(old))
	for _, e := range old {
		if e.handle != h {
			next = append(next, e)
		}
	}
	r.snapshot.Store(&next)

	if r.logger != nil {
		r.logger.Debugw("consumer detached", "handle", h)
	}
}

// Lookup selects, among consumers whose effective path equals the request
// path, the one whose filter matches, preferring the strictly larger
// filter set and breaking ties by declaration order. Returns nil if no
// consumer matches.
func (r *Registry) Lookup(path string, headers http.Header) *Consumer {
	entries := *r.snapshot.Load()

	var best *Consumer
	for _, e := range entries {
		c := e.consumer
		if c.EffectivePath() != path {
			continue
		}
		if !c.Matches(headers) {
			continue
		}
		if best == nil || c.FilterSize() > best.FilterSize() {
			best = c
		}
	}
	return best
}

// Snapshot returns every currently attached Consumer, in declaration order,
// for diagnostics/testing.
func (r *Registry) Snapshot() []*Consumer {
	entries := *r.snapshot.Load()
	out := make([]*Consumer, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.consumer)
	}
	return out
}

// Close detaches every remaining consumer. It never itself fails; it
// returns an error purely so the command's shutdown path can
// multierr.Append it alongside the listener's own shutdown error without a
// type assertion.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	empty := []entry{}
	r.snapshot.Store(&empty)
	return nil
}
