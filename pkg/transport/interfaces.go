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

package transport

import "context"

// Reply is what a Receiver hands back to the dispatcher after processing an
// inbound Message. A nil Reply means "no body", rendered as a 204.
type Reply struct {
	Headers Headers
	Body    []byte
}

// Receiver is the thin interface this core requires of the hosting routing
// engine for inbound delivery. The dispatcher awaits Receive synchronously
// per request; there is no per-consumer queueing in the core.
type Receiver interface {
	Receive(ctx context.Context, msg *Message) (*Reply, error)
}

// ReceiverFunc adapts a plain function to a Receiver.
type ReceiverFunc func(ctx context.Context, msg *Message) (*Reply, error)

func (f ReceiverFunc) Receive(ctx context.Context, msg *Message) (*Reply, error) {
	return f(ctx, msg)
}

// Producer is the thin interface this core requires of the hosting routing
// engine for outbound submission: hand it a Message and a resolved
// destination name, get back dispatch info or an error built from this
// package's error Kinds.
type Producer interface {
	Send(ctx context.Context, kind, name string, msg *Message) (*DispatchInfo, error)
}

// DispatchInfo reports the outcome of an outbound dispatch, independent of
// how the HTTP round trip itself was performed.
type DispatchInfo struct {
	StatusCode   int
	ResponseBody []byte
	ResponseURL  string
}
