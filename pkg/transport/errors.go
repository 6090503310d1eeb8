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

// Package transport holds the types and error kinds shared by every
// component of the CloudEvents HTTP transport core: the attribute mapper,
// the environment catalogue, the consumer registry, the dispatcher and the
// producer. None of these types are specific to any one component.
package transport

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies one of the abstract error categories from the
// specification's error handling design. Callers switch on Kind rather
// than on Go error types so that wrapping (via fmt.Errorf("%w", ...) or
// github.com/pkg/errors) never hides the category from a caller that needs
// to map it to an HTTP status code or a retry decision upstream.
type Kind int

const (
	// KindInternal covers anything that doesn't fit the other kinds.
	KindInternal Kind = iota
	// KindConfig is raised for malformed or incomplete configuration,
	// e.g. an unsupported CloudEvents spec version or a sink with no host.
	KindConfig
	// KindDecode is raised when an inbound request cannot be parsed as a
	// CloudEvent in the active content mode.
	KindDecode
	// KindIllegalArgument is raised for caller misuse, e.g. a nil outbound
	// body.
	KindIllegalArgument
	// KindHTTPOperationFailed wraps a non-2xx response or a transport-level
	// failure from an outbound dispatch.
	KindHTTPOperationFailed
	// KindCancelled wraps a context cancellation observed mid-dispatch.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "ConfigError"
	case KindDecode:
		return "DecodeError"
	case KindIllegalArgument:
		return "IllegalArgument"
	case KindHTTPOperationFailed:
		return "HttpOperationFailed"
	case KindCancelled:
		return "Cancelled"
	default:
		return "InternalError"
	}
}

// Error is the concrete error type carrying one abstract Kind plus whatever
// structured context that kind requires (URL/status for HttpOperationFailed,
// nothing extra for the others).
type Error struct {
	Kind    Kind
	Message string
	URL     string
	Status  int
	raw     bool
	cause   error
}

func (e *Error) Error() string {
	if e.raw {
		return e.Message
	}
	if e.Kind == KindHTTPOperationFailed && e.URL != "" {
		return fmt.Sprintf("HTTP operation failed because %s (url=%s, status=%d)", e.Message, e.URL, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// ConfigError builds a KindConfig error.
func ConfigError(format string, args ...interface{}) error {
	return &Error{Kind: KindConfig, Message: fmt.Sprintf(format, args...)}
}

// DecodeError builds a KindDecode error, wrapping the underlying decode
// cause (e.g. malformed JSON) so callers can still reach it with
// errors.Unwrap or errors.As.
func DecodeError(cause error, format string, args ...interface{}) error {
	return &Error{Kind: KindDecode, Message: fmt.Sprintf(format, args...), cause: errors.WithStack(cause)}
}

// IllegalArgument builds a KindIllegalArgument error.
func IllegalArgument(format string, args ...interface{}) error {
	return &Error{Kind: KindIllegalArgument, Message: fmt.Sprintf(format, args...)}
}

// HTTPOperationFailed builds a KindHTTPOperationFailed error carrying the
// target URL and status of a failed outbound dispatch.
func HTTPOperationFailed(cause error, url string, status int, message string) error {
	return &Error{
		Kind:    KindHTTPOperationFailed,
		Message: message,
		URL:     url,
		Status:  status,
		cause:   errors.WithMessage(cause, message),
	}
}

// HostNotDefined builds the KindConfig error raised when a sink resolves to
// a ServiceDefinition with no host. Its message matches the real Camel
// Knative producer's own wording ("HTTP operation failed because host is
// not defined") even though the abstract Kind stays KindConfig: callers
// that pattern-match the error text and callers that switch on Kind both
// keep working.
func HostNotDefined() error {
	return &Error{Kind: KindConfig, Message: "HTTP operation failed because host is not defined", raw: true}
}

// Cancelled builds a KindCancelled error wrapping the context cancellation
// cause observed while an outbound call was in flight.
func Cancelled(cause error, url string) error {
	return &Error{Kind: KindCancelled, Message: "request cancelled", URL: url, cause: cause}
}

// KindOf reports the abstract Kind of err, or KindInternal if err was not
// constructed by this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
