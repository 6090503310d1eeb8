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

// Package ceversion implements component M, the CloudEvents Attribute
// Mapper: static per-spec-version tables translating between abstract
// attribute names, wire HTTP header names and internal routing-message
// header names, plus the Decode/Encode pure functions built on top of them.
//
// This is deliberately hand-rolled against the three legacy spec versions
// (0.1, 0.2, 0.3) rather than delegated to github.com/cloudevents/sdk-go/v2,
// whose vendored codec in this dependency graph targets CloudEvents 1.0
// wire semantics exclusively. Reconciling the pre-1.0 header/JSON-key
// differences is the reason this component exists.
package ceversion

import (
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// Attribute is an abstract CloudEvents attribute name, version-independent.
type Attribute string

const (
	Version         Attribute = "version"
	Type            Attribute = "type"
	ID              Attribute = "id"
	Source          Attribute = "source"
	Time            Attribute = "time"
	DataContentType Attribute = "datacontenttype"
	Subject         Attribute = "subject"
)

// Names is the (http, internal) pair an Attribute maps to for one spec
// version.
type Names struct {
	HTTP     string
	Internal string
}

// Table is a complete per-version attribute mapping.
type Table struct {
	Version string
	Names   map[Attribute]Names
	// StructuredKeys maps Attribute to the JSON key used in structured
	// content mode for this version.
	StructuredKeys map[Attribute]string
}

// StructuredContentType is the MIME type identifying structured content
// mode. Reuses the SDK's own constant rather than
// hardcoding the literal string a second time.
const StructuredContentType = cloudevents.ApplicationCloudEventsJSON

var tables = map[string]Table{
	"0.1": {
		Version: "0.1",
		Names: map[Attribute]Names{
			Version:         {HTTP: "CE-CloudEventsVersion", Internal: "CamelCloudEventsVersion"},
			Type:            {HTTP: "CE-EventType", Internal: "CamelCloudEventType"},
			ID:              {HTTP: "CE-EventID", Internal: "CamelCloudEventId"},
			Source:          {HTTP: "CE-Source", Internal: "CamelCloudEventSource"},
			Time:            {HTTP: "CE-EventTime", Internal: "CamelCloudEventTime"},
			DataContentType: {HTTP: "Content-Type", Internal: "CamelCloudEventContentType"},
			Subject:         {HTTP: "CE-Subject", Internal: "CamelCloudEventSubject"},
		},
		StructuredKeys: map[Attribute]string{
			Version:         "cloudEventsVersion",
			Type:            "eventType",
			ID:              "eventID",
			Source:          "source",
			Time:            "eventTime",
			DataContentType: "contentType",
			Subject:         "subject",
		},
	},
	"0.2": {
		Version: "0.2",
		Names: map[Attribute]Names{
			Version:         {HTTP: "ce-specversion", Internal: "CamelCloudEventsVersion"},
			Type:            {HTTP: "ce-type", Internal: "CamelCloudEventType"},
			ID:              {HTTP: "ce-id", Internal: "CamelCloudEventId"},
			Source:          {HTTP: "ce-source", Internal: "CamelCloudEventSource"},
			Time:            {HTTP: "ce-time", Internal: "CamelCloudEventTime"},
			DataContentType: {HTTP: "Content-Type", Internal: "CamelCloudEventContentType"},
			Subject:         {HTTP: "ce-subject", Internal: "CamelCloudEventSubject"},
		},
		StructuredKeys: map[Attribute]string{
			Version:         "specversion",
			Type:            "type",
			ID:              "id",
			Source:          "source",
			Time:            "time",
			DataContentType: "contenttype",
			Subject:         "subject",
		},
	},
	"0.3": {
		Version: "0.3",
		Names: map[Attribute]Names{
			Version:         {HTTP: "ce-specversion", Internal: "CamelCloudEventsVersion"},
			Type:            {HTTP: "ce-type", Internal: "CamelCloudEventType"},
			ID:              {HTTP: "ce-id", Internal: "CamelCloudEventId"},
			Source:          {HTTP: "ce-source", Internal: "CamelCloudEventSource"},
			Time:            {HTTP: "ce-time", Internal: "CamelCloudEventTime"},
			DataContentType: {HTTP: "Content-Type", Internal: "CamelCloudEventContentType"},
			Subject:         {HTTP: "ce-subject", Internal: "CamelCloudEventSubject"},
		},
		StructuredKeys: map[Attribute]string{
			Version:         "specversion",
			Type:            "type",
			ID:              "id",
			Source:          "source",
			Time:            "time",
			DataContentType: "datacontenttype",
			Subject:         "subject",
		},
	},
}

// orderedAttributes fixes iteration order for deterministic output where it
// matters (e.g. tests comparing encoded header sets).
var orderedAttributes = []Attribute{Version, Type, ID, Source, Time, DataContentType, Subject}

// TableFor returns the attribute table for spec version v, or false if v is
// not one of "0.1", "0.2", "0.3".
func TableFor(v string) (Table, bool) {
	t, ok := tables[v]
	return t, ok
}

// NamesInOrder returns the table's Names entries for version v in the fixed
// attribute order, for callers (e.g. the producer's override layering) that
// need to walk every attribute's (http, internal) name pair.
func NamesInOrder(v string) []Names {
	t, ok := tables[v]
	if !ok {
		return nil
	}
	out := make([]Names, 0, len(orderedAttributes))
	for _, attr := range orderedAttributes {
		out = append(out, t.Names[attr])
	}
	return out
}

// NewID returns a fresh unique string suitable for the synthesised `id`
// attribute.
func NewID() string {
	return uuid.NewString()
}

// NewTime returns an ISO-8601 timestamp with offset for the current
// instant, the default for a missing `time` attribute.
func NewTime() string {
	return time.Now().Format(time.RFC3339Nano)
}

// CanonicalSource builds the default `source` attribute for an endpoint:
// knative://<kind>/<name>, observable and stable across implementations.
func CanonicalSource(kind, name string) string {
	return "knative://" + kind + "/" + name
}
