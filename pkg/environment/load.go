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

package environment

import (
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"sigs.k8s.io/yaml"

	"knative.dev/camel-transport/pkg/transport"
)

// document is the on-disk shape of an Environment: a configuration document
// whose structure is independent of the wire protocol it describes. Both
// YAML and TOML loaders unmarshal into this same struct.
type document struct {
	Services []serviceDoc `json:"services" yaml:"services" toml:"services"`
}

type serviceDoc struct {
	Name     string            `json:"name" yaml:"name" toml:"name"`
	Kind     string            `json:"kind" yaml:"kind" toml:"kind"`
	Role     string            `json:"role" yaml:"role" toml:"role"`
	Host     string            `json:"host" yaml:"host" toml:"host"`
	Port     int               `json:"port" yaml:"port" toml:"port"`
	Metadata map[string]string `json:"metadata" yaml:"metadata" toml:"metadata"`
}

func (d document) toServiceDefinitions() []ServiceDefinition {
	out := make([]ServiceDefinition, 0, len(d.Services))
	for _, sd := range d.Services {
		port := sd.Port
		if port == 0 {
			port = NoPort
		}
		out = append(out, ServiceDefinition{
			Name:     sd.Name,
			Kind:     Kind(sd.Kind),
			Role:     Role(sd.Role),
			Host:     sd.Host,
			Port:     port,
			Metadata: sd.Metadata,
		})
	}
	return out
}

// LoadYAML parses a YAML (or JSON, which is valid YAML) Environment
// document, the primary loader.
func LoadYAML(data []byte) (*Environment, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, transport.ConfigError("invalid environment document: %v", err)
	}
	return New(doc.toServiceDefinitions()), nil
}

// LoadTOML parses a TOML Environment document, the secondary loader.
func LoadTOML(data []byte) (*Environment, error) {
	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, transport.ConfigError("invalid environment document: %v", err)
	}
	return New(doc.toServiceDefinitions()), nil
}

// Load dispatches to LoadYAML or LoadTOML based on the file extension of
// path, so a single entrypoint serves both supported document formats.
func Load(path string, data []byte) (*Environment, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return LoadTOML(data)
	default:
		return LoadYAML(data)
	}
}
