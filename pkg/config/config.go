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

// Package config holds the process-wide component configuration layer
// ("process-wide ce-override map") plus the handful of process-bootstrap
// knobs (listener port, environment document path) that every adapter
// built on this core needs.
package config

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	homedir "github.com/mitchellh/go-homedir"
)

// Spec is the environment-variable-driven process configuration, loaded
// once at bootstrap with envconfig the way Knative's own adapters do.
type Spec struct {
	Port               int    `envconfig:"PORT" default:"8080"`
	CEVersion          string `envconfig:"CE_SPEC_VERSION" default:"0.3"`
	EnvironmentPath    string `envconfig:"ENVIRONMENT_PATH"`
	CEOverridesRaw     string `envconfig:"CE_OVERRIDE"` // "ce-type=A,ce-source=B"
}

// Load reads Spec from the process environment.
func Load() (Spec, error) {
	var s Spec
	if err := envconfig.Process("CAMEL_KNATIVE", &s); err != nil {
		return Spec{}, err
	}
	return s, nil
}

// DefaultEnvironmentPath resolves ~/.camel-knative/environment.yaml when
// ENVIRONMENT_PATH is unset, mirroring how CLI tooling in the pack
// discovers a default config file under the user's home directory.
func (s Spec) DefaultEnvironmentPath() (string, error) {
	if s.EnvironmentPath != "" {
		return s.EnvironmentPath, nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".camel-knative", "environment.yaml"), nil
}

// CEOverrides parses the "key=value,key=value" CE_OVERRIDE env var into the
// process-wide override map the producer's header synthesis layers in.
func (s Spec) CEOverrides() map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(s.CEOverridesRaw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		out[kv[0]] = kv[1]
	}
	return out
}

// Overrides is the mutable, atomically-replaceable process-wide ce-override
// map; last-writer-wins is acceptable.
type Overrides struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewOverrides constructs an Overrides seeded with the initial map.
func NewOverrides(initial map[string]string) *Overrides {
	return &Overrides{m: cloneMap(initial)}
}

// Get returns a snapshot of the current override map.
func (o *Overrides) Get() map[string]string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return cloneMap(o.m)
}

// Replace atomically swaps in a new override map.
func (o *Overrides) Replace(next map[string]string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.m = cloneMap(next)
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
