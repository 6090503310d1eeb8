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

// Command camel-knative-transport boots the CloudEvents HTTP transport
// core as a standalone process: it loads the Environment catalogue, wires
// a Consumer Registry pre-populated with the declared source consumers
// (each behind a no-op placeholder receiver), and serves the Inbound
// Dispatcher until terminated.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"knative.dev/camel-transport/pkg/config"
	"knative.dev/camel-transport/pkg/consumer"
	"knative.dev/camel-transport/pkg/dispatcher"
	"knative.dev/camel-transport/pkg/endpointuri"
	"knative.dev/camel-transport/pkg/environment"
	"knative.dev/camel-transport/pkg/producer"
	"knative.dev/camel-transport/pkg/transport"
)

// placeholderReceiver stands in for the hosting routing engine's own
// receiver, which replaces these entries via the registry's exported
// Attach/Detach API once it has wired its own message handling.
var placeholderReceiver = transport.ReceiverFunc(func(ctx context.Context, msg *transport.Message) (*transport.Reply, error) {
	return nil, nil
})

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck
	sugar := logger.Sugar()

	if err := run(sugar); err != nil {
		sugar.Fatalw("camel-knative-transport exited with error", zap.Error(err))
	}
}

func run(logger *zap.SugaredLogger) error {
	spec, err := config.Load()
	if err != nil {
		return fmt.Errorf("could not load process configuration: %w", err)
	}

	envPath, err := spec.DefaultEnvironmentPath()
	if err != nil {
		return fmt.Errorf("could not resolve environment document path: %w", err)
	}

	env, err := loadEnvironment(envPath)
	if err != nil {
		return fmt.Errorf("could not load environment document %s: %w", envPath, err)
	}

	registry := consumer.NewRegistry(logger)
	if err := attachDeclaredConsumers(registry, env, spec.CEVersion, logger); err != nil {
		return fmt.Errorf("could not attach declared consumers: %w", err)
	}

	disp, err := dispatcher.New(registry, spec.CEVersion, logger)
	if err != nil {
		return fmt.Errorf("could not build dispatcher: %w", err)
	}

	// The producer is constructed here so its client cache is shared across
	// the process lifetime; the hosting routing engine reaches it through
	// the transport.Producer interface, not through this command.
	overrides := config.NewOverrides(spec.CEOverrides())
	prod, err := producer.New(env, spec.CEVersion, overrides, logger)
	if err != nil {
		return fmt.Errorf("could not build producer: %w", err)
	}
	logger.Debugw("producer ready", "specVersion", spec.CEVersion)

	srv, err := dispatcher.Listen(net.JoinHostPort("", strconv.Itoa(spec.Port)), disp)
	if err != nil {
		return fmt.Errorf("could not bind dispatcher listener: %w", err)
	}

	logger.Infow("listening", "addr", srv.Addr())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down")
	shutdownErr := srv.Shutdown(shutdownCtx)
	prod.CloseIdleConnections()
	return multierr.Append(shutdownErr, registry.Close())
}

// loadEnvironment reads and parses the Environment document at path, or
// returns an empty Environment if path does not exist - a freshly started
// process with no declared consumers is a legal, if inert, state.
func loadEnvironment(path string) (*environment.Environment, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return environment.New(nil), nil
	}
	if err != nil {
		return nil, err
	}
	return environment.Load(path, data)
}

// attachDeclaredConsumers registers the declared source ServiceDefinitions
// with a no-op receiver placeholder, so the dispatcher's routing surface is
// observable even before the hosting routing engine swaps in its own
// receivers via the registry's exported API. Plain endpoint/channel
// sources are attached directly; kind=event sources are attached through
// consumer.AttachEndpoint so the knative:event/<type> fan-out equivalence
// governs them the same way it would a routing-engine-issued endpoint URI.
// Event sources that declare no knative.event.type are not attached here.
func attachDeclaredConsumers(registry *consumer.Registry, env *environment.Environment, specVersion string, logger *zap.SugaredLogger) error {
	seenEventTypes := map[string]bool{}
	for _, svc := range env.Services() {
		if svc.Role != environment.RoleSource {
			continue
		}
		if svc.Kind == environment.KindEvent {
			eventType := svc.Metadata[environment.MetaEventType]
			if eventType == "" || seenEventTypes[eventType] {
				continue
			}
			seenEventTypes[eventType] = true
			attached, err := consumer.AttachEndpoint(registry, env, specVersion, endpointuri.Endpoint{
				Kind: string(environment.KindEvent),
				Name: eventType,
			}, placeholderReceiver)
			if err != nil {
				return fmt.Errorf("could not attach event-kind consumers for type %s: %w", eventType, err)
			}
			for _, c := range attached {
				logger.Debugw("attached declared event consumer", "eventType", eventType, "path", c.EffectivePath())
			}
			continue
		}

		c, err := consumer.New(svc, "", placeholderReceiver)
		if err != nil {
			return fmt.Errorf("could not compile consumer for %s/%s: %w", svc.Kind, svc.Name, err)
		}
		registry.Attach(c)
		logger.Debugw("attached declared consumer", "kind", svc.Kind, "name", svc.Name, "path", c.EffectivePath())
	}
	return nil
}
