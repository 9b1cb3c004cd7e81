// Copyright 2024 Mmate Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package mfp wires the envelope model, codec, stores and transport into a
// single Runtime built from a config.Config.
package mfp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/glimte/mmate-mfp/codec"
	"github.com/glimte/mmate-mfp/config"
	"github.com/glimte/mmate-mfp/envelope"
	"github.com/glimte/mmate-mfp/internal/reliability"
	"github.com/glimte/mmate-mfp/metrics"
	"github.com/glimte/mmate-mfp/serialization"
	"github.com/glimte/mmate-mfp/store"
	"github.com/glimte/mmate-mfp/transports/rabbitmq"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// dialTimeout bounds the store connection made by NewRuntime
const dialTimeout = 5 * time.Second

// Runtime owns the collaborators every envelope operation needs
type Runtime struct {
	config   *config.Config
	logger   *slog.Logger
	registry *serialization.DefaultTypeRegistry
	factory  *envelope.Factory
	codec    *codec.Codec
	version  codec.ProtocolVersion
	store    store.Store
	metrics  metrics.Collector
	closers  []func() error
}

// RuntimeOption configures a Runtime
type RuntimeOption func(*runtimeConfig)

type runtimeConfig struct {
	config     *config.Config
	logger     *slog.Logger
	store      store.Store
	metrics    metrics.Collector
	registerer prometheus.Registerer
	types      []interface{}
	aliases    [][2]string
}

// WithConfig sets the configuration. Defaults to config.Default().
func WithConfig(cfg *config.Config) RuntimeOption {
	return func(c *runtimeConfig) {
		c.config = cfg
	}
}

// WithLogger sets the logger. Defaults to one built from the logging config.
func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(c *runtimeConfig) {
		c.logger = logger
	}
}

// WithStore sets the store instead of building one from the store config
func WithStore(s store.Store) RuntimeOption {
	return func(c *runtimeConfig) {
		c.store = s
	}
}

// WithMetrics sets the metrics collector instead of building one from the
// metrics config
func WithMetrics(collector metrics.Collector) RuntimeOption {
	return func(c *runtimeConfig) {
		c.metrics = collector
	}
}

// WithRegisterer sets the Prometheus registerer used when metrics are
// enabled. Defaults to prometheus.DefaultRegisterer.
func WithRegisterer(reg prometheus.Registerer) RuntimeOption {
	return func(c *runtimeConfig) {
		c.registerer = reg
	}
}

// WithPayloadTypes registers object payload types so object bodies
// materialize into them
func WithPayloadTypes(payloads ...interface{}) RuntimeOption {
	return func(c *runtimeConfig) {
		c.types = append(c.types, payloads...)
	}
}

// WithPayloadAlias lets object bodies recorded under alias materialize as
// the payload type registered under typeName
func WithPayloadAlias(alias, typeName string) RuntimeOption {
	return func(c *runtimeConfig) {
		c.aliases = append(c.aliases, [2]string{alias, typeName})
	}
}

// NewRuntime builds a Runtime
func NewRuntime(options ...RuntimeOption) (*Runtime, error) {
	cfg := &runtimeConfig{}
	for _, opt := range options {
		opt(cfg)
	}
	if cfg.config == nil {
		cfg.config = config.Default()
	}
	if err := cfg.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	r := &Runtime{
		config:   cfg.config,
		logger:   cfg.logger,
		registry: serialization.NewTypeRegistry(),
	}

	if r.logger == nil {
		logger, err := cfg.config.Logging.NewLogger(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		r.logger = logger
	}

	for _, payload := range cfg.types {
		if err := r.registry.RegisterType(payload); err != nil {
			return nil, fmt.Errorf("failed to register payload type: %w", err)
		}
	}
	for _, a := range cfg.aliases {
		if err := r.registry.Alias(a[0], a[1]); err != nil {
			return nil, fmt.Errorf("failed to register payload alias %s: %w", a[0], err)
		}
	}

	collector, err := newCollector(cfg)
	if err != nil {
		return nil, err
	}
	r.metrics = collector

	version, err := cfg.config.Version()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve protocol version: %w", err)
	}
	r.version = version

	r.factory = envelope.NewFactory(envelope.WithObjectSerializer(
		serialization.NewJSONObjectSerializer(serialization.WithTypeRegistry(r.registry)),
	))
	r.codec = codec.New(r.factory,
		codec.WithLogger(r.logger),
		codec.WithMetrics(r.metrics),
		codec.WithMaxSliceBytes(cfg.config.Codec.MaxSliceBytes),
	)

	r.store = cfg.store
	if r.store == nil {
		if err := r.openStore(); err != nil {
			return nil, err
		}
	}

	r.logger.Info("runtime ready",
		"protocolVersion", r.version.String(),
		"store", cfg.config.Store.Backend)

	return r, nil
}

func newCollector(cfg *runtimeConfig) (metrics.Collector, error) {
	if cfg.metrics != nil {
		return cfg.metrics, nil
	}
	if !cfg.config.Metrics.Enabled {
		return metrics.NewSimpleCollector(), nil
	}

	reg := cfg.registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collector, err := metrics.NewPrometheusCollector(reg, cfg.config.Metrics.Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics collector: %w", err)
	}
	return collector, nil
}

func (r *Runtime) openStore() error {
	sc := r.config.Store
	switch sc.Backend {
	case config.BackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()

		s, err := store.DialRedis(ctx, sc.Redis.Addr, sc.Redis.DB,
			store.WithKeyPrefix(sc.Redis.Prefix),
			store.WithTTL(sc.Redis.TTL),
			store.WithRedisLogger(r.logger),
		)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		r.store = s
		r.closers = append(r.closers, s.Close)
	default:
		r.store = store.NewMemoryStore(
			store.WithMaxEntries(sc.MaxEntries),
			store.WithMemoryLogger(r.logger),
		)
	}
	return nil
}

// Config returns the runtime configuration
func (r *Runtime) Config() *config.Config {
	return r.config
}

// Logger returns the runtime logger
func (r *Runtime) Logger() *slog.Logger {
	return r.logger
}

// Factory returns the envelope factory
func (r *Runtime) Factory() *envelope.Factory {
	return r.factory
}

// Codec returns the codec
func (r *Runtime) Codec() *codec.Codec {
	return r.codec
}

// Version returns the protocol version used for transport encoding
func (r *Runtime) Version() codec.ProtocolVersion {
	return r.version
}

// Store returns the store holding flattened messages
func (r *Runtime) Store() store.Store {
	return r.store
}

// Metrics returns the metrics collector
func (r *Runtime) Metrics() metrics.Collector {
	return r.metrics
}

// Persist flattens env and stores it under its message id. The key is
// returned for use with Recover.
func (r *Runtime) Persist(ctx context.Context, env *envelope.Envelope) (key string, err error) {
	start := time.Now()
	defer func() { metrics.Observe(r.metrics, metrics.OpPersist, start, err) }()

	slices, err := r.codec.EncodeForPersistence(env)
	if err != nil {
		return "", err
	}

	key = env.GetMessageID().String()
	if err := r.store.Put(ctx, key, slices); err != nil {
		return "", fmt.Errorf("failed to store message %s: %w", key, err)
	}

	r.logger.Debug("persisted message",
		"messageId", key,
		"specialization", env.Specialization().String(),
		"slices", len(slices))
	return key, nil
}

// Recover loads and unflattens the message stored under id
func (r *Runtime) Recover(ctx context.Context, id uuid.UUID) (env *envelope.Envelope, err error) {
	start := time.Now()
	defer func() { metrics.Observe(r.metrics, metrics.OpRecover, start, err) }()

	key := id.String()
	slices, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load message %s: %w", key, err)
	}

	env, err = r.codec.Unflatten(slices)
	if err != nil {
		return nil, err
	}
	return env, nil
}

// RecoverAll unflattens every stored message in store order. Messages that
// fail to unflatten are logged and skipped.
func (r *Runtime) RecoverAll(ctx context.Context) ([]*envelope.Envelope, error) {
	keys, err := r.store.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	recovered := make([]*envelope.Envelope, 0, len(keys))
	for _, key := range keys {
		id, err := uuid.Parse(key)
		if err != nil {
			r.logger.Warn("skipping stored message with foreign key", "key", key)
			continue
		}
		env, err := r.Recover(ctx, id)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			r.logger.Error("failed to recover message", "messageId", key, "error", err)
			continue
		}
		recovered = append(recovered, env)
	}
	return recovered, nil
}

// Forget removes the message stored under id
func (r *Runtime) Forget(ctx context.Context, id uuid.UUID) error {
	return r.store.Delete(ctx, id.String())
}

// Topology returns the broker topology described by the transport config
func (r *Runtime) Topology() rabbitmq.Topology {
	t := r.config.Transport
	return rabbitmq.Topology{
		Exchange:          t.Exchange,
		Destination:       t.Destination,
		ExceptionExchange: t.ExceptionExchange,
		ExceptionQueue:    t.ExceptionDestination,
	}
}

// NewSender creates a sender publishing to the configured exchange at the
// runtime's protocol version
func (r *Runtime) NewSender(p rabbitmq.Publisher, opts ...rabbitmq.SenderOption) *rabbitmq.Sender {
	base := []rabbitmq.SenderOption{
		rabbitmq.WithExchange(r.config.Transport.Exchange),
		rabbitmq.WithProtocolVersion(r.version),
		rabbitmq.WithMandatory(r.config.Transport.Mandatory),
		rabbitmq.WithSenderLogger(r.logger),
		rabbitmq.WithSenderMetrics(r.metrics),
	}
	return rabbitmq.NewSender(p, r.codec, append(base, opts...)...)
}

// NewReceiver creates a receiver for the configured destination. Failed
// messages are rerouted to the exception destination through p.
func (r *Runtime) NewReceiver(p rabbitmq.Publisher) *rabbitmq.Receiver {
	router := reliability.NewExceptionRouter(r.config.Transport.ExceptionDestination,
		reliability.WithRouterLogger(r.logger),
		reliability.WithRouterMetrics(r.metrics),
	)
	exceptions := r.NewSender(p, rabbitmq.WithExchange(r.config.Transport.ExceptionExchange))

	return rabbitmq.NewReceiver(r.codec, r.config.Transport.Destination,
		rabbitmq.WithExceptionRouting(router, exceptions),
		rabbitmq.WithReceiverLogger(r.logger),
		rabbitmq.WithReceiverMetrics(r.metrics),
	)
}

// Close releases the store connection
func (r *Runtime) Close() error {
	var errs []error
	for _, closer := range r.closers {
		if err := closer(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
