package mfp

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/glimte/mmate-mfp/codec"
	"github.com/glimte/mmate-mfp/config"
	"github.com/glimte/mmate-mfp/contracts"
	"github.com/glimte/mmate-mfp/envelope"
	"github.com/glimte/mmate-mfp/metrics"
	"github.com/glimte/mmate-mfp/serialization"
	"github.com/glimte/mmate-mfp/store"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type order struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type capturePublisher struct {
	mu        sync.Mutex
	exchanges []string
	keys      []string
	msgs      []amqp.Publishing
}

func (p *capturePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exchanges = append(p.exchanges, exchange)
	p.keys = append(p.keys, key)
	p.msgs = append(p.msgs, msg)
	return nil
}

type countingAcknowledger struct {
	acks, nacks, rejects int
}

func (a *countingAcknowledger) Ack(uint64, bool) error { a.acks++; return nil }

func (a *countingAcknowledger) Nack(uint64, bool, bool) error { a.nacks++; return nil }

func (a *countingAcknowledger) Reject(uint64, bool) error { a.rejects++; return nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRuntime(t *testing.T, opts ...RuntimeOption) *Runtime {
	t.Helper()
	r, err := NewRuntime(append([]RuntimeOption{WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func newText(t *testing.T, r *Runtime, text string, priority int) *envelope.Envelope {
	t.Helper()
	jms, err := r.Factory().NewJmsMessage(contracts.JmsBodyText)
	require.NoError(t, err)
	tm, err := jms.AsText()
	require.NoError(t, err)
	require.NoError(t, tm.SetText(text))
	require.NoError(t, jms.Envelope().SetPriority(priority))
	return jms.Envelope()
}

func textOf(t *testing.T, env *envelope.Envelope) string {
	t.Helper()
	jms, err := env.AsJmsMessage()
	require.NoError(t, err)
	tm, err := jms.AsText()
	require.NoError(t, err)
	text, ok := tm.GetText()
	require.True(t, ok)
	return text
}

func TestNewRuntime(t *testing.T) {
	t.Run("defaults use memory store and current version", func(t *testing.T) {
		r := newTestRuntime(t)

		assert.IsType(t, &store.MemoryStore{}, r.Store())
		assert.IsType(t, &metrics.SimpleCollector{}, r.Metrics())
		assert.NotNil(t, r.Factory())
		assert.NotNil(t, r.Codec())
		assert.Equal(t, config.Default().Store.Backend, r.Config().Store.Backend)
	})

	t.Run("invalid config is rejected", func(t *testing.T) {
		cfg := config.Default()
		cfg.Store.Backend = "disk"

		_, err := NewRuntime(WithConfig(cfg), WithLogger(quietLogger()))
		assert.ErrorContains(t, err, "invalid config")
	})

	t.Run("pinned protocol version is used", func(t *testing.T) {
		cfg := config.Default()
		cfg.Codec.ProtocolVersion = 1

		r := newTestRuntime(t, WithConfig(cfg))
		assert.EqualValues(t, 1, r.Version())
	})

	t.Run("injected store and metrics win", func(t *testing.T) {
		s := store.NewMemoryStore(store.WithMaxEntries(5))
		m := metrics.NoOp{}

		r := newTestRuntime(t, WithStore(s), WithMetrics(m))
		assert.Same(t, s, r.Store())
		assert.Equal(t, m, r.Metrics())
	})

	t.Run("unregistrable payload type fails", func(t *testing.T) {
		_, err := NewRuntime(WithLogger(quietLogger()), WithPayloadTypes(42))
		assert.ErrorContains(t, err, "payload type")
	})
}

func TestPersistRecover(t *testing.T) {
	ctx := context.Background()

	t.Run("text message with priority survives a restart", func(t *testing.T) {
		s := store.NewMemoryStore()
		first := newTestRuntime(t, WithStore(s))

		env := newText(t, first, "hello", 4)
		key, err := first.Persist(ctx, env)
		require.NoError(t, err)
		assert.Equal(t, env.GetMessageID().String(), key)

		second := newTestRuntime(t, WithStore(s))
		got, err := second.Recover(ctx, env.GetMessageID())
		require.NoError(t, err)

		assert.Equal(t, "hello", textOf(t, got))
		priority, ok := got.GetPriority()
		require.True(t, ok)
		assert.Equal(t, 4, priority)
		assert.Equal(t, contracts.SpecializationJmsText, got.Specialization())
		assert.True(t, env.Equal(got))
	})

	t.Run("object payload materializes into the registered type", func(t *testing.T) {
		r := newTestRuntime(t, WithPayloadTypes(order{}))

		jms, err := r.Factory().NewJmsMessage(contracts.JmsBodyObject)
		require.NoError(t, err)
		om, err := jms.AsObject()
		require.NoError(t, err)
		require.NoError(t, om.SetObject(&order{ID: "o-1", Quantity: 3}))

		_, err = r.Persist(ctx, jms.Envelope())
		require.NoError(t, err)

		got, err := r.Recover(ctx, jms.Envelope().GetMessageID())
		require.NoError(t, err)
		view, err := got.AsJmsMessage()
		require.NoError(t, err)
		obj, err := view.AsObject()
		require.NoError(t, err)
		payload, err := obj.GetObject()
		require.NoError(t, err)
		assert.Equal(t, &order{ID: "o-1", Quantity: 3}, payload)
	})

	t.Run("payload recorded under a former name materializes through an alias", func(t *testing.T) {
		legacy := serialization.NewTypeRegistry()
		require.NoError(t, legacy.Register("legacy.Order", order{}))
		legacyFactory := envelope.NewFactory(envelope.WithObjectSerializer(
			serialization.NewJSONObjectSerializer(serialization.WithTypeRegistry(legacy))))

		jms, err := legacyFactory.NewJmsMessage(contracts.JmsBodyObject)
		require.NoError(t, err)
		om, err := jms.AsObject()
		require.NoError(t, err)
		require.NoError(t, om.SetObject(&order{ID: "o-7", Quantity: 1}))
		slices, err := codec.New(legacyFactory).EncodeForPersistence(jms.Envelope())
		require.NoError(t, err)

		r := newTestRuntime(t,
			WithPayloadTypes(order{}),
			WithPayloadAlias("legacy.Order", "github.com/glimte/mmate-mfp.order"))
		id := jms.Envelope().GetMessageID()
		require.NoError(t, r.Store().Put(ctx, id.String(), slices))

		got, err := r.Recover(ctx, id)
		require.NoError(t, err)
		view, err := got.AsJmsMessage()
		require.NoError(t, err)
		obj, err := view.AsObject()
		require.NoError(t, err)
		payload, err := obj.GetObject()
		require.NoError(t, err)
		assert.Equal(t, &order{ID: "o-7", Quantity: 1}, payload)
	})

	t.Run("missing message", func(t *testing.T) {
		r := newTestRuntime(t)

		_, err := r.Recover(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("corrupt stored slices fail to unflatten", func(t *testing.T) {
		r := newTestRuntime(t)
		id := uuid.New()
		require.NoError(t, r.Store().Put(ctx, id.String(), [][]byte{[]byte("junk")}))

		_, err := r.Recover(ctx, id)
		assert.ErrorIs(t, err, contracts.ErrDecodeFailed)
	})

	t.Run("forget removes the message", func(t *testing.T) {
		r := newTestRuntime(t)
		env := newText(t, r, "bye", 0)
		_, err := r.Persist(ctx, env)
		require.NoError(t, err)

		require.NoError(t, r.Forget(ctx, env.GetMessageID()))
		_, err = r.Recover(ctx, env.GetMessageID())
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("persist and recover are measured", func(t *testing.T) {
		collector := metrics.NewSimpleCollector()
		r := newTestRuntime(t, WithMetrics(collector))

		env := newText(t, r, "hello", 4)
		_, err := r.Persist(ctx, env)
		require.NoError(t, err)
		_, err = r.Recover(ctx, uuid.New())
		require.Error(t, err)

		summary := collector.Summary()
		assert.EqualValues(t, 1, summary.Counts[metrics.OpPersist])
		assert.EqualValues(t, 1, summary.Counts[metrics.OpFlatten])
		assert.EqualValues(t, 1, summary.Counts[metrics.OpRecover])
		assert.EqualValues(t, 1, summary.Errors[metrics.OpRecover]["other"])
	})
}

func TestRecoverAll(t *testing.T) {
	ctx := context.Background()
	r := newTestRuntime(t)

	first := newText(t, r, "one", 1)
	second := newText(t, r, "two", 2)
	for _, env := range []*envelope.Envelope{first, second} {
		_, err := r.Persist(ctx, env)
		require.NoError(t, err)
	}
	require.NoError(t, r.Store().Put(ctx, "not-a-uuid", [][]byte{{1}}))
	require.NoError(t, r.Store().Put(ctx, uuid.NewString(), [][]byte{[]byte("junk")}))

	recovered, err := r.RecoverAll(ctx)
	require.NoError(t, err)
	require.Len(t, recovered, 2)
	assert.Equal(t, "one", textOf(t, recovered[0]))
	assert.Equal(t, "two", textOf(t, recovered[1]))
}

func TestPrometheusMetrics(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Namespace = "mfptest"
	reg := prometheus.NewRegistry()

	r := newTestRuntime(t, WithConfig(cfg), WithRegisterer(reg))
	_, err := r.Persist(context.Background(), newText(t, r, "hello", 4))
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "mfptest_envelope_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "persist and flatten series")

	_, err = NewRuntime(WithConfig(cfg), WithRegisterer(reg), WithLogger(quietLogger()))
	assert.ErrorContains(t, err, "metrics")
}

func TestSendAndReceive(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Transport.Destination = "orders"
	r := newTestRuntime(t, WithConfig(cfg))

	topology := r.Topology()
	assert.Equal(t, "mfp", topology.Exchange)
	assert.Equal(t, "orders", topology.Destination)
	assert.Equal(t, "_SYSTEM.Exception.Destination", topology.ExceptionQueue)

	pub := &capturePublisher{}
	require.NoError(t, r.NewSender(pub).Send(ctx, newText(t, r, "hello", 4), "orders"))
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "mfp", pub.exchanges[0])

	deliver := func(msg amqp.Publishing, ack amqp.Acknowledger) amqp.Delivery {
		return amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, MessageId: msg.MessageId, Headers: msg.Headers, Body: msg.Body}
	}

	t.Run("handled message is acked", func(t *testing.T) {
		ack := &countingAcknowledger{}
		var got string
		err := r.NewReceiver(pub).Handle(ctx, deliver(pub.msgs[0], ack), func(_ context.Context, env *envelope.Envelope) error {
			got = textOf(t, env)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "hello", got)
		assert.Equal(t, 1, ack.acks)
	})

	t.Run("failed message is rerouted to the exception destination", func(t *testing.T) {
		exceptions := &capturePublisher{}
		ack := &countingAcknowledger{}

		err := r.NewReceiver(exceptions).Handle(ctx, deliver(pub.msgs[0], ack), func(context.Context, *envelope.Envelope) error {
			return assert.AnError
		})
		require.NoError(t, err)
		assert.Equal(t, 1, ack.acks)
		require.Len(t, exceptions.msgs, 1)
		assert.Equal(t, "mfp.exceptions", exceptions.exchanges[0])
		assert.Equal(t, "_SYSTEM.Exception.Destination", exceptions.keys[0])
	})
}
