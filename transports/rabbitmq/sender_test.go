package rabbitmq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glimte/mmate-mfp/codec"
	"github.com/glimte/mmate-mfp/contracts"
	"github.com/glimte/mmate-mfp/envelope"
	"github.com/glimte/mmate-mfp/internal/reliability"
	"github.com/glimte/mmate-mfp/metrics"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSenderSend(t *testing.T) {
	ctx := context.Background()

	env := textMessage(t, "hello")
	require.NoError(t, env.SetPriority(4))
	require.NoError(t, env.SetPersistence(contracts.PersistencePersistent))
	require.NoError(t, env.SetTimeToLive(60000))
	require.NoError(t, env.SetOriginTimestamp(1714564800000))
	require.NoError(t, env.SetCorrelationID("c-1"))
	require.NoError(t, env.SetJMSType("greeting"))

	var published amqp.Publishing
	pub := &mockPublisher{}
	pub.On("PublishWithContext", mock.Anything, "mfp", "orders", false, false, mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(5).(amqp.Publishing) }).
		Return(nil).Once()

	collector := metrics.NewSimpleCollector()
	sender := NewSender(pub, newCodec(), WithExchange("mfp"), WithSenderMetrics(collector))

	require.NoError(t, sender.Send(ctx, env, "orders"))
	pub.AssertExpectations(t)

	t.Run("Envelope is frozen", func(t *testing.T) {
		assert.True(t, env.IsSent())
		assert.ErrorIs(t, env.SetPriority(1), contracts.ErrFrozenEnvelope)
	})

	t.Run("AMQP properties mirror the header", func(t *testing.T) {
		assert.Equal(t, ContentType, published.ContentType)
		assert.Equal(t, env.GetMessageID().String(), published.MessageId)
		assert.Equal(t, "c-1", published.CorrelationId)
		assert.Equal(t, "greeting", published.Type)
		assert.Equal(t, amqp.Persistent, published.DeliveryMode)
		assert.Equal(t, uint8(4), published.Priority)
		assert.Equal(t, "60000", published.Expiration)
		assert.Equal(t, int64(1714564800000), published.Timestamp.UnixMilli())
		assert.Equal(t, "JMS", published.Headers[HeaderKind])
		assert.Equal(t, int32(codec.Current), published.Headers[HeaderVersion])
		assert.Equal(t, int32(0), published.Headers[HeaderRedelivered])
	})

	t.Run("Body decodes to the same message", func(t *testing.T) {
		slices, err := Unframe(published.Body)
		require.NoError(t, err)
		got, err := newCodec().DecodeFromTransport(slices)
		require.NoError(t, err)

		assert.Equal(t, "hello", textOf(t, got))
		p, ok := got.GetPriority()
		assert.True(t, ok)
		assert.Equal(t, 4, p)
		assert.True(t, got.Equal(env))
	})

	t.Run("Metrics recorded", func(t *testing.T) {
		assert.Equal(t, int64(1), collector.Summary().Counts[metrics.OpSend])
	})
}

func TestSenderRoutesByForwardPath(t *testing.T) {
	env := textMessage(t, "x")
	require.NoError(t, env.SetForwardPath([]envelope.DestinationAddress{
		{DestinationName: "billing"},
		{DestinationName: "audit"},
	}))

	pub := &mockPublisher{}
	pub.On("PublishWithContext", mock.Anything, "", "billing", false, false, mock.Anything).Return(nil).Once()

	require.NoError(t, NewSender(pub, newCodec()).Send(context.Background(), env, ""))
	pub.AssertExpectations(t)
}

func TestSenderVersionTrimming(t *testing.T) {
	env := textMessage(t, "x")
	require.NoError(t, env.SetDeliveryDelay(500))

	var published amqp.Publishing
	pub := &mockPublisher{}
	pub.On("PublishWithContext", mock.Anything, "", "q", true, false, mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(5).(amqp.Publishing) }).
		Return(nil).Once()

	sender := NewSender(pub, newCodec(), WithProtocolVersion(codec.V1), WithMandatory(true))
	require.NoError(t, sender.Send(context.Background(), env, "q"))

	assert.Equal(t, int32(codec.V1), published.Headers[HeaderVersion])
	slices, err := Unframe(published.Body)
	require.NoError(t, err)
	got, err := newCodec().DecodeFromTransport(slices)
	require.NoError(t, err)
	_, ok := got.GetDeliveryDelay()
	assert.False(t, ok)
}

func TestSenderFailures(t *testing.T) {
	ctx := context.Background()
	fastRetry := WithRetryPolicy(reliability.NewFixedDelay(time.Millisecond, 2))

	t.Run("No routing key", func(t *testing.T) {
		env := textMessage(t, "x")
		err := NewSender(&mockPublisher{}, newCodec()).Send(ctx, env, "")
		assert.ErrorIs(t, err, ErrNoRoutingKey)
		assert.False(t, env.IsSent())
	})

	t.Run("Publish retried then reported", func(t *testing.T) {
		pub := &mockPublisher{}
		pub.On("PublishWithContext", mock.Anything, "", "q", false, false, mock.Anything).
			Return(errors.New("channel closed")).Times(3)

		collector := metrics.NewSimpleCollector()
		err := NewSender(pub, newCodec(), fastRetry, WithSenderMetrics(collector)).Send(ctx, textMessage(t, "x"), "q")

		var pubErr *PublishError
		require.ErrorAs(t, err, &pubErr)
		assert.Equal(t, "q", pubErr.RoutingKey)
		var retryErr *reliability.RetryError
		assert.ErrorAs(t, err, &retryErr)
		pub.AssertExpectations(t)
		assert.Equal(t, int64(1), collector.Summary().Errors[metrics.OpSend]["other"])
	})

	t.Run("Encode failure is not published", func(t *testing.T) {
		env := envelope.NewFactory().New(contracts.MessageKindUnknown)
		pub := &mockPublisher{}

		err := NewSender(pub, newCodec(), fastRetry).Send(ctx, env, "q")
		assert.ErrorIs(t, err, contracts.ErrEncodeFailed)
		pub.AssertNotCalled(t, "PublishWithContext", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
