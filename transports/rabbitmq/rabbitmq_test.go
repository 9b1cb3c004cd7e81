package rabbitmq

import (
	"context"
	"testing"

	"github.com/glimte/mmate-mfp/codec"
	"github.com/glimte/mmate-mfp/contracts"
	"github.com/glimte/mmate-mfp/envelope"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(ctx, exchange, key, mandatory, immediate, msg)
	return args.Error(0)
}

type mockAcknowledger struct {
	mock.Mock
}

func (m *mockAcknowledger) Ack(tag uint64, multiple bool) error {
	args := m.Called(tag, multiple)
	return args.Error(0)
}

func (m *mockAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	args := m.Called(tag, multiple, requeue)
	return args.Error(0)
}

func (m *mockAcknowledger) Reject(tag uint64, requeue bool) error {
	args := m.Called(tag, requeue)
	return args.Error(0)
}

type mockChannel struct {
	mock.Mock
}

func (m *mockChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	ret := m.Called(queue, consumer, autoAck, exclusive, noLocal, noWait, args)
	ch, _ := ret.Get(0).(<-chan amqp.Delivery)
	return ch, ret.Error(1)
}

func (m *mockChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	ret := m.Called(name, kind, durable, autoDelete, internal, noWait, args)
	return ret.Error(0)
}

func (m *mockChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	ret := m.Called(name, durable, autoDelete, exclusive, noWait, args)
	return amqp.Queue{Name: name}, ret.Error(0)
}

func (m *mockChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	ret := m.Called(name, key, exchange, noWait, args)
	return ret.Error(0)
}

func newCodec() *codec.Codec {
	return codec.New(envelope.NewFactory())
}

func textMessage(t *testing.T, text string) *envelope.Envelope {
	t.Helper()
	jms, err := envelope.NewFactory().NewJmsMessage(contracts.JmsBodyText)
	require.NoError(t, err)
	tm, err := jms.AsText()
	require.NoError(t, err)
	require.NoError(t, tm.SetText(text))
	return jms.Envelope()
}

func textOf(t *testing.T, env *envelope.Envelope) string {
	t.Helper()
	jms, err := env.AsJmsMessage()
	require.NoError(t, err)
	tm, err := jms.AsText()
	require.NoError(t, err)
	text, _ := tm.GetText()
	return text
}

// delivery frames env the way Sender would and attaches ack
func delivery(t *testing.T, env *envelope.Envelope, ack amqp.Acknowledger, tag uint64) amqp.Delivery {
	t.Helper()
	slices, err := newCodec().EncodeForTransport(env, codec.Current)
	require.NoError(t, err)
	return amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  tag,
		MessageId:    env.GetMessageID().String(),
		Body:         Frame(slices),
	}
}
