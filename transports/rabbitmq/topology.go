package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// maxPriority matches the highest envelope priority
const maxPriority = 9

// TopologyDeclarer is the part of *amqp.Channel used to declare topology
type TopologyDeclarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// Topology names the exchanges and queues of one destination and its
// exception destination. Queues are bound with their own name as the
// routing key, which is how Sender routes by forward-path hop.
type Topology struct {
	Exchange          string
	Destination       string
	ExceptionExchange string
	ExceptionQueue    string
}

// Declare creates the exception queue first, then the destination queue
// dead-lettering into it, so deliveries nacked without requeue are kept.
// Empty exception names skip the exception side.
func (t Topology) Declare(ch TopologyDeclarer) error {
	if t.Exchange == "" || t.Destination == "" {
		return fmt.Errorf("rabbitmq: topology needs an exchange and a destination")
	}

	args := amqp.Table{"x-max-priority": int32(maxPriority)}

	if t.ExceptionExchange != "" && t.ExceptionQueue != "" {
		if err := declareBound(ch, t.ExceptionExchange, t.ExceptionQueue, nil); err != nil {
			return err
		}
		args["x-dead-letter-exchange"] = t.ExceptionExchange
		args["x-dead-letter-routing-key"] = t.ExceptionQueue
	}

	return declareBound(ch, t.Exchange, t.Destination, args)
}

func declareBound(ch TopologyDeclarer, exchange, queue string, args amqp.Table) error {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: declare exchange %s: %w", exchange, err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("rabbitmq: declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: bind queue %s to %s: %w", queue, exchange, err)
	}
	return nil
}
