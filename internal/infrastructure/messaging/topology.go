package messaging

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Command queue suffixes, appended to the configured queue prefix.
const (
	QueueCreate  = "create"
	QueueProcess = "process"
	QueueCancel  = "cancel"
	QueueRefund  = "refund"
)

// CommandQueue names the durable queue for one command kind.
func CommandQueue(prefix, kind string) string {
	if prefix == "" {
		prefix = "billing.commands"
	}
	return prefix + "." + kind
}

// DeclareTopology declares the durable event exchange and the command queues,
// then puts ch into confirm mode.
func DeclareTopology(ch *amqp.Channel, exchange, queuePrefix string) error {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, kind := range []string{QueueCreate, QueueProcess, QueueCancel, QueueRefund} {
		if _, err := ch.QueueDeclare(
			CommandQueue(queuePrefix, kind),
			true,  // durable
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			nil,
		); err != nil {
			return fmt.Errorf("declare queue %s: %w", kind, err)
		}
	}

	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("enable confirm mode: %w", err)
	}
	return nil
}
