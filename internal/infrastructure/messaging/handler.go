package messaging

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes a single delivery and must be idempotent.
// nil acks the delivery; an error nacks it and the Router decides on requeue.
type Handler interface {
	Handle(ctx context.Context, d amqp.Delivery) error
}
