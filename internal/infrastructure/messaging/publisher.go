package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/application"
	amqp "github.com/rabbitmq/amqp091-go"
)

const DefaultExchange = "billing.events"

// PublishChannel is the part of *amqp.Channel the publisher uses.
type PublishChannel interface {
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error)
}

// RabbitPublisher sends purchase events to a topic exchange, keyed by event type.
type RabbitPublisher struct {
	ch       PublishChannel
	exchange string
}

var _ application.EventPublisher = (*RabbitPublisher)(nil)

// NewRabbitPublisher expects the exchange to exist already (see DeclareTopology).
func NewRabbitPublisher(ch PublishChannel, exchange string) *RabbitPublisher {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &RabbitPublisher{ch: ch, exchange: exchange}
}

// Publish waits for the broker confirm when the channel is in confirm mode.
func (p *RabbitPublisher) Publish(ctx context.Context, event application.PurchaseEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         string(event.Type),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.exchange, event.RoutingKey(), false, false, msg)
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	if confirm == nil {
		return nil
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("confirm %s: %w", event.Type, err)
	}
	if !acked {
		return fmt.Errorf("publish %s: broker nacked message %s", event.Type, event.ID)
	}
	return nil
}
