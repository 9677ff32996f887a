package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DanielPopoola/ficmart-billing/internal/application"
	"github.com/go-playground/validator"
	amqp "github.com/rabbitmq/amqp091-go"
)

// JSONHandler decodes d.Body into T, validates it and calls HandleFunc.
// Undecodable or invalid bodies come back as INVALID_INPUT, which the Router
// never requeues.
type JSONHandler[T any] struct {
	HandleFunc func(ctx context.Context, msg T) error
	Validate   *validator.Validate
}

func (h JSONHandler[T]) Handle(ctx context.Context, d amqp.Delivery) error {
	var v T
	if err := json.Unmarshal(d.Body, &v); err != nil {
		return application.NewInvalidInputError(fmt.Errorf("decode %s: %w", d.RoutingKey, err))
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(v); err != nil {
			return application.NewInvalidInputError(err)
		}
	}
	return h.HandleFunc(ctx, v)
}
