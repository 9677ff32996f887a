package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/application"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ConsumeChannel is the part of *amqp.Channel the Router uses.
type ConsumeChannel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
}

// Router runs one consumer per registered queue on a single channel.
type Router struct {
	ch            ConsumeChannel
	prefetch      int
	callTimeout   time.Duration
	requeue       func(err error) bool
	logger        *slog.Logger
	registrations []registration
	wg            sync.WaitGroup
}

type registration struct {
	queueName   string
	handler     Handler
	consumerTag string
}

type RouterOption func(*Router)

func WithPrefetch(n int) RouterOption              { return func(r *Router) { r.prefetch = n } }
func WithTimeout(d time.Duration) RouterOption     { return func(r *Router) { r.callTimeout = d } }
func WithRequeue(fn func(error) bool) RouterOption { return func(r *Router) { r.requeue = fn } }
func WithLogger(l *slog.Logger) RouterOption       { return func(r *Router) { r.logger = l } }

// NewRouter defaults to prefetch 50, a 10s handler timeout and requeueing
// errors that application.IsRetryable accepts.
func NewRouter(ch ConsumeChannel, opts ...RouterOption) *Router {
	r := &Router{
		ch:          ch,
		prefetch:    50,
		callTimeout: 10 * time.Second,
		requeue:     application.IsRetryable,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) Register(queueName string, h Handler) {
	r.registrations = append(r.registrations, registration{
		queueName:   queueName,
		handler:     h,
		consumerTag: "billing_" + queueName,
	})
}

// Start begins consuming and returns immediately. Consumers are cancelled
// when ctx is done; Wait blocks until they have drained.
func (r *Router) Start(ctx context.Context) error {
	if err := r.ch.Qos(r.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	for _, reg := range r.registrations {
		deliveries, err := r.ch.Consume(
			reg.queueName,
			reg.consumerTag,
			false, // manual ack
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("consume %s: %w", reg.queueName, err)
		}

		r.wg.Go(func() {
			for d := range deliveries {
				r.dispatch(ctx, reg, d)
			}
			r.logger.Info("consumer stopped", "queue", reg.queueName, "consumer_tag", reg.consumerTag)
		})
	}

	go func() {
		<-ctx.Done()
		for _, reg := range r.registrations {
			if err := r.ch.Cancel(reg.consumerTag, false); err != nil {
				r.logger.Warn("failed to cancel consumer", "queue", reg.queueName, "error", err)
			}
		}
	}()

	r.logger.Info("command router started", "queues", len(r.registrations), "prefetch", r.prefetch)
	return nil
}

func (r *Router) Wait() {
	r.wg.Wait()
}

// dispatch runs the handler and settles the delivery. A retryable failure is
// requeued once; a redelivered message that fails again is dropped.
func (r *Router) dispatch(ctx context.Context, reg registration, d amqp.Delivery) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.callTimeout)
	err := reg.handler.Handle(callCtx, d)
	cancel()

	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			r.logger.Error("failed to ack delivery", "queue", reg.queueName, "error", ackErr)
		}
		return
	}

	requeue := r.requeue(err) && !d.Redelivered
	r.logger.Warn("command handler failed",
		"queue", reg.queueName,
		"message_id", d.MessageId,
		"error_code", application.ToErrorCode(err),
		"requeue", requeue,
		"error", err,
	)
	if nackErr := d.Nack(false, requeue); nackErr != nil {
		r.logger.Error("failed to nack delivery", "queue", reg.queueName, "error", nackErr)
	}
}
