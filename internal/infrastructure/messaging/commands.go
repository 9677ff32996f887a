package messaging

import (
	"context"
	"errors"
	"log/slog"

	"github.com/DanielPopoola/ficmart-billing/internal/application"
	"github.com/DanielPopoola/ficmart-billing/internal/application/services"
	"github.com/DanielPopoola/ficmart-billing/internal/domain"
	"github.com/go-playground/validator"
)

type purchaseCreator interface {
	Create(ctx context.Context, cmd services.CreatePurchaseCommand) (*domain.Purchase, error)
}

type paymentProcessor interface {
	Process(ctx context.Context, cmd services.ProcessPaymentCommand) (*domain.Purchase, error)
}

type purchaseCanceller interface {
	Cancel(ctx context.Context, cmd services.CancelPurchaseCommand) (*domain.Purchase, error)
}

type purchaseRefunder interface {
	Refund(ctx context.Context, cmd services.RefundPurchaseCommand) (*domain.Purchase, error)
}

// CommandHandlers adapts the command services to queue deliveries.
type CommandHandlers struct {
	create  purchaseCreator
	process paymentProcessor
	cancel  purchaseCanceller
	refund  purchaseRefunder
	logger  *slog.Logger
}

func NewCommandHandlers(
	create purchaseCreator,
	process paymentProcessor,
	cancel purchaseCanceller,
	refund purchaseRefunder,
	logger *slog.Logger,
) *CommandHandlers {
	return &CommandHandlers{
		create:  create,
		process: process,
		cancel:  cancel,
		refund:  refund,
		logger:  logger,
	}
}

// Register binds every command queue under prefix to its handler.
func (h *CommandHandlers) Register(r *Router, prefix string) {
	v := validator.New()
	r.Register(CommandQueue(prefix, QueueCreate), JSONHandler[services.CreatePurchaseCommand]{HandleFunc: h.HandleCreate, Validate: v})
	r.Register(CommandQueue(prefix, QueueProcess), JSONHandler[services.ProcessPaymentCommand]{HandleFunc: h.HandleProcess, Validate: v})
	r.Register(CommandQueue(prefix, QueueCancel), JSONHandler[services.CancelPurchaseCommand]{HandleFunc: h.HandleCancel, Validate: v})
	r.Register(CommandQueue(prefix, QueueRefund), JSONHandler[services.RefundPurchaseCommand]{HandleFunc: h.HandleRefund, Validate: v})
}

func (h *CommandHandlers) HandleCreate(ctx context.Context, cmd services.CreatePurchaseCommand) error {
	p, err := h.create.Create(ctx, cmd)
	if err != nil {
		return err
	}
	h.logger.Info("create command handled", "purchase_id", p.ID(), "user_id", p.UserID())
	return nil
}

// HandleProcess treats a declined or failed payment as handled: the purchase
// is already Failed and a redelivery could only hit an illegal transition.
func (h *CommandHandlers) HandleProcess(ctx context.Context, cmd services.ProcessPaymentCommand) error {
	p, err := h.process.Process(ctx, cmd)
	if err != nil {
		if p != nil && errors.Is(err, application.ErrProcessingFailed) {
			h.logger.Info("process command ended in failure",
				"purchase_id", p.ID(),
				"reason", p.Status().Reason(),
			)
			return nil
		}
		return err
	}
	h.logger.Info("process command handled", "purchase_id", p.ID(), "status", p.Status().String())
	return nil
}

func (h *CommandHandlers) HandleCancel(ctx context.Context, cmd services.CancelPurchaseCommand) error {
	if _, err := h.cancel.Cancel(ctx, cmd); err != nil {
		return err
	}
	h.logger.Info("cancel command handled", "purchase_id", cmd.PurchaseID)
	return nil
}

func (h *CommandHandlers) HandleRefund(ctx context.Context, cmd services.RefundPurchaseCommand) error {
	if _, err := h.refund.Refund(ctx, cmd); err != nil {
		return err
	}
	h.logger.Info("refund command handled", "purchase_id", cmd.PurchaseID)
	return nil
}
