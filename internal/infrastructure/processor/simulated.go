package processor

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/application"
	"github.com/DanielPopoola/ficmart-billing/internal/config"
	"github.com/DanielPopoola/ficmart-billing/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SimulatedProcessor stands in for a real payment gateway. It waits for the
// configured latency, declines charges above a threshold and rejects payment
// methods from blocked providers.
type SimulatedProcessor struct {
	latency          time.Duration
	declineAbove     *decimal.Decimal
	blockedProviders []string
	logger           *slog.Logger
}

var _ application.PaymentProcessor = (*SimulatedProcessor)(nil)

func NewSimulatedProcessor(cfg config.ProcessorConfig, logger *slog.Logger) (*SimulatedProcessor, error) {
	p := &SimulatedProcessor{
		latency: cfg.Latency,
		logger:  logger,
	}
	if cfg.DeclineAbove != "" {
		limit, err := decimal.NewFromString(cfg.DeclineAbove)
		if err != nil {
			return nil, fmt.Errorf("processor.decline_above: %w", err)
		}
		p.declineAbove = &limit
	}
	for _, provider := range cfg.BlockedProviders {
		p.blockedProviders = append(p.blockedProviders, strings.ToLower(strings.TrimSpace(provider)))
	}
	return p, nil
}

func (s *SimulatedProcessor) ProcessPayment(ctx context.Context, purchase *domain.Purchase) (*application.PaymentResult, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	amount := purchase.Amount().Amount()
	if s.declineAbove != nil && amount.GreaterThan(*s.declineAbove) {
		s.logger.Info("simulated payment declined",
			"purchase_id", purchase.ID(),
			"amount", purchase.Amount().String(),
		)
		return &application.PaymentResult{
			Success:       false,
			FailureReason: fmt.Sprintf("amount exceeds limit of %s", s.declineAbove.StringFixed(2)),
		}, nil
	}

	txID := "txn_" + uuid.NewString()
	s.logger.Debug("simulated payment approved", "purchase_id", purchase.ID(), "external_id", txID)

	return &application.PaymentResult{
		Success:               true,
		ExternalTransactionID: txID,
		Metadata: map[string]string{
			"processor":          "simulated",
			"authorization_code": strings.ToUpper(txID[4:12]),
		},
	}, nil
}

func (s *SimulatedProcessor) ProcessRefund(ctx context.Context, purchase *domain.Purchase, amount domain.Money, reason string) (*application.RefundResult, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	exceeds, err := amount.IsGreaterThan(purchase.Amount())
	if err != nil {
		return nil, &ProcessorError{Code: ErrInvalidRequest.Code, Message: err.Error()}
	}
	if exceeds {
		return &application.RefundResult{
			Success:       false,
			FailureReason: "refund exceeds captured amount",
		}, nil
	}

	refundID := "rf_" + uuid.NewString()
	s.logger.Debug("simulated refund approved",
		"purchase_id", purchase.ID(),
		"external_id", refundID,
		"reason", reason,
	)

	return &application.RefundResult{
		Success:          true,
		ExternalRefundID: refundID,
	}, nil
}

func (s *SimulatedProcessor) ValidatePaymentMethod(ctx context.Context, method domain.PaymentMethod) bool {
	if !method.Type().IsValid() {
		return false
	}
	return !slices.Contains(s.blockedProviders, strings.ToLower(method.Provider()))
}

func (s *SimulatedProcessor) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
