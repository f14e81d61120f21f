package services

import (
	"context"
	"fmt"
	"math"
	"time"

	apperrors "storybook-order-service/common/errors"
	"storybook-order-service/models"
	"storybook-order-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxFixedDiscountCents rejects fat-finger fixed discounts.
const DefaultMaxFixedDiscountCents int64 = 1_000_000

type DiscountResult struct {
	Order    *models.Order    `json:"order"`
	Discount *models.Discount `json:"discount"`
}

type RefundResult struct {
	Order         *models.Order  `json:"order"`
	Refund        *models.Refund `json:"refund"`
	MaxRefundable int64          `json:"maxRefundableCents"`
}

type FinanceService interface {
	ApplyDiscount(ctx context.Context, actor models.Actor, orderID uuid.UUID, req *models.ApplyDiscountRequest) (*DiscountResult, error)
	IssueRefund(ctx context.Context, actor models.Actor, orderID uuid.UUID, req *models.IssueRefundRequest) (*RefundResult, error)
	GetLedger(ctx context.Context, orderID uuid.UUID) (*models.LedgerSummary, error)
}

type financeService struct {
	store            repository.LedgerStore
	processor        PaymentProcessor
	notifier         Notifier
	logger           *zap.Logger
	maxFixedDiscount int64
	now              func() time.Time
}

func NewFinanceService(store repository.LedgerStore, processor PaymentProcessor, notifier Notifier, logger *zap.Logger, maxFixedDiscount int64) FinanceService {
	if maxFixedDiscount <= 0 {
		maxFixedDiscount = DefaultMaxFixedDiscountCents
	}
	return &financeService{
		store:            store,
		processor:        processor,
		notifier:         notifier,
		logger:           logger,
		maxFixedDiscount: maxFixedDiscount,
		now:              time.Now,
	}
}

// ComputeDiscount resolves a discount input to cents clamped to [0, base].
func ComputeDiscount(base int64, discountType models.DiscountType, value float64) int64 {
	var raw float64
	switch discountType {
	case models.DiscountTypePercent:
		raw = math.Round(float64(base) * value / 100)
	default:
		raw = math.Round(value)
	}
	applied := int64(raw)
	if applied < 0 {
		applied = 0
	}
	if applied > base {
		applied = base
	}
	return applied
}

func (s *financeService) validateDiscount(req *models.ApplyDiscountRequest) error {
	if math.IsNaN(req.Value) || math.IsInf(req.Value, 0) || req.Value <= 0 {
		return apperrors.Validation("Discount value must be a positive number")
	}
	switch req.DiscountType {
	case models.DiscountTypePercent:
		if req.Value > 100 {
			return apperrors.Validation("Percent discount cannot exceed 100")
		}
	case models.DiscountTypeFixed:
		if req.Value > float64(s.maxFixedDiscount) {
			return apperrors.Validation(fmt.Sprintf("Fixed discount cannot exceed %d cents", s.maxFixedDiscount))
		}
	default:
		return apperrors.Validation("Discount type must be fixed or percent")
	}
	return nil
}

// ApplyDiscount replaces the order's active discount.
func (s *financeService) ApplyDiscount(ctx context.Context, actor models.Actor, orderID uuid.UUID, req *models.ApplyDiscountRequest) (*DiscountResult, error) {
	if !actor.Role.CanManageFinance() {
		return nil, apperrors.Forbidden("Finance role required")
	}
	if err := s.validateDiscount(req); err != nil {
		return nil, err
	}

	var result DiscountResult
	err := s.store.RunInTx(ctx, func(tx repository.LedgerRepository) error {
		order, err := orderForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.IsPayable() {
			return apperrors.PreconditionFailed(apperrors.ReasonOrderNotPayable,
				"Discounts can only be applied before payment").
				WithDetail("status", order.Status)
		}

		// an issued session still charges the old total
		if order.Status == models.OrderStatusPaymentPending && order.StripeCheckoutSessionID != nil {
			if err := s.processor.ExpireCheckoutSession(ctx, *order.StripeCheckoutSessionID); err != nil {
				s.logger.Error("stripe session expiry failed",
					zap.String("order_id", order.ID.String()),
					zap.String("session_id", *order.StripeCheckoutSessionID),
					zap.Error(err),
				)
				return apperrors.UpstreamPayment("Payment provider unavailable", err)
			}
			order.StripeCheckoutSessionID = nil
		}

		applied := ComputeDiscount(order.BaseAmountCents(), req.DiscountType, req.Value)
		discount := &models.Discount{
			ID:           uuid.New(),
			OrderID:      order.ID,
			DiscountType: req.DiscountType,
			InputValue:   req.Value,
			AmountCents:  applied,
			Code:         cleanPtr(req.Code),
			Reason:       cleanPtr(req.Reason),
			CreatedByID:  actor.UserID,
		}
		if err := tx.CreateDiscount(ctx, discount); err != nil {
			return err
		}

		order.DiscountAmountCents = applied
		order.RecalculateTotal()
		note := fmt.Sprintf("Discount applied: %s %g (%d cents)", req.DiscountType, req.Value, applied)
		if err := recordAudit(ctx, tx, order, &actor, note); err != nil {
			return err
		}
		result = DiscountResult{Order: order, Discount: discount}
		return nil
	})
	if err != nil {
		return nil, translate(s.logger, "apply discount", err)
	}

	s.logger.Info("discount applied",
		zap.String("order_id", orderID.String()),
		zap.Int64("discount_cents", result.Discount.AmountCents),
		zap.Int64("total_cents", result.Order.TotalAmountCents),
	)
	return &result, nil
}

func cleanPtr(s *string) *string {
	if s == nil {
		return nil
	}
	return cleanText(*s)
}

// RefundBalance sums succeeded payments and recorded refunds.
func RefundBalance(payments []models.Payment, refunds []models.Refund) (totalPaid, totalRefunded int64) {
	for _, p := range payments {
		if p.Status == models.PaymentStatusSucceeded {
			totalPaid += p.AmountCents
		}
	}
	for _, r := range refunds {
		totalRefunded += r.AmountCents
	}
	return totalPaid, totalRefunded
}

// latestRefundablePayment picks the succeeded payment with a payment intent
// that was created last. payments must be in creation order; on equal
// timestamps the later element wins.
func latestRefundablePayment(payments []models.Payment) *models.Payment {
	var best *models.Payment
	for i := range payments {
		p := &payments[i]
		if p.Status != models.PaymentStatusSucceeded || p.StripePaymentIntentID == nil || *p.StripePaymentIntentID == "" {
			continue
		}
		if best == nil || !p.CreatedAt.Before(best.CreatedAt) {
			best = p
		}
	}
	return best
}

func (s *financeService) IssueRefund(ctx context.Context, actor models.Actor, orderID uuid.UUID, req *models.IssueRefundRequest) (*RefundResult, error) {
	if !actor.Role.CanManageFinance() {
		return nil, apperrors.Forbidden("Finance role required")
	}
	if req.AmountCents != nil && *req.AmountCents <= 0 {
		return nil, apperrors.Validation("Refund amount must be positive")
	}

	var result RefundResult
	err := s.store.RunInTx(ctx, func(tx repository.LedgerRepository) error {
		order, err := orderForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		payments, err := tx.ListPayments(ctx, order.ID)
		if err != nil {
			return err
		}
		target := latestRefundablePayment(payments)
		if target == nil {
			return apperrors.InvalidState(apperrors.ReasonNoSucceededPayment, "Order has no succeeded payment to refund")
		}
		refunds, err := tx.ListRefunds(ctx, order.ID)
		if err != nil {
			return err
		}

		totalPaid, totalRefunded := RefundBalance(payments, refunds)
		maxRefundable := totalPaid - totalRefunded
		if maxRefundable <= 0 {
			return apperrors.PreconditionFailed(apperrors.ReasonAlreadyRefunded, "Order has already been fully refunded").
				WithDetail("maxRefundable", int64(0))
		}
		amount := maxRefundable
		if req.AmountCents != nil {
			amount = *req.AmountCents
		}
		if amount > maxRefundable {
			return apperrors.PreconditionFailed(apperrors.ReasonRefundExceedsBalance, "Refund exceeds refundable balance").
				WithDetail("maxRefundable", maxRefundable)
		}

		next := models.OrderStatusRefundedPartial
		if totalRefunded+amount >= totalPaid {
			next = models.OrderStatusRefundedFull
		}
		if !CanTransition(order.Status, next) {
			return illegalTransition(order.Status, next)
		}

		reason := cleanPtr(req.Reason)
		reasonText := ""
		if reason != nil {
			reasonText = *reason
		}
		refundID, err := s.processor.CreateRefund(ctx, RefundInput{
			PaymentIntentID: *target.StripePaymentIntentID,
			AmountCents:     amount,
			OrderID:         order.ID.String(),
			OrderNumber:     order.OrderNumber,
			Reason:          reasonText,
			IdempotencyKey:  fmt.Sprintf("refund-%s-%d-%d", order.ID, totalRefunded, amount),
		})
		if err != nil {
			s.logger.Error("stripe refund failed",
				zap.String("order_id", order.ID.String()),
				zap.Int64("amount_cents", amount),
				zap.Error(err),
			)
			return apperrors.UpstreamPayment("Payment provider refund failed", err)
		}

		refund := &models.Refund{
			ID:                    uuid.New(),
			OrderID:               order.ID,
			PaymentID:             target.ID,
			AmountCents:           amount,
			Currency:              target.Currency,
			Reason:                reason,
			StripeRefundID:        refundID,
			StripePaymentIntentID: *target.StripePaymentIntentID,
			IssuedByID:            actor.UserID,
		}
		if err := tx.CreateRefund(ctx, refund); err != nil {
			return err
		}
		note := fmt.Sprintf("Refund of %d cents issued (%s)", amount, refundID)
		if err := transition(ctx, tx, order, next, &actor, note, s.now()); err != nil {
			return err
		}
		result = RefundResult{Order: order, Refund: refund, MaxRefundable: maxRefundable - amount}
		return nil
	})
	if err != nil {
		return nil, translate(s.logger, "issue refund", err)
	}

	s.logger.Info("refund issued",
		zap.String("order_id", orderID.String()),
		zap.String("refund_id", result.Refund.StripeRefundID),
		zap.Int64("amount_cents", result.Refund.AmountCents),
		zap.String("status", string(result.Order.Status)),
	)
	notify(ctx, s.logger, "order_refunded", orderID.String(), func(nctx context.Context) error {
		return s.notifier.OrderRefunded(nctx, result.Order, result.Refund)
	})
	return &result, nil
}

func (s *financeService) GetLedger(ctx context.Context, orderID uuid.UUID) (*models.LedgerSummary, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperrors.NotFound("Order not found")
		}
		return nil, translate(s.logger, "fetch order", err)
	}
	payments, err := s.store.ListPayments(ctx, orderID)
	if err != nil {
		return nil, translate(s.logger, "fetch payments", err)
	}
	refunds, err := s.store.ListRefunds(ctx, orderID)
	if err != nil {
		return nil, translate(s.logger, "fetch refunds", err)
	}
	discounts, err := s.store.ListDiscounts(ctx, orderID)
	if err != nil {
		return nil, translate(s.logger, "fetch discounts", err)
	}

	totalPaid, totalRefunded := RefundBalance(payments, refunds)
	summary := &models.LedgerSummary{
		Order:         order,
		Payments:      payments,
		Refunds:       refunds,
		Discounts:     discounts,
		TotalPaid:     totalPaid,
		TotalRefunded: totalRefunded,
		MaxRefundable: max(totalPaid-totalRefunded, 0),
	}
	if n := len(discounts); n > 0 && order.DiscountAmountCents > 0 {
		summary.ActiveDiscount = &discounts[n-1]
	}
	return summary, nil
}
