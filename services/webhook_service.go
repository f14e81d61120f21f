package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "storybook-order-service/common/errors"
	"storybook-order-service/models"
	"storybook-order-service/repository"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	EventCheckoutSessionCompleted   = "checkout.session.completed"
	EventPaymentIntentPaymentFailed = "payment_intent.payment_failed"
)

// WebhookService reconciles processor events into the ledger.
type WebhookService interface {
	HandleEvent(ctx context.Context, event stripe.Event) error
}

type webhookService struct {
	store   repository.LedgerStore
	deduper EventDeduper
	logger  *zap.Logger
	now     func() time.Time
}

// NewWebhookService builds the reconciler. deduper may be nil.
func NewWebhookService(store repository.LedgerStore, deduper EventDeduper, logger *zap.Logger) WebhookService {
	return &webhookService{store: store, deduper: deduper, logger: logger, now: time.Now}
}

// HandleEvent returns an error only when the event should be redelivered.
// Unknown types and events that do not reference an order are acknowledged.
func (s *webhookService) HandleEvent(ctx context.Context, event stripe.Event) error {
	log := s.logger.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
	)

	var handler func(context.Context, stripe.Event, *zap.Logger) error
	switch string(event.Type) {
	case EventCheckoutSessionCompleted:
		handler = s.handleCheckoutCompleted
	case EventPaymentIntentPaymentFailed:
		handler = s.handlePaymentFailed
	default:
		log.Info("Unhandled webhook event type")
		return nil
	}

	if s.deduper != nil && event.ID != "" {
		seen, err := s.deduper.Seen(ctx, event.ID)
		if err != nil {
			log.Warn("event dedupe lookup failed", zap.Error(err))
		} else if seen {
			log.Info("Skipping already processed webhook event")
			return nil
		}
	}

	if err := handler(ctx, event, log); err != nil {
		return err
	}

	if s.deduper != nil && event.ID != "" {
		if err := s.deduper.Mark(ctx, event.ID); err != nil {
			log.Warn("event dedupe mark failed", zap.Error(err))
		}
	}
	return nil
}

func parseOrderID(metadata map[string]string, fallback string) (uuid.UUID, bool) {
	raw := metadata["order_id"]
	if raw == "" {
		raw = fallback
	}
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	return id, err == nil
}

func processorNote(event stripe.Event, what string) string {
	return fmt.Sprintf("Stripe webhook %s (%s): %s", event.Type, event.ID, what)
}

func (s *webhookService) handleCheckoutCompleted(ctx context.Context, event stripe.Event, log *zap.Logger) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		log.Error("Failed to unmarshal checkout session", zap.Error(err))
		return nil
	}
	orderID, ok := parseOrderID(sess.Metadata, sess.ClientReferenceID)
	if !ok {
		log.Warn("Checkout session without order metadata", zap.String("session_id", sess.ID))
		return nil
	}
	log = log.With(zap.String("order_id", orderID.String()))

	var intentID *string
	key := "session:" + sess.ID
	if sess.PaymentIntent != nil && sess.PaymentIntent.ID != "" {
		id := sess.PaymentIntent.ID
		intentID = &id
		key = id
	}
	sessionID := sess.ID

	transitioned := false
	err := s.store.RunInTx(ctx, func(tx repository.LedgerRepository) error {
		order, err := orderForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}

		currency := string(sess.Currency)
		if currency == "" {
			currency = order.Currency
		}
		payment := &models.Payment{
			ID:                      uuid.New(),
			OrderID:                 order.ID,
			PaymentKey:              key,
			StripePaymentIntentID:   intentID,
			StripeCheckoutSessionID: &sessionID,
			StripeEventID:           event.ID,
			AmountCents:             sess.AmountTotal,
			Currency:                currency,
			Status:                  models.PaymentStatusSucceeded,
			EventType:               string(event.Type),
			RawMetadata:             datatypes.JSON(event.Data.Raw),
		}
		if err := tx.UpsertSucceededPayment(ctx, payment); err != nil {
			return err
		}

		if order.Status != models.OrderStatusDraft && order.Status != models.OrderStatusPaymentPending {
			return nil
		}
		if order.StripeCheckoutSessionID == nil {
			order.StripeCheckoutSessionID = &sessionID
		}
		transitioned = true
		return transition(ctx, tx, order, models.OrderStatusPaid, nil,
			processorNote(event, "payment succeeded"), s.now())
	})
	if err != nil {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) && appErr.Kind == apperrors.KindNotFound {
			log.Warn("Checkout completed for unknown order")
			return nil
		}
		log.Error("Failed to reconcile checkout session", zap.Error(err))
		return err
	}

	log.Info("Checkout session reconciled",
		zap.String("payment_key", key),
		zap.Bool("transitioned", transitioned),
	)
	return nil
}

func (s *webhookService) handlePaymentFailed(ctx context.Context, event stripe.Event, log *zap.Logger) error {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		log.Error("Failed to unmarshal payment intent", zap.Error(err))
		return nil
	}
	orderID, ok := parseOrderID(pi.Metadata, "")
	if !ok {
		log.Warn("Payment intent without order metadata", zap.String("payment_intent_id", pi.ID))
		return nil
	}
	log = log.With(zap.String("order_id", orderID.String()))

	var intentID *string
	if pi.ID != "" {
		id := pi.ID
		intentID = &id
	}

	transitioned := false
	err := s.store.RunInTx(ctx, func(tx repository.LedgerRepository) error {
		order, err := orderForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}

		currency := string(pi.Currency)
		if currency == "" {
			currency = order.Currency
		}
		inserted, err := tx.InsertFailedPayment(ctx, &models.Payment{
			ID:                    uuid.New(),
			OrderID:               order.ID,
			PaymentKey:            "failed:" + event.ID,
			StripePaymentIntentID: intentID,
			StripeEventID:         event.ID,
			AmountCents:           pi.Amount,
			Currency:              currency,
			Status:                models.PaymentStatusFailed,
			EventType:             string(event.Type),
			RawMetadata:           datatypes.JSON(event.Data.Raw),
		})
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}

		if order.Status != models.OrderStatusDraft && order.Status != models.OrderStatusPaid {
			return nil
		}
		if order.Status == models.OrderStatusPaid && intentID != nil {
			// a late failure for an intent that already succeeded must not revert
			if p, err := tx.FindPaymentByKey(ctx, *intentID); err == nil && p.Status == models.PaymentStatusSucceeded {
				return nil
			} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return err
			}
		}
		transitioned = true
		return transition(ctx, tx, order, models.OrderStatusPaymentPending, nil,
			processorNote(event, failureMessage(&pi)), s.now())
	})
	if err != nil {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) && appErr.Kind == apperrors.KindNotFound {
			log.Warn("Payment failure for unknown order")
			return nil
		}
		log.Error("Failed to reconcile payment failure", zap.Error(err))
		return err
	}

	log.Info("Payment failure reconciled", zap.Bool("transitioned", transitioned))
	return nil
}

func failureMessage(pi *stripe.PaymentIntent) string {
	if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
		return "payment failed: " + pi.LastPaymentError.Msg
	}
	return "payment failed"
}
