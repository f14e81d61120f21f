package services

import (
	"encoding/json"
	"time"

	"storybook-order-service/models"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func customerActor() models.Actor {
	return models.Actor{UserID: uuid.New(), Role: models.RoleCustomer, Email: "reader@example.com"}
}

func designerActor() models.Actor {
	return models.Actor{UserID: uuid.New(), Role: models.RoleDesigner}
}

func adminActor() models.Actor {
	return models.Actor{UserID: uuid.New(), Role: models.RoleAdmin}
}

type testDeps struct {
	store     *memStore
	processor *fakeProcessor
	notifier  *fakeNotifier
	orders    *orderService
	comments  *commentService
	finance   *financeService
	webhooks  *webhookService
}

func newTestDeps() *testDeps {
	store := newMemStore()
	processor := &fakeProcessor{}
	notifier := &fakeNotifier{}
	logger := zap.NewNop()

	orders := NewOrderService(store, processor, notifier, logger, CheckoutConfig{
		SuccessURL: "https://shop.test/success",
		CancelURL:  "https://shop.test/cancel",
	}).(*orderService)
	orders.now = fixedClock
	comments := NewCommentService(store, notifier, logger).(*commentService)
	comments.now = fixedClock
	finance := NewFinanceService(store, processor, notifier, logger, 0).(*financeService)
	finance.now = fixedClock
	webhooks := NewWebhookService(store, nil, logger).(*webhookService)
	webhooks.now = fixedClock

	return &testDeps{
		store:     store,
		processor: processor,
		notifier:  notifier,
		orders:    orders,
		comments:  comments,
		finance:   finance,
		webhooks:  webhooks,
	}
}

// orderFor seeds an order owned by owner with subtotal 5000 and shipping 500.
func (d *testDeps) orderFor(owner models.Actor, status models.OrderStatus) *models.Order {
	return d.store.seedOrder(models.Order{
		CustomerID:          owner.UserID,
		Status:              status,
		SubtotalAmountCents: 5000,
		ShippingAmountCents: 500,
	})
}

func checkoutCompletedEvent(eventID string, orderID uuid.UUID, sessionID, intentID string, amount int64) stripe.Event {
	obj := map[string]any{
		"id":           sessionID,
		"object":       "checkout.session",
		"amount_total": amount,
		"currency":     "usd",
		"metadata":     map[string]string{"order_id": orderID.String()},
	}
	if intentID != "" {
		obj["payment_intent"] = intentID
	}
	raw, _ := json.Marshal(obj)
	return stripe.Event{ID: eventID, Type: EventCheckoutSessionCompleted, Data: &stripe.EventData{Raw: raw}}
}

func paymentFailedEvent(eventID string, orderID uuid.UUID, intentID string, amount int64) stripe.Event {
	raw, _ := json.Marshal(map[string]any{
		"id":       intentID,
		"object":   "payment_intent",
		"amount":   amount,
		"currency": "usd",
		"metadata": map[string]string{"order_id": orderID.String()},
		"last_payment_error": map[string]any{
			"message": "Your card was declined.",
			"type":    "card_error",
		},
	})
	return stripe.Event{ID: eventID, Type: EventPaymentIntentPaymentFailed, Data: &stripe.EventData{Raw: raw}}
}
