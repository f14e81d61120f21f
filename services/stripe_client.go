package services

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
	"github.com/stripe/stripe-go/v80/webhook"
)

// CheckoutSessionInput describes one hosted checkout for an order.
type CheckoutSessionInput struct {
	OrderID        string
	OrderNumber    string
	CustomerID     string
	CustomerEmail  string
	Currency       string
	AmountCents    int64
	Description    string
	SuccessURL     string
	CancelURL      string
	IdempotencyKey string
}

type CheckoutSession struct {
	ID  string
	URL string
}

type RefundInput struct {
	PaymentIntentID string
	AmountCents     int64
	OrderID         string
	OrderNumber     string
	Reason          string
	IdempotencyKey  string
}

// PaymentProcessor is the subset of Stripe the order engine calls.
type PaymentProcessor interface {
	CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*CheckoutSession, error)
	CreateRefund(ctx context.Context, in RefundInput) (string, error)
	ExpireCheckoutSession(ctx context.Context, sessionID string) error
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

// StripeService talks to Stripe through a per-instance client rather than the
// package-level stripe.Key.
type StripeService struct {
	api        *client.API
	webhookKey string
}

func NewStripeService(secretKey, webhookKey string) *StripeService {
	return &StripeService{api: client.New(secretKey, nil), webhookKey: webhookKey}
}

func orderMetadata(orderID, orderNumber, customerID string) map[string]string {
	md := map[string]string{"order_id": orderID, "order_number": orderNumber}
	if customerID != "" {
		md["customer_id"] = customerID
	}
	return md
}

// CreateCheckoutSession charges the order total as a single line so the
// processor amount always equals totalAmountCents after discounts.
func (s *StripeService) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*CheckoutSession, error) {
	md := orderMetadata(in.OrderID, in.OrderNumber, in.CustomerID)

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(in.SuccessURL),
		CancelURL:         stripe.String(in.CancelURL),
		ClientReferenceID: stripe.String(in.OrderID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(in.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String("Storybook order " + in.OrderNumber),
						Description: stripe.String(in.Description),
					},
					UnitAmount: stripe.Int64(in.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: md,
		},
	}
	if in.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(in.CustomerEmail)
	}
	for k, v := range md {
		params.AddMetadata(k, v)
	}
	params.Context = ctx
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (s *StripeService) CreateRefund(ctx context.Context, in RefundInput) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(in.PaymentIntentID),
		Amount:        stripe.Int64(in.AmountCents),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	for k, v := range orderMetadata(in.OrderID, in.OrderNumber, "") {
		params.AddMetadata(k, v)
	}
	if in.Reason != "" {
		params.AddMetadata("admin_reason", in.Reason)
	}
	params.Context = ctx
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}

	r, err := s.api.Refunds.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe refund: %w", err)
	}
	return r.ID, nil
}

// ExpireCheckoutSession closes an open hosted checkout so it can no longer
// be paid at its old amount.
func (s *StripeService) ExpireCheckoutSession(ctx context.Context, sessionID string) error {
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	if _, err := s.api.CheckoutSessions.Expire(sessionID, params); err != nil {
		return fmt.Errorf("stripe expire checkout session: %w", err)
	}
	return nil
}

// ConstructEvent verifies the Stripe-Signature header against the raw body.
func (s *StripeService) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, s.webhookKey, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}
