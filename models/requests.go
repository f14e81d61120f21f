package models

import "github.com/google/uuid"

// Checkout bounds. Binding tags repeat the literals.
const (
	MaxCheckoutItems = 100
	MaxItemQuantity  = 1000
	MaxAmountCents   = 100_000_000
)

// CheckoutItemRequest is one cart line submitted at checkout.
type CheckoutItemRequest struct {
	SKU             string `json:"sku" binding:"required,max=64"`
	Title           string `json:"title" binding:"required,max=255"`
	Quantity        int    `json:"quantity" binding:"required,min=1,max=1000"`
	UnitAmountCents int64  `json:"unitAmountCents" binding:"gte=0,max=100000000"`
}

// CheckoutRequest creates a draft order or replaces the cart of an unpaid one.
type CheckoutRequest struct {
	OrderID             *uuid.UUID            `json:"orderId"`
	Currency            string                `json:"currency" binding:"omitempty,currency"`
	ShippingAmountCents int64                 `json:"shippingAmountCents" binding:"gte=0,max=100000000"`
	Items               []CheckoutItemRequest `json:"items" binding:"required,min=1,max=100,dive"`
}

type CheckoutResponse struct {
	OrderID           uuid.UUID   `json:"orderId"`
	OrderNumber       string      `json:"orderNumber"`
	Status            OrderStatus `json:"status"`
	TotalAmountCents  int64       `json:"totalAmountCents"`
	CheckoutSessionID string      `json:"checkoutSessionId"`
	CheckoutURL       string      `json:"checkoutUrl"`
}

type ApplyDiscountRequest struct {
	DiscountType DiscountType `json:"discountType" binding:"required,oneof=fixed percent"`
	Value        float64      `json:"value" binding:"required,gt=0"`
	Code         *string      `json:"code" binding:"omitempty,max=64"`
	Reason       *string      `json:"reason" binding:"omitempty,max=500"`
}

type IssueRefundRequest struct {
	AmountCents *int64  `json:"amountCents"`
	Reason      *string `json:"reason" binding:"omitempty,max=500"`
}

type StatusChangeRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note" binding:"max=1000"`
}

type NoteRequest struct {
	Note string `json:"note" binding:"max=1000"`
}

type CreateCommentRequest struct {
	PageNumber int    `json:"pageNumber" binding:"required,min=1"`
	Body       string `json:"body" binding:"required"`
}

type ReplyRequest struct {
	Body string `json:"body" binding:"required"`
}

// LedgerSummary is the admin view of an order's financial log.
type LedgerSummary struct {
	Order          *Order     `json:"order"`
	Payments       []Payment  `json:"payments"`
	Refunds        []Refund   `json:"refunds"`
	Discounts      []Discount `json:"discounts"`
	TotalPaid      int64      `json:"totalPaidCents"`
	TotalRefunded  int64      `json:"totalRefundedCents"`
	MaxRefundable  int64      `json:"maxRefundableCents"`
	ActiveDiscount *Discount  `json:"activeDiscount,omitempty"`
}

// OrderDetail is the read model for a single order.
type OrderDetail struct {
	Order   *Order          `json:"order"`
	History []StatusHistory `json:"history"`
}
