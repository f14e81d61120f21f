package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Payment is one processor-reported payment attempt. PaymentKey is the
// idempotency boundary for webhook redelivery.
type Payment struct {
	ID                      uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID                 uuid.UUID      `gorm:"type:uuid;not null;index" json:"orderId"`
	PaymentKey              string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"paymentKey"`
	StripePaymentIntentID   *string        `gorm:"type:varchar(255);index" json:"stripePaymentIntentId,omitempty"`
	StripeCheckoutSessionID *string        `gorm:"type:varchar(255)" json:"stripeCheckoutSessionId,omitempty"`
	StripeEventID           string         `gorm:"type:varchar(255)" json:"stripeEventId"`
	AmountCents             int64          `gorm:"not null" json:"amountCents"`
	Currency                string         `gorm:"type:varchar(10);not null" json:"currency"`
	Status                  PaymentStatus  `gorm:"type:varchar(20);not null" json:"status"`
	EventType               string         `gorm:"type:varchar(80);not null" json:"eventType"`
	RawMetadata             datatypes.JSON `gorm:"type:jsonb" json:"rawMetadata,omitempty"`
	CreatedAt               time.Time      `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt               time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

type Refund struct {
	ID                    uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID               uuid.UUID `gorm:"type:uuid;not null;index" json:"orderId"`
	PaymentID             uuid.UUID `gorm:"type:uuid;not null;index" json:"paymentId"`
	AmountCents           int64     `gorm:"not null" json:"amountCents"`
	Currency              string    `gorm:"type:varchar(10);not null" json:"currency"`
	Reason                *string   `gorm:"type:varchar(500)" json:"reason,omitempty"`
	StripeRefundID        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"stripeRefundId"`
	StripePaymentIntentID string    `gorm:"type:varchar(255);not null" json:"stripePaymentIntentId"`
	IssuedByID            uuid.UUID `gorm:"type:uuid;not null" json:"issuedById"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// Discount records the resolved cents value applied, not the admin's input.
type Discount struct {
	ID           uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID      uuid.UUID    `gorm:"type:uuid;not null;index" json:"orderId"`
	DiscountType DiscountType `gorm:"type:varchar(20);not null" json:"discountType"`
	InputValue   float64      `gorm:"not null" json:"inputValue"`
	AmountCents  int64        `gorm:"not null" json:"amountCents"`
	Code         *string      `gorm:"type:varchar(64)" json:"code,omitempty"`
	Reason       *string      `gorm:"type:varchar(500)" json:"reason,omitempty"`
	CreatedByID  uuid.UUID    `gorm:"type:uuid;not null" json:"createdById"`
	CreatedAt    time.Time    `gorm:"autoCreateTime;index" json:"createdAt"`
}
