package models

import (
	"time"

	"github.com/google/uuid"
)

type Order struct {
	ID                      uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNumber             string      `gorm:"type:varchar(40);uniqueIndex;not null" json:"orderNumber"`
	CustomerID              uuid.UUID   `gorm:"type:uuid;not null;index" json:"customerId"`
	CustomerEmail           string      `gorm:"type:varchar(255)" json:"customerEmail,omitempty"`
	Status                  OrderStatus `gorm:"type:varchar(32);not null;index" json:"status"`
	Currency                string      `gorm:"type:varchar(10);not null" json:"currency"`
	SubtotalAmountCents     int64       `gorm:"not null;default:0" json:"subtotalAmountCents"`
	ShippingAmountCents     int64       `gorm:"not null;default:0" json:"shippingAmountCents"`
	DiscountAmountCents     int64       `gorm:"not null;default:0" json:"discountAmountCents"`
	TotalAmountCents        int64       `gorm:"not null;default:0" json:"totalAmountCents"`
	StripeCheckoutSessionID *string     `gorm:"type:varchar(255);uniqueIndex" json:"stripeCheckoutSessionId,omitempty"`
	PreviewUnlockedAt       *time.Time  `json:"previewUnlockedAt,omitempty"`
	ApprovedAt              *time.Time  `json:"approvedAt,omitempty"`
	CreatedAt               time.Time   `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt               time.Time   `gorm:"autoUpdateTime" json:"updatedAt"`
	Items                   []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// BaseAmountCents is the pre-discount amount a discount is measured against.
func (o *Order) BaseAmountCents() int64 {
	return o.SubtotalAmountCents + o.ShippingAmountCents
}

// RecalculateTotal re-derives totalAmountCents from its components.
func (o *Order) RecalculateTotal() {
	total := o.BaseAmountCents() - o.DiscountAmountCents
	if total < 0 {
		total = 0
	}
	o.TotalAmountCents = total
}

type OrderItem struct {
	ID              uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID         uuid.UUID `gorm:"type:uuid;not null;index" json:"orderId"`
	SKU             string    `gorm:"type:varchar(64);not null" json:"sku"`
	Title           string    `gorm:"type:varchar(255);not null" json:"title"`
	Quantity        int       `gorm:"not null" json:"quantity"`
	UnitAmountCents int64     `gorm:"not null" json:"unitAmountCents"`
	LineAmountCents int64     `gorm:"not null" json:"lineAmountCents"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// StatusHistory is one append-only audit row per status write.
type StatusHistory struct {
	ID          uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID     uuid.UUID    `gorm:"type:uuid;not null;index" json:"orderId"`
	FromStatus  *OrderStatus `gorm:"type:varchar(32)" json:"fromStatus"`
	ToStatus    OrderStatus  `gorm:"type:varchar(32);not null" json:"toStatus"`
	ChangedByID *uuid.UUID   `gorm:"type:uuid" json:"changedById,omitempty"`
	Note        string       `gorm:"type:text" json:"note"`
	CreatedAt   time.Time    `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (StatusHistory) TableName() string { return "order_status_history" }
