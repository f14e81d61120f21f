package models

import "strings"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusDraft              OrderStatus = "DRAFT"
	OrderStatusPaymentPending     OrderStatus = "PAYMENT_PENDING"
	OrderStatusPaid               OrderStatus = "PAID"
	OrderStatusPreviewReady       OrderStatus = "PREVIEW_READY"
	OrderStatusInReview           OrderStatus = "IN_REVIEW"
	OrderStatusChangesRequested   OrderStatus = "CHANGES_REQUESTED"
	OrderStatusChangesApplied     OrderStatus = "CHANGES_APPLIED"
	OrderStatusApprovedByCustomer OrderStatus = "APPROVED_BY_CUSTOMER"
	OrderStatusProductionReady    OrderStatus = "PRODUCTION_READY"
	OrderStatusInProduction       OrderStatus = "IN_PRODUCTION"
	OrderStatusShipped            OrderStatus = "SHIPPED"
	OrderStatusDelivered          OrderStatus = "DELIVERED"
	OrderStatusCompleted          OrderStatus = "COMPLETED"
	OrderStatusRefundedPartial    OrderStatus = "REFUNDED_PARTIAL"
	OrderStatusRefundedFull       OrderStatus = "REFUNDED_FULL"
)

var allOrderStatuses = []OrderStatus{
	OrderStatusDraft,
	OrderStatusPaymentPending,
	OrderStatusPaid,
	OrderStatusPreviewReady,
	OrderStatusInReview,
	OrderStatusChangesRequested,
	OrderStatusChangesApplied,
	OrderStatusApprovedByCustomer,
	OrderStatusProductionReady,
	OrderStatusInProduction,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusRefundedPartial,
	OrderStatusRefundedFull,
}

// ParseOrderStatus validates an external status string.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	candidate := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range allOrderStatuses {
		if st == candidate {
			return st, true
		}
	}
	return "", false
}

// IsPayable reports whether the order has not yet been paid for.
func (s OrderStatus) IsPayable() bool {
	return s == OrderStatusDraft || s == OrderStatusPaymentPending
}

// CommentStatus is the resolution state of a page comment thread.
type CommentStatus string

const (
	CommentStatusOpen            CommentStatus = "OPEN"
	CommentStatusDesignerReplied CommentStatus = "DESIGNER_REPLIED"
	CommentStatusCustomerReplied CommentStatus = "CUSTOMER_REPLIED"
	CommentStatusResolved        CommentStatus = "RESOLVED"
	CommentStatusReopened        CommentStatus = "REOPENED"
)

// UnresolvedCommentStatuses block customer approval.
var UnresolvedCommentStatuses = []CommentStatus{
	CommentStatusOpen,
	CommentStatusDesignerReplied,
	CommentStatusCustomerReplied,
	CommentStatusReopened,
}

// IsUnresolved reports whether the thread still gates approval.
func (s CommentStatus) IsUnresolved() bool {
	return s != CommentStatusResolved
}

// PaymentStatus is the processor-reported outcome of a payment attempt.
type PaymentStatus string

const (
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// DiscountType selects how a discount value is interpreted.
type DiscountType string

const (
	DiscountTypeFixed   DiscountType = "fixed"
	DiscountTypePercent DiscountType = "percent"
)
