package services

import (
	"context"
	"fmt"
	"time"

	apperrors "storybook-order-service/common/errors"
	"storybook-order-service/models"
	"storybook-order-service/repository"

	"github.com/google/uuid"
)

var refundable = []models.OrderStatus{
	models.OrderStatusRefundedPartial,
	models.OrderStatusRefundedFull,
}

// transitions lists every legal status edge. Self-edges appear only where a
// repeated financial event is expected (successive partial refunds).
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusDraft:          {models.OrderStatusPaymentPending, models.OrderStatusPaid},
	models.OrderStatusPaymentPending: {models.OrderStatusPaid},
	models.OrderStatusPaid: append([]models.OrderStatus{
		models.OrderStatusPaymentPending,
		models.OrderStatusPreviewReady,
	}, refundable...),
	models.OrderStatusPreviewReady: append([]models.OrderStatus{
		models.OrderStatusInReview,
		models.OrderStatusChangesRequested,
		models.OrderStatusApprovedByCustomer,
	}, refundable...),
	models.OrderStatusInReview: append([]models.OrderStatus{
		models.OrderStatusChangesRequested,
		models.OrderStatusApprovedByCustomer,
	}, refundable...),
	models.OrderStatusChangesRequested: append([]models.OrderStatus{
		models.OrderStatusChangesApplied,
	}, refundable...),
	models.OrderStatusChangesApplied: append([]models.OrderStatus{
		models.OrderStatusChangesRequested,
		models.OrderStatusApprovedByCustomer,
	}, refundable...),
	models.OrderStatusApprovedByCustomer: append([]models.OrderStatus{models.OrderStatusProductionReady}, refundable...),
	models.OrderStatusProductionReady:    append([]models.OrderStatus{models.OrderStatusInProduction}, refundable...),
	models.OrderStatusInProduction:       append([]models.OrderStatus{models.OrderStatusShipped}, refundable...),
	models.OrderStatusShipped:            append([]models.OrderStatus{models.OrderStatusDelivered}, refundable...),
	models.OrderStatusDelivered:          append([]models.OrderStatus{models.OrderStatusCompleted}, refundable...),
	models.OrderStatusCompleted:          refundable,
	models.OrderStatusRefundedPartial:    refundable,
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// restrictedTargets are financial or customer-owned statuses, never reachable
// through the generic moderator endpoint.
var restrictedTargets = map[models.OrderStatus]bool{
	models.OrderStatusPaymentPending:     true,
	models.OrderStatusPaid:               true,
	models.OrderStatusRefundedPartial:    true,
	models.OrderStatusRefundedFull:       true,
	models.OrderStatusChangesRequested:   true,
	models.OrderStatusApprovedByCustomer: true,
}

// IsFulfilmentEdge reports whether a moderator may drive from -> to directly.
func IsFulfilmentEdge(from, to models.OrderStatus) bool {
	return !restrictedTargets[to] && CanTransition(from, to)
}

// inReview lists the statuses during which review threads may be opened.
var inReview = map[models.OrderStatus]bool{
	models.OrderStatusPaid:             true,
	models.OrderStatusPreviewReady:     true,
	models.OrderStatusInReview:         true,
	models.OrderStatusChangesRequested: true,
	models.OrderStatusChangesApplied:   true,
}

func illegalTransition(from, to models.OrderStatus) error {
	return apperrors.InvalidState(apperrors.ReasonIllegalTransition,
		fmt.Sprintf("Order cannot move from %s to %s", from, to)).
		WithDetail("from", from).
		WithDetail("to", to)
}

// transition validates and applies one status change inside tx. The order is
// mutated only after validation passes, so a rejected transition leaves both
// the row and the caller's copy untouched.
func transition(ctx context.Context, tx repository.LedgerRepository, order *models.Order, to models.OrderStatus, actor *models.Actor, note string, now time.Time) error {
	from := order.Status
	if !CanTransition(from, to) {
		return illegalTransition(from, to)
	}

	updated := *order
	updated.Status = to
	switch to {
	case models.OrderStatusPaid:
		updated.PreviewUnlockedAt = &now
	case models.OrderStatusPreviewReady:
		if updated.PreviewUnlockedAt == nil {
			updated.PreviewUnlockedAt = &now
		}
	case models.OrderStatusApprovedByCustomer:
		updated.ApprovedAt = &now
	}

	if err := tx.UpdateOrder(ctx, &updated); err != nil {
		return err
	}
	if err := appendHistory(ctx, tx, order.ID, &from, to, actor, note); err != nil {
		return err
	}
	*order = updated
	return nil
}

// recordAudit writes the order and a history row whose from and to are the
// current status, documenting a financial change without a state change.
func recordAudit(ctx context.Context, tx repository.LedgerRepository, order *models.Order, actor *models.Actor, note string) error {
	if err := tx.UpdateOrder(ctx, order); err != nil {
		return err
	}
	from := order.Status
	return appendHistory(ctx, tx, order.ID, &from, order.Status, actor, note)
}

func appendHistory(ctx context.Context, tx repository.LedgerRepository, orderID uuid.UUID, from *models.OrderStatus, to models.OrderStatus, actor *models.Actor, note string) error {
	entry := &models.StatusHistory{
		ID:         uuid.New(),
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
		Note:       note,
	}
	if actor != nil {
		entry.ChangedByID = actor.IDPtr()
	}
	return tx.AppendStatusHistory(ctx, entry)
}
