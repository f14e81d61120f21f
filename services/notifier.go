package services

import (
	"context"
	"time"

	"storybook-order-service/models"

	"go.uber.org/zap"
)

// Notifier delivers customer-facing side effects of committed changes.
type Notifier interface {
	OrderRefunded(ctx context.Context, order *models.Order, refund *models.Refund) error
	OrderApproved(ctx context.Context, order *models.Order) error
	CommentReplied(ctx context.Context, order *models.Order, comment *models.PageComment, reply *models.CommentReply) error
	CommentResolved(ctx context.Context, order *models.Order, comment *models.PageComment) error
}

const notifyTimeout = 10 * time.Second

// notify runs fn after a commit. The request context's cancellation is
// dropped so a client disconnect does not abort delivery; failures are only logged.
func notify(ctx context.Context, logger *zap.Logger, kind string, orderID string, fn func(ctx context.Context) error) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := fn(nctx); err != nil {
		logger.Warn("notification failed",
			zap.String("notification", kind),
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
}
