package notifications

import (
	"context"
	"errors"

	"storybook-order-service/models"
	"storybook-order-service/services"

	"go.uber.org/zap"
)

// LogNotifier is used when no delivery channel is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) log(kind string, order *models.Order, fields ...zap.Field) error {
	n.logger.Info("notification", append([]zap.Field{
		zap.String("notification", kind),
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
	}, fields...)...)
	return nil
}

func (n *LogNotifier) OrderRefunded(_ context.Context, order *models.Order, refund *models.Refund) error {
	return n.log("order_refunded", order, zap.Int64("amount_cents", refund.AmountCents))
}

func (n *LogNotifier) OrderApproved(_ context.Context, order *models.Order) error {
	return n.log("order_approved", order)
}

func (n *LogNotifier) CommentReplied(_ context.Context, order *models.Order, comment *models.PageComment, _ *models.CommentReply) error {
	return n.log("comment_replied", order, zap.String("comment_id", comment.ID.String()))
}

func (n *LogNotifier) CommentResolved(_ context.Context, order *models.Order, comment *models.PageComment) error {
	return n.log("comment_resolved", order, zap.String("comment_id", comment.ID.String()))
}

// Multi delivers to every notifier and joins their errors.
type Multi []services.Notifier

func (m Multi) each(fn func(services.Notifier) error) error {
	var errs []error
	for _, n := range m {
		if err := fn(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) OrderRefunded(ctx context.Context, order *models.Order, refund *models.Refund) error {
	return m.each(func(n services.Notifier) error { return n.OrderRefunded(ctx, order, refund) })
}

func (m Multi) OrderApproved(ctx context.Context, order *models.Order) error {
	return m.each(func(n services.Notifier) error { return n.OrderApproved(ctx, order) })
}

func (m Multi) CommentReplied(ctx context.Context, order *models.Order, comment *models.PageComment, reply *models.CommentReply) error {
	return m.each(func(n services.Notifier) error { return n.CommentReplied(ctx, order, comment, reply) })
}

func (m Multi) CommentResolved(ctx context.Context, order *models.Order, comment *models.PageComment) error {
	return m.each(func(n services.Notifier) error { return n.CommentResolved(ctx, order, comment) })
}
