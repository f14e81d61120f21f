package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storybook-order-service/models"
	aws_pkg "storybook-order-service/pkg/aws"
)

// Event types published to the order topic.
const (
	EventOrderRefunded   = "order.refunded"
	EventOrderApproved   = "order.approved"
	EventCommentReplied  = "comment.replied"
	EventCommentResolved = "comment.resolved"
)

type OrderEvent struct {
	Type        string             `json:"type"`
	OrderID     string             `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	CustomerID  string             `json:"customer_id"`
	Email       string             `json:"email,omitempty"`
	Status      models.OrderStatus `json:"status"`
	AmountCents int64              `json:"amount_cents,omitempty"`
	Currency    string             `json:"currency,omitempty"`
	CommentID   string             `json:"comment_id,omitempty"`
	PageNumber  int                `json:"page_number,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}

// SNSNotifier fans order events out to downstream subscribers.
type SNSNotifier struct {
	publisher aws_pkg.SNSPublisher
	topicArn  string
	now       func() time.Time
}

func NewSNSNotifier(publisher aws_pkg.SNSPublisher, topicArn string) *SNSNotifier {
	return &SNSNotifier{publisher: publisher, topicArn: topicArn, now: time.Now}
}

func (n *SNSNotifier) baseEvent(eventType string, order *models.Order) OrderEvent {
	return OrderEvent{
		Type:        eventType,
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID.String(),
		Email:       order.CustomerEmail,
		Status:      order.Status,
		Currency:    order.Currency,
		Timestamp:   n.now().UTC(),
	}
}

func (n *SNSNotifier) publish(ctx context.Context, ev OrderEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}
	return n.publisher.Publish(ctx, n.topicArn, body, map[string]string{"event_type": ev.Type})
}

func (n *SNSNotifier) OrderRefunded(ctx context.Context, order *models.Order, refund *models.Refund) error {
	ev := n.baseEvent(EventOrderRefunded, order)
	ev.AmountCents = refund.AmountCents
	return n.publish(ctx, ev)
}

func (n *SNSNotifier) OrderApproved(ctx context.Context, order *models.Order) error {
	return n.publish(ctx, n.baseEvent(EventOrderApproved, order))
}

func (n *SNSNotifier) CommentReplied(ctx context.Context, order *models.Order, comment *models.PageComment, _ *models.CommentReply) error {
	ev := n.baseEvent(EventCommentReplied, order)
	ev.CommentID = comment.ID.String()
	ev.PageNumber = comment.PageNumber
	return n.publish(ctx, ev)
}

func (n *SNSNotifier) CommentResolved(ctx context.Context, order *models.Order, comment *models.PageComment) error {
	ev := n.baseEvent(EventCommentResolved, order)
	ev.CommentID = comment.ID.String()
	ev.PageNumber = comment.PageNumber
	return n.publish(ctx, ev)
}
