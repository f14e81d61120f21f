package notifications

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"storybook-order-service/models"
	"storybook-order-service/sender"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	tmplOrderRefunded   = "order_refunded.html"
	tmplOrderApproved   = "order_approved.html"
	tmplCommentReplied  = "comment_replied.html"
	tmplCommentResolved = "comment_resolved.html"
)

// EmailNotifier renders HTML templates and sends them to the order's customer.
type EmailNotifier struct {
	sender      sender.EmailSender
	templates   *template.Template
	frontendURL string
	logger      *zap.Logger
}

func NewEmailNotifier(emailSender sender.EmailSender, frontendURL string, logger *zap.Logger) (*EmailNotifier, error) {
	tmpls, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	return &EmailNotifier{
		sender:      emailSender,
		templates:   tmpls,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger,
	}, nil
}

func formatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%.2f %s", float64(cents)/100, strings.ToUpper(currency))
}

func (n *EmailNotifier) orderURL(order *models.Order) string {
	return fmt.Sprintf("%s/orders/%s", n.frontendURL, order.ID)
}

func (n *EmailNotifier) send(ctx context.Context, order *models.Order, tmpl, subject string, data map[string]any) error {
	if order.CustomerEmail == "" {
		n.logger.Debug("order has no customer email, skipping", zap.String("order_id", order.ID.String()))
		return nil
	}
	data["OrderNumber"] = order.OrderNumber
	data["OrderURL"] = n.orderURL(order)

	var buf bytes.Buffer
	if err := n.templates.ExecuteTemplate(&buf, tmpl, data); err != nil {
		return fmt.Errorf("template render failed: %w", err)
	}
	res, err := n.sender.SendEmail(ctx, order.CustomerEmail, subject, buf.String())
	if err != nil {
		return err
	}
	n.logger.Info("notification sent",
		zap.String("template", tmpl),
		zap.String("order_id", order.ID.String()),
		zap.String("message_id", res.MessageID),
	)
	return nil
}

func (n *EmailNotifier) OrderRefunded(ctx context.Context, order *models.Order, refund *models.Refund) error {
	reason := ""
	if refund.Reason != nil {
		reason = *refund.Reason
	}
	return n.send(ctx, order, tmplOrderRefunded, "Your refund for order "+order.OrderNumber, map[string]any{
		"Amount": formatAmount(refund.AmountCents, refund.Currency),
		"Reason": reason,
	})
}

func (n *EmailNotifier) OrderApproved(ctx context.Context, order *models.Order) error {
	return n.send(ctx, order, tmplOrderApproved, "Your storybook is approved", map[string]any{})
}

// CommentReplied only emails the customer about replies from the design team.
func (n *EmailNotifier) CommentReplied(ctx context.Context, order *models.Order, comment *models.PageComment, reply *models.CommentReply) error {
	if !reply.AuthorRole.IsModerator() {
		return nil
	}
	return n.send(ctx, order, tmplCommentReplied, "New reply on your storybook preview", map[string]any{
		"PageNumber": comment.PageNumber,
		"Body":       reply.Body,
	})
}

func (n *EmailNotifier) CommentResolved(ctx context.Context, order *models.Order, comment *models.PageComment) error {
	return n.send(ctx, order, tmplCommentResolved, "A comment on your storybook was resolved", map[string]any{
		"PageNumber": comment.PageNumber,
	})
}
