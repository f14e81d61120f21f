package controllers

import (
	"io"
	"net/http"

	apperrors "storybook-order-service/common/errors"
	"storybook-order-service/common/logger"
	"storybook-order-service/services"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

const maxWebhookBodyBytes = int64(65536)

// EventVerifier checks a processor signature and decodes the event.
type EventVerifier interface {
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

type WebhookController struct {
	verifier EventVerifier
	service  services.WebhookService
	logger   *zap.Logger
}

func NewWebhookController(verifier EventVerifier, service services.WebhookService, logger *zap.Logger) *WebhookController {
	return &WebhookController{verifier: verifier, service: service, logger: logger}
}

// StripeWebhook handles POST /stripe/webhook. Non-2xx responses make Stripe
// redeliver the event.
func (wc *WebhookController) StripeWebhook(ctx *gin.Context) {
	log := logger.For(ctx, wc.logger)

	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		log.Warn("failed to read webhook body", zap.Error(err))
		apperrors.Respond(ctx, apperrors.Validation("Unreadable request body"))
		return
	}

	event, err := wc.verifier.ConstructEvent(payload, ctx.GetHeader("Stripe-Signature"))
	if err != nil {
		log.Warn("webhook signature verification failed", zap.Error(err))
		apperrors.Respond(ctx, apperrors.Unauthorized("Invalid webhook signature"))
		return
	}

	if err := wc.service.HandleEvent(ctx.Request.Context(), event); err != nil {
		log.Error("webhook processing failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "received"})
}
