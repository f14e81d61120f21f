package services

import (
	"context"
	"errors"
	"strings"

	apperrors "storybook-order-service/common/errors"
	"storybook-order-service/models"
	"storybook-order-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type MetaData struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

func calculateTotalPages(total int64, limit int) int64 {
	if limit <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

// translate passes application errors through and turns everything else
// into a logged internal error.
func translate(logger *zap.Logger, op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("Resource not found")
	}
	logger.Error("store operation failed", zap.String("op", op), zap.Error(err))
	return apperrors.Internal("Failed to "+op, err)
}

func orderForUpdate(ctx context.Context, tx repository.LedgerRepository, id uuid.UUID) (*models.Order, error) {
	order, err := tx.GetOrderForUpdate(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Order not found")
	}
	return order, err
}

func commentByID(ctx context.Context, tx repository.LedgerRepository, id uuid.UUID) (*models.PageComment, error) {
	comment, err := tx.GetComment(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Comment not found")
	}
	return comment, err
}

func requireAccess(actor models.Actor, order *models.Order) error {
	if !actor.CanAccess(order) {
		return apperrors.Forbidden("You do not have access to this order")
	}
	return nil
}

func cleanText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
