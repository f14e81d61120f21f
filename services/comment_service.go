package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "storybook-order-service/common/errors"
	"storybook-order-service/models"
	"storybook-order-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxCommentBody = 5000

type CommentService interface {
	ListComments(ctx context.Context, actor models.Actor, orderID uuid.UUID, pageNumber int) ([]models.PageComment, error)
	CreateComment(ctx context.Context, actor models.Actor, orderID uuid.UUID, pageNumber int, body string) (*models.PageComment, error)
	Reply(ctx context.Context, actor models.Actor, commentID uuid.UUID, body string) (*models.PageComment, error)
	Resolve(ctx context.Context, actor models.Actor, commentID uuid.UUID) (*models.PageComment, error)
	Reopen(ctx context.Context, actor models.Actor, commentID uuid.UUID) (*models.PageComment, error)
}

type commentService struct {
	store    repository.LedgerStore
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewCommentService(store repository.LedgerStore, notifier Notifier, logger *zap.Logger) CommentService {
	return &commentService{store: store, notifier: notifier, logger: logger, now: time.Now}
}

func validateBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", apperrors.Validation("Comment body is required")
	}
	if utf8.RuneCountInString(body) > maxCommentBody {
		return "", apperrors.Validation("Comment body must be at most 5000 characters")
	}
	return body, nil
}

func requireReviewOpen(order *models.Order) error {
	if !inReview[order.Status] {
		return apperrors.InvalidState(apperrors.ReasonReviewClosed, "Order is not open for review").
			WithDetail("status", order.Status)
	}
	return nil
}

func (s *commentService) ListComments(ctx context.Context, actor models.Actor, orderID uuid.UUID, pageNumber int) ([]models.PageComment, error) {
	if pageNumber < 0 {
		return nil, apperrors.Validation("Page number must be positive")
	}
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperrors.NotFound("Order not found")
		}
		return nil, translate(s.logger, "fetch order", err)
	}
	if err := requireAccess(actor, order); err != nil {
		return nil, err
	}
	comments, err := s.store.ListComments(ctx, orderID, pageNumber)
	if err != nil {
		return nil, translate(s.logger, "fetch comments", err)
	}
	return comments, nil
}

func (s *commentService) CreateComment(ctx context.Context, actor models.Actor, orderID uuid.UUID, pageNumber int, body string) (*models.PageComment, error) {
	if pageNumber <= 0 {
		return nil, apperrors.Validation("Page number must be positive")
	}
	body, err := validateBody(body)
	if err != nil {
		return nil, err
	}

	var comment *models.PageComment
	err = s.store.RunInTx(ctx, func(tx repository.LedgerRepository) error {
		order, err := orderForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if err := requireAccess(actor, order); err != nil {
			return err
		}
		if err := requireReviewOpen(order); err != nil {
			return err
		}
		comment = &models.PageComment{
			ID:         uuid.New(),
			OrderID:    order.ID,
			PageNumber: pageNumber,
			Body:       body,
			Status:     models.CommentStatusOpen,
			AuthorID:   actor.UserID,
			AuthorRole: actor.Role,
		}
		return tx.CreateComment(ctx, comment)
	})
	if err != nil {
		return nil, translate(s.logger, "create comment", err)
	}
	return comment, nil
}

// threadTx loads a comment and its order, locking the order row so thread
// changes serialize with approval.
func (s *commentService) threadTx(ctx context.Context, actor models.Actor, commentID uuid.UUID, fn func(tx repository.LedgerRepository, order *models.Order, comment *models.PageComment) error) (*models.Order, *models.PageComment, error) {
	var order *models.Order
	var comment *models.PageComment
	err := s.store.RunInTx(ctx, func(tx repository.LedgerRepository) error {
		c, err := commentByID(ctx, tx, commentID)
		if err != nil {
			return err
		}
		o, err := orderForUpdate(ctx, tx, c.OrderID)
		if err != nil {
			return err
		}
		if err := requireAccess(actor, o); err != nil {
			return err
		}
		if err := fn(tx, o, c); err != nil {
			return err
		}
		order, comment = o, c
		return nil
	})
	return order, comment, err
}

// Reply appends to a thread. Moderators take precedence when the caller is
// both moderator and owner.
func (s *commentService) Reply(ctx context.Context, actor models.Actor, commentID uuid.UUID, body string) (*models.PageComment, error) {
	body, err := validateBody(body)
	if err != nil {
		return nil, err
	}

	var reply *models.CommentReply
	order, comment, err := s.threadTx(ctx, actor, commentID, func(tx repository.LedgerRepository, order *models.Order, c *models.PageComment) error {
		if c.Status == models.CommentStatusResolved {
			return apperrors.InvalidState(apperrors.ReasonThreadResolved, "Thread is resolved; reopen it to reply")
		}
		reply = &models.CommentReply{
			ID:         uuid.New(),
			CommentID:  c.ID,
			Body:       body,
			AuthorID:   actor.UserID,
			AuthorRole: actor.Role,
		}
		if err := tx.CreateReply(ctx, reply); err != nil {
			return err
		}
		if actor.Role.IsModerator() {
			c.Status = models.CommentStatusDesignerReplied
		} else {
			c.Status = models.CommentStatusCustomerReplied
		}
		if err := tx.UpdateComment(ctx, c); err != nil {
			return err
		}
		c.Replies = append(c.Replies, *reply)
		return nil
	})
	if err != nil {
		return nil, translate(s.logger, "reply to comment", err)
	}

	notify(ctx, s.logger, "comment_replied", order.ID.String(), func(nctx context.Context) error {
		return s.notifier.CommentReplied(nctx, order, comment, reply)
	})
	return comment, nil
}

// Resolve is idempotent: resolving a resolved thread returns it unchanged.
func (s *commentService) Resolve(ctx context.Context, actor models.Actor, commentID uuid.UUID) (*models.PageComment, error) {
	changed := false
	order, comment, err := s.threadTx(ctx, actor, commentID, func(tx repository.LedgerRepository, _ *models.Order, c *models.PageComment) error {
		if c.Status == models.CommentStatusResolved {
			return nil
		}
		now := s.now()
		c.Status = models.CommentStatusResolved
		c.ResolvedAt = &now
		c.ResolvedByUserID = actor.IDPtr()
		changed = true
		return tx.UpdateComment(ctx, c)
	})
	if err != nil {
		return nil, translate(s.logger, "resolve comment", err)
	}
	if changed {
		notify(ctx, s.logger, "comment_resolved", order.ID.String(), func(nctx context.Context) error {
			return s.notifier.CommentResolved(nctx, order, comment)
		})
	}
	return comment, nil
}

func (s *commentService) Reopen(ctx context.Context, actor models.Actor, commentID uuid.UUID) (*models.PageComment, error) {
	_, comment, err := s.threadTx(ctx, actor, commentID, func(tx repository.LedgerRepository, order *models.Order, c *models.PageComment) error {
		if c.Status != models.CommentStatusResolved {
			return apperrors.InvalidState(apperrors.ReasonThreadNotResolved, "Only resolved threads can be reopened")
		}
		if err := requireReviewOpen(order); err != nil {
			return err
		}
		c.Status = models.CommentStatusReopened
		c.ResolvedAt = nil
		c.ResolvedByUserID = nil
		return tx.UpdateComment(ctx, c)
	})
	if err != nil {
		return nil, translate(s.logger, "reopen comment", err)
	}
	return comment, nil
}
