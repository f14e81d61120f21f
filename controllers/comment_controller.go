package controllers

import (
	"context"
	"net/http"
	"strconv"

	apperrors "storybook-order-service/common/errors"
	"storybook-order-service/models"
	"storybook-order-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CommentController struct {
	commentService services.CommentService
}

func NewCommentController(commentService services.CommentService) *CommentController {
	return &CommentController{commentService: commentService}
}

// ListComments handles GET /orders/:id/comments?page=N
func (cc *CommentController) ListComments(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	pageNumber := 0
	if raw := ctx.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			apperrors.Respond(ctx, apperrors.Validation("page must be a positive integer"))
			return
		}
		pageNumber = n
	}

	comments, err := cc.commentService.ListComments(ctx.Request.Context(), actor, orderID, pageNumber)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"comments": comments})
}

// CreateComment handles POST /orders/:id/comments
func (cc *CommentController) CreateComment(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req models.CreateCommentRequest
	if !bindJSON(ctx, &req) {
		return
	}

	comment, err := cc.commentService.CreateComment(ctx.Request.Context(), actor, orderID, req.PageNumber, req.Body)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"comment": comment})
}

// Reply handles POST /comments/:commentId/replies
func (cc *CommentController) Reply(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	commentID, ok := parseIDParam(ctx, "commentId")
	if !ok {
		return
	}
	var req models.ReplyRequest
	if !bindJSON(ctx, &req) {
		return
	}

	comment, err := cc.commentService.Reply(ctx.Request.Context(), actor, commentID, req.Body)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"comment": comment})
}

func (cc *CommentController) Resolve(ctx *gin.Context) {
	cc.threadAction(ctx, cc.commentService.Resolve)
}

func (cc *CommentController) Reopen(ctx *gin.Context) {
	cc.threadAction(ctx, cc.commentService.Reopen)
}

func (cc *CommentController) threadAction(ctx *gin.Context, action func(context.Context, models.Actor, uuid.UUID) (*models.PageComment, error)) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	commentID, ok := parseIDParam(ctx, "commentId")
	if !ok {
		return
	}

	comment, err := action(ctx.Request.Context(), actor, commentID)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"comment": comment})
}
