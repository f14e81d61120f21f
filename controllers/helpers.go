package controllers

import (
	"strconv"

	apperrors "storybook-order-service/common/errors"
	"storybook-order-service/middleware"
	"storybook-order-service/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// parsePaginationParams extracts page/limit query params. Limits above 100
// are clamped by the service layer.
func parsePaginationParams(ctx *gin.Context) (int, int) {
	pageInt, limitInt := 1, 20
	if p, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && p > 0 {
		pageInt = p
	}
	if l, err := strconv.Atoi(ctx.DefaultQuery("limit", "20")); err == nil && l > 0 {
		limitInt = l
	}
	return pageInt, limitInt
}

func parseIDParam(ctx *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param(name))
	if err != nil {
		apperrors.Respond(ctx, apperrors.Validation("Invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

func actorFrom(ctx *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		apperrors.Respond(ctx, apperrors.Unauthorized("Unauthorized"))
	}
	return actor, ok
}

func bindJSON(ctx *gin.Context, req any) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		appErr := apperrors.Validation("Invalid request")
		if fields := fieldErrors(err); fields != nil {
			appErr = appErr.WithDetail("fields", fields)
		} else {
			appErr = appErr.WithDetail("details", err.Error())
		}
		apperrors.Respond(ctx, appErr)
		return false
	}
	return true
}
