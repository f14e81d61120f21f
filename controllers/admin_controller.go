package controllers

import (
	"net/http"

	apperrors "storybook-order-service/common/errors"
	"storybook-order-service/models"
	"storybook-order-service/services"

	"github.com/gin-gonic/gin"
)

// AdminController exposes the finance ledger to admins.
type AdminController struct {
	financeService services.FinanceService
}

func NewAdminController(financeService services.FinanceService) *AdminController {
	return &AdminController{financeService: financeService}
}

// ApplyDiscount handles POST /admin/orders/:id/discount
func (ac *AdminController) ApplyDiscount(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req models.ApplyDiscountRequest
	if !bindJSON(ctx, &req) {
		return
	}

	result, err := ac.financeService.ApplyDiscount(ctx.Request.Context(), actor, orderID, &req)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// IssueRefund handles POST /admin/orders/:id/refund. An empty body refunds
// the remaining balance.
func (ac *AdminController) IssueRefund(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req models.IssueRefundRequest
	if ctx.Request.ContentLength != 0 && !bindJSON(ctx, &req) {
		return
	}

	result, err := ac.financeService.IssueRefund(ctx.Request.Context(), actor, orderID, &req)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, result)
}

// GetLedger handles GET /admin/orders/:id/ledger
func (ac *AdminController) GetLedger(ctx *gin.Context) {
	orderID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	summary, err := ac.financeService.GetLedger(ctx.Request.Context(), orderID)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, summary)
}
