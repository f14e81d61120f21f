package controllers

import (
	"context"
	"net/http"

	apperrors "storybook-order-service/common/errors"
	"storybook-order-service/models"
	"storybook-order-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type OrderController struct {
	orderService services.OrderService
}

func NewOrderController(orderService services.OrderService) *OrderController {
	return &OrderController{orderService: orderService}
}

// Checkout handles POST /orders/checkout
func (oc *OrderController) Checkout(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	var req models.CheckoutRequest
	if !bindJSON(ctx, &req) {
		return
	}

	resp, err := oc.orderService.Checkout(ctx.Request.Context(), actor, &req)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// GetOrders returns the caller's orders.
func (oc *OrderController) GetOrders(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	page, limit := parsePaginationParams(ctx)

	result, err := oc.orderService.ListCustomerOrders(ctx.Request.Context(), actor, page, limit)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// GetOrderByID returns one order with its status history.
func (oc *OrderController) GetOrderByID(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	detail, err := oc.orderService.GetOrder(ctx.Request.Context(), actor, orderID)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, detail)
}

// GetAllOrders lists every order, optionally filtered by ?status=.
func (oc *OrderController) GetAllOrders(ctx *gin.Context) {
	var status *models.OrderStatus
	if raw := ctx.Query("status"); raw != "" {
		s, ok := models.ParseOrderStatus(raw)
		if !ok {
			apperrors.Respond(ctx, apperrors.Validation("Unknown order status"))
			return
		}
		status = &s
	}
	page, limit := parsePaginationParams(ctx)

	result, err := oc.orderService.ListAllOrders(ctx.Request.Context(), status, page, limit)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// UpdateStatus handles POST /orders/:id/status for fulfilment edges.
func (oc *OrderController) UpdateStatus(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req models.StatusChangeRequest
	if !bindJSON(ctx, &req) {
		return
	}
	to, valid := models.ParseOrderStatus(req.Status)
	if !valid {
		apperrors.Respond(ctx, apperrors.Validation("Unknown order status"))
		return
	}

	order, err := oc.orderService.ChangeStatus(ctx.Request.Context(), actor, orderID, to, req.Note)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"order": order})
}

func (oc *OrderController) RequestChanges(ctx *gin.Context) {
	oc.customerAction(ctx, oc.orderService.RequestChanges)
}

func (oc *OrderController) Approve(ctx *gin.Context) {
	oc.customerAction(ctx, oc.orderService.Approve)
}

type noteAction func(ctx context.Context, actor models.Actor, orderID uuid.UUID, note string) (*models.Order, error)

func (oc *OrderController) customerAction(ctx *gin.Context, action noteAction) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req models.NoteRequest
	if ctx.Request.ContentLength != 0 && !bindJSON(ctx, &req) {
		return
	}

	order, err := action(ctx.Request.Context(), actor, orderID, req.Note)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"order": order})
}
