package controllers

import (
	"context"

	"storybook-order-service/middleware"
	"storybook-order-service/models"
	"storybook-order-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v80"
)

// --- Mock Services ---

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Checkout(ctx context.Context, actor models.Actor, req *models.CheckoutRequest) (*models.CheckoutResponse, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CheckoutResponse), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, actor models.Actor, orderID uuid.UUID) (*models.OrderDetail, error) {
	args := m.Called(ctx, actor, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OrderDetail), args.Error(1)
}

func (m *MockOrderService) ListCustomerOrders(ctx context.Context, actor models.Actor, page, limit int) (*services.OrderListResponse, error) {
	args := m.Called(ctx, actor, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.OrderListResponse), args.Error(1)
}

func (m *MockOrderService) ListAllOrders(ctx context.Context, status *models.OrderStatus, page, limit int) (*services.OrderListResponse, error) {
	args := m.Called(ctx, status, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.OrderListResponse), args.Error(1)
}

func (m *MockOrderService) ChangeStatus(ctx context.Context, actor models.Actor, orderID uuid.UUID, to models.OrderStatus, note string) (*models.Order, error) {
	args := m.Called(ctx, actor, orderID, to, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderService) RequestChanges(ctx context.Context, actor models.Actor, orderID uuid.UUID, note string) (*models.Order, error) {
	args := m.Called(ctx, actor, orderID, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderService) Approve(ctx context.Context, actor models.Actor, orderID uuid.UUID, note string) (*models.Order, error) {
	args := m.Called(ctx, actor, orderID, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

type MockCommentService struct {
	mock.Mock
}

func (m *MockCommentService) ListComments(ctx context.Context, actor models.Actor, orderID uuid.UUID, pageNumber int) ([]models.PageComment, error) {
	args := m.Called(ctx, actor, orderID, pageNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PageComment), args.Error(1)
}

func (m *MockCommentService) CreateComment(ctx context.Context, actor models.Actor, orderID uuid.UUID, pageNumber int, body string) (*models.PageComment, error) {
	args := m.Called(ctx, actor, orderID, pageNumber, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PageComment), args.Error(1)
}

func (m *MockCommentService) Reply(ctx context.Context, actor models.Actor, commentID uuid.UUID, body string) (*models.PageComment, error) {
	args := m.Called(ctx, actor, commentID, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PageComment), args.Error(1)
}

func (m *MockCommentService) Resolve(ctx context.Context, actor models.Actor, commentID uuid.UUID) (*models.PageComment, error) {
	args := m.Called(ctx, actor, commentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PageComment), args.Error(1)
}

func (m *MockCommentService) Reopen(ctx context.Context, actor models.Actor, commentID uuid.UUID) (*models.PageComment, error) {
	args := m.Called(ctx, actor, commentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PageComment), args.Error(1)
}

type MockFinanceService struct {
	mock.Mock
}

func (m *MockFinanceService) ApplyDiscount(ctx context.Context, actor models.Actor, orderID uuid.UUID, req *models.ApplyDiscountRequest) (*services.DiscountResult, error) {
	args := m.Called(ctx, actor, orderID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DiscountResult), args.Error(1)
}

func (m *MockFinanceService) IssueRefund(ctx context.Context, actor models.Actor, orderID uuid.UUID, req *models.IssueRefundRequest) (*services.RefundResult, error) {
	args := m.Called(ctx, actor, orderID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.RefundResult), args.Error(1)
}

func (m *MockFinanceService) GetLedger(ctx context.Context, orderID uuid.UUID) (*models.LedgerSummary, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerSummary), args.Error(1)
}

type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) HandleEvent(ctx context.Context, event stripe.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// --- helpers ---

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.AuthMiddleware(nil))
	return router
}

func actorHeaders(actor models.Actor) map[string]string {
	return map[string]string{
		"X-User-ID":   actor.UserID.String(),
		"X-User-Role": string(actor.Role),
	}
}
