package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "storybook-order-service/common/errors"
	"storybook-order-service/models"
	"storybook-order-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrderListResponse struct {
	Orders []models.Order `json:"orders"`
	Meta   MetaData       `json:"meta"`
}

// CheckoutConfig carries the storefront settings checkout needs.
type CheckoutConfig struct {
	DefaultCurrency string
	SuccessURL      string
	CancelURL       string
}

type OrderService interface {
	Checkout(ctx context.Context, actor models.Actor, req *models.CheckoutRequest) (*models.CheckoutResponse, error)
	GetOrder(ctx context.Context, actor models.Actor, orderID uuid.UUID) (*models.OrderDetail, error)
	ListCustomerOrders(ctx context.Context, actor models.Actor, page, limit int) (*OrderListResponse, error)
	ListAllOrders(ctx context.Context, status *models.OrderStatus, page, limit int) (*OrderListResponse, error)
	ChangeStatus(ctx context.Context, actor models.Actor, orderID uuid.UUID, to models.OrderStatus, note string) (*models.Order, error)
	RequestChanges(ctx context.Context, actor models.Actor, orderID uuid.UUID, note string) (*models.Order, error)
	Approve(ctx context.Context, actor models.Actor, orderID uuid.UUID, note string) (*models.Order, error)
}

type orderService struct {
	store     repository.LedgerStore
	processor PaymentProcessor
	notifier  Notifier
	logger    *zap.Logger
	cfg       CheckoutConfig
	now       func() time.Time
}

func NewOrderService(store repository.LedgerStore, processor PaymentProcessor, notifier Notifier, logger *zap.Logger, cfg CheckoutConfig) OrderService {
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "usd"
	}
	return &orderService{
		store:     store,
		processor: processor,
		notifier:  notifier,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// newOrderNumber is time-derived for readability with a random suffix for uniqueness.
func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("060102150405"), suffix)
}

func buildItems(req []models.CheckoutItemRequest) ([]models.OrderItem, int64, error) {
	if len(req) == 0 {
		return nil, 0, apperrors.Validation("At least one item is required")
	}
	if len(req) > models.MaxCheckoutItems {
		return nil, 0, apperrors.Validation(fmt.Sprintf("At most %d items are allowed", models.MaxCheckoutItems))
	}
	items := make([]models.OrderItem, 0, len(req))
	var subtotal int64
	for _, it := range req {
		if it.Quantity <= 0 {
			return nil, 0, apperrors.Validation("Item quantity must be positive")
		}
		if it.Quantity > models.MaxItemQuantity {
			return nil, 0, apperrors.Validation(fmt.Sprintf("Item quantity cannot exceed %d", models.MaxItemQuantity))
		}
		if it.UnitAmountCents < 0 {
			return nil, 0, apperrors.Validation("Item amount must not be negative")
		}
		if it.UnitAmountCents > models.MaxAmountCents {
			return nil, 0, apperrors.Validation(fmt.Sprintf("Item amount cannot exceed %d cents", models.MaxAmountCents))
		}
		// bounded above, so neither the product nor the sum can wrap
		line := int64(it.Quantity) * it.UnitAmountCents
		items = append(items, models.OrderItem{
			ID:              uuid.New(),
			SKU:             strings.TrimSpace(it.SKU),
			Title:           strings.TrimSpace(it.Title),
			Quantity:        it.Quantity,
			UnitAmountCents: it.UnitAmountCents,
			LineAmountCents: line,
		})
		subtotal += line
	}
	return items, subtotal, nil
}

// resolveActiveDiscount recomputes the active discount against the order's
// current base. Without a recorded discount the cached amount is only clamped.
func resolveActiveDiscount(ctx context.Context, tx repository.LedgerRepository, order *models.Order) error {
	if order.DiscountAmountCents == 0 {
		return nil
	}
	base := order.BaseAmountCents()
	discounts, err := tx.ListDiscounts(ctx, order.ID)
	if err != nil {
		return err
	}
	if n := len(discounts); n > 0 {
		active := discounts[n-1]
		order.DiscountAmountCents = ComputeDiscount(base, active.DiscountType, active.InputValue)
		return nil
	}
	order.DiscountAmountCents = min(order.DiscountAmountCents, base)
	return nil
}

// checkoutKey changes whenever the charged content changes, so a retried
// checkout for the same cart reuses the processor session request.
func checkoutKey(order *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%d|%d|%d", order.ID, order.Currency, order.ShippingAmountCents, order.DiscountAmountCents, order.TotalAmountCents)
	for _, it := range order.Items {
		fmt.Fprintf(&b, "|%s:%d:%d", it.SKU, it.Quantity, it.UnitAmountCents)
	}
	return "checkout-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(b.String())).String()
}

func describeItems(items []models.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%d x %s", it.Quantity, it.Title))
	}
	return strings.Join(parts, ", ")
}

func (s *orderService) Checkout(ctx context.Context, actor models.Actor, req *models.CheckoutRequest) (*models.CheckoutResponse, error) {
	if actor.UserID == uuid.Nil {
		return nil, apperrors.Unauthorized("Unauthorized")
	}
	if req.ShippingAmountCents < 0 {
		return nil, apperrors.Validation("Shipping amount must not be negative")
	}
	if req.ShippingAmountCents > models.MaxAmountCents {
		return nil, apperrors.Validation(fmt.Sprintf("Shipping amount cannot exceed %d cents", models.MaxAmountCents))
	}
	items, subtotal, err := buildItems(req.Items)
	if err != nil {
		return nil, err
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}

	var order *models.Order
	err = s.store.RunInTx(ctx, func(tx repository.LedgerRepository) error {
		now := s.now()
		if req.OrderID == nil {
			order = &models.Order{
				ID:                  uuid.New(),
				OrderNumber:         newOrderNumber(now),
				CustomerID:          actor.UserID,
				CustomerEmail:       actor.Email,
				Status:              models.OrderStatusDraft,
				Currency:            currency,
				SubtotalAmountCents: subtotal,
				ShippingAmountCents: req.ShippingAmountCents,
				Items:               items,
			}
			order.RecalculateTotal()
			if order.TotalAmountCents == 0 {
				return apperrors.PreconditionFailed(apperrors.ReasonZeroTotalCheckout, "Order total must be greater than zero")
			}
			if err := tx.CreateOrder(ctx, order); err != nil {
				return err
			}
			return appendHistory(ctx, tx, order.ID, nil, models.OrderStatusDraft, &actor, "Order created at checkout")
		}

		existing, err := orderForUpdate(ctx, tx, *req.OrderID)
		if err != nil {
			return err
		}
		if !actor.Owns(existing) {
			return apperrors.Forbidden("You do not have access to this order")
		}
		if !existing.Status.IsPayable() {
			return apperrors.PreconditionFailed(apperrors.ReasonOrderNotPayable, "Order has already been paid")
		}

		existing.Currency = currency
		existing.SubtotalAmountCents = subtotal
		existing.ShippingAmountCents = req.ShippingAmountCents
		previous := existing.DiscountAmountCents
		if err := resolveActiveDiscount(ctx, tx, existing); err != nil {
			return err
		}
		existing.RecalculateTotal()
		if existing.TotalAmountCents == 0 {
			return apperrors.PreconditionFailed(apperrors.ReasonZeroTotalCheckout, "Order total must be greater than zero")
		}
		if err := tx.ReplaceOrderItems(ctx, existing.ID, items); err != nil {
			return err
		}
		if existing.DiscountAmountCents != previous {
			note := fmt.Sprintf("Discount re-resolved for updated cart: %d -> %d cents", previous, existing.DiscountAmountCents)
			if err := recordAudit(ctx, tx, existing, &actor, note); err != nil {
				return err
			}
		} else if err := tx.UpdateOrder(ctx, existing); err != nil {
			return err
		}
		existing.Items = items
		order = existing
		return nil
	})
	if err != nil {
		return nil, translate(s.logger, "prepare checkout", err)
	}

	sess, err := s.processor.CreateCheckoutSession(ctx, CheckoutSessionInput{
		OrderID:        order.ID.String(),
		OrderNumber:    order.OrderNumber,
		CustomerID:     order.CustomerID.String(),
		CustomerEmail:  order.CustomerEmail,
		Currency:       order.Currency,
		AmountCents:    order.TotalAmountCents,
		Description:    describeItems(order.Items),
		SuccessURL:     s.cfg.SuccessURL,
		CancelURL:      s.cfg.CancelURL,
		IdempotencyKey: checkoutKey(order),
	})
	if err != nil {
		s.logger.Error("checkout session creation failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		return nil, apperrors.UpstreamPayment("Payment provider unavailable", err)
	}

	err = s.store.RunInTx(ctx, func(tx repository.LedgerRepository) error {
		current, err := orderForUpdate(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if !current.Status.IsPayable() {
			// a webhook already settled this order
			order = current
			return nil
		}
		current.StripeCheckoutSessionID = &sess.ID
		if current.Status == models.OrderStatusDraft {
			if err := transition(ctx, tx, current, models.OrderStatusPaymentPending, &actor, "Checkout session created", s.now()); err != nil {
				return err
			}
		} else if err := tx.UpdateOrder(ctx, current); err != nil {
			return err
		}
		order = current
		return nil
	})
	if err != nil {
		return nil, translate(s.logger, "record checkout session", err)
	}

	s.logger.Info("checkout session created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("total_cents", order.TotalAmountCents),
	)

	return &models.CheckoutResponse{
		OrderID:           order.ID,
		OrderNumber:       order.OrderNumber,
		Status:            order.Status,
		TotalAmountCents:  order.TotalAmountCents,
		CheckoutSessionID: sess.ID,
		CheckoutURL:       sess.URL,
	}, nil
}

func (s *orderService) GetOrder(ctx context.Context, actor models.Actor, orderID uuid.UUID) (*models.OrderDetail, error) {
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
	history, err := s.store.ListStatusHistory(ctx, orderID)
	if err != nil {
		return nil, translate(s.logger, "fetch order history", err)
	}
	return &models.OrderDetail{Order: order, History: history}, nil
}

func (s *orderService) ListCustomerOrders(ctx context.Context, actor models.Actor, page, limit int) (*OrderListResponse, error) {
	page, limit = normalizePage(page, limit)
	customerID := actor.UserID
	return s.list(ctx, repository.OrderFilter{CustomerID: &customerID, Page: page, Limit: limit})
}

func (s *orderService) ListAllOrders(ctx context.Context, status *models.OrderStatus, page, limit int) (*OrderListResponse, error) {
	page, limit = normalizePage(page, limit)
	return s.list(ctx, repository.OrderFilter{Status: status, Page: page, Limit: limit})
}

func (s *orderService) list(ctx context.Context, filter repository.OrderFilter) (*OrderListResponse, error) {
	orders, total, err := s.store.ListOrders(ctx, filter)
	if err != nil {
		return nil, translate(s.logger, "fetch orders", err)
	}
	return &OrderListResponse{
		Orders: orders,
		Meta: MetaData{
			Page:       filter.Page,
			Limit:      filter.Limit,
			Total:      total,
			TotalPages: calculateTotalPages(total, filter.Limit),
			HasMore:    total > int64(filter.Page*filter.Limit),
		},
	}, nil
}

// ChangeStatus drives fulfilment edges on behalf of a moderator.
func (s *orderService) ChangeStatus(ctx context.Context, actor models.Actor, orderID uuid.UUID, to models.OrderStatus, note string) (*models.Order, error) {
	if !actor.Role.IsModerator() {
		return nil, apperrors.Forbidden("Moderator role required")
	}
	var order *models.Order
	err := s.store.RunInTx(ctx, func(tx repository.LedgerRepository) error {
		o, err := orderForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !IsFulfilmentEdge(o.Status, to) {
			return illegalTransition(o.Status, to)
		}
		if note == "" {
			note = fmt.Sprintf("Status set to %s", to)
		}
		if err := transition(ctx, tx, o, to, &actor, note, s.now()); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, translate(s.logger, "change order status", err)
	}
	s.logger.Info("order status changed",
		zap.String("order_id", orderID.String()),
		zap.String("status", string(to)),
		zap.String("actor", actor.UserID.String()),
	)
	return order, nil
}

func (s *orderService) RequestChanges(ctx context.Context, actor models.Actor, orderID uuid.UUID, note string) (*models.Order, error) {
	var order *models.Order
	err := s.store.RunInTx(ctx, func(tx repository.LedgerRepository) error {
		o, err := orderForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !actor.Owns(o) {
			return apperrors.Forbidden("Only the customer may request changes")
		}
		if note == "" {
			note = "Customer requested changes"
		}
		if err := transition(ctx, tx, o, models.OrderStatusChangesRequested, &actor, note, s.now()); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, translate(s.logger, "request changes", err)
	}
	return order, nil
}

// Approve grants customer approval. The unresolved-thread count is read
// under the order row lock, which comment writes also take.
func (s *orderService) Approve(ctx context.Context, actor models.Actor, orderID uuid.UUID, note string) (*models.Order, error) {
	var order *models.Order
	err := s.store.RunInTx(ctx, func(tx repository.LedgerRepository) error {
		o, err := orderForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if err := requireAccess(actor, o); err != nil {
			return err
		}
		unresolved, err := tx.CountUnresolvedComments(ctx, o.ID)
		if err != nil {
			return err
		}
		if unresolved > 0 {
			return apperrors.PreconditionFailed(apperrors.ReasonUnresolvedComments,
				"All comment threads must be resolved before approval").
				WithDetail("unresolvedCount", unresolved)
		}
		if !actor.Owns(o) || actor.Role.IsModerator() {
			return apperrors.Forbidden("Approval must come from the order's customer")
		}
		if note == "" {
			note = "Approved by customer"
		}
		if err := transition(ctx, tx, o, models.OrderStatusApprovedByCustomer, &actor, note, s.now()); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, translate(s.logger, "approve order", err)
	}

	s.logger.Info("order approved", zap.String("order_id", order.ID.String()))
	notify(ctx, s.logger, "order_approved", order.ID.String(), func(nctx context.Context) error {
		return s.notifier.OrderApproved(nctx, order)
	})
	return order, nil
}
