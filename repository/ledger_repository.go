package repository

import (
	"context"
	"errors"

	"storybook-order-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("record not found")

// OrderFilter narrows order listings. Zero values mean "no filter".
type OrderFilter struct {
	CustomerID *uuid.UUID
	Status     *models.OrderStatus
	Page       int
	Limit      int
}

// LedgerRepository defines data-access operations for orders, their
// financial log and their review threads.
type LedgerRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// GetOrderForUpdate reads the order holding a row lock until the
	// surrounding transaction ends.
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateOrder(ctx context.Context, order *models.Order) error
	ReplaceOrderItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error
	ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error)

	AppendStatusHistory(ctx context.Context, entry *models.StatusHistory) error
	ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]models.StatusHistory, error)

	FindPaymentByKey(ctx context.Context, key string) (*models.Payment, error)
	UpsertSucceededPayment(ctx context.Context, payment *models.Payment) error
	// InsertFailedPayment reports false when a row with the same key exists.
	InsertFailedPayment(ctx context.Context, payment *models.Payment) (bool, error)
	ListPayments(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)

	CreateRefund(ctx context.Context, refund *models.Refund) error
	ListRefunds(ctx context.Context, orderID uuid.UUID) ([]models.Refund, error)

	CreateDiscount(ctx context.Context, discount *models.Discount) error
	ListDiscounts(ctx context.Context, orderID uuid.UUID) ([]models.Discount, error)

	CreateComment(ctx context.Context, comment *models.PageComment) error
	GetComment(ctx context.Context, id uuid.UUID) (*models.PageComment, error)
	UpdateComment(ctx context.Context, comment *models.PageComment) error
	CreateReply(ctx context.Context, reply *models.CommentReply) error
	// ListComments returns threads with replies; pageNumber 0 lists every page.
	ListComments(ctx context.Context, orderID uuid.UUID, pageNumber int) ([]models.PageComment, error)
	CountUnresolvedComments(ctx context.Context, orderID uuid.UUID) (int64, error)
}

// LedgerStore is a LedgerRepository that can scope work to one transaction.
// Every repository call made through tx inside fn commits or rolls back together.
type LedgerStore interface {
	LedgerRepository
	RunInTx(ctx context.Context, fn func(tx LedgerRepository) error) error
}

// GormLedgerStore implements LedgerStore using GORM.
type GormLedgerStore struct {
	db *gorm.DB
}

// NewGormLedgerStore creates a new GormLedgerStore.
func NewGormLedgerStore(db *gorm.DB) LedgerStore {
	return &GormLedgerStore{db: db}
}

func (r *GormLedgerStore) RunInTx(ctx context.Context, fn func(tx LedgerRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormLedgerStore{db: tx})
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (r *GormLedgerStore) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *GormLedgerStore) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&o, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (r *GormLedgerStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&o, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", id).
		Order("created_at ASC").
		Find(&o.Items).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormLedgerStore) UpdateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(order).Error
}

func (r *GormLedgerStore) ReplaceOrderItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error {
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].OrderID = orderID
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *GormLedgerStore) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if err := query.
		Preload("Items").
		Offset((page - 1) * limit).Limit(limit).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *GormLedgerStore) AppendStatusHistory(ctx context.Context, entry *models.StatusHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *GormLedgerStore) ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]models.StatusHistory, error) {
	var history []models.StatusHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&history).Error
	return history, err
}

func (r *GormLedgerStore) FindPaymentByKey(ctx context.Context, key string) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.WithContext(ctx).Where("payment_key = ?", key).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// UpsertSucceededPayment writes the payment keyed by payment_key, refreshing
// the processor snapshot when the key already exists.
func (r *GormLedgerStore) UpsertSucceededPayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "payment_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "event_type", "stripe_event_id", "amount_cents",
			"currency", "raw_metadata", "updated_at",
		}),
	}).Create(payment).Error
}

func (r *GormLedgerStore) InsertFailedPayment(ctx context.Context, payment *models.Payment) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "payment_key"}}, DoNothing: true}).
		Create(payment)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormLedgerStore) ListPayments(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&payments).Error
	return payments, err
}

func (r *GormLedgerStore) CreateRefund(ctx context.Context, refund *models.Refund) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

func (r *GormLedgerStore) ListRefunds(ctx context.Context, orderID uuid.UUID) ([]models.Refund, error) {
	var refunds []models.Refund
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&refunds).Error
	return refunds, err
}

func (r *GormLedgerStore) CreateDiscount(ctx context.Context, discount *models.Discount) error {
	return r.db.WithContext(ctx).Create(discount).Error
}

func (r *GormLedgerStore) ListDiscounts(ctx context.Context, orderID uuid.UUID) ([]models.Discount, error) {
	var discounts []models.Discount
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&discounts).Error
	return discounts, err
}

func (r *GormLedgerStore) CreateComment(ctx context.Context, comment *models.PageComment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error
}

func (r *GormLedgerStore) GetComment(ctx context.Context, id uuid.UUID) (*models.PageComment, error) {
	var c models.PageComment
	if err := r.db.WithContext(ctx).
		Preload("Replies", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *GormLedgerStore) UpdateComment(ctx context.Context, comment *models.PageComment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(comment).Error
}

func (r *GormLedgerStore) CreateReply(ctx context.Context, reply *models.CommentReply) error {
	return r.db.WithContext(ctx).Create(reply).Error
}

func (r *GormLedgerStore) ListComments(ctx context.Context, orderID uuid.UUID, pageNumber int) ([]models.PageComment, error) {
	var comments []models.PageComment
	query := r.db.WithContext(ctx).Where("order_id = ?", orderID)
	if pageNumber > 0 {
		query = query.Where("page_number = ?", pageNumber)
	}
	err := query.
		Preload("Replies", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Order("page_number ASC, created_at ASC").
		Find(&comments).Error
	return comments, err
}

func (r *GormLedgerStore) CountUnresolvedComments(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PageComment{}).
		Where("order_id = ? AND status IN ?", orderID, models.UnresolvedCommentStatuses).
		Count(&count).Error
	return count, err
}
