package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"storybook-order-service/models"
	"storybook-order-service/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestGetOrderForUpdate_LocksRow(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormLedgerStore(gormDB)

	id := uuid.New()
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "order_number", "customer_id", "status", "currency",
		"subtotal_amount_cents", "shipping_amount_cents", "discount_amount_cents", "total_amount_cents",
		"created_at", "updated_at"}).
		AddRow(id, "ORD-1", uuid.New(), "PAID", "usd", 5000, 500, 0, 5500, now, now)

	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_items" WHERE order_id = $1`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id"}))

	order, err := store.GetOrderForUpdate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	assert.Equal(t, int64(5500), order.TotalAmountCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrder_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormLedgerStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).
		WillReturnRows(sqlmock.NewRows([]string{}))

	o, err := store.GetOrder(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Nil(t, o)
}

func TestCountUnresolvedComments(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormLedgerStore(gormDB)

	orderID := uuid.New()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "page_comments" WHERE order_id = \$1 AND status IN \(.+\)`).
		WithArgs(orderID, "OPEN", "DESIGNER_REPLIED", "CUSTOMER_REPLIED", "REOPENED").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := store.CountUnresolvedComments(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSucceededPayment_OnConflictUpdate(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormLedgerStore(gormDB)

	intent := "pi_123"
	payment := &models.Payment{
		ID:                    uuid.New(),
		OrderID:               uuid.New(),
		PaymentKey:            intent,
		StripePaymentIntentID: &intent,
		AmountCents:           5000,
		Currency:              "usd",
		Status:                models.PaymentStatusSucceeded,
		EventType:             "checkout.session.completed",
		RawMetadata:           datatypes.JSON(`{"id":"evt_1"}`),
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "payments" .* ON CONFLICT \("payment_key"\) DO UPDATE SET`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(payment.ID))
	mock.ExpectCommit()

	err := store.UpsertSucceededPayment(context.Background(), payment)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertFailedPayment_DuplicateIsSkipped(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormLedgerStore(gormDB)

	payment := &models.Payment{
		ID:          uuid.New(),
		OrderID:     uuid.New(),
		PaymentKey:  "failed:evt_9",
		AmountCents: 5000,
		Currency:    "usd",
		Status:      models.PaymentStatusFailed,
		EventType:   "payment_intent.payment_failed",
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "payments" .* ON CONFLICT \("payment_key"\) DO NOTHING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	inserted, err := store.InsertFailedPayment(context.Background(), payment)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertFailedPayment_Inserted(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormLedgerStore(gormDB)

	payment := &models.Payment{
		ID:         uuid.New(),
		OrderID:    uuid.New(),
		PaymentKey: "failed:evt_10",
		Currency:   "usd",
		Status:     models.PaymentStatusFailed,
		EventType:  "payment_intent.payment_failed",
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "payments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(payment.ID))
	mock.ExpectCommit()

	inserted, err := store.InsertFailedPayment(context.Background(), payment)
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestRunInTx_RollsBackOnError(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormLedgerStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "order_status_history"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := store.RunInTx(context.Background(), func(tx repository.LedgerRepository) error {
		if err := tx.AppendStatusHistory(context.Background(), &models.StatusHistory{
			ID:       uuid.New(),
			OrderID:  uuid.New(),
			ToStatus: models.OrderStatusPaid,
			Note:     "test",
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceOrderItems_DeletesThenInserts(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormLedgerStore(gormDB)

	orderID := uuid.New()
	items := []models.OrderItem{
		{ID: uuid.New(), SKU: "BOOK-1", Title: "Story", Quantity: 2, UnitAmountCents: 1500, LineAmountCents: 3000},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "order_items" WHERE order_id = $1`)).
		WithArgs(orderID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "order_items"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(items[0].ID))
	mock.ExpectCommit()

	err := store.ReplaceOrderItems(context.Background(), orderID, items)
	require.NoError(t, err)
	assert.Equal(t, orderID, items[0].OrderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
