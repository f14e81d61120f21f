package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"storybook-order-service/models"
	"storybook-order-service/repository"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
)

// memState is a snapshot of every table. RunInTx works on a clone and swaps
// it in only when fn succeeds, which models rollback.
type memState struct {
	orders    map[uuid.UUID]models.Order
	history   []models.StatusHistory
	payments  []models.Payment
	refunds   []models.Refund
	discounts []models.Discount
	comments  []models.PageComment
	replies   []models.CommentReply
	clock     time.Time
}

func (s *memState) clone() *memState {
	cp := &memState{
		orders:    make(map[uuid.UUID]models.Order, len(s.orders)),
		history:   append([]models.StatusHistory(nil), s.history...),
		payments:  append([]models.Payment(nil), s.payments...),
		refunds:   append([]models.Refund(nil), s.refunds...),
		discounts: append([]models.Discount(nil), s.discounts...),
		comments:  append([]models.PageComment(nil), s.comments...),
		replies:   append([]models.CommentReply(nil), s.replies...),
		clock:     s.clock,
	}
	for id, o := range s.orders {
		o.Items = append([]models.OrderItem(nil), o.Items...)
		cp.orders[id] = o
	}
	return cp
}

// tick hands out strictly increasing creation times.
func (s *memState) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

type memStore struct {
	mu    sync.Mutex
	state *memState

	// failHistory makes AppendStatusHistory fail, to prove rollback.
	failHistory error
}

func newMemStore() *memStore {
	return &memStore{state: &memState{
		orders: map[uuid.UUID]models.Order{},
		clock:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}}
}

func (m *memStore) RunInTx(ctx context.Context, fn func(tx repository.LedgerRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := m.state.clone()
	if err := fn(&memTx{st: cp, store: m}); err != nil {
		return err
	}
	m.state = cp
	return nil
}

func (m *memStore) direct() *memTx {
	return &memTx{st: m.state, store: m}
}

func (m *memStore) seedOrder(o models.Order) *models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.OrderNumber == "" {
		o.OrderNumber = newOrderNumber(m.state.clock)
	}
	if o.Currency == "" {
		o.Currency = "usd"
	}
	o.RecalculateTotal()
	o.CreatedAt = m.state.tick()
	m.state.orders[o.ID] = o
	return &o
}

func (m *memStore) seedPayment(orderID uuid.UUID, amount int64, intent string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := models.Payment{
		ID:          uuid.New(),
		OrderID:     orderID,
		PaymentKey:  intent,
		AmountCents: amount,
		Currency:    "usd",
		Status:      models.PaymentStatusSucceeded,
		EventType:   EventCheckoutSessionCompleted,
		CreatedAt:   m.state.tick(),
	}
	if intent != "" {
		p.StripePaymentIntentID = &intent
	}
	m.state.payments = append(m.state.payments, p)
}

func (m *memStore) seedComment(orderID uuid.UUID, status models.CommentStatus) *models.PageComment {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := models.PageComment{
		ID:         uuid.New(),
		OrderID:    orderID,
		PageNumber: 1,
		Body:       "fix the dragon",
		Status:     status,
		AuthorID:   uuid.New(),
		AuthorRole: models.RoleCustomer,
		CreatedAt:  m.state.tick(),
	}
	m.state.comments = append(m.state.comments, c)
	return &c
}

func (m *memStore) order(id uuid.UUID) models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.orders[id]
}

func (m *memStore) historyFor(id uuid.UUID) []models.StatusHistory {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.StatusHistory
	for _, h := range m.state.history {
		if h.OrderID == id {
			out = append(out, h)
		}
	}
	return out
}

func (m *memStore) paymentsFor(id uuid.UUID) []models.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Payment
	for _, p := range m.state.payments {
		if p.OrderID == id {
			out = append(out, p)
		}
	}
	return out
}

func (m *memStore) refundsFor(id uuid.UUID) []models.Refund {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Refund
	for _, r := range m.state.refunds {
		if r.OrderID == id {
			out = append(out, r)
		}
	}
	return out
}

// Non-transactional calls go straight to the committed state.
func (m *memStore) locked(fn func(tx *memTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.direct())
}

func (m *memStore) CreateOrder(ctx context.Context, o *models.Order) error {
	return m.locked(func(tx *memTx) error { return tx.CreateOrder(ctx, o) })
}

func (m *memStore) GetOrder(ctx context.Context, id uuid.UUID) (o *models.Order, err error) {
	err = m.locked(func(tx *memTx) error { o, err = tx.GetOrder(ctx, id); return err })
	return o, err
}

func (m *memStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return m.GetOrder(ctx, id)
}

func (m *memStore) UpdateOrder(ctx context.Context, o *models.Order) error {
	return m.locked(func(tx *memTx) error { return tx.UpdateOrder(ctx, o) })
}

func (m *memStore) ReplaceOrderItems(ctx context.Context, id uuid.UUID, items []models.OrderItem) error {
	return m.locked(func(tx *memTx) error { return tx.ReplaceOrderItems(ctx, id, items) })
}

func (m *memStore) ListOrders(ctx context.Context, f repository.OrderFilter) (out []models.Order, total int64, err error) {
	err = m.locked(func(tx *memTx) error { out, total, err = tx.ListOrders(ctx, f); return err })
	return out, total, err
}

func (m *memStore) AppendStatusHistory(ctx context.Context, e *models.StatusHistory) error {
	return m.locked(func(tx *memTx) error { return tx.AppendStatusHistory(ctx, e) })
}

func (m *memStore) ListStatusHistory(ctx context.Context, id uuid.UUID) (out []models.StatusHistory, err error) {
	err = m.locked(func(tx *memTx) error { out, err = tx.ListStatusHistory(ctx, id); return err })
	return out, err
}

func (m *memStore) FindPaymentByKey(ctx context.Context, key string) (p *models.Payment, err error) {
	err = m.locked(func(tx *memTx) error { p, err = tx.FindPaymentByKey(ctx, key); return err })
	return p, err
}

func (m *memStore) UpsertSucceededPayment(ctx context.Context, p *models.Payment) error {
	return m.locked(func(tx *memTx) error { return tx.UpsertSucceededPayment(ctx, p) })
}

func (m *memStore) InsertFailedPayment(ctx context.Context, p *models.Payment) (ok bool, err error) {
	err = m.locked(func(tx *memTx) error { ok, err = tx.InsertFailedPayment(ctx, p); return err })
	return ok, err
}

func (m *memStore) ListPayments(ctx context.Context, id uuid.UUID) (out []models.Payment, err error) {
	err = m.locked(func(tx *memTx) error { out, err = tx.ListPayments(ctx, id); return err })
	return out, err
}

func (m *memStore) CreateRefund(ctx context.Context, r *models.Refund) error {
	return m.locked(func(tx *memTx) error { return tx.CreateRefund(ctx, r) })
}

func (m *memStore) ListRefunds(ctx context.Context, id uuid.UUID) (out []models.Refund, err error) {
	err = m.locked(func(tx *memTx) error { out, err = tx.ListRefunds(ctx, id); return err })
	return out, err
}

func (m *memStore) CreateDiscount(ctx context.Context, d *models.Discount) error {
	return m.locked(func(tx *memTx) error { return tx.CreateDiscount(ctx, d) })
}

func (m *memStore) ListDiscounts(ctx context.Context, id uuid.UUID) (out []models.Discount, err error) {
	err = m.locked(func(tx *memTx) error { out, err = tx.ListDiscounts(ctx, id); return err })
	return out, err
}

func (m *memStore) CreateComment(ctx context.Context, c *models.PageComment) error {
	return m.locked(func(tx *memTx) error { return tx.CreateComment(ctx, c) })
}

func (m *memStore) GetComment(ctx context.Context, id uuid.UUID) (c *models.PageComment, err error) {
	err = m.locked(func(tx *memTx) error { c, err = tx.GetComment(ctx, id); return err })
	return c, err
}

func (m *memStore) UpdateComment(ctx context.Context, c *models.PageComment) error {
	return m.locked(func(tx *memTx) error { return tx.UpdateComment(ctx, c) })
}

func (m *memStore) CreateReply(ctx context.Context, r *models.CommentReply) error {
	return m.locked(func(tx *memTx) error { return tx.CreateReply(ctx, r) })
}

func (m *memStore) ListComments(ctx context.Context, id uuid.UUID, page int) (out []models.PageComment, err error) {
	err = m.locked(func(tx *memTx) error { out, err = tx.ListComments(ctx, id, page); return err })
	return out, err
}

func (m *memStore) CountUnresolvedComments(ctx context.Context, id uuid.UUID) (n int64, err error) {
	err = m.locked(func(tx *memTx) error { n, err = tx.CountUnresolvedComments(ctx, id); return err })
	return n, err
}

// memTx operates on one state snapshot without locking.
type memTx struct {
	st    *memState
	store *memStore
}

func (t *memTx) CreateOrder(_ context.Context, o *models.Order) error {
	if _, exists := t.st.orders[o.ID]; exists {
		return errors.New("duplicate order id")
	}
	for _, other := range t.st.orders {
		if other.OrderNumber == o.OrderNumber {
			return errors.New("duplicate order number")
		}
	}
	o.CreatedAt = t.st.tick()
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
	}
	cp := *o
	cp.Items = append([]models.OrderItem(nil), o.Items...)
	t.st.orders[o.ID] = cp
	return nil
}

func (t *memTx) GetOrder(_ context.Context, id uuid.UUID) (*models.Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	o.Items = append([]models.OrderItem(nil), o.Items...)
	return &o, nil
}

func (t *memTx) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return t.GetOrder(ctx, id)
}

func (t *memTx) UpdateOrder(_ context.Context, o *models.Order) error {
	existing, ok := t.st.orders[o.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cp := *o
	cp.Items = existing.Items
	t.st.orders[o.ID] = cp
	return nil
}

func (t *memTx) ReplaceOrderItems(_ context.Context, id uuid.UUID, items []models.OrderItem) error {
	o, ok := t.st.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	for i := range items {
		items[i].OrderID = id
	}
	o.Items = append([]models.OrderItem(nil), items...)
	t.st.orders[id] = o
	return nil
}

func (t *memTx) ListOrders(_ context.Context, f repository.OrderFilter) ([]models.Order, int64, error) {
	var out []models.Order
	for _, o := range t.st.orders {
		if f.CustomerID != nil && o.CustomerID != *f.CustomerID {
			continue
		}
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	start := (f.Page - 1) * f.Limit
	if start > len(out) {
		start = len(out)
	}
	end := start + f.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (t *memTx) AppendStatusHistory(_ context.Context, e *models.StatusHistory) error {
	if t.store.failHistory != nil {
		return t.store.failHistory
	}
	e.CreatedAt = t.st.tick()
	t.st.history = append(t.st.history, *e)
	return nil
}

func (t *memTx) ListStatusHistory(_ context.Context, id uuid.UUID) ([]models.StatusHistory, error) {
	var out []models.StatusHistory
	for _, h := range t.st.history {
		if h.OrderID == id {
			out = append(out, h)
		}
	}
	return out, nil
}

func (t *memTx) FindPaymentByKey(_ context.Context, key string) (*models.Payment, error) {
	for _, p := range t.st.payments {
		if p.PaymentKey == key {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (t *memTx) UpsertSucceededPayment(_ context.Context, p *models.Payment) error {
	for i, existing := range t.st.payments {
		if existing.PaymentKey == p.PaymentKey {
			existing.Status = p.Status
			existing.EventType = p.EventType
			existing.StripeEventID = p.StripeEventID
			existing.AmountCents = p.AmountCents
			existing.Currency = p.Currency
			existing.RawMetadata = p.RawMetadata
			t.st.payments[i] = existing
			p.ID = existing.ID
			return nil
		}
	}
	p.CreatedAt = t.st.tick()
	t.st.payments = append(t.st.payments, *p)
	return nil
}

func (t *memTx) InsertFailedPayment(_ context.Context, p *models.Payment) (bool, error) {
	for _, existing := range t.st.payments {
		if existing.PaymentKey == p.PaymentKey {
			return false, nil
		}
	}
	p.CreatedAt = t.st.tick()
	t.st.payments = append(t.st.payments, *p)
	return true, nil
}

func (t *memTx) ListPayments(_ context.Context, id uuid.UUID) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range t.st.payments {
		if p.OrderID == id {
			out = append(out, p)
		}
	}
	return out, nil
}

func (t *memTx) CreateRefund(_ context.Context, r *models.Refund) error {
	r.CreatedAt = t.st.tick()
	t.st.refunds = append(t.st.refunds, *r)
	return nil
}

func (t *memTx) ListRefunds(_ context.Context, id uuid.UUID) ([]models.Refund, error) {
	var out []models.Refund
	for _, r := range t.st.refunds {
		if r.OrderID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *memTx) CreateDiscount(_ context.Context, d *models.Discount) error {
	d.CreatedAt = t.st.tick()
	t.st.discounts = append(t.st.discounts, *d)
	return nil
}

func (t *memTx) ListDiscounts(_ context.Context, id uuid.UUID) ([]models.Discount, error) {
	var out []models.Discount
	for _, d := range t.st.discounts {
		if d.OrderID == id {
			out = append(out, d)
		}
	}
	return out, nil
}

func (t *memTx) CreateComment(_ context.Context, c *models.PageComment) error {
	c.CreatedAt = t.st.tick()
	cp := *c
	cp.Replies = nil
	t.st.comments = append(t.st.comments, cp)
	return nil
}

func (t *memTx) withReplies(c models.PageComment) models.PageComment {
	c.Replies = nil
	for _, r := range t.st.replies {
		if r.CommentID == c.ID {
			c.Replies = append(c.Replies, r)
		}
	}
	return c
}

func (t *memTx) GetComment(_ context.Context, id uuid.UUID) (*models.PageComment, error) {
	for _, c := range t.st.comments {
		if c.ID == id {
			out := t.withReplies(c)
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (t *memTx) UpdateComment(_ context.Context, c *models.PageComment) error {
	for i, existing := range t.st.comments {
		if existing.ID == c.ID {
			cp := *c
			cp.Replies = nil
			t.st.comments[i] = cp
			return nil
		}
	}
	return repository.ErrNotFound
}

func (t *memTx) CreateReply(_ context.Context, r *models.CommentReply) error {
	r.CreatedAt = t.st.tick()
	t.st.replies = append(t.st.replies, *r)
	return nil
}

func (t *memTx) ListComments(_ context.Context, id uuid.UUID, page int) ([]models.PageComment, error) {
	var out []models.PageComment
	for _, c := range t.st.comments {
		if c.OrderID != id || (page > 0 && c.PageNumber != page) {
			continue
		}
		out = append(out, t.withReplies(c))
	}
	return out, nil
}

func (t *memTx) CountUnresolvedComments(_ context.Context, id uuid.UUID) (int64, error) {
	var n int64
	for _, c := range t.st.comments {
		if c.OrderID == id && c.Status.IsUnresolved() {
			n++
		}
	}
	return n, nil
}

// fakeProcessor records processor calls and can be told to fail.
type fakeProcessor struct {
	mu       sync.Mutex
	sessions []CheckoutSessionInput
	refunds  []RefundInput
	expired  []string
	err      error
}

func (f *fakeProcessor) CreateCheckoutSession(_ context.Context, in CheckoutSessionInput) (*CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.sessions = append(f.sessions, in)
	return &CheckoutSession{ID: "cs_test_" + in.OrderNumber, URL: "https://checkout.stripe.test/" + in.OrderNumber}, nil
}

func (f *fakeProcessor) CreateRefund(_ context.Context, in RefundInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.refunds = append(f.refunds, in)
	return "re_" + uuid.NewString()[:8], nil
}

func (f *fakeProcessor) ExpireCheckoutSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.expired = append(f.expired, sessionID)
	return nil
}

func (f *fakeProcessor) ConstructEvent(payload []byte, _ string) (stripe.Event, error) {
	return stripe.Event{}, errors.New("not used")
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeNotifier) record(kind string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, kind)
	return f.err
}

func (f *fakeNotifier) OrderRefunded(context.Context, *models.Order, *models.Refund) error {
	return f.record("refunded")
}

func (f *fakeNotifier) OrderApproved(context.Context, *models.Order) error {
	return f.record("approved")
}

func (f *fakeNotifier) CommentReplied(context.Context, *models.Order, *models.PageComment, *models.CommentReply) error {
	return f.record("replied")
}

func (f *fakeNotifier) CommentResolved(context.Context, *models.Order, *models.PageComment) error {
	return f.record("resolved")
}
