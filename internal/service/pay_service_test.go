package service

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"

	"voicestudio/internal/config"
	"voicestudio/internal/infrastructure/storage"
	"voicestudio/internal/ledger"
	"voicestudio/internal/ledger/ledgertest"
	"voicestudio/internal/model"
	"voicestudio/internal/repository"
	"voicestudio/pkg/idgen"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type memPayments struct {
	mu    sync.Mutex
	items map[int64]*model.PaymentTransaction
	next  int64
}

func newMemPayments() *memPayments {
	return &memPayments{items: make(map[int64]*model.PaymentTransaction)}
}

func (m *memPayments) Create(_ context.Context, p *model.PaymentTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.TransactionID == p.TransactionID {
			return repository.ErrDuplicateReference
		}
	}
	m.next++
	p.ID = m.next
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *memPayments) ExistsByReference(_ context.Context, ref string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if p.TransactionID == ref {
			return true, nil
		}
	}
	return false, nil
}

func (m *memPayments) GetByID(_ context.Context, id int64) (*model.PaymentTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.items[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, repository.ErrPaymentNotFound
}

func (m *memPayments) ListByUserID(_ context.Context, userID int64) ([]*model.PaymentTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PaymentTransaction
	for _, p := range m.items {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPayments) List(_ context.Context, status string, _, _ int) ([]*model.PaymentTransaction, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PaymentTransaction
	for _, p := range m.items {
		if status == "" || p.Status == status {
			out = append(out, p)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memPayments) UpdateStatus(_ context.Context, _ *gorm.DB, id int64, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok || p.Status != model.PaymentStatusPending {
		return repository.ErrPaymentStatusInvalid
	}
	p.Status = to
	return nil
}

type paymentFixture struct {
	svc      *PaymentService
	store    *ledgertest.MemoryStore
	payments *memPayments
	outbox   *fakeOutbox
	mr       *miniredis.Miniredis
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	files, err := storage.NewLocalStore(t.TempDir(), "/media/")
	require.NoError(t, err)

	store := ledgertest.NewMemoryStore()
	store.SetBalance(testUserID, 0)
	ids, err := idgen.New(1)
	require.NoError(t, err)

	cfg := &config.Config{
		Business: config.BusinessConfig{CreditsPerUnit: 10},
		Payment:  config.PaymentConfig{UPIID: "studio@upi"},
	}
	cfg.Kafka.Topic.CreditChanged = "credit.changed"

	f := &paymentFixture{
		store:    store,
		payments: newMemPayments(),
		outbox:   &fakeOutbox{},
		mr:       mr,
	}
	f.svc = NewPaymentService(f.payments, ledger.New(store, ids, nil, zap.NewNop()), f.outbox, files, client, cfg, zap.NewNop())
	return f
}

func TestParseAmountCents(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"100", 10000, true},
		{"49.99", 4999, true},
		{"1.5", 150, true},
		{" 2.00 ", 200, true},
		{"", 0, false},
		{"-5", 0, false},
		{"1.234", 0, false},
		{".5", 0, false},
		{"abc", 0, false},
		{"1.-5", 0, false},
		{"99999999.99", 9999999999, true},
		{"000000001.00", 100, true},
		{"123456789", 0, false},
		{"100000000000000000", 0, false},
		{"200000000000000000", 0, false},
	}
	for _, tt := range tests {
		got, err := parseAmountCents(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	assert.Equal(t, "49.99", formatCents(4999))
	assert.Equal(t, "0.05", formatCents(5))
}

func TestSubmitPaymentCredits(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	view, err := f.svc.Submit(ctx, testUserID, &SubmitPaymentRequest{Amount: "49.99", TransactionID: "UTR001"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(490), view.Credits)
	assert.Equal(t, "49.99", view.Amount)
	assert.Equal(t, model.PaymentStatusPending, view.Status)
	assert.Equal(t, "UPI", view.PaymentMethod)

	_, err = f.svc.Submit(ctx, testUserID, &SubmitPaymentRequest{Amount: "10", TransactionID: "UTR001"}, nil)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.svc.Submit(ctx, testUserID, &SubmitPaymentRequest{Amount: "0.50", TransactionID: "UTR002"}, nil)
	assert.ErrorIs(t, err, ErrValidation)

	// 超大金额在解析阶段拒绝，不会写入溢出后的金额或积分
	_, err = f.svc.Submit(ctx, testUserID, &SubmitPaymentRequest{Amount: "200000000000000000", TransactionID: "UTR003"}, nil)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Len(t, f.payments.items, 1)

	// 提交不改变余额
	balance, err := f.store.Balance(ctx, testUserID)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestCreditsForOverflow(t *testing.T) {
	f := newPaymentFixture(t)

	credits, ok := f.svc.CreditsFor(4999)
	assert.True(t, ok)
	assert.Equal(t, int64(490), credits)

	f.svc.business.CreditsPerUnit = math.MaxInt64 / 10
	_, ok = f.svc.CreditsFor(9999999999)
	assert.False(t, ok)

	_, err := f.svc.Submit(context.Background(), testUserID, &SubmitPaymentRequest{Amount: "100", TransactionID: "UTR009"}, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSubmitPaymentScreenshot(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	view, err := f.svc.Submit(ctx, testUserID, &SubmitPaymentRequest{Amount: "5", TransactionID: "UTR010"},
		&Screenshot{Filename: "proof.PNG", Body: strings.NewReader("png")})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(view.Screenshot, ScreenshotDir+"/"))
	assert.Equal(t, "/media/"+view.Screenshot, view.ScreenshotURL)

	_, err = f.svc.Submit(ctx, testUserID, &SubmitPaymentRequest{Amount: "5", TransactionID: "UTR011"},
		&Screenshot{Filename: "proof.gif", Body: strings.NewReader("gif")})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestApprovePaymentCreditsOnce(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	view, err := f.svc.Submit(ctx, testUserID, &SubmitPaymentRequest{Amount: "100", TransactionID: "UTR100"}, nil)
	require.NoError(t, err)

	approved, err := f.svc.Approve(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusApproved, approved.Status)

	balance, err := f.store.Balance(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)

	recharges := f.store.Entries(model.CreditTypeRecharge)
	require.Len(t, recharges, 1)
	assert.Equal(t, "PAY1", recharges[0].RefNo)

	require.Len(t, f.outbox.msgs, 1)
	assert.Equal(t, "credit.changed", f.outbox.msgs[0].Topic)

	_, err = f.svc.Approve(ctx, view.ID)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.Reject(ctx, view.ID)
	assert.ErrorIs(t, err, ErrValidation)

	balance, err = f.store.Balance(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)
	assert.Len(t, f.store.Entries(model.CreditTypeRecharge), 1)
}

func TestRejectPayment(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	view, err := f.svc.Submit(ctx, testUserID, &SubmitPaymentRequest{Amount: "100", TransactionID: "UTR200"}, nil)
	require.NoError(t, err)

	rejected, err := f.svc.Reject(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusRejected, rejected.Status)

	_, err = f.svc.Approve(ctx, view.ID)
	assert.ErrorIs(t, err, ErrValidation)

	balance, err := f.store.Balance(ctx, testUserID)
	require.NoError(t, err)
	assert.Zero(t, balance)

	_, err = f.svc.Approve(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApprovePaymentLocked(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	view, err := f.svc.Submit(ctx, testUserID, &SubmitPaymentRequest{Amount: "100", TransactionID: "UTR300"}, nil)
	require.NoError(t, err)

	require.NoError(t, f.mr.Set("payment:review:lock:1", "other-admin"))
	_, err = f.svc.Approve(ctx, view.ID)
	assert.ErrorIs(t, err, ErrConflict)

	// 锁不属于本次请求，不能被删除
	got, err := f.mr.Get("payment:review:lock:1")
	require.NoError(t, err)
	assert.Equal(t, "other-admin", got)

	f.mr.Del("payment:review:lock:1")
	_, err = f.svc.Approve(ctx, view.ID)
	require.NoError(t, err)
	assert.False(t, f.mr.Exists("payment:review:lock:1"))
}

func TestPaymentSettings(t *testing.T) {
	f := newPaymentFixture(t)
	s := f.svc.Settings()
	assert.Equal(t, "studio@upi", s.UPIID)
	assert.Equal(t, int64(10), s.CreditsPerUnit)
}
