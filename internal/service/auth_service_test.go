package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"voicestudio/internal/config"
	"voicestudio/internal/infrastructure/cache"
	"voicestudio/internal/ledger"
	"voicestudio/internal/ledger/ledgertest"
	"voicestudio/internal/model"
	"voicestudio/internal/repository"
	"voicestudio/pkg/idgen"
	"voicestudio/pkg/token"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fakeAccounts struct {
	mu     sync.Mutex
	store  *ledgertest.MemoryStore
	byID   map[int64]*model.Account
	nextID int64
}

func newFakeAccounts(store *ledgertest.MemoryStore) *fakeAccounts {
	return &fakeAccounts{store: store, byID: make(map[int64]*model.Account)}
}

func (f *fakeAccounts) Create(_ context.Context, _ *gorm.DB, a *model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == a.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	f.nextID++
	a.ID = f.nextID
	cp := *a
	f.byID[a.ID] = &cp
	f.store.SetBalance(a.ID, 0)
	return nil
}

func (f *fakeAccounts) GetByID(ctx context.Context, _ *gorm.DB, id int64) (*model.Account, error) {
	f.mu.Lock()
	a, ok := f.byID[id]
	f.mu.Unlock()
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	cp := *a
	cp.Balance, _ = f.store.Balance(ctx, id)
	return &cp, nil
}

func (f *fakeAccounts) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	f.mu.Lock()
	var id int64
	for _, a := range f.byID {
		if a.Email == email {
			id = a.ID
		}
	}
	f.mu.Unlock()
	if id == 0 {
		return nil, repository.ErrAccountNotFound
	}
	return f.GetByID(ctx, nil, id)
}

func (f *fakeAccounts) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, email)
	return err == nil, nil
}

func (f *fakeAccounts) UpdateFields(_ context.Context, id int64, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	for k, v := range fields {
		switch k {
		case "name":
			a.Name = v.(string)
		case "password_hash":
			a.PasswordHash = v.(string)
		case "is_active":
			a.IsActive = v.(bool)
		case "is_admin":
			a.IsAdmin = v.(bool)
		}
	}
	return nil
}

func (f *fakeAccounts) List(_ context.Context, _ repository.AccountFilter, _, _ int) ([]*model.Account, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Account
	for _, a := range f.byID {
		out = append(out, a)
	}
	return out, int64(len(out)), nil
}

func (f *fakeAccounts) Stats(_ context.Context) (*repository.AccountStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &repository.AccountStats{Total: int64(len(f.byID))}
	for _, a := range f.byID {
		if a.IsActive {
			stats.Active++
		}
		if a.IsAdmin {
			stats.Admins++
		}
	}
	return stats, nil
}

type authFixture struct {
	svc      *AuthService
	store    *ledgertest.MemoryStore
	accounts *fakeAccounts
	outbox   *fakeOutbox
	otp      *cache.OTPStore
	mr       *miniredis.Miniredis
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := ledgertest.NewMemoryStore()
	ids, err := idgen.New(1)
	require.NoError(t, err)

	f := &authFixture{
		store:    store,
		accounts: newFakeAccounts(store),
		outbox:   &fakeOutbox{},
		otp:      cache.NewOTPStore(client, 10*time.Minute),
		mr:       mr,
	}
	f.svc = NewAuthService(
		f.accounts,
		ledger.New(store, ids, nil, zap.NewNop()),
		f.otp,
		f.outbox,
		token.NewIssuer("test-secret", time.Hour, 24*time.Hour),
		config.BusinessConfig{SignupCredits: 10, OTPTTLMinutes: 10},
		"mail.otp",
		zap.NewNop(),
	)
	return f
}

func TestRegisterGrantsSignupCredits(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, &RegisterRequest{
		Email:           " Alice@Example.com ",
		Name:            "Alice",
		Password:        "secret123",
		PasswordConfirm: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.Equal(t, int64(10), res.User.Balance)
	assert.NotEmpty(t, res.Tokens.Access)
	assert.NotEmpty(t, res.Tokens.Refresh)

	grants := f.store.Entries(model.CreditTypeGrant)
	require.Len(t, grants, 1)
	assert.Equal(t, res.User.ID, grants[0].UserID)

	_, err = f.svc.Register(ctx, &RegisterRequest{
		Email:           "alice@example.com",
		Name:            "Alice",
		Password:        "secret123",
		PasswordConfirm: "secret123",
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRegisterPasswordRules(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Register(context.Background(), &RegisterRequest{
		Email: "a@example.com", Name: "A", Password: "short", PasswordConfirm: "short",
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Register(context.Background(), &RegisterRequest{
		Email: "a@example.com", Name: "A", Password: "secret123", PasswordConfirm: "secret124",
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSendAndVerifyOTP(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SendOTP(ctx, &SendOTPRequest{
		Email: "bob@example.com", Name: "Bob", Password: "secret123",
	}))
	require.Len(t, f.outbox.msgs, 1)
	assert.Equal(t, "mail.otp", f.outbox.msgs[0].Topic)

	var event model.MailOTPEvent
	require.NoError(t, json.Unmarshal([]byte(f.outbox.msgs[0].Payload), &event))
	assert.Len(t, event.Code, 6)
	assert.Equal(t, 10, event.ExpiresIn)

	_, err := f.svc.VerifyOTP(ctx, &VerifyOTPRequest{Email: "bob@example.com", Code: "xxxxxx"})
	assert.ErrorIs(t, err, ErrValidation)

	res, err := f.svc.VerifyOTP(ctx, &VerifyOTPRequest{Email: "bob@example.com", Code: event.Code})
	require.NoError(t, err)
	assert.Equal(t, "Bob", res.User.Name)
	assert.Equal(t, int64(10), res.User.Balance)

	// 验证码只能使用一次
	_, err = f.svc.VerifyOTP(ctx, &VerifyOTPRequest{Email: "bob@example.com", Code: event.Code})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Len(t, f.store.Entries(model.CreditTypeGrant), 1)

	_, err = f.svc.Login(ctx, &LoginRequest{Email: "bob@example.com", Password: "secret123"})
	assert.NoError(t, err)
}

func TestVerifyOTPExpired(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SendOTP(ctx, &SendOTPRequest{
		Email: "carol@example.com", Name: "Carol", Password: "secret123",
	}))
	pending, err := f.otp.Get(ctx, "carol@example.com")
	require.NoError(t, err)

	f.mr.FastForward(11 * time.Minute)

	_, err = f.svc.VerifyOTP(ctx, &VerifyOTPRequest{Email: "carol@example.com", Code: pending.Code})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSendOTPExistingEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, &RegisterRequest{
		Email: "dave@example.com", Name: "Dave", Password: "secret123", PasswordConfirm: "secret123",
	})
	require.NoError(t, err)

	err = f.svc.SendOTP(ctx, &SendOTPRequest{Email: "dave@example.com", Name: "Dave", Password: "secret123"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestLoginAndRefresh(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, &RegisterRequest{
		Email: "erin@example.com", Name: "Erin", Password: "secret123", PasswordConfirm: "secret123",
	})
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, &LoginRequest{Email: "erin@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.Login(ctx, &LoginRequest{Email: "nobody@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	res, err := f.svc.Login(ctx, &LoginRequest{Email: "erin@example.com", Password: "secret123"})
	require.NoError(t, err)

	account, err := f.svc.Authenticate(ctx, res.Tokens.Access)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, account.ID)

	// 访问令牌不能用来刷新
	_, err = f.svc.Refresh(ctx, res.Tokens.Access)
	assert.ErrorIs(t, err, ErrUnauthorized)

	pair, err := f.svc.Refresh(ctx, res.Tokens.Refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access)
}

func TestLoginInactiveAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, &RegisterRequest{
		Email: "frank@example.com", Name: "Frank", Password: "secret123", PasswordConfirm: "secret123",
	})
	require.NoError(t, err)

	inactive := false
	_, err = f.svc.UpdateUser(ctx, reg.User.ID, &AdminUpdateUserRequest{IsActive: &inactive})
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, &LoginRequest{Email: "frank@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Authenticate(ctx, reg.Tokens.Access)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, &RegisterRequest{
		Email: "gina@example.com", Name: "Gina", Password: "secret123", PasswordConfirm: "secret123",
	})
	require.NoError(t, err)

	err = f.svc.ChangePassword(ctx, reg.User.ID, &ChangePasswordRequest{
		OldPassword: "bad-old-pass", NewPassword: "newsecret1", NewPasswordConfirm: "newsecret1",
	})
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, f.svc.ChangePassword(ctx, reg.User.ID, &ChangePasswordRequest{
		OldPassword: "secret123", NewPassword: "newsecret1", NewPasswordConfirm: "newsecret1",
	}))

	account, err := f.svc.Profile(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("newsecret1")))
}

func TestUpdateProfileAndStats(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, &RegisterRequest{
		Email: "hank@example.com", Name: "Hank", Password: "secret123", PasswordConfirm: "secret123",
	})
	require.NoError(t, err)

	name := "Henry"
	account, err := f.svc.UpdateProfile(ctx, reg.User.ID, &UpdateProfileRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Henry", account.Name)
	assert.Equal(t, int64(10), account.Balance)

	blank := "  "
	_, err = f.svc.UpdateProfile(ctx, reg.User.ID, &UpdateProfileRequest{Name: &blank})
	assert.ErrorIs(t, err, ErrValidation)

	stats, err := f.svc.UserStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(1), stats.Active)
}
