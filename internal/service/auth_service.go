package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"voicestudio/internal/config"
	"voicestudio/internal/infrastructure/cache"
	"voicestudio/internal/ledger"
	"voicestudio/internal/model"
	"voicestudio/internal/repository"
	"voicestudio/pkg/token"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type AccountStore interface {
	Create(ctx context.Context, tx *gorm.DB, account *model.Account) error
	GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	List(ctx context.Context, filter repository.AccountFilter, page, pageSize int) ([]*model.Account, int64, error)
	Stats(ctx context.Context) (*repository.AccountStats, error)
}

type OTPStore interface {
	Save(ctx context.Context, p *cache.PendingSignup) error
	Get(ctx context.Context, email string) (*cache.PendingSignup, error)
	Consume(ctx context.Context, email string) (bool, error)
}

type RegisterRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Name            string `json:"name" binding:"required,max=255"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"password_confirm" binding:"required"`
}

type SendOTPRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required,max=255"`
	Password string `json:"password" binding:"required"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"otp" binding:"required,len=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	OldPassword        string `json:"old_password" binding:"required"`
	NewPassword        string `json:"new_password" binding:"required"`
	NewPasswordConfirm string `json:"new_password_confirm" binding:"required"`
}

type UpdateProfileRequest struct {
	Name *string `json:"name" binding:"omitempty,max=255"`
}

// AdminUpdateUserRequest 管理员修改用户，积分不能在这里修改
type AdminUpdateUserRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=255"`
	IsActive *bool   `json:"is_active"`
	IsAdmin  *bool   `json:"is_admin"`
}

// AuthResult 登录或注册成功后的返回
type AuthResult struct {
	User   *model.Account `json:"user"`
	Tokens *token.Pair    `json:"tokens"`
}

type AuthService struct {
	accounts AccountStore
	ledger   *ledger.Ledger
	otp      OTPStore
	outbox   OutboxWriter
	tokens   *token.Issuer
	cfg      config.BusinessConfig
	topic    string
	logger   *zap.Logger
}

func NewAuthService(accounts AccountStore, l *ledger.Ledger, otp OTPStore, outbox OutboxWriter, tokens *token.Issuer, cfg config.BusinessConfig, mailTopic string, logger *zap.Logger) *AuthService {
	return &AuthService{
		accounts: accounts,
		ledger:   l,
		otp:      otp,
		outbox:   outbox,
		tokens:   tokens,
		cfg:      cfg,
		topic:    mailTopic,
		logger:   logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkPassword(password, confirm string) error {
	if len(password) < minPasswordLength {
		return validationError("密码长度不能少于 %d 位", minPasswordLength)
	}
	if password != confirm {
		return validationError("两次输入的密码不一致")
	}
	return nil
}

func (s *AuthService) ensureEmailFree(ctx context.Context, email string) error {
	exists, err := s.accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return internalError("查询账户失败", err)
	}
	if exists {
		return conflictError("该邮箱已注册")
	}
	return nil
}

// Register 直接注册，账户创建和注册赠送在同一事务
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error) {
	email := normalizeEmail(req.Email)
	if err := checkPassword(req.Password, req.PasswordConfirm); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internalError("密码加密失败", err)
	}
	return s.createAccount(ctx, email, strings.TrimSpace(req.Name), string(hash))
}

// SendOTP 保存待验证的注册信息并投递验证码邮件
//
// 同一邮箱重复发送时覆盖旧验证码
func (s *AuthService) SendOTP(ctx context.Context, req *SendOTPRequest) error {
	email := normalizeEmail(req.Email)
	if len(req.Password) < minPasswordLength {
		return validationError("密码长度不能少于 %d 位", minPasswordLength)
	}
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return internalError("密码加密失败", err)
	}
	code, err := generateOTP()
	if err != nil {
		return internalError("生成验证码失败", err)
	}

	pending := &cache.PendingSignup{
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: string(hash),
		Code:         code,
	}
	if err := s.otp.Save(ctx, pending); err != nil {
		return internalError("保存验证码失败", err)
	}

	msg, err := model.NewOutboxMessage(s.topic, email, &model.MailOTPEvent{
		Email:     email,
		Name:      pending.Name,
		Code:      code,
		ExpiresIn: s.cfg.OTPTTLMinutes,
	})
	if err != nil {
		return internalError("序列化邮件事件失败", err)
	}
	if err := s.outbox.Create(ctx, nil, msg); err != nil {
		return internalError("写入邮件消息失败", err)
	}

	s.logger.Info("注册验证码已生成", zap.String("email", email))
	return nil
}

// VerifyOTP 校验验证码并创建账户，同一验证码只能使用一次
func (s *AuthService) VerifyOTP(ctx context.Context, req *VerifyOTPRequest) (*AuthResult, error) {
	email := normalizeEmail(req.Email)
	pending, err := s.otp.Get(ctx, email)
	if err != nil {
		if errors.Is(err, cache.ErrOTPNotFound) {
			return nil, validationError("验证码不存在或已过期，请重新获取")
		}
		return nil, internalError("读取验证码失败", err)
	}
	if subtle.ConstantTimeCompare([]byte(pending.Code), []byte(req.Code)) != 1 {
		return nil, validationError("验证码错误")
	}

	consumed, err := s.otp.Consume(ctx, email)
	if err != nil {
		return nil, internalError("删除验证码失败", err)
	}
	if !consumed {
		return nil, validationError("验证码不存在或已过期，请重新获取")
	}

	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}
	return s.createAccount(ctx, email, pending.Name, pending.PasswordHash)
}

func (s *AuthService) createAccount(ctx context.Context, email, name, passwordHash string) (*AuthResult, error) {
	account := &model.Account{
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		IsActive:     true,
	}
	balance, err := s.ledger.Grant(ctx, s.cfg.SignupCredits, func(tx *gorm.DB) (int64, error) {
		if err := s.accounts.Create(ctx, tx, account); err != nil {
			return 0, err
		}
		return account.ID, nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflictError("该邮箱已注册")
		}
		return nil, internalError("创建账户失败", err)
	}
	account.Balance = balance

	pair, err := s.tokens.IssuePair(account.ID, account.Email, account.IsAdmin)
	if err != nil {
		return nil, internalError("签发令牌失败", err)
	}

	s.logger.Info("账户创建成功",
		zap.Int64("user_id", account.ID),
		zap.String("email", email),
		zap.Int64("credits", balance))
	return &AuthResult{User: account, Tokens: pair}, nil
}

// Login 邮箱密码登录，账户不存在与密码错误返回相同错误
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResult, error) {
	account, err := s.accounts.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: 邮箱或密码错误", ErrUnauthorized)
		}
		return nil, internalError("查询账户失败", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: 邮箱或密码错误", ErrUnauthorized)
	}
	if !account.IsActive {
		return nil, fmt.Errorf("%w: 账户已停用", ErrForbidden)
	}

	pair, err := s.tokens.IssuePair(account.ID, account.Email, account.IsAdmin)
	if err != nil {
		return nil, internalError("签发令牌失败", err)
	}
	return &AuthResult{User: account, Tokens: pair}, nil
}

// Refresh 用刷新令牌换新令牌对，管理员标记以数据库为准
func (s *AuthService) Refresh(ctx context.Context, refresh string) (*token.Pair, error) {
	claims, err := s.tokens.Validate(refresh, token.TypeRefresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	account, err := s.activeAccount(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	pair, err := s.tokens.IssuePair(account.ID, account.Email, account.IsAdmin)
	if err != nil {
		return nil, internalError("签发令牌失败", err)
	}
	return pair, nil
}

// Authenticate 校验访问令牌并加载账户，供中间件使用
func (s *AuthService) Authenticate(ctx context.Context, access string) (*model.Account, error) {
	claims, err := s.tokens.Validate(access, token.TypeAccess)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return s.activeAccount(ctx, claims.UserID)
}

func (s *AuthService) activeAccount(ctx context.Context, userID int64) (*model.Account, error) {
	account, err := s.accounts.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: 账户不存在", ErrUnauthorized)
		}
		return nil, internalError("查询账户失败", err)
	}
	if !account.IsActive {
		return nil, fmt.Errorf("%w: 账户已停用", ErrForbidden)
	}
	return account, nil
}

// Profile 返回最新账户信息，余额实时读取
func (s *AuthService) Profile(ctx context.Context, userID int64) (*model.Account, error) {
	account, err := s.accounts.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, notFoundError("账户不存在")
		}
		return nil, internalError("查询账户失败", err)
	}
	return account, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (*model.Account, error) {
	fields := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, validationError("姓名不能为空")
		}
		fields["name"] = name
	}
	if err := s.accounts.UpdateFields(ctx, userID, fields); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, notFoundError("账户不存在")
		}
		return nil, internalError("更新资料失败", err)
	}
	return s.Profile(ctx, userID)
}

func (s *AuthService) ChangePassword(ctx context.Context, userID int64, req *ChangePasswordRequest) error {
	account, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.OldPassword)); err != nil {
		return validationError("原密码错误")
	}
	if err := checkPassword(req.NewPassword, req.NewPasswordConfirm); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return internalError("密码加密失败", err)
	}
	if err := s.accounts.UpdateFields(ctx, userID, map[string]interface{}{"password_hash": string(hash)}); err != nil {
		return internalError("修改密码失败", err)
	}
	return nil
}

func (s *AuthService) ListUsers(ctx context.Context, filter repository.AccountFilter, page, pageSize int) ([]*model.Account, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	users, total, err := s.accounts.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, 0, internalError("查询用户列表失败", err)
	}
	return users, total, nil
}

func (s *AuthService) GetUser(ctx context.Context, userID int64) (*model.Account, error) {
	return s.Profile(ctx, userID)
}

// UpdateUser 管理员修改用户资料与状态
func (s *AuthService) UpdateUser(ctx context.Context, userID int64, req *AdminUpdateUserRequest) (*model.Account, error) {
	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}
	if req.IsAdmin != nil {
		fields["is_admin"] = *req.IsAdmin
	}
	if err := s.accounts.UpdateFields(ctx, userID, fields); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, notFoundError("账户不存在")
		}
		return nil, internalError("更新用户失败", err)
	}
	return s.Profile(ctx, userID)
}

func (s *AuthService) UserStats(ctx context.Context) (*repository.AccountStats, error) {
	stats, err := s.accounts.Stats(ctx)
	if err != nil {
		return nil, internalError("统计用户失败", err)
	}
	return stats, nil
}

// generateOTP 六位数字验证码
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
