package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path"
	"strconv"
	"strings"

	"voicestudio/internal/config"
	"voicestudio/internal/infrastructure/lock"
	"voicestudio/internal/infrastructure/storage"
	"voicestudio/internal/ledger"
	"voicestudio/internal/model"
	"voicestudio/internal/repository"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const ScreenshotDir = "payment_screenshots"

var allowedScreenshotExts = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

type PaymentStore interface {
	Create(ctx context.Context, payment *model.PaymentTransaction) error
	ExistsByReference(ctx context.Context, transactionID string) (bool, error)
	GetByID(ctx context.Context, id int64) (*model.PaymentTransaction, error)
	ListByUserID(ctx context.Context, userID int64) ([]*model.PaymentTransaction, error)
	List(ctx context.Context, status string, page, pageSize int) ([]*model.PaymentTransaction, int64, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, toStatus string) error
}

// SubmitPaymentRequest 用户提交转账凭证
type SubmitPaymentRequest struct {
	Amount        string `form:"amount" json:"amount" binding:"required"`
	TransactionID string `form:"transaction_id" json:"transaction_id" binding:"required,max=100"`
	PaymentMethod string `form:"payment_method" json:"payment_method" binding:"omitempty,max=50"`
}

// Screenshot 转账截图，可选
type Screenshot struct {
	Filename string
	Body     io.Reader
}

// PaymentSettings 收款信息
type PaymentSettings struct {
	UPIID          string `json:"upi_id"`
	QRCodeURL      string `json:"qr_code_url"`
	CreditsPerUnit int64  `json:"credits_per_unit"`
}

type PaymentService struct {
	payments    PaymentStore
	ledger      *ledger.Ledger
	outbox      OutboxWriter
	files       storage.Store
	redisClient *redis.Client
	business    config.BusinessConfig
	settings    config.PaymentConfig
	topic       string
	logger      *zap.Logger
}

func NewPaymentService(payments PaymentStore, l *ledger.Ledger, outbox OutboxWriter, files storage.Store, redisClient *redis.Client, cfg *config.Config, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		payments:    payments,
		ledger:      l,
		outbox:      outbox,
		files:       files,
		redisClient: redisClient,
		business:    cfg.Business,
		settings:    cfg.Payment,
		topic:       cfg.Kafka.Topic.CreditChanged,
		logger:      logger,
	}
}

func (s *PaymentService) Settings() *PaymentSettings {
	return &PaymentSettings{
		UPIID:          s.settings.UPIID,
		QRCodeURL:      s.settings.QRCodeURL,
		CreditsPerUnit: s.business.CreditsPerUnit,
	}
}

// CreditsFor 按整数金额折算积分，小数部分不计
//
// 【关键点】乘积超出 int64 时返回 false，不能让溢出后的负数积分进入审核流程
func (s *PaymentService) CreditsFor(amountCents int64) (int64, bool) {
	units := amountCents / 100
	rate := s.business.CreditsPerUnit
	if units < 0 || rate <= 0 || (units > 0 && units > math.MaxInt64/rate) {
		return 0, false
	}
	return units * rate, true
}

// Submit 提交充值申请，状态为 pending，等待管理员审核
func (s *PaymentService) Submit(ctx context.Context, userID int64, req *SubmitPaymentRequest, shot *Screenshot) (*PaymentView, error) {
	cents, err := parseAmountCents(req.Amount)
	if err != nil {
		return nil, validationError("金额格式不正确")
	}
	if cents < 100 {
		return nil, validationError("充值金额不能小于 1")
	}
	credits, ok := s.CreditsFor(cents)
	if !ok {
		return nil, validationError("充值金额过大")
	}

	reference := strings.TrimSpace(req.TransactionID)
	if reference == "" {
		return nil, validationError("交易参考号不能为空")
	}
	exists, err := s.payments.ExistsByReference(ctx, reference)
	if err != nil {
		return nil, internalError("查询充值记录失败", err)
	}
	if exists {
		return nil, conflictError("该交易参考号已提交")
	}

	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		method = "UPI"
	}

	payment := &model.PaymentTransaction{
		UserID:        userID,
		AmountCents:   cents,
		Credits:       credits,
		TransactionID: reference,
		Status:        model.PaymentStatusPending,
		PaymentMethod: method,
	}

	if shot != nil && shot.Body != nil {
		ext := strings.ToLower(path.Ext(shot.Filename))
		contentType, ok := allowedScreenshotExts[ext]
		if !ok {
			return nil, validationError("不支持的截图格式: %s", ext)
		}
		key := path.Join(ScreenshotDir, uuid.NewString()+ext)
		if err := s.files.Put(ctx, key, shot.Body, contentType); err != nil {
			return nil, internalError("保存截图失败", err)
		}
		payment.Screenshot = key
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		if payment.Screenshot != "" {
			if derr := s.files.Delete(ctx, payment.Screenshot); derr != nil {
				s.logger.Warn("删除截图失败", zap.String("key", payment.Screenshot), zap.Error(derr))
			}
		}
		if errors.Is(err, repository.ErrDuplicateReference) {
			return nil, conflictError("该交易参考号已提交")
		}
		return nil, internalError("创建充值记录失败", err)
	}

	s.logger.Info("充值申请已提交",
		zap.Int64("user_id", userID),
		zap.Int64("payment_id", payment.ID),
		zap.Int64("credits", payment.Credits))
	return newPaymentView(payment, s.files), nil
}

func (s *PaymentService) ListMine(ctx context.Context, userID int64) ([]*PaymentView, error) {
	payments, err := s.payments.ListByUserID(ctx, userID)
	if err != nil {
		return nil, internalError("查询充值记录失败", err)
	}
	views := make([]*PaymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, newPaymentView(p, s.files))
	}
	return views, nil
}

func (s *PaymentService) List(ctx context.Context, status string, page, pageSize int) ([]*PaymentView, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	payments, total, err := s.payments.List(ctx, status, page, pageSize)
	if err != nil {
		return nil, 0, internalError("查询充值记录失败", err)
	}
	views := make([]*PaymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, newPaymentView(p, s.files))
	}
	return views, total, nil
}

// Approve 审核通过并入账
//
// 【关键点】充值单状态流转和入账在同一事务，状态条件更新保证同一笔充值只入账一次
func (s *PaymentService) Approve(ctx context.Context, paymentID int64) (*PaymentView, error) {
	var view *PaymentView
	err := s.withReviewLock(ctx, paymentID, func(payment *model.PaymentTransaction) error {
		refNo := fmt.Sprintf("PAY%d", payment.ID)
		balance, err := s.ledger.Recharge(ctx, payment.UserID, payment.Credits, refNo, func(tx *gorm.DB) error {
			if err := s.payments.UpdateStatus(ctx, tx, payment.ID, model.PaymentStatusApproved); err != nil {
				return err
			}
			msg, err := model.NewOutboxMessage(s.topic, refNo, &model.CreditChangedEvent{
				UserID: payment.UserID,
				RefNo:  refNo,
				Type:   model.CreditTypeRecharge,
				Amount: payment.Credits,
			})
			if err != nil {
				return err
			}
			return s.outbox.Create(ctx, tx, msg)
		})
		if err != nil {
			if errors.Is(err, repository.ErrPaymentStatusInvalid) {
				return validationError("该充值已处理")
			}
			return internalError("充值入账失败", err)
		}

		payment.Status = model.PaymentStatusApproved
		view = newPaymentView(payment, s.files)
		s.logger.Info("充值审核通过",
			zap.Int64("payment_id", payment.ID),
			zap.Int64("user_id", payment.UserID),
			zap.Int64("credits", payment.Credits),
			zap.Int64("balance_after", balance))
		return nil
	})
	return view, err
}

// Reject 驳回充值，不改变余额
func (s *PaymentService) Reject(ctx context.Context, paymentID int64) (*PaymentView, error) {
	var view *PaymentView
	err := s.withReviewLock(ctx, paymentID, func(payment *model.PaymentTransaction) error {
		if err := s.payments.UpdateStatus(ctx, nil, payment.ID, model.PaymentStatusRejected); err != nil {
			if errors.Is(err, repository.ErrPaymentStatusInvalid) {
				return validationError("该充值已处理")
			}
			return internalError("更新充值状态失败", err)
		}
		payment.Status = model.PaymentStatusRejected
		view = newPaymentView(payment, s.files)
		s.logger.Info("充值已驳回", zap.Int64("payment_id", payment.ID))
		return nil
	})
	return view, err
}

func (s *PaymentService) withReviewLock(ctx context.Context, paymentID int64, fn func(payment *model.PaymentTransaction) error) error {
	reviewLock := lock.NewPaymentReviewLock(s.redisClient, paymentID, uuid.NewString())
	ok, err := reviewLock.TryLock(ctx)
	if err != nil {
		return internalError("获取审核锁失败", err)
	}
	if !ok {
		return conflictError("该充值正在审核中")
	}
	defer func() {
		if err := reviewLock.Unlock(ctx); err != nil {
			s.logger.Warn("释放审核锁失败", zap.Int64("payment_id", paymentID), zap.Error(err))
		}
	}()

	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return notFoundError("充值记录不存在")
		}
		return internalError("查询充值记录失败", err)
	}
	if payment.Status != model.PaymentStatusPending {
		return validationError("该充值已处理")
	}
	return fn(payment)
}

// maxAmountDigits 金额整数部分最多位数（共 10 位有效数字、2 位小数）
const maxAmountDigits = 8

// parseAmountCents 解析最多两位小数的金额
func parseAmountCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" || len(frac) > 2 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if len(strings.TrimLeft(whole, "0")) > maxAmountDigits {
		return 0, fmt.Errorf("amount %q out of range", s)
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, err
	}
	for len(frac) < 2 {
		frac += "0"
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || strings.ContainsAny(frac, "+-") {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return units*100 + cents, nil
}

func formatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
