// Package ledger 积分账本
//
// 账户余额的唯一写入口。生成语音前先 Reserve 得到预扣凭证，
// 生成记录落库时 Commit，其余任何退出路径都 Release。
package ledger

import (
	"context"
	"errors"
	"fmt"

	"voicestudio/internal/infrastructure/metrics"
	"voicestudio/internal/model"
	"voicestudio/pkg/idgen"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInsufficientCredit = errors.New("积分不足")
	ErrReservationSettled = errors.New("预扣已结算")
	ErrInvalidAmount      = errors.New("积分数量不合法")
)

const (
	RefundSourceRequest   = "request"
	RefundSourceReconcile = "reconcile"
	RefundSourceManual    = "manual"
)

type Ledger struct {
	store   Store
	ids     *idgen.Snowflake
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func New(store Store, ids *idgen.Snowflake, m *metrics.Metrics, logger *zap.Logger) *Ledger {
	return &Ledger{store: store, ids: ids, metrics: m, logger: logger}
}

// Reserve 预扣积分
//
// amount 为 0 时只读取当前余额用于回显，不写预扣单和流水，
// 返回的凭证 Commit / Release 都不改余额；账户不存在时照常返回读取错误。
// 余额不足时返回 ErrInsufficientCredit，此时余额没有任何变化
func (l *Ledger) Reserve(ctx context.Context, userID, amount int64, remark string) (*Reservation, error) {
	if amount < 0 {
		return nil, ErrInvalidAmount
	}

	r := &Reservation{ledger: l, userID: userID, amount: amount}
	if amount == 0 {
		balance, err := l.store.Balance(ctx, userID)
		if err != nil {
			return nil, err
		}
		r.balanceAfter = balance
		return r, nil
	}

	r.no = l.ids.ReservationNo()
	balanceAfter, err := l.store.Reserve(ctx, r.no, l.ids.TransactionNo(), userID, amount, remark)
	if err != nil {
		if errors.Is(err, ErrInsufficientCredit) {
			l.metrics.Reservation("insufficient")
			return nil, err
		}
		l.metrics.Reservation("error")
		return nil, fmt.Errorf("预扣积分失败: %w", err)
	}
	r.balanceAfter = balanceAfter
	l.metrics.Reservation("ok")

	l.logger.Debug("预扣积分成功",
		zap.Int64("user_id", userID),
		zap.String("reservation_no", r.no),
		zap.Int64("amount", amount),
		zap.Int64("balance_after", balanceAfter))
	return r, nil
}

// Refund 无条件退还积分，写一条 REFUND 流水
func (l *Ledger) Refund(ctx context.Context, userID, amount int64, refNo, remark string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	balance, err := l.store.Credit(ctx, &Entry{
		UserID:        userID,
		Amount:        amount,
		Type:          model.CreditTypeRefund,
		RefNo:         refNo,
		TransactionNo: l.ids.TransactionNo(),
		Remark:        remark,
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("退还积分失败: %w", err)
	}
	l.metrics.Refund(RefundSourceManual)
	return balance, nil
}

// Recharge 充值入账，fn 为同一事务内的充值单状态流转
func (l *Ledger) Recharge(ctx context.Context, userID, amount int64, refNo string, fn TxFunc) (int64, error) {
	return l.credit(ctx, &Entry{UserID: userID}, model.CreditTypeRecharge, amount, refNo, "充值审核通过", fn)
}

// CreateFunc 在事务内创建账户并返回账户ID
type CreateFunc func(tx *gorm.DB) (userID int64, err error)

// Grant 注册赠送，账户创建与赠送入账在同一事务内完成
func (l *Ledger) Grant(ctx context.Context, amount int64, create CreateFunc) (int64, error) {
	entry := &Entry{}
	return l.credit(ctx, entry, model.CreditTypeGrant, amount, l.ids.NextNo(idgen.PrefixGrant), "注册赠送", func(tx *gorm.DB) error {
		userID, err := create(tx)
		if err != nil {
			return err
		}
		entry.UserID = userID
		return nil
	})
}

func (l *Ledger) credit(ctx context.Context, entry *Entry, typ string, amount int64, refNo, remark string, fn TxFunc) (int64, error) {
	if amount < 0 {
		return 0, ErrInvalidAmount
	}
	if amount == 0 {
		if fn != nil {
			if err := l.store.InTx(ctx, fn); err != nil {
				return 0, err
			}
		}
		return l.store.Balance(ctx, entry.UserID)
	}
	entry.Amount = amount
	entry.Type = typ
	entry.RefNo = refNo
	entry.TransactionNo = l.ids.TransactionNo()
	entry.Remark = remark
	return l.store.Credit(ctx, entry, fn)
}

// Balance 读取最新余额，不做缓存
func (l *Ledger) Balance(ctx context.Context, userID int64) (int64, error) {
	return l.store.Balance(ctx, userID)
}

// ReleaseByNo 按单号释放预扣，供补偿任务使用
func (l *Ledger) ReleaseByNo(ctx context.Context, reservationNo string) (bool, error) {
	released, err := l.store.Release(ctx, reservationNo, l.ids.TransactionNo())
	if err != nil {
		return false, err
	}
	if released {
		l.metrics.Refund(RefundSourceReconcile)
	}
	return released, nil
}
