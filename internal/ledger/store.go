package ledger

import (
	"context"
	"errors"

	"voicestudio/internal/model"
	"voicestudio/internal/repository"

	"gorm.io/gorm"
)

// TxFunc 在入账/提交事务内执行的业务写入，tx 为当前事务
type TxFunc func(tx *gorm.DB) error

// Entry 一次入账的参数
type Entry struct {
	UserID        int64
	Amount        int64
	Type          string
	RefNo         string
	TransactionNo string
	Remark        string
}

// Store 积分存储，余额只能经由它修改
type Store interface {
	// Reserve 条件扣减并写入预扣单，余额不足返回 ErrInsufficientCredit
	Reserve(ctx context.Context, reservationNo, transactionNo string, userID, amount int64, remark string) (balanceAfter int64, err error)
	// Release 把 RESERVED 的预扣单置为 RELEASED 并退还积分，已结算时返回 false
	Release(ctx context.Context, reservationNo, transactionNo string) (released bool, err error)
	// Commit 把 RESERVED 的预扣单置为 COMMITTED 并在同一事务内执行 fn
	Commit(ctx context.Context, reservationNo string, fn TxFunc) error
	// Credit 无条件入账，fn 先于入账在同一事务内执行，执行完 fn 后才读取 entry.UserID
	Credit(ctx context.Context, entry *Entry, fn TxFunc) (balanceAfter int64, err error)
	// Balance 从存储读取最新余额
	Balance(ctx context.Context, userID int64) (int64, error)
	// InTx 在事务内执行 fn，用于零积分的提交
	InTx(ctx context.Context, fn TxFunc) error
}

// GormStore 基于 MySQL 的积分存储
type GormStore struct {
	db              *gorm.DB
	accountRepo     *repository.AccountRepository
	reservationRepo *repository.ReservationRepository
	transactionRepo *repository.CreditTransactionRepository
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db:              db,
		accountRepo:     repository.NewAccountRepository(db),
		reservationRepo: repository.NewReservationRepository(db),
		transactionRepo: repository.NewCreditTransactionRepository(db),
	}
}

// Reserve 预扣积分
//
// 【事务流程】
//  1. 条件扣减余额（balance >= amount）
//  2. 读回扣减后余额
//  3. 写预扣单（RESERVED）
//  4. 写 RESERVE 流水
func (s *GormStore) Reserve(ctx context.Context, reservationNo, transactionNo string, userID, amount int64, remark string) (int64, error) {
	var balanceAfter int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.accountRepo.Deduct(ctx, tx, userID, amount); err != nil {
			if errors.Is(err, repository.ErrBalanceNotEnough) {
				return ErrInsufficientCredit
			}
			return err
		}

		account, err := s.accountRepo.GetByID(ctx, tx, userID)
		if err != nil {
			return err
		}
		balanceAfter = account.Balance

		if err := s.reservationRepo.Create(ctx, tx, &model.CreditReservation{
			ReservationNo: reservationNo,
			UserID:        userID,
			Amount:        amount,
			Status:        model.ReservationStatusReserved,
			Remark:        remark,
		}); err != nil {
			return err
		}

		return s.transactionRepo.Create(ctx, tx, &model.CreditTransaction{
			TransactionNo: transactionNo,
			UserID:        userID,
			RefNo:         reservationNo,
			Amount:        -amount,
			Type:          model.CreditTypeReserve,
			BalanceBefore: balanceAfter + amount,
			BalanceAfter:  balanceAfter,
			Remark:        remark,
		})
	})
	return balanceAfter, err
}

// Release 退还预扣
//
// 【关键点】先做状态流转再加余额，流转失败（已提交或已释放）直接返回，
// 所以同一笔预扣无论被调用多少次，最多只退还一次
func (s *GormStore) Release(ctx context.Context, reservationNo, transactionNo string) (bool, error) {
	released := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reservation, err := s.reservationRepo.GetByNo(ctx, tx, reservationNo)
		if err != nil {
			return err
		}

		changed, err := s.reservationRepo.Transition(ctx, tx, reservationNo,
			model.ReservationStatusReserved, model.ReservationStatusReleased)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		if err := s.accountRepo.Increase(ctx, tx, reservation.UserID, reservation.Amount); err != nil {
			return err
		}
		account, err := s.accountRepo.GetByID(ctx, tx, reservation.UserID)
		if err != nil {
			return err
		}

		if err := s.transactionRepo.Create(ctx, tx, &model.CreditTransaction{
			TransactionNo: transactionNo,
			UserID:        reservation.UserID,
			RefNo:         reservationNo,
			Amount:        reservation.Amount,
			Type:          model.CreditTypeRefund,
			BalanceBefore: account.Balance - reservation.Amount,
			BalanceAfter:  account.Balance,
			Remark:        "预扣退还",
		}); err != nil {
			return err
		}
		released = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return released, nil
}

func (s *GormStore) Commit(ctx context.Context, reservationNo string, fn TxFunc) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		changed, err := s.reservationRepo.Transition(ctx, tx, reservationNo,
			model.ReservationStatusReserved, model.ReservationStatusCommitted)
		if err != nil {
			return err
		}
		if !changed {
			return ErrReservationSettled
		}
		if fn == nil {
			return nil
		}
		return fn(tx)
	})
}

func (s *GormStore) Credit(ctx context.Context, entry *Entry, fn TxFunc) (int64, error) {
	var balanceAfter int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if fn != nil {
			if err := fn(tx); err != nil {
				return err
			}
		}

		if err := s.accountRepo.Increase(ctx, tx, entry.UserID, entry.Amount); err != nil {
			return err
		}
		account, err := s.accountRepo.GetByID(ctx, tx, entry.UserID)
		if err != nil {
			return err
		}
		balanceAfter = account.Balance

		return s.transactionRepo.Create(ctx, tx, &model.CreditTransaction{
			TransactionNo: entry.TransactionNo,
			UserID:        entry.UserID,
			RefNo:         entry.RefNo,
			Amount:        entry.Amount,
			Type:          entry.Type,
			BalanceBefore: balanceAfter - entry.Amount,
			BalanceAfter:  balanceAfter,
			Remark:        entry.Remark,
		})
	})
	return balanceAfter, err
}

func (s *GormStore) Balance(ctx context.Context, userID int64) (int64, error) {
	account, err := s.accountRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

func (s *GormStore) InTx(ctx context.Context, fn TxFunc) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}
