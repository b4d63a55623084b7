// Package ledgertest 提供内存版积分存储，供各包测试使用
package ledgertest

import (
	"context"
	"sync"

	"voicestudio/internal/ledger"
	"voicestudio/internal/model"
	"voicestudio/internal/repository"
)

// MemoryStore 线程安全的内存积分存储，行为与 GormStore 一致
type MemoryStore struct {
	mu           sync.Mutex
	balances     map[int64]int64
	reservations map[string]*model.CreditReservation
	entries      []model.CreditTransaction

	// CommitErr 非 nil 时 Commit 返回该错误且不改变状态
	CommitErr error
}

var _ ledger.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		balances:     make(map[int64]int64),
		reservations: make(map[string]*model.CreditReservation),
	}
}

func (s *MemoryStore) SetBalance(userID, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] = balance
}

// Entries 返回指定类型的流水
func (s *MemoryStore) Entries(typ string) []model.CreditTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.CreditTransaction
	for _, e := range s.entries {
		if typ == "" || e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func (s *MemoryStore) ReservationStatus(no string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reservations[no]; ok {
		return r.Status
	}
	return ""
}

func (s *MemoryStore) Reserve(_ context.Context, reservationNo, transactionNo string, userID, amount int64, remark string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, ok := s.balances[userID]
	if !ok {
		return 0, repository.ErrAccountNotFound
	}
	if balance < amount {
		return 0, ledger.ErrInsufficientCredit
	}
	s.balances[userID] = balance - amount
	s.reservations[reservationNo] = &model.CreditReservation{
		ReservationNo: reservationNo,
		UserID:        userID,
		Amount:        amount,
		Status:        model.ReservationStatusReserved,
		Remark:        remark,
	}
	s.entries = append(s.entries, model.CreditTransaction{
		TransactionNo: transactionNo,
		UserID:        userID,
		RefNo:         reservationNo,
		Amount:        -amount,
		Type:          model.CreditTypeReserve,
		BalanceBefore: balance,
		BalanceAfter:  balance - amount,
	})
	return balance - amount, nil
}

func (s *MemoryStore) Release(_ context.Context, reservationNo, transactionNo string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[reservationNo]
	if !ok {
		return false, repository.ErrReservationNotFound
	}
	if r.Status != model.ReservationStatusReserved {
		return false, nil
	}
	r.Status = model.ReservationStatusReleased
	before := s.balances[r.UserID]
	s.balances[r.UserID] = before + r.Amount
	s.entries = append(s.entries, model.CreditTransaction{
		TransactionNo: transactionNo,
		UserID:        r.UserID,
		RefNo:         reservationNo,
		Amount:        r.Amount,
		Type:          model.CreditTypeRefund,
		BalanceBefore: before,
		BalanceAfter:  before + r.Amount,
	})
	return true, nil
}

func (s *MemoryStore) Commit(_ context.Context, reservationNo string, fn ledger.TxFunc) error {
	s.mu.Lock()
	if s.CommitErr != nil {
		s.mu.Unlock()
		return s.CommitErr
	}
	r, ok := s.reservations[reservationNo]
	if !ok || r.Status != model.ReservationStatusReserved {
		s.mu.Unlock()
		return ledger.ErrReservationSettled
	}
	s.mu.Unlock()

	if fn != nil {
		if err := fn(nil); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Status != model.ReservationStatusReserved {
		return ledger.ErrReservationSettled
	}
	r.Status = model.ReservationStatusCommitted
	return nil
}

// Credit fn 在加锁前执行，注册赠送场景下账户在 fn 内通过 SetBalance 创建
func (s *MemoryStore) Credit(_ context.Context, entry *ledger.Entry, fn ledger.TxFunc) (int64, error) {
	if fn != nil {
		if err := fn(nil); err != nil {
			return 0, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	before, ok := s.balances[entry.UserID]
	if !ok {
		return 0, repository.ErrAccountNotFound
	}
	s.balances[entry.UserID] = before + entry.Amount
	s.entries = append(s.entries, model.CreditTransaction{
		TransactionNo: entry.TransactionNo,
		UserID:        entry.UserID,
		RefNo:         entry.RefNo,
		Amount:        entry.Amount,
		Type:          entry.Type,
		BalanceBefore: before,
		BalanceAfter:  before + entry.Amount,
		Remark:        entry.Remark,
	})
	return before + entry.Amount, nil
}

func (s *MemoryStore) Balance(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	balance, ok := s.balances[userID]
	if !ok {
		return 0, repository.ErrAccountNotFound
	}
	return balance, nil
}

func (s *MemoryStore) InTx(_ context.Context, fn ledger.TxFunc) error {
	return fn(nil)
}
