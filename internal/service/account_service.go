package service

import (
	"context"
	"errors"
	"fmt"

	"voicestudio/internal/ledger"
	"voicestudio/internal/model"
	"voicestudio/internal/repository"
)

type TransactionLister interface {
	ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.CreditTransaction, int64, error)
}

// AccountService 积分余额与流水查询
type AccountService struct {
	ledger       *ledger.Ledger
	transactions TransactionLister
}

func NewAccountService(l *ledger.Ledger, transactions TransactionLister) *AccountService {
	return &AccountService{ledger: l, transactions: transactions}
}

func (s *AccountService) GetBalance(ctx context.Context, userID int64) (int64, error) {
	balance, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return 0, notFoundError("账户不存在")
		}
		return 0, internalError("查询余额失败", err)
	}
	return balance, nil
}

// ListTransactions 积分流水，最新的在前
func (s *AccountService) ListTransactions(ctx context.Context, userID int64, page, pageSize int) ([]*model.CreditTransaction, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	list, total, err := s.transactions.ListByUserID(ctx, userID, page, pageSize)
	if err != nil {
		return nil, 0, internalError("查询积分流水失败", err)
	}
	return list, total, nil
}

// CompensateRequest 管理员人工补偿积分
type CompensateRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0,max=1000000"`
	Remark string `json:"remark" binding:"required,max=255"`
}

// Compensate 人工补偿：给用户退还积分并写 REFUND 流水，ref_no 记录操作的管理员
//
// 【关键点】用于补偿任务之外的人工处理，例如存储故障后用户投诉未到账
func (s *AccountService) Compensate(ctx context.Context, operatorID, userID int64, req *CompensateRequest) (int64, error) {
	if req.Amount <= 0 {
		return 0, validationError("补偿积分必须大于0")
	}
	balance, err := s.ledger.Refund(ctx, userID, req.Amount, fmt.Sprintf("ADMIN_%d", operatorID), req.Remark)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return 0, notFoundError("账户不存在")
		}
		return 0, internalError("补偿积分失败", err)
	}
	return balance, nil
}
