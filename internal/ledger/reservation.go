package ledger

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Reservation 预扣凭证
//
// 只能结算一次：Commit 成功或 Release 之后，再调用 Release 都是空操作。
// Commit 失败时凭证保持未结算，调用方应继续 Release
type Reservation struct {
	ledger       *Ledger
	no           string
	userID       int64
	amount       int64
	balanceAfter int64

	mu      sync.Mutex
	settled bool
}

func (r *Reservation) No() string          { return r.no }
func (r *Reservation) UserID() int64       { return r.userID }
func (r *Reservation) Amount() int64       { return r.amount }
func (r *Reservation) BalanceAfter() int64 { return r.balanceAfter }

// Commit 确认扣费，fn 与状态流转在同一事务内执行
func (r *Reservation) Commit(ctx context.Context, fn TxFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.settled {
		return ErrReservationSettled
	}

	var err error
	if r.amount == 0 {
		if fn != nil {
			err = r.ledger.store.InTx(ctx, fn)
		}
	} else {
		err = r.ledger.store.Commit(ctx, r.no, fn)
	}
	if err != nil {
		return err
	}
	r.settled = true
	return nil
}

// Release 退还预扣
//
// 【关键点】先置 settled 再访问存储：即使存储出错也不会在本进程内重复退还，
// 遗留的 RESERVED 单由 ReservationReconcileJob 兜底
func (r *Reservation) Release(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.settled {
		return nil
	}
	r.settled = true

	if r.amount == 0 {
		return nil
	}

	released, err := r.ledger.store.Release(ctx, r.no, r.ledger.ids.TransactionNo())
	if err != nil {
		r.ledger.logger.Error("退还预扣失败，等待补偿任务处理",
			zap.String("reservation_no", r.no),
			zap.Int64("user_id", r.userID),
			zap.Error(err))
		return err
	}
	if released {
		r.ledger.metrics.Refund(RefundSourceRequest)
		r.ledger.logger.Info("预扣已退还",
			zap.String("reservation_no", r.no),
			zap.Int64("user_id", r.userID),
			zap.Int64("amount", r.amount))
	}
	return nil
}
