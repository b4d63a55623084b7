package job

import (
	"context"
	"time"

	"voicestudio/internal/model"

	"go.uber.org/zap"
)

type StaleReservationLister interface {
	ListStale(ctx context.Context, before time.Time, limit int) ([]*model.CreditReservation, error)
}

// ReservationReleaser 按单号释放预扣，已结算的返回 false
type ReservationReleaser interface {
	ReleaseByNo(ctx context.Context, reservationNo string) (bool, error)
}

// ReservationReconcileJob 补偿任务
//
// 进程在生成过程中崩溃时，预扣会停留在 RESERVED。超过 staleAfter 仍未结算的一律退还，
// 退还与请求链路共用同一个条件流转，同一笔预扣不会退两次
type ReservationReconcileJob struct {
	reservations StaleReservationLister
	releaser     ReservationReleaser
	staleAfter   time.Duration
	logger       *zap.Logger
	now          func() time.Time
	stopCh       chan struct{}
	interval     time.Duration
	batchSize    int
}

func NewReservationReconcileJob(reservations StaleReservationLister, releaser ReservationReleaser, staleAfter time.Duration, logger *zap.Logger) *ReservationReconcileJob {
	return &ReservationReconcileJob{
		reservations: reservations,
		releaser:     releaser,
		staleAfter:   staleAfter,
		logger:       logger.Named("ReservationReconcileJob"),
		now:          time.Now,
		stopCh:       make(chan struct{}),
		interval:     30 * time.Second,
		batchSize:    50,
	}
}

func (j *ReservationReconcileJob) Start(ctx context.Context) {
	j.logger.Info("补偿任务启动", zap.Duration("stale_after", j.staleAfter))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("收到停止信号，任务退出")
			return
		case <-j.stopCh:
			j.logger.Info("任务停止")
			return
		case <-ticker.C:
			j.releaseStale(ctx)
		}
	}
}

func (j *ReservationReconcileJob) Stop() {
	close(j.stopCh)
}

// releaseStale 返回本轮实际退还的数量
func (j *ReservationReconcileJob) releaseStale(ctx context.Context) int {
	before := j.now().Add(-j.staleAfter)
	reservations, err := j.reservations.ListStale(ctx, before, j.batchSize)
	if err != nil {
		j.logger.Warn("查询滞留预扣失败", zap.Error(err))
		return 0
	}
	if len(reservations) == 0 {
		return 0
	}

	j.logger.Info("发现滞留预扣", zap.Int("count", len(reservations)))

	released := 0
	for _, r := range reservations {
		if ctx.Err() != nil {
			break
		}
		ok, err := j.releaser.ReleaseByNo(ctx, r.ReservationNo)
		if err != nil {
			j.logger.Warn("释放预扣失败", zap.String("reservation_no", r.ReservationNo), zap.Error(err))
			continue
		}
		if !ok {
			// 请求链路已经结算
			continue
		}
		released++
		j.logger.Info("滞留预扣已退还",
			zap.String("reservation_no", r.ReservationNo),
			zap.Int64("user_id", r.UserID),
			zap.Int64("amount", r.Amount))
	}

	j.logger.Info("本次退还滞留预扣", zap.Int("released", released))
	return released
}
