package job

import (
	"context"
	"time"

	"voicestudio/internal/model"

	"go.uber.org/zap"
)

// CloneQueue 待处理的克隆音色
type CloneQueue interface {
	ListByStatus(ctx context.Context, status string, limit int) ([]*model.VoiceClone, error)
	UpdateStatus(ctx context.Context, id int64, fromStatus, toStatus string, isActive *bool) error
}

type SampleChecker interface {
	Exists(ctx context.Context, key string) (bool, error)
}

// CloneProcessJob 处理新上传的克隆音色
//
// pending → processing，样本文件存在则 ready，否则 failed
type CloneProcessJob struct {
	clones    CloneQueue
	samples   SampleChecker
	logger    *zap.Logger
	stopCh    chan struct{}
	interval  time.Duration
	batchSize int
}

func NewCloneProcessJob(clones CloneQueue, samples SampleChecker, logger *zap.Logger) *CloneProcessJob {
	return &CloneProcessJob{
		clones:    clones,
		samples:   samples,
		logger:    logger.Named("CloneProcessJob"),
		stopCh:    make(chan struct{}),
		interval:  10 * time.Second,
		batchSize: 100,
	}
}

func (j *CloneProcessJob) Start(ctx context.Context) {
	j.logger.Info("克隆音色处理任务启动")

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
			j.processPending(ctx)
		}
	}
}

func (j *CloneProcessJob) Stop() {
	close(j.stopCh)
}

func (j *CloneProcessJob) processPending(ctx context.Context) {
	clones, err := j.clones.ListByStatus(ctx, model.CloneStatusPending, j.batchSize)
	if err != nil {
		j.logger.Warn("查询待处理克隆失败", zap.Error(err))
		return
	}
	if len(clones) == 0 {
		return
	}

	j.logger.Info("发现待处理克隆", zap.Int("count", len(clones)))

	for _, clone := range clones {
		if ctx.Err() != nil {
			return
		}
		j.process(ctx, clone)
	}
}

func (j *CloneProcessJob) process(ctx context.Context, clone *model.VoiceClone) {
	// 条件更新失败说明已被管理员或其他实例处理
	if err := j.clones.UpdateStatus(ctx, clone.ID, model.CloneStatusPending, model.CloneStatusProcessing, nil); err != nil {
		j.logger.Debug("跳过克隆", zap.Int64("clone_id", clone.ID), zap.Error(err))
		return
	}

	target := model.CloneStatusReady
	exists, err := j.samples.Exists(ctx, clone.AudioSample)
	if err != nil {
		// 存储暂时不可用，留在 processing 由管理员审核
		j.logger.Warn("检查样本文件失败", zap.Int64("clone_id", clone.ID), zap.Error(err))
		return
	}
	if !exists {
		target = model.CloneStatusFailed
	}

	if err := j.clones.UpdateStatus(ctx, clone.ID, model.CloneStatusProcessing, target, nil); err != nil {
		j.logger.Warn("更新克隆状态失败", zap.Int64("clone_id", clone.ID), zap.String("to", target), zap.Error(err))
		return
	}
	j.logger.Info("克隆处理完成", zap.Int64("clone_id", clone.ID), zap.Int64("user_id", clone.UserID), zap.String("status", target))
}
