package job

import (
	"context"
	"time"

	"voicestudio/internal/model"

	"go.uber.org/zap"
)

// OutboxStore 本地消息表读写
type OutboxStore interface {
	ListByStatus(ctx context.Context, status string, limit int) ([]*model.OutboxMessage, error)
	MarkAsSent(ctx context.Context, id int64) error
	MarkRetry(ctx context.Context, id int64, retryCount, maxRetry int) error
}

// MessageSender 消息投递，生产环境为 Kafka 生产者
type MessageSender interface {
	Send(topic, key, value string) error
}

type OutboxSender struct {
	outbox    OutboxStore
	sender    MessageSender
	maxRetry  int
	logger    *zap.Logger
	stopCh    chan struct{}
	interval  time.Duration
	batchSize int
}

func NewOutboxSender(outbox OutboxStore, sender MessageSender, maxRetry int, logger *zap.Logger) *OutboxSender {
	return &OutboxSender{
		outbox:    outbox,
		sender:    sender,
		maxRetry:  maxRetry,
		logger:    logger.Named("OutboxSender"),
		stopCh:    make(chan struct{}),
		interval:  100 * time.Millisecond,
		batchSize: 100,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	s.logger.Info("消息发送任务启动")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("收到停止信号，任务退出")
			return
		case <-s.stopCh:
			s.logger.Info("任务停止")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

func (s *OutboxSender) processPendingMessages(ctx context.Context) {
	messages, err := s.outbox.ListByStatus(ctx, model.OutboxStatusPending, s.batchSize)
	if err != nil {
		s.logger.Warn("查询消息失败", zap.Error(err))
		return
	}

	for _, msg := range messages {
		if ctx.Err() != nil {
			return
		}
		s.sendMessage(ctx, msg)
	}
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) {
	err := s.sender.Send(msg.Topic, msg.MessageKey, msg.Payload)
	if err == nil {
		if updateErr := s.outbox.MarkAsSent(ctx, msg.ID); updateErr != nil {
			// 状态没更新会重复投递，消费方按 key 去重
			s.logger.Warn("更新消息状态失败", zap.Int64("id", msg.ID), zap.Error(updateErr))
			return
		}
		s.logger.Debug("消息发送成功", zap.Int64("id", msg.ID), zap.String("topic", msg.Topic), zap.String("key", msg.MessageKey))
		return
	}

	s.logger.Warn("消息发送失败", zap.Int64("id", msg.ID), zap.String("topic", msg.Topic), zap.Error(err))

	if err := s.outbox.MarkRetry(ctx, msg.ID, msg.RetryCount, s.maxRetry); err != nil {
		s.logger.Warn("更新重试次数失败", zap.Int64("id", msg.ID), zap.Error(err))
		return
	}
	if msg.RetryCount+1 >= s.maxRetry {
		s.logger.Error("消息超过最大重试次数，标记为失败", zap.Int64("id", msg.ID), zap.String("topic", msg.Topic))
	}
}
