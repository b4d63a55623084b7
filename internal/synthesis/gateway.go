// Package synthesis 语音合成网关
//
// 调用外部合成服务、把音频写入存储并计算时长。合成与存储都有超时，
// 外部服务卡住时会以 ErrSynthesisFailed 返回，调用方据此退还预扣
package synthesis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"voicestudio/internal/config"
	"voicestudio/internal/infrastructure/metrics"
	"voicestudio/internal/infrastructure/storage"
	"voicestudio/internal/voice"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AudioDir 生成音频的存储目录
const AudioDir = "generated_audio"

var (
	ErrSynthesisFailed = errors.New("语音合成失败")
	ErrEmptyAudio      = errors.New("合成服务未返回音频数据")
)

// Audio 合成结果
type Audio struct {
	Key      string  // 存储路径，例如 generated_audio/xxx.mp3
	URL      string  // 客户端访问地址
	Duration float64 // 秒，保留两位小数
}

type Gateway struct {
	provider       Provider
	store          storage.Store
	executor       failsafe.Executor[[]byte]
	timeout        time.Duration
	storageTimeout time.Duration
	metrics        *metrics.Metrics
	logger         *zap.Logger
}

func NewGateway(provider Provider, store storage.Store, cfg config.SynthesisConfig, storageTimeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 200 * time.Millisecond
	}
	if cfg.MaxDelay <= cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay * 2
	}
	if storageTimeout <= 0 {
		storageTimeout = 30 * time.Second
	}

	// 超时不重试：服务卡住时重试只会把请求拖得更久
	retry := retrypolicy.NewBuilder[[]byte]().
		WithBackoff(cfg.BaseDelay, cfg.MaxDelay).
		WithMaxRetries(cfg.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(_ []byte, err error) bool {
			return err != nil &&
				!errors.Is(err, context.Canceled) &&
				!errors.Is(err, context.DeadlineExceeded)
		}).
		Build()

	return &Gateway{
		provider:       provider,
		store:          store,
		executor:       failsafe.With(retry),
		timeout:        cfg.Timeout,
		storageTimeout: storageTimeout,
		metrics:        m,
		logger:         logger,
	}
}

// Synthesize 合成语音并写入存储
//
// 每次写入使用新的 uuid 文件名，并发请求不会互相覆盖。
// 时长解析失败不算错误，按文本长度估算
func (g *Gateway) Synthesize(ctx context.Context, text string, selector voice.Selector) (*Audio, error) {
	start := time.Now()
	data, err := g.executor.WithContext(ctx).Get(func() ([]byte, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		data, err := g.provider.Synthesize(callCtx, text, string(selector))
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, ErrEmptyAudio
		}
		return data, nil
	})
	g.metrics.ObserveSynthesis(time.Since(start))
	if err != nil {
		g.logger.Warn("调用合成服务失败",
			zap.String("voice", string(selector)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}

	key := path.Join(AudioDir, uuid.NewString()+".mp3")

	storeCtx, cancel := context.WithTimeout(ctx, g.storageTimeout)
	defer cancel()
	if err := g.store.Put(storeCtx, key, bytes.NewReader(data), "audio/mpeg"); err != nil {
		g.logger.Error("保存音频失败", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("%w: 保存音频失败: %w", ErrSynthesisFailed, err)
	}

	duration, err := ProbeDuration(data)
	if err != nil {
		g.logger.Debug("解析音频时长失败，按文本估算", zap.String("key", key), zap.Error(err))
		duration = EstimateDuration(text)
	}

	return &Audio{
		Key:      key,
		URL:      g.store.URL(key),
		Duration: round2(duration),
	}, nil
}

// Discard 删除未被记录引用的音频，失败只记日志
func (g *Gateway) Discard(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := g.store.Delete(ctx, key); err != nil {
		g.logger.Warn("删除孤立音频失败", zap.String("key", key), zap.Error(err))
	}
}
