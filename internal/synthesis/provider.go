package synthesis

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pp-group/edge-tts-go/biz/service/tts/edge"
	"go.uber.org/zap"
)

// Provider 外部语音合成服务，返回 MP3 数据
type Provider interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// EdgeProvider 微软 Edge TTS
type EdgeProvider struct {
	logger *zap.Logger
}

func NewEdgeProvider(logger *zap.Logger) *EdgeProvider {
	return &EdgeProvider{logger: logger}
}

// Synthesize 合成语音
//
// edge-tts-go 的流式接口不接受 context，这里在单独的 goroutine 中收集音频，
// ctx 结束时立即返回，后台 goroutine 读完 channel 后自行退出
func (p *EdgeProvider) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)

	go func() {
		data, err := p.collect(text, voice)
		done <- result{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.data, r.err
	}
}

func (p *EdgeProvider) collect(text, voice string) ([]byte, error) {
	p.logger.Debug("edge-tts 开始合成", zap.Int("chars", len([]rune(text))), zap.String("voice", voice))

	comm, err := edge.NewCommunicate(text, edge.WithVoice(voice))
	if err != nil {
		return nil, fmt.Errorf("edge-tts 创建实例失败: %w", err)
	}

	ch, err := comm.Stream()
	if err != nil {
		return nil, fmt.Errorf("edge-tts 开始流式合成失败: %w", err)
	}

	var buf bytes.Buffer
	for msg := range ch {
		// type=="audio" 的条目包含 MP3 数据
		if msgType, ok := msg["type"].(string); ok && msgType == "audio" {
			if data, ok := msg["data"].([]byte); ok {
				buf.Write(data)
			}
		}
	}

	p.logger.Debug("edge-tts 合成完成", zap.Int("bytes", buf.Len()), zap.String("voice", voice))
	return buf.Bytes(), nil
}
