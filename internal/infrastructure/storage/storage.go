// Package storage 音频、样本等文件的存储
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"voicestudio/internal/config"

	"go.uber.org/zap"
)

var ErrInvalidKey = errors.New("非法的文件路径")

// Store 文件存储，key 为相对路径，例如 generated_audio/xxx.mp3
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// URL 返回客户端可访问的地址
	URL(key string) string
}

// New 根据配置创建存储
func New(cfg config.StorageConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case "local", "":
		return NewLocalStore(cfg.LocalDir, cfg.BaseURL)
	case "s3":
		return NewS3Store(cfg.S3, logger)
	default:
		return nil, fmt.Errorf("不支持的存储类型: %s", cfg.Driver)
	}
}
