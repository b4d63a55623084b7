package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
mysql:
  host: db
  port: 3306
jwt:
  secret: s3cret
synthesis:
  timeout: 15s
business:
  generation_cost: 7
  credits_per_unit: 2
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db", cfg.MySQL.Host)
	assert.Equal(t, 15*time.Second, cfg.Synthesis.Timeout)
	assert.Equal(t, int64(7), cfg.Business.GenerationCost)
	assert.Equal(t, int64(2), cfg.Business.CreditsPerUnit)

	// 未配置的字段使用默认值
	assert.Equal(t, 5000, cfg.Business.MaxTextLength)
	assert.Equal(t, 200, cfg.Business.PreviewMaxTextLength)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, time.Hour, cfg.JWT.AccessTTL)
	assert.Equal(t, "speech.generated", cfg.Kafka.Topic.SpeechGenerated)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: from-file
`)
	t.Setenv("VOICESTUDIO_JWT_SECRET", "from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
}

func TestLoadConfigRejectsInvalidBusiness(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: x
business:
  credits_per_unit: 0
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigRejectsStaleWindowShorterThanGeneration(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: x
synthesis:
  timeout: 60s
  max_retries: 2
business:
  reservation_stale_minutes: 1
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reservation_stale_minutes")

	// 默认值：3 次 60s 合成 + 2 次 2s 退避 + 30s 上传，小于 10 分钟
	path = writeConfig(t, `
jwt:
  secret: x
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 214*time.Second, cfg.GenerationWindow())
	assert.Greater(t, cfg.Business.ReservationStale(), cfg.GenerationWindow())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
