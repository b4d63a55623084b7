package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	MySQL       MySQLConfig       `mapstructure:"mysql"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Log         LogConfig         `mapstructure:"log"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Synthesis   SynthesisConfig   `mapstructure:"synthesis"`
	Translation TranslationConfig `mapstructure:"translation"`
	Business    BusinessConfig    `mapstructure:"business"`
	Payment     PaymentConfig     `mapstructure:"payment"`
}

type ServerConfig struct {
	Port     int   `mapstructure:"port"`
	WorkerID int64 `mapstructure:"worker_id"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	SpeechGenerated string `mapstructure:"speech_generated"`
	CreditChanged   string `mapstructure:"credit_changed"`
	MailOTP         string `mapstructure:"mail_otp"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

// StorageConfig 音频等文件的存储位置，driver 为 local 或 s3
type StorageConfig struct {
	Driver   string        `mapstructure:"driver"`
	LocalDir string        `mapstructure:"local_dir"`
	BaseURL  string        `mapstructure:"base_url"`
	S3       S3Config      `mapstructure:"s3"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	PublicURL string `mapstructure:"public_url"`
}

type SynthesisConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	MaxDelay   time.Duration `mapstructure:"max_delay"`
}

type TranslationConfig struct {
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Region    string `mapstructure:"region"`
}

type BusinessConfig struct {
	GenerationCost          int64 `mapstructure:"generation_cost"`
	MaxTextLength           int   `mapstructure:"max_text_length"`
	PreviewMaxTextLength    int   `mapstructure:"preview_max_text_length"`
	CreditsPerUnit          int64 `mapstructure:"credits_per_unit"`
	SignupCredits           int64 `mapstructure:"signup_credits"`
	OTPTTLMinutes           int   `mapstructure:"otp_ttl_minutes"`
	ReservationStaleMinutes int   `mapstructure:"reservation_stale_minutes"`
	MaxRetryCount           int   `mapstructure:"max_retry_count"`
}

type PaymentConfig struct {
	UPIID     string `mapstructure:"upi_id"`
	QRCodeURL string `mapstructure:"qr_code_url"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.worker_id", 1)
	v.SetDefault("mysql.max_open_conns", 50)
	v.SetDefault("mysql.max_idle_conns", 10)
	v.SetDefault("kafka.topic.speech_generated", "speech.generated")
	v.SetDefault("kafka.topic.credit_changed", "credit.changed")
	v.SetDefault("kafka.topic.mail_otp", "mail.otp")
	v.SetDefault("log.level", "info")
	v.SetDefault("jwt.access_ttl", time.Hour)
	v.SetDefault("jwt.refresh_ttl", 7*24*time.Hour)
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local_dir", "media")
	v.SetDefault("storage.base_url", "/media/")
	v.SetDefault("storage.timeout", 30*time.Second)
	v.SetDefault("synthesis.timeout", 60*time.Second)
	v.SetDefault("synthesis.max_retries", 2)
	v.SetDefault("synthesis.base_delay", 200*time.Millisecond)
	v.SetDefault("synthesis.max_delay", 2*time.Second)
	v.SetDefault("translation.region", "ap-guangzhou")
	v.SetDefault("business.generation_cost", 5)
	v.SetDefault("business.max_text_length", 5000)
	v.SetDefault("business.preview_max_text_length", 200)
	v.SetDefault("business.credits_per_unit", 1)
	v.SetDefault("business.signup_credits", 10)
	v.SetDefault("business.otp_ttl_minutes", 10)
	v.SetDefault("business.reservation_stale_minutes", 10)
	v.SetDefault("business.max_retry_count", 5)
}

// LoadConfig 加载配置文件
//
// 环境变量优先级高于配置文件，例如 VOICESTUDIO_MYSQL_PASSWORD 覆盖 mysql.password
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("VOICESTUDIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReservationStale 预扣单被补偿任务视为遗留的时长
func (b BusinessConfig) ReservationStale() time.Duration {
	return time.Duration(b.ReservationStaleMinutes) * time.Minute
}

// GenerationWindow 一次生成请求持有预扣的最长时间：全部重试的合成超时、退避间隔与上传超时之和
//
// 【关键点】补偿任务只能退还超过这个时长的预扣，否则会和仍在进行的请求竞争，
// 造成"已退还又扣费成功"的白嫖
func (c *Config) GenerationWindow() time.Duration {
	attempts := time.Duration(c.Synthesis.MaxRetries + 1)
	return attempts*c.Synthesis.Timeout + time.Duration(c.Synthesis.MaxRetries)*c.Synthesis.MaxDelay + c.Storage.Timeout
}

// Validate 校验关键业务参数
func (c *Config) Validate() error {
	if c.Business.GenerationCost <= 0 {
		return fmt.Errorf("business.generation_cost 必须大于0")
	}
	if c.Business.PreviewMaxTextLength <= 0 || c.Business.PreviewMaxTextLength > c.Business.MaxTextLength {
		return fmt.Errorf("business.preview_max_text_length 必须在 1-%d 之间", c.Business.MaxTextLength)
	}
	if c.Business.CreditsPerUnit <= 0 {
		return fmt.Errorf("business.credits_per_unit 必须大于0")
	}
	if stale, window := c.Business.ReservationStale(), c.GenerationWindow(); stale <= window {
		return fmt.Errorf("business.reservation_stale_minutes(%s) 必须大于单次生成最长耗时 %s", stale, window)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret 不能为空")
	}
	if c.Storage.Driver != "local" && c.Storage.Driver != "s3" {
		return fmt.Errorf("不支持的存储类型: %s", c.Storage.Driver)
	}
	return nil
}
