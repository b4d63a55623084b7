package model

import (
	"encoding/json"
	"time"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// OutboxMessage 本地消息表
// 与业务数据在同一事务写入，由 OutboxSender 异步投递到 Kafka
type OutboxMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string    `gorm:"type:varchar(64);not null" json:"message_key"`
	Topic      string    `gorm:"type:varchar(64);not null" json:"topic"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}

// NewOutboxMessage 序列化事件体，生成待发送消息
func NewOutboxMessage(topic, key string, event interface{}) (*OutboxMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return &OutboxMessage{
		MessageKey: key,
		Topic:      topic,
		Payload:    string(payload),
		Status:     OutboxStatusPending,
	}, nil
}

// SpeechGeneratedEvent 生成成功事件
type SpeechGeneratedEvent struct {
	SpeechID      int64   `json:"speech_id"`
	UserID        int64   `json:"user_id"`
	ReservationNo string  `json:"reservation_no"`
	CreditsUsed   int64   `json:"credits_used"`
	BalanceAfter  int64   `json:"balance_after"`
	Duration      float64 `json:"duration_seconds"`
	CreatedAt     int64   `json:"created_at"`
}

// CreditChangedEvent 充值入账事件，与入账在同一事务写入
type CreditChangedEvent struct {
	UserID int64  `json:"user_id"`
	RefNo  string `json:"ref_no"`
	Type   string `json:"type"`
	Amount int64  `json:"amount"`
}

// MailOTPEvent 注册验证码邮件，由邮件服务消费
type MailOTPEvent struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	ExpiresIn int    `json:"expires_in_minutes"`
}
