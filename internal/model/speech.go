package model

import (
	"time"
)

// GeneratedSpeech 生成记录
// 只在合成成功并完成扣费后创建，创建后不可修改
type GeneratedSpeech struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          int64     `gorm:"index;not null" json:"-"`
	VoiceProfileID  *int64    `gorm:"index" json:"voice_profile"`
	VoiceCloneID    *int64    `gorm:"index" json:"voice_clone"`
	ReservationNo   string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	InputText       string    `gorm:"type:text;not null" json:"input_text"`
	AudioFile       string    `gorm:"type:varchar(255);not null" json:"audio_file"`
	DurationSeconds float64   `gorm:"not null" json:"duration_seconds"`
	CreditsUsed     int64     `gorm:"not null" json:"credits_used"`
	BalanceAfter    int64     `gorm:"not null" json:"balance_after"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`

	VoiceProfile *VoiceProfile `gorm:"foreignKey:VoiceProfileID;constraint:OnDelete:SET NULL" json:"-"`
	VoiceClone   *VoiceClone   `gorm:"foreignKey:VoiceCloneID;constraint:OnDelete:SET NULL" json:"-"`
}

func (GeneratedSpeech) TableName() string {
	return "generated_speech"
}
