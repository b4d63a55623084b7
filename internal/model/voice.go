package model

import (
	"time"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"

	EmotionNeutral = "neutral"
)

var ValidEmotions = []string{"neutral", "happy", "sad", "angry", "excited", "calm"}

// VoiceProfile 系统音色
type VoiceProfile struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"type:varchar(100);not null" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	Gender       string    `gorm:"type:varchar(10);index;not null" json:"gender"`
	Emotion      string    `gorm:"type:varchar(20);not null;default:neutral" json:"emotion"`
	Language     string    `gorm:"type:varchar(10);index;not null;default:en" json:"language"`
	SampleAudio  string    `gorm:"type:varchar(255)" json:"sample_audio"`
	PreviewImage string    `gorm:"type:varchar(255)" json:"preview_image"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	IsPremium    bool      `gorm:"not null;default:false" json:"is_premium"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (VoiceProfile) TableName() string {
	return "voice_profile"
}

const (
	CloneStatusPending    = "pending"
	CloneStatusProcessing = "processing"
	CloneStatusReady      = "ready"
	CloneStatusFailed     = "failed"
)

var validCloneTransitions = map[string][]string{
	CloneStatusPending:    {CloneStatusProcessing, CloneStatusReady, CloneStatusFailed},
	CloneStatusProcessing: {CloneStatusReady, CloneStatusFailed},
	CloneStatusFailed:     {CloneStatusReady},
	CloneStatusReady:      {CloneStatusFailed},
}

// CanCloneTransitionTo 校验克隆音色状态流转
// ready / failed 之间的互转只给管理员审核使用
func CanCloneTransitionTo(currentStatus, targetStatus string) bool {
	for _, s := range validCloneTransitions[currentStatus] {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// VoiceClone 用户克隆音色
type VoiceClone struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"index;not null" json:"user_id"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Language    string    `gorm:"type:varchar(10);not null;default:en" json:"language"`
	AudioSample string    `gorm:"type:varchar(255);not null" json:"audio_sample"`
	Status      string    `gorm:"type:varchar(20);index;not null;default:pending" json:"status"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (VoiceClone) TableName() string {
	return "voice_clone"
}

// Eligible 克隆音色可用于生成：属于请求者、已启用、处理完成
func (c *VoiceClone) Eligible(userID int64) bool {
	return c.UserID == userID && c.IsActive && c.Status == CloneStatusReady
}
