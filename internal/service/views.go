package service

import (
	"time"

	"voicestudio/internal/model"
)

// URLResolver 把存储 key 转成可访问地址，storage.Store 满足该接口
type URLResolver interface {
	URL(key string) string
}

// SpeechView 生成记录对外结构
type SpeechView struct {
	ID               int64     `json:"id"`
	VoiceProfile     *int64    `json:"voice_profile"`
	VoiceProfileName string    `json:"voice_profile_name,omitempty"`
	VoiceClone       *int64    `json:"voice_clone"`
	VoiceCloneName   string    `json:"voice_clone_name,omitempty"`
	InputText        string    `json:"input_text"`
	AudioFile        string    `json:"audio_file"`
	DurationSeconds  float64   `json:"duration_seconds"`
	CreditsUsed      int64     `json:"credits_used"`
	BalanceAfter     int64     `json:"balance_after"`
	CreatedAt        time.Time `json:"created_at"`
}

func newSpeechView(s *model.GeneratedSpeech, urls URLResolver) *SpeechView {
	v := &SpeechView{
		ID:              s.ID,
		VoiceProfile:    s.VoiceProfileID,
		VoiceClone:      s.VoiceCloneID,
		InputText:       s.InputText,
		AudioFile:       urls.URL(s.AudioFile),
		DurationSeconds: s.DurationSeconds,
		CreditsUsed:     s.CreditsUsed,
		BalanceAfter:    s.BalanceAfter,
		CreatedAt:       s.CreatedAt,
	}
	if s.VoiceProfile != nil {
		v.VoiceProfileName = s.VoiceProfile.Name
	}
	if s.VoiceClone != nil {
		v.VoiceCloneName = s.VoiceClone.Name
	}
	return v
}

// CloneView 克隆音色对外结构
type CloneView struct {
	*model.VoiceClone
	AudioSampleURL string `json:"audio_sample_url"`
}

func newCloneView(c *model.VoiceClone, urls URLResolver) *CloneView {
	return &CloneView{VoiceClone: c, AudioSampleURL: urls.URL(c.AudioSample)}
}

// PaymentView 充值记录对外结构，金额以字符串输出两位小数
type PaymentView struct {
	*model.PaymentTransaction
	Amount        string `json:"amount"`
	ScreenshotURL string `json:"screenshot_url,omitempty"`
	UserEmail     string `json:"user_email,omitempty"`
	UserName      string `json:"user_name,omitempty"`
}

func newPaymentView(p *model.PaymentTransaction, urls URLResolver) *PaymentView {
	v := &PaymentView{PaymentTransaction: p, Amount: formatCents(p.AmountCents)}
	if p.Screenshot != "" {
		v.ScreenshotURL = urls.URL(p.Screenshot)
	}
	if p.Account != nil {
		v.UserEmail = p.Account.Email
		v.UserName = p.Account.Name
	}
	return v
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
