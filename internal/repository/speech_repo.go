package repository

import (
	"context"
	"errors"
	"time"

	"voicestudio/internal/model"

	"gorm.io/gorm"
)

var ErrSpeechNotFound = errors.New("生成记录不存在")

type SpeechRepository struct {
	db *gorm.DB
}

func NewSpeechRepository(db *gorm.DB) *SpeechRepository {
	return &SpeechRepository{db: db}
}

// Create 写入生成记录，必须在预扣提交的事务里调用
func (r *SpeechRepository) Create(ctx context.Context, tx *gorm.DB, speech *model.GeneratedSpeech) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(speech).Error
}

func (r *SpeechRepository) GetByOwner(ctx context.Context, id, userID int64) (*model.GeneratedSpeech, error) {
	var speech model.GeneratedSpeech
	err := r.db.WithContext(ctx).
		Preload("VoiceProfile").
		Preload("VoiceClone").
		Where("id = ? AND user_id = ?", id, userID).
		First(&speech).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSpeechNotFound
		}
		return nil, err
	}
	return &speech, nil
}

type SpeechFilter struct {
	UserID         int64
	VoiceProfileID int64
	VoiceCloneID   int64
	Search         string
}

// List 按创建时间倒序分页
func (r *SpeechRepository) List(ctx context.Context, filter SpeechFilter, page, pageSize int) ([]*model.GeneratedSpeech, int64, error) {
	var speeches []*model.GeneratedSpeech
	var total int64

	query := r.db.WithContext(ctx).Model(&model.GeneratedSpeech{})
	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.VoiceProfileID > 0 {
		query = query.Where("voice_profile_id = ?", filter.VoiceProfileID)
	}
	if filter.VoiceCloneID > 0 {
		query = query.Where("voice_clone_id = ?", filter.VoiceCloneID)
	}
	if filter.Search != "" {
		query = query.Where("input_text LIKE ?", "%"+filter.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("VoiceProfile").
		Preload("VoiceClone").
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&speeches).Error

	return speeches, total, err
}

func (r *SpeechRepository) DeleteByOwner(ctx context.Context, id, userID int64) error {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.GeneratedSpeech{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSpeechNotFound
	}
	return nil
}

func (r *SpeechRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&model.GeneratedSpeech{})
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}
	err := query.Count(&count).Error
	return count, err
}

type VoiceUsage struct {
	model.VoiceProfile
	UsageCount int64 `json:"usage_count"`
}

// TopProfiles 按使用次数排序的系统音色
func (r *SpeechRepository) TopProfiles(ctx context.Context, limit int) ([]*VoiceUsage, error) {
	var usages []*VoiceUsage
	err := r.db.WithContext(ctx).
		Table("voice_profile").
		Select("voice_profile.*, COUNT(generated_speech.id) AS usage_count").
		Joins("LEFT JOIN generated_speech ON generated_speech.voice_profile_id = voice_profile.id").
		Group("voice_profile.id").
		Order("usage_count DESC").
		Limit(limit).
		Scan(&usages).Error
	return usages, err
}
