package repository

import (
	"context"
	"errors"

	"voicestudio/internal/model"

	"gorm.io/gorm"
)

var (
	ErrVoiceProfileNotFound = errors.New("音色不存在")
	ErrVoiceCloneNotFound   = errors.New("克隆音色不存在")
	ErrCloneStatusInvalid   = errors.New("克隆音色状态不合法")
)

type VoiceProfileRepository struct {
	db *gorm.DB
}

func NewVoiceProfileRepository(db *gorm.DB) *VoiceProfileRepository {
	return &VoiceProfileRepository{db: db}
}

type VoiceProfileFilter struct {
	Gender    string
	Emotion   string
	Language  string
	IsPremium *bool
	IsActive  *bool
	Search    string
}

func (r *VoiceProfileRepository) Create(ctx context.Context, profile *model.VoiceProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *VoiceProfileRepository) GetByID(ctx context.Context, id int64) (*model.VoiceProfile, error) {
	var profile model.VoiceProfile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoiceProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (r *VoiceProfileRepository) List(ctx context.Context, filter VoiceProfileFilter) ([]*model.VoiceProfile, error) {
	var profiles []*model.VoiceProfile
	query := r.db.WithContext(ctx).Model(&model.VoiceProfile{})
	if filter.Gender != "" {
		query = query.Where("gender = ?", filter.Gender)
	}
	if filter.Emotion != "" {
		query = query.Where("emotion = ?", filter.Emotion)
	}
	if filter.Language != "" {
		query = query.Where("language = ?", filter.Language)
	}
	if filter.IsPremium != nil {
		query = query.Where("is_premium = ?", *filter.IsPremium)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}
	err := query.Order("name ASC").Find(&profiles).Error
	return profiles, err
}

func (r *VoiceProfileRepository) Update(ctx context.Context, id int64, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.VoiceProfile{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVoiceProfileNotFound
	}
	return nil
}

func (r *VoiceProfileRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.VoiceProfile{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVoiceProfileNotFound
	}
	return nil
}

type ProfileStats struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}

func (r *VoiceProfileRepository) Stats(ctx context.Context) (*ProfileStats, error) {
	stats := &ProfileStats{}
	if err := r.db.WithContext(ctx).Model(&model.VoiceProfile{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&model.VoiceProfile{}).Where("is_active = ?", true).Count(&stats.Active).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

type VoiceCloneRepository struct {
	db *gorm.DB
}

func NewVoiceCloneRepository(db *gorm.DB) *VoiceCloneRepository {
	return &VoiceCloneRepository{db: db}
}

func (r *VoiceCloneRepository) Create(ctx context.Context, clone *model.VoiceClone) error {
	return r.db.WithContext(ctx).Create(clone).Error
}

func (r *VoiceCloneRepository) GetByID(ctx context.Context, id int64) (*model.VoiceClone, error) {
	var clone model.VoiceClone
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&clone).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoiceCloneNotFound
		}
		return nil, err
	}
	return &clone, nil
}

func (r *VoiceCloneRepository) ListByUserID(ctx context.Context, userID int64) ([]*model.VoiceClone, error) {
	var clones []*model.VoiceClone
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&clones).Error
	return clones, err
}

func (r *VoiceCloneRepository) List(ctx context.Context, status string, isActive *bool, page, pageSize int) ([]*model.VoiceClone, int64, error) {
	var clones []*model.VoiceClone
	var total int64

	query := r.db.WithContext(ctx).Model(&model.VoiceClone{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if isActive != nil {
		query = query.Where("is_active = ?", *isActive)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&clones).Error
	return clones, total, err
}

func (r *VoiceCloneRepository) ListByStatus(ctx context.Context, status string, limit int) ([]*model.VoiceClone, error) {
	var clones []*model.VoiceClone
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Find(&clones).Error
	return clones, err
}

// UpdateStatus 条件流转克隆状态，isActive 为 nil 时不修改启用标记
func (r *VoiceCloneRepository) UpdateStatus(ctx context.Context, id int64, fromStatus, toStatus string, isActive *bool) error {
	if !model.CanCloneTransitionTo(fromStatus, toStatus) {
		return ErrCloneStatusInvalid
	}

	updates := map[string]interface{}{"status": toStatus}
	if isActive != nil {
		updates["is_active"] = *isActive
	}

	result := r.db.WithContext(ctx).
		Model(&model.VoiceClone{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCloneStatusInvalid
	}
	return nil
}

func (r *VoiceCloneRepository) DeleteByOwner(ctx context.Context, id, userID int64) error {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.VoiceClone{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVoiceCloneNotFound
	}
	return nil
}

type CloneStats struct {
	Total   int64 `json:"total"`
	Pending int64 `json:"pending"`
	Ready   int64 `json:"ready"`
}

func (r *VoiceCloneRepository) Stats(ctx context.Context) (*CloneStats, error) {
	stats := &CloneStats{}
	if err := r.db.WithContext(ctx).Model(&model.VoiceClone{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&model.VoiceClone{}).Where("status = ?", model.CloneStatusPending).Count(&stats.Pending).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&model.VoiceClone{}).Where("status = ?", model.CloneStatusReady).Count(&stats.Ready).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
