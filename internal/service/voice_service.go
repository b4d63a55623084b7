package service

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"voicestudio/internal/infrastructure/storage"
	"voicestudio/internal/model"
	"voicestudio/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	CloneSampleDir     = "voice_samples"
	maxCloneSampleSize = 10 << 20
)

var allowedSampleExts = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".webm": "audio/webm",
	".flac": "audio/flac",
}

type ProfileStore interface {
	Create(ctx context.Context, profile *model.VoiceProfile) error
	GetByID(ctx context.Context, id int64) (*model.VoiceProfile, error)
	List(ctx context.Context, filter repository.VoiceProfileFilter) ([]*model.VoiceProfile, error)
	Update(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context) (*repository.ProfileStats, error)
}

type CloneStore interface {
	Create(ctx context.Context, clone *model.VoiceClone) error
	GetByID(ctx context.Context, id int64) (*model.VoiceClone, error)
	ListByUserID(ctx context.Context, userID int64) ([]*model.VoiceClone, error)
	List(ctx context.Context, status string, isActive *bool, page, pageSize int) ([]*model.VoiceClone, int64, error)
	UpdateStatus(ctx context.Context, id int64, fromStatus, toStatus string, isActive *bool) error
	DeleteByOwner(ctx context.Context, id, userID int64) error
	Stats(ctx context.Context) (*repository.CloneStats, error)
}

type SpeechStore interface {
	GetByOwner(ctx context.Context, id, userID int64) (*model.GeneratedSpeech, error)
	List(ctx context.Context, filter repository.SpeechFilter, page, pageSize int) ([]*model.GeneratedSpeech, int64, error)
	DeleteByOwner(ctx context.Context, id, userID int64) error
	CountSince(ctx context.Context, since time.Time) (int64, error)
	TopProfiles(ctx context.Context, limit int) ([]*repository.VoiceUsage, error)
}

// ProfileRequest 管理员创建或修改系统音色，修改时只更新非空字段
type ProfileRequest struct {
	Name         *string `json:"name" binding:"omitempty,max=100"`
	Description  *string `json:"description"`
	Gender       *string `json:"gender" binding:"omitempty,oneof=male female"`
	Emotion      *string `json:"emotion" binding:"omitempty,oneof=neutral happy sad angry excited calm"`
	Language     *string `json:"language" binding:"omitempty,max=10"`
	SampleAudio  *string `json:"sample_audio"`
	PreviewImage *string `json:"preview_image"`
	IsActive     *bool   `json:"is_active"`
	IsPremium    *bool   `json:"is_premium"`
}

// CloneUpload 用户上传的克隆样本
type CloneUpload struct {
	Name        string
	Description string
	Language    string
	Filename    string
	Size        int64
	Body        io.Reader
}

// Dashboard 管理后台概览
type Dashboard struct {
	Users       *repository.AccountStats `json:"users"`
	Profiles    *repository.ProfileStats `json:"voice_profiles"`
	Clones      *repository.CloneStats   `json:"voice_clones"`
	Speeches    DashboardSpeeches        `json:"speeches"`
	TopProfiles []*repository.VoiceUsage `json:"top_voice_profiles"`
}

type DashboardSpeeches struct {
	Total      int64 `json:"total"`
	Last30Days int64 `json:"last_30_days"`
	Last7Days  int64 `json:"last_7_days"`
}

type VoiceService struct {
	profiles ProfileStore
	clones   CloneStore
	speeches SpeechStore
	accounts AccountStore
	files    storage.Store
	logger   *zap.Logger
}

func NewVoiceService(profiles ProfileStore, clones CloneStore, speeches SpeechStore, accounts AccountStore, files storage.Store, logger *zap.Logger) *VoiceService {
	return &VoiceService{
		profiles: profiles,
		clones:   clones,
		speeches: speeches,
		accounts: accounts,
		files:    files,
		logger:   logger,
	}
}

// ListProfiles 普通用户只能看到启用的音色
func (s *VoiceService) ListProfiles(ctx context.Context, filter repository.VoiceProfileFilter, includeInactive bool) ([]*model.VoiceProfile, error) {
	if !includeInactive {
		active := true
		filter.IsActive = &active
	}
	profiles, err := s.profiles.List(ctx, filter)
	if err != nil {
		return nil, internalError("查询音色失败", err)
	}
	return profiles, nil
}

func (s *VoiceService) GetProfile(ctx context.Context, id int64, includeInactive bool) (*model.VoiceProfile, error) {
	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrVoiceProfileNotFound) {
			return nil, notFoundError("音色不存在")
		}
		return nil, internalError("查询音色失败", err)
	}
	if !profile.IsActive && !includeInactive {
		return nil, notFoundError("音色不存在")
	}
	return profile, nil
}

func (s *VoiceService) CreateProfile(ctx context.Context, req *ProfileRequest) (*model.VoiceProfile, error) {
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return nil, validationError("音色名称不能为空")
	}
	if req.Gender == nil {
		return nil, validationError("性别不能为空")
	}
	profile := &model.VoiceProfile{
		Name:     strings.TrimSpace(*req.Name),
		Gender:   *req.Gender,
		Emotion:  model.EmotionNeutral,
		Language: "en",
		IsActive: true,
	}
	applyProfileRequest(profile, req)
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, internalError("创建音色失败", err)
	}
	return profile, nil
}

func applyProfileRequest(p *model.VoiceProfile, req *ProfileRequest) {
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Emotion != nil {
		p.Emotion = *req.Emotion
	}
	if req.Language != nil && *req.Language != "" {
		p.Language = strings.ToLower(*req.Language)
	}
	if req.SampleAudio != nil {
		p.SampleAudio = *req.SampleAudio
	}
	if req.PreviewImage != nil {
		p.PreviewImage = *req.PreviewImage
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if req.IsPremium != nil {
		p.IsPremium = *req.IsPremium
	}
}

func (s *VoiceService) UpdateProfile(ctx context.Context, id int64, req *ProfileRequest) (*model.VoiceProfile, error) {
	fields := map[string]interface{}{}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, validationError("音色名称不能为空")
		}
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Gender != nil {
		fields["gender"] = *req.Gender
	}
	if req.Emotion != nil {
		fields["emotion"] = *req.Emotion
	}
	if req.Language != nil {
		fields["language"] = strings.ToLower(*req.Language)
	}
	if req.SampleAudio != nil {
		fields["sample_audio"] = *req.SampleAudio
	}
	if req.PreviewImage != nil {
		fields["preview_image"] = *req.PreviewImage
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}
	if req.IsPremium != nil {
		fields["is_premium"] = *req.IsPremium
	}

	if len(fields) > 0 {
		if err := s.profiles.Update(ctx, id, fields); err != nil {
			if errors.Is(err, repository.ErrVoiceProfileNotFound) {
				return nil, notFoundError("音色不存在")
			}
			return nil, internalError("更新音色失败", err)
		}
	}
	return s.GetProfile(ctx, id, true)
}

// DeleteProfile 历史记录里的引用置空，记录本身保留
func (s *VoiceService) DeleteProfile(ctx context.Context, id int64) error {
	if err := s.profiles.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrVoiceProfileNotFound) {
			return notFoundError("音色不存在")
		}
		return internalError("删除音色失败", err)
	}
	return nil
}

func (s *VoiceService) ListMyClones(ctx context.Context, userID int64) ([]*CloneView, error) {
	clones, err := s.clones.ListByUserID(ctx, userID)
	if err != nil {
		return nil, internalError("查询克隆音色失败", err)
	}
	views := make([]*CloneView, 0, len(clones))
	for _, c := range clones {
		views = append(views, newCloneView(c, s.files))
	}
	return views, nil
}

func (s *VoiceService) GetClone(ctx context.Context, userID, id int64) (*CloneView, error) {
	clone, err := s.clones.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrVoiceCloneNotFound) {
			return nil, notFoundError("克隆音色不存在")
		}
		return nil, internalError("查询克隆音色失败", err)
	}
	if clone.UserID != userID {
		return nil, notFoundError("克隆音色不存在")
	}
	return newCloneView(clone, s.files), nil
}

// CreateClone 保存样本并创建待处理的克隆音色
func (s *VoiceService) CreateClone(ctx context.Context, userID int64, up *CloneUpload) (*CloneView, error) {
	name := strings.TrimSpace(up.Name)
	if name == "" {
		return nil, validationError("名称不能为空")
	}
	if up.Size > maxCloneSampleSize {
		return nil, validationError("音频样本不能超过 10MB")
	}
	ext := strings.ToLower(path.Ext(up.Filename))
	contentType, ok := allowedSampleExts[ext]
	if !ok {
		return nil, validationError("不支持的音频格式: %s", ext)
	}

	language := strings.ToLower(strings.TrimSpace(up.Language))
	if language == "" {
		language = "en"
	}

	key := path.Join(CloneSampleDir, uuid.NewString()+ext)
	if err := s.files.Put(ctx, key, io.LimitReader(up.Body, maxCloneSampleSize+1), contentType); err != nil {
		return nil, internalError("保存音频样本失败", err)
	}

	clone := &model.VoiceClone{
		UserID:      userID,
		Name:        name,
		Description: up.Description,
		Language:    language,
		AudioSample: key,
		Status:      model.CloneStatusPending,
		IsActive:    true,
	}
	if err := s.clones.Create(ctx, clone); err != nil {
		s.removeFile(ctx, key)
		return nil, internalError("创建克隆音色失败", err)
	}

	s.logger.Info("克隆音色已提交",
		zap.Int64("user_id", userID),
		zap.Int64("clone_id", clone.ID),
		zap.String("sample", key))
	return newCloneView(clone, s.files), nil
}

func (s *VoiceService) DeleteClone(ctx context.Context, userID, id int64) error {
	clone, err := s.clones.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrVoiceCloneNotFound) {
			return notFoundError("克隆音色不存在")
		}
		return internalError("查询克隆音色失败", err)
	}
	if clone.UserID != userID {
		return notFoundError("克隆音色不存在")
	}
	if err := s.clones.DeleteByOwner(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrVoiceCloneNotFound) {
			return notFoundError("克隆音色不存在")
		}
		return internalError("删除克隆音色失败", err)
	}
	s.removeFile(ctx, clone.AudioSample)
	return nil
}

func (s *VoiceService) removeFile(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.files.Delete(ctx, key); err != nil {
		s.logger.Warn("删除文件失败", zap.String("key", key), zap.Error(err))
	}
}

func (s *VoiceService) ListClones(ctx context.Context, status string, isActive *bool, page, pageSize int) ([]*CloneView, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	clones, total, err := s.clones.List(ctx, status, isActive, page, pageSize)
	if err != nil {
		return nil, 0, internalError("查询克隆音色失败", err)
	}
	views := make([]*CloneView, 0, len(clones))
	for _, c := range clones {
		views = append(views, newCloneView(c, s.files))
	}
	return views, total, nil
}

// ApproveClone 管理员审核通过，克隆音色变为 ready 并启用
func (s *VoiceService) ApproveClone(ctx context.Context, id int64) (*CloneView, error) {
	active := true
	return s.reviewClone(ctx, id, model.CloneStatusReady, &active)
}

// RejectClone 管理员驳回，克隆音色变为 failed 并停用
func (s *VoiceService) RejectClone(ctx context.Context, id int64) (*CloneView, error) {
	active := false
	return s.reviewClone(ctx, id, model.CloneStatusFailed, &active)
}

func (s *VoiceService) reviewClone(ctx context.Context, id int64, to string, isActive *bool) (*CloneView, error) {
	clone, err := s.clones.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrVoiceCloneNotFound) {
			return nil, notFoundError("克隆音色不存在")
		}
		return nil, internalError("查询克隆音色失败", err)
	}
	if err := s.clones.UpdateStatus(ctx, id, clone.Status, to, isActive); err != nil {
		if errors.Is(err, repository.ErrCloneStatusInvalid) {
			return nil, validationError("克隆音色当前状态为 %s，不能变更为 %s", clone.Status, to)
		}
		return nil, internalError("更新克隆音色失败", err)
	}
	clone.Status = to
	clone.IsActive = *isActive

	s.logger.Info("克隆音色审核完成", zap.Int64("clone_id", id), zap.String("status", to))
	return newCloneView(clone, s.files), nil
}

// ListSpeeches 管理员查看全部生成记录
func (s *VoiceService) ListSpeeches(ctx context.Context, filter repository.SpeechFilter, page, pageSize int) ([]*SpeechView, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	speeches, total, err := s.speeches.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, 0, internalError("查询生成记录失败", err)
	}
	views := make([]*SpeechView, 0, len(speeches))
	for _, sp := range speeches {
		views = append(views, newSpeechView(sp, s.files))
	}
	return views, total, nil
}

func (s *VoiceService) Dashboard(ctx context.Context, now time.Time) (*Dashboard, error) {
	users, err := s.accounts.Stats(ctx)
	if err != nil {
		return nil, internalError("统计用户失败", err)
	}
	profiles, err := s.profiles.Stats(ctx)
	if err != nil {
		return nil, internalError("统计音色失败", err)
	}
	clones, err := s.clones.Stats(ctx)
	if err != nil {
		return nil, internalError("统计克隆音色失败", err)
	}

	d := &Dashboard{Users: users, Profiles: profiles, Clones: clones}
	if d.Speeches.Total, err = s.speeches.CountSince(ctx, time.Time{}); err != nil {
		return nil, internalError("统计生成记录失败", err)
	}
	if d.Speeches.Last30Days, err = s.speeches.CountSince(ctx, now.AddDate(0, 0, -30)); err != nil {
		return nil, internalError("统计生成记录失败", err)
	}
	if d.Speeches.Last7Days, err = s.speeches.CountSince(ctx, now.AddDate(0, 0, -7)); err != nil {
		return nil, internalError("统计生成记录失败", err)
	}
	if d.TopProfiles, err = s.speeches.TopProfiles(ctx, 5); err != nil {
		return nil, internalError("统计音色使用次数失败", err)
	}
	return d, nil
}
