package service

import (
	"context"
	"errors"

	"voicestudio/internal/infrastructure/storage"
	"voicestudio/internal/repository"

	"go.uber.org/zap"
)

// HistoryService 用户生成历史，只能访问自己的记录
type HistoryService struct {
	speeches SpeechStore
	files    storage.Store
	logger   *zap.Logger
}

func NewHistoryService(speeches SpeechStore, files storage.Store, logger *zap.Logger) *HistoryService {
	return &HistoryService{speeches: speeches, files: files, logger: logger}
}

// List 按创建时间倒序分页
func (s *HistoryService) List(ctx context.Context, userID int64, search string, page, pageSize int) ([]*SpeechView, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	speeches, total, err := s.speeches.List(ctx, repository.SpeechFilter{UserID: userID, Search: search}, page, pageSize)
	if err != nil {
		return nil, 0, internalError("查询生成历史失败", err)
	}
	views := make([]*SpeechView, 0, len(speeches))
	for _, sp := range speeches {
		views = append(views, newSpeechView(sp, s.files))
	}
	return views, total, nil
}

func (s *HistoryService) Get(ctx context.Context, userID, id int64) (*SpeechView, error) {
	speech, err := s.speeches.GetByOwner(ctx, id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrSpeechNotFound) {
			return nil, notFoundError("生成记录不存在")
		}
		return nil, internalError("查询生成记录失败", err)
	}
	return newSpeechView(speech, s.files), nil
}

// Delete 删除记录后清理音频文件，文件删除失败不影响结果
func (s *HistoryService) Delete(ctx context.Context, userID, id int64) error {
	speech, err := s.speeches.GetByOwner(ctx, id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrSpeechNotFound) {
			return notFoundError("生成记录不存在")
		}
		return internalError("查询生成记录失败", err)
	}
	if err := s.speeches.DeleteByOwner(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrSpeechNotFound) {
			return notFoundError("生成记录不存在")
		}
		return internalError("删除生成记录失败", err)
	}
	if err := s.files.Delete(ctx, speech.AudioFile); err != nil {
		s.logger.Warn("删除音频文件失败", zap.Int64("speech_id", id), zap.String("key", speech.AudioFile), zap.Error(err))
	}
	return nil
}
