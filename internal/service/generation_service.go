package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"voicestudio/internal/config"
	"voicestudio/internal/infrastructure/metrics"
	"voicestudio/internal/ledger"
	"voicestudio/internal/model"
	"voicestudio/internal/repository"
	"voicestudio/internal/synthesis"
	"voicestudio/internal/voice"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProfileFinder interface {
	GetByID(ctx context.Context, id int64) (*model.VoiceProfile, error)
}

type CloneFinder interface {
	GetByID(ctx context.Context, id int64) (*model.VoiceClone, error)
}

type SpeechWriter interface {
	Create(ctx context.Context, tx *gorm.DB, speech *model.GeneratedSpeech) error
}

type OutboxWriter interface {
	Create(ctx context.Context, tx *gorm.DB, msg *model.OutboxMessage) error
}

type VoiceResolver interface {
	Resolve(id voice.Identity) voice.Selector
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string, selector voice.Selector) (*synthesis.Audio, error)
	Discard(ctx context.Context, key string)
}

// GenerateRequest 生成请求，voice_profile_id 与 voice_clone_id 必须且只能有一个
type GenerateRequest struct {
	Text           string `json:"text" binding:"required"`
	VoiceProfileID *int64 `json:"voice_profile_id"`
	VoiceCloneID   *int64 `json:"voice_clone_id"`
	IsPreview      bool   `json:"is_preview"`
}

// PreviewResult 试听结果，不落库也不扣费
type PreviewResult struct {
	AudioURL        string  `json:"audio_url"`
	AudioFile       string  `json:"audio_file"`
	DurationSeconds float64 `json:"duration_seconds"`
	IsPreview       bool    `json:"is_preview"`
}

// GenerateResult Preview 与 Speech 二选一
type GenerateResult struct {
	Preview *PreviewResult
	Speech  *SpeechView
}

type GenerationService struct {
	ledger   *ledger.Ledger
	profiles ProfileFinder
	clones   CloneFinder
	speeches SpeechWriter
	outbox   OutboxWriter
	resolver VoiceResolver
	synth    Synthesizer
	cfg      config.BusinessConfig
	topic    string
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

type GenerationDeps struct {
	Ledger   *ledger.Ledger
	Profiles ProfileFinder
	Clones   CloneFinder
	Speeches SpeechWriter
	Outbox   OutboxWriter
	Resolver VoiceResolver
	Synth    Synthesizer
	Topic    string
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

func NewGenerationService(deps GenerationDeps, cfg config.BusinessConfig) *GenerationService {
	return &GenerationService{
		ledger:   deps.Ledger,
		profiles: deps.Profiles,
		clones:   deps.Clones,
		speeches: deps.Speeches,
		outbox:   deps.Outbox,
		resolver: deps.Resolver,
		synth:    deps.Synth,
		cfg:      cfg,
		topic:    deps.Topic,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
	}
}

// target 已校验的生成目标
type target struct {
	identity    voice.Identity
	profileID   *int64
	profileName string
	cloneID     *int64
	cloneName   string
}

// Generate 生成语音
//
// 流程：校验 -> 预扣 -> 校验音色 -> 合成 -> 落库并确认扣费。
// 预扣成功后，除 Commit 成功外的所有出口（含 panic）都会 Release。
// 客户端断开不会中断流程，结果以落库为准
func (s *GenerationService) Generate(ctx context.Context, userID int64, req *GenerateRequest) (result *GenerateResult, err error) {
	ctx = context.WithoutCancel(ctx)

	if err := s.validate(req); err != nil {
		s.metrics.Generation("invalid")
		return nil, err
	}

	cost := s.cfg.GenerationCost
	if req.IsPreview {
		cost = 0
	}

	reservation, err := s.ledger.Reserve(ctx, userID, cost, "生成语音")
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientCredit) {
			s.metrics.Generation("insufficient")
			return nil, ErrInsufficientCredit
		}
		s.metrics.Generation("error")
		return nil, internalError("预扣积分失败", err)
	}

	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("生成流程异常",
				zap.Int64("user_id", userID),
				zap.String("reservation_no", reservation.No()),
				zap.Any("panic", p),
				zap.Stack("stack"))
			result = nil
			err = fmt.Errorf("%w: %v", ErrInternal, p)
		}
		if err != nil {
			// 【关键点】预扣后的失败出口统一退款，Release 在已结算时不做任何事
			if rerr := reservation.Release(ctx); rerr != nil {
				s.logger.Error("释放预扣失败，等待补偿任务处理",
					zap.String("reservation_no", reservation.No()),
					zap.Error(rerr))
			}
			s.metrics.Generation(resultLabel(err))
		}
	}()

	t, err := s.loadTarget(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	audio, err := s.synth.Synthesize(ctx, req.Text, s.resolver.Resolve(t.identity))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesis, err)
	}

	if req.IsPreview {
		s.metrics.Generation("preview")
		return &GenerateResult{Preview: &PreviewResult{
			AudioURL:        audio.URL,
			AudioFile:       audio.URL,
			DurationSeconds: audio.Duration,
			IsPreview:       true,
		}}, nil
	}

	speech := &model.GeneratedSpeech{
		UserID:          userID,
		VoiceProfileID:  t.profileID,
		VoiceCloneID:    t.cloneID,
		ReservationNo:   reservation.No(),
		InputText:       req.Text,
		AudioFile:       audio.Key,
		DurationSeconds: audio.Duration,
		CreditsUsed:     cost,
		BalanceAfter:    reservation.BalanceAfter(),
	}

	err = reservation.Commit(ctx, func(tx *gorm.DB) error {
		if err := s.speeches.Create(ctx, tx, speech); err != nil {
			return err
		}
		msg, err := model.NewOutboxMessage(s.topic, reservation.No(), &model.SpeechGeneratedEvent{
			SpeechID:      speech.ID,
			UserID:        userID,
			ReservationNo: reservation.No(),
			CreditsUsed:   cost,
			BalanceAfter:  speech.BalanceAfter,
			Duration:      speech.DurationSeconds,
			CreatedAt:     speech.CreatedAt.Unix(),
		})
		if err != nil {
			return err
		}
		return s.outbox.Create(ctx, tx, msg)
	})
	if err != nil {
		s.synth.Discard(ctx, audio.Key)
		return nil, internalError("保存生成记录失败", err)
	}

	s.metrics.Generation("ok")
	s.logger.Info("语音生成成功",
		zap.Int64("user_id", userID),
		zap.Int64("speech_id", speech.ID),
		zap.String("reservation_no", reservation.No()),
		zap.Int64("balance_after", speech.BalanceAfter))

	view := &SpeechView{
		ID:               speech.ID,
		VoiceProfile:     t.profileID,
		VoiceProfileName: t.profileName,
		VoiceClone:       t.cloneID,
		VoiceCloneName:   t.cloneName,
		InputText:        speech.InputText,
		AudioFile:        audio.URL,
		DurationSeconds:  speech.DurationSeconds,
		CreditsUsed:      speech.CreditsUsed,
		BalanceAfter:     speech.BalanceAfter,
		CreatedAt:        speech.CreatedAt,
	}
	return &GenerateResult{Speech: view}, nil
}

func (s *GenerationService) validate(req *GenerateRequest) error {
	if (req.VoiceProfileID == nil) == (req.VoiceCloneID == nil) {
		return validationError("必须且只能指定 voice_profile_id 或 voice_clone_id 其中之一")
	}
	if strings.TrimSpace(req.Text) == "" {
		return validationError("文本不能为空")
	}
	n := utf8.RuneCountInString(req.Text)
	if n > s.cfg.MaxTextLength {
		return validationError("文本长度不能超过 %d 个字符", s.cfg.MaxTextLength)
	}
	if req.IsPreview && n > s.cfg.PreviewMaxTextLength {
		return validationError("试听文本不能超过 %d 个字符", s.cfg.PreviewMaxTextLength)
	}
	return nil
}

func (s *GenerationService) loadTarget(ctx context.Context, userID int64, req *GenerateRequest) (*target, error) {
	if req.VoiceProfileID != nil {
		profile, err := s.profiles.GetByID(ctx, *req.VoiceProfileID)
		if err != nil {
			if errors.Is(err, repository.ErrVoiceProfileNotFound) {
				return nil, notFoundError("音色不存在或已停用")
			}
			return nil, internalError("查询音色失败", err)
		}
		if !profile.IsActive {
			return nil, notFoundError("音色不存在或已停用")
		}
		return &target{
			identity: voice.ProfileIdentity{
				Gender:   profile.Gender,
				Language: profile.Language,
				Emotion:  profile.Emotion,
			},
			profileID:   &profile.ID,
			profileName: profile.Name,
		}, nil
	}

	clone, err := s.clones.GetByID(ctx, *req.VoiceCloneID)
	if err != nil {
		if errors.Is(err, repository.ErrVoiceCloneNotFound) {
			return nil, notFoundError("克隆音色不存在或尚未就绪")
		}
		return nil, internalError("查询克隆音色失败", err)
	}
	if !clone.Eligible(userID) {
		return nil, notFoundError("克隆音色不存在或尚未就绪")
	}
	return &target{
		identity:  voice.CloneIdentity{CloneID: clone.ID},
		cloneID:   &clone.ID,
		cloneName: clone.Name,
	}, nil
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrSynthesis):
		return "synthesis_failed"
	default:
		return "error"
	}
}
