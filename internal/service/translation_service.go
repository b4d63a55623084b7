package service

import (
	"context"
	"errors"
	"unicode/utf8"

	"voicestudio/internal/translation"

	"go.uber.org/zap"
)

const maxTranslateLength = 5000

type TranslateRequest struct {
	Text           string `json:"text" binding:"required"`
	TargetLanguage string `json:"target_language" binding:"required"`
	SourceLanguage string `json:"source_language"`
}

// TranslateResult 翻译失败时 Error 非空，TranslatedText 为原文
type TranslateResult struct {
	OriginalText   string `json:"original_text"`
	TranslatedText string `json:"translated_text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	Error          string `json:"error,omitempty"`
}

type TransliterateRequest struct {
	Text           string `json:"text" binding:"required"`
	TargetLanguage string `json:"target_language" binding:"required"`
}

type TransliterateResult struct {
	OriginalText       string `json:"original_text"`
	TransliteratedText string `json:"transliterated_text"`
	TargetLanguage     string `json:"target_language"`
	Success            bool   `json:"success"`
	Message            string `json:"message,omitempty"`
}

type TranslationService struct {
	translator     translation.Translator
	transliterator translation.Transliterator
	logger         *zap.Logger
}

func NewTranslationService(translator translation.Translator, transliterator translation.Transliterator, logger *zap.Logger) *TranslationService {
	return &TranslationService{translator: translator, transliterator: transliterator, logger: logger}
}

// Translate 外部翻译失败不返回错误，原文放回结果并附带错误信息
func (s *TranslationService) Translate(ctx context.Context, req *TranslateRequest) (*TranslateResult, error) {
	if utf8.RuneCountInString(req.Text) > maxTranslateLength {
		return nil, validationError("文本长度不能超过 %d 个字符", maxTranslateLength)
	}

	source := translation.NormalizeCode(req.SourceLanguage)
	target := translation.NormalizeCode(req.TargetLanguage)

	res, err := s.translator.Translate(ctx, req.Text, target, source)
	if err != nil {
		s.logger.Warn("翻译失败，返回原文", zap.String("target", target), zap.Error(err))
		return &TranslateResult{
			OriginalText:   req.Text,
			TranslatedText: req.Text,
			SourceLanguage: source,
			TargetLanguage: target,
			Error:          err.Error(),
		}, nil
	}
	return &TranslateResult{
		OriginalText:   req.Text,
		TranslatedText: res.TranslatedText,
		SourceLanguage: res.SourceLanguage,
		TargetLanguage: res.TargetLanguage,
	}, nil
}

// Transliterate 不支持的目标返回原文，success=false
func (s *TranslationService) Transliterate(_ context.Context, req *TransliterateRequest) (*TransliterateResult, error) {
	if utf8.RuneCountInString(req.Text) > maxTranslateLength {
		return nil, validationError("文本长度不能超过 %d 个字符", maxTranslateLength)
	}

	out, err := s.transliterator.Transliterate(req.Text, req.TargetLanguage)
	if err != nil {
		if errors.Is(err, translation.ErrUnsupportedScript) {
			return &TransliterateResult{
				OriginalText:       req.Text,
				TransliteratedText: req.Text,
				TargetLanguage:     req.TargetLanguage,
				Message:            err.Error(),
			}, nil
		}
		return nil, internalError("音译失败", err)
	}
	return &TransliterateResult{
		OriginalText:       req.Text,
		TransliteratedText: out,
		TargetLanguage:     req.TargetLanguage,
		Success:            true,
	}, nil
}
