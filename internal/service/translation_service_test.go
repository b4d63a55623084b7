package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"voicestudio/internal/translation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTranslator struct {
	err        error
	lastTarget string
	lastSource string
}

func (f *fakeTranslator) Translate(_ context.Context, text, target, source string) (*translation.Result, error) {
	f.lastTarget, f.lastSource = target, source
	if f.err != nil {
		return nil, f.err
	}
	return &translation.Result{TranslatedText: "[" + target + "]" + text, SourceLanguage: "en", TargetLanguage: target}, nil
}

func TestTranslateNormalizesCodes(t *testing.T) {
	tr := &fakeTranslator{}
	svc := NewTranslationService(tr, translation.NewPinyinTransliterator(), zap.NewNop())

	res, err := svc.Translate(context.Background(), &TranslateRequest{Text: "hello", TargetLanguage: "fil"})
	require.NoError(t, err)
	assert.Equal(t, "tl", tr.lastTarget)
	assert.Equal(t, translation.AutoDetect, tr.lastSource)
	assert.Equal(t, "[tl]hello", res.TranslatedText)
	assert.Empty(t, res.Error)
}

func TestTranslateFailureReturnsOriginal(t *testing.T) {
	svc := NewTranslationService(&fakeTranslator{err: errors.New("quota exceeded")}, translation.NewPinyinTransliterator(), zap.NewNop())

	res, err := svc.Translate(context.Background(), &TranslateRequest{Text: "hello", TargetLanguage: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.TranslatedText)
	assert.Contains(t, res.Error, "quota exceeded")
}

func TestTranslateTooLong(t *testing.T) {
	svc := NewTranslationService(&fakeTranslator{}, translation.NewPinyinTransliterator(), zap.NewNop())

	_, err := svc.Translate(context.Background(), &TranslateRequest{Text: strings.Repeat("a", 5001), TargetLanguage: "hi"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTransliterate(t *testing.T) {
	svc := NewTranslationService(&fakeTranslator{}, translation.NewPinyinTransliterator(), zap.NewNop())

	res, err := svc.Transliterate(context.Background(), &TransliterateRequest{Text: "中国", TargetLanguage: "pinyin"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "zhōng guó", res.TransliteratedText)

	res, err = svc.Transliterate(context.Background(), &TransliterateRequest{Text: "नमस्ते", TargetLanguage: "latin"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "नमस्ते", res.TransliteratedText)
}
