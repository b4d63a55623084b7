package translation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tmt "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tmt/v20180321"
	"go.uber.org/zap"
)

type fakeTMT struct {
	req  *tmt.TextTranslateRequest
	body string
	err  error
}

func (f *fakeTMT) TextTranslateWithContext(_ context.Context, req *tmt.TextTranslateRequest) (*tmt.TextTranslateResponse, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	resp := tmt.NewTextTranslateResponse()
	if err := resp.FromJsonString(f.body); err != nil {
		return nil, err
	}
	return resp, nil
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "tl", NormalizeCode("fil"))
	assert.Equal(t, "zh", NormalizeCode("ZH"))
	assert.Equal(t, "es", NormalizeCode(" es "))
	assert.Equal(t, AutoDetect, NormalizeCode(""))
}

func TestTencentTranslate(t *testing.T) {
	fake := &fakeTMT{body: `{"Response":{"TargetText":"hola","Source":"en","Target":"es","RequestId":"r1"}}`}
	tr := &TencentTranslator{client: fake, logger: zap.NewNop()}

	res, err := tr.Translate(context.Background(), "hello", "es", "")
	require.NoError(t, err)
	assert.Equal(t, "hola", res.TranslatedText)
	assert.Equal(t, "en", res.SourceLanguage)
	assert.Equal(t, "es", res.TargetLanguage)

	assert.Equal(t, "auto", *fake.req.Source)
	assert.Equal(t, "hello", *fake.req.SourceText)
}

func TestTencentTranslateFilipinoTarget(t *testing.T) {
	fake := &fakeTMT{body: `{"Response":{"TargetText":"kumusta","Source":"en","Target":"tl","RequestId":"r1"}}`}
	tr := &TencentTranslator{client: fake, logger: zap.NewNop()}

	_, err := tr.Translate(context.Background(), "hello", "fil", "en")
	require.NoError(t, err)
	assert.Equal(t, "tl", *fake.req.Target)
}

func TestTencentTranslateEmptyText(t *testing.T) {
	fake := &fakeTMT{}
	tr := &TencentTranslator{client: fake, logger: zap.NewNop()}

	res, err := tr.Translate(context.Background(), "   ", "es", "auto")
	require.NoError(t, err)
	assert.Equal(t, "   ", res.TranslatedText)
	assert.Nil(t, fake.req)
}

func TestTencentTranslateError(t *testing.T) {
	tr := &TencentTranslator{client: &fakeTMT{err: errors.New("quota exceeded")}, logger: zap.NewNop()}

	_, err := tr.Translate(context.Background(), "hello", "es", "auto")
	assert.Error(t, err)
}

func TestPinyinTransliterate(t *testing.T) {
	p := NewPinyinTransliterator()

	out, err := p.Transliterate("中国 ok", "pinyin")
	require.NoError(t, err)
	assert.Equal(t, "zhōng guó ok", out)

	out, err = p.Transliterate("中国", "ta")
	assert.ErrorIs(t, err, ErrUnsupportedScript)
	assert.Equal(t, "中国", out)
}
