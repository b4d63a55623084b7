package translation

import (
	"errors"
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"
)

var ErrUnsupportedScript = errors.New("不支持该语言的音译")

// Transliterator 音译，保留读音转换文字
type Transliterator interface {
	Transliterate(text, target string) (string, error)
}

// PinyinTransliterator 汉字转拼音，目前只支持 pinyin 目标
type PinyinTransliterator struct {
	args pinyin.Args
}

func NewPinyinTransliterator() *PinyinTransliterator {
	args := pinyin.NewArgs()
	args.Style = pinyin.Tone
	return &PinyinTransliterator{args: args}
}

// Transliterate 汉字转带声调拼音，非汉字原样保留
func (p *PinyinTransliterator) Transliterate(text, target string) (string, error) {
	switch strings.ToLower(target) {
	case "pinyin", "zh-latn":
	default:
		return text, ErrUnsupportedScript
	}

	var b strings.Builder
	lastWasHan := false
	for _, r := range text {
		if !unicode.Is(unicode.Han, r) {
			b.WriteRune(r)
			lastWasHan = false
			continue
		}
		syllables := pinyin.SinglePinyin(r, p.args)
		if len(syllables) == 0 {
			b.WriteRune(r)
			lastWasHan = false
			continue
		}
		if lastWasHan {
			b.WriteByte(' ')
		}
		b.WriteString(syllables[0])
		lastWasHan = true
	}
	return b.String(), nil
}
