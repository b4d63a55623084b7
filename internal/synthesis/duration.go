package synthesis

import (
	"bytes"
	"errors"
	"math"

	"github.com/hajimehoshi/go-mp3"
)

const (
	wordsPerMinute   = 150
	avgCharsPerWord  = 5
	charsPerSecond   = float64(wordsPerMinute*avgCharsPerWord) / 60
	bytesPerPCMFrame = 4 // go-mp3 输出 16bit 双声道
)

var errUnprobeable = errors.New("无法解析音频时长")

// ProbeDuration 解码 MP3 计算时长（秒）
func ProbeDuration(data []byte) (float64, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	rate := decoder.SampleRate()
	length := decoder.Length()
	if rate <= 0 || length <= 0 {
		return 0, errUnprobeable
	}
	return float64(length) / bytesPerPCMFrame / float64(rate), nil
}

// EstimateDuration 按语速估算时长：字符数 / (150 词每分钟 * 5 字符每词 / 60)
func EstimateDuration(text string) float64 {
	return float64(len([]rune(text))) / charsPerSecond
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
