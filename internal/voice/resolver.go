// Package voice 把系统音色 / 克隆音色解析为 Edge TTS 的音色名
package voice

import (
	"sort"
	"strings"
)

// Selector 合成服务识别的音色名，例如 en-US-AriaNeural
type Selector string

// DefaultSelector 所有回退都失败时使用的音色
const DefaultSelector Selector = "en-US-AriaNeural"

const (
	defaultGender   = "female"
	defaultLanguage = "en"
	neutralEmotion  = "neutral"
)

// Identity 生成请求使用的音色，只有 ProfileIdentity 和 CloneIdentity 两种
type Identity interface {
	isIdentity()
}

// ProfileIdentity 系统音色的属性
type ProfileIdentity struct {
	Gender   string
	Language string
	Emotion  string
}

// CloneIdentity 用户克隆音色
type CloneIdentity struct {
	CloneID int64
}

func (ProfileIdentity) isIdentity() {}
func (CloneIdentity) isIdentity()   {}

type profileKey struct {
	gender   string
	language string
	emotion  string
}

// Resolver 纯函数式的音色解析，无 I/O，可并发使用
type Resolver struct {
	voices    map[profileKey]Selector
	languages map[string]Selector
	// 去重排序后的全部音色，克隆音色按 ID 取模选取
	pool []Selector
}

// NewResolver 使用内置音色表创建解析器
func NewResolver() *Resolver {
	seen := make(map[Selector]struct{}, len(voiceMap))
	pool := make([]Selector, 0, len(voiceMap))
	for _, s := range voiceMap {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		pool = append(pool, s)
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i] < pool[j] })

	return &Resolver{voices: voiceMap, languages: languageDefaults, pool: pool}
}

// Resolve 解析音色，对任意输入都有结果
//
// 系统音色的回退顺序：
//  1. (gender, language, emotion) 精确匹配
//  2. (gender, language, neutral)
//  3. 语言默认音色
//  4. DefaultSelector
func (r *Resolver) Resolve(id Identity) Selector {
	switch v := id.(type) {
	case CloneIdentity:
		return r.resolveClone(v.CloneID)
	case ProfileIdentity:
		return r.resolveProfile(v)
	default:
		return DefaultSelector
	}
}

// 同一个克隆 ID 在任何进程里都映射到同一个音色
func (r *Resolver) resolveClone(cloneID int64) Selector {
	if len(r.pool) == 0 {
		return DefaultSelector
	}
	idx := cloneID % int64(len(r.pool))
	if idx < 0 {
		idx += int64(len(r.pool))
	}
	return r.pool[idx]
}

func (r *Resolver) resolveProfile(p ProfileIdentity) Selector {
	gender := normalize(p.Gender, defaultGender)
	language := normalize(p.Language, defaultLanguage)
	emotion := normalize(p.Emotion, neutralEmotion)

	if s, ok := r.voices[profileKey{gender, language, emotion}]; ok {
		return s
	}
	if s, ok := r.voices[profileKey{gender, language, neutralEmotion}]; ok {
		return s
	}
	if s, ok := r.languages[language]; ok {
		return s
	}
	return DefaultSelector
}

// Selectors 返回排序后的全部音色
func (r *Resolver) Selectors() []Selector {
	out := make([]Selector, len(r.pool))
	copy(out, r.pool)
	return out
}

func normalize(v, def string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return def
	}
	return v
}
