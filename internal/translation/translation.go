// Package translation 文本翻译与音译
package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	tmt "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tmt/v20180321"
	"go.uber.org/zap"
)

const AutoDetect = "auto"

var ErrEmptyResponse = errors.New("翻译响应为空")

// Result 翻译结果
type Result struct {
	TranslatedText string
	SourceLanguage string
	TargetLanguage string
}

// Translator 翻译服务
type Translator interface {
	Translate(ctx context.Context, text, target, source string) (*Result, error)
}

// 前端语言代码到翻译服务代码的映射
var languageCodeMap = map[string]string{
	"zh":  "zh",
	"no":  "no",
	"fil": "tl",
}

// NormalizeCode 统一语言代码，空值视为自动检测
func NormalizeCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return AutoDetect
	}
	if mapped, ok := languageCodeMap[code]; ok {
		return mapped
	}
	return code
}

type tmtClient interface {
	TextTranslateWithContext(ctx context.Context, request *tmt.TextTranslateRequest) (*tmt.TextTranslateResponse, error)
}

// TencentTranslator 腾讯云机器翻译
type TencentTranslator struct {
	client tmtClient
	logger *zap.Logger
}

func NewTencentTranslator(secretID, secretKey, region string, logger *zap.Logger) (*TencentTranslator, error) {
	credential := common.NewCredential(secretID, secretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = "tmt.tencentcloudapi.com"

	client, err := tmt.NewClient(credential, region, cpf)
	if err != nil {
		return nil, fmt.Errorf("创建翻译客户端失败: %w", err)
	}
	return &TencentTranslator{client: client, logger: logger}, nil
}

func (t *TencentTranslator) Translate(ctx context.Context, text, target, source string) (*Result, error) {
	source = NormalizeCode(source)
	target = NormalizeCode(target)

	// 空文本直接返回
	if strings.TrimSpace(text) == "" {
		return &Result{TranslatedText: text, SourceLanguage: source, TargetLanguage: target}, nil
	}

	request := tmt.NewTextTranslateRequest()
	request.SourceText = common.StringPtr(text)
	request.Source = common.StringPtr(source)
	request.Target = common.StringPtr(target)
	request.ProjectId = common.Int64Ptr(0)

	response, err := t.client.TextTranslateWithContext(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("翻译请求失败: %w", err)
	}
	if response.Response == nil || response.Response.TargetText == nil {
		return nil, ErrEmptyResponse
	}

	detected := source
	if response.Response.Source != nil {
		detected = *response.Response.Source
	}

	t.logger.Debug("翻译完成", zap.String("source", detected), zap.String("target", target))
	return &Result{
		TranslatedText: *response.Response.TargetText,
		SourceLanguage: detected,
		TargetLanguage: target,
	}, nil
}
