package service

import (
	"errors"
	"fmt"
)

// 服务层错误，handler 按 errors.Is 映射 HTTP 状态码
var (
	ErrValidation         = errors.New("参数错误")
	ErrUnauthorized       = errors.New("认证失败")
	ErrForbidden          = errors.New("无权限")
	ErrNotFound           = errors.New("资源不存在")
	ErrInsufficientCredit = errors.New("积分不足，请充值")
	ErrConflict           = errors.New("资源冲突")
	ErrSynthesis          = errors.New("语音生成失败")
	ErrInternal           = errors.New("服务内部错误")
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundError(msg string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, msg)
}

func conflictError(msg string) error {
	return fmt.Errorf("%w: %s", ErrConflict, msg)
}

func internalError(msg string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, msg, err)
}
