package protocol

import (
	"errors"
	"fmt"
)

// 转换阶段的哨兵错误。
var (
	ErrTemplateMalformed     = errors.New("template malformed / 模板结构错误")
	ErrSubscriptionMalformed = errors.New("subscription malformed / 订阅内容无法解析")
)

// TransformError 包装转换错误并附带上下文。
type TransformError struct {
	Type    error  // 基础错误类型
	Message string // 错误信息
	Cause   error  // 底层错误，可为空
}

// Error 实现 error 接口。
func (e *TransformError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type.Error(), e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type.Error(), e.Message)
}

// Unwrap 返回底层错误类型。
func (e *TransformError) Unwrap() error {
	return e.Type
}

// Is 判断 err 链中是否匹配目标错误。
func (e *TransformError) Is(target error) bool {
	return errors.Is(e.Type, target)
}

func templateError(message string, cause error) *TransformError {
	return &TransformError{Type: ErrTemplateMalformed, Message: message, Cause: cause}
}

func subscriptionError(message string, cause error) *TransformError {
	return &TransformError{Type: ErrSubscriptionMalformed, Message: message, Cause: cause}
}
