package e

import (
	"errors"
	"fmt"

	"release-portal/pkg/code"
)

// CodeError 包含错误码的自定义错误
type CodeError struct {
	Code int
	Msg  string
	Raw  error // 原始错误，用于后端日志记录，不展示给前端
}

func (e *CodeError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Raw)
	}
	return e.Msg
}

func (e *CodeError) Unwrap() error {
	return e.Raw
}

// New 创建一个新的业务错误
func New(code int, msg string, raw error) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  msg,
		Raw:  raw,
	}
}

// Code 使用错误码的默认信息
func Code(c int, raw error) *CodeError {
	return New(c, code.GetMsg(c), raw)
}

// As 从错误链中取出业务错误
func As(err error) (*CodeError, bool) {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
