package api

import (
	"errors"
	"net/http"

	"release-portal/internal/portal/manager"
	"release-portal/pkg/code"
	"release-portal/pkg/e"
)

// toCodeError 业务层错误 -> 错误码
// 未识别的错误按 fallback 处理，原始错误只写日志
func toCodeError(err error, fallback int) error {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, manager.ErrVersionNotFound):
		return e.Code(code.VersionNotFound, err)
	case errors.Is(err, manager.ErrVersionExists):
		return e.Code(code.VersionExist, err)
	case errors.Is(err, manager.ErrInvalidRef):
		return e.Code(code.VersionInvalidRef, err)
	case errors.Is(err, manager.ErrPostNotFound):
		return e.Code(code.PostNotFound, err)
	case errors.Is(err, manager.ErrFileTypeNotAllowed):
		return e.Code(code.FileTypeNotAllowed, err)
	case errors.Is(err, manager.ErrFileTooLarge), errors.As(err, &maxErr):
		return e.Code(code.FileTooLarge, err)
	case errors.Is(err, manager.ErrMissingFile):
		return e.New(code.ParamError, "未找到 file 表单字段", err)
	case errors.Is(err, manager.ErrInvalidVersion):
		return e.New(code.ParamError, "versionNumber 和 downloadUrl 不能为空", err)
	case errors.Is(err, manager.ErrStorage):
		return e.Code(code.StorageError, err)
	case errors.Is(err, manager.ErrSignFailed):
		return e.Code(code.SignFailed, err)
	case errors.Is(err, manager.ErrUserExists):
		return e.Code(code.UserExist, err)
	case errors.Is(err, manager.ErrInvalidUserInput):
		return e.New(code.ParamError, "邮箱、用户名不能为空，密码不能超过 72 字节", err)
	case errors.Is(err, manager.ErrInvalidCredentials):
		return e.Code(code.InvalidCredentials, err)
	default:
		return e.Code(fallback, err)
	}
}
