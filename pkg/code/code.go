package code

import "net/http"

// ====================================================
// 错误码定义
// ====================================================

const (
	// 0: 成功
	Success = 0

	// 10xxx: 通用错误
	ServerError      = 10001
	ParamError       = 10002
	DatabaseError    = 10003
	NetworkError     = 10004
	MethodNotAllowed = 10005
	InvalidJSON      = 10006
	Unauthorized     = 10007 // 未登录
	Forbidden        = 10008 // 无权限

	// 20xxx: 用户
	UserExist          = 20001
	InvalidCredentials = 20002

	// 40xxx: 软件版本管理
	VersionUploadFailed = 40001
	VersionNotFound     = 40002
	VersionExist        = 40003
	VersionInvalidRef   = 40004 // 版本引用格式错误
	VersionDeleteFailed = 40005
	FileTypeNotAllowed  = 40006
	FileTooLarge        = 40007
	StorageError        = 40008
	SignFailed          = 40009
	PostNotFound        = 40010
)

// ====================================================
// 错误信息映射
// ====================================================

var Msg = map[int]string{
	Success:          "操作成功",
	ServerError:      "服务器内部错误",
	ParamError:       "参数错误",
	DatabaseError:    "数据库操作失败",
	NetworkError:     "网络连接失败",
	MethodNotAllowed: "不支持该请求方法",
	InvalidJSON:      "无效的 JSON 格式",
	Unauthorized:     "未授权，请登录",
	Forbidden:        "无权限执行此操作",

	UserExist:          "邮箱或用户名已存在",
	InvalidCredentials: "用户名或密码错误",

	VersionUploadFailed: "软件包上传失败",
	VersionNotFound:     "版本不存在",
	VersionExist:        "版本号已存在",
	VersionInvalidRef:   "版本引用格式无效",
	VersionDeleteFailed: "版本删除失败",
	FileTypeNotAllowed:  "仅支持 .exe, .msi, .zip 文件",
	FileTooLarge:        "文件超过大小限制",
	StorageError:        "对象存储操作失败",
	SignFailed:          "生成下载链接失败",
	PostNotFound:        "关联的发布文章不存在",
}

// GetMsg 获取错误码对应的默认信息
func GetMsg(code int) string {
	msg, ok := Msg[code]
	if ok {
		return msg
	}
	return Msg[ServerError]
}

// HTTPStatus 业务错误码 -> HTTP 状态码
func HTTPStatus(code int) int {
	switch code {
	case Success:
		return http.StatusOK
	case ParamError, InvalidJSON, UserExist, VersionExist, VersionInvalidRef,
		FileTypeNotAllowed, FileTooLarge, PostNotFound:
		return http.StatusBadRequest
	case Unauthorized, InvalidCredentials:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case VersionNotFound:
		return http.StatusNotFound
	case MethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}
