package response

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"release-portal/pkg/code"
	"release-portal/pkg/e"
)

type Response struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data"` // data 字段可以是 null, object, array
}

// Logger 用于记录错误响应，由 main 注入
var Logger = zap.NewNop()

// Result 基础响应方法
func Result(w http.ResponseWriter, httpStatus int, bizCode int, msg string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	resp := Response{
		Code: bizCode,
		Msg:  msg,
		Data: data,
	}
	json.NewEncoder(w).Encode(resp)
}

// Success 成功响应 (HTTP 200)
func Success(w http.ResponseWriter, data interface{}) {
	Result(w, http.StatusOK, code.Success, "success", data)
}

// Error 错误响应，HTTP 状态码由业务错误码决定
func Error(w http.ResponseWriter, err error) {
	// 1. 如果是自定义业务错误
	if bizErr, ok := e.As(err); ok {
		// 记录原始错误日志（如果有）
		if bizErr.Raw != nil {
			Logger.Warn("biz error", zap.Int("code", bizErr.Code), zap.String("msg", bizErr.Msg), zap.Error(bizErr.Raw))
		}
		Result(w, code.HTTPStatus(bizErr.Code), bizErr.Code, bizErr.Msg, nil)
		return
	}

	// 2. 如果是普通系统错误，不向前端暴露细节
	Logger.Error("sys error", zap.Error(err))
	Result(w, http.StatusInternalServerError, code.ServerError, code.GetMsg(code.ServerError), nil)
}
