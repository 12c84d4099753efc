package api

import (
	"fmt"
	"net/http"
	"os"

	"release-portal/pkg/code"
	"release-portal/pkg/e"
	"release-portal/pkg/response"
)

// ServeFile 本地存储模式下的文件下载
// GET /download/{key...}；带 sig 参数或预签名模式下校验签名、有效期和文件名
func (h *ServerHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	q := r.URL.Query()

	if sig := q.Get("sig"); h.signedOnly || sig != "" || q.Has("expires") {
		if !h.localStore.Verify(key, q.Get("expires"), q.Get("filename"), sig) {
			response.Error(w, e.New(code.Forbidden, "下载链接无效或已过期", nil))
			return
		}
	}

	path, err := h.localStore.Path(key)
	if err != nil {
		response.Error(w, e.New(code.ParamError, "非法的文件路径", err))
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	if name := q.Get("filename"); name != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	}
	http.ServeFile(w, r, path)
}

// Healthz 存活检查
func (h *ServerHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]string{"status": "ok"})
}
