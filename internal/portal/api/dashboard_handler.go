package api

import (
	"net/http"

	"release-portal/internal/portal/middleware"
	"release-portal/pkg/code"
	"release-portal/pkg/e"
	"release-portal/pkg/response"
)

// UserStats 当前用户自己的下载次数
// GET /api/dashboard/stats
func (h *ServerHandler) UserStats(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	n, err := h.statsMgr.UserDownloadCount(r.Context(), claims.UserID)
	if err != nil {
		response.Error(w, e.New(code.DatabaseError, "查询下载次数失败", err))
		return
	}
	response.Success(w, map[string]int64{"totalDownloads": n})
}
