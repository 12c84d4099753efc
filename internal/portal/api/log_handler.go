package api

import (
	"net/http"
	"strconv"

	"release-portal/pkg/code"
	"release-portal/pkg/e"
	"release-portal/pkg/response"
)

// GetOpLogs 分页查询操作日志
// GET /api/logs?page=1&pageSize=20&keyword=
func (h *ServerHandler) GetOpLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))

	logs, err := h.logMgr.GetLogs(page, pageSize, q.Get("keyword"))
	if err != nil {
		response.Error(w, e.New(code.DatabaseError, "查询日志失败", err))
		return
	}
	response.Success(w, logs)
}
