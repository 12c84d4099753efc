package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"release-portal/pkg/code"
	"release-portal/pkg/e"
	"release-portal/pkg/response"
)

// ScanOrphans 扫描对象存储中没有版本引用的安装包
// GET /api/maintenance/orphans
func (h *ServerHandler) ScanOrphans(w http.ResponseWriter, r *http.Request) {
	orphans, err := h.releaseMgr.ScanOrphans(r.Context())
	if err != nil {
		response.Error(w, toCodeError(err, code.ServerError))
		return
	}
	response.Success(w, orphans)
}

type deleteOrphansReq struct {
	Files []string `json:"files"`
}

// DeleteOrphans 删除孤儿文件
// POST /api/maintenance/orphans/delete {files: [...]}
func (h *ServerHandler) DeleteOrphans(w http.ResponseWriter, r *http.Request) {
	var req deleteOrphansReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, e.New(code.InvalidJSON, "JSON解析失败", err))
		return
	}
	if len(req.Files) == 0 {
		response.Error(w, e.New(code.ParamError, "files 不能为空", nil))
		return
	}

	n, err := h.releaseMgr.DeleteOrphans(r.Context(), req.Files)
	h.audit(r, "delete_orphans", "storage", "software/", fmt.Sprintf("%d/%d files", n, len(req.Files)), err)
	if err != nil {
		response.Error(w, toCodeError(err, code.ServerError))
		return
	}
	response.Success(w, map[string]int{"deleted": n})
}
