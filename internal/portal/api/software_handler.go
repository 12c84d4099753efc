package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"release-portal/internal/portal/manager"
	"release-portal/internal/portal/middleware"
	"release-portal/pkg/code"
	"release-portal/pkg/e"
	"release-portal/pkg/protocol"
	"release-portal/pkg/response"
	"release-portal/pkg/utils"
)

// multipart 中超过该大小的部分落盘到临时文件
const uploadMemory = 32 << 20

// ListVersions 版本列表 (新到旧)
// GET /api/software
func (h *ServerHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	list, err := h.versionMgr.List(r.Context())
	if err != nil {
		response.Error(w, e.New(code.DatabaseError, "获取版本列表失败", err))
		return
	}
	response.Success(w, list)
}

type createVersionReq struct {
	VersionNumber   string             `json:"versionNumber"`
	DownloadURL     string             `json:"downloadUrl"`
	Checksum        string             `json:"checksum"`
	SizeBytes       protocol.SizeBytes `json:"sizeBytes"`
	MinRequirements *string            `json:"minRequirements"`
	Changelog       *string            `json:"changelog"`
	ReleasePostID   *int64             `json:"releasePostId"`
}

// CreateVersion 登记外部托管的版本
// POST /api/software
func (h *ServerHandler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	var req createVersionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, e.New(code.InvalidJSON, "JSON解析失败", err))
		return
	}

	v, err := h.releaseMgr.Register(r.Context(), protocol.NewVersion{
		VersionNumber:   req.VersionNumber,
		DownloadURL:     strings.TrimSpace(req.DownloadURL),
		Checksum:        strings.ToLower(strings.TrimSpace(req.Checksum)),
		SizeBytes:       int64(req.SizeBytes),
		MinRequirements: req.MinRequirements,
		Changelog:       req.Changelog,
		ReleasePostID:   req.ReleasePostID,
	})
	h.audit(r, "create_version", "version", req.VersionNumber, req.DownloadURL, err)
	if err != nil {
		response.Error(w, toCodeError(err, code.DatabaseError))
		return
	}

	h.publishVersions(r.Context())
	response.Success(w, v)
}

// UploadVersion 上传安装包并登记为最新版本
// POST /api/software/upload (multipart: file, versionNumber, minRequirements?, changelog?, releasePostId?)
func (h *ServerHandler) UploadVersion(w http.ResponseWriter, r *http.Request) {
	// 1. 限制请求体大小 (表单字段留 1MB 余量)
	r.Body = http.MaxBytesReader(w, r.Body, h.releaseMgr.MaxUploadSize()+(1<<20))
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		response.Error(w, toCodeError(err, code.ParamError))
		return
	}
	defer r.MultipartForm.RemoveAll()

	in := manager.UploadInput{
		VersionNumber:   r.FormValue("versionNumber"),
		MinRequirements: optionalForm(r, "minRequirements"),
		Changelog:       optionalForm(r, "changelog"),
		Size:            -1,
	}
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		in.UploadedBy = claims.Username
	}
	if raw := strings.TrimSpace(r.FormValue("releasePostId")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.Error(w, e.New(code.ParamError, "releasePostId 必须是整数", err))
			return
		}
		in.ReleasePostID = &id
	}

	// 2. 取文件 (缺失时交给 Manager 统一报错)
	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		in.Body = file
		in.FileName = header.Filename
		in.Size = header.Size
	}

	// 3. 校验 -> 摘要 -> 存储 -> 入库
	res, err := h.releaseMgr.Upload(r.Context(), in)
	h.audit(r, "upload_version", "version", in.VersionNumber, in.FileName, err)
	if err != nil {
		response.Error(w, toCodeError(err, code.VersionUploadFailed))
		return
	}

	h.publishVersions(r.Context())
	response.Success(w, map[string]interface{}{
		"message":     "上传成功",
		"version":     res.Version,
		"s3Key":       res.ObjectKey,
		"downloadUrl": res.DownloadURL,
	})
}

// GetVersion 版本详情 (含下载记录)
// GET /api/software/{ref}
func (h *ServerHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	v, err := h.versionMgr.Resolve(r.Context(), r.PathValue("ref"))
	if err != nil {
		response.Error(w, toCodeError(err, code.DatabaseError))
		return
	}
	downloads, err := h.statsMgr.ListByVersion(r.Context(), v.ID)
	if err != nil {
		response.Error(w, e.New(code.DatabaseError, "查询下载记录失败", err))
		return
	}
	response.Success(w, protocol.VersionDetail{SoftwareVersion: v, Downloads: downloads})
}

// DeleteVersion 删除版本 (对象存储清理失败不影响结果)
// DELETE /api/software/{ref}
func (h *ServerHandler) DeleteVersion(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("ref")
	v, err := h.releaseMgr.Remove(r.Context(), ref)
	h.audit(r, "delete_version", "version", ref, "", err)
	if err != nil {
		response.Error(w, toCodeError(err, code.VersionDeleteFailed))
		return
	}

	h.publishVersions(r.Context())
	response.Success(w, map[string]interface{}{
		"message":        fmt.Sprintf("版本 %s 已删除", v.VersionNumber),
		"deletedVersion": v,
	})
}

// SetLatest 切换最新版本
// POST /api/software/{ref}/set-latest
func (h *ServerHandler) SetLatest(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("ref")
	v, err := h.versionMgr.SetLatest(r.Context(), ref)
	h.audit(r, "set_latest", "version", ref, "", err)
	if err != nil {
		response.Error(w, toCodeError(err, code.DatabaseError))
		return
	}

	h.publishVersions(r.Context())
	response.Success(w, map[string]interface{}{
		"message": fmt.Sprintf("已将 %s 设为最新版本", v.VersionNumber),
		"version": v,
	})
}

type downloadReq struct {
	VersionID protocol.VersionRef `json:"versionId"`
}

// Download 记录下载并返回下载地址
// POST /api/software/download {versionId}
func (h *ServerHandler) Download(w http.ResponseWriter, r *http.Request) {
	var req downloadReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, e.New(code.InvalidJSON, "JSON解析失败", err))
		return
	}

	dr := manager.DownloadRequest{
		IPAddress:   utils.GetClientIP(r),
		UserAgent:   r.UserAgent(),
		CountryCode: utils.GetCountryCode(r),
	}
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		uid := claims.UserID
		dr.UserID = &uid
	}

	ticket, err := h.downloadMgr.InitiateDownload(r.Context(), string(req.VersionID), dr)
	if err != nil {
		response.Error(w, toCodeError(err, code.ServerError))
		return
	}

	h.logger.Debug("download initiated",
		zap.String("version", ticket.VersionNumber),
		zap.String("method", ticket.Method))
	h.publishStats(r.Context())
	response.Success(w, ticket)
}

// Stats 下载汇总
// GET /api/software/stats
func (h *ServerHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsMgr.GetDownloadStats(r.Context())
	if err != nil {
		response.Error(w, e.New(code.DatabaseError, "统计下载数据失败", err))
		return
	}
	response.Success(w, stats)
}

// optionalForm 空字段按未填处理
func optionalForm(r *http.Request, key string) *string {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return nil
	}
	return &v
}
