package api

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"release-portal/internal/portal/auth"
	"release-portal/internal/portal/manager"
	"release-portal/internal/portal/middleware"
	"release-portal/internal/portal/ws"
	"release-portal/pkg/protocol"
	"release-portal/pkg/storage"
	"release-portal/pkg/utils"
)

// ServerHandler 持有所有业务逻辑依赖
// 这种结构允许我们在测试时注入内存库和假的对象存储
type ServerHandler struct {
	versionMgr  *manager.VersionManager
	releaseMgr  *manager.ReleaseManager
	downloadMgr *manager.DownloadManager
	statsMgr    *manager.StatsManager
	userMgr     *manager.UserManager
	logMgr      *manager.LogManager
	hub         *ws.Hub
	issuer      *auth.TokenIssuer
	localStore  *storage.LocalProvider // 仅本地存储模式，用于 /download/
	signedOnly  bool                   // 预签名模式下 /download/ 必须带有效签名
	logger      *zap.Logger
}

// Deps 构造 ServerHandler 所需的依赖
type Deps struct {
	Versions               *manager.VersionManager
	Releases               *manager.ReleaseManager
	Downloads              *manager.DownloadManager
	Stats                  *manager.StatsManager
	Users                  *manager.UserManager
	Logs                   *manager.LogManager
	Hub                    *ws.Hub
	Issuer                 *auth.TokenIssuer
	LocalStore             *storage.LocalProvider
	RequireSignedDownloads bool // 为 true 时拒绝不带签名的 /download/ 请求
	Logger                 *zap.Logger
}

func NewServerHandler(d Deps) *ServerHandler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ServerHandler{
		versionMgr:  d.Versions,
		releaseMgr:  d.Releases,
		downloadMgr: d.Downloads,
		statsMgr:    d.Stats,
		userMgr:     d.Users,
		logMgr:      d.Logs,
		hub:         d.Hub,
		issuer:      d.Issuer,
		localStore:  d.LocalStore,
		signedOnly:  d.RequireSignedDownloads,
		logger:      logger,
	}
}

// operator 审计日志中的操作者: 用户名@IP
func operator(r *http.Request) string {
	name := "anonymous"
	if c := middleware.ClaimsFromContext(r.Context()); c != nil {
		name = c.Username
	}
	return name + "@" + utils.GetClientIP(r)
}

func (h *ServerHandler) audit(r *http.Request, action, targetType, target, detail string, err error) {
	status := "success"
	if err != nil {
		status = "fail"
		detail = err.Error()
	}
	h.logMgr.RecordLog(operator(r), action, targetType, target, detail, status)
}

// publishVersions 版本目录变化后刷新推送缓存
// 没有连接时也要刷新，新连接建立时会直接收到缓存
func (h *ServerHandler) publishVersions(ctx context.Context) {
	if h.hub == nil {
		return
	}
	list, err := h.versionMgr.List(ctx)
	if err != nil {
		h.logger.Warn("list versions for push failed", zap.Error(err))
		return
	}
	h.hub.Publish(protocol.TypeVersions, list)
}

func (h *ServerHandler) publishStats(ctx context.Context) {
	if h.hub == nil {
		return
	}
	stats, err := h.statsMgr.GetDownloadStats(ctx)
	if err != nil {
		h.logger.Warn("load stats for push failed", zap.Error(err))
		return
	}
	h.hub.Publish(protocol.TypeStats, stats)
}
