package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"release-portal/internal/portal/auth"
	"release-portal/internal/portal/db"
	"release-portal/internal/portal/manager"
	"release-portal/internal/portal/middleware"
	"release-portal/internal/portal/ws"
	"release-portal/pkg/config"
	"release-portal/pkg/storage"
)

// StartServer 启动 HTTP 服务，ctx 结束后优雅退出
func StartServer(ctx context.Context, cfg *config.PortalConfig, logger *zap.Logger) error {
	for _, w := range cfg.Warnings() {
		logger.Warn("insecure config", zap.String("detail", w))
	}

	// 1. 初始化数据库
	database, err := db.Open(cfg.Server.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	// 2. 初始化文件存储 Provider
	store, localStore, err := newStorage(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init storage failed: %w", err)
	}

	// 3. 初始化所有 Manager (单次实例化，依赖注入)
	versionMgr := manager.NewVersionManager(database)
	statsMgr := manager.NewStatsManager(database)
	userMgr := manager.NewUserManager(database)
	logMgr := manager.NewLogManager(database, logger)
	releaseMgr := manager.NewReleaseManager(versionMgr, store, cfg.Storage.MaxUploadSize, logger)
	downloadMgr := manager.NewDownloadManager(versionMgr, statsMgr, store, manager.DownloadOptions{
		UsePresigned:  cfg.Storage.UsePresigned,
		PresignExpiry: cfg.Storage.PresignExpiry,
	}, logger)

	// 4. 初始管理员
	if cfg.Auth.AdminPassword != "" {
		created, err := userMgr.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword)
		if err != nil {
			return fmt.Errorf("seed admin failed: %w", err)
		}
		if created {
			logger.Info("admin account created", zap.String("email", cfg.Auth.AdminEmail))
		}
	}

	// 5. 启动 WebSocket Hub
	hub := ws.NewHub(time.Second, logger)
	go hub.Run(ctx)

	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	h := NewServerHandler(Deps{
		Versions:               versionMgr,
		Releases:               releaseMgr,
		Downloads:              downloadMgr,
		Stats:                  statsMgr,
		Users:                  userMgr,
		Logs:                   logMgr,
		Hub:                    hub,
		Issuer:                 issuer,
		LocalStore:             localStore,
		RequireSignedDownloads: cfg.Storage.UsePresigned,
		Logger:                 logger,
	})

	server := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           NewRouter(h, issuer, cfg.Server.APITimeout, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       0, // 必须为 0，否则大文件/WS 会断
		WriteTimeout:      0,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("portal api running",
			zap.String("addr", cfg.Server.Port),
			zap.String("storage", cfg.Storage.Type))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newStorage(ctx context.Context, cfg *config.PortalConfig, logger *zap.Logger) (storage.Provider, *storage.LocalProvider, error) {
	if cfg.Storage.Type == "minio" {
		m := cfg.Storage.Minio
		logger.Info("using minio storage", zap.String("endpoint", m.Endpoint), zap.String("bucket", m.Bucket))
		p, err := storage.NewMinioProvider(ctx, storage.MinioOptions{
			Endpoint:  m.Endpoint,
			AccessKey: m.AK,
			SecretKey: m.SK,
			Bucket:    m.Bucket,
			Region:    m.Region,
			UseSSL:    m.UseSSL,
			SSE:       m.SSE,
			CDNDomain: cfg.Storage.CDNDomain,
		})
		return p, nil, err
	}

	logger.Info("using local storage", zap.String("dir", cfg.Storage.UploadDir))
	p, err := storage.NewLocalProvider(cfg.Storage.UploadDir, cfg.Server.PublicURL, cfg.Auth.JWTSecret)
	return p, p, err
}

// NewRouter 注册路由并组装中间件
func NewRouter(h *ServerHandler, issuer *auth.TokenIssuer, apiTimeout time.Duration, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	registerRoutes(mux, h)

	// 由外到内: 访问日志 -> panic 恢复 -> 超时 -> 鉴权 -> 路由
	mws := []func(http.Handler) http.Handler{
		middleware.AccessLog(logger),
		middleware.Recovery(logger),
	}
	if apiTimeout > 0 {
		mws = append(mws, middleware.TimeoutMiddleware(apiTimeout))
	}
	var users middleware.UserLookup
	if h.userMgr != nil {
		users = h.userMgr
	}
	mws = append(mws, middleware.Authenticate(issuer, users))
	return middleware.Chain(mux, mws...)
}

// registerRoutes 注册所有路由
func registerRoutes(mux *http.ServeMux, h *ServerHandler) {
	admin := func(fn http.HandlerFunc) http.Handler { return middleware.RequireAdmin(fn) }
	user := func(fn http.HandlerFunc) http.Handler { return middleware.RequireUser(fn) }

	// --- 软件版本 ---
	mux.HandleFunc("GET /api/software", h.ListVersions)
	mux.Handle("POST /api/software", admin(h.CreateVersion))
	mux.Handle("POST /api/software/upload", admin(h.UploadVersion))
	mux.HandleFunc("POST /api/software/download", h.Download)
	mux.Handle("GET /api/software/stats", admin(h.Stats))
	mux.HandleFunc("GET /api/software/{ref}", h.GetVersion)
	mux.Handle("DELETE /api/software/{ref}", admin(h.DeleteVersion))
	mux.Handle("POST /api/software/{ref}/set-latest", admin(h.SetLatest))

	// --- 用户 ---
	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.Handle("GET /api/dashboard/stats", user(h.UserStats))

	// --- 审计 / 维护 ---
	mux.Handle("GET /api/logs", admin(h.GetOpLogs))
	mux.Handle("GET /api/maintenance/orphans", admin(h.ScanOrphans))
	mux.Handle("POST /api/maintenance/orphans/delete", admin(h.DeleteOrphans))

	// --- WebSocket ---
	if h.hub != nil {
		mux.Handle("GET /api/ws", admin(h.hub.HandleWebsocket))
	}

	// --- 本地存储文件下载 ---
	if h.localStore != nil {
		mux.HandleFunc("GET /download/{key...}", h.ServeFile)
	}

	mux.HandleFunc("GET /healthz", h.Healthz)
}
