package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"release-portal/pkg/protocol"
	"release-portal/pkg/storage"
)

var ErrSignFailed = errors.New("sign download url failed")

// DownloadRecorder 下载事件的写入方 (StatsManager)
type DownloadRecorder interface {
	Record(ctx context.Context, stat *protocol.DownloadStatistic) error
}

type DownloadOptions struct {
	UsePresigned  bool          // 签发限时链接而不是直链
	PresignExpiry time.Duration // 限时链接有效期
}

// DownloadRequest 发起下载的请求上下文
type DownloadRequest struct {
	UserID      *int64 // 匿名下载为 nil
	IPAddress   string
	UserAgent   string
	CountryCode string
}

type DownloadManager struct {
	versions *VersionManager
	recorder DownloadRecorder
	store    storage.Provider
	opts     DownloadOptions
	logger   *zap.Logger
}

func NewDownloadManager(versions *VersionManager, recorder DownloadRecorder, store storage.Provider, opts DownloadOptions, logger *zap.Logger) *DownloadManager {
	if opts.PresignExpiry <= 0 {
		opts.PresignExpiry = time.Hour
	}
	return &DownloadManager{
		versions: versions,
		recorder: recorder,
		store:    store,
		opts:     opts,
		logger:   logger,
	}
}

// osTable 按顺序匹配 User-Agent，第一个命中的生效
var osTable = []struct {
	needle string
	name   string
}{
	{"Windows", "Windows"},
	{"Mac", "MacOS"},
	{"Linux", "Linux"},
	{"Android", "Android"},
	{"iOS", "iOS"},
}

// DetectOS 粗略识别操作系统，仅用于统计
func DetectOS(userAgent string) string {
	for _, entry := range osTable {
		if strings.Contains(userAgent, entry.needle) {
			return entry.name
		}
	}
	return "Unknown"
}

// SuggestFileName <版本号><存储地址的扩展名>，识别不出扩展名时按 .exe
func SuggestFileName(v *protocol.SoftwareVersion) string {
	ext := storage.Extension(v.DownloadURL)
	if ext == "" {
		ext = storage.Extension(v.ObjectKey)
	}
	if ext == "" {
		ext = ".exe"
	}
	return storage.SanitizeLabel(v.VersionNumber) + ext
}

// InitiateDownload 解析版本 -> 记录下载 (失败只记日志) -> 返回下载地址
func (dm *DownloadManager) InitiateDownload(ctx context.Context, ref string, req DownloadRequest) (*protocol.DownloadTicket, error) {
	// 1. 版本不存在时不记录统计
	v, err := dm.versions.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	// 2. 记录下载事件，失败不影响下载
	stat := &protocol.DownloadStatistic{
		VersionID:   v.ID,
		UserID:      req.UserID,
		IPAddress:   req.IPAddress,
		UserAgent:   req.UserAgent,
		OSType:      DetectOS(req.UserAgent),
		CountryCode: req.CountryCode,
	}
	if err := dm.recorder.Record(ctx, stat); err != nil {
		dm.logger.Warn("record download statistic failed",
			zap.Int64("version_id", v.ID),
			zap.String("version", v.VersionNumber),
			zap.Error(err))
	}

	ticket := &protocol.DownloadTicket{
		Checksum:      v.Checksum,
		FileName:      SuggestFileName(v),
		VersionNumber: v.VersionNumber,
		Method:        protocol.MethodDirect,
		DownloadURL:   v.DownloadURL,
	}

	// 3. 需要时签发限时链接 (外部登记的版本没有对象 Key，只能给直链)
	if dm.opts.UsePresigned && v.ObjectKey != "" {
		signed, err := dm.store.Sign(ctx, v.ObjectKey, dm.opts.PresignExpiry, ticket.FileName)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSignFailed, err)
		}
		ticket.DownloadURL = signed
		ticket.Method = protocol.MethodPresigned
	}

	return ticket, nil
}
