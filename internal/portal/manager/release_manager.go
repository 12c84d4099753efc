package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"release-portal/pkg/checksum"
	"release-portal/pkg/protocol"
	"release-portal/pkg/storage"
)

var (
	ErrMissingFile        = errors.New("no file uploaded")
	ErrFileTypeNotAllowed = errors.New("file type not allowed")
	ErrFileTooLarge       = errors.New("file too large")
	ErrStorage            = errors.New("object storage failure")
)

// AllowedExtensions 允许上传的安装包类型
var AllowedExtensions = map[string]bool{
	".exe": true,
	".msi": true,
	".zip": true,
}

// UploadInput 上传参数
type UploadInput struct {
	VersionNumber   string
	FileName        string
	Size            int64 // 客户端声明的大小，未知时为 -1
	Body            io.ReadSeeker
	MinRequirements *string
	Changelog       *string
	ReleasePostID   *int64
	UploadedBy      string
}

type UploadResult struct {
	Version     *protocol.SoftwareVersion `json:"version"`
	ObjectKey   string                    `json:"s3Key"`
	DownloadURL string                    `json:"downloadUrl"`
}

// OrphanFile 存储中存在但没有版本引用的对象
type OrphanFile = storage.FileInfo

// ReleaseManager 发布流程：校验 -> 摘要 -> 存储 -> 入库；删除：出库 -> 尽力清理存储
type ReleaseManager struct {
	versions      *VersionManager
	store         storage.Provider
	maxUploadSize int64
	logger        *zap.Logger
	now           func() time.Time
}

func NewReleaseManager(versions *VersionManager, store storage.Provider, maxUploadSize int64, logger *zap.Logger) *ReleaseManager {
	return &ReleaseManager{
		versions:      versions,
		store:         store,
		maxUploadSize: maxUploadSize,
		logger:        logger,
		now:           time.Now,
	}
}

// MaxUploadSize 上传大小上限 (字节)
func (rm *ReleaseManager) MaxUploadSize() int64 {
	return rm.maxUploadSize
}

// ValidateUpload 所有不产生副作用的检查
func (rm *ReleaseManager) ValidateUpload(ctx context.Context, in *UploadInput) error {
	in.VersionNumber = strings.TrimSpace(in.VersionNumber)
	if in.Body == nil || in.FileName == "" {
		return ErrMissingFile
	}
	if in.VersionNumber == "" {
		return fmt.Errorf("%w: version number is required", ErrInvalidVersion)
	}
	if !AllowedExtensions[strings.ToLower(path.Ext(in.FileName))] {
		return ErrFileTypeNotAllowed
	}
	if in.Size > rm.maxUploadSize {
		return ErrFileTooLarge
	}

	_, err := rm.versions.GetByLabel(ctx, in.VersionNumber)
	if err == nil {
		return ErrVersionExists
	}
	if !errors.Is(err, ErrVersionNotFound) {
		return err
	}
	return nil
}

// Upload 上传安装包并登记为最新版本
// 存储失败时不写库；写库失败时尽力删除已上传的对象
func (rm *ReleaseManager) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if err := rm.ValidateUpload(ctx, &in); err != nil {
		return nil, err
	}

	// 1. 计算摘要和真实大小 (声明的大小不可信)
	sum, size, err := checksum.SumReader(io.LimitReader(in.Body, rm.maxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload failed: %w", err)
	}
	if size > rm.maxUploadSize {
		return nil, ErrFileTooLarge
	}
	if _, err := in.Body.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload failed: %w", err)
	}

	// 2. 写入对象存储
	baseName := path.Base(strings.ReplaceAll(in.FileName, "\\", "/"))
	key := storage.ObjectKey(in.VersionNumber, baseName, rm.now())
	location, err := rm.store.Put(ctx, key, in.Body, size, storage.PutOptions{
		ContentType:        "application/octet-stream",
		ContentDisposition: fmt.Sprintf("attachment; filename=%q", baseName),
		Metadata: map[string]string{
			"original-name": baseName,
			"version":       in.VersionNumber,
			"uploaded-by":   in.UploadedBy,
			"checksum":      sum,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	// 3. 登记版本
	v, err := rm.versions.Create(ctx, protocol.NewVersion{
		VersionNumber:   in.VersionNumber,
		DownloadURL:     location,
		ObjectKey:       key,
		Checksum:        sum,
		SizeBytes:       size,
		MinRequirements: in.MinRequirements,
		Changelog:       in.Changelog,
		ReleasePostID:   in.ReleasePostID,
	})
	if err != nil {
		// 写库失败，尝试回滚删除文件
		if delErr := rm.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			rm.logger.Warn("cleanup uploaded object failed", zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}

	rm.logger.Info("version uploaded",
		zap.String("version", v.VersionNumber),
		zap.String("key", key),
		zap.Int64("size", size),
		zap.String("checksum", sum))

	return &UploadResult{Version: v, ObjectKey: key, DownloadURL: location}, nil
}

// Register 登记外部托管的版本 (不经过对象存储)
func (rm *ReleaseManager) Register(ctx context.Context, in protocol.NewVersion) (*protocol.SoftwareVersion, error) {
	in.ObjectKey = ""
	return rm.versions.Create(ctx, in)
}

// Remove 删除版本；目录删除成功后再尽力删除对象，存储失败不影响结果
func (rm *ReleaseManager) Remove(ctx context.Context, ref string) (*protocol.SoftwareVersion, error) {
	v, err := rm.versions.Delete(ctx, ref)
	if err != nil {
		return nil, err
	}

	if v.ObjectKey != "" {
		if err := rm.store.Delete(context.WithoutCancel(ctx), v.ObjectKey); err != nil {
			rm.logger.Warn("delete object failed, version already removed",
				zap.String("version", v.VersionNumber),
				zap.String("key", v.ObjectKey),
				zap.Error(err))
		}
	}
	return v, nil
}

// ScanOrphans 扫描 software/ 下没有被任何版本引用的对象
func (rm *ReleaseManager) ScanOrphans(ctx context.Context) ([]OrphanFile, error) {
	files, err := rm.store.ListFiles(ctx, storage.KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	keys, err := rm.versions.ObjectKeys(ctx)
	if err != nil {
		return nil, err
	}

	orphans := []OrphanFile{}
	for _, f := range files {
		if !keys[f.Name] {
			orphans = append(orphans, f)
		}
	}
	return orphans, nil
}

// DeleteOrphans 删除指定的孤儿对象，仍被引用或不在 software/ 下的 Key 会被跳过
func (rm *ReleaseManager) DeleteOrphans(ctx context.Context, names []string) (int, error) {
	keys, err := rm.versions.ObjectKeys(ctx)
	if err != nil {
		return 0, err
	}

	var errs []error
	deleted := 0
	for _, name := range names {
		if keys[name] || !strings.HasPrefix(name, storage.KeyPrefix) {
			rm.logger.Warn("skip non-orphan object", zap.String("key", name))
			continue
		}
		if err := rm.store.Delete(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		deleted++
	}
	if len(errs) > 0 {
		return deleted, fmt.Errorf("%w: %w", ErrStorage, errors.Join(errs...))
	}
	return deleted, nil
}
