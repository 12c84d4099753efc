package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/encrypt"
)

type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	SSE       bool   // 服务端加密 (SSE-S3, AES256)
	CDNDomain string // 配置后直链使用 https://<cdn>/<key>
}

type MinioProvider struct {
	client *minio.Client
	opts   MinioOptions
}

func NewMinioProvider(ctx context.Context, opts MinioOptions) (*MinioProvider, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, err
	}

	// 自动建桶
	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket failed: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("make bucket failed: %w", err)
		}
	}

	return &MinioProvider{client: client, opts: opts}, nil
}

func (m *MinioProvider) Put(ctx context.Context, key string, data io.Reader, size int64, opts PutOptions) (string, error) {
	objectName := objectName(key)

	putOpts := minio.PutObjectOptions{
		ContentType:        opts.ContentType,
		ContentDisposition: opts.ContentDisposition,
		UserMetadata:       opts.Metadata,
	}
	if m.opts.SSE {
		putOpts.ServerSideEncryption = encrypt.NewSSE()
	}

	// size 已知时 minio 可直接决定分片大小，不必整体缓冲
	if _, err := m.client.PutObject(ctx, m.opts.Bucket, objectName, data, size, putOpts); err != nil {
		return "", err
	}
	return m.publicURL(objectName), nil
}

func (m *MinioProvider) Delete(ctx context.Context, key string) error {
	return m.client.RemoveObject(ctx, m.opts.Bucket, objectName(key), minio.RemoveObjectOptions{})
}

func (m *MinioProvider) Sign(ctx context.Context, key string, expiry time.Duration, fileName string) (string, error) {
	reqParams := make(url.Values)
	if fileName != "" {
		reqParams.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	}

	// 生成预签名 URL (客户端直接去对象存储下载，不经过本服务)
	u, err := m.client.PresignedGetObject(ctx, m.opts.Bucket, objectName(key), expiry, reqParams)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (m *MinioProvider) ListFiles(ctx context.Context, prefix string) ([]FileInfo, error) {
	var files []FileInfo
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objectCh := m.client.ListObjects(ctx, m.opts.Bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})
	for object := range objectCh {
		if object.Err != nil {
			return nil, object.Err
		}
		files = append(files, FileInfo{
			Name:    object.Key,
			Size:    object.Size,
			ModTime: object.LastModified.Unix(),
		})
	}
	return files, nil
}

// publicURL 直链：优先 CDN，否则使用 path-style 的 endpoint/bucket/key
func (m *MinioProvider) publicURL(objectName string) string {
	if m.opts.CDNDomain != "" {
		return fmt.Sprintf("https://%s/%s", m.opts.CDNDomain, objectName)
	}
	u := *m.client.EndpointURL()
	u.Path = path.Join("/", m.opts.Bucket, objectName)
	return u.String()
}
