package storage

import (
	"context"
	"io"
	"time"
)

type Provider interface {
	// 保存对象 (key: 如 software/1.2.0-1700000000000-setup.exe)，返回可直接访问的地址
	Put(ctx context.Context, key string, data io.Reader, size int64, opts PutOptions) (string, error)

	// 删除对象
	Delete(ctx context.Context, key string) error

	// 生成限时下载链接 (MinIO/S3 为预签名URL, Local 为 HMAC 签名URL)
	// fileName 非空时作为下载文件名
	Sign(ctx context.Context, key string, expiry time.Duration, fileName string) (string, error)

	// 列出指定前缀下的所有对象 (用于孤儿文件扫描)
	ListFiles(ctx context.Context, prefix string) ([]FileInfo, error)
}

type PutOptions struct {
	ContentType        string
	ContentDisposition string
	Metadata           map[string]string
}

type FileInfo struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	ModTime int64  `json:"mod_time"`
}
