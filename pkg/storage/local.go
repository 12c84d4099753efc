package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// LocalProvider 本地磁盘存储，文件通过 <PublicURL>/download/<key> 对外提供
type LocalProvider struct {
	BaseDir   string
	PublicURL string // 如 http://127.0.0.1:8080
	secret    []byte // 本地签名 URL 的 HMAC 密钥
}

func NewLocalProvider(baseDir, publicURL, secret string) (*LocalProvider, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &LocalProvider{
		BaseDir:   baseDir,
		PublicURL: strings.TrimRight(publicURL, "/"),
		secret:    []byte(secret),
	}, nil
}

// Path 返回 key 对应的本地文件路径，拒绝越出 BaseDir 的 key
func (l *LocalProvider) Path(key string) (string, error) {
	name := objectName(key)
	if name == "" {
		return "", fmt.Errorf("invalid object key: %q", key)
	}
	fullPath := filepath.Join(l.BaseDir, filepath.FromSlash(name))
	rel, err := filepath.Rel(l.BaseDir, fullPath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object key: %q", key)
	}
	return fullPath, nil
}

func (l *LocalProvider) Put(ctx context.Context, key string, data io.Reader, size int64, opts PutOptions) (string, error) {
	fullPath, err := l.Path(key)
	if err != nil {
		return "", err
	}

	// 确保子目录存在
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", err
	}

	out, err := os.Create(fullPath)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(out, data); err != nil {
		out.Close()
		os.Remove(fullPath)
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(fullPath)
		return "", err
	}
	return l.directURL(key), nil
}

func (l *LocalProvider) Delete(ctx context.Context, key string) error {
	fullPath, err := l.Path(key)
	if err != nil {
		return err
	}
	return os.Remove(fullPath)
}

// Sign 本地模式没有对象存储凭证，使用 HMAC(key, expires, filename) 生成签名，由 /download/ 路由校验
func (l *LocalProvider) Sign(ctx context.Context, key string, expiry time.Duration, fileName string) (string, error) {
	if _, err := l.Path(key); err != nil {
		return "", err
	}
	expires := time.Now().Add(expiry).Unix()

	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", l.signature(objectName(key), expires, fileName))
	if fileName != "" {
		q.Set("filename", fileName)
	}
	return l.directURL(key) + "?" + q.Encode(), nil
}

// Verify 校验签名URL，过期、签名不符或 filename 被改动都返回 false
func (l *LocalProvider) Verify(key, expires, fileName, sig string) bool {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil || time.Now().Unix() > exp {
		return false
	}
	expected := l.signature(objectName(key), exp, fileName)
	return hmac.Equal([]byte(expected), []byte(sig))
}

func (l *LocalProvider) ListFiles(ctx context.Context, prefix string) ([]FileInfo, error) {
	var files []FileInfo
	err := filepath.Walk(l.BaseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		// 获取相对路径作为对象名
		relPath, _ := filepath.Rel(l.BaseDir, path)
		name := filepath.ToSlash(relPath)
		if !strings.HasPrefix(name, prefix) {
			return nil
		}
		files = append(files, FileInfo{
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime().Unix(),
		})
		return nil
	})
	return files, err
}

func (l *LocalProvider) directURL(key string) string {
	return fmt.Sprintf("%s/download/%s", l.PublicURL, objectName(key))
}

func (l *LocalProvider) signature(name string, expires int64, fileName string) string {
	mac := hmac.New(sha256.New, l.secret)
	fmt.Fprintf(mac, "%s\n%d\n%s", name, expires, fileName)
	return hex.EncodeToString(mac.Sum(nil))
}
