// Package checksum 计算上传制品的内容摘要 (SHA-256, 小写 hex)
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// Empty 空内容的 SHA-256
const Empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// Sum 计算整段内容的摘要
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Hasher 流式摘要，配合 io.MultiWriter / io.TeeReader 使用
type Hasher struct {
	h    hash.Hash
	size int64
}

func NewHasher() *Hasher {
	return &Hasher{h: sha256.New()}
}

func (h *Hasher) Write(p []byte) (int, error) {
	n, err := h.h.Write(p)
	h.size += int64(n)
	return n, err
}

// Sum 返回当前已写入内容的 hex 摘要
func (h *Hasher) Sum() string {
	return hex.EncodeToString(h.h.Sum(nil))
}

// Size 已写入的字节数
func (h *Hasher) Size() int64 {
	return h.size
}

// SumReader 读完 r 并返回摘要和字节数
func SumReader(r io.Reader) (string, int64, error) {
	h := NewHasher()
	if _, err := io.Copy(h, r); err != nil {
		return "", h.Size(), err
	}
	return h.Sum(), h.Size(), nil
}
