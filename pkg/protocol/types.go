package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ==========================================
// 1. 软件版本 (SoftwareVersion)
// ==========================================

// SizeBytes 文件大小 (64 位)
// JSON 中以十进制字符串传输，避免 JS 端超过 2^53 丢精度；输入兼容数字和字符串
type SizeBytes int64

func (s SizeBytes) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatInt(int64(s), 10))), nil
}

func (s *SizeBytes) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid sizeBytes %s", data)
	}
	if n < 0 {
		return fmt.Errorf("sizeBytes must not be negative")
	}
	*s = SizeBytes(n)
	return nil
}

// PostRef 版本关联的发布公告
type PostRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

type SoftwareVersion struct {
	ID              int64     `json:"id"`
	VersionNumber   string    `json:"versionNumber"`
	DownloadURL     string    `json:"downloadUrl"`
	ObjectKey       string    `json:"-"` // 对象存储 Key，外部添加的版本为空
	Checksum        string    `json:"checksum"`
	SizeBytes       SizeBytes `json:"sizeBytes"`
	ReleaseDate     time.Time `json:"releaseDate"`
	IsLatest        bool      `json:"isLatest"`
	MinRequirements *string   `json:"minRequirements"`
	Changelog       *string   `json:"changelog"`
	ReleasePostID   *int64    `json:"releasePostId"`

	// 列表聚合字段
	ReleasePost   *PostRef `json:"releasePost,omitempty"`
	DownloadCount int64    `json:"downloadCount"`
}

// VersionDetail 单个版本详情 (含下载记录)
type VersionDetail struct {
	*SoftwareVersion
	Downloads []*DownloadStatistic `json:"downloads"`
}

// NewVersion 创建版本的入参
type NewVersion struct {
	VersionNumber   string
	DownloadURL     string
	ObjectKey       string
	Checksum        string
	SizeBytes       int64
	MinRequirements *string
	Changelog       *string
	ReleasePostID   *int64
}

// VersionRef 版本引用：数字 ID 或版本号
// JSON 中既可以是数字 (versionId: 3) 也可以是字符串 ("1.2.0" / "3")
type VersionRef string

func (r *VersionRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = VersionRef(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("version reference must be a string or an integer")
	}
	*r = VersionRef(n.String())
	return nil
}

// ==========================================
// 2. 下载统计 (DownloadStatistic)
// ==========================================

type DownloadStatistic struct {
	ID           int64     `json:"id"`
	VersionID    int64     `json:"versionId"`
	UserID       *int64    `json:"userId"`
	IPAddress    string    `json:"ipAddress"`
	UserAgent    string    `json:"userAgent"`
	OSType       string    `json:"osType"`
	CountryCode  string    `json:"countryCode,omitempty"`
	DownloadDate time.Time `json:"downloadDate"`
}

// DownloadStats 管理后台下载汇总
type DownloadStats struct {
	TotalDownloads     int64 `json:"totalDownloads"`
	DownloadsToday     int64 `json:"downloadsToday"`
	DownloadsThisWeek  int64 `json:"downloadsThisWeek"`
	DownloadsThisMonth int64 `json:"downloadsThisMonth"`
}

// 下载方式
const (
	MethodDirect    = "direct"
	MethodPresigned = "presigned"
)

// DownloadTicket 发起下载的响应
type DownloadTicket struct {
	DownloadURL   string `json:"downloadUrl"`
	Checksum      string `json:"checksum"`
	FileName      string `json:"fileName,omitempty"`
	VersionNumber string `json:"versionNumber,omitempty"`
	Method        string `json:"method,omitempty"`
}

// ==========================================
// 3. 用户
// ==========================================

type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	IsAdmin   bool   `json:"isAdmin"`
	CreatedAt int64  `json:"createdAt"`
}

// ==========================================
// 4. 操作日志
// ==========================================

// OpLog 操作日志
type OpLog struct {
	ID         int64  `json:"id"`
	Operator   string `json:"operator"`    // 操作者 (用户名@IP)
	Action     string `json:"action"`      // 动作类型 (如: upload_version, set_latest)
	TargetType string `json:"target_type"` // 对象类型 (version, storage)
	TargetName string `json:"target_name"` // 对象名称 (方便阅读)
	Detail     string `json:"detail"`      // 详情 JSON 或 文本
	Status     string `json:"status"`      // success, fail
	CreateTime int64  `json:"create_time"`
}

// LogQueryResp 查询响应
type LogQueryResp struct {
	Total int64    `json:"total"`
	List  []*OpLog `json:"list"`
}
