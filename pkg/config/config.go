package config

import (
	"time"
)

// ================= Portal Config =================

type PortalConfig struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Port       string        `mapstructure:"port"`
	DBPath     string        `mapstructure:"db_path"`
	PublicURL  string        `mapstructure:"public_url"`  // 本地存储模式下拼接下载地址
	APITimeout time.Duration `mapstructure:"api_timeout"` // 普通 API 超时 (上传/下载/WS 不受限)
}

type StorageConfig struct {
	Type          string        `mapstructure:"type"` // "local" or "minio"
	UploadDir     string        `mapstructure:"upload_dir"`
	CDNDomain     string        `mapstructure:"cdn_domain"`
	UsePresigned  bool          `mapstructure:"use_presigned"`   // 下载时签发限时链接而不是直链
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`  // 默认 1h
	MaxUploadSize int64         `mapstructure:"max_upload_size"` // 字节，默认 5GB
	Minio         MinioConfig   `mapstructure:"minio"`
}

type MinioConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	AK       string `mapstructure:"ak"`
	SK       string `mapstructure:"sk"`
	Bucket   string `mapstructure:"bucket"`
	Region   string `mapstructure:"region"`
	UseSSL   bool   `mapstructure:"use_ssl"`
	SSE      bool   `mapstructure:"sse"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	AdminEmail    string        `mapstructure:"admin_email"`
	AdminUsername string        `mapstructure:"admin_username"`
	AdminPassword string        `mapstructure:"admin_password"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format"` // "json" or "console"
}

// DefaultMaxUploadSize 5GB (S3 单次 PUT 上限)
const DefaultMaxUploadSize int64 = 5 << 30

// DefaultJWTSecret 仅用于本地开发，生产环境必须覆盖
const DefaultJWTSecret = "release-portal-secret-key"
