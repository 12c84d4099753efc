package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// LoadPortalConfig 加载配置
// 优先级: 命令行参数 > 环境变量 (PORTAL_*) > 配置文件 > 默认值
func LoadPortalConfig(cfgFile string) (*PortalConfig, error) {
	return load(viper.GetViper(), cfgFile)
}

func load(v *viper.Viper, cfgFile string) (*PortalConfig, error) {
	// 1. 兜底默认值 (port, db_path, upload_dir 在 main.go 里通过 pflag 设置)
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.db_path", "portal.db")
	v.SetDefault("server.public_url", "http://127.0.0.1:8080")
	v.SetDefault("server.api_timeout", "10s")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("storage.use_presigned", false)
	v.SetDefault("storage.presign_expiry", "1h")
	v.SetDefault("storage.max_upload_size", DefaultMaxUploadSize)
	// MinIO / S3 默认值
	v.SetDefault("storage.minio.endpoint", "127.0.0.1:9000")
	v.SetDefault("storage.minio.ak", "minioadmin")
	v.SetDefault("storage.minio.sk", "minioadmin")
	v.SetDefault("storage.minio.bucket", "software-releases")
	v.SetDefault("storage.minio.region", "us-east-1")

	v.SetDefault("auth.jwt_secret", DefaultJWTSecret)
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.admin_email", "admin@example.com")
	v.SetDefault("auth.admin_username", "admin")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// 2. 绑定环境变量 PORTAL_STORAGE_MINIO_BUCKET -> storage.minio.bucket
	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 3. 读取配置文件 (如果有)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config file failed: %w", err)
			}
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.ReadInConfig()
	}

	var c PortalConfig
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate 启动前检查必填项
func (c *PortalConfig) Validate() error {
	if c.Storage.MaxUploadSize <= 0 {
		return errors.New("storage.max_upload_size must be positive")
	}
	if c.Storage.Type != "local" && c.Storage.Type != "minio" {
		return fmt.Errorf("unknown storage.type %q", c.Storage.Type)
	}
	if c.Storage.PresignExpiry <= 0 {
		return errors.New("storage.presign_expiry must be positive")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	return nil
}

// Warnings 可以启动但不安全的配置项
func (c *PortalConfig) Warnings() []string {
	var warns []string
	if c.Auth.JWTSecret == DefaultJWTSecret {
		warns = append(warns, "auth.jwt_secret is the built-in default, tokens can be forged; set PORTAL_AUTH_JWT_SECRET")
	}
	return warns
}
