package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, DefaultMaxUploadSize, cfg.Storage.MaxUploadSize)
	assert.Equal(t, time.Hour, cfg.Storage.PresignExpiry)
	assert.False(t, cfg.Storage.UsePresigned)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)

	// 默认密钥可以启动，但必须给出告警
	assert.Equal(t, DefaultJWTSecret, cfg.Auth.JWTSecret)
	require.Len(t, cfg.Warnings(), 1)
	assert.Contains(t, cfg.Warnings()[0], "auth.jwt_secret")
}

func TestWarningsWithCustomSecret(t *testing.T) {
	t.Setenv("PORTAL_AUTH_JWT_SECRET", "a-real-secret")
	cfg, err := load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "a-real-secret", cfg.Auth.JWTSecret)
	assert.Empty(t, cfg.Warnings())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.yaml")
	yaml := `
storage:
  type: minio
  use_presigned: true
  cdn_domain: cdn.example.com
  minio:
    bucket: releases
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	t.Setenv("PORTAL_STORAGE_MAX_UPLOAD_SIZE", "1073741824")
	t.Setenv("PORTAL_STORAGE_MINIO_REGION", "eu-central-1")

	cfg, err := load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "minio", cfg.Storage.Type)
	assert.True(t, cfg.Storage.UsePresigned)
	assert.Equal(t, "cdn.example.com", cfg.Storage.CDNDomain)
	assert.Equal(t, "releases", cfg.Storage.Minio.Bucket)
	assert.Equal(t, "eu-central-1", cfg.Storage.Minio.Region)
	assert.Equal(t, int64(1<<30), cfg.Storage.MaxUploadSize)
}

func TestValidate(t *testing.T) {
	cfg := PortalConfig{
		Storage: StorageConfig{Type: "local", MaxUploadSize: 1, PresignExpiry: time.Hour},
		Auth:    AuthConfig{JWTSecret: "s"},
	}
	assert.NoError(t, cfg.Validate())

	bad := cfg
	bad.Storage.MaxUploadSize = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Storage.Type = "ftp"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Auth.JWTSecret = ""
	assert.Error(t, bad.Validate())
}
