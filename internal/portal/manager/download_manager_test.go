package manager_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"release-portal/internal/portal/manager"
	"release-portal/pkg/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRecorder struct{ calls int }

func (r *failingRecorder) Record(ctx context.Context, stat *protocol.DownloadStatistic) error {
	r.calls++
	return errors.New("disk full")
}

func TestDetectOS(t *testing.T) {
	cases := map[string]string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64)":              "Windows",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2)":           "MacOS",
		"Mozilla/5.0 (X11; Linux x86_64)":                        "Linux",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)": "MacOS",
		"Mozilla/5.0 (Linux; Android 14; Pixel 8)":               "Linux",
		"SomeAgent Android":                                      "Android",
		"client/1.0 iOS":                                         "iOS",
		"curl/8.4.0":                                             "Unknown",
		"":                                                       "Unknown",
	}
	for ua, want := range cases {
		assert.Equal(t, want, manager.DetectOS(ua), ua)
	}
}

func TestSuggestFileName(t *testing.T) {
	assert.Equal(t, "1.2.0.msi", manager.SuggestFileName(&protocol.SoftwareVersion{
		VersionNumber: "1.2.0", DownloadURL: "https://cdn.example.com/software/1.2.0-1-setup.MSI?x=1",
	}))
	assert.Equal(t, "2.0_beta.zip", manager.SuggestFileName(&protocol.SoftwareVersion{
		VersionNumber: "2.0 beta", DownloadURL: "https://example.com/get", ObjectKey: "software/a.zip",
	}))
	assert.Equal(t, "3.0.0.exe", manager.SuggestFileName(&protocol.SoftwareVersion{
		VersionNumber: "3.0.0", DownloadURL: "https://example.com/latest",
	}))
}

type downloadFixture struct {
	conn     *sql.DB
	versions *manager.VersionManager
	stats    *manager.StatsManager
	store    *fakeStore
	logs     *observer.ObservedLogs
	logger   *zap.Logger
}

func setupDownload(t *testing.T) *downloadFixture {
	conn := setupTestDB(t)
	core, logs := observer.New(zapcore.DebugLevel)
	return &downloadFixture{
		conn:     conn,
		versions: manager.NewVersionManager(conn),
		stats:    manager.NewStatsManager(conn),
		store:    newFakeStore(),
		logs:     logs,
		logger:   zap.New(core),
	}
}

func TestInitiateDownloadDirect(t *testing.T) {
	f := setupDownload(t)
	ctx := context.Background()
	dm := manager.NewDownloadManager(f.versions, f.stats, f.store, manager.DownloadOptions{}, f.logger)

	v, err := f.versions.Create(ctx, newVersion("1.0.0", 5000))
	require.NoError(t, err)

	u, err := manager.NewUserManager(f.conn).Register(ctx, "bob@example.com", "bob", "pw")
	require.NoError(t, err)
	uid := u.ID
	ticket, err := dm.InitiateDownload(ctx, "1.0.0", manager.DownloadRequest{
		UserID:      &uid,
		IPAddress:   "203.0.113.7",
		UserAgent:   "Mozilla/5.0 (Windows NT 10.0)",
		CountryCode: "DE",
	})
	require.NoError(t, err)
	assert.Equal(t, v.DownloadURL, ticket.DownloadURL)
	assert.Equal(t, v.Checksum, ticket.Checksum)
	assert.Equal(t, "1.0.0.exe", ticket.FileName)
	assert.Equal(t, protocol.MethodDirect, ticket.Method)

	events, err := f.stats.ListByVersion(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Windows", events[0].OSType)
	assert.Equal(t, "203.0.113.7", events[0].IPAddress)
	assert.Equal(t, "DE", events[0].CountryCode)
	require.NotNil(t, events[0].UserID)
	assert.Equal(t, uid, *events[0].UserID)

	// 按 ID 引用同样可用
	_, err = dm.InitiateDownload(ctx, "1", manager.DownloadRequest{})
	require.NoError(t, err)
	n, err := f.stats.UserDownloadCount(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestInitiateDownloadUnknownVersion(t *testing.T) {
	f := setupDownload(t)
	ctx := context.Background()
	dm := manager.NewDownloadManager(f.versions, f.stats, f.store, manager.DownloadOptions{}, f.logger)

	_, err := dm.InitiateDownload(ctx, "9.9.9", manager.DownloadRequest{})
	assert.ErrorIs(t, err, manager.ErrVersionNotFound)

	stats, err := f.stats.GetDownloadStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalDownloads)
}

func TestInitiateDownloadRecorderFailure(t *testing.T) {
	f := setupDownload(t)
	ctx := context.Background()
	rec := &failingRecorder{}
	dm := manager.NewDownloadManager(f.versions, rec, f.store, manager.DownloadOptions{}, f.logger)

	v, err := f.versions.Create(ctx, newVersion("1.0.0", 1))
	require.NoError(t, err)

	ticket, err := dm.InitiateDownload(ctx, "1.0.0", manager.DownloadRequest{UserAgent: "curl/8"})
	require.NoError(t, err)
	assert.Equal(t, v.DownloadURL, ticket.DownloadURL)
	assert.Equal(t, 1, rec.calls)

	warned := f.logs.FilterMessage("record download statistic failed")
	require.Equal(t, 1, warned.Len())
	assert.Equal(t, zapcore.WarnLevel, warned.All()[0].Level)
}

func TestInitiateDownloadPresigned(t *testing.T) {
	f := setupDownload(t)
	ctx := context.Background()
	dm := manager.NewDownloadManager(f.versions, f.stats, f.store,
		manager.DownloadOptions{UsePresigned: true, PresignExpiry: 10 * time.Minute}, f.logger)

	_, err := f.versions.Create(ctx, newVersion("1.0.0", 1))
	require.NoError(t, err)

	ticket, err := dm.InitiateDownload(ctx, "1.0.0", manager.DownloadRequest{})
	require.NoError(t, err)
	assert.Equal(t, protocol.MethodPresigned, ticket.Method)
	assert.True(t, strings.HasPrefix(ticket.DownloadURL, "https://signed.example.com/software/1.0.0.exe"))
	assert.Contains(t, ticket.DownloadURL, "expires=10m0s")
	assert.Contains(t, ticket.DownloadURL, "filename=1.0.0.exe")

	// 外部登记的版本没有对象 Key，退回直链
	_, err = f.versions.Create(ctx, protocol.NewVersion{VersionNumber: "ext", DownloadURL: "https://mirror/x.zip"})
	require.NoError(t, err)
	ticket, err = dm.InitiateDownload(ctx, "ext", manager.DownloadRequest{})
	require.NoError(t, err)
	assert.Equal(t, protocol.MethodDirect, ticket.Method)
	assert.Equal(t, "https://mirror/x.zip", ticket.DownloadURL)
}

func TestInitiateDownloadSignFailure(t *testing.T) {
	f := setupDownload(t)
	ctx := context.Background()
	f.store.signErr = errors.New("no credentials")
	dm := manager.NewDownloadManager(f.versions, f.stats, f.store, manager.DownloadOptions{UsePresigned: true}, f.logger)

	_, err := f.versions.Create(ctx, newVersion("1.0.0", 1))
	require.NoError(t, err)

	_, err = dm.InitiateDownload(ctx, "1.0.0", manager.DownloadRequest{})
	assert.ErrorIs(t, err, manager.ErrSignFailed)
}
