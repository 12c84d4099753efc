package manager_test

import (
	"context"
	"testing"
	"time"

	"release-portal/internal/portal/manager"
	"release-portal/pkg/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundaries(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)

	// 2024-05-15 是周三
	now := time.Date(2024, 5, 15, 13, 45, 0, 0, loc)
	today, week, month := manager.Boundaries(now)
	assert.Equal(t, time.Date(2024, 5, 15, 0, 0, 0, 0, loc), today)
	assert.Equal(t, time.Date(2024, 5, 12, 0, 0, 0, 0, loc), week)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, loc), month)

	// 周日当天即周起点；跨月的周
	now = time.Date(2024, 6, 2, 1, 0, 0, 0, loc)
	today, week, month = manager.Boundaries(now)
	assert.Equal(t, today, week)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, loc), month)

	now = time.Date(2024, 6, 1, 9, 0, 0, 0, loc)
	_, week, _ = manager.Boundaries(now)
	assert.Equal(t, time.Date(2024, 5, 26, 0, 0, 0, 0, loc), week)
}

func TestGetDownloadStatsEmpty(t *testing.T) {
	sm := manager.NewStatsManager(setupTestDB(t))

	stats, err := sm.GetDownloadStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, protocol.DownloadStats{}, *stats)
}

func TestGetDownloadStatsWindows(t *testing.T) {
	conn := setupTestDB(t)
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	sm := manager.NewStatsManager(conn).WithClock(func() time.Time { return now })
	vm := manager.NewVersionManager(conn)
	ctx := context.Background()

	v, err := vm.Create(ctx, newVersion("1.0.0", 1))
	require.NoError(t, err)

	dates := []time.Time{
		now.Add(-time.Hour),                          // 今天
		time.Date(2024, 5, 13, 8, 0, 0, 0, time.UTC), // 本周
		time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC),  // 本月
		time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC), // 更早
	}
	for _, d := range dates {
		require.NoError(t, sm.Record(ctx, &protocol.DownloadStatistic{VersionID: v.ID, OSType: "Linux", DownloadDate: d}))
	}
	// 不带日期时取当前时间
	stat := &protocol.DownloadStatistic{VersionID: v.ID, OSType: "Windows"}
	require.NoError(t, sm.Record(ctx, stat))
	assert.Equal(t, now, stat.DownloadDate)
	assert.NotZero(t, stat.ID)

	stats, err := sm.GetDownloadStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.TotalDownloads)
	assert.Equal(t, int64(2), stats.DownloadsToday)
	assert.Equal(t, int64(3), stats.DownloadsThisWeek)
	assert.Equal(t, int64(4), stats.DownloadsThisMonth)

	events, err := sm.ListByVersion(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, events, 5)
	assert.Equal(t, "Windows", events[0].OSType)
	assert.Nil(t, events[0].UserID)
}

func TestRecordRequiresExistingVersion(t *testing.T) {
	sm := manager.NewStatsManager(setupTestDB(t))

	err := sm.Record(context.Background(), &protocol.DownloadStatistic{VersionID: 12345, OSType: "Linux"})
	assert.Error(t, err)
}
