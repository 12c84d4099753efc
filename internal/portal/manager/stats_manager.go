package manager

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"release-portal/pkg/protocol"
)

// StatsManager 下载事件日志 (只追加) 与汇总
type StatsManager struct {
	db  *sql.DB
	now func() time.Time
}

func NewStatsManager(db *sql.DB) *StatsManager {
	return &StatsManager{db: db, now: time.Now}
}

// WithClock 替换时间源 (测试用)，汇总边界按返回时间所在时区计算
func (sm *StatsManager) WithClock(now func() time.Time) *StatsManager {
	sm.now = now
	return sm
}

// Record 写入一条下载记录
func (sm *StatsManager) Record(ctx context.Context, stat *protocol.DownloadStatistic) error {
	if stat.DownloadDate.IsZero() {
		stat.DownloadDate = sm.now()
	}
	res, err := sm.db.ExecContext(ctx, `
		INSERT INTO download_statistics (version_id, user_id, ip_address, user_agent, os_type, country_code, download_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, stat.VersionID, nullInt64(stat.UserID), stat.IPAddress, stat.UserAgent, stat.OSType,
		nullString(&stat.CountryCode), stat.DownloadDate.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert download statistic failed: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read download statistic id failed: %w", err)
	}
	stat.ID = id
	return nil
}

// Boundaries 今日 / 本周 (周日开始) / 本月 的起点，时区取 now 自带的时区
func Boundaries(now time.Time) (today, week, month time.Time) {
	y, m, d := now.Date()
	loc := now.Location()
	today = time.Date(y, m, d, 0, 0, 0, 0, loc)
	week = time.Date(y, m, d-int(now.Weekday()), 0, 0, 0, 0, loc)
	month = time.Date(y, m, 1, 0, 0, 0, 0, loc)
	return today, week, month
}

// GetDownloadStats 每次都从日志实时统计，四个计数互不依赖，并发查询
func (sm *StatsManager) GetDownloadStats(ctx context.Context) (*protocol.DownloadStats, error) {
	today, week, month := Boundaries(sm.now())

	var stats protocol.DownloadStats
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sm.db.QueryRowContext(gctx, `SELECT COUNT(*) FROM download_statistics`).Scan(&stats.TotalDownloads)
	})
	g.Go(func() error {
		return sm.countSince(gctx, today, &stats.DownloadsToday)
	})
	g.Go(func() error {
		return sm.countSince(gctx, week, &stats.DownloadsThisWeek)
	})
	g.Go(func() error {
		return sm.countSince(gctx, month, &stats.DownloadsThisMonth)
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("count downloads failed: %w", err)
	}
	return &stats, nil
}

func (sm *StatsManager) countSince(ctx context.Context, since time.Time, dst *int64) error {
	return sm.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM download_statistics WHERE download_date >= ?`, since.UnixMilli()).Scan(dst)
}

// ListByVersion 某个版本的全部下载记录 (新到旧)
func (sm *StatsManager) ListByVersion(ctx context.Context, versionID int64) ([]*protocol.DownloadStatistic, error) {
	rows, err := sm.db.QueryContext(ctx, `
		SELECT id, version_id, user_id, ip_address, user_agent, os_type, country_code, download_date
		FROM download_statistics WHERE version_id = ? ORDER BY download_date DESC, id DESC
	`, versionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*protocol.DownloadStatistic{}
	for rows.Next() {
		var (
			s               protocol.DownloadStatistic
			userID          sql.NullInt64
			ip, ua, country sql.NullString
			dateMs          int64
		)
		if err := rows.Scan(&s.ID, &s.VersionID, &userID, &ip, &ua, &s.OSType, &country, &dateMs); err != nil {
			return nil, err
		}
		if userID.Valid {
			s.UserID = &userID.Int64
		}
		s.IPAddress, s.UserAgent, s.CountryCode = ip.String, ua.String, country.String
		s.DownloadDate = time.UnixMilli(dateMs)
		list = append(list, &s)
	}
	return list, rows.Err()
}

// UserDownloadCount 用户自己的下载次数 (用户面板)
func (sm *StatsManager) UserDownloadCount(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := sm.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM download_statistics WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}
