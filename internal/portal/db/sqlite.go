package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// dsnParams:
//   - busy_timeout: 并发写时等待而不是立即 SQLITE_BUSY
//   - foreign_keys: 统计记录必须引用存在的版本 (不做级联删除)
//   - _txlock=immediate: BEGIN 立即拿写锁，"切换最新版本" 的读改写不会交错
const dsnParams = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"

// Open 打开数据库并建表
// path 为 ":memory:" 时只保留一个连接 (每个连接都是独立的内存库)
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?"+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("open db failed: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := InitTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitTables 建表 (幂等)
func InitTables(db *sql.DB) error {
	sqls := []string{
		// 用户表
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			is_admin BOOLEAN NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);`,

		// 文章表 (版本的发布公告，内容由博客模块维护，这里只需要标题和 slug)
		`CREATE TABLE IF NOT EXISTS posts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			created_at INTEGER NOT NULL DEFAULT 0
		);`,

		// 软件版本表
		// size_bytes 为 64 位整数，对外序列化为字符串
		`CREATE TABLE IF NOT EXISTS software_versions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version_number TEXT NOT NULL UNIQUE,
			download_url TEXT NOT NULL,
			object_key TEXT NOT NULL DEFAULT '',
			checksum TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			release_date INTEGER NOT NULL,
			is_latest BOOLEAN NOT NULL DEFAULT 0,
			min_requirements TEXT,
			changelog TEXT,
			release_post_id INTEGER REFERENCES posts(id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_versions_release_date ON software_versions (release_date DESC);`,

		// 下载统计 (只追加)
		`CREATE TABLE IF NOT EXISTS download_statistics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version_id INTEGER NOT NULL REFERENCES software_versions(id),
			user_id INTEGER REFERENCES users(id),
			ip_address TEXT,
			user_agent TEXT,
			os_type TEXT NOT NULL,
			country_code TEXT,
			download_date INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_downloads_version ON download_statistics (version_id);`,
		`CREATE INDEX IF NOT EXISTS idx_downloads_date ON download_statistics (download_date);`,
		`CREATE INDEX IF NOT EXISTS idx_downloads_user ON download_statistics (user_id);`,

		// 操作日志表
		`CREATE TABLE IF NOT EXISTS sys_op_logs (id INTEGER PRIMARY KEY AUTOINCREMENT, operator TEXT, action TEXT, target_type TEXT, target_name TEXT, detail TEXT, status TEXT, create_time INTEGER);`,
	}

	for _, sqlStmt := range sqls {
		if _, err := db.Exec(sqlStmt); err != nil {
			return fmt.Errorf("init table failed: %w\nSQL: %s", err, sqlStmt)
		}
	}
	return nil
}
