package manager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"release-portal/pkg/protocol"
)

var (
	ErrVersionNotFound = errors.New("version not found")
	ErrVersionExists   = errors.New("version already exists")
	ErrInvalidRef      = errors.New("invalid version reference")
	ErrInvalidVersion  = errors.New("invalid version")
	ErrPostNotFound    = errors.New("release post not found")
)

var numericRef = regexp.MustCompile(`^\d+$`)

// queryer *sql.DB 和 *sql.Tx 的公共部分
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// VersionManager 软件版本目录 (唯一拥有 software_versions 表的写权限)
type VersionManager struct {
	db  *sql.DB
	now func() time.Time
}

func NewVersionManager(db *sql.DB) *VersionManager {
	return &VersionManager{db: db, now: time.Now}
}

// WithClock 替换时间源 (测试用)
func (vm *VersionManager) WithClock(now func() time.Time) *VersionManager {
	vm.now = now
	return vm
}

// ParseRef 解析版本引用：纯数字按 ID 查，否则按版本号查
func ParseRef(ref string) (id int64, label string, err error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, "", ErrInvalidRef
	}
	if numericRef.MatchString(ref) {
		id, err := strconv.ParseInt(ref, 10, 64)
		if err != nil {
			// 超出 int64
			return 0, "", ErrInvalidRef
		}
		return id, "", nil
	}
	return 0, ref, nil
}

// Create 新增版本并设为唯一的最新版本
// 插入和降级其他版本在同一个事务中完成
func (vm *VersionManager) Create(ctx context.Context, in protocol.NewVersion) (*protocol.SoftwareVersion, error) {
	label := strings.TrimSpace(in.VersionNumber)
	if label == "" || in.DownloadURL == "" || in.SizeBytes < 0 {
		return nil, ErrInvalidVersion
	}

	tx, err := vm.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// 1. 版本号唯一
	if _, err := vm.getByLabel(ctx, tx, label); err == nil {
		return nil, ErrVersionExists
	} else if !errors.Is(err, ErrVersionNotFound) {
		return nil, err
	}

	// 2. 关联文章必须存在
	if in.ReleasePostID != nil {
		var postID int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM posts WHERE id = ?`, *in.ReleasePostID).Scan(&postID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		if err != nil {
			return nil, err
		}
	}

	// 3. 插入 (is_latest = 1)
	res, err := tx.ExecContext(ctx, `
		INSERT INTO software_versions
			(version_number, download_url, object_key, checksum, size_bytes, release_date, is_latest, min_requirements, changelog, release_post_id)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, ?)
	`, label, in.DownloadURL, in.ObjectKey, in.Checksum, in.SizeBytes, vm.now().UnixMilli(),
		nullString(in.MinRequirements), nullString(in.Changelog), nullInt64(in.ReleasePostID))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrVersionExists
		}
		return nil, fmt.Errorf("insert version failed: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	// 4. 其他版本全部取消 latest
	if _, err := tx.ExecContext(ctx, `UPDATE software_versions SET is_latest = 0 WHERE id <> ? AND is_latest = 1`, id); err != nil {
		return nil, fmt.Errorf("demote versions failed: %w", err)
	}

	v, err := vm.getByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return v, nil
}

// SetLatest 将指定版本设为唯一的最新版本
func (vm *VersionManager) SetLatest(ctx context.Context, ref string) (*protocol.SoftwareVersion, error) {
	tx, err := vm.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	target, err := vm.resolve(ctx, tx, ref)
	if err != nil {
		return nil, err
	}

	// 单条语句同时完成降级和提升
	if _, err := tx.ExecContext(ctx, `UPDATE software_versions SET is_latest = CASE WHEN id = ? THEN 1 ELSE 0 END`, target.ID); err != nil {
		return nil, fmt.Errorf("set latest failed: %w", err)
	}

	v, err := vm.getByID(ctx, tx, target.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return v, nil
}

// Delete 删除版本 (先删下载统计，再删版本)，返回被删除的版本供调用方清理对象存储
// 两步任一失败则整体回滚
func (vm *VersionManager) Delete(ctx context.Context, ref string) (*protocol.SoftwareVersion, error) {
	tx, err := vm.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	v, err := vm.resolve(ctx, tx, ref)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM download_statistics WHERE version_id = ?`, v.ID); err != nil {
		return nil, fmt.Errorf("delete download statistics failed: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM software_versions WHERE id = ?`, v.ID); err != nil {
		return nil, fmt.Errorf("delete version failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return v, nil
}

// List 所有版本 (按发布时间倒序)，附带下载次数和关联文章
func (vm *VersionManager) List(ctx context.Context) ([]*protocol.SoftwareVersion, error) {
	rows, err := vm.db.QueryContext(ctx, selectVersion+` ORDER BY v.release_date DESC, v.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*protocol.SoftwareVersion{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// Resolve 按 ID 或版本号查找
func (vm *VersionManager) Resolve(ctx context.Context, ref string) (*protocol.SoftwareVersion, error) {
	return vm.resolve(ctx, vm.db, ref)
}

func (vm *VersionManager) GetByID(ctx context.Context, id int64) (*protocol.SoftwareVersion, error) {
	return vm.getByID(ctx, vm.db, id)
}

func (vm *VersionManager) GetByLabel(ctx context.Context, label string) (*protocol.SoftwareVersion, error) {
	return vm.getByLabel(ctx, vm.db, strings.TrimSpace(label))
}

// ObjectKeys 目录中引用的全部对象 Key (孤儿文件扫描用)
func (vm *VersionManager) ObjectKeys(ctx context.Context) (map[string]bool, error) {
	rows, err := vm.db.QueryContext(ctx, `SELECT object_key FROM software_versions WHERE object_key <> ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys[key] = true
	}
	return keys, rows.Err()
}

func (vm *VersionManager) resolve(ctx context.Context, q queryer, ref string) (*protocol.SoftwareVersion, error) {
	id, label, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}
	if label == "" {
		return vm.getByID(ctx, q, id)
	}
	return vm.getByLabel(ctx, q, label)
}

func (vm *VersionManager) getByID(ctx context.Context, q queryer, id int64) (*protocol.SoftwareVersion, error) {
	return queryOne(q.QueryRowContext(ctx, selectVersion+` WHERE v.id = ?`, id))
}

func (vm *VersionManager) getByLabel(ctx context.Context, q queryer, label string) (*protocol.SoftwareVersion, error) {
	return queryOne(q.QueryRowContext(ctx, selectVersion+` WHERE v.version_number = ?`, label))
}

const selectVersion = `
	SELECT v.id, v.version_number, v.download_url, v.object_key, v.checksum, v.size_bytes, v.release_date,
		v.is_latest, v.min_requirements, v.changelog, v.release_post_id,
		p.id, p.title, p.slug,
		(SELECT COUNT(*) FROM download_statistics d WHERE d.version_id = v.id)
	FROM software_versions v
	LEFT JOIN posts p ON p.id = v.release_post_id`

type scanner interface {
	Scan(dest ...any) error
}

func queryOne(row *sql.Row) (*protocol.SoftwareVersion, error) {
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVersionNotFound
	}
	return v, err
}

func scanVersion(s scanner) (*protocol.SoftwareVersion, error) {
	var (
		v                   protocol.SoftwareVersion
		size, releaseMs     int64
		minReq, changelog   sql.NullString
		postRef, postID     sql.NullInt64
		postTitle, postSlug sql.NullString
	)
	err := s.Scan(&v.ID, &v.VersionNumber, &v.DownloadURL, &v.ObjectKey, &v.Checksum, &size, &releaseMs,
		&v.IsLatest, &minReq, &changelog, &postRef,
		&postID, &postTitle, &postSlug,
		&v.DownloadCount)
	if err != nil {
		return nil, err
	}

	v.SizeBytes = protocol.SizeBytes(size)
	v.ReleaseDate = time.UnixMilli(releaseMs)
	if minReq.Valid {
		v.MinRequirements = &minReq.String
	}
	if changelog.Valid {
		v.Changelog = &changelog.String
	}
	if postRef.Valid {
		v.ReleasePostID = &postRef.Int64
	}
	if postID.Valid {
		v.ReleasePost = &protocol.PostRef{ID: postID.Int64, Title: postTitle.String, Slug: postSlug.String}
	}
	return &v, nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt64(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
