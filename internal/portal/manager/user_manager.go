package manager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"release-portal/pkg/protocol"
)

var (
	ErrUserExists         = errors.New("email or username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidUserInput   = errors.New("invalid user input")
)

// PasswordCost bcrypt 代价
var PasswordCost = 12

type UserManager struct {
	db *sql.DB
}

func NewUserManager(db *sql.DB) *UserManager {
	return &UserManager{db: db}
}

// Register 注册普通用户
func (um *UserManager) Register(ctx context.Context, email, username, password string) (*protocol.User, error) {
	return um.create(ctx, email, username, password, false)
}

func (um *UserManager) create(ctx context.Context, email, username, password string, isAdmin bool) (*protocol.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)
	if email == "" || username == "" || password == "" {
		return nil, fmt.Errorf("%w: missing required fields", ErrInvalidUserInput)
	}

	var existing int64
	err := um.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email = ? OR username = ?`, email, username).Scan(&existing)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		// bcrypt 只接受 72 字节以内的密码
		return nil, fmt.Errorf("%w: %w", ErrInvalidUserInput, err)
	}
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}

	now := time.Now().Unix()
	res, err := um.db.ExecContext(ctx,
		`INSERT INTO users (email, username, password_hash, is_admin, created_at) VALUES (?, ?, ?, ?, ?)`,
		email, username, string(hash), isAdmin, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	id, _ := res.LastInsertId()
	return &protocol.User{ID: id, Email: email, Username: username, IsAdmin: isAdmin, CreatedAt: now}, nil
}

// Authenticate 邮箱 + 密码登录
func (um *UserManager) Authenticate(ctx context.Context, email, password string) (*protocol.User, error) {
	var (
		u    protocol.User
		hash string
	)
	err := um.db.QueryRowContext(ctx,
		`SELECT id, email, username, password_hash, is_admin, created_at FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email))).Scan(&u.ID, &u.Email, &u.Username, &hash, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

func (um *UserManager) GetByID(ctx context.Context, id int64) (*protocol.User, error) {
	var u protocol.User
	err := um.db.QueryRowContext(ctx,
		`SELECT id, email, username, is_admin, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Email, &u.Username, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// EnsureAdmin 没有任何管理员时创建初始管理员，返回是否新建
func (um *UserManager) EnsureAdmin(ctx context.Context, email, username, password string) (bool, error) {
	var count int64
	if err := um.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE is_admin = 1`).Scan(&count); err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if _, err := um.create(ctx, email, username, password, true); err != nil {
		return false, err
	}
	return true, nil
}
