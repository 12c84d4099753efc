package manager_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"release-portal/internal/portal/db"
	"release-portal/internal/portal/manager"
	"release-portal/pkg/storage"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	manager.PasswordCost = bcrypt.MinCost
}

// setupTestDB 内存数据库 (单连接) 并建表
func setupTestDB(t *testing.T) *sql.DB {
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// stepClock 每次调用前进 1 秒
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Second)
		return cur
	}
}

// fakeStore 内存对象存储，可注入失败
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	opts    map[string]storage.PutOptions
	puts    int
	deletes []string

	putErr    error
	deleteErr error
	signErr   error
	listErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, opts: map[string]storage.PutOptions{}}
}

func (f *fakeStore) Put(ctx context.Context, key string, data io.Reader, size int64, opts storage.PutOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.putErr != nil {
		return "", f.putErr
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	if int64(len(b)) != size {
		return "", errors.New("size mismatch")
	}
	f.objects[key] = b
	f.opts[key] = opts
	return "https://cdn.example.com/" + key, nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, key)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) Sign(ctx context.Context, key string, expiry time.Duration, fileName string) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return "https://signed.example.com/" + key + "?expires=" + expiry.String() + "&filename=" + fileName, nil
}

func (f *fakeStore) ListFiles(ctx context.Context, prefix string) ([]storage.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var files []storage.FileInfo
	for k, v := range f.objects {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			files = append(files, storage.FileInfo{Name: k, Size: int64(len(v))})
		}
	}
	return files, nil
}

func countRows(t *testing.T, conn *sql.DB, query string, args ...any) int {
	var n int
	require.NoError(t, conn.QueryRow(query, args...).Scan(&n))
	return n
}
