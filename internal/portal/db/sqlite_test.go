package db_test

import (
	"testing"

	"release-portal/internal/portal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesTables(t *testing.T) {
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	for _, table := range []string{"users", "posts", "software_versions", "download_statistics", "sys_op_logs"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		assert.NoError(t, err, table)
	}

	// 幂等
	assert.NoError(t, db.InitTables(conn))
}

func TestForeignKeysEnforced(t *testing.T) {
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Exec(`INSERT INTO download_statistics (version_id, os_type, download_date) VALUES (42, 'Linux', 0)`)
	assert.Error(t, err, "statistic must reference an existing version")
}
