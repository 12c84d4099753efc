package auth

import (
	"testing"
	"time"

	"release-portal/pkg/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Hour)

	token, err := ti.Issue(&protocol.User{ID: 7, Username: "alice", IsAdmin: true})
	require.NoError(t, err)

	claims, err := ti.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.IsAdmin)
}

func TestParseRejectsBadTokens(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Hour)
	token, err := ti.Issue(&protocol.User{ID: 1})
	require.NoError(t, err)

	_, err = NewTokenIssuer("other", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ti.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// 过期
	ti.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = ti.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
