package middleware

import (
	"context"
	"net/http"
	"strings"

	"release-portal/internal/portal/auth"
	"release-portal/pkg/code"
	"release-portal/pkg/e"
	"release-portal/pkg/protocol"
	"release-portal/pkg/response"
)

// UserLookup 按 ID 读取当前用户，Token 签发后权限或账号可能已变化
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*protocol.User, error)
}

type ctxKey int

const claimsKey ctxKey = iota

// ClaimsFromContext 取出当前登录用户，匿名请求返回 nil
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey).(*auth.Claims)
	return c
}

// WithClaims 测试和内部调用使用
func WithClaims(ctx context.Context, c *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// Authenticate 解析 Token 并写入 context
// 没有或无效的 Token 按匿名处理，由 RequireUser / RequireAdmin 决定是否拒绝
// users 不为空时以数据库中的管理员标记为准，用户已删除则按匿名处理
func Authenticate(issuer *auth.TokenIssuer, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)

			// WebSocket 握手无法带 Header，改用 Query 参数
			if token == "" && strings.HasPrefix(r.URL.Path, "/api/ws") {
				token = r.URL.Query().Get("token")
			}

			if token != "" {
				if claims, err := issuer.Parse(token); err == nil && refresh(r.Context(), claims, users) {
					r = r.WithContext(WithClaims(r.Context(), claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func refresh(ctx context.Context, claims *auth.Claims, users UserLookup) bool {
	if users == nil {
		return true
	}
	u, err := users.GetByID(ctx, claims.UserID)
	if err != nil {
		return false
	}
	claims.IsAdmin = u.IsAdmin
	claims.Username = u.Username
	return true
}

// RequireUser 需要登录
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ClaimsFromContext(r.Context()) == nil {
			response.Error(w, e.Code(code.Unauthorized, nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin 未登录 401，非管理员 403
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			response.Error(w, e.Code(code.Unauthorized, nil))
			return
		}
		if !claims.IsAdmin {
			response.Error(w, e.Code(code.Forbidden, nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// 格式: "Bearer <token>"
func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
