package middleware

import (
	"net/http"
	"strings"
	"time"
)

// 长连接 / 流式传输不做超时限制
var timeoutWhitelist = []string{
	"/api/ws",
	"/api/software/upload",
	"/download/",
}

// TimeoutMiddleware 针对 RESTful API 设置超时
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if next == nil {
			panic("TimeoutMiddleware: next handler is nil")
		}
		timeoutHandler := http.TimeoutHandler(next, timeout, `{"code":10001,"msg":"request timeout","data":null}`)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range timeoutWhitelist {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}
			timeoutHandler.ServeHTTP(w, r)
		})
	}
}
