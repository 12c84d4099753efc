package utils

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP 获取请求的真实 IP
// 1. 识别 X-Forwarded-For (防止 Nginx/CDN 代理后全是内网 IP)
// 2. 尝试 X-Real-IP
// 3. 回退到 RemoteAddr，去除端口号，并将 IPv6 Loopback 转为 IPv4 习惯
func GetClientIP(r *http.Request) string {
	xForwardedFor := r.Header.Get("X-Forwarded-For")
	if xForwardedFor != "" {
		// X-Forwarded-For 可能包含多个 IP (client, proxy1, proxy2...)，取第一个
		parts := strings.Split(xForwardedFor, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	xRealIP := r.Header.Get("X-Real-IP")
	if xRealIP != "" {
		return strings.TrimSpace(xRealIP)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// 如果 RemoteAddr 本身没有端口（极少见），直接返回
		ip = r.RemoteAddr
	}

	if ip == "::1" {
		return "127.0.0.1"
	}

	return ip
}

// GetCountryCode 读取 CDN 注入的国家代码 (Cloudflare: CF-IPCountry)，没有则返回空
func GetCountryCode(r *http.Request) string {
	cc := strings.ToUpper(strings.TrimSpace(r.Header.Get("CF-IPCountry")))
	// XX: 未知, T1: Tor
	if cc == "" || cc == "XX" || cc == "T1" {
		return ""
	}
	return cc
}
