package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"release-portal/pkg/code"
	"release-portal/pkg/e"
	"release-portal/pkg/protocol"
	"release-portal/pkg/response"
)

type registerReq struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResp struct {
	Token string         `json:"token"`
	User  *protocol.User `json:"user"`
}

// Register 注册
// POST /api/auth/register
func (h *ServerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, e.New(code.InvalidJSON, "JSON解析失败", err))
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Username) == "" || len(req.Password) < 6 {
		response.Error(w, e.New(code.ParamError, "邮箱、用户名不能为空，密码至少 6 位", nil))
		return
	}

	u, err := h.userMgr.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		response.Error(w, toCodeError(err, code.DatabaseError))
		return
	}
	h.respondToken(w, u)
}

// Login 登录
// POST /api/auth/login
func (h *ServerHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, e.New(code.InvalidJSON, "JSON解析失败", err))
		return
	}

	u, err := h.userMgr.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(w, toCodeError(err, code.DatabaseError))
		return
	}
	h.respondToken(w, u)
}

func (h *ServerHandler) respondToken(w http.ResponseWriter, u *protocol.User) {
	token, err := h.issuer.Issue(u)
	if err != nil {
		response.Error(w, e.New(code.ServerError, "生成 Token 失败", err))
		return
	}
	response.Success(w, tokenResp{Token: token, User: u})
}
