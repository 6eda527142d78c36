package httpapi

import (
	"net/http"

	"leadhub-data/internal/service"

	"go.uber.org/zap"
)

// AuthHandler email登录
type AuthHandler struct {
	auth   *service.AuthService
	logger *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// RequestLogin POST /auth/api/v1/login/request
// 签发登录链接令牌。邮件投递由外部协作方完成，这里直接返回令牌。
func (h *AuthHandler) RequestLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("Invalid JSON body"))
		return
	}

	token, err := h.auth.RequestLoginLink(r.Context(), body.Email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"loginToken": token}))
}

// VerifyLogin POST /auth/api/v1/login/verify
func (h *AuthHandler) VerifyLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("Invalid JSON body"))
		return
	}

	session, err := h.auth.VerifyLoginLink(r.Context(), body.Token)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(session))
}

// Logout POST /auth/api/v1/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), bearerToken(r)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(true))
}
