package handler

import (
	"encoding/json"
	"net/http"
)

// AuthHandler は認証済みユーザー情報のHTTPハンドラー。
// ユーザーとセッションの管理は外部のIDプロバイダーが担うため、
// ここではセッションから解決したユーザー情報の参照のみを提供する。
type AuthHandler struct {
	resolver CallerResolver
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(resolver CallerResolver) *AuthHandler {
	return &AuthHandler{resolver: resolver}
}

// GetCurrentUser は現在のセッションのユーザー情報を返す。
// GET /api/auth/user
func (h *AuthHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := resolveCaller(w, r, h.resolver)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(caller))
}
