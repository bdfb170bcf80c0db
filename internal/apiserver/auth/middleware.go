package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Authed 经过认证的处理函数
// 身份作为参数显式传入，不通过 request context 传递
type Authed func(w http.ResponseWriter, r *http.Request, id *Identity)

// Authenticated 认证门：提取 Bearer 凭证并验证
//
// 失败时以 401 短路，受保护的 handler 不会被调用；
// 成功时把解析出的身份显式传给 next。
func Authenticated(cfg Config, next Authed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "please provide a bearer token")
			return
		}

		id, err := VerifyToken(cfg, token)
		if err != nil {
			switch err {
			case ErrTokenExpired:
				writeAuthError(w, http.StatusUnauthorized, "token expired, please log in again")
			default:
				writeAuthError(w, http.StatusUnauthorized, "invalid token")
			}
			return
		}

		next(w, r, id)
	}
}

// AdminOnly 授权门：要求 admin 角色
//
// 内部先经过 Authenticated，授权检查不可能脱离认证单独存在；
// 未认证请求得到 401 而非 403。
func AdminOnly(cfg Config, next Authed) http.HandlerFunc {
	return Authenticated(cfg, func(w http.ResponseWriter, r *http.Request, id *Identity) {
		if !id.IsAdmin() {
			writeAuthError(w, http.StatusForbidden, "admin only endpoint")
			return
		}
		next(w, r, id)
	})
}

// bearerToken 从 Authorization 头提取 Bearer 凭证
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrTokenMissing
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", ErrTokenMissing
	}
	return parts[1], nil
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
