package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"student-market/internal/shared/model"
)

func issueFor(t *testing.T, cfg Config, id string, role model.UserRole) string {
	t.Helper()
	token, err := IssueToken(cfg, id, role)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return token
}

func TestAuthenticated(t *testing.T) {
	cfg := testConfig()

	var gotID *Identity
	handler := Authenticated(cfg, func(w http.ResponseWriter, r *http.Request, id *Identity) {
		gotID = id
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCalled bool
	}{
		{"无凭证", "", http.StatusUnauthorized, false},
		{"非 Bearer", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, false},
		{"空 Bearer", "Bearer ", http.StatusUnauthorized, false},
		{"垃圾令牌", "Bearer not.a.token", http.StatusUnauthorized, false},
		{"合法令牌", "Bearer " + issueFor(t, cfg, "usr-1", model.UserRoleStudent), http.StatusOK, true},
		{"大小写不敏感的 scheme", "bearer " + issueFor(t, cfg, "usr-1", model.UserRoleStudent), http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotID = nil
			r := httptest.NewRequest("GET", "/api/v1/users/me", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantCalled && gotID == nil {
				t.Error("handler not called with identity")
			}
			if !tt.wantCalled && gotID != nil {
				t.Error("handler called despite auth failure")
			}
		})
	}
}

func TestAuthenticatedExpiredToken(t *testing.T) {
	cfg := testConfig()
	expired := Config{JWTSecret: cfg.JWTSecret, AccessTokenTTL: -time.Minute}

	handler := Authenticated(cfg, func(w http.ResponseWriter, r *http.Request, id *Identity) {
		t.Error("handler called with expired token")
	})

	r := httptest.NewRequest("GET", "/api/v1/users/me", nil)
	r.Header.Set("Authorization", "Bearer "+issueFor(t, expired, "usr-1", model.UserRoleStudent))
	w := httptest.NewRecorder()

	handler(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAdminOnly(t *testing.T) {
	cfg := testConfig()

	called := false
	handler := AdminOnly(cfg, func(w http.ResponseWriter, r *http.Request, id *Identity) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCalled bool
	}{
		// 授权门构建在认证门之上：未认证请求拿到 401 而不是 403
		{"未认证", "", http.StatusUnauthorized, false},
		{"student 角色", "Bearer " + issueFor(t, cfg, "usr-1", model.UserRoleStudent), http.StatusForbidden, false},
		{"admin 角色", "Bearer " + issueFor(t, cfg, "usr-2", model.UserRoleAdmin), http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called = false
			r := httptest.NewRequest("GET", "/api/v1/users", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if called != tt.wantCalled {
				t.Errorf("called = %v, want %v", called, tt.wantCalled)
			}
		})
	}
}

func TestIdentityIsAdmin(t *testing.T) {
	if (&Identity{Role: model.UserRoleStudent}).IsAdmin() {
		t.Error("student IsAdmin() = true")
	}
	if !(&Identity{Role: model.UserRoleAdmin}).IsAdmin() {
		t.Error("admin IsAdmin() = false")
	}
	var nilID *Identity
	if nilID.IsAdmin() {
		t.Error("nil identity IsAdmin() = true")
	}
}
