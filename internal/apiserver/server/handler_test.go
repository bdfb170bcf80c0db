package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health", "/health"},
		{"/api/v1/products", "/api/v1/products"},
		{"/api/v1/products/prd-a1b2c3d4e5f6", "/api/v1/products/{id}"},
		{"/api/v1/products/prd-a1b2c3d4e5f6/enquiry", "/api/v1/products/{id}/enquiry"},
		{"/api/v1/products/me/prd-a1b2c3d4e5f6", "/api/v1/products/me/{id}"},
		{"/api/v1/users", "/api/v1/users"},
		{"/api/v1/users/usr-a1b2c3d4e5f6", "/api/v1/users/{id}"},
		{"/api/v1/users/register", "/api/v1/users/register"},
		{"/api/v1/users/login", "/api/v1/users/login"},
		{"/api/v1/users/me", "/api/v1/users/me"},
		{"/api/v1/users/me/products", "/api/v1/users/me/products"},
		{"/api/v1/users/directory", "/api/v1/users/directory"},
	}
	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestHealth(t *testing.T) {
	h := &Handler{}
	r := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	h.Health(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestCORSPreflight(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight reached inner handler")
	})
	h := corsMiddleware(next)

	r := httptest.NewRequest("OPTIONS", "/api/v1/products", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS origin header")
	}
}
