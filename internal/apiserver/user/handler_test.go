package user

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"student-market/internal/apiserver/auth"
	"student-market/internal/shared/model"
	"student-market/internal/shared/storage"
)

// fakeStore 内存版 Store
type fakeStore struct {
	users    map[string]*model.User
	products []*model.Product
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]*model.User{}}
}

func (f *fakeStore) CreateUser(_ context.Context, u *model.User) error {
	for _, existing := range f.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return storage.ErrDuplicate
		}
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GetUsersByIDs(_ context.Context, ids []string) ([]*model.User, error) {
	var out []*model.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeStore) ListUsers(_ context.Context) ([]*model.User, error) {
	out := []*model.User{}
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeStore) ReplaceUser(_ context.Context, u *model.User) error {
	if _, ok := f.users[u.ID]; !ok {
		return storage.ErrNotFound
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeStore) DeleteUser(_ context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeStore) ListProducts(_ context.Context, q storage.ProductQuery) ([]*model.Product, error) {
	out := []*model.Product{}
	for _, p := range f.products {
		if q.Seller == "" || p.Seller == q.Seller {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakeImages 记录上传的图片托管桩
type fakeImages struct {
	uploads int
}

func (f *fakeImages) UploadImage(_ context.Context, folder, ext, _ string, _ []byte) (string, string, error) {
	f.uploads++
	key := fmt.Sprintf("%s/upload-%d%s", folder, f.uploads, ext)
	return "http://host/bucket/" + key, key, nil
}

func testHandler() (*Handler, *fakeStore, *fakeImages) {
	store := newFakeStore()
	images := &fakeImages{}
	cfg := auth.Config{JWTSecret: "test-secret", AccessTokenTTL: time.Hour}
	return NewHandler(store, images, cfg), store, images
}

func seedUser(store *fakeStore, id, username, email, password string) *model.User {
	hash, _ := auth.HashPassword(password)
	u := &model.User{
		ID:           id,
		Username:     username,
		Email:        email,
		Role:         model.UserRoleStudent,
		PasswordHash: hash,
		Location:     "Lagos",
		Avatar:       "http://host/bucket/users/" + id + ".png",
		AvatarKey:    "users/" + id + ".png",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	store.users[id] = u
	return u
}

var pngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

func registerBody(t *testing.T, fields map[string]string, withAvatar bool) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if withAvatar {
		fw, err := w.CreateFormFile("avatar", "avatar.png")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write(pngBytes)
	}
	for k, v := range fields {
		w.WriteField(k, v)
	}
	w.Close()
	return body, w.FormDataContentType()
}

func TestRegister(t *testing.T) {
	h, store, images := testHandler()

	fields := map[string]string{
		"username": "kenneth",
		"email":    "kenneth@example.com",
		"password": "hunter22",
		"location": "Lagos",
	}

	body, contentType := registerBody(t, fields, true)
	r := httptest.NewRequest("POST", "/api/v1/users/register", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	h.Register(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		User        *model.User `json:"user"`
		AccessToken string      `json:"access_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.User.Role != model.UserRoleStudent {
		t.Errorf("Role = %q, want student", resp.User.Role)
	}
	if resp.AccessToken == "" {
		t.Error("no access token issued")
	}
	if images.uploads != 1 {
		t.Errorf("uploads = %d, want 1", images.uploads)
	}
	// 密码哈希绝不出现在响应里
	if strings.Contains(w.Body.String(), "password") {
		t.Error("response leaks password field")
	}
	if len(store.users) != 1 {
		t.Errorf("stored users = %d", len(store.users))
	}

	// 重复注册 → 409
	body, contentType = registerBody(t, fields, true)
	r = httptest.NewRequest("POST", "/api/v1/users/register", body)
	r.Header.Set("Content-Type", contentType)
	w = httptest.NewRecorder()
	h.Register(w, r)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", w.Code)
	}
}

func TestRegisterRequiresAvatar(t *testing.T) {
	h, _, _ := testHandler()

	body, contentType := registerBody(t, map[string]string{
		"username": "x", "email": "x@y.co", "password": "p", "location": "L",
	}, false)
	r := httptest.NewRequest("POST", "/api/v1/users/register", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	h.Register(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestLogin(t *testing.T) {
	h, store, _ := testHandler()
	seedUser(store, "usr-1", "kenneth", "kenneth@example.com", "hunter22")

	login := func(email, password string) *httptest.ResponseRecorder {
		payload, _ := json.Marshal(map[string]string{"email": email, "password": password})
		r := httptest.NewRequest("POST", "/api/v1/users/login", bytes.NewReader(payload))
		w := httptest.NewRecorder()
		h.Login(w, r)
		return w
	}

	t.Run("成功", func(t *testing.T) {
		w := login("kenneth@example.com", "hunter22")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), "access_token") {
			t.Error("no access_token in response")
		}
	})

	// 密码错误与账号不存在：状态码和消息完全一致
	t.Run("失败不可区分", func(t *testing.T) {
		wrongPass := login("kenneth@example.com", "wrong")
		noAccount := login("nobody@example.com", "hunter22")

		if wrongPass.Code != http.StatusUnauthorized || noAccount.Code != http.StatusUnauthorized {
			t.Fatalf("statuses = %d, %d, want 401, 401", wrongPass.Code, noAccount.Code)
		}
		if wrongPass.Body.String() != noAccount.Body.String() {
			t.Errorf("responses differ: %q vs %q", wrongPass.Body.String(), noAccount.Body.String())
		}
	})
}

func TestGetUserNotFound(t *testing.T) {
	h, _, _ := testHandler()

	r := httptest.NewRequest("GET", "/api/v1/users/usr-missing", nil)
	r.SetPathValue("id", "usr-missing")
	w := httptest.NewRecorder()

	h.Get(w, r)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	// 404 消息包含资源 ID
	if !strings.Contains(w.Body.String(), "usr-missing") {
		t.Errorf("404 message does not name the id: %s", w.Body.String())
	}
}

func TestDeleteUserNotFound(t *testing.T) {
	h, _, _ := testHandler()

	r := httptest.NewRequest("DELETE", "/api/v1/users/usr-missing", nil)
	r.SetPathValue("id", "usr-missing")
	w := httptest.NewRecorder()

	h.Delete(w, r, &auth.Identity{ID: "usr-admin", Role: model.UserRoleAdmin})

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 (not 500)", w.Code)
	}
}

func TestDirectoryPublicFieldsOnly(t *testing.T) {
	h, store, _ := testHandler()
	seedUser(store, "usr-1", "kenneth", "kenneth@example.com", "hunter22")

	r := httptest.NewRequest("GET", "/api/v1/users/directory", nil)
	w := httptest.NewRecorder()
	h.Directory(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "kenneth@example.com") {
		t.Error("directory missing email")
	}
	for _, forbidden := range []string{"avatar", "location", "role", "password"} {
		if strings.Contains(body, forbidden) {
			t.Errorf("directory leaks %q field", forbidden)
		}
	}
}

func TestMyProducts(t *testing.T) {
	h, store, _ := testHandler()
	seedUser(store, "usr-1", "kenneth", "kenneth@example.com", "hunter22")
	store.products = []*model.Product{
		{ID: "prd-1", Seller: "usr-1"},
		{ID: "prd-2", Seller: "usr-2"},
	}

	r := httptest.NewRequest("GET", "/api/v1/users/me/products", nil)
	w := httptest.NewRecorder()
	h.MyProducts(w, r, &auth.Identity{ID: "usr-1", Role: model.UserRoleStudent})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var products []*model.Product
	if err := json.Unmarshal(w.Body.Bytes(), &products); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(products) != 1 || products[0].ID != "prd-1" {
		t.Errorf("products = %+v, want only prd-1", products)
	}
}

func TestUpdateMePreservesAvatarAndPassword(t *testing.T) {
	h, store, _ := testHandler()
	u := seedUser(store, "usr-1", "kenneth", "kenneth@example.com", "hunter22")
	originalHash := u.PasswordHash
	originalAvatar := u.Avatar

	body, contentType := registerBody(t, map[string]string{"location": "Abuja"}, false)
	r := httptest.NewRequest("PUT", "/api/v1/users/me", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	h.UpdateMe(w, r, &auth.Identity{ID: "usr-1", Role: model.UserRoleStudent})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	got := store.users["usr-1"]
	if got.Location != "Abuja" {
		t.Errorf("Location = %q, want Abuja", got.Location)
	}
	if got.Avatar != originalAvatar {
		t.Errorf("avatar changed without new upload")
	}
	if got.PasswordHash != originalHash {
		t.Errorf("password hash changed without new password")
	}
}

func TestUpdateMeNewAvatar(t *testing.T) {
	h, store, images := testHandler()
	seedUser(store, "usr-1", "kenneth", "kenneth@example.com", "hunter22")

	body, contentType := registerBody(t, nil, true)
	r := httptest.NewRequest("PUT", "/api/v1/users/me", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	h.UpdateMe(w, r, &auth.Identity{ID: "usr-1", Role: model.UserRoleStudent})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if images.uploads != 1 {
		t.Errorf("uploads = %d, want 1", images.uploads)
	}
	got := store.users["usr-1"]
	if got.AvatarKey != "users/upload-1.png" {
		t.Errorf("AvatarKey = %q", got.AvatarKey)
	}
}
