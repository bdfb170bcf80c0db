// Package user 用户领域 - 注册、登录、档案管理
package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"student-market/internal/apiserver/auth"
	"student-market/internal/apiserver/upload"
	"student-market/internal/shared/model"
	"student-market/internal/shared/storage"
)

// Store 用户领域所需的存储接口
type Store interface {
	storage.UserStore
	ListProducts(ctx context.Context, q storage.ProductQuery) ([]*model.Product, error)
}

// ImageHost 头像托管接口
type ImageHost interface {
	UploadImage(ctx context.Context, folder, ext, contentType string, data []byte) (url, key string, err error)
}

// Handler 用户领域 HTTP 处理器
type Handler struct {
	store  Store
	images ImageHost
	cfg    auth.Config
}

// NewHandler 创建用户处理器
func NewHandler(store Store, images ImageHost, cfg auth.Config) *Handler {
	return &Handler{store: store, images: images, cfg: cfg}
}

// RegisterRoutes 注册用户相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/users/register", h.Register)
	mux.HandleFunc("POST /api/v1/users/login", h.Login)
	mux.HandleFunc("POST /api/v1/users/logout", auth.Authenticated(h.cfg, h.Logout))

	mux.HandleFunc("GET /api/v1/users/me", auth.Authenticated(h.cfg, h.Me))
	mux.HandleFunc("PUT /api/v1/users/me", auth.Authenticated(h.cfg, h.UpdateMe))
	mux.HandleFunc("DELETE /api/v1/users/me", auth.Authenticated(h.cfg, h.DeleteMe))
	mux.HandleFunc("GET /api/v1/users/me/products", auth.Authenticated(h.cfg, h.MyProducts))

	mux.HandleFunc("GET /api/v1/users/directory", h.Directory)
	mux.HandleFunc("GET /api/v1/users", auth.AdminOnly(h.cfg, h.List))
	mux.HandleFunc("GET /api/v1/users/{id}", h.Get)
	mux.HandleFunc("PUT /api/v1/users/{id}", auth.AdminOnly(h.cfg, h.Update))
	mux.HandleFunc("DELETE /api/v1/users/{id}", auth.AdminOnly(h.cfg, h.Delete))
}

// ============================================================================
// 请求/响应类型
// ============================================================================

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User        *model.User `json:"user"`
	AccessToken string      `json:"access_token"`
}

// ============================================================================
// Handlers
// ============================================================================

// Register 用户注册
// POST /api/v1/users/register（multipart，avatar 字段为头像文件）
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	img, err := upload.ReadImage(r, "avatar")
	if err != nil {
		if errors.Is(err, upload.ErrNoFile) {
			writeError(w, http.StatusBadRequest, "avatar file is required")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	username := r.FormValue("username")
	email := r.FormValue("email")
	password := r.FormValue("password")
	location := r.FormValue("location")

	if username == "" || email == "" || password == "" || location == "" {
		writeError(w, http.StatusBadRequest, "username, email, password, location are required")
		return
	}
	if !model.IsValidEmail(email) {
		writeError(w, http.StatusBadRequest, "invalid email format")
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Printf("[user.register] HashPassword error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	avatarURL, avatarKey, err := h.images.UploadImage(r.Context(), "users", img.Ext, img.ContentType, img.Data)
	if err != nil {
		log.Printf("[user.register] avatar upload error: %v", err)
		writeError(w, http.StatusBadGateway, "failed to upload avatar")
		return
	}

	now := time.Now()
	u := &model.User{
		ID:           generateID(),
		Username:     username,
		Email:        email,
		Role:         model.UserRoleStudent,
		PasswordHash: hash,
		Location:     location,
		Avatar:       avatarURL,
		AvatarKey:    avatarKey,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "username or email already registered")
			return
		}
		log.Printf("[user.register] CreateUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	token, err := auth.IssueToken(h.cfg, u.ID, u.Role)
	if err != nil {
		log.Printf("[user.register] IssueToken error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	log.Printf("[user] Registered: %s (%s)", u.Email, u.ID)
	writeJSON(w, http.StatusCreated, authResponse{User: u, AccessToken: token})
}

// Login 用户登录
// POST /api/v1/users/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	u, err := auth.VerifyCredentials(r.Context(), h.store, req.Email, req.Password)
	if err != nil {
		log.Printf("[user.login] VerifyCredentials error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if u == nil {
		// 账号不存在与密码错误统一响应
		writeError(w, http.StatusUnauthorized, "email or password is incorrect")
		return
	}

	token, err := auth.IssueToken(h.cfg, u.ID, u.Role)
	if err != nil {
		log.Printf("[user.login] IssueToken error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	log.Printf("[user] Logged in: %s", u.Email)
	writeJSON(w, http.StatusOK, authResponse{User: u, AccessToken: token})
}

// Logout 登出
// 令牌无状态、服务端不可吊销，这里只做确认应答
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request, _ *auth.Identity) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "logout successful"})
}

// Me 获取当前用户档案
func (h *Handler) Me(w http.ResponseWriter, r *http.Request, id *auth.Identity) {
	u, err := h.store.GetUserByID(r.Context(), id.ID)
	if err != nil {
		h.userLookupError(w, id.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateMe 更新当前用户档案（multipart，可携带新头像）
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request, id *auth.Identity) {
	base, err := h.store.GetUserByID(r.Context(), id.ID)
	if err != nil {
		h.userLookupError(w, id.ID, err)
		return
	}

	// 新头像可选；ErrNoFile 表示保留原头像
	var avatarURL, avatarKey string
	img, err := upload.ReadImage(r, "avatar")
	switch {
	case err == nil:
		avatarURL, avatarKey, err = h.images.UploadImage(r.Context(), "users", img.Ext, img.ContentType, img.Data)
		if err != nil {
			log.Printf("[user.update] avatar upload error: %v", err)
			writeError(w, http.StatusBadGateway, "failed to upload avatar")
			return
		}
	case errors.Is(err, upload.ErrNoFile):
		// 不换图
	default:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	payload := formPayload(r.FormValue, func(field string) bool {
		return len(r.Form[field]) > 0 || len(r.PostForm[field]) > 0 || hasMultipartValue(r, field)
	})
	// 普通用户不能通过该路径改角色
	payload.Role = nil

	next, err := applyUpdate(base, payload, avatarURL, avatarKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := next.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.ReplaceUser(r.Context(), next); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "username or email already taken")
			return
		}
		h.userLookupError(w, id.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, next)
}

// DeleteMe 注销当前账号
// 不级联删除该用户发布的商品
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request, id *auth.Identity) {
	if err := h.store.DeleteUser(r.Context(), id.ID); err != nil {
		h.userLookupError(w, id.ID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MyProducts 当前用户发布的商品
func (h *Handler) MyProducts(w http.ResponseWriter, r *http.Request, id *auth.Identity) {
	if _, err := h.store.GetUserByID(r.Context(), id.ID); err != nil {
		h.userLookupError(w, id.ID, err)
		return
	}
	products, err := h.store.ListProducts(r.Context(), storage.ProductQuery{Seller: id.ID})
	if err != nil {
		log.Printf("[user.products] ListProducts error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// Directory 公开的用户目录（仅邮箱 + 用户名）
func (h *Handler) Directory(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		log.Printf("[user.directory] ListUsers error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	profiles := make([]model.PublicProfile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Public())
	}
	writeJSON(w, http.StatusOK, profiles)
}

// List 列出全部用户（管理员）
func (h *Handler) List(w http.ResponseWriter, r *http.Request, _ *auth.Identity) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		log.Printf("[user.list] ListUsers error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Get 获取指定用户（公开）
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	u, err := h.store.GetUserByID(r.Context(), userID)
	if err != nil {
		h.userLookupError(w, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Update 更新指定用户（管理员，JSON 载荷）
func (h *Handler) Update(w http.ResponseWriter, r *http.Request, _ *auth.Identity) {
	userID := r.PathValue("id")
	base, err := h.store.GetUserByID(r.Context(), userID)
	if err != nil {
		h.userLookupError(w, userID, err)
		return
	}

	var payload UpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	next, err := applyUpdate(base, payload, "", "")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := next.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.ReplaceUser(r.Context(), next); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "username or email already taken")
			return
		}
		h.userLookupError(w, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, next)
}

// Delete 删除指定用户（管理员）
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, _ *auth.Identity) {
	userID := r.PathValue("id")
	if err := h.store.DeleteUser(r.Context(), userID); err != nil {
		h.userLookupError(w, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted successfully"})
}

// userLookupError 统一处理用户查找/写入错误
func (h *Handler) userLookupError(w http.ResponseWriter, userID string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("user with id %s not found", userID))
		return
	}
	log.Printf("[user] storage error: %v", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// hasMultipartValue multipart 表单的字段存在性检查
// ParseMultipartForm 之后字段值在 MultipartForm.Value 中
func hasMultipartValue(r *http.Request, field string) bool {
	return r.MultipartForm != nil && len(r.MultipartForm.Value[field]) > 0
}
