// Package product 商品领域 - 发布、浏览、询盘
package product

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
	"student-market/internal/shared/mailer"
	"student-market/internal/shared/model"
	"student-market/internal/shared/storage"
)

// Store 商品领域所需的存储接口
type Store interface {
	storage.ProductStore
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]*model.User, error)
}

// ImageHost 商品图片托管接口
type ImageHost interface {
	UploadImage(ctx context.Context, folder, ext, contentType string, data []byte) (url, key string, err error)
	Delete(ctx context.Context, key string) error
}

// Handler 商品领域 HTTP 处理器
type Handler struct {
	store  Store
	images ImageHost
	mail   mailer.Sender
	cfg    auth.Config
}

// NewHandler 创建商品处理器
func NewHandler(store Store, images ImageHost, mail mailer.Sender, cfg auth.Config) *Handler {
	return &Handler{store: store, images: images, mail: mail, cfg: cfg}
}

// RegisterRoutes 注册商品相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/products", auth.Authenticated(h.cfg, h.Create))
	mux.HandleFunc("GET /api/v1/products", h.List)
	mux.HandleFunc("GET /api/v1/products/{id}", h.Get)
	mux.HandleFunc("GET /api/v1/products/me/{id}", auth.Authenticated(h.cfg, h.GetMine))
	mux.HandleFunc("PUT /api/v1/products/{id}", auth.Authenticated(h.cfg, h.Update))
	mux.HandleFunc("DELETE /api/v1/products/{id}", auth.Authenticated(h.cfg, h.Delete))
	mux.HandleFunc("POST /api/v1/products/{id}/enquiry", h.Enquiry)
}

// ============================================================================
// 请求/响应类型
// ============================================================================

// sellerInfo 列表/详情中附带的卖家联系方式
type sellerInfo struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Location string `json:"location,omitempty"`
}

// productView 附带卖家信息的商品视图
type productView struct {
	*model.Product
	SellerInfo *sellerInfo `json:"seller_info,omitempty"`
}

type enquiryRequest struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

// ============================================================================
// Handlers
// ============================================================================

// Create 发布商品
// POST /api/v1/products（multipart，image 字段为商品图片）
// 卖家取自令牌身份，不接受载荷指定
func (h *Handler) Create(w http.ResponseWriter, r *http.Request, id *auth.Identity) {
	img, err := upload.ReadImage(r, "image")
	if err != nil {
		if errors.Is(err, upload.ErrNoFile) {
			writeError(w, http.StatusBadRequest, "image file is required")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	payload, err := formPayload(r.FormValue, func(field string) bool {
		return r.MultipartForm != nil && len(r.MultipartForm.Value[field]) > 0
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	imageURL, imageKey, err := h.images.UploadImage(r.Context(), "products", img.Ext, img.ContentType, img.Data)
	if err != nil {
		log.Printf("[product.create] image upload error: %v", err)
		writeError(w, http.StatusBadGateway, "failed to upload image")
		return
	}

	now := time.Now()
	p := applyUpdate(&model.Product{
		ID:        generateID(),
		Seller:    id.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}, payload, imageURL, imageKey)
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.CreateProduct(r.Context(), p); err != nil {
		log.Printf("[product.create] CreateProduct error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	log.Printf("[product] Created: %s (%s) by %s", p.Title, p.ID, id.ID)
	writeJSON(w, http.StatusCreated, p)
}

// List 浏览商品
// GET /api/v1/products?category=&condition=&min_price=&sort=-price&...
// 响应中附带卖家联系方式
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q, err := ParseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	products, err := h.store.ListProducts(r.Context(), q)
	if err != nil {
		log.Printf("[product.list] ListProducts error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	views, err := h.withSellers(r.Context(), products)
	if err != nil {
		log.Printf("[product.list] seller lookup error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// Get 商品详情（公开，附带卖家联系方式）
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("id")
	p, err := h.store.GetProduct(r.Context(), productID)
	if err != nil {
		h.productLookupError(w, productID, err)
		return
	}

	views, err := h.withSellers(r.Context(), []*model.Product{p})
	if err != nil {
		log.Printf("[product.get] seller lookup error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, views[0])
}

// GetMine 获取自己发布的商品（编辑页用）
// 非卖家本人 → 403，按存储的卖家 ID 与令牌身份做等值比较
func (h *Handler) GetMine(w http.ResponseWriter, r *http.Request, id *auth.Identity) {
	productID := r.PathValue("id")
	p, err := h.store.GetProduct(r.Context(), productID)
	if err != nil {
		h.productLookupError(w, productID, err)
		return
	}
	if p.Seller != id.ID {
		writeError(w, http.StatusForbidden, "this product belongs to another seller")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Update 更新商品（仅卖家本人，multipart，可携带新图片）
func (h *Handler) Update(w http.ResponseWriter, r *http.Request, id *auth.Identity) {
	productID := r.PathValue("id")
	base, err := h.store.GetProduct(r.Context(), productID)
	if err != nil {
		h.productLookupError(w, productID, err)
		return
	}
	if base.Seller != id.ID {
		writeError(w, http.StatusForbidden, "only the seller can modify this product")
		return
	}

	// 新图片可选；ErrNoFile 表示保留原图
	var imageURL, imageKey string
	img, err := upload.ReadImage(r, "image")
	switch {
	case err == nil:
		// 先尽力删除旧图，再上传新图
		if base.ImageKey != "" {
			if err := h.images.Delete(r.Context(), base.ImageKey); err != nil {
				log.Printf("[product.update] delete old image %s: %v", base.ImageKey, err)
			}
		}
		imageURL, imageKey, err = h.images.UploadImage(r.Context(), "products", img.Ext, img.ContentType, img.Data)
		if err != nil {
			log.Printf("[product.update] image upload error: %v", err)
			writeError(w, http.StatusBadGateway, "failed to upload image")
			return
		}
	case errors.Is(err, upload.ErrNoFile):
		// 不换图
	default:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	payload, err := formPayload(r.FormValue, func(field string) bool {
		return r.MultipartForm != nil && len(r.MultipartForm.Value[field]) > 0
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	next := applyUpdate(base, payload, imageURL, imageKey)
	if err := next.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.ReplaceProduct(r.Context(), next); err != nil {
		h.productLookupError(w, productID, err)
		return
	}
	writeJSON(w, http.StatusOK, next)
}

// Delete 删除商品（仅卖家本人）
// 响应返回被删除的文档；关联图片按尽力而为语义清理
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, id *auth.Identity) {
	productID := r.PathValue("id")
	p, err := h.store.GetProduct(r.Context(), productID)
	if err != nil {
		h.productLookupError(w, productID, err)
		return
	}
	if p.Seller != id.ID {
		writeError(w, http.StatusForbidden, "only the seller can delete this product")
		return
	}

	if err := h.store.DeleteProduct(r.Context(), productID); err != nil {
		h.productLookupError(w, productID, err)
		return
	}
	if p.ImageKey != "" {
		if err := h.images.Delete(r.Context(), p.ImageKey); err != nil {
			log.Printf("[product.delete] delete image %s: %v", p.ImageKey, err)
		}
	}

	log.Printf("[product] Deleted: %s (%s)", p.Title, p.ID)
	writeJSON(w, http.StatusOK, p)
}

// Enquiry 给卖家发送询盘邮件
// POST /api/v1/products/{id}/enquiry
// 收件人取自商品文档中的卖家，不接受载荷指定
func (h *Handler) Enquiry(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("id")

	var req enquiryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !model.IsValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	p, err := h.store.GetProduct(r.Context(), productID)
	if err != nil {
		h.productLookupError(w, productID, err)
		return
	}
	seller, err := h.store.GetUserByID(r.Context(), p.Seller)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "the seller of this product no longer exists")
			return
		}
		log.Printf("[product.enquiry] seller lookup error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.mail.SendEnquiry(r.Context(), seller.Email, p.Title, req.Email, req.Message); err != nil {
		log.Printf("[product.enquiry] SendEnquiry error: %v", err)
		writeError(w, http.StatusBadGateway, "failed to send enquiry email")
		return
	}

	log.Printf("[product] Enquiry for %s (%s) from %s", p.Title, p.ID, req.Email)
	writeJSON(w, http.StatusOK, map[string]string{"message": "enquiry sent to the seller"})
}

// withSellers 为商品列表批量附加卖家联系方式
// 卖家已注销的商品保留展示，seller_info 为空
func (h *Handler) withSellers(ctx context.Context, products []*model.Product) ([]productView, error) {
	ids := make([]string, 0, len(products))
	seen := map[string]bool{}
	for _, p := range products {
		if !seen[p.Seller] {
			seen[p.Seller] = true
			ids = append(ids, p.Seller)
		}
	}

	sellers := map[string]*sellerInfo{}
	if len(ids) > 0 {
		users, err := h.store.GetUsersByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			sellers[u.ID] = &sellerInfo{Username: u.Username, Email: u.Email, Location: u.Location}
		}
	}

	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, productView{Product: p, SellerInfo: sellers[p.Seller]})
	}
	return views, nil
}

// productLookupError 统一处理商品查找/写入错误
func (h *Handler) productLookupError(w http.ResponseWriter, productID string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("product with id %s not found", productID))
		return
	}
	log.Printf("[product] storage error: %v", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
