// Package server 路由配置与核心基础设施
//
// 本文件定义 HTTP API 路由，将请求分发到各领域独立包。
// 领域接口分别实现在 user 包和 product 包中，本包只负责：
//   - 组装路由
//   - 健康检查 / Prometheus 指标端点
//   - CORS 与指标中间件
package server

import (
	"net/http"

	"student-market/internal/apiserver/auth"
	"student-market/internal/apiserver/product"
	"student-market/internal/apiserver/user"
	"student-market/internal/shared/mailer"
	"student-market/internal/shared/storage"
)

// ImageHost 图片托管接口（user 与 product 领域共用）
type ImageHost interface {
	user.ImageHost
	product.ImageHost
}

// Handler API 处理器
//
// Handler 是所有 HTTP API 的入口，负责：
//   - 路由请求到对应的领域处理器
//   - 管理存储层 / 对象存储 / 邮件发送依赖
type Handler struct {
	store   storage.Store // MongoDB 存储层
	images  ImageHost     // MinIO 图片托管
	mail    mailer.Sender // SendGrid 询盘邮件
	authCfg auth.Config
	metrics *Metrics // Prometheus 指标
}

// NewHandler 创建 Handler 实例
func NewHandler(store storage.Store, images ImageHost, mail mailer.Sender, authCfg auth.Config) *Handler {
	return &Handler{
		store:   store,
		images:  images,
		mail:    mail,
		authCfg: authCfg,
		metrics: NewMetrics("student_market"),
	}
}

// Router 返回配置好的 HTTP 路由
//
// 路由规则：
//
// 健康检查:
//   - GET /health - 服务健康检查
//
// 用户管理 (User):
//   - POST   /api/v1/users/register     - 注册（multipart，含头像）
//   - POST   /api/v1/users/login        - 登录
//   - POST   /api/v1/users/logout       - 登出
//   - GET    /api/v1/users/me           - 当前用户档案
//   - PUT    /api/v1/users/me           - 更新档案（multipart，可换头像）
//   - DELETE /api/v1/users/me           - 注销账号
//   - GET    /api/v1/users/me/products  - 当前用户发布的商品
//   - GET    /api/v1/users/directory    - 公开用户目录
//   - GET    /api/v1/users              - 列出全部用户（管理员）
//   - GET    /api/v1/users/{id}         - 获取用户
//   - PUT    /api/v1/users/{id}         - 更新用户（管理员）
//   - DELETE /api/v1/users/{id}         - 删除用户（管理员）
//
// 商品管理 (Product):
//   - POST   /api/v1/products              - 发布商品（multipart，含图片）
//   - GET    /api/v1/products              - 浏览商品（支持过滤/分页/排序/投影）
//   - GET    /api/v1/products/{id}         - 商品详情
//   - GET    /api/v1/products/me/{id}      - 获取自己发布的商品（仅卖家）
//   - PUT    /api/v1/products/{id}         - 更新商品（仅卖家）
//   - DELETE /api/v1/products/{id}         - 删除商品（仅卖家）
//   - POST   /api/v1/products/{id}/enquiry - 给卖家发询盘邮件
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("GET /health", h.Health)

	// Prometheus 指标端点
	mux.Handle("GET /metrics", MetricsHandler())

	// 用户接口
	userHandler := user.NewHandler(h.store, h.images, h.authCfg)
	userHandler.RegisterRoutes(mux)

	// 商品接口
	productHandler := product.NewHandler(h.store, h.images, h.mail, h.authCfg)
	productHandler.RegisterRoutes(mux)

	// 应用指标中间件
	apiHandler := h.metrics.MetricsMiddleware(mux)

	// 应用 CORS 中间件
	return corsMiddleware(apiHandler)
}

// Health 健康检查
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// corsMiddleware 添加 CORS 头支持跨域请求
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
