// Package storage 定义持久化存储层抽象接口
//
// 设计原则：依赖倒置 (DIP)
//   - 调用方只依赖接口，不知道具体实现
//   - 具体实现在子包中：mongostore/
//   - 初始化时通过依赖注入传入实现
package storage

import (
	"context"

	"student-market/internal/shared/model"
)

// UserStore 用户存储接口
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	// GetUserByEmail 未命中时返回 (nil, nil)，供登录路径做不可区分的失败响应
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// GetUserByID 未命中时返回 ErrNotFound
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	// ReplaceUser 整文档替换（更新合并后的落库），未命中时返回 ErrNotFound
	ReplaceUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id string) error
}

// ProductStore 商品存储接口
type ProductStore interface {
	CreateProduct(ctx context.Context, product *model.Product) error
	// GetProduct 未命中时返回 ErrNotFound
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProducts(ctx context.Context, q ProductQuery) ([]*model.Product, error)
	ReplaceProduct(ctx context.Context, product *model.Product) error
	DeleteProduct(ctx context.Context, id string) error
}

// Store 聚合存储接口
type Store interface {
	UserStore
	ProductStore
	Close() error
}

// ProductQuery 商品列表查询条件
// 由 HTTP 层的 query string 解析而来，驱动层翻译为具体查询语句。
type ProductQuery struct {
	Category  string
	Condition string
	Location  string
	Seller    string
	MinPrice  *float64
	MaxPrice  *float64
	Search    string // 标题模糊匹配

	Skip   int64
	Limit  int64
	Sort   string   // 字段名，前缀 "-" 表示降序，如 "-price"
	Fields []string // 保留字段投影，空表示全部
}
