package product

import (
	"time"

	"student-market/internal/shared/model"
)

// UpdatePayload 商品更新的部分载荷
// nil 字段表示"保持原值"
type UpdatePayload struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Condition   *string  `json:"condition"`
	Category    *string  `json:"category"`
	Location    *string  `json:"location"`
}

// applyUpdate 合并部分更新载荷，计算商品的下一个持久化状态
//
// 合并顺序：
//  1. 以当前文档为基底
//  2. 如有新图片，覆盖 (image, image_key)
//  3. 逐字段覆盖载荷中出现的字段
//
// 载荷没有图片字段，所以第 2 步的结果不会被第 3 步抹掉。
// ID、Seller、创建时间不可变；调用方负责对结果执行 Validate。
func applyUpdate(base *model.Product, p UpdatePayload, imageURL, imageKey string) *model.Product {
	next := *base

	if imageURL != "" {
		next.Image = imageURL
		next.ImageKey = imageKey
	}

	if p.Title != nil {
		next.Title = *p.Title
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.Price != nil {
		next.Price = *p.Price
	}
	if p.Condition != nil {
		next.Condition = model.ProductCondition(*p.Condition)
	}
	if p.Category != nil {
		next.Category = *p.Category
	}
	if p.Location != nil {
		next.Location = *p.Location
	}

	next.UpdatedAt = time.Now()
	return &next
}

// formPayload 从 multipart 表单提取更新载荷（PUT /products/{id}）
func formPayload(get func(string) string, has func(string) bool) (UpdatePayload, error) {
	p := UpdatePayload{}
	set := func(field string, dst **string) {
		if has(field) {
			v := get(field)
			*dst = &v
		}
	}
	set("title", &p.Title)
	set("description", &p.Description)
	set("condition", &p.Condition)
	set("category", &p.Category)
	set("location", &p.Location)

	if has("price") {
		v, err := parsePrice(get("price"), "price")
		if err != nil {
			return p, err
		}
		p.Price = v
	}
	return p, nil
}
