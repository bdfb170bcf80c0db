package model

import (
	"fmt"
	"time"
)

// ProductCondition 商品成色
type ProductCondition string

const (
	ConditionNew  ProductCondition = "New"
	ConditionUsed ProductCondition = "Used"
)

// Product 商品
//
// Seller 为发布者用户 ID，创建时设定，之后不可变更。
// Image 是对象存储外链（可选），ImageKey 是对象存储内的 key（必填，删除时用）。
type Product struct {
	ID          string           `json:"id" bson:"_id"`
	Title       string           `json:"title" bson:"title"`
	Description string           `json:"description" bson:"description"`
	Price       float64          `json:"price" bson:"price"`
	Condition   ProductCondition `json:"condition" bson:"condition"`
	Category    string           `json:"category" bson:"category"`
	Location    string           `json:"location" bson:"location"`
	Image       string           `json:"image,omitempty" bson:"image,omitempty"`
	ImageKey    string           `json:"image_key" bson:"image_key"`
	Seller      string           `json:"seller" bson:"seller"`
	CreatedAt   time.Time        `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" bson:"updated_at"`
}

// Validate 校验商品文档，填充默认成色
func (p *Product) Validate() error {
	if p.Title == "" {
		return fmt.Errorf("title is required")
	}
	if p.Description == "" {
		return fmt.Errorf("description is required")
	}
	if p.Price <= 0 {
		return fmt.Errorf("price must be greater than zero")
	}
	if p.Condition == "" {
		p.Condition = ConditionNew
	}
	if p.Condition != ConditionNew && p.Condition != ConditionUsed {
		return fmt.Errorf("condition must be %q or %q", ConditionNew, ConditionUsed)
	}
	if p.Category == "" {
		return fmt.Errorf("category is required")
	}
	if p.Location == "" {
		return fmt.Errorf("location is required")
	}
	if p.ImageKey == "" {
		return fmt.Errorf("image_key is required")
	}
	if p.Seller == "" {
		return fmt.Errorf("seller is required")
	}
	return nil
}
