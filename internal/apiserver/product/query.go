package product

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"student-market/internal/shared/model"
	"student-market/internal/shared/storage"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// 可排序字段白名单，防止任意字段注入排序
var sortable = map[string]bool{
	"price":      true,
	"created_at": true,
	"title":      true,
}

// 可投影字段白名单
var projectable = map[string]bool{
	"title":      true,
	"price":      true,
	"condition":  true,
	"category":   true,
	"location":   true,
	"image":      true,
	"seller":     true,
	"created_at": true,
}

// ParseQuery 解析商品列表的 query string
//
// 支持的参数：
//
//	category, condition, location, seller - 精确匹配
//	min_price, max_price                  - 价格区间
//	search                                - 标题模糊匹配
//	skip, limit                           - 分页（limit 上限 100，默认 20）
//	sort                                  - 排序字段，前缀 "-" 降序
//	fields                                - 逗号分隔的投影字段
func ParseQuery(values url.Values) (storage.ProductQuery, error) {
	q := storage.ProductQuery{
		Category: values.Get("category"),
		Location: values.Get("location"),
		Seller:   values.Get("seller"),
		Search:   values.Get("search"),
		Limit:    defaultLimit,
	}

	if condition := values.Get("condition"); condition != "" {
		c := model.ProductCondition(condition)
		if c != model.ConditionNew && c != model.ConditionUsed {
			return q, fmt.Errorf("condition must be %q or %q", model.ConditionNew, model.ConditionUsed)
		}
		q.Condition = condition
	}

	var err error
	if q.MinPrice, err = parsePrice(values.Get("min_price"), "min_price"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = parsePrice(values.Get("max_price"), "max_price"); err != nil {
		return q, err
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return q, fmt.Errorf("min_price must not exceed max_price")
	}

	if skip := values.Get("skip"); skip != "" {
		n, err := strconv.ParseInt(skip, 10, 64)
		if err != nil || n < 0 {
			return q, fmt.Errorf("skip must be a non-negative integer")
		}
		q.Skip = n
	}
	if limit := values.Get("limit"); limit != "" {
		n, err := strconv.ParseInt(limit, 10, 64)
		if err != nil || n <= 0 {
			return q, fmt.Errorf("limit must be a positive integer")
		}
		if n > maxLimit {
			n = maxLimit
		}
		q.Limit = n
	}

	if sort := values.Get("sort"); sort != "" {
		field := strings.TrimPrefix(sort, "-")
		if !sortable[field] {
			return q, fmt.Errorf("cannot sort by %q", field)
		}
		q.Sort = sort
	}

	if fields := values.Get("fields"); fields != "" {
		for _, f := range strings.Split(fields, ",") {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			if !projectable[f] {
				return q, fmt.Errorf("unknown field %q", f)
			}
			q.Fields = append(q.Fields, f)
		}
	}

	return q, nil
}

func parsePrice(s, name string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return nil, fmt.Errorf("%s must be a non-negative number", name)
	}
	return &v, nil
}
