package mongostore

import (
	"context"
	"strings"

	"student-market/internal/shared/model"
	"student-market/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// ProductStore
// ============================================================================

func (s *Store) CreateProduct(ctx context.Context, product *model.Product) error {
	return insertOne(ctx, s.col(ColProducts), product)
}

func (s *Store) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	return findByID[model.Product](ctx, s.col(ColProducts), id)
}

// ListProducts 按查询条件列出商品
// ProductQuery 翻译规则：
//   - 等值条件 → 等值匹配
//   - MinPrice/MaxPrice → $gte / $lte
//   - Search → title 大小写不敏感正则
//   - Sort "-field" → 降序；Fields → 投影
func (s *Store) ListProducts(ctx context.Context, q storage.ProductQuery) ([]*model.Product, error) {
	filter := bson.D{}
	if q.Category != "" {
		filter = append(filter, bson.E{Key: "category", Value: q.Category})
	}
	if q.Condition != "" {
		filter = append(filter, bson.E{Key: "condition", Value: q.Condition})
	}
	if q.Location != "" {
		filter = append(filter, bson.E{Key: "location", Value: q.Location})
	}
	if q.Seller != "" {
		filter = append(filter, bson.E{Key: "seller", Value: q.Seller})
	}
	if q.MinPrice != nil || q.MaxPrice != nil {
		price := bson.D{}
		if q.MinPrice != nil {
			price = append(price, bson.E{Key: "$gte", Value: *q.MinPrice})
		}
		if q.MaxPrice != nil {
			price = append(price, bson.E{Key: "$lte", Value: *q.MaxPrice})
		}
		filter = append(filter, bson.E{Key: "price", Value: price})
	}
	if q.Search != "" {
		filter = append(filter, bson.E{Key: "title", Value: bson.D{
			{Key: "$regex", Value: q.Search},
			{Key: "$options", Value: "i"},
		}})
	}

	opts := options.Find()
	if q.Skip > 0 {
		opts = opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts = opts.SetLimit(q.Limit)
	}
	if q.Sort != "" {
		field, order := q.Sort, 1
		if strings.HasPrefix(field, "-") {
			field, order = field[1:], -1
		}
		opts = opts.SetSort(bson.D{{Key: field, Value: order}})
	} else {
		opts = opts.SetSort(bson.D{{Key: "created_at", Value: -1}})
	}
	if len(q.Fields) > 0 {
		projection := bson.D{}
		for _, f := range q.Fields {
			projection = append(projection, bson.E{Key: f, Value: 1})
		}
		opts = opts.SetProjection(projection)
	}

	return findMany[model.Product](ctx, s.col(ColProducts), filter, opts)
}

func (s *Store) ReplaceProduct(ctx context.Context, product *model.Product) error {
	return replaceByID(ctx, s.col(ColProducts), product.ID, product)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(ColProducts), id)
}
