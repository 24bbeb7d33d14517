package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 一覧検索
type ProductListQuery struct {
	Page     int
	Limit    int
	Q        string
	Category string
	Gender   string
	// 実売価格（discount_price があればそちら）で絞る
	MinPrice *model.Money
	MaxPrice *model.Money
	Featured *bool
	Sort     string
	// 管理画面は非公開も含める
	IncludeInactive bool
}

// 商品の永続化（保存・取得）だけを約束。variants も一緒に読む
type ProductRepository interface {
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	FindBySlug(ctx context.Context, slug string) (model.Product, error)
	FindByIDs(ctx context.Context, ids []int64) ([]model.Product, error)
	SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	SoftDelete(ctx context.Context, id int64) error
}
