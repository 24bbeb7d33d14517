package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// バリアント（サイズ×カラー）の在庫
type InventoryRepository interface {
	FindVariantByID(ctx context.Context, variantID int64) (model.ProductVariant, error)

	// (product_id, size, color) が同じなら上書き
	UpsertVariant(ctx context.Context, v model.ProductVariant) (model.ProductVariant, error)
	DeleteVariant(ctx context.Context, productID, variantID int64) error

	// 在庫の現在値を設定
	SetStock(ctx context.Context, variantID int64, newStock int64) error

	// 在庫が足りるときだけ減算
	DecreaseStockIfEnough(ctx context.Context, variantID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセルなど）
	IncreaseStock(ctx context.Context, variantID int64, qty int64) error

	// 調整履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
}
