package repository

import (
	"context"

	"storefront/internal/domain/cart"
)

// カートの保存先（Redis / メモリ）
type CartStore interface {
	// 無ければ空のカートを返す
	Get(ctx context.Context, userID int64) (*cart.Cart, error)
	Save(ctx context.Context, c *cart.Cart) error
	Delete(ctx context.Context, userID int64) error
}
