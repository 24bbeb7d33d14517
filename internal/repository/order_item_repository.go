package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 注文明細（スナップショット）
type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
}
