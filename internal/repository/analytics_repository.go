package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

type OrderSummary struct {
	Count   int64       `json:"count"`
	Revenue model.Money `json:"revenue"`
	Average model.Money `json:"average"`
}

type DailySales struct {
	Day     time.Time   `json:"day"`
	Orders  int64       `json:"orders"`
	Revenue model.Money `json:"revenue"`
}

type TopProduct struct {
	ProductID int64       `json:"product_id"`
	Name      string      `json:"name"`
	Quantity  int64       `json:"quantity"`
	Revenue   model.Money `json:"revenue"`
}

type LowStockVariant struct {
	VariantID   int64  `json:"variant_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Size        string `json:"size"`
	Color       string `json:"color"`
	Stock       int64  `json:"stock"`
}

// 管理ダッシュボードの集計（読み取り専用）
type AnalyticsRepository interface {
	// 売上はキャンセル以外
	OrderSummary(ctx context.Context) (OrderSummary, error)
	OrdersByStatus(ctx context.Context) (map[string]int64, error)
	SalesByDay(ctx context.Context, since time.Time) ([]DailySales, error)
	TopProducts(ctx context.Context, limit int) ([]TopProduct, error)
	LowStockVariants(ctx context.Context, threshold int64) ([]LowStockVariant, error)
	CountUsers(ctx context.Context) (int64, error)
	CountReturnsByStatus(ctx context.Context, status model.ReturnStatus) (int64, error)
	CountActiveCoupons(ctx context.Context, now time.Time) (int64, error)
}
