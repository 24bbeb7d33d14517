package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AnalyticsGormRepository struct {
	db *gorm.DB
}

var _ repo.AnalyticsRepository = (*AnalyticsGormRepository)(nil)

func NewAnalyticsGormRepository(db *gorm.DB) *AnalyticsGormRepository {
	return &AnalyticsGormRepository{db: db}
}

func (r *AnalyticsGormRepository) OrderSummary(ctx context.Context) (repo.OrderSummary, error) {
	var row struct {
		Count   int64
		Revenue decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Select("COUNT(*) AS count, COALESCE(SUM(total_price) FILTER (WHERE status <> ?), 0) AS revenue", model.OrderStatusCancelled).
		Scan(&row).Error
	if err != nil {
		return repo.OrderSummary{}, err
	}

	// 平均はキャンセル以外の件数で割る
	var paidCount int64
	if err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("status <> ?", model.OrderStatusCancelled).
		Count(&paidCount).Error; err != nil {
		return repo.OrderSummary{}, err
	}

	avg := decimal.Zero
	if paidCount > 0 {
		avg = row.Revenue.Div(decimal.NewFromInt(paidCount)).Round(2)
	}
	return repo.OrderSummary{Count: row.Count, Revenue: row.Revenue, Average: avg}, nil
}

func (r *AnalyticsGormRepository) OrdersByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := map[string]int64{}
	for _, s := range []model.OrderStatus{
		model.OrderStatusPending, model.OrderStatusProcessing, model.OrderStatusShipped,
		model.OrderStatusDelivered, model.OrderStatusCancelled,
	} {
		out[string(s)] = 0
	}
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *AnalyticsGormRepository) SalesByDay(ctx context.Context, since time.Time) ([]repo.DailySales, error) {
	var rows []repo.DailySales
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Select("date_trunc('day', created_at) AS day, COUNT(*) AS orders, COALESCE(SUM(total_price), 0) AS revenue").
		Where("created_at >= ? AND status <> ?", since, model.OrderStatusCancelled).
		Group("day").
		Order("day asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AnalyticsGormRepository) TopProducts(ctx context.Context, limit int) ([]repo.TopProduct, error) {
	var rows []repo.TopProduct
	err := r.db.WithContext(ctx).
		Table("order_items AS oi").
		Select("oi.product_id, MAX(oi.name) AS name, SUM(oi.quantity) AS quantity, SUM(oi.price * oi.quantity) AS revenue").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Where("o.status <> ?", model.OrderStatusCancelled).
		Group("oi.product_id").
		Order("quantity desc").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AnalyticsGormRepository) LowStockVariants(ctx context.Context, threshold int64) ([]repo.LowStockVariant, error) {
	var rows []repo.LowStockVariant
	err := r.db.WithContext(ctx).
		Table("product_variants AS v").
		Select("v.id AS variant_id, v.product_id, p.name AS product_name, v.size, v.color, v.stock").
		Joins("JOIN products p ON p.id = v.product_id AND p.deleted_at IS NULL").
		Where("v.stock < ?", threshold).
		Order("v.stock asc, v.id asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AnalyticsGormRepository) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Count(&n).Error
	return n, err
}

func (r *AnalyticsGormRepository) CountReturnsByStatus(ctx context.Context, status model.ReturnStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ReturnRequest{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

func (r *AnalyticsGormRepository) CountActiveCoupons(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Coupon{}).
		Where("is_active = ? AND expires_at >= ?", true, now).
		Count(&n).Error
	return n, err
}
