package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page          int
	Limit         int
	Status        string
	PaymentMethod string
	UserID        *int64
	From          *time.Time
	To            *time.Time
}

type ShippingInfo struct {
	TrackingNumber   string
	Carrier          string
	ShippingLabelURL string
}

// 明細(Items)は OrderItemRepository で保存し、読むときは一緒に返す
type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	// SELECT ... FOR UPDATE（Tx内で使う）
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)

	// 現在が from のときだけ to に更新（競合したら false）
	UpdateStatus(ctx context.Context, orderID int64, from, to model.OrderStatus, at time.Time) (bool, error)
	MarkPaid(ctx context.Context, orderID int64, reference string, paidAt time.Time) error
	SetPaymentReference(ctx context.Context, orderID int64, reference string) error
	UpdateShipping(ctx context.Context, orderID int64, info ShippingInfo) error

	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error)
	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}
