package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type CouponListFilter struct {
	Page     int
	Limit    int
	IsActive *bool
}

type CouponRepository interface {
	Create(ctx context.Context, c model.Coupon) (model.Coupon, error)
	Update(ctx context.Context, c model.Coupon) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (model.Coupon, error)
	// 大文字小文字を区別しない
	FindByCode(ctx context.Context, code string) (model.Coupon, error)
	List(ctx context.Context, f CouponListFilter) ([]model.Coupon, int64, error)

	// SELECT ... FOR UPDATE（Tx内で使う）
	LockByCode(ctx context.Context, code string) (model.Coupon, error)
	CountRedemptionsByUser(ctx context.Context, couponID, userID int64) (int64, error)

	// max_uses 未満のときだけ used_count を+1。上限なら false
	IncrementUsageIfBelowLimit(ctx context.Context, couponID int64) (bool, error)
	CreateRedemption(ctx context.Context, r model.CouponRedemption) error

	// 注文キャンセル時に使用回数を戻す。記録がなければ false
	ReleaseForOrder(ctx context.Context, orderID int64) (bool, error)
}
