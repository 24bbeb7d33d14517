package model

import "time"

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

func (t DiscountType) IsValid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

type Coupon struct {
	ID             int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	Code           string       `gorm:"type:varchar(50);not null;uniqueIndex" json:"code"`
	DiscountType   DiscountType `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue  Money        `gorm:"type:numeric(12,2);not null" json:"discount_value"`
	MinOrderAmount Money        `gorm:"type:numeric(12,2);not null;default:0" json:"min_order_amount"`
	// nil は無制限
	MaxUses   *int64 `json:"max_uses"`
	UsedCount int64  `gorm:"not null;default:0" json:"used_count"`
	// 0 は無制限
	UsesPerUser int64     `gorm:"not null;default:0" json:"uses_per_user"`
	ExpiresAt   time.Time `gorm:"not null" json:"expires_at"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 注文でクーポンを使った記録（1注文1件）
type CouponRedemption struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CouponID  int64     `gorm:"not null;index:idx_redemption_user,priority:1" json:"coupon_id"`
	UserID    int64     `gorm:"not null;index:idx_redemption_user,priority:2" json:"user_id"`
	OrderID   int64     `gorm:"not null;uniqueIndex" json:"order_id"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
