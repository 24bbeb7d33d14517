package pricing

import (
	"fmt"
	"time"

	"storefront/internal/domain/model"

	"github.com/shopspring/decimal"
)

// クーポンの拒否理由。先に失敗した判定が返る
const (
	ReasonInvalidCode      = "Invalid coupon code"
	ReasonInactive         = "Coupon is inactive"
	ReasonExpired          = "Coupon has expired"
	ReasonUsageLimit       = "Coupon usage limit reached"
	ReasonUsageLimitByUser = "Coupon usage limit per user reached"
)

var hundred = decimal.NewFromInt(100)

// 明細1行（単価 × 数量）
type Line struct {
	UnitPrice model.Money
	Quantity  int64
}

type Totals struct {
	ItemsPrice     model.Money `json:"items_price"`
	ShippingPrice  model.Money `json:"shipping_price"`
	DiscountAmount model.Money `json:"discount_amount"`
	TotalPrice     model.Money `json:"total_price"`
}

func ItemsPrice(lines []Line) model.Money {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity)))
	}
	return sum
}

// 割引額。fixed は小計で頭打ちにしない
func Discount(c model.Coupon, itemsPrice model.Money) model.Money {
	switch c.DiscountType {
	case model.DiscountPercentage:
		return itemsPrice.Mul(c.DiscountValue).Div(hundred).Round(2)
	case model.DiscountFixed:
		return c.DiscountValue
	}
	return decimal.Zero
}

// total = items + shipping - discount（0未満でもそのまま返す）
func Compute(lines []Line, shipping model.Money, coupon *model.Coupon) Totals {
	items := ItemsPrice(lines)
	discount := decimal.Zero
	if coupon != nil {
		discount = Discount(*coupon, items)
	}
	return Totals{
		ItemsPrice:     items,
		ShippingPrice:  shipping,
		DiscountAmount: discount,
		TotalPrice:     items.Add(shipping).Sub(discount),
	}
}

// クーポン単体の判定（存在チェックと利用者ごとの上限は呼び出し側）
// 問題なければ空文字
func CheckCoupon(c model.Coupon, amount model.Money, now time.Time) string {
	if !c.IsActive {
		return ReasonInactive
	}
	if c.ExpiresAt.Before(now) {
		return ReasonExpired
	}
	if amount.LessThan(c.MinOrderAmount) {
		return MinimumNotMet(c.MinOrderAmount)
	}
	if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
		return ReasonUsageLimit
	}
	return ""
}

func MinimumNotMet(min model.Money) string {
	return fmt.Sprintf("Minimum order amount of %s not met", min.String())
}

// 地域ごとの送料
type ShippingPolicy struct {
	Valley  model.Money
	Outside model.Money
}

func FlatShipping(v int64) ShippingPolicy {
	p := decimal.NewFromInt(v)
	return ShippingPolicy{Valley: p, Outside: p}
}

func (p ShippingPolicy) PriceFor(r model.Region) model.Money {
	if r == model.RegionOutsideValley {
		return p.Outside
	}
	return p.Valley
}
