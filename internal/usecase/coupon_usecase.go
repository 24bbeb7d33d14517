package usecase

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/domain/pricing"
	"storefront/internal/metrics"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
)

var couponCodeRe = regexp.MustCompile(`^[A-Z0-9_-]{3,50}$`)

type CouponUsecase struct {
	coupons repo.CouponRepository
	tx      repo.TransactionManager
	cache   CouponCache
	clock   Clock
}

func NewCouponUsecase(coupons repo.CouponRepository, tx repo.TransactionManager, cache CouponCache, clock Clock) *CouponUsecase {
	return &CouponUsecase{coupons: coupons, tx: tx, cache: cache, clock: clock}
}

type ValidateCouponInput struct {
	Code   string      `json:"code"`
	Amount model.Money `json:"amount"`
}

// 適用できるクーポンの内容
type CouponValidation struct {
	Code           string             `json:"code"`
	DiscountType   model.DiscountType `json:"discount_type"`
	DiscountValue  model.Money        `json:"discount_value"`
	DiscountAmount model.Money        `json:"discount_amount"`
}

type CouponInput struct {
	Code           string             `json:"code"`
	DiscountType   model.DiscountType `json:"discount_type"`
	DiscountValue  model.Money        `json:"discount_value"`
	MinOrderAmount model.Money        `json:"min_order_amount"`
	MaxUses        *int64             `json:"max_uses"`
	UsesPerUser    int64              `json:"uses_per_user"`
	ExpiresAt      time.Time          `json:"expires_at"`
	IsActive       bool               `json:"is_active"`
}

type CouponListOutput struct {
	Items []model.Coupon `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

func normalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// 副作用なし。userID が 0 なら利用者ごとの上限は見ない
func (u *CouponUsecase) Validate(ctx context.Context, userID int64, in ValidateCouponInput) (CouponValidation, error) {
	code := normalizeCouponCode(in.Code)
	if code == "" {
		return CouponValidation{}, badRequest("coupon code required")
	}
	if in.Amount.IsNegative() {
		return CouponValidation{}, badRequest("amount must be >= 0")
	}

	c, ok := u.cache.Get(ctx, code)
	if !ok {
		found, err := u.coupons.FindByCode(ctx, code)
		if errors.Is(err, repo.ErrNotFound) {
			return CouponValidation{}, badRequest(pricing.ReasonInvalidCode)
		}
		if err != nil {
			return CouponValidation{}, dbError()
		}
		c = found
		u.cache.Set(ctx, c)
	}

	if reason := pricing.CheckCoupon(c, in.Amount, u.clock.Now()); reason != "" {
		return CouponValidation{}, badRequest(reason)
	}

	if userID > 0 && c.UsesPerUser > 0 {
		n, err := u.coupons.CountRedemptionsByUser(ctx, c.ID, userID)
		if err != nil {
			return CouponValidation{}, dbError()
		}
		if n >= c.UsesPerUser {
			return CouponValidation{}, badRequest(pricing.ReasonUsageLimitByUser)
		}
	}

	return CouponValidation{
		Code:           c.Code,
		DiscountType:   c.DiscountType,
		DiscountValue:  c.DiscountValue,
		DiscountAmount: pricing.Discount(c, in.Amount),
	}, nil
}

// 注文Tx内で使う。行ロック→全判定→条件付きで used_count+1
// 引き当てた記録(CouponRedemption)は注文作成後に呼び出し側で保存する
func redeemCoupon(ctx context.Context, r repo.TxRepos, userID int64, code string, itemsPrice model.Money, now time.Time) (model.Coupon, error) {
	c, err := r.Coupons().LockByCode(ctx, normalizeCouponCode(code))
	if errors.Is(err, repo.ErrNotFound) {
		metrics.CouponRedemptions.WithLabelValues("rejected").Inc()
		return model.Coupon{}, badRequest(pricing.ReasonInvalidCode)
	}
	if err != nil {
		return model.Coupon{}, dbError()
	}

	if reason := pricing.CheckCoupon(c, itemsPrice, now); reason != "" {
		metrics.CouponRedemptions.WithLabelValues("rejected").Inc()
		return model.Coupon{}, badRequest(reason)
	}

	if c.UsesPerUser > 0 {
		n, err := r.Coupons().CountRedemptionsByUser(ctx, c.ID, userID)
		if err != nil {
			return model.Coupon{}, dbError()
		}
		if n >= c.UsesPerUser {
			metrics.CouponRedemptions.WithLabelValues("rejected").Inc()
			return model.Coupon{}, badRequest(pricing.ReasonUsageLimitByUser)
		}
	}

	ok, err := r.Coupons().IncrementUsageIfBelowLimit(ctx, c.ID)
	if err != nil {
		return model.Coupon{}, dbError()
	}
	if !ok {
		metrics.CouponRedemptions.WithLabelValues("rejected").Inc()
		return model.Coupon{}, badRequest(pricing.ReasonUsageLimit)
	}
	c.UsedCount++
	return c, nil
}

func validateCouponInput(in CouponInput) error {
	if !couponCodeRe.MatchString(normalizeCouponCode(in.Code)) {
		return badRequest("invalid coupon code")
	}
	if !in.DiscountType.IsValid() {
		return badRequest("invalid discount_type")
	}
	if !in.DiscountValue.IsPositive() {
		return badRequest("discount_value must be > 0")
	}
	if in.DiscountType == model.DiscountPercentage && in.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return badRequest("percentage discount_value must be <= 100")
	}
	if in.MinOrderAmount.IsNegative() {
		return badRequest("min_order_amount must be >= 0")
	}
	if in.MaxUses != nil && *in.MaxUses < 1 {
		return badRequest("max_uses must be >= 1")
	}
	if in.UsesPerUser < 0 {
		return badRequest("uses_per_user must be >= 0")
	}
	if in.ExpiresAt.IsZero() {
		return badRequest("expires_at required")
	}
	return nil
}

func (in CouponInput) toModel() model.Coupon {
	return model.Coupon{
		Code:           normalizeCouponCode(in.Code),
		DiscountType:   in.DiscountType,
		DiscountValue:  in.DiscountValue,
		MinOrderAmount: in.MinOrderAmount,
		MaxUses:        in.MaxUses,
		UsesPerUser:    in.UsesPerUser,
		ExpiresAt:      in.ExpiresAt,
		IsActive:       in.IsActive,
	}
}

func (u *CouponUsecase) AdminCreate(ctx context.Context, adminUserID int64, in CouponInput) (model.Coupon, error) {
	if err := validateCouponInput(in); err != nil {
		return model.Coupon{}, err
	}

	var out model.Coupon
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		created, err := r.Coupons().Create(ctx, in.toModel())
		if errors.Is(err, repo.ErrConflict) {
			return NewHTTPError(http.StatusConflict, "coupon code already exists")
		}
		if err != nil {
			return dbError()
		}
		out = created
		return writeAudit(ctx, r.AuditLogs(), model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionCreateCoupon,
			ResourceType: model.AuditResourceCoupon,
			ResourceID:   created.ID,
			CreatedAt:    u.clock.Now(),
		}, nil, created)
	})
	if err != nil {
		return model.Coupon{}, err
	}
	return out, nil
}

func (u *CouponUsecase) AdminUpdate(ctx context.Context, adminUserID, couponID int64, in CouponInput) (model.Coupon, error) {
	if err := validateCouponInput(in); err != nil {
		return model.Coupon{}, err
	}

	var before, after model.Coupon
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		current, err := r.Coupons().FindByID(ctx, couponID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return dbError()
		}
		// usedCount ≤ maxUses を崩さない
		if in.MaxUses != nil && *in.MaxUses < current.UsedCount {
			return badRequest("max_uses must be >= used_count")
		}

		next := in.toModel()
		next.ID = couponID
		next.UsedCount = current.UsedCount
		if err := r.Coupons().Update(ctx, next); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return NewHTTPError(http.StatusConflict, "coupon code already exists")
			}
			return dbError()
		}
		before, after = current, next
		after.CreatedAt = current.CreatedAt
		return writeAudit(ctx, r.AuditLogs(), model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionUpdateCoupon,
			ResourceType: model.AuditResourceCoupon,
			ResourceID:   couponID,
			CreatedAt:    u.clock.Now(),
		}, current, next)
	})
	if err != nil {
		return model.Coupon{}, err
	}

	u.cache.Invalidate(ctx, before.Code)
	u.cache.Invalidate(ctx, after.Code)
	return after, nil
}

// is_active を反転
func (u *CouponUsecase) AdminToggle(ctx context.Context, adminUserID, couponID int64) (model.Coupon, error) {
	var out model.Coupon
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Coupons().FindByID(ctx, couponID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return dbError()
		}
		next := c
		next.IsActive = !c.IsActive
		if err := r.Coupons().Update(ctx, next); err != nil {
			return dbError()
		}
		out = next
		return writeAudit(ctx, r.AuditLogs(), model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionUpdateCoupon,
			ResourceType: model.AuditResourceCoupon,
			ResourceID:   couponID,
			CreatedAt:    u.clock.Now(),
		}, map[string]bool{"is_active": c.IsActive}, map[string]bool{"is_active": next.IsActive})
	})
	if err != nil {
		return model.Coupon{}, err
	}
	u.cache.Invalidate(ctx, out.Code)
	return out, nil
}

func (u *CouponUsecase) AdminDelete(ctx context.Context, adminUserID, couponID int64) error {
	var code string
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Coupons().FindByID(ctx, couponID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return dbError()
		}
		if err := r.Coupons().Delete(ctx, couponID); err != nil {
			return dbError()
		}
		code = c.Code
		return writeAudit(ctx, r.AuditLogs(), model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionDeleteCoupon,
			ResourceType: model.AuditResourceCoupon,
			ResourceID:   couponID,
			CreatedAt:    u.clock.Now(),
		}, c, nil)
	})
	if err != nil {
		return err
	}
	u.cache.Invalidate(ctx, code)
	return nil
}

func (u *CouponUsecase) AdminList(ctx context.Context, f repo.CouponListFilter) (CouponListOutput, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 200 {
		f.Limit = 50
	}
	items, total, err := u.coupons.List(ctx, f)
	if err != nil {
		return CouponListOutput{}, dbError()
	}
	return CouponListOutput{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (u *CouponUsecase) AdminGet(ctx context.Context, couponID int64) (model.Coupon, error) {
	c, err := u.coupons.FindByID(ctx, couponID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Coupon{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Coupon{}, dbError()
	}
	return c, nil
}
