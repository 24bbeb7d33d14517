package repository

import (
	"context"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CouponGormRepository struct {
	db *gorm.DB
}

var _ repo.CouponRepository = (*CouponGormRepository)(nil)

func NewCouponGormRepository(db *gorm.DB) *CouponGormRepository {
	return &CouponGormRepository{db: db}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (r *CouponGormRepository) Create(ctx context.Context, c model.Coupon) (model.Coupon, error) {
	c.Code = normalizeCode(c.Code)
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return model.Coupon{}, translate(err)
	}
	return c, nil
}

// used_count はここでは変えない
func (r *CouponGormRepository) Update(ctx context.Context, c model.Coupon) error {
	res := r.db.WithContext(ctx).Model(&model.Coupon{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
		"code":             normalizeCode(c.Code),
		"discount_type":    c.DiscountType,
		"discount_value":   c.DiscountValue,
		"min_order_amount": c.MinOrderAmount,
		"max_uses":         c.MaxUses,
		"uses_per_user":    c.UsesPerUser,
		"expires_at":       c.ExpiresAt,
		"is_active":        c.IsActive,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *CouponGormRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Coupon{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *CouponGormRepository) FindByID(ctx context.Context, id int64) (model.Coupon, error) {
	var c model.Coupon
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return model.Coupon{}, translate(err)
	}
	return c, nil
}

func (r *CouponGormRepository) FindByCode(ctx context.Context, code string) (model.Coupon, error) {
	var c model.Coupon
	if err := r.db.WithContext(ctx).Where("UPPER(code) = ?", normalizeCode(code)).First(&c).Error; err != nil {
		return model.Coupon{}, translate(err)
	}
	return c, nil
}

func (r *CouponGormRepository) List(ctx context.Context, f repo.CouponListFilter) ([]model.Coupon, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Coupon{})
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Coupon{}, 0, err
	}

	limit, offset := paging(f.Page, f.Limit, 50, 200)
	var list []model.Coupon
	if err := q.Order("id desc").Limit(limit).Offset(offset).Find(&list).Error; err != nil {
		return []model.Coupon{}, 0, err
	}
	return list, total, nil
}

// 同じクーポンの同時利用はここで直列になる
func (r *CouponGormRepository) LockByCode(ctx context.Context, code string) (model.Coupon, error) {
	var c model.Coupon
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("UPPER(code) = ?", normalizeCode(code)).
		First(&c).Error
	if err != nil {
		return model.Coupon{}, translate(err)
	}
	return c, nil
}

func (r *CouponGormRepository) CountRedemptionsByUser(ctx context.Context, couponID, userID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.CouponRedemption{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&n).Error
	return n, err
}

// check と increment を1文で行う
func (r *CouponGormRepository) IncrementUsageIfBelowLimit(ctx context.Context, couponID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Coupon{}).
		Where("id = ? AND (max_uses IS NULL OR used_count < max_uses)", couponID).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *CouponGormRepository) CreateRedemption(ctx context.Context, red model.CouponRedemption) error {
	return translate(r.db.WithContext(ctx).Create(&red).Error)
}

func (r *CouponGormRepository) ReleaseForOrder(ctx context.Context, orderID int64) (bool, error) {
	var red model.CouponRedemption
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		First(&red).Error
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := r.db.WithContext(ctx).Delete(&model.CouponRedemption{}, red.ID).Error; err != nil {
		return false, err
	}

	// 0未満にはしない
	if err := r.db.WithContext(ctx).
		Model(&model.Coupon{}).
		Where("id = ? AND used_count > 0", red.CouponID).
		UpdateColumn("used_count", gorm.Expr("used_count - 1")).Error; err != nil {
		return false, err
	}
	return true, nil
}
