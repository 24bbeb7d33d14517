package repository

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type ReturnGormRepository struct {
	db *gorm.DB
}

var _ repo.ReturnRepository = (*ReturnGormRepository)(nil)

func NewReturnGormRepository(db *gorm.DB) *ReturnGormRepository {
	return &ReturnGormRepository{db: db}
}

func withReturnItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	})
}

// 部分ユニークインデックス(idx_return_open_order)に当たったら ErrConflict
func (r *ReturnGormRepository) Create(ctx context.Context, rr model.ReturnRequest) (model.ReturnRequest, error) {
	if err := r.db.WithContext(ctx).Create(&rr).Error; err != nil {
		return model.ReturnRequest{}, translate(err)
	}
	return rr, nil
}

func (r *ReturnGormRepository) FindByID(ctx context.Context, id int64) (model.ReturnRequest, error) {
	var rr model.ReturnRequest
	if err := withReturnItems(r.db.WithContext(ctx)).First(&rr, id).Error; err != nil {
		return model.ReturnRequest{}, translate(err)
	}
	return rr, nil
}

func (r *ReturnGormRepository) HasOpenForOrder(ctx context.Context, orderID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.ReturnRequest{}).
		Where("order_id = ? AND status <> ?", orderID, model.ReturnStatusRejected).
		Count(&n).Error
	return n > 0, err
}

func (r *ReturnGormRepository) List(ctx context.Context, f repo.ReturnListFilter) ([]model.ReturnRequest, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.ReturnRequest{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.ReturnRequest{}, 0, err
	}

	limit, offset := paging(f.Page, f.Limit, 20, 100)
	var list []model.ReturnRequest
	if err := withReturnItems(q).Order("id desc").Limit(limit).Offset(offset).Find(&list).Error; err != nil {
		return []model.ReturnRequest{}, 0, err
	}
	return list, total, nil
}

func (r *ReturnGormRepository) UpdateStatus(ctx context.Context, id int64, from, to model.ReturnStatus, note string) (bool, error) {
	values := map[string]interface{}{"status": to}
	if note != "" {
		values["admin_note"] = note
	}
	res := r.db.WithContext(ctx).Model(&model.ReturnRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
